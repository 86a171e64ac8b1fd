package handler

import (
	"github.com/gofiber/fiber/v2"

	"quiz-pipeline/internal/middleware"
)

// RegisterRoutes mounts the quiz API under /api and the health endpoint
func RegisterRoutes(app *fiber.App, quizHandler *QuizHandler, healthHandler *HealthHandler) {
	vm := middleware.NewValidationMiddleware()

	app.Get("/health", healthHandler.Health)

	api := app.Group("/api")
	api.Post("/quizzes", quizHandler.GenerateQuiz)
	api.Get("/quizzes", vm.ValidateListParams(), quizHandler.ListQuizRuns)
	api.Get("/quizzes/:id", vm.ValidateQuizRunID(), quizHandler.GetQuizRun)
}
