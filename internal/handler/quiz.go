package handler

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"quiz-pipeline/internal/domain"
	"quiz-pipeline/internal/dto"
	"quiz-pipeline/internal/logger"
	"quiz-pipeline/internal/service"
	"quiz-pipeline/internal/validation"
)

// QuizHandler handles quiz-related HTTP requests
type QuizHandler struct {
	service service.QuizService
}

// NewQuizHandler creates a new QuizHandler instance
func NewQuizHandler(service service.QuizService) *QuizHandler {
	return &QuizHandler{
		service: service,
	}
}

// GenerateQuiz godoc
// @Summary Generate a quiz from a lesson text
// @Description Summarizes the text and generates questions about the summary. Non-English text is translated and the result is translated back.
// @Tags quizzes
// @Accept json
// @Produce json
// @Param request body dto.GenerateQuizRequest true "Lesson text or source location"
// @Success 200 {object} dto.QuizRunResponse
// @Failure 400 {object} middleware.ValidationErrorResponse
// @Failure 404 {object} middleware.ErrorResponse
// @Failure 503 {object} middleware.ErrorResponse
// @Router /quizzes [post]
func (h *QuizHandler) GenerateQuiz(c *fiber.Ctx) error {
	var req dto.GenerateQuizRequest
	if err := c.BodyParser(&req); err != nil {
		logger.Get().Warn("Failed to parse request body", zap.Error(err))
		return domain.NewInvalidInputError("Invalid request body")
	}

	resp, err := h.service.GenerateQuiz(c.UserContext(), &req)
	if err != nil {
		return err
	}
	return c.JSON(resp)
}

// GetQuizRun godoc
// @Summary Get a stored quiz run
// @Tags quizzes
// @Produce json
// @Param id path string true "Quiz run ID"
// @Success 200 {object} dto.QuizRunResponse
// @Failure 400 {object} middleware.ValidationErrorResponse
// @Failure 404 {object} middleware.ErrorResponse
// @Router /quizzes/{id} [get]
func (h *QuizHandler) GetQuizRun(c *fiber.Ctx) error {
	id, _ := c.Locals("validated_id").(string)
	if id == "" {
		id = c.Params("id")
	}

	resp, err := h.service.GetQuizRun(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(resp)
}

// ListQuizRuns godoc
// @Summary List recent quiz runs
// @Tags quizzes
// @Produce json
// @Param limit query int false "Maximum number of runs" default(20)
// @Success 200 {object} dto.QuizRunListResponse
// @Failure 400 {object} middleware.ValidationErrorResponse
// @Router /quizzes [get]
func (h *QuizHandler) ListQuizRuns(c *fiber.Ctx) error {
	limit, ok := c.Locals("validated_limit").(int)
	if !ok {
		limit = validation.DefaultListLimit
	}

	resp, err := h.service.ListQuizRuns(c.UserContext(), limit)
	if err != nil {
		return err
	}
	return c.JSON(resp)
}
