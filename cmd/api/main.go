// @title Quiz Pipeline API
// @version 1.0
// @description Generates summaries and quiz questions from lesson texts.
// @contact.name API Support
// @license.name Apache 2.0
// @license.url http://www.apache.org/licenses/LICENSE-2.0.html
// @host localhost:8090
// @BasePath /api
// @schemes http https
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/swagger"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/viant/afs"
	"go.uber.org/zap"

	_ "quiz-pipeline/cmd/api/docs"
	"quiz-pipeline/internal/adapter"
	"quiz-pipeline/internal/adapter/source"
	"quiz-pipeline/internal/cache"
	"quiz-pipeline/internal/config"
	"quiz-pipeline/internal/database"
	"quiz-pipeline/internal/domain"
	"quiz-pipeline/internal/handler"
	"quiz-pipeline/internal/logger"
	"quiz-pipeline/internal/middleware"
	"quiz-pipeline/internal/repository"
	"quiz-pipeline/internal/service"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	if err := logger.Initialize(cfg.Logger); err != nil {
		panic(err)
	}
	appLogger := logger.Get()
	defer logger.Sync()

	ctx := context.Background()

	// Inference models are loaded once and shared by every run
	models, err := adapter.NewModels(cfg, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to initialize models", zap.Error(err))
	}
	defer models.Close()

	// API sources resolve below source.root only
	loader, err := source.NewRootedLoader(source.NewAFSLoader(afs.New(), appLogger), cfg.Source.Root)
	if err != nil {
		appLogger.Fatal("Invalid source root", zap.String("root", cfg.Source.Root), zap.Error(err))
	}
	if cfg.Source.Root == "" {
		appLogger.Info("Source root not configured, loading sources over HTTP disabled")
	}
	pipeline, err := service.NewPipeline(models, loader, cfg.Pipeline, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to create pipeline", zap.Error(err))
	}

	checks := map[string]handler.HealthCheck{}

	// Redis is optional; without it results are not cached
	var resultCache service.ResultCache
	if cfg.Redis.Address != "" {
		redisClient, err := cache.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			appLogger.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		defer redisClient.Close()
		appLogger.Info("Successfully connected to Redis")

		cacheAdapter := adapter.NewRedisCacheAdapter(redisClient)
		ttl := cfg.ParseTTLStringOrDefault(cfg.CacheTTLs.PipelineResult, 24*time.Hour)
		resultCache = service.NewResultCache(cacheAdapter, ttl)
		checks["redis"] = cacheAdapter.Ping
	} else {
		appLogger.Info("Redis address not configured, result caching disabled")
		resultCache = service.NewResultCache(nil, 0)
	}

	// The database is optional; without it runs are not stored
	var quizRunRepository domain.QuizRunRepository
	if cfg.DB.Driver != "" {
		db, err := database.Open(ctx, cfg)
		if err != nil {
			appLogger.Fatal("Failed to connect to database", zap.Error(err))
		}
		defer db.Close()
		appLogger.Info("Successfully connected to database", zap.String("driver", cfg.DB.Driver))

		quizRunRepository = repository.NewQuizRunDatabaseAdapter(db)
		checks["database"] = db.PingContext
	}

	quizService := service.NewQuizService(pipeline, quizRunRepository, resultCache, cfg.Pipeline.MaxConcurrentRuns, appLogger)

	// Initialize handlers
	quizHandler := handler.NewQuizHandler(quizService)
	healthHandler := handler.NewHealthHandler(checks)

	app := fiber.New(fiber.Config{
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.ReadTimeout,
		BodyLimit:    cfg.Server.BodyLimit,
		ErrorHandler: middleware.ErrorHandler(),
	})

	app.Use(recover.New())
	app.Use(middleware.RequestLogger(appLogger))
	app.Use(cors.New(cors.Config{AllowOrigins: "*", AllowMethods: "GET,POST,OPTIONS", AllowHeaders: "Origin,Content-Type,Accept", MaxAge: 300}))

	app.Get("/swagger/*", swagger.HandlerDefault)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))
	handler.RegisterRoutes(app, quizHandler, healthHandler)

	go func() {
		appLogger.Info("Starting server", zap.Int("port", cfg.Server.Port), zap.String("env", os.Getenv("ENV")))
		if err := app.Listen(":" + strconv.Itoa(cfg.Server.Port)); err != nil {
			appLogger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	appLogger.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		appLogger.Error("Server forced to shutdown", zap.Error(err))
	}
	appLogger.Info("Server exited gracefully")
}
