package main

import (
	"context"
	"log"

	"go.uber.org/zap"

	"quiz-pipeline/internal/config"
	"quiz-pipeline/internal/database"
	"quiz-pipeline/internal/logger"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if err := logger.Initialize(cfg.Logger); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	l := logger.Get()
	defer logger.Sync()

	ctx := context.Background()
	db, err := database.Open(ctx, cfg)
	if err != nil {
		l.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	if err := database.RunMigrations(ctx, db.DB, cfg.DB.Driver, l); err != nil {
		l.Fatal("Failed to run migrations", zap.Error(err))
	}
}
