package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/labstack/echo/v4"
	gommonlog "github.com/labstack/gommon/log"
	"gorm.io/gorm/logger"

	"digital_legacy_echo/internal/config"
	"digital_legacy_echo/internal/services"
	"digital_legacy_echo/internal/tasks"
)

const webhookRetentionDays = 90

func main() {
	cfg := config.Load()

	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL not set")
	}
	db, err := services.InitDB(cfg.DatabaseURL, logger.Warn)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	if err := services.AutoMigrate(db); err != nil {
		log.Fatalf("Failed to run database migrations: %v", err)
	}

	appLogger := echo.New().Logger
	appLogger.SetPrefix("worker")
	appLogger.SetLevel(gommonlog.INFO)

	mailer := services.NewEmailService(cfg)
	if !mailer.Configured() {
		appLogger.Warn("SMTP not configured, order confirmations will be skipped")
	}

	registry := tasks.NewRegistry()
	tasks.DefineTasks(registry, tasks.NewOrderConfirmationTask(mailer, appLogger))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan
		appLogger.Info("Shutting down worker...")
		cancel()
	}()

	if err := tasks.PruneWebhookEventsTask.EnsureScheduled(ctx, db, webhookRetentionDays); err != nil {
		appLogger.Errorf("Failed to schedule webhook event pruning: %v", err)
	}

	appLogger.Infof("Worker started, checking for due tasks every %s", cfg.WorkerInterval)
	tasks.NewRunner(db, registry, appLogger).Run(ctx, cfg.WorkerInterval)
	appLogger.Info("Worker stopped")
}
