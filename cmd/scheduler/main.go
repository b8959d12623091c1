package main

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/hibiken/asynq"
	"github.com/whatifmusic/beatwave/internal/repositories"
	"github.com/whatifmusic/beatwave/internal/tasks"
	"github.com/whatifmusic/beatwave/libs/config"
	"github.com/whatifmusic/beatwave/libs/logger"
	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v\n", err)
	}

	// Initialize logger
	appLogger, err := logger.New(cfg.Logging.Level)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v\n", err)
	}
	defer appLogger.Sync()

	appLogger.Info("Starting BeatWave Scheduler")

	// Connect to database
	db, err := sql.Open("mysql", cfg.DSN())
	if err != nil {
		appLogger.Fatal("Failed to open database", zap.Error(err))
	}
	defer db.Close()
	db.SetMaxOpenConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)
	if err := db.Ping(); err != nil {
		appLogger.Fatal("Failed to connect to database", zap.Error(err))
	}

	// Create Asynq client
	asynqClient := asynq.NewClient(asynq.RedisClientOpt{
		Addr:     cfg.Redis.Addr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer asynqClient.Close()

	scheduler := NewScheduler(
		tasks.NewMailQueue(asynqClient, appLogger),
		repositories.NewUserTokenRepository(db),
		cfg.JWT.RefreshTokenExpiry,
		appLogger,
	)
	if err := scheduler.Register(cfg.Schedule.DigestCron, cfg.Schedule.TokenCleanupCron); err != nil {
		appLogger.Fatal("Failed to register jobs", zap.Error(fmt.Errorf("check DIGEST_CRON and TOKEN_CLEANUP_CRON: %w", err)))
	}
	scheduler.Start()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down scheduler...")
	scheduler.Stop()
	appLogger.Info("Scheduler exited")
}
