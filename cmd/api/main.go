package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	_ "github.com/go-sql-driver/mysql"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/mysql"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/hibiken/asynq"
	_ "github.com/whatifmusic/beatwave/docs"
	"github.com/whatifmusic/beatwave/internal/cache"
	"github.com/whatifmusic/beatwave/internal/handlers"
	"github.com/whatifmusic/beatwave/internal/repositories"
	"github.com/whatifmusic/beatwave/internal/services"
	"github.com/whatifmusic/beatwave/internal/storage"
	"github.com/whatifmusic/beatwave/internal/tasks"
	"github.com/whatifmusic/beatwave/libs/auth/middleware"
	"github.com/whatifmusic/beatwave/libs/auth/roles"
	"github.com/whatifmusic/beatwave/libs/auth/service"
	"github.com/whatifmusic/beatwave/libs/config"
	"github.com/whatifmusic/beatwave/libs/logger"
	loggerMiddleware "github.com/whatifmusic/beatwave/libs/logger/middleware"
	sharedMiddleware "github.com/whatifmusic/beatwave/libs/middlewares"
	httpSwagger "github.com/swaggo/http-swagger"
	"go.uber.org/zap"
)

const (
	maxRequestSize = 10 * 1024 * 1024  // 10MB
	maxUploadSize  = 200 * 1024 * 1024 // 200MB
)

// @title BeatWave API
// @version 1.0
// @description Catalog, download gate and dashboard API of What If Music?

// @contact.name API Support
// @contact.email support@whatifmusic.com

// @host localhost:8080
// @BasePath /api/v1
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token. Browsers use the access_token cookie instead.
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

	appLogger.Info("Starting BeatWave API")

	// Connect to database
	db, err := connectDB(cfg.DSN())
	if err != nil {
		appLogger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	// Run migrations
	if err := runMigrations(db); err != nil {
		appLogger.Fatal("Failed to run migrations", zap.Error(err))
	}

	// Connect to Redis (gate sessions)
	rdb, err := cache.Connect(context.Background(), cfg.Redis)
	if err != nil {
		appLogger.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer rdb.Close()

	// Task queue client (newsletter mails)
	asynqClient := asynq.NewClient(asynq.RedisClientOpt{
		Addr:     cfg.Redis.Addr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer asynqClient.Close()
	mailQueue := tasks.NewMailQueue(asynqClient, appLogger)

	// Initialize token generators
	tokenGenerator := service.NewTokenGenerator(
		cfg.JWT.Secret,
		cfg.JWT.AccessTokenExpiry,
		cfg.JWT.RefreshTokenExpiry,
	)
	objectSigner := service.NewObjectSigner(cfg.JWT.Secret)

	// Initialize repositories
	contentRepo := repositories.NewContentRepository(db, appLogger)
	downloadRepo := repositories.NewDownloadRepository(db, appLogger)
	subscriberRepo := repositories.NewSubscriberRepository(db)
	userRepo := repositories.NewUserRepository(db, appLogger)
	userTokenRepo := repositories.NewUserTokenRepository(db)
	profileRepo := repositories.NewProfileRepository(db)
	statsRepo := repositories.NewStatsRepository(db)
	objectStorage := storage.NewLocalStorage(cfg.Storage.BasePath)
	gateStore := cache.NewGateSessionStore(rdb)

	// Initialize services
	catalogService := services.NewCatalogService(contentRepo, appLogger)
	contentService := services.NewContentService(contentRepo, objectStorage, appLogger)
	storageService := services.NewStorageService(objectStorage, objectSigner, cfg.Server.PublicBaseURL, cfg.Storage.SignedURLTTL, appLogger)
	downloadService := services.NewDownloadService(downloadRepo, subscriberRepo, mailQueue, appLogger)
	gateService := services.NewGateService(gateStore, contentRepo, downloadService, storageService, cfg.Gate.SessionTTL, appLogger)
	authService := services.NewAuthService(userRepo, userTokenRepo, profileRepo, tokenGenerator, appLogger)
	profileService := services.NewProfileService(profileRepo, appLogger)
	adminService := services.NewAdminService(userRepo, profileRepo, appLogger)
	seedService := services.NewSeedService(contentRepo, appLogger)
	statsService := services.NewStatsService(statsRepo, appLogger)

	// Initialize auth middleware
	authMiddleware := middleware.AuthMiddleware(tokenGenerator)
	adminGuard := middleware.RoleMiddleware(tokenGenerator, profileRepo, appLogger, roles.RoleAdmin)
	staffGuard := middleware.RoleMiddleware(tokenGenerator, profileRepo, appLogger, roles.Staff...)

	// Initialize handlers
	catalogHandler := handlers.NewCatalogHandler(catalogService, appLogger)
	gateHandler := handlers.NewGateHandler(gateService, appLogger)
	authHandler := handlers.NewAuthHandler(authService, authMiddleware, cfg.JWT.AccessTokenExpiry, cfg.JWT.RefreshTokenExpiry, appLogger)
	profileHandler := handlers.NewProfileHandler(profileService, authMiddleware, appLogger)
	adminHandler := handlers.NewAdminHandler(contentService, statsService, storageService, staffGuard, appLogger)
	storageHandler := handlers.NewStorageHandler(storageService, appLogger)
	newsletterHandler := handlers.NewNewsletterHandler(downloadService, appLogger)
	functionsHandler := handlers.NewFunctionsHandler(
		adminService,
		storageService,
		downloadService,
		seedService,
		handlers.FunctionGuards{Admin: adminGuard, Staff: staffGuard},
		appLogger,
	)

	// Setup router
	r := chi.NewRouter()

	// Apply middleware
	r.Use(sharedMiddleware.RequestIDMiddleware)
	r.Use(loggerMiddleware.LoggerMiddleware(appLogger))
	r.Use(sharedMiddleware.RecoveryMiddleware(appLogger))
	r.Use(sharedMiddleware.CORSMiddleware(cfg.CORS.AllowedOrigins))
	r.Use(httprate.LimitByIP(100, time.Minute))
	r.Use(sharedMiddleware.RequestSizeLimitMiddleware(maxRequestSize, map[string]int64{
		"/api/v1/admin/storage": maxUploadSize,
	}))

	// Swagger documentation
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL(cfg.Server.PublicBaseURL+"/swagger/doc.json"),
	))

	// Scope router to /api/v1
	r.Route("/api/v1", func(r chi.Router) {
		authHandler.RegisterRoutes(r)
		profileHandler.RegisterRoutes(r)
		gateHandler.RegisterRoutes(r)
		newsletterHandler.RegisterRoutes(r)
		adminHandler.RegisterRoutes(r)
		storageHandler.RegisterRoutes(r)
		// Catalog last: its /{type}/{id} route is the most generic
		catalogHandler.RegisterRoutes(r)
	})

	// Role-gated functions
	r.Route("/functions/v1", functionsHandler.RegisterRoutes)

	// Built SPA with the dashboard guard
	if cfg.StaticDir != "" {
		dashboardGuard := middleware.RedirectGuard(tokenGenerator, profileRepo, appLogger, "/auth", "/", roles.Staff...)
		handlers.NewSPAHandler(cfg.StaticDir, dashboardGuard, appLogger).RegisterRoutes(r)
	}

	// Start server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		appLogger.Info("Server starting", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server...")

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		appLogger.Error("Server forced to shutdown", zap.Error(err))
	}

	appLogger.Info("Server exited")
}

// connectDB connects to the database
func connectDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

// runMigrations runs database migrations
func runMigrations(db *sql.DB) error {
	driver, err := mysql.WithInstance(db, &mysql.Config{
		MigrationsTable: "beatwave_schema_migrations",
	})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	// Get the working directory or use migrations folder relative to the binary
	migrationPath := "file://migrations"
	if _, err := os.Stat("migrations"); os.IsNotExist(err) {
		// Try the repository root if running from cmd/api
		if _, err := os.Stat("../../migrations"); err == nil {
			migrationPath = "file://../../migrations"
		}
	}

	m, err := migrate.NewWithDatabaseInstance(
		migrationPath,
		"mysql",
		driver,
	)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}
