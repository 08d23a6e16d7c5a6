package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/autostack/gateway/internal/api"
	"github.com/autostack/gateway/internal/api/handlers"
	"github.com/autostack/gateway/internal/downstream"
	"github.com/autostack/gateway/internal/repository"
	"github.com/autostack/gateway/internal/services"
	"github.com/autostack/gateway/internal/storage"
	"github.com/autostack/gateway/pkg/config"
	"github.com/autostack/gateway/pkg/database"
	"github.com/autostack/gateway/pkg/logger"
)

const devJWTSecret = "change-me-in-production-please"

func main() {
	// Load configuration
	cfg := config.MustLoad()

	// Initialize logger
	log, err := logger.Init(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	log.Info("Starting AutoStack gateway",
		zap.String("env", cfg.AppEnv),
		zap.String("addr", cfg.HTTPAddr),
		zap.String("database_driver", cfg.DatabaseDriver),
		zap.String("storage", cfg.StorageType),
	)

	// Connect to database
	ctx := context.Background()
	db, err := database.Open(ctx, cfg)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	if err := database.Migrate(db); err != nil {
		log.Fatal("Failed to migrate database", zap.Error(err))
	}
	log.Info("Database connected successfully")

	store, err := storage.NewFromConfig(ctx, cfg)
	if err != nil {
		log.Fatal("Failed to initialize file storage", zap.Error(err))
	}

	jwtSecret := []byte(cfg.JWTSecret)
	if len(jwtSecret) == 0 {
		log.Warn("JWT_SECRET not set, using default (INSECURE for production)")
		jwtSecret = []byte(devJWTSecret)
	}
	if cfg.CallbackSecret == "" {
		log.Warn("CALLBACK_SECRET not set, callback routes are disabled")
	}

	router := api.NewRouter(buildDependencies(cfg, db, store, jwtSecret))

	// Create HTTP server
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      cfg.DownstreamTimeout + 30*time.Second,
		IdleTimeout:       90 * time.Second,
	}

	// Start server in goroutine
	errCh := make(chan error, 1)
	go func() {
		log.Info("HTTP server starting", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info("shutdown signal received", zap.String("signal", sig.String()))
	case err := <-errCh:
		log.Error("server error", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown error", zap.Error(err))
	} else {
		log.Info("server exited gracefully")
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

func buildDependencies(cfg *config.Config, db *gorm.DB, store storage.FileStore, jwtSecret []byte) api.Dependencies {
	// Initialize repositories
	userRepo := repository.NewUserRepository(db)
	projectRepo := repository.NewProjectRepository(db)
	analysisRepo := repository.NewAnalysisRepository(db)
	templateRepo := repository.NewTemplateRepository(db)
	deploymentRepo := repository.NewDeploymentRepository(db)
	usageRepo := repository.NewUsageRepository(db)

	// Downstream clients
	analysisClient := downstream.NewAnalysisClient(cfg.CodeAnalysisURL, cfg.DownstreamTimeout)
	generationClient := downstream.NewGenerationClient(cfg.InfraGenerationURL, cfg.DownstreamTimeout)
	deploymentClient := downstream.NewDeploymentClient(cfg.DeploymentURL, cfg.DownstreamTimeout)

	// Services
	limits := services.UploadLimits{
		MaxFiles:      cfg.MaxUploadFiles,
		MaxFileBytes:  cfg.MaxUploadFileBytes,
		MaxTotalBytes: cfg.MaxUploadTotalBytes,
	}
	authSvc := services.NewAuthService(userRepo, jwtSecret, cfg.JWTTTL)
	usageSvc := services.NewUsageService(usageRepo)
	projectSvc := services.NewProjectService(projectRepo, analysisRepo, store, usageSvc, limits)
	analysisSvc := services.NewAnalysisService(projectRepo, analysisRepo, store, analysisClient, usageSvc)
	templateSvc := services.NewTemplateService(projectRepo, analysisRepo, templateRepo, generationClient, usageSvc)
	deploymentSvc := services.NewDeploymentService(projectRepo, templateRepo, deploymentRepo, deploymentClient, usageSvc)
	callbackSvc := services.NewCallbackService(analysisRepo, deploymentRepo, analysisClient, deploymentClient)

	return api.Dependencies{
		Auth:               authSvc,
		APIKeyHeader:       cfg.APIKeyHeader,
		CallbackSecret:     cfg.CallbackSecret,
		CORSOrigins:        cfg.CORSAllowedOrigins,
		AuthHandler:        handlers.NewAuthHandler(authSvc, usageSvc, cfg.JWTTTL),
		ProjectsHandler:    handlers.NewProjectsHandler(projectSvc, cfg.MaxUploadTotalBytes),
		AnalysesHandler:    handlers.NewAnalysesHandler(analysisSvc, cfg.MaxUploadTotalBytes),
		TemplatesHandler:   handlers.NewTemplatesHandler(templateSvc),
		DeploymentsHandler: handlers.NewDeploymentsHandler(deploymentSvc),
		CallbacksHandler:   handlers.NewCallbacksHandler(callbackSvc),
		HealthHandler: handlers.NewHealthHandler(map[string]handlers.Pinger{
			"database": func(ctx context.Context) error { return database.Ping(ctx, db) },
		}),
	}
}
