package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/autostack/gateway/internal/downstream"
	"github.com/autostack/gateway/internal/queue/tasks"
	"github.com/autostack/gateway/internal/repository"
	"github.com/autostack/gateway/internal/services"
	"github.com/autostack/gateway/pkg/config"
	"github.com/autostack/gateway/pkg/database"
	"github.com/autostack/gateway/pkg/logger"
)

func main() {
	cfg := config.MustLoad()
	log, err := logger.Init(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       0,
	})
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		log.Fatal("redis connection failed", zap.Error(err))
	}
	_ = rdb.Close()

	redisOpt := asynq.RedisClientOpt{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       0,
	}
	srv := asynq.NewServer(redisOpt, asynq.Config{
		Concurrency: cfg.AsynqConcurrency,
	})

	// Initialize DB and repositories for task handlers
	ctx := context.Background()
	db, err := database.Open(ctx, cfg)
	if err != nil {
		log.Fatal("failed to open database", zap.Error(err))
	}

	analysisRepo := repository.NewAnalysisRepository(db)
	deploymentRepo := repository.NewDeploymentRepository(db)
	callbackSvc := services.NewCallbackService(
		analysisRepo,
		deploymentRepo,
		downstream.NewAnalysisClient(cfg.CodeAnalysisURL, cfg.DownstreamTimeout),
		downstream.NewDeploymentClient(cfg.DeploymentURL, cfg.DownstreamTimeout),
	)

	mux := asynq.NewServeMux()
	tasks.NewReconcileTaskHandler(callbackSvc).Register(mux)

	scheduler := asynq.NewScheduler(redisOpt, &asynq.SchedulerOpts{})
	schedule := fmt.Sprintf("@every %s", cfg.ReconcileInterval)
	for _, taskType := range []string{tasks.TypeDeploymentReconcile, tasks.TypeAnalysisReconcile} {
		task, err := tasks.NewReconcileTask(taskType, cfg.ReconcileMinAge, tasks.DefaultBatchSize)
		if err != nil {
			log.Fatal("build reconcile task failed", zap.String("type", taskType), zap.Error(err))
		}
		entryID, err := scheduler.Register(schedule, task)
		if err != nil {
			log.Fatal("register reconcile task failed", zap.String("type", taskType), zap.Error(err))
		}
		log.Info("reconcile task scheduled", zap.String("type", taskType), zap.String("schedule", schedule), zap.String("entry_id", entryID))
	}

	errCh := make(chan error, 2)
	go func() {
		logger.L().Info("asynq worker starting", zap.Int("concurrency", cfg.AsynqConcurrency))
		if err := srv.Run(mux); err != nil {
			errCh <- err
		}
	}()
	go func() {
		if err := scheduler.Run(); err != nil {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.L().Info("shutdown signal received", zap.String("signal", sig.String()))
	case err := <-errCh:
		logger.L().Error("worker stopped with error", zap.Error(err))
	}

	scheduler.Shutdown()
	srv.Shutdown()
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
