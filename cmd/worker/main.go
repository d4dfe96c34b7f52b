package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/giraph/engine/pkg/config"
	"github.com/giraph/engine/pkg/database"
	"github.com/giraph/engine/pkg/logger"

	"github.com/giraph/engine/internal/extractor"
	"github.com/giraph/engine/internal/queue/tasks"
	"github.com/giraph/engine/internal/repository"
	"github.com/giraph/engine/internal/storage/blob"
)

func main() {
	cfg := config.MustLoad()
	log, err := logger.Init(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	if cfg.RedisAddr == "" {
		log.Fatal("REDIS_ADDR is required for the worker")
	}
	if cfg.ExtractorURL == "" {
		log.Fatal("EXTRACTOR_URL is required for the worker")
	}
	if !cfg.Blob.Enabled() {
		log.Fatal("blob store settings are required for the worker")
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       0,
	})
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		log.Fatal("redis connection failed", zap.Error(err))
	}
	_ = rdb.Close()

	srv := asynq.NewServer(
		asynq.RedisClientOpt{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       0,
		},
		asynq.Config{
			Concurrency: cfg.AsynqConcurrency,
		},
	)

	ctx := context.Background()
	db, err := database.Open(ctx, database.Options{
		Driver:  cfg.DBDriver,
		DSN:     cfg.DatabaseURL,
		Verbose: cfg.AppEnv == "development",
		Logger:  log,
	})
	if err != nil {
		log.Fatal("failed to open database", zap.Error(err))
	}

	blobs, err := blob.NewMinioStore(cfg.Blob)
	if err != nil {
		log.Fatal("failed to open blob store", zap.Error(err))
	}
	ex := extractor.NewHTTPExtractor(cfg.ExtractorURL, cfg.ExtractorTimeout)

	handler := tasks.NewSyllabusTaskHandler(ex, blobs, repository.NewDraftRepository(db))
	mux := asynq.NewServeMux()
	mux.HandleFunc(tasks.TypeSyllabusExtract, handler.HandleExtract)

	errCh := make(chan error, 1)
	go func() {
		log.Info("asynq worker starting", zap.Int("concurrency", cfg.AsynqConcurrency))
		if err := srv.Run(mux); err != nil {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info("shutdown signal received", zap.String("signal", sig.String()))
	case err := <-errCh:
		log.Error("worker stopped with error", zap.Error(err))
	}

	srv.Shutdown()
}
