package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/giraph/engine/internal/api"
	"github.com/giraph/engine/internal/api/handlers"
	"github.com/giraph/engine/internal/graph"
	"github.com/giraph/engine/internal/repository"
	"github.com/giraph/engine/internal/services"
	"github.com/giraph/engine/internal/storage/blob"
	"github.com/giraph/engine/pkg/config"
	"github.com/giraph/engine/pkg/database"
	"github.com/giraph/engine/pkg/logger"
)

func main() {
	// Load configuration
	cfg := config.MustLoad()

	// Initialize logger
	log, err := logger.Init(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	log.Info("starting outcomes graph engine",
		zap.String("env", cfg.AppEnv),
		zap.String("addr", cfg.HTTPAddr),
	)

	// Connect to database
	ctx := context.Background()
	db, err := database.Open(ctx, database.Options{
		Driver:  cfg.DBDriver,
		DSN:     cfg.DatabaseURL,
		Verbose: cfg.AppEnv == "development",
		Logger:  log,
	})
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}
	log.Info("database connected", zap.String("driver", cfg.DBDriver))

	// Repositories
	nodes := repository.NewNodeRepository(db)
	relations := repository.NewRelationRepository(db)
	courses, err := repository.NewCachedCourseDirectory(repository.NewCourseRepository(db), cfg.CourseCacheSize)
	if err != nil {
		log.Fatal("failed to build course cache", zap.Error(err))
	}

	checks := map[string]handlers.Pinger{
		"database": func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
	}

	// Syllabus staging needs both the blob store and the queue.
	var blobs blob.Store
	if cfg.Blob.Enabled() {
		store, err := blob.NewMinioStore(cfg.Blob)
		if err != nil {
			log.Fatal("failed to open blob store", zap.Error(err))
		}
		blobs = store
	} else {
		log.Warn("blob store not configured, syllabus drafts disabled")
	}
	var queue services.Enqueuer
	if cfg.RedisAddr != "" {
		client := asynq.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		defer client.Close()
		queue = client

		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		defer rdb.Close()
		checks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
	} else {
		log.Warn("REDIS_ADDR not set, syllabus drafts disabled")
	}

	// Services
	filter := graph.NewHeaderFilter(cfg.HeaderExactSkip, cfg.HeaderBlocklist)
	graphs := services.NewGraphService(db, nodes, relations, courses)
	scores := services.NewScoreService(db, nodes, relations,
		repository.NewContentRepository(db), repository.NewGradeRepository(db), courses, graphs, filter)
	syllabi := services.NewSyllabusService(db, nodes, relations, repository.NewDraftRepository(db), courses, blobs, queue)

	jwtSecret := []byte(cfg.JWTSecret)
	if len(jwtSecret) == 0 {
		log.Warn("JWT_SECRET not set, using default (INSECURE for production)")
		jwtSecret = []byte("change-me-in-production-please")
	}

	v := validator.New(validator.WithRequiredStructEnabled())
	router := api.NewRouter(api.Dependencies{
		HMACSecret:     jwtSecret,
		CORSOrigins:    cfg.CORSOrigins,
		RateLimitRPS:   cfg.RateLimitRPS,
		RateLimitBurst: cfg.RateLimitBurst,
		Health:         handlers.NewHealthHandler(checks),
		Graph:          handlers.NewGraphHandler(graphs, v),
		Scores:         handlers.NewScoresHandler(scores, filter, cfg.MaxUploadBytes, v),
		Syllabus:       handlers.NewSyllabusHandler(syllabi, v),
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       90 * time.Second,
	}

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
}
