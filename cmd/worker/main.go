package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"realtyhub/internal/cache"
	"realtyhub/internal/config"
	"realtyhub/internal/database"
	"realtyhub/internal/log"
	"realtyhub/internal/metrics"
	"realtyhub/internal/queue"
	"realtyhub/internal/repository"
	"realtyhub/internal/storage"
	"realtyhub/internal/tasks"
)

const metricsAddr = ":9091"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := log.New(cfg.Environment, cfg.Logging.Level).With().Str("component", "worker").Logger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Database.Driver != "postgres" || !cfg.Storage.Enabled {
		logger.Fatal().Msg("worker needs database.driver postgres and storage.enabled")
	}

	client, err := cache.NewRedisClient(ctx, cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis connection failed")
	}
	defer client.Close()

	pool, err := database.NewPostgresPool(ctx, cfg.Postgres)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect postgres")
	}
	defer pool.Close()

	objects, err := storage.NewObjectStore(cfg.Storage)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to init object store")
	}

	repos := repository.New(pool, cfg.Postgres.QueryTimeout)

	var opts []tasks.Option
	if cfg.Metrics.Enabled {
		m := metrics.New()
		opts = append(opts, tasks.WithMetrics(m))
		mux := http.NewServeMux()
		mux.Handle("/metrics", m.Handler())
		srv := &http.Server{Addr: metricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error().Err(err).Msg("metrics server failed")
			}
		}()
		defer srv.Close()
	}

	processor := tasks.NewProcessor(repos.Uploads, objects, cfg.Worker.CleanupAfter, logger, opts...)
	consumer := queue.NewConsumer(client, queue.ConsumerConfig{
		Stream:        cfg.Worker.Stream,
		Group:         cfg.Worker.Group,
		Name:          cfg.Worker.Consumer,
		ClaimInterval: cfg.Worker.ClaimInterval,
		MaxDeliveries: cfg.Worker.MaxDeliveries,
	}, logger, processor)

	logger.Info().Str("stream", cfg.Worker.Stream).Msg("worker started")
	if err := consumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error().Err(err).Msg("consumer stopped unexpectedly")
	}
	logger.Info().Msg("worker exited")
}
