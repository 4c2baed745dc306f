package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"realtyhub/internal/cache"
	"realtyhub/internal/config"
	"realtyhub/internal/database"
	"realtyhub/internal/handlers"
	"realtyhub/internal/jobs"
	"realtyhub/internal/log"
	"realtyhub/internal/metrics"
	"realtyhub/internal/queue"
	"realtyhub/internal/ratelimit"
	"realtyhub/internal/rbac"
	"realtyhub/internal/repository"
	"realtyhub/internal/repository/memory"
	"realtyhub/internal/security"
	"realtyhub/internal/server"
	"realtyhub/internal/service"
	"realtyhub/internal/storage"
)

const denylistSize = 100000

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := log.New(cfg.Environment, cfg.Logging.Level)
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}
	if err := rbac.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid permission catalog")
	}

	ctx := context.Background()

	var (
		stores      service.Stores
		dbPool      *pgxpool.Pool
		checks      []handlers.HealthCheck
		handlerOpts []handlers.Option
	)
	switch cfg.Database.Driver {
	case "postgres":
		dbPool, err = database.NewPostgresPool(ctx, cfg.Postgres)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect postgres")
		}
		stores = service.PostgresStores(repository.New(dbPool, cfg.Postgres.QueryTimeout))
		checks = append(checks, handlers.HealthCheck{Name: "database", Ping: dbPool.Ping})
	default:
		logger.Warn().Msg("using in-memory database, data is lost on restart")
		stores = service.MemoryStores(memory.New())
	}

	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient, err = cache.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect redis")
		}
		checks = append(checks, handlers.HealthCheck{Name: "redis", Ping: func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		}})
	}

	var objects service.ObjectStore
	if cfg.Storage.Enabled {
		objectStore, err := storage.NewObjectStore(cfg.Storage)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to init object store")
		}
		if err := objectStore.EnsureBucket(ctx); err != nil {
			logger.Warn().Err(err).Msg("ensure bucket failed")
		}
		objects = objectStore
		checks = append(checks, handlers.HealthCheck{Name: "storage", Ping: objectStore.Ping})
	}

	// Background tasks need the redis stream.
	var (
		tasks    service.Enqueuer
		producer *queue.Producer
	)
	if redisClient != nil {
		producer = queue.NewProducer(redisClient, cfg.Worker.Stream)
		tasks = producer
	}

	tokens, err := security.NewTokenService(cfg.Security.JWTSecret, cfg.Security.TokenTTL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to init token service")
	}

	authOpts := []service.AuthOption{}
	if cfg.Security.Revocation {
		if redisClient != nil {
			authOpts = append(authOpts, service.WithDenylist(cache.NewRedisDenylist(redisClient)))
		} else {
			authOpts = append(authOpts, service.WithDenylist(cache.NewMemoryDenylist(denylistSize, cfg.Security.TokenTTL)))
		}
	}
	if cfg.LoginThrottle.Rate > 0 {
		throttle, err := ratelimit.NewKeyedThrottle(cfg.LoginThrottle.Rate, cfg.LoginThrottle.Burst, cfg.LoginThrottle.MaxKeys)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to init login throttle")
		}
		authOpts = append(authOpts, service.WithLoginThrottle(throttle))
	}

	svc := handlers.Services{
		Auth:         service.NewAuthService(stores.Users, stores.Grants, tokens, logger, authOpts...),
		Users:        service.NewUserService(stores.Users, stores.Grants, logger),
		Properties:   service.NewPropertyService(stores.Properties, stores.Agents, logger),
		Agents:       service.NewAgentService(stores.Agents, logger),
		Contacts:     service.NewContactService(stores.Contacts, stores.Properties, stores.Agents, tasks, logger),
		Testimonials: service.NewTestimonialService(stores.Testimonials, logger),
		Analytics:    service.NewAnalyticsService(stores.Analytics, stores.Views, stores.Properties, logger),
		Uploads:      service.NewUploadService(stores.Uploads, objects, tasks, cfg.Storage.MaxUploadBytes, logger),
	}

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
		handlerOpts = append(handlerOpts, handlers.WithMetrics(m))
	}

	var schedOpts []jobs.Option
	if cfg.RateLimit.Enabled {
		var store ratelimit.Store
		if cfg.RateLimit.Backend == "redis" {
			store = ratelimit.NewRedisStore(redisClient)
		} else {
			memStore := ratelimit.NewMemoryStore()
			schedOpts = append(schedOpts, jobs.WithSweep(memStore, cfg.RateLimit.SweepInterval))
			store = memStore
		}
		handlerOpts = append(handlerOpts, handlers.WithRateLimit(ratelimit.NewLimiter(store, cfg.RateLimit.Window, cfg.RateLimit.Limit)))
	}
	if producer != nil {
		schedOpts = append(schedOpts, jobs.WithCleanup(producer))
	}

	handlerOpts = append(handlerOpts, handlers.WithEnvironment(cfg.Environment))
	for _, check := range checks {
		handlerOpts = append(handlerOpts, handlers.WithHealthCheck(check))
	}

	handlerSet := handlers.NewHandlerSet(logger, svc, handlerOpts...)
	httpServer := server.NewHTTPServer(cfg, logger, server.NewEngine(cfg, logger, handlerSet, m))

	scheduler := jobs.NewScheduler(logger, schedOpts...)
	if err := scheduler.Start(); err != nil {
		logger.Error().Err(err).Msg("scheduler start failed")
	}

	go func() {
		if err := httpServer.Start(); err != nil {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	waitForShutdown(logger, httpServer, scheduler, dbPool, redisClient)
}

func waitForShutdown(logger zerolog.Logger, srv *server.HTTPServer, scheduler *jobs.Scheduler, db *pgxpool.Pool, redisClient *redis.Client) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()
	logger.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}

	scheduler.Stop(shutdownCtx)

	if db != nil {
		db.Close()
	}
	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			logger.Error().Err(err).Msg("redis close error")
		}
	}

	logger.Info().Msg("server exited cleanly")
}
