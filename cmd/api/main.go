package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"attribution_backend/internal/attrstore"
	"attribution_backend/internal/audit"
	"attribution_backend/internal/contacts"
	"attribution_backend/internal/correction"
	"attribution_backend/internal/events"
	apphttp "attribution_backend/internal/http"
	"attribution_backend/internal/http/router"
	"attribution_backend/internal/hubspot"
	"attribution_backend/internal/scheduler"
	"attribution_backend/internal/webhook"
	"attribution_backend/platform/config"
	"attribution_backend/platform/logger"
	"attribution_backend/platform/validator"

	"github.com/redis/go-redis/v9"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	// Initialize structured logger
	log := logger.New(cfg.Env)
	log.Info("starting server", "env", cfg.Env, "addr", cfg.HTTPAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ========================================================================
	// Infrastructure Layer
	// ========================================================================

	eventBus := events.NewInMemoryBus(log)
	val := validator.New()
	crm := hubspot.New(cfg, log)

	attrStore, health, closeRedis := initAttributionStore(cfg, log)
	if closeRedis != nil {
		defer closeRedis()
	}

	retryScheduler, closeScheduler := initCorrectionScheduler(cfg, log)
	if closeScheduler != nil {
		defer closeScheduler()
	}

	// ========================================================================
	// Domain Modules (Composition Root)
	// ========================================================================

	contactsModule := contacts.NewModule(crm, attrStore, eventBus, cfg, val, log)
	correctionModule := correction.NewModule(crm, attrStore, eventBus, val, log)
	webhookModule := webhook.NewModule(correctionModule.Service(), retryScheduler, cfg, eventBus, log)

	auditModule := audit.NewModule(log)
	auditModule.RegisterHandlers(eventBus)

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	app := &apphttp.App{
		Config:   cfg,
		Logger:   log,
		Health:   health,
		EventBus: eventBus,
		Modules: []apphttp.Module{
			contactsModule,
			correctionModule,
			webhookModule,
		},
	}

	engine := router.New(app)

	srvErr := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		srvErr <- engine.Run(cfg.HTTPAddr)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, gracefully shutting down")
	case err := <-srvErr:
		if err != nil {
			log.Error("server error", "error", err)
			panic("server error: " + err.Error())
		}
	}
}

// redisHealth adapts the Redis client to the router's readiness probe.
type redisHealth struct {
	rdb *redis.Client
}

func (h redisHealth) Ping(ctx context.Context) error {
	return h.rdb.Ping(ctx).Err()
}

func initAttributionStore(cfg *config.Config, log *logger.Logger) (attrstore.Store, apphttp.HealthChecker, func()) {
	if cfg.RedisURL == "" {
		log.Warn("REDIS_URL not configured; attribution snapshots are in-memory only")
		return attrstore.NewMemoryStore(cfg.AttributionTTL), nil, nil
	}

	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		log.Error("invalid REDIS_URL", "error", err)
		panic("invalid REDIS_URL: " + err.Error())
	}
	rdb := redis.NewClient(opt)

	store := attrstore.NewRedisStore(rdb, cfg.AttributionTTL)
	return store, redisHealth{rdb: rdb}, func() { _ = rdb.Close() }
}

func initCorrectionScheduler(cfg config.SchedulerConfig, log *logger.Logger) (scheduler.CorrectionScheduler, func()) {
	if cfg.GetRedisURL() == "" {
		log.Warn("REDIS_URL not configured; deferred corrections disabled")
		return nil, nil
	}

	retryClient, err := scheduler.NewClient(cfg)
	if err != nil {
		log.Error("failed to initialize correction scheduler client", "error", err)
		return nil, nil
	}

	return retryClient, func() {
		_ = retryClient.Close()
	}
}
