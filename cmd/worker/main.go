// The worker consumes deferred attribution-correction tasks. It shares the
// correction service with the API process but runs no HTTP surface.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"attribution_backend/internal/attrstore"
	"attribution_backend/internal/audit"
	"attribution_backend/internal/correction"
	"attribution_backend/internal/events"
	"attribution_backend/internal/hubspot"
	"attribution_backend/internal/scheduler"
	"attribution_backend/platform/config"
	"attribution_backend/platform/logger"

	"github.com/redis/go-redis/v9"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting correction worker", "env", cfg.Env, "queue", cfg.AsynqQueueName)

	if cfg.RedisURL == "" {
		panic("REDIS_URL is required for the correction worker")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		panic("invalid REDIS_URL: " + err.Error())
	}
	rdb := redis.NewClient(opt)
	defer rdb.Close()

	eventBus := events.NewInMemoryBus(log)
	audit.NewModule(log).RegisterHandlers(eventBus)
	crm := hubspot.New(cfg, log)
	store := attrstore.NewRedisStore(rdb, cfg.AttributionTTL)
	correctionService := correction.NewService(crm, store, eventBus, log)

	worker, err := scheduler.NewWorker(cfg, correctionService, log)
	if err != nil {
		log.Error("failed to initialize worker", "error", err)
		panic("failed to initialize worker: " + err.Error())
	}

	log.Info("worker listening for tasks")
	worker.Run(ctx)
	log.Info("worker stopped")
}
