// The worker drains the observation queue into the canonical store. It is
// the preferred deployment for the consumer: isolated from the API process
// and scaled independently. Multiple workers may run against the same queue;
// the store's (name, source) unique constraint resolves insert races.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/chaniweb/backend/config"
	"github.com/chaniweb/backend/internal/domain"
	"github.com/chaniweb/backend/internal/infrastructure/cache"
	"github.com/chaniweb/backend/internal/infrastructure/postgres"
	"github.com/chaniweb/backend/internal/infrastructure/queue"
	"github.com/chaniweb/backend/internal/usecase"
)

func main() {
	// Configure logging
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	if cfg.Redis.URL == "" {
		log.Fatal().Msg("worker requires a Redis URL (set CHANIWEB_REDIS_URL)")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	opt, err := redis.ParseURL(cfg.Redis.URL)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid Redis URL")
	}
	redisClient := redis.NewClient(opt)
	defer redisClient.Close()

	var cacheRepo domain.CacheRepository
	switch cfg.Cache.Type {
	case "redis":
		cacheRepo = cache.NewRedisCache(redisClient)
	default:
		// Per-process gate state; fine for a single worker, use Redis
		// when running several.
		cacheRepo = cache.NewMemoryCache()
	}

	store, err := postgres.New(ctx, cfg.Database.URL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to postgres")
	}
	defer store.Close()

	if err := store.EnsureSchema(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to ensure schema")
	}

	workQueue := queue.NewRedisQueue(redisClient, cfg.Consumer.Queue)
	var deadLetter domain.Queue
	if cfg.Consumer.DeadLetter {
		deadLetter = queue.NewRedisQueue(redisClient, cfg.Consumer.DeadLetterQueue())
	}

	gate := usecase.NewGate(cacheRepo, usecase.GateConfig{
		TTL:      cfg.Gate.TTL,
		FailOpen: cfg.Gate.FailOpen,
	}, log.Logger)
	reconciler := usecase.NewReconciler(store, cacheRepo, log.Logger)
	consumer := usecase.NewConsumer(workQueue, deadLetter, gate, reconciler, usecase.ConsumerConfig{
		PopTimeout: cfg.Consumer.PopTimeout,
		Backoff:    cfg.Consumer.Backoff,
	}, log.Logger)

	log.Info().Str("queue", cfg.Consumer.Queue).Msg("worker starting")
	consumer.Run(ctx)
	log.Info().Msg("worker stopped")
}
