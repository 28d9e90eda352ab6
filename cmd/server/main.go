package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/chaniweb/backend/config"
	httpDelivery "github.com/chaniweb/backend/internal/delivery/http"
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

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	log.Info().
		Str("environment", cfg.Server.Environment).
		Str("port", cfg.Server.Port).
		Str("cache_type", cfg.Cache.Type).
		Bool("consumer_enabled", cfg.Consumer.Enabled).
		Msg("starting chaniweb backend")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Shared Redis client (queue + cache) when configured
	var redisClient *redis.Client
	if cfg.Redis.URL != "" {
		opt, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			log.Fatal().Err(err).Msg("invalid Redis URL")
		}
		redisClient = redis.NewClient(opt)
		defer redisClient.Close()
	}

	// Cache backend for the gate and the read cache
	var cacheRepo domain.CacheRepository
	switch cfg.Cache.Type {
	case "redis":
		cacheRepo = cache.NewRedisCache(redisClient)
	default:
		cacheRepo = cache.NewMemoryCache()
	}

	// Persistence
	store, err := postgres.New(ctx, cfg.Database.URL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to postgres")
	}
	defer store.Close()

	if err := store.EnsureSchema(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to ensure schema")
	}

	// Work queue: Redis when available, in-memory otherwise (single-node
	// development only; pair it with consumer.enabled=true).
	var workQueue, deadLetter domain.Queue
	if redisClient != nil {
		workQueue = queue.NewRedisQueue(redisClient, cfg.Consumer.Queue)
		if cfg.Consumer.DeadLetter {
			deadLetter = queue.NewRedisQueue(redisClient, cfg.Consumer.DeadLetterQueue())
		}
	} else {
		workQueue = queue.NewMemoryQueue(0)
		if cfg.Consumer.DeadLetter {
			deadLetter = queue.NewMemoryQueue(0)
		}
	}

	// Usecase layer
	producer := usecase.NewProducer(workQueue, log.Logger)
	listing := usecase.NewListingService(store, cacheRepo, usecase.ListingConfig{
		CacheTTL: cfg.Cache.ListingTTL,
	}, log.Logger)

	// Optional in-process consumer; the separate worker binary is the
	// preferred deployment.
	if cfg.Consumer.Enabled {
		gate := usecase.NewGate(cacheRepo, usecase.GateConfig{
			TTL:      cfg.Gate.TTL,
			FailOpen: cfg.Gate.FailOpen,
		}, log.Logger)
		reconciler := usecase.NewReconciler(store, cacheRepo, log.Logger)
		consumer := usecase.NewConsumer(workQueue, deadLetter, gate, reconciler, usecase.ConsumerConfig{
			PopTimeout: cfg.Consumer.PopTimeout,
			Backoff:    cfg.Consumer.Backoff,
		}, log.Logger)
		go consumer.Run(ctx)
	}

	// HTTP delivery
	handler := httpDelivery.NewHandler(producer, listing, cacheRepo, store)
	router := httpDelivery.SetupRouter(cfg, handler)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server shutdown failed")
	}
	log.Info().Msg("server stopped")
}
