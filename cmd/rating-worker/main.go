package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Pesokrava/plant_store/internal/config"
	"github.com/Pesokrava/plant_store/internal/delivery/events"
	"github.com/Pesokrava/plant_store/internal/pkg/cache"
	"github.com/Pesokrava/plant_store/internal/pkg/database"
	"github.com/Pesokrava/plant_store/internal/pkg/logger"
	cacheRepo "github.com/Pesokrava/plant_store/internal/repository/cache"
	"github.com/Pesokrava/plant_store/internal/repository/postgres"
	"github.com/Pesokrava/plant_store/internal/usecase/rating"
	"github.com/Pesokrava/plant_store/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	appLogger := logger.New(cfg.Env).With("service", "rating-worker")
	appLogger.Info("Starting rating worker...")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	appLogger.Info("Connecting to PostgreSQL...")
	db, err := database.WaitForDB(ctx, cfg, 10, 2*time.Second, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to connect to database", err)
	}
	defer db.Close()
	appLogger.Info("Connected to database")

	redisClient, err := cache.WaitForRedis(ctx, cfg, 10, 2*time.Second, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to connect to Redis", err)
	}
	defer redisClient.Close()

	redisCache := cacheRepo.NewRedisCache(redisClient, cfg.Cache.ProductRatingTTL, cfg.Cache.ReviewsListTTL)
	aggregator := rating.NewAggregator(postgres.NewRatingRepository(db), redisCache, appLogger)
	ratingWorker := worker.NewRatingWorker(aggregator, appLogger)

	appLogger.Info("Connecting to NATS JetStream...")
	consumer, err := events.NewConsumer(cfg, "plant-store-rating-worker", appLogger)
	if err != nil {
		appLogger.Fatal("Failed to connect to NATS", err)
	}
	defer consumer.Close()

	if err := consumer.Streams().EnsureAll(events.Topology()); err != nil {
		appLogger.Fatal("Failed to initialize JetStream stream and consumer", err)
	}

	done := make(chan error, 1)
	go func() {
		done <- consumer.Consume(ctx, events.RatingWorkerConsumer, ratingWorker.HandleEvent)
	}()

	select {
	case <-ctx.Done():
		appLogger.Info("Received shutdown signal")
	case err := <-done:
		if err != nil {
			appLogger.Error("Consumer stopped", err)
		}
		stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := ratingWorker.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("Error during shutdown", err)
	}

	appLogger.Info("Rating worker stopped")
}
