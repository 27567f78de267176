package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/Pesokrava/plant_store/internal/config"
	"github.com/Pesokrava/plant_store/internal/delivery/events"
	"github.com/Pesokrava/plant_store/internal/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	appLogger := logger.New(cfg.Env).With("service", "notifier")
	appLogger.Info("Starting notifier service...")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	consumer, err := events.NewConsumer(cfg, "plant-store-notifier", appLogger)
	if err != nil {
		appLogger.Fatal("Failed to create NATS consumer", err)
	}
	defer consumer.Close()

	if err := consumer.Streams().EnsureAll(events.Topology()); err != nil {
		appLogger.Fatal("Failed to initialize JetStream streams", err)
	}

	handle := events.LoggingHandler(appLogger)

	var wg sync.WaitGroup
	for _, spec := range []events.ConsumerSpec{events.NotifierReviewsConsumer, events.NotifierOrdersConsumer} {
		wg.Add(1)
		go func(spec events.ConsumerSpec) {
			defer wg.Done()
			if err := consumer.Consume(ctx, spec, handle); err != nil {
				appLogger.Errorf(err, "Consumer %s stopped", spec.Durable)
				stop()
			}
		}(spec)
	}

	appLogger.Info("Notifier service is running. Press Ctrl+C to exit.")

	<-ctx.Done()
	appLogger.Info("Shutting down notifier service...")
	wg.Wait()
	appLogger.Info("Notifier service stopped")
}
