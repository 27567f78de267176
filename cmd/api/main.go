package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/Pesokrava/plant_store/docs"
	"github.com/Pesokrava/plant_store/internal/config"
	"github.com/Pesokrava/plant_store/internal/delivery/events"
	httpDelivery "github.com/Pesokrava/plant_store/internal/delivery/http"
	"github.com/Pesokrava/plant_store/internal/delivery/http/handler"
	"github.com/Pesokrava/plant_store/internal/pkg/auth"
	"github.com/Pesokrava/plant_store/internal/pkg/cache"
	"github.com/Pesokrava/plant_store/internal/pkg/database"
	"github.com/Pesokrava/plant_store/internal/pkg/logger"
	"github.com/Pesokrava/plant_store/internal/pkg/telemetry"
	cacheRepo "github.com/Pesokrava/plant_store/internal/repository/cache"
	"github.com/Pesokrava/plant_store/internal/repository/postgres"
	"github.com/Pesokrava/plant_store/internal/usecase/cart"
	"github.com/Pesokrava/plant_store/internal/usecase/category"
	"github.com/Pesokrava/plant_store/internal/usecase/order"
	"github.com/Pesokrava/plant_store/internal/usecase/product"
	"github.com/Pesokrava/plant_store/internal/usecase/rating"
	"github.com/Pesokrava/plant_store/internal/usecase/review"
	"github.com/Pesokrava/plant_store/internal/usecase/user"
	"github.com/Pesokrava/plant_store/internal/usecase/wishlist"
)

const version = "1.0.0"

// @title Plant Store API
// @version 1.0
// @description Plant shop backend: catalog, orders with a status lifecycle, moderated reviews and product ratings.

// @contact.name API Support
// @contact.url http://github.com/Pesokrava/plant_store
// @contact.email support@example.com

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8080
// @BasePath /api/v1
// @schemes http https

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

// @tag.name Auth
// @tag.description Registration, login and profile

// @tag.name Products
// @tag.description Product catalog endpoints

// @tag.name Categories
// @tag.description Category tree endpoints

// @tag.name Orders
// @tag.description Order placement and lifecycle

// @tag.name Reviews
// @tag.description Review management endpoints

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	appLogger := logger.New(cfg.Env)
	logger.SetGlobalLogger(appLogger)
	appLogger.Info("Starting Plant Store API...")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracer, err := telemetry.InitTracer(ctx, cfg.Telemetry, version)
	if err != nil {
		appLogger.Fatal("Failed to initialize tracing", err)
	}

	appLogger.Info("Connecting to PostgreSQL...")
	db, err := database.WaitForDB(ctx, cfg, 10, 2*time.Second, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to connect to database", err)
	}
	defer db.Close()
	appLogger.Info("Connected to PostgreSQL successfully")

	if err := database.RunMigrations(db); err != nil {
		appLogger.Fatal("Failed to apply migrations", err)
	}

	appLogger.Info("Connecting to Redis...")
	redisClient, err := cache.WaitForRedis(ctx, cfg, 10, 2*time.Second, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to connect to Redis", err)
	}
	defer redisClient.Close()
	appLogger.Info("Connected to Redis successfully")

	healthChecks := map[string]handler.HealthCheck{
		"database": db.PingContext,
		"cache": func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		},
	}

	// Events are best effort; the API keeps serving without NATS
	var eventPublisher order.EventPublisher
	appLogger.Info("Connecting to NATS...")
	publisher, err := events.NewPublisher(cfg, appLogger)
	if err != nil {
		appLogger.Warnf("NATS unavailable, events will not be published: %v", err)
	} else {
		defer publisher.Close()
		eventPublisher = publisher
		healthChecks["events"] = publisher.Ping

		if streams, err := publisher.Streams(); err != nil {
			appLogger.Error("Failed to open JetStream manager", err)
		} else if err := streams.EnsureAll(events.Topology()); err != nil {
			appLogger.Error("Failed to provision JetStream streams", err)
		}
	}

	userRepo := postgres.NewUserRepository(db)
	productRepo := postgres.NewProductRepository(db)
	categoryRepo := postgres.NewCategoryRepository(db)
	orderRepo := postgres.NewOrderRepository(db)
	reviewRepo := postgres.NewReviewRepository(db)
	ratingRepo := postgres.NewRatingRepository(db)
	wishlistRepo := postgres.NewWishlistRepository(db)
	cartStore := cacheRepo.NewCartStore(redisClient, cfg.Cache.CartTTL)
	redisCache := cacheRepo.NewRedisCache(
		redisClient,
		cfg.Cache.ProductRatingTTL,
		cfg.Cache.ReviewsListTTL,
	)

	tokens := auth.NewTokenManager(cfg.Auth)
	aggregator := rating.NewAggregator(ratingRepo, redisCache, appLogger)

	userService := user.NewService(userRepo, tokens, cfg.Auth.BcryptCost, appLogger)
	productService := product.NewService(productRepo, reviewRepo, categoryRepo, redisCache, appLogger)
	categoryService := category.NewService(categoryRepo, appLogger)
	orderService := order.NewService(orderRepo, productRepo, eventPublisher, cfg.Orders, appLogger)
	reviewService := review.NewService(
		reviewRepo,
		productRepo,
		orderRepo,
		aggregator,
		redisCache,
		eventPublisher,
		cfg.Reviews,
		appLogger,
	)
	cartService := cart.NewService(cartStore, productRepo, orderService, appLogger)
	wishlistService := wishlist.NewService(wishlistRepo, productRepo, appLogger)

	router := httpDelivery.NewRouter(httpDelivery.Handlers{
		Auth:     handler.NewAuthHandler(userService, appLogger),
		Product:  handler.NewProductHandler(productService, appLogger),
		Category: handler.NewCategoryHandler(categoryService, appLogger),
		Order:    handler.NewOrderHandler(orderService, appLogger),
		Review:   handler.NewReviewHandler(reviewService, appLogger),
		Cart:     handler.NewCartHandler(cartService, appLogger),
		Wishlist: handler.NewWishlistHandler(wishlistService, appLogger),
		Health:   handler.NewHealthHandler(healthChecks, appLogger),
	}, tokens, cfg, appLogger)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:           router.Setup(ctx),
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
	}

	go func() {
		appLogger.Infof("HTTP server listening on port %s", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Fatal("HTTP server failed", err)
		}
	}()

	<-ctx.Done()
	appLogger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("Server forced to shutdown", err)
	}
	if err := shutdownTracer(shutdownCtx); err != nil {
		appLogger.Error("Failed to flush traces", err)
	}

	appLogger.Info("Server stopped gracefully")
}
