package http

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/Pesokrava/plant_store/internal/config"
	"github.com/Pesokrava/plant_store/internal/delivery/http/handler"
	"github.com/Pesokrava/plant_store/internal/delivery/http/middleware"
	"github.com/Pesokrava/plant_store/internal/pkg/logger"
)

// Handlers groups the HTTP handlers served by the router
type Handlers struct {
	Auth     *handler.AuthHandler
	Product  *handler.ProductHandler
	Category *handler.CategoryHandler
	Order    *handler.OrderHandler
	Review   *handler.ReviewHandler
	Cart     *handler.CartHandler
	Wishlist *handler.WishlistHandler
	Health   *handler.HealthHandler
}

// Router holds HTTP handlers and router configuration
type Router struct {
	handlers Handlers
	tokens   middleware.TokenValidator
	logger   *logger.Logger
	cfg      *config.Config
}

// NewRouter creates a new HTTP router
func NewRouter(handlers Handlers, tokens middleware.TokenValidator, cfg *config.Config, log *logger.Logger) *Router {
	return &Router{
		handlers: handlers,
		tokens:   tokens,
		logger:   log,
		cfg:      cfg,
	}
}

// Setup configures and returns the HTTP router.
// ctx bounds background work of the middleware such as rate limiter cleanup.
func (rt *Router) Setup(ctx context.Context) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Recovery(rt.logger))
	r.Use(middleware.Metrics)
	r.Use(middleware.Logger(rt.logger))
	r.Use(middleware.Timeout(rt.cfg.Server.RequestTimeout))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   rt.cfg.Server.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link", "Retry-After"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/health", rt.handlers.Health.Health)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/swagger/*", httpSwagger.WrapHandler)

	authLimit := middleware.RateLimit(ctx, rt.cfg.RateLimit.RequestsPerSecond, rt.cfg.RateLimit.Burst, rt.logger)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Authenticate(rt.tokens))

		r.Route("/auth", func(r chi.Router) {
			r.Use(authLimit)
			r.Post("/register", rt.handlers.Auth.Register)
			r.Post("/login", rt.handlers.Auth.Login)
		})

		r.Route("/users/me", func(r chi.Router) {
			r.Use(middleware.RequireAuth)
			r.Get("/", rt.handlers.Auth.Me)
			r.Get("/wishlist", rt.handlers.Wishlist.List)
			r.Post("/wishlist/{productId}", rt.handlers.Wishlist.Add)
			r.Delete("/wishlist/{productId}", rt.handlers.Wishlist.Remove)
		})

		r.Route("/cart", func(r chi.Router) {
			r.Use(middleware.RequireAuth)
			r.Get("/", rt.handlers.Cart.Get)
			r.Delete("/", rt.handlers.Cart.Clear)
			r.Post("/items", rt.handlers.Cart.AddItem)
			r.Put("/items/{productId}", rt.handlers.Cart.UpdateItem)
			r.Delete("/items/{productId}", rt.handlers.Cart.RemoveItem)
			r.Post("/checkout", rt.handlers.Cart.Checkout)
		})

		r.Route("/products", func(r chi.Router) {
			r.Get("/", rt.handlers.Product.List)
			r.Get("/{id}", rt.handlers.Product.GetByID)
			r.Get("/{id}/reviews", rt.handlers.Review.GetByProductID)
			r.Get("/{id}/reviews/summary", rt.handlers.Review.Summary)

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireAdmin)
				r.Post("/", rt.handlers.Product.Create)
				r.Put("/{id}", rt.handlers.Product.Update)
				r.Delete("/{id}", rt.handlers.Product.Delete)
			})
		})

		r.Route("/categories", func(r chi.Router) {
			r.Get("/", rt.handlers.Category.List)
			r.Get("/tree", rt.handlers.Category.Tree)
			r.Get("/{id}", rt.handlers.Category.Get)
			r.Get("/{id}/subcategories", rt.handlers.Category.Subcategories)
			r.Get("/{id}/hierarchy", rt.handlers.Category.Hierarchy)

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireAdmin)
				r.Post("/", rt.handlers.Category.Create)
				r.Put("/{id}", rt.handlers.Category.Update)
			})
		})

		r.Route("/orders", func(r chi.Router) {
			r.Use(middleware.RequireAuth)
			r.Post("/", rt.handlers.Order.Create)
			r.Get("/mine", rt.handlers.Order.ListMine)
			r.Get("/{id}", rt.handlers.Order.Get)

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireAdmin)
				r.Get("/", rt.handlers.Order.List)
				r.Put("/{id}/status", rt.handlers.Order.UpdateStatus)
				r.Put("/{id}/payment", rt.handlers.Order.UpdatePayment)
				r.Put("/{id}/tracking", rt.handlers.Order.UpdateTracking)
			})
		})

		r.Route("/reviews", func(r chi.Router) {
			r.Get("/{id}", rt.handlers.Review.Get)

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireAuth)
				r.Post("/", rt.handlers.Review.Create)
				r.Put("/{id}", rt.handlers.Review.Update)
				r.Delete("/{id}", rt.handlers.Review.Delete)
				r.Post("/{id}/vote", rt.handlers.Review.Vote)
				r.Delete("/{id}/vote", rt.handlers.Review.RemoveVote)
				r.Post("/{id}/report", rt.handlers.Review.Report)
			})

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireAdmin)
				r.Get("/", rt.handlers.Review.List)
				r.Post("/{id}/approve", rt.handlers.Review.Approve)
				r.Post("/{id}/reject", rt.handlers.Review.Reject)
				r.Post("/{id}/respond", rt.handlers.Review.Respond)
				r.Post("/{id}/verify", rt.handlers.Review.Verify)
			})
		})
	})

	return otelhttp.NewHandler(r, "plant-store-api",
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return r.Method + " " + r.URL.Path
		}),
	)
}
