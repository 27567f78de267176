package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// OrdersCreated counts orders persisted
	OrdersCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "plant_store_orders_created_total",
			Help: "Total number of orders created",
		},
	)

	// OrderNumberRetries counts order number collisions that triggered a retry
	OrderNumberRetries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "plant_store_order_number_retries_total",
			Help: "Total number of order number collisions retried",
		},
	)

	// OrderStatusTransitions counts applied status transitions
	OrderStatusTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "plant_store_order_status_transitions_total",
			Help: "Total number of order status transitions applied",
		},
		[]string{"from", "to"},
	)

	// ReviewsSubmitted counts submitted reviews
	ReviewsSubmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "plant_store_reviews_submitted_total",
			Help: "Total number of reviews submitted",
		},
		[]string{"verified"},
	)

	// RatingRecomputes counts aggregator runs by outcome
	RatingRecomputes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "plant_store_rating_recomputes_total",
			Help: "Total number of product rating recomputations",
		},
		[]string{"outcome"},
	)

	// EventsPublished counts published events by subject and outcome
	EventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "plant_store_events_published_total",
			Help: "Total number of events published",
		},
		[]string{"subject", "outcome"},
	)

	// PublisherBreakerState reports the event publisher circuit state (0=closed, 1=half-open, 2=open)
	PublisherBreakerState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "plant_store_publisher_breaker_state",
			Help: "Current state of the event publisher circuit breaker",
		},
	)
)

var (
	// HTTPRequestsTotal counts HTTP requests by method, route and status
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "plant_store_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	// HTTPRequestDuration observes HTTP request latency
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "plant_store_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	// HTTPRequestsInFlight tracks requests currently being served
	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "plant_store_http_requests_in_flight",
			Help: "Number of HTTP requests currently being served",
		},
	)

	// RateLimitedRequests counts requests rejected by the rate limiter
	RateLimitedRequests = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "plant_store_http_rate_limited_total",
			Help: "Total number of requests rejected by the rate limiter",
		},
	)
)
