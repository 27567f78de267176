package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	"github.com/Pesokrava/plant_store/internal/domain"
)

// Config holds all configuration for the application
type Config struct {
	Env       string
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	NATS      NATSConfig
	Cache     CacheConfig
	Auth      AuthConfig
	Orders    OrdersConfig
	Reviews   ReviewsConfig
	Telemetry TelemetryConfig
	RateLimit RateLimitConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	RequestTimeout  time.Duration
	AllowedOrigins  []string
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	Host            string
	Port            string
	User            string
	Password        string
	Name            string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	PoolSize int
}

// NATSConfig holds NATS configuration
type NATSConfig struct {
	URL string
}

// CacheConfig holds caching TTL configuration
type CacheConfig struct {
	ProductRatingTTL time.Duration
	ReviewsListTTL   time.Duration
	CartTTL          time.Duration
}

// AuthConfig holds token and password hashing settings
type AuthConfig struct {
	JWTSecret  string
	TokenTTL   time.Duration
	Issuer     string
	BcryptCost int
}

// OrdersConfig holds the pricing policy and order numbering settings
type OrdersConfig struct {
	TaxRate           decimal.Decimal
	ShippingCosts     map[domain.ShippingMethod]decimal.Decimal
	Timezone          *time.Location
	NumberMaxAttempts int
}

// ReviewsConfig holds review moderation settings
type ReviewsConfig struct {
	AutoApprove bool
}

// TelemetryConfig holds tracing settings
type TelemetryConfig struct {
	Enabled      bool
	OTLPEndpoint string
	ServiceName  string
}

// RateLimitConfig holds the per-client limits of the auth endpoints
type RateLimitConfig struct {
	RequestsPerSecond float64
	Burst             int
}

// Load reads configuration from environment variables and returns a Config struct.
// A .env file in the working directory is loaded first when present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	viper.AutomaticEnv()

	// Set defaults
	viper.SetDefault("ENV", "development")
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("SERVER_READ_TIMEOUT", "10s")
	viper.SetDefault("SERVER_WRITE_TIMEOUT", "10s")
	viper.SetDefault("SERVER_SHUTDOWN_TIMEOUT", "30s")
	viper.SetDefault("SERVER_REQUEST_TIMEOUT", "15s")
	viper.SetDefault("CORS_ALLOWED_ORIGINS", "http://localhost:3000,http://localhost:8080")

	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_USER", "postgres")
	viper.SetDefault("DB_PASSWORD", "postgres")
	viper.SetDefault("DB_NAME", "plant_store")
	viper.SetDefault("DB_SSLMODE", "disable")
	viper.SetDefault("DB_MAX_OPEN_CONNS", 25)
	viper.SetDefault("DB_MAX_IDLE_CONNS", 5)
	viper.SetDefault("DB_CONN_MAX_LIFETIME", "5m")

	viper.SetDefault("REDIS_HOST", "localhost")
	viper.SetDefault("REDIS_PORT", "6379")
	viper.SetDefault("REDIS_PASSWORD", "")
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("REDIS_POOL_SIZE", 10)

	viper.SetDefault("NATS_URL", "nats://localhost:4222")

	viper.SetDefault("CACHE_TTL_PRODUCT_RATING", "300s")
	viper.SetDefault("CACHE_TTL_REVIEWS_LIST", "120s")
	viper.SetDefault("CART_TTL", "720h")

	viper.SetDefault("JWT_SECRET", "change-me")
	viper.SetDefault("JWT_TTL", "24h")
	viper.SetDefault("JWT_ISSUER", "plant-store")
	viper.SetDefault("BCRYPT_COST", 12)

	viper.SetDefault("ORDER_TAX_RATE", "0")
	viper.SetDefault("SHIPPING_COST_STANDARD", "0")
	viper.SetDefault("SHIPPING_COST_EXPRESS", "0")
	viper.SetDefault("SHIPPING_COST_OVERNIGHT", "0")
	viper.SetDefault("ORDER_TIMEZONE", "UTC")
	viper.SetDefault("ORDER_NUMBER_MAX_ATTEMPTS", 5)

	viper.SetDefault("REVIEW_AUTO_APPROVE", true)

	viper.SetDefault("OTEL_ENABLED", false)
	viper.SetDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317")
	viper.SetDefault("OTEL_SERVICE_NAME", "plant-store")

	viper.SetDefault("AUTH_RATE_LIMIT_RPS", 5)
	viper.SetDefault("AUTH_RATE_LIMIT_BURST", 10)

	readTimeout, err := time.ParseDuration(viper.GetString("SERVER_READ_TIMEOUT"))
	if err != nil {
		return nil, fmt.Errorf("invalid SERVER_READ_TIMEOUT: %w", err)
	}

	writeTimeout, err := time.ParseDuration(viper.GetString("SERVER_WRITE_TIMEOUT"))
	if err != nil {
		return nil, fmt.Errorf("invalid SERVER_WRITE_TIMEOUT: %w", err)
	}

	shutdownTimeout, err := time.ParseDuration(viper.GetString("SERVER_SHUTDOWN_TIMEOUT"))
	if err != nil {
		return nil, fmt.Errorf("invalid SERVER_SHUTDOWN_TIMEOUT: %w", err)
	}

	requestTimeout, err := time.ParseDuration(viper.GetString("SERVER_REQUEST_TIMEOUT"))
	if err != nil {
		return nil, fmt.Errorf("invalid SERVER_REQUEST_TIMEOUT: %w", err)
	}

	connMaxLifetime, err := time.ParseDuration(viper.GetString("DB_CONN_MAX_LIFETIME"))
	if err != nil {
		return nil, fmt.Errorf("invalid DB_CONN_MAX_LIFETIME: %w", err)
	}

	productRatingTTL, err := time.ParseDuration(viper.GetString("CACHE_TTL_PRODUCT_RATING"))
	if err != nil {
		return nil, fmt.Errorf("invalid CACHE_TTL_PRODUCT_RATING: %w", err)
	}

	reviewsListTTL, err := time.ParseDuration(viper.GetString("CACHE_TTL_REVIEWS_LIST"))
	if err != nil {
		return nil, fmt.Errorf("invalid CACHE_TTL_REVIEWS_LIST: %w", err)
	}

	cartTTL, err := time.ParseDuration(viper.GetString("CART_TTL"))
	if err != nil || cartTTL <= 0 {
		return nil, fmt.Errorf("invalid CART_TTL: %q", viper.GetString("CART_TTL"))
	}

	tokenTTL, err := time.ParseDuration(viper.GetString("JWT_TTL"))
	if err != nil {
		return nil, fmt.Errorf("invalid JWT_TTL: %w", err)
	}

	orders, err := loadOrdersConfig()
	if err != nil {
		return nil, err
	}

	allowedOriginsStr := viper.GetString("CORS_ALLOWED_ORIGINS")
	allowedOrigins := strings.Split(allowedOriginsStr, ",")
	for i := range allowedOrigins {
		allowedOrigins[i] = strings.TrimSpace(allowedOrigins[i])
	}

	config := &Config{
		Env: viper.GetString("ENV"),
		Server: ServerConfig{
			Port:            viper.GetString("SERVER_PORT"),
			ReadTimeout:     readTimeout,
			WriteTimeout:    writeTimeout,
			ShutdownTimeout: shutdownTimeout,
			RequestTimeout:  requestTimeout,
			AllowedOrigins:  allowedOrigins,
		},
		Database: DatabaseConfig{
			Host:            viper.GetString("DB_HOST"),
			Port:            viper.GetString("DB_PORT"),
			User:            viper.GetString("DB_USER"),
			Password:        viper.GetString("DB_PASSWORD"),
			Name:            viper.GetString("DB_NAME"),
			SSLMode:         viper.GetString("DB_SSLMODE"),
			MaxOpenConns:    viper.GetInt("DB_MAX_OPEN_CONNS"),
			MaxIdleConns:    viper.GetInt("DB_MAX_IDLE_CONNS"),
			ConnMaxLifetime: connMaxLifetime,
		},
		Redis: RedisConfig{
			Host:     viper.GetString("REDIS_HOST"),
			Port:     viper.GetString("REDIS_PORT"),
			Password: viper.GetString("REDIS_PASSWORD"),
			DB:       viper.GetInt("REDIS_DB"),
			PoolSize: viper.GetInt("REDIS_POOL_SIZE"),
		},
		NATS: NATSConfig{
			URL: viper.GetString("NATS_URL"),
		},
		Cache: CacheConfig{
			ProductRatingTTL: productRatingTTL,
			ReviewsListTTL:   reviewsListTTL,
			CartTTL:          cartTTL,
		},
		Auth: AuthConfig{
			JWTSecret:  viper.GetString("JWT_SECRET"),
			TokenTTL:   tokenTTL,
			Issuer:     viper.GetString("JWT_ISSUER"),
			BcryptCost: viper.GetInt("BCRYPT_COST"),
		},
		Orders: *orders,
		Reviews: ReviewsConfig{
			AutoApprove: viper.GetBool("REVIEW_AUTO_APPROVE"),
		},
		Telemetry: TelemetryConfig{
			Enabled:      viper.GetBool("OTEL_ENABLED"),
			OTLPEndpoint: viper.GetString("OTEL_EXPORTER_OTLP_ENDPOINT"),
			ServiceName:  viper.GetString("OTEL_SERVICE_NAME"),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: viper.GetFloat64("AUTH_RATE_LIMIT_RPS"),
			Burst:             viper.GetInt("AUTH_RATE_LIMIT_BURST"),
		},
	}

	return config, nil
}

func loadOrdersConfig() (*OrdersConfig, error) {
	taxRate, err := decimal.NewFromString(viper.GetString("ORDER_TAX_RATE"))
	if err != nil {
		return nil, fmt.Errorf("invalid ORDER_TAX_RATE: %w", err)
	}
	if taxRate.IsNegative() {
		return nil, fmt.Errorf("invalid ORDER_TAX_RATE: must not be negative")
	}

	costs := make(map[domain.ShippingMethod]decimal.Decimal, 3)
	for method, key := range map[domain.ShippingMethod]string{
		domain.ShippingStandard:  "SHIPPING_COST_STANDARD",
		domain.ShippingExpress:   "SHIPPING_COST_EXPRESS",
		domain.ShippingOvernight: "SHIPPING_COST_OVERNIGHT",
	} {
		cost, err := decimal.NewFromString(viper.GetString(key))
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", key, err)
		}
		if cost.IsNegative() {
			return nil, fmt.Errorf("invalid %s: must not be negative", key)
		}
		if !domain.IsCents(cost) {
			return nil, fmt.Errorf("invalid %s: at most 2 decimal places", key)
		}
		costs[method] = cost
	}

	tz, err := time.LoadLocation(viper.GetString("ORDER_TIMEZONE"))
	if err != nil {
		return nil, fmt.Errorf("invalid ORDER_TIMEZONE: %w", err)
	}

	attempts := viper.GetInt("ORDER_NUMBER_MAX_ATTEMPTS")
	if attempts < 1 {
		return nil, fmt.Errorf("invalid ORDER_NUMBER_MAX_ATTEMPTS: must be at least 1")
	}

	return &OrdersConfig{
		TaxRate:           taxRate,
		ShippingCosts:     costs,
		Timezone:          tz,
		NumberMaxAttempts: attempts,
	}, nil
}

// GetDSN returns the PostgreSQL connection string
func (c *Config) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

// GetMigrateURL returns the PostgreSQL URL used by the migrate tool
func (c *Config) GetMigrateURL() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

// GetRedisAddr returns the Redis address
func (c *Config) GetRedisAddr() string {
	return fmt.Sprintf("%s:%s", c.Redis.Host, c.Redis.Port)
}
