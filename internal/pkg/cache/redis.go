package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Pesokrava/plant_store/internal/config"
	"github.com/Pesokrava/plant_store/internal/pkg/logger"
)

const pingTimeout = 5 * time.Second

// NewRedisClient builds a Redis client from the config and pings it
func NewRedisClient(ctx context.Context, cfg *config.Config) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.GetRedisAddr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		PoolSize: cfg.Redis.PoolSize,
	})

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping Redis at %s: %w", cfg.GetRedisAddr(), err)
	}

	return client, nil
}

// WaitForRedis retries NewRedisClient until it succeeds, attempts run out or ctx ends
func WaitForRedis(ctx context.Context, cfg *config.Config, attempts int, delay time.Duration, log *logger.Logger) (*redis.Client, error) {
	var lastErr error

	for i := 1; i <= attempts; i++ {
		client, err := NewRedisClient(ctx, cfg)
		if err == nil {
			return client, nil
		}
		lastErr = err

		log.WithFields(map[string]interface{}{
			"attempt": i,
			"of":      attempts,
		}).Warnf("Redis not ready: %v", err)

		if i == attempts {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}

	return nil, fmt.Errorf("redis unavailable after %d attempts: %w", attempts, lastErr)
}
