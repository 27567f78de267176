package database

import (
	"context"
	"fmt"
	"time"

	"github.com/XSAM/otelsql"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"

	"github.com/Pesokrava/plant_store/internal/config"
	"github.com/Pesokrava/plant_store/internal/pkg/logger"
)

const pingTimeout = 5 * time.Second

// NewPostgresDB opens a traced PostgreSQL connection pool and pings it
func NewPostgresDB(ctx context.Context, cfg *config.Config) (*sqlx.DB, error) {
	sqlDB, err := otelsql.Open("postgres", cfg.GetDSN(),
		otelsql.WithAttributes(semconv.DBSystemPostgreSQL),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db := sqlx.NewDb(sqlDB, "postgres")
	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime)

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

// WaitForDB retries NewPostgresDB until it succeeds, attempts run out or ctx ends
func WaitForDB(ctx context.Context, cfg *config.Config, attempts int, delay time.Duration, log *logger.Logger) (*sqlx.DB, error) {
	var lastErr error

	for i := 1; i <= attempts; i++ {
		db, err := NewPostgresDB(ctx, cfg)
		if err == nil {
			return db, nil
		}
		lastErr = err

		log.WithFields(map[string]interface{}{
			"attempt": i,
			"of":      attempts,
			"host":    cfg.Database.Host,
		}).Warnf("Database not ready: %v", err)

		if i == attempts {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}

	return nil, fmt.Errorf("database unavailable after %d attempts: %w", attempts, lastErr)
}
