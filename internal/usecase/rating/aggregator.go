package rating

import (
	"context"
	"errors"
	"math"

	"github.com/google/uuid"

	"github.com/Pesokrava/plant_store/internal/domain"
	"github.com/Pesokrava/plant_store/internal/pkg/logger"
	"github.com/Pesokrava/plant_store/internal/pkg/metrics"
)

// RatingCache stores freshly computed aggregates
type RatingCache interface {
	SetProductRating(ctx context.Context, agg *domain.RatingAggregate) error
}

// Aggregator derives a product's rating from its approved reviews.
// It is the only component that writes the rating fields of a product.
type Aggregator struct {
	repo   domain.RatingRepository
	cache  RatingCache
	logger *logger.Logger
}

// NewAggregator creates a new rating aggregator; cache may be nil
func NewAggregator(repo domain.RatingRepository, cache RatingCache, log *logger.Logger) *Aggregator {
	return &Aggregator{
		repo:   repo,
		cache:  cache,
		logger: log,
	}
}

// Recompute reads all approved ratings of the product and writes the average
// (rounded to one decimal) and count onto it. A product that no longer exists
// is skipped and yields a nil aggregate without error.
func (a *Aggregator) Recompute(ctx context.Context, productID uuid.UUID) (*domain.RatingAggregate, error) {
	stats, err := a.repo.ApprovedRatingStats(ctx, productID)
	if err != nil {
		metrics.RatingRecomputes.WithLabelValues("failed").Inc()
		a.logger.Errorf(err, "Failed to read ratings for product %s", productID)
		return nil, err
	}

	agg := &domain.RatingAggregate{
		ProductID: productID,
		Average:   Average(stats),
		Quantity:  stats.Count,
	}

	if err := a.repo.SetProductRating(ctx, productID, agg.Average, agg.Quantity); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			metrics.RatingRecomputes.WithLabelValues("skipped").Inc()
			a.logger.WithFields(map[string]interface{}{
				"product_id": productID,
			}).Info("Product not found or deleted, skipping rating update")
			return nil, nil
		}
		metrics.RatingRecomputes.WithLabelValues("failed").Inc()
		a.logger.Errorf(err, "Failed to write rating for product %s", productID)
		return nil, err
	}

	if a.cache != nil {
		if err := a.cache.SetProductRating(ctx, agg); err != nil {
			a.logger.Warnf("Failed to cache rating for product %s: %v", productID, err)
		}
	}

	metrics.RatingRecomputes.WithLabelValues("updated").Inc()
	a.logger.WithFields(map[string]interface{}{
		"product_id": productID,
		"average":    agg.Average,
		"quantity":   agg.Quantity,
	}).Debug("Product rating recomputed")

	return agg, nil
}

// Average is sum/count rounded to one decimal place, or 0 without ratings
func Average(stats domain.RatingStats) float64 {
	if stats.Count == 0 {
		return 0
	}
	return math.Round(float64(stats.Sum)/float64(stats.Count)*10) / 10
}
