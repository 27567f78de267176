package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/Pesokrava/plant_store/internal/domain"
)

// RatingRepository implements domain.RatingRepository for PostgreSQL.
// It is the only writer of products.ratings_average and products.ratings_quantity.
type RatingRepository struct {
	db *sqlx.DB
}

// NewRatingRepository creates a new PostgreSQL rating repository
func NewRatingRepository(db *sqlx.DB) *RatingRepository {
	return &RatingRepository{db: db}
}

// ApprovedRatingStats returns count and sum of approved, live ratings of a product
func (r *RatingRepository) ApprovedRatingStats(ctx context.Context, productID uuid.UUID) (domain.RatingStats, error) {
	query := `
		SELECT COUNT(*) AS count, COALESCE(SUM(rating), 0) AS sum
		FROM reviews
		WHERE product_id = $1 AND is_approved AND deleted_at IS NULL
	`

	var stats domain.RatingStats
	if err := r.db.GetContext(ctx, &stats, query, productID); err != nil {
		return domain.RatingStats{}, translateError(err)
	}

	return stats, nil
}

// SetProductRating writes the aggregate onto the product.
// The catalog version is left alone so admin edits do not conflict with recomputes.
func (r *RatingRepository) SetProductRating(ctx context.Context, productID uuid.UUID, average float64, quantity int) error {
	query := `
		UPDATE products
		SET ratings_average = $1, ratings_quantity = $2, updated_at = $3
		WHERE id = $4 AND deleted_at IS NULL
	`

	result, err := r.db.ExecContext(ctx, query, average, quantity, time.Now(), productID)
	if err != nil {
		return translateError(err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return domain.ErrNotFound
	}

	return nil
}
