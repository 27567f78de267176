package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/Pesokrava/plant_store/internal/domain"
)

// WishlistRepository implements domain.WishlistRepository for PostgreSQL
type WishlistRepository struct {
	db *sqlx.DB
}

// NewWishlistRepository creates a new PostgreSQL wishlist repository
func NewWishlistRepository(db *sqlx.DB) *WishlistRepository {
	return &WishlistRepository{db: db}
}

// Add saves a product to the user's wishlist
func (r *WishlistRepository) Add(ctx context.Context, userID, productID uuid.UUID) error {
	query := `
		INSERT INTO wishlists (user_id, product_id)
		VALUES ($1, $2)
		ON CONFLICT (user_id, product_id) DO NOTHING
	`

	_, err := r.db.ExecContext(ctx, query, userID, productID)
	return translateError(err)
}

// Remove deletes a product from the user's wishlist
func (r *WishlistRepository) Remove(ctx context.Context, userID, productID uuid.UUID) error {
	query := `DELETE FROM wishlists WHERE user_id = $1 AND product_id = $2`

	result, err := r.db.ExecContext(ctx, query, userID, productID)
	if err != nil {
		return translateError(err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return translateError(err)
	}
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// List returns a page of the user's wishlist, newest first, skipping deleted products
func (r *WishlistRepository) List(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*domain.WishlistItem, int, error) {
	countQuery := `
		SELECT COUNT(*) FROM wishlists w
		JOIN products p ON p.id = w.product_id AND p.deleted_at IS NULL
		WHERE w.user_id = $1
	`

	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, userID); err != nil {
		return nil, 0, translateError(err)
	}

	query := `
		SELECT w.user_id, w.product_id, w.created_at FROM wishlists w
		JOIN products p ON p.id = w.product_id AND p.deleted_at IS NULL
		WHERE w.user_id = $1
		ORDER BY w.created_at DESC
		LIMIT $2 OFFSET $3
	`

	items := []*domain.WishlistItem{}
	if err := r.db.SelectContext(ctx, &items, query, userID, limit, offset); err != nil {
		return nil, 0, translateError(err)
	}
	return items, total, nil
}
