package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/Pesokrava/plant_store/internal/domain"
)

const categoryColumns = `id, name, slug, description, parent_id, is_active, sort_order, created_at, updated_at`

// CategoryRepository implements domain.CategoryRepository for PostgreSQL
type CategoryRepository struct {
	db *sqlx.DB
}

// NewCategoryRepository creates a new PostgreSQL category repository
func NewCategoryRepository(db *sqlx.DB) *CategoryRepository {
	return &CategoryRepository{db: db}
}

// Create creates a new category
func (r *CategoryRepository) Create(ctx context.Context, category *domain.Category) error {
	query := `
		INSERT INTO categories (name, slug, description, parent_id, is_active, sort_order, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at
	`

	now := time.Now()
	err := r.db.QueryRowxContext(
		ctx,
		query,
		category.Name,
		category.Slug,
		category.Description,
		category.ParentID,
		category.IsActive,
		category.SortOrder,
		now,
		now,
	).Scan(&category.ID, &category.CreatedAt, &category.UpdatedAt)

	return translateError(err)
}

// GetByID retrieves a category by ID
func (r *CategoryRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Category, error) {
	query := `SELECT ` + categoryColumns + ` FROM categories WHERE id = $1`

	var category domain.Category
	if err := r.db.GetContext(ctx, &category, query, id); err != nil {
		return nil, translateError(err)
	}

	return &category, nil
}

// List retrieves all categories ordered by sort order and name
func (r *CategoryRepository) List(ctx context.Context, onlyActive bool) ([]*domain.Category, error) {
	query := `SELECT ` + categoryColumns + ` FROM categories`
	if onlyActive {
		query += ` WHERE is_active`
	}
	query += ` ORDER BY sort_order, name`

	var categories []*domain.Category
	if err := r.db.SelectContext(ctx, &categories, query); err != nil {
		return nil, translateError(err)
	}

	return categories, nil
}

// Update updates an existing category
func (r *CategoryRepository) Update(ctx context.Context, category *domain.Category) error {
	query := `
		UPDATE categories
		SET name = $1, slug = $2, description = $3, parent_id = $4, is_active = $5,
			sort_order = $6, updated_at = $7
		WHERE id = $8
		RETURNING updated_at
	`

	err := r.db.QueryRowxContext(
		ctx,
		query,
		category.Name,
		category.Slug,
		category.Description,
		category.ParentID,
		category.IsActive,
		category.SortOrder,
		time.Now(),
		category.ID,
	).Scan(&category.UpdatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrNotFound
	}
	return translateError(err)
}
