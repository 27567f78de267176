package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/Pesokrava/plant_store/internal/domain"
)

const productColumns = `id, name, slug, sku, description, price, category_id, images, stock_quantity,
	plant_care, tags, is_active, ratings_average, ratings_quantity, version, created_at, updated_at, deleted_at`

// productSortColumns whitelists the sortable columns
var productSortColumns = map[string]string{
	"created_at":      "created_at",
	"price":           "price",
	"name":            "name",
	"ratings_average": "ratings_average",
}

// ProductRepository implements domain.ProductRepository for PostgreSQL.
// It never writes ratings_average or ratings_quantity; those belong to RatingRepository.
type ProductRepository struct {
	db *sqlx.DB
}

// NewProductRepository creates a new PostgreSQL product repository
func NewProductRepository(db *sqlx.DB) *ProductRepository {
	return &ProductRepository{db: db}
}

// Create creates a new product
func (r *ProductRepository) Create(ctx context.Context, product *domain.Product) error {
	query := `
		INSERT INTO products (name, slug, sku, description, price, category_id, images,
			stock_quantity, plant_care, tags, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id, ratings_average, ratings_quantity, version, created_at, updated_at
	`

	now := time.Now()
	product.CreatedAt = now
	product.UpdatedAt = now

	err := r.db.QueryRowxContext(
		ctx,
		query,
		product.Name,
		product.Slug,
		product.SKU,
		product.Description,
		product.Price,
		product.CategoryID,
		product.Images,
		product.StockQuantity,
		product.PlantCare,
		textArray(product.Tags),
		product.IsActive,
		product.CreatedAt,
		product.UpdatedAt,
	).Scan(
		&product.ID,
		&product.RatingsAverage,
		&product.RatingsQuantity,
		&product.Version,
		&product.CreatedAt,
		&product.UpdatedAt,
	)

	return translateError(err)
}

// GetByID retrieves a product by ID
func (r *ProductRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1 AND deleted_at IS NULL`

	var product domain.Product
	if err := r.db.GetContext(ctx, &product, query, id); err != nil {
		return nil, translateError(err)
	}

	return &product, nil
}

// List retrieves a filtered, sorted page of products
func (r *ProductRepository) List(ctx context.Context, filter domain.ProductFilter) ([]*domain.Product, error) {
	where, args := productWhere(filter)

	sortCol, ok := productSortColumns[filter.SortBy]
	if !ok {
		sortCol = "created_at"
	}
	direction := "ASC"
	if filter.SortDesc {
		direction = "DESC"
	}

	args = append(args, filter.Limit, filter.Offset)
	query := fmt.Sprintf(
		`SELECT %s FROM products WHERE %s ORDER BY %s %s, id LIMIT $%d OFFSET $%d`,
		productColumns, where, sortCol, direction, len(args)-1, len(args),
	)

	var products []*domain.Product
	if err := r.db.SelectContext(ctx, &products, query, args...); err != nil {
		return nil, translateError(err)
	}

	return products, nil
}

// Count returns the number of products matching the filter
func (r *ProductRepository) Count(ctx context.Context, filter domain.ProductFilter) (int, error) {
	where, args := productWhere(filter)
	query := `SELECT COUNT(*) FROM products WHERE ` + where

	var count int
	if err := r.db.GetContext(ctx, &count, query, args...); err != nil {
		return 0, translateError(err)
	}

	return count, nil
}

// Update updates an existing product's catalog fields
func (r *ProductRepository) Update(ctx context.Context, product *domain.Product) error {
	query := `
		UPDATE products
		SET name = $1, slug = $2, sku = $3, description = $4, price = $5, category_id = $6,
			images = $7, stock_quantity = $8, plant_care = $9, tags = $10, is_active = $11,
			updated_at = $12, version = version + 1
		WHERE id = $13 AND deleted_at IS NULL AND version = $14
		RETURNING version, updated_at
	`

	product.UpdatedAt = time.Now()

	err := r.db.QueryRowxContext(
		ctx,
		query,
		product.Name,
		product.Slug,
		product.SKU,
		product.Description,
		product.Price,
		product.CategoryID,
		product.Images,
		product.StockQuantity,
		product.PlantCare,
		textArray(product.Tags),
		product.IsActive,
		product.UpdatedAt,
		product.ID,
		product.Version,
	).Scan(&product.Version, &product.UpdatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrConflict
		}
		return translateError(err)
	}

	return nil
}

// Delete soft-deletes a product
func (r *ProductRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE products
		SET deleted_at = $1
		WHERE id = $2 AND deleted_at IS NULL
	`

	result, err := r.db.ExecContext(ctx, query, time.Now(), id)
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

func productWhere(filter domain.ProductFilter) (string, []interface{}) {
	conds := []string{"deleted_at IS NULL"}
	var args []interface{}

	add := func(cond string, arg interface{}) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if filter.OnlyActive {
		conds = append(conds, "is_active")
	}
	if filter.CategoryID != nil {
		add("category_id = $%d", *filter.CategoryID)
	}
	if filter.Search != "" {
		add("(name ILIKE $%[1]d OR description ILIKE $%[1]d)", "%"+filter.Search+"%")
	}
	if filter.Tag != "" {
		add("$%d = ANY(tags)", filter.Tag)
	}
	if filter.MinPrice != nil {
		add("price >= $%d", *filter.MinPrice)
	}
	if filter.MaxPrice != nil {
		add("price <= $%d", *filter.MaxPrice)
	}

	return strings.Join(conds, " AND "), args
}
