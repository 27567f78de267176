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
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/Pesokrava/plant_store/internal/domain"
)

const orderColumns = `id, order_number, user_id, billing, shipping, payment_method, payment_status,
	transaction_id, payment_date, subtotal, tax, shipping_cost, discount, total, status,
	tracking_number, carrier, tracking_url, notes, order_date, shipped_date, delivered_date,
	cancelled_date, version, created_at, updated_at`

const orderItemColumns = `id, order_id, product_id, name, price, sku, image, quantity, subtotal`

// orderRow is the flat storage shape of domain.Order
type orderRow struct {
	ID             uuid.UUID           `db:"id"`
	OrderNumber    string              `db:"order_number"`
	UserID         uuid.UUID           `db:"user_id"`
	Billing        domain.BillingInfo  `db:"billing"`
	Shipping       domain.ShippingInfo `db:"shipping"`
	PaymentMethod  string              `db:"payment_method"`
	PaymentStatus  string              `db:"payment_status"`
	TransactionID  string              `db:"transaction_id"`
	PaymentDate    *time.Time          `db:"payment_date"`
	Subtotal       decimal.Decimal     `db:"subtotal"`
	Tax            decimal.Decimal     `db:"tax"`
	ShippingCost   decimal.Decimal     `db:"shipping_cost"`
	Discount       decimal.Decimal     `db:"discount"`
	Total          decimal.Decimal     `db:"total"`
	Status         string              `db:"status"`
	TrackingNumber string              `db:"tracking_number"`
	Carrier        string              `db:"carrier"`
	TrackingURL    string              `db:"tracking_url"`
	Notes          string              `db:"notes"`
	OrderDate      time.Time           `db:"order_date"`
	ShippedDate    *time.Time          `db:"shipped_date"`
	DeliveredDate  *time.Time          `db:"delivered_date"`
	CancelledDate  *time.Time          `db:"cancelled_date"`
	Version        int                 `db:"version"`
	CreatedAt      time.Time           `db:"created_at"`
	UpdatedAt      time.Time           `db:"updated_at"`
}

func (row *orderRow) toDomain() *domain.Order {
	return &domain.Order{
		ID:          row.ID,
		OrderNumber: row.OrderNumber,
		UserID:      row.UserID,
		Billing:     row.Billing,
		Shipping:    row.Shipping,
		Payment: domain.PaymentInfo{
			Method:        domain.PaymentMethod(row.PaymentMethod),
			Status:        domain.PaymentStatus(row.PaymentStatus),
			TransactionID: row.TransactionID,
			PaymentDate:   row.PaymentDate,
		},
		Pricing: domain.Pricing{
			Subtotal:     row.Subtotal,
			Tax:          row.Tax,
			ShippingCost: row.ShippingCost,
			Discount:     row.Discount,
			Total:        row.Total,
		},
		Status: domain.OrderStatus(row.Status),
		Tracking: domain.Tracking{
			Number:  row.TrackingNumber,
			Carrier: row.Carrier,
			URL:     row.TrackingURL,
		},
		Notes:         row.Notes,
		OrderDate:     row.OrderDate,
		ShippedDate:   row.ShippedDate,
		DeliveredDate: row.DeliveredDate,
		CancelledDate: row.CancelledDate,
		Version:       row.Version,
		CreatedAt:     row.CreatedAt,
		UpdatedAt:     row.UpdatedAt,
	}
}

// OrderRepository implements domain.OrderRepository for PostgreSQL
type OrderRepository struct {
	db *sqlx.DB
}

// NewOrderRepository creates a new PostgreSQL order repository
func NewOrderRepository(db *sqlx.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

// CountCreatedBetween counts orders created in [from, to)
func (r *OrderRepository) CountCreatedBetween(ctx context.Context, from, to time.Time) (int, error) {
	query := `SELECT COUNT(*) FROM orders WHERE created_at >= $1 AND created_at < $2`

	var count int
	if err := r.db.GetContext(ctx, &count, query, from, to); err != nil {
		return 0, translateError(err)
	}

	return count, nil
}

// Create inserts the order and its items in one transaction
func (r *OrderRepository) Create(ctx context.Context, order *domain.Order) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return translateError(err)
	}
	defer func() { _ = tx.Rollback() }()

	orderQuery := `
		INSERT INTO orders (order_number, user_id, billing, shipping, payment_method, payment_status,
			subtotal, tax, shipping_cost, discount, total, status, notes, order_date, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $15)
		RETURNING id, version, created_at, updated_at
	`

	err = tx.QueryRowxContext(
		ctx,
		orderQuery,
		order.OrderNumber,
		order.UserID,
		order.Billing,
		order.Shipping,
		string(order.Payment.Method),
		string(order.Payment.Status),
		order.Pricing.Subtotal,
		order.Pricing.Tax,
		order.Pricing.ShippingCost,
		order.Pricing.Discount,
		order.Pricing.Total,
		string(order.Status),
		order.Notes,
		order.OrderDate,
		order.CreatedAt,
	).Scan(&order.ID, &order.Version, &order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		return translateError(err)
	}

	itemQuery := `
		INSERT INTO order_items (order_id, product_id, name, price, sku, image, quantity, subtotal)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`

	for i := range order.Items {
		item := &order.Items[i]
		item.OrderID = order.ID
		err = tx.QueryRowxContext(
			ctx,
			itemQuery,
			item.OrderID,
			item.ProductID,
			item.Name,
			item.Price,
			item.SKU,
			item.Image,
			item.Quantity,
			item.Subtotal,
		).Scan(&item.ID)
		if err != nil {
			return translateError(err)
		}
	}

	if err := tx.Commit(); err != nil {
		return translateError(err)
	}

	return nil
}

// GetByID retrieves an order with its items
func (r *OrderRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	var row orderRow
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		return nil, translateError(err)
	}

	order := row.toDomain()
	if err := r.attachItems(ctx, []*domain.Order{order}); err != nil {
		return nil, err
	}

	return order, nil
}

// List retrieves orders matching the filter, newest first
func (r *OrderRepository) List(ctx context.Context, filter domain.OrderFilter) ([]*domain.Order, error) {
	where, args := orderWhere(filter)
	args = append(args, filter.Limit, filter.Offset)

	query := fmt.Sprintf(
		`SELECT %s FROM orders WHERE %s ORDER BY created_at DESC, id LIMIT $%d OFFSET $%d`,
		orderColumns, where, len(args)-1, len(args),
	)

	var rows []orderRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, translateError(err)
	}

	orders := make([]*domain.Order, 0, len(rows))
	for i := range rows {
		orders = append(orders, rows[i].toDomain())
	}

	if err := r.attachItems(ctx, orders); err != nil {
		return nil, err
	}

	return orders, nil
}

// Count returns the number of orders matching the filter
func (r *OrderRepository) Count(ctx context.Context, filter domain.OrderFilter) (int, error) {
	where, args := orderWhere(filter)
	query := `SELECT COUNT(*) FROM orders WHERE ` + where

	var count int
	if err := r.db.GetContext(ctx, &count, query, args...); err != nil {
		return 0, translateError(err)
	}

	return count, nil
}

// Update persists the mutable order fields guarded by the version column
func (r *OrderRepository) Update(ctx context.Context, order *domain.Order) error {
	query := `
		UPDATE orders
		SET status = $1, payment_status = $2, transaction_id = $3, payment_date = $4,
			tracking_number = $5, carrier = $6, tracking_url = $7, notes = $8,
			shipped_date = $9, delivered_date = $10, cancelled_date = $11,
			updated_at = $12, version = version + 1
		WHERE id = $13 AND version = $14
		RETURNING version, updated_at
	`

	err := r.db.QueryRowxContext(
		ctx,
		query,
		string(order.Status),
		string(order.Payment.Status),
		order.Payment.TransactionID,
		order.Payment.PaymentDate,
		order.Tracking.Number,
		order.Tracking.Carrier,
		order.Tracking.URL,
		order.Notes,
		order.ShippedDate,
		order.DeliveredDate,
		order.CancelledDate,
		time.Now(),
		order.ID,
		order.Version,
	).Scan(&order.Version, &order.UpdatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: order %s was modified concurrently", domain.ErrConflict, order.ID)
		}
		return translateError(err)
	}

	return nil
}

func (r *OrderRepository) attachItems(ctx context.Context, orders []*domain.Order) error {
	if len(orders) == 0 {
		return nil
	}

	ids := make([]string, 0, len(orders))
	byID := make(map[uuid.UUID]*domain.Order, len(orders))
	for _, o := range orders {
		ids = append(ids, o.ID.String())
		byID[o.ID] = o
		o.Items = []domain.OrderItem{}
	}

	query := `SELECT ` + orderItemColumns + ` FROM order_items WHERE order_id = ANY($1::uuid[]) ORDER BY order_id, name`

	var items []domain.OrderItem
	if err := r.db.SelectContext(ctx, &items, query, pq.StringArray(ids)); err != nil {
		return translateError(err)
	}

	for _, item := range items {
		if o, ok := byID[item.OrderID]; ok {
			o.Items = append(o.Items, item)
		}
	}

	return nil
}

func orderWhere(filter domain.OrderFilter) (string, []interface{}) {
	conds := []string{"TRUE"}
	var args []interface{}

	if filter.UserID != nil {
		args = append(args, *filter.UserID)
		conds = append(conds, fmt.Sprintf("user_id = $%d", len(args)))
	}
	if filter.Status != nil {
		args = append(args, string(*filter.Status))
		conds = append(conds, fmt.Sprintf("status = $%d", len(args)))
	}

	return strings.Join(conds, " AND "), args
}
