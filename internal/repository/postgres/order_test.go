package postgres

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Pesokrava/plant_store/internal/domain"
)

func newTestOrder() *domain.Order {
	now := time.Now()
	return &domain.Order{
		OrderNumber: "ORD-20261016-0001",
		UserID:      uuid.New(),
		Items: []domain.OrderItem{
			{ProductID: uuid.New(), Name: "Monstera", Price: decimal.NewFromInt(25), SKU: "MON-001", Quantity: 2, Subtotal: decimal.NewFromInt(50)},
			{ProductID: uuid.New(), Name: "Pothos", Price: decimal.NewFromInt(10), SKU: "POT-001", Quantity: 1, Subtotal: decimal.NewFromInt(10)},
		},
		Payment:   domain.PaymentInfo{Method: domain.PaymentCard, Status: domain.PaymentStatusPending},
		Pricing:   domain.Pricing{Subtotal: decimal.NewFromInt(60), Total: decimal.NewFromInt(60)},
		Status:    domain.OrderStatusPending,
		OrderDate: now,
		CreatedAt: now,
	}
}

func TestOrderWhere(t *testing.T) {
	userID := uuid.New()
	status := domain.OrderStatusShipped

	where, args := orderWhere(domain.OrderFilter{})
	assert.Equal(t, "TRUE", where)
	assert.Empty(t, args)

	where, args = orderWhere(domain.OrderFilter{UserID: &userID, Status: &status})
	assert.Equal(t, "TRUE AND user_id = $1 AND status = $2", where)
	assert.Equal(t, []interface{}{userID, "shipped"}, args)
}

func TestOrderRepository_Create(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewOrderRepository(db)

	order := newTestOrder()
	orderID := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO orders")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "version", "created_at", "updated_at"}).
			AddRow(orderID.String(), 1, order.CreatedAt, order.CreatedAt))
	for range order.Items {
		mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO order_items")).
			WithArgs(orderID, sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(),
				sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(uuid.NewString()))
	}
	mock.ExpectCommit()

	err := repo.Create(context.Background(), order)

	require.NoError(t, err)
	assert.Equal(t, orderID, order.ID)
	assert.Equal(t, 1, order.Version)
	for _, item := range order.Items {
		assert.Equal(t, orderID, item.OrderID)
		assert.NotEqual(t, uuid.Nil, item.ID)
	}
}

func TestOrderRepository_Create_NumberTakenRollsBack(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewOrderRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO orders")).
		WillReturnError(&pq.Error{Code: "23505", Constraint: "orders_order_number_key"})
	mock.ExpectRollback()

	err := repo.Create(context.Background(), newTestOrder())

	assert.ErrorIs(t, err, domain.ErrOrderNumberTaken)
}

func TestOrderRepository_Create_ItemFailureRollsBack(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewOrderRepository(db)

	now := time.Now()
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO orders")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "version", "created_at", "updated_at"}).
			AddRow(uuid.NewString(), 1, now, now))
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO order_items")).
		WillReturnError(errors.New("foreign key violation"))
	mock.ExpectRollback()

	err := repo.Create(context.Background(), newTestOrder())

	assert.Error(t, err)
}

func TestOrderRepository_CountCreatedBetween(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewOrderRepository(db)

	from := time.Date(2026, 10, 16, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 0, 1)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM orders WHERE created_at >= $1 AND created_at < $2")).
		WithArgs(from, to).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(41))

	count, err := repo.CountCreatedBetween(context.Background(), from, to)

	require.NoError(t, err)
	assert.Equal(t, 41, count)
}

func TestOrderRepository_Update_VersionConflict(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewOrderRepository(db)

	order := newTestOrder()
	order.ID = uuid.New()
	order.Version = 4
	order.Status = domain.OrderStatusConfirmed

	mock.ExpectQuery(regexp.QuoteMeta("WHERE id = $13 AND version = $14")).
		WithArgs("confirmed", "pending", "", nil, "", "", "", "", nil, nil, nil, sqlmock.AnyArg(), order.ID, 4).
		WillReturnRows(sqlmock.NewRows([]string{"version", "updated_at"}))

	err := repo.Update(context.Background(), order)

	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestOrderRepository_Update_StoreDown(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewOrderRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("UPDATE orders")).
		WillReturnError(&pq.Error{Code: "08006"})

	err := repo.Update(context.Background(), newTestOrder())

	assert.ErrorIs(t, err, domain.ErrStoreUnavailable)
}
