package handler

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/Pesokrava/plant_store/internal/domain"
	"github.com/Pesokrava/plant_store/internal/pkg/logger"
	"github.com/Pesokrava/plant_store/internal/usecase/order"
)

// MockOrderService is a mock implementation of OrderService
type MockOrderService struct {
	mock.Mock
}

func (m *MockOrderService) result(args mock.Arguments) (*domain.Order, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Order), args.Error(1)
}

func (m *MockOrderService) Create(ctx context.Context, p domain.Principal, input order.CreateInput) (*domain.Order, error) {
	return m.result(m.Called(ctx, p, input))
}

func (m *MockOrderService) Get(ctx context.Context, p domain.Principal, id uuid.UUID) (*domain.Order, error) {
	return m.result(m.Called(ctx, p, id))
}

func (m *MockOrderService) ListMine(ctx context.Context, p domain.Principal, limit, offset int) ([]*domain.Order, int, error) {
	args := m.Called(ctx, p, limit, offset)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]*domain.Order), args.Int(1), args.Error(2)
}

func (m *MockOrderService) List(ctx context.Context, p domain.Principal, status string, limit, offset int) ([]*domain.Order, int, error) {
	args := m.Called(ctx, p, status, limit, offset)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]*domain.Order), args.Int(1), args.Error(2)
}

func (m *MockOrderService) UpdateStatus(ctx context.Context, p domain.Principal, id uuid.UUID, status string) (*domain.Order, error) {
	return m.result(m.Called(ctx, p, id, status))
}

func (m *MockOrderService) UpdatePayment(ctx context.Context, p domain.Principal, id uuid.UUID, status string, transactionID string) (*domain.Order, error) {
	return m.result(m.Called(ctx, p, id, status, transactionID))
}

func (m *MockOrderService) UpdateTracking(ctx context.Context, p domain.Principal, id uuid.UUID, tracking domain.Tracking) (*domain.Order, error) {
	return m.result(m.Called(ctx, p, id, tracking))
}

func newOrderHandler() (*OrderHandler, *MockOrderService) {
	service := new(MockOrderService)
	return NewOrderHandler(service, logger.Nop()), service
}

func TestOrderHandler_Create(t *testing.T) {
	handler, service := newOrderHandler()
	productID := uuid.New()

	service.On("Create", mock.Anything, customer, mock.MatchedBy(func(in order.CreateInput) bool {
		return len(in.Items) == 1 && in.Items[0].ProductID == productID && in.Items[0].Quantity == 2 &&
			in.PaymentMethod == domain.PaymentMethod("cod")
	})).Return(&domain.Order{ID: uuid.New(), OrderNumber: "ORD-20240305-0001", Status: domain.OrderStatusPending}, nil)

	body := map[string]interface{}{
		"items":          []map[string]interface{}{{"product_id": productID, "quantity": 2}},
		"payment_method": "cod",
	}
	w := httptest.NewRecorder()
	handler.Create(w, testRequest(t, http.MethodPost, "/api/v1/orders", body, nil, &customer))

	assert.Equal(t, http.StatusCreated, w.Code)
	data := decodeBody(t, w)["data"].(map[string]interface{})
	assert.Equal(t, "ORD-20240305-0001", data["order_number"])
	service.AssertExpectations(t)
}

func TestOrderHandler_Create_Errors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
	}{
		{"invalid", fmt.Errorf("%w: items required", domain.ErrInvalidInput), http.StatusBadRequest},
		{"number exhausted", fmt.Errorf("%w: could not allocate order number", domain.ErrConflict), http.StatusConflict},
		{"store down", domain.ErrStoreUnavailable, http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler, service := newOrderHandler()
			service.On("Create", mock.Anything, customer, mock.Anything).Return(nil, tt.err)

			w := httptest.NewRecorder()
			handler.Create(w, testRequest(t, http.MethodPost, "/", map[string]interface{}{"items": []interface{}{}}, nil, &customer))

			assert.Equal(t, tt.code, w.Code)
		})
	}
}

func TestOrderHandler_Get_NotOwner(t *testing.T) {
	handler, service := newOrderHandler()
	id := uuid.New()

	service.On("Get", mock.Anything, customer, id).Return(nil, domain.ErrForbidden)

	w := httptest.NewRecorder()
	handler.Get(w, testRequest(t, http.MethodGet, "/", nil, map[string]string{"id": id.String()}, &customer))

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestOrderHandler_ListMine(t *testing.T) {
	handler, service := newOrderHandler()

	service.On("ListMine", mock.Anything, customer, 5, 0).Return([]*domain.Order{{}, {}}, 2, nil)

	w := httptest.NewRecorder()
	handler.ListMine(w, testRequest(t, http.MethodGet, "/api/v1/orders/mine?limit=5", nil, nil, &customer))

	assert.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Len(t, body["data"], 2)
	assert.Equal(t, false, body["pagination"].(map[string]interface{})["has_more"])
}

func TestOrderHandler_List_StatusFilter(t *testing.T) {
	handler, service := newOrderHandler()

	service.On("List", mock.Anything, admin, "shipped", 20, 0).Return([]*domain.Order{}, 0, nil)

	w := httptest.NewRecorder()
	handler.List(w, testRequest(t, http.MethodGet, "/api/v1/orders?status=shipped", nil, nil, &admin))

	assert.Equal(t, http.StatusOK, w.Code)
	service.AssertExpectations(t)
}

func TestOrderHandler_UpdateStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
	}{
		{"applied", nil, http.StatusOK},
		{"illegal transition", fmt.Errorf("%w: delivered to pending", domain.ErrInvalidTransition), http.StatusUnprocessableEntity},
		{"unknown status", fmt.Errorf("%w: unknown order status", domain.ErrInvalidInput), http.StatusBadRequest},
		{"lost race", domain.ErrConflict, http.StatusConflict},
		{"missing", domain.ErrNotFound, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler, service := newOrderHandler()
			id := uuid.New()

			if tt.err == nil {
				service.On("UpdateStatus", mock.Anything, admin, id, "confirmed").Return(&domain.Order{ID: id, Status: domain.OrderStatusConfirmed}, nil)
			} else {
				service.On("UpdateStatus", mock.Anything, admin, id, "confirmed").Return(nil, tt.err)
			}

			w := httptest.NewRecorder()
			handler.UpdateStatus(w, testRequest(t, http.MethodPut, "/", UpdateStatusRequest{Status: "confirmed"}, map[string]string{"id": id.String()}, &admin))

			assert.Equal(t, tt.code, w.Code)
		})
	}
}

func TestOrderHandler_UpdatePayment(t *testing.T) {
	handler, service := newOrderHandler()
	id := uuid.New()

	service.On("UpdatePayment", mock.Anything, admin, id, "paid", "txn_42").Return(&domain.Order{ID: id}, nil)

	w := httptest.NewRecorder()
	handler.UpdatePayment(w, testRequest(t, http.MethodPut, "/", UpdatePaymentRequest{Status: "paid", TransactionID: "txn_42"}, map[string]string{"id": id.String()}, &admin))

	assert.Equal(t, http.StatusOK, w.Code)
	service.AssertExpectations(t)
}

func TestOrderHandler_UpdateTracking(t *testing.T) {
	handler, service := newOrderHandler()
	id := uuid.New()
	tracking := domain.Tracking{Number: "1Z999", Carrier: "UPS"}

	service.On("UpdateTracking", mock.Anything, admin, id, tracking).Return(&domain.Order{ID: id, Tracking: tracking}, nil)

	w := httptest.NewRecorder()
	handler.UpdateTracking(w, testRequest(t, http.MethodPut, "/", tracking, map[string]string{"id": id.String()}, &admin))

	assert.Equal(t, http.StatusOK, w.Code)
	service.AssertExpectations(t)
}

func TestOrderHandler_InvalidID(t *testing.T) {
	handler, service := newOrderHandler()

	w := httptest.NewRecorder()
	handler.UpdateStatus(w, testRequest(t, http.MethodPut, "/", UpdateStatusRequest{Status: "confirmed"}, map[string]string{"id": "42"}, &admin))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	service.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}
