package handler

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/Pesokrava/plant_store/internal/delivery/http/request"
	"github.com/Pesokrava/plant_store/internal/delivery/http/response"
	"github.com/Pesokrava/plant_store/internal/domain"
	"github.com/Pesokrava/plant_store/internal/pkg/logger"
	"github.com/Pesokrava/plant_store/internal/usecase/order"
)

// OrderService is the order lifecycle consumed by OrderHandler
type OrderService interface {
	Create(ctx context.Context, principal domain.Principal, input order.CreateInput) (*domain.Order, error)
	Get(ctx context.Context, principal domain.Principal, id uuid.UUID) (*domain.Order, error)
	ListMine(ctx context.Context, principal domain.Principal, limit, offset int) ([]*domain.Order, int, error)
	List(ctx context.Context, principal domain.Principal, status string, limit, offset int) ([]*domain.Order, int, error)
	UpdateStatus(ctx context.Context, principal domain.Principal, id uuid.UUID, status string) (*domain.Order, error)
	UpdatePayment(ctx context.Context, principal domain.Principal, id uuid.UUID, status string, transactionID string) (*domain.Order, error)
	UpdateTracking(ctx context.Context, principal domain.Principal, id uuid.UUID, tracking domain.Tracking) (*domain.Order, error)
}

// UpdateStatusRequest represents the request body for a status change
type UpdateStatusRequest struct {
	Status string `json:"status"`
}

// UpdatePaymentRequest represents the request body for a payment update
type UpdatePaymentRequest struct {
	Status        string `json:"status"`
	TransactionID string `json:"transaction_id,omitempty"`
}

// OrderHandler handles HTTP requests for orders
type OrderHandler struct {
	service OrderService
	logger  *logger.Logger
}

// NewOrderHandler creates a new order handler
func NewOrderHandler(service OrderService, log *logger.Logger) *OrderHandler {
	return &OrderHandler{
		service: service,
		logger:  log,
	}
}

// Create handles POST /api/v1/orders
// @Summary Place an order
// @Description Prices the requested items from the catalog and assigns a daily order number
// @Tags Orders
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param order body order.CreateInput true "Order details"
// @Success 201 {object} response.Envelope "Order created"
// @Failure 400 {object} response.ErrorBody "Invalid order"
// @Failure 409 {object} response.ErrorBody "Order number could not be allocated"
// @Failure 503 {object} response.ErrorBody "Store unavailable"
// @Router /orders [post]
func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	var input order.CreateInput
	if err := request.DecodeJSON(r, &input); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	o, err := h.service.Create(r.Context(), principal(r), input)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	response.Created(w, o)
}

// Get handles GET /api/v1/orders/{id}
// @Summary Get an order
// @Tags Orders
// @Produce json
// @Security BearerAuth
// @Param id path string true "Order ID (UUID)"
// @Success 200 {object} response.Envelope "Order"
// @Failure 403 {object} response.ErrorBody "Not the owner"
// @Failure 404 {object} response.ErrorBody "Order not found"
// @Router /orders/{id} [get]
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := request.GetUUIDParam(r, "id")
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid order ID")
		return
	}

	o, err := h.service.Get(r.Context(), principal(r), id)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	response.Success(w, o)
}

// ListMine handles GET /api/v1/orders/mine
// @Summary List the caller's orders
// @Tags Orders
// @Produce json
// @Security BearerAuth
// @Param limit query int false "Number of items per page" default(20)
// @Param offset query int false "Number of items to skip" default(0)
// @Success 200 {object} response.Envelope "Orders, newest first"
// @Router /orders/mine [get]
func (h *OrderHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	limit, offset := request.GetPaginationParams(r)

	orders, total, err := h.service.ListMine(r.Context(), principal(r), limit, offset)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	response.Paginated(w, orders, total, limit, offset)
}

// List handles GET /api/v1/orders
// @Summary List all orders
// @Tags Orders
// @Produce json
// @Security BearerAuth
// @Param status query string false "Order status"
// @Param limit query int false "Number of items per page" default(20)
// @Param offset query int false "Number of items to skip" default(0)
// @Success 200 {object} response.Envelope "Orders, newest first"
// @Failure 400 {object} response.ErrorBody "Unknown status"
// @Failure 403 {object} response.ErrorBody "Admin access required"
// @Router /orders [get]
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, offset := request.GetPaginationParams(r)

	orders, total, err := h.service.List(r.Context(), principal(r), r.URL.Query().Get("status"), limit, offset)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	response.Paginated(w, orders, total, limit, offset)
}

// UpdateStatus handles PUT /api/v1/orders/{id}/status
// @Summary Move an order to a new status
// @Tags Orders
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Order ID (UUID)"
// @Param status body UpdateStatusRequest true "Target status"
// @Success 200 {object} response.Envelope "Updated order"
// @Failure 400 {object} response.ErrorBody "Unknown status"
// @Failure 409 {object} response.ErrorBody "Order was modified by another request"
// @Failure 422 {object} response.ErrorBody "Transition not allowed"
// @Router /orders/{id}/status [put]
func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, err := request.GetUUIDParam(r, "id")
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid order ID")
		return
	}

	var req UpdateStatusRequest
	if err := request.DecodeJSON(r, &req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	o, err := h.service.UpdateStatus(r.Context(), principal(r), id, req.Status)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	response.Success(w, o)
}

// UpdatePayment handles PUT /api/v1/orders/{id}/payment
// @Summary Record the payment state of an order
// @Tags Orders
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Order ID (UUID)"
// @Param payment body UpdatePaymentRequest true "Payment state"
// @Success 200 {object} response.Envelope "Updated order"
// @Failure 400 {object} response.ErrorBody "Unknown payment status"
// @Router /orders/{id}/payment [put]
func (h *OrderHandler) UpdatePayment(w http.ResponseWriter, r *http.Request) {
	id, err := request.GetUUIDParam(r, "id")
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid order ID")
		return
	}

	var req UpdatePaymentRequest
	if err := request.DecodeJSON(r, &req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	o, err := h.service.UpdatePayment(r.Context(), principal(r), id, req.Status, req.TransactionID)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	response.Success(w, o)
}

// UpdateTracking handles PUT /api/v1/orders/{id}/tracking
// @Summary Set the shipment tracking of an order
// @Tags Orders
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Order ID (UUID)"
// @Param tracking body domain.Tracking true "Tracking details"
// @Success 200 {object} response.Envelope "Updated order"
// @Failure 400 {object} response.ErrorBody "Invalid tracking"
// @Router /orders/{id}/tracking [put]
func (h *OrderHandler) UpdateTracking(w http.ResponseWriter, r *http.Request) {
	id, err := request.GetUUIDParam(r, "id")
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid order ID")
		return
	}

	var tracking domain.Tracking
	if err := request.DecodeJSON(r, &tracking); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	o, err := h.service.UpdateTracking(r.Context(), principal(r), id, tracking)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	response.Success(w, o)
}
