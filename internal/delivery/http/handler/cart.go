package handler

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/Pesokrava/plant_store/internal/delivery/http/request"
	"github.com/Pesokrava/plant_store/internal/delivery/http/response"
	"github.com/Pesokrava/plant_store/internal/domain"
	"github.com/Pesokrava/plant_store/internal/pkg/logger"
	"github.com/Pesokrava/plant_store/internal/usecase/cart"
)

// CartService is the shopping cart consumed by CartHandler
type CartService interface {
	Get(ctx context.Context, principal domain.Principal) (*domain.Cart, error)
	AddItem(ctx context.Context, principal domain.Principal, input cart.AddItemInput) (*domain.Cart, error)
	UpdateItem(ctx context.Context, principal domain.Principal, productID uuid.UUID, input cart.UpdateItemInput) (*domain.Cart, error)
	RemoveItem(ctx context.Context, principal domain.Principal, productID uuid.UUID) (*domain.Cart, error)
	Clear(ctx context.Context, principal domain.Principal) error
	Checkout(ctx context.Context, principal domain.Principal, input cart.CheckoutInput) (*domain.Order, error)
}

// CartHandler handles HTTP requests for the caller's cart
type CartHandler struct {
	service CartService
	logger  *logger.Logger
}

// NewCartHandler creates a new cart handler
func NewCartHandler(service CartService, log *logger.Logger) *CartHandler {
	return &CartHandler{
		service: service,
		logger:  log,
	}
}

// Get handles GET /api/v1/cart
// @Summary Get the caller's cart
// @Tags Cart
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope "Cart, empty when nothing was added"
// @Failure 503 {object} response.ErrorBody "Store unavailable"
// @Router /cart [get]
func (h *CartHandler) Get(w http.ResponseWriter, r *http.Request) {
	c, err := h.service.Get(r.Context(), principal(r))
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	response.Success(w, c)
}

// AddItem handles POST /api/v1/cart/items
// @Summary Add a product to the cart
// @Description Adding a product already in the cart increases its quantity
// @Tags Cart
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param item body cart.AddItemInput true "Product and quantity"
// @Success 200 {object} response.Envelope "Updated cart"
// @Failure 400 {object} response.ErrorBody "Invalid quantity or unavailable product"
// @Failure 404 {object} response.ErrorBody "Product not found"
// @Failure 409 {object} response.ErrorBody "Cart changed concurrently"
// @Router /cart/items [post]
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	var input cart.AddItemInput
	if err := request.DecodeJSON(r, &input); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	c, err := h.service.AddItem(r.Context(), principal(r), input)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	response.Success(w, c)
}

// UpdateItem handles PUT /api/v1/cart/items/{productId}
// @Summary Set the quantity of a cart line
// @Description A quantity of zero removes the line
// @Tags Cart
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param productId path string true "Product ID (UUID)"
// @Param item body cart.UpdateItemInput true "New quantity"
// @Success 200 {object} response.Envelope "Updated cart"
// @Failure 400 {object} response.ErrorBody "Invalid quantity"
// @Failure 404 {object} response.ErrorBody "Product not in cart"
// @Failure 409 {object} response.ErrorBody "Cart changed concurrently"
// @Router /cart/items/{productId} [put]
func (h *CartHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	productID, err := request.GetUUIDParam(r, "productId")
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid product ID")
		return
	}

	var input cart.UpdateItemInput
	if err := request.DecodeJSON(r, &input); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	c, err := h.service.UpdateItem(r.Context(), principal(r), productID, input)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	response.Success(w, c)
}

// RemoveItem handles DELETE /api/v1/cart/items/{productId}
// @Summary Remove a product from the cart
// @Tags Cart
// @Produce json
// @Security BearerAuth
// @Param productId path string true "Product ID (UUID)"
// @Success 200 {object} response.Envelope "Updated cart"
// @Failure 404 {object} response.ErrorBody "Product not in cart"
// @Router /cart/items/{productId} [delete]
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	productID, err := request.GetUUIDParam(r, "productId")
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid product ID")
		return
	}

	c, err := h.service.RemoveItem(r.Context(), principal(r), productID)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	response.Success(w, c)
}

// Clear handles DELETE /api/v1/cart
// @Summary Empty the cart
// @Tags Cart
// @Security BearerAuth
// @Success 204 "Cart emptied"
// @Router /cart [delete]
func (h *CartHandler) Clear(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Clear(r.Context(), principal(r)); err != nil {
		handleError(w, h.logger, err)
		return
	}

	response.NoContent(w)
}

// Checkout handles POST /api/v1/cart/checkout
// @Summary Place an order for the cart
// @Description Prices the cart lines from the catalog, places the order and empties the cart
// @Tags Cart
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param checkout body cart.CheckoutInput true "Billing, shipping and payment"
// @Success 201 {object} response.Envelope "Order created"
// @Failure 400 {object} response.ErrorBody "Empty cart or invalid order"
// @Failure 409 {object} response.ErrorBody "Order number could not be allocated"
// @Router /cart/checkout [post]
func (h *CartHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	var input cart.CheckoutInput
	if err := request.DecodeJSON(r, &input); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	o, err := h.service.Checkout(r.Context(), principal(r), input)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	response.Created(w, o)
}
