package handler

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/Pesokrava/plant_store/internal/delivery/http/request"
	"github.com/Pesokrava/plant_store/internal/delivery/http/response"
	"github.com/Pesokrava/plant_store/internal/domain"
	"github.com/Pesokrava/plant_store/internal/pkg/logger"
)

// WishlistService is consumed by WishlistHandler
type WishlistService interface {
	Add(ctx context.Context, principal domain.Principal, productID uuid.UUID) error
	Remove(ctx context.Context, principal domain.Principal, productID uuid.UUID) error
	List(ctx context.Context, principal domain.Principal, limit, offset int) ([]*domain.WishlistItem, int, error)
}

// WishlistHandler handles HTTP requests for the caller's wishlist
type WishlistHandler struct {
	service WishlistService
	logger  *logger.Logger
}

// NewWishlistHandler creates a new wishlist handler
func NewWishlistHandler(service WishlistService, log *logger.Logger) *WishlistHandler {
	return &WishlistHandler{
		service: service,
		logger:  log,
	}
}

// List handles GET /api/v1/users/me/wishlist
// @Summary List the caller's wishlist
// @Tags Wishlist
// @Produce json
// @Security BearerAuth
// @Param limit query int false "Number of items per page" default(20)
// @Param offset query int false "Number of items to skip" default(0)
// @Success 200 {object} response.Envelope "Saved products, newest first"
// @Router /users/me/wishlist [get]
func (h *WishlistHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, offset := request.GetPaginationParams(r)

	items, total, err := h.service.List(r.Context(), principal(r), limit, offset)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	response.Paginated(w, items, total, limit, offset)
}

// Add handles POST /api/v1/users/me/wishlist/{productId}
// @Summary Save a product to the wishlist
// @Tags Wishlist
// @Security BearerAuth
// @Param productId path string true "Product ID (UUID)"
// @Success 204 "Product saved"
// @Failure 404 {object} response.ErrorBody "Product not found"
// @Router /users/me/wishlist/{productId} [post]
func (h *WishlistHandler) Add(w http.ResponseWriter, r *http.Request) {
	productID, err := request.GetUUIDParam(r, "productId")
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid product ID")
		return
	}

	if err := h.service.Add(r.Context(), principal(r), productID); err != nil {
		handleError(w, h.logger, err)
		return
	}

	response.NoContent(w)
}

// Remove handles DELETE /api/v1/users/me/wishlist/{productId}
// @Summary Remove a product from the wishlist
// @Tags Wishlist
// @Security BearerAuth
// @Param productId path string true "Product ID (UUID)"
// @Success 204 "Product removed"
// @Failure 404 {object} response.ErrorBody "Product not saved"
// @Router /users/me/wishlist/{productId} [delete]
func (h *WishlistHandler) Remove(w http.ResponseWriter, r *http.Request) {
	productID, err := request.GetUUIDParam(r, "productId")
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid product ID")
		return
	}

	if err := h.service.Remove(r.Context(), principal(r), productID); err != nil {
		handleError(w, h.logger, err)
		return
	}

	response.NoContent(w)
}
