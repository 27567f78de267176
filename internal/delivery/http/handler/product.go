package handler

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/Pesokrava/plant_store/internal/delivery/http/request"
	"github.com/Pesokrava/plant_store/internal/delivery/http/response"
	"github.com/Pesokrava/plant_store/internal/domain"
	"github.com/Pesokrava/plant_store/internal/pkg/logger"
	"github.com/Pesokrava/plant_store/internal/usecase/product"
)

// ProductService is the catalog use case consumed by ProductHandler
type ProductService interface {
	Create(ctx context.Context, principal domain.Principal, input product.Input) (*domain.Product, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Product, error)
	List(ctx context.Context, principal domain.Principal, query product.ListQuery) ([]*domain.Product, int, error)
	Update(ctx context.Context, principal domain.Principal, id uuid.UUID, input product.Input) (*domain.Product, error)
	Delete(ctx context.Context, principal domain.Principal, id uuid.UUID) error
}

// ProductHandler handles HTTP requests for products
type ProductHandler struct {
	service ProductService
	logger  *logger.Logger
}

// NewProductHandler creates a new product handler
func NewProductHandler(service ProductService, log *logger.Logger) *ProductHandler {
	return &ProductHandler{
		service: service,
		logger:  log,
	}
}

// Create handles POST /api/v1/products
// @Summary Create a new product
// @Description Create a catalog product; the SKU is generated when omitted
// @Tags Products
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param product body product.Input true "Product details"
// @Success 201 {object} response.Envelope "Product created successfully"
// @Failure 400 {object} response.ErrorBody "Invalid request body"
// @Failure 403 {object} response.ErrorBody "Admin access required"
// @Failure 409 {object} response.ErrorBody "SKU already exists"
// @Router /products [post]
func (h *ProductHandler) Create(w http.ResponseWriter, r *http.Request) {
	var input product.Input
	if err := request.DecodeJSON(r, &input); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	p, err := h.service.Create(r.Context(), principal(r), input)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	response.Created(w, p)
}

// GetByID handles GET /api/v1/products/{id}
// @Summary Get a product by ID
// @Description Get a product with its cached rating fields
// @Tags Products
// @Produce json
// @Param id path string true "Product ID (UUID)"
// @Success 200 {object} response.Envelope "Product details"
// @Failure 400 {object} response.ErrorBody "Invalid product ID"
// @Failure 404 {object} response.ErrorBody "Product not found"
// @Router /products/{id} [get]
func (h *ProductHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, err := request.GetUUIDParam(r, "id")
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid product ID")
		return
	}

	p, err := h.service.GetByID(r.Context(), id)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	response.Success(w, p)
}

// List handles GET /api/v1/products
// @Summary List products
// @Description Get a filtered, paginated list of products
// @Tags Products
// @Produce json
// @Param category_id query string false "Category ID (UUID)"
// @Param search query string false "Search in name and description"
// @Param tag query string false "Tag"
// @Param min_price query string false "Minimum price"
// @Param max_price query string false "Maximum price"
// @Param include_inactive query bool false "Include inactive products (admin only)"
// @Param sort_by query string false "Sort field (created_at, price, name, rating)"
// @Param sort_order query string false "Sort order (asc, desc)"
// @Param limit query int false "Number of items per page" default(20)
// @Param offset query int false "Number of items to skip" default(0)
// @Success 200 {object} response.Envelope "List of products"
// @Failure 400 {object} response.ErrorBody "Invalid query"
// @Router /products [get]
func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, offset := request.GetPaginationParams(r)

	categoryID, err := request.GetOptionalUUIDQuery(r, "category_id")
	if err != nil {
		response.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	minPrice, err := request.GetOptionalDecimalQuery(r, "min_price")
	if err != nil {
		response.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	maxPrice, err := request.GetOptionalDecimalQuery(r, "max_price")
	if err != nil {
		response.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	query := r.URL.Query()
	products, total, err := h.service.List(r.Context(), principal(r), product.ListQuery{
		CategoryID:      categoryID,
		Search:          query.Get("search"),
		Tag:             query.Get("tag"),
		MinPrice:        minPrice,
		MaxPrice:        maxPrice,
		IncludeInactive: request.GetBoolQuery(r, "include_inactive"),
		SortBy:          query.Get("sort_by"),
		SortOrder:       query.Get("sort_order"),
		Limit:           limit,
		Offset:          offset,
	})
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	response.Paginated(w, products, total, limit, offset)
}

// Update handles PUT /api/v1/products/{id}
// @Summary Update a product
// @Tags Products
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Product ID (UUID)"
// @Param product body product.Input true "Updated product details"
// @Success 200 {object} response.Envelope "Product updated successfully"
// @Failure 400 {object} response.ErrorBody "Invalid request"
// @Failure 404 {object} response.ErrorBody "Product not found"
// @Failure 409 {object} response.ErrorBody "Product was modified by another request"
// @Router /products/{id} [put]
func (h *ProductHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := request.GetUUIDParam(r, "id")
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid product ID")
		return
	}

	var input product.Input
	if err := request.DecodeJSON(r, &input); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	p, err := h.service.Update(r.Context(), principal(r), id, input)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	response.Success(w, p)
}

// Delete handles DELETE /api/v1/products/{id}
// @Summary Delete a product
// @Description Soft delete a product and all its reviews
// @Tags Products
// @Security BearerAuth
// @Param id path string true "Product ID (UUID)"
// @Success 204 "Product deleted successfully"
// @Failure 400 {object} response.ErrorBody "Invalid product ID"
// @Failure 404 {object} response.ErrorBody "Product not found"
// @Router /products/{id} [delete]
func (h *ProductHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := request.GetUUIDParam(r, "id")
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid product ID")
		return
	}

	if err := h.service.Delete(r.Context(), principal(r), id); err != nil {
		handleError(w, h.logger, err)
		return
	}

	response.NoContent(w)
}
