package handler

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/Pesokrava/plant_store/internal/delivery/http/request"
	"github.com/Pesokrava/plant_store/internal/delivery/http/response"
	"github.com/Pesokrava/plant_store/internal/domain"
	"github.com/Pesokrava/plant_store/internal/pkg/logger"
	"github.com/Pesokrava/plant_store/internal/usecase/category"
)

// CategoryService is the category use case consumed by CategoryHandler
type CategoryService interface {
	Create(ctx context.Context, principal domain.Principal, input category.Input) (*domain.Category, error)
	Get(ctx context.Context, id uuid.UUID) (*domain.Category, error)
	List(ctx context.Context) ([]*domain.Category, error)
	Tree(ctx context.Context) ([]*domain.CategoryNode, error)
	Subcategories(ctx context.Context, id uuid.UUID) ([]*domain.Category, error)
	Hierarchy(ctx context.Context, id uuid.UUID) ([]*domain.Category, error)
	Update(ctx context.Context, principal domain.Principal, id uuid.UUID, input category.Input) (*domain.Category, error)
}

// CategoryHandler handles HTTP requests for categories
type CategoryHandler struct {
	service CategoryService
	logger  *logger.Logger
}

// NewCategoryHandler creates a new category handler
func NewCategoryHandler(service CategoryService, log *logger.Logger) *CategoryHandler {
	return &CategoryHandler{
		service: service,
		logger:  log,
	}
}

// Create handles POST /api/v1/categories
// @Summary Create a category
// @Tags Categories
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param category body category.Input true "Category details"
// @Success 201 {object} response.Envelope "Category created"
// @Failure 400 {object} response.ErrorBody "Invalid request body"
// @Failure 409 {object} response.ErrorBody "Name already exists"
// @Router /categories [post]
func (h *CategoryHandler) Create(w http.ResponseWriter, r *http.Request) {
	var input category.Input
	if err := request.DecodeJSON(r, &input); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	c, err := h.service.Create(r.Context(), principal(r), input)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	response.Created(w, c)
}

// List handles GET /api/v1/categories
// @Summary List active categories
// @Tags Categories
// @Produce json
// @Success 200 {object} response.Envelope "Categories"
// @Router /categories [get]
func (h *CategoryHandler) List(w http.ResponseWriter, r *http.Request) {
	categories, err := h.service.List(r.Context())
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	response.Success(w, categories)
}

// Tree handles GET /api/v1/categories/tree
// @Summary Get the category tree
// @Tags Categories
// @Produce json
// @Success 200 {object} response.Envelope "Root categories with nested children"
// @Router /categories/tree [get]
func (h *CategoryHandler) Tree(w http.ResponseWriter, r *http.Request) {
	tree, err := h.service.Tree(r.Context())
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	response.Success(w, tree)
}

// Get handles GET /api/v1/categories/{id}
// @Summary Get a category
// @Tags Categories
// @Produce json
// @Param id path string true "Category ID (UUID)"
// @Success 200 {object} response.Envelope "Category"
// @Failure 404 {object} response.ErrorBody "Category not found"
// @Router /categories/{id} [get]
func (h *CategoryHandler) Get(w http.ResponseWriter, r *http.Request) {
	h.byID(w, r, func(ctx context.Context, id uuid.UUID) (interface{}, error) {
		return h.service.Get(ctx, id)
	})
}

// Subcategories handles GET /api/v1/categories/{id}/subcategories
// @Summary List every descendant of a category
// @Tags Categories
// @Produce json
// @Param id path string true "Category ID (UUID)"
// @Success 200 {object} response.Envelope "Descendants in breadth-first order"
// @Failure 404 {object} response.ErrorBody "Category not found"
// @Router /categories/{id}/subcategories [get]
func (h *CategoryHandler) Subcategories(w http.ResponseWriter, r *http.Request) {
	h.byID(w, r, func(ctx context.Context, id uuid.UUID) (interface{}, error) {
		return h.service.Subcategories(ctx, id)
	})
}

// Hierarchy handles GET /api/v1/categories/{id}/hierarchy
// @Summary Get the path from the root to a category
// @Tags Categories
// @Produce json
// @Param id path string true "Category ID (UUID)"
// @Success 200 {object} response.Envelope "Ancestors, root first"
// @Failure 404 {object} response.ErrorBody "Category not found"
// @Router /categories/{id}/hierarchy [get]
func (h *CategoryHandler) Hierarchy(w http.ResponseWriter, r *http.Request) {
	h.byID(w, r, func(ctx context.Context, id uuid.UUID) (interface{}, error) {
		return h.service.Hierarchy(ctx, id)
	})
}

// Update handles PUT /api/v1/categories/{id}
// @Summary Update a category
// @Tags Categories
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Category ID (UUID)"
// @Param category body category.Input true "Category details"
// @Success 200 {object} response.Envelope "Category updated"
// @Failure 400 {object} response.ErrorBody "Invalid request or parent cycle"
// @Failure 404 {object} response.ErrorBody "Category not found"
// @Router /categories/{id} [put]
func (h *CategoryHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := request.GetUUIDParam(r, "id")
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid category ID")
		return
	}

	var input category.Input
	if err := request.DecodeJSON(r, &input); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	c, err := h.service.Update(r.Context(), principal(r), id, input)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	response.Success(w, c)
}

func (h *CategoryHandler) byID(w http.ResponseWriter, r *http.Request, fn func(context.Context, uuid.UUID) (interface{}, error)) {
	id, err := request.GetUUIDParam(r, "id")
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid category ID")
		return
	}

	data, err := fn(r.Context(), id)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	response.Success(w, data)
}
