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
	"github.com/Pesokrava/plant_store/internal/usecase/category"
)

// MockCategoryService is a mock implementation of CategoryService
type MockCategoryService struct {
	mock.Mock
}

func (m *MockCategoryService) one(args mock.Arguments) (*domain.Category, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Category), args.Error(1)
}

func (m *MockCategoryService) many(args mock.Arguments) ([]*domain.Category, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Category), args.Error(1)
}

func (m *MockCategoryService) Create(ctx context.Context, p domain.Principal, input category.Input) (*domain.Category, error) {
	return m.one(m.Called(ctx, p, input))
}

func (m *MockCategoryService) Get(ctx context.Context, id uuid.UUID) (*domain.Category, error) {
	return m.one(m.Called(ctx, id))
}

func (m *MockCategoryService) List(ctx context.Context) ([]*domain.Category, error) {
	return m.many(m.Called(ctx))
}

func (m *MockCategoryService) Tree(ctx context.Context) ([]*domain.CategoryNode, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.CategoryNode), args.Error(1)
}

func (m *MockCategoryService) Subcategories(ctx context.Context, id uuid.UUID) ([]*domain.Category, error) {
	return m.many(m.Called(ctx, id))
}

func (m *MockCategoryService) Hierarchy(ctx context.Context, id uuid.UUID) ([]*domain.Category, error) {
	return m.many(m.Called(ctx, id))
}

func (m *MockCategoryService) Update(ctx context.Context, p domain.Principal, id uuid.UUID, input category.Input) (*domain.Category, error) {
	return m.one(m.Called(ctx, p, id, input))
}

func newCategoryHandler() (*CategoryHandler, *MockCategoryService) {
	service := new(MockCategoryService)
	return NewCategoryHandler(service, logger.Nop()), service
}

func TestCategoryHandler_Create(t *testing.T) {
	handler, service := newCategoryHandler()

	service.On("Create", mock.Anything, admin, mock.MatchedBy(func(in category.Input) bool {
		return in.Name == "Succulents"
	})).Return(&domain.Category{ID: uuid.New(), Name: "Succulents", Slug: "succulents"}, nil)

	w := httptest.NewRecorder()
	handler.Create(w, testRequest(t, http.MethodPost, "/", map[string]interface{}{"name": "Succulents"}, nil, &admin))

	assert.Equal(t, http.StatusCreated, w.Code)
}

func TestCategoryHandler_Create_DuplicateName(t *testing.T) {
	handler, service := newCategoryHandler()

	service.On("Create", mock.Anything, admin, mock.Anything).Return(nil, fmt.Errorf("%w: category name", domain.ErrAlreadyExists))

	w := httptest.NewRecorder()
	handler.Create(w, testRequest(t, http.MethodPost, "/", map[string]interface{}{"name": "Succulents"}, nil, &admin))

	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestCategoryHandler_Tree(t *testing.T) {
	handler, service := newCategoryHandler()
	root := &domain.Category{ID: uuid.New(), Name: "Indoor"}
	child := &domain.Category{ID: uuid.New(), Name: "Ferns", ParentID: &root.ID}

	service.On("Tree", mock.Anything).Return([]*domain.CategoryNode{
		{Category: root, Children: []*domain.CategoryNode{{Category: child, Children: []*domain.CategoryNode{}}}},
	}, nil)

	w := httptest.NewRecorder()
	handler.Tree(w, testRequest(t, http.MethodGet, "/", nil, nil, nil))

	assert.Equal(t, http.StatusOK, w.Code)
	nodes := decodeBody(t, w)["data"].([]interface{})
	assert.Len(t, nodes, 1)
	children := nodes[0].(map[string]interface{})["children"].([]interface{})
	assert.Equal(t, "Ferns", children[0].(map[string]interface{})["name"])
}

func TestCategoryHandler_ByIDRoutes(t *testing.T) {
	handler, service := newCategoryHandler()
	id := uuid.New()

	service.On("Get", mock.Anything, id).Return(&domain.Category{ID: id}, nil)
	service.On("Subcategories", mock.Anything, id).Return([]*domain.Category{}, nil)
	service.On("Hierarchy", mock.Anything, id).Return(nil, domain.ErrNotFound)

	w := httptest.NewRecorder()
	handler.Get(w, testRequest(t, http.MethodGet, "/", nil, idParam(id), nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	handler.Subcategories(w, testRequest(t, http.MethodGet, "/", nil, idParam(id), nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	handler.Hierarchy(w, testRequest(t, http.MethodGet, "/", nil, idParam(id), nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = httptest.NewRecorder()
	handler.Get(w, testRequest(t, http.MethodGet, "/", nil, map[string]string{"id": "x"}, nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCategoryHandler_Update_Cycle(t *testing.T) {
	handler, service := newCategoryHandler()
	id := uuid.New()

	service.On("Update", mock.Anything, admin, id, mock.Anything).Return(nil, fmt.Errorf("%w: parent cycle", domain.ErrInvalidInput))

	w := httptest.NewRecorder()
	handler.Update(w, testRequest(t, http.MethodPut, "/", map[string]interface{}{"name": "Ferns", "parent_id": uuid.New()}, idParam(id), &admin))

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
