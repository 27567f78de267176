package wishlist

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Pesokrava/plant_store/internal/domain"
	"github.com/Pesokrava/plant_store/internal/pkg/logger"
)

type MockWishlistRepository struct {
	mock.Mock
}

func (m *MockWishlistRepository) Add(ctx context.Context, userID, productID uuid.UUID) error {
	args := m.Called(ctx, userID, productID)
	return args.Error(0)
}

func (m *MockWishlistRepository) Remove(ctx context.Context, userID, productID uuid.UUID) error {
	args := m.Called(ctx, userID, productID)
	return args.Error(0)
}

func (m *MockWishlistRepository) List(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*domain.WishlistItem, int, error) {
	args := m.Called(ctx, userID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]*domain.WishlistItem), args.Int(1), args.Error(2)
}

type MockProductRepository struct {
	domain.ProductRepository
	mock.Mock
}

func (m *MockProductRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Product), args.Error(1)
}

var customer = domain.Principal{UserID: uuid.New(), Role: domain.RoleCustomer}

func TestService_Add(t *testing.T) {
	repo, products := new(MockWishlistRepository), new(MockProductRepository)
	service := NewService(repo, products, logger.Nop())
	productID := uuid.New()

	products.On("GetByID", mock.Anything, productID).Return(&domain.Product{ID: productID}, nil)
	repo.On("Add", mock.Anything, customer.UserID, productID).Return(nil).Twice()

	require.NoError(t, service.Add(context.Background(), customer, productID))
	require.NoError(t, service.Add(context.Background(), customer, productID))
	repo.AssertExpectations(t)
}

func TestService_Add_UnknownProduct(t *testing.T) {
	repo, products := new(MockWishlistRepository), new(MockProductRepository)
	service := NewService(repo, products, logger.Nop())
	productID := uuid.New()

	products.On("GetByID", mock.Anything, productID).Return(nil, domain.ErrNotFound)

	err := service.Add(context.Background(), customer, productID)

	assert.ErrorIs(t, err, domain.ErrNotFound)
	repo.AssertNotCalled(t, "Add", mock.Anything, mock.Anything, mock.Anything)
}

func TestService_Remove_NotSaved(t *testing.T) {
	repo := new(MockWishlistRepository)
	service := NewService(repo, new(MockProductRepository), logger.Nop())
	productID := uuid.New()

	repo.On("Remove", mock.Anything, customer.UserID, productID).Return(domain.ErrNotFound)

	assert.ErrorIs(t, service.Remove(context.Background(), customer, productID), domain.ErrNotFound)
}

func TestService_List(t *testing.T) {
	repo := new(MockWishlistRepository)
	service := NewService(repo, new(MockProductRepository), logger.Nop())
	items := []*domain.WishlistItem{{UserID: customer.UserID, ProductID: uuid.New(), CreatedAt: time.Now()}}

	repo.On("List", mock.Anything, customer.UserID, 20, 0).Return(items, 1, nil)

	got, total, err := service.List(context.Background(), customer, 20, 0)

	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, items, got)
}

func TestService_RequiresPrincipal(t *testing.T) {
	service := NewService(new(MockWishlistRepository), new(MockProductRepository), logger.Nop())
	ctx := context.Background()

	assert.ErrorIs(t, service.Add(ctx, domain.Principal{}, uuid.New()), domain.ErrUnauthorized)
	assert.ErrorIs(t, service.Remove(ctx, domain.Principal{}, uuid.New()), domain.ErrUnauthorized)
	_, _, err := service.List(ctx, domain.Principal{}, 20, 0)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}
