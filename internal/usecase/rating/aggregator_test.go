package rating

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Pesokrava/plant_store/internal/domain"
	"github.com/Pesokrava/plant_store/internal/pkg/logger"
)

// MockRatingRepository is a mock implementation of domain.RatingRepository
type MockRatingRepository struct {
	mock.Mock
}

func (m *MockRatingRepository) ApprovedRatingStats(ctx context.Context, productID uuid.UUID) (domain.RatingStats, error) {
	args := m.Called(ctx, productID)
	return args.Get(0).(domain.RatingStats), args.Error(1)
}

func (m *MockRatingRepository) SetProductRating(ctx context.Context, productID uuid.UUID, average float64, quantity int) error {
	args := m.Called(ctx, productID, average, quantity)
	return args.Error(0)
}

// MockRatingCache is a mock implementation of RatingCache
type MockRatingCache struct {
	mock.Mock
}

func (m *MockRatingCache) SetProductRating(ctx context.Context, agg *domain.RatingAggregate) error {
	args := m.Called(ctx, agg)
	return args.Error(0)
}

func TestAverage(t *testing.T) {
	tests := []struct {
		name  string
		stats domain.RatingStats
		want  float64
	}{
		{"no ratings", domain.RatingStats{}, 0},
		{"five and four", domain.RatingStats{Count: 2, Sum: 9}, 4.5},
		{"rounds up to one decimal", domain.RatingStats{Count: 3, Sum: 5}, 1.7},
		{"rounds down to one decimal", domain.RatingStats{Count: 3, Sum: 4}, 1.3},
		{"all fives", domain.RatingStats{Count: 4, Sum: 20}, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Average(tt.stats))
		})
	}
}

func TestAggregator_Recompute_WritesAverageAndCount(t *testing.T) {
	repo := new(MockRatingRepository)
	cache := new(MockRatingCache)
	agg := NewAggregator(repo, cache, logger.Nop())
	productID := uuid.New()

	repo.On("ApprovedRatingStats", mock.Anything, productID).Return(domain.RatingStats{Count: 2, Sum: 9}, nil)
	repo.On("SetProductRating", mock.Anything, productID, 4.5, 2).Return(nil)
	cache.On("SetProductRating", mock.Anything, &domain.RatingAggregate{ProductID: productID, Average: 4.5, Quantity: 2}).Return(nil)

	result, err := agg.Recompute(context.Background(), productID)

	require.NoError(t, err)
	assert.Equal(t, 4.5, result.Average)
	assert.Equal(t, 2, result.Quantity)
	repo.AssertExpectations(t)
	cache.AssertExpectations(t)
}

func TestAggregator_Recompute_NoApprovedReviewsResetsToZero(t *testing.T) {
	repo := new(MockRatingRepository)
	agg := NewAggregator(repo, nil, logger.Nop())
	productID := uuid.New()

	repo.On("ApprovedRatingStats", mock.Anything, productID).Return(domain.RatingStats{}, nil)
	repo.On("SetProductRating", mock.Anything, productID, 0.0, 0).Return(nil)

	result, err := agg.Recompute(context.Background(), productID)

	require.NoError(t, err)
	assert.Equal(t, 0.0, result.Average)
	assert.Equal(t, 0, result.Quantity)
	repo.AssertExpectations(t)
}

func TestAggregator_Recompute_MissingProductIsSilentNoOp(t *testing.T) {
	repo := new(MockRatingRepository)
	cache := new(MockRatingCache)
	agg := NewAggregator(repo, cache, logger.Nop())
	productID := uuid.New()

	repo.On("ApprovedRatingStats", mock.Anything, productID).Return(domain.RatingStats{Count: 1, Sum: 3}, nil)
	repo.On("SetProductRating", mock.Anything, productID, 3.0, 1).Return(domain.ErrNotFound)

	result, err := agg.Recompute(context.Background(), productID)

	assert.NoError(t, err)
	assert.Nil(t, result)
	cache.AssertNotCalled(t, "SetProductRating", mock.Anything, mock.Anything)
}

func TestAggregator_Recompute_StoreErrorsPropagate(t *testing.T) {
	repo := new(MockRatingRepository)
	agg := NewAggregator(repo, nil, logger.Nop())
	productID := uuid.New()
	storeErr := errors.New("connection reset")

	repo.On("ApprovedRatingStats", mock.Anything, productID).Return(domain.RatingStats{}, storeErr)

	result, err := agg.Recompute(context.Background(), productID)

	assert.ErrorIs(t, err, storeErr)
	assert.Nil(t, result)
	repo.AssertNotCalled(t, "SetProductRating", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestAggregator_Recompute_WriteErrorPropagates(t *testing.T) {
	repo := new(MockRatingRepository)
	agg := NewAggregator(repo, nil, logger.Nop())
	productID := uuid.New()

	repo.On("ApprovedRatingStats", mock.Anything, productID).Return(domain.RatingStats{Count: 1, Sum: 4}, nil)
	repo.On("SetProductRating", mock.Anything, productID, 4.0, 1).Return(domain.ErrStoreUnavailable)

	_, err := agg.Recompute(context.Background(), productID)

	assert.ErrorIs(t, err, domain.ErrStoreUnavailable)
}

func TestAggregator_Recompute_CacheFailureDoesNotFail(t *testing.T) {
	repo := new(MockRatingRepository)
	cache := new(MockRatingCache)
	agg := NewAggregator(repo, cache, logger.Nop())
	productID := uuid.New()

	repo.On("ApprovedRatingStats", mock.Anything, productID).Return(domain.RatingStats{Count: 1, Sum: 5}, nil)
	repo.On("SetProductRating", mock.Anything, productID, 5.0, 1).Return(nil)
	cache.On("SetProductRating", mock.Anything, mock.Anything).Return(errors.New("redis down"))

	result, err := agg.Recompute(context.Background(), productID)

	require.NoError(t, err)
	assert.Equal(t, 5.0, result.Average)
}

func TestAggregator_Recompute_IsIdempotent(t *testing.T) {
	repo := new(MockRatingRepository)
	agg := NewAggregator(repo, nil, logger.Nop())
	productID := uuid.New()

	repo.On("ApprovedRatingStats", mock.Anything, productID).Return(domain.RatingStats{Count: 3, Sum: 12}, nil)
	repo.On("SetProductRating", mock.Anything, productID, 4.0, 3).Return(nil).Twice()

	first, err := agg.Recompute(context.Background(), productID)
	require.NoError(t, err)
	second, err := agg.Recompute(context.Background(), productID)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	repo.AssertExpectations(t)
}
