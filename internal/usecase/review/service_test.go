package review

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Pesokrava/plant_store/internal/config"
	"github.com/Pesokrava/plant_store/internal/domain"
	"github.com/Pesokrava/plant_store/internal/pkg/logger"
	"github.com/Pesokrava/plant_store/internal/repository/cache"
)

// MockReviewRepository is a mock implementation of domain.ReviewRepository
type MockReviewRepository struct {
	mock.Mock
}

func (m *MockReviewRepository) Create(ctx context.Context, review *domain.Review) error {
	args := m.Called(ctx, review)
	return args.Error(0)
}

func (m *MockReviewRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Review, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Review), args.Error(1)
}

func (m *MockReviewRepository) ExistsForUser(ctx context.Context, productID, userID uuid.UUID) (bool, error) {
	args := m.Called(ctx, productID, userID)
	return args.Bool(0), args.Error(1)
}

func (m *MockReviewRepository) List(ctx context.Context, filter domain.ReviewFilter) ([]*domain.Review, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Review), args.Error(1)
}

func (m *MockReviewRepository) Count(ctx context.Context, filter domain.ReviewFilter) (int, error) {
	args := m.Called(ctx, filter)
	return args.Int(0), args.Error(1)
}

func (m *MockReviewRepository) Update(ctx context.Context, review *domain.Review) error {
	args := m.Called(ctx, review)
	return args.Error(0)
}

func (m *MockReviewRepository) Edit(ctx context.Context, review *domain.Review, edit domain.ReviewEdit) error {
	args := m.Called(ctx, review, edit)
	return args.Error(0)
}

func (m *MockReviewRepository) UpsertVote(ctx context.Context, reviewID, userID uuid.UUID, vote domain.VoteType, at time.Time) error {
	args := m.Called(ctx, reviewID, userID, vote, at)
	return args.Error(0)
}

func (m *MockReviewRepository) DeleteVote(ctx context.Context, reviewID, userID uuid.UUID) error {
	args := m.Called(ctx, reviewID, userID)
	return args.Error(0)
}

func (m *MockReviewRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockReviewRepository) DeleteByProductID(ctx context.Context, productID uuid.UUID) error {
	args := m.Called(ctx, productID)
	return args.Error(0)
}

func (m *MockReviewRepository) Summary(ctx context.Context, productID uuid.UUID) (*domain.ReviewSummary, error) {
	args := m.Called(ctx, productID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ReviewSummary), args.Error(1)
}

// MockProductRepository mocks the catalog lookups the review service makes
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

// MockOrderRepository mocks the order lookups the review service makes
type MockOrderRepository struct {
	domain.OrderRepository
	mock.Mock
}

func (m *MockOrderRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Order), args.Error(1)
}

// MockAggregator is a mock implementation of RatingAggregator
type MockAggregator struct {
	mock.Mock
}

func (m *MockAggregator) Recompute(ctx context.Context, productID uuid.UUID) (*domain.RatingAggregate, error) {
	args := m.Called(ctx, productID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.RatingAggregate), args.Error(1)
}

// MockReviewCache is a mock implementation of ReviewCache
type MockReviewCache struct {
	mock.Mock
}

func (m *MockReviewCache) GetReviewsList(ctx context.Context, productID uuid.UUID, filter domain.ReviewFilter) (*cache.ReviewPage, error) {
	args := m.Called(ctx, productID, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*cache.ReviewPage), args.Error(1)
}

func (m *MockReviewCache) SetReviewsList(ctx context.Context, productID uuid.UUID, filter domain.ReviewFilter, page *cache.ReviewPage) error {
	args := m.Called(ctx, productID, filter, page)
	return args.Error(0)
}

func (m *MockReviewCache) InvalidateAllProductCache(ctx context.Context, productID uuid.UUID) error {
	args := m.Called(ctx, productID)
	return args.Error(0)
}

// MockEventPublisher is a mock implementation of EventPublisher
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(ctx context.Context, subject string, data []byte) error {
	args := m.Called(ctx, subject, data)
	return args.Error(0)
}

type mocks struct {
	reviews    *MockReviewRepository
	products   *MockProductRepository
	orders     *MockOrderRepository
	aggregator *MockAggregator
	cache      *MockReviewCache
	publisher  *MockEventPublisher
}

var testNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func newTestService(autoApprove bool) (*Service, *mocks) {
	m := &mocks{
		reviews:    new(MockReviewRepository),
		products:   new(MockProductRepository),
		orders:     new(MockOrderRepository),
		aggregator: new(MockAggregator),
		cache:      new(MockReviewCache),
		publisher:  new(MockEventPublisher),
	}
	m.publisher.On("Publish", mock.Anything, EventsSubject, mock.Anything).Return(nil).Maybe()

	service := NewService(
		m.reviews, m.products, m.orders, m.aggregator, m.cache, m.publisher,
		config.ReviewsConfig{AutoApprove: autoApprove},
		logger.Nop(),
		WithClock(func() time.Time { return testNow }),
	)
	return service, m
}

var (
	author   = domain.Principal{UserID: uuid.New(), Role: domain.RoleCustomer}
	stranger = domain.Principal{UserID: uuid.New(), Role: domain.RoleCustomer}
	admin    = domain.Principal{UserID: uuid.New(), Role: domain.RoleAdmin}
)

func validSubmit(productID uuid.UUID) SubmitInput {
	return SubmitInput{
		ProductID: productID,
		Rating:    4,
		Title:     "Thriving after a month",
		Comment:   "Arrived well packed and has put out two new leaves.",
		Pros:      []string{"healthy roots", " healthy roots ", "fast shipping", ""},
		Cons:      []string{"small pot"},
	}
}

func existingReview(rating int, approved bool) *domain.Review {
	return &domain.Review{
		ID:         uuid.New(),
		ProductID:  uuid.New(),
		UserID:     author.UserID,
		Rating:     rating,
		Title:      "Original title",
		Comment:    "Original comment",
		IsApproved: approved,
		Version:    1,
	}
}

func TestService_Submit_Success(t *testing.T) {
	service, m := newTestService(true)
	productID := uuid.New()

	m.products.On("GetByID", mock.Anything, productID).Return(&domain.Product{ID: productID, IsActive: true}, nil)
	m.reviews.On("ExistsForUser", mock.Anything, productID, author.UserID).Return(false, nil)
	m.reviews.On("Create", mock.Anything, mock.MatchedBy(func(r *domain.Review) bool {
		return r.ProductID == productID && r.UserID == author.UserID && r.IsApproved && !r.IsVerifiedPurchase
	})).Return(nil)
	m.aggregator.On("Recompute", mock.Anything, productID).Return(&domain.RatingAggregate{ProductID: productID, Average: 4, Quantity: 1}, nil)
	m.cache.On("InvalidateAllProductCache", mock.Anything, productID).Return(nil)

	review, err := service.Submit(context.Background(), author, validSubmit(productID))

	require.NoError(t, err)
	assert.Equal(t, []string{"healthy roots", "fast shipping"}, review.Pros)
	assert.Equal(t, testNow, review.CreatedAt)
	assert.Empty(t, review.HelpfulVotes.Positive)
	m.reviews.AssertExpectations(t)
	m.aggregator.AssertExpectations(t)
	m.cache.AssertExpectations(t)
}

func TestService_Submit_PendingWhenAutoApproveOff(t *testing.T) {
	service, m := newTestService(false)
	productID := uuid.New()

	m.products.On("GetByID", mock.Anything, productID).Return(&domain.Product{ID: productID}, nil)
	m.reviews.On("ExistsForUser", mock.Anything, productID, author.UserID).Return(false, nil)
	m.reviews.On("Create", mock.Anything, mock.Anything).Return(nil)
	m.aggregator.On("Recompute", mock.Anything, productID).Return(&domain.RatingAggregate{ProductID: productID}, nil)
	m.cache.On("InvalidateAllProductCache", mock.Anything, productID).Return(nil)

	review, err := service.Submit(context.Background(), author, validSubmit(productID))

	require.NoError(t, err)
	assert.False(t, review.IsApproved)
}

func TestService_Submit_InvalidInput(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*SubmitInput)
	}{
		{"rating zero", func(in *SubmitInput) { in.Rating = 0 }},
		{"rating six", func(in *SubmitInput) { in.Rating = 6 }},
		{"blank title", func(in *SubmitInput) { in.Title = "   " }},
		{"title too long", func(in *SubmitInput) { in.Title = strings.Repeat("a", 201) }},
		{"comment too long", func(in *SubmitInput) { in.Comment = strings.Repeat("a", 1001) }},
		{"pro too long", func(in *SubmitInput) { in.Pros = []string{strings.Repeat("a", 201)} }},
		{"image without url", func(in *SubmitInput) { in.Images = []domain.ReviewImage{{Alt: "leaf"}} }},
		{"unknown experience level", func(in *SubmitInput) { in.ReviewerInfo.ExperienceLevel = "wizard" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service, m := newTestService(true)
			input := validSubmit(uuid.New())
			tt.mutate(&input)

			_, err := service.Submit(context.Background(), author, input)

			assert.ErrorIs(t, err, domain.ErrInvalidInput)
			m.reviews.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
		})
	}
}

func TestService_Submit_ProductMissing(t *testing.T) {
	service, m := newTestService(true)
	productID := uuid.New()

	m.products.On("GetByID", mock.Anything, productID).Return(nil, domain.ErrNotFound)

	_, err := service.Submit(context.Background(), author, validSubmit(productID))

	assert.ErrorIs(t, err, domain.ErrNotFound)
	m.reviews.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestService_Submit_Duplicate(t *testing.T) {
	service, m := newTestService(true)
	productID := uuid.New()

	m.products.On("GetByID", mock.Anything, productID).Return(&domain.Product{ID: productID}, nil)
	m.reviews.On("ExistsForUser", mock.Anything, productID, author.UserID).Return(true, nil)

	_, err := service.Submit(context.Background(), author, validSubmit(productID))

	assert.ErrorIs(t, err, domain.ErrDuplicateReview)
	m.reviews.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestService_Submit_DuplicateRaceFromStore(t *testing.T) {
	service, m := newTestService(true)
	productID := uuid.New()

	m.products.On("GetByID", mock.Anything, productID).Return(&domain.Product{ID: productID}, nil)
	m.reviews.On("ExistsForUser", mock.Anything, productID, author.UserID).Return(false, nil)
	m.reviews.On("Create", mock.Anything, mock.Anything).Return(domain.ErrDuplicateReview)

	_, err := service.Submit(context.Background(), author, validSubmit(productID))

	assert.ErrorIs(t, err, domain.ErrDuplicateReview)
	m.aggregator.AssertNotCalled(t, "Recompute", mock.Anything, mock.Anything)
}

func TestService_Submit_VerifiedPurchase(t *testing.T) {
	productID := uuid.New()
	orderID := uuid.New()

	tests := []struct {
		name     string
		order    *domain.Order
		orderErr error
		wantErr  error
	}{
		{
			name:  "own order with product",
			order: &domain.Order{ID: orderID, UserID: author.UserID, Items: []domain.OrderItem{{ProductID: productID, Quantity: 1}}},
		},
		{
			name:     "order missing",
			orderErr: domain.ErrNotFound,
			wantErr:  domain.ErrNotFound,
		},
		{
			name:    "someone else's order",
			order:   &domain.Order{ID: orderID, UserID: stranger.UserID, Items: []domain.OrderItem{{ProductID: productID, Quantity: 1}}},
			wantErr: domain.ErrInvalidInput,
		},
		{
			name:    "order without product",
			order:   &domain.Order{ID: orderID, UserID: author.UserID, Items: []domain.OrderItem{{ProductID: uuid.New(), Quantity: 1}}},
			wantErr: domain.ErrInvalidInput,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service, m := newTestService(true)
			m.products.On("GetByID", mock.Anything, productID).Return(&domain.Product{ID: productID}, nil)
			m.reviews.On("ExistsForUser", mock.Anything, productID, author.UserID).Return(false, nil)
			if tt.order != nil {
				m.orders.On("GetByID", mock.Anything, orderID).Return(tt.order, nil)
			} else {
				m.orders.On("GetByID", mock.Anything, orderID).Return(nil, tt.orderErr)
			}
			m.reviews.On("Create", mock.Anything, mock.Anything).Return(nil).Maybe()
			m.aggregator.On("Recompute", mock.Anything, productID).Return(&domain.RatingAggregate{}, nil).Maybe()
			m.cache.On("InvalidateAllProductCache", mock.Anything, productID).Return(nil).Maybe()

			input := validSubmit(productID)
			input.OrderID = &orderID
			review, err := service.Submit(context.Background(), author, input)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				m.reviews.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
				return
			}
			require.NoError(t, err)
			assert.True(t, review.IsVerifiedPurchase)
		})
	}
}

func TestService_Submit_AggregatorErrorPropagates(t *testing.T) {
	service, m := newTestService(true)
	productID := uuid.New()

	m.products.On("GetByID", mock.Anything, productID).Return(&domain.Product{ID: productID}, nil)
	m.reviews.On("ExistsForUser", mock.Anything, productID, author.UserID).Return(false, nil)
	m.reviews.On("Create", mock.Anything, mock.Anything).Return(nil)
	m.aggregator.On("Recompute", mock.Anything, productID).Return(nil, domain.ErrStoreUnavailable)

	_, err := service.Submit(context.Background(), author, validSubmit(productID))

	assert.ErrorIs(t, err, domain.ErrStoreUnavailable)
}

func TestService_Submit_RequiresPrincipal(t *testing.T) {
	service, _ := newTestService(true)

	_, err := service.Submit(context.Background(), domain.Principal{}, validSubmit(uuid.New()))

	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestService_Edit_RecordsHistoryAndRecomputes(t *testing.T) {
	service, m := newTestService(true)
	review := existingReview(2, true)
	newRating := 5
	newTitle := "  Much better now  "

	m.reviews.On("GetByID", mock.Anything, review.ID).Return(review, nil)
	m.reviews.On("Edit", mock.Anything, mock.MatchedBy(func(r *domain.Review) bool {
		return r.Rating == 5 && r.Title == "Much better now" && r.Comment == "Original comment"
	}), domain.ReviewEdit{
		EditedAt: testNow,
		Reason:   "plant recovered",
		EditedBy: author.UserID,
		Previous: domain.ReviewSnapshot{Title: "Original title", Comment: "Original comment", Rating: 2},
	}).Return(nil)
	m.aggregator.On("Recompute", mock.Anything, review.ProductID).Return(&domain.RatingAggregate{}, nil)
	m.cache.On("InvalidateAllProductCache", mock.Anything, review.ProductID).Return(nil)

	updated, err := service.Edit(context.Background(), author, review.ID, EditInput{
		Title:  &newTitle,
		Rating: &newRating,
		Reason: "plant recovered",
	})

	require.NoError(t, err)
	assert.Equal(t, 5, updated.Rating)
	assert.Equal(t, 2, review.Rating)
	m.reviews.AssertExpectations(t)
	m.aggregator.AssertExpectations(t)
}

func TestService_Edit_SameRatingSkipsRecompute(t *testing.T) {
	service, m := newTestService(true)
	review := existingReview(4, true)
	comment := "Still doing well"

	m.reviews.On("GetByID", mock.Anything, review.ID).Return(review, nil)
	m.reviews.On("Edit", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	m.cache.On("InvalidateAllProductCache", mock.Anything, review.ProductID).Return(nil)

	_, err := service.Edit(context.Background(), author, review.ID, EditInput{Comment: &comment})

	require.NoError(t, err)
	m.aggregator.AssertNotCalled(t, "Recompute", mock.Anything, mock.Anything)
}

func TestService_Edit_OnlyAuthor(t *testing.T) {
	service, m := newTestService(true)
	review := existingReview(4, true)
	comment := "Not mine"

	m.reviews.On("GetByID", mock.Anything, review.ID).Return(review, nil)

	_, err := service.Edit(context.Background(), stranger, review.ID, EditInput{Comment: &comment})
	assert.ErrorIs(t, err, domain.ErrForbidden)

	_, err = service.Edit(context.Background(), admin, review.ID, EditInput{Comment: &comment})
	assert.ErrorIs(t, err, domain.ErrForbidden)

	m.reviews.AssertNotCalled(t, "Edit", mock.Anything, mock.Anything, mock.Anything)
}

func TestService_Edit_InvalidRating(t *testing.T) {
	service, m := newTestService(true)
	bad := 9

	_, err := service.Edit(context.Background(), author, uuid.New(), EditInput{Rating: &bad})

	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	m.reviews.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
}

func TestService_Edit_ReasonTooLong(t *testing.T) {
	service, m := newTestService(true)
	comment := "Updated"

	_, err := service.Edit(context.Background(), author, uuid.New(), EditInput{
		Comment: &comment,
		Reason:  strings.Repeat("r", 300),
	})

	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Contains(t, err.Error(), "reason must be at most 200")
	m.reviews.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
}

func TestService_Vote(t *testing.T) {
	service, m := newTestService(true)
	review := existingReview(4, true)
	voted := *review
	voted.HelpfulVotes.Positive = []domain.Vote{{UserID: stranger.UserID, VotedAt: testNow}}

	m.reviews.On("GetByID", mock.Anything, review.ID).Return(review, nil).Once()
	m.reviews.On("UpsertVote", mock.Anything, review.ID, stranger.UserID, domain.VotePositive, testNow).Return(nil)
	m.cache.On("InvalidateAllProductCache", mock.Anything, review.ProductID).Return(nil)
	m.reviews.On("GetByID", mock.Anything, review.ID).Return(&voted, nil).Once()

	result, err := service.Vote(context.Background(), stranger, review.ID, "positive")

	require.NoError(t, err)
	assert.Equal(t, 1, result.HelpfulScore())
	m.reviews.AssertExpectations(t)
}

func TestService_Vote_ChangedMindKeepsSingleVote(t *testing.T) {
	service, m := newTestService(true)
	review := existingReview(4, true)

	// The store keeps one vote per (review, user); replay that on the shared review.
	m.reviews.On("GetByID", mock.Anything, review.ID).Return(review, nil)
	m.reviews.On("UpsertVote", mock.Anything, review.ID, stranger.UserID, mock.Anything, testNow).
		Run(func(args mock.Arguments) {
			vote := args.Get(3).(domain.VoteType)
			review.HelpfulVotes.Positive = nil
			review.HelpfulVotes.Negative = nil
			entry := []domain.Vote{{UserID: stranger.UserID, VotedAt: testNow}}
			if vote == domain.VotePositive {
				review.HelpfulVotes.Positive = entry
			} else {
				review.HelpfulVotes.Negative = entry
			}
		}).Return(nil)
	m.cache.On("InvalidateAllProductCache", mock.Anything, review.ProductID).Return(nil)

	var result *domain.Review
	for _, vote := range []string{"positive", "negative", "positive"} {
		var err error
		result, err = service.Vote(context.Background(), stranger, review.ID, vote)
		require.NoError(t, err)
	}

	assert.Len(t, result.HelpfulVotes.Positive, 1)
	assert.Empty(t, result.HelpfulVotes.Negative)
	assert.Equal(t, 1, result.HelpfulScore())
	m.reviews.AssertNumberOfCalls(t, "UpsertVote", 3)
	m.reviews.AssertNotCalled(t, "DeleteVote", mock.Anything, mock.Anything, mock.Anything)
}

func TestService_Vote_InvalidType(t *testing.T) {
	service, m := newTestService(true)

	_, err := service.Vote(context.Background(), stranger, uuid.New(), "meh")

	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	m.reviews.AssertNotCalled(t, "UpsertVote", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestService_RemoveVote_NoVote(t *testing.T) {
	service, m := newTestService(true)
	review := existingReview(4, true)

	m.reviews.On("GetByID", mock.Anything, review.ID).Return(review, nil)
	m.reviews.On("DeleteVote", mock.Anything, review.ID, stranger.UserID).Return(domain.ErrNotFound)

	_, err := service.RemoveVote(context.Background(), stranger, review.ID)

	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestService_Approve_FlipRecomputes(t *testing.T) {
	service, m := newTestService(false)
	review := existingReview(3, false)

	m.reviews.On("GetByID", mock.Anything, review.ID).Return(review, nil)
	m.reviews.On("Update", mock.Anything, mock.MatchedBy(func(r *domain.Review) bool {
		return r.IsApproved && strings.HasPrefix(r.ModerationNotes, "Approved by admin "+admin.UserID.String())
	})).Return(nil)
	m.aggregator.On("Recompute", mock.Anything, review.ProductID).Return(&domain.RatingAggregate{}, nil)
	m.cache.On("InvalidateAllProductCache", mock.Anything, review.ProductID).Return(nil)

	updated, err := service.Approve(context.Background(), admin, review.ID)

	require.NoError(t, err)
	assert.True(t, updated.IsApproved)
	assert.Contains(t, updated.ModerationNotes, "2024-05-01T12:00:00Z")
	m.aggregator.AssertExpectations(t)
}

func TestService_Approve_AlreadyApprovedSkipsRecompute(t *testing.T) {
	service, m := newTestService(true)
	review := existingReview(3, true)

	m.reviews.On("GetByID", mock.Anything, review.ID).Return(review, nil)
	m.reviews.On("Update", mock.Anything, mock.Anything).Return(nil)
	m.cache.On("InvalidateAllProductCache", mock.Anything, review.ProductID).Return(nil)

	_, err := service.Approve(context.Background(), admin, review.ID)

	require.NoError(t, err)
	m.aggregator.AssertNotCalled(t, "Recompute", mock.Anything, mock.Anything)
}

func TestService_Reject_AppendsNote(t *testing.T) {
	service, m := newTestService(true)
	review := existingReview(1, true)
	review.ModerationNotes = "Approved by admin x at y"

	m.reviews.On("GetByID", mock.Anything, review.ID).Return(review, nil)
	m.reviews.On("Update", mock.Anything, mock.Anything).Return(nil)
	m.aggregator.On("Recompute", mock.Anything, review.ProductID).Return(&domain.RatingAggregate{}, nil)
	m.cache.On("InvalidateAllProductCache", mock.Anything, review.ProductID).Return(nil)

	updated, err := service.Reject(context.Background(), admin, review.ID, "off-topic")

	require.NoError(t, err)
	assert.False(t, updated.IsApproved)
	assert.Equal(t, "Approved by admin x at y\nRejected by admin "+admin.UserID.String()+": off-topic", updated.ModerationNotes)
}

func TestService_Moderation_RequiresAdmin(t *testing.T) {
	service, m := newTestService(true)
	id := uuid.New()
	ctx := context.Background()

	_, err := service.Approve(ctx, author, id)
	assert.ErrorIs(t, err, domain.ErrForbidden)
	_, err = service.Reject(ctx, author, id, "spam")
	assert.ErrorIs(t, err, domain.ErrForbidden)
	_, err = service.Respond(ctx, author, id, "thanks")
	assert.ErrorIs(t, err, domain.ErrForbidden)
	_, err = service.VerifyPurchase(ctx, author, id)
	assert.ErrorIs(t, err, domain.ErrForbidden)
	_, _, err = service.ListAll(ctx, author, ListQuery{})
	assert.ErrorIs(t, err, domain.ErrForbidden)

	m.reviews.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
}

func TestService_Report_DeduplicatesReasons(t *testing.T) {
	service, m := newTestService(true)
	review := existingReview(5, true)
	review.ReportReasons = []domain.ReportReason{domain.ReportSpam}

	m.reviews.On("GetByID", mock.Anything, review.ID).Return(review, nil)
	m.reviews.On("Update", mock.Anything, mock.Anything).Return(nil)
	m.cache.On("InvalidateAllProductCache", mock.Anything, review.ProductID).Return(nil)

	updated, err := service.Report(context.Background(), stranger, review.ID, "spam")
	require.NoError(t, err)
	assert.True(t, updated.IsReported)
	assert.Equal(t, []domain.ReportReason{domain.ReportSpam}, updated.ReportReasons)

	updated, err = service.Report(context.Background(), stranger, review.ID, "fake")
	require.NoError(t, err)
	assert.Equal(t, []domain.ReportReason{domain.ReportSpam, domain.ReportFake}, updated.ReportReasons)

	_, err = service.Report(context.Background(), stranger, review.ID, "boring")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestService_Respond(t *testing.T) {
	service, m := newTestService(true)
	review := existingReview(2, true)

	m.reviews.On("GetByID", mock.Anything, review.ID).Return(review, nil)
	m.reviews.On("Update", mock.Anything, mock.Anything).Return(nil)
	m.cache.On("InvalidateAllProductCache", mock.Anything, review.ProductID).Return(nil)

	updated, err := service.Respond(context.Background(), admin, review.ID, "Sorry to hear that, a replacement is on its way.")

	require.NoError(t, err)
	require.NotNil(t, updated.AdminResponse)
	assert.Equal(t, admin.UserID, updated.AdminResponse.RespondedBy)
	assert.Equal(t, testNow, updated.AdminResponse.RespondedAt)

	_, err = service.Respond(context.Background(), admin, review.ID, strings.Repeat("x", 501))
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestService_VerifyPurchase_NeverClears(t *testing.T) {
	service, m := newTestService(true)
	review := existingReview(4, true)
	review.IsVerifiedPurchase = true

	m.reviews.On("GetByID", mock.Anything, review.ID).Return(review, nil)

	updated, err := service.VerifyPurchase(context.Background(), admin, review.ID)

	require.NoError(t, err)
	assert.True(t, updated.IsVerifiedPurchase)
	m.reviews.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
}

func TestService_Remove(t *testing.T) {
	tests := []struct {
		name      string
		principal domain.Principal
		wantErr   error
	}{
		{"author", author, nil},
		{"admin", admin, nil},
		{"stranger", stranger, domain.ErrForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service, m := newTestService(true)
			review := existingReview(4, true)

			m.reviews.On("GetByID", mock.Anything, review.ID).Return(review, nil)
			m.reviews.On("Delete", mock.Anything, review.ID).Return(nil).Maybe()
			m.aggregator.On("Recompute", mock.Anything, review.ProductID).Return(&domain.RatingAggregate{}, nil).Maybe()
			m.cache.On("InvalidateAllProductCache", mock.Anything, review.ProductID).Return(nil).Maybe()

			err := service.Remove(context.Background(), tt.principal, review.ID)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				m.reviews.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
				return
			}
			require.NoError(t, err)
			m.aggregator.AssertCalled(t, "Recompute", mock.Anything, review.ProductID)
		})
	}
}

func TestService_Remove_CacheInvalidationFailureIsNotFatal(t *testing.T) {
	service, m := newTestService(true)
	review := existingReview(4, true)

	m.reviews.On("GetByID", mock.Anything, review.ID).Return(review, nil)
	m.reviews.On("Delete", mock.Anything, review.ID).Return(nil)
	m.aggregator.On("Recompute", mock.Anything, review.ProductID).Return(&domain.RatingAggregate{}, nil)
	m.cache.On("InvalidateAllProductCache", mock.Anything, review.ProductID).Return(errors.New("redis down"))

	err := service.Remove(context.Background(), author, review.ID)

	assert.NoError(t, err)
}

func TestService_Get_HidesUnapprovedFromOthers(t *testing.T) {
	service, m := newTestService(false)
	review := existingReview(4, false)

	m.reviews.On("GetByID", mock.Anything, review.ID).Return(review, nil)

	_, err := service.Get(context.Background(), stranger, review.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = service.Get(context.Background(), author, review.ID)
	assert.NoError(t, err)

	_, err = service.Get(context.Background(), admin, review.ID)
	assert.NoError(t, err)
}

func TestService_ListByProduct_CacheHit(t *testing.T) {
	service, m := newTestService(true)
	productID := uuid.New()
	approved := true
	filter := domain.ReviewFilter{ProductID: &productID, Approved: &approved, SortBy: "created_at", SortDesc: true, Limit: 20}
	page := &cache.ReviewPage{Reviews: []*domain.Review{existingReview(5, true)}, Total: 7}

	m.cache.On("GetReviewsList", mock.Anything, productID, filter).Return(page, nil)

	reviews, total, err := service.ListByProduct(context.Background(), productID, ListQuery{})

	require.NoError(t, err)
	assert.Len(t, reviews, 1)
	assert.Equal(t, 7, total)
	m.reviews.AssertNotCalled(t, "List", mock.Anything, mock.Anything)
}

func TestService_ListByProduct_CacheMiss(t *testing.T) {
	service, m := newTestService(true)
	productID := uuid.New()
	approved := true
	five := 5
	filter := domain.ReviewFilter{
		ProductID: &productID, Approved: &approved, Rating: &five, VerifiedOnly: true,
		SortBy: "helpful", SortDesc: false, Limit: 10, Offset: 10,
	}
	reviews := []*domain.Review{existingReview(5, true)}

	m.cache.On("GetReviewsList", mock.Anything, productID, filter).Return(nil, domain.ErrNotFound)
	m.reviews.On("List", mock.Anything, filter).Return(reviews, nil)
	m.reviews.On("Count", mock.Anything, filter).Return(11, nil)
	m.cache.On("SetReviewsList", mock.Anything, productID, filter, &cache.ReviewPage{Reviews: reviews, Total: 11}).Return(nil)

	got, total, err := service.ListByProduct(context.Background(), productID, ListQuery{
		Rating: &five, VerifiedOnly: true, SortBy: "helpful", SortOrder: "asc", Limit: 10, Offset: 10,
	})

	require.NoError(t, err)
	assert.Equal(t, reviews, got)
	assert.Equal(t, 11, total)
	m.cache.AssertExpectations(t)
}

func TestService_ListByProduct_InvalidQuery(t *testing.T) {
	service, _ := newTestService(true)
	zero := 0

	_, _, err := service.ListByProduct(context.Background(), uuid.New(), ListQuery{SortBy: "title"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, _, err = service.ListByProduct(context.Background(), uuid.New(), ListQuery{Rating: &zero})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestService_Summary(t *testing.T) {
	service, m := newTestService(true)
	productID := uuid.New()
	summary := &domain.ReviewSummary{ProductID: productID, TotalReviews: 2, AverageRating: 4.5,
		Distribution: map[int]int{1: 0, 2: 0, 3: 0, 4: 1, 5: 1}}

	m.products.On("GetByID", mock.Anything, productID).Return(&domain.Product{ID: productID}, nil)
	m.reviews.On("Summary", mock.Anything, productID).Return(summary, nil)

	got, err := service.Summary(context.Background(), productID)

	require.NoError(t, err)
	assert.Equal(t, summary, got)
}

func TestUniqueTrimmed(t *testing.T) {
	assert.Nil(t, uniqueTrimmed(nil))
	assert.Equal(t, []string{"a", "b"}, uniqueTrimmed([]string{" a", "b", "a ", "", "  "}))
}
