package review

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Pesokrava/plant_store/internal/config"
	"github.com/Pesokrava/plant_store/internal/domain"
	"github.com/Pesokrava/plant_store/internal/pkg/logger"
	"github.com/Pesokrava/plant_store/internal/pkg/metrics"
	"github.com/Pesokrava/plant_store/internal/pkg/validator"
	"github.com/Pesokrava/plant_store/internal/repository/cache"
)

// EventsSubject is the subject review events are published on
const EventsSubject = "reviews.events"

// EventPublisher defines the interface for publishing events
type EventPublisher interface {
	Publish(ctx context.Context, subject string, data []byte) error
}

// RatingAggregator recomputes the derived rating of a product
type RatingAggregator interface {
	Recompute(ctx context.Context, productID uuid.UUID) (*domain.RatingAggregate, error)
}

// ReviewCache caches approved review pages per product
type ReviewCache interface {
	GetReviewsList(ctx context.Context, productID uuid.UUID, filter domain.ReviewFilter) (*cache.ReviewPage, error)
	SetReviewsList(ctx context.Context, productID uuid.UUID, filter domain.ReviewFilter, page *cache.ReviewPage) error
	InvalidateAllProductCache(ctx context.Context, productID uuid.UUID) error
}

// ReviewEvent represents an event related to a review
type ReviewEvent struct {
	EventType string         `json:"event_type"`
	Timestamp time.Time      `json:"timestamp"`
	ProductID uuid.UUID      `json:"product_id"`
	Review    *domain.Review `json:"review"`
}

// SubmitInput is a new review
type SubmitInput struct {
	ProductID    uuid.UUID            `json:"product_id" validate:"required"`
	OrderID      *uuid.UUID           `json:"order_id,omitempty"`
	Rating       int                  `json:"rating" validate:"min=1,max=5"`
	Title        string               `json:"title" validate:"required,notblank,max=200"`
	Comment      string               `json:"comment" validate:"required,notblank,max=1000"`
	Pros         []string             `json:"pros" validate:"max=20,dive,max=200"`
	Cons         []string             `json:"cons" validate:"max=20,dive,max=200"`
	Images       []domain.ReviewImage `json:"images" validate:"max=10,dive"`
	ReviewerInfo domain.ReviewerInfo  `json:"reviewer_info"`
}

// EditInput changes the content of a review; nil fields stay as they are
type EditInput struct {
	Title   *string  `json:"title,omitempty" validate:"omitempty,min=1,max=200"`
	Comment *string  `json:"comment,omitempty" validate:"omitempty,min=1,max=1000"`
	Rating  *int     `json:"rating,omitempty" validate:"omitempty,min=1,max=5"`
	Pros    []string `json:"pros,omitempty" validate:"omitempty,max=20,dive,max=200"`
	Cons    []string `json:"cons,omitempty" validate:"omitempty,max=20,dive,max=200"`
	Reason  string   `json:"reason" validate:"max=200"`
}

// ListQuery narrows review listings
type ListQuery struct {
	Rating       *int
	VerifiedOnly bool
	Approved     *bool
	Reported     *bool
	SortBy       string
	SortOrder    string
	Limit        int
	Offset       int
}

// Option configures a Service
type Option func(*Service)

// WithClock overrides the time source
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// Service handles the review lifecycle with caching and event publishing
type Service struct {
	reviews     domain.ReviewRepository
	products    domain.ProductRepository
	orders      domain.OrderRepository
	aggregator  RatingAggregator
	cache       ReviewCache
	publisher   EventPublisher
	autoApprove bool
	logger      *logger.Logger
	now         func() time.Time
}

// NewService creates a new review service
func NewService(
	reviews domain.ReviewRepository,
	products domain.ProductRepository,
	orders domain.OrderRepository,
	aggregator RatingAggregator,
	cache ReviewCache,
	publisher EventPublisher,
	cfg config.ReviewsConfig,
	log *logger.Logger,
	opts ...Option,
) *Service {
	s := &Service{
		reviews:     reviews,
		products:    products,
		orders:      orders,
		aggregator:  aggregator,
		cache:       cache,
		publisher:   publisher,
		autoApprove: cfg.AutoApprove,
		logger:      log,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Submit creates a review of a product by the principal
func (s *Service) Submit(ctx context.Context, principal domain.Principal, input SubmitInput) (*domain.Review, error) {
	if principal.UserID == uuid.Nil {
		return nil, domain.ErrUnauthorized
	}

	input.Title = strings.TrimSpace(input.Title)
	input.Comment = strings.TrimSpace(input.Comment)
	input.Pros = uniqueTrimmed(input.Pros)
	input.Cons = uniqueTrimmed(input.Cons)

	if err := validator.Struct(input); err != nil {
		s.logger.Debugf("Review validation failed: %v", err)
		return nil, err
	}

	if _, err := s.products.GetByID(ctx, input.ProductID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("%w: product %s", domain.ErrNotFound, input.ProductID)
		}
		return nil, err
	}

	exists, err := s.reviews.ExistsForUser(ctx, input.ProductID, principal.UserID)
	if err != nil {
		s.logger.Error("Failed to check for existing review", err)
		return nil, err
	}
	if exists {
		return nil, fmt.Errorf("%w: product %s", domain.ErrDuplicateReview, input.ProductID)
	}

	verified := false
	if input.OrderID != nil {
		if err := s.checkPurchase(ctx, principal.UserID, *input.OrderID, input.ProductID); err != nil {
			return nil, err
		}
		verified = true
	}

	now := s.now()
	review := &domain.Review{
		ProductID:          input.ProductID,
		UserID:             principal.UserID,
		OrderID:            input.OrderID,
		Rating:             input.Rating,
		Title:              input.Title,
		Comment:            input.Comment,
		Pros:               input.Pros,
		Cons:               input.Cons,
		Images:             input.Images,
		ReviewerInfo:       input.ReviewerInfo,
		IsVerifiedPurchase: verified,
		IsApproved:         s.autoApprove,
		ReportReasons:      []domain.ReportReason{},
		HelpfulVotes:       domain.HelpfulVotes{Positive: []domain.Vote{}, Negative: []domain.Vote{}},
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	if err := s.reviews.Create(ctx, review); err != nil {
		s.logger.Error("Failed to create review", err)
		return nil, err
	}

	metrics.ReviewsSubmitted.WithLabelValues(strconv.FormatBool(verified)).Inc()

	if _, err := s.aggregator.Recompute(ctx, review.ProductID); err != nil {
		s.logger.Errorf(err, "Failed to recompute rating for product %s", review.ProductID)
		return nil, err
	}

	s.invalidate(ctx, review.ProductID)
	s.publishEvent(ctx, "review.created", review)

	s.logger.WithFields(map[string]interface{}{
		"review_id":  review.ID,
		"product_id": review.ProductID,
		"rating":     review.Rating,
		"verified":   verified,
	}).Info("Review created successfully")

	return review, nil
}

// checkPurchase confirms that the order is the user's and contains the product
func (s *Service) checkPurchase(ctx context.Context, userID, orderID, productID uuid.UUID) error {
	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("%w: order %s", domain.ErrNotFound, orderID)
		}
		return err
	}
	if order.UserID != userID {
		return fmt.Errorf("%w: order %s does not belong to the reviewer", domain.ErrInvalidInput, orderID)
	}
	if !order.HasProduct(productID) {
		return fmt.Errorf("%w: order %s does not contain product %s", domain.ErrInvalidInput, orderID, productID)
	}
	return nil
}

// Edit changes the content of the principal's own review and records the
// previous content in the edit history
func (s *Service) Edit(ctx context.Context, principal domain.Principal, id uuid.UUID, input EditInput) (*domain.Review, error) {
	if input.Title != nil {
		trimmed := strings.TrimSpace(*input.Title)
		input.Title = &trimmed
	}
	if input.Comment != nil {
		trimmed := strings.TrimSpace(*input.Comment)
		input.Comment = &trimmed
	}
	input.Reason = strings.TrimSpace(input.Reason)

	if err := validator.Struct(input); err != nil {
		return nil, err
	}

	review, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if review.UserID != principal.UserID {
		return nil, domain.ErrForbidden
	}

	now := s.now()
	edit := domain.ReviewEdit{
		EditedAt: now,
		Reason:   input.Reason,
		EditedBy: principal.UserID,
		Previous: domain.ReviewSnapshot{
			Title:   review.Title,
			Comment: review.Comment,
			Rating:  review.Rating,
		},
	}

	updated := *review
	if input.Title != nil {
		updated.Title = *input.Title
	}
	if input.Comment != nil {
		updated.Comment = *input.Comment
	}
	if input.Rating != nil {
		updated.Rating = *input.Rating
	}
	if input.Pros != nil {
		updated.Pros = uniqueTrimmed(input.Pros)
	}
	if input.Cons != nil {
		updated.Cons = uniqueTrimmed(input.Cons)
	}
	updated.UpdatedAt = now

	if err := s.reviews.Edit(ctx, &updated, edit); err != nil {
		s.logger.Error("Failed to edit review", err)
		return nil, err
	}

	if updated.Rating != review.Rating {
		if _, err := s.aggregator.Recompute(ctx, updated.ProductID); err != nil {
			s.logger.Errorf(err, "Failed to recompute rating for product %s", updated.ProductID)
			return nil, err
		}
	}

	s.invalidate(ctx, updated.ProductID)
	s.publishEvent(ctx, "review.updated", &updated)

	s.logger.WithFields(map[string]interface{}{
		"review_id":  updated.ID,
		"product_id": updated.ProductID,
		"rating":     updated.Rating,
	}).Info("Review updated successfully")

	return &updated, nil
}

// Vote records the principal's helpfulness vote, replacing any previous one
func (s *Service) Vote(ctx context.Context, principal domain.Principal, id uuid.UUID, vote string) (*domain.Review, error) {
	if principal.UserID == uuid.Nil {
		return nil, domain.ErrUnauthorized
	}

	voteType := domain.VoteType(vote)
	if !voteType.IsValid() {
		return nil, fmt.Errorf("%w: vote must be positive or negative", domain.ErrInvalidInput)
	}

	review, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.reviews.UpsertVote(ctx, review.ID, principal.UserID, voteType, s.now()); err != nil {
		s.logger.Error("Failed to record vote", err)
		return nil, err
	}

	s.invalidate(ctx, review.ProductID)
	return s.load(ctx, id)
}

// RemoveVote withdraws the principal's helpfulness vote
func (s *Service) RemoveVote(ctx context.Context, principal domain.Principal, id uuid.UUID) (*domain.Review, error) {
	review, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.reviews.DeleteVote(ctx, review.ID, principal.UserID); err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			s.logger.Error("Failed to remove vote", err)
		}
		return nil, err
	}

	s.invalidate(ctx, review.ProductID)
	return s.load(ctx, id)
}

// Approve publishes a review; admin only
func (s *Service) Approve(ctx context.Context, principal domain.Principal, id uuid.UUID) (*domain.Review, error) {
	note := func(now time.Time) string {
		return fmt.Sprintf("Approved by admin %s at %s", principal.UserID, now.UTC().Format(time.RFC3339))
	}
	return s.moderate(ctx, principal, id, true, note)
}

// Reject hides a review with the given reason; admin only
func (s *Service) Reject(ctx context.Context, principal domain.Principal, id uuid.UUID, reason string) (*domain.Review, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" || len(reason) > 500 {
		return nil, fmt.Errorf("%w: rejection reason must be 1-500 characters", domain.ErrInvalidInput)
	}

	note := func(time.Time) string {
		return fmt.Sprintf("Rejected by admin %s: %s", principal.UserID, reason)
	}
	return s.moderate(ctx, principal, id, false, note)
}

func (s *Service) moderate(ctx context.Context, principal domain.Principal, id uuid.UUID, approve bool, note func(time.Time) string) (*domain.Review, error) {
	if !principal.IsAdmin() {
		return nil, domain.ErrForbidden
	}

	review, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	now := s.now()
	updated := *review
	updated.IsApproved = approve
	updated.ModerationNotes = appendNote(review.ModerationNotes, note(now))
	updated.UpdatedAt = now

	if err := s.reviews.Update(ctx, &updated); err != nil {
		s.logger.Error("Failed to moderate review", err)
		return nil, err
	}

	if review.IsApproved != approve {
		if _, err := s.aggregator.Recompute(ctx, updated.ProductID); err != nil {
			s.logger.Errorf(err, "Failed to recompute rating for product %s", updated.ProductID)
			return nil, err
		}
	}

	s.invalidate(ctx, updated.ProductID)
	s.publishEvent(ctx, "review.moderated", &updated)

	s.logger.WithFields(map[string]interface{}{
		"review_id":  updated.ID,
		"product_id": updated.ProductID,
		"approved":   approve,
		"admin_id":   principal.UserID,
	}).Info("Review moderated")

	return &updated, nil
}

// Report flags a review for moderation
func (s *Service) Report(ctx context.Context, principal domain.Principal, id uuid.UUID, reason string) (*domain.Review, error) {
	if principal.UserID == uuid.Nil {
		return nil, domain.ErrUnauthorized
	}

	reportReason := domain.ReportReason(reason)
	if !reportReason.IsValid() {
		return nil, fmt.Errorf("%w: unknown report reason %q", domain.ErrInvalidInput, reason)
	}

	review, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	updated := *review
	updated.IsReported = true
	updated.ReportReasons = addReason(review.ReportReasons, reportReason)
	updated.UpdatedAt = s.now()

	if err := s.reviews.Update(ctx, &updated); err != nil {
		s.logger.Error("Failed to report review", err)
		return nil, err
	}

	s.invalidate(ctx, updated.ProductID)

	s.logger.WithFields(map[string]interface{}{
		"review_id":   updated.ID,
		"reported_by": principal.UserID,
		"reason":      reportReason,
	}).Warn("Review reported")

	return &updated, nil
}

// Respond attaches the store's public reply; admin only
func (s *Service) Respond(ctx context.Context, principal domain.Principal, id uuid.UUID, message string) (*domain.Review, error) {
	if !principal.IsAdmin() {
		return nil, domain.ErrForbidden
	}

	message = strings.TrimSpace(message)
	if message == "" || len(message) > 500 {
		return nil, fmt.Errorf("%w: response must be 1-500 characters", domain.ErrInvalidInput)
	}

	review, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	now := s.now()
	updated := *review
	updated.AdminResponse = &domain.AdminResponse{
		Message:     message,
		RespondedBy: principal.UserID,
		RespondedAt: now,
	}
	updated.UpdatedAt = now

	if err := s.reviews.Update(ctx, &updated); err != nil {
		s.logger.Error("Failed to respond to review", err)
		return nil, err
	}

	s.invalidate(ctx, updated.ProductID)
	return &updated, nil
}

// VerifyPurchase marks a review as a verified purchase; admin only.
// The flag is never cleared.
func (s *Service) VerifyPurchase(ctx context.Context, principal domain.Principal, id uuid.UUID) (*domain.Review, error) {
	if !principal.IsAdmin() {
		return nil, domain.ErrForbidden
	}

	review, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if review.IsVerifiedPurchase {
		return review, nil
	}

	updated := *review
	updated.IsVerifiedPurchase = true
	updated.UpdatedAt = s.now()

	if err := s.reviews.Update(ctx, &updated); err != nil {
		s.logger.Error("Failed to verify review purchase", err)
		return nil, err
	}

	s.invalidate(ctx, updated.ProductID)
	return &updated, nil
}

// Remove soft-deletes a review; author or admin
func (s *Service) Remove(ctx context.Context, principal domain.Principal, id uuid.UUID) error {
	review, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if review.UserID != principal.UserID && !principal.IsAdmin() {
		return domain.ErrForbidden
	}

	if err := s.reviews.Delete(ctx, id); err != nil {
		s.logger.Error("Failed to delete review", err)
		return err
	}

	if _, err := s.aggregator.Recompute(ctx, review.ProductID); err != nil {
		s.logger.Errorf(err, "Failed to recompute rating for product %s", review.ProductID)
		return err
	}

	s.invalidate(ctx, review.ProductID)
	s.publishEvent(ctx, "review.deleted", review)

	s.logger.WithFields(map[string]interface{}{
		"review_id":  id,
		"product_id": review.ProductID,
	}).Info("Review deleted successfully")

	return nil
}

// Get returns a review. Unapproved reviews are visible to their author and admins only.
func (s *Service) Get(ctx context.Context, principal domain.Principal, id uuid.UUID) (*domain.Review, error) {
	review, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !review.IsApproved && review.UserID != principal.UserID && !principal.IsAdmin() {
		return nil, domain.ErrNotFound
	}
	return review, nil
}

// ListByProduct returns approved reviews of a product with caching
func (s *Service) ListByProduct(ctx context.Context, productID uuid.UUID, query ListQuery) ([]*domain.Review, int, error) {
	approved := true
	query.Approved = &approved
	query.Reported = nil

	filter, err := buildFilter(query)
	if err != nil {
		return nil, 0, err
	}
	filter.ProductID = &productID

	if s.cache != nil {
		page, err := s.cache.GetReviewsList(ctx, productID, filter)
		if err == nil {
			s.logger.Debugf("Cache hit for product %s reviews (limit=%d, offset=%d)", productID, filter.Limit, filter.Offset)
			return page.Reviews, page.Total, nil
		}
		s.logger.Debugf("Cache miss for product %s reviews (limit=%d, offset=%d)", productID, filter.Limit, filter.Offset)
	}

	reviews, total, err := s.list(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	if s.cache != nil {
		page := &cache.ReviewPage{Reviews: reviews, Total: total}
		if err := s.cache.SetReviewsList(ctx, productID, filter, page); err != nil {
			s.logger.Warnf("Failed to cache reviews for product %s: %v", productID, err)
		}
	}

	return reviews, total, nil
}

// ListAll returns reviews across products, including unapproved ones; admin only
func (s *Service) ListAll(ctx context.Context, principal domain.Principal, query ListQuery) ([]*domain.Review, int, error) {
	if !principal.IsAdmin() {
		return nil, 0, domain.ErrForbidden
	}

	filter, err := buildFilter(query)
	if err != nil {
		return nil, 0, err
	}
	return s.list(ctx, filter)
}

// Summary returns the approved rating distribution of a product
func (s *Service) Summary(ctx context.Context, productID uuid.UUID) (*domain.ReviewSummary, error) {
	if _, err := s.products.GetByID(ctx, productID); err != nil {
		return nil, err
	}

	summary, err := s.reviews.Summary(ctx, productID)
	if err != nil {
		s.logger.Error("Failed to summarize reviews", err)
		return nil, err
	}
	return summary, nil
}

func (s *Service) list(ctx context.Context, filter domain.ReviewFilter) ([]*domain.Review, int, error) {
	reviews, err := s.reviews.List(ctx, filter)
	if err != nil {
		s.logger.Error("Failed to list reviews", err)
		return nil, 0, err
	}

	total, err := s.reviews.Count(ctx, filter)
	if err != nil {
		s.logger.Error("Failed to count reviews", err)
		return nil, 0, err
	}

	return reviews, total, nil
}

func (s *Service) load(ctx context.Context, id uuid.UUID) (*domain.Review, error) {
	review, err := s.reviews.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.logger.Debugf("Review not found: %s", id)
		} else {
			s.logger.Error("Failed to get review", err)
		}
		return nil, err
	}
	return review, nil
}

// invalidate drops cached pages and rating of the product
func (s *Service) invalidate(ctx context.Context, productID uuid.UUID) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateAllProductCache(ctx, productID); err != nil {
		s.logger.Warnf("Failed to invalidate cache for product %s: %v", productID, err)
	}
}

// publishEvent publishes a review event (non-blocking)
func (s *Service) publishEvent(ctx context.Context, eventType string, review *domain.Review) {
	if s.publisher == nil {
		return
	}

	event := ReviewEvent{
		EventType: eventType,
		Timestamp: s.now(),
		ProductID: review.ProductID,
		Review:    review,
	}

	data, err := json.Marshal(event)
	if err != nil {
		s.logger.Errorf(err, "Failed to marshal event for review %s", review.ID)
		return
	}

	go func() {
		if err := s.publisher.Publish(context.WithoutCancel(ctx), EventsSubject, data); err != nil {
			s.logger.Errorf(err, "Failed to publish event for review %s", review.ID)
		}
	}()
}

func buildFilter(query ListQuery) (domain.ReviewFilter, error) {
	if query.Rating != nil && (*query.Rating < 1 || *query.Rating > 5) {
		return domain.ReviewFilter{}, fmt.Errorf("%w: rating filter must be between 1 and 5", domain.ErrInvalidInput)
	}

	sortBy := query.SortBy
	switch sortBy {
	case "":
		sortBy = "created_at"
	case "created_at", "rating", "helpful":
	default:
		return domain.ReviewFilter{}, fmt.Errorf("%w: unknown sort %q", domain.ErrInvalidInput, sortBy)
	}

	limit, offset := query.Limit, query.Offset
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	return domain.ReviewFilter{
		Rating:       query.Rating,
		VerifiedOnly: query.VerifiedOnly,
		Approved:     query.Approved,
		Reported:     query.Reported,
		SortBy:       sortBy,
		SortDesc:     !strings.EqualFold(query.SortOrder, "asc"),
		Limit:        limit,
		Offset:       offset,
	}, nil
}

// uniqueTrimmed trims items, drops empty ones and keeps the first occurrence of each
func uniqueTrimmed(items []string) []string {
	if items == nil {
		return nil
	}
	seen := make(map[string]bool, len(items))
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" || seen[item] {
			continue
		}
		seen[item] = true
		out = append(out, item)
	}
	return out
}

func addReason(reasons []domain.ReportReason, reason domain.ReportReason) []domain.ReportReason {
	for _, r := range reasons {
		if r == reason {
			return reasons
		}
	}
	out := make([]domain.ReportReason, 0, len(reasons)+1)
	out = append(out, reasons...)
	return append(out, reason)
}

func appendNote(notes, note string) string {
	if notes == "" {
		return note
	}
	return notes + "\n" + note
}
