package handler

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/Pesokrava/plant_store/internal/delivery/http/request"
	"github.com/Pesokrava/plant_store/internal/delivery/http/response"
	"github.com/Pesokrava/plant_store/internal/domain"
	"github.com/Pesokrava/plant_store/internal/pkg/logger"
	"github.com/Pesokrava/plant_store/internal/usecase/review"
)

// ReviewService is the review lifecycle consumed by ReviewHandler
type ReviewService interface {
	Submit(ctx context.Context, principal domain.Principal, input review.SubmitInput) (*domain.Review, error)
	Edit(ctx context.Context, principal domain.Principal, id uuid.UUID, input review.EditInput) (*domain.Review, error)
	Vote(ctx context.Context, principal domain.Principal, id uuid.UUID, vote string) (*domain.Review, error)
	RemoveVote(ctx context.Context, principal domain.Principal, id uuid.UUID) (*domain.Review, error)
	Approve(ctx context.Context, principal domain.Principal, id uuid.UUID) (*domain.Review, error)
	Reject(ctx context.Context, principal domain.Principal, id uuid.UUID, reason string) (*domain.Review, error)
	Report(ctx context.Context, principal domain.Principal, id uuid.UUID, reason string) (*domain.Review, error)
	Respond(ctx context.Context, principal domain.Principal, id uuid.UUID, message string) (*domain.Review, error)
	VerifyPurchase(ctx context.Context, principal domain.Principal, id uuid.UUID) (*domain.Review, error)
	Remove(ctx context.Context, principal domain.Principal, id uuid.UUID) error
	Get(ctx context.Context, principal domain.Principal, id uuid.UUID) (*domain.Review, error)
	ListByProduct(ctx context.Context, productID uuid.UUID, query review.ListQuery) ([]*domain.Review, int, error)
	ListAll(ctx context.Context, principal domain.Principal, query review.ListQuery) ([]*domain.Review, int, error)
	Summary(ctx context.Context, productID uuid.UUID) (*domain.ReviewSummary, error)
}

// VoteRequest represents the request body for a helpfulness vote
type VoteRequest struct {
	Vote string `json:"vote" example:"positive"`
}

// ReasonRequest carries a free-text reason for reject and report
type ReasonRequest struct {
	Reason string `json:"reason"`
}

// RespondRequest represents the request body for a store response
type RespondRequest struct {
	Message string `json:"message"`
}

// ReviewHandler handles HTTP requests for reviews
type ReviewHandler struct {
	service ReviewService
	logger  *logger.Logger
}

// NewReviewHandler creates a new review handler
func NewReviewHandler(service ReviewService, log *logger.Logger) *ReviewHandler {
	return &ReviewHandler{
		service: service,
		logger:  log,
	}
}

// Create handles POST /api/v1/reviews
// @Summary Submit a review
// @Description Submit a review for a product. Recomputes the product rating and publishes an event.
// @Tags Reviews
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param review body review.SubmitInput true "Review details"
// @Success 201 {object} response.Envelope "Review created successfully"
// @Failure 400 {object} response.ErrorBody "Invalid request body"
// @Failure 404 {object} response.ErrorBody "Product or order not found"
// @Failure 409 {object} response.ErrorBody "Product already reviewed"
// @Router /reviews [post]
func (h *ReviewHandler) Create(w http.ResponseWriter, r *http.Request) {
	var input review.SubmitInput
	if err := request.DecodeJSON(r, &input); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	rv, err := h.service.Submit(r.Context(), principal(r), input)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	response.Created(w, rv)
}

// Get handles GET /api/v1/reviews/{id}
// @Summary Get a review
// @Tags Reviews
// @Produce json
// @Param id path string true "Review ID (UUID)"
// @Success 200 {object} response.Envelope "Review"
// @Failure 404 {object} response.ErrorBody "Review not found"
// @Router /reviews/{id} [get]
func (h *ReviewHandler) Get(w http.ResponseWriter, r *http.Request) {
	h.withReview(w, r, func(ctx context.Context, p domain.Principal, id uuid.UUID) (*domain.Review, error) {
		return h.service.Get(ctx, p, id)
	})
}

// Update handles PUT /api/v1/reviews/{id}
// @Summary Edit a review
// @Description Edit the content of the caller's review. The previous content is kept in the edit history.
// @Tags Reviews
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Review ID (UUID)"
// @Param review body review.EditInput true "Changed fields"
// @Success 200 {object} response.Envelope "Review updated successfully"
// @Failure 403 {object} response.ErrorBody "Not the author"
// @Failure 404 {object} response.ErrorBody "Review not found"
// @Failure 409 {object} response.ErrorBody "Review was modified by another request"
// @Router /reviews/{id} [put]
func (h *ReviewHandler) Update(w http.ResponseWriter, r *http.Request) {
	var input review.EditInput
	h.withBody(w, r, &input, func(ctx context.Context, p domain.Principal, id uuid.UUID) (*domain.Review, error) {
		return h.service.Edit(ctx, p, id, input)
	})
}

// Delete handles DELETE /api/v1/reviews/{id}
// @Summary Delete a review
// @Description Soft delete a review. Allowed for the author and admins.
// @Tags Reviews
// @Security BearerAuth
// @Param id path string true "Review ID (UUID)"
// @Success 204 "Review deleted successfully"
// @Failure 403 {object} response.ErrorBody "Not the author"
// @Failure 404 {object} response.ErrorBody "Review not found"
// @Router /reviews/{id} [delete]
func (h *ReviewHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := request.GetUUIDParam(r, "id")
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid review ID")
		return
	}

	if err := h.service.Remove(r.Context(), principal(r), id); err != nil {
		handleError(w, h.logger, err)
		return
	}

	response.NoContent(w)
}

// Vote handles POST /api/v1/reviews/{id}/vote
// @Summary Vote on the helpfulness of a review
// @Tags Reviews
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Review ID (UUID)"
// @Param vote body VoteRequest true "positive or negative"
// @Success 200 {object} response.Envelope "Review with updated votes"
// @Router /reviews/{id}/vote [post]
func (h *ReviewHandler) Vote(w http.ResponseWriter, r *http.Request) {
	var req VoteRequest
	h.withBody(w, r, &req, func(ctx context.Context, p domain.Principal, id uuid.UUID) (*domain.Review, error) {
		return h.service.Vote(ctx, p, id, req.Vote)
	})
}

// RemoveVote handles DELETE /api/v1/reviews/{id}/vote
// @Summary Withdraw a helpfulness vote
// @Tags Reviews
// @Produce json
// @Security BearerAuth
// @Param id path string true "Review ID (UUID)"
// @Success 200 {object} response.Envelope "Review with updated votes"
// @Router /reviews/{id}/vote [delete]
func (h *ReviewHandler) RemoveVote(w http.ResponseWriter, r *http.Request) {
	h.withReview(w, r, h.service.RemoveVote)
}

// Report handles POST /api/v1/reviews/{id}/report
// @Summary Report a review
// @Tags Reviews
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Review ID (UUID)"
// @Param report body ReasonRequest true "spam, inappropriate, fake, offensive or other"
// @Success 200 {object} response.Envelope "Reported review"
// @Router /reviews/{id}/report [post]
func (h *ReviewHandler) Report(w http.ResponseWriter, r *http.Request) {
	var req ReasonRequest
	h.withBody(w, r, &req, func(ctx context.Context, p domain.Principal, id uuid.UUID) (*domain.Review, error) {
		return h.service.Report(ctx, p, id, req.Reason)
	})
}

// Approve handles POST /api/v1/reviews/{id}/approve
// @Summary Approve a review
// @Tags Reviews
// @Produce json
// @Security BearerAuth
// @Param id path string true "Review ID (UUID)"
// @Success 200 {object} response.Envelope "Approved review"
// @Failure 403 {object} response.ErrorBody "Admin access required"
// @Router /reviews/{id}/approve [post]
func (h *ReviewHandler) Approve(w http.ResponseWriter, r *http.Request) {
	h.withReview(w, r, h.service.Approve)
}

// Reject handles POST /api/v1/reviews/{id}/reject
// @Summary Reject a review
// @Tags Reviews
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Review ID (UUID)"
// @Param reject body ReasonRequest false "Reason"
// @Success 200 {object} response.Envelope "Rejected review"
// @Failure 403 {object} response.ErrorBody "Admin access required"
// @Router /reviews/{id}/reject [post]
func (h *ReviewHandler) Reject(w http.ResponseWriter, r *http.Request) {
	var req ReasonRequest
	if err := request.DecodeOptionalJSON(r, &req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	h.withReview(w, r, func(ctx context.Context, p domain.Principal, id uuid.UUID) (*domain.Review, error) {
		return h.service.Reject(ctx, p, id, req.Reason)
	})
}

// Respond handles POST /api/v1/reviews/{id}/respond
// @Summary Respond to a review on behalf of the store
// @Tags Reviews
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Review ID (UUID)"
// @Param response body RespondRequest true "Response message"
// @Success 200 {object} response.Envelope "Review with response"
// @Router /reviews/{id}/respond [post]
func (h *ReviewHandler) Respond(w http.ResponseWriter, r *http.Request) {
	var req RespondRequest
	h.withBody(w, r, &req, func(ctx context.Context, p domain.Principal, id uuid.UUID) (*domain.Review, error) {
		return h.service.Respond(ctx, p, id, req.Message)
	})
}

// Verify handles POST /api/v1/reviews/{id}/verify
// @Summary Mark a review as a verified purchase
// @Tags Reviews
// @Produce json
// @Security BearerAuth
// @Param id path string true "Review ID (UUID)"
// @Success 200 {object} response.Envelope "Verified review"
// @Router /reviews/{id}/verify [post]
func (h *ReviewHandler) Verify(w http.ResponseWriter, r *http.Request) {
	h.withReview(w, r, h.service.VerifyPurchase)
}

// GetByProductID handles GET /api/v1/products/{id}/reviews
// @Summary Get approved reviews for a product
// @Tags Reviews
// @Produce json
// @Param id path string true "Product ID (UUID)"
// @Param rating query int false "Only reviews with this rating"
// @Param verified query bool false "Only verified purchases"
// @Param sort_by query string false "created_at, rating or helpful"
// @Param sort_order query string false "asc or desc"
// @Param limit query int false "Number of items per page" default(20)
// @Param offset query int false "Number of items to skip" default(0)
// @Success 200 {object} response.Envelope "List of reviews"
// @Failure 400 {object} response.ErrorBody "Invalid query"
// @Router /products/{id}/reviews [get]
func (h *ReviewHandler) GetByProductID(w http.ResponseWriter, r *http.Request) {
	productID, err := request.GetUUIDParam(r, "id")
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid product ID")
		return
	}

	query, ok := h.listQuery(w, r)
	if !ok {
		return
	}

	reviews, total, err := h.service.ListByProduct(r.Context(), productID, query)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	response.Paginated(w, reviews, total, query.Limit, query.Offset)
}

// Summary handles GET /api/v1/products/{id}/reviews/summary
// @Summary Get the rating breakdown of a product
// @Tags Reviews
// @Produce json
// @Param id path string true "Product ID (UUID)"
// @Success 200 {object} response.Envelope "Rating distribution"
// @Failure 404 {object} response.ErrorBody "Product not found"
// @Router /products/{id}/reviews/summary [get]
func (h *ReviewHandler) Summary(w http.ResponseWriter, r *http.Request) {
	productID, err := request.GetUUIDParam(r, "id")
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid product ID")
		return
	}

	summary, err := h.service.Summary(r.Context(), productID)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	response.Success(w, summary)
}

// List handles GET /api/v1/reviews
// @Summary List all reviews for moderation
// @Tags Reviews
// @Produce json
// @Security BearerAuth
// @Param approved query bool false "Filter by approval"
// @Param reported query bool false "Filter by reports"
// @Param rating query int false "Filter by rating"
// @Param limit query int false "Number of items per page" default(20)
// @Param offset query int false "Number of items to skip" default(0)
// @Success 200 {object} response.Envelope "List of reviews"
// @Failure 403 {object} response.ErrorBody "Admin access required"
// @Router /reviews [get]
func (h *ReviewHandler) List(w http.ResponseWriter, r *http.Request) {
	query, ok := h.listQuery(w, r)
	if !ok {
		return
	}

	var err error
	if query.Approved, err = request.GetOptionalBoolQuery(r, "approved"); err != nil {
		response.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	if query.Reported, err = request.GetOptionalBoolQuery(r, "reported"); err != nil {
		response.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	reviews, total, err := h.service.ListAll(r.Context(), principal(r), query)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	response.Paginated(w, reviews, total, query.Limit, query.Offset)
}

func (h *ReviewHandler) listQuery(w http.ResponseWriter, r *http.Request) (review.ListQuery, bool) {
	limit, offset := request.GetPaginationParams(r)

	rating, err := request.GetOptionalIntQuery(r, "rating")
	if err != nil {
		response.Error(w, http.StatusBadRequest, err.Error())
		return review.ListQuery{}, false
	}

	return review.ListQuery{
		Rating:       rating,
		VerifiedOnly: request.GetBoolQuery(r, "verified"),
		SortBy:       r.URL.Query().Get("sort_by"),
		SortOrder:    r.URL.Query().Get("sort_order"),
		Limit:        limit,
		Offset:       offset,
	}, true
}

type reviewAction func(ctx context.Context, principal domain.Principal, id uuid.UUID) (*domain.Review, error)

func (h *ReviewHandler) withReview(w http.ResponseWriter, r *http.Request, action reviewAction) {
	id, err := request.GetUUIDParam(r, "id")
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid review ID")
		return
	}

	rv, err := action(r.Context(), principal(r), id)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	response.Success(w, rv)
}

// withBody decodes the request body into dst before running action
func (h *ReviewHandler) withBody(w http.ResponseWriter, r *http.Request, dst interface{}, action reviewAction) {
	if err := request.DecodeJSON(r, dst); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	h.withReview(w, r, action)
}
