package domain

import (
	"context"
	"database/sql/driver"
	"encoding/json"
	"math"
	"time"

	"github.com/google/uuid"
)

// VoteType is the direction of a helpfulness vote
type VoteType string

const (
	VotePositive VoteType = "positive"
	VoteNegative VoteType = "negative"
)

// IsValid reports whether v is a known vote type
func (v VoteType) IsValid() bool {
	return v == VotePositive || v == VoteNegative
}

// ReportReason is why a review was flagged
type ReportReason string

const (
	ReportSpam          ReportReason = "spam"
	ReportInappropriate ReportReason = "inappropriate"
	ReportFake          ReportReason = "fake"
	ReportOffensive     ReportReason = "offensive"
	ReportOther         ReportReason = "other"
)

// IsValid reports whether r is a known report reason
func (r ReportReason) IsValid() bool {
	switch r {
	case ReportSpam, ReportInappropriate, ReportFake, ReportOffensive, ReportOther:
		return true
	}
	return false
}

// ReviewImage is a customer photo attached to a review
type ReviewImage struct {
	URL     string `json:"url" validate:"required,url"`
	Alt     string `json:"alt,omitempty" validate:"max=200"`
	Caption string `json:"caption,omitempty" validate:"max=200"`
}

// ReviewImages is stored as a JSONB column
type ReviewImages []ReviewImage

// Value implements driver.Valuer
func (r ReviewImages) Value() (driver.Value, error) {
	if r == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(r)
}

// Scan implements sql.Scanner
func (r *ReviewImages) Scan(src any) error {
	return scanJSON(src, r)
}

// ReviewerInfo is optional context the reviewer shares about themselves
type ReviewerInfo struct {
	Location        string `json:"location,omitempty" validate:"max=100"`
	ExperienceLevel string `json:"experience_level,omitempty" validate:"omitempty,oneof=beginner intermediate advanced expert"`
	WouldRecommend  *bool  `json:"would_recommend,omitempty"`
}

// Value implements driver.Valuer
func (r ReviewerInfo) Value() (driver.Value, error) {
	return json.Marshal(r)
}

// Scan implements sql.Scanner
func (r *ReviewerInfo) Scan(src any) error {
	return scanJSON(src, r)
}

// Vote records who voted and when
type Vote struct {
	UserID  uuid.UUID `json:"user_id"`
	VotedAt time.Time `json:"voted_at"`
}

// HelpfulVotes holds the two disjoint voter sets of a review
type HelpfulVotes struct {
	Positive []Vote `json:"positive"`
	Negative []Vote `json:"negative"`
}

// AdminResponse is the store's public reply to a review
type AdminResponse struct {
	Message     string    `json:"message"`
	RespondedBy uuid.UUID `json:"responded_by"`
	RespondedAt time.Time `json:"responded_at"`
}

// ReviewSnapshot is the content of a review before an edit
type ReviewSnapshot struct {
	Title   string `json:"title"`
	Comment string `json:"comment"`
	Rating  int    `json:"rating"`
}

// ReviewEdit is one append-only history entry
type ReviewEdit struct {
	EditedAt time.Time      `json:"edited_at"`
	Reason   string         `json:"reason"`
	EditedBy uuid.UUID      `json:"edited_by"`
	Previous ReviewSnapshot `json:"previous"`
}

// Review represents a product review in the system
type Review struct {
	ID                 uuid.UUID      `json:"id"`
	ProductID          uuid.UUID      `json:"product_id"`
	UserID             uuid.UUID      `json:"user_id"`
	OrderID            *uuid.UUID     `json:"order_id,omitempty"`
	Rating             int            `json:"rating"`
	Title              string         `json:"title"`
	Comment            string         `json:"comment"`
	Pros               []string       `json:"pros"`
	Cons               []string       `json:"cons"`
	Images             ReviewImages   `json:"images"`
	ReviewerInfo       ReviewerInfo   `json:"reviewer_info"`
	IsVerifiedPurchase bool           `json:"is_verified_purchase"`
	IsApproved         bool           `json:"is_approved"`
	IsReported         bool           `json:"is_reported"`
	ReportReasons      []ReportReason `json:"report_reasons"`
	ModerationNotes    string         `json:"moderation_notes,omitempty"`
	HelpfulVotes       HelpfulVotes   `json:"helpful_votes"`
	AdminResponse      *AdminResponse `json:"admin_response,omitempty"`
	EditHistory        []ReviewEdit   `json:"edit_history,omitempty"`
	Version            int            `json:"version"`
	CreatedAt          time.Time      `json:"created_at"`
	UpdatedAt          time.Time      `json:"updated_at"`
	DeletedAt          *time.Time     `json:"deleted_at,omitempty"`
}

// HelpfulScore is positive votes minus negative votes
func (r *Review) HelpfulScore() int {
	return len(r.HelpfulVotes.Positive) - len(r.HelpfulVotes.Negative)
}

// TotalVotes is the number of helpfulness votes cast
func (r *Review) TotalVotes() int {
	return len(r.HelpfulVotes.Positive) + len(r.HelpfulVotes.Negative)
}

// HelpfulnessPercentage is the rounded share of positive votes, 0 without votes
func (r *Review) HelpfulnessPercentage() int {
	total := r.TotalVotes()
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(len(r.HelpfulVotes.Positive)) / float64(total) * 100))
}

// VoteOf returns the current vote of the user, if any
func (r *Review) VoteOf(userID uuid.UUID) (VoteType, bool) {
	for _, v := range r.HelpfulVotes.Positive {
		if v.UserID == userID {
			return VotePositive, true
		}
	}
	for _, v := range r.HelpfulVotes.Negative {
		if v.UserID == userID {
			return VoteNegative, true
		}
	}
	return "", false
}

// MarshalJSON adds the derived vote figures to the serialized review
func (r Review) MarshalJSON() ([]byte, error) {
	type alias Review
	return json.Marshal(struct {
		alias
		HelpfulScore          int `json:"helpful_score"`
		TotalVotes            int `json:"total_votes"`
		HelpfulnessPercentage int `json:"helpfulness_percentage"`
	}{
		alias:                 alias(r),
		HelpfulScore:          r.HelpfulScore(),
		TotalVotes:            r.TotalVotes(),
		HelpfulnessPercentage: r.HelpfulnessPercentage(),
	})
}

// ReviewFilter narrows review listings
type ReviewFilter struct {
	ProductID    *uuid.UUID
	UserID       *uuid.UUID
	Rating       *int
	VerifiedOnly bool
	Approved     *bool
	Reported     *bool
	SortBy       string // created_at, rating, helpful
	SortDesc     bool
	Limit        int
	Offset       int
}

// ReviewSummary is the rating breakdown of a product
type ReviewSummary struct {
	ProductID         uuid.UUID   `json:"product_id"`
	TotalReviews      int         `json:"total_reviews"`
	AverageRating     float64     `json:"average_rating"`
	Distribution      map[int]int `json:"distribution"`
	VerifiedPurchases int         `json:"verified_purchases"`
}

// ReviewRepository defines the interface for review data access
type ReviewRepository interface {
	// Create creates a new review.
	// Returns ErrDuplicateReview when the user already has a live review of the product.
	Create(ctx context.Context, review *Review) error

	// GetByID retrieves a review with votes and edit history (excludes soft-deleted)
	GetByID(ctx context.Context, id uuid.UUID) (*Review, error)

	// ExistsForUser reports whether a live review of the product by the user exists
	ExistsForUser(ctx context.Context, productID, userID uuid.UUID) (bool, error)

	// List retrieves reviews matching the filter with their votes (excludes soft-deleted)
	List(ctx context.Context, filter ReviewFilter) ([]*Review, error)

	// Count returns the number of reviews matching the filter
	Count(ctx context.Context, filter ReviewFilter) (int, error)

	// Update persists moderation and content fields.
	// Returns ErrConflict when review.Version no longer matches.
	Update(ctx context.Context, review *Review) error

	// Edit persists the edited review and appends the history entry in one transaction
	Edit(ctx context.Context, review *Review, edit ReviewEdit) error

	// UpsertVote records the user's vote, replacing any previous one
	UpsertVote(ctx context.Context, reviewID, userID uuid.UUID, vote VoteType, at time.Time) error

	// DeleteVote removes the user's vote; ErrNotFound when there is none
	DeleteVote(ctx context.Context, reviewID, userID uuid.UUID) error

	// Delete soft-deletes a review
	Delete(ctx context.Context, id uuid.UUID) error

	// DeleteByProductID soft-deletes all reviews for a product (cascade delete)
	DeleteByProductID(ctx context.Context, productID uuid.UUID) error

	// Summary returns the approved rating distribution of a product
	Summary(ctx context.Context, productID uuid.UUID) (*ReviewSummary, error)
}

// RatingStats is the raw aggregate of approved ratings
type RatingStats struct {
	Count int `db:"count"`
	Sum   int `db:"sum"`
}

// RatingAggregate is the derived rating of a product
type RatingAggregate struct {
	ProductID uuid.UUID `json:"product_id"`
	Average   float64   `json:"average"`
	Quantity  int       `json:"quantity"`
}

// RatingRepository reads review aggregates and writes them onto products
type RatingRepository interface {
	// ApprovedRatingStats returns count and sum of approved, live ratings of a product
	ApprovedRatingStats(ctx context.Context, productID uuid.UUID) (RatingStats, error)

	// SetProductRating writes the aggregate fields; ErrNotFound when the product is gone
	SetProductRating(ctx context.Context, productID uuid.UUID, average float64, quantity int) error
}
