package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/Pesokrava/plant_store/internal/domain"
)

const reviewColumns = `id, product_id, user_id, order_id, rating, title, comment, pros, cons, images,
	reviewer_info, is_verified_purchase, is_approved, is_reported, report_reasons, moderation_notes,
	response_message, responded_by, responded_at, version, created_at, updated_at, deleted_at`

const helpfulScoreExpr = `(SELECT COUNT(*) FILTER (WHERE v.vote = 'positive') - COUNT(*) FILTER (WHERE v.vote = 'negative')
	FROM review_votes v WHERE v.review_id = reviews.id)`

// reviewRow is the flat storage shape of domain.Review
type reviewRow struct {
	ID                 uuid.UUID           `db:"id"`
	ProductID          uuid.UUID           `db:"product_id"`
	UserID             uuid.UUID           `db:"user_id"`
	OrderID            *uuid.UUID          `db:"order_id"`
	Rating             int                 `db:"rating"`
	Title              string              `db:"title"`
	Comment            string              `db:"comment"`
	Pros               pq.StringArray      `db:"pros"`
	Cons               pq.StringArray      `db:"cons"`
	Images             domain.ReviewImages `db:"images"`
	ReviewerInfo       domain.ReviewerInfo `db:"reviewer_info"`
	IsVerifiedPurchase bool                `db:"is_verified_purchase"`
	IsApproved         bool                `db:"is_approved"`
	IsReported         bool                `db:"is_reported"`
	ReportReasons      pq.StringArray      `db:"report_reasons"`
	ModerationNotes    string              `db:"moderation_notes"`
	ResponseMessage    sql.NullString      `db:"response_message"`
	RespondedBy        *uuid.UUID          `db:"responded_by"`
	RespondedAt        *time.Time          `db:"responded_at"`
	Version            int                 `db:"version"`
	CreatedAt          time.Time           `db:"created_at"`
	UpdatedAt          time.Time           `db:"updated_at"`
	DeletedAt          *time.Time          `db:"deleted_at"`
}

func (row *reviewRow) toDomain() *domain.Review {
	review := &domain.Review{
		ID:                 row.ID,
		ProductID:          row.ProductID,
		UserID:             row.UserID,
		OrderID:            row.OrderID,
		Rating:             row.Rating,
		Title:              row.Title,
		Comment:            row.Comment,
		Pros:               []string(row.Pros),
		Cons:               []string(row.Cons),
		Images:             row.Images,
		ReviewerInfo:       row.ReviewerInfo,
		IsVerifiedPurchase: row.IsVerifiedPurchase,
		IsApproved:         row.IsApproved,
		IsReported:         row.IsReported,
		ReportReasons:      make([]domain.ReportReason, 0, len(row.ReportReasons)),
		ModerationNotes:    row.ModerationNotes,
		HelpfulVotes:       domain.HelpfulVotes{Positive: []domain.Vote{}, Negative: []domain.Vote{}},
		Version:            row.Version,
		CreatedAt:          row.CreatedAt,
		UpdatedAt:          row.UpdatedAt,
		DeletedAt:          row.DeletedAt,
	}

	for _, reason := range row.ReportReasons {
		review.ReportReasons = append(review.ReportReasons, domain.ReportReason(reason))
	}

	if row.ResponseMessage.Valid && row.RespondedBy != nil && row.RespondedAt != nil {
		review.AdminResponse = &domain.AdminResponse{
			Message:     row.ResponseMessage.String,
			RespondedBy: *row.RespondedBy,
			RespondedAt: *row.RespondedAt,
		}
	}

	return review
}

type voteRow struct {
	ReviewID uuid.UUID `db:"review_id"`
	UserID   uuid.UUID `db:"user_id"`
	Vote     string    `db:"vote"`
	VotedAt  time.Time `db:"voted_at"`
}

type editRow struct {
	EditedAt        time.Time `db:"edited_at"`
	Reason          string    `db:"reason"`
	EditedBy        uuid.UUID `db:"edited_by"`
	PreviousTitle   string    `db:"previous_title"`
	PreviousComment string    `db:"previous_comment"`
	PreviousRating  int       `db:"previous_rating"`
}

// ReviewRepository implements domain.ReviewRepository for PostgreSQL
type ReviewRepository struct {
	db *sqlx.DB
}

// NewReviewRepository creates a new PostgreSQL review repository
func NewReviewRepository(db *sqlx.DB) *ReviewRepository {
	return &ReviewRepository{db: db}
}

// Create creates a new review
func (r *ReviewRepository) Create(ctx context.Context, review *domain.Review) error {
	// Return domain.ErrNotFound instead of a foreign key violation
	var exists bool
	checkQuery := `SELECT EXISTS(SELECT 1 FROM products WHERE id = $1 AND deleted_at IS NULL)`
	if err := r.db.GetContext(ctx, &exists, checkQuery, review.ProductID); err != nil {
		return translateError(err)
	}
	if !exists {
		return fmt.Errorf("%w: product %s", domain.ErrNotFound, review.ProductID)
	}

	query := `
		INSERT INTO reviews (product_id, user_id, order_id, rating, title, comment, pros, cons, images,
			reviewer_info, is_verified_purchase, is_approved, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $13)
		RETURNING id, version, created_at, updated_at
	`

	err := r.db.QueryRowxContext(
		ctx,
		query,
		review.ProductID,
		review.UserID,
		review.OrderID,
		review.Rating,
		review.Title,
		review.Comment,
		textArray(review.Pros),
		textArray(review.Cons),
		review.Images,
		review.ReviewerInfo,
		review.IsVerifiedPurchase,
		review.IsApproved,
		time.Now(),
	).Scan(&review.ID, &review.Version, &review.CreatedAt, &review.UpdatedAt)

	return translateError(err)
}

// GetByID retrieves a review with votes and edit history
func (r *ReviewRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Review, error) {
	query := `SELECT ` + reviewColumns + ` FROM reviews WHERE id = $1 AND deleted_at IS NULL`

	var row reviewRow
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		return nil, translateError(err)
	}

	review := row.toDomain()
	if err := r.attachVotes(ctx, []*domain.Review{review}); err != nil {
		return nil, err
	}

	editsQuery := `
		SELECT edited_at, reason, edited_by, previous_title, previous_comment, previous_rating
		FROM review_edits
		WHERE review_id = $1
		ORDER BY edited_at, id
	`

	var edits []editRow
	if err := r.db.SelectContext(ctx, &edits, editsQuery, id); err != nil {
		return nil, translateError(err)
	}

	for _, e := range edits {
		review.EditHistory = append(review.EditHistory, domain.ReviewEdit{
			EditedAt: e.EditedAt,
			Reason:   e.Reason,
			EditedBy: e.EditedBy,
			Previous: domain.ReviewSnapshot{
				Title:   e.PreviousTitle,
				Comment: e.PreviousComment,
				Rating:  e.PreviousRating,
			},
		})
	}

	return review, nil
}

// ExistsForUser reports whether a live review of the product by the user exists
func (r *ReviewRepository) ExistsForUser(ctx context.Context, productID, userID uuid.UUID) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM reviews WHERE product_id = $1 AND user_id = $2 AND deleted_at IS NULL)`

	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, productID, userID); err != nil {
		return false, translateError(err)
	}

	return exists, nil
}

// List retrieves reviews matching the filter with their votes
func (r *ReviewRepository) List(ctx context.Context, filter domain.ReviewFilter) ([]*domain.Review, error) {
	where, args := reviewWhere(filter)

	sortExpr := "created_at"
	switch filter.SortBy {
	case "rating":
		sortExpr = "rating"
	case "helpful":
		sortExpr = helpfulScoreExpr
	}
	direction := "ASC"
	if filter.SortDesc {
		direction = "DESC"
	}

	args = append(args, filter.Limit, filter.Offset)
	query := fmt.Sprintf(
		`SELECT %s FROM reviews WHERE %s ORDER BY %s %s, created_at DESC, id LIMIT $%d OFFSET $%d`,
		reviewColumns, where, sortExpr, direction, len(args)-1, len(args),
	)

	var rows []reviewRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, translateError(err)
	}

	reviews := make([]*domain.Review, 0, len(rows))
	for i := range rows {
		reviews = append(reviews, rows[i].toDomain())
	}

	if err := r.attachVotes(ctx, reviews); err != nil {
		return nil, err
	}

	return reviews, nil
}

// Count returns the number of reviews matching the filter
func (r *ReviewRepository) Count(ctx context.Context, filter domain.ReviewFilter) (int, error) {
	where, args := reviewWhere(filter)
	query := `SELECT COUNT(*) FROM reviews WHERE ` + where

	var count int
	if err := r.db.GetContext(ctx, &count, query, args...); err != nil {
		return 0, translateError(err)
	}

	return count, nil
}

// Update persists moderation and content fields guarded by the version column
func (r *ReviewRepository) Update(ctx context.Context, review *domain.Review) error {
	return r.update(ctx, r.db, review)
}

// Edit persists the edited review and appends the history entry in one transaction
func (r *ReviewRepository) Edit(ctx context.Context, review *domain.Review, edit domain.ReviewEdit) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return translateError(err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := r.update(ctx, tx, review); err != nil {
		return err
	}

	query := `
		INSERT INTO review_edits (review_id, edited_at, reason, edited_by, previous_title, previous_comment, previous_rating)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err = tx.ExecContext(
		ctx,
		query,
		review.ID,
		edit.EditedAt,
		edit.Reason,
		edit.EditedBy,
		edit.Previous.Title,
		edit.Previous.Comment,
		edit.Previous.Rating,
	)
	if err != nil {
		return translateError(err)
	}

	if err := tx.Commit(); err != nil {
		return translateError(err)
	}

	review.EditHistory = append(review.EditHistory, edit)
	return nil
}

// UpsertVote records the user's vote, replacing any previous one.
// The (review_id, user_id) primary key keeps the voter sets disjoint.
func (r *ReviewRepository) UpsertVote(ctx context.Context, reviewID, userID uuid.UUID, vote domain.VoteType, at time.Time) error {
	query := `
		INSERT INTO review_votes (review_id, user_id, vote, voted_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (review_id, user_id) DO UPDATE
		SET vote = EXCLUDED.vote, voted_at = EXCLUDED.voted_at
	`

	_, err := r.db.ExecContext(ctx, query, reviewID, userID, string(vote), at)
	return translateError(err)
}

// DeleteVote removes the user's vote
func (r *ReviewRepository) DeleteVote(ctx context.Context, reviewID, userID uuid.UUID) error {
	query := `DELETE FROM review_votes WHERE review_id = $1 AND user_id = $2`

	result, err := r.db.ExecContext(ctx, query, reviewID, userID)
	if err != nil {
		return translateError(err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return domain.ErrNotFound
	}

	return nil
}

// Delete soft-deletes a review
func (r *ReviewRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE reviews
		SET deleted_at = $1
		WHERE id = $2 AND deleted_at IS NULL
	`

	result, err := r.db.ExecContext(ctx, query, time.Now(), id)
	if err != nil {
		return translateError(err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return domain.ErrNotFound
	}

	return nil
}

// DeleteByProductID soft-deletes all reviews for a product (cascade delete)
func (r *ReviewRepository) DeleteByProductID(ctx context.Context, productID uuid.UUID) error {
	query := `
		UPDATE reviews
		SET deleted_at = $1
		WHERE product_id = $2 AND deleted_at IS NULL
	`

	_, err := r.db.ExecContext(ctx, query, time.Now(), productID)
	return translateError(err)
}

// Summary returns the approved rating distribution of a product
func (r *ReviewRepository) Summary(ctx context.Context, productID uuid.UUID) (*domain.ReviewSummary, error) {
	query := `
		SELECT rating, COUNT(*) AS total, COUNT(*) FILTER (WHERE is_verified_purchase) AS verified
		FROM reviews
		WHERE product_id = $1 AND is_approved AND deleted_at IS NULL
		GROUP BY rating
	`

	var buckets []struct {
		Rating   int `db:"rating"`
		Total    int `db:"total"`
		Verified int `db:"verified"`
	}
	if err := r.db.SelectContext(ctx, &buckets, query, productID); err != nil {
		return nil, translateError(err)
	}

	summary := &domain.ReviewSummary{
		ProductID:    productID,
		Distribution: map[int]int{1: 0, 2: 0, 3: 0, 4: 0, 5: 0},
	}

	sum := 0
	for _, b := range buckets {
		summary.Distribution[b.Rating] = b.Total
		summary.TotalReviews += b.Total
		summary.VerifiedPurchases += b.Verified
		sum += b.Rating * b.Total
	}

	if summary.TotalReviews > 0 {
		summary.AverageRating = math.Round(float64(sum)/float64(summary.TotalReviews)*10) / 10
	}

	return summary, nil
}

func (r *ReviewRepository) update(ctx context.Context, q sqlx.QueryerContext, review *domain.Review) error {
	query := `
		UPDATE reviews
		SET rating = $1, title = $2, comment = $3, pros = $4, cons = $5, images = $6, reviewer_info = $7,
			is_verified_purchase = $8, is_approved = $9, is_reported = $10, report_reasons = $11,
			moderation_notes = $12, response_message = $13, responded_by = $14, responded_at = $15,
			updated_at = $16, version = version + 1
		WHERE id = $17 AND version = $18 AND deleted_at IS NULL
		RETURNING version, updated_at
	`

	var (
		responseMessage sql.NullString
		respondedBy     *uuid.UUID
		respondedAt     *time.Time
	)
	if review.AdminResponse != nil {
		responseMessage = sql.NullString{String: review.AdminResponse.Message, Valid: true}
		respondedBy = &review.AdminResponse.RespondedBy
		respondedAt = &review.AdminResponse.RespondedAt
	}

	reasons := make(pq.StringArray, 0, len(review.ReportReasons))
	for _, reason := range review.ReportReasons {
		reasons = append(reasons, string(reason))
	}

	err := q.QueryRowxContext(
		ctx,
		query,
		review.Rating,
		review.Title,
		review.Comment,
		textArray(review.Pros),
		textArray(review.Cons),
		review.Images,
		review.ReviewerInfo,
		review.IsVerifiedPurchase,
		review.IsApproved,
		review.IsReported,
		reasons,
		review.ModerationNotes,
		responseMessage,
		respondedBy,
		respondedAt,
		time.Now(),
		review.ID,
		review.Version,
	).Scan(&review.Version, &review.UpdatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: review %s was modified concurrently", domain.ErrConflict, review.ID)
		}
		return translateError(err)
	}

	return nil
}

func (r *ReviewRepository) attachVotes(ctx context.Context, reviews []*domain.Review) error {
	if len(reviews) == 0 {
		return nil
	}

	ids := make([]string, 0, len(reviews))
	byID := make(map[uuid.UUID]*domain.Review, len(reviews))
	for _, rv := range reviews {
		ids = append(ids, rv.ID.String())
		byID[rv.ID] = rv
	}

	query := `
		SELECT review_id, user_id, vote, voted_at
		FROM review_votes
		WHERE review_id = ANY($1::uuid[])
		ORDER BY voted_at
	`

	var votes []voteRow
	if err := r.db.SelectContext(ctx, &votes, query, pq.StringArray(ids)); err != nil {
		return translateError(err)
	}

	for _, v := range votes {
		rv, ok := byID[v.ReviewID]
		if !ok {
			continue
		}
		vote := domain.Vote{UserID: v.UserID, VotedAt: v.VotedAt}
		if domain.VoteType(v.Vote) == domain.VotePositive {
			rv.HelpfulVotes.Positive = append(rv.HelpfulVotes.Positive, vote)
		} else {
			rv.HelpfulVotes.Negative = append(rv.HelpfulVotes.Negative, vote)
		}
	}

	return nil
}

func reviewWhere(filter domain.ReviewFilter) (string, []interface{}) {
	conds := []string{"deleted_at IS NULL"}
	var args []interface{}

	add := func(cond string, arg interface{}) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if filter.ProductID != nil {
		add("product_id = $%d", *filter.ProductID)
	}
	if filter.UserID != nil {
		add("user_id = $%d", *filter.UserID)
	}
	if filter.Rating != nil {
		add("rating = $%d", *filter.Rating)
	}
	if filter.VerifiedOnly {
		conds = append(conds, "is_verified_purchase")
	}
	if filter.Approved != nil {
		add("is_approved = $%d", *filter.Approved)
	}
	if filter.Reported != nil {
		add("is_reported = $%d", *filter.Reported)
	}

	return strings.Join(conds, " AND "), args
}

// textArray maps a nil slice to an empty array so NOT NULL columns accept it
func textArray(values []string) pq.StringArray {
	if values == nil {
		return pq.StringArray{}
	}
	return pq.StringArray(values)
}
