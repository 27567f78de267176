package postgres

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/Pesokrava/plant_store/internal/domain"
)

const userColumns = `id, name, first_name, last_name, email, password_hash, phone, role,
	is_active, email_verified, last_login, created_at, updated_at`

// UserRepository implements domain.UserRepository for PostgreSQL
type UserRepository struct {
	db *sqlx.DB
}

// NewUserRepository creates a new PostgreSQL user repository
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create creates a new user
func (r *UserRepository) Create(ctx context.Context, user *domain.User) error {
	query := `
		INSERT INTO users (name, first_name, last_name, email, password_hash, phone, role,
			is_active, email_verified, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, created_at, updated_at
	`

	now := time.Now()
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))

	err := r.db.QueryRowxContext(
		ctx,
		query,
		user.Name,
		user.FirstName,
		user.LastName,
		user.Email,
		user.PasswordHash,
		user.Phone,
		user.Role,
		user.IsActive,
		user.EmailVerified,
		now,
		now,
	).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)

	return translateError(err)
}

// GetByID retrieves a user by ID
func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	var user domain.User
	if err := r.db.GetContext(ctx, &user, query, id); err != nil {
		return nil, translateError(err)
	}

	return &user, nil
}

// GetByEmail retrieves a user by email
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`

	var user domain.User
	if err := r.db.GetContext(ctx, &user, query, strings.ToLower(strings.TrimSpace(email))); err != nil {
		return nil, translateError(err)
	}

	return &user, nil
}

// TouchLastLogin records a successful login
func (r *UserRepository) TouchLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	query := `UPDATE users SET last_login = $1 WHERE id = $2`

	result, err := r.db.ExecContext(ctx, query, at, id)
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
