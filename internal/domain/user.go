package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Role is the canonical authorization role of a user
type Role string

const (
	RoleCustomer Role = "customer"
	RoleAdmin    Role = "admin"
)

// IsValid reports whether r is a known role
func (r Role) IsValid() bool {
	return r == RoleCustomer || r == RoleAdmin
}

// Principal is the authenticated caller of a core operation
type Principal struct {
	UserID uuid.UUID
	Role   Role
}

// IsAdmin reports whether the principal has the admin role
func (p Principal) IsAdmin() bool {
	return p.Role == RoleAdmin
}

// User represents a store account
type User struct {
	ID            uuid.UUID  `json:"id" db:"id"`
	Name          string     `json:"name" db:"name"`
	FirstName     string     `json:"first_name" db:"first_name"`
	LastName      string     `json:"last_name" db:"last_name"`
	Email         string     `json:"email" db:"email"`
	PasswordHash  string     `json:"-" db:"password_hash"`
	Phone         string     `json:"phone,omitempty" db:"phone"`
	Role          Role       `json:"role" db:"role"`
	IsActive      bool       `json:"is_active" db:"is_active"`
	EmailVerified bool       `json:"email_verified" db:"email_verified"`
	LastLogin     *time.Time `json:"last_login,omitempty" db:"last_login"`
	CreatedAt     time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at" db:"updated_at"`
}

// FullName returns "First Last" when both parts are set, else Name
func (u *User) FullName() string {
	if u.FirstName != "" && u.LastName != "" {
		return u.FirstName + " " + u.LastName
	}
	if u.Name != "" {
		return u.Name
	}
	return "Unknown User"
}

// Principal returns the principal acting as this user
func (u *User) Principal() Principal {
	return Principal{UserID: u.ID, Role: u.Role}
}

// UserRepository defines the identity store
type UserRepository interface {
	// Create creates a new user; ErrAlreadyExists when the email is taken
	Create(ctx context.Context, user *User) error

	// GetByID retrieves a user by ID
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)

	// GetByEmail retrieves a user by lower-cased email
	GetByEmail(ctx context.Context, email string) (*User, error)

	// TouchLastLogin records a successful login
	TouchLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error
}
