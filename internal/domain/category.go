package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Category groups products; categories form a forest through ParentID
type Category struct {
	ID          uuid.UUID  `json:"id" db:"id"`
	Name        string     `json:"name" db:"name" validate:"required,min=1,max=100"`
	Slug        string     `json:"slug" db:"slug"`
	Description string     `json:"description" db:"description" validate:"max=500"`
	ParentID    *uuid.UUID `json:"parent_id,omitempty" db:"parent_id"`
	IsActive    bool       `json:"is_active" db:"is_active"`
	SortOrder   int        `json:"sort_order" db:"sort_order"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at" db:"updated_at"`
}

// CategoryNode is a category with its children, used for tree output
type CategoryNode struct {
	*Category
	Children []*CategoryNode `json:"children"`
}

// CategoryRepository defines the interface for category data access
type CategoryRepository interface {
	// Create creates a new category; ErrAlreadyExists when the name is taken
	Create(ctx context.Context, category *Category) error

	// GetByID retrieves a category by ID
	GetByID(ctx context.Context, id uuid.UUID) (*Category, error)

	// List retrieves all categories ordered by sort order and name
	List(ctx context.Context, onlyActive bool) ([]*Category, error)

	// Update updates an existing category
	Update(ctx context.Context, category *Category) error
}
