package domain

import (
	"context"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

// Product represents a plant in the catalog.
// RatingsAverage and RatingsQuantity are owned by the rating aggregator.
type Product struct {
	ID              uuid.UUID       `json:"id" db:"id"`
	Name            string          `json:"name" db:"name" validate:"required,min=1,max=255"`
	Slug            string          `json:"slug" db:"slug"`
	SKU             string          `json:"sku" db:"sku" validate:"max=64"`
	Description     string          `json:"description" db:"description" validate:"required"`
	Price           decimal.Decimal `json:"price" db:"price"`
	CategoryID      *uuid.UUID      `json:"category_id,omitempty" db:"category_id"`
	Images          ProductImages   `json:"images" db:"images"`
	StockQuantity   int             `json:"stock_quantity" db:"stock_quantity" validate:"gte=0"`
	PlantCare       PlantCare       `json:"plant_care" db:"plant_care"`
	Tags            pq.StringArray  `json:"tags" db:"tags"`
	IsActive        bool            `json:"is_active" db:"is_active"`
	RatingsAverage  float64         `json:"ratings_average" db:"ratings_average"`
	RatingsQuantity int             `json:"ratings_quantity" db:"ratings_quantity"`
	Version         int             `json:"version" db:"version"`
	CreatedAt       time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at" db:"updated_at"`
	DeletedAt       *time.Time      `json:"deleted_at,omitempty" db:"deleted_at"`
}

// ProductImage is a catalog picture
type ProductImage struct {
	URL       string `json:"url" validate:"required,url"`
	Alt       string `json:"alt,omitempty"`
	IsPrimary bool   `json:"is_primary"`
}

// ProductImages is stored as a JSONB column
type ProductImages []ProductImage

// Value implements driver.Valuer
func (p ProductImages) Value() (driver.Value, error) {
	if p == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(p)
}

// Scan implements sql.Scanner
func (p *ProductImages) Scan(src any) error {
	return scanJSON(src, p)
}

// PrimaryURL returns the primary image URL, falling back to the first image
func (p ProductImages) PrimaryURL() string {
	for _, img := range p {
		if img.IsPrimary {
			return img.URL
		}
	}
	if len(p) > 0 {
		return p[0].URL
	}
	return ""
}

// PlantCare describes how to keep the plant alive
type PlantCare struct {
	LightRequirement  string `json:"light_requirement,omitempty" validate:"omitempty,oneof='Low Light' 'Medium Light' 'Bright Indirect' 'Direct Sun'"`
	WateringFrequency string `json:"watering_frequency,omitempty" validate:"omitempty,oneof='Daily' 'Every 2-3 days' 'Weekly' 'Bi-weekly' 'Monthly'"`
	Difficulty        string `json:"difficulty,omitempty" validate:"omitempty,oneof=Beginner Intermediate Advanced Expert"`
	Humidity          string `json:"humidity,omitempty" validate:"omitempty,oneof=Low Medium High"`
	PetFriendly       bool   `json:"pet_friendly"`
	AirPurifying      bool   `json:"air_purifying"`
}

// Value implements driver.Valuer
func (c PlantCare) Value() (driver.Value, error) {
	return json.Marshal(c)
}

// Scan implements sql.Scanner
func (c *PlantCare) Scan(src any) error {
	return scanJSON(src, c)
}

// IsAvailable reports whether the product can be ordered
func (p *Product) IsAvailable() bool {
	return p.IsActive && p.StockQuantity > 0
}

// ProductFilter narrows catalog listings
type ProductFilter struct {
	CategoryID *uuid.UUID
	Search     string
	Tag        string
	MinPrice   *decimal.Decimal
	MaxPrice   *decimal.Decimal
	OnlyActive bool
	SortBy     string // created_at, price, name, ratings_average
	SortDesc   bool
	Limit      int
	Offset     int
}

// ProductRepository defines the interface for product data access
type ProductRepository interface {
	// Create creates a new product
	Create(ctx context.Context, product *Product) error

	// GetByID retrieves a product by ID (excludes soft-deleted)
	GetByID(ctx context.Context, id uuid.UUID) (*Product, error)

	// List retrieves a filtered, sorted page of products (excludes soft-deleted)
	List(ctx context.Context, filter ProductFilter) ([]*Product, error)

	// Count returns the number of products matching the filter
	Count(ctx context.Context, filter ProductFilter) (int, error)

	// Update updates an existing product's catalog fields
	Update(ctx context.Context, product *Product) error

	// Delete soft-deletes a product
	Delete(ctx context.Context, id uuid.UUID) error
}

func scanJSON(src any, dst any) error {
	switch v := src.(type) {
	case nil:
		return nil
	case []byte:
		if len(v) == 0 {
			return nil
		}
		return json.Unmarshal(v, dst)
	case string:
		if v == "" {
			return nil
		}
		return json.Unmarshal([]byte(v), dst)
	default:
		return errors.New("unsupported JSON column type")
	}
}
