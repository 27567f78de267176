package product

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/Pesokrava/plant_store/internal/domain"
	"github.com/Pesokrava/plant_store/internal/pkg/logger"
	"github.com/Pesokrava/plant_store/internal/pkg/validator"
)

// ProductCache drops cached data of a product
type ProductCache interface {
	InvalidateAllProductCache(ctx context.Context, productID uuid.UUID) error
}

// Input is the writable part of a product
type Input struct {
	Name          string                `json:"name" validate:"required,min=1,max=255"`
	Description   string                `json:"description" validate:"required"`
	Price         decimal.Decimal       `json:"price"`
	SKU           string                `json:"sku" validate:"max=64"`
	CategoryID    *uuid.UUID            `json:"category_id,omitempty"`
	Images        []domain.ProductImage `json:"images" validate:"max=20,dive"`
	StockQuantity int                   `json:"stock_quantity" validate:"gte=0"`
	PlantCare     domain.PlantCare      `json:"plant_care"`
	Tags          []string              `json:"tags" validate:"max=20,dive,max=50"`
	IsActive      *bool                 `json:"is_active,omitempty"`
}

// ListQuery narrows catalog listings
type ListQuery struct {
	CategoryID      *uuid.UUID
	Search          string
	Tag             string
	MinPrice        *decimal.Decimal
	MaxPrice        *decimal.Decimal
	IncludeInactive bool
	SortBy          string
	SortOrder       string
	Limit           int
	Offset          int
}

// Service handles product business logic
type Service struct {
	repo       domain.ProductRepository
	reviews    domain.ReviewRepository
	categories domain.CategoryRepository
	cache      ProductCache
	logger     *logger.Logger
	now        func() time.Time
}

// NewService creates a new product service
func NewService(
	repo domain.ProductRepository,
	reviews domain.ReviewRepository,
	categories domain.CategoryRepository,
	cache ProductCache,
	log *logger.Logger,
) *Service {
	return &Service{
		repo:       repo,
		reviews:    reviews,
		categories: categories,
		cache:      cache,
		logger:     log,
		now:        time.Now,
	}
}

// Create creates a new product; admin only
func (s *Service) Create(ctx context.Context, principal domain.Principal, input Input) (*domain.Product, error) {
	if !principal.IsAdmin() {
		return nil, domain.ErrForbidden
	}

	if err := s.validate(ctx, &input); err != nil {
		return nil, err
	}

	product := &domain.Product{IsActive: true}
	apply(product, input)
	if product.SKU == "" {
		product.SKU = GenerateSKU(s.now())
	}

	if err := s.repo.Create(ctx, product); err != nil {
		s.logger.Error("Failed to create product", err)
		return nil, err
	}

	s.logger.WithFields(map[string]interface{}{
		"product_id": product.ID,
		"name":       product.Name,
		"sku":        product.SKU,
	}).Info("Product created successfully")

	return product, nil
}

// GetByID retrieves a product by ID
func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	product, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.logger.Debugf("Product not found: %s", id)
		} else {
			s.logger.Error("Failed to get product", err)
		}
		return nil, err
	}

	return product, nil
}

// List retrieves a filtered page of products. Inactive products are listed for admins only.
func (s *Service) List(ctx context.Context, principal domain.Principal, query ListQuery) ([]*domain.Product, int, error) {
	if query.Limit <= 0 || query.Limit > 100 {
		query.Limit = 20
	}
	if query.Offset < 0 {
		query.Offset = 0
	}
	if query.MinPrice != nil && query.MaxPrice != nil && query.MinPrice.GreaterThan(*query.MaxPrice) {
		return nil, 0, fmt.Errorf("%w: min price above max price", domain.ErrInvalidInput)
	}

	filter := domain.ProductFilter{
		CategoryID: query.CategoryID,
		Search:     strings.TrimSpace(query.Search),
		Tag:        strings.TrimSpace(query.Tag),
		MinPrice:   query.MinPrice,
		MaxPrice:   query.MaxPrice,
		OnlyActive: !(query.IncludeInactive && principal.IsAdmin()),
		SortBy:     query.SortBy,
		SortDesc:   !strings.EqualFold(query.SortOrder, "asc"),
		Limit:      query.Limit,
		Offset:     query.Offset,
	}

	products, err := s.repo.List(ctx, filter)
	if err != nil {
		s.logger.Error("Failed to list products", err)
		return nil, 0, err
	}

	total, err := s.repo.Count(ctx, filter)
	if err != nil {
		s.logger.Error("Failed to count products", err)
		return nil, 0, err
	}

	return products, total, nil
}

// Update replaces the catalog fields of a product; admin only
func (s *Service) Update(ctx context.Context, principal domain.Principal, id uuid.UUID, input Input) (*domain.Product, error) {
	if !principal.IsAdmin() {
		return nil, domain.ErrForbidden
	}

	if err := s.validate(ctx, &input); err != nil {
		return nil, err
	}

	existing, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	product := *existing
	apply(&product, input)
	if product.SKU == "" {
		product.SKU = existing.SKU
	}

	if err := s.repo.Update(ctx, &product); err != nil {
		s.logger.Error("Failed to update product", err)
		return nil, err
	}

	s.logger.WithFields(map[string]interface{}{
		"product_id": product.ID,
		"name":       product.Name,
	}).Info("Product updated successfully")

	return &product, nil
}

// Delete soft-deletes a product and its reviews; admin only
func (s *Service) Delete(ctx context.Context, principal domain.Principal, id uuid.UUID) error {
	if !principal.IsAdmin() {
		return domain.ErrForbidden
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		s.logger.Error("Failed to delete product", err)
		return err
	}

	if err := s.reviews.DeleteByProductID(ctx, id); err != nil {
		s.logger.Errorf(err, "Failed to delete reviews of product %s", id)
		return err
	}

	if s.cache != nil {
		if err := s.cache.InvalidateAllProductCache(ctx, id); err != nil {
			s.logger.Warnf("Failed to invalidate cache for product %s: %v", id, err)
		}
	}

	s.logger.WithFields(map[string]interface{}{
		"product_id": id,
	}).Info("Product deleted successfully")

	return nil
}

func (s *Service) validate(ctx context.Context, input *Input) error {
	input.Name = strings.TrimSpace(input.Name)
	input.SKU = strings.ToUpper(strings.TrimSpace(input.SKU))

	if err := validator.Struct(input); err != nil {
		s.logger.Debugf("Product validation failed: %v", err)
		return err
	}
	if input.Price.IsNegative() {
		return fmt.Errorf("%w: price must not be negative", domain.ErrInvalidInput)
	}

	if input.CategoryID != nil {
		if _, err := s.categories.GetByID(ctx, *input.CategoryID); err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return fmt.Errorf("%w: unknown category %s", domain.ErrInvalidInput, *input.CategoryID)
			}
			return err
		}
	}

	return nil
}

func apply(product *domain.Product, input Input) {
	product.Name = input.Name
	product.Slug = domain.Slugify(input.Name)
	product.Description = input.Description
	product.Price = input.Price.Round(2)
	product.SKU = input.SKU
	product.CategoryID = input.CategoryID
	product.Images = input.Images
	product.StockQuantity = input.StockQuantity
	product.PlantCare = input.PlantCare
	product.Tags = pq.StringArray(normalizeTags(input.Tags))
	if input.IsActive != nil {
		product.IsActive = *input.IsActive
	}
}

// GenerateSKU builds PLT-<base36 millis>-<random>
func GenerateSKU(now time.Time) string {
	stamp := strings.ToUpper(strconv.FormatInt(now.UnixMilli(), 36))
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:5])
	return fmt.Sprintf("PLT-%s-%s", stamp, suffix)
}

func normalizeTags(tags []string) []string {
	seen := make(map[string]bool, len(tags))
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag == "" || seen[tag] {
			continue
		}
		seen[tag] = true
		out = append(out, tag)
	}
	return out
}
