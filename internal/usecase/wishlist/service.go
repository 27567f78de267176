package wishlist

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/Pesokrava/plant_store/internal/domain"
	"github.com/Pesokrava/plant_store/internal/pkg/logger"
)

// Service handles products users save for later
type Service struct {
	repo     domain.WishlistRepository
	products domain.ProductRepository
	logger   *logger.Logger
}

// NewService creates a new wishlist service
func NewService(repo domain.WishlistRepository, products domain.ProductRepository, log *logger.Logger) *Service {
	return &Service{
		repo:     repo,
		products: products,
		logger:   log,
	}
}

// Add saves a product; saving it again is a no-op
func (s *Service) Add(ctx context.Context, principal domain.Principal, productID uuid.UUID) error {
	if principal.UserID == uuid.Nil {
		return domain.ErrUnauthorized
	}

	if _, err := s.products.GetByID(ctx, productID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("%w: product %s", domain.ErrNotFound, productID)
		}
		s.logger.Error("Failed to load product for wishlist", err)
		return err
	}

	if err := s.repo.Add(ctx, principal.UserID, productID); err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			s.logger.Error("Failed to add wishlist item", err)
		}
		return err
	}
	return nil
}

// Remove deletes a saved product
func (s *Service) Remove(ctx context.Context, principal domain.Principal, productID uuid.UUID) error {
	if principal.UserID == uuid.Nil {
		return domain.ErrUnauthorized
	}
	return s.repo.Remove(ctx, principal.UserID, productID)
}

// List returns a page of the caller's wishlist with the total count
func (s *Service) List(ctx context.Context, principal domain.Principal, limit, offset int) ([]*domain.WishlistItem, int, error) {
	if principal.UserID == uuid.Nil {
		return nil, 0, domain.ErrUnauthorized
	}

	items, total, err := s.repo.List(ctx, principal.UserID, limit, offset)
	if err != nil {
		s.logger.Error("Failed to list wishlist", err)
		return nil, 0, err
	}
	return items, total, nil
}
