package cart

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Pesokrava/plant_store/internal/domain"
	"github.com/Pesokrava/plant_store/internal/pkg/logger"
	"github.com/Pesokrava/plant_store/internal/pkg/validator"
	"github.com/Pesokrava/plant_store/internal/usecase/order"
)

// OrderCreator places orders; satisfied by the order service
type OrderCreator interface {
	Create(ctx context.Context, principal domain.Principal, input order.CreateInput) (*domain.Order, error)
}

// AddItemInput is a request to put a product in the cart
type AddItemInput struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
	Quantity  int       `json:"quantity" validate:"min=1,max=100"`
}

// UpdateItemInput replaces the quantity of a cart line; zero removes it
type UpdateItemInput struct {
	Quantity int `json:"quantity" validate:"min=0,max=100"`
}

// CheckoutInput is everything an order needs besides the cart lines
type CheckoutInput struct {
	Billing       domain.BillingInfo   `json:"billing"`
	Shipping      domain.ShippingInfo  `json:"shipping"`
	PaymentMethod domain.PaymentMethod `json:"payment_method"`
	Discount      decimal.Decimal      `json:"discount"`
	Notes         string               `json:"notes"`
}

// Option configures a Service
type Option func(*Service)

// WithClock overrides the time source
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// Service handles shopping carts and checking them out into orders
type Service struct {
	carts    domain.CartRepository
	products domain.ProductRepository
	orders   OrderCreator
	logger   *logger.Logger
	now      func() time.Time
}

// NewService creates a new cart service
func NewService(
	carts domain.CartRepository,
	products domain.ProductRepository,
	orders OrderCreator,
	log *logger.Logger,
	opts ...Option,
) *Service {
	s := &Service{
		carts:    carts,
		products: products,
		orders:   orders,
		logger:   log,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get returns the caller's cart, empty when nothing is stored
func (s *Service) Get(ctx context.Context, principal domain.Principal) (*domain.Cart, error) {
	if principal.UserID == uuid.Nil {
		return nil, domain.ErrUnauthorized
	}
	return s.load(ctx, principal.UserID)
}

// AddItem puts an active product in the cart, merging with an existing line
func (s *Service) AddItem(ctx context.Context, principal domain.Principal, input AddItemInput) (*domain.Cart, error) {
	if principal.UserID == uuid.Nil {
		return nil, domain.ErrUnauthorized
	}
	if err := validator.Struct(input); err != nil {
		return nil, err
	}

	product, err := s.products.GetByID(ctx, input.ProductID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("%w: product %s", domain.ErrNotFound, input.ProductID)
		}
		s.logger.Error("Failed to load product for cart", err)
		return nil, err
	}
	if !product.IsActive {
		return nil, fmt.Errorf("%w: product %s is not available", domain.ErrInvalidInput, product.ID)
	}

	return s.mutate(ctx, principal.UserID, func(c *domain.Cart) error {
		return c.Add(input.ProductID, input.Quantity, s.now())
	})
}

// UpdateItem sets the quantity of a line already in the cart
func (s *Service) UpdateItem(ctx context.Context, principal domain.Principal, productID uuid.UUID, input UpdateItemInput) (*domain.Cart, error) {
	if principal.UserID == uuid.Nil {
		return nil, domain.ErrUnauthorized
	}
	if err := validator.Struct(input); err != nil {
		return nil, err
	}

	return s.mutate(ctx, principal.UserID, func(c *domain.Cart) error {
		return c.SetQuantity(productID, input.Quantity)
	})
}

// RemoveItem drops a line from the cart
func (s *Service) RemoveItem(ctx context.Context, principal domain.Principal, productID uuid.UUID) (*domain.Cart, error) {
	if principal.UserID == uuid.Nil {
		return nil, domain.ErrUnauthorized
	}

	return s.mutate(ctx, principal.UserID, func(c *domain.Cart) error {
		return c.Remove(productID)
	})
}

// Clear empties the cart
func (s *Service) Clear(ctx context.Context, principal domain.Principal) error {
	if principal.UserID == uuid.Nil {
		return domain.ErrUnauthorized
	}
	return s.carts.Delete(ctx, principal.UserID)
}

// Checkout places an order for the cart lines at current prices and empties the cart
func (s *Service) Checkout(ctx context.Context, principal domain.Principal, input CheckoutInput) (*domain.Order, error) {
	if principal.UserID == uuid.Nil {
		return nil, domain.ErrUnauthorized
	}

	cart, err := s.load(ctx, principal.UserID)
	if err != nil {
		return nil, err
	}
	if len(cart.Items) == 0 {
		return nil, fmt.Errorf("%w: cart is empty", domain.ErrInvalidInput)
	}

	items := make([]order.ItemInput, 0, len(cart.Items))
	for _, line := range cart.Items {
		items = append(items, order.ItemInput{ProductID: line.ProductID, Quantity: line.Quantity})
	}

	placed, err := s.orders.Create(ctx, principal, order.CreateInput{
		Items:         items,
		Billing:       input.Billing,
		Shipping:      input.Shipping,
		PaymentMethod: input.PaymentMethod,
		Discount:      input.Discount,
		Notes:         input.Notes,
	})
	if err != nil {
		return nil, err
	}

	// The order stands even if the cart outlives it
	if err := s.carts.Delete(ctx, principal.UserID); err != nil {
		s.logger.WithFields(map[string]interface{}{
			"user_id":  principal.UserID,
			"order_id": placed.ID,
		}).Warnf("Failed to clear cart after checkout: %v", err)
	}

	s.logger.WithFields(map[string]interface{}{
		"user_id":      principal.UserID,
		"order_number": placed.OrderNumber,
		"lines":        len(items),
	}).Info("Cart checked out")

	return placed, nil
}

func (s *Service) load(ctx context.Context, userID uuid.UUID) (*domain.Cart, error) {
	cart, err := s.carts.Get(ctx, userID)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.NewCart(userID), nil
	}
	if err != nil {
		s.logger.Error("Failed to load cart", err)
		return nil, err
	}
	return cart, nil
}

// mutate applies change to the stored cart and saves it under the version it was read at
func (s *Service) mutate(ctx context.Context, userID uuid.UUID, change func(*domain.Cart) error) (*domain.Cart, error) {
	cart, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}

	if err := change(cart); err != nil {
		return nil, err
	}
	cart.UpdatedAt = s.now()

	if err := s.carts.SaveIfVersion(ctx, cart, cart.Version); err != nil {
		if !errors.Is(err, domain.ErrConflict) {
			s.logger.Error("Failed to save cart", err)
		}
		return nil, err
	}
	return cart, nil
}
