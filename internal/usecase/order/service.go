package order

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Pesokrava/plant_store/internal/config"
	"github.com/Pesokrava/plant_store/internal/domain"
	"github.com/Pesokrava/plant_store/internal/pkg/logger"
	"github.com/Pesokrava/plant_store/internal/pkg/metrics"
	"github.com/Pesokrava/plant_store/internal/pkg/validator"
)

// EventsSubject is the subject order events are published on
const EventsSubject = "orders.events"

// EventPublisher defines the interface for publishing events
type EventPublisher interface {
	Publish(ctx context.Context, subject string, data []byte) error
}

// OrderEvent represents an event related to an order
type OrderEvent struct {
	EventType      string             `json:"event_type"`
	Timestamp      time.Time          `json:"timestamp"`
	OrderID        uuid.UUID          `json:"order_id"`
	OrderNumber    string             `json:"order_number"`
	UserID         uuid.UUID          `json:"user_id"`
	Status         domain.OrderStatus `json:"status"`
	PreviousStatus domain.OrderStatus `json:"previous_status,omitempty"`
	Total          decimal.Decimal    `json:"total"`
}

// ItemInput is one requested line of a new order
type ItemInput struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
	Quantity  int       `json:"quantity" validate:"min=1,max=1000"`
}

// CreateInput is the request to place an order
type CreateInput struct {
	Items         []ItemInput          `json:"items" validate:"required,min=1,dive"`
	Billing       domain.BillingInfo   `json:"billing"`
	Shipping      domain.ShippingInfo  `json:"shipping"`
	PaymentMethod domain.PaymentMethod `json:"payment_method" validate:"required,oneof=cod card upi netbanking wallet"`
	Discount      decimal.Decimal      `json:"discount"`
	Notes         string               `json:"notes" validate:"max=500"`
}

// Option configures a Service
type Option func(*Service)

// WithClock overrides the time source
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// Service handles the order lifecycle
type Service struct {
	orders    domain.OrderRepository
	products  domain.ProductRepository
	publisher EventPublisher
	cfg       config.OrdersConfig
	logger    *logger.Logger
	now       func() time.Time
}

// NewService creates a new order service
func NewService(
	orders domain.OrderRepository,
	products domain.ProductRepository,
	publisher EventPublisher,
	cfg config.OrdersConfig,
	log *logger.Logger,
	opts ...Option,
) *Service {
	if cfg.Timezone == nil {
		cfg.Timezone = time.UTC
	}
	if cfg.NumberMaxAttempts < 1 {
		cfg.NumberMaxAttempts = 1
	}

	s := &Service{
		orders:    orders,
		products:  products,
		publisher: publisher,
		cfg:       cfg,
		logger:    log,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create validates the request, snapshots the products, prices the order and
// persists it under a freshly allocated order number
func (s *Service) Create(ctx context.Context, principal domain.Principal, input CreateInput) (*domain.Order, error) {
	if principal.UserID == uuid.Nil {
		return nil, domain.ErrUnauthorized
	}

	if err := validator.Struct(input); err != nil {
		s.logger.Debugf("Order validation failed: %v", err)
		return nil, err
	}

	items := make([]domain.OrderItem, 0, len(input.Items))
	subtotal := decimal.Zero
	for _, in := range input.Items {
		product, err := s.products.GetByID(ctx, in.ProductID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, fmt.Errorf("%w: product %s", domain.ErrNotFound, in.ProductID)
			}
			s.logger.Error("Failed to load product for order", err)
			return nil, err
		}
		if !product.IsActive {
			return nil, fmt.Errorf("%w: product %s is not available", domain.ErrInvalidInput, product.ID)
		}

		item := domain.NewOrderItem(product, in.Quantity)
		subtotal = subtotal.Add(item.Subtotal)
		items = append(items, item)
	}

	shipping := input.Shipping
	shipping.Cost = s.cfg.ShippingCosts[shipping.Method]

	pricing, err := domain.NewPricing(subtotal, s.tax(subtotal), shipping.Cost, input.Discount)
	if err != nil {
		return nil, err
	}

	order := &domain.Order{
		UserID:   principal.UserID,
		Items:    items,
		Billing:  input.Billing,
		Shipping: shipping,
		Payment: domain.PaymentInfo{
			Method: input.PaymentMethod,
			Status: domain.PaymentStatusPending,
		},
		Pricing: pricing,
		Status:  domain.OrderStatusPending,
		Notes:   input.Notes,
	}

	if err := s.insertWithOrderNumber(ctx, order); err != nil {
		s.logger.Error("Failed to create order", err)
		return nil, err
	}

	metrics.OrdersCreated.Inc()
	s.publishEvent(ctx, "order.created", order, "")

	s.logger.WithFields(map[string]interface{}{
		"order_id":     order.ID,
		"order_number": order.OrderNumber,
		"user_id":      order.UserID,
		"total":        order.Pricing.Total.String(),
	}).Info("Order created successfully")

	return order, nil
}

// tax is subtotal × rate rounded to cents
func (s *Service) tax(subtotal decimal.Decimal) decimal.Decimal {
	return subtotal.Mul(s.cfg.TaxRate).Round(2)
}

// insertWithOrderNumber allocates the next number of the day and inserts the order.
// A collision on the number means another order won the race; count again and retry.
func (s *Service) insertWithOrderNumber(ctx context.Context, order *domain.Order) error {
	for attempt := 1; attempt <= s.cfg.NumberMaxAttempts; attempt++ {
		now := s.now()

		number, err := s.nextOrderNumber(ctx, now)
		if err != nil {
			return err
		}

		order.OrderNumber = number
		order.OrderDate = now
		order.CreatedAt = now
		order.UpdatedAt = now

		err = s.orders.Create(ctx, order)
		if err == nil {
			return nil
		}
		if !errors.Is(err, domain.ErrOrderNumberTaken) {
			return err
		}

		metrics.OrderNumberRetries.Inc()
		s.logger.Debugf("Order number %s taken, retrying (attempt %d/%d)", number, attempt, s.cfg.NumberMaxAttempts)
	}

	return fmt.Errorf("%w: no free order number after %d attempts", domain.ErrConflict, s.cfg.NumberMaxAttempts)
}

func (s *Service) nextOrderNumber(ctx context.Context, now time.Time) (string, error) {
	local := now.In(s.cfg.Timezone)
	dayStart := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, s.cfg.Timezone)
	dayEnd := dayStart.AddDate(0, 0, 1)

	count, err := s.orders.CountCreatedBetween(ctx, dayStart, dayEnd)
	if err != nil {
		return "", err
	}

	return FormatOrderNumber(dayStart, count+1), nil
}

// FormatOrderNumber renders ORD-YYYYMMDD-NNNN
func FormatOrderNumber(day time.Time, seq int) string {
	return fmt.Sprintf("ORD-%s-%04d", day.Format("20060102"), seq)
}

// Get returns an order visible to the principal
func (s *Service) Get(ctx context.Context, principal domain.Principal, id uuid.UUID) (*domain.Order, error) {
	order, err := s.orders.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.logger.Debugf("Order not found: %s", id)
		} else {
			s.logger.Error("Failed to get order", err)
		}
		return nil, err
	}

	if !principal.IsAdmin() && order.UserID != principal.UserID {
		return nil, domain.ErrForbidden
	}

	return order, nil
}

// ListMine returns the principal's own orders, newest first
func (s *Service) ListMine(ctx context.Context, principal domain.Principal, limit, offset int) ([]*domain.Order, int, error) {
	if principal.UserID == uuid.Nil {
		return nil, 0, domain.ErrUnauthorized
	}
	userID := principal.UserID
	return s.list(ctx, domain.OrderFilter{UserID: &userID}, limit, offset)
}

// List returns all orders, optionally filtered by status; admin only
func (s *Service) List(ctx context.Context, principal domain.Principal, status string, limit, offset int) ([]*domain.Order, int, error) {
	if !principal.IsAdmin() {
		return nil, 0, domain.ErrForbidden
	}

	filter := domain.OrderFilter{}
	if status != "" {
		parsed, err := domain.ParseOrderStatus(status)
		if err != nil {
			return nil, 0, err
		}
		filter.Status = &parsed
	}

	return s.list(ctx, filter, limit, offset)
}

func (s *Service) list(ctx context.Context, filter domain.OrderFilter, limit, offset int) ([]*domain.Order, int, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	filter.Limit = limit
	filter.Offset = offset

	orders, err := s.orders.List(ctx, filter)
	if err != nil {
		s.logger.Error("Failed to list orders", err)
		return nil, 0, err
	}

	total, err := s.orders.Count(ctx, filter)
	if err != nil {
		s.logger.Error("Failed to count orders", err)
		return nil, 0, err
	}

	return orders, total, nil
}

// UpdateStatus moves an order along its lifecycle; admin only.
// Requesting the current status is a no-op.
func (s *Service) UpdateStatus(ctx context.Context, principal domain.Principal, id uuid.UUID, status string) (*domain.Order, error) {
	if !principal.IsAdmin() {
		return nil, domain.ErrForbidden
	}

	target, err := domain.ParseOrderStatus(status)
	if err != nil {
		return nil, err
	}

	order, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if order.Status == target {
		return order, nil
	}

	if !order.Status.CanTransitionTo(target) {
		return nil, fmt.Errorf("%w: cannot transition from %s to %s", domain.ErrInvalidTransition, order.Status, target)
	}

	previous := order.Status
	updated := *order
	updated.Status = target
	stampStatusDate(&updated, target, s.now())

	if err := s.orders.Update(ctx, &updated); err != nil {
		s.logger.Error("Failed to update order status", err)
		return nil, err
	}

	metrics.OrderStatusTransitions.WithLabelValues(string(previous), string(target)).Inc()
	s.publishEvent(ctx, "order.status_changed", &updated, previous)

	s.logger.WithFields(map[string]interface{}{
		"order_id":     updated.ID,
		"order_number": updated.OrderNumber,
		"from":         previous,
		"to":           target,
	}).Info("Order status updated")

	return &updated, nil
}

// stampStatusDate sets the date belonging to the status unless it is already set
func stampStatusDate(order *domain.Order, status domain.OrderStatus, now time.Time) {
	switch status {
	case domain.OrderStatusShipped:
		if order.ShippedDate == nil {
			order.ShippedDate = &now
		}
	case domain.OrderStatusDelivered:
		if order.DeliveredDate == nil {
			order.DeliveredDate = &now
		}
	case domain.OrderStatusCancelled:
		if order.CancelledDate == nil {
			order.CancelledDate = &now
		}
	}
}

// UpdatePayment records the payment state; admin only
func (s *Service) UpdatePayment(ctx context.Context, principal domain.Principal, id uuid.UUID, status string, transactionID string) (*domain.Order, error) {
	if !principal.IsAdmin() {
		return nil, domain.ErrForbidden
	}

	paymentStatus := domain.PaymentStatus(status)
	if !paymentStatus.IsValid() {
		return nil, fmt.Errorf("%w: unknown payment status %q", domain.ErrInvalidInput, status)
	}
	if len(transactionID) > 100 {
		return nil, fmt.Errorf("%w: transaction id too long", domain.ErrInvalidInput)
	}

	order, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	updated := *order
	updated.Payment.Status = paymentStatus
	if transactionID != "" {
		updated.Payment.TransactionID = transactionID
	}
	if paymentStatus == domain.PaymentStatusPaid && updated.Payment.PaymentDate == nil {
		now := s.now()
		updated.Payment.PaymentDate = &now
	}

	if err := s.orders.Update(ctx, &updated); err != nil {
		s.logger.Error("Failed to update order payment", err)
		return nil, err
	}

	s.logger.WithFields(map[string]interface{}{
		"order_id":       updated.ID,
		"payment_status": paymentStatus,
	}).Info("Order payment updated")

	return &updated, nil
}

// UpdateTracking records the carrier reference; admin only
func (s *Service) UpdateTracking(ctx context.Context, principal domain.Principal, id uuid.UUID, tracking domain.Tracking) (*domain.Order, error) {
	if !principal.IsAdmin() {
		return nil, domain.ErrForbidden
	}

	if err := validator.Struct(tracking); err != nil {
		return nil, err
	}

	order, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	updated := *order
	updated.Tracking = tracking

	if err := s.orders.Update(ctx, &updated); err != nil {
		s.logger.Error("Failed to update order tracking", err)
		return nil, err
	}

	return &updated, nil
}

// publishEvent publishes an order event (non-blocking)
func (s *Service) publishEvent(ctx context.Context, eventType string, order *domain.Order, previous domain.OrderStatus) {
	if s.publisher == nil {
		return
	}

	event := OrderEvent{
		EventType:      eventType,
		Timestamp:      s.now(),
		OrderID:        order.ID,
		OrderNumber:    order.OrderNumber,
		UserID:         order.UserID,
		Status:         order.Status,
		PreviousStatus: previous,
		Total:          order.Pricing.Total,
	}

	data, err := json.Marshal(event)
	if err != nil {
		s.logger.Errorf(err, "Failed to marshal event for order %s", order.ID)
		return
	}

	go func() {
		if err := s.publisher.Publish(context.WithoutCancel(ctx), EventsSubject, data); err != nil {
			s.logger.Errorf(err, "Failed to publish event for order %s", order.ID)
		}
	}()
}
