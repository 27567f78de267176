package domain

import (
	"context"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderStatus represents the fulfilment state of an order
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusConfirmed  OrderStatus = "confirmed"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
	OrderStatusRefunded   OrderStatus = "refunded"
)

// AllowedTransitions defines the valid status transitions for an order
var AllowedTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:    {OrderStatusConfirmed, OrderStatusCancelled},
	OrderStatusConfirmed:  {OrderStatusProcessing, OrderStatusCancelled},
	OrderStatusProcessing: {OrderStatusShipped, OrderStatusCancelled},
	OrderStatusShipped:    {OrderStatusDelivered, OrderStatusCancelled},
	OrderStatusDelivered:  {OrderStatusRefunded},
	OrderStatusCancelled:  {OrderStatusRefunded},
	OrderStatusRefunded:   {},
}

// IsValid reports whether s is a known order status
func (s OrderStatus) IsValid() bool {
	_, ok := AllowedTransitions[s]
	return ok
}

// CanTransitionTo checks if the status can transition to the target status
func (s OrderStatus) CanTransitionTo(target OrderStatus) bool {
	for _, allowed := range AllowedTransitions[s] {
		if allowed == target {
			return true
		}
	}
	return false
}

// ParseOrderStatus converts a raw status string, rejecting unknown values
func ParseOrderStatus(raw string) (OrderStatus, error) {
	s := OrderStatus(raw)
	if !s.IsValid() {
		return "", fmt.Errorf("%w: unknown order status %q", ErrInvalidInput, raw)
	}
	return s, nil
}

// ShippingMethod selects the carrier tier
type ShippingMethod string

const (
	ShippingStandard  ShippingMethod = "standard"
	ShippingExpress   ShippingMethod = "express"
	ShippingOvernight ShippingMethod = "overnight"
)

// PaymentMethod is how the customer pays
type PaymentMethod string

const (
	PaymentCOD        PaymentMethod = "cod"
	PaymentCard       PaymentMethod = "card"
	PaymentUPI        PaymentMethod = "upi"
	PaymentNetbanking PaymentMethod = "netbanking"
	PaymentWallet     PaymentMethod = "wallet"
)

// PaymentStatus tracks the payment of an order
type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "pending"
	PaymentStatusPaid     PaymentStatus = "paid"
	PaymentStatusFailed   PaymentStatus = "failed"
	PaymentStatusRefunded PaymentStatus = "refunded"
)

// IsValid reports whether s is a known payment status
func (s PaymentStatus) IsValid() bool {
	switch s {
	case PaymentStatusPending, PaymentStatusPaid, PaymentStatusFailed, PaymentStatusRefunded:
		return true
	}
	return false
}

// Address is a postal address; every field is required
type Address struct {
	Street  string `json:"street" validate:"required,max=200"`
	City    string `json:"city" validate:"required,max=100"`
	State   string `json:"state" validate:"required,max=100"`
	ZipCode string `json:"zip_code" validate:"required,max=20"`
	Country string `json:"country" validate:"required,max=100"`
}

// BillingInfo is stored as a JSONB column
type BillingInfo struct {
	FirstName string  `json:"first_name" validate:"required,max=100"`
	LastName  string  `json:"last_name" validate:"required,max=100"`
	Email     string  `json:"email" validate:"required,email"`
	Phone     string  `json:"phone" validate:"required,max=30"`
	Address   Address `json:"address" validate:"required"`
}

// Value implements driver.Valuer
func (b BillingInfo) Value() (driver.Value, error) {
	return json.Marshal(b)
}

// Scan implements sql.Scanner
func (b *BillingInfo) Scan(src any) error {
	return scanJSON(src, b)
}

// ShippingInfo is stored as a JSONB column
type ShippingInfo struct {
	FirstName string          `json:"first_name" validate:"required,max=100"`
	LastName  string          `json:"last_name" validate:"required,max=100"`
	Address   Address         `json:"address" validate:"required"`
	Method    ShippingMethod  `json:"method" validate:"required,oneof=standard express overnight"`
	Cost      decimal.Decimal `json:"cost"`
}

// Value implements driver.Valuer
func (s ShippingInfo) Value() (driver.Value, error) {
	return json.Marshal(s)
}

// Scan implements sql.Scanner
func (s *ShippingInfo) Scan(src any) error {
	return scanJSON(src, s)
}

// PaymentInfo holds the payment state of an order
type PaymentInfo struct {
	Method        PaymentMethod `json:"method"`
	Status        PaymentStatus `json:"status"`
	TransactionID string        `json:"transaction_id,omitempty"`
	PaymentDate   *time.Time    `json:"payment_date,omitempty"`
}

// Tracking holds the carrier tracking reference
type Tracking struct {
	Number  string `json:"number,omitempty" validate:"max=100"`
	Carrier string `json:"carrier,omitempty" validate:"max=100"`
	URL     string `json:"url,omitempty" validate:"omitempty,url"`
}

// Pricing is the monetary breakdown of an order.
// Total always equals Subtotal + Tax + ShippingCost - Discount.
type Pricing struct {
	Subtotal     decimal.Decimal `json:"subtotal"`
	Tax          decimal.Decimal `json:"tax"`
	ShippingCost decimal.Decimal `json:"shipping_cost"`
	Discount     decimal.Decimal `json:"discount"`
	Total        decimal.Decimal `json:"total"`
}

// IsCents reports whether d has at most 2 decimal places, the precision of stored money
func IsCents(d decimal.Decimal) bool {
	return d.Equal(d.Round(2))
}

// NewPricing builds a pricing breakdown, rejecting negative components, amounts
// finer than a cent and a discount larger than the amount it applies to
func NewPricing(subtotal, tax, shipping, discount decimal.Decimal) (Pricing, error) {
	if subtotal.IsNegative() || tax.IsNegative() || shipping.IsNegative() {
		return Pricing{}, fmt.Errorf("%w: pricing components must not be negative", ErrInvalidInput)
	}
	if discount.IsNegative() {
		return Pricing{}, fmt.Errorf("%w: discount must not be negative", ErrInvalidInput)
	}
	for name, amount := range map[string]decimal.Decimal{
		"subtotal": subtotal, "tax": tax, "shipping cost": shipping, "discount": discount,
	} {
		if !IsCents(amount) {
			return Pricing{}, fmt.Errorf("%w: %s %s has more than 2 decimal places", ErrInvalidInput, name, amount)
		}
	}

	gross := subtotal.Add(tax).Add(shipping)
	if discount.GreaterThan(gross) {
		return Pricing{}, fmt.Errorf("%w: discount %s exceeds order amount %s", ErrInvalidInput, discount, gross)
	}

	return Pricing{
		Subtotal:     subtotal,
		Tax:          tax,
		ShippingCost: shipping,
		Discount:     discount,
		Total:        gross.Sub(discount),
	}, nil
}

// OrderItem is a snapshot of a product at purchase time
type OrderItem struct {
	ID        uuid.UUID       `json:"id" db:"id"`
	OrderID   uuid.UUID       `json:"-" db:"order_id"`
	ProductID uuid.UUID       `json:"product_id" db:"product_id"`
	Name      string          `json:"name" db:"name"`
	Price     decimal.Decimal `json:"price" db:"price"`
	SKU       string          `json:"sku" db:"sku"`
	Image     string          `json:"image,omitempty" db:"image"`
	Quantity  int             `json:"quantity" db:"quantity"`
	Subtotal  decimal.Decimal `json:"subtotal" db:"subtotal"`
}

// NewOrderItem snapshots a product into a line item
func NewOrderItem(product *Product, quantity int) OrderItem {
	return OrderItem{
		ProductID: product.ID,
		Name:      product.Name,
		Price:     product.Price,
		SKU:       product.SKU,
		Image:     product.Images.PrimaryURL(),
		Quantity:  quantity,
		Subtotal:  product.Price.Mul(decimal.NewFromInt(int64(quantity))),
	}
}

// Order represents a customer order
type Order struct {
	ID            uuid.UUID    `json:"id"`
	OrderNumber   string       `json:"order_number"`
	UserID        uuid.UUID    `json:"user_id"`
	Items         []OrderItem  `json:"items"`
	Billing       BillingInfo  `json:"billing"`
	Shipping      ShippingInfo `json:"shipping"`
	Payment       PaymentInfo  `json:"payment"`
	Pricing       Pricing      `json:"pricing"`
	Status        OrderStatus  `json:"status"`
	Tracking      Tracking     `json:"tracking"`
	Notes         string       `json:"notes,omitempty"`
	OrderDate     time.Time    `json:"order_date"`
	ShippedDate   *time.Time   `json:"shipped_date,omitempty"`
	DeliveredDate *time.Time   `json:"delivered_date,omitempty"`
	CancelledDate *time.Time   `json:"cancelled_date,omitempty"`
	Version       int          `json:"version"`
	CreatedAt     time.Time    `json:"created_at"`
	UpdatedAt     time.Time    `json:"updated_at"`
}

// TotalItems returns the number of units across all line items
func (o *Order) TotalItems() int {
	total := 0
	for _, item := range o.Items {
		total += item.Quantity
	}
	return total
}

// HasProduct reports whether the order contains a line for the product
func (o *Order) HasProduct(productID uuid.UUID) bool {
	for _, item := range o.Items {
		if item.ProductID == productID {
			return true
		}
	}
	return false
}

// OrderFilter narrows order listings
type OrderFilter struct {
	UserID *uuid.UUID
	Status *OrderStatus
	Limit  int
	Offset int
}

// OrderRepository defines the interface for order data access
type OrderRepository interface {
	// CountCreatedBetween counts orders created in [from, to)
	CountCreatedBetween(ctx context.Context, from, to time.Time) (int, error)

	// Create inserts the order and its items in one transaction.
	// Returns ErrOrderNumberTaken when the order number is already used.
	Create(ctx context.Context, order *Order) error

	// GetByID retrieves an order with its items
	GetByID(ctx context.Context, id uuid.UUID) (*Order, error)

	// List retrieves orders matching the filter, newest first
	List(ctx context.Context, filter OrderFilter) ([]*Order, error)

	// Count returns the number of orders matching the filter
	Count(ctx context.Context, filter OrderFilter) (int, error)

	// Update persists status, dates, payment, tracking and notes.
	// Returns ErrConflict when order.Version no longer matches.
	Update(ctx context.Context, order *Order) error
}
