package domain

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Cart limits
const (
	MaxCartLines        = 50
	MaxCartItemQuantity = 100
)

// CartItem is a product the user intends to buy. Prices are read at checkout.
type CartItem struct {
	ProductID uuid.UUID `json:"product_id"`
	Quantity  int       `json:"quantity"`
	AddedAt   time.Time `json:"added_at"`
}

// Cart is the shopping cart of one user
type Cart struct {
	UserID    uuid.UUID  `json:"user_id"`
	Items     []CartItem `json:"items"`
	Version   int        `json:"version"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// NewCart returns an empty cart that has never been stored
func NewCart(userID uuid.UUID) *Cart {
	return &Cart{UserID: userID, Items: []CartItem{}}
}

// TotalItems is the sum of quantities across all lines
func (c *Cart) TotalItems() int {
	total := 0
	for _, item := range c.Items {
		total += item.Quantity
	}
	return total
}

func (c *Cart) indexOf(productID uuid.UUID) int {
	for i := range c.Items {
		if c.Items[i].ProductID == productID {
			return i
		}
	}
	return -1
}

// Add puts quantity of the product in the cart, merging with an existing line
func (c *Cart) Add(productID uuid.UUID, quantity int, at time.Time) error {
	if quantity < 1 {
		return fmt.Errorf("%w: quantity must be at least 1", ErrInvalidInput)
	}

	if i := c.indexOf(productID); i >= 0 {
		merged := c.Items[i].Quantity + quantity
		if merged > MaxCartItemQuantity {
			return fmt.Errorf("%w: at most %d of a product per cart", ErrInvalidInput, MaxCartItemQuantity)
		}
		c.Items[i].Quantity = merged
		return nil
	}

	if quantity > MaxCartItemQuantity {
		return fmt.Errorf("%w: at most %d of a product per cart", ErrInvalidInput, MaxCartItemQuantity)
	}
	if len(c.Items) >= MaxCartLines {
		return fmt.Errorf("%w: cart holds at most %d products", ErrInvalidInput, MaxCartLines)
	}
	c.Items = append(c.Items, CartItem{ProductID: productID, Quantity: quantity, AddedAt: at})
	return nil
}

// SetQuantity replaces the quantity of a line; zero removes it
func (c *Cart) SetQuantity(productID uuid.UUID, quantity int) error {
	if quantity < 0 || quantity > MaxCartItemQuantity {
		return fmt.Errorf("%w: quantity must be between 0 and %d", ErrInvalidInput, MaxCartItemQuantity)
	}
	i := c.indexOf(productID)
	if i < 0 {
		return fmt.Errorf("%w: product %s is not in the cart", ErrNotFound, productID)
	}
	if quantity == 0 {
		c.Items = append(c.Items[:i], c.Items[i+1:]...)
		return nil
	}
	c.Items[i].Quantity = quantity
	return nil
}

// Remove drops the line of the product
func (c *Cart) Remove(productID uuid.UUID) error {
	return c.SetQuantity(productID, 0)
}

// CartRepository stores carts keyed by user
type CartRepository interface {
	// Get returns the user's cart; ErrNotFound when none is stored
	Get(ctx context.Context, userID uuid.UUID) (*Cart, error)

	// SaveIfVersion stores the cart only when the stored version still equals
	// expected (0 for a new cart) and bumps cart.Version; ErrConflict otherwise
	SaveIfVersion(ctx context.Context, cart *Cart, expected int) error

	// Delete removes the user's cart
	Delete(ctx context.Context, userID uuid.UUID) error
}

// WishlistItem is a product saved by a user for later
type WishlistItem struct {
	UserID    uuid.UUID `json:"user_id" db:"user_id"`
	ProductID uuid.UUID `json:"product_id" db:"product_id"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// WishlistRepository stores wishlists
type WishlistRepository interface {
	// Add saves the product; adding it twice is a no-op
	Add(ctx context.Context, userID, productID uuid.UUID) error

	// Remove deletes the product; ErrNotFound when it was not saved
	Remove(ctx context.Context, userID, productID uuid.UUID) error

	// List returns the newest items first with the total count
	List(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*WishlistItem, int, error)
}
