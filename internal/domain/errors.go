package domain

import "errors"

var (
	// ErrNotFound means the product, category, order, review or user does not exist
	ErrNotFound = errors.New("resource not found")

	// ErrAlreadyExists means a unique key (email, slug, SKU) is already taken
	ErrAlreadyExists = errors.New("resource already exists")

	// ErrInvalidInput wraps validation failures; the message names the fields
	ErrInvalidInput = errors.New("invalid input")

	// ErrConflict means a version check failed or order numbering ran out of attempts
	ErrConflict = errors.New("conflict occurred")

	// ErrDuplicateReview is returned when a user already reviewed a product
	ErrDuplicateReview = errors.New("product already reviewed by user")

	// ErrInvalidTransition is returned when an order cannot move to the requested status
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrForbidden is returned when the principal may not perform the operation
	ErrForbidden = errors.New("permission denied")

	// ErrUnauthorized is returned when credentials are missing or wrong
	ErrUnauthorized = errors.New("unauthorized")

	// ErrStoreUnavailable is returned for transient store failures; callers may retry
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrOrderNumberTaken is returned by the order store when the order number
	// unique constraint rejects an insert
	ErrOrderNumberTaken = errors.New("order number already taken")
)
