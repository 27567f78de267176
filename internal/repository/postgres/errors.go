package postgres

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"

	"github.com/lib/pq"

	"github.com/Pesokrava/plant_store/internal/domain"
)

const (
	uniqueViolation   = "23505"
	foreignKeyMissing = "23503"
	checkViolation    = "23514"
	stringTooLong     = "22001"
	numericOutOfRange = "22003"
)

// constraintErrors maps unique constraints to the domain error they signal
var constraintErrors = map[string]error{
	"orders_order_number_key":       domain.ErrOrderNumberTaken,
	"reviews_product_user_live_idx": domain.ErrDuplicateReview,
	"users_email_key":               domain.ErrAlreadyExists,
	"categories_name_key":           domain.ErrAlreadyExists,
	"categories_slug_key":           domain.ErrAlreadyExists,
	"products_sku_live_idx":         domain.ErrAlreadyExists,
}

// translateError converts driver errors into domain error kinds.
// Errors it does not recognise are returned unchanged.
func translateError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrNotFound
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		if pqErr.Code == uniqueViolation {
			if kind, ok := constraintErrors[pqErr.Constraint]; ok {
				return fmt.Errorf("%w: %s", kind, pqErr.Constraint)
			}
			return fmt.Errorf("%w: %s", domain.ErrAlreadyExists, pqErr.Constraint)
		}
		switch pqErr.Code {
		case foreignKeyMissing:
			return fmt.Errorf("%w: referenced row missing (%s)", domain.ErrNotFound, pqErr.Constraint)
		case checkViolation:
			return fmt.Errorf("%w: violates %s", domain.ErrInvalidInput, pqErr.Constraint)
		case stringTooLong, numericOutOfRange:
			return fmt.Errorf("%w: %s", domain.ErrInvalidInput, pqErr.Message)
		}
		// Class 08: connection exception
		if pqErr.Code.Class() == "08" {
			return fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
		}
		return err
	}

	if errors.Is(err, driver.ErrBadConn) ||
		errors.Is(err, sql.ErrConnDone) ||
		errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}

	return err
}
