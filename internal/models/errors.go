package models

import "errors"

// Sentinel errors shared across the order engine, storage, and HTTP layers.
// Wrap them with the offending identifier, e.g.
// fmt.Errorf("product %d: %w", id, ErrProductUnavailable).
var (
	ErrEmptyOrder         = errors.New("order must contain at least one item")
	ErrProductUnavailable = errors.New("product not found or unavailable")
	ErrModifierNotFound   = errors.New("modifier not found")
	ErrOrderNotFound      = errors.New("order not found")
	ErrInvalidStatus      = errors.New("invalid order status")

	// ErrDuplicateOrderNumber is returned by the repository when an insert
	// hits the UNIQUE constraint on order_number; the service retries.
	ErrDuplicateOrderNumber = errors.New("duplicate order number")

	// ErrOrderCreationConflict is surfaced after the retry budget for
	// order-number generation is exhausted.
	ErrOrderCreationConflict = errors.New("failed to allocate a unique order number")

	ErrTimeout = errors.New("request timed out")
	ErrStorage = errors.New("storage failure")
)

// ValidationError describes a rejected request field.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return e.Field + ": " + e.Message
}
