package service

import (
	"errors"
	"fmt"

	"matchbook/domain/orderbook"
)

// ErrNotFound aliases the domain error so callers match either.
var ErrNotFound = orderbook.ErrNotFound

// ErrDuplicateOrderID rejects a caller-supplied id that collides with
// a live order.
var ErrDuplicateOrderID = errors.New("duplicate order id")

// ValidationError reports a rejected submission. It never reaches the
// book: validation happens before any state is touched.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func invalidf(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}
