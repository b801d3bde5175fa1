package ledger

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput covers non-positive quantities, negative configuration
	// values and areas outside the catalog.
	ErrInvalidInput = errors.New("invalid input")
	// ErrUnknownArea matches ErrInvalidInput as well.
	ErrUnknownArea = fmt.Errorf("%w: unknown area", ErrInvalidInput)
	// ErrInsufficientStock is matched by *InsufficientStockError.
	ErrInsufficientStock = errors.New("insufficient stock")
)

// InsufficientStockError rejects a debit larger than the available quantity.
type InsufficientStockError struct {
	Area      string
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock in %s: requested %d, available %d", e.Area, e.Requested, e.Available)
}

func (e *InsufficientStockError) Is(target error) bool {
	return target == ErrInsufficientStock
}

// PersistenceError reports a failed write. The in-memory ledger is left
// unchanged when it is returned.
type PersistenceError struct {
	Model string
	Path  string
	Err   error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persisting stock for model %s to %s: %v", e.Model, e.Path, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
