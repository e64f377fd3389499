package app

import (
	"fmt"

	"github.com/dwikikusuma/codshop/pkg/apperr"
)

var (
	ErrEmptyCart              = fmt.Errorf("%w: cart is empty", apperr.ErrValidation)
	ErrInvalidShippingAddress = fmt.Errorf("%w: invalid shipping address", apperr.ErrValidation)
	ErrInvalidIdempotencyKey  = fmt.Errorf("%w: idempotency key too long", apperr.ErrValidation)
	ErrCheckoutInProgress     = fmt.Errorf("%w: checkout already in progress", apperr.ErrConflict)
	ErrCartChanged            = fmt.Errorf("%w: cart changed during checkout", apperr.ErrConflict)
	// ErrDuplicateIdempotencyKey is returned by a Placer when the key was
	// recorded by a concurrent placement.
	ErrDuplicateIdempotencyKey = fmt.Errorf("%w: idempotency key already used", apperr.ErrConflict)
)

type ProductNotFoundError struct {
	ProductID string
}

func (e *ProductNotFoundError) Error() string {
	return fmt.Sprintf("product %s not found", e.ProductID)
}

func (e *ProductNotFoundError) Is(target error) bool { return target == apperr.ErrNotFound }

// InsufficientStockError is reported by the reservation check.
type InsufficientStockError struct {
	ProductID string
	Name      string
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %q: requested %d, available %d", e.Name, e.Requested, e.Available)
}

func (e *InsufficientStockError) Is(target error) bool { return target == apperr.ErrInsufficientStock }

// StockConflictError means stock was taken between the check and the commit.
type StockConflictError struct {
	ProductID string
	Name      string
}

func (e *StockConflictError) Error() string {
	return fmt.Sprintf("stock for %q changed during checkout", e.Name)
}

func (e *StockConflictError) Is(target error) bool { return target == apperr.ErrConflict }
