// Package apperr holds the error kinds shared by every bounded context.
//
// Packages wrap one of the sentinels (fmt.Errorf("%w: ...", apperr.ErrNotFound))
// or return a typed error whose Is method reports the sentinel. Transports
// translate the kind into an HTTP status or a gRPC code via Kind.
package apperr

import "errors"

var (
	ErrNotFound          = errors.New("not found")
	ErrValidation        = errors.New("validation failed")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrNotAuthorized     = errors.New("not authorized")
	ErrConflict          = errors.New("conflict")
)

const (
	KindNotFound          = "NOT_FOUND"
	KindValidation        = "VALIDATION"
	KindInsufficientStock = "INSUFFICIENT_STOCK"
	KindNotAuthorized     = "NOT_AUTHORIZED"
	KindConflict          = "CONFLICT"
	KindInternal          = "INTERNAL"
)

// Kind returns the stable machine-readable kind of err.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInsufficientStock):
		return KindInsufficientStock
	case errors.Is(err, ErrValidation):
		return KindValidation
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrNotAuthorized):
		return KindNotAuthorized
	case errors.Is(err, ErrConflict):
		return KindConflict
	default:
		return KindInternal
	}
}

// IsInternal reports whether err carries no known kind and should be hidden
// behind a generic server error.
func IsInternal(err error) bool {
	return err != nil && Kind(err) == KindInternal
}
