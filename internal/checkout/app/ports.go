package app

import (
	"context"

	cartdomain "github.com/dwikikusuma/codshop/internal/cart/domain"
	"github.com/dwikikusuma/codshop/internal/checkout/domain"
	orderdomain "github.com/dwikikusuma/codshop/internal/order/domain"
	"github.com/shopspring/decimal"
)

type CartReader interface {
	GetCart(ctx context.Context, userID string) (cartdomain.Cart, error)
}

type Product struct {
	ID    string
	Name  string
	Price decimal.Decimal
	Stock int
	Image string
}

type CatalogReader interface {
	// GetProduct returns an error wrapping apperr.ErrNotFound for unknown ids.
	GetProduct(ctx context.Context, productID string) (Product, error)
}

// Placer commits a Placement atomically: every stock decrement, the order and
// its lines, the idempotency record and the cart clear, or none of them.
type Placer interface {
	Place(ctx context.Context, p domain.Placement) (orderdomain.Order, error)
	FindByIdempotencyKey(ctx context.Context, userID, key string) (orderdomain.Order, bool, error)
}

type EventPublisher interface {
	Publish(ctx context.Context, e orderdomain.Event) error
}
