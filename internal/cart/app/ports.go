package app

import (
	"context"

	"github.com/dwikikusuma/codshop/internal/cart/domain"
	catalogdomain "github.com/dwikikusuma/codshop/internal/catalog/domain"
)

type CartRepo interface {
	GetOrCreate(ctx context.Context, userID string) (domain.Cart, error)
	// AddItem inserts the product line or increments an existing one.
	AddItem(ctx context.Context, cartID, productID string, quantity int) error
	SetItemQuantity(ctx context.Context, cartID, itemID string, quantity int) error
	RemoveItem(ctx context.Context, cartID, itemID string) error
	ClearCart(ctx context.Context, cartID string) error
}

type CatalogReader interface {
	GetProduct(ctx context.Context, id string) (catalogdomain.Product, error)
}
