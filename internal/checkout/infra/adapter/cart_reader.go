package adapter

import (
	"context"

	cartapp "github.com/dwikikusuma/codshop/internal/cart/app"
	cartdomain "github.com/dwikikusuma/codshop/internal/cart/domain"
)

type CartServiceReader struct {
	svc *cartapp.Service
}

func NewCartServiceReader(svc *cartapp.Service) *CartServiceReader {
	return &CartServiceReader{svc: svc}
}

func (r *CartServiceReader) GetCart(ctx context.Context, userID string) (cartdomain.Cart, error) {
	return r.svc.GetOrCreate(ctx, userID)
}
