package app

import (
	"context"

	"github.com/dwikikusuma/codshop/internal/catalog/domain"
)

// ProductRepo stores the catalog. Get reports ErrNotFound for unknown or
// malformed ids.
type ProductRepo interface {
	Create(ctx context.Context, p domain.Product) (domain.Product, error)
	Get(ctx context.Context, id string) (domain.Product, error)
	// List pages by id. An empty cursor starts from the beginning and the
	// returned cursor is empty once a page comes back short.
	List(ctx context.Context, query string, limit int, cursor string) ([]domain.Product, string, error)
	Count(ctx context.Context) (int, error)
}
