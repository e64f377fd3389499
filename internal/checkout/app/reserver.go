package app

import (
	"context"
	"errors"
	"fmt"

	cartdomain "github.com/dwikikusuma/codshop/internal/cart/domain"
	"github.com/dwikikusuma/codshop/internal/checkout/domain"
	"github.com/dwikikusuma/codshop/pkg/apperr"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"
)

// Reserver checks cart items against live stock. It has no side effects.
type Reserver struct {
	catalog       CatalogReader
	maxConcurrent int
}

func NewReserver(catalog CatalogReader, maxConcurrent int) *Reserver {
	if maxConcurrent <= 0 {
		maxConcurrent = 10
	}
	return &Reserver{catalog: catalog, maxConcurrent: maxConcurrent}
}

// Check prices every item. When several items fail, the error of the first one
// in cart order is returned.
func (r *Reserver) Check(ctx context.Context, items []cartdomain.CartItem) (domain.Quote, error) {
	ctx, span := tracer.Start(ctx, "checkout.Reserve")
	defer span.End()
	span.SetAttributes(attribute.Int("cart.items", len(items)))

	lines := make([]domain.QuoteLine, len(items))
	errs := make([]error, len(items))

	var g errgroup.Group
	g.SetLimit(r.maxConcurrent)

	for idx := range items {
		g.Go(func() error {
			errs[idx] = r.checkOne(ctx, items[idx], &lines[idx])
			return nil
		})
	}
	_ = g.Wait()

	for _, err := range errs {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, apperr.Kind(err))
			return domain.Quote{}, err
		}
	}

	total := decimal.Zero
	for _, ln := range lines {
		total = total.Add(ln.LineTotal)
	}
	return domain.Quote{Lines: lines, Total: total}, nil
}

func (r *Reserver) checkOne(ctx context.Context, it cartdomain.CartItem, out *domain.QuoteLine) error {
	if it.Quantity <= 0 {
		return fmt.Errorf("%w: quantity must be greater than zero: %d", apperr.ErrValidation, it.Quantity)
	}

	product, err := r.catalog.GetProduct(ctx, it.ProductID)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return &ProductNotFoundError{ProductID: it.ProductID}
		}
		return fmt.Errorf("failed to get product %s: %w", it.ProductID, err)
	}

	if product.Stock < it.Quantity {
		return &InsufficientStockError{
			ProductID: product.ID,
			Name:      product.Name,
			Requested: it.Quantity,
			Available: product.Stock,
		}
	}

	*out = domain.QuoteLine{
		ProductID: product.ID,
		Name:      product.Name,
		Image:     product.Image,
		Quantity:  it.Quantity,
		Available: product.Stock,
		UnitPrice: product.Price,
		LineTotal: product.Price.Mul(decimal.NewFromInt(int64(it.Quantity))),
	}
	return nil
}
