package memory

import (
	"context"

	cartdomain "github.com/dwikikusuma/codshop/internal/cart/domain"
	"github.com/dwikikusuma/codshop/internal/checkout/app"
	"github.com/dwikikusuma/codshop/internal/checkout/domain"
	orderdomain "github.com/dwikikusuma/codshop/internal/order/domain"
	"github.com/dwikikusuma/codshop/internal/platform/memdb"
	"github.com/google/uuid"
)

// Placer commits placements against memdb. All checks run before the first
// mutation, under the store's single write lock.
type Placer struct {
	db *memdb.DB
}

func NewPlacer(db *memdb.DB) *Placer {
	return &Placer{db: db}
}

func (p *Placer) Place(ctx context.Context, pl domain.Placement) (orderdomain.Order, error) {
	if err := ctx.Err(); err != nil {
		return orderdomain.Order{}, err
	}

	var out orderdomain.Order
	err := p.db.Write(func(t *memdb.Tables) error {
		idemKey := memdb.IdempotencyKey(pl.UserID, pl.IdempotencyKey)
		if pl.IdempotencyKey != "" {
			if _, ok := t.Idempotency[idemKey]; ok {
				return app.ErrDuplicateIdempotencyKey
			}
		}

		cart := t.Carts[pl.UserID]
		if cart == nil || cart.ID != pl.CartID || !cartdomain.SameItems(cart.Items, pl.Expected) {
			return app.ErrCartChanged
		}

		for _, ln := range pl.Lines {
			prod, ok := t.Products[ln.ProductID]
			if !ok || prod.Stock < ln.Quantity {
				return &app.StockConflictError{ProductID: ln.ProductID, Name: ln.Name}
			}
		}

		now := p.db.Now()
		for _, ln := range pl.Lines {
			prod := t.Products[ln.ProductID]
			prod.Stock -= ln.Quantity
			prod.UpdatedAt = now
			t.Products[ln.ProductID] = prod
		}

		order := orderdomain.Order{
			ID:              uuid.NewString(),
			UserID:          pl.UserID,
			Items:           append([]orderdomain.LineItem(nil), pl.Lines...),
			TotalAmount:     pl.Total,
			ShippingAddress: pl.Address,
			PaymentMethod:   orderdomain.PaymentMethodCOD,
			Status:          orderdomain.StatusPending,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		t.Orders[order.ID] = &memdb.OrderRow{Order: order.Clone(), Seq: t.NextSeq()}

		if pl.IdempotencyKey != "" {
			t.Idempotency[idemKey] = order.ID
		}

		cart.Items = []cartdomain.CartItem{}
		cart.UpdatedAt = now

		out = order
		return nil
	})
	return out, err
}

func (p *Placer) FindByIdempotencyKey(ctx context.Context, userID, key string) (orderdomain.Order, bool, error) {
	var (
		out orderdomain.Order
		ok  bool
	)
	_ = p.db.Read(func(t *memdb.Tables) error {
		id, found := t.Idempotency[memdb.IdempotencyKey(userID, key)]
		if !found {
			return nil
		}
		if row, exists := t.Orders[id]; exists {
			out, ok = row.Order.Clone(), true
		}
		return nil
	})
	return out, ok, nil
}
