package memory

import (
	"context"
	"sort"

	"github.com/dwikikusuma/codshop/internal/order/app"
	"github.com/dwikikusuma/codshop/internal/order/domain"
	"github.com/dwikikusuma/codshop/internal/platform/memdb"
	"github.com/shopspring/decimal"
)

type OrderRepo struct {
	db *memdb.DB
}

func NewOrderRepo(db *memdb.DB) *OrderRepo {
	return &OrderRepo{db: db}
}

func (r *OrderRepo) Get(ctx context.Context, id string) (domain.Order, error) {
	var out domain.Order
	err := r.db.Read(func(t *memdb.Tables) error {
		row, ok := t.Orders[id]
		if !ok {
			return app.ErrOrderNotFound
		}
		out = row.Order.Clone()
		return nil
	})
	return out, err
}

func (r *OrderRepo) ListByUser(ctx context.Context, userID string) ([]domain.Order, error) {
	return r.filter(func(o domain.Order) bool { return o.UserID == userID }), nil
}

func (r *OrderRepo) List(ctx context.Context, status domain.Status, offset, limit int) ([]domain.Order, int, error) {
	all := r.filter(func(o domain.Order) bool { return status == "" || o.Status == status })
	return window(all, offset, limit), len(all), nil
}

func (r *OrderRepo) UpdateStatus(ctx context.Context, id string, to domain.Status, allow func(from domain.Status) error) (domain.Order, domain.Status, error) {
	var (
		out  domain.Order
		prev domain.Status
	)
	err := r.db.Write(func(t *memdb.Tables) error {
		row, ok := t.Orders[id]
		if !ok {
			return app.ErrOrderNotFound
		}
		prev = row.Order.Status
		if err := allow(prev); err != nil {
			return err
		}
		row.Order.Status = to
		row.Order.UpdatedAt = r.db.Now()
		out = row.Order.Clone()
		return nil
	})
	if err != nil {
		return domain.Order{}, "", err
	}
	return out, prev, nil
}

func (r *OrderRepo) Summary(ctx context.Context, recent int) (app.Summary, error) {
	all := r.filter(func(domain.Order) bool { return true })

	out := app.Summary{TotalOrders: len(all), TotalRevenue: decimal.Zero}
	for _, o := range all {
		if o.Status != domain.StatusCancelled {
			out.TotalRevenue = out.TotalRevenue.Add(o.TotalAmount)
		}
		if o.Status == domain.StatusPending {
			out.PendingOrders++
		}
	}
	out.Recent = window(all, 0, recent)
	return out, nil
}

// filter returns matching orders newest first; insertion order breaks ties.
func (r *OrderRepo) filter(keep func(domain.Order) bool) []domain.Order {
	var rows []memdb.OrderRow
	_ = r.db.Read(func(t *memdb.Tables) error {
		for _, row := range t.Orders {
			if keep(row.Order) {
				rows = append(rows, memdb.OrderRow{Order: row.Order.Clone(), Seq: row.Seq})
			}
		}
		return nil
	})

	sort.Slice(rows, func(i, j int) bool {
		if !rows[i].Order.CreatedAt.Equal(rows[j].Order.CreatedAt) {
			return rows[i].Order.CreatedAt.After(rows[j].Order.CreatedAt)
		}
		return rows[i].Seq > rows[j].Seq
	})

	out := make([]domain.Order, len(rows))
	for i, row := range rows {
		out[i] = row.Order
	}
	return out
}

func window(orders []domain.Order, offset, limit int) []domain.Order {
	if offset < 0 || limit <= 0 || offset >= len(orders) {
		return []domain.Order{}
	}
	end := offset + limit
	if end > len(orders) || end < offset {
		end = len(orders)
	}
	return orders[offset:end]
}
