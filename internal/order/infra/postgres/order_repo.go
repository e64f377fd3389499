package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/dwikikusuma/codshop/internal/order/app"
	"github.com/dwikikusuma/codshop/internal/order/domain"
	pg "github.com/dwikikusuma/codshop/pkg/postgres"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

const orderColumns = `id::text, user_id::text, total_amount::text, ship_name, ship_phone, ship_address, ship_city, ship_pincode, payment_method, status, created_at, updated_at`

// Querier is satisfied by *pgxpool.Pool and pgx.Tx.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

type OrderRepo struct {
	pool *pgxpool.Pool
}

func NewOrderRepo(pool *pgxpool.Pool) *OrderRepo {
	return &OrderRepo{pool: pool}
}

func (r *OrderRepo) execTX(ctx context.Context, fn func(tx pgx.Tx) error) error {
	return pg.ExecTx(ctx, r.pool, fn)
}

// InsertOrder writes o and its lines inside tx. The total must equal the sum
// of the lines.
func InsertOrder(ctx context.Context, tx pgx.Tx, o domain.Order) (domain.Order, error) {
	if len(o.Items) == 0 {
		return domain.Order{}, errors.New("order has no items")
	}
	if !o.TotalAmount.Equal(domain.Total(o.Items)) {
		return domain.Order{}, fmt.Errorf("order total %s does not match its items", o.TotalAmount)
	}

	a := o.ShippingAddress
	row := tx.QueryRow(ctx, `
		INSERT INTO orders (user_id, total_amount, ship_name, ship_phone, ship_address, ship_city, ship_pincode, payment_method, status)
		VALUES ($1, $2::numeric, $3, $4, $5, $6, $7, $8, $9)
		RETURNING `+orderColumns,
		o.UserID, o.TotalAmount.String(), a.Name, a.Phone, a.Address, a.City, a.Pincode, o.PaymentMethod, string(o.Status),
	)
	created, err := scanOrder(row)
	if err != nil {
		return domain.Order{}, fmt.Errorf("failed to create order: %w", err)
	}

	for i, item := range o.Items {
		if _, err := uuid.Parse(item.ProductID); err != nil {
			return domain.Order{}, fmt.Errorf("item %d: invalid product UUID: %w", i, err)
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO order_items (order_id, position, product_id, name, price, quantity, image)
			VALUES ($1, $2, $3, $4, $5::numeric, $6, $7)`,
			created.ID, i, item.ProductID, item.Name, item.Price.String(), item.Quantity, item.Image,
		); err != nil {
			return domain.Order{}, fmt.Errorf("failed to insert item %d: %w", i, err)
		}
	}

	created.Items = append([]domain.LineItem(nil), o.Items...)
	return created, nil
}

// LoadOrder reads one order with its lines.
func LoadOrder(ctx context.Context, q Querier, id string) (domain.Order, error) {
	if _, err := uuid.Parse(id); err != nil {
		return domain.Order{}, app.ErrOrderNotFound
	}

	o, err := scanOrder(q.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Order{}, app.ErrOrderNotFound
	}
	if err != nil {
		return domain.Order{}, err
	}

	orders := []domain.Order{o}
	if err := attachItems(ctx, q, orders); err != nil {
		return domain.Order{}, err
	}
	return orders[0], nil
}

func (r *OrderRepo) Get(ctx context.Context, id string) (domain.Order, error) {
	return LoadOrder(ctx, r.pool, id)
}

func (r *OrderRepo) ListByUser(ctx context.Context, userID string) ([]domain.Order, error) {
	if _, err := uuid.Parse(userID); err != nil {
		return []domain.Order{}, nil
	}
	return r.query(ctx, `
		SELECT `+orderColumns+` FROM orders
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC`, userID)
}

func (r *OrderRepo) List(ctx context.Context, status domain.Status, offset, limit int) ([]domain.Order, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM orders WHERE ($1 = '' OR status = $1)`, string(status)).Scan(&total); err != nil {
		return nil, 0, err
	}

	orders, err := r.query(ctx, `
		SELECT `+orderColumns+` FROM orders
		WHERE ($1 = '' OR status = $1)
		ORDER BY created_at DESC, id DESC
		OFFSET $2 LIMIT $3`, string(status), offset, limit)
	if err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

func (r *OrderRepo) UpdateStatus(ctx context.Context, id string, to domain.Status, allow func(from domain.Status) error) (domain.Order, domain.Status, error) {
	if _, err := uuid.Parse(id); err != nil {
		return domain.Order{}, "", app.ErrOrderNotFound
	}

	var (
		updated domain.Order
		prev    domain.Status
	)
	err := r.execTX(ctx, func(tx pgx.Tx) error {
		var current string
		err := tx.QueryRow(ctx, `SELECT status FROM orders WHERE id = $1 FOR UPDATE`, id).Scan(&current)
		if errors.Is(err, pgx.ErrNoRows) {
			return app.ErrOrderNotFound
		}
		if err != nil {
			return err
		}
		prev = domain.Status(current)

		if err := allow(prev); err != nil {
			return err
		}

		if _, err := tx.Exec(ctx, `UPDATE orders SET status = $2, updated_at = NOW() WHERE id = $1`, id, string(to)); err != nil {
			return fmt.Errorf("failed to update status: %w", err)
		}

		updated, err = LoadOrder(ctx, tx, id)
		return err
	})
	if err != nil {
		return domain.Order{}, "", err
	}
	return updated, prev, nil
}

func (r *OrderRepo) Summary(ctx context.Context, recent int) (app.Summary, error) {
	var (
		out     app.Summary
		revenue string
	)
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*),
		       COALESCE(SUM(total_amount) FILTER (WHERE status <> 'cancelled'), 0)::text,
		       COUNT(*) FILTER (WHERE status = 'pending')
		FROM orders`,
	).Scan(&out.TotalOrders, &revenue, &out.PendingOrders)
	if err != nil {
		return app.Summary{}, err
	}
	if out.TotalRevenue, err = decimal.NewFromString(revenue); err != nil {
		return app.Summary{}, fmt.Errorf("revenue %q: %w", revenue, err)
	}

	out.Recent, _, err = r.List(ctx, "", 0, recent)
	if err != nil {
		return app.Summary{}, err
	}
	return out, nil
}

func (r *OrderRepo) query(ctx context.Context, sql string, args ...any) ([]domain.Order, error) {
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	orders := []domain.Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := attachItems(ctx, r.pool, orders); err != nil {
		return nil, err
	}
	return orders, nil
}

func attachItems(ctx context.Context, q Querier, orders []domain.Order) error {
	if len(orders) == 0 {
		return nil
	}

	ids := make([]string, len(orders))
	index := make(map[string]int, len(orders))
	for i, o := range orders {
		ids[i] = o.ID
		index[o.ID] = i
		orders[i].Items = []domain.LineItem{}
	}

	rows, err := q.Query(ctx, `
		SELECT order_id::text, product_id::text, name, price::text, quantity, image
		FROM order_items
		WHERE order_id = ANY($1::uuid[])
		ORDER BY order_id, position`, ids)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			orderID string
			price   string
			it      domain.LineItem
		)
		if err := rows.Scan(&orderID, &it.ProductID, &it.Name, &price, &it.Quantity, &it.Image); err != nil {
			return err
		}
		if it.Price, err = decimal.NewFromString(price); err != nil {
			return fmt.Errorf("order %s item price %q: %w", orderID, price, err)
		}
		i := index[orderID]
		orders[i].Items = append(orders[i].Items, it)
	}
	return rows.Err()
}

func scanOrder(row pgx.Row) (domain.Order, error) {
	var (
		o      domain.Order
		total  string
		status string
		a      domain.ShippingAddress
	)
	if err := row.Scan(&o.ID, &o.UserID, &total, &a.Name, &a.Phone, &a.Address, &a.City, &a.Pincode, &o.PaymentMethod, &status, &o.CreatedAt, &o.UpdatedAt); err != nil {
		return domain.Order{}, err
	}
	amount, err := decimal.NewFromString(total)
	if err != nil {
		return domain.Order{}, fmt.Errorf("order %s total %q: %w", o.ID, total, err)
	}
	o.TotalAmount = amount
	o.ShippingAddress = a
	o.Status = domain.Status(status)
	return o, nil
}
