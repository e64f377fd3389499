package postgres

import (
	"context"
	"errors"
	"fmt"
	"sort"

	cartdomain "github.com/dwikikusuma/codshop/internal/cart/domain"
	cartpg "github.com/dwikikusuma/codshop/internal/cart/infra/postgres"
	"github.com/dwikikusuma/codshop/internal/checkout/app"
	"github.com/dwikikusuma/codshop/internal/checkout/domain"
	orderdomain "github.com/dwikikusuma/codshop/internal/order/domain"
	orderpg "github.com/dwikikusuma/codshop/internal/order/infra/postgres"
	pg "github.com/dwikikusuma/codshop/pkg/postgres"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PlacementRepo commits a placement in one transaction: cart row lock and
// content check, conditional stock decrements, order insert, idempotency
// record and cart clear.
type PlacementRepo struct {
	pool *pgxpool.Pool
}

func NewPlacementRepo(pool *pgxpool.Pool) *PlacementRepo {
	return &PlacementRepo{pool: pool}
}

func (r *PlacementRepo) Place(ctx context.Context, pl domain.Placement) (orderdomain.Order, error) {
	var created orderdomain.Order

	err := pg.ExecTx(ctx, r.pool, func(tx pgx.Tx) error {
		var cartID string
		err := tx.QueryRow(ctx, `SELECT id::text FROM carts WHERE user_id = $1 FOR UPDATE`, pl.UserID).Scan(&cartID)
		if errors.Is(err, pgx.ErrNoRows) || (err == nil && cartID != pl.CartID) {
			return app.ErrCartChanged
		}
		if err != nil {
			return fmt.Errorf("lock cart: %w", err)
		}

		items, err := cartpg.ListItems(ctx, tx, cartID)
		if err != nil {
			return fmt.Errorf("read cart: %w", err)
		}
		if !cartdomain.SameItems(items, pl.Expected) {
			return app.ErrCartChanged
		}

		// Decrement in product id order so concurrent checkouts lock rows in
		// the same sequence.
		lines := append([]orderdomain.LineItem(nil), pl.Lines...)
		sort.Slice(lines, func(i, j int) bool { return lines[i].ProductID < lines[j].ProductID })

		for _, ln := range lines {
			tag, err := tx.Exec(ctx, `
				UPDATE products SET stock = stock - $2, updated_at = NOW()
				WHERE id = $1 AND stock >= $2`,
				ln.ProductID, ln.Quantity,
			)
			if err != nil {
				return fmt.Errorf("decrement stock of %s: %w", ln.ProductID, err)
			}
			if tag.RowsAffected() == 0 {
				return &app.StockConflictError{ProductID: ln.ProductID, Name: ln.Name}
			}
		}

		created, err = orderpg.InsertOrder(ctx, tx, orderdomain.Order{
			UserID:          pl.UserID,
			Items:           pl.Lines,
			TotalAmount:     pl.Total,
			ShippingAddress: pl.Address,
			PaymentMethod:   orderdomain.PaymentMethodCOD,
			Status:          orderdomain.StatusPending,
		})
		if err != nil {
			return err
		}

		if pl.IdempotencyKey != "" {
			_, err := tx.Exec(ctx, `
				INSERT INTO order_idempotency (user_id, idempotency_key, order_id)
				VALUES ($1, $2, $3)`,
				pl.UserID, pl.IdempotencyKey, created.ID,
			)
			if pg.IsUniqueViolation(err) {
				return app.ErrDuplicateIdempotencyKey
			}
			if err != nil {
				return fmt.Errorf("record idempotency key: %w", err)
			}
		}

		if _, err := tx.Exec(ctx, `DELETE FROM cart_items WHERE cart_id = $1`, cartID); err != nil {
			return fmt.Errorf("clear cart: %w", err)
		}
		if _, err := tx.Exec(ctx, `UPDATE carts SET updated_at = NOW() WHERE id = $1`, cartID); err != nil {
			return fmt.Errorf("touch cart: %w", err)
		}
		return nil
	})
	if err != nil {
		return orderdomain.Order{}, err
	}
	return created, nil
}

func (r *PlacementRepo) FindByIdempotencyKey(ctx context.Context, userID, key string) (orderdomain.Order, bool, error) {
	if _, err := uuid.Parse(userID); err != nil {
		return orderdomain.Order{}, false, nil
	}

	var orderID string
	err := r.pool.QueryRow(ctx, `
		SELECT order_id::text FROM order_idempotency
		WHERE user_id = $1 AND idempotency_key = $2`,
		userID, key,
	).Scan(&orderID)
	if errors.Is(err, pgx.ErrNoRows) {
		return orderdomain.Order{}, false, nil
	}
	if err != nil {
		return orderdomain.Order{}, false, err
	}

	o, err := orderpg.LoadOrder(ctx, r.pool, orderID)
	if err != nil {
		return orderdomain.Order{}, false, err
	}
	return o, true, nil
}
