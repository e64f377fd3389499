package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/dwikikusuma/codshop/internal/cart/app"
	"github.com/dwikikusuma/codshop/internal/cart/domain"
	"github.com/dwikikusuma/codshop/pkg/apperr"
	pg "github.com/dwikikusuma/codshop/pkg/postgres"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type CartRepo struct {
	pool *pgxpool.Pool
}

func NewCartRepo(pool *pgxpool.Pool) *CartRepo {
	return &CartRepo{pool: pool}
}

func (r *CartRepo) get(ctx context.Context, userID string) (domain.Cart, error) {
	var cart domain.Cart
	err := r.pool.QueryRow(ctx, `
		SELECT id::text, user_id::text, created_at, updated_at
		FROM carts WHERE user_id = $1`, userID,
	).Scan(&cart.ID, &cart.UserID, &cart.CreatedAt, &cart.UpdatedAt)
	if err != nil {
		return domain.Cart{}, err
	}

	items, err := ListItems(ctx, r.pool, cart.ID)
	if err != nil {
		return domain.Cart{}, err
	}
	cart.Items = items
	return cart, nil
}

// Querier is satisfied by *pgxpool.Pool and pgx.Tx.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// ListItems returns the cart's lines in insertion order.
func ListItems(ctx context.Context, q Querier, cartID string) ([]domain.CartItem, error) {
	rows, err := q.Query(ctx, `
		SELECT id::text, product_id::text, quantity
		FROM cart_items WHERE cart_id = $1
		ORDER BY created_at, id`, cartID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []domain.CartItem{}
	for rows.Next() {
		var it domain.CartItem
		if err := rows.Scan(&it.ID, &it.ProductID, &it.Quantity); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func (r *CartRepo) GetOrCreate(ctx context.Context, userID string) (domain.Cart, error) {
	if _, err := uuid.Parse(userID); err != nil {
		return domain.Cart{}, fmt.Errorf("%w: user id must be a uuid", apperr.ErrValidation)
	}

	cart, err := r.get(ctx, userID)
	if err == nil {
		return cart, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return domain.Cart{}, err
	}

	_, createErr := r.pool.Exec(ctx, `INSERT INTO carts (user_id) VALUES ($1)`, userID)
	if createErr == nil || pg.IsUniqueViolation(createErr) {
		// lost the race to a concurrent create: read the winner
		return r.get(ctx, userID)
	}
	return domain.Cart{}, createErr
}

func (r *CartRepo) AddItem(ctx context.Context, cartID, productID string, quantity int) error {
	if _, err := uuid.Parse(productID); err != nil {
		return app.ErrProductNotFound
	}

	return pg.ExecTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `
			INSERT INTO cart_items (cart_id, product_id, quantity)
			VALUES ($1, $2, $3)
			ON CONFLICT (cart_id, product_id)
			DO UPDATE SET quantity = cart_items.quantity + EXCLUDED.quantity`,
			cartID, productID, quantity,
		); err != nil {
			return err
		}
		return touch(ctx, tx, cartID)
	})
}

func (r *CartRepo) SetItemQuantity(ctx context.Context, cartID, itemID string, quantity int) error {
	if _, err := uuid.Parse(itemID); err != nil {
		return app.ErrItemNotFound
	}

	return pg.ExecTx(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `UPDATE cart_items SET quantity = $3 WHERE id = $1 AND cart_id = $2`, itemID, cartID, quantity)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return app.ErrItemNotFound
		}
		return touch(ctx, tx, cartID)
	})
}

func (r *CartRepo) RemoveItem(ctx context.Context, cartID, itemID string) error {
	if _, err := uuid.Parse(itemID); err != nil {
		return app.ErrItemNotFound
	}

	return pg.ExecTx(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `DELETE FROM cart_items WHERE id = $1 AND cart_id = $2`, itemID, cartID)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return app.ErrItemNotFound
		}
		return touch(ctx, tx, cartID)
	})
}

func (r *CartRepo) ClearCart(ctx context.Context, cartID string) error {
	return pg.ExecTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM cart_items WHERE cart_id = $1`, cartID); err != nil {
			return err
		}
		return touch(ctx, tx, cartID)
	})
}

func touch(ctx context.Context, tx pgx.Tx, cartID string) error {
	_, err := tx.Exec(ctx, `UPDATE carts SET updated_at = NOW() WHERE id = $1`, cartID)
	return err
}
