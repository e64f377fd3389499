package memory

import (
	"context"

	"github.com/dwikikusuma/codshop/internal/cart/app"
	"github.com/dwikikusuma/codshop/internal/cart/domain"
	"github.com/dwikikusuma/codshop/internal/platform/memdb"
	"github.com/google/uuid"
)

type CartRepo struct {
	db *memdb.DB
}

func NewCartRepo(db *memdb.DB) *CartRepo {
	return &CartRepo{db: db}
}

func (r *CartRepo) GetOrCreate(ctx context.Context, userID string) (domain.Cart, error) {
	var out domain.Cart
	err := r.db.Write(func(t *memdb.Tables) error {
		c, ok := t.Carts[userID]
		if !ok {
			now := r.db.Now()
			c = &domain.Cart{ID: uuid.NewString(), UserID: userID, Items: []domain.CartItem{}, CreatedAt: now, UpdatedAt: now}
			t.Carts[userID] = c
		}
		out = c.Clone()
		return nil
	})
	return out, err
}

func (r *CartRepo) AddItem(ctx context.Context, cartID, productID string, quantity int) error {
	return r.withCart(cartID, func(c *domain.Cart) error {
		for i := range c.Items {
			if c.Items[i].ProductID == productID {
				c.Items[i].Quantity += quantity
				return nil
			}
		}
		c.Items = append(c.Items, domain.CartItem{ID: uuid.NewString(), ProductID: productID, Quantity: quantity})
		return nil
	})
}

func (r *CartRepo) SetItemQuantity(ctx context.Context, cartID, itemID string, quantity int) error {
	return r.withCart(cartID, func(c *domain.Cart) error {
		for i := range c.Items {
			if c.Items[i].ID == itemID {
				c.Items[i].Quantity = quantity
				return nil
			}
		}
		return app.ErrItemNotFound
	})
}

func (r *CartRepo) RemoveItem(ctx context.Context, cartID, itemID string) error {
	return r.withCart(cartID, func(c *domain.Cart) error {
		for i := range c.Items {
			if c.Items[i].ID == itemID {
				c.Items = append(c.Items[:i], c.Items[i+1:]...)
				return nil
			}
		}
		return app.ErrItemNotFound
	})
}

func (r *CartRepo) ClearCart(ctx context.Context, cartID string) error {
	return r.withCart(cartID, func(c *domain.Cart) error {
		c.Items = []domain.CartItem{}
		return nil
	})
}

func (r *CartRepo) withCart(cartID string, fn func(c *domain.Cart) error) error {
	return r.db.Write(func(t *memdb.Tables) error {
		c := FindCart(t, cartID)
		if c == nil {
			return app.ErrItemNotFound
		}
		if err := fn(c); err != nil {
			return err
		}
		c.UpdatedAt = r.db.Now()
		return nil
	})
}

// FindCart looks a cart up by id. Carts are keyed by user, so this scans.
func FindCart(t *memdb.Tables, cartID string) *domain.Cart {
	for _, c := range t.Carts {
		if c.ID == cartID {
			return c
		}
	}
	return nil
}
