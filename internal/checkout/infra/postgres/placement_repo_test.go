package postgres_test

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/dwikikusuma/codshop/internal/auth"
	cartapp "github.com/dwikikusuma/codshop/internal/cart/app"
	cartdomain "github.com/dwikikusuma/codshop/internal/cart/domain"
	cartpg "github.com/dwikikusuma/codshop/internal/cart/infra/postgres"
	catalogapp "github.com/dwikikusuma/codshop/internal/catalog/app"
	catalogpg "github.com/dwikikusuma/codshop/internal/catalog/infra/postgres"
	"github.com/dwikikusuma/codshop/internal/checkout/app"
	"github.com/dwikikusuma/codshop/internal/checkout/domain"
	"github.com/dwikikusuma/codshop/internal/checkout/infra/adapter"
	"github.com/dwikikusuma/codshop/internal/checkout/infra/postgres"
	orderdomain "github.com/dwikikusuma/codshop/internal/order/domain"
	orderpg "github.com/dwikikusuma/codshop/internal/order/infra/postgres"
	"github.com/dwikikusuma/codshop/pkg/apperr"
	"github.com/dwikikusuma/codshop/pkg/lock"
	"github.com/dwikikusuma/codshop/pkg/logger"
	pg "github.com/dwikikusuma/codshop/pkg/postgres"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

type pgShop struct {
	pool     *pgxpool.Pool
	catalog  *catalogapp.Service
	cart     *cartapp.Service
	placer   *postgres.PlacementRepo
	orders   *orderpg.OrderRepo
	checkout *app.Service
}

func newPGShop(t *testing.T) *pgShop {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	pool, err := pg.Open(ctx, dsn)
	require.NoError(t, err, "open test db")
	t.Cleanup(pool.Close)
	require.NoError(t, pg.Migrate(ctx, pool), "migrate")

	locker := lock.NewLocalLocker()
	catalog := catalogapp.NewService(catalogpg.NewProductRepo(pool))
	cart := cartapp.NewService(cartpg.NewCartRepo(pool), catalog, locker)
	placer := postgres.NewPlacementRepo(pool)

	return &pgShop{
		pool:    pool,
		catalog: catalog,
		cart:    cart,
		placer:  placer,
		orders:  orderpg.NewOrderRepo(pool),
		checkout: app.NewService(
			adapter.NewCartServiceReader(cart),
			adapter.NewCatalogServiceReader(catalog),
			placer,
			app.Options{Locker: locker, Logger: logger.Discard()},
		),
	}
}

func (s *pgShop) create(t *testing.T, name, price string, stock int) string {
	t.Helper()
	p, err := s.catalog.CreateProduct(context.Background(), catalogapp.CreateProductInput{
		Name:  name,
		Price: decimal.RequireFromString(price),
		Stock: stock,
	})
	require.NoError(t, err)
	return p.ID
}

func (s *pgShop) stock(t *testing.T, productID string) int {
	t.Helper()
	p, err := s.catalog.GetProduct(context.Background(), productID)
	require.NoError(t, err)
	return p.Stock
}

// setStock writes the row directly to stage a sale made elsewhere.
func (s *pgShop) setStock(t *testing.T, productID string, stock int) {
	t.Helper()
	_, err := s.pool.Exec(context.Background(), `UPDATE products SET stock = $2 WHERE id = $1`, productID, stock)
	require.NoError(t, err)
}

func (s *pgShop) add(t *testing.T, userID, productID string, qty int) cartdomain.Cart {
	t.Helper()
	c, err := s.cart.AddItem(context.Background(), userID, productID, qty)
	require.NoError(t, err)
	return c
}

func (s *pgShop) ordersOf(t *testing.T, userID string) []orderdomain.Order {
	t.Helper()
	orders, err := s.orders.ListByUser(context.Background(), userID)
	require.NoError(t, err)
	return orders
}

// placement prices every cart line at 10.00 so tests can call the repo
// without going through the reservation check.
func placement(c cartdomain.Cart, key string) domain.Placement {
	lines := make([]orderdomain.LineItem, 0, len(c.Items))
	for _, it := range c.Items {
		lines = append(lines, orderdomain.LineItem{
			ProductID: it.ProductID,
			Name:      "item",
			Price:     decimal.RequireFromString("10.00"),
			Quantity:  it.Quantity,
		})
	}
	return domain.Placement{
		UserID:         c.UserID,
		CartID:         c.ID,
		Expected:       c.Items,
		Lines:          lines,
		Total:          orderdomain.Total(lines),
		Address:        address(),
		IdempotencyKey: key,
	}
}

func address() orderdomain.ShippingAddress {
	return orderdomain.ShippingAddress{Name: "Asha", Phone: "9999999999", Address: "12 Main St", City: "Pune", Pincode: "411001"}
}

func buyer(id string) auth.Principal { return auth.Principal{UserID: id, Role: auth.RoleUser} }

func TestPlace_CommitsEverything(t *testing.T) {
	s := newPGShop(t)
	ctx := context.Background()
	userID := uuid.NewString()
	p1 := s.create(t, "P1", "10.00", 5)
	p2 := s.create(t, "P2", "5.00", 1)
	s.add(t, userID, p1, 2)
	s.add(t, userID, p2, 1)

	order, err := s.checkout.PlaceOrder(ctx, buyer(userID), app.PlaceOrderInput{ShippingAddress: address(), IdempotencyKey: "k1"})
	require.NoError(t, err)

	assert.True(t, order.TotalAmount.Equal(decimal.RequireFromString("25")), "total %s", order.TotalAmount)
	assert.Equal(t, orderdomain.StatusPending, order.Status)
	assert.Equal(t, orderdomain.PaymentMethodCOD, order.PaymentMethod)
	assert.Equal(t, 3, s.stock(t, p1))
	assert.Equal(t, 0, s.stock(t, p2))

	c, err := s.cart.GetOrCreate(ctx, userID)
	require.NoError(t, err)
	assert.Empty(t, c.Items)

	stored, err := orderpg.LoadOrder(ctx, s.pool, order.ID)
	require.NoError(t, err)
	assert.Len(t, stored.Items, 2)

	found, ok, err := s.placer.FindByIdempotencyKey(ctx, userID, "k1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, order.ID, found.ID)

	// replaying the key returns the committed order without touching stock
	again, err := s.checkout.PlaceOrder(ctx, buyer(userID), app.PlaceOrderInput{ShippingAddress: address(), IdempotencyKey: "k1"})
	require.NoError(t, err)
	assert.Equal(t, order.ID, again.ID)
	assert.Equal(t, 3, s.stock(t, p1))
	assert.Len(t, s.ordersOf(t, userID), 1)
}

func TestPlace_SecondProductSoldOutIsAtomic(t *testing.T) {
	s := newPGShop(t)
	userID := uuid.NewString()
	p1 := s.create(t, "P1", "10.00", 5)
	p2 := s.create(t, "P2", "5.00", 1)
	s.add(t, userID, p1, 2)
	s.add(t, userID, p2, 1)
	s.setStock(t, p2, 0)

	_, err := s.checkout.PlaceOrder(context.Background(), buyer(userID), app.PlaceOrderInput{ShippingAddress: address()})
	var short *app.InsufficientStockError
	require.ErrorAs(t, err, &short)
	assert.Equal(t, "P2", short.Name)
	assert.Equal(t, 0, short.Available)

	assert.Equal(t, 5, s.stock(t, p1))
	assert.Empty(t, s.ordersOf(t, userID))
}

// A stock drop between the reservation check and the commit fails the
// conditional decrement; the transaction must undo the decrements already made.
func TestPlace_StockConflictRollsBack(t *testing.T) {
	s := newPGShop(t)
	ctx := context.Background()
	userID := uuid.NewString()
	p1 := s.create(t, "P1", "10.00", 5)
	p2 := s.create(t, "P2", "5.00", 3)
	s.add(t, userID, p1, 2)
	c := s.add(t, userID, p2, 3)
	s.setStock(t, p2, 2)

	_, err := s.placer.Place(ctx, placement(c, "k1"))
	var conflict *app.StockConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, p2, conflict.ProductID)
	assert.ErrorIs(t, err, apperr.ErrConflict)

	assert.Equal(t, 5, s.stock(t, p1))
	assert.Equal(t, 2, s.stock(t, p2))
	assert.Empty(t, s.ordersOf(t, userID))

	after, err := s.cart.GetOrCreate(ctx, userID)
	require.NoError(t, err)
	assert.Len(t, after.Items, 2, "cart kept")

	_, ok, err := s.placer.FindByIdempotencyKey(ctx, userID, "k1")
	require.NoError(t, err)
	assert.False(t, ok, "key not recorded")
}

func TestPlace_CartChangedSinceRead(t *testing.T) {
	s := newPGShop(t)
	ctx := context.Background()
	userID := uuid.NewString()
	p1 := s.create(t, "P1", "10.00", 5)
	p2 := s.create(t, "P2", "5.00", 5)
	read := s.add(t, userID, p1, 1)

	t.Run("item added", func(t *testing.T) {
		s.add(t, userID, p2, 1)
		_, err := s.placer.Place(ctx, placement(read, ""))
		require.ErrorIs(t, err, app.ErrCartChanged)
	})

	t.Run("quantity changed", func(t *testing.T) {
		current, err := s.cart.GetOrCreate(ctx, userID)
		require.NoError(t, err)
		stale := placement(current, "")
		stale.Expected = append([]cartdomain.CartItem(nil), current.Items...)
		stale.Expected[0].Quantity++
		_, err = s.placer.Place(ctx, stale)
		require.ErrorIs(t, err, app.ErrCartChanged)
	})

	t.Run("different cart", func(t *testing.T) {
		current, err := s.cart.GetOrCreate(ctx, userID)
		require.NoError(t, err)
		other := placement(current, "")
		other.CartID = uuid.NewString()
		_, err = s.placer.Place(ctx, other)
		require.ErrorIs(t, err, app.ErrCartChanged)
	})

	t.Run("no cart", func(t *testing.T) {
		ghost := placement(read, "")
		ghost.UserID = uuid.NewString()
		_, err := s.placer.Place(ctx, ghost)
		require.ErrorIs(t, err, app.ErrCartChanged)
	})

	assert.Equal(t, 5, s.stock(t, p1))
	assert.Equal(t, 5, s.stock(t, p2))
	assert.Empty(t, s.ordersOf(t, userID))
}

func TestPlace_DuplicateIdempotencyKeyRollsBack(t *testing.T) {
	s := newPGShop(t)
	ctx := context.Background()
	userID := uuid.NewString()
	p1 := s.create(t, "P1", "10.00", 5)

	first, err := s.placer.Place(ctx, placement(s.add(t, userID, p1, 1), "k1"))
	require.NoError(t, err)

	_, err = s.placer.Place(ctx, placement(s.add(t, userID, p1, 2), "k1"))
	require.ErrorIs(t, err, app.ErrDuplicateIdempotencyKey)

	assert.Equal(t, 4, s.stock(t, p1))
	orders := s.ordersOf(t, userID)
	require.Len(t, orders, 1)
	assert.Equal(t, first.ID, orders[0].ID)

	c, err := s.cart.GetOrCreate(ctx, userID)
	require.NoError(t, err)
	require.Len(t, c.Items, 1, "cart kept")
	assert.Equal(t, 2, c.Items[0].Quantity)
}

func TestPlaceOrder_ConcurrentBuyersNeverOversell(t *testing.T) {
	s := newPGShop(t)
	const stock, buyers = 5, 20
	productID := s.create(t, "Hot", "9.99", stock)

	users := make([]string, buyers)
	for i := range users {
		users[i] = uuid.NewString()
		s.add(t, users[i], productID, 1)
	}

	results := make([]error, buyers)
	var g errgroup.Group
	for i, userID := range users {
		g.Go(func() error {
			_, results[i] = s.checkout.PlaceOrder(context.Background(), buyer(userID), app.PlaceOrderInput{ShippingAddress: address()})
			return nil
		})
	}
	require.NoError(t, g.Wait())

	placed := 0
	for _, err := range results {
		if err == nil {
			placed++
			continue
		}
		assert.True(t, errors.Is(err, apperr.ErrInsufficientStock) || errors.Is(err, apperr.ErrConflict), "unexpected error: %v", err)
	}
	assert.Equal(t, stock, placed)
	assert.Equal(t, 0, s.stock(t, productID))

	total := 0
	for _, userID := range users {
		total += len(s.ordersOf(t, userID))
	}
	assert.Equal(t, stock, total)
}

// Two placements of the same cart snapshot, as two api replicas without a
// shared lease would issue them: the cart row lock lets only one consume it.
func TestPlace_SameCartTwiceConsumesOnce(t *testing.T) {
	s := newPGShop(t)
	ctx := context.Background()
	userID := uuid.NewString()
	p1 := s.create(t, "P1", "10.00", 10)
	c := s.add(t, userID, p1, 2)

	results := make([]error, 2)
	var g errgroup.Group
	for i := range results {
		g.Go(func() error {
			_, results[i] = s.placer.Place(ctx, placement(c, ""))
			return nil
		})
	}
	require.NoError(t, g.Wait())

	placed := 0
	for _, err := range results {
		if err == nil {
			placed++
			continue
		}
		assert.ErrorIs(t, err, app.ErrCartChanged)
	}
	assert.Equal(t, 1, placed)
	assert.Equal(t, 8, s.stock(t, p1))
	assert.Len(t, s.ordersOf(t, userID), 1)
}
