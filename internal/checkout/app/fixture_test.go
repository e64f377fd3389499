package app_test

import (
	"context"
	"testing"

	"github.com/dwikikusuma/codshop/internal/auth"
	cartapp "github.com/dwikikusuma/codshop/internal/cart/app"
	cartmem "github.com/dwikikusuma/codshop/internal/cart/infra/memory"
	catalogapp "github.com/dwikikusuma/codshop/internal/catalog/app"
	catalogmem "github.com/dwikikusuma/codshop/internal/catalog/infra/memory"
	"github.com/dwikikusuma/codshop/internal/checkout/app"
	"github.com/dwikikusuma/codshop/internal/checkout/infra/adapter"
	checkoutmem "github.com/dwikikusuma/codshop/internal/checkout/infra/memory"
	orderdomain "github.com/dwikikusuma/codshop/internal/order/domain"
	ordermem "github.com/dwikikusuma/codshop/internal/order/infra/memory"
	"github.com/dwikikusuma/codshop/internal/platform/memdb"
	"github.com/dwikikusuma/codshop/pkg/lock"
	"github.com/dwikikusuma/codshop/pkg/logger"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

type shop struct {
	db       *memdb.DB
	catalog  *catalogapp.Service
	cart     *cartapp.Service
	checkout *app.Service
	orders   *ordermem.OrderRepo
	placer   *checkoutmem.Placer
	locker   lock.Locker
}

func newShop(t testing.TB, opts app.Options) *shop {
	t.Helper()
	return newShopWithPlacer(t, opts, nil)
}

// newShopWithPlacer lets a test intercept placements; wrap may be nil.
func newShopWithPlacer(t testing.TB, opts app.Options, wrap func(app.Placer) app.Placer) *shop {
	t.Helper()
	db := memdb.New()
	locker := lock.NewLocalLocker()

	catalog := catalogapp.NewService(catalogmem.NewProductRepo(db))
	cart := cartapp.NewService(cartmem.NewCartRepo(db), catalog, locker)
	placer := checkoutmem.NewPlacer(db)

	var committer app.Placer = placer
	if wrap != nil {
		committer = wrap(placer)
	}

	if opts.Locker == nil {
		opts.Locker = locker
	}
	if opts.Logger == nil {
		opts.Logger = logger.Discard()
	}

	return &shop{
		db:      db,
		catalog: catalog,
		cart:    cart,
		checkout: app.NewService(
			adapter.NewCartServiceReader(cart),
			adapter.NewCatalogServiceReader(catalog),
			committer,
			opts,
		),
		orders: ordermem.NewOrderRepo(db),
		placer: placer,
		locker: opts.Locker,
	}
}

func (s *shop) product(t testing.TB, name, price string, stock int) string {
	t.Helper()
	p, err := s.catalog.CreateProduct(context.Background(), catalogapp.CreateProductInput{
		Name:   name,
		Price:  decimal.RequireFromString(price),
		Stock:  stock,
		Images: []string{"https://img.example/" + name + ".png"},
	})
	require.NoError(t, err)
	return p.ID
}

func (s *shop) stock(t testing.TB, productID string) int {
	t.Helper()
	p, err := s.catalog.GetProduct(context.Background(), productID)
	require.NoError(t, err)
	return p.Stock
}

// setStock bypasses the cart's stock checks to set up races.
func (s *shop) setStock(productID string, stock int) {
	_ = s.db.Write(func(t *memdb.Tables) error {
		p := t.Products[productID]
		p.Stock = stock
		t.Products[productID] = p
		return nil
	})
}

func (s *shop) add(t testing.TB, userID, productID string, qty int) {
	t.Helper()
	_, err := s.cart.AddItem(context.Background(), userID, productID, qty)
	require.NoError(t, err)
}

func (s *shop) orderCount(t testing.TB) int {
	t.Helper()
	_, total, err := s.orders.List(context.Background(), "", 0, 1)
	require.NoError(t, err)
	return total
}

func user(id string) auth.Principal { return auth.Principal{UserID: id, Role: auth.RoleUser} }

func address() orderdomain.ShippingAddress {
	return orderdomain.ShippingAddress{
		Name:    "Asha",
		Phone:   "9999999999",
		Address: "12 Main St",
		City:    "Pune",
		Pincode: "411001",
	}
}

func place(s *shop, userID string) (orderdomain.Order, error) {
	return s.checkout.PlaceOrder(context.Background(), user(userID), app.PlaceOrderInput{ShippingAddress: address()})
}
