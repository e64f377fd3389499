package postgres_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"

	"github.com/dwikikusuma/codshop/internal/order/app"
	"github.com/dwikikusuma/codshop/internal/order/domain"
	"github.com/dwikikusuma/codshop/internal/order/infra/postgres"
	pg "github.com/dwikikusuma/codshop/pkg/postgres"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func openDB(t *testing.T) *pgxpool.Pool {
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
	return pool
}

func sampleOrder(userID string) domain.Order {
	items := []domain.LineItem{
		{ProductID: uuid.NewString(), Name: "P1", Price: decimal.RequireFromString("10.50"), Quantity: 2, Image: "https://img.example/p1.png"},
		{ProductID: uuid.NewString(), Name: "P2", Price: decimal.RequireFromString("4.00"), Quantity: 1},
	}
	return domain.Order{
		UserID:      userID,
		Items:       items,
		TotalAmount: domain.Total(items),
		ShippingAddress: domain.ShippingAddress{
			Name: "Asha", Phone: "9999999999", Address: "12 Main St", City: "Pune", Pincode: "411001",
		},
		PaymentMethod: domain.PaymentMethodCOD,
		Status:        domain.StatusPending,
	}
}

func insert(t *testing.T, pool *pgxpool.Pool, o domain.Order) domain.Order {
	t.Helper()
	var created domain.Order
	err := pg.ExecTx(context.Background(), pool, func(tx pgx.Tx) error {
		var err error
		created, err = postgres.InsertOrder(context.Background(), tx, o)
		return err
	})
	require.NoError(t, err)
	return created
}

func TestInsertAndLoadOrder(t *testing.T) {
	pool := openDB(t)
	ctx := context.Background()
	want := sampleOrder(uuid.NewString())

	created := insert(t, pool, want)
	require.NotEmpty(t, created.ID)

	got, err := postgres.LoadOrder(ctx, pool, created.ID)
	require.NoError(t, err)

	assert.Equal(t, want.UserID, got.UserID)
	assert.True(t, got.TotalAmount.Equal(decimal.RequireFromString("25")), "total %s", got.TotalAmount)
	assert.Equal(t, want.ShippingAddress, got.ShippingAddress)
	assert.Equal(t, domain.PaymentMethodCOD, got.PaymentMethod)
	assert.Equal(t, domain.StatusPending, got.Status)
	require.Len(t, got.Items, 2)
	for i := range want.Items {
		assert.Equal(t, want.Items[i].ProductID, got.Items[i].ProductID, "line order is kept")
		assert.Equal(t, want.Items[i].Name, got.Items[i].Name)
		assert.Equal(t, want.Items[i].Quantity, got.Items[i].Quantity)
		assert.Equal(t, want.Items[i].Image, got.Items[i].Image)
		assert.True(t, want.Items[i].Price.Equal(got.Items[i].Price))
	}
}

func TestInsertOrderRejectsMismatchedTotal(t *testing.T) {
	pool := openDB(t)
	o := sampleOrder(uuid.NewString())
	o.TotalAmount = decimal.RequireFromString("1")

	err := pg.ExecTx(context.Background(), pool, func(tx pgx.Tx) error {
		_, err := postgres.InsertOrder(context.Background(), tx, o)
		return err
	})
	require.Error(t, err)

	orders, err := postgres.NewOrderRepo(pool).ListByUser(context.Background(), o.UserID)
	require.NoError(t, err)
	assert.Empty(t, orders)
}

func TestLoadOrderUnknown(t *testing.T) {
	pool := openDB(t)
	for _, id := range []string{uuid.NewString(), "not-a-uuid"} {
		_, err := postgres.LoadOrder(context.Background(), pool, id)
		assert.ErrorIs(t, err, app.ErrOrderNotFound, id)
	}
}

func TestUpdateStatus(t *testing.T) {
	pool := openDB(t)
	repo := postgres.NewOrderRepo(pool)
	ctx := context.Background()
	created := insert(t, pool, sampleOrder(uuid.NewString()))

	strict := func(to domain.Status) func(domain.Status) error {
		return func(from domain.Status) error {
			if !domain.CanTransition(from, to) {
				return fmt.Errorf("%w: %s -> %s", app.ErrInvalidTransition, from, to)
			}
			return nil
		}
	}

	updated, prev, err := repo.UpdateStatus(ctx, created.ID, domain.StatusConfirmed, strict(domain.StatusConfirmed))
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, prev)
	assert.Equal(t, domain.StatusConfirmed, updated.Status)
	assert.Len(t, updated.Items, 2)

	// a refused transition leaves the row untouched
	_, _, err = repo.UpdateStatus(ctx, created.ID, domain.StatusPending, strict(domain.StatusPending))
	require.ErrorIs(t, err, app.ErrInvalidTransition)

	got, err := repo.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusConfirmed, got.Status)

	_, _, err = repo.UpdateStatus(ctx, uuid.NewString(), domain.StatusShipped, strict(domain.StatusShipped))
	assert.ErrorIs(t, err, app.ErrOrderNotFound)
}

// The row lock serialises concurrent updates: each allow callback sees the
// status the previous writer committed, so only one of the racing deliveries
// starts from shipped.
func TestUpdateStatusSerialisesWriters(t *testing.T) {
	pool := openDB(t)
	repo := postgres.NewOrderRepo(pool)
	created := insert(t, pool, sampleOrder(uuid.NewString()))
	_, _, err := repo.UpdateStatus(context.Background(), created.ID, domain.StatusShipped, func(domain.Status) error { return nil })
	require.NoError(t, err)

	errShipped := errors.New("already moved")
	const N = 10
	results := make([]error, N)
	var g errgroup.Group
	for i := 0; i < N; i++ {
		g.Go(func() error {
			_, _, err := repo.UpdateStatus(context.Background(), created.ID, domain.StatusDelivered, func(from domain.Status) error {
				if from != domain.StatusShipped {
					return errShipped
				}
				return nil
			})
			results[i] = err
			return nil
		})
	}
	require.NoError(t, g.Wait())

	won := 0
	for _, err := range results {
		if err == nil {
			won++
			continue
		}
		assert.ErrorIs(t, err, errShipped)
	}
	assert.Equal(t, 1, won)
}
