package app_test

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/dwikikusuma/codshop/internal/auth"
	"github.com/dwikikusuma/codshop/internal/order/app"
	"github.com/dwikikusuma/codshop/internal/order/app/mocks"
	"github.com/dwikikusuma/codshop/internal/order/domain"
	"github.com/dwikikusuma/codshop/internal/order/infra/memory"
	"github.com/dwikikusuma/codshop/internal/platform/memdb"
	"github.com/dwikikusuma/codshop/pkg/apperr"
	"github.com/dwikikusuma/codshop/pkg/logger"
	"github.com/golang/mock/gomock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

var (
	admin = auth.Principal{UserID: "admin-1", Role: auth.RoleAdmin}
	alice = auth.Principal{UserID: "alice", Role: auth.RoleUser}
	bob   = auth.Principal{UserID: "bob", Role: auth.RoleUser}
)

type fixedProducts int

func (n fixedProducts) CountProducts(context.Context) (int, error) { return int(n), nil }

type OrderServiceSuite struct {
	suite.Suite

	db        *memdb.DB
	clock     time.Time
	directory *memory.DirectoryRepo
	svc       *app.Service
}

func TestOrderServiceSuite(t *testing.T) {
	suite.Run(t, new(OrderServiceSuite))
}

func (s *OrderServiceSuite) SetupTest() {
	s.clock = time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	s.db = memdb.New().WithClock(func() time.Time { return s.clock })
	s.directory = memory.NewDirectoryRepo(s.db)
	s.svc = s.newService(app.Options{})
}

func (s *OrderServiceSuite) newService(opts app.Options) *app.Service {
	opts.Logger = logger.Discard()
	return app.NewService(memory.NewOrderRepo(s.db), fixedProducts(7), s.directory, opts)
}

// seed stores an order the way checkout would, advancing the clock so every
// order has a distinct creation time unless same is set.
func (s *OrderServiceSuite) seed(owner string, status domain.Status, total string, same bool) domain.Order {
	if !same {
		s.clock = s.clock.Add(time.Minute)
	}
	amount := decimal.RequireFromString(total)
	o := domain.Order{
		ID:     owner + "-" + s.clock.Format("150405") + "-" + string(status),
		UserID: owner,
		Items: []domain.LineItem{
			{ProductID: "p1", Name: "Thing", Price: amount, Quantity: 1},
		},
		TotalAmount:   amount,
		PaymentMethod: domain.PaymentMethodCOD,
		Status:        status,
		CreatedAt:     s.clock,
		UpdatedAt:     s.clock,
	}
	_ = s.db.Write(func(t *memdb.Tables) error {
		t.Orders[o.ID] = &memdb.OrderRow{Order: o.Clone(), Seq: t.NextSeq()}
		return nil
	})
	return o
}

func (s *OrderServiceSuite) TestSetStatusRequiresAdmin() {
	o := s.seed("alice", domain.StatusPending, "10", false)

	_, err := s.svc.SetStatus(context.Background(), alice, o.ID, "confirmed")
	s.ErrorIs(err, apperr.ErrNotAuthorized)

	stored, err := s.svc.ViewOrder(context.Background(), alice, o.ID)
	s.Require().NoError(err)
	s.Equal(domain.StatusPending, stored.Status)
}

func (s *OrderServiceSuite) TestSetStatusValidatesInput() {
	o := s.seed("alice", domain.StatusPending, "10", false)

	_, err := s.svc.SetStatus(context.Background(), admin, o.ID, "lost")
	s.ErrorIs(err, app.ErrInvalidStatus)
	s.Equal(apperr.KindValidation, apperr.Kind(err))

	_, err = s.svc.SetStatus(context.Background(), admin, "nope", "shipped")
	s.ErrorIs(err, app.ErrOrderNotFound)
}

func (s *OrderServiceSuite) TestSetStatusChangesOnlyStatus() {
	o := s.seed("alice", domain.StatusPending, "42.50", false)

	updated, err := s.svc.SetStatus(context.Background(), admin, o.ID, "shipped")
	s.Require().NoError(err)

	s.Equal(domain.StatusShipped, updated.Status)
	s.True(updated.TotalAmount.Equal(o.TotalAmount))
	s.Equal(o.Items, updated.Items)
	s.Equal(o.CreatedAt, updated.CreatedAt)
}

func (s *OrderServiceSuite) TestPermissiveModeAllowsAnyTransition() {
	o := s.seed("alice", domain.StatusDelivered, "10", false)

	updated, err := s.svc.SetStatus(context.Background(), admin, o.ID, "pending")
	s.Require().NoError(err)
	s.Equal(domain.StatusPending, updated.Status)
}

func (s *OrderServiceSuite) TestStrictModeGuardsLifecycle() {
	svc := s.newService(app.Options{StrictTransitions: true})
	ctx := context.Background()

	o := s.seed("alice", domain.StatusPending, "10", false)
	_, err := svc.SetStatus(ctx, admin, o.ID, "shipped")
	s.Require().NoError(err)

	_, err = svc.SetStatus(ctx, admin, o.ID, "confirmed")
	s.ErrorIs(err, app.ErrInvalidTransition)
	s.Equal(apperr.KindConflict, apperr.Kind(err))

	_, err = svc.SetStatus(ctx, admin, o.ID, "cancelled")
	s.Require().NoError(err)

	_, err = svc.SetStatus(ctx, admin, o.ID, "pending")
	s.ErrorIs(err, app.ErrInvalidTransition)

	stored, err := svc.ViewOrder(ctx, admin, o.ID)
	s.Require().NoError(err)
	s.Equal(domain.StatusCancelled, stored.Status)
}

func (s *OrderServiceSuite) TestSetStatusPublishesEvent() {
	ctrl := gomock.NewController(s.T())
	pub := mocks.NewMockEventPublisher(ctrl)
	svc := s.newService(app.Options{Publisher: pub})

	o := s.seed("alice", domain.StatusPending, "10", false)

	pub.EXPECT().Publish(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, e domain.Event) error {
		s.Equal(domain.EventOrderStatusChanged, e.Type)
		s.Equal(o.ID, e.OrderID)
		s.Equal(domain.StatusPending, e.PreviousStatus)
		s.Equal(domain.StatusConfirmed, e.Status)
		return errors.New("broker down")
	})

	_, err := svc.SetStatus(context.Background(), admin, o.ID, "confirmed")
	s.NoError(err, "publish failures are logged, not returned")
}

func (s *OrderServiceSuite) TestViewOrderAuthorization() {
	o := s.seed("alice", domain.StatusPending, "10", false)
	ctx := context.Background()

	_, err := s.svc.ViewOrder(ctx, alice, o.ID)
	s.NoError(err)

	_, err = s.svc.ViewOrder(ctx, admin, o.ID)
	s.NoError(err)

	_, err = s.svc.ViewOrder(ctx, bob, o.ID)
	s.ErrorIs(err, apperr.ErrNotAuthorized)

	_, err = s.svc.ViewOrder(ctx, auth.Principal{}, o.ID)
	s.ErrorIs(err, apperr.ErrNotAuthorized)

	_, err = s.svc.ViewOrder(ctx, alice, "missing")
	s.ErrorIs(err, apperr.ErrNotFound)
}

func (s *OrderServiceSuite) TestListMineNewestFirst() {
	first := s.seed("alice", domain.StatusPending, "10", false)
	s.seed("bob", domain.StatusPending, "10", false)
	second := s.seed("alice", domain.StatusPending, "20", false)
	// same timestamp as second: insertion order breaks the tie
	third := s.seed("alice", domain.StatusShipped, "30", true)

	orders, err := s.svc.ListMine(context.Background(), alice)
	s.Require().NoError(err)
	s.Require().Len(orders, 3)
	s.Equal([]string{third.ID, second.ID, first.ID}, []string{orders[0].ID, orders[1].ID, orders[2].ID})
}

func (s *OrderServiceSuite) TestListAllPaginatesAndFilters() {
	for i := 0; i < 12; i++ {
		status := domain.StatusPending
		if i%3 == 0 {
			status = domain.StatusDelivered
		}
		s.seed("alice", status, "5", false)
	}
	ctx := context.Background()

	_, err := s.svc.ListAll(ctx, alice, domain.ListFilter{})
	s.ErrorIs(err, apperr.ErrNotAuthorized)

	page, err := s.svc.ListAll(ctx, admin, domain.ListFilter{})
	s.Require().NoError(err)
	s.Len(page.Orders, 10)
	s.Equal(domain.Pagination{CurrentPage: 1, TotalPages: 2, TotalOrders: 12, ItemsPerPage: 10}, page.Pagination)

	page, err = s.svc.ListAll(ctx, admin, domain.ListFilter{Status: "all", Page: 2, Limit: 10})
	s.Require().NoError(err)
	s.Len(page.Orders, 2)

	page, err = s.svc.ListAll(ctx, admin, domain.ListFilter{Status: domain.StatusDelivered, Limit: 500})
	s.Require().NoError(err)
	s.Len(page.Orders, 4)
	s.Equal(100, page.Pagination.ItemsPerPage)
	for _, o := range page.Orders {
		s.Equal(domain.StatusDelivered, o.Status)
	}

	_, err = s.svc.ListAll(ctx, admin, domain.ListFilter{Status: "bogus"})
	s.ErrorIs(err, app.ErrInvalidStatus)
}

func (s *OrderServiceSuite) TestListAllHugePageIsEmpty() {
	s.seed("alice", domain.StatusPending, "5", false)
	ctx := context.Background()

	for _, f := range []domain.ListFilter{
		{Page: math.MaxInt / 5, Limit: 10},
		{Page: math.MaxInt, Limit: 100},
		{Page: math.MaxInt},
	} {
		page, err := s.svc.ListAll(ctx, admin, f)
		s.Require().NoError(err)
		s.Empty(page.Orders)
		s.Equal(1, page.Pagination.TotalOrders)
	}
}

func (s *OrderServiceSuite) TestStats() {
	s.directory.AddUser("alice", "user")
	s.directory.AddUser("bob", "user")
	s.directory.AddUser("admin-1", "admin")
	s.directory.AddCategory("c1", "Lamps")

	s.seed("alice", domain.StatusPending, "10.25", false)
	s.seed("alice", domain.StatusCancelled, "100", false)
	s.seed("bob", domain.StatusDelivered, "5", false)
	for i := 0; i < 4; i++ {
		s.seed("bob", domain.StatusPending, "1", false)
	}
	newest := s.seed("alice", domain.StatusShipped, "2", false)

	_, err := s.svc.Stats(context.Background(), alice)
	s.ErrorIs(err, apperr.ErrNotAuthorized)

	st, err := s.svc.Stats(context.Background(), admin)
	s.Require().NoError(err)

	s.Equal(2, st.TotalUsers)
	s.Equal(7, st.TotalProducts)
	s.Equal(8, st.TotalOrders)
	s.Equal(1, st.TotalCategories)
	s.Equal(5, st.PendingOrders)
	s.True(st.TotalRevenue.Equal(decimal.RequireFromString("21.25")), "revenue = %s", st.TotalRevenue)
	s.Require().Len(st.RecentOrders, 5)
	s.Equal(newest.ID, st.RecentOrders[0].ID)
}

func TestStatsEmptyStore(t *testing.T) {
	db := memdb.New()
	svc := app.NewService(memory.NewOrderRepo(db), fixedProducts(0), memory.NewDirectoryRepo(db), app.Options{Logger: logger.Discard()})

	st, err := svc.Stats(context.Background(), admin)
	require.NoError(t, err)
	assert.True(t, st.TotalRevenue.IsZero())
	assert.NotNil(t, st.RecentOrders)
	assert.Empty(t, st.RecentOrders)
}
