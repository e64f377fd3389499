package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dwikikusuma/codshop/internal/auth"
	"github.com/dwikikusuma/codshop/internal/checkout/domain"
	orderdomain "github.com/dwikikusuma/codshop/internal/order/domain"
	"github.com/dwikikusuma/codshop/pkg/apperr"
	"github.com/dwikikusuma/codshop/pkg/idempotency"
	"github.com/dwikikusuma/codshop/pkg/lock"
	"github.com/dwikikusuma/codshop/pkg/metrics"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/singleflight"
)

var tracer = otel.Tracer("github.com/dwikikusuma/codshop/internal/checkout")

const defaultLeaseTTL = 15 * time.Second

type Options struct {
	MaxConcurrent int
	Locker        lock.Locker
	LeaseTTL      time.Duration
	Publisher     EventPublisher
	Metrics       *metrics.Metrics
	Logger        *slog.Logger
	Now           func() time.Time
}

type Service struct {
	Cart     CartReader
	Reserver *Reserver
	placer   Placer

	locker    lock.Locker
	leaseTTL  time.Duration
	publisher EventPublisher
	metrics   *metrics.Metrics
	log       *slog.Logger
	now       func() time.Time

	flight singleflight.Group
}

func NewService(cart CartReader, catalog CatalogReader, placer Placer, opts Options) *Service {
	if opts.Locker == nil {
		opts.Locker = lock.NewLocalLocker()
	}
	if opts.LeaseTTL <= 0 {
		opts.LeaseTTL = defaultLeaseTTL
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &Service{
		Cart:      cart,
		Reserver:  NewReserver(catalog, opts.MaxConcurrent),
		placer:    placer,
		locker:    opts.Locker,
		leaseTTL:  opts.LeaseTTL,
		publisher: opts.Publisher,
		metrics:   opts.Metrics,
		log:       opts.Logger,
		now:       opts.Now,
	}
}

// LeaseKey is the lease held while a user's cart turns into an order.
func LeaseKey(userID string) string { return "checkout:" + userID }

// Quote prices the caller's cart against live stock without reserving it.
func (s *Service) Quote(ctx context.Context, p auth.Principal) (domain.Quote, error) {
	if err := auth.RequireUser(p); err != nil {
		return domain.Quote{}, err
	}

	cart, err := s.Cart.GetCart(ctx, p.UserID)
	if err != nil {
		return domain.Quote{}, err
	}
	if cart.IsEmpty() {
		return domain.Quote{}, ErrEmptyCart
	}

	return s.Reserver.Check(ctx, cart.Items)
}

type PlaceOrderInput struct {
	ShippingAddress orderdomain.ShippingAddress
	// IdempotencyKey is optional. A key already used by the same user returns
	// the order it created.
	IdempotencyKey string
}

// PlaceOrder turns the caller's cart into a pending COD order. Stock is taken,
// the order is written and the cart is cleared as one unit.
func (s *Service) PlaceOrder(ctx context.Context, p auth.Principal, in PlaceOrderInput) (orderdomain.Order, error) {
	ctx, span := tracer.Start(ctx, "checkout.PlaceOrder")
	defer span.End()

	order, err := s.placeOrder(ctx, p, in)
	if err != nil {
		kind := apperr.Kind(err)
		s.metrics.CheckoutFailed(kind)
		span.RecordError(err)
		span.SetStatus(codes.Error, kind)
		return orderdomain.Order{}, err
	}

	span.SetAttributes(attribute.String("order.id", order.ID))
	return order, nil
}

func (s *Service) placeOrder(ctx context.Context, p auth.Principal, in PlaceOrderInput) (orderdomain.Order, error) {
	if err := auth.RequireUser(p); err != nil {
		return orderdomain.Order{}, err
	}

	if missing := in.ShippingAddress.MissingFields(); len(missing) > 0 {
		return orderdomain.Order{}, fmt.Errorf("%w: missing %s", ErrInvalidShippingAddress, strings.Join(missing, ", "))
	}

	key := strings.TrimSpace(in.IdempotencyKey)
	if !idempotency.Valid(key) {
		return orderdomain.Order{}, ErrInvalidIdempotencyKey
	}

	in.ShippingAddress = in.ShippingAddress.Normalize()
	in.IdempotencyKey = key

	// Concurrent submissions of the same request share one attempt. The
	// attempt outlives any single caller and is bounded by the lease TTL.
	ch := s.flight.DoChan(flightKey(p.UserID, key), func() (any, error) {
		attemptCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.leaseTTL)
		defer cancel()
		return s.place(attemptCtx, p.UserID, in)
	})

	select {
	case <-ctx.Done():
		return orderdomain.Order{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return orderdomain.Order{}, res.Err
		}
		return res.Val.(orderdomain.Order).Clone(), nil
	}
}

func flightKey(userID, idempotencyKey string) string {
	if idempotencyKey == "" {
		return userID
	}
	return userID + "\x00" + idempotencyKey
}

func (s *Service) place(ctx context.Context, userID string, in PlaceOrderInput) (orderdomain.Order, error) {
	if in.IdempotencyKey != "" {
		if existing, ok, err := s.placer.FindByIdempotencyKey(ctx, userID, in.IdempotencyKey); err != nil {
			return orderdomain.Order{}, err
		} else if ok {
			return existing, nil
		}
	}

	lease, err := s.locker.TryAcquire(ctx, LeaseKey(userID), s.leaseTTL)
	if errors.Is(err, lock.ErrNotAcquired) {
		return orderdomain.Order{}, ErrCheckoutInProgress
	}
	if err != nil {
		return orderdomain.Order{}, fmt.Errorf("checkout lease: %w", err)
	}
	defer func() {
		if err := lease.Release(context.WithoutCancel(ctx)); err != nil {
			s.log.WarnContext(ctx, "checkout lease release failed", slog.String("user_id", userID), slog.Any("err", err))
		}
	}()

	cart, err := s.Cart.GetCart(ctx, userID)
	if err != nil {
		return orderdomain.Order{}, err
	}
	if cart.IsEmpty() {
		return orderdomain.Order{}, ErrEmptyCart
	}

	quote, err := s.Reserver.Check(ctx, cart.Items)
	if err != nil {
		return orderdomain.Order{}, err
	}

	lines := quote.LineItems()
	order, err := s.placer.Place(ctx, domain.Placement{
		UserID:         userID,
		CartID:         cart.ID,
		Expected:       cart.Items,
		Lines:          lines,
		Total:          orderdomain.Total(lines),
		Address:        in.ShippingAddress,
		IdempotencyKey: in.IdempotencyKey,
	})
	if errors.Is(err, ErrDuplicateIdempotencyKey) {
		existing, ok, findErr := s.placer.FindByIdempotencyKey(ctx, userID, in.IdempotencyKey)
		if findErr == nil && ok {
			return existing, nil
		}
	}
	if err != nil {
		return orderdomain.Order{}, err
	}

	s.metrics.OrderPlaced()
	s.log.InfoContext(ctx, "order placed",
		slog.String("order_id", order.ID),
		slog.String("user_id", userID),
		slog.Int("items", len(order.Items)),
		slog.String("total", order.TotalAmount.StringFixed(2)),
	)
	s.publish(ctx, orderdomain.PlacedEvent(order, s.now().UTC()))

	return order, nil
}

// publish is best-effort: the order is already committed.
func (s *Service) publish(ctx context.Context, e orderdomain.Event) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, e); err != nil {
		s.log.WarnContext(ctx, "publish order event failed",
			slog.String("type", string(e.Type)),
			slog.String("order_id", e.OrderID),
			slog.Any("err", err),
		)
	}
}
