package app

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/dwikikusuma/codshop/internal/auth"
	"github.com/dwikikusuma/codshop/internal/order/domain"
	"github.com/dwikikusuma/codshop/pkg/apperr"
	"github.com/dwikikusuma/codshop/pkg/metrics"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"
)

var tracer = otel.Tracer("github.com/dwikikusuma/codshop/internal/order")

var (
	ErrOrderNotFound     = fmt.Errorf("order %w", apperr.ErrNotFound)
	ErrInvalidStatus     = fmt.Errorf("%w: invalid order status", apperr.ErrValidation)
	ErrInvalidTransition = fmt.Errorf("%w: invalid status transition", apperr.ErrConflict)
)

const (
	defaultPageLimit = 10
	maxPageLimit     = 100
	recentOrders     = 5
)

type Options struct {
	// StrictTransitions rejects moves out of terminal states and backwards
	// moves. When false any status may be set from any status.
	StrictTransitions bool
	Publisher         EventPublisher
	Metrics           *metrics.Metrics
	Logger            *slog.Logger
	Now               func() time.Time
}

type Service struct {
	repo      OrderRepo
	products  ProductCounter
	directory Directory

	strict    bool
	publisher EventPublisher
	metrics   *metrics.Metrics
	log       *slog.Logger
	now       func() time.Time
}

func NewService(repo OrderRepo, products ProductCounter, directory Directory, opts Options) *Service {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Service{
		repo:      repo,
		products:  products,
		directory: directory,
		strict:    opts.StrictTransitions,
		publisher: opts.Publisher,
		metrics:   opts.Metrics,
		log:       opts.Logger,
		now:       opts.Now,
	}
}

// SetStatus changes only the status of an order. Items, prices and totals are
// never touched, and cancelling does not return stock.
func (s *Service) SetStatus(ctx context.Context, p auth.Principal, orderID, status string) (domain.Order, error) {
	ctx, span := tracer.Start(ctx, "order.SetStatus")
	defer span.End()

	order, prev, err := s.setStatus(ctx, p, orderID, status)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, apperr.Kind(err))
		return domain.Order{}, err
	}
	span.SetAttributes(
		attribute.String("order.id", order.ID),
		attribute.String("order.status.from", string(prev)),
		attribute.String("order.status.to", string(order.Status)),
	)
	return order, nil
}

func (s *Service) setStatus(ctx context.Context, p auth.Principal, orderID, status string) (domain.Order, domain.Status, error) {
	if err := auth.RequireAdmin(p); err != nil {
		return domain.Order{}, "", err
	}

	to, ok := domain.ParseStatus(strings.TrimSpace(status))
	if !ok {
		return domain.Order{}, "", fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}
	if strings.TrimSpace(orderID) == "" {
		return domain.Order{}, "", ErrOrderNotFound
	}

	allow := func(from domain.Status) error {
		if s.strict && !domain.CanTransition(from, to) {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
		}
		return nil
	}

	order, prev, err := s.repo.UpdateStatus(ctx, orderID, to, allow)
	if err != nil {
		return domain.Order{}, "", err
	}

	s.metrics.StatusUpdated(string(to))
	s.log.InfoContext(ctx, "order status updated",
		slog.String("order_id", order.ID),
		slog.String("from", string(prev)),
		slog.String("to", string(to)),
		slog.String("by", p.UserID),
	)

	if s.publisher != nil {
		if err := s.publisher.Publish(ctx, domain.StatusChangedEvent(order, prev, s.now().UTC())); err != nil {
			s.log.WarnContext(ctx, "publish order event failed", slog.String("order_id", order.ID), slog.Any("err", err))
		}
	}

	return order, prev, nil
}

// ViewOrder returns the order to its owner or to an administrator.
func (s *Service) ViewOrder(ctx context.Context, p auth.Principal, orderID string) (domain.Order, error) {
	if err := auth.RequireUser(p); err != nil {
		return domain.Order{}, err
	}
	if strings.TrimSpace(orderID) == "" {
		return domain.Order{}, ErrOrderNotFound
	}

	order, err := s.repo.Get(ctx, orderID)
	if err != nil {
		return domain.Order{}, err
	}
	if !p.CanView(order.UserID) {
		return domain.Order{}, fmt.Errorf("%w: order belongs to another user", apperr.ErrNotAuthorized)
	}
	return order, nil
}

func (s *Service) ListMine(ctx context.Context, p auth.Principal) ([]domain.Order, error) {
	if err := auth.RequireUser(p); err != nil {
		return nil, err
	}
	return s.repo.ListByUser(ctx, p.UserID)
}

func (s *Service) ListAll(ctx context.Context, p auth.Principal, f domain.ListFilter) (domain.Page, error) {
	if err := auth.RequireAdmin(p); err != nil {
		return domain.Page{}, err
	}

	var status domain.Status
	if raw := strings.TrimSpace(string(f.Status)); raw != "" && raw != "all" {
		st, ok := domain.ParseStatus(raw)
		if !ok {
			return domain.Page{}, fmt.Errorf("%w: %q", ErrInvalidStatus, raw)
		}
		status = st
	}

	page := f.Page
	if page < 1 {
		page = 1
	}
	limit := f.Limit
	if limit <= 0 {
		limit = defaultPageLimit
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}

	// pages past math.MaxInt/limit cannot address any row; clamp so the
	// offset never overflows
	if page > math.MaxInt/limit {
		page = math.MaxInt / limit
	}

	orders, total, err := s.repo.List(ctx, status, (page-1)*limit, limit)
	if err != nil {
		return domain.Page{}, err
	}

	return domain.Page{
		Orders: orders,
		Pagination: domain.Pagination{
			CurrentPage:  page,
			TotalPages:   (total + limit - 1) / limit,
			TotalOrders:  total,
			ItemsPerPage: limit,
		},
	}, nil
}

// Stats computes the admin dashboard aggregates on every call.
func (s *Service) Stats(ctx context.Context, p auth.Principal) (domain.Stats, error) {
	if err := auth.RequireAdmin(p); err != nil {
		return domain.Stats{}, err
	}

	var (
		out     domain.Stats
		summary Summary
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		out.TotalUsers, err = s.directory.CountUsers(gctx)
		return err
	})
	g.Go(func() (err error) {
		out.TotalCategories, err = s.directory.CountCategories(gctx)
		return err
	})
	g.Go(func() (err error) {
		out.TotalProducts, err = s.products.CountProducts(gctx)
		return err
	})
	g.Go(func() (err error) {
		summary, err = s.repo.Summary(gctx, recentOrders)
		return err
	})
	if err := g.Wait(); err != nil {
		return domain.Stats{}, fmt.Errorf("order stats: %w", err)
	}

	out.TotalOrders = summary.TotalOrders
	out.TotalRevenue = summary.TotalRevenue
	out.PendingOrders = summary.PendingOrders
	out.RecentOrders = summary.Recent
	if out.RecentOrders == nil {
		out.RecentOrders = []domain.Order{}
	}
	return out, nil
}
