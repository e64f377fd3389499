package app

import (
	"context"

	"github.com/dwikikusuma/codshop/internal/order/domain"
	"github.com/shopspring/decimal"
)

type OrderRepo interface {
	Get(ctx context.Context, id string) (domain.Order, error)
	// ListByUser returns the user's orders, newest first.
	ListByUser(ctx context.Context, userID string) ([]domain.Order, error)
	// List pages over all orders, newest first. An empty status matches all.
	List(ctx context.Context, status domain.Status, offset, limit int) ([]domain.Order, int, error)
	// UpdateStatus overwrites the status when allow accepts the current one.
	// It returns the updated order and the status it replaced.
	UpdateStatus(ctx context.Context, id string, to domain.Status, allow func(from domain.Status) error) (domain.Order, domain.Status, error)
	Summary(ctx context.Context, recent int) (Summary, error)
}

type Summary struct {
	TotalOrders   int
	TotalRevenue  decimal.Decimal
	PendingOrders int
	Recent        []domain.Order
}

type ProductCounter interface {
	CountProducts(ctx context.Context) (int, error)
}

// Directory counts records owned by the account and category services.
type Directory interface {
	CountUsers(ctx context.Context) (int, error)
	CountCategories(ctx context.Context) (int, error)
}

//go:generate mockgen -destination=mocks/mock_publisher.go -package=mocks . EventPublisher
type EventPublisher interface {
	Publish(ctx context.Context, e domain.Event) error
}
