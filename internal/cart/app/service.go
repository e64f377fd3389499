package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dwikikusuma/codshop/internal/cart/domain"
	"github.com/dwikikusuma/codshop/pkg/apperr"
	"github.com/dwikikusuma/codshop/pkg/lock"
)

var (
	ErrInvalidInput    = fmt.Errorf("%w: invalid cart input", apperr.ErrValidation)
	ErrItemNotFound    = fmt.Errorf("cart item %w", apperr.ErrNotFound)
	ErrProductNotFound = fmt.Errorf("product %w", apperr.ErrNotFound)
)

const defaultLockTTL = 10 * time.Second

type Service struct {
	repo    CartRepo
	catalog CatalogReader
	locker  lock.Locker
	lockTTL time.Duration
}

func NewService(repo CartRepo, catalog CatalogReader, locker lock.Locker) *Service {
	if locker == nil {
		locker = lock.NewLocalLocker()
	}
	return &Service{
		repo:    repo,
		catalog: catalog,
		locker:  locker,
		lockTTL: defaultLockTTL,
	}
}

// LockKey is the lease serializing mutations of one user's cart.
func LockKey(userID string) string { return "cart:" + userID }

func (s *Service) GetOrCreate(ctx context.Context, userID string) (domain.Cart, error) {
	if strings.TrimSpace(userID) == "" {
		return domain.Cart{}, ErrInvalidInput
	}
	return s.repo.GetOrCreate(ctx, userID)
}

// AddItem merges quantity into the user's line for productID. The merged
// quantity may not exceed the product's live stock.
func (s *Service) AddItem(ctx context.Context, userID, productID string, quantity int) (domain.Cart, error) {
	productID = strings.TrimSpace(productID)
	if strings.TrimSpace(userID) == "" || productID == "" || quantity <= 0 {
		return domain.Cart{}, ErrInvalidInput
	}

	return s.mutate(ctx, userID, func(cart domain.Cart) error {
		product, err := s.product(ctx, productID)
		if err != nil {
			return err
		}

		// compare against the headroom left by the existing line so a huge
		// quantity cannot wrap the merged total negative
		headroom := product.Stock
		if existing, ok := cart.ItemByProduct(productID); ok {
			headroom -= existing.Quantity
		}
		if quantity > headroom {
			return insufficient(product.Name, product.Stock)
		}

		return s.repo.AddItem(ctx, cart.ID, productID, quantity)
	})
}

func (s *Service) SetItemQuantity(ctx context.Context, userID, itemID string, quantity int) (domain.Cart, error) {
	if strings.TrimSpace(userID) == "" || strings.TrimSpace(itemID) == "" || quantity < 1 {
		return domain.Cart{}, ErrInvalidInput
	}

	return s.mutate(ctx, userID, func(cart domain.Cart) error {
		item, ok := cart.Item(itemID)
		if !ok {
			return ErrItemNotFound
		}

		product, err := s.product(ctx, item.ProductID)
		if err != nil {
			return err
		}
		if quantity > product.Stock {
			return insufficient(product.Name, product.Stock)
		}

		return s.repo.SetItemQuantity(ctx, cart.ID, itemID, quantity)
	})
}

func (s *Service) RemoveItem(ctx context.Context, userID, itemID string) (domain.Cart, error) {
	if strings.TrimSpace(userID) == "" || strings.TrimSpace(itemID) == "" {
		return domain.Cart{}, ErrInvalidInput
	}

	return s.mutate(ctx, userID, func(cart domain.Cart) error {
		if _, ok := cart.Item(itemID); !ok {
			return ErrItemNotFound
		}
		return s.repo.RemoveItem(ctx, cart.ID, itemID)
	})
}

// Clear empties the cart. Clearing an empty cart succeeds.
func (s *Service) Clear(ctx context.Context, userID string) (domain.Cart, error) {
	if strings.TrimSpace(userID) == "" {
		return domain.Cart{}, ErrInvalidInput
	}

	return s.mutate(ctx, userID, func(cart domain.Cart) error {
		if cart.IsEmpty() {
			return nil
		}
		return s.repo.ClearCart(ctx, cart.ID)
	})
}

// mutate runs fn on the current cart while holding the user's cart lease and
// returns the cart as stored afterwards.
func (s *Service) mutate(ctx context.Context, userID string, fn func(domain.Cart) error) (domain.Cart, error) {
	lease, err := s.locker.Acquire(ctx, LockKey(userID), s.lockTTL)
	if err != nil {
		return domain.Cart{}, fmt.Errorf("lock cart: %w", err)
	}
	defer func() { _ = lease.Release(context.WithoutCancel(ctx)) }()

	cart, err := s.repo.GetOrCreate(ctx, userID)
	if err != nil {
		return domain.Cart{}, err
	}
	if err := fn(cart); err != nil {
		return domain.Cart{}, err
	}
	return s.repo.GetOrCreate(ctx, userID)
}

func (s *Service) product(ctx context.Context, id string) (productView, error) {
	p, err := s.catalog.GetProduct(ctx, id)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return productView{}, fmt.Errorf("%w: %s", ErrProductNotFound, id)
		}
		return productView{}, err
	}
	return productView{Name: p.Name, Stock: p.Stock}, nil
}

type productView struct {
	Name  string
	Stock int
}

func insufficient(name string, available int) error {
	return fmt.Errorf("%w: only %d of %q available", apperr.ErrInsufficientStock, available, name)
}
