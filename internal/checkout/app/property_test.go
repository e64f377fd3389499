package app_test

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/dwikikusuma/codshop/internal/checkout/app"
	"github.com/dwikikusuma/codshop/pkg/apperr"
	"pgregory.net/rapid"
)

// Concurrent checkouts over random carts never drive stock below zero, and
// every unit that left stock is accounted for by an order line.
func TestStockConservationProperty(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		s := newShop(t, app.Options{MaxConcurrent: 3})

		nProducts := rapid.IntRange(1, 4).Draw(rt, "products")
		initial := make(map[string]int, nProducts)
		ids := make([]string, nProducts)
		for i := range ids {
			stock := rapid.IntRange(0, 6).Draw(rt, fmt.Sprintf("stock%d", i))
			// carts are filled before stock is lowered, so start high
			ids[i] = s.product(t, fmt.Sprintf("P%d", i), "3", 100)
			initial[ids[i]] = stock
		}

		nUsers := rapid.IntRange(1, 6).Draw(rt, "users")
		for u := 0; u < nUsers; u++ {
			for i, id := range ids {
				q := rapid.IntRange(0, 3).Draw(rt, fmt.Sprintf("u%dq%d", u, i))
				if q > 0 {
					s.add(t, fmt.Sprintf("user-%d", u), id, q)
				}
			}
		}
		for id, stock := range initial {
			s.setStock(id, stock)
		}

		var wg sync.WaitGroup
		errs := make([]error, nUsers)
		for u := 0; u < nUsers; u++ {
			wg.Add(1)
			go func(u int) {
				defer wg.Done()
				_, errs[u] = place(s, fmt.Sprintf("user-%d", u))
			}(u)
		}
		wg.Wait()

		for _, err := range errs {
			if err == nil || errors.Is(err, app.ErrEmptyCart) ||
				errors.Is(err, apperr.ErrInsufficientStock) || errors.Is(err, apperr.ErrConflict) {
				continue
			}
			rt.Fatalf("unexpected error: %v", err)
		}

		orders, _, err := s.orders.List(t.Context(), "", 0, 1000)
		if err != nil {
			rt.Fatal(err)
		}
		sold := map[string]int{}
		for _, o := range orders {
			for _, ln := range o.Items {
				sold[ln.ProductID] += ln.Quantity
			}
		}

		for id, start := range initial {
			left := s.stock(t, id)
			if left < 0 {
				rt.Fatalf("stock of %s went negative: %d", id, left)
			}
			if left+sold[id] != start {
				rt.Fatalf("product %s: %d left + %d sold != %d", id, left, sold[id], start)
			}
		}
	})
}
