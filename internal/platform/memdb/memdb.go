// Package memdb is an in-process store shared by the memory repositories of
// every bounded context. One mutex guards all tables, so a Write callback sees
// and mutates catalog, carts and orders as a single atomic unit.
package memdb

import (
	"sync"
	"time"

	cartdomain "github.com/dwikikusuma/codshop/internal/cart/domain"
	catalogdomain "github.com/dwikikusuma/codshop/internal/catalog/domain"
	orderdomain "github.com/dwikikusuma/codshop/internal/order/domain"
)

type DB struct {
	mu  sync.RWMutex
	t   Tables
	now func() time.Time
}

type Tables struct {
	Products   map[string]catalogdomain.Product
	Carts      map[string]*cartdomain.Cart // keyed by user id
	Orders     map[string]*OrderRow
	Users      map[string]string // id -> role
	Categories map[string]string // id -> name
	// Idempotency maps IdempotencyKey(user, key) to an order id.
	Idempotency map[string]string

	seq int64
}

type OrderRow struct {
	Order orderdomain.Order
	Seq   int64
}

func New() *DB {
	return &DB{
		t: Tables{
			Products:    make(map[string]catalogdomain.Product),
			Carts:       make(map[string]*cartdomain.Cart),
			Orders:      make(map[string]*OrderRow),
			Users:       make(map[string]string),
			Categories:  make(map[string]string),
			Idempotency: make(map[string]string),
		},
		now: time.Now,
	}
}

// WithClock replaces the time source. Tests use it for deterministic ordering.
func (db *DB) WithClock(now func() time.Time) *DB {
	db.now = now
	return db
}

func (db *DB) Now() time.Time { return db.now().UTC() }

func (db *DB) Read(fn func(t *Tables) error) error {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return fn(&db.t)
}

// Write runs fn with exclusive access. fn must validate before mutating:
// there is no rollback.
func (db *DB) Write(fn func(t *Tables) error) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	return fn(&db.t)
}

// NextSeq returns a monotonically increasing sequence, used to break
// created_at ties.
func (t *Tables) NextSeq() int64 {
	t.seq++
	return t.seq
}

func IdempotencyKey(userID, key string) string {
	return userID + "\x00" + key
}
