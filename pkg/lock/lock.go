// Package lock provides keyed leases used to serialize work per user: cart
// mutations and the cart-to-order transition.
package lock

import (
	"context"
	"errors"
	"sync"
	"time"
)

var ErrNotAcquired = errors.New("lock: not acquired")

type Lease interface {
	Release(ctx context.Context) error
}

type Locker interface {
	// Acquire blocks until the key is free or ctx is done.
	Acquire(ctx context.Context, key string, ttl time.Duration) (Lease, error)
	// TryAcquire returns ErrNotAcquired immediately when the key is held.
	TryAcquire(ctx context.Context, key string, ttl time.Duration) (Lease, error)
}

// LocalLocker serializes holders inside one process. The ttl is ignored:
// leases live until released.
type LocalLocker struct {
	mu    sync.Mutex
	slots map[string]*slot
}

type slot struct {
	ch   chan struct{}
	refs int
}

func NewLocalLocker() *LocalLocker {
	return &LocalLocker{slots: make(map[string]*slot)}
}

func (l *LocalLocker) Acquire(ctx context.Context, key string, _ time.Duration) (Lease, error) {
	s := l.ref(key)
	select {
	case s.ch <- struct{}{}:
		return &localLease{owner: l, key: key, slot: s}, nil
	case <-ctx.Done():
		l.unref(key, s)
		return nil, ctx.Err()
	}
}

func (l *LocalLocker) TryAcquire(_ context.Context, key string, _ time.Duration) (Lease, error) {
	s := l.ref(key)
	select {
	case s.ch <- struct{}{}:
		return &localLease{owner: l, key: key, slot: s}, nil
	default:
		l.unref(key, s)
		return nil, ErrNotAcquired
	}
}

func (l *LocalLocker) ref(key string) *slot {
	l.mu.Lock()
	defer l.mu.Unlock()
	s, ok := l.slots[key]
	if !ok {
		s = &slot{ch: make(chan struct{}, 1)}
		l.slots[key] = s
	}
	s.refs++
	return s
}

func (l *LocalLocker) unref(key string, s *slot) {
	l.mu.Lock()
	defer l.mu.Unlock()
	s.refs--
	if s.refs == 0 {
		delete(l.slots, key)
	}
}

type localLease struct {
	owner *LocalLocker
	key   string
	slot  *slot
	once  sync.Once
}

func (le *localLease) Release(context.Context) error {
	le.once.Do(func() {
		<-le.slot.ch
		le.owner.unref(le.key, le.slot)
	})
	return nil
}
