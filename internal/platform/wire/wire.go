// Package wire assembles the services for one storage backend. Both binaries
// build the same graph and differ only in the transport they serve.
package wire

import (
	"context"
	"fmt"
	"log/slog"

	cartapp "github.com/dwikikusuma/codshop/internal/cart/app"
	cartmem "github.com/dwikikusuma/codshop/internal/cart/infra/memory"
	cartpg "github.com/dwikikusuma/codshop/internal/cart/infra/postgres"
	catalogapp "github.com/dwikikusuma/codshop/internal/catalog/app"
	catalogmem "github.com/dwikikusuma/codshop/internal/catalog/infra/memory"
	catalogpg "github.com/dwikikusuma/codshop/internal/catalog/infra/postgres"
	checkoutapp "github.com/dwikikusuma/codshop/internal/checkout/app"
	checkoutadapter "github.com/dwikikusuma/codshop/internal/checkout/infra/adapter"
	checkoutmem "github.com/dwikikusuma/codshop/internal/checkout/infra/memory"
	checkoutpg "github.com/dwikikusuma/codshop/internal/checkout/infra/postgres"
	orderapp "github.com/dwikikusuma/codshop/internal/order/app"
	orderkafka "github.com/dwikikusuma/codshop/internal/order/infra/kafka"
	ordermem "github.com/dwikikusuma/codshop/internal/order/infra/memory"
	orderpg "github.com/dwikikusuma/codshop/internal/order/infra/postgres"
	"github.com/dwikikusuma/codshop/internal/platform/memdb"
	"github.com/dwikikusuma/codshop/pkg/config"
	"github.com/dwikikusuma/codshop/pkg/kafka"
	"github.com/dwikikusuma/codshop/pkg/lock"
	"github.com/dwikikusuma/codshop/pkg/metrics"
	"github.com/dwikikusuma/codshop/pkg/postgres"
)

const (
	StorageMemory   = "memory"
	StoragePostgres = "postgres"
)

type Stack struct {
	Catalog  *catalogapp.Service
	Cart     *cartapp.Service
	Checkout *checkoutapp.Service
	Orders   *orderapp.Service

	Metrics *metrics.Metrics
	// Ready pings the backing stores.
	Ready func(ctx context.Context) error

	closers []func() error
}

// Close releases every connection opened by Build, last opened first.
func (s *Stack) Close() error {
	var first error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil && first == nil {
			first = err
		}
	}
	return first
}

type repos struct {
	products  catalogapp.ProductRepo
	carts     cartapp.CartRepo
	placer    checkoutapp.Placer
	orders    orderapp.OrderRepo
	directory orderapp.Directory
}

func Build(ctx context.Context, cfg config.Config, log *slog.Logger, service string) (*Stack, error) {
	st := &Stack{
		Metrics: metrics.New(service),
		Ready:   func(context.Context) error { return nil },
	}

	var r repos
	switch cfg.Storage {
	case StorageMemory:
		db := memdb.New()
		r = repos{
			products:  catalogmem.NewProductRepo(db),
			carts:     cartmem.NewCartRepo(db),
			placer:    checkoutmem.NewPlacer(db),
			orders:    ordermem.NewOrderRepo(db),
			directory: ordermem.NewDirectoryRepo(db),
		}
		log.Warn("using in-memory storage; data is lost on exit")

	case StoragePostgres:
		pool, err := postgres.Open(ctx, cfg.DSN())
		if err != nil {
			return nil, err
		}
		st.closers = append(st.closers, func() error { pool.Close(); return nil })
		st.Ready = pool.Ping

		if err := postgres.Migrate(ctx, pool); err != nil {
			_ = st.Close()
			return nil, err
		}
		r = repos{
			products:  catalogpg.NewProductRepo(pool),
			carts:     cartpg.NewCartRepo(pool),
			placer:    checkoutpg.NewPlacementRepo(pool),
			orders:    orderpg.NewOrderRepo(pool),
			directory: orderpg.NewDirectoryRepo(pool),
		}

	default:
		return nil, fmt.Errorf("unknown STORAGE %q", cfg.Storage)
	}

	locker, err := newLocker(ctx, cfg, log, st)
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	publisher := newPublisher(cfg, log, st)

	st.Catalog = catalogapp.NewService(r.products)
	st.Cart = cartapp.NewService(r.carts, st.Catalog, locker)
	st.Checkout = checkoutapp.NewService(
		checkoutadapter.NewCartServiceReader(st.Cart),
		checkoutadapter.NewCatalogServiceReader(st.Catalog),
		r.placer,
		checkoutapp.Options{
			MaxConcurrent: cfg.CheckoutMaxConcurrent,
			Locker:        locker,
			LeaseTTL:      cfg.CheckoutLeaseTTL,
			Publisher:     publisher,
			Metrics:       st.Metrics,
			Logger:        log,
		},
	)
	st.Orders = orderapp.NewService(r.orders, st.Catalog, r.directory, orderapp.Options{
		StrictTransitions: cfg.StrictOrderTransitions,
		Publisher:         publisher,
		Metrics:           st.Metrics,
		Logger:            log,
	})

	return st, nil
}

func newLocker(ctx context.Context, cfg config.Config, log *slog.Logger, st *Stack) (lock.Locker, error) {
	if cfg.RedisURL == "" {
		log.Info("REDIS_URL not set; cart and checkout leases are process-local")
		return lock.NewLocalLocker(), nil
	}

	client, err := lock.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		return nil, err
	}
	st.closers = append(st.closers, client.Close)

	ready := st.Ready
	st.Ready = func(ctx context.Context) error {
		if err := ready(ctx); err != nil {
			return err
		}
		return client.Ping(ctx).Err()
	}
	return lock.NewRedisLocker(client, "codshop:lock:"), nil
}

type publisher interface {
	orderapp.EventPublisher
	Close() error
}

func newPublisher(cfg config.Config, log *slog.Logger, st *Stack) publisher {
	client := kafka.NewClient(cfg.KafkaBrokers)
	if !client.Enabled() {
		log.Info("KAFKA_BROKERS not set; order events are not published")
		return orderkafka.NoopPublisher{}
	}

	p := orderkafka.NewPublisher(client.NewWriter(cfg.KafkaTopic))
	st.closers = append(st.closers, p.Close)
	return p
}
