// Package httpapi is the storefront and admin REST surface.
package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	cartapp "github.com/dwikikusuma/codshop/internal/cart/app"
	checkoutapp "github.com/dwikikusuma/codshop/internal/checkout/app"
	orderapp "github.com/dwikikusuma/codshop/internal/order/app"
	"github.com/dwikikusuma/codshop/pkg/metrics"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type Handler struct {
	cart     *cartapp.Service
	checkout *checkoutapp.Service
	orders   *orderapp.Service

	log     *slog.Logger
	metrics *metrics.Metrics
}

type Options struct {
	Logger  *slog.Logger
	Metrics *metrics.Metrics
	// Timeout bounds each request. Zero means 30s.
	Timeout time.Duration
	// Ready reports whether dependencies are reachable. Nil means always ready.
	Ready func(ctx context.Context) error
}

func New(cart *cartapp.Service, checkout *checkoutapp.Service, orders *orderapp.Service, log *slog.Logger, m *metrics.Metrics) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{cart: cart, checkout: checkout, orders: orders, log: log, metrics: m}
}

func (h *Handler) Routes(opts Options) http.Handler {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(h.observe)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if opts.Ready != nil {
			if err := opts.Ready(r.Context()); err != nil {
				writeError(w, http.StatusServiceUnavailable, "UNAVAILABLE", "Dependencies unavailable")
				return
			}
		}
		w.WriteHeader(http.StatusOK)
	})
	r.Handle("/metrics", h.metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Timeout(opts.Timeout))
		r.Use(Authenticate)

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", h.GetCart)
			r.Post("/", h.AddToCart)
			r.Delete("/", h.ClearCart)
			r.Put("/{itemId}", h.UpdateCartItem)
			r.Delete("/{itemId}", h.RemoveCartItem)
		})

		r.Get("/checkout/quote", h.Quote)

		r.Route("/orders", func(r chi.Router) {
			r.Post("/", h.PlaceOrder)
			r.Get("/", h.ListMyOrders)
			r.Get("/{id}", h.GetOrder)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(RequireAdmin)
			r.Get("/orders", h.ListAllOrders)
			r.Put("/orders/{id}", h.UpdateOrderStatus)
			r.Get("/stats", h.Stats)
		})
	})

	return r
}
