package httpapi

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/dwikikusuma/codshop/internal/auth"
	"github.com/dwikikusuma/codshop/pkg/apperr"
	"github.com/dwikikusuma/codshop/pkg/logger"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Authenticate trusts the identity headers set by the upstream auth proxy.
func Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID := strings.TrimSpace(r.Header.Get(auth.HeaderUserID))
		if userID == "" {
			writeError(w, http.StatusUnauthorized, apperr.KindNotAuthorized, "Authentication required")
			return
		}
		p := auth.Principal{UserID: userID, Role: auth.ParseRole(r.Header.Get(auth.HeaderRole))}
		next.ServeHTTP(w, r.WithContext(auth.WithPrincipal(r.Context(), p)))
	})
}

// RequireAdmin rejects non-admin principals before the handler runs.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, _ := auth.FromContext(r.Context())
		if !p.IsAdmin() {
			writeError(w, http.StatusForbidden, apperr.KindNotAuthorized, "Admin access required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// observe logs every request and records its latency under the route pattern.
func (h *Handler) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		reqLog := h.log.With(slog.String("request_id", middleware.GetReqID(r.Context())))
		next.ServeHTTP(ww, r.WithContext(logger.WithContext(r.Context(), reqLog)))

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		elapsed := time.Since(start)

		h.metrics.ObserveRequest(route, status, elapsed)
		reqLog.Info("http request",
			slog.String("method", r.Method),
			slog.String("route", route),
			slog.Int("status", status),
			slog.Int64("duration_ms", elapsed.Milliseconds()),
		)
	})
}
