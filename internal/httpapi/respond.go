package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	cartapp "github.com/dwikikusuma/codshop/internal/cart/app"
	catalogapp "github.com/dwikikusuma/codshop/internal/catalog/app"
	checkoutapp "github.com/dwikikusuma/codshop/internal/checkout/app"
	orderapp "github.com/dwikikusuma/codshop/internal/order/app"
	"github.com/dwikikusuma/codshop/pkg/apperr"
	"github.com/dwikikusuma/codshop/pkg/logger"
)

const KindServerError = "SERVER_ERROR"

type SuccessResponse struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
}

type ErrorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Error   string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeData(w http.ResponseWriter, status int, data any, message string) {
	writeJSON(w, status, SuccessResponse{Success: true, Data: data, Message: message})
}

func writeError(w http.ResponseWriter, status int, kind, message string) {
	writeJSON(w, status, ErrorResponse{Success: false, Message: message, Error: kind})
}

// StatusFor maps an error kind to its HTTP status.
func StatusFor(err error) (int, string) {
	switch kind := apperr.Kind(err); kind {
	case apperr.KindValidation, apperr.KindInsufficientStock:
		return http.StatusBadRequest, kind
	case apperr.KindNotAuthorized:
		return http.StatusForbidden, kind
	case apperr.KindNotFound:
		return http.StatusNotFound, kind
	case apperr.KindConflict:
		return http.StatusConflict, kind
	default:
		return http.StatusInternalServerError, KindServerError
	}
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, kind := StatusFor(err)
	if status == http.StatusInternalServerError {
		logger.FromContext(r.Context(), h.log).ErrorContext(r.Context(), "request failed",
			slog.String("path", r.URL.Path),
			slog.Any("err", err),
		)
		writeError(w, status, kind, "Something went wrong, please try again later")
		return
	}
	writeError(w, status, kind, message(err))
}

// messages are the client-facing texts of known errors, most specific first.
var messages = []struct {
	err  error
	text string
}{
	{checkoutapp.ErrEmptyCart, "Cart is empty"},
	{checkoutapp.ErrInvalidShippingAddress, "Shipping address is required"},
	{checkoutapp.ErrInvalidIdempotencyKey, "Idempotency key is too long"},
	{checkoutapp.ErrCheckoutInProgress, "Checkout already in progress"},
	{checkoutapp.ErrCartChanged, "Cart changed during checkout, please try again"},
	{checkoutapp.ErrDuplicateIdempotencyKey, "Idempotency key already used"},
	{cartapp.ErrInvalidInput, "Product ID and a quantity of at least 1 are required"},
	{cartapp.ErrItemNotFound, "Item not found in cart"},
	{cartapp.ErrProductNotFound, "Product not found"},
	{catalogapp.ErrNotFound, "Product not found"},
	{orderapp.ErrOrderNotFound, "Order not found"},
	{orderapp.ErrInvalidStatus, "Invalid status"},
	{orderapp.ErrInvalidTransition, "Invalid status transition"},
}

var kindMessages = map[string]string{
	apperr.KindValidation:        "Invalid request",
	apperr.KindInsufficientStock: "Insufficient stock",
	apperr.KindNotFound:          "Not found",
	apperr.KindNotAuthorized:     "Not authorized",
	apperr.KindConflict:          "Request conflicts with the current state, please try again",
}

// message is the client-facing text of a known error. Stock errors name the
// product, as the storefront shows them verbatim.
func message(err error) string {
	var (
		stock    *checkoutapp.InsufficientStockError
		conflict *checkoutapp.StockConflictError
		missing  *checkoutapp.ProductNotFoundError
	)
	switch {
	case errors.As(err, &stock):
		return "Insufficient stock for " + stock.Name
	case errors.As(err, &conflict):
		return "Stock for " + conflict.Name + " changed, please try again"
	case errors.As(err, &missing):
		return "Product not found"
	}

	for _, m := range messages {
		if errors.Is(err, m.err) {
			return m.text
		}
	}
	if text, ok := kindMessages[apperr.Kind(err)]; ok {
		return text
	}
	return "Something went wrong, please try again later"
}
