package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/dwikikusuma/codshop/internal/auth"
	checkoutapp "github.com/dwikikusuma/codshop/internal/checkout/app"
	"github.com/dwikikusuma/codshop/internal/order/domain"
	"github.com/dwikikusuma/codshop/pkg/apperr"
	"github.com/dwikikusuma/codshop/pkg/idempotency"
	"github.com/go-chi/chi/v5"
)

type PlaceOrderRequest struct {
	ShippingAddress domain.ShippingAddress `json:"shippingAddress"`
}

type UpdateOrderStatusRequest struct {
	Status string `json:"status"`
}

func (h *Handler) Quote(w http.ResponseWriter, r *http.Request) {
	p, _ := auth.FromContext(r.Context())
	q, err := h.checkout.Quote(r.Context(), p)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeData(w, http.StatusOK, q, "")
}

func (h *Handler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	var req PlaceOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, apperr.KindValidation, "Invalid JSON body")
		return
	}

	p, _ := auth.FromContext(r.Context())
	order, err := h.checkout.PlaceOrder(r.Context(), p, checkoutapp.PlaceOrderInput{
		ShippingAddress: req.ShippingAddress,
		IdempotencyKey:  idempotency.Key(r),
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeData(w, http.StatusCreated, order, "Order placed successfully")
}

func (h *Handler) ListMyOrders(w http.ResponseWriter, r *http.Request) {
	p, _ := auth.FromContext(r.Context())
	orders, err := h.orders.ListMine(r.Context(), p)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeData(w, http.StatusOK, orders, "")
}

func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	p, _ := auth.FromContext(r.Context())
	order, err := h.orders.ViewOrder(r.Context(), p, chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeData(w, http.StatusOK, order, "")
}

func (h *Handler) ListAllOrders(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	limit, _ := strconv.Atoi(q.Get("limit"))

	p, _ := auth.FromContext(r.Context())
	result, err := h.orders.ListAll(r.Context(), p, domain.ListFilter{
		Status: domain.Status(q.Get("status")),
		Page:   page,
		Limit:  limit,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeData(w, http.StatusOK, result, "")
}

func (h *Handler) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	var req UpdateOrderStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, apperr.KindValidation, "Invalid JSON body")
		return
	}

	p, _ := auth.FromContext(r.Context())
	order, err := h.orders.SetStatus(r.Context(), p, chi.URLParam(r, "id"), req.Status)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeData(w, http.StatusOK, order, "Order status updated")
}

func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	p, _ := auth.FromContext(r.Context())
	stats, err := h.orders.Stats(r.Context(), p)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeData(w, http.StatusOK, stats, "")
}
