package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/dwikikusuma/codshop/internal/auth"
	"github.com/dwikikusuma/codshop/pkg/apperr"
	"github.com/go-chi/chi/v5"
)

type AddToCartRequest struct {
	ProductID string `json:"productId"`
	// Quantity defaults to 1 when omitted.
	Quantity *int `json:"quantity"`
}

type UpdateCartItemRequest struct {
	Quantity int `json:"quantity"`
}

func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	p, _ := auth.FromContext(r.Context())
	cart, err := h.cart.GetOrCreate(r.Context(), p.UserID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeData(w, http.StatusOK, cart, "")
}

func (h *Handler) AddToCart(w http.ResponseWriter, r *http.Request) {
	var req AddToCartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, apperr.KindValidation, "Invalid JSON body")
		return
	}
	qty := 1
	if req.Quantity != nil {
		qty = *req.Quantity
	}

	p, _ := auth.FromContext(r.Context())
	cart, err := h.cart.AddItem(r.Context(), p.UserID, req.ProductID, qty)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeData(w, http.StatusOK, cart, "Item added to cart")
}

func (h *Handler) UpdateCartItem(w http.ResponseWriter, r *http.Request) {
	var req UpdateCartItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, apperr.KindValidation, "Invalid JSON body")
		return
	}

	p, _ := auth.FromContext(r.Context())
	cart, err := h.cart.SetItemQuantity(r.Context(), p.UserID, chi.URLParam(r, "itemId"), req.Quantity)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeData(w, http.StatusOK, cart, "Cart updated")
}

func (h *Handler) RemoveCartItem(w http.ResponseWriter, r *http.Request) {
	p, _ := auth.FromContext(r.Context())
	cart, err := h.cart.RemoveItem(r.Context(), p.UserID, chi.URLParam(r, "itemId"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeData(w, http.StatusOK, cart, "Item removed from cart")
}

func (h *Handler) ClearCart(w http.ResponseWriter, r *http.Request) {
	p, _ := auth.FromContext(r.Context())
	cart, err := h.cart.Clear(r.Context(), p.UserID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeData(w, http.StatusOK, cart, "Cart cleared")
}
