package handler

import (
	"net/http"

	"github.com/go-faster/errors"
)

// placeCheckout empties the cart and answers with the receipt. The body is
// optional; without it the cart is checked out with no discount.
func (h *Handler) placeCheckout(w http.ResponseWriter, r *http.Request) {
	s, ok := current(w, r)
	if !ok {
		return
	}

	var req discountRequest
	if err := h.decodeAndValidate(w, r, &req); err != nil && !errors.Is(err, errEmptyBody) {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	receipt, err := h.checkout.Checkout(r.Context(), s.Cart, req.input())
	if err != nil {
		handleDomainError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusCreated, receiptResponse(*receipt))
}
