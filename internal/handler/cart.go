package handler

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/xenking/kart-storefront/internal/domain/discount"
	"github.com/xenking/kart-storefront/internal/session"
)

// respondCart answers with the cart priced with in.
func respondCart(w http.ResponseWriter, r *http.Request, s *session.Session, status int, in discount.Input) {
	entries := s.Cart.State().Entries()
	totals, err := discount.Compute(entries, in)
	if err != nil {
		handleDomainError(r.Context(), w, err)
		return
	}
	writeJSON(w, status, cartResponse{Entries: entries, Totals: totals})
}

// getCart prices the cart with the optional ?discount=&kind= query.
func (h *Handler) getCart(w http.ResponseWriter, r *http.Request) {
	s, ok := current(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	var req discountRequest
	if v := q.Get("discount"); v != "" {
		amount, err := decimal.NewFromString(v)
		if err != nil {
			respondError(w, http.StatusBadRequest, "discount must be a number")
			return
		}
		req.Discount = amount
	}
	req.Kind = strings.ToLower(strings.TrimSpace(q.Get("kind")))
	if err := h.validateStruct(&req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	in := req.input()
	kind, err := discount.ParseKind(string(in.Kind))
	if err != nil {
		handleDomainError(r.Context(), w, err)
		return
	}
	in.Kind = kind
	respondCart(w, r, s, http.StatusOK, in)
}

func (h *Handler) addItem(w http.ResponseWriter, r *http.Request) {
	s, ok := current(w, r)
	if !ok {
		return
	}

	var req addItemRequest
	if err := h.decodeAndValidate(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	p, err := s.Catalog.Lookup(req.ProductID)
	if err != nil {
		handleDomainError(r.Context(), w, err)
		return
	}
	s.Cart.Add(p)
	respondCart(w, r, s, http.StatusCreated, discount.Input{Kind: discount.KindFixed})
}

func (h *Handler) updateItem(w http.ResponseWriter, r *http.Request) {
	s, ok := current(w, r)
	if !ok {
		return
	}

	var req quantityRequest
	if err := h.decodeAndValidate(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.Cart.UpdateQuantity(chi.URLParam(r, "id"), req.Quantity); err != nil {
		handleDomainError(r.Context(), w, err)
		return
	}
	respondCart(w, r, s, http.StatusOK, discount.Input{Kind: discount.KindFixed})
}

func (h *Handler) removeItem(w http.ResponseWriter, r *http.Request) {
	s, ok := current(w, r)
	if !ok {
		return
	}
	if err := s.Cart.Remove(chi.URLParam(r, "id")); err != nil {
		handleDomainError(r.Context(), w, err)
		return
	}
	respondCart(w, r, s, http.StatusOK, discount.Input{Kind: discount.KindFixed})
}

func (h *Handler) clearCart(w http.ResponseWriter, r *http.Request) {
	s, ok := current(w, r)
	if !ok {
		return
	}
	s.Cart.Clear()
	respondCart(w, r, s, http.StatusOK, discount.Input{Kind: discount.KindFixed})
}
