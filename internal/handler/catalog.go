package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/kart-storefront/internal/domain/catalog"
	"github.com/xenking/kart-storefront/internal/session"
)

func (h *Handler) getCatalog(w http.ResponseWriter, r *http.Request) {
	s, ok := current(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, catalogResponse(s.Catalog.Snapshot()))
}

func (h *Handler) fetchCatalog(w http.ResponseWriter, r *http.Request) {
	s, ok := current(w, r)
	if !ok {
		return
	}
	h.fetchAndRespond(w, r, s, s.Catalog.Snapshot().CurrentPage)
}

func (h *Handler) setPage(w http.ResponseWriter, r *http.Request) {
	s, ok := current(w, r)
	if !ok {
		return
	}

	var req pageRequest
	if err := h.decodeAndValidate(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.Catalog.SetPage(req.Page); err != nil {
		handleDomainError(r.Context(), w, err)
		return
	}
	h.fetchAndRespond(w, r, s, req.Page)
}

func (h *Handler) setSearch(w http.ResponseWriter, r *http.Request) {
	s, ok := current(w, r)
	if !ok {
		return
	}

	var req searchRequest
	if err := h.decodeAndValidate(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.Catalog.SetSearchQuery(req.Query)
	// Page 1 always exists.
	if err := s.Catalog.SetPage(1); err != nil {
		handleDomainError(r.Context(), w, err)
		return
	}
	h.fetchAndRespond(w, r, s, 1)
}

// fetchAndRespond loads page and answers with the resulting catalog. A
// failed fetch is part of the catalog state, not an HTTP error.
func (h *Handler) fetchAndRespond(w http.ResponseWriter, r *http.Request, s *session.Session, page int) {
	ctx := r.Context()
	if err := s.Catalog.FetchPage(ctx, page); err != nil {
		if errors.Is(err, catalog.ErrStaleFetch) {
			handleDomainError(ctx, w, err)
			return
		}
		zctx.From(ctx).Warn("Catalog fetch failed", zap.Int("page", page), zap.Error(err))
	}
	writeJSON(w, http.StatusOK, catalogResponse(s.Catalog.Snapshot()))
}
