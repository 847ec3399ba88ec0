package handler

import (
	"context"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/kart-storefront/internal/domain/cart"
	"github.com/xenking/kart-storefront/internal/domain/catalog"
	"github.com/xenking/kart-storefront/internal/domain/checkout"
	"github.com/xenking/kart-storefront/internal/domain/discount"
	"github.com/xenking/kart-storefront/internal/domain/product"
)

// handleDomainError maps domain errors to HTTP responses. Unknown errors are
// logged and answered with 500.
func handleDomainError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, product.ErrNotFound),
		errors.Is(err, cart.ErrEntryNotFound):
		respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, cart.ErrInvalidQuantity),
		errors.Is(err, catalog.ErrPageOutOfRange),
		errors.Is(err, checkout.ErrEmptyCart),
		errors.Is(err, discount.ErrUnsupportedKind):
		respondError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, catalog.ErrStaleFetch):
		respondError(w, http.StatusConflict, err.Error())
	default:
		zctx.From(ctx).Error("Request failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
	}
}
