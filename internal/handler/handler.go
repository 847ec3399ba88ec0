// Package handler exposes the per-session catalog and cart as a JSON API.
package handler

import (
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/xenking/kart-storefront/internal/domain/checkout"
	"github.com/xenking/kart-storefront/internal/session"
)

// maxBodyBytes bounds request bodies; every request payload is a small object.
const maxBodyBytes = 1 << 16

// Handler serves the storefront API. The catalog and cart it operates on
// come from the session resolved by session.Manager.Middleware.
type Handler struct {
	checkout *checkout.Service
	validate *validator.Validate
}

// New creates a Handler.
func New(checkoutSvc *checkout.Service) *Handler {
	v := validator.New()
	v.RegisterCustomTypeFunc(func(field reflect.Value) any {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			return d.InexactFloat64()
		}
		return nil
	}, decimal.Decimal{})

	return &Handler{
		checkout: checkoutSvc,
		validate: v,
	}
}

// Routes registers the API endpoints on r. Session resolution must already
// be installed on r.
func (h *Handler) Routes(r chi.Router) {
	r.Route("/catalog", func(r chi.Router) {
		r.Get("/", h.getCatalog)
		r.Post("/fetch", h.fetchCatalog)
		r.Put("/page", h.setPage)
		r.Put("/search", h.setSearch)
	})
	r.Route("/cart", func(r chi.Router) {
		r.Get("/", h.getCart)
		r.Delete("/", h.clearCart)
		r.Post("/items", h.addItem)
		r.Patch("/items/{id}", h.updateItem)
		r.Delete("/items/{id}", h.removeItem)
	})
	r.Post("/checkout", h.placeCheckout)
}

// Router returns a router serving the API under /api with sessions resolved
// by sessionMW.
func (h *Handler) Router(sessionMW func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		respondError(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		respondError(w, http.StatusMethodNotAllowed, "method not allowed")
	})
	r.Route("/api", func(r chi.Router) {
		r.Use(sessionMW)
		h.Routes(r)
	})
	return r
}

// current returns the caller's session, answering 500 when none was
// resolved.
func current(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	s, ok := session.FromContext(r.Context())
	if !ok {
		respondError(w, http.StatusInternalServerError, "session unavailable")
	}
	return s, ok
}

var errEmptyBody = errors.New("request body is empty")

// decodeAndValidate reads a JSON object into dst and validates its tags.
func (h *Handler) decodeAndValidate(w http.ResponseWriter, r *http.Request, dst interface {
	Decode(d *jx.Decoder) error
}) error {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return errors.Wrap(err, "read body")
	}
	if len(body) == 0 {
		return errEmptyBody
	}
	if err := dst.Decode(jx.DecodeBytes(body)); err != nil {
		return errors.Wrap(err, "decode")
	}
	return h.validateStruct(dst)
}

func (h *Handler) validateStruct(v any) error {
	err := h.validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msg := lowerFirst(fe.Field()) + " failed " + fe.Tag()
		if p := fe.Param(); p != "" {
			msg += "=" + p
		}
		msgs = append(msgs, msg)
	}
	return errors.New(strings.Join(msgs, "; "))
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}

func writeJSON(w http.ResponseWriter, status int, v encoder) {
	e := jx.GetEncoder()
	defer jx.PutEncoder(e)
	v.Encode(e)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(e.Bytes())
}

func respondError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Code: status, Message: msg})
}
