package product

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested product is not in the catalog.
var ErrNotFound = errors.New("product not found")

// Product is an item fetched from the product source. Values are immutable
// once fetched; the cart keeps its own copy.
type Product struct {
	ID          string
	Title       string
	Description string
	Price       decimal.Decimal
	Image       string
	Category    string
}

// Page is a single page of products returned by a Source.
type Page struct {
	Products []Product
	// TotalPages is the page count reported by the source, or 0 when the
	// source did not report pagination metadata.
	TotalPages int
}

// Source fetches pages of products from an external catalog.
type Source interface {
	FetchPage(ctx context.Context, page int) (*Page, error)
}
