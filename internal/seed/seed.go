// Package seed provides an embedded product catalog for offline runs.
package seed

import (
	"context"
	_ "embed"
	"slices"

	"github.com/go-faster/errors"

	"github.com/xenking/kart-storefront/internal/domain/product"
	"github.com/xenking/kart-storefront/internal/fakestore"
)

//go:embed products.json
var productsJSON []byte

var _ product.Source = (*Source)(nil)

// Source serves pages of a fixed product list.
type Source struct {
	products []product.Product
	pageSize int
}

// New returns a Source over the embedded catalog.
func New(pageSize int) (*Source, error) {
	page, err := fakestore.Decode(productsJSON)
	if err != nil {
		return nil, errors.Wrap(err, "decode embedded products")
	}
	return NewFrom(page.Products, pageSize)
}

// NewFrom returns a Source over products.
func NewFrom(products []product.Product, pageSize int) (*Source, error) {
	if pageSize < 1 {
		return nil, errors.Errorf("page size must be positive, got %d", pageSize)
	}
	return &Source{
		products: slices.Clone(products),
		pageSize: pageSize,
	}, nil
}

// TotalPages is the number of pages the catalog spans, at least 1.
func (s *Source) TotalPages() int {
	return max(1, (len(s.products)+s.pageSize-1)/s.pageSize)
}

// FetchPage returns page of the catalog. A page past the end is empty.
func (s *Source) FetchPage(ctx context.Context, page int) (*product.Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if page < 1 {
		return nil, errors.Errorf("invalid page %d", page)
	}

	start := min((page-1)*s.pageSize, len(s.products))
	end := min(start+s.pageSize, len(s.products))
	return &product.Page{
		Products:   slices.Clone(s.products[start:end]),
		TotalPages: s.TotalPages(),
	}, nil
}
