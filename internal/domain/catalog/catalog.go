// Package catalog holds the per-session product listing state: the fetched
// page of products, its load status, pagination, and the search query.
package catalog

import (
	"slices"
	"strings"

	"github.com/go-faster/errors"

	"github.com/xenking/kart-storefront/internal/domain/product"
)

// Status is the lifecycle stage of the most recent catalog fetch.
type Status string

const (
	StatusIdle      Status = "idle"
	StatusLoading   Status = "loading"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// FallbackTotalPages is used when the product source does not report how
// many pages it has.
const FallbackTotalPages = 5

var (
	// ErrPageOutOfRange is returned by SetPage when the requested page is
	// outside [1, TotalPages]. The current page is left unchanged.
	ErrPageOutOfRange = errors.New("page out of range")
	// ErrStaleFetch is returned by FetchPage when a newer fetch was issued
	// while this one was in flight. Its result is discarded.
	ErrStaleFetch = errors.New("fetch superseded by a newer request")
	// ErrNoPage is recorded when a source reports success without a page.
	ErrNoPage = errors.New("product source returned no page")
)

// State is a point-in-time copy of the catalog.
type State struct {
	Items       []product.Product
	Status      Status
	Error       string
	CurrentPage int
	TotalPages  int
	SearchQuery string
}

// Visible returns the items matching the search query.
func (s State) Visible() []product.Product {
	return Filter(s.Items, s.SearchQuery)
}

// Filter returns the products whose title contains query, ignoring case.
// An empty query matches every product.
func Filter(items []product.Product, query string) []product.Product {
	if query == "" {
		return slices.Clone(items)
	}
	q := strings.ToLower(query)
	out := make([]product.Product, 0, len(items))
	for _, p := range items {
		if strings.Contains(strings.ToLower(p.Title), q) {
			out = append(out, p)
		}
	}
	return out
}

func initialState() State {
	return State{
		Status:      StatusIdle,
		CurrentPage: 1,
		TotalPages:  1,
	}
}
