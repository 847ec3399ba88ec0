package fakestore

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const arrayBody = `[
	{"id": 1, "title": "Backpack", "price": 109.95, "description": "d", "category": "bags",
	 "image": "https://img.example.com/1.jpg", "rating": {"rate": 3.9, "count": 120}},
	{"id": 2, "title": "T-Shirt", "price": 22.3, "description": "d", "category": "tops", "image": "/2.jpg"}
]`

func newTestServer(t *testing.T, h http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return srv
}

func newTestClient(t *testing.T, base string, cfg Config) *Client {
	t.Helper()
	cfg.BaseURL = base
	if cfg.PageSize == 0 {
		cfg.PageSize = 8
	}
	c, err := New(cfg)
	require.NoError(t, err)
	return c
}

func TestFetchPage_Array(t *testing.T) {
	var gotQuery string
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/products", r.URL.Path)
		gotQuery = r.URL.RawQuery
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(arrayBody))
	})

	c := newTestClient(t, srv.URL, Config{ImageBaseURL: "https://cdn.example.com/"})
	page, err := c.FetchPage(context.Background(), 2)
	require.NoError(t, err)

	assert.Equal(t, "limit=8&page=2", gotQuery)
	assert.Zero(t, page.TotalPages, "array carries no pagination metadata")
	require.Len(t, page.Products, 2)

	p := page.Products[0]
	assert.Equal(t, "1", p.ID)
	assert.Equal(t, "Backpack", p.Title)
	assert.Equal(t, "bags", p.Category)
	assert.True(t, decimal.RequireFromString("109.95").Equal(p.Price))
	assert.Equal(t, "https://img.example.com/1.jpg", p.Image, "absolute url kept")
	assert.Equal(t, "https://cdn.example.com/2.jpg", page.Products[1].Image, "relative path prefixed")
}

func TestFetchPage_Envelope(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"totalPages": 7, "products": [{"id": "abc", "title": "A", "price": "1.50"}], "extra": null}`))
	})

	page, err := newTestClient(t, srv.URL, Config{}).FetchPage(context.Background(), 1)
	require.NoError(t, err)

	assert.Equal(t, 7, page.TotalPages)
	require.Len(t, page.Products, 1)
	assert.Equal(t, "abc", page.Products[0].ID)
	assert.True(t, decimal.RequireFromString("1.5").Equal(page.Products[0].Price))
}

func TestFetchPage_TotalPagesHeader(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set(TotalPagesHeader, "3")
		_, _ = w.Write([]byte(`[]`))
	})

	page, err := newTestClient(t, srv.URL, Config{}).FetchPage(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 3, page.TotalPages)
	assert.NotNil(t, page.Products)
	assert.Empty(t, page.Products)
}

func TestFetchPage_StatusError(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	_, err := newTestClient(t, srv.URL, Config{}).FetchPage(context.Background(), 1)
	require.Error(t, err)

	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusServiceUnavailable, se.Code)
	assert.Contains(t, err.Error(), "503 Service Unavailable")
}

func TestFetchPage_Malformed(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "truncated", body: `[{"id": 1,`},
		{name: "scalar", body: `"nope"`},
		{name: "missing id", body: `[{"title": "A", "price": 1}]`},
		{name: "missing price", body: `[{"id": 1, "title": "A"}]`},
		{name: "negative price", body: `[{"id": 1, "price": -1}]`},
		{name: "fractional id", body: `[{"id": 1.5, "price": 1}]`},
		{name: "bad total pages", body: `{"products": [], "totalPages": "x"}`},
		{name: "trailing text", body: `[{"id": 1, "title": "a", "price": 1}] not json`},
		{name: "trailing brackets", body: `[{"id": 1, "title": "a", "price": 1}]]]]`},
		{name: "trailing object", body: `{"products": [{"id": 1, "title": "a", "price": 1}]} {`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(tt.body))
			})

			_, err := newTestClient(t, srv.URL, Config{}).FetchPage(context.Background(), 1)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "decode products")
		})
	}
}

func TestFetchPage_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	defer close(release)

	c := newTestClient(t, srv.URL, Config{Timeout: 50 * time.Millisecond})
	_, err := c.FetchPage(context.Background(), 1)
	require.Error(t, err)
}

func TestPing(t *testing.T) {
	var down atomic.Bool
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "limit=1&page=1", r.URL.RawQuery)
		if down.Load() {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(`[]`))
	})
	c := newTestClient(t, srv.URL, Config{})

	require.NoError(t, c.Ping(context.Background()))

	down.Store(true)
	require.Error(t, c.Ping(context.Background()))
}

func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{name: "relative base", cfg: Config{BaseURL: "fakestore", PageSize: 8}},
		{name: "zero page size", cfg: Config{BaseURL: "https://example.com"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.cfg)
			require.Error(t, err)
		})
	}
}

func TestNew_DefaultBaseURL(t *testing.T) {
	c, err := New(Config{PageSize: 8})
	require.NoError(t, err)
	assert.Equal(t, DefaultBaseURL+"/products?limit=8&page=1", c.productsURL(8, 1))
}
