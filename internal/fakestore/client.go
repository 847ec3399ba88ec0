// Package fakestore implements product.Source over the Fake Store HTTP API.
package fakestore

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/xenking/kart-storefront/internal/domain/product"
)

// DefaultBaseURL is the public Fake Store API.
const DefaultBaseURL = "https://fakestoreapi.com"

// TotalPagesHeader optionally carries the page count of a listing.
const TotalPagesHeader = "X-Total-Pages"

var _ product.Source = (*Client)(nil)

// StatusError is returned when the API answers with a non-2xx status.
type StatusError struct {
	Code   int
	Status string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status: %s", e.Status)
}

// Config holds the client settings.
type Config struct {
	BaseURL  string
	PageSize int
	// ImageBaseURL is prepended to relative image paths. Absolute URLs are
	// left untouched.
	ImageBaseURL string
	// Timeout bounds a single request. Zero means no timeout.
	Timeout time.Duration
}

// Option configures a Client.
type Option func(*options)

type options struct {
	transport http.RoundTripper
	tp        trace.TracerProvider
	mp        metric.MeterProvider
}

// WithTransport sets the base transport. Defaults to http.DefaultTransport.
func WithTransport(rt http.RoundTripper) Option {
	return func(o *options) { o.transport = rt }
}

// WithTracerProvider sets the tracer provider for outgoing requests.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *options) { o.tp = tp }
}

// WithMeterProvider sets the meter provider for outgoing requests.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(o *options) { o.mp = mp }
}

// Client fetches product pages from the Fake Store API.
type Client struct {
	http         *http.Client
	base         *url.URL
	pageSize     int
	imageBaseURL string
}

// New creates a Client.
func New(cfg Config, opts ...Option) (*Client, error) {
	o := options{transport: http.DefaultTransport}
	for _, opt := range opts {
		opt(&o)
	}

	raw := cfg.BaseURL
	if raw == "" {
		raw = DefaultBaseURL
	}
	base, err := url.Parse(strings.TrimSuffix(raw, "/"))
	if err != nil {
		return nil, errors.Wrap(err, "parse base url")
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, errors.Errorf("base url %q must be absolute", raw)
	}
	if cfg.PageSize < 1 {
		return nil, errors.Errorf("page size must be positive, got %d", cfg.PageSize)
	}

	var otelOpts []otelhttp.Option
	if o.tp != nil {
		otelOpts = append(otelOpts, otelhttp.WithTracerProvider(o.tp))
	}
	if o.mp != nil {
		otelOpts = append(otelOpts, otelhttp.WithMeterProvider(o.mp))
	}

	return &Client{
		http: &http.Client{
			Transport: otelhttp.NewTransport(o.transport, otelOpts...),
			Timeout:   cfg.Timeout,
		},
		base:         base,
		pageSize:     cfg.PageSize,
		imageBaseURL: cfg.ImageBaseURL,
	}, nil
}

func (c *Client) productsURL(limit, page int) string {
	u := *c.base
	u.Path += "/products"
	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))
	q.Set("page", strconv.Itoa(page))
	u.RawQuery = q.Encode()
	return u.String()
}

// FetchPage requests one page of products. TotalPages is zero when the
// response carries no pagination metadata.
func (c *Client) FetchPage(ctx context.Context, page int) (*product.Page, error) {
	resp, err := c.get(ctx, c.productsURL(c.pageSize, page))
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "read body")
	}

	res, err := decodePage(body)
	if err != nil {
		return nil, errors.Wrap(err, "decode products")
	}
	if res.TotalPages == 0 {
		if v := resp.Header.Get(TotalPagesHeader); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return nil, errors.Wrapf(err, "parse %s", TotalPagesHeader)
			}
			res.TotalPages = n
		}
	}
	for i := range res.Products {
		res.Products[i].Image = c.imageURL(res.Products[i].Image)
	}
	return res, nil
}

// Ping checks that the API answers a minimal listing.
func (c *Client) Ping(ctx context.Context) error {
	resp, err := c.get(ctx, c.productsURL(1, 1))
	if err != nil {
		return err
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.Body.Close()
}

func (c *Client) get(ctx context.Context, u string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, http.NoBody)
	if err != nil {
		return nil, errors.Wrap(err, "create request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "send request")
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
		return nil, &StatusError{Code: resp.StatusCode, Status: resp.Status}
	}
	return resp, nil
}

func (c *Client) imageURL(p string) string {
	if c.imageBaseURL == "" || p == "" {
		return p
	}
	if u, err := url.Parse(p); err == nil && u.IsAbs() {
		return p
	}
	return strings.TrimSuffix(c.imageBaseURL, "/") + "/" + strings.TrimPrefix(p, "/")
}
