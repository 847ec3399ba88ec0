package catalog

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/go-faster/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/xenking/kart-storefront/internal/domain/product"
)

// Store owns one catalog State. It is safe for concurrent use; the product
// source is called without holding the lock.
type Store struct {
	source product.Source
	inst   *Instruments

	mu    sync.Mutex
	state State
	seq   uint64 // id of the most recently issued fetch
}

// NewStore creates an idle Store backed by source. A nil inst disables
// telemetry.
func NewStore(source product.Source, inst *Instruments) *Store {
	if inst == nil {
		inst = NoopInstruments()
	}
	return &Store{
		source: source,
		inst:   inst,
		state:  initialState(),
	}
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.state
	st.Items = slices.Clone(s.state.Items)
	return st
}

// Lookup returns the product with the given id from the current items.
func (s *Store) Lookup(id string) (product.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range s.state.Items {
		if p.ID == id {
			return p, nil
		}
	}
	return product.Product{}, product.ErrNotFound
}

// SetPage moves to page when 1 <= page <= TotalPages. It does not fetch.
func (s *Store) SetPage(page int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if page < 1 || page > s.state.TotalPages {
		return ErrPageOutOfRange
	}
	s.state.CurrentPage = page
	return nil
}

// SetSearchQuery stores the raw query. Filtering happens on read.
func (s *Store) SetSearchQuery(query string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state.SearchQuery = query
}

// FetchPage loads page from the source. Status becomes loading before the
// request is issued. On success the items are replaced; on failure the
// status is failed, the source's error text is recorded as is (wrapping
// included) and the previous items stay. A nil page counts as a failure.
//
// Only the most recently issued fetch is applied: if another FetchPage call
// starts while this one is in flight, this result is dropped and
// ErrStaleFetch is returned.
func (s *Store) FetchPage(ctx context.Context, page int) error {
	s.mu.Lock()
	s.seq++
	seq := s.seq
	s.state.Status = StatusLoading
	s.mu.Unlock()

	ctx, span := s.inst.tracer.Start(ctx, "catalog.FetchPage",
		trace.WithAttributes(attribute.Int("catalog.page", page)),
	)
	defer span.End()

	start := time.Now()
	res, err := s.source.FetchPage(ctx, page)
	elapsed := time.Since(start)
	if err == nil && res == nil {
		err = ErrNoPage
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if seq != s.seq {
		s.inst.record(ctx, outcomeStale, elapsed)
		span.SetAttributes(attribute.Bool("catalog.stale", true))
		return ErrStaleFetch
	}

	if err != nil {
		s.state.Status = StatusFailed
		s.state.Error = err.Error()
		s.inst.record(ctx, outcomeFailed, elapsed)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return errors.Wrapf(err, "fetch page %d", page)
	}

	total := res.TotalPages
	if total < 1 {
		total = FallbackTotalPages
	}
	s.state.Items = res.Products
	s.state.Status = StatusSucceeded
	s.state.Error = ""
	s.state.TotalPages = total
	if s.state.CurrentPage > total {
		s.state.CurrentPage = total
	}
	s.inst.record(ctx, outcomeSucceeded, elapsed)
	span.SetAttributes(attribute.Int("catalog.items", len(res.Products)))
	return nil
}

const (
	outcomeSucceeded = "succeeded"
	outcomeFailed    = "failed"
	outcomeStale     = "stale"
)

func (i *Instruments) record(ctx context.Context, outcome string, elapsed time.Duration) {
	attrs := metric.WithAttributes(attribute.String("outcome", outcome))
	i.fetches.Add(ctx, 1, attrs)
	i.duration.Record(ctx, elapsed.Seconds(), attrs)
}
