// Package session gives each visitor their own catalog and cart.
package session

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.uber.org/zap"

	"github.com/xenking/kart-storefront/internal/domain/cart"
	"github.com/xenking/kart-storefront/internal/domain/catalog"
	"github.com/xenking/kart-storefront/internal/domain/product"
)

// Session owns the stores of one visitor.
type Session struct {
	ID      string
	Catalog *catalog.Store
	Cart    *cart.Store

	lastSeen time.Time // guarded by Manager.mu
}

// Config controls session lifetime.
type Config struct {
	IdleTTL       time.Duration
	SweepInterval time.Duration
	// CookieSecure marks the session cookie Secure.
	CookieSecure bool
	// CookieSameSite defaults to http.SameSiteLaxMode. A frontend on another
	// site needs http.SameSiteNoneMode, which browsers only accept together
	// with CookieSecure.
	CookieSameSite http.SameSite
}

// Manager creates, resolves and expires sessions. Sessions live in memory
// only.
type Manager struct {
	cfg    Config
	source product.Source
	inst   *catalog.Instruments

	active  metric.Int64UpDownCounter
	expired metric.Int64Counter

	now   func() time.Time
	newID func() string

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewManager creates a Manager whose sessions fetch products from source.
// A nil mp disables session metrics.
func NewManager(cfg Config, source product.Source, inst *catalog.Instruments, mp metric.MeterProvider) (*Manager, error) {
	if cfg.IdleTTL <= 0 {
		return nil, errors.Errorf("idle ttl must be positive, got %s", cfg.IdleTTL)
	}
	if cfg.CookieSameSite == http.SameSiteNoneMode && !cfg.CookieSecure {
		return nil, errors.New("SameSite=None session cookie must be Secure")
	}
	if cfg.CookieSameSite == http.SameSiteDefaultMode {
		cfg.CookieSameSite = http.SameSiteLaxMode
	}
	if mp == nil {
		mp = noop.NewMeterProvider()
	}
	meter := mp.Meter("github.com/xenking/kart-storefront/internal/session")

	active, err := meter.Int64UpDownCounter("sessions.active",
		metric.WithDescription("Number of live sessions"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "active sessions counter")
	}
	expired, err := meter.Int64Counter("sessions.expired",
		metric.WithDescription("Sessions evicted after idling"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "expired sessions counter")
	}

	return &Manager{
		cfg:      cfg,
		source:   source,
		inst:     inst,
		active:   active,
		expired:  expired,
		now:      time.Now,
		newID:    func() string { return uuid.New().String() },
		sessions: make(map[string]*Session),
	}, nil
}

// Create starts a new session with an idle catalog and an empty cart.
func (m *Manager) Create(ctx context.Context) *Session {
	s := &Session{
		ID:      m.newID(),
		Catalog: catalog.NewStore(m.source, m.inst),
		Cart:    cart.NewStore(),
	}

	m.mu.Lock()
	s.lastSeen = m.now()
	m.sessions[s.ID] = s
	m.mu.Unlock()

	m.active.Add(ctx, 1)
	return s
}

// Get returns the live session with id and marks it as seen. Expired
// sessions are removed and reported as missing.
func (m *Manager) Get(ctx context.Context, id string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok {
		return nil, false
	}
	now := m.now()
	if m.idle(s, now) {
		m.evict(ctx, s.ID)
		return nil, false
	}
	s.lastSeen = now
	return s, true
}

// Len returns the number of tracked sessions, including expired ones not yet
// swept.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Sweep removes every session idle at now and returns how many it removed.
func (m *Manager) Sweep(ctx context.Context, now time.Time) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	var n int
	for id, s := range m.sessions {
		if m.idle(s, now) {
			m.evict(ctx, id)
			n++
		}
	}
	return n
}

// Run sweeps idle sessions every SweepInterval until ctx is done.
func (m *Manager) Run(ctx context.Context) error {
	interval := m.cfg.SweepInterval
	if interval <= 0 {
		interval = m.cfg.IdleTTL
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	lg := zctx.From(ctx)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if n := m.Sweep(ctx, m.now()); n > 0 {
				lg.Debug("Swept idle sessions", zap.Int("count", n))
			}
		}
	}
}

func (m *Manager) idle(s *Session, now time.Time) bool {
	return now.Sub(s.lastSeen) > m.cfg.IdleTTL
}

// evict must be called with m.mu held.
func (m *Manager) evict(ctx context.Context, id string) {
	delete(m.sessions, id)
	m.active.Add(ctx, -1)
	m.expired.Add(ctx, 1)
}
