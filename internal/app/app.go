package app

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/kart-storefront/internal/domain/catalog"
	"github.com/xenking/kart-storefront/internal/domain/checkout"
	"github.com/xenking/kart-storefront/internal/domain/product"
	"github.com/xenking/kart-storefront/internal/fakestore"
	"github.com/xenking/kart-storefront/internal/handler"
	"github.com/xenking/kart-storefront/internal/seed"
	"github.com/xenking/kart-storefront/internal/session"
	"github.com/xenking/kart-storefront/pkg/health"
	"github.com/xenking/kart-storefront/pkg/httpmiddleware"
)

const serviceName = "kart-storefront"

// Storefront is the wired application: sessions, health and the HTTP
// handler serving both.
type Storefront struct {
	Sessions *session.Manager
	Health   *health.Health
	Handler  http.Handler
}

// New wires every dependency described by cfg without starting anything.
func New(ctx context.Context, m httpmiddleware.TelemetryProvider, cfg *Config) (*Storefront, error) {
	source, err := newSource(cfg.Catalog, m)
	if err != nil {
		return nil, errors.Wrap(err, "create product source")
	}

	inst, err := catalog.NewInstruments(m.TracerProvider(), m.MeterProvider())
	if err != nil {
		return nil, errors.Wrap(err, "create catalog instruments")
	}
	sessions, err := session.NewManager(session.Config{
		IdleTTL:        cfg.Session.IdleTTL,
		SweepInterval:  cfg.Session.SweepInterval,
		CookieSecure:   cfg.Session.CookieSecure,
		CookieSameSite: cfg.Session.sameSite(),
	}, source, inst, m.MeterProvider())
	if err != nil {
		return nil, errors.Wrap(err, "create session manager")
	}

	healthSvc := health.New()
	healthSvc.AddLivenessCheck("goroutines", time.Second, health.GoroutineCountCheck(10000))
	healthSvc.AddLivenessCheck("gc", time.Second, health.GCMaxPauseCheck(time.Second))
	if p, ok := source.(health.Pinger); ok {
		healthSvc.AddReadinessCheck("catalog", 5*time.Second, health.PingCheck(p))
	}

	api := handler.New(checkout.NewService()).Router(sessions.Middleware())
	api.Get("/livez", healthSvc.LiveEndpoint)
	api.Get("/readyz", healthSvc.ReadyEndpoint)

	routeFinder := httpmiddleware.MakeRouteFinder(api)
	h := httpmiddleware.Wrap(api,
		httpmiddleware.Recovery(),
		httpmiddleware.CORS(httpmiddleware.CORSConfig{
			Origins: cfg.CORS.Origins,
			Headers: []string{"Content-Type", httpmiddleware.RequestIDHeader},
			Expose: []string{
				httpmiddleware.RequestIDHeader,
				"X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset", "Retry-After",
			},
			MaxAge: 24 * time.Hour,
		}),
		httpmiddleware.RateLimitWithCleanup(ctx, httpmiddleware.RateLimitConfig{
			Max:    cfg.RateLimit.Max,
			Window: cfg.RateLimit.Window,
		}),
		httpmiddleware.RequestID(),
		httpmiddleware.InjectLogger(zctx.From(ctx)),
		httpmiddleware.Instrument(serviceName, routeFinder, m),
		httpmiddleware.LogRequests(routeFinder),
		httpmiddleware.Labeler(routeFinder),
	)

	return &Storefront{
		Sessions: sessions,
		Health:   healthSvc,
		Handler:  h,
	}, nil
}

func newSource(cfg CatalogConfig, m httpmiddleware.TelemetryProvider) (product.Source, error) {
	switch cfg.Source {
	case SourceSeed:
		src, err := seed.New(cfg.PageSize)
		if err != nil {
			return nil, err
		}
		return src, nil
	case SourceFakeStore:
		client, err := fakestore.New(fakestore.Config{
			BaseURL:      cfg.BaseURL,
			PageSize:     cfg.PageSize,
			ImageBaseURL: cfg.ImageBaseURL,
			Timeout:      cfg.Timeout,
		},
			fakestore.WithTracerProvider(m.TracerProvider()),
			fakestore.WithMeterProvider(m.MeterProvider()),
		)
		if err != nil {
			return nil, err
		}
		return client, nil
	default:
		return nil, errors.Errorf("unknown catalog source %q", cfg.Source)
	}
}

// Run creates all dependencies, starts the HTTP server, and handles graceful
// shutdown. It is the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, m httpmiddleware.TelemetryProvider, cfg *Config) error {
	lg.Info("Initializing",
		zap.String("addr", cfg.Addr),
		zap.String("catalog_source", cfg.Catalog.Source),
	)
	ctx = zctx.Base(ctx, lg)

	sf, err := New(ctx, m, cfg)
	if err != nil {
		return err
	}

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      cfg.Catalog.Timeout + 10*time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler:           sf.Handler,
		// Requests inherit the logger; Shutdown ends them, not ctx.
		BaseContext: func(net.Listener) context.Context {
			return context.WithoutCancel(ctx)
		},
	}

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return sf.Sessions.Run(gCtx)
	})
	g.Go(func() error {
		return sf.Health.Run(gCtx, 10*time.Second)
	})
	g.Go(func() error {
		sf.Health.SetReady(true)
		lg.Info("Server listening", zap.String("addr", cfg.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "server")
		}
		return nil
	})
	// Graceful shutdown: wait for cancellation, drain, then stop.
	g.Go(func() error {
		<-gCtx.Done()
		sf.Health.SetReady(false)
		lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.Graceful.ReadinessDelay))
		time.Sleep(cfg.Graceful.ReadinessDelay)

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.Graceful.ShutdownTimeout)
		defer cancel()

		lg.Info("Shutting down server", zap.Duration("timeout", cfg.Graceful.ShutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			return errors.Wrap(err, "shutdown")
		}
		return nil
	})

	return g.Wait()
}
