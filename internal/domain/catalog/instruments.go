package catalog

import (
	"github.com/go-faster/errors"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

const instrumentationName = "github.com/xenking/kart-storefront/internal/domain/catalog"

// Instruments holds the tracer and metric instruments shared by every Store.
// Create it once per process.
type Instruments struct {
	tracer   trace.Tracer
	fetches  metric.Int64Counter
	duration metric.Float64Histogram
}

// NewInstruments registers the catalog fetch counter and duration histogram.
func NewInstruments(tp trace.TracerProvider, mp metric.MeterProvider) (*Instruments, error) {
	meter := mp.Meter(instrumentationName)

	fetches, err := meter.Int64Counter("catalog.fetches",
		metric.WithDescription("Catalog page fetches by outcome"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "fetches counter")
	}
	duration, err := meter.Float64Histogram("catalog.fetch.duration",
		metric.WithDescription("Catalog page fetch duration"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "fetch duration histogram")
	}

	return &Instruments{
		tracer:   tp.Tracer(instrumentationName),
		fetches:  fetches,
		duration: duration,
	}, nil
}

// NoopInstruments returns instruments that record nothing.
func NoopInstruments() *Instruments {
	inst, err := NewInstruments(tracenoop.NewTracerProvider(), metricnoop.NewMeterProvider())
	if err != nil {
		// noop providers never fail.
		panic(err)
	}
	return inst
}
