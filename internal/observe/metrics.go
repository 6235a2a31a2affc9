// Package observe provides application-wide observability primitives for
// versecap: OpenTelemetry metrics, distributed tracing, structured logging,
// and HTTP middleware that ties them together.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A Prometheus
// exporter bridge is set up by [InitProvider] so that metrics can be scraped
// via the standard /metrics endpoint. A package-level default [Metrics]
// instance ([DefaultMetrics]) is provided for convenience; tests should use
// [NewMetrics] with a custom [metric.MeterProvider] to avoid cross-test
// pollution.
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all versecap metrics.
const meterName = "github.com/MrWong99/versecap"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use.
type Metrics struct {
	// --- Caption pipeline ---

	// Segments counts caption segments processed. Use with attribute:
	//   attribute.Bool("final", ...)
	Segments metric.Int64Counter

	// Rewrites counts reference rewrites. Use with attribute:
	//   attribute.String("stage", ...) ("carry", "inline" or "numeric")
	Rewrites metric.Int64Counter

	// PendingSeeded counts finalized segments that left a partial reference
	// for the next segment. Use with attribute:
	//   attribute.String("state", ...)
	PendingSeeded metric.Int64Counter

	// PendingExpired counts carried partial references that were dropped.
	PendingExpired metric.Int64Counter

	// FormatDuration tracks the latency of canonicalizing one finalized
	// segment.
	FormatDuration metric.Float64Histogram

	// --- Gauges ---

	// ActiveStreams tracks the number of open live caption streams.
	ActiveStreams metric.Int64UpDownCounter

	// --- Archive ---

	// ArchiveErrors counts failed caption archive writes. Use with attribute:
	//   attribute.String("reason", ...)
	ArchiveErrors metric.Int64Counter

	// --- HTTP middleware ---

	// HTTPRequestDuration tracks HTTP request processing time. Use with attributes:
	//   attribute.String("method", ...), attribute.String("path", ...)
	HTTPRequestDuration metric.Float64Histogram
}

// formatBuckets defines histogram bucket boundaries (in seconds) for text
// canonicalization, which runs in microseconds to low milliseconds.
var formatBuckets = []float64{
	0.00005, 0.0001, 0.00025, 0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.1,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	// Counters.
	if met.Segments, err = m.Int64Counter("versecap.segments",
		metric.WithDescription("Caption segments processed by finality."),
	); err != nil {
		return nil, err
	}
	if met.Rewrites, err = m.Int64Counter("versecap.rewrites",
		metric.WithDescription("Scripture reference rewrites by stage."),
	); err != nil {
		return nil, err
	}
	if met.PendingSeeded, err = m.Int64Counter("versecap.pending.seeded",
		metric.WithDescription("Partial references carried to the next segment by state."),
	); err != nil {
		return nil, err
	}
	if met.PendingExpired, err = m.Int64Counter("versecap.pending.expired",
		metric.WithDescription("Carried partial references dropped without completion."),
	); err != nil {
		return nil, err
	}
	if met.ArchiveErrors, err = m.Int64Counter("versecap.archive.errors",
		metric.WithDescription("Failed caption archive writes by reason."),
	); err != nil {
		return nil, err
	}

	// Histograms.
	if met.FormatDuration, err = m.Float64Histogram("versecap.format.duration",
		metric.WithDescription("Latency of canonicalizing one finalized segment."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(formatBuckets...),
	); err != nil {
		return nil, err
	}

	// Gauges (UpDownCounters).
	if met.ActiveStreams, err = m.Int64UpDownCounter("versecap.active_streams",
		metric.WithDescription("Number of open live caption streams."),
	); err != nil {
		return nil, err
	}

	// HTTP middleware histogram.
	if met.HTTPRequestDuration, err = m.Float64Histogram("versecap.http.request.duration",
		metric.WithDescription("HTTP request latency by method and path."),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// defaultMetrics is the lazily-initialised package-level Metrics instance.
var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance, creating it on
// first call using [otel.GetMeterProvider]. Subsequent calls return the same
// pointer. Panics if instrument creation fails (should not happen with the
// global provider).
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// Attr is a convenience alias for [attribute.String] to reduce verbosity at
// call sites.
func Attr(key, value string) attribute.KeyValue {
	return attribute.String(key, value)
}

// RecordSegment records one processed segment.
func (m *Metrics) RecordSegment(ctx context.Context, final bool) {
	m.Segments.Add(ctx, 1, metric.WithAttributes(attribute.Bool("final", final)))
}

// RecordRewrite records one reference rewrite produced by stage.
func (m *Metrics) RecordRewrite(ctx context.Context, stage string) {
	m.Rewrites.Add(ctx, 1, metric.WithAttributes(attribute.String("stage", stage)))
}

// RecordPendingSeeded records a partial reference carried forward in state.
func (m *Metrics) RecordPendingSeeded(ctx context.Context, state string) {
	m.PendingSeeded.Add(ctx, 1, metric.WithAttributes(attribute.String("state", state)))
}

// RecordArchiveError records a failed archive write.
func (m *Metrics) RecordArchiveError(ctx context.Context, reason string) {
	m.ArchiveErrors.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
}
