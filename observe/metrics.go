// Package observe provides the OpenTelemetry metric instruments of the pitch
// tracker and the Prometheus bridge that exposes them on /metrics.
//
// Tests should build a [Metrics] with [NewMetrics] and their own
// [metric.MeterProvider]; [DefaultMetrics] binds to the global provider.
package observe

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all metrics.
const meterName = "github.com/RyanBlaney/sonido-pitch"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use.
type Metrics struct {
	// FramesProcessed counts analysed frames. Use with attribute:
	//   attribute.Bool("voiced", ...)
	FramesProcessed metric.Int64Counter

	// FrameDuration tracks per-frame processing time.
	FrameDuration metric.Float64Histogram

	// CalibrationsCompleted counts sessions whose range was learned.
	CalibrationsCompleted metric.Int64Counter

	// ActiveSessions tracks the number of recording sessions.
	ActiveSessions metric.Int64UpDownCounter

	// FeedClients tracks the number of connected feed subscribers.
	FeedClients metric.Int64UpDownCounter

	// SnapshotsDropped counts snapshots skipped for slow feed subscribers.
	SnapshotsDropped metric.Int64Counter

	// HTTPRequestDuration tracks HTTP request processing time. Use with attributes:
	//   attribute.String("method", ...), attribute.String("path", ...)
	HTTPRequestDuration metric.Float64Histogram
}

// frameBuckets are histogram boundaries (in seconds) around the frame period
// of a 2048-sample frame at 44.1 kHz.
var frameBuckets = []float64{
	0.0001, 0.00025, 0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider].
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.FramesProcessed, err = m.Int64Counter("sonido.pitch.frames",
		metric.WithDescription("Total analysed frames by voicing."),
	); err != nil {
		return nil, err
	}
	if met.FrameDuration, err = m.Float64Histogram("sonido.pitch.frame.duration",
		metric.WithDescription("Per-frame processing latency."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(frameBuckets...),
	); err != nil {
		return nil, err
	}
	if met.CalibrationsCompleted, err = m.Int64Counter("sonido.pitch.calibrations",
		metric.WithDescription("Total completed range calibrations."),
	); err != nil {
		return nil, err
	}
	if met.ActiveSessions, err = m.Int64UpDownCounter("sonido.pitch.active_sessions",
		metric.WithDescription("Number of recording sessions."),
	); err != nil {
		return nil, err
	}
	if met.FeedClients, err = m.Int64UpDownCounter("sonido.feed.clients",
		metric.WithDescription("Number of connected feed subscribers."),
	); err != nil {
		return nil, err
	}
	if met.SnapshotsDropped, err = m.Int64Counter("sonido.feed.dropped",
		metric.WithDescription("Snapshots skipped for slow subscribers."),
	); err != nil {
		return nil, err
	}
	if met.HTTPRequestDuration, err = m.Float64Histogram("sonido.http.request.duration",
		metric.WithDescription("HTTP request latency by method and path."),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	return met, nil
}

var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance, creating it on
// first call using [otel.GetMeterProvider].
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

// RecordFrame records one processed frame and how long it took.
func (m *Metrics) RecordFrame(ctx context.Context, voiced bool, took time.Duration) {
	m.FramesProcessed.Add(ctx, 1, metric.WithAttributes(attribute.Bool("voiced", voiced)))
	m.FrameDuration.Record(ctx, took.Seconds())
}

// RecordCalibration records a completed calibration.
func (m *Metrics) RecordCalibration(ctx context.Context) {
	m.CalibrationsCompleted.Add(ctx, 1)
}

// SessionStarted increments the active session gauge.
func (m *Metrics) SessionStarted(ctx context.Context) {
	m.ActiveSessions.Add(ctx, 1)
}

// SessionEnded decrements the active session gauge.
func (m *Metrics) SessionEnded(ctx context.Context) {
	m.ActiveSessions.Add(ctx, -1)
}
