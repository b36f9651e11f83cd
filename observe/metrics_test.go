package observe

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/RyanBlaney/sonido-pitch/logging"
)

// newTestMetrics returns a Metrics instance backed by a ManualReader for
// programmatic metric inspection.
func newTestMetrics(t *testing.T) (*Metrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	m, err := NewMetrics(mp)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	return m, reader
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	return rm
}

func findMetric(rm metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for _, sm := range rm.ScopeMetrics {
		for i := range sm.Metrics {
			if sm.Metrics[i].Name == name {
				return &sm.Metrics[i]
			}
		}
	}
	return nil
}

func TestRecordFrame(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordFrame(ctx, true, 300*time.Microsecond)
	m.RecordFrame(ctx, true, 200*time.Microsecond)
	m.RecordFrame(ctx, false, 100*time.Microsecond)

	rm := collect(t, reader)
	met := findMetric(rm, "sonido.pitch.frames")
	if met == nil {
		t.Fatal("frames metric not found")
	}
	sum, ok := met.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatal("frames metric is not a sum")
	}
	var voiced, unvoiced int64
	for _, dp := range sum.DataPoints {
		v, _ := dp.Attributes.Value("voiced")
		if v.AsBool() {
			voiced = dp.Value
		} else {
			unvoiced = dp.Value
		}
	}
	if voiced != 2 || unvoiced != 1 {
		t.Errorf("voiced=%d unvoiced=%d, want 2 and 1", voiced, unvoiced)
	}

	hist := findMetric(rm, "sonido.pitch.frame.duration")
	if hist == nil {
		t.Fatal("duration metric not found")
	}
	h, ok := hist.Data.(metricdata.Histogram[float64])
	if !ok || len(h.DataPoints) == 0 {
		t.Fatal("duration metric is not a populated histogram")
	}
	if h.DataPoints[0].Count != 3 {
		t.Errorf("sample count = %d, want 3", h.DataPoints[0].Count)
	}
}

func TestSessionGauge(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.SessionStarted(ctx)
	m.SessionStarted(ctx)
	m.SessionEnded(ctx)
	m.RecordCalibration(ctx)

	rm := collect(t, reader)
	met := findMetric(rm, "sonido.pitch.active_sessions")
	if met == nil {
		t.Fatal("sessions metric not found")
	}
	sum := met.Data.(metricdata.Sum[int64])
	if got := sum.DataPoints[0].Value; got != 1 {
		t.Errorf("active sessions = %d, want 1", got)
	}

	cal := findMetric(rm, "sonido.pitch.calibrations")
	if cal == nil {
		t.Fatal("calibrations metric not found")
	}
	if got := cal.Data.(metricdata.Sum[int64]).DataPoints[0].Value; got != 1 {
		t.Errorf("calibrations = %d, want 1", got)
	}
}

func TestMiddlewareRecordsDuration(t *testing.T) {
	m, reader := newTestMetrics(t)
	handler := Middleware(m, &logging.NoOpLogger{})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusTeapot {
		t.Fatalf("status = %d", rec.Code)
	}

	met := findMetric(collect(t, reader), "sonido.http.request.duration")
	if met == nil {
		t.Fatal("http duration metric not found")
	}
	h := met.Data.(metricdata.Histogram[float64])
	if len(h.DataPoints) != 1 || h.DataPoints[0].Count != 1 {
		t.Fatalf("unexpected data points: %+v", h.DataPoints)
	}
}
