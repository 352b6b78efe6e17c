package observability

import (
	"context"
	"testing"
	"time"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func newTestMetrics(t *testing.T) (*Metrics, *sdkmetric.ManualReader) {
	t.Helper()

	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() {
		if err := provider.Shutdown(context.Background()); err != nil {
			t.Errorf("shutdown meter provider: %v", err)
		}
	})

	m, err := NewMetrics(provider.Meter("test"))
	if err != nil {
		t.Fatalf("NewMetrics() error = %v", err)
	}
	return m, reader
}

func collectedMetrics(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Metrics {
	t.Helper()

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect() error = %v", err)
	}

	byName := make(map[string]metricdata.Metrics)
	for _, scope := range rm.ScopeMetrics {
		for _, metric := range scope.Metrics {
			byName[metric.Name] = metric
		}
	}
	return byName
}

func counterValue(t *testing.T, byName map[string]metricdata.Metrics, name string) int64 {
	t.Helper()

	metric, ok := byName[name]
	if !ok {
		return 0
	}
	sum, ok := metric.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("metric %q: data type = %T, want Sum[int64]", name, metric.Data)
	}
	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}
	return total
}

func TestRecordOperation(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordOperation(ctx, "save", "student", 25*time.Millisecond, true)
	m.RecordOperation(ctx, "save", "student", 10*time.Millisecond, false)

	byName := collectedMetrics(t, reader)
	if got := counterValue(t, byName, "registry.operations.total"); got != 2 {
		t.Fatalf("registry.operations.total = %d, want 2", got)
	}

	hist, ok := byName["registry.operation.duration"]
	if !ok {
		t.Fatal("registry.operation.duration not collected")
	}
	data, ok := hist.Data.(metricdata.Histogram[float64])
	if !ok {
		t.Fatalf("duration data type = %T, want Histogram[float64]", hist.Data)
	}
	var count uint64
	for _, dp := range data.DataPoints {
		count += dp.Count
	}
	if count != 2 {
		t.Fatalf("duration data point count = %d, want 2", count)
	}
}

func TestRecordTransaction(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordTransaction(ctx, false)
	m.RecordTransaction(ctx, false)
	m.RecordTransaction(ctx, true)

	byName := collectedMetrics(t, reader)
	if got := counterValue(t, byName, "transactions.total"); got != 3 {
		t.Fatalf("transactions.total = %d, want 3", got)
	}
	if got := counterValue(t, byName, "transactions.rollbacks.total"); got != 1 {
		t.Fatalf("transactions.rollbacks.total = %d, want 1", got)
	}
}

func TestMetricsNilReceiver(t *testing.T) {
	var m *Metrics

	// Services run without telemetry wired; recording must be a no-op.
	m.RecordOperation(context.Background(), "save", "student", time.Millisecond, true)
	m.RecordTransaction(context.Background(), true)
}
