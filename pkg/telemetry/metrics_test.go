package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Aggregation {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	out := make(map[string]metricdata.Aggregation)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m.Data
		}
	}
	return out
}

func TestInstruments(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer func() { _ = provider.Shutdown(context.Background()) }()
	meter := provider.Meter("test")
	ctx := context.Background()

	joins, err := NewCounter(meter, MetricOpts{Name: "joins_total", Unit: "1"})
	require.NoError(t, err)
	latency, err := NewHistogram(meter, MetricOpts{Name: "latency_seconds", Unit: "s", Buckets: []float64{0.01, 0.1}})
	require.NoError(t, err)

	joins.Inc(ctx, OutcomeAttr("joined"))
	joins.Inc(ctx, OutcomeAttr("joined"))
	joins.Inc(ctx, OutcomeAttr("capacity_exceeded"))
	latency.Record(ctx, 0.05, OperationAttr("join"))

	data := collect(t, reader)

	sum, ok := data["joins_total"].(metricdata.Sum[int64])
	require.True(t, ok)
	byOutcome := map[string]int64{}
	for _, dp := range sum.DataPoints {
		v, _ := dp.Attributes.Value(AttrOutcome)
		byOutcome[v.AsString()] = dp.Value
	}
	assert.Equal(t, map[string]int64{"joined": 2, "capacity_exceeded": 1}, byOutcome)

	hist, ok := data["latency_seconds"].(metricdata.Histogram[float64])
	require.True(t, ok)
	require.Len(t, hist.DataPoints, 1)
	assert.Equal(t, []float64{0.01, 0.1}, hist.DataPoints[0].Bounds)
	assert.Equal(t, uint64(1), hist.DataPoints[0].Count)
}

func TestInstruments_NilMeterUsesGlobal(t *testing.T) {
	global = nil
	ctx := context.Background()

	c, err := NewCounter(nil, MetricOpts{Name: "noop_total"})
	require.NoError(t, err)
	c.Inc(ctx, ErrorKindAttr("infrastructure"))

	h, err := NewHistogram(nil, MetricOpts{Name: "noop_seconds"})
	require.NoError(t, err)
	h.Record(ctx, 0.2)
}

func TestAttributeHelpers(t *testing.T) {
	tests := []struct {
		got      attribute.KeyValue
		expected attribute.KeyValue
	}{
		{ErrorKindAttr("infrastructure"), attribute.String("error.kind", "infrastructure")},
		{EventIDAttr("evt-1"), attribute.String("event.id", "evt-1")},
		{AccountIDAttr("acc-1"), attribute.String("account.id", "acc-1")},
		{OperationAttr("leave"), attribute.String("registration.operation", "leave")},
		{OutcomeAttr("not_registered"), attribute.String("registration.outcome", "not_registered")},
		{BackendAttr("redis"), attribute.String("registration.backend", "redis")},
	}
	for _, tt := range tests {
		t.Run(string(tt.expected.Key), func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.got)
		})
	}
}
