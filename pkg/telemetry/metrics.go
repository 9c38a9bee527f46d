package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MetricOpts names and describes an instrument
type MetricOpts struct {
	Name        string
	Description string
	Unit        string
	// Buckets overrides the default histogram boundaries when set
	Buckets []float64
}

// Counter is a monotonic int64 counter
type Counter struct {
	counter metric.Int64Counter
}

// NewCounter creates a counter on meter, or on the global meter when meter is nil
func NewCounter(meter metric.Meter, opts MetricOpts) (*Counter, error) {
	if meter == nil {
		meter = GetMeter()
	}
	counter, err := meter.Int64Counter(opts.Name,
		metric.WithDescription(opts.Description),
		metric.WithUnit(opts.Unit),
	)
	if err != nil {
		return nil, err
	}
	return &Counter{counter: counter}, nil
}

func (c *Counter) Inc(ctx context.Context, attrs ...attribute.KeyValue) {
	c.counter.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// Histogram records float64 samples such as latencies in seconds
type Histogram struct {
	histogram metric.Float64Histogram
}

// NewHistogram creates a histogram on meter, or on the global meter when meter is nil
func NewHistogram(meter metric.Meter, opts MetricOpts) (*Histogram, error) {
	if meter == nil {
		meter = GetMeter()
	}
	options := []metric.Float64HistogramOption{
		metric.WithDescription(opts.Description),
		metric.WithUnit(opts.Unit),
	}
	if len(opts.Buckets) > 0 {
		options = append(options, metric.WithExplicitBucketBoundaries(opts.Buckets...))
	}
	histogram, err := meter.Float64Histogram(opts.Name, options...)
	if err != nil {
		return nil, err
	}
	return &Histogram{histogram: histogram}, nil
}

func (h *Histogram) Record(ctx context.Context, value float64, attrs ...attribute.KeyValue) {
	h.histogram.Record(ctx, value, metric.WithAttributes(attrs...))
}

// Attribute keys shared by spans and metrics
const (
	AttrErrorKind = "error.kind"
	AttrEventID   = "event.id"
	AttrAccountID = "account.id"
	AttrOperation = "registration.operation"
	AttrOutcome   = "registration.outcome"
	AttrBackend   = "registration.backend"
)

func ErrorKindAttr(kind string) attribute.KeyValue { return attribute.String(AttrErrorKind, kind) }
func EventIDAttr(id string) attribute.KeyValue     { return attribute.String(AttrEventID, id) }
func AccountIDAttr(id string) attribute.KeyValue   { return attribute.String(AttrAccountID, id) }
func OperationAttr(op string) attribute.KeyValue   { return attribute.String(AttrOperation, op) }
func OutcomeAttr(outcome string) attribute.KeyValue {
	return attribute.String(AttrOutcome, outcome)
}
func BackendAttr(backend string) attribute.KeyValue {
	return attribute.String(AttrBackend, backend)
}
