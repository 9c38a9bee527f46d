package registration

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/prohmpiriya/event-registration/internal/domain"
	"github.com/prohmpiriya/event-registration/pkg/telemetry"
)

// Metric names
const (
	MetricJoinTotal   = "registration_join_total"
	MetricLeaveTotal  = "registration_leave_total"
	MetricErrorsTotal = "registration_errors_total"
	MetricDuration    = "registration_operation_duration_seconds"
)

var durationBuckets = []float64{0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5}

type coordinatorMetrics struct {
	backend  attribute.KeyValue
	joins    *telemetry.Counter
	leaves   *telemetry.Counter
	errors   *telemetry.Counter
	duration *telemetry.Histogram
}

func newCoordinatorMetrics(meter metric.Meter, backend string) (*coordinatorMetrics, error) {
	joins, err := telemetry.NewCounter(meter, telemetry.MetricOpts{
		Name:        MetricJoinTotal,
		Description: "Join attempts by outcome",
		Unit:        "1",
	})
	if err != nil {
		return nil, err
	}
	leaves, err := telemetry.NewCounter(meter, telemetry.MetricOpts{
		Name:        MetricLeaveTotal,
		Description: "Leave attempts by outcome",
		Unit:        "1",
	})
	if err != nil {
		return nil, err
	}
	errs, err := telemetry.NewCounter(meter, telemetry.MetricOpts{
		Name:        MetricErrorsTotal,
		Description: "Registration operations that failed by error kind",
		Unit:        "1",
	})
	if err != nil {
		return nil, err
	}
	duration, err := telemetry.NewHistogram(meter, telemetry.MetricOpts{
		Name:        MetricDuration,
		Description: "Latency of registration store operations",
		Unit:        "s",
		Buckets:     durationBuckets,
	})
	if err != nil {
		return nil, err
	}

	return &coordinatorMetrics{
		backend:  telemetry.BackendAttr(backend),
		joins:    joins,
		leaves:   leaves,
		errors:   errs,
		duration: duration,
	}, nil
}

func (m *coordinatorMetrics) record(ctx context.Context, op, outcome string, err error, elapsed time.Duration) {
	// the caller's context may already be done; metrics must still be recorded
	ctx = context.WithoutCancel(ctx)
	opAttr := telemetry.OperationAttr(op)

	m.duration.Record(ctx, elapsed.Seconds(), opAttr, m.backend)

	if err != nil {
		kind := domain.KindInfrastructure
		if isBusinessError(err) {
			kind = domain.Kind(err)
		}
		m.errors.Inc(ctx, opAttr, m.backend, telemetry.ErrorKindAttr(kind.String()))
		return
	}
	switch op {
	case OpJoin:
		m.joins.Inc(ctx, telemetry.OutcomeAttr(outcome), m.backend)
	case OpLeave:
		m.leaves.Inc(ctx, telemetry.OutcomeAttr(outcome), m.backend)
	}
}
