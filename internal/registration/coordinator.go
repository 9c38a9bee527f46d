package registration

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/prohmpiriya/event-registration/internal/domain"
	"github.com/prohmpiriya/event-registration/pkg/logger"
)

// DefaultTimeout bounds a coordinator call when the caller set no deadline
const DefaultTimeout = 3 * time.Second

// Operation names used in logs, metrics and infrastructure errors
const (
	OpJoin         = "join"
	OpLeave        = "leave"
	OpIsRegistered = "is_registered"
	OpInitEvent    = "init_event"
	OpSetCapacity  = "set_capacity"
	OpRemoveEvent  = "remove_event"
	OpSnapshot     = "snapshot"
)

// Notification types
const (
	NotificationJoined = "registration.joined"
	NotificationLeft   = "registration.left"
)

// Notification describes a committed membership change
type Notification struct {
	Type          string    `json:"type"`
	EventID       string    `json:"event_id"`
	AccountID     string    `json:"account_id"`
	AttendeeCount int       `json:"attendee_count"`
	Capacity      int       `json:"capacity"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// Notifier receives membership changes after they are committed
type Notifier interface {
	Publish(ctx context.Context, n Notification) error
}

// JoinResult is the outcome of Join together with the event state it produced
type JoinResult struct {
	Outcome domain.JoinOutcome `json:"outcome"`
	Snapshot
}

// LeaveResult is the outcome of Leave together with the event state it produced
type LeaveResult struct {
	Outcome domain.LeaveOutcome `json:"outcome"`
	Snapshot
}

// Coordinator is the only component that mutates event membership. It never
// retries: business outcomes are terminal and infrastructure errors are
// returned to the caller wrapped in domain.InfraError.
type Coordinator struct {
	store    Store
	backend  string
	timeout  time.Duration
	log      *logger.Logger
	notifier Notifier
	meter    metric.Meter
	metrics  *coordinatorMetrics
	now      func() time.Time
}

// Option configures a Coordinator
type Option func(*Coordinator)

// WithTimeout sets the budget applied when the caller's context has no deadline
func WithTimeout(d time.Duration) Option {
	return func(c *Coordinator) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithLogger sets the logger
func WithLogger(l *logger.Logger) Option {
	return func(c *Coordinator) { c.log = l }
}

// WithNotifier sets where committed changes are published
func WithNotifier(n Notifier) Option {
	return func(c *Coordinator) { c.notifier = n }
}

// WithMeter records metrics on the given meter instead of the global one
func WithMeter(m metric.Meter) Option {
	return func(c *Coordinator) { c.meter = m }
}

// WithBackendName labels metrics with the store backend
func WithBackendName(name string) Option {
	return func(c *Coordinator) { c.backend = name }
}

// NewCoordinator creates a Coordinator over store
func NewCoordinator(store Store, opts ...Option) (*Coordinator, error) {
	if store == nil {
		return nil, errors.New("registration store is required")
	}
	c := &Coordinator{
		store:   store,
		backend: "unknown",
		timeout: DefaultTimeout,
		log:     logger.NewNop(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}

	m, err := newCoordinatorMetrics(c.meter, c.backend)
	if err != nil {
		return nil, fmt.Errorf("failed to create registration metrics: %w", err)
	}
	c.metrics = m
	c.log = c.log.Named("registration")
	return c, nil
}

// Join adds accountID to the event's attendees.
// Outcomes: Joined, AlreadyRegistered, CapacityExceeded. A missing event is
// domain.ErrEventNotFound and is reported before any capacity logic.
func (c *Coordinator) Join(ctx context.Context, eventID, accountID string) (JoinResult, error) {
	if err := validateIDs(eventID, accountID); err != nil {
		return JoinResult{}, err
	}
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	start := time.Now()
	outcome, snap, err := c.store.Join(ctx, eventID, accountID)
	c.metrics.record(ctx, OpJoin, string(outcome), err, time.Since(start))
	if err != nil {
		return JoinResult{}, c.fail(ctx, OpJoin, eventID, accountID, err)
	}

	if outcome.Changed() {
		c.publish(ctx, NotificationJoined, eventID, accountID, snap)
	}
	return JoinResult{Outcome: outcome, Snapshot: snap}, nil
}

// Leave removes accountID from the event's attendees.
// Outcomes: Left, NotRegistered. The count never drops below membership.
func (c *Coordinator) Leave(ctx context.Context, eventID, accountID string) (LeaveResult, error) {
	if err := validateIDs(eventID, accountID); err != nil {
		return LeaveResult{}, err
	}
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	start := time.Now()
	outcome, snap, err := c.store.Leave(ctx, eventID, accountID)
	c.metrics.record(ctx, OpLeave, string(outcome), err, time.Since(start))
	if err != nil {
		return LeaveResult{}, c.fail(ctx, OpLeave, eventID, accountID, err)
	}

	if outcome.Changed() {
		c.publish(ctx, NotificationLeft, eventID, accountID, snap)
	}
	return LeaveResult{Outcome: outcome, Snapshot: snap}, nil
}

// IsRegistered reports membership. Callers use it to resolve an outcome that
// was lost to a timeout before deciding to retry.
func (c *Coordinator) IsRegistered(ctx context.Context, eventID, accountID string) (bool, error) {
	if err := validateIDs(eventID, accountID); err != nil {
		return false, err
	}
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	start := time.Now()
	registered, err := c.store.IsRegistered(ctx, eventID, accountID)
	c.metrics.record(ctx, OpIsRegistered, "", err, time.Since(start))
	if err != nil {
		return false, c.fail(ctx, OpIsRegistered, eventID, accountID, err)
	}
	return registered, nil
}

// InitEvent makes a newly created event available for registration
func (c *Coordinator) InitEvent(ctx context.Context, eventID string, capacity int) error {
	if err := validateEventID(eventID); err != nil {
		return err
	}
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	start := time.Now()
	err := c.store.InitEvent(ctx, eventID, capacity)
	c.metrics.record(ctx, OpInitEvent, "", err, time.Since(start))
	return c.fail(ctx, OpInitEvent, eventID, "", err)
}

// SetCapacity changes the capacity of an event. It is serialized with joins
// and fails with domain.ErrCapacityBelowAttendees when capacity would drop
// below the current attendee count.
func (c *Coordinator) SetCapacity(ctx context.Context, eventID string, capacity int) (Snapshot, error) {
	if err := validateEventID(eventID); err != nil {
		return Snapshot{}, err
	}
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	start := time.Now()
	snap, err := c.store.SetCapacity(ctx, eventID, capacity)
	c.metrics.record(ctx, OpSetCapacity, "", err, time.Since(start))
	if err != nil {
		return snap, c.fail(ctx, OpSetCapacity, eventID, "", err)
	}
	return snap, nil
}

// RemoveEvent discards all membership state of a deleted event
func (c *Coordinator) RemoveEvent(ctx context.Context, eventID string) error {
	if err := validateEventID(eventID); err != nil {
		return err
	}
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	start := time.Now()
	err := c.store.RemoveEvent(ctx, eventID)
	c.metrics.record(ctx, OpRemoveEvent, "", err, time.Since(start))
	return c.fail(ctx, OpRemoveEvent, eventID, "", err)
}

// Snapshot returns the current capacity and attendee count
func (c *Coordinator) Snapshot(ctx context.Context, eventID string) (Snapshot, error) {
	if err := validateEventID(eventID); err != nil {
		return Snapshot{}, err
	}
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	snap, err := c.store.Snapshot(ctx, eventID)
	if err != nil {
		return Snapshot{}, c.fail(ctx, OpSnapshot, eventID, "", err)
	}
	return snap, nil
}

func (c *Coordinator) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.timeout)
}

// fail passes business errors through and wraps everything else as an
// infrastructure error. A deadline hit means the outcome is unknown.
func (c *Coordinator) fail(ctx context.Context, op, eventID, accountID string, err error) error {
	if err == nil {
		return nil
	}
	if isBusinessError(err) {
		return err
	}

	cause := err
	if ctx.Err() != nil || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		cause = fmt.Errorf("%w: %w", domain.ErrRegistrationTimeout, err)
	}
	infraErr := domain.NewInfraError(op, eventID, accountID, cause)

	c.log.ErrorContext(ctx, "registration store failure",
		logger.Operation(op),
		logger.EventID(eventID),
		logger.AccountID(accountID),
		zap.String("backend", c.backend),
		zap.Error(err),
	)
	return infraErr
}

// publish is best effort: a failed notification never changes the outcome
func (c *Coordinator) publish(ctx context.Context, kind, eventID, accountID string, snap Snapshot) {
	if c.notifier == nil {
		return
	}
	n := Notification{
		Type:          kind,
		EventID:       eventID,
		AccountID:     accountID,
		AttendeeCount: snap.AttendeeCount,
		Capacity:      snap.Capacity,
		OccurredAt:    c.now().UTC(),
	}
	if err := c.notifier.Publish(context.WithoutCancel(ctx), n); err != nil {
		c.log.WarnContext(ctx, "failed to publish registration notification",
			zap.String("type", kind),
			logger.EventID(eventID),
			logger.AccountID(accountID),
			zap.Error(err),
		)
	}
}

func validateEventID(eventID string) error {
	if strings.TrimSpace(eventID) == "" {
		return domain.NewValidationError("event_id", "event id is required")
	}
	return nil
}

func validateIDs(eventID, accountID string) error {
	if err := validateEventID(eventID); err != nil {
		return err
	}
	if strings.TrimSpace(accountID) == "" {
		return domain.NewValidationError("account_id", "account id is required")
	}
	return nil
}
