// Package registration enforces capacity-bounded, idempotent event membership.
//
// Each event's (attendees, capacity) pair is mutated as one unit: every Store
// implementation performs the membership check and the mutation in a single
// atomic step scoped to one event, so concurrent joins can never oversell.
package registration

import (
	"context"
	"errors"

	"github.com/prohmpiriya/event-registration/internal/domain"
)

// Snapshot is the observable state of one event after an operation
type Snapshot struct {
	Capacity      int `json:"capacity"`
	AttendeeCount int `json:"attendee_count"`
}

// Remaining returns the number of free seats
func (s Snapshot) Remaining() int {
	if s.AttendeeCount >= s.Capacity {
		return 0
	}
	return s.Capacity - s.AttendeeCount
}

// Store is the atomic per-event membership backend.
//
// Implementations return domain.ErrEventNotFound for unknown or removed events
// and domain.ErrCapacityBelowAttendees from SetCapacity. Any other error is an
// infrastructure failure.
type Store interface {
	// InitEvent makes the event known to the store with the given capacity.
	// Calling it again for an existing event is a no-op.
	InitEvent(ctx context.Context, eventID string, capacity int) error
	// SetCapacity changes capacity atomically with respect to Join.
	SetCapacity(ctx context.Context, eventID string, capacity int) (Snapshot, error)
	// RemoveEvent drops all membership state for the event.
	RemoveEvent(ctx context.Context, eventID string) error
	Join(ctx context.Context, eventID, accountID string) (domain.JoinOutcome, Snapshot, error)
	Leave(ctx context.Context, eventID, accountID string) (domain.LeaveOutcome, Snapshot, error)
	IsRegistered(ctx context.Context, eventID, accountID string) (bool, error)
	Snapshot(ctx context.Context, eventID string) (Snapshot, error)
}

// errUnexpectedReply is returned when a backend answers outside its protocol
var errUnexpectedReply = errors.New("unexpected reply from registration store")

// isBusinessError reports whether err is a terminal outcome rather than a fault
func isBusinessError(err error) bool {
	return errors.Is(err, domain.ErrEventNotFound) ||
		errors.Is(err, domain.ErrCapacityBelowAttendees) ||
		errors.Is(err, domain.ErrValidation)
}
