package domain

import (
	"strings"
	"time"
)

// Event represents a capacity-bounded event owned by an organizer
type Event struct {
	ID            string     `json:"id"`
	OwnerID       string     `json:"owner_id"`
	Name          string     `json:"name"`
	Description   string     `json:"description"`
	Venue         string     `json:"venue"`
	StartsAt      *time.Time `json:"starts_at,omitempty"`
	Capacity      int        `json:"capacity"`
	AttendeeCount int        `json:"attendee_count"`
	Status        string     `json:"status"` // published, cancelled
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
	DeletedAt     *time.Time `json:"deleted_at,omitempty"`
}

// EventStatus constants
const (
	EventStatusPublished = "published"
	EventStatusCancelled = "cancelled"
)

// MaxEventNameLength bounds the event name
const MaxEventNameLength = 200

// Remaining returns the number of free seats
func (e *Event) Remaining() int {
	if e.AttendeeCount >= e.Capacity {
		return 0
	}
	return e.Capacity - e.AttendeeCount
}

// IsFull reports whether the event has no remaining capacity
func (e *Event) IsFull() bool {
	return e.AttendeeCount >= e.Capacity
}

// IsDeleted reports whether the event was soft deleted
func (e *Event) IsDeleted() bool {
	return e.DeletedAt != nil
}

// ValidateCapacity rejects non-positive capacities
func ValidateCapacity(capacity int) error {
	if capacity <= 0 {
		return NewValidationError("capacity", "capacity must be a positive integer")
	}
	return nil
}

// ValidateEventName checks the event name
func ValidateEventName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return NewValidationError("name", "name is required")
	}
	if len(name) > MaxEventNameLength {
		return NewValidationError("name", "name is too long")
	}
	return nil
}
