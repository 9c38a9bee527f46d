package registration

import (
	"context"
	"sync"

	"github.com/prohmpiriya/event-registration/internal/domain"
)

// memoryEvent holds one event's membership. mu serializes every mutation of
// the event so unrelated events never contend.
type memoryEvent struct {
	mu        sync.Mutex
	capacity  int
	attendees map[string]struct{}
	removed   bool
}

// MemoryStore is an in-process Store with a lock scoped to each event id
type MemoryStore struct {
	mu     sync.RWMutex
	events map[string]*memoryEvent
}

// NewMemoryStore creates an empty MemoryStore
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{events: make(map[string]*memoryEvent)}
}

func (s *MemoryStore) get(eventID string) (*memoryEvent, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.events[eventID]
	return e, ok
}

// lock returns the event with its mutex held, or ErrEventNotFound
func (s *MemoryStore) lock(eventID string) (*memoryEvent, error) {
	e, ok := s.get(eventID)
	if !ok {
		return nil, domain.ErrEventNotFound
	}
	e.mu.Lock()
	if e.removed {
		e.mu.Unlock()
		return nil, domain.ErrEventNotFound
	}
	return e, nil
}

func (e *memoryEvent) snapshot() Snapshot {
	return Snapshot{Capacity: e.capacity, AttendeeCount: len(e.attendees)}
}

// InitEvent registers an event
func (s *MemoryStore) InitEvent(ctx context.Context, eventID string, capacity int) error {
	if err := domain.ValidateCapacity(capacity); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.events[eventID]; ok {
		return nil
	}
	s.events[eventID] = &memoryEvent{
		capacity:  capacity,
		attendees: make(map[string]struct{}),
	}
	return nil
}

// SetCapacity changes capacity unless it would drop below the attendee count
func (s *MemoryStore) SetCapacity(ctx context.Context, eventID string, capacity int) (Snapshot, error) {
	if err := domain.ValidateCapacity(capacity); err != nil {
		return Snapshot{}, err
	}
	e, err := s.lock(eventID)
	if err != nil {
		return Snapshot{}, err
	}
	defer e.mu.Unlock()

	if capacity < len(e.attendees) {
		return e.snapshot(), domain.ErrCapacityBelowAttendees
	}
	e.capacity = capacity
	return e.snapshot(), nil
}

// RemoveEvent forgets the event. Operations already holding its lock finish first.
func (s *MemoryStore) RemoveEvent(ctx context.Context, eventID string) error {
	s.mu.Lock()
	e, ok := s.events[eventID]
	delete(s.events, eventID)
	s.mu.Unlock()

	if ok {
		e.mu.Lock()
		e.removed = true
		e.attendees = nil
		e.mu.Unlock()
	}
	return nil
}

// Join adds accountID when it is absent and a seat is free
func (s *MemoryStore) Join(ctx context.Context, eventID, accountID string) (domain.JoinOutcome, Snapshot, error) {
	e, err := s.lock(eventID)
	if err != nil {
		return "", Snapshot{}, err
	}
	defer e.mu.Unlock()

	if _, ok := e.attendees[accountID]; ok {
		return domain.AlreadyRegistered, e.snapshot(), nil
	}
	if len(e.attendees) >= e.capacity {
		return domain.CapacityExceeded, e.snapshot(), nil
	}
	e.attendees[accountID] = struct{}{}
	return domain.Joined, e.snapshot(), nil
}

// Leave removes accountID when present
func (s *MemoryStore) Leave(ctx context.Context, eventID, accountID string) (domain.LeaveOutcome, Snapshot, error) {
	e, err := s.lock(eventID)
	if err != nil {
		return "", Snapshot{}, err
	}
	defer e.mu.Unlock()

	if _, ok := e.attendees[accountID]; !ok {
		return domain.NotRegistered, e.snapshot(), nil
	}
	delete(e.attendees, accountID)
	return domain.Left, e.snapshot(), nil
}

// IsRegistered reports membership
func (s *MemoryStore) IsRegistered(ctx context.Context, eventID, accountID string) (bool, error) {
	e, err := s.lock(eventID)
	if err != nil {
		return false, err
	}
	defer e.mu.Unlock()

	_, ok := e.attendees[accountID]
	return ok, nil
}

// Snapshot returns the current capacity and attendee count
func (s *MemoryStore) Snapshot(ctx context.Context, eventID string) (Snapshot, error) {
	e, err := s.lock(eventID)
	if err != nil {
		return Snapshot{}, err
	}
	defer e.mu.Unlock()
	return e.snapshot(), nil
}
