package service

import (
	"context"
	"errors"

	"github.com/prohmpiriya/event-registration/internal/domain"
	"github.com/prohmpiriya/event-registration/internal/registration"
	"github.com/prohmpiriya/event-registration/internal/repository"
)

// eventState reads registration state for stored events. When the
// registration store has lost an event that still exists (a flushed Redis,
// a restarted memory backend) it is initialized again from the stored capacity.
type eventState struct {
	events      repository.EventRepository
	coordinator *registration.Coordinator
}

// snapshot returns the live capacity and attendee count of event
func (s eventState) snapshot(ctx context.Context, event *domain.Event) (registration.Snapshot, error) {
	snap, err := s.coordinator.Snapshot(ctx, event.ID)
	if !errors.Is(err, domain.ErrEventNotFound) {
		return snap, err
	}
	if err := s.coordinator.InitEvent(ctx, event.ID, event.Capacity); err != nil {
		return registration.Snapshot{}, err
	}
	return s.coordinator.Snapshot(ctx, event.ID)
}

// live loads a stored event that has not been deleted. Registration state
// left behind by an interrupted delete does not make an event live.
func (s eventState) live(ctx context.Context, eventID string) (*domain.Event, error) {
	event, err := s.events.GetByID(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if event == nil {
		return nil, domain.ErrEventNotFound
	}
	return event, nil
}

// ensure initializes registration state for a live event that lost it
func (s eventState) ensure(ctx context.Context, event *domain.Event) error {
	return s.coordinator.InitEvent(ctx, event.ID, event.Capacity)
}

// overlay copies the live registration state onto event
func overlay(event *domain.Event, snap registration.Snapshot) {
	event.Capacity = snap.Capacity
	event.AttendeeCount = snap.AttendeeCount
}
