package service

import (
	"context"
	"errors"

	"github.com/prohmpiriya/event-registration/internal/domain"
	"github.com/prohmpiriya/event-registration/internal/dto"
	"github.com/prohmpiriya/event-registration/internal/guard"
	"github.com/prohmpiriya/event-registration/internal/registration"
	"github.com/prohmpiriya/event-registration/internal/repository"
	"github.com/prohmpiriya/event-registration/internal/token"
)

// RegistrationService joins and leaves events on behalf of the caller
type RegistrationService interface {
	// Join registers the caller for an event
	Join(ctx context.Context, a *token.Assertion, eventID string) (*dto.RegistrationResponse, error)
	// Leave removes the caller from an event
	Leave(ctx context.Context, a *token.Assertion, eventID string) (*dto.RegistrationResponse, error)
	// Status reports whether the caller is registered. Clients re-query it
	// after a timed-out join or leave.
	Status(ctx context.Context, a *token.Assertion, eventID string) (*dto.RegistrationStatusResponse, error)
}

type registrationService struct {
	coordinator *registration.Coordinator
	state       eventState
	guard       *guard.Guard
}

// NewRegistrationService creates a new RegistrationService
func NewRegistrationService(
	coordinator *registration.Coordinator,
	events repository.EventRepository,
	g *guard.Guard,
) RegistrationService {
	return &registrationService{
		coordinator: coordinator,
		state:       eventState{events: events, coordinator: coordinator},
		guard:       g,
	}
}

// Join registers the caller. The account id always comes from the assertion,
// and the event must exist in the event store, not only in registration state.
func (s *registrationService) Join(ctx context.Context, a *token.Assertion, eventID string) (*dto.RegistrationResponse, error) {
	if err := s.guard.Authorize(a, domain.CapRegisterSelf, ""); err != nil {
		return nil, err
	}

	event, err := s.state.live(ctx, eventID)
	if err != nil {
		return nil, err
	}

	res, err := s.coordinator.Join(ctx, event.ID, a.SubjectID)
	if errors.Is(err, domain.ErrEventNotFound) {
		if err = s.state.ensure(ctx, event); err != nil {
			return nil, err
		}
		res, err = s.coordinator.Join(ctx, event.ID, a.SubjectID)
	}
	if err != nil {
		return nil, err
	}

	return &dto.RegistrationResponse{
		EventID:       eventID,
		Outcome:       string(res.Outcome),
		Changed:       res.Outcome.Changed(),
		AttendeeCount: res.Snapshot.AttendeeCount,
		Capacity:      res.Snapshot.Capacity,
		Remaining:     res.Snapshot.Remaining(),
	}, nil
}

// Leave removes the caller's registration
func (s *registrationService) Leave(ctx context.Context, a *token.Assertion, eventID string) (*dto.RegistrationResponse, error) {
	if err := s.guard.Authorize(a, domain.CapRegisterSelf, ""); err != nil {
		return nil, err
	}

	event, err := s.state.live(ctx, eventID)
	if err != nil {
		return nil, err
	}

	res, err := s.coordinator.Leave(ctx, event.ID, a.SubjectID)
	if errors.Is(err, domain.ErrEventNotFound) {
		if err = s.state.ensure(ctx, event); err != nil {
			return nil, err
		}
		res, err = s.coordinator.Leave(ctx, event.ID, a.SubjectID)
	}
	if err != nil {
		return nil, err
	}

	return &dto.RegistrationResponse{
		EventID:       eventID,
		Outcome:       string(res.Outcome),
		Changed:       res.Outcome.Changed(),
		AttendeeCount: res.Snapshot.AttendeeCount,
		Capacity:      res.Snapshot.Capacity,
		Remaining:     res.Snapshot.Remaining(),
	}, nil
}

// Status reports the caller's registration
func (s *registrationService) Status(ctx context.Context, a *token.Assertion, eventID string) (*dto.RegistrationStatusResponse, error) {
	if err := s.guard.Authorize(a, domain.CapRegisterSelf, ""); err != nil {
		return nil, err
	}

	event, err := s.state.live(ctx, eventID)
	if err != nil {
		return nil, err
	}

	registered, err := s.coordinator.IsRegistered(ctx, event.ID, a.SubjectID)
	if errors.Is(err, domain.ErrEventNotFound) {
		if err = s.state.ensure(ctx, event); err != nil {
			return nil, err
		}
		registered, err = s.coordinator.IsRegistered(ctx, event.ID, a.SubjectID)
	}
	if err != nil {
		return nil, err
	}

	return &dto.RegistrationStatusResponse{EventID: eventID, Registered: registered}, nil
}
