package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/prohmpiriya/event-registration/internal/domain"
	"github.com/prohmpiriya/event-registration/internal/dto"
	"github.com/prohmpiriya/event-registration/internal/guard"
	"github.com/prohmpiriya/event-registration/internal/registration"
	"github.com/prohmpiriya/event-registration/internal/repository"
	"github.com/prohmpiriya/event-registration/internal/token"
	"github.com/prohmpiriya/event-registration/pkg/logger"
)

// EventService defines event management operations
type EventService interface {
	// Create creates an event owned by the caller
	Create(ctx context.Context, a *token.Assertion, req *dto.CreateEventRequest) (*dto.EventResponse, error)
	// Get retrieves an event with its live attendee count
	Get(ctx context.Context, a *token.Assertion, id string) (*dto.EventResponse, error)
	// List retrieves events, newest first
	List(ctx context.Context, a *token.Assertion, query *dto.ListEventsQuery) (*dto.ListEventsResponse, error)
	// Update changes an event; capacity changes go through the coordinator
	Update(ctx context.Context, a *token.Assertion, id string, req *dto.UpdateEventRequest) (*dto.EventResponse, error)
	// Delete soft deletes an event and clears its registrations and bookmarks
	Delete(ctx context.Context, a *token.Assertion, id string) error
}

type eventService struct {
	events    repository.EventRepository
	bookmarks repository.BookmarkRepository
	state     eventState
	guard     *guard.Guard
	log       *logger.Logger
	now       func() time.Time
}

// NewEventService creates a new EventService
func NewEventService(
	events repository.EventRepository,
	bookmarks repository.BookmarkRepository,
	coordinator *registration.Coordinator,
	g *guard.Guard,
	log *logger.Logger,
) EventService {
	if log == nil {
		log = logger.NewNop()
	}
	return &eventService{
		events:    events,
		bookmarks: bookmarks,
		state:     eventState{events: events, coordinator: coordinator},
		guard:     g,
		log:       log.Named("events"),
		now:       time.Now,
	}
}

// Create creates an event and initializes its registration state
func (s *eventService) Create(ctx context.Context, a *token.Assertion, req *dto.CreateEventRequest) (*dto.EventResponse, error) {
	if err := s.guard.AuthorizeFresh(ctx, a, domain.CapCreateEvent, ""); err != nil {
		return nil, err
	}
	if err := domain.ValidateEventName(req.Name); err != nil {
		return nil, err
	}
	if err := domain.ValidateCapacity(req.Capacity); err != nil {
		return nil, err
	}

	now := s.now()
	event := &domain.Event{
		ID:          uuid.New().String(),
		OwnerID:     a.SubjectID,
		Name:        strings.TrimSpace(req.Name),
		Description: req.Description,
		Venue:       req.Venue,
		StartsAt:    req.StartsAt,
		Capacity:    req.Capacity,
		Status:      domain.EventStatusPublished,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.events.Create(ctx, event); err != nil {
		return nil, fmt.Errorf("create event: %w", err)
	}

	if err := s.state.coordinator.InitEvent(ctx, event.ID, event.Capacity); err != nil {
		// an event nobody can join must not stay listed
		if delErr := s.events.SoftDelete(context.WithoutCancel(ctx), event.ID); delErr != nil {
			s.log.ErrorContext(ctx, "failed to roll back event after init failure",
				logger.EventID(event.ID),
				zap.Error(delErr),
			)
		}
		return nil, err
	}

	s.log.InfoContext(ctx, "event created",
		logger.EventID(event.ID),
		logger.AccountID(a.SubjectID),
		zap.Int("capacity", event.Capacity),
	)
	return toEventResponse(event), nil
}

// Get retrieves an event
func (s *eventService) Get(ctx context.Context, a *token.Assertion, id string) (*dto.EventResponse, error) {
	if err := s.guard.Authorize(a, domain.CapBrowse, ""); err != nil {
		return nil, err
	}

	event, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	snap, err := s.state.snapshot(ctx, event)
	if err != nil {
		return nil, err
	}
	overlay(event, snap)
	return toEventResponse(event), nil
}

// List retrieves a page of events
func (s *eventService) List(ctx context.Context, a *token.Assertion, query *dto.ListEventsQuery) (*dto.ListEventsResponse, error) {
	if err := s.guard.Authorize(a, domain.CapBrowse, ""); err != nil {
		return nil, err
	}
	query.SetDefaults()

	events, total, err := s.events.List(ctx, query.Limit, query.Offset)
	if err != nil {
		return nil, err
	}

	items := make([]dto.EventResponse, 0, len(events))
	for _, event := range events {
		snap, err := s.state.snapshot(ctx, event)
		if errors.Is(err, domain.ErrEventNotFound) {
			// deleted between the list and the snapshot
			continue
		}
		if err != nil {
			return nil, err
		}
		overlay(event, snap)
		items = append(items, *toEventResponse(event))
	}

	return &dto.ListEventsResponse{
		Events: items,
		Total:  total,
		Limit:  query.Limit,
		Offset: query.Offset,
	}, nil
}

// Update changes an event owned by the caller, or any event for administrators
func (s *eventService) Update(ctx context.Context, a *token.Assertion, id string, req *dto.UpdateEventRequest) (*dto.EventResponse, error) {
	event, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.guard.AuthorizeEvent(ctx, a, guard.EditEvent, event.OwnerID); err != nil {
		return nil, err
	}
	if ok, msg := req.Validate(); !ok {
		return nil, domain.NewValidationError("body", msg)
	}
	if req.Name != nil {
		if err := domain.ValidateEventName(*req.Name); err != nil {
			return nil, err
		}
	}
	if req.Capacity != nil {
		if err := domain.ValidateCapacity(*req.Capacity); err != nil {
			return nil, err
		}
	}

	if req.Capacity != nil {
		if _, err := s.state.snapshot(ctx, event); err != nil {
			return nil, err
		}
		snap, err := s.state.coordinator.SetCapacity(ctx, event.ID, *req.Capacity)
		if err != nil {
			return nil, err
		}
		// the stored capacity seeds lost registration state, so a failed
		// mirror fails the update; repeating it is safe
		if err := s.events.SetCapacity(ctx, event.ID, snap.Capacity); err != nil {
			if errors.Is(err, domain.ErrEventNotFound) {
				return nil, err
			}
			s.log.ErrorContext(ctx, "failed to store capacity change",
				logger.EventID(event.ID),
				zap.Int("capacity", snap.Capacity),
				zap.Error(err),
			)
			return nil, domain.NewInfraError("set_capacity", event.ID, "", err)
		}
	}

	descriptive := req.Name != nil || req.Description != nil || req.Venue != nil ||
		req.StartsAt != nil || req.Status != nil
	if req.Name != nil {
		event.Name = strings.TrimSpace(*req.Name)
	}
	if req.Description != nil {
		event.Description = *req.Description
	}
	if req.Venue != nil {
		event.Venue = *req.Venue
	}
	if req.StartsAt != nil {
		event.StartsAt = req.StartsAt
	}
	if req.Status != nil {
		event.Status = *req.Status
	}
	if descriptive {
		event.UpdatedAt = s.now()
		if err := s.events.Update(ctx, event); err != nil {
			return nil, err
		}
	}

	snap, err := s.state.snapshot(ctx, event)
	if err != nil {
		return nil, err
	}
	overlay(event, snap)
	return toEventResponse(event), nil
}

// Delete soft deletes an event, then drops its registration state and
// bookmarks. Deleting an event that is already deleted repeats the cleanup,
// so a delete whose cleanup failed can be retried.
func (s *eventService) Delete(ctx context.Context, a *token.Assertion, id string) error {
	event, err := s.events.GetByIDWithDeleted(ctx, id)
	if err != nil {
		return err
	}
	if event == nil {
		return domain.ErrEventNotFound
	}
	if err := s.guard.AuthorizeEvent(ctx, a, guard.DeleteEvent, event.OwnerID); err != nil {
		return err
	}

	if !event.IsDeleted() {
		err := s.events.SoftDelete(ctx, event.ID)
		if err != nil && !errors.Is(err, domain.ErrEventNotFound) {
			return err
		}
	}
	if err := s.state.coordinator.RemoveEvent(ctx, event.ID); err != nil {
		return err
	}
	if err := s.bookmarks.DeleteByEvent(ctx, event.ID); err != nil {
		return fmt.Errorf("delete bookmarks: %w", err)
	}

	s.log.InfoContext(ctx, "event deleted",
		logger.EventID(event.ID),
		zap.String("deleted_by", a.SubjectID),
		zap.Bool("repeated", event.IsDeleted()),
	)
	return nil
}

func (s *eventService) load(ctx context.Context, id string) (*domain.Event, error) {
	event, err := s.events.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if event == nil {
		return nil, domain.ErrEventNotFound
	}
	return event, nil
}

func toEventResponse(event *domain.Event) *dto.EventResponse {
	resp := &dto.EventResponse{
		ID:            event.ID,
		OwnerID:       event.OwnerID,
		Name:          event.Name,
		Description:   event.Description,
		Venue:         event.Venue,
		Capacity:      event.Capacity,
		AttendeeCount: event.AttendeeCount,
		Remaining:     event.Remaining(),
		Status:        event.Status,
		CreatedAt:     event.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:     event.UpdatedAt.UTC().Format(time.RFC3339),
	}
	if event.StartsAt != nil {
		startsAt := event.StartsAt.UTC().Format(time.RFC3339)
		resp.StartsAt = &startsAt
	}
	return resp
}
