package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prohmpiriya/event-registration/internal/domain"
	"github.com/prohmpiriya/event-registration/internal/dto"
	"github.com/prohmpiriya/event-registration/internal/registration"
	"github.com/prohmpiriya/event-registration/internal/repository"
)

func TestEventService_Create(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	organizer := h.seedAccount(t, domain.RoleOrganizer)

	resp := h.createEvent(t, organizer, 50)
	assert.Equal(t, organizer.SubjectID, resp.OwnerID)
	assert.Equal(t, 50, resp.Capacity)
	assert.Equal(t, 0, resp.AttendeeCount)
	assert.Equal(t, 50, resp.Remaining)
	assert.Equal(t, domain.EventStatusPublished, resp.Status)

	snap, err := h.store.Snapshot(ctx, resp.ID)
	require.NoError(t, err)
	assert.Equal(t, 50, snap.Capacity)
}

func TestEventService_Create_Rejects(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	member := h.seedAccount(t, domain.RoleMember)
	organizer := h.seedAccount(t, domain.RoleOrganizer)

	_, err := h.event.Create(ctx, member, &dto.CreateEventRequest{Name: "Nope", Capacity: 10})
	assert.ErrorIs(t, err, domain.ErrForbidden)

	_, err = h.event.Create(ctx, organizer, &dto.CreateEventRequest{Name: "Zero", Capacity: 0})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = h.event.Create(ctx, organizer, &dto.CreateEventRequest{Name: " ", Capacity: 10})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, total, err := h.events.List(ctx, 10, 0)
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestEventService_GetAndList(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	organizer := h.seedAccount(t, domain.RoleOrganizer)
	member := h.seedAccount(t, domain.RoleMember)

	first := h.createEvent(t, organizer, 3)
	h.createEvent(t, organizer, 5)

	_, err := h.registration.Join(ctx, member, first.ID)
	require.NoError(t, err)

	got, err := h.event.Get(ctx, member, first.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.AttendeeCount)
	assert.Equal(t, 2, got.Remaining)

	list, err := h.event.List(ctx, member, &dto.ListEventsQuery{})
	require.NoError(t, err)
	assert.Equal(t, 2, list.Total)
	assert.Equal(t, 20, list.Limit)
	assert.Len(t, list.Events, 2)

	_, err = h.event.Get(ctx, member, "00000000-0000-0000-0000-000000000000")
	assert.ErrorIs(t, err, domain.ErrEventNotFound)

	_, err = h.event.Get(ctx, nil, first.ID)
	assert.ErrorIs(t, err, domain.ErrUnauthenticated)
}

func TestEventService_Update_Ownership(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	owner := h.seedAccount(t, domain.RoleOrganizer)
	other := h.seedAccount(t, domain.RoleOrganizer)
	admin := h.seedAccount(t, domain.RoleAdministrator)
	event := h.createEvent(t, owner, 10)

	resp, err := h.event.Update(ctx, owner, event.ID, &dto.UpdateEventRequest{Name: ptr("Renamed")})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", resp.Name)

	_, err = h.event.Update(ctx, other, event.ID, &dto.UpdateEventRequest{Name: ptr("Hijacked")})
	assert.ErrorIs(t, err, domain.ErrForbidden)

	resp, err = h.event.Update(ctx, admin, event.ID, &dto.UpdateEventRequest{Venue: ptr("Hall B")})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", resp.Name)
	assert.Equal(t, "Hall B", resp.Venue)

	_, err = h.event.Update(ctx, owner, event.ID, &dto.UpdateEventRequest{})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestEventService_Update_Capacity(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	owner := h.seedAccount(t, domain.RoleOrganizer)
	event := h.createEvent(t, owner, 3)

	for i := 0; i < 2; i++ {
		_, err := h.registration.Join(ctx, h.seedAccount(t, domain.RoleMember), event.ID)
		require.NoError(t, err)
	}

	_, err := h.event.Update(ctx, owner, event.ID, &dto.UpdateEventRequest{Capacity: ptr(1)})
	assert.ErrorIs(t, err, domain.ErrCapacityBelowAttendees)

	resp, err := h.event.Update(ctx, owner, event.ID, &dto.UpdateEventRequest{Capacity: ptr(2)})
	require.NoError(t, err)
	assert.Equal(t, 2, resp.Capacity)
	assert.Equal(t, 0, resp.Remaining)

	stored, err := h.events.GetByID(ctx, event.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, stored.Capacity)

	join, err := h.registration.Join(ctx, h.seedAccount(t, domain.RoleMember), event.ID)
	require.NoError(t, err)
	assert.Equal(t, string(domain.CapacityExceeded), join.Outcome)

	_, err = h.event.Update(ctx, owner, event.ID, &dto.UpdateEventRequest{Capacity: ptr(0)})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestEventService_Delete(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	owner := h.seedAccount(t, domain.RoleOrganizer)
	other := h.seedAccount(t, domain.RoleOrganizer)
	member := h.seedAccount(t, domain.RoleMember)
	event := h.createEvent(t, owner, 10)

	_, err := h.registration.Join(ctx, member, event.ID)
	require.NoError(t, err)
	_, err = h.favorites.Bookmark(ctx, member, event.ID)
	require.NoError(t, err)

	assert.ErrorIs(t, h.event.Delete(ctx, other, event.ID), domain.ErrForbidden)
	require.NoError(t, h.event.Delete(ctx, owner, event.ID))

	_, err = h.event.Get(ctx, member, event.ID)
	assert.ErrorIs(t, err, domain.ErrEventNotFound)

	_, err = h.registration.Join(ctx, member, event.ID)
	assert.ErrorIs(t, err, domain.ErrEventNotFound)

	bookmarks, err := h.favorites.List(ctx, member)
	require.NoError(t, err)
	assert.Empty(t, bookmarks.EventIDs)

	// deleting again only repeats the cleanup
	require.NoError(t, h.event.Delete(ctx, owner, event.ID))
	assert.ErrorIs(t, h.event.Delete(ctx, other, event.ID), domain.ErrForbidden)
	assert.ErrorIs(t, h.event.Delete(ctx, owner, "00000000-0000-0000-0000-000000000000"), domain.ErrEventNotFound)
}

// failingRemoveStore fails RemoveEvent the first n times
type failingRemoveStore struct {
	*registration.MemoryStore
	failures int
}

func (s *failingRemoveStore) RemoveEvent(ctx context.Context, eventID string) error {
	if s.failures > 0 {
		s.failures--
		return errors.New("connection reset")
	}
	return s.MemoryStore.RemoveEvent(ctx, eventID)
}

func TestEventService_Delete_CleanupRetry(t *testing.T) {
	h := newHarness(t, withStore(func(m *registration.MemoryStore) registration.Store {
		return &failingRemoveStore{MemoryStore: m, failures: 1}
	}))
	ctx := context.Background()
	owner := h.seedAccount(t, domain.RoleOrganizer)
	member := h.seedAccount(t, domain.RoleMember)
	late := h.seedAccount(t, domain.RoleMember)
	event := h.createEvent(t, owner, 3)

	_, err := h.registration.Join(ctx, member, event.ID)
	require.NoError(t, err)

	err = h.event.Delete(ctx, owner, event.ID)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrUnavailable)

	// the row is gone, so leftover registration state must not accept joins
	_, err = h.event.Get(ctx, member, event.ID)
	assert.ErrorIs(t, err, domain.ErrEventNotFound)
	_, err = h.registration.Join(ctx, late, event.ID)
	assert.ErrorIs(t, err, domain.ErrEventNotFound)
	_, err = h.registration.Leave(ctx, member, event.ID)
	assert.ErrorIs(t, err, domain.ErrEventNotFound)
	_, err = h.registration.Status(ctx, member, event.ID)
	assert.ErrorIs(t, err, domain.ErrEventNotFound)

	_, err = h.store.Snapshot(ctx, event.ID)
	require.NoError(t, err, "state survives the failed cleanup")

	require.NoError(t, h.event.Delete(ctx, owner, event.ID))
	_, err = h.store.Snapshot(ctx, event.ID)
	assert.ErrorIs(t, err, domain.ErrEventNotFound)
}

func TestEventService_DemotedOwnerLosesEventRights(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	admin := h.seedAccount(t, domain.RoleAdministrator)
	owner := h.seedAccount(t, domain.RoleOrganizer)
	event := h.createEvent(t, owner, 5)

	_, err := h.account.ChangeRole(ctx, admin, owner.SubjectID, &dto.ChangeRoleRequest{Role: "member"})
	require.NoError(t, err)

	// owner still carries the organizer token
	_, err = h.event.Update(ctx, owner, event.ID, &dto.UpdateEventRequest{Name: ptr("Renamed")})
	assert.ErrorIs(t, err, domain.ErrForbidden)
	assert.ErrorIs(t, h.event.Delete(ctx, owner, event.ID), domain.ErrForbidden)

	require.NoError(t, h.account.Deactivate(ctx, admin, owner.SubjectID))
	assert.ErrorIs(t, h.event.Delete(ctx, owner, event.ID), domain.ErrUnauthenticated)

	got, err := h.event.Get(ctx, admin, event.ID)
	require.NoError(t, err)
	assert.Equal(t, "Go Meetup", got.Name)
}

// failingCapacityRepo fails SetCapacity the first n times
type failingCapacityRepo struct {
	*repository.MemoryEventRepository
	failures int
}

func (r *failingCapacityRepo) SetCapacity(ctx context.Context, id string, capacity int) error {
	if r.failures > 0 {
		r.failures--
		return errors.New("connection reset")
	}
	return r.MemoryEventRepository.SetCapacity(ctx, id, capacity)
}

func TestEventService_Update_CapacityMirrorFailure(t *testing.T) {
	h := newHarness(t, withEventRepository(func(m *repository.MemoryEventRepository) repository.EventRepository {
		return &failingCapacityRepo{MemoryEventRepository: m, failures: 1}
	}))
	ctx := context.Background()
	owner := h.seedAccount(t, domain.RoleOrganizer)
	event := h.createEvent(t, owner, 5)

	_, err := h.event.Update(ctx, owner, event.ID, &dto.UpdateEventRequest{Capacity: ptr(8)})
	assert.ErrorIs(t, err, domain.ErrUnavailable)

	got, err := h.event.Update(ctx, owner, event.ID, &dto.UpdateEventRequest{Capacity: ptr(8)})
	require.NoError(t, err)
	assert.Equal(t, 8, got.Capacity)

	stored, err := h.events.GetByID(ctx, event.ID)
	require.NoError(t, err)
	assert.Equal(t, 8, stored.Capacity)

	// lost registration state comes back with the new capacity
	require.NoError(t, h.store.RemoveEvent(ctx, event.ID))
	got, err = h.event.Get(ctx, owner, event.ID)
	require.NoError(t, err)
	assert.Equal(t, 8, got.Capacity)
}

func TestEventService_AdminDeletesAnyEvent(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	owner := h.seedAccount(t, domain.RoleOrganizer)
	admin := h.seedAccount(t, domain.RoleAdministrator)
	event := h.createEvent(t, owner, 10)

	require.NoError(t, h.event.Delete(ctx, admin, event.ID))
}

func TestEventService_RecoversLostRegistrationState(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	owner := h.seedAccount(t, domain.RoleOrganizer)
	event := h.createEvent(t, owner, 4)

	// registration state vanished while the event row survived
	require.NoError(t, h.store.RemoveEvent(ctx, event.ID))

	got, err := h.event.Get(ctx, owner, event.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, got.Capacity)
	assert.Equal(t, 0, got.AttendeeCount)
}
