package repository

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prohmpiriya/event-registration/internal/domain"
)

func newAccount(email string) *domain.Account {
	now := time.Now()
	return &domain.Account{
		ID:           uuid.New().String(),
		Email:        email,
		PasswordHash: "hash",
		DisplayName:  "Alice",
		Role:         domain.RoleMember,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func TestMemoryAccountRepository_CreateAndLookup(t *testing.T) {
	repo := NewMemoryAccountRepository()
	ctx := context.Background()

	account := newAccount("alice@example.com")
	require.NoError(t, repo.Create(ctx, account))

	found, err := repo.GetByEmail(ctx, "  ALICE@example.com")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, account.ID, found.ID)

	found, err = repo.GetByID(ctx, account.ID)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "alice@example.com", found.Email)

	// returned accounts are copies
	found.Role = domain.RoleAdministrator
	again, _ := repo.GetByID(ctx, account.ID)
	assert.Equal(t, domain.RoleMember, again.Role)
}

func TestMemoryAccountRepository_NotFound(t *testing.T) {
	repo := NewMemoryAccountRepository()
	ctx := context.Background()

	found, err := repo.GetByEmail(ctx, "nobody@example.com")
	assert.NoError(t, err)
	assert.Nil(t, found)

	found, err = repo.GetByID(ctx, uuid.New().String())
	assert.NoError(t, err)
	assert.Nil(t, found)

	assert.ErrorIs(t, repo.UpdateRole(ctx, "missing", domain.RoleOrganizer), domain.ErrAccountNotFound)
	assert.ErrorIs(t, repo.Deactivate(ctx, "missing"), domain.ErrAccountNotFound)
}

func TestMemoryAccountRepository_DuplicateEmail(t *testing.T) {
	repo := NewMemoryAccountRepository()
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, newAccount("alice@example.com")))
	err := repo.Create(ctx, newAccount("Alice@Example.com"))
	assert.ErrorIs(t, err, domain.ErrIdentifierTaken)
}

func TestMemoryAccountRepository_ConcurrentCreateSameEmail(t *testing.T) {
	repo := NewMemoryAccountRepository()
	ctx := context.Background()

	const n = 50
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		created int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := repo.Create(ctx, newAccount("race@example.com")); err == nil {
				mu.Lock()
				created++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, created)
}

func TestMemoryAccountRepository_Updates(t *testing.T) {
	repo := NewMemoryAccountRepository()
	ctx := context.Background()

	account := newAccount("bob@example.com")
	require.NoError(t, repo.Create(ctx, account))

	require.NoError(t, repo.UpdateRole(ctx, account.ID, domain.RoleOrganizer))
	require.NoError(t, repo.UpdateProfile(ctx, account.ID, "Bobby"))
	require.NoError(t, repo.Deactivate(ctx, account.ID))

	found, err := repo.GetByID(ctx, account.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleOrganizer, found.Role)
	assert.Equal(t, "Bobby", found.DisplayName)
	assert.False(t, found.IsActive)
	require.NotNil(t, found.DeactivatedAt)
	assert.False(t, found.CanAuthenticate())

	first := *found.DeactivatedAt
	require.NoError(t, repo.Deactivate(ctx, account.ID))
	found, _ = repo.GetByID(ctx, account.ID)
	assert.True(t, first.Equal(*found.DeactivatedAt))
}

func newEvent(name string, created time.Time) *domain.Event {
	return &domain.Event{
		ID:        uuid.New().String(),
		OwnerID:   uuid.New().String(),
		Name:      name,
		Capacity:  10,
		Status:    domain.EventStatusPublished,
		CreatedAt: created,
		UpdatedAt: created,
	}
}

func TestMemoryEventRepository_CRUD(t *testing.T) {
	repo := NewMemoryEventRepository()
	ctx := context.Background()

	event := newEvent("Go Meetup", time.Now())
	require.NoError(t, repo.Create(ctx, event))

	found, err := repo.GetByID(ctx, event.ID)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "Go Meetup", found.Name)

	found.Name = "Go Meetup #2"
	found.Venue = "Bangkok"
	found.Capacity = 99
	require.NoError(t, repo.Update(ctx, found))

	updated, _ := repo.GetByID(ctx, event.ID)
	assert.Equal(t, "Go Meetup #2", updated.Name)
	assert.Equal(t, "Bangkok", updated.Venue)
	assert.Equal(t, 10, updated.Capacity, "capacity is not written by Update")

	require.NoError(t, repo.SoftDelete(ctx, event.ID))
	gone, err := repo.GetByID(ctx, event.ID)
	assert.NoError(t, err)
	assert.Nil(t, gone)

	deleted, err := repo.GetByIDWithDeleted(ctx, event.ID)
	require.NoError(t, err)
	require.NotNil(t, deleted)
	assert.True(t, deleted.IsDeleted())

	assert.ErrorIs(t, repo.SoftDelete(ctx, event.ID), domain.ErrEventNotFound)
	assert.ErrorIs(t, repo.Update(ctx, found), domain.ErrEventNotFound)
}

func TestMemoryEventRepository_List(t *testing.T) {
	repo := NewMemoryEventRepository()
	ctx := context.Background()

	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	var ids []string
	for i := 0; i < 5; i++ {
		e := newEvent(fmt.Sprintf("event-%d", i), base.Add(time.Duration(i)*time.Hour))
		require.NoError(t, repo.Create(ctx, e))
		ids = append(ids, e.ID)
	}
	require.NoError(t, repo.SoftDelete(ctx, ids[0]))

	events, total, err := repo.List(ctx, 2, 0)
	require.NoError(t, err)
	assert.Equal(t, 4, total)
	require.Len(t, events, 2)
	assert.Equal(t, "event-4", events[0].Name)
	assert.Equal(t, "event-3", events[1].Name)

	events, total, err = repo.List(ctx, 10, 3)
	require.NoError(t, err)
	assert.Equal(t, 4, total)
	require.Len(t, events, 1)
	assert.Equal(t, "event-1", events[0].Name)

	events, total, err = repo.List(ctx, 10, 20)
	require.NoError(t, err)
	assert.Equal(t, 4, total)
	assert.Empty(t, events)
}

func TestMemoryBookmarkRepository(t *testing.T) {
	repo := NewMemoryBookmarkRepository()
	ctx := context.Background()

	added, err := repo.Add(ctx, "alice", "e1")
	require.NoError(t, err)
	assert.True(t, added)

	added, err = repo.Add(ctx, "alice", "e1")
	require.NoError(t, err)
	assert.False(t, added, "second add is a no-op")

	_, _ = repo.Add(ctx, "alice", "e2")
	_, _ = repo.Add(ctx, "bob", "e1")

	ids, err := repo.ListByAccount(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, []string{"e2", "e1"}, ids)

	removed, err := repo.Remove(ctx, "alice", "e2")
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = repo.Remove(ctx, "alice", "e2")
	require.NoError(t, err)
	assert.False(t, removed)

	require.NoError(t, repo.DeleteByEvent(ctx, "e1"))
	ids, _ = repo.ListByAccount(ctx, "alice")
	assert.Empty(t, ids)
	ids, _ = repo.ListByAccount(ctx, "bob")
	assert.Empty(t, ids)

	ids, err = repo.ListByAccount(ctx, "nobody")
	require.NoError(t, err)
	assert.NotNil(t, ids)
	assert.Empty(t, ids)
}
