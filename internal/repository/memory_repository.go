package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/prohmpiriya/event-registration/internal/domain"
)

// MemoryAccountRepository is an in-memory AccountRepository for tests and
// single-process deployments
type MemoryAccountRepository struct {
	mu      sync.RWMutex
	byID    map[string]*domain.Account
	byEmail map[string]string
}

// NewMemoryAccountRepository creates an empty MemoryAccountRepository
func NewMemoryAccountRepository() *MemoryAccountRepository {
	return &MemoryAccountRepository{
		byID:    make(map[string]*domain.Account),
		byEmail: make(map[string]string),
	}
}

// Create stores a copy of account
func (r *MemoryAccountRepository) Create(_ context.Context, account *domain.Account) error {
	email := domain.NormalizeEmail(account.Email)

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, taken := r.byEmail[email]; taken {
		return domain.ErrIdentifierTaken
	}
	stored := *account
	r.byID[account.ID] = &stored
	r.byEmail[email] = account.ID
	return nil
}

// GetByID returns a copy of the account
func (r *MemoryAccountRepository) GetByID(_ context.Context, id string) (*domain.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	account, ok := r.byID[id]
	if !ok {
		return nil, nil
	}
	out := *account
	return &out, nil
}

// GetByEmail returns a copy of the account with the given email
func (r *MemoryAccountRepository) GetByEmail(ctx context.Context, email string) (*domain.Account, error) {
	r.mu.RLock()
	id, ok := r.byEmail[domain.NormalizeEmail(email)]
	r.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	return r.GetByID(ctx, id)
}

// UpdateRole sets the account's role
func (r *MemoryAccountRepository) UpdateRole(_ context.Context, id string, role domain.Role) error {
	return r.update(id, func(a *domain.Account) { a.Role = role })
}

// UpdateProfile sets the display name
func (r *MemoryAccountRepository) UpdateProfile(_ context.Context, id, displayName string) error {
	return r.update(id, func(a *domain.Account) { a.DisplayName = displayName })
}

// Deactivate marks the account inactive
func (r *MemoryAccountRepository) Deactivate(_ context.Context, id string) error {
	return r.update(id, func(a *domain.Account) {
		a.IsActive = false
		if a.DeactivatedAt == nil {
			now := a.UpdatedAt
			a.DeactivatedAt = &now
		}
	})
}

func (r *MemoryAccountRepository) update(id string, fn func(*domain.Account)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	account, ok := r.byID[id]
	if !ok {
		return domain.ErrAccountNotFound
	}
	account.UpdatedAt = time.Now()
	fn(account)
	return nil
}

// MemoryEventRepository is an in-memory EventRepository
type MemoryEventRepository struct {
	mu     sync.RWMutex
	events map[string]*domain.Event
}

// NewMemoryEventRepository creates an empty MemoryEventRepository
func NewMemoryEventRepository() *MemoryEventRepository {
	return &MemoryEventRepository{events: make(map[string]*domain.Event)}
}

// Create stores a copy of event
func (r *MemoryEventRepository) Create(_ context.Context, event *domain.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored := *event
	stored.AttendeeCount = 0
	r.events[event.ID] = &stored
	return nil
}

// GetByID returns a copy of a live event
func (r *MemoryEventRepository) GetByID(_ context.Context, id string) (*domain.Event, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	event, ok := r.events[id]
	if !ok || event.IsDeleted() {
		return nil, nil
	}
	out := *event
	return &out, nil
}

// GetByIDWithDeleted returns a copy of the event, deleted or not
func (r *MemoryEventRepository) GetByIDWithDeleted(_ context.Context, id string) (*domain.Event, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	event, ok := r.events[id]
	if !ok {
		return nil, nil
	}
	out := *event
	return &out, nil
}

// List returns live events, newest first
func (r *MemoryEventRepository) List(_ context.Context, limit, offset int) ([]*domain.Event, int, error) {
	r.mu.RLock()
	live := make([]*domain.Event, 0, len(r.events))
	for _, event := range r.events {
		if !event.IsDeleted() {
			out := *event
			live = append(live, &out)
		}
	}
	r.mu.RUnlock()

	sort.Slice(live, func(i, j int) bool {
		if live[i].CreatedAt.Equal(live[j].CreatedAt) {
			return live[i].ID < live[j].ID
		}
		return live[i].CreatedAt.After(live[j].CreatedAt)
	})

	total := len(live)
	if offset >= total {
		return nil, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return live[offset:end], total, nil
}

// Update writes the descriptive fields of an event
func (r *MemoryEventRepository) Update(_ context.Context, event *domain.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.events[event.ID]
	if !ok || stored.IsDeleted() {
		return domain.ErrEventNotFound
	}
	stored.Name = event.Name
	stored.Description = event.Description
	stored.Venue = event.Venue
	stored.StartsAt = event.StartsAt
	stored.Status = event.Status
	stored.UpdatedAt = event.UpdatedAt
	return nil
}

// SetCapacity mirrors a capacity change
func (r *MemoryEventRepository) SetCapacity(_ context.Context, id string, capacity int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	event, ok := r.events[id]
	if !ok || event.IsDeleted() {
		return domain.ErrEventNotFound
	}
	event.Capacity = capacity
	return nil
}

// SoftDelete marks the event deleted
func (r *MemoryEventRepository) SoftDelete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	event, ok := r.events[id]
	if !ok || event.IsDeleted() {
		return domain.ErrEventNotFound
	}
	now := time.Now()
	event.DeletedAt = &now
	event.UpdatedAt = now
	return nil
}

type bookmark struct {
	eventID string
	seq     uint64
}

// MemoryBookmarkRepository is an in-memory BookmarkRepository. It does not
// check that events exist; the favorites service does that.
type MemoryBookmarkRepository struct {
	mu        sync.Mutex
	seq       uint64
	byAccount map[string]map[string]bookmark
}

// NewMemoryBookmarkRepository creates an empty MemoryBookmarkRepository
func NewMemoryBookmarkRepository() *MemoryBookmarkRepository {
	return &MemoryBookmarkRepository{byAccount: make(map[string]map[string]bookmark)}
}

// Add inserts the bookmark if absent
func (r *MemoryBookmarkRepository) Add(_ context.Context, accountID, eventID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	set, ok := r.byAccount[accountID]
	if !ok {
		set = make(map[string]bookmark)
		r.byAccount[accountID] = set
	}
	if _, exists := set[eventID]; exists {
		return false, nil
	}
	r.seq++
	set[eventID] = bookmark{eventID: eventID, seq: r.seq}
	return true, nil
}

// Remove deletes the bookmark if present
func (r *MemoryBookmarkRepository) Remove(_ context.Context, accountID, eventID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	set := r.byAccount[accountID]
	if _, exists := set[eventID]; !exists {
		return false, nil
	}
	delete(set, eventID)
	return true, nil
}

// ListByAccount returns bookmarked event ids, newest first
func (r *MemoryBookmarkRepository) ListByAccount(_ context.Context, accountID string) ([]string, error) {
	r.mu.Lock()
	marks := make([]bookmark, 0, len(r.byAccount[accountID]))
	for _, b := range r.byAccount[accountID] {
		marks = append(marks, b)
	}
	r.mu.Unlock()

	sort.Slice(marks, func(i, j int) bool { return marks[i].seq > marks[j].seq })

	ids := make([]string, 0, len(marks))
	for _, b := range marks {
		ids = append(ids, b.eventID)
	}
	return ids, nil
}

// DeleteByEvent removes the event from every account's bookmarks
func (r *MemoryBookmarkRepository) DeleteByEvent(_ context.Context, eventID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, set := range r.byAccount {
		delete(set, eventID)
	}
	return nil
}
