package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/prohmpiriya/event-registration/internal/domain"
)

// AccountRepository is the credential store. Lookups return (nil, nil) when
// the account does not exist.
type AccountRepository interface {
	// Create stores a new account; a taken email returns domain.ErrIdentifierTaken
	Create(ctx context.Context, account *domain.Account) error
	// GetByID retrieves an account by ID
	GetByID(ctx context.Context, id string) (*domain.Account, error)
	// GetByEmail retrieves an account by normalized email
	GetByEmail(ctx context.Context, email string) (*domain.Account, error)
	// UpdateRole sets the role; a missing account returns domain.ErrAccountNotFound
	UpdateRole(ctx context.Context, id string, role domain.Role) error
	// UpdateProfile sets the display name
	UpdateProfile(ctx context.Context, id, displayName string) error
	// Deactivate marks the account inactive. Accounts are never hard deleted.
	Deactivate(ctx context.Context, id string) error
}

// EventRepository stores event metadata. Capacity and attendee count are
// owned by the registration coordinator and are not written by Update;
// SetCapacity only mirrors a change the coordinator already made.
type EventRepository interface {
	// Create stores a new event
	Create(ctx context.Context, event *domain.Event) error
	// GetByID retrieves a live event by ID
	GetByID(ctx context.Context, id string) (*domain.Event, error)
	// GetByIDWithDeleted retrieves an event by ID even if it was soft deleted
	GetByIDWithDeleted(ctx context.Context, id string) (*domain.Event, error)
	// List retrieves live events, newest first, with the total count
	List(ctx context.Context, limit, offset int) ([]*domain.Event, int, error)
	// Update writes name, description, venue, start time and status
	Update(ctx context.Context, event *domain.Event) error
	// SetCapacity records a capacity already accepted by the registration coordinator
	SetCapacity(ctx context.Context, id string, capacity int) error
	// SoftDelete marks the event deleted; a missing event returns domain.ErrEventNotFound
	SoftDelete(ctx context.Context, id string) error
}

// BookmarkRepository stores each account's bookmarked event ids
type BookmarkRepository interface {
	// Add inserts the bookmark and reports whether it was new
	Add(ctx context.Context, accountID, eventID string) (bool, error)
	// Remove deletes the bookmark and reports whether it existed
	Remove(ctx context.Context, accountID, eventID string) (bool, error)
	// ListByAccount returns the bookmarked event ids, newest first
	ListByAccount(ctx context.Context, accountID string) ([]string, error)
	// DeleteByEvent removes every bookmark of an event
	DeleteByEvent(ctx context.Context, eventID string) error
}

// isUUID reports whether id can be compared against a uuid column
func isUUID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
