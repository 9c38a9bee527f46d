package service

import (
	"context"

	"github.com/prohmpiriya/event-registration/internal/domain"
	"github.com/prohmpiriya/event-registration/internal/dto"
	"github.com/prohmpiriya/event-registration/internal/guard"
	"github.com/prohmpiriya/event-registration/internal/repository"
	"github.com/prohmpiriya/event-registration/internal/token"
)

// FavoritesService manages the caller's bookmarked events
type FavoritesService interface {
	// Bookmark adds an event to the caller's bookmarks
	Bookmark(ctx context.Context, a *token.Assertion, eventID string) (*dto.BookmarkResponse, error)
	// Unbookmark removes an event from the caller's bookmarks
	Unbookmark(ctx context.Context, a *token.Assertion, eventID string) (*dto.BookmarkResponse, error)
	// List returns the caller's bookmarked event ids
	List(ctx context.Context, a *token.Assertion) (*dto.ListBookmarksResponse, error)
}

type favoritesService struct {
	events    repository.EventRepository
	bookmarks repository.BookmarkRepository
	guard     *guard.Guard
}

// NewFavoritesService creates a new FavoritesService
func NewFavoritesService(
	events repository.EventRepository,
	bookmarks repository.BookmarkRepository,
	g *guard.Guard,
) FavoritesService {
	return &favoritesService{
		events:    events,
		bookmarks: bookmarks,
		guard:     g,
	}
}

// Bookmark is idempotent; a second call reports AlreadyBookmarked
func (s *favoritesService) Bookmark(ctx context.Context, a *token.Assertion, eventID string) (*dto.BookmarkResponse, error) {
	if err := s.guard.Authorize(a, domain.CapManageBookmarks, ""); err != nil {
		return nil, err
	}
	if err := s.requireEvent(ctx, eventID); err != nil {
		return nil, err
	}

	added, err := s.bookmarks.Add(ctx, a.SubjectID, eventID)
	if err != nil {
		return nil, err
	}

	outcome := domain.AlreadyBookmarked
	if added {
		outcome = domain.Bookmarked
	}
	return &dto.BookmarkResponse{EventID: eventID, Outcome: string(outcome), Changed: outcome.Changed()}, nil
}

// Unbookmark is idempotent; removing an absent bookmark reports NotBookmarked
func (s *favoritesService) Unbookmark(ctx context.Context, a *token.Assertion, eventID string) (*dto.BookmarkResponse, error) {
	if err := s.guard.Authorize(a, domain.CapManageBookmarks, ""); err != nil {
		return nil, err
	}
	if err := s.requireEvent(ctx, eventID); err != nil {
		return nil, err
	}

	removed, err := s.bookmarks.Remove(ctx, a.SubjectID, eventID)
	if err != nil {
		return nil, err
	}

	outcome := domain.NotBookmarked
	if removed {
		outcome = domain.Removed
	}
	return &dto.BookmarkResponse{EventID: eventID, Outcome: string(outcome), Changed: outcome.Changed()}, nil
}

// List returns the caller's bookmarks, newest first
func (s *favoritesService) List(ctx context.Context, a *token.Assertion) (*dto.ListBookmarksResponse, error) {
	if err := s.guard.Authorize(a, domain.CapManageBookmarks, ""); err != nil {
		return nil, err
	}

	ids, err := s.bookmarks.ListByAccount(ctx, a.SubjectID)
	if err != nil {
		return nil, err
	}
	return &dto.ListBookmarksResponse{EventIDs: ids}, nil
}

func (s *favoritesService) requireEvent(ctx context.Context, eventID string) error {
	event, err := s.events.GetByID(ctx, eventID)
	if err != nil {
		return err
	}
	if event == nil {
		return domain.ErrEventNotFound
	}
	return nil
}
