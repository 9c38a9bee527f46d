package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/prohmpiriya/event-registration/internal/domain"
	"github.com/prohmpiriya/event-registration/internal/dto"
	"github.com/prohmpiriya/event-registration/internal/guard"
	"github.com/prohmpiriya/event-registration/internal/registration"
	"github.com/prohmpiriya/event-registration/internal/repository"
	"github.com/prohmpiriya/event-registration/internal/token"
	"github.com/prohmpiriya/event-registration/pkg/audit"
)

// harness wires every service over in-memory storage
type harness struct {
	accounts  *repository.MemoryAccountRepository
	events    *repository.MemoryEventRepository
	bookmarks *repository.MemoryBookmarkRepository
	store     *registration.MemoryStore
	tokens    *token.Service
	logins    *loginRecorder

	auth         AuthService
	account      AccountService
	event        EventService
	registration RegistrationService
	favorites    FavoritesService
}

type loginRecorder struct {
	attempts []audit.LoginAttempt
}

func (r *loginRecorder) RecordLogin(_ context.Context, attempt audit.LoginAttempt) {
	r.attempts = append(r.attempts, attempt)
}

type harnessOptions struct {
	store  func(*registration.MemoryStore) registration.Store
	events func(*repository.MemoryEventRepository) repository.EventRepository
}

type harnessOption func(*harnessOptions)

// withStore wraps the registration store handed to the coordinator
func withStore(wrap func(*registration.MemoryStore) registration.Store) harnessOption {
	return func(o *harnessOptions) { o.store = wrap }
}

// withEventRepository wraps the event repository handed to the services
func withEventRepository(wrap func(*repository.MemoryEventRepository) repository.EventRepository) harnessOption {
	return func(o *harnessOptions) { o.events = wrap }
}

func newHarness(t *testing.T, opts ...harnessOption) *harness {
	t.Helper()

	var o harnessOptions
	for _, opt := range opts {
		opt(&o)
	}

	tokens, err := token.NewService(token.Config{Secret: "test-secret", Issuer: "test", TTL: time.Hour})
	require.NoError(t, err)

	h := &harness{
		accounts:  repository.NewMemoryAccountRepository(),
		events:    repository.NewMemoryEventRepository(),
		bookmarks: repository.NewMemoryBookmarkRepository(),
		store:     registration.NewMemoryStore(),
		tokens:    tokens,
		logins:    &loginRecorder{},
	}

	var store registration.Store = h.store
	if o.store != nil {
		store = o.store(h.store)
	}
	var events repository.EventRepository = h.events
	if o.events != nil {
		events = o.events(h.events)
	}

	coordinator, err := registration.NewCoordinator(store, registration.WithBackendName("memory"))
	require.NoError(t, err)

	g := guard.New(NewRoleSource(h.accounts))
	h.auth = NewAuthService(h.accounts, tokens, h.logins, &AuthServiceConfig{BcryptCost: bcrypt.MinCost}, nil)
	h.account = NewAccountService(h.accounts, g, nil)
	h.event = NewEventService(events, h.bookmarks, coordinator, g, nil)
	h.registration = NewRegistrationService(coordinator, events, g)
	h.favorites = NewFavoritesService(events, h.bookmarks, g)
	return h
}

// seedAccount stores an account directly and returns an assertion for it
func (h *harness) seedAccount(t *testing.T, role domain.Role) *token.Assertion {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	require.NoError(t, err)

	id := uuid.New().String()
	now := time.Now()
	require.NoError(t, h.accounts.Create(context.Background(), &domain.Account{
		ID:           id,
		Email:        id + "@example.com",
		PasswordHash: string(hash),
		DisplayName:  "User " + id[:8],
		Role:         role,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}))

	_, a, err := h.tokens.Issue(id, role)
	require.NoError(t, err)
	return a
}

func (h *harness) createEvent(t *testing.T, owner *token.Assertion, capacity int) *dto.EventResponse {
	t.Helper()
	resp, err := h.event.Create(context.Background(), owner, &dto.CreateEventRequest{
		Name:     "Go Meetup",
		Venue:    "Hall A",
		Capacity: capacity,
	})
	require.NoError(t, err)
	return resp
}

func ptr[T any](v T) *T {
	return &v
}
