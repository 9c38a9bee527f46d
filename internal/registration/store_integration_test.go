//go:build integration

package registration

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prohmpiriya/event-registration/internal/domain"
	"github.com/prohmpiriya/event-registration/internal/testutil/containers"
)

// storeHarness creates events and accounts the store under test can see
type storeHarness struct {
	store      Store
	newEvent   func(t *testing.T, capacity int) string
	newAccount func(t *testing.T) string
}

func postgresHarness(t *testing.T) storeHarness {
	pg := containers.NewPostgresContainer(t)
	pool := pg.DB.Pool()
	owner := seedAccount(t, pool)

	return storeHarness{
		store: NewPostgresStore(pool),
		newEvent: func(t *testing.T, capacity int) string {
			id := uuid.New().String()
			_, err := pool.Exec(context.Background(),
				`INSERT INTO events (id, owner_id, name, capacity) VALUES ($1, $2, $3, $4)`,
				id, owner, "event "+id, capacity,
			)
			require.NoError(t, err)
			return id
		},
		newAccount: func(t *testing.T) string { return seedAccount(t, pool) },
	}
}

func seedAccount(t *testing.T, pool *pgxpool.Pool) string {
	t.Helper()
	id := uuid.New().String()
	_, err := pool.Exec(context.Background(),
		`INSERT INTO accounts (id, email, password_hash, display_name) VALUES ($1, $2, 'x', 'attendee')`,
		id, id+"@example.com",
	)
	require.NoError(t, err)
	return id
}

func redisHarness(t *testing.T) storeHarness {
	rc := containers.NewRedisContainer(t)
	store, err := NewRedisStore(context.Background(), rc.Client)
	require.NoError(t, err)

	return storeHarness{
		store: store,
		newEvent: func(t *testing.T, capacity int) string {
			id := uuid.New().String()
			require.NoError(t, store.InitEvent(context.Background(), id, capacity))
			return id
		},
		newAccount: func(t *testing.T) string { return uuid.New().String() },
	}
}

func TestStores_Integration(t *testing.T) {
	harnesses := map[string]func(t *testing.T) storeHarness{
		"postgres": postgresHarness,
		"redis":    redisHarness,
	}

	for name, build := range harnesses {
		t.Run(name, func(t *testing.T) {
			h := build(t)
			runStoreProperties(t, h)
		})
	}
}

func runStoreProperties(t *testing.T, h storeHarness) {
	t.Run("join until full", func(t *testing.T) {
		ctx := context.Background()
		eventID := h.newEvent(t, 2)
		a, b, c := h.newAccount(t), h.newAccount(t), h.newAccount(t)

		outcome, snap, err := h.store.Join(ctx, eventID, a)
		require.NoError(t, err)
		assert.Equal(t, domain.Joined, outcome)
		assert.Equal(t, Snapshot{Capacity: 2, AttendeeCount: 1}, snap)

		outcome, _, err = h.store.Join(ctx, eventID, a)
		require.NoError(t, err)
		assert.Equal(t, domain.AlreadyRegistered, outcome)

		outcome, _, err = h.store.Join(ctx, eventID, b)
		require.NoError(t, err)
		assert.Equal(t, domain.Joined, outcome)

		outcome, snap, err = h.store.Join(ctx, eventID, c)
		require.NoError(t, err)
		assert.Equal(t, domain.CapacityExceeded, outcome)
		assert.Equal(t, 2, snap.AttendeeCount)

		// a registered account wins over a full event
		outcome, _, err = h.store.Join(ctx, eventID, b)
		require.NoError(t, err)
		assert.Equal(t, domain.AlreadyRegistered, outcome)
	})

	t.Run("leave", func(t *testing.T) {
		ctx := context.Background()
		eventID := h.newEvent(t, 1)
		a, b := h.newAccount(t), h.newAccount(t)

		left, _, err := h.store.Leave(ctx, eventID, a)
		require.NoError(t, err)
		assert.Equal(t, domain.NotRegistered, left)

		_, _, err = h.store.Join(ctx, eventID, a)
		require.NoError(t, err)

		left, snap, err := h.store.Leave(ctx, eventID, a)
		require.NoError(t, err)
		assert.Equal(t, domain.Left, left)
		assert.Equal(t, 0, snap.AttendeeCount)

		registered, err := h.store.IsRegistered(ctx, eventID, a)
		require.NoError(t, err)
		assert.False(t, registered)

		outcome, _, err := h.store.Join(ctx, eventID, b)
		require.NoError(t, err)
		assert.Equal(t, domain.Joined, outcome)
	})

	t.Run("unknown event", func(t *testing.T) {
		ctx := context.Background()
		missing := uuid.New().String()
		account := h.newAccount(t)

		_, _, err := h.store.Join(ctx, missing, account)
		assert.ErrorIs(t, err, domain.ErrEventNotFound)
		_, _, err = h.store.Leave(ctx, missing, account)
		assert.ErrorIs(t, err, domain.ErrEventNotFound)
		_, err = h.store.Snapshot(ctx, missing)
		assert.ErrorIs(t, err, domain.ErrEventNotFound)
	})

	t.Run("set capacity", func(t *testing.T) {
		ctx := context.Background()
		eventID := h.newEvent(t, 3)
		for i := 0; i < 2; i++ {
			_, _, err := h.store.Join(ctx, eventID, h.newAccount(t))
			require.NoError(t, err)
		}

		_, err := h.store.SetCapacity(ctx, eventID, 1)
		assert.ErrorIs(t, err, domain.ErrCapacityBelowAttendees)

		snap, err := h.store.SetCapacity(ctx, eventID, 2)
		require.NoError(t, err)
		assert.Equal(t, Snapshot{Capacity: 2, AttendeeCount: 2}, snap)

		outcome, _, err := h.store.Join(ctx, eventID, h.newAccount(t))
		require.NoError(t, err)
		assert.Equal(t, domain.CapacityExceeded, outcome)
	})

	t.Run("thundering herd never oversells", func(t *testing.T) {
		ctx := context.Background()
		const (
			capacity = 10
			workers  = 100
		)
		eventID := h.newEvent(t, capacity)

		accounts := make([]string, workers)
		for i := range accounts {
			accounts[i] = h.newAccount(t)
		}

		var (
			wg       sync.WaitGroup
			joined   atomic.Int32
			rejected atomic.Int32
		)
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func(accountID string) {
				defer wg.Done()
				outcome, snap, err := h.store.Join(ctx, eventID, accountID)
				if !assert.NoError(t, err) {
					return
				}
				assert.LessOrEqual(t, snap.AttendeeCount, capacity)
				switch outcome {
				case domain.Joined:
					joined.Add(1)
				case domain.CapacityExceeded:
					rejected.Add(1)
				default:
					t.Errorf("unexpected outcome %s", outcome)
				}
			}(accounts[i])
		}
		wg.Wait()

		assert.Equal(t, int32(capacity), joined.Load())
		assert.Equal(t, int32(workers-capacity), rejected.Load())

		snap, err := h.store.Snapshot(ctx, eventID)
		require.NoError(t, err)
		assert.Equal(t, capacity, snap.AttendeeCount)
	})

	t.Run("last seat under contention", func(t *testing.T) {
		ctx := context.Background()
		const workers = 200
		eventID := h.newEvent(t, 1)

		accounts := make([]string, workers)
		for i := range accounts {
			accounts[i] = h.newAccount(t)
		}

		var (
			wg           sync.WaitGroup
			winners      atomic.Int32
			losers       atomic.Int32
			totalLatency atomic.Int64
		)
		start := time.Now()
		for _, accountID := range accounts {
			wg.Add(1)
			go func() {
				defer wg.Done()
				reqStart := time.Now()
				outcome, _, err := h.store.Join(ctx, eventID, accountID)
				totalLatency.Add(int64(time.Since(reqStart)))
				if !assert.NoError(t, err) {
					return
				}
				if outcome == domain.Joined {
					winners.Add(1)
				} else {
					losers.Add(1)
				}
			}()
		}
		wg.Wait()

		assert.Equal(t, int32(1), winners.Load())
		assert.Equal(t, int32(workers-1), losers.Load())
		t.Logf("last seat: %d requests in %v, average latency %v",
			workers, time.Since(start), time.Duration(totalLatency.Load()/workers))
	})

	t.Run("same account racing itself joins once", func(t *testing.T) {
		ctx := context.Background()
		eventID := h.newEvent(t, 5)
		account := h.newAccount(t)

		var (
			wg     sync.WaitGroup
			joined atomic.Int32
		)
		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				outcome, _, err := h.store.Join(ctx, eventID, account)
				if assert.NoError(t, err) && outcome == domain.Joined {
					joined.Add(1)
				}
			}()
		}
		wg.Wait()

		assert.Equal(t, int32(1), joined.Load())
		snap, err := h.store.Snapshot(ctx, eventID)
		require.NoError(t, err)
		assert.Equal(t, 1, snap.AttendeeCount, fmt.Sprintf("event %s", eventID))
	})
}
