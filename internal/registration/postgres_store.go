package registration

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/prohmpiriya/event-registration/internal/domain"
)

// PgxConn is the subset of pgxpool.Pool used by PostgresStore
type PgxConn interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore keeps membership in event_attendees and the counter on the
// events row. Every mutation runs in one transaction holding the event row
// lock, which serializes operations per event.
type PostgresStore struct {
	db PgxConn
}

// NewPostgresStore creates a PostgresStore
func NewPostgresStore(db PgxConn) *PostgresStore {
	return &PostgresStore{db: db}
}

// checkIDs rejects identifiers the uuid columns would fail to parse
func checkIDs(eventID, accountID string) error {
	if _, err := uuid.Parse(eventID); err != nil {
		return domain.ErrEventNotFound
	}
	if accountID == "" {
		return nil
	}
	if _, err := uuid.Parse(accountID); err != nil {
		return domain.NewValidationError("account_id", "invalid account id")
	}
	return nil
}

// InitEvent verifies the events row exists. The row itself, including its
// capacity, is written by the event repository.
func (s *PostgresStore) InitEvent(ctx context.Context, eventID string, capacity int) error {
	if err := checkIDs(eventID, ""); err != nil {
		return err
	}
	var exists bool
	err := s.db.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM events WHERE id = $1 AND deleted_at IS NULL)`,
		eventID,
	).Scan(&exists)
	if err != nil {
		return err
	}
	if !exists {
		return domain.ErrEventNotFound
	}
	return nil
}

// SetCapacity updates capacity with a precondition on the current count
func (s *PostgresStore) SetCapacity(ctx context.Context, eventID string, capacity int) (Snapshot, error) {
	if err := domain.ValidateCapacity(capacity); err != nil {
		return Snapshot{}, err
	}
	if err := checkIDs(eventID, ""); err != nil {
		return Snapshot{}, err
	}

	var snap Snapshot
	err := s.db.QueryRow(ctx, `
		UPDATE events SET capacity = $2, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL AND attendee_count <= $2
		RETURNING capacity, attendee_count
	`, eventID, capacity).Scan(&snap.Capacity, &snap.AttendeeCount)
	if err == nil {
		return snap, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return Snapshot{}, err
	}

	current, err := s.Snapshot(ctx, eventID)
	if err != nil {
		return Snapshot{}, err
	}
	return current, domain.ErrCapacityBelowAttendees
}

// RemoveEvent deletes the attendee rows of an event
func (s *PostgresStore) RemoveEvent(ctx context.Context, eventID string) error {
	if _, err := uuid.Parse(eventID); err != nil {
		return nil
	}
	return s.withTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM event_attendees WHERE event_id = $1`, eventID); err != nil {
			return err
		}
		_, err := tx.Exec(ctx, `UPDATE events SET attendee_count = 0, updated_at = NOW() WHERE id = $1`, eventID)
		return err
	})
}

// Join inserts the membership row when a seat is free
func (s *PostgresStore) Join(ctx context.Context, eventID, accountID string) (domain.JoinOutcome, Snapshot, error) {
	if err := checkIDs(eventID, accountID); err != nil {
		return "", Snapshot{}, err
	}

	var (
		outcome domain.JoinOutcome
		snap    Snapshot
	)
	err := s.withTx(ctx, func(tx pgx.Tx) error {
		var err error
		snap, err = lockEvent(ctx, tx, eventID)
		if err != nil {
			return err
		}

		member, err := isMember(ctx, tx, eventID, accountID)
		if err != nil {
			return err
		}
		if member {
			outcome = domain.AlreadyRegistered
			return nil
		}
		if snap.AttendeeCount >= snap.Capacity {
			outcome = domain.CapacityExceeded
			return nil
		}

		tag, err := tx.Exec(ctx, `
			INSERT INTO event_attendees (event_id, account_id, joined_at)
			VALUES ($1, $2, NOW())
			ON CONFLICT (event_id, account_id) DO NOTHING
		`, eventID, accountID)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			// the row lock makes this unreachable unless the table is written out of band
			return fmt.Errorf("membership insert for %s skipped: %w", eventID, errUnexpectedReply)
		}

		if _, err := tx.Exec(ctx, `
			UPDATE events SET attendee_count = attendee_count + 1, updated_at = NOW()
			WHERE id = $1
		`, eventID); err != nil {
			return err
		}
		snap.AttendeeCount++
		outcome = domain.Joined
		return nil
	})
	if err != nil {
		return "", Snapshot{}, err
	}
	return outcome, snap, nil
}

// Leave deletes the membership row when present
func (s *PostgresStore) Leave(ctx context.Context, eventID, accountID string) (domain.LeaveOutcome, Snapshot, error) {
	if err := checkIDs(eventID, accountID); err != nil {
		return "", Snapshot{}, err
	}

	var (
		outcome domain.LeaveOutcome
		snap    Snapshot
	)
	err := s.withTx(ctx, func(tx pgx.Tx) error {
		var err error
		snap, err = lockEvent(ctx, tx, eventID)
		if err != nil {
			return err
		}

		tag, err := tx.Exec(ctx,
			`DELETE FROM event_attendees WHERE event_id = $1 AND account_id = $2`,
			eventID, accountID,
		)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			outcome = domain.NotRegistered
			return nil
		}

		if _, err := tx.Exec(ctx, `
			UPDATE events SET attendee_count = GREATEST(attendee_count - 1, 0), updated_at = NOW()
			WHERE id = $1
		`, eventID); err != nil {
			return err
		}
		if snap.AttendeeCount > 0 {
			snap.AttendeeCount--
		}
		outcome = domain.Left
		return nil
	})
	if err != nil {
		return "", Snapshot{}, err
	}
	return outcome, snap, nil
}

// IsRegistered reports membership of a live event
func (s *PostgresStore) IsRegistered(ctx context.Context, eventID, accountID string) (bool, error) {
	if err := checkIDs(eventID, accountID); err != nil {
		return false, err
	}

	var registered bool
	err := s.db.QueryRow(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM event_attendees a WHERE a.event_id = e.id AND a.account_id = $2
		)
		FROM events e
		WHERE e.id = $1 AND e.deleted_at IS NULL
	`, eventID, accountID).Scan(&registered)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, domain.ErrEventNotFound
	}
	if err != nil {
		return false, err
	}
	return registered, nil
}

// Snapshot reads capacity and attendee count
func (s *PostgresStore) Snapshot(ctx context.Context, eventID string) (Snapshot, error) {
	if err := checkIDs(eventID, ""); err != nil {
		return Snapshot{}, err
	}

	var snap Snapshot
	err := s.db.QueryRow(ctx,
		`SELECT capacity, attendee_count FROM events WHERE id = $1 AND deleted_at IS NULL`,
		eventID,
	).Scan(&snap.Capacity, &snap.AttendeeCount)
	if errors.Is(err, pgx.ErrNoRows) {
		return Snapshot{}, domain.ErrEventNotFound
	}
	if err != nil {
		return Snapshot{}, err
	}
	return snap, nil
}

func (s *PostgresStore) withTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// lockEvent takes the row lock that serializes all membership changes of one event
func lockEvent(ctx context.Context, tx pgx.Tx, eventID string) (Snapshot, error) {
	var snap Snapshot
	err := tx.QueryRow(ctx, `
		SELECT capacity, attendee_count FROM events
		WHERE id = $1 AND deleted_at IS NULL
		FOR UPDATE
	`, eventID).Scan(&snap.Capacity, &snap.AttendeeCount)
	if errors.Is(err, pgx.ErrNoRows) {
		return Snapshot{}, domain.ErrEventNotFound
	}
	return snap, err
}

func isMember(ctx context.Context, tx pgx.Tx, eventID, accountID string) (bool, error) {
	var member bool
	err := tx.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM event_attendees WHERE event_id = $1 AND account_id = $2)`,
		eventID, accountID,
	).Scan(&member)
	return member, err
}
