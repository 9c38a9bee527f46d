package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/prohmpiriya/event-registration/internal/domain"
	"github.com/prohmpiriya/event-registration/pkg/database"
)

// PostgresBookmarkRepository implements BookmarkRepository using PostgreSQL
type PostgresBookmarkRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresBookmarkRepository creates a new PostgresBookmarkRepository
func NewPostgresBookmarkRepository(pool *pgxpool.Pool) *PostgresBookmarkRepository {
	return &PostgresBookmarkRepository{pool: pool}
}

// Add inserts a bookmark; the primary key makes repeated adds no-ops
func (r *PostgresBookmarkRepository) Add(ctx context.Context, accountID, eventID string) (bool, error) {
	if !isUUID(eventID) {
		return false, domain.ErrEventNotFound
	}
	tag, err := r.pool.Exec(ctx, `
		INSERT INTO bookmarks (account_id, event_id, created_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (account_id, event_id) DO NOTHING
	`, accountID, eventID)
	if database.IsForeignKeyViolation(err) {
		return false, domain.ErrEventNotFound
	}
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// Remove deletes a bookmark
func (r *PostgresBookmarkRepository) Remove(ctx context.Context, accountID, eventID string) (bool, error) {
	if !isUUID(eventID) {
		return false, nil
	}
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM bookmarks WHERE account_id = $1 AND event_id = $2`,
		accountID, eventID,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// ListByAccount returns bookmarked ids of live events
func (r *PostgresBookmarkRepository) ListByAccount(ctx context.Context, accountID string) ([]string, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT b.event_id::text
		FROM bookmarks b
		JOIN events e ON e.id = b.event_id AND e.deleted_at IS NULL
		WHERE b.account_id = $1
		ORDER BY b.created_at DESC, b.event_id
	`, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// DeleteByEvent removes all bookmarks of an event
func (r *PostgresBookmarkRepository) DeleteByEvent(ctx context.Context, eventID string) error {
	if !isUUID(eventID) {
		return nil
	}
	_, err := r.pool.Exec(ctx, `DELETE FROM bookmarks WHERE event_id = $1`, eventID)
	return err
}
