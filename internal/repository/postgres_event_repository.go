package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/prohmpiriya/event-registration/internal/domain"
)

const eventColumns = `id, owner_id, name, description, venue, starts_at, capacity, attendee_count,
	status, created_at, updated_at, deleted_at`

// PostgresEventRepository implements EventRepository using PostgreSQL
type PostgresEventRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresEventRepository creates a new PostgresEventRepository
func NewPostgresEventRepository(pool *pgxpool.Pool) *PostgresEventRepository {
	return &PostgresEventRepository{pool: pool}
}

func scanEvent(row pgx.Row, extra ...any) (*domain.Event, error) {
	event := &domain.Event{}
	dest := []any{
		&event.ID,
		&event.OwnerID,
		&event.Name,
		&event.Description,
		&event.Venue,
		&event.StartsAt,
		&event.Capacity,
		&event.AttendeeCount,
		&event.Status,
		&event.CreatedAt,
		&event.UpdatedAt,
		&event.DeletedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return event, nil
}

// Create creates a new event
func (r *PostgresEventRepository) Create(ctx context.Context, event *domain.Event) error {
	query := `
		INSERT INTO events (id, owner_id, name, description, venue, starts_at, capacity,
			attendee_count, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, 0, $8, $9, $10)
	`
	_, err := r.pool.Exec(ctx, query,
		event.ID,
		event.OwnerID,
		event.Name,
		event.Description,
		event.Venue,
		event.StartsAt,
		event.Capacity,
		event.Status,
		event.CreatedAt,
		event.UpdatedAt,
	)
	return err
}

// GetByID retrieves a live event by ID
func (r *PostgresEventRepository) GetByID(ctx context.Context, id string) (*domain.Event, error) {
	if !isUUID(id) {
		return nil, nil
	}
	query := `SELECT ` + eventColumns + ` FROM events WHERE id = $1 AND deleted_at IS NULL`
	return scanEvent(r.pool.QueryRow(ctx, query, id))
}

// GetByIDWithDeleted retrieves an event by ID, including soft deleted rows
func (r *PostgresEventRepository) GetByIDWithDeleted(ctx context.Context, id string) (*domain.Event, error) {
	if !isUUID(id) {
		return nil, nil
	}
	query := `SELECT ` + eventColumns + ` FROM events WHERE id = $1`
	return scanEvent(r.pool.QueryRow(ctx, query, id))
}

// List retrieves live events, newest first
func (r *PostgresEventRepository) List(ctx context.Context, limit, offset int) ([]*domain.Event, int, error) {
	query := `
		SELECT ` + eventColumns + `, COUNT(*) OVER() AS total
		FROM events
		WHERE deleted_at IS NULL
		ORDER BY created_at DESC, id
		LIMIT $1 OFFSET $2
	`
	rows, err := r.pool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var (
		events []*domain.Event
		total  int
	)
	for rows.Next() {
		event, err := scanEvent(rows, &total)
		if err != nil {
			return nil, 0, err
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	// an offset past the end returns no rows, so count separately
	if len(events) == 0 && offset > 0 {
		if err := r.pool.QueryRow(ctx,
			`SELECT COUNT(*) FROM events WHERE deleted_at IS NULL`,
		).Scan(&total); err != nil {
			return nil, 0, err
		}
	}
	return events, total, nil
}

// Update writes the descriptive fields of an event
func (r *PostgresEventRepository) Update(ctx context.Context, event *domain.Event) error {
	if !isUUID(event.ID) {
		return domain.ErrEventNotFound
	}
	tag, err := r.pool.Exec(ctx, `
		UPDATE events
		SET name = $2, description = $3, venue = $4, starts_at = $5, status = $6, updated_at = $7
		WHERE id = $1 AND deleted_at IS NULL
	`,
		event.ID,
		event.Name,
		event.Description,
		event.Venue,
		event.StartsAt,
		event.Status,
		event.UpdatedAt,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrEventNotFound
	}
	return nil
}

// SetCapacity mirrors a capacity change. The count guard keeps it a no-op
// when an older change arrives after a newer one has admitted more attendees.
func (r *PostgresEventRepository) SetCapacity(ctx context.Context, id string, capacity int) error {
	if !isUUID(id) {
		return domain.ErrEventNotFound
	}
	_, err := r.pool.Exec(ctx, `
		UPDATE events SET capacity = $2, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL AND attendee_count <= $2 AND capacity <> $2
	`, id, capacity)
	return err
}

// SoftDelete marks the event deleted
func (r *PostgresEventRepository) SoftDelete(ctx context.Context, id string) error {
	if !isUUID(id) {
		return domain.ErrEventNotFound
	}
	tag, err := r.pool.Exec(ctx,
		`UPDATE events SET deleted_at = NOW(), updated_at = NOW() WHERE id = $1 AND deleted_at IS NULL`,
		id,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrEventNotFound
	}
	return nil
}
