package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/prohmpiriya/event-registration/internal/domain"
	"github.com/prohmpiriya/event-registration/pkg/database"
)

const accountColumns = `id, email, password_hash, display_name, role, is_active, created_at, updated_at, deactivated_at`

// PostgresAccountRepository implements AccountRepository using PostgreSQL
type PostgresAccountRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresAccountRepository creates a new PostgresAccountRepository
func NewPostgresAccountRepository(pool *pgxpool.Pool) *PostgresAccountRepository {
	return &PostgresAccountRepository{pool: pool}
}

func (r *PostgresAccountRepository) scanAccount(row pgx.Row) (*domain.Account, error) {
	account := &domain.Account{}
	err := row.Scan(
		&account.ID,
		&account.Email,
		&account.PasswordHash,
		&account.DisplayName,
		&account.Role,
		&account.IsActive,
		&account.CreatedAt,
		&account.UpdatedAt,
		&account.DeactivatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return account, nil
}

// Create creates a new account
func (r *PostgresAccountRepository) Create(ctx context.Context, account *domain.Account) error {
	query := `
		INSERT INTO accounts (id, email, password_hash, display_name, role, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := r.pool.Exec(ctx, query,
		account.ID,
		account.Email,
		account.PasswordHash,
		account.DisplayName,
		account.Role,
		account.IsActive,
		account.CreatedAt,
		account.UpdatedAt,
	)
	if database.IsUniqueViolation(err) {
		return domain.ErrIdentifierTaken
	}
	return err
}

// GetByID retrieves an account by ID
func (r *PostgresAccountRepository) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	if !isUUID(id) {
		return nil, nil
	}
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`
	return r.scanAccount(r.pool.QueryRow(ctx, query, id))
}

// GetByEmail retrieves an account by email, case-insensitively
func (r *PostgresAccountRepository) GetByEmail(ctx context.Context, email string) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE lower(email) = lower($1)`
	return r.scanAccount(r.pool.QueryRow(ctx, query, email))
}

// UpdateRole sets the account's role
func (r *PostgresAccountRepository) UpdateRole(ctx context.Context, id string, role domain.Role) error {
	if !isUUID(id) {
		return domain.ErrAccountNotFound
	}
	tag, err := r.pool.Exec(ctx,
		`UPDATE accounts SET role = $2, updated_at = NOW() WHERE id = $1`,
		id, role,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrAccountNotFound
	}
	return nil
}

// UpdateProfile sets the display name
func (r *PostgresAccountRepository) UpdateProfile(ctx context.Context, id, displayName string) error {
	if !isUUID(id) {
		return domain.ErrAccountNotFound
	}
	tag, err := r.pool.Exec(ctx,
		`UPDATE accounts SET display_name = $2, updated_at = NOW() WHERE id = $1`,
		id, displayName,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrAccountNotFound
	}
	return nil
}

// Deactivate marks the account inactive, keeping the first deactivation time
func (r *PostgresAccountRepository) Deactivate(ctx context.Context, id string) error {
	if !isUUID(id) {
		return domain.ErrAccountNotFound
	}
	tag, err := r.pool.Exec(ctx, `
		UPDATE accounts
		SET is_active = FALSE, deactivated_at = COALESCE(deactivated_at, NOW()), updated_at = NOW()
		WHERE id = $1
	`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrAccountNotFound
	}
	return nil
}
