package audit

import (
	"context"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresSink writes entries to the audit_logs table with one batch round trip
type PostgresSink struct {
	pool *pgxpool.Pool
}

// NewPostgresSink creates a PostgresSink
func NewPostgresSink(pool *pgxpool.Pool) *PostgresSink {
	return &PostgresSink{pool: pool}
}

const insertEntry = `
	INSERT INTO audit_logs (
		id, account_id, account_role, action, resource_type, resource_id,
		status_code, ip_address, user_agent, request_id, trace_id, metadata, created_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
`

// Write inserts entries; individual row failures are reported together
func (s *PostgresSink) Write(ctx context.Context, entries []*Entry) error {
	batch := &pgx.Batch{}
	for _, e := range entries {
		metadata := e.Metadata
		if metadata == nil {
			metadata = map[string]interface{}{}
		}
		batch.Queue(insertEntry,
			e.ID, e.AccountID, e.AccountRole, string(e.Action), e.ResourceType, e.ResourceID,
			e.StatusCode, e.IPAddress, e.UserAgent, e.RequestID, e.TraceID, metadata, e.CreatedAt,
		)
	}

	results := s.pool.SendBatch(ctx, batch)
	defer results.Close()

	var failed int
	var firstErr error
	for range entries {
		if _, err := results.Exec(); err != nil {
			failed++
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	if firstErr != nil {
		return fmt.Errorf("%d of %d audit entries failed: %w", failed, len(entries), firstErr)
	}
	return nil
}

// MemorySink keeps entries in memory, for tests and the memory backend
type MemorySink struct {
	mu      sync.Mutex
	entries []*Entry
}

// NewMemorySink creates an empty MemorySink
func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

// Write appends entries
func (s *MemorySink) Write(_ context.Context, entries []*Entry) error {
	s.mu.Lock()
	s.entries = append(s.entries, entries...)
	s.mu.Unlock()
	return nil
}

// Entries returns a copy of the collected entries
func (s *MemorySink) Entries() []*Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Entry, len(s.entries))
	copy(out, s.entries)
	return out
}

// Reset clears collected entries
func (s *MemorySink) Reset() {
	s.mu.Lock()
	s.entries = nil
	s.mu.Unlock()
}
