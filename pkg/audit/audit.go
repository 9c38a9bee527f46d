// Package audit buffers audit entries and writes them to a sink in batches
// from a background worker. Writing never blocks the request path.
package audit

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/prohmpiriya/event-registration/pkg/logger"
	"github.com/prohmpiriya/event-registration/pkg/telemetry"
)

// Action is the kind of audited action
type Action string

const (
	ActionCreate      Action = "create"
	ActionUpdate      Action = "update"
	ActionDelete      Action = "delete"
	ActionLogin       Action = "login"
	ActionLoginFailed Action = "login_failed"
	ActionRegister    Action = "register"
	ActionJoin        Action = "join"
	ActionLeave       Action = "leave"
	ActionBookmark    Action = "bookmark"
	ActionUnbookmark  Action = "unbookmark"
	ActionRoleChange  Action = "role_change"
	ActionDeactivate  Action = "deactivate"
)

// Entry is a single audit log row
type Entry struct {
	ID           string                 `json:"id"`
	AccountID    *string                `json:"account_id,omitempty"`
	AccountRole  string                 `json:"account_role,omitempty"`
	Action       Action                 `json:"action"`
	ResourceType string                 `json:"resource_type"`
	ResourceID   *string                `json:"resource_id,omitempty"`
	StatusCode   int                    `json:"status_code"`
	IPAddress    string                 `json:"ip_address,omitempty"`
	UserAgent    string                 `json:"user_agent,omitempty"`
	RequestID    string                 `json:"request_id,omitempty"`
	TraceID      string                 `json:"trace_id,omitempty"`
	Metadata     map[string]interface{} `json:"metadata,omitempty"`
	CreatedAt    time.Time              `json:"created_at"`
}

// Sink persists batches of entries
type Sink interface {
	Write(ctx context.Context, entries []*Entry) error
}

// Config holds audit logger settings
type Config struct {
	// BufferSize is the number of entries held before new ones are dropped
	BufferSize int
	// FlushInterval is how often a partial batch is written
	FlushInterval time.Duration
	// BatchSize is the maximum number of entries per sink write
	BatchSize int
	// WriteTimeout bounds a single sink write
	WriteTimeout time.Duration
}

// DefaultConfig returns default configuration
func DefaultConfig() *Config {
	return &Config{
		BufferSize:    1000,
		FlushInterval: 5 * time.Second,
		BatchSize:     100,
		WriteTimeout:  10 * time.Second,
	}
}

// Logger handles async audit logging
type Logger struct {
	config *Config
	sink   Sink
	log    *logger.Logger
	buffer chan *Entry
	wg     sync.WaitGroup

	mu      sync.RWMutex
	closed  bool
	dropped atomic.Int64
}

// NewLogger starts a Logger writing to sink
func NewLogger(sink Sink, config *Config, log *logger.Logger) *Logger {
	if config == nil {
		config = DefaultConfig()
	}
	if config.BufferSize <= 0 {
		config.BufferSize = 1000
	}
	if config.FlushInterval <= 0 {
		config.FlushInterval = 5 * time.Second
	}
	if config.BatchSize <= 0 {
		config.BatchSize = 100
	}
	if config.WriteTimeout <= 0 {
		config.WriteTimeout = 10 * time.Second
	}
	if log == nil {
		log = logger.NewNop()
	}

	l := &Logger{
		config: config,
		sink:   sink,
		log:    log.Named("audit"),
		buffer: make(chan *Entry, config.BufferSize),
	}

	l.wg.Add(1)
	go l.worker()

	return l
}

// Log queues an entry. A full buffer or closed logger drops it.
func (l *Logger) Log(entry *Entry) {
	if entry == nil {
		return
	}
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}

	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.closed {
		l.dropped.Add(1)
		return
	}

	select {
	case l.buffer <- entry:
	default:
		l.dropped.Add(1)
	}
}

// LoginAttempt describes an authentication attempt
type LoginAttempt struct {
	AccountID string
	Role      string
	Success   bool
	Reason    string
	IPAddress string
	UserAgent string
	RequestID string
}

// RecordLogin queues a login entry. Login history is informational only.
func (l *Logger) RecordLogin(ctx context.Context, attempt LoginAttempt) {
	entry := &Entry{
		Action:       ActionLogin,
		ResourceType: "session",
		AccountRole:  attempt.Role,
		IPAddress:    attempt.IPAddress,
		UserAgent:    attempt.UserAgent,
		RequestID:    attempt.RequestID,
		TraceID:      telemetry.GetTraceID(ctx),
	}
	if attempt.AccountID != "" {
		id := attempt.AccountID
		entry.AccountID = &id
	}
	if !attempt.Success {
		entry.Action = ActionLoginFailed
		entry.Metadata = map[string]interface{}{"reason": attempt.Reason}
	}
	l.Log(entry)
}

// Dropped returns how many entries were discarded
func (l *Logger) Dropped() int64 {
	return l.dropped.Load()
}

// Close stops accepting entries and flushes what is buffered
func (l *Logger) Close() error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil
	}
	l.closed = true
	close(l.buffer)
	l.mu.Unlock()

	l.wg.Wait()
	if n := l.Dropped(); n > 0 {
		l.log.Warn("audit entries dropped", zap.Int64("count", n))
	}
	return nil
}

func (l *Logger) worker() {
	defer l.wg.Done()

	ticker := time.NewTicker(l.config.FlushInterval)
	defer ticker.Stop()

	batch := make([]*Entry, 0, l.config.BatchSize)

	for {
		select {
		case entry, ok := <-l.buffer:
			if !ok {
				l.flush(batch)
				return
			}
			batch = append(batch, entry)
			if len(batch) >= l.config.BatchSize {
				l.flush(batch)
				batch = make([]*Entry, 0, l.config.BatchSize)
			}
		case <-ticker.C:
			if len(batch) > 0 {
				l.flush(batch)
				batch = make([]*Entry, 0, l.config.BatchSize)
			}
		}
	}
}

func (l *Logger) flush(entries []*Entry) {
	if len(entries) == 0 || l.sink == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), l.config.WriteTimeout)
	defer cancel()

	// audit failures must not affect requests
	if err := l.sink.Write(ctx, entries); err != nil {
		l.log.Error("failed to write audit entries",
			zap.Int("count", len(entries)),
			zap.Error(err),
		)
	}
}
