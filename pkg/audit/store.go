package audit

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Store persists audit entries.
type Store interface {
	Record(ctx context.Context, entry Entry) error
	FindByActor(ctx context.Context, actorID string, limit int) ([]Entry, error)
}

// PostgresStore implements Store using PostgreSQL
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgresStore
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Record inserts an audit entry
func (s *PostgresStore) Record(ctx context.Context, entry Entry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	query := `
		INSERT INTO audit_logs (id, request_id, actor_id, method, path, status, duration_ms, creation_time)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := s.db.ExecContext(ctx, query,
		entry.ID, entry.RequestID, entry.ActorID, entry.Method, entry.Path,
		entry.Status, entry.Duration.Milliseconds(), entry.Time,
	)
	if err != nil {
		return fmt.Errorf("failed to record audit entry: %w", err)
	}
	return nil
}

// FindByActor lists the most recent entries for an actor
func (s *PostgresStore) FindByActor(ctx context.Context, actorID string, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `
		SELECT id, request_id, actor_id, method, path, status, duration_ms, creation_time
		FROM audit_logs
		WHERE actor_id = $1
		ORDER BY creation_time DESC
		LIMIT $2
	`
	rows, err := s.db.QueryContext(ctx, query, actorID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit entries: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var entry Entry
		var durationMS int64
		if err := rows.Scan(
			&entry.ID, &entry.RequestID, &entry.ActorID, &entry.Method, &entry.Path,
			&entry.Status, &durationMS, &entry.Time,
		); err != nil {
			return nil, fmt.Errorf("failed to scan audit entry: %w", err)
		}
		entry.Duration = time.Duration(durationMS) * time.Millisecond
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// MemoryStore is an in-memory Store for tests
type MemoryStore struct {
	mu      sync.Mutex
	entries []Entry
}

// NewMemoryStore creates a new MemoryStore
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Record appends an audit entry
func (s *MemoryStore) Record(ctx context.Context, entry Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	s.entries = append(s.entries, entry)
	return nil
}

// FindByActor lists entries for an actor, most recent first
func (s *MemoryStore) FindByActor(ctx context.Context, actorID string, limit int) ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if limit <= 0 {
		limit = 50
	}
	var entries []Entry
	for i := len(s.entries) - 1; i >= 0 && len(entries) < limit; i-- {
		if s.entries[i].ActorID == actorID {
			entries = append(entries, s.entries[i])
		}
	}
	return entries, nil
}

// Entries returns a copy of everything recorded so far.
func (s *MemoryStore) Entries() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Entry, len(s.entries))
	copy(out, s.entries)
	return out
}
