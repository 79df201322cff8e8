// Package analytics records best-effort product events. Emission failures are
// logged by callers, never propagated; nothing in the engine depends on an
// event having been written.
package analytics

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
)

// Event represents a single tracked product event
type Event struct {
	UserID     string                 `json:"user_id"`
	Name       string                 `json:"name"`
	Properties map[string]interface{} `json:"properties,omitempty"`
}

// Tracker emits product events.
type Tracker interface {
	Track(ctx context.Context, event Event) error
}

// EventTracker persists events into PostgreSQL
type EventTracker struct {
	db *sql.DB
}

// NewEventTracker creates a new EventTracker
func NewEventTracker(db *sql.DB) *EventTracker {
	return &EventTracker{db: db}
}

// Track records an event
func (t *EventTracker) Track(ctx context.Context, event Event) error {
	properties, err := json.Marshal(event.Properties)
	if err != nil {
		return fmt.Errorf("failed to marshal event properties: %w", err)
	}

	query := `
		INSERT INTO org_events (user_id, event, properties)
		VALUES ($1, $2, $3)
	`
	if _, err := t.db.ExecContext(ctx, query, event.UserID, event.Name, properties); err != nil {
		return fmt.Errorf("failed to track event: %w", err)
	}
	return nil
}

// MemoryTracker records events in memory. Used in tests.
type MemoryTracker struct {
	Events []Event

	// FailTrack, when set, is returned from Track.
	FailTrack error
}

// NewMemoryTracker creates an empty MemoryTracker
func NewMemoryTracker() *MemoryTracker {
	return &MemoryTracker{}
}

// Track appends the event.
func (t *MemoryTracker) Track(ctx context.Context, event Event) error {
	if t.FailTrack != nil {
		return t.FailTrack
	}
	t.Events = append(t.Events, event)
	return nil
}

// Named returns the recorded events with the given name.
func (t *MemoryTracker) Named(name string) []Event {
	var out []Event
	for _, e := range t.Events {
		if e.Name == name {
			out = append(out, e)
		}
	}
	return out
}
