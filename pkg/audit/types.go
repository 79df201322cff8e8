package audit

import "time"

// Entry is one recorded mutation.
type Entry struct {
	ID        string        `json:"id"`
	RequestID string        `json:"request_id"`
	ActorID   string        `json:"actor_id"`
	Method    string        `json:"method"`
	Path      string        `json:"path"`
	Status    int           `json:"status"`
	Duration  time.Duration `json:"duration"`
	Time      time.Time     `json:"time"`
}
