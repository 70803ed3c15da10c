package store

import "time"

// AgentRecord is the storage representation of one agent's status.
//
// Field names match the upstream status wire format so the dashboard can
// render what the agents endpoint returned without a second mapping.
type AgentRecord struct {
	Name           string    `json:"name"`
	Status         string    `json:"status"`
	LastTask       string    `json:"last_task"`
	LastTaskTime   time.Time `json:"last_task_time"`
	TasksCompleted int64     `json:"tasks_completed"`
	SuccessRate    float64   `json:"success_rate"`
}

// SourceSnapshot represents the current state of one polled source.
//
// SourceSnapshot is decoupled from the poller's types and optimized for
// JSON serialization (used by the REST API and SSE).
type SourceSnapshot struct {
	// Name is the source's display name and the store key.
	Name string `json:"name"`

	// URL is the agents endpoint being polled.
	URL string `json:"url"`

	// Phase is one of "loading", "fresh", "stale" or "stopped".
	Phase string `json:"phase"`

	// Agents holds the last successfully received agents. Never null in JSON.
	Agents []AgentRecord `json:"agents"`

	Loading bool `json:"loading"`
	Stale   bool `json:"stale"`

	// Error contains the last poll error message, nil when the last poll
	// succeeded.
	Error *string `json:"error"`

	// CheckedAt is when the last poll attempt resolved.
	CheckedAt time.Time `json:"checked_at"`

	// UpdatedAt is when Agents were last replaced.
	UpdatedAt time.Time `json:"updated_at"`

	ConsecutiveFailures int `json:"consecutive_failures"`
}

// Store defines the interface for storing and subscribing to source snapshots.
//
// Store implementations must be safe for concurrent access. The pub/sub
// mechanism allows real-time updates to be pushed to connected clients
// (e.g., via Server-Sent Events).
type Store interface {
	// Update stores a snapshot and notifies all subscribers.
	// Snapshots are keyed by Name, so later updates replace earlier ones.
	Update(snap SourceSnapshot)

	// Get returns the snapshot stored under name.
	Get(name string) (SourceSnapshot, bool)

	// GetAll returns all stored snapshots sorted by name.
	// The returned slice is a copy; modifications do not affect the store.
	GetAll() []SourceSnapshot

	// Subscribe returns a channel that receives snapshot updates.
	// The returned channel has a buffer; slow consumers may miss updates.
	// Caller must call Unsubscribe when done to prevent resource leaks.
	Subscribe() <-chan SourceSnapshot

	// Unsubscribe removes a subscription and closes the channel.
	// Safe to call with a channel that was already unsubscribed.
	Unsubscribe(ch <-chan SourceSnapshot)
}
