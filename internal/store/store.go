package store

import "time"

// SensorState is the published entity state of one Paperless-NG sensor.
//
// It is the JSON shape served by the REST API and the SSE stream, decoupled
// from the root package's State so the two can evolve independently.
type SensorState struct {
	// Name is the sensor's entity name, e.g. "paperless-ng-docs.local:8000".
	Name string `json:"name"`

	// State is the connectivity status: "online", "authentication_failure" or "offline".
	State string `json:"state"`

	// Attributes is the attribute mapping. Absent values are absent keys.
	// Nil when the last refresh could not fetch both documents and tags.
	Attributes map[string]any `json:"attributes"`

	// RefreshMs is how long the refresh cycle took.
	RefreshMs int64 `json:"refresh_ms"`

	// UpdatedAt is when the refresh finished.
	UpdatedAt time.Time `json:"updated_at"`

	// Error is set when the refresh itself failed (not a remote error status).
	Error *string `json:"error,omitempty"`
}

// Store defines storing and subscribing to sensor state updates.
//
// Implementations must be safe for concurrent access.
type Store interface {
	// Update stores a state and notifies all subscribers.
	// States are keyed by Name; an update replaces the previous value.
	Update(state SensorState)

	// Get returns the current state of one sensor.
	Get(name string) (SensorState, bool)

	// GetAll returns all current states ordered by name.
	// The returned slice is a snapshot; modifications do not affect the store.
	GetAll() []SensorState

	// Subscribe returns a channel that receives state updates.
	// Caller must call Unsubscribe when done to prevent resource leaks.
	Subscribe() <-chan SensorState

	// Unsubscribe removes a subscription and closes the channel.
	// Safe to call with a channel that was already unsubscribed.
	Unsubscribe(ch <-chan SensorState)
}
