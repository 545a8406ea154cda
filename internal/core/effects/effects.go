// Package effects defines effect types as data structures representing I/O operations.
// This is the foundation of the Functional Core / Imperative Shell pattern.
// Effects are pure data - they describe what should happen, not how.
package effects

import "time"

// Effect is the base interface for all effects.
// Effects represent I/O operations as data that can be interpreted by the shell.
type Effect interface {
	// EffectType returns a string identifier for the effect type.
	EffectType() string
}

// Priority is the queue priority attached to scheduled work.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// Rank orders priorities for dequeueing: lower rank is served first.
func (p Priority) Rank() int {
	switch p {
	case PriorityUrgent:
		return 0
	case PriorityHigh:
		return 1
	case PriorityMedium:
		return 2
	default:
		return 3
	}
}

// Valid reports whether p is one of the known priorities.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// LogEffect represents a logging operation.
type LogEffect struct {
	Level   string
	Message string
	Fields  map[string]any
}

func (e LogEffect) EffectType() string { return "log" }

// EnqueueEffect schedules a job on a named queue.
// A zero RunAt means "as soon as possible".
type EnqueueEffect struct {
	Queue    string
	JobType  string
	ClaimID  string
	JobID    string // Empty lets the queue assign one
	RunAt    time.Time
	Priority Priority
	Data     map[string]any
}

func (e EnqueueEffect) EffectType() string { return "enqueue" }

// CancelEffect removes a not-yet-processed job by id.
type CancelEffect struct {
	Queue string
	JobID string
}

func (e CancelEffect) EffectType() string { return "cancel" }

// NotifyEffect asks for a message to be delivered to an audience.
// The shell turns it into a job on the notification queue.
type NotifyEffect struct {
	Event    string
	Audience string // "agent", "customer", "management"
	ClaimID  string
	AgentID  string // Set when Audience is "agent"
	JobID    string // Optional, makes the notification idempotent
	Priority Priority
	Data     map[string]any
}

func (e NotifyEffect) EffectType() string { return "notify" }
