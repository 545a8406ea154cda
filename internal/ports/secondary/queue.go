package secondary

import (
	"context"
	"time"
)

// Job priorities, highest first.
const (
	PriorityUrgent = "urgent"
	PriorityHigh   = "high"
	PriorityMedium = "medium"
	PriorityLow    = "low"
)

// Job states as reported by a queue.
const (
	JobStateWaiting   = "waiting"
	JobStateDelayed   = "delayed"
	JobStateActive    = "active"
	JobStateCompleted = "completed"
	JobStateFailed    = "failed"
)

// JobQueue defines the secondary port for a durable, priority-ordered job queue.
// Delivery is at-least-once: handlers must tolerate re-delivery.
type JobQueue interface {
	// Name returns the queue name.
	Name() string

	// Add enqueues a job. A duplicate JobID is a no-op that returns the existing job.
	Add(ctx context.Context, jobType string, payload JobPayload, opts AddOptions) (*Job, error)

	// Remove cancels a waiting or delayed job. It reports whether a job was removed.
	Remove(ctx context.Context, jobID string) (bool, error)

	// GetJob retrieves a job by id.
	GetJob(ctx context.Context, jobID string) (*Job, error)

	// Stats returns job counts per state.
	Stats(ctx context.Context) (QueueStats, error)
}

// JobPayload is the caller-supplied part of a job.
type JobPayload struct {
	ClaimID string
	Data    map[string]any
}

// AddOptions control how a job is scheduled.
type AddOptions struct {
	Delay    time.Duration // Zero makes the job visible immediately
	Priority string        // Empty means medium
	JobID    string        // Empty lets the queue assign one
	Attempts int           // Zero uses the queue default
	Backoff  time.Duration // Zero uses the queue default
}

// Job is a queue-managed work item.
type Job struct {
	ID           string
	Queue        string
	Type         string
	ClaimID      string
	Data         map[string]any
	Priority     string
	State        string
	AttemptsMade int
	MaxAttempts  int
	Backoff      time.Duration // Base of the exponential retry delay
	LastError    string
	CreatedAt    time.Time
	ProcessAt    time.Time // When a delayed job becomes visible
	FinishedAt   time.Time
}

// QueueStats holds job counts per state.
type QueueStats struct {
	Waiting   int64
	Active    int64
	Completed int64
	Failed    int64
	Delayed   int64
}

// JobHandler processes one job. A returned error schedules a retry.
type JobHandler func(ctx context.Context, job *Job) error
