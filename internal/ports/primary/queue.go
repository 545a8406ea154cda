package primary

import (
	"context"
	"time"
)

// QueueAdminService defines the primary port for queue observability and control.
type QueueAdminService interface {
	// Stats returns job counts for every queue.
	Stats(ctx context.Context) ([]QueueStats, error)

	// GetJob retrieves a job from a named queue.
	GetJob(ctx context.Context, queue, jobID string) (*JobInfo, error)

	// RemoveJob cancels a waiting or delayed job.
	RemoveJob(ctx context.Context, queue, jobID string) (bool, error)
}

// QueueStats holds job counts for one queue.
type QueueStats struct {
	Queue     string
	Waiting   int64
	Active    int64
	Completed int64
	Failed    int64
	Delayed   int64
}

// JobInfo is a job at the port boundary.
type JobInfo struct {
	ID           string
	Queue        string
	Type         string
	ClaimID      string
	Priority     string
	State        string
	AttemptsMade int
	MaxAttempts  int
	LastError    string
	CreatedAt    time.Time
	ProcessAt    time.Time
}

// SweepService defines the primary port for the reconciliation sweep.
type SweepService interface {
	// SweepExpired re-enqueues timeout checks for expired open escalations.
	SweepExpired(ctx context.Context) (*SweepResult, error)
}

// SweepResult reports what a sweep found.
type SweepResult struct {
	Expired     int
	Rescheduled int // Checks added by this sweep
	Queued      int // Checks that were already waiting, delayed or running
	Errors      []string
}
