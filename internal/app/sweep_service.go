package app

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/example/claimdesk/internal/core/escalation"
	"github.com/example/claimdesk/internal/ports/primary"
	"github.com/example/claimdesk/internal/ports/secondary"
)

// SweepServiceImpl re-enqueues timeout checks that were lost, for example
// after the Redis data was flushed. It relies on the deterministic job id so
// a check that still exists in the queue is never duplicated.
type SweepServiceImpl struct {
	escalationRepo  secondary.EscalationRepository
	escalationQueue secondary.JobQueue
	logger          *zap.Logger
	now             func() time.Time
}

// NewSweepService creates a new SweepService with injected dependencies.
func NewSweepService(escalationRepo secondary.EscalationRepository, escalationQueue secondary.JobQueue, logger *zap.Logger) *SweepServiceImpl {
	return &SweepServiceImpl{
		escalationRepo:  escalationRepo,
		escalationQueue: escalationQueue,
		logger:          logger,
		now:             time.Now,
	}
}

var _ primary.SweepService = (*SweepServiceImpl)(nil)

// SweepExpired re-enqueues timeout checks for expired open escalations.
// Per-record failures are collected in the result rather than aborting.
func (s *SweepServiceImpl) SweepExpired(ctx context.Context) (*primary.SweepResult, error) {
	// Queue timestamps have millisecond resolution.
	start := s.now().Truncate(time.Millisecond)
	expired, err := s.escalationRepo.ListExpired(ctx, start)
	if err != nil {
		return nil, fmt.Errorf("failed to list expired escalations: %w", err)
	}

	result := &primary.SweepResult{Expired: len(expired)}
	for _, rec := range expired {
		deadline, err := secondary.ParseTime(rec.ConfirmationDeadline)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("%s: bad deadline %q", rec.ClaimID, rec.ConfirmationDeadline))
			continue
		}

		job, err := s.escalationQueue.Add(ctx, escalation.JobCheckTimeout, secondary.JobPayload{
			ClaimID: rec.ClaimID,
			Data: map[string]any{
				"claimId":  rec.ClaimID,
				"level":    rec.CurrentLevel,
				"deadline": deadline.UTC().Format(time.RFC3339),
			},
		}, secondary.AddOptions{
			JobID:    escalation.TimeoutJobID(rec.ClaimID, rec.CurrentLevel, deadline),
			Priority: secondary.PriorityHigh,
		})
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", rec.ClaimID, err))
			continue
		}

		// Add returns the existing job for a known id. A finished job with the
		// same id stays finished and is counted in neither bucket.
		switch {
		case job.State != secondary.JobStateWaiting && job.State != secondary.JobStateDelayed && job.State != secondary.JobStateActive:
		case job.CreatedAt.Before(start):
			result.Queued++
		default:
			result.Rescheduled++
		}
	}

	s.logger.Info("sweep finished",
		zap.Int("expired", result.Expired),
		zap.Int("rescheduled", result.Rescheduled),
		zap.Int("already_queued", result.Queued),
		zap.Int("errors", len(result.Errors)),
	)
	return result, nil
}
