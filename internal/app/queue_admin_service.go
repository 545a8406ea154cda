package app

import (
	"context"
	"fmt"

	"github.com/example/claimdesk/internal/ports/primary"
	"github.com/example/claimdesk/internal/ports/secondary"
)

// QueueAdminServiceImpl implements the QueueAdminService interface.
type QueueAdminServiceImpl struct {
	queues []secondary.JobQueue
}

// NewQueueAdminService creates a new QueueAdminService over the given queues.
func NewQueueAdminService(queues ...secondary.JobQueue) *QueueAdminServiceImpl {
	return &QueueAdminServiceImpl{queues: queues}
}

var _ primary.QueueAdminService = (*QueueAdminServiceImpl)(nil)

// Stats returns job counts for every queue.
func (s *QueueAdminServiceImpl) Stats(ctx context.Context) ([]primary.QueueStats, error) {
	out := make([]primary.QueueStats, 0, len(s.queues))
	for _, q := range s.queues {
		st, err := q.Stats(ctx)
		if err != nil {
			return nil, err
		}
		out = append(out, primary.QueueStats{
			Queue:     q.Name(),
			Waiting:   st.Waiting,
			Active:    st.Active,
			Completed: st.Completed,
			Failed:    st.Failed,
			Delayed:   st.Delayed,
		})
	}
	return out, nil
}

// GetJob retrieves a job from a named queue.
func (s *QueueAdminServiceImpl) GetJob(ctx context.Context, queue, jobID string) (*primary.JobInfo, error) {
	q, err := s.queue(queue)
	if err != nil {
		return nil, err
	}
	job, err := q.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	return &primary.JobInfo{
		ID:           job.ID,
		Queue:        job.Queue,
		Type:         job.Type,
		ClaimID:      job.ClaimID,
		Priority:     job.Priority,
		State:        job.State,
		AttemptsMade: job.AttemptsMade,
		MaxAttempts:  job.MaxAttempts,
		LastError:    job.LastError,
		CreatedAt:    job.CreatedAt,
		ProcessAt:    job.ProcessAt,
	}, nil
}

// RemoveJob cancels a waiting or delayed job.
func (s *QueueAdminServiceImpl) RemoveJob(ctx context.Context, queue, jobID string) (bool, error) {
	q, err := s.queue(queue)
	if err != nil {
		return false, err
	}
	return q.Remove(ctx, jobID)
}

func (s *QueueAdminServiceImpl) queue(name string) (secondary.JobQueue, error) {
	for _, q := range s.queues {
		if q.Name() == name {
			return q, nil
		}
	}
	return nil, fmt.Errorf("unknown queue: %s", name)
}
