// Package app contains the application layer - service implementations and effect execution.
package app

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/example/claimdesk/internal/core/effects"
	"github.com/example/claimdesk/internal/core/notification"
	"github.com/example/claimdesk/internal/ports/secondary"
)

// EffectExecutor interprets and executes effects.
// This is the "Imperative Shell" - the only place I/O happens.
type EffectExecutor interface {
	Execute(ctx context.Context, effs []effects.Effect) error
}

// QueueEffectExecutor implements EffectExecutor on top of the job queues.
type QueueEffectExecutor struct {
	queues map[string]secondary.JobQueue
	logger *zap.Logger
	now    func() time.Time
}

// NewEffectExecutor creates an executor that routes effects to queues by name.
func NewEffectExecutor(logger *zap.Logger, queues ...secondary.JobQueue) *QueueEffectExecutor {
	return NewEffectExecutorWithClock(logger, time.Now, queues...)
}

// NewEffectExecutorWithClock creates an executor with an injected clock for delay computation.
func NewEffectExecutorWithClock(logger *zap.Logger, now func() time.Time, queues ...secondary.JobQueue) *QueueEffectExecutor {
	byName := make(map[string]secondary.JobQueue, len(queues))
	for _, q := range queues {
		byName[q.Name()] = q
	}
	return &QueueEffectExecutor{queues: byName, logger: logger, now: now}
}

var _ EffectExecutor = (*QueueEffectExecutor)(nil)

// Execute processes a slice of effects, executing each in sequence.
func (e *QueueEffectExecutor) Execute(ctx context.Context, effs []effects.Effect) error {
	for _, eff := range effs {
		if err := e.executeOne(ctx, eff); err != nil {
			return fmt.Errorf("failed to execute %s effect: %w", eff.EffectType(), err)
		}
	}
	return nil
}

func (e *QueueEffectExecutor) executeOne(ctx context.Context, eff effects.Effect) error {
	switch typed := eff.(type) {
	case effects.EnqueueEffect:
		return e.executeEnqueue(ctx, typed)
	case effects.CancelEffect:
		e.executeCancel(ctx, typed)
		return nil
	case effects.NotifyEffect:
		return e.executeNotify(ctx, typed)
	case effects.LogEffect:
		e.executeLog(typed)
		return nil
	default:
		return fmt.Errorf("unknown effect type: %T", eff)
	}
}

func (e *QueueEffectExecutor) queue(name string) (secondary.JobQueue, error) {
	q, ok := e.queues[name]
	if !ok {
		return nil, fmt.Errorf("unknown queue: %s", name)
	}
	return q, nil
}

func (e *QueueEffectExecutor) executeEnqueue(ctx context.Context, eff effects.EnqueueEffect) error {
	q, err := e.queue(eff.Queue)
	if err != nil {
		return err
	}

	var delay time.Duration
	if !eff.RunAt.IsZero() {
		delay = max(0, eff.RunAt.Sub(e.now()))
	}

	job, err := q.Add(ctx, eff.JobType, secondary.JobPayload{ClaimID: eff.ClaimID, Data: eff.Data}, secondary.AddOptions{
		Delay:    delay,
		Priority: string(eff.Priority),
		JobID:    eff.JobID,
	})
	if err != nil {
		return err
	}

	e.logger.Debug("job enqueued",
		zap.String("queue", eff.Queue),
		zap.String("job_type", eff.JobType),
		zap.String("job_id", job.ID),
		zap.String("claim_id", eff.ClaimID),
		zap.Duration("delay", delay),
	)
	return nil
}

// executeCancel never fails the caller: a job that could not be removed
// re-reads stored state when it runs and finds nothing to do.
func (e *QueueEffectExecutor) executeCancel(ctx context.Context, eff effects.CancelEffect) {
	q, err := e.queue(eff.Queue)
	if err != nil {
		e.logger.Warn("cancel skipped", zap.String("job_id", eff.JobID), zap.Error(err))
		return
	}

	removed, err := q.Remove(ctx, eff.JobID)
	if err != nil {
		e.logger.Warn("failed to cancel job",
			zap.String("queue", eff.Queue),
			zap.String("job_id", eff.JobID),
			zap.Error(err),
		)
		return
	}
	e.logger.Debug("job cancelled",
		zap.String("queue", eff.Queue),
		zap.String("job_id", eff.JobID),
		zap.Bool("removed", removed),
	)
}

func (e *QueueEffectExecutor) executeNotify(ctx context.Context, eff effects.NotifyEffect) error {
	jobType, err := notification.JobTypeFor(notification.Audience(eff.Audience))
	if err != nil {
		return err
	}

	data := make(map[string]any, len(eff.Data)+3)
	for k, v := range eff.Data {
		data[k] = v
	}
	data["event"] = eff.Event
	data["audience"] = eff.Audience
	if eff.AgentID != "" {
		data["agentId"] = eff.AgentID
	}

	return e.executeEnqueue(ctx, effects.EnqueueEffect{
		Queue:    notification.QueueNotifications,
		JobType:  jobType,
		ClaimID:  eff.ClaimID,
		JobID:    eff.JobID,
		Priority: eff.Priority,
		Data:     data,
	})
}

func (e *QueueEffectExecutor) executeLog(eff effects.LogEffect) {
	fields := make([]zap.Field, 0, len(eff.Fields))
	for k, v := range eff.Fields {
		fields = append(fields, zap.Any(k, v))
	}

	switch eff.Level {
	case "debug":
		e.logger.Debug(eff.Message, fields...)
	case "warn":
		e.logger.Warn(eff.Message, fields...)
	case "error":
		e.logger.Error(eff.Message, fields...)
	default:
		e.logger.Info(eff.Message, fields...)
	}
}
