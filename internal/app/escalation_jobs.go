package app

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/example/claimdesk/internal/core/escalation"
	"github.com/example/claimdesk/internal/ports/primary"
	"github.com/example/claimdesk/internal/ports/secondary"
)

// HandlerRegistry is implemented by queue workers.
type HandlerRegistry interface {
	Handle(jobType string, h secondary.JobHandler)
}

// EscalationJobs runs the jobs of the escalations queue.
// Every handler recomputes from stored state, so re-delivery is harmless.
type EscalationJobs struct {
	service *EscalationServiceImpl
	logger  *zap.Logger
}

// NewEscalationJobs creates the escalation job handlers.
func NewEscalationJobs(service *EscalationServiceImpl, logger *zap.Logger) *EscalationJobs {
	return &EscalationJobs{service: service, logger: logger}
}

// Register attaches every escalation job type to r.
func (j *EscalationJobs) Register(r HandlerRegistry) {
	r.Handle(escalation.JobCreateEscalation, j.CreateEscalation)
	r.Handle(escalation.JobCheckTimeout, j.CheckTimeout)
	r.Handle(escalation.JobProcessConfirmation, j.ProcessConfirmation)
	r.Handle(escalation.JobAutoEscalate, j.AutoEscalate)
}

// CreateEscalation handles create_escalation. A cycle that is already open
// means the job was delivered twice or requested twice; neither is retried.
func (j *EscalationJobs) CreateEscalation(ctx context.Context, job *secondary.Job) error {
	req := primary.CreateEscalationRequest{
		ClaimID: claimIDOf(job),
		UserID:  dataString(job.Data, "userId"),
		Reason:  dataString(job.Data, "reason"),
		Urgency: dataString(job.Data, "urgency"),
	}

	_, err := j.service.CreateEscalation(ctx, req)
	if errors.Is(err, escalation.ErrEscalationOpen) {
		j.logger.Info("escalation already open, request ignored",
			zap.String("job_id", job.ID),
			zap.String("claim_id", req.ClaimID),
		)
		return nil
	}
	return err
}

// CheckTimeout handles check_timeout.
func (j *EscalationJobs) CheckTimeout(ctx context.Context, job *secondary.Job) error {
	claimID := claimIDOf(job)
	outcome, err := j.service.CheckTimeout(ctx, claimID)
	if err != nil {
		return err
	}

	fields := []zap.Field{
		zap.String("job_id", job.ID),
		zap.String("claim_id", claimID),
		zap.String("outcome", string(outcome)),
	}
	if outcome == escalation.OutcomeNoop {
		j.logger.Debug("timeout check found nothing to do", fields...)
	} else {
		j.logger.Warn("confirmation deadline missed", fields...)
	}
	return nil
}

// ProcessConfirmation handles process_confirmation. Actions on a closed
// escalation are dropped.
func (j *EscalationJobs) ProcessConfirmation(ctx context.Context, job *secondary.Job) error {
	req := primary.ProcessConfirmationRequest{
		ClaimID: claimIDOf(job),
		AgentID: dataString(job.Data, "agentId"),
		Action:  dataString(job.Data, "action"),
		Notes:   dataString(job.Data, "notes"),
	}

	_, err := j.service.ProcessConfirmation(ctx, req)
	if errors.Is(err, escalation.ErrEscalationClosed) {
		j.logger.Info("action on resolved escalation ignored",
			zap.String("job_id", job.ID),
			zap.String("claim_id", req.ClaimID),
			zap.String("action", req.Action),
		)
		return nil
	}
	return err
}

// AutoEscalate handles auto_escalate.
func (j *EscalationJobs) AutoEscalate(ctx context.Context, job *secondary.Job) error {
	fromLevel, err := dataInt(job.Data, "fromLevel")
	if err != nil {
		return fmt.Errorf("auto_escalate job %s: %w", job.ID, err)
	}

	_, err = j.service.AutoEscalate(ctx, claimIDOf(job), fromLevel)
	return err
}

func claimIDOf(job *secondary.Job) string {
	if job.ClaimID != "" {
		return job.ClaimID
	}
	return dataString(job.Data, "claimId")
}

func dataString(m map[string]any, key string) string {
	switch v := m[key].(type) {
	case string:
		return v
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

// dataInt reads an integer that may have been decoded from JSON as float64.
func dataInt(m map[string]any, key string) (int, error) {
	switch v := m[key].(type) {
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case float64:
		return int(v), nil
	case string:
		n, err := strconv.Atoi(v)
		if err != nil {
			return 0, fmt.Errorf("field %s: %w", key, err)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("field %s missing or not a number", key)
	}
}
