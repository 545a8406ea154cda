package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/example/claimdesk/internal/core/assignment"
	"github.com/example/claimdesk/internal/core/effects"
	"github.com/example/claimdesk/internal/core/escalation"
	"github.com/example/claimdesk/internal/ctxutil"
	"github.com/example/claimdesk/internal/ports/primary"
	"github.com/example/claimdesk/internal/ports/secondary"
)

// EscalationPolicy is the configured ladder and who works each rung.
type EscalationPolicy struct {
	Levels   *escalation.LevelTable
	Pools    map[int][]string // Agent ids per level
	Strategy assignment.Strategy
}

// EscalationServiceImpl implements the EscalationService interface.
type EscalationServiceImpl struct {
	escalationRepo  secondary.EscalationRepository
	claimRepo       secondary.ClaimRepository
	escalationQueue secondary.JobQueue
	executor        EffectExecutor
	policy          EscalationPolicy
	logger          *zap.Logger
	now             func() time.Time
}

// NewEscalationService creates a new EscalationService with injected dependencies.
func NewEscalationService(
	escalationRepo secondary.EscalationRepository,
	claimRepo secondary.ClaimRepository,
	escalationQueue secondary.JobQueue,
	executor EffectExecutor,
	policy EscalationPolicy,
	logger *zap.Logger,
) *EscalationServiceImpl {
	return NewEscalationServiceWithClock(escalationRepo, claimRepo, escalationQueue, executor, policy, logger, time.Now)
}

// NewEscalationServiceWithClock creates an EscalationService with an injected clock.
func NewEscalationServiceWithClock(
	escalationRepo secondary.EscalationRepository,
	claimRepo secondary.ClaimRepository,
	escalationQueue secondary.JobQueue,
	executor EffectExecutor,
	policy EscalationPolicy,
	logger *zap.Logger,
	now func() time.Time,
) *EscalationServiceImpl {
	if policy.Levels == nil {
		policy.Levels = escalation.DefaultLevelTable()
	}
	if policy.Strategy == nil {
		policy.Strategy = assignment.NewRandom()
	}
	return &EscalationServiceImpl{
		escalationRepo:  escalationRepo,
		claimRepo:       claimRepo,
		escalationQueue: escalationQueue,
		executor:        executor,
		policy:          policy,
		logger:          logger,
		now:             now,
	}
}

var _ primary.EscalationService = (*EscalationServiceImpl)(nil)

// CreateEscalation opens an escalation cycle for a claim.
func (s *EscalationServiceImpl) CreateEscalation(ctx context.Context, req primary.CreateEscalationRequest) (*primary.EscalationStatus, error) {
	if req.ClaimID == "" {
		return nil, fmt.Errorf("claim id is required")
	}
	urgency, err := escalation.ParseUrgency(req.Urgency)
	if err != nil {
		return nil, err
	}

	prior, err := s.load(ctx, req.ClaimID)
	if err != nil && !errors.Is(err, secondary.ErrNotFound) {
		return nil, err
	}

	target := escalation.LevelForUrgency(urgency)
	level, ok := s.policy.Levels.Get(target)
	if !ok {
		return nil, fmt.Errorf("%w: level %d", escalation.ErrInvalidLevel, target)
	}
	if prior != nil {
		// Fail before assigning so an open cycle never consumes a round-robin turn
		if err := escalation.CanStartEscalation(escalation.StartContext{ClaimID: req.ClaimID, ExistingStatus: prior.Status}).Error(); err != nil {
			return nil, fmt.Errorf("%w: %v", escalation.ErrEscalationOpen, err)
		}
	}

	agent, err := s.assignAgent(ctx, level)
	if err != nil {
		return nil, err
	}

	t, err := escalation.Start(s.policy.Levels, prior, escalation.StartParams{
		ClaimID:  req.ClaimID,
		UserID:   req.UserID,
		Reason:   req.Reason,
		Urgency:  urgency,
		Level:    level.Level,
		Agent:    agent,
		Priority: s.priorityFor(ctx, req.ClaimID, urgency),
		Now:      s.now(),
	})
	if err != nil {
		return nil, err
	}

	if err := s.apply(ctx, t); err != nil {
		return nil, err
	}

	s.logger.Info("escalation created",
		zap.String("claim_id", req.ClaimID),
		zap.Int("level", t.Record.CurrentLevel),
		zap.String("agent_id", agent),
		zap.String("urgency", string(urgency)),
	)
	return s.toStatus(t.Record), nil
}

// ProcessConfirmation applies an agent action: confirm, escalate or resolve.
// The acting agent defaults to the one carried by ctx.
func (s *EscalationServiceImpl) ProcessConfirmation(ctx context.Context, req primary.ProcessConfirmationRequest) (*primary.EscalationStatus, error) {
	action, err := escalation.ParseAction(req.Action)
	if err != nil {
		return nil, err
	}

	if req.AgentID == "" {
		req.AgentID = ctxutil.AgentFromContext(ctx)
	}

	rec, err := s.load(ctx, req.ClaimID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	var t escalation.Transition
	switch action {
	case escalation.ActionConfirm:
		t, err = escalation.Confirm(s.policy.Levels, rec, req.AgentID, req.Notes, now)
	case escalation.ActionEscalate:
		var target escalation.Level
		target, err = escalation.ManualEscalationTarget(s.policy.Levels, rec)
		if err != nil {
			return nil, err
		}
		var agent string
		agent, err = s.assignAgent(ctx, target)
		if err != nil {
			return nil, err
		}
		t, err = escalation.Escalate(s.policy.Levels, rec, req.AgentID, agent, req.Notes, now)
	case escalation.ActionResolve:
		t, err = escalation.Resolve(s.policy.Levels, rec, req.AgentID, req.Notes, now)
	}
	if err != nil {
		return nil, err
	}

	if err := s.apply(ctx, t); err != nil {
		return nil, err
	}

	s.logger.Info("escalation updated",
		zap.String("claim_id", req.ClaimID),
		zap.String("action", string(action)),
		zap.String("agent_id", req.AgentID),
		zap.String("status", string(t.Record.Status)),
		zap.Int("level", t.Record.CurrentLevel),
	)
	return s.toStatus(t.Record), nil
}

// CheckTimeout re-reads the stored record and acts on an expired deadline:
// one auto_escalate job below the top level, a management alert at the top.
func (s *EscalationServiceImpl) CheckTimeout(ctx context.Context, claimID string) (escalation.Outcome, error) {
	rec, err := s.load(ctx, claimID)
	if errors.Is(err, secondary.ErrNotFound) {
		return escalation.OutcomeNoop, nil
	}
	if err != nil {
		return "", err
	}

	t := escalation.CheckTimeout(s.policy.Levels, rec, s.now())
	if err := s.executor.Execute(ctx, t.Effects); err != nil {
		return "", err
	}
	return t.Outcome, nil
}

// AutoEscalate moves an expired escalation from fromLevel to the next level.
// A stale job, whose record has moved on since it was scheduled, does nothing.
func (s *EscalationServiceImpl) AutoEscalate(ctx context.Context, claimID string, fromLevel int) (escalation.Outcome, error) {
	rec, err := s.load(ctx, claimID)
	if errors.Is(err, secondary.ErrNotFound) {
		return escalation.OutcomeNoop, nil
	}
	if err != nil {
		return "", err
	}

	now := s.now()
	if !escalation.AutoEscalationDue(rec, fromLevel, now) {
		s.logger.Info("stale auto-escalation skipped",
			zap.String("claim_id", claimID),
			zap.Int("from_level", fromLevel),
			zap.Int("current_level", rec.CurrentLevel),
			zap.String("status", string(rec.Status)),
		)
		return escalation.OutcomeNoop, nil
	}

	target, ok := escalation.AutoEscalationTarget(s.policy.Levels, rec)
	if !ok {
		return "", fmt.Errorf("%w: claim %s is at level %d", escalation.ErrNoNextLevel, claimID, rec.CurrentLevel)
	}
	agent, err := s.assignAgent(ctx, target)
	if err != nil {
		return "", err
	}

	t, err := escalation.AutoEscalate(s.policy.Levels, rec, fromLevel, agent, now)
	if err != nil {
		return "", err
	}
	if err := s.apply(ctx, t); err != nil {
		return "", err
	}
	return t.Outcome, nil
}

// GetEscalation retrieves the escalation of a claim.
func (s *EscalationServiceImpl) GetEscalation(ctx context.Context, claimID string) (*primary.EscalationStatus, error) {
	rec, err := s.load(ctx, claimID)
	if err != nil {
		return nil, err
	}
	return s.toStatus(rec), nil
}

// ListEscalations lists escalations with optional filters. History is not loaded.
func (s *EscalationServiceImpl) ListEscalations(ctx context.Context, filters primary.EscalationFilters) ([]*primary.EscalationStatus, error) {
	records, err := s.escalationRepo.List(ctx, secondary.EscalationFilters{
		Status:        filters.Status,
		Level:         filters.Level,
		AssignedAgent: filters.AssignedAgent,
		Limit:         filters.Limit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list escalations: %w", err)
	}

	out := make([]*primary.EscalationStatus, 0, len(records))
	for _, r := range records {
		rec, err := recordFromStorage(r, nil)
		if err != nil {
			return nil, err
		}
		out = append(out, s.toStatus(rec))
	}
	return out, nil
}

// IsConfirmationExpired reports whether the deadline is set and has passed.
func (s *EscalationServiceImpl) IsConfirmationExpired(status *primary.EscalationStatus) bool {
	if status == nil || status.ConfirmationDeadline == nil {
		return false
	}
	return s.now().After(*status.ConfirmationDeadline)
}

// GetNextEscalationLevel returns the level above current, or nil at the ceiling.
func (s *EscalationServiceImpl) GetNextEscalationLevel(current int) *primary.EscalationLevel {
	next := escalation.GetNextEscalationLevel(s.policy.Levels, current)
	if next == nil {
		return nil
	}
	l := toLevel(*next)
	return &l
}

// CalculatePriorityScore returns the queue ordering hint for a request.
// Unknown urgencies score as low.
func (s *EscalationServiceImpl) CalculatePriorityScore(urgency string, claimAmount, waitHours float64) int {
	return escalation.CalculatePriorityScore(escalation.Urgency(urgency), claimAmount, waitHours)
}

// Levels returns the configured escalation ladder.
func (s *EscalationServiceImpl) Levels() []primary.EscalationLevel {
	levels := s.policy.Levels.Levels()
	out := make([]primary.EscalationLevel, len(levels))
	for i, l := range levels {
		out[i] = toLevel(l)
	}
	return out
}

// EvaluateClaim runs the decision engine and schedules an escalation when needed.
func (s *EscalationServiceImpl) EvaluateClaim(ctx context.Context, claimID string, fraudScore *float64) (*primary.EvaluationResult, error) {
	claim, err := s.claimRepo.GetByID(ctx, claimID)
	if err != nil {
		return nil, fmt.Errorf("failed to load claim %s: %w", claimID, err)
	}
	count, err := s.escalationCount(ctx, claimID)
	if err != nil {
		return nil, err
	}

	decision := escalation.ShouldEscalate(escalation.ClaimFacts{
		Type:            claim.Type,
		EstimatedAmount: claim.EstimatedAmount,
		DocumentCount:   claim.DocumentCount,
		FraudScore:      claim.FraudScore,
		VoiceConfidence: claim.VoiceConfidence,
		EscalationCount: count,
	}, fraudScore)
	if decision.Err != nil {
		s.logger.Warn("claim evaluation failed, escalating for review",
			zap.String("claim_id", claimID),
			zap.Error(decision.Err),
		)
	}

	result := &primary.EvaluationResult{
		ClaimID:        claimID,
		ShouldEscalate: decision.ShouldEscalate,
		Level:          decision.Level,
		Reason:         decision.Reason,
		Rule:           decision.Rule,
	}
	if !decision.ShouldEscalate {
		return result, nil
	}

	jobID, err := s.TriggerEscalation(ctx, primary.CreateEscalationRequest{
		ClaimID: claimID,
		UserID:  claim.UserID,
		Reason:  decision.Reason,
		Urgency: string(escalation.UrgencyForLevel(decision.Level)),
	})
	if err != nil {
		return nil, err
	}
	result.JobID = jobID
	return result, nil
}

// TriggerEscalation schedules a create_escalation job instead of creating inline.
func (s *EscalationServiceImpl) TriggerEscalation(ctx context.Context, req primary.CreateEscalationRequest) (string, error) {
	if req.ClaimID == "" {
		return "", fmt.Errorf("claim id is required")
	}
	urgency, err := escalation.ParseUrgency(req.Urgency)
	if err != nil {
		return "", err
	}

	job, err := s.escalationQueue.Add(ctx, escalation.JobCreateEscalation, secondary.JobPayload{
		ClaimID: req.ClaimID,
		Data: map[string]any{
			"claimId": req.ClaimID,
			"userId":  req.UserID,
			"reason":  req.Reason,
			"urgency": string(urgency),
		},
	}, secondary.AddOptions{Priority: string(s.priorityFor(ctx, req.ClaimID, urgency))})
	if err != nil {
		s.logger.Error("failed to schedule escalation", zap.String("claim_id", req.ClaimID), zap.Error(err))
		return "", fmt.Errorf("failed to schedule escalation: %w", err)
	}
	return job.ID, nil
}

// QueueConfirmation schedules a process_confirmation job so an agent action is
// applied by the escalation workers. The action is validated up front.
func (s *EscalationServiceImpl) QueueConfirmation(ctx context.Context, req primary.ProcessConfirmationRequest) (string, error) {
	if req.ClaimID == "" {
		return "", fmt.Errorf("claim id is required")
	}
	action, err := escalation.ParseAction(req.Action)
	if err != nil {
		return "", err
	}
	if req.AgentID == "" {
		req.AgentID = ctxutil.AgentFromContext(ctx)
	}

	prio := secondary.PriorityMedium
	if action == escalation.ActionEscalate {
		prio = secondary.PriorityHigh
	}

	job, err := s.escalationQueue.Add(ctx, escalation.JobProcessConfirmation, secondary.JobPayload{
		ClaimID: req.ClaimID,
		Data: map[string]any{
			"claimId": req.ClaimID,
			"agentId": req.AgentID,
			"action":  string(action),
			"notes":   req.Notes,
		},
	}, secondary.AddOptions{Priority: prio})
	if err != nil {
		s.logger.Error("failed to queue agent action",
			zap.String("claim_id", req.ClaimID),
			zap.String("action", string(action)),
			zap.Error(err),
		)
		return "", fmt.Errorf("failed to queue agent action: %w", err)
	}
	return job.ID, nil
}

// apply persists a transition and then executes its effects.
func (s *EscalationServiceImpl) apply(ctx context.Context, t escalation.Transition) error {
	rec, history := recordToStorage(t.Record)
	if err := s.escalationRepo.Save(ctx, rec, history); err != nil {
		return fmt.Errorf("failed to save escalation: %w", err)
	}
	if err := s.executor.Execute(ctx, t.Effects); err != nil {
		s.logger.Error("escalation saved but effects failed",
			zap.String("claim_id", rec.ClaimID),
			zap.Error(err),
		)
		return err
	}
	return nil
}

func (s *EscalationServiceImpl) load(ctx context.Context, claimID string) (*escalation.Record, error) {
	rec, err := s.escalationRepo.GetByClaim(ctx, claimID)
	if err != nil {
		return nil, fmt.Errorf("escalation for claim %s: %w", claimID, err)
	}
	history, err := s.escalationRepo.GetHistory(ctx, claimID)
	if err != nil {
		return nil, fmt.Errorf("failed to load escalation history: %w", err)
	}
	return recordFromStorage(rec, history)
}

// assignAgent picks an agent from the level's pool. Levels without
// confirmation are handled automatically and get no agent.
func (s *EscalationServiceImpl) assignAgent(ctx context.Context, level escalation.Level) (string, error) {
	pool := s.policy.Pools[level.Level]
	if len(pool) == 0 {
		if !level.ConfirmationRequired {
			return "", nil
		}
		return "", fmt.Errorf("level %d (%s): %w", level.Level, level.Name, assignment.ErrEmptyPool)
	}

	var load map[string]int
	if la, ok := s.policy.Strategy.(assignment.LoadAware); ok && la.NeedsLoad() {
		var err error
		load, err = s.escalationRepo.CountOpenByAgent(ctx, pool)
		if err != nil {
			return "", fmt.Errorf("failed to load agent workload: %w", err)
		}
	}
	return s.policy.Strategy.Pick(pool, load)
}

// priorityFor scores a request using the claim amount when the claim is known.
func (s *EscalationServiceImpl) priorityFor(ctx context.Context, claimID string, u escalation.Urgency) effects.Priority {
	var amount float64
	if claim, err := s.claimRepo.GetByID(ctx, claimID); err == nil {
		amount = claim.EstimatedAmount
	}
	return escalation.PriorityForScore(escalation.CalculatePriorityScore(u, amount, 0))
}

func (s *EscalationServiceImpl) toStatus(rec *escalation.Record) *primary.EscalationStatus {
	level, _ := s.policy.Levels.Get(rec.CurrentLevel)
	status := &primary.EscalationStatus{
		ClaimID:                rec.ClaimID,
		UserID:                 rec.UserID,
		CurrentLevel:           rec.CurrentLevel,
		LevelName:              level.Name,
		Status:                 string(rec.Status),
		AssignedAgent:          rec.AssignedAgent,
		EstimatedResponseHours: rec.EstimatedResponseHours,
		ConfirmationRequired:   level.ConfirmationRequired,
		Reason:                 rec.Reason,
		Urgency:                string(rec.Urgency),
		CreatedAt:              rec.CreatedAt,
		UpdatedAt:              rec.UpdatedAt,
	}
	if rec.ConfirmationDeadline != nil {
		d := *rec.ConfirmationDeadline
		status.ConfirmationDeadline = &d
	}
	for _, h := range rec.History {
		status.History = append(status.History, primary.EscalationHistoryEntry{
			Level:     h.Level,
			Timestamp: h.Timestamp,
			Reason:    h.Reason,
			Agent:     h.Agent,
		})
	}
	return status
}

func toLevel(l escalation.Level) primary.EscalationLevel {
	return primary.EscalationLevel{
		Level:                l.Level,
		Name:                 l.Name,
		Description:          l.Description,
		MaxResponseHours:     l.MaxResponseHours,
		ConfirmationRequired: l.ConfirmationRequired,
	}
}

func recordFromStorage(r *secondary.EscalationRecord, history []*secondary.EscalationHistoryRecord) (*escalation.Record, error) {
	created, err := secondary.ParseTime(r.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("escalation %s: bad created_at: %w", r.ClaimID, err)
	}
	updated, err := secondary.ParseTime(r.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("escalation %s: bad updated_at: %w", r.ClaimID, err)
	}

	rec := &escalation.Record{
		ClaimID:                r.ClaimID,
		UserID:                 r.UserID,
		CurrentLevel:           r.CurrentLevel,
		Status:                 escalation.Status(r.Status),
		AssignedAgent:          r.AssignedAgent,
		EstimatedResponseHours: r.EstimatedResponseHours,
		Reason:                 r.Reason,
		Urgency:                escalation.Urgency(r.Urgency),
		EscalationCount:        r.EscalationCount,
		CreatedAt:              created,
		UpdatedAt:              updated,
	}
	if r.ConfirmationDeadline != "" {
		d, err := secondary.ParseTime(r.ConfirmationDeadline)
		if err != nil {
			return nil, fmt.Errorf("escalation %s: bad confirmation_deadline: %w", r.ClaimID, err)
		}
		rec.ConfirmationDeadline = &d
	}

	for _, h := range history {
		ts, err := secondary.ParseTime(h.Timestamp)
		if err != nil {
			return nil, fmt.Errorf("escalation %s: bad history timestamp: %w", r.ClaimID, err)
		}
		rec.History = append(rec.History, escalation.HistoryEntry{
			Level:     h.Level,
			Timestamp: ts,
			Reason:    h.Reason,
			Agent:     h.Agent,
		})
	}
	return rec, nil
}

// escalationCount returns how often the claim has been escalated. A claim
// that was never escalated counts zero.
func (s *EscalationServiceImpl) escalationCount(ctx context.Context, claimID string) (int, error) {
	rec, err := s.escalationRepo.GetByClaim(ctx, claimID)
	if errors.Is(err, secondary.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to load escalation count: %w", err)
	}
	return rec.EscalationCount, nil
}

func recordToStorage(rec *escalation.Record) (*secondary.EscalationRecord, []*secondary.EscalationHistoryRecord) {
	r := &secondary.EscalationRecord{
		ClaimID:                rec.ClaimID,
		UserID:                 rec.UserID,
		CurrentLevel:           rec.CurrentLevel,
		Status:                 string(rec.Status),
		AssignedAgent:          rec.AssignedAgent,
		EstimatedResponseHours: rec.EstimatedResponseHours,
		Reason:                 rec.Reason,
		Urgency:                string(rec.Urgency),
		EscalationCount:        rec.EscalationCount,
		CreatedAt:              secondary.FormatTime(rec.CreatedAt),
		UpdatedAt:              secondary.FormatTime(rec.UpdatedAt),
	}
	if rec.ConfirmationDeadline != nil {
		r.ConfirmationDeadline = secondary.FormatTime(*rec.ConfirmationDeadline)
	}

	history := make([]*secondary.EscalationHistoryRecord, len(rec.History))
	for i, h := range rec.History {
		history[i] = &secondary.EscalationHistoryRecord{
			ClaimID:   rec.ClaimID,
			Seq:       i,
			Level:     h.Level,
			Timestamp: secondary.FormatTime(h.Timestamp),
			Reason:    h.Reason,
			Agent:     h.Agent,
		}
	}
	return r, history
}
