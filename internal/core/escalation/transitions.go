package escalation

import (
	"fmt"
	"time"

	"github.com/example/claimdesk/internal/core/effects"
	"github.com/example/claimdesk/internal/core/notification"
)

// ReasonTimeout is the history reason written by an automatic escalation.
const ReasonTimeout = "Escalation timeout - no confirmation received"

// ConfirmedResponseHours is the working estimate once an agent has confirmed.
const ConfirmedResponseHours = 2.0

// TimeoutGrace delays the timeout check past the deadline so the check
// observes an expired deadline rather than one that is exactly due.
const TimeoutGrace = time.Second

// Outcome describes what a transition decided when it may legitimately do nothing.
type Outcome string

const (
	OutcomeApplied         Outcome = "applied"
	OutcomeNoop            Outcome = "noop"
	OutcomeAutoEscalate    Outcome = "auto_escalate"
	OutcomeManagementAlert Outcome = "management_alert"
)

// Transition is the result of a pure state change: the new record and the
// effects the shell must execute to make it durable and visible.
type Transition struct {
	Record  *Record
	Effects []effects.Effect
	Outcome Outcome
}

// StartParams carries the inputs of a new escalation cycle.
type StartParams struct {
	ClaimID  string
	UserID   string
	Reason   string
	Urgency  Urgency
	Level    int // Zero derives the level from Urgency
	Agent    string
	Priority effects.Priority
	Now      time.Time
}

// Start opens an escalation cycle. prior is the stored record for the claim,
// or nil. A confirmed or resolved prior record restarts with its history kept.
func Start(table *LevelTable, prior *Record, p StartParams) (Transition, error) {
	var existing Status
	if prior != nil {
		existing = prior.Status
	}
	if err := CanStartEscalation(StartContext{ClaimID: p.ClaimID, ExistingStatus: existing}).Error(); err != nil {
		return Transition{}, fmt.Errorf("%w: %v", ErrEscalationOpen, err)
	}

	n := p.Level
	if n == 0 {
		n = LevelForUrgency(p.Urgency)
	}
	level, ok := table.Get(n)
	if !ok {
		return Transition{}, fmt.Errorf("%w: level %d", ErrInvalidLevel, n)
	}

	rec := &Record{
		ClaimID:                p.ClaimID,
		UserID:                 p.UserID,
		CurrentLevel:           level.Level,
		Status:                 StatusPending,
		AssignedAgent:          p.Agent,
		EstimatedResponseHours: level.MaxResponseHours,
		ConfirmationDeadline:   deadlineFor(level, p.Now),
		Reason:                 p.Reason,
		Urgency:                p.Urgency,
		CreatedAt:              p.Now,
		UpdatedAt:              p.Now,
	}
	if prior != nil {
		rec.History = append([]HistoryEntry(nil), prior.History...)
		rec.CreatedAt = prior.CreatedAt
		rec.EscalationCount = prior.EscalationCount
		if rec.UserID == "" {
			rec.UserID = prior.UserID
		}
	}
	rec.EscalationCount++
	appendHistory(rec, level.Level, p.Reason, p.Agent, p.Now)

	prio := orDefault(p.Priority)
	var effs []effects.Effect
	effs = append(effs, scheduleTimeout(rec, prio)...)
	if p.Agent != "" {
		effs = append(effs, notifyAgent(rec, level, notification.EventEscalationCreated, prio, ""))
	}
	effs = append(effs, notifyCustomer(rec, level, notification.EventEscalationCreated, prio))

	return Transition{Record: rec, Effects: effs, Outcome: OutcomeApplied}, nil
}

// Confirm records that agentID has picked up the escalation.
// The level and deadline are kept and the pending timeout check is cancelled.
func Confirm(table *LevelTable, rec *Record, agentID, notes string, now time.Time) (Transition, error) {
	if err := checkAction(rec, ActionConfirm); err != nil {
		return Transition{}, err
	}
	level, ok := table.Get(rec.CurrentLevel)
	if !ok {
		return Transition{}, fmt.Errorf("%w: level %d", ErrInvalidLevel, rec.CurrentLevel)
	}

	next := rec.Clone()
	next.Status = StatusConfirmed
	if agentID != "" {
		next.AssignedAgent = agentID
	}
	next.EstimatedResponseHours = ConfirmedResponseHours
	next.UpdatedAt = now
	appendHistory(next, next.CurrentLevel, withNotes("Confirmed by agent", notes), agentID, now)

	effs := cancelTimeout(rec)
	effs = append(effs, notifyCustomer(next, level, notification.EventEscalationConfirmed, effects.PriorityMedium))

	return Transition{Record: next, Effects: effs, Outcome: OutcomeApplied}, nil
}

// ManualEscalationTarget returns the level an agent-requested escalation moves to.
func ManualEscalationTarget(table *LevelTable, rec *Record) (Level, error) {
	if err := checkAction(rec, ActionEscalate); err != nil {
		return Level{}, err
	}
	next, ok := table.Next(rec.CurrentLevel)
	if !ok {
		return Level{}, fmt.Errorf("%w: claim %s is at level %d", ErrNoNextLevel, rec.ClaimID, rec.CurrentLevel)
	}
	return next, nil
}

// Escalate moves the escalation one level up on agentID's request and assigns newAgent.
func Escalate(table *LevelTable, rec *Record, agentID, newAgent, notes string, now time.Time) (Transition, error) {
	target, err := ManualEscalationTarget(table, rec)
	if err != nil {
		return Transition{}, err
	}

	next := rec.Clone()
	appendHistory(next, rec.CurrentLevel, withNotes(fmt.Sprintf("Escalation requested by %s", agentOrUnknown(agentID)), notes), agentID, now)
	moveTo(next, target, newAgent, now)
	appendHistory(next, target.Level, fmt.Sprintf("Escalated to %s", target.Name), newAgent, now)

	prio := PriorityForScore(CalculatePriorityScore(UrgencyForLevel(target.Level), 0, 0))
	effs := cancelTimeout(rec)
	effs = append(effs, scheduleTimeout(next, prio)...)
	if newAgent != "" {
		effs = append(effs, notifyAgent(next, target, notification.EventEscalationEscalated, prio, ""))
	}
	effs = append(effs, notifyCustomer(next, target, notification.EventEscalationEscalated, effects.PriorityMedium))

	return Transition{Record: next, Effects: effs, Outcome: OutcomeApplied}, nil
}

// Resolve closes the escalation. A resolved record accepts no further actions.
func Resolve(table *LevelTable, rec *Record, agentID, notes string, now time.Time) (Transition, error) {
	if err := checkAction(rec, ActionResolve); err != nil {
		return Transition{}, err
	}
	level, ok := table.Get(rec.CurrentLevel)
	if !ok {
		return Transition{}, fmt.Errorf("%w: level %d", ErrInvalidLevel, rec.CurrentLevel)
	}

	next := rec.Clone()
	next.Status = StatusResolved
	next.EstimatedResponseHours = 0
	next.UpdatedAt = now
	appendHistory(next, next.CurrentLevel, withNotes("Resolved by agent", notes), agentID, now)

	effs := cancelTimeout(rec)
	effs = append(effs, notifyCustomer(next, level, notification.EventEscalationResolved, effects.PriorityMedium))

	return Transition{Record: next, Effects: effs, Outcome: OutcomeApplied}, nil
}

// CheckTimeout decides what an expired deadline leads to. It never mutates
// the record: below the top level it schedules one auto-escalation, at the
// top it alerts management. A record that is no longer awaiting confirmation,
// or whose deadline has not passed, yields OutcomeNoop.
func CheckTimeout(table *LevelTable, rec *Record, now time.Time) Transition {
	if rec == nil || !rec.Status.AwaitingConfirmation() || !IsConfirmationExpired(rec, now) {
		return Transition{Record: rec, Outcome: OutcomeNoop}
	}
	deadline := *rec.ConfirmationDeadline

	if next, ok := table.Next(rec.CurrentLevel); ok {
		return Transition{
			Record:  rec,
			Outcome: OutcomeAutoEscalate,
			Effects: []effects.Effect{
				effects.EnqueueEffect{
					Queue:    QueueEscalations,
					JobType:  JobAutoEscalate,
					ClaimID:  rec.ClaimID,
					JobID:    AutoEscalateJobID(rec.ClaimID, rec.CurrentLevel, deadline),
					Priority: effects.PriorityHigh,
					Data: map[string]any{
						"claimId":     rec.ClaimID,
						"fromLevel":   rec.CurrentLevel,
						"targetLevel": next.Level,
						"deadline":    deadline.UTC().Format(time.RFC3339),
					},
				},
			},
		}
	}

	level, _ := table.Get(rec.CurrentLevel)
	data := notificationData(rec, level)
	return Transition{
		Record:  rec,
		Outcome: OutcomeManagementAlert,
		Effects: []effects.Effect{
			effects.NotifyEffect{
				Event:    string(notification.EventManagementAlert),
				Audience: string(notification.AudienceManagement),
				ClaimID:  rec.ClaimID,
				JobID:    ManagementAlertJobID(rec.ClaimID, deadline),
				Priority: effects.PriorityUrgent,
				Data:     data.ToMap(),
			},
			effects.LogEffect{
				Level:   "warn",
				Message: "escalation expired at top level, alerting management",
				Fields: map[string]any{
					"claim_id": rec.ClaimID,
					"level":    rec.CurrentLevel,
					"deadline": deadline,
				},
			},
		},
	}
}

// AutoEscalationDue reports whether an auto_escalate job scheduled from
// fromLevel still applies to rec.
func AutoEscalationDue(rec *Record, fromLevel int, now time.Time) bool {
	return rec != nil && rec.CurrentLevel == fromLevel && rec.Status.AwaitingConfirmation() && IsConfirmationExpired(rec, now)
}

// AutoEscalationTarget returns the level an expired record moves to.
func AutoEscalationTarget(table *LevelTable, rec *Record) (Level, bool) {
	if rec == nil {
		return Level{}, false
	}
	return table.Next(rec.CurrentLevel)
}

// AutoEscalate performs the system-driven escalation scheduled by CheckTimeout.
// It re-checks the stored state: if the record has been confirmed, resolved,
// or already moved past fromLevel, the job is stale and nothing happens.
func AutoEscalate(table *LevelTable, rec *Record, fromLevel int, newAgent string, now time.Time) (Transition, error) {
	if !AutoEscalationDue(rec, fromLevel, now) {
		return Transition{Record: rec, Outcome: OutcomeNoop}, nil
	}
	target, ok := table.Next(rec.CurrentLevel)
	if !ok {
		return Transition{}, fmt.Errorf("%w: claim %s is at level %d", ErrNoNextLevel, rec.ClaimID, rec.CurrentLevel)
	}

	next := rec.Clone()
	moveTo(next, target, newAgent, now)
	appendHistory(next, target.Level, ReasonTimeout, "", now)

	effs := scheduleTimeout(next, effects.PriorityHigh)
	if newAgent != "" {
		effs = append(effs, notifyAgent(next, target, notification.EventAutoEscalated, effects.PriorityUrgent, ReasonTimeout))
	}
	effs = append(effs, effects.LogEffect{
		Level:   "warn",
		Message: "escalation auto-escalated after missed deadline",
		Fields: map[string]any{
			"claim_id":   rec.ClaimID,
			"from_level": fromLevel,
			"to_level":   target.Level,
			"agent_id":   newAgent,
		},
	})

	return Transition{Record: next, Effects: effs, Outcome: OutcomeApplied}, nil
}

func checkAction(rec *Record, action Action) error {
	if rec == nil {
		return fmt.Errorf("%w: no escalation", ErrInvalidTransition)
	}
	guard := CanProcessAction(ActionContext{ClaimID: rec.ClaimID, Status: rec.Status, Action: action})
	if guard.Allowed {
		return nil
	}
	if rec.Status == StatusResolved {
		return fmt.Errorf("%w: %s", ErrEscalationClosed, guard.Reason)
	}
	return fmt.Errorf("%w: %s", ErrInvalidTransition, guard.Reason)
}

func moveTo(rec *Record, target Level, agent string, now time.Time) {
	rec.CurrentLevel = target.Level
	rec.Status = StatusEscalated
	rec.AssignedAgent = agent
	rec.EstimatedResponseHours = target.MaxResponseHours
	rec.ConfirmationDeadline = deadlineFor(target, now)
	rec.Urgency = UrgencyForLevel(target.Level)
	rec.EscalationCount++
	rec.UpdatedAt = now
}

func deadlineFor(level Level, now time.Time) *time.Time {
	if !level.ConfirmationRequired {
		return nil
	}
	d := now.Add(level.ResponseWindow())
	return &d
}

// appendHistory adds an entry, clamping its timestamp so the trail never goes backwards.
func appendHistory(rec *Record, level int, reason, agent string, now time.Time) {
	ts := now
	if n := len(rec.History); n > 0 && rec.History[n-1].Timestamp.After(ts) {
		ts = rec.History[n-1].Timestamp
	}
	rec.History = append(rec.History, HistoryEntry{
		Level:     level,
		Timestamp: ts,
		Reason:    reason,
		Agent:     agent,
	})
}

func scheduleTimeout(rec *Record, prio effects.Priority) []effects.Effect {
	if rec.ConfirmationDeadline == nil {
		return nil
	}
	deadline := *rec.ConfirmationDeadline
	return []effects.Effect{
		effects.EnqueueEffect{
			Queue:    QueueEscalations,
			JobType:  JobCheckTimeout,
			ClaimID:  rec.ClaimID,
			JobID:    TimeoutJobID(rec.ClaimID, rec.CurrentLevel, deadline),
			RunAt:    deadline.Add(TimeoutGrace),
			Priority: prio,
			Data: map[string]any{
				"claimId":  rec.ClaimID,
				"level":    rec.CurrentLevel,
				"deadline": deadline.UTC().Format(time.RFC3339),
			},
		},
	}
}

func cancelTimeout(rec *Record) []effects.Effect {
	if rec.ConfirmationDeadline == nil || !rec.Status.AwaitingConfirmation() {
		return nil
	}
	return []effects.Effect{
		effects.CancelEffect{
			Queue: QueueEscalations,
			JobID: TimeoutJobID(rec.ClaimID, rec.CurrentLevel, *rec.ConfirmationDeadline),
		},
	}
}

func notificationData(rec *Record, level Level) notification.Data {
	d := notification.Data{
		ClaimID:   rec.ClaimID,
		Level:     rec.CurrentLevel,
		LevelName: level.Name,
		AgentID:   rec.AssignedAgent,
		Reason:    rec.Reason,
	}
	if rec.ConfirmationDeadline != nil {
		d.Deadline = rec.ConfirmationDeadline.UTC().Format(time.RFC3339)
	}
	return d
}

func notifyAgent(rec *Record, level Level, event notification.Event, prio effects.Priority, reason string) effects.Effect {
	data := notificationData(rec, level)
	if reason != "" {
		data.Reason = reason
	}
	return effects.NotifyEffect{
		Event:    string(event),
		Audience: string(notification.AudienceAgent),
		ClaimID:  rec.ClaimID,
		AgentID:  rec.AssignedAgent,
		Priority: prio,
		Data:     data.ToMap(),
	}
}

func notifyCustomer(rec *Record, level Level, event notification.Event, prio effects.Priority) effects.Effect {
	data := notificationData(rec, level)
	data.Reason = ""
	return effects.NotifyEffect{
		Event:    string(event),
		Audience: string(notification.AudienceCustomer),
		ClaimID:  rec.ClaimID,
		Priority: prio,
		Data:     data.ToMap(),
	}
}

func withNotes(base, notes string) string {
	if notes == "" {
		return base
	}
	return base + ": " + notes
}

func agentOrUnknown(agentID string) string {
	if agentID == "" {
		return "agent"
	}
	return "agent " + agentID
}

func orDefault(p effects.Priority) effects.Priority {
	if p.Valid() {
		return p
	}
	return effects.PriorityMedium
}
