package escalation

import (
	"fmt"
	"time"
)

// Status represents the possible states of an escalation.
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusEscalated Status = "escalated"
	StatusResolved  Status = "resolved"
)

// AwaitingConfirmation reports whether an agent still has to act.
// An escalated record behaves as pending at its new level.
func (s Status) AwaitingConfirmation() bool {
	return s == StatusPending || s == StatusEscalated
}

// Urgency is the caller-supplied severity of an escalation request.
type Urgency string

const (
	UrgencyLow      Urgency = "low"
	UrgencyMedium   Urgency = "medium"
	UrgencyHigh     Urgency = "high"
	UrgencyCritical Urgency = "critical"
)

// ParseUrgency validates s. An empty string is accepted and means "not given".
func ParseUrgency(s string) (Urgency, error) {
	switch u := Urgency(s); u {
	case "", UrgencyLow, UrgencyMedium, UrgencyHigh, UrgencyCritical:
		return u, nil
	default:
		return "", fmt.Errorf("%w: %q (must be low, medium, high or critical)", ErrInvalidUrgency, s)
	}
}

// LevelForUrgency maps urgency to the target level of a new escalation.
// Level 1 is never the result: it is the "do nothing" default.
func LevelForUrgency(u Urgency) int {
	switch u {
	case UrgencyCritical:
		return 4
	case UrgencyHigh:
		return 3
	default:
		return 2
	}
}

// UrgencyForLevel is the inverse used when the decision engine picks a level.
func UrgencyForLevel(level int) Urgency {
	switch {
	case level >= 4:
		return UrgencyCritical
	case level == 3:
		return UrgencyHigh
	default:
		return UrgencyMedium
	}
}

// Action is an agent's response to an escalation.
type Action string

const (
	ActionConfirm  Action = "confirm"
	ActionEscalate Action = "escalate"
	ActionResolve  Action = "resolve"
)

// ParseAction validates s.
func ParseAction(s string) (Action, error) {
	switch a := Action(s); a {
	case ActionConfirm, ActionEscalate, ActionResolve:
		return a, nil
	default:
		return "", fmt.Errorf("%w: %q (must be confirm, escalate or resolve)", ErrInvalidAction, s)
	}
}

// HistoryEntry is one line of the append-only audit trail.
type HistoryEntry struct {
	Level     int
	Timestamp time.Time
	Reason    string
	Agent     string // Empty for system-authored entries
}

// Record is the per-claim escalation state.
type Record struct {
	ClaimID                string
	UserID                 string
	CurrentLevel           int
	Status                 Status
	AssignedAgent          string
	EstimatedResponseHours float64
	ConfirmationDeadline   *time.Time
	Reason                 string
	Urgency                Urgency
	History                []HistoryEntry
	EscalationCount        int // Cycles opened plus level increases; confirmations and resolutions do not count
	CreatedAt              time.Time
	UpdatedAt              time.Time
}

// Clone returns a deep copy so transitions never mutate their input.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	c := *r
	if r.ConfirmationDeadline != nil {
		d := *r.ConfirmationDeadline
		c.ConfirmationDeadline = &d
	}
	c.History = append([]HistoryEntry(nil), r.History...)
	return &c
}

// IsConfirmationExpired reports whether the deadline is set and has passed.
func IsConfirmationExpired(r *Record, now time.Time) bool {
	if r == nil || r.ConfirmationDeadline == nil {
		return false
	}
	return now.After(*r.ConfirmationDeadline)
}

// GetNextEscalationLevel returns the level above current, or nil at the ceiling.
func GetNextEscalationLevel(table *LevelTable, current int) *Level {
	next, ok := table.Next(current)
	if !ok {
		return nil
	}
	return &next
}
