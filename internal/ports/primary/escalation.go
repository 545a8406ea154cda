package primary

import (
	"context"
	"time"
)

// EscalationService defines the primary port for escalation operations.
type EscalationService interface {
	// CreateEscalation opens an escalation cycle for a claim.
	CreateEscalation(ctx context.Context, req CreateEscalationRequest) (*EscalationStatus, error)

	// ProcessConfirmation applies an agent action: confirm, escalate or resolve.
	ProcessConfirmation(ctx context.Context, req ProcessConfirmationRequest) (*EscalationStatus, error)

	// GetEscalation retrieves the escalation of a claim.
	GetEscalation(ctx context.Context, claimID string) (*EscalationStatus, error)

	// ListEscalations lists escalations with optional filters.
	ListEscalations(ctx context.Context, filters EscalationFilters) ([]*EscalationStatus, error)

	// IsConfirmationExpired reports whether the deadline is set and has passed.
	IsConfirmationExpired(status *EscalationStatus) bool

	// GetNextEscalationLevel returns the level above current, or nil at the ceiling.
	GetNextEscalationLevel(current int) *EscalationLevel

	// CalculatePriorityScore returns the queue ordering hint for a request.
	CalculatePriorityScore(urgency string, claimAmount, waitHours float64) int

	// Levels returns the configured escalation ladder.
	Levels() []EscalationLevel

	// EvaluateClaim runs the decision engine and schedules an escalation when needed.
	EvaluateClaim(ctx context.Context, claimID string, fraudScore *float64) (*EvaluationResult, error)

	// TriggerEscalation schedules a create_escalation job instead of creating inline.
	TriggerEscalation(ctx context.Context, req CreateEscalationRequest) (string, error)

	// QueueConfirmation schedules a process_confirmation job and returns its id.
	QueueConfirmation(ctx context.Context, req ProcessConfirmationRequest) (string, error)
}

// CreateEscalationRequest contains parameters for opening an escalation.
type CreateEscalationRequest struct {
	ClaimID string
	UserID  string
	Reason  string
	Urgency string // low, medium, high, critical; empty means medium
}

// ProcessConfirmationRequest contains parameters for an agent action.
type ProcessConfirmationRequest struct {
	ClaimID string
	AgentID string
	Action  string // confirm, escalate, resolve
	Notes   string
}

// EscalationLevel is one rung of the ladder at the port boundary.
type EscalationLevel struct {
	Level                int
	Name                 string
	Description          string
	MaxResponseHours     float64
	ConfirmationRequired bool
}

// EscalationStatus represents a claim's escalation at the port boundary.
type EscalationStatus struct {
	ClaimID                string
	UserID                 string
	CurrentLevel           int
	LevelName              string
	Status                 string // 'pending', 'confirmed', 'escalated', 'resolved'
	AssignedAgent          string // May be empty
	EstimatedResponseHours float64
	ConfirmationDeadline   *time.Time
	ConfirmationRequired   bool
	Reason                 string
	Urgency                string
	History                []EscalationHistoryEntry
	CreatedAt              time.Time
	UpdatedAt              time.Time
}

// EscalationHistoryEntry is one audit line.
type EscalationHistoryEntry struct {
	Level     int
	Timestamp time.Time
	Reason    string
	Agent     string // May be empty
}

// EscalationFilters contains filter options for listing escalations.
type EscalationFilters struct {
	Status        string
	Level         int
	AssignedAgent string
	Limit         int
}

// EvaluationResult is the decision engine's verdict on a claim.
type EvaluationResult struct {
	ClaimID        string
	ShouldEscalate bool
	Level          int
	Reason         string
	Rule           string
	JobID          string // Set when a create_escalation job was enqueued
}

// Escalation status constants
const (
	EscalationStatusPending   = "pending"
	EscalationStatusConfirmed = "confirmed"
	EscalationStatusEscalated = "escalated"
	EscalationStatusResolved  = "resolved"
)
