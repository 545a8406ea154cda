// Package secondary defines the secondary ports (driven adapters) for the application.
// These are the interfaces through which the application drives external systems.
package secondary

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by repositories when a record does not exist.
var ErrNotFound = errors.New("not found")

// TimeLayout is the fixed-width UTC layout used for persisted timestamps.
// Fixed width keeps lexical order equal to time order in SQL comparisons.
const TimeLayout = "2006-01-02T15:04:05.000Z"

// FormatTime renders t in TimeLayout. The zero time renders as "".
func FormatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(TimeLayout)
}

// ParseTime parses a TimeLayout (or RFC3339) timestamp. "" parses as the zero time.
func ParseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(TimeLayout, s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339Nano, s)
}

// ClaimRepository defines the secondary port for claim persistence.
type ClaimRepository interface {
	// Create persists a new claim.
	Create(ctx context.Context, claim *ClaimRecord) error

	// GetByID retrieves a claim by its ID.
	GetByID(ctx context.Context, id string) (*ClaimRecord, error)

	// UpdateFraudScore stores a freshly computed fraud score.
	UpdateFraudScore(ctx context.Context, id string, score float64) error

	// List retrieves claims matching the given filters.
	List(ctx context.Context, filters ClaimFilters) ([]*ClaimRecord, error)
}

// ClaimRecord represents a claim as stored in persistence.
type ClaimRecord struct {
	ID               string
	UserID           string
	Type             string
	EstimatedAmount  float64
	DocumentCount    int
	FraudScore       *float64 // Nil until scored
	VoiceConfidence  *float64 // Nil unless filed by voice
	ContactPhone     string
	PreferredChannel string // "whatsapp" or "sms"
	CreatedAt        string
	UpdatedAt        string
}

// ClaimFilters contains filter options for querying claims.
type ClaimFilters struct {
	UserID string
	Type   string
	Limit  int
}

// EscalationRepository defines the secondary port for escalation persistence.
// There is one escalation record per claim; its history is append-only.
type EscalationRepository interface {
	// GetByClaim retrieves the escalation record of a claim.
	GetByClaim(ctx context.Context, claimID string) (*EscalationRecord, error)

	// GetHistory returns the audit trail of a claim in insertion order.
	GetHistory(ctx context.Context, claimID string) ([]*EscalationHistoryRecord, error)

	// Save upserts the record and appends the history entries not yet stored.
	// Entries already stored are never rewritten.
	Save(ctx context.Context, escalation *EscalationRecord, history []*EscalationHistoryRecord) error

	// List retrieves escalations matching the given filters.
	List(ctx context.Context, filters EscalationFilters) ([]*EscalationRecord, error)

	// ListExpired returns escalations awaiting confirmation whose deadline is before now.
	ListExpired(ctx context.Context, now time.Time) ([]*EscalationRecord, error)

	// CountOpenByAgent returns the number of open escalations assigned to each agent.
	CountOpenByAgent(ctx context.Context, agentIDs []string) (map[string]int, error)
}

// EscalationRecord represents an escalation as stored in persistence.
type EscalationRecord struct {
	ClaimID                string
	UserID                 string
	CurrentLevel           int
	Status                 string
	AssignedAgent          string // Empty at level 1
	EstimatedResponseHours float64
	ConfirmationDeadline   string // Empty when the level needs no confirmation
	Reason                 string
	Urgency                string
	EscalationCount        int
	CreatedAt              string
	UpdatedAt              string
}

// EscalationHistoryRecord is one persisted audit entry.
type EscalationHistoryRecord struct {
	ClaimID   string
	Seq       int
	Level     int
	Timestamp string
	Reason    string
	Agent     string // Empty for system entries
}

// EscalationFilters contains filter options for querying escalations.
type EscalationFilters struct {
	Status        string
	Level         int
	AssignedAgent string
	Limit         int
}
