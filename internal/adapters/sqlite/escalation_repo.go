// Package sqlite contains SQLite implementations of repository interfaces.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/example/claimdesk/internal/ports/secondary"
)

// now is swapped in tests.
var now = time.Now

// EscalationRepository implements secondary.EscalationRepository with SQLite.
type EscalationRepository struct {
	db *sql.DB
}

// NewEscalationRepository creates a new SQLite escalation repository.
func NewEscalationRepository(db *sql.DB) *EscalationRepository {
	return &EscalationRepository{db: db}
}

var _ secondary.EscalationRepository = (*EscalationRepository)(nil)

const escalationColumns = `claim_id, user_id, current_level, status, assigned_agent, estimated_response_hours, confirmation_deadline, reason, urgency, escalation_count, created_at, updated_at`

// GetByClaim retrieves the escalation record of a claim.
func (r *EscalationRepository) GetByClaim(ctx context.Context, claimID string) (*secondary.EscalationRecord, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+escalationColumns+` FROM escalations WHERE claim_id = ?`, claimID)

	record, err := scanEscalation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("escalation for claim %s: %w", claimID, secondary.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get escalation: %w", err)
	}

	return record, nil
}

// GetHistory returns the audit trail of a claim in insertion order.
func (r *EscalationRepository) GetHistory(ctx context.Context, claimID string) ([]*secondary.EscalationHistoryRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT claim_id, seq, level, timestamp, reason, agent FROM escalation_history WHERE claim_id = ? ORDER BY seq`,
		claimID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get escalation history: %w", err)
	}
	defer rows.Close()

	var history []*secondary.EscalationHistoryRecord
	for rows.Next() {
		var agent sql.NullString
		entry := &secondary.EscalationHistoryRecord{}
		if err := rows.Scan(&entry.ClaimID, &entry.Seq, &entry.Level, &entry.Timestamp, &entry.Reason, &agent); err != nil {
			return nil, fmt.Errorf("failed to scan escalation history: %w", err)
		}
		entry.Agent = agent.String
		history = append(history, entry)
	}

	return history, rows.Err()
}

// Save upserts the record and appends the history entries not yet stored.
// Entries at positions already stored are skipped, never rewritten.
func (r *EscalationRepository) Save(ctx context.Context, e *secondary.EscalationRecord, history []*secondary.EscalationHistoryRecord) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO escalations (`+escalationColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(claim_id) DO UPDATE SET
			user_id = excluded.user_id,
			current_level = excluded.current_level,
			status = excluded.status,
			assigned_agent = excluded.assigned_agent,
			estimated_response_hours = excluded.estimated_response_hours,
			confirmation_deadline = excluded.confirmation_deadline,
			reason = excluded.reason,
			urgency = excluded.urgency,
			escalation_count = excluded.escalation_count,
			updated_at = excluded.updated_at`,
		e.ClaimID,
		nullString(e.UserID),
		e.CurrentLevel,
		e.Status,
		nullString(e.AssignedAgent),
		e.EstimatedResponseHours,
		nullString(e.ConfirmationDeadline),
		nullString(e.Reason),
		nullString(e.Urgency),
		e.EscalationCount,
		e.CreatedAt,
		e.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save escalation: %w", err)
	}

	var stored int
	err = tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM escalation_history WHERE claim_id = ?`, e.ClaimID).Scan(&stored)
	if err != nil {
		return fmt.Errorf("failed to count escalation history: %w", err)
	}

	for i := stored; i < len(history); i++ {
		h := history[i]
		_, err := tx.ExecContext(ctx,
			`INSERT INTO escalation_history (claim_id, seq, level, timestamp, reason, agent) VALUES (?, ?, ?, ?, ?, ?)`,
			e.ClaimID, i, h.Level, h.Timestamp, h.Reason, nullString(h.Agent),
		)
		if err != nil {
			return fmt.Errorf("failed to append escalation history: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit escalation: %w", err)
	}

	return nil
}

// List retrieves escalations matching the given filters.
func (r *EscalationRepository) List(ctx context.Context, filters secondary.EscalationFilters) ([]*secondary.EscalationRecord, error) {
	query := `SELECT ` + escalationColumns + ` FROM escalations WHERE 1=1`
	args := []any{}

	if filters.Status != "" {
		query += " AND status = ?"
		args = append(args, filters.Status)
	}

	if filters.Level > 0 {
		query += " AND current_level = ?"
		args = append(args, filters.Level)
	}

	if filters.AssignedAgent != "" {
		query += " AND assigned_agent = ?"
		args = append(args, filters.AssignedAgent)
	}

	query += " ORDER BY updated_at DESC, claim_id"

	if filters.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filters.Limit)
	}

	return r.query(ctx, "list escalations", query, args...)
}

// ListExpired returns escalations awaiting confirmation whose deadline is before now.
func (r *EscalationRepository) ListExpired(ctx context.Context, at time.Time) ([]*secondary.EscalationRecord, error) {
	return r.query(ctx, "list expired escalations",
		`SELECT `+escalationColumns+` FROM escalations
		 WHERE status IN ('pending', 'escalated')
		   AND confirmation_deadline IS NOT NULL
		   AND confirmation_deadline < ?
		 ORDER BY confirmation_deadline`,
		secondary.FormatTime(at),
	)
}

// CountOpenByAgent returns the number of open escalations assigned to each agent.
// Agents without open escalations are reported with zero.
func (r *EscalationRepository) CountOpenByAgent(ctx context.Context, agentIDs []string) (map[string]int, error) {
	counts := make(map[string]int, len(agentIDs))
	if len(agentIDs) == 0 {
		return counts, nil
	}

	args := make([]any, len(agentIDs))
	for i, id := range agentIDs {
		counts[id] = 0
		args[i] = id
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(agentIDs)), ", ")

	rows, err := r.db.QueryContext(ctx,
		`SELECT assigned_agent, COUNT(*) FROM escalations
		 WHERE status IN ('pending', 'escalated', 'confirmed') AND assigned_agent IN (`+placeholders+`)
		 GROUP BY assigned_agent`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to count open escalations: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			agent string
			n     int
		)
		if err := rows.Scan(&agent, &n); err != nil {
			return nil, fmt.Errorf("failed to scan open escalation count: %w", err)
		}
		counts[agent] = n
	}

	return counts, rows.Err()
}

func (r *EscalationRepository) query(ctx context.Context, op, query string, args ...any) ([]*secondary.EscalationRecord, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to %s: %w", op, err)
	}
	defer rows.Close()

	var escalations []*secondary.EscalationRecord
	for rows.Next() {
		record, err := scanEscalation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan escalation: %w", err)
		}
		escalations = append(escalations, record)
	}

	return escalations, rows.Err()
}

func scanEscalation(s scanner) (*secondary.EscalationRecord, error) {
	var userID, agent, deadline, reason, urgency sql.NullString

	record := &secondary.EscalationRecord{}
	err := s.Scan(&record.ClaimID, &userID, &record.CurrentLevel, &record.Status, &agent,
		&record.EstimatedResponseHours, &deadline, &reason, &urgency, &record.EscalationCount, &record.CreatedAt, &record.UpdatedAt)
	if err != nil {
		return nil, err
	}
	record.UserID = userID.String
	record.AssignedAgent = agent.String
	record.ConfirmationDeadline = deadline.String
	record.Reason = reason.String
	record.Urgency = urgency.String

	return record, nil
}
