package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/example/claimdesk/internal/ports/secondary"
)

// ClaimRepository implements secondary.ClaimRepository with SQLite.
type ClaimRepository struct {
	db *sql.DB
}

// NewClaimRepository creates a new SQLite claim repository.
func NewClaimRepository(db *sql.DB) *ClaimRepository {
	return &ClaimRepository{db: db}
}

var _ secondary.ClaimRepository = (*ClaimRepository)(nil)

const claimColumns = `id, user_id, type, estimated_amount, document_count, fraud_score, voice_confidence, contact_phone, preferred_channel, created_at, updated_at`

// Create persists a new claim.
func (r *ClaimRepository) Create(ctx context.Context, claim *secondary.ClaimRecord) error {
	channel := claim.PreferredChannel
	if channel == "" {
		channel = "whatsapp"
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO claims (`+claimColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		claim.ID,
		claim.UserID,
		claim.Type,
		claim.EstimatedAmount,
		claim.DocumentCount,
		nullFloat(claim.FraudScore),
		nullFloat(claim.VoiceConfidence),
		nullString(claim.ContactPhone),
		channel,
		claim.CreatedAt,
		claim.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create claim: %w", err)
	}

	return nil
}

// GetByID retrieves a claim by its ID.
func (r *ClaimRepository) GetByID(ctx context.Context, id string) (*secondary.ClaimRecord, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+claimColumns+` FROM claims WHERE id = ?`, id)

	record, err := scanClaim(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("claim %s: %w", id, secondary.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get claim: %w", err)
	}

	return record, nil
}

// UpdateFraudScore stores a freshly computed fraud score.
func (r *ClaimRepository) UpdateFraudScore(ctx context.Context, id string, score float64) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE claims SET fraud_score = ?, updated_at = ? WHERE id = ?`,
		score, secondary.FormatTime(now()), id,
	)
	if err != nil {
		return fmt.Errorf("failed to update fraud score: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update fraud score: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("claim %s: %w", id, secondary.ErrNotFound)
	}

	return nil
}

// List retrieves claims matching the given filters.
func (r *ClaimRepository) List(ctx context.Context, filters secondary.ClaimFilters) ([]*secondary.ClaimRecord, error) {
	query := `SELECT ` + claimColumns + ` FROM claims WHERE 1=1`
	args := []any{}

	if filters.UserID != "" {
		query += " AND user_id = ?"
		args = append(args, filters.UserID)
	}

	if filters.Type != "" {
		query += " AND type = ?"
		args = append(args, filters.Type)
	}

	query += " ORDER BY created_at DESC, id"

	if filters.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filters.Limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list claims: %w", err)
	}
	defer rows.Close()

	var claims []*secondary.ClaimRecord
	for rows.Next() {
		record, err := scanClaim(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan claim: %w", err)
		}
		claims = append(claims, record)
	}

	return claims, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanClaim(s scanner) (*secondary.ClaimRecord, error) {
	var (
		fraud, voice sql.NullFloat64
		phone        sql.NullString
	)

	record := &secondary.ClaimRecord{}
	err := s.Scan(&record.ID, &record.UserID, &record.Type, &record.EstimatedAmount, &record.DocumentCount,
		&fraud, &voice, &phone, &record.PreferredChannel, &record.CreatedAt, &record.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if fraud.Valid {
		record.FraudScore = &fraud.Float64
	}
	if voice.Valid {
		record.VoiceConfidence = &voice.Float64
	}
	record.ContactPhone = phone.String

	return record, nil
}

func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
