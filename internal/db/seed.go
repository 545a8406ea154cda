package db

import (
	"database/sql"
	"fmt"
	"time"
)

// SeedFixtures populates the database with development claims that exercise
// every rule of the decision cascade.
func SeedFixtures(database *sql.DB) error {
	now := time.Now().UTC().Format("2006-01-02T15:04:05.000Z")

	claims := []struct {
		id, user, typ  string
		amount         float64
		docs           int
		fraud, voice   sql.NullFloat64
		phone, channel string
	}{
		{"CLM-0001", "USR-001", "property", 32000, 4, sql.NullFloat64{}, sql.NullFloat64{}, "+15550101", "whatsapp"},
		{"CLM-0002", "USR-002", "auto", 4000, 3, sql.NullFloat64{Float64: 72, Valid: true}, sql.NullFloat64{}, "+15550102", "sms"},
		{"CLM-0003", "USR-003", "auto", 2500, 1, sql.NullFloat64{Float64: 30, Valid: true}, sql.NullFloat64{}, "+15550103", "whatsapp"},
		{"CLM-0004", "USR-004", "accident", 14000, 5, sql.NullFloat64{}, sql.NullFloat64{}, "+15550104", "whatsapp"},
		{"CLM-0005", "USR-005", "medical", 5000, 2, sql.NullFloat64{}, sql.NullFloat64{Float64: 0.5, Valid: true}, "+15550105", "sms"},
		{"CLM-0006", "USR-006", "medical", 1000, 3, sql.NullFloat64{}, sql.NullFloat64{}, "+15550106", "whatsapp"},
	}
	for _, c := range claims {
		if _, err := database.Exec(
			`INSERT INTO claims (id, user_id, type, estimated_amount, document_count, fraud_score, voice_confidence, contact_phone, preferred_channel, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			c.id, c.user, c.typ, c.amount, c.docs, c.fraud, c.voice, c.phone, c.channel, now, now,
		); err != nil {
			return fmt.Errorf("seed claims: %w", err)
		}
	}

	return nil
}
