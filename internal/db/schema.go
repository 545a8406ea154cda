package db

import (
	"database/sql"

	"go.uber.org/zap"
)

// SchemaSQL is the complete modern schema for fresh installs.
// This schema reflects the current state after all migrations.
//
// This is the single source of truth for the database schema. Tests load it
// through GetSchemaSQL() instead of declaring their own tables, so a
// repository that references a missing column fails immediately.
//
// When adding new columns or tables:
//  1. Add a migration in migrations.go
//  2. Update SchemaSQL here
//
// Timestamps are TEXT in secondary.TimeLayout (fixed-width UTC), so string
// comparison orders them correctly.
const SchemaSQL = `
-- Claims (consumed by the decision engine)
CREATE TABLE IF NOT EXISTS claims (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	type TEXT NOT NULL,
	estimated_amount REAL NOT NULL DEFAULT 0 CHECK(estimated_amount >= 0),
	document_count INTEGER NOT NULL DEFAULT 0 CHECK(document_count >= 0),
	fraud_score REAL CHECK(fraud_score IS NULL OR (fraud_score >= 0 AND fraud_score <= 100)),
	voice_confidence REAL CHECK(voice_confidence IS NULL OR (voice_confidence >= 0 AND voice_confidence <= 1)),
	contact_phone TEXT,
	preferred_channel TEXT NOT NULL CHECK(preferred_channel IN ('whatsapp', 'sms')) DEFAULT 'whatsapp',
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_claims_user ON claims(user_id);

-- Escalations (one per claim, restarted in place)
CREATE TABLE IF NOT EXISTS escalations (
	claim_id TEXT PRIMARY KEY,
	user_id TEXT,
	current_level INTEGER NOT NULL CHECK(current_level >= 1),
	status TEXT NOT NULL CHECK(status IN ('pending', 'confirmed', 'escalated', 'resolved')),
	assigned_agent TEXT,
	estimated_response_hours REAL NOT NULL DEFAULT 0,
	confirmation_deadline TEXT,
	reason TEXT,
	urgency TEXT,
	escalation_count INTEGER NOT NULL DEFAULT 0,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_escalations_status_deadline ON escalations(status, confirmation_deadline);
CREATE INDEX IF NOT EXISTS idx_escalations_agent ON escalations(assigned_agent);

-- Escalation history (append-only audit trail)
CREATE TABLE IF NOT EXISTS escalation_history (
	claim_id TEXT NOT NULL,
	seq INTEGER NOT NULL,
	level INTEGER NOT NULL,
	timestamp TEXT NOT NULL,
	reason TEXT NOT NULL,
	agent TEXT,
	PRIMARY KEY (claim_id, seq),
	FOREIGN KEY (claim_id) REFERENCES escalations(claim_id) ON DELETE CASCADE
);
`

// InitSchema creates the schema on a fresh database and runs pending
// migrations on an existing one.
func InitSchema(db *sql.DB, logger *zap.Logger) error {
	var tableCount int
	err := db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'").Scan(&tableCount)
	if err != nil {
		return err
	}

	if tableCount == 0 {
		var existing int
		err = db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name IN ('claims', 'escalations')").Scan(&existing)
		if err != nil {
			return err
		}

		if existing > 0 {
			// Tables without version tracking - migrate them up
			return RunMigrations(db, logger)
		}

		// Completely fresh install - create modern schema directly and mark
		// every migration as applied
		if _, err := db.Exec(SchemaSQL); err != nil {
			return err
		}
		if err := createVersionTable(db); err != nil {
			return err
		}
		for _, m := range migrations {
			if _, err := db.Exec("INSERT INTO schema_version (version) VALUES (?)", m.Version); err != nil {
				return err
			}
		}
		return nil
	}

	return RunMigrations(db, logger)
}

// GetSchemaSQL returns the authoritative schema SQL for use by tests.
// Tests should use this instead of hardcoding their own schema to prevent drift.
func GetSchemaSQL() string {
	return SchemaSQL
}
