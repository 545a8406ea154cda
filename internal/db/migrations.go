package db

import (
	"database/sql"
	"fmt"

	"go.uber.org/zap"
)

// Migration represents a database migration
type Migration struct {
	Version int
	Name    string
	Up      func(*sql.Tx) error
}

// migrations is the list of all migrations in order
var migrations = []Migration{
	{
		Version: 1,
		Name:    "create_claims_and_escalations",
		Up:      migrationV1,
	},
	{
		Version: 2,
		Name:    "add_escalation_history_table",
		Up:      migrationV2,
	},
	{
		Version: 3,
		Name:    "add_contact_channel_to_claims",
		Up:      migrationV3,
	},
	{
		Version: 4,
		Name:    "add_deadline_and_agent_indexes",
		Up:      migrationV4,
	},
	{
		Version: 5,
		Name:    "add_escalation_count",
		Up:      migrationV5,
	},
}

func createVersionTable(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create schema_version table: %w", err)
	}
	return nil
}

// CurrentVersion returns the highest applied migration version.
func CurrentVersion(db *sql.DB) (int, error) {
	var version int
	err := db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_version").Scan(&version)
	if err != nil {
		return 0, fmt.Errorf("failed to get current schema version: %w", err)
	}
	return version, nil
}

// RunMigrations applies every migration newer than the recorded version.
// Each migration and its version row commit in one transaction.
func RunMigrations(db *sql.DB, logger *zap.Logger) error {
	if err := createVersionTable(db); err != nil {
		return err
	}

	currentVersion, err := CurrentVersion(db)
	if err != nil {
		return err
	}

	for _, migration := range migrations {
		if migration.Version <= currentVersion {
			continue
		}

		logger.Info("running migration", zap.Int("version", migration.Version), zap.String("name", migration.Name))

		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("failed to begin transaction for migration %d: %w", migration.Version, err)
		}

		if err := migration.Up(tx); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration %d failed: %w", migration.Version, err)
		}

		if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", migration.Version); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to record migration %d: %w", migration.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, err)
		}
	}

	return nil
}

// migrationV1 creates the first claims and escalations tables
func migrationV1(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS claims (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			type TEXT NOT NULL,
			estimated_amount REAL NOT NULL DEFAULT 0 CHECK(estimated_amount >= 0),
			document_count INTEGER NOT NULL DEFAULT 0 CHECK(document_count >= 0),
			fraud_score REAL CHECK(fraud_score IS NULL OR (fraud_score >= 0 AND fraud_score <= 100)),
			voice_confidence REAL CHECK(voice_confidence IS NULL OR (voice_confidence >= 0 AND voice_confidence <= 1)),
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create claims: %w", err)
	}

	if _, err := tx.Exec(`CREATE INDEX IF NOT EXISTS idx_claims_user ON claims(user_id)`); err != nil {
		return fmt.Errorf("failed to create idx_claims_user: %w", err)
	}

	_, err = tx.Exec(`
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
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create escalations: %w", err)
	}

	return nil
}

// migrationV2 moves the audit trail into its own append-only table
func migrationV2(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS escalation_history (
			claim_id TEXT NOT NULL,
			seq INTEGER NOT NULL,
			level INTEGER NOT NULL,
			timestamp TEXT NOT NULL,
			reason TEXT NOT NULL,
			agent TEXT,
			PRIMARY KEY (claim_id, seq),
			FOREIGN KEY (claim_id) REFERENCES escalations(claim_id) ON DELETE CASCADE
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create escalation_history: %w", err)
	}
	return nil
}

// migrationV3 adds the customer contact used by notifications
func migrationV3(tx *sql.Tx) error {
	var count int
	err := tx.QueryRow(`SELECT COUNT(*) FROM pragma_table_info('claims') WHERE name = 'contact_phone'`).Scan(&count)
	if err != nil {
		return fmt.Errorf("failed to inspect claims: %w", err)
	}
	if count > 0 {
		return nil
	}

	if _, err := tx.Exec(`ALTER TABLE claims ADD COLUMN contact_phone TEXT`); err != nil {
		return fmt.Errorf("failed to add contact_phone: %w", err)
	}
	_, err = tx.Exec(`ALTER TABLE claims ADD COLUMN preferred_channel TEXT NOT NULL CHECK(preferred_channel IN ('whatsapp', 'sms')) DEFAULT 'whatsapp'`)
	if err != nil {
		return fmt.Errorf("failed to add preferred_channel: %w", err)
	}
	return nil
}

// migrationV4 indexes the columns the sweep and the load-aware strategy query
func migrationV4(tx *sql.Tx) error {
	stmts := []string{
		`CREATE INDEX IF NOT EXISTS idx_escalations_status_deadline ON escalations(status, confirmation_deadline)`,
		`CREATE INDEX IF NOT EXISTS idx_escalations_agent ON escalations(assigned_agent)`,
	}
	for _, stmt := range stmts {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}
	return nil
}

// migrationV5 stores how often a claim was escalated. Existing rows are
// backfilled from the level changes in their history plus the opening entry;
// restarts of earlier cycles cannot be told apart and are not counted.
func migrationV5(tx *sql.Tx) error {
	var count int
	err := tx.QueryRow(`SELECT COUNT(*) FROM pragma_table_info('escalations') WHERE name = 'escalation_count'`).Scan(&count)
	if err != nil {
		return fmt.Errorf("failed to inspect escalations: %w", err)
	}
	if count > 0 {
		return nil
	}

	if _, err := tx.Exec(`ALTER TABLE escalations ADD COLUMN escalation_count INTEGER NOT NULL DEFAULT 0`); err != nil {
		return fmt.Errorf("failed to add escalation_count: %w", err)
	}
	_, err = tx.Exec(`UPDATE escalations SET escalation_count = 1 + (
		SELECT COUNT(*) FROM escalation_history h
		WHERE h.claim_id = escalations.claim_id
		  AND (h.reason LIKE 'Escalated to %' OR h.reason = 'Escalation timeout - no confirmation received')
	)`)
	if err != nil {
		return fmt.Errorf("failed to backfill escalation_count: %w", err)
	}
	return nil
}
