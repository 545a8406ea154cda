// Package sqlite_test contains integration tests for SQLite repositories.
//
// # Schema Protection
//
// This file is the SINGLE POINT where the database schema is loaded for tests.
// All test setup functions use db.GetSchemaSQL() to ensure tests run against
// the authoritative schema, preventing drift between test and production.
//
// DO NOT hardcode CREATE TABLE statements in test files. Use setupTestDB()
// and the seed* helpers instead.
package sqlite_test

import (
	"database/sql"
	"testing"

	"github.com/example/claimdesk/internal/db"
)

// setupTestDB creates an in-memory database with the authoritative schema.
// This is the single shared test database setup function for all repository tests.
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	testDB, err := db.Open(":memory:")
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}

	// Use the authoritative schema from schema.go
	_, err = testDB.Exec(db.GetSchemaSQL())
	if err != nil {
		t.Fatalf("failed to create schema: %v", err)
	}

	t.Cleanup(func() {
		testDB.Close()
	})

	return testDB
}

// seedClaim inserts a minimal test claim and returns its ID.
func seedClaim(t *testing.T, db *sql.DB, id, userID string, amount float64) string {
	t.Helper()
	if id == "" {
		id = "CLM-001"
	}
	if userID == "" {
		userID = "USR-001"
	}
	_, err := db.Exec(
		`INSERT INTO claims (id, user_id, type, estimated_amount, document_count, created_at, updated_at)
		 VALUES (?, ?, 'auto', ?, 2, '2026-01-01T00:00:00.000Z', '2026-01-01T00:00:00.000Z')`,
		id, userID, amount,
	)
	if err != nil {
		t.Fatalf("failed to seed claim: %v", err)
	}
	return id
}
