// Package sqlite_test contains integration tests for SQLite repositories.
//
// This file is the SINGLE POINT where the database schema is loaded for
// tests. All test setup uses db.GetSchemaSQL() so tests run against the
// authoritative schema, preventing drift between test and production.
// Do not hardcode CREATE TABLE statements in test files.
package sqlite_test

import (
	"context"
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"

	"github.com/alon-nissan/robotaste-sub000/internal/adapters/sqlite"
	"github.com/alon-nissan/robotaste-sub000/internal/db"
	"github.com/alon-nissan/robotaste-sub000/internal/ports/secondary"
)

// setupTestDB creates an in-memory database with the authoritative schema.
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	testDB, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}

	if _, err := testDB.Exec(db.GetSchemaSQL()); err != nil {
		t.Fatalf("failed to create schema: %v", err)
	}

	t.Cleanup(func() {
		testDB.Close()
	})

	return testDB
}

// seedProtocol inserts a test protocol and returns its ID.
func seedProtocol(t *testing.T, db *sql.DB, id, name string) string {
	t.Helper()
	if id == "" {
		id = "PROT-001"
	}
	if name == "" {
		name = "test-protocol"
	}
	_, err := db.Exec(
		"INSERT INTO protocols (id, name, mock_mode) VALUES (?, ?, 1)",
		id, name,
	)
	if err != nil {
		t.Fatalf("failed to seed protocol: %v", err)
	}
	return id
}

// seedSession inserts a test session and returns its ID.
func seedSession(t *testing.T, db *sql.DB, id, protocolID string) string {
	t.Helper()
	if id == "" {
		id = "SESS-001"
	}
	if protocolID == "" {
		protocolID = "PROT-001"
	}
	_, err := db.Exec(
		"INSERT INTO sessions (id, protocol_id, current_phase, state) VALUES (?, ?, 'waiting', 'active')",
		id, protocolID,
	)
	if err != nil {
		t.Fatalf("failed to seed session: %v", err)
	}
	return id
}

// listFilters builds an OperationFilters for queries in tests.
func listFilters(sessionID string, cycle int, status string) secondary.OperationFilters {
	return secondary.OperationFilters{
		SessionID:   sessionID,
		CycleNumber: cycle,
		Status:      status,
	}
}

// enqueueOperation inserts a pending operation via the repository and
// returns its ID.
func enqueueOperation(t *testing.T, repo *sqlite.OperationRepository, sessionID string, cycle int, opType, target string, mixCount int) int64 {
	t.Helper()
	id, err := repo.Enqueue(context.Background(), &secondary.OperationRecord{
		SessionID:      sessionID,
		CycleNumber:    cycle,
		OperationType:  opType,
		TargetPosition: target,
		MixCount:       mixCount,
	})
	if err != nil {
		t.Fatalf("failed to enqueue operation: %v", err)
	}
	return id
}
