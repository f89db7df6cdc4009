package db

import (
	"database/sql"
	"fmt"
)

// Migration represents a database migration
type Migration struct {
	Version int
	Name    string
	Up      func(*sql.DB) error
}

// migrations is the list of all migrations in order
var migrations = []Migration{
	{
		Version: 1,
		Name:    "add_transition_count_to_sessions",
		Up:      migrationV1,
	},
	{
		Version: 2,
		Name:    "add_samples_table",
		Up:      migrationV2,
	},
	{
		Version: 3,
		Name:    "add_move_timeout_to_protocols",
		Up:      migrationV3,
	},
}

// RunMigrations runs all pending migrations against the database.
func RunMigrations() error {
	db, err := GetDB()
	if err != nil {
		return fmt.Errorf("failed to get database: %w", err)
	}

	// Create schema_version table if it doesn't exist
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create schema_version table: %w", err)
	}

	// Get current schema version
	var currentVersion int
	err = db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_version").Scan(&currentVersion)
	if err != nil {
		return fmt.Errorf("failed to get current schema version: %w", err)
	}

	// Run pending migrations
	for _, migration := range migrations {
		if migration.Version <= currentVersion {
			continue
		}

		fmt.Printf("Running migration %d: %s\n", migration.Version, migration.Name)

		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("failed to begin transaction for migration %d: %w", migration.Version, err)
		}

		if err := migration.Up(db); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration %d failed: %w", migration.Version, err)
		}

		_, err = tx.Exec("INSERT INTO schema_version (version) VALUES (?)", migration.Version)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to record migration %d: %w", migration.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, err)
		}

		fmt.Printf("✓ Migration %d completed\n", migration.Version)
	}

	return nil
}

// migrationV1 adds the circuit-breaker transition counter to sessions.
func migrationV1(db *sql.DB) error {
	_, err := db.Exec("ALTER TABLE sessions ADD COLUMN transition_count INTEGER NOT NULL DEFAULT 0")
	return err
}

// migrationV2 adds the per-cycle samples table.
func migrationV2(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS samples (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT NOT NULL,
			cycle_number INTEGER NOT NULL,
			target TEXT,
			dispensed TEXT,
			response TEXT,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			responded_at DATETIME,
			UNIQUE(session_id, cycle_number),
			FOREIGN KEY (session_id) REFERENCES sessions(id)
		)
	`)
	return err
}

// migrationV3 splits the move timeout out of the command timeout. Positioning
// waits run much longer than a single command round trip.
func migrationV3(db *sql.DB) error {
	_, err := db.Exec("ALTER TABLE protocols ADD COLUMN move_timeout_seconds REAL NOT NULL DEFAULT 30.0")
	return err
}
