package db

// SchemaSQL is the complete schema for fresh RoboTaste installs.
//
// This is the SINGLE SOURCE OF TRUTH for the database schema. All repository
// tests load it via GetSchemaSQL() so test schemas cannot drift from the one
// shipped to moderator machines. If repository code references a column that
// does not exist here, tests fail immediately with "no such column".
//
// When adding columns or tables:
//  1. Add a migration in internal/db/migrations.go
//  2. Update SchemaSQL here
const SchemaSQL = `
-- Protocols (experiment configuration: hardware parameters + phase sequence)
CREATE TABLE IF NOT EXISTS protocols (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL UNIQUE,
	hardware_enabled INTEGER NOT NULL DEFAULT 1,
	mock_mode INTEGER NOT NULL DEFAULT 0,
	serial_port TEXT,
	baud_rate INTEGER NOT NULL DEFAULT 9600,
	command_timeout_seconds REAL NOT NULL DEFAULT 2.0,
	move_timeout_seconds REAL NOT NULL DEFAULT 30.0,
	mixing_enabled INTEGER NOT NULL DEFAULT 1,
	mix_oscillations INTEGER NOT NULL DEFAULT 5,
	max_cycles INTEGER NOT NULL DEFAULT 10,
	phase_sequence TEXT,
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
	updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

-- Sessions (one subject's run through a protocol)
CREATE TABLE IF NOT EXISTS sessions (
	id TEXT PRIMARY KEY,
	protocol_id TEXT NOT NULL,
	subject_code TEXT,
	current_phase TEXT NOT NULL DEFAULT 'waiting',
	current_cycle INTEGER NOT NULL DEFAULT 0,
	transition_count INTEGER NOT NULL DEFAULT 0,
	state TEXT NOT NULL CHECK(state IN ('active', 'completed', 'aborted')) DEFAULT 'active',
	experiment_config TEXT,
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
	updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
	completed_at DATETIME,
	FOREIGN KEY (protocol_id) REFERENCES protocols(id)
);

CREATE INDEX IF NOT EXISTS idx_sessions_state ON sessions(state);

-- Hardware operations (durable work queue between phase layer and executor)
-- Append-only: rows change status but are never deleted.
CREATE TABLE IF NOT EXISTS hardware_operations (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id TEXT NOT NULL,
	cycle_number INTEGER NOT NULL,
	operation_type TEXT NOT NULL CHECK(operation_type IN ('position_spout', 'position_display', 'mix')),
	target_position TEXT,
	mix_count INTEGER,
	status TEXT NOT NULL CHECK(status IN ('pending', 'in_progress', 'completed', 'failed', 'skipped')) DEFAULT 'pending',
	error_message TEXT,
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
	started_at DATETIME,
	completed_at DATETIME,
	FOREIGN KEY (session_id) REFERENCES sessions(id)
);

CREATE INDEX IF NOT EXISTS idx_hardware_operations_status ON hardware_operations(status);
CREATE INDEX IF NOT EXISTS idx_hardware_operations_session_cycle ON hardware_operations(session_id, cycle_number);

-- Raw command/response audit trail per operation. Never read by the
-- executor, only by humans and debugging tools.
CREATE TABLE IF NOT EXISTS hardware_operation_logs (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	operation_id INTEGER NOT NULL,
	command TEXT NOT NULL,
	response TEXT,
	success INTEGER NOT NULL DEFAULT 0,
	error_message TEXT,
	timestamp DATETIME DEFAULT CURRENT_TIMESTAMP,
	FOREIGN KEY (operation_id) REFERENCES hardware_operations(id)
);

CREATE INDEX IF NOT EXISTS idx_hardware_operation_logs_operation ON hardware_operation_logs(operation_id);

-- Samples (per-cycle record: selected target, what was dispensed, feedback)
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
);
`

// InitSchema creates the database schema.
func InitSchema() error {
	db, err := GetDB()
	if err != nil {
		return err
	}

	// Fresh installs get the modern schema directly with all migration
	// versions recorded; existing databases run pending migrations.
	var tableCount int
	err = db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'").Scan(&tableCount)
	if err != nil {
		return err
	}

	if tableCount == 0 {
		if _, err := db.Exec(SchemaSQL); err != nil {
			return err
		}
		if _, err := db.Exec(`
			CREATE TABLE IF NOT EXISTS schema_version (
				version INTEGER PRIMARY KEY,
				applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
			)
		`); err != nil {
			return err
		}
		for _, m := range migrations {
			if _, err := db.Exec("INSERT INTO schema_version (version) VALUES (?)", m.Version); err != nil {
				return err
			}
		}
		return nil
	}

	return RunMigrations()
}

// GetSchemaSQL returns the authoritative schema SQL for use by tests.
// Tests should use this instead of hardcoding their own schema to prevent drift.
func GetSchemaSQL() string {
	return SchemaSQL
}
