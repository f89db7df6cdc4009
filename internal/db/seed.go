package db

import (
	"database/sql"
	"fmt"
	"time"
)

// SeedFixtures populates the database with development fixtures: a mock-mode
// protocol, a hardware protocol, and an active session with queued work.
func SeedFixtures(database *sql.DB) error {
	now := time.Now().Format(time.RFC3339)

	protocols := []struct {
		id, name, port string
		mock           bool
	}{
		{"PROT-001", "sweetness-pilot-mock", "", true},
		{"PROT-002", "sweetness-pilot", "/dev/ttyUSB0", false},
	}
	for _, p := range protocols {
		var port sql.NullString
		if p.port != "" {
			port = sql.NullString{String: p.port, Valid: true}
		}
		if _, err := database.Exec(
			`INSERT INTO protocols (id, name, mock_mode, serial_port, created_at)
			 VALUES (?, ?, ?, ?, ?)`,
			p.id, p.name, p.mock, port, now,
		); err != nil {
			return fmt.Errorf("seed protocols: %w", err)
		}
	}

	if _, err := database.Exec(
		`INSERT INTO sessions (id, protocol_id, subject_code, current_phase, current_cycle, created_at)
		 VALUES ('SESS-001', 'PROT-001', 'SUB-000', 'waiting', 0, ?)`,
		now,
	); err != nil {
		return fmt.Errorf("seed sessions: %w", err)
	}

	// One cycle of queued hardware work for the executor to chew on
	ops := []struct {
		opType, target string
		mixCount       int
	}{
		{"position_spout", "spout", 0},
		{"mix", "", 5},
		{"position_display", "display", 0},
	}
	for _, op := range ops {
		var target sql.NullString
		if op.target != "" {
			target = sql.NullString{String: op.target, Valid: true}
		}
		var mixCount sql.NullInt64
		if op.mixCount > 0 {
			mixCount = sql.NullInt64{Int64: int64(op.mixCount), Valid: true}
		}
		if _, err := database.Exec(
			`INSERT INTO hardware_operations (session_id, cycle_number, operation_type, target_position, mix_count, status)
			 VALUES ('SESS-001', 1, ?, ?, ?, 'pending')`,
			op.opType, target, mixCount,
		); err != nil {
			return fmt.Errorf("seed hardware operations: %w", err)
		}
	}

	return nil
}
