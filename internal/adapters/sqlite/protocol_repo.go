// Package sqlite contains SQLite implementations of repository interfaces.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/alon-nissan/robotaste-sub000/internal/ports/secondary"
)

// ProtocolRepository implements secondary.ProtocolRepository with SQLite.
type ProtocolRepository struct {
	db *sql.DB
}

// NewProtocolRepository creates a new SQLite protocol repository.
func NewProtocolRepository(db *sql.DB) *ProtocolRepository {
	return &ProtocolRepository{db: db}
}

const protocolColumns = `id, name, hardware_enabled, mock_mode, serial_port, baud_rate,
	command_timeout_seconds, move_timeout_seconds, mixing_enabled, mix_oscillations,
	max_cycles, phase_sequence, created_at, updated_at`

// Create persists a new protocol.
func (r *ProtocolRepository) Create(ctx context.Context, protocol *secondary.ProtocolRecord) error {
	var port sql.NullString
	if protocol.SerialPort != "" {
		port = sql.NullString{String: protocol.SerialPort, Valid: true}
	}
	var seq sql.NullString
	if protocol.PhaseSequence != "" {
		seq = sql.NullString{String: protocol.PhaseSequence, Valid: true}
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO protocols (id, name, hardware_enabled, mock_mode, serial_port, baud_rate,
			command_timeout_seconds, move_timeout_seconds, mixing_enabled, mix_oscillations,
			max_cycles, phase_sequence)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		protocol.ID, protocol.Name, protocol.HardwareEnabled, protocol.MockMode, port,
		protocol.BaudRate, protocol.CommandTimeoutSeconds, protocol.MoveTimeoutSeconds,
		protocol.MixingEnabled, protocol.MixOscillations, protocol.MaxCycles, seq,
	)
	if err != nil {
		return fmt.Errorf("failed to create protocol: %w", err)
	}

	return nil
}

// GetByID retrieves a protocol by its ID.
func (r *ProtocolRepository) GetByID(ctx context.Context, id string) (*secondary.ProtocolRecord, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+protocolColumns+" FROM protocols WHERE id = ?", id)
	record, err := scanProtocol(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("protocol %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get protocol: %w", err)
	}
	return record, nil
}

// GetByName retrieves a protocol by its unique name.
func (r *ProtocolRepository) GetByName(ctx context.Context, name string) (*secondary.ProtocolRecord, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+protocolColumns+" FROM protocols WHERE name = ?", name)
	record, err := scanProtocol(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("protocol %q not found", name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get protocol: %w", err)
	}
	return record, nil
}

// List retrieves all protocols, newest first.
func (r *ProtocolRepository) List(ctx context.Context) ([]*secondary.ProtocolRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+protocolColumns+" FROM protocols ORDER BY created_at DESC")
	if err != nil {
		return nil, fmt.Errorf("failed to list protocols: %w", err)
	}
	defer rows.Close()

	var protocols []*secondary.ProtocolRecord
	for rows.Next() {
		record, err := scanProtocol(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan protocol: %w", err)
		}
		protocols = append(protocols, record)
	}

	return protocols, rows.Err()
}

// GetNextID returns the next available protocol ID.
func (r *ProtocolRepository) GetNextID(ctx context.Context) (string, error) {
	var maxID int
	err := r.db.QueryRowContext(ctx,
		"SELECT COALESCE(MAX(CAST(SUBSTR(id, 6) AS INTEGER)), 0) FROM protocols",
	).Scan(&maxID)
	if err != nil {
		return "", fmt.Errorf("failed to get next protocol ID: %w", err)
	}

	return fmt.Sprintf("PROT-%03d", maxID+1), nil
}

// scanner abstracts *sql.Row and *sql.Rows for shared scan helpers.
type scanner interface {
	Scan(dest ...any) error
}

func scanProtocol(s scanner) (*secondary.ProtocolRecord, error) {
	var (
		port      sql.NullString
		seq       sql.NullString
		createdAt time.Time
		updatedAt time.Time
	)

	record := &secondary.ProtocolRecord{}
	err := s.Scan(
		&record.ID, &record.Name, &record.HardwareEnabled, &record.MockMode, &port,
		&record.BaudRate, &record.CommandTimeoutSeconds, &record.MoveTimeoutSeconds,
		&record.MixingEnabled, &record.MixOscillations, &record.MaxCycles, &seq,
		&createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	record.SerialPort = port.String
	record.PhaseSequence = seq.String
	record.CreatedAt = createdAt.Format(time.RFC3339)
	record.UpdatedAt = updatedAt.Format(time.RFC3339)

	return record, nil
}

// Ensure ProtocolRepository implements the interface
var _ secondary.ProtocolRepository = (*ProtocolRepository)(nil)
