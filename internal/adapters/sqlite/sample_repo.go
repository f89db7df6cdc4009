package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/alon-nissan/robotaste-sub000/internal/ports/secondary"
)

// SampleRepository implements secondary.SampleRepository with SQLite.
type SampleRepository struct {
	db *sql.DB
}

// NewSampleRepository creates a new SQLite sample repository.
func NewSampleRepository(db *sql.DB) *SampleRepository {
	return &SampleRepository{db: db}
}

// Create records the selected target for a cycle.
func (r *SampleRepository) Create(ctx context.Context, sample *secondary.SampleRecord) error {
	var target sql.NullString
	if sample.Target != "" {
		target = sql.NullString{String: sample.Target, Valid: true}
	}

	_, err := r.db.ExecContext(ctx,
		"INSERT INTO samples (session_id, cycle_number, target) VALUES (?, ?, ?)",
		sample.SessionID, sample.CycleNumber, target,
	)
	if err != nil {
		return fmt.Errorf("failed to create sample: %w", err)
	}

	return nil
}

// RecordDispensed stores what the pump subsystem reported dispensing.
func (r *SampleRepository) RecordDispensed(ctx context.Context, sessionID string, cycleNumber int, dispensed string) error {
	result, err := r.db.ExecContext(ctx,
		"UPDATE samples SET dispensed = ? WHERE session_id = ? AND cycle_number = ?",
		dispensed, sessionID, cycleNumber,
	)
	if err != nil {
		return fmt.Errorf("failed to record dispensed concentrations: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return fmt.Errorf("no sample for session %s cycle %d", sessionID, cycleNumber)
	}
	return nil
}

// RecordResponse stores the subject's feedback and stamps responded_at.
func (r *SampleRepository) RecordResponse(ctx context.Context, sessionID string, cycleNumber int, response string) error {
	result, err := r.db.ExecContext(ctx,
		"UPDATE samples SET response = ?, responded_at = CURRENT_TIMESTAMP WHERE session_id = ? AND cycle_number = ?",
		response, sessionID, cycleNumber,
	)
	if err != nil {
		return fmt.Errorf("failed to record response: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return fmt.Errorf("no sample for session %s cycle %d", sessionID, cycleNumber)
	}
	return nil
}

// GetForCycle retrieves the sample row for one cycle.
func (r *SampleRepository) GetForCycle(ctx context.Context, sessionID string, cycleNumber int) (*secondary.SampleRecord, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, session_id, cycle_number, target, dispensed, response, created_at, responded_at
		 FROM samples WHERE session_id = ? AND cycle_number = ?`,
		sessionID, cycleNumber,
	)
	record, err := scanSample(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("no sample for session %s cycle %d", sessionID, cycleNumber)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get sample: %w", err)
	}
	return record, nil
}

// ListForSession retrieves a session's samples in cycle order.
func (r *SampleRepository) ListForSession(ctx context.Context, sessionID string) ([]*secondary.SampleRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, session_id, cycle_number, target, dispensed, response, created_at, responded_at
		 FROM samples WHERE session_id = ? ORDER BY cycle_number ASC`,
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list samples: %w", err)
	}
	defer rows.Close()

	var samples []*secondary.SampleRecord
	for rows.Next() {
		record, err := scanSample(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan sample: %w", err)
		}
		samples = append(samples, record)
	}

	return samples, rows.Err()
}

func scanSample(s scanner) (*secondary.SampleRecord, error) {
	var (
		target      sql.NullString
		dispensed   sql.NullString
		response    sql.NullString
		createdAt   time.Time
		respondedAt sql.NullTime
	)

	record := &secondary.SampleRecord{}
	err := s.Scan(&record.ID, &record.SessionID, &record.CycleNumber, &target, &dispensed, &response, &createdAt, &respondedAt)
	if err != nil {
		return nil, err
	}

	record.Target = target.String
	record.Dispensed = dispensed.String
	record.Response = response.String
	record.CreatedAt = createdAt.Format(time.RFC3339)
	if respondedAt.Valid {
		record.RespondedAt = respondedAt.Time.Format(time.RFC3339)
	}

	return record, nil
}

// Ensure SampleRepository implements the interface
var _ secondary.SampleRepository = (*SampleRepository)(nil)
