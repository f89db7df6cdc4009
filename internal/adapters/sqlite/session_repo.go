package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/alon-nissan/robotaste-sub000/internal/ports/secondary"
)

// SessionRepository implements secondary.SessionRepository with SQLite.
type SessionRepository struct {
	db *sql.DB
}

// NewSessionRepository creates a new SQLite session repository.
func NewSessionRepository(db *sql.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

const sessionColumns = `id, protocol_id, subject_code, current_phase, current_cycle,
	transition_count, state, experiment_config, created_at, updated_at, completed_at`

// Create persists a new session.
func (r *SessionRepository) Create(ctx context.Context, session *secondary.SessionRecord) error {
	var subject sql.NullString
	if session.SubjectCode != "" {
		subject = sql.NullString{String: session.SubjectCode, Valid: true}
	}
	var config sql.NullString
	if session.ExperimentConfig != "" {
		config = sql.NullString{String: session.ExperimentConfig, Valid: true}
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO sessions (id, protocol_id, subject_code, current_phase, current_cycle,
			transition_count, state, experiment_config)
		 VALUES (?, ?, ?, ?, ?, ?, 'active', ?)`,
		session.ID, session.ProtocolID, subject, session.CurrentPhase,
		session.CurrentCycle, session.TransitionCount, config,
	)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}

	return nil
}

// GetByID retrieves a session by its ID.
func (r *SessionRepository) GetByID(ctx context.Context, id string) (*secondary.SessionRecord, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+sessionColumns+" FROM sessions WHERE id = ?", id)
	record, err := scanSession(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("session %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return record, nil
}

// List retrieves sessions matching the given filters.
func (r *SessionRepository) List(ctx context.Context, filters secondary.SessionFilters) ([]*secondary.SessionRecord, error) {
	query := "SELECT " + sessionColumns + " FROM sessions WHERE 1=1"
	args := []any{}

	if filters.ProtocolID != "" {
		query += " AND protocol_id = ?"
		args = append(args, filters.ProtocolID)
	}
	if filters.State != "" {
		query += " AND state = ?"
		args = append(args, filters.State)
	}

	query += " ORDER BY created_at DESC"
	if filters.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filters.Limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*secondary.SessionRecord
	for rows.Next() {
		record, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		sessions = append(sessions, record)
	}

	return sessions, rows.Err()
}

// UpdatePhase updates the current phase and persisted transition count.
func (r *SessionRepository) UpdatePhase(ctx context.Context, id, phase string, transitionCount int) error {
	result, err := r.db.ExecContext(ctx,
		"UPDATE sessions SET current_phase = ?, transition_count = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?",
		phase, transitionCount, id,
	)
	if err != nil {
		return fmt.Errorf("failed to update session phase: %w", err)
	}
	return requireRow(result, "session", id)
}

// UpdateCycle updates the cycle counter.
func (r *SessionRepository) UpdateCycle(ctx context.Context, id string, cycle int) error {
	result, err := r.db.ExecContext(ctx,
		"UPDATE sessions SET current_cycle = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?",
		cycle, id,
	)
	if err != nil {
		return fmt.Errorf("failed to update session cycle: %w", err)
	}
	return requireRow(result, "session", id)
}

// UpdateState updates the session state, setting completed_at when asked.
func (r *SessionRepository) UpdateState(ctx context.Context, id, state string, setCompleted bool) error {
	var query string
	if setCompleted {
		query = "UPDATE sessions SET state = ?, completed_at = CURRENT_TIMESTAMP, updated_at = CURRENT_TIMESTAMP WHERE id = ?"
	} else {
		query = "UPDATE sessions SET state = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?"
	}

	result, err := r.db.ExecContext(ctx, query, state, id)
	if err != nil {
		return fmt.Errorf("failed to update session state: %w", err)
	}
	return requireRow(result, "session", id)
}

// GetNextID returns the next available session ID.
func (r *SessionRepository) GetNextID(ctx context.Context) (string, error) {
	var maxID int
	err := r.db.QueryRowContext(ctx,
		"SELECT COALESCE(MAX(CAST(SUBSTR(id, 6) AS INTEGER)), 0) FROM sessions",
	).Scan(&maxID)
	if err != nil {
		return "", fmt.Errorf("failed to get next session ID: %w", err)
	}

	return fmt.Sprintf("SESS-%03d", maxID+1), nil
}

// ProtocolExists checks if a protocol exists.
func (r *SessionRepository) ProtocolExists(ctx context.Context, protocolID string) (bool, error) {
	var count int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM protocols WHERE id = ?", protocolID).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check protocol existence: %w", err)
	}
	return count > 0, nil
}

func scanSession(s scanner) (*secondary.SessionRecord, error) {
	var (
		subject     sql.NullString
		config      sql.NullString
		createdAt   time.Time
		updatedAt   time.Time
		completedAt sql.NullTime
	)

	record := &secondary.SessionRecord{}
	err := s.Scan(
		&record.ID, &record.ProtocolID, &subject, &record.CurrentPhase,
		&record.CurrentCycle, &record.TransitionCount, &record.State, &config,
		&createdAt, &updatedAt, &completedAt,
	)
	if err != nil {
		return nil, err
	}

	record.SubjectCode = subject.String
	record.ExperimentConfig = config.String
	record.CreatedAt = createdAt.Format(time.RFC3339)
	record.UpdatedAt = updatedAt.Format(time.RFC3339)
	if completedAt.Valid {
		record.CompletedAt = completedAt.Time.Format(time.RFC3339)
	}

	return record, nil
}

// requireRow converts a zero-rows-affected update into a not-found error.
func requireRow(result sql.Result, entity, id string) error {
	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return fmt.Errorf("%s %s not found", entity, id)
	}
	return nil
}

// Ensure SessionRepository implements the interface
var _ secondary.SessionRepository = (*SessionRepository)(nil)
