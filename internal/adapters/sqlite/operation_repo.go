package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/alon-nissan/robotaste-sub000/internal/models"
	"github.com/alon-nissan/robotaste-sub000/internal/ports/secondary"
)

// OperationRepository implements secondary.OperationRepository with SQLite.
// This table is the outbox between the phase-driving process and the
// executor process; rows are append-only.
type OperationRepository struct {
	db *sql.DB
}

// NewOperationRepository creates a new SQLite operation repository.
func NewOperationRepository(db *sql.DB) *OperationRepository {
	return &OperationRepository{db: db}
}

const operationColumns = `id, session_id, cycle_number, operation_type, target_position,
	mix_count, status, error_message, created_at, started_at, completed_at`

// Enqueue appends a pending operation and returns its auto-assigned ID.
func (r *OperationRepository) Enqueue(ctx context.Context, op *secondary.OperationRecord) (int64, error) {
	var target sql.NullString
	if op.TargetPosition != "" {
		target = sql.NullString{String: op.TargetPosition, Valid: true}
	}
	var mixCount sql.NullInt64
	if op.MixCount > 0 {
		mixCount = sql.NullInt64{Int64: int64(op.MixCount), Valid: true}
	}

	result, err := r.db.ExecContext(ctx,
		`INSERT INTO hardware_operations (session_id, cycle_number, operation_type, target_position, mix_count, status)
		 VALUES (?, ?, ?, ?, ?, 'pending')`,
		op.SessionID, op.CycleNumber, op.OperationType, target, mixCount,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to enqueue operation: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get operation ID: %w", err)
	}

	return id, nil
}

// GetByID retrieves an operation by its ID.
func (r *OperationRepository) GetByID(ctx context.Context, id int64) (*secondary.OperationRecord, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+operationColumns+" FROM hardware_operations WHERE id = ?", id)
	record, err := scanOperation(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("operation %d not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get operation: %w", err)
	}
	return record, nil
}

// NextPending returns the oldest pending operations across all sessions,
// ordered by creation. Within a cycle this preserves the spout -> mix ->
// display creation order; across sessions it is global FIFO.
func (r *OperationRepository) NextPending(ctx context.Context, limit int) ([]*secondary.OperationRecord, error) {
	if limit <= 0 {
		limit = 1
	}

	rows, err := r.db.QueryContext(ctx,
		"SELECT "+operationColumns+" FROM hardware_operations WHERE status = 'pending' ORDER BY id ASC LIMIT ?",
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch pending operations: %w", err)
	}
	defer rows.Close()

	return collectOperations(rows)
}

// MarkInProgress transitions pending -> in_progress and stamps started_at.
func (r *OperationRepository) MarkInProgress(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx,
		"UPDATE hardware_operations SET status = 'in_progress', started_at = CURRENT_TIMESTAMP WHERE id = ? AND status = 'pending'",
		id,
	)
	if err != nil {
		return fmt.Errorf("failed to mark operation in progress: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return fmt.Errorf("operation %d is not pending", id)
	}
	return nil
}

// MarkCompleted transitions to completed and stamps completed_at.
func (r *OperationRepository) MarkCompleted(ctx context.Context, id int64) error {
	return r.finish(ctx, id, models.OperationStatusCompleted, "")
}

// MarkFailed transitions to failed with a reason.
func (r *OperationRepository) MarkFailed(ctx context.Context, id int64, reason string) error {
	return r.finish(ctx, id, models.OperationStatusFailed, reason)
}

// MarkSkipped transitions to skipped with a reason.
func (r *OperationRepository) MarkSkipped(ctx context.Context, id int64, reason string) error {
	return r.finish(ctx, id, models.OperationStatusSkipped, reason)
}

func (r *OperationRepository) finish(ctx context.Context, id int64, status, reason string) error {
	var msg sql.NullString
	if reason != "" {
		msg = sql.NullString{String: reason, Valid: true}
	}

	result, err := r.db.ExecContext(ctx,
		"UPDATE hardware_operations SET status = ?, error_message = ?, completed_at = CURRENT_TIMESTAMP WHERE id = ?",
		status, msg, id,
	)
	if err != nil {
		return fmt.Errorf("failed to mark operation %s: %w", status, err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return fmt.Errorf("operation %d not found", id)
	}
	return nil
}

// SkipPendingForCycle marks every still-pending operation of a cycle
// skipped and returns how many rows were affected.
func (r *OperationRepository) SkipPendingForCycle(ctx context.Context, sessionID string, cycleNumber int, reason string) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE hardware_operations SET status = 'skipped', error_message = ?, completed_at = CURRENT_TIMESTAMP
		 WHERE session_id = ? AND cycle_number = ? AND status = 'pending'`,
		reason, sessionID, cycleNumber,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to skip pending operations: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	return rowsAffected, nil
}

// PendingForCycle returns a cycle's pending operations in creation order.
func (r *OperationRepository) PendingForCycle(ctx context.Context, sessionID string, cycleNumber int) ([]*secondary.OperationRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+operationColumns+` FROM hardware_operations
		 WHERE session_id = ? AND cycle_number = ? AND status = 'pending' ORDER BY id ASC`,
		sessionID, cycleNumber,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch cycle operations: %w", err)
	}
	defer rows.Close()

	return collectOperations(rows)
}

// AllCompleteForCycle reports whether no operation of the cycle is pending
// or in_progress. A failed row still counts as "done" here; callers branch
// on failure separately via FailedForCycle.
func (r *OperationRepository) AllCompleteForCycle(ctx context.Context, sessionID string, cycleNumber int) (bool, error) {
	var open int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM hardware_operations
		 WHERE session_id = ? AND cycle_number = ? AND status IN ('pending', 'in_progress')`,
		sessionID, cycleNumber,
	).Scan(&open)
	if err != nil {
		return false, fmt.Errorf("failed to check cycle completion: %w", err)
	}
	return open == 0, nil
}

// FailedForCycle returns the failed operations of one cycle.
func (r *OperationRepository) FailedForCycle(ctx context.Context, sessionID string, cycleNumber int) ([]*secondary.OperationRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+operationColumns+` FROM hardware_operations
		 WHERE session_id = ? AND cycle_number = ? AND status = 'failed' ORDER BY id ASC`,
		sessionID, cycleNumber,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch failed operations: %w", err)
	}
	defer rows.Close()

	return collectOperations(rows)
}

// List retrieves operations matching the given filters, oldest first.
func (r *OperationRepository) List(ctx context.Context, filters secondary.OperationFilters) ([]*secondary.OperationRecord, error) {
	query := "SELECT " + operationColumns + " FROM hardware_operations WHERE 1=1"
	args := []any{}

	if filters.SessionID != "" {
		query += " AND session_id = ?"
		args = append(args, filters.SessionID)
	}
	if filters.CycleNumber > 0 {
		query += " AND cycle_number = ?"
		args = append(args, filters.CycleNumber)
	}
	if filters.Status != "" {
		query += " AND status = ?"
		args = append(args, filters.Status)
	}

	query += " ORDER BY id ASC"
	if filters.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filters.Limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list operations: %w", err)
	}
	defer rows.Close()

	return collectOperations(rows)
}

func collectOperations(rows *sql.Rows) ([]*secondary.OperationRecord, error) {
	var operations []*secondary.OperationRecord
	for rows.Next() {
		record, err := scanOperation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan operation: %w", err)
		}
		operations = append(operations, record)
	}
	return operations, rows.Err()
}

func scanOperation(s scanner) (*secondary.OperationRecord, error) {
	var (
		target      sql.NullString
		mixCount    sql.NullInt64
		errMsg      sql.NullString
		createdAt   time.Time
		startedAt   sql.NullTime
		completedAt sql.NullTime
	)

	record := &secondary.OperationRecord{}
	err := s.Scan(
		&record.ID, &record.SessionID, &record.CycleNumber, &record.OperationType,
		&target, &mixCount, &record.Status, &errMsg,
		&createdAt, &startedAt, &completedAt,
	)
	if err != nil {
		return nil, err
	}

	record.TargetPosition = target.String
	record.MixCount = int(mixCount.Int64)
	record.ErrorMessage = errMsg.String
	record.CreatedAt = createdAt.Format(time.RFC3339)
	if startedAt.Valid {
		record.StartedAt = startedAt.Time.Format(time.RFC3339)
	}
	if completedAt.Valid {
		record.CompletedAt = completedAt.Time.Format(time.RFC3339)
	}

	return record, nil
}

// Ensure OperationRepository implements the interface
var _ secondary.OperationRepository = (*OperationRepository)(nil)
