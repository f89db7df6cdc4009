package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/alon-nissan/robotaste-sub000/internal/ports/secondary"
)

// OperationLogRepository implements secondary.OperationLogRepository with
// SQLite. Append-only audit trail of raw serial exchanges.
type OperationLogRepository struct {
	db *sql.DB
}

// NewOperationLogRepository creates a new SQLite operation log repository.
func NewOperationLogRepository(db *sql.DB) *OperationLogRepository {
	return &OperationLogRepository{db: db}
}

// Append records one raw exchange for an operation.
func (r *OperationLogRepository) Append(ctx context.Context, entry *secondary.OperationLogRecord) error {
	var response sql.NullString
	if entry.Response != "" {
		response = sql.NullString{String: entry.Response, Valid: true}
	}
	var errMsg sql.NullString
	if entry.ErrorMessage != "" {
		errMsg = sql.NullString{String: entry.ErrorMessage, Valid: true}
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO hardware_operation_logs (operation_id, command, response, success, error_message)
		 VALUES (?, ?, ?, ?, ?)`,
		entry.OperationID, entry.Command, response, entry.Success, errMsg,
	)
	if err != nil {
		return fmt.Errorf("failed to append operation log: %w", err)
	}

	return nil
}

// ListForOperation returns an operation's exchanges in order.
func (r *OperationLogRepository) ListForOperation(ctx context.Context, operationID int64) ([]*secondary.OperationLogRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, operation_id, command, response, success, error_message, timestamp
		 FROM hardware_operation_logs WHERE operation_id = ? ORDER BY id ASC`,
		operationID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list operation logs: %w", err)
	}
	defer rows.Close()

	var entries []*secondary.OperationLogRecord
	for rows.Next() {
		var (
			response  sql.NullString
			errMsg    sql.NullString
			timestamp time.Time
		)

		record := &secondary.OperationLogRecord{}
		err := rows.Scan(&record.ID, &record.OperationID, &record.Command, &response, &record.Success, &errMsg, &timestamp)
		if err != nil {
			return nil, fmt.Errorf("failed to scan operation log: %w", err)
		}

		record.Response = response.String
		record.ErrorMessage = errMsg.String
		record.Timestamp = timestamp.Format(time.RFC3339)
		entries = append(entries, record)
	}

	return entries, rows.Err()
}

// Ensure OperationLogRepository implements the interface
var _ secondary.OperationLogRepository = (*OperationLogRepository)(nil)
