package secondary

import "context"

// OperationRepository defines the secondary port for the durable hardware
// operation queue. Rows are append-only: status transitions forward, rows
// are never deleted. The executor is the only writer of status transitions.
type OperationRepository interface {
	// Enqueue appends a pending operation and returns its auto-assigned ID.
	Enqueue(ctx context.Context, op *OperationRecord) (int64, error)

	// GetByID retrieves an operation by its ID.
	GetByID(ctx context.Context, id int64) (*OperationRecord, error)

	// NextPending returns the oldest pending operations across all
	// sessions, ordered by creation (global FIFO).
	NextPending(ctx context.Context, limit int) ([]*OperationRecord, error)

	// MarkInProgress transitions pending -> in_progress and stamps
	// started_at.
	MarkInProgress(ctx context.Context, id int64) error

	// MarkCompleted transitions to completed and stamps completed_at.
	MarkCompleted(ctx context.Context, id int64) error

	// MarkFailed transitions to failed with a reason and stamps
	// completed_at.
	MarkFailed(ctx context.Context, id int64, reason string) error

	// MarkSkipped transitions to skipped with a reason and stamps
	// completed_at.
	MarkSkipped(ctx context.Context, id int64, reason string) error

	// SkipPendingForCycle marks every still-pending operation of a cycle
	// skipped, so a cycle aborted by a positioning failure leaves no
	// pending work behind.
	SkipPendingForCycle(ctx context.Context, sessionID string, cycleNumber int, reason string) (int64, error)

	// PendingForCycle returns the pending operations of one cycle in
	// creation order.
	PendingForCycle(ctx context.Context, sessionID string, cycleNumber int) ([]*OperationRecord, error)

	// AllCompleteForCycle reports whether no operation of the cycle is
	// pending or in_progress. failed counts as "not pending" here; callers
	// branch on failure separately.
	AllCompleteForCycle(ctx context.Context, sessionID string, cycleNumber int) (bool, error)

	// FailedForCycle returns the failed operations of one cycle.
	FailedForCycle(ctx context.Context, sessionID string, cycleNumber int) ([]*OperationRecord, error)

	// List retrieves operations matching the given filters, oldest first.
	List(ctx context.Context, filters OperationFilters) ([]*OperationRecord, error)
}

// OperationRecord represents a hardware operation as stored in persistence.
type OperationRecord struct {
	ID             int64
	SessionID      string
	CycleNumber    int
	OperationType  string
	TargetPosition string // Empty string means null
	MixCount       int    // Zero means null
	Status         string
	ErrorMessage   string // Empty string means null
	CreatedAt      string
	StartedAt      string // Empty string means null
	CompletedAt    string // Empty string means null
}

// OperationFilters contains filter options for querying operations.
type OperationFilters struct {
	SessionID   string
	CycleNumber int // Zero means any cycle
	Status      string
	Limit       int
}

// OperationLogRepository defines the secondary port for the raw
// command/response audit trail. Append-only; never read by the executor.
type OperationLogRepository interface {
	// Append records one raw exchange for an operation.
	Append(ctx context.Context, entry *OperationLogRecord) error

	// ListForOperation returns an operation's exchanges in order.
	ListForOperation(ctx context.Context, operationID int64) ([]*OperationLogRecord, error)
}

// OperationLogRecord represents one raw command/response exchange.
type OperationLogRecord struct {
	ID           int64
	OperationID  int64
	Command      string
	Response     string // Empty string means null
	Success      bool
	ErrorMessage string // Empty string means null
	Timestamp    string
}
