package primary

import "context"

// QueueService defines the primary port for inspecting the hardware
// operation queue and its audit trail.
type QueueService interface {
	// ListOperations lists operations with optional filters, oldest first.
	ListOperations(ctx context.Context, filters OperationFilters) ([]*Operation, error)

	// GetOperation retrieves one operation.
	GetOperation(ctx context.Context, operationID int64) (*Operation, error)

	// OperationLogs returns the raw command/response exchanges recorded
	// for an operation.
	OperationLogs(ctx context.Context, operationID int64) ([]*OperationLog, error)
}

// Operation represents a queued hardware operation at the port boundary.
type Operation struct {
	ID             int64
	SessionID      string
	CycleNumber    int
	OperationType  string
	TargetPosition string
	MixCount       int
	Status         string
	ErrorMessage   string
	CreatedAt      string
	StartedAt      string
	CompletedAt    string
}

// OperationFilters contains filter options for listing operations.
type OperationFilters struct {
	SessionID   string
	CycleNumber int
	Status      string
	Limit       int
}

// OperationLog represents one audit exchange at the port boundary.
type OperationLog struct {
	ID           int64
	OperationID  int64
	Command      string
	Response     string
	Success      bool
	ErrorMessage string
	Timestamp    string
}
