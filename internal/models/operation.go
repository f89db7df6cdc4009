package models

// Operation type constants. The set is closed: the executor dispatches with
// an exhaustive switch and rejects anything outside it.
const (
	OperationTypePositionSpout   = "position_spout"
	OperationTypePositionDisplay = "position_display"
	OperationTypeMix             = "mix"
)

// Operation status constants. in_progress is the only transient state;
// completed, failed and skipped are terminal for the row.
const (
	OperationStatusPending    = "pending"
	OperationStatusInProgress = "in_progress"
	OperationStatusCompleted  = "completed"
	OperationStatusFailed     = "failed"
	OperationStatusSkipped    = "skipped"
)
