package primary

import (
	"context"
	"time"
)

// CycleService defines the primary port for preparing one sample: the
// canonical position -> dispense -> mix -> deliver sequence and its failure
// policy.
type CycleService interface {
	// RunCycle executes the preparation sequence synchronously against the
	// device manager. The returned result is non-nil even on failure.
	RunCycle(ctx context.Context, req RunCycleRequest) (*CycleResult, error)

	// EnqueueCycle persists the cycle's hardware operations for the
	// executor process to perform asynchronously.
	EnqueueCycle(ctx context.Context, req RunCycleRequest) (*EnqueueCycleResponse, error)

	// CycleStatus reports whether a cycle's queued hardware work has
	// finished, and any failures.
	CycleStatus(ctx context.Context, sessionID string, cycleNumber int) (*CycleStatusResponse, error)
}

// RunCycleRequest identifies the cycle to prepare. Target is the selected
// concentrations as opaque JSON; empty means the sample row already holds
// the target.
type RunCycleRequest struct {
	SessionID   string
	CycleNumber int
	Target      string
}

// StepStatus classifies the outcome of one preparation step.
type StepStatus string

const (
	StepCompleted StepStatus = "completed"
	StepFailed    StepStatus = "failed"
	StepSkipped   StepStatus = "skipped"
	StepNotRun    StepStatus = "not_run"
)

// StepResult describes one step of the preparation sequence.
type StepResult struct {
	Name   string
	Status StepStatus
	Error  string // Empty when the step succeeded
}

// CycleResult is the structured outcome of one synchronous preparation run.
type CycleResult struct {
	SessionID     string
	CycleNumber   int
	Success       bool
	MixingSkipped bool
	Dispensed     string // JSON concentrations actually dispensed
	Steps         []StepResult
	Duration      time.Duration
}

// EnqueueCycleResponse lists the queued operations in creation order.
type EnqueueCycleResponse struct {
	OperationIDs []int64
}

// CycleStatusResponse reports queue progress for one cycle.
type CycleStatusResponse struct {
	SessionID   string
	CycleNumber int
	Complete    bool
	Failed      []string // failure reasons, empty when none
}
