package app

import (
	"context"
	"fmt"
	"time"

	"github.com/alon-nissan/robotaste-sub000/internal/device"
	"github.com/alon-nissan/robotaste-sub000/internal/models"
	"github.com/alon-nissan/robotaste-sub000/internal/ports/secondary"
)

// DefaultPollInterval is how long the executor sleeps when the queue is
// empty.
const DefaultPollInterval = 1 * time.Second

// Executor drains the hardware operation queue. It runs as its own process,
// sharing nothing with the phase-driving process except the persisted queue:
// it is the single writer of operation status transitions.
type Executor struct {
	sessionRepo   secondary.SessionRepository
	protocolRepo  secondary.ProtocolRepository
	operationRepo secondary.OperationRepository
	logRepo       secondary.OperationLogRepository
	devices       DeviceRegistry

	pollInterval time.Duration

	// Logf reports per-operation progress. Nil means silent.
	Logf func(format string, args ...any)
}

// NewExecutor creates a new Executor with injected dependencies.
func NewExecutor(
	sessionRepo secondary.SessionRepository,
	protocolRepo secondary.ProtocolRepository,
	operationRepo secondary.OperationRepository,
	logRepo secondary.OperationLogRepository,
	devices DeviceRegistry,
) *Executor {
	return &Executor{
		sessionRepo:   sessionRepo,
		protocolRepo:  protocolRepo,
		operationRepo: operationRepo,
		logRepo:       logRepo,
		devices:       devices,
		pollInterval:  DefaultPollInterval,
	}
}

// SetPollInterval overrides the empty-queue sleep interval.
func (e *Executor) SetPollInterval(d time.Duration) {
	e.pollInterval = d
}

// Run polls the queue until the context is cancelled. Each iteration
// processes at most one operation so commands never interleave on a serial
// link and creation order is preserved.
func (e *Executor) Run(ctx context.Context) error {
	for {
		processed, err := e.ProcessNext(ctx)
		if err != nil {
			e.logf("executor: %v", err)
		}
		if processed {
			continue
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(e.pollInterval):
		}
	}
}

// ProcessNext executes the single globally-oldest pending operation. It
// returns false when the queue is empty. A returned error is an executor
// level problem (queue unreachable); operation level failures are recorded
// on the row, not returned.
func (e *Executor) ProcessNext(ctx context.Context) (bool, error) {
	ops, err := e.operationRepo.NextPending(ctx, 1)
	if err != nil {
		return false, fmt.Errorf("failed to fetch pending operations: %w", err)
	}
	if len(ops) == 0 {
		return false, nil
	}
	op := ops[0]

	if err := e.operationRepo.MarkInProgress(ctx, op.ID); err != nil {
		return false, fmt.Errorf("failed to claim operation %d: %w", op.ID, err)
	}
	e.logf("operation %d: %s (session %s, cycle %d)", op.ID, op.OperationType, op.SessionID, op.CycleNumber)

	client, err := e.resolveClient(ctx, op)
	if err != nil {
		e.failOperation(ctx, op, err)
		return true, nil
	}

	// Every raw exchange of this operation lands on its audit trail.
	client.SetRecorder(e.recorderFor(op.ID))
	defer client.SetRecorder(nil)

	e.execute(ctx, client, op)
	return true, nil
}

// Helper methods

// resolveClient loads the owning session's hardware config and returns its
// connected client.
func (e *Executor) resolveClient(ctx context.Context, op *secondary.OperationRecord) (device.Client, error) {
	session, err := e.sessionRepo.GetByID(ctx, op.SessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve session %s: %w", op.SessionID, err)
	}

	protocol, err := e.protocolRepo.GetByID(ctx, session.ProtocolID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve protocol %s: %w", session.ProtocolID, err)
	}

	client, err := e.devices.GetOrCreate(op.SessionID, deviceConfig(protocol))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to device: %w", err)
	}
	return client, nil
}

// execute dispatches the operation to the device and records the outcome.
// Positioning failures are terminal for the whole cycle: the remaining
// pending rows are bulk-skipped so a later delivery never runs against an
// unprepared cup. Mixing failures are absorbed and the cycle continues.
func (e *Executor) execute(ctx context.Context, client device.Client, op *secondary.OperationRecord) {
	var opErr error
	switch op.OperationType {
	case models.OperationTypePositionSpout:
		opErr = client.MoveToSpout(true)
	case models.OperationTypePositionDisplay:
		opErr = client.MoveToDisplay(true)
	case models.OperationTypeMix:
		opErr = client.Mix(op.MixCount, true)
	default:
		e.failOperation(ctx, op, fmt.Errorf("unknown operation type %q", op.OperationType))
		return
	}

	if opErr == nil {
		if err := e.operationRepo.MarkCompleted(ctx, op.ID); err != nil {
			e.logf("operation %d: failed to mark completed: %v", op.ID, err)
		}
		e.logf("operation %d: completed", op.ID)
		return
	}

	if op.OperationType == models.OperationTypeMix {
		if err := e.operationRepo.MarkSkipped(ctx, op.ID, opErr.Error()); err != nil {
			e.logf("operation %d: failed to mark skipped: %v", op.ID, err)
		}
		e.logf("operation %d: mixing skipped: %v", op.ID, opErr)
		return
	}

	e.failOperation(ctx, op, opErr)
}

// failOperation marks the operation failed and abandons the rest of its
// cycle.
func (e *Executor) failOperation(ctx context.Context, op *secondary.OperationRecord, opErr error) {
	if err := e.operationRepo.MarkFailed(ctx, op.ID, opErr.Error()); err != nil {
		e.logf("operation %d: failed to mark failed: %v", op.ID, err)
	}

	reason := fmt.Sprintf("cycle aborted: operation %d failed", op.ID)
	skipped, err := e.operationRepo.SkipPendingForCycle(ctx, op.SessionID, op.CycleNumber, reason)
	if err != nil {
		e.logf("operation %d: failed to skip remaining cycle operations: %v", op.ID, err)
	} else if skipped > 0 {
		e.logf("operation %d: skipped %d remaining operations of cycle %d", op.ID, skipped, op.CycleNumber)
	}
	e.logf("operation %d: failed: %v", op.ID, opErr)
}

// recorderFor builds the exchange recorder feeding an operation's audit
// trail. Audit writes are best effort; losing a log line must not fail the
// hardware operation it describes.
func (e *Executor) recorderFor(operationID int64) device.ExchangeRecorder {
	return func(command, response string, err error) {
		entry := &secondary.OperationLogRecord{
			OperationID: operationID,
			Command:     command,
			Response:    response,
			Success:     err == nil,
		}
		if err != nil {
			entry.ErrorMessage = err.Error()
		}
		if appendErr := e.logRepo.Append(context.Background(), entry); appendErr != nil {
			e.logf("operation %d: failed to append audit log: %v", operationID, appendErr)
		}
	}
}

func (e *Executor) logf(format string, args ...any) {
	if e.Logf != nil {
		e.Logf(format, args...)
	}
}
