package app

import (
	"context"
	"fmt"
	"time"

	"github.com/alon-nissan/robotaste-sub000/internal/device"
	"github.com/alon-nissan/robotaste-sub000/internal/models"
	"github.com/alon-nissan/robotaste-sub000/internal/ports/primary"
	"github.com/alon-nissan/robotaste-sub000/internal/ports/secondary"
)

// Preparation step names as reported in cycle results.
const (
	stepPositionSpout   = "position_spout"
	stepDispense        = "dispense"
	stepMix             = "mix"
	stepPositionDisplay = "position_display"
)

// displayRetryDelay is how long the synchronous path waits before its single
// delivery retry.
const displayRetryDelay = 2 * time.Second

// CycleServiceImpl implements the CycleService interface. It owns the
// canonical prepare-one-sample sequence: position at the dispense point,
// dispense, mix, deliver to the pickup point.
type CycleServiceImpl struct {
	sessionRepo   secondary.SessionRepository
	protocolRepo  secondary.ProtocolRepository
	operationRepo secondary.OperationRepository
	sampleRepo    secondary.SampleRepository
	dispenser     secondary.Dispenser
	selection     secondary.SelectionProvider
	devices       DeviceRegistry

	// retryDelay is overridable so tests do not sleep for real.
	retryDelay time.Duration
}

// NewCycleService creates a new CycleService with injected dependencies.
func NewCycleService(
	sessionRepo secondary.SessionRepository,
	protocolRepo secondary.ProtocolRepository,
	operationRepo secondary.OperationRepository,
	sampleRepo secondary.SampleRepository,
	dispenser secondary.Dispenser,
	selection secondary.SelectionProvider,
	devices DeviceRegistry,
) *CycleServiceImpl {
	return &CycleServiceImpl{
		sessionRepo:   sessionRepo,
		protocolRepo:  protocolRepo,
		operationRepo: operationRepo,
		sampleRepo:    sampleRepo,
		dispenser:     dispenser,
		selection:     selection,
		devices:       devices,
		retryDelay:    displayRetryDelay,
	}
}

// RunCycle executes the preparation sequence synchronously against the
// session's device connection.
//
// Failure policy: a failure at the dispense point aborts the cycle before any
// liquid is handled. A dispensing failure still delivers the cup (partial or
// empty, the subject-facing position must not hold a stranded cup) and then
// surfaces. A mixing failure is absorbed: logged on the step detail and the
// cycle continues. A delivery failure is retried exactly once after a short
// delay before surfacing.
func (s *CycleServiceImpl) RunCycle(ctx context.Context, req primary.RunCycleRequest) (*primary.CycleResult, error) {
	start := time.Now()
	result := &primary.CycleResult{
		SessionID:   req.SessionID,
		CycleNumber: req.CycleNumber,
		Steps: []primary.StepResult{
			{Name: stepPositionSpout, Status: primary.StepNotRun},
			{Name: stepDispense, Status: primary.StepNotRun},
			{Name: stepMix, Status: primary.StepNotRun},
			{Name: stepPositionDisplay, Status: primary.StepNotRun},
		},
	}
	finish := func(err error) (*primary.CycleResult, error) {
		result.Success = err == nil
		result.Duration = time.Since(start)
		return result, err
	}

	protocol, err := s.loadProtocol(ctx, req.SessionID)
	if err != nil {
		return finish(err)
	}

	target, err := s.resolveTarget(ctx, req)
	if err != nil {
		return finish(err)
	}

	client, err := s.devices.GetOrCreate(req.SessionID, deviceConfig(protocol))
	if err != nil {
		return finish(fmt.Errorf("failed to connect to device: %w", err))
	}

	// Step 1: position the cup at the dispense point.
	if err := client.MoveToSpout(true); err != nil {
		result.Steps[0] = failedStep(stepPositionSpout, err)
		return finish(fmt.Errorf("failed to position at dispense point: %w", err))
	}
	result.Steps[0].Status = primary.StepCompleted

	// Step 2: dispense. On failure the cup is still delivered below before
	// the error surfaces.
	dispenseErr := s.dispense(ctx, req, target, result)

	// Step 3: mix, best effort. Never after a dispense failure; shaking an
	// empty cup wastes the move budget.
	if dispenseErr == nil {
		s.mix(client, protocol, result)
	}

	// Step 4: deliver to the pickup point, one retry.
	if err := s.deliver(client, result); err != nil {
		return finish(fmt.Errorf("failed to deliver sample: %w", err))
	}

	if dispenseErr != nil {
		return finish(fmt.Errorf("dispensing failed: %w", dispenseErr))
	}
	return finish(nil)
}

// EnqueueCycle persists the cycle's hardware operations for the executor.
// Creation order is the execution contract: dispense-point positioning, then
// mixing when the protocol enables it, then delivery.
func (s *CycleServiceImpl) EnqueueCycle(ctx context.Context, req primary.RunCycleRequest) (*primary.EnqueueCycleResponse, error) {
	protocol, err := s.loadProtocol(ctx, req.SessionID)
	if err != nil {
		return nil, err
	}

	if _, err := s.resolveTarget(ctx, req); err != nil {
		return nil, err
	}

	pending, err := s.operationRepo.PendingForCycle(ctx, req.SessionID, req.CycleNumber)
	if err != nil {
		return nil, fmt.Errorf("failed to check pending operations: %w", err)
	}
	if len(pending) > 0 {
		return nil, fmt.Errorf("cycle %d of session %s already has %d pending operations", req.CycleNumber, req.SessionID, len(pending))
	}

	ops := []*secondary.OperationRecord{
		{
			SessionID:      req.SessionID,
			CycleNumber:    req.CycleNumber,
			OperationType:  models.OperationTypePositionSpout,
			TargetPosition: string(device.PositionSpout),
		},
	}
	if protocol.MixingEnabled {
		ops = append(ops, &secondary.OperationRecord{
			SessionID:     req.SessionID,
			CycleNumber:   req.CycleNumber,
			OperationType: models.OperationTypeMix,
			MixCount:      protocol.MixOscillations,
		})
	}
	ops = append(ops, &secondary.OperationRecord{
		SessionID:      req.SessionID,
		CycleNumber:    req.CycleNumber,
		OperationType:  models.OperationTypePositionDisplay,
		TargetPosition: string(device.PositionDisplay),
	})

	resp := &primary.EnqueueCycleResponse{OperationIDs: make([]int64, 0, len(ops))}
	for _, op := range ops {
		id, err := s.operationRepo.Enqueue(ctx, op)
		if err != nil {
			return nil, fmt.Errorf("failed to enqueue %s: %w", op.OperationType, err)
		}
		resp.OperationIDs = append(resp.OperationIDs, id)
	}
	return resp, nil
}

// CycleStatus reports whether a cycle's queued hardware work has finished,
// and any failures.
func (s *CycleServiceImpl) CycleStatus(ctx context.Context, sessionID string, cycleNumber int) (*primary.CycleStatusResponse, error) {
	complete, err := s.operationRepo.AllCompleteForCycle(ctx, sessionID, cycleNumber)
	if err != nil {
		return nil, fmt.Errorf("failed to check cycle completion: %w", err)
	}

	failed, err := s.operationRepo.FailedForCycle(ctx, sessionID, cycleNumber)
	if err != nil {
		return nil, fmt.Errorf("failed to list cycle failures: %w", err)
	}

	resp := &primary.CycleStatusResponse{
		SessionID:   sessionID,
		CycleNumber: cycleNumber,
		Complete:    complete,
	}
	for _, op := range failed {
		resp.Failed = append(resp.Failed, fmt.Sprintf("%s: %s", op.OperationType, op.ErrorMessage))
	}
	return resp, nil
}

// Helper methods

func (s *CycleServiceImpl) loadProtocol(ctx context.Context, sessionID string) (*secondary.ProtocolRecord, error) {
	session, err := s.sessionRepo.GetByID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("session not found: %w", err)
	}
	if session.State != models.SessionStateActive {
		return nil, fmt.Errorf("session %s is %s, not active", session.ID, session.State)
	}

	protocol, err := s.protocolRepo.GetByID(ctx, session.ProtocolID)
	if err != nil {
		return nil, fmt.Errorf("protocol not found: %w", err)
	}
	return protocol, nil
}

// resolveTarget finds the cycle's target concentrations: the request wins,
// then an existing sample row, then the selection provider. Whichever source
// produced it, a sample row exists afterwards.
func (s *CycleServiceImpl) resolveTarget(ctx context.Context, req primary.RunCycleRequest) (string, error) {
	if req.Target != "" {
		err := s.sampleRepo.Create(ctx, &secondary.SampleRecord{
			SessionID:   req.SessionID,
			CycleNumber: req.CycleNumber,
			Target:      req.Target,
		})
		if err != nil {
			return "", fmt.Errorf("failed to record sample target: %w", err)
		}
		return req.Target, nil
	}

	if sample, err := s.sampleRepo.GetForCycle(ctx, req.SessionID, req.CycleNumber); err == nil && sample.Target != "" {
		return sample.Target, nil
	}

	if s.selection == nil {
		return "", fmt.Errorf("no target for cycle %d of session %s and no selection provider configured", req.CycleNumber, req.SessionID)
	}
	target, err := s.selection.NextTarget(ctx, req.SessionID, req.CycleNumber)
	if err != nil {
		return "", fmt.Errorf("failed to select target: %w", err)
	}

	err = s.sampleRepo.Create(ctx, &secondary.SampleRecord{
		SessionID:   req.SessionID,
		CycleNumber: req.CycleNumber,
		Target:      target,
	})
	if err != nil {
		return "", fmt.Errorf("failed to record sample target: %w", err)
	}
	return target, nil
}

func (s *CycleServiceImpl) dispense(ctx context.Context, req primary.RunCycleRequest, target string, result *primary.CycleResult) error {
	dispensed, err := s.dispenser.Dispense(ctx, req.SessionID, req.CycleNumber, target)
	if err != nil {
		result.Steps[1] = failedStep(stepDispense, err)
		return err
	}
	result.Steps[1].Status = primary.StepCompleted
	result.Dispensed = dispensed.Dispensed

	if err := s.sampleRepo.RecordDispensed(ctx, req.SessionID, req.CycleNumber, dispensed.Dispensed); err != nil {
		return fmt.Errorf("failed to record dispensed concentrations: %w", err)
	}
	return nil
}

func (s *CycleServiceImpl) mix(client device.Client, protocol *secondary.ProtocolRecord, result *primary.CycleResult) {
	if !protocol.MixingEnabled {
		result.Steps[2].Status = primary.StepSkipped
		result.MixingSkipped = true
		return
	}
	if err := client.Mix(protocol.MixOscillations, true); err != nil {
		result.Steps[2] = primary.StepResult{Name: stepMix, Status: primary.StepSkipped, Error: err.Error()}
		result.MixingSkipped = true
		return
	}
	result.Steps[2].Status = primary.StepCompleted
}

func (s *CycleServiceImpl) deliver(client device.Client, result *primary.CycleResult) error {
	err := client.MoveToDisplay(true)
	if err != nil {
		time.Sleep(s.retryDelay)
		err = client.MoveToDisplay(true)
	}
	if err != nil {
		result.Steps[3] = failedStep(stepPositionDisplay, err)
		return err
	}
	result.Steps[3].Status = primary.StepCompleted
	return nil
}

func failedStep(name string, err error) primary.StepResult {
	return primary.StepResult{Name: name, Status: primary.StepFailed, Error: err.Error()}
}

// Ensure CycleServiceImpl implements the interface
var _ primary.CycleService = (*CycleServiceImpl)(nil)
