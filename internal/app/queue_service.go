package app

import (
	"context"
	"fmt"

	"github.com/alon-nissan/robotaste-sub000/internal/ports/primary"
	"github.com/alon-nissan/robotaste-sub000/internal/ports/secondary"
)

// QueueServiceImpl implements the QueueService interface.
type QueueServiceImpl struct {
	operationRepo secondary.OperationRepository
	logRepo       secondary.OperationLogRepository
}

// NewQueueService creates a new QueueService with injected dependencies.
func NewQueueService(operationRepo secondary.OperationRepository, logRepo secondary.OperationLogRepository) *QueueServiceImpl {
	return &QueueServiceImpl{
		operationRepo: operationRepo,
		logRepo:       logRepo,
	}
}

// ListOperations lists operations with optional filters, oldest first.
func (s *QueueServiceImpl) ListOperations(ctx context.Context, filters primary.OperationFilters) ([]*primary.Operation, error) {
	records, err := s.operationRepo.List(ctx, secondary.OperationFilters{
		SessionID:   filters.SessionID,
		CycleNumber: filters.CycleNumber,
		Status:      filters.Status,
		Limit:       filters.Limit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list operations: %w", err)
	}

	operations := make([]*primary.Operation, len(records))
	for i, r := range records {
		operations[i] = recordToOperation(r)
	}
	return operations, nil
}

// GetOperation retrieves one operation.
func (s *QueueServiceImpl) GetOperation(ctx context.Context, operationID int64) (*primary.Operation, error) {
	record, err := s.operationRepo.GetByID(ctx, operationID)
	if err != nil {
		return nil, fmt.Errorf("operation not found: %w", err)
	}
	return recordToOperation(record), nil
}

// OperationLogs returns the raw command/response exchanges recorded for an
// operation.
func (s *QueueServiceImpl) OperationLogs(ctx context.Context, operationID int64) ([]*primary.OperationLog, error) {
	if _, err := s.operationRepo.GetByID(ctx, operationID); err != nil {
		return nil, fmt.Errorf("operation not found: %w", err)
	}

	records, err := s.logRepo.ListForOperation(ctx, operationID)
	if err != nil {
		return nil, fmt.Errorf("failed to list operation logs: %w", err)
	}

	logs := make([]*primary.OperationLog, len(records))
	for i, r := range records {
		logs[i] = &primary.OperationLog{
			ID:           r.ID,
			OperationID:  r.OperationID,
			Command:      r.Command,
			Response:     r.Response,
			Success:      r.Success,
			ErrorMessage: r.ErrorMessage,
			Timestamp:    r.Timestamp,
		}
	}
	return logs, nil
}

func recordToOperation(r *secondary.OperationRecord) *primary.Operation {
	return &primary.Operation{
		ID:             r.ID,
		SessionID:      r.SessionID,
		CycleNumber:    r.CycleNumber,
		OperationType:  r.OperationType,
		TargetPosition: r.TargetPosition,
		MixCount:       r.MixCount,
		Status:         r.Status,
		ErrorMessage:   r.ErrorMessage,
		CreatedAt:      r.CreatedAt,
		StartedAt:      r.StartedAt,
		CompletedAt:    r.CompletedAt,
	}
}

// Ensure QueueServiceImpl implements the interface
var _ primary.QueueService = (*QueueServiceImpl)(nil)
