package fleet

import (
	"context"
	"errors"

	"github.com/Shahid-khan015/FarmTrack/internal/db"
	"github.com/Shahid-khan015/FarmTrack/internal/events"
	"github.com/Shahid-khan015/FarmTrack/internal/models"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// StartOperation opens an operation for the given tractor and implement,
// writing the opening telemetry sample in the same transaction.
func (s *Service) StartOperation(ctx context.Context, operatorID string, in models.OperationStart) (*models.Operation, error) {
	if !models.IsValidOperationType(in.OperationType) {
		return nil, invalid("invalid operation type: %q", in.OperationType)
	}
	if _, err := s.store.FindTractorByID(ctx, in.TractorID); err != nil {
		return nil, storeError(err, "Tractor")
	}
	if _, err := s.store.FindImplementByID(ctx, in.ImplementID); err != nil {
		return nil, storeError(err, "Implement")
	}

	_, err := s.store.FindActiveOperation(ctx, in.TractorID)
	if err == nil {
		return nil, conflict("an active operation already exists for this tractor")
	}
	if !errors.Is(err, db.ErrNotFound) {
		return nil, err
	}

	now := s.clock()
	op := models.Operation{
		ID:            uuid.NewString(),
		TractorID:     in.TractorID,
		ImplementID:   in.ImplementID,
		OperatorID:    operatorID,
		OperationType: in.OperationType,
		Status:        models.StatusActive,
		StartTime:     now,
		Notes:         in.Notes,
		CreatedAt:     now,
	}
	opening := models.Telemetry{
		ID:          uuid.NewString(),
		OperationID: op.ID,
		TractorID:   op.TractorID,
		Timestamp:   now,
		EngineOn:    true,
	}
	if err := s.store.StartOperation(ctx, op, opening); err != nil {
		return nil, storeError(err, "Operation")
	}

	s.logger.WithFields(log.Fields{
		"operation_id": op.ID,
		"tractor_id":   op.TractorID,
		"type":         op.OperationType,
	}).Info("Operation started")

	e := events.New(events.KindOperationStarted, op.TractorID, now, op)
	e.OperationID = op.ID
	s.publish(ctx, e)
	return &op, nil
}

// StopOperation completes an active operation and writes its closing
// telemetry sample. Stopping a non-active operation is a conflict.
func (s *Service) StopOperation(ctx context.Context, id string) (*models.Operation, error) {
	now := s.clock()
	closing := models.Telemetry{ID: uuid.NewString(), Timestamp: now}
	op, err := s.store.StopOperation(ctx, id, now, closing)
	if err != nil {
		return nil, storeError(err, "Operation")
	}

	s.logger.WithFields(log.Fields{
		"operation_id": op.ID,
		"tractor_id":   op.TractorID,
		"hours":        now.Sub(op.StartTime).Hours(),
	}).Info("Operation completed")

	e := events.New(events.KindOperationCompleted, op.TractorID, now, op)
	e.OperationID = op.ID
	s.publish(ctx, e)
	return op, nil
}

// GetOperation fetches one operation with its tractor, implement and operator.
func (s *Service) GetOperation(ctx context.Context, id string) (*models.OperationDetail, error) {
	d, err := s.store.FindOperationDetail(ctx, id)
	if err != nil {
		return nil, storeError(err, "Operation")
	}
	return d, nil
}

// ListOperations lists operations, newest start first.
func (s *Service) ListOperations(ctx context.Context) ([]models.OperationDetail, error) {
	return s.store.FindOperationDetails(ctx)
}
