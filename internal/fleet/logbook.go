package fleet

import (
	"context"
	"strings"

	"github.com/Shahid-khan015/FarmTrack/internal/events"
	"github.com/Shahid-khan015/FarmTrack/internal/models"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// AppendTelemetry records a sample for an operation. A sample with the same
// operation, tractor and timestamp as a stored one returns the stored one with
// created false.
func (s *Service) AppendTelemetry(ctx context.Context, in models.TelemetryCreate) (*models.Telemetry, bool, error) {
	op, err := s.store.FindOperationByID(ctx, in.OperationID)
	if err != nil {
		return nil, false, storeError(err, "Operation")
	}
	tractorID := in.TractorID
	if tractorID == "" {
		tractorID = op.TractorID
	}
	if tractorID != op.TractorID {
		return nil, false, invalid("tractor does not match the operation's tractor")
	}

	sample := models.Telemetry{
		ID:            uuid.NewString(),
		OperationID:   op.ID,
		TractorID:     tractorID,
		Timestamp:     s.stamp(in.Timestamp),
		EngineOn:      in.EngineOn,
		Latitude:      in.Latitude,
		Longitude:     in.Longitude,
		IsMoving:      in.IsMoving,
		PtoOn:         in.PtoOn,
		Speed:         in.Speed,
		ImplementData: in.ImplementData,
	}
	stored, created, err := s.store.InsertTelemetry(ctx, sample)
	if err != nil {
		return nil, false, storeError(err, "Telemetry")
	}
	if !created {
		s.logger.WithFields(log.Fields{"operation_id": op.ID, "timestamp": sample.Timestamp}).Debug("Duplicate telemetry sample")
	}
	return stored, created, nil
}

// ListTelemetry lists an operation's samples, newest first.
func (s *Service) ListTelemetry(ctx context.Context, operationID string) ([]models.Telemetry, error) {
	return s.store.FindTelemetryByOperation(ctx, operationID)
}

// LogFuel records a refuel by operatorID. The same tractor and timestamp
// returns the stored log with created false.
func (s *Service) LogFuel(ctx context.Context, operatorID string, in models.FuelLogCreate) (*models.FuelLog, bool, error) {
	if in.Quantity <= 0 {
		return nil, false, invalid("quantity must be positive")
	}
	if _, err := s.store.FindTractorByID(ctx, in.TractorID); err != nil {
		return nil, false, storeError(err, "Tractor")
	}
	if in.OperationID != nil {
		if _, err := s.store.FindOperationByID(ctx, *in.OperationID); err != nil {
			return nil, false, storeError(err, "Operation")
		}
	}

	fuel := models.FuelLog{
		ID:          uuid.NewString(),
		TractorID:   in.TractorID,
		OperatorID:  operatorID,
		OperationID: in.OperationID,
		Timestamp:   s.stamp(in.Timestamp),
		Quantity:    in.Quantity,
		Notes:       in.Notes,
	}
	stored, created, err := s.store.InsertFuelLog(ctx, fuel)
	if err != nil {
		return nil, false, storeError(err, "Fuel log")
	}
	if !created {
		s.logger.WithFields(log.Fields{"tractor_id": fuel.TractorID, "timestamp": fuel.Timestamp}).Debug("Duplicate fuel log")
	}
	return stored, created, nil
}

// ListFuelLogs lists fuel logs with tractor and operator, newest first.
func (s *Service) ListFuelLogs(ctx context.Context) ([]models.FuelLogDetail, error) {
	return s.store.FindFuelLogDetails(ctx)
}

// RaiseAlert records an alert. The same tractor, operation, type and
// timestamp returns the stored alert with created false.
func (s *Service) RaiseAlert(ctx context.Context, in models.AlertCreate) (*models.Alert, bool, error) {
	if err := required("alertType", in.AlertType, "message", in.Message); err != nil {
		return nil, false, err
	}
	if _, err := s.store.FindTractorByID(ctx, in.TractorID); err != nil {
		return nil, false, storeError(err, "Tractor")
	}
	if in.OperationID != nil {
		if _, err := s.store.FindOperationByID(ctx, *in.OperationID); err != nil {
			return nil, false, storeError(err, "Operation")
		}
	}

	alert := models.Alert{
		ID:          uuid.NewString(),
		TractorID:   in.TractorID,
		OperationID: in.OperationID,
		Timestamp:   s.stamp(in.Timestamp),
		AlertType:   strings.TrimSpace(in.AlertType),
		Message:     in.Message,
	}
	stored, created, err := s.store.InsertAlert(ctx, alert)
	if err != nil {
		return nil, false, storeError(err, "Alert")
	}
	if !created {
		s.logger.WithFields(log.Fields{"tractor_id": alert.TractorID, "type": alert.AlertType}).Debug("Duplicate alert")
		return stored, false, nil
	}

	s.logger.WithFields(log.Fields{
		"alert_id":   stored.ID,
		"tractor_id": stored.TractorID,
		"type":       stored.AlertType,
	}).Info("Alert raised")
	e := events.New(events.KindAlertRaised, stored.TractorID, stored.Timestamp, stored)
	e.AlertID = stored.ID
	if stored.OperationID != nil {
		e.OperationID = *stored.OperationID
	}
	s.publish(ctx, e)
	return stored, true, nil
}

// ResolveAlert marks an alert resolved.
func (s *Service) ResolveAlert(ctx context.Context, id string) (*models.Alert, error) {
	alert, err := s.store.ResolveAlert(ctx, id)
	if err != nil {
		return nil, storeError(err, "Alert")
	}
	e := events.New(events.KindAlertResolved, alert.TractorID, s.clock(), alert)
	e.AlertID = alert.ID
	s.publish(ctx, e)
	return alert, nil
}

// ListAlerts lists alerts with their tractor, newest first.
func (s *Service) ListAlerts(ctx context.Context) ([]models.AlertDetail, error) {
	return s.store.FindAlertDetails(ctx)
}
