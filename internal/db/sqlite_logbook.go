package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Shahid-khan015/FarmTrack/internal/models"
)

const telemetryColumns = `id, operation_id, tractor_id, timestamp, engine_on, latitude, longitude, is_moving, pto_on, speed, implement_data`

const fuelLogColumns = `id, tractor_id, operator_id, operation_id, timestamp, quantity, notes`

const alertColumns = `id, tractor_id, operation_id, timestamp, alert_type, message, is_resolved`

func scanTelemetry(row scanner) (*models.Telemetry, error) {
	var (
		t         models.Telemetry
		ts        string
		lat, lon  sql.NullFloat64
		implement sql.NullString
	)
	if err := row.Scan(&t.ID, &t.OperationID, &t.TractorID, &ts, &t.EngineOn, &lat, &lon,
		&t.IsMoving, &t.PtoOn, &t.Speed, &implement); err != nil {
		return nil, err
	}
	var err error
	if t.Timestamp, err = parseTime(ts); err != nil {
		return nil, err
	}
	if t.ImplementData, err = decodeJSON(implement); err != nil {
		return nil, err
	}
	t.Latitude = floatPtr(lat)
	t.Longitude = floatPtr(lon)
	return &t, nil
}

func scanFuelLog(row scanner) (*models.FuelLog, error) {
	var (
		f         models.FuelLog
		operation sql.NullString
		ts        string
	)
	if err := row.Scan(&f.ID, &f.TractorID, &f.OperatorID, &operation, &ts, &f.Quantity, &f.Notes); err != nil {
		return nil, err
	}
	var err error
	if f.Timestamp, err = parseTime(ts); err != nil {
		return nil, err
	}
	f.OperationID = stringPtr(operation)
	return &f, nil
}

func scanAlert(row scanner) (*models.Alert, error) {
	var (
		a         models.Alert
		operation sql.NullString
		ts        string
	)
	if err := row.Scan(&a.ID, &a.TractorID, &operation, &ts, &a.AlertType, &a.Message, &a.IsResolved); err != nil {
		return nil, err
	}
	var err error
	if a.Timestamp, err = parseTime(ts); err != nil {
		return nil, err
	}
	a.OperationID = stringPtr(operation)
	return &a, nil
}

// InsertTelemetry inserts a telemetry sample, or returns the sample already
// stored under the same (operation, tractor, timestamp).
func (s *SQLiteStore) InsertTelemetry(ctx context.Context, telemetry models.Telemetry) (*models.Telemetry, bool, error) {
	return insertTelemetry(ctx, s.db, telemetry)
}

func insertTelemetry(ctx context.Context, q queryer, telemetry models.Telemetry) (*models.Telemetry, bool, error) {
	implement, err := encodeJSON(telemetry.ImplementData)
	if err != nil {
		return nil, false, err
	}
	ts := formatTime(telemetry.Timestamp)

	stored, err := scanTelemetry(q.QueryRowContext(ctx,
		`INSERT INTO telemetry (`+telemetryColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT DO NOTHING
		 RETURNING `+telemetryColumns,
		telemetry.ID, telemetry.OperationID, telemetry.TractorID, ts, telemetry.EngineOn,
		nullableFloat(telemetry.Latitude), nullableFloat(telemetry.Longitude),
		telemetry.IsMoving, telemetry.PtoOn, telemetry.Speed, implement,
	))
	if err == nil {
		return stored, true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, false, fmt.Errorf("failed to insert telemetry: %w", translateWriteError(err))
	}

	existing, err := scanTelemetry(q.QueryRowContext(ctx,
		`SELECT `+telemetryColumns+` FROM telemetry WHERE operation_id = ? AND tractor_id = ? AND timestamp = ?`,
		telemetry.OperationID, telemetry.TractorID, ts,
	))
	if err != nil {
		return nil, false, fmt.Errorf("failed to load existing telemetry: %w", err)
	}
	return existing, false, nil
}

// FindTelemetryByOperation lists an operation's samples, newest first
func (s *SQLiteStore) FindTelemetryByOperation(ctx context.Context, operationID string) ([]models.Telemetry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+telemetryColumns+` FROM telemetry WHERE operation_id = ? ORDER BY timestamp DESC`, operationID)
	if err != nil {
		return nil, fmt.Errorf("failed to list telemetry: %w", err)
	}
	defer rows.Close()

	samples := []models.Telemetry{}
	for rows.Next() {
		t, err := scanTelemetry(rows)
		if err != nil {
			return nil, err
		}
		samples = append(samples, *t)
	}
	return samples, rows.Err()
}

// InsertFuelLog inserts a fuel log, or returns the log already stored under
// the same (tractor, timestamp).
func (s *SQLiteStore) InsertFuelLog(ctx context.Context, fuelLog models.FuelLog) (*models.FuelLog, bool, error) {
	ts := formatTime(fuelLog.Timestamp)

	stored, err := scanFuelLog(s.db.QueryRowContext(ctx,
		`INSERT INTO fuel_logs (`+fuelLogColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT DO NOTHING
		 RETURNING `+fuelLogColumns,
		fuelLog.ID, fuelLog.TractorID, fuelLog.OperatorID, nullableString(fuelLog.OperationID),
		ts, fuelLog.Quantity, fuelLog.Notes,
	))
	if err == nil {
		return stored, true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, false, fmt.Errorf("failed to insert fuel log: %w", translateWriteError(err))
	}

	existing, err := scanFuelLog(s.db.QueryRowContext(ctx,
		`SELECT `+fuelLogColumns+` FROM fuel_logs WHERE tractor_id = ? AND timestamp = ?`,
		fuelLog.TractorID, ts,
	))
	if err != nil {
		return nil, false, fmt.Errorf("failed to load existing fuel log: %w", err)
	}
	return existing, false, nil
}

// FindFuelLogDetails lists fuel logs with tractor and operator, newest first
func (s *SQLiteStore) FindFuelLogDetails(ctx context.Context) ([]models.FuelLogDetail, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT f.id, f.tractor_id, f.operator_id, f.operation_id, f.timestamp, f.quantity, f.notes,
		       t.registration_number, t.manufacturer_name, t.model, u.full_name
		FROM fuel_logs f
		LEFT JOIN tractors t ON f.tractor_id = t.id
		LEFT JOIN users u ON f.operator_id = u.id
		ORDER BY f.timestamp DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list fuel logs: %w", err)
	}
	defer rows.Close()

	details := []models.FuelLogDetail{}
	for rows.Next() {
		var (
			d                        models.FuelLogDetail
			operation                sql.NullString
			ts                       string
			reg, manufacturer, model sql.NullString
			fullName                 sql.NullString
		)
		if err := rows.Scan(&d.ID, &d.TractorID, &d.OperatorID, &operation, &ts, &d.Quantity, &d.Notes,
			&reg, &manufacturer, &model, &fullName); err != nil {
			return nil, err
		}
		if d.Timestamp, err = parseTime(ts); err != nil {
			return nil, err
		}
		d.OperationID = stringPtr(operation)
		if manufacturer.Valid {
			d.Tractor = &models.TractorRef{ID: d.TractorID, RegistrationNumber: reg.String, ManufacturerName: manufacturer.String, Model: model.String}
		}
		if fullName.Valid {
			d.Operator = &models.OperatorRef{FullName: fullName.String}
		}
		details = append(details, d)
	}
	return details, rows.Err()
}

// FindFuelSpans returns fuel logs timestamped in [start, end], newest first.
func (s *SQLiteStore) FindFuelSpans(ctx context.Context, start, end time.Time) ([]models.FuelSpan, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT f.id, f.quantity, t.registration_number, f.timestamp
		FROM fuel_logs f
		LEFT JOIN tractors t ON f.tractor_id = t.id
		WHERE f.timestamp >= ? AND f.timestamp <= ?
		ORDER BY f.timestamp DESC`, formatTime(start), formatTime(end))
	if err != nil {
		return nil, fmt.Errorf("failed to query fuel logs: %w", err)
	}
	defer rows.Close()

	spans := []models.FuelSpan{}
	for rows.Next() {
		var (
			sp  models.FuelSpan
			reg sql.NullString
			ts  string
		)
		if err := rows.Scan(&sp.ID, &sp.Quantity, &reg, &ts); err != nil {
			return nil, err
		}
		if sp.Timestamp, err = parseTime(ts); err != nil {
			return nil, err
		}
		sp.RegistrationNumber = stringPtr(reg)
		spans = append(spans, sp)
	}
	return spans, rows.Err()
}

// SumFuel totals fuel quantities in [start, end)
func (s *SQLiteStore) SumFuel(ctx context.Context, start, end time.Time) (float64, error) {
	var total float64
	err := s.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(quantity), 0) FROM fuel_logs WHERE timestamp >= ? AND timestamp < ?`,
		formatTime(start), formatTime(end),
	).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("failed to sum fuel: %w", err)
	}
	return total, nil
}

// InsertAlert inserts an alert, or returns the alert already stored under the
// same (tractor, operation, type, timestamp). A NULL operation matches NULL.
func (s *SQLiteStore) InsertAlert(ctx context.Context, alert models.Alert) (*models.Alert, bool, error) {
	ts := formatTime(alert.Timestamp)

	stored, err := scanAlert(s.db.QueryRowContext(ctx,
		`INSERT INTO alerts (`+alertColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT DO NOTHING
		 RETURNING `+alertColumns,
		alert.ID, alert.TractorID, nullableString(alert.OperationID), ts, alert.AlertType, alert.Message, alert.IsResolved,
	))
	if err == nil {
		return stored, true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, false, fmt.Errorf("failed to insert alert: %w", translateWriteError(err))
	}

	existing, err := scanAlert(s.db.QueryRowContext(ctx,
		`SELECT `+alertColumns+` FROM alerts
		 WHERE tractor_id = ? AND operation_id IS ? AND alert_type = ? AND timestamp = ?`,
		alert.TractorID, nullableString(alert.OperationID), alert.AlertType, ts,
	))
	if err != nil {
		return nil, false, fmt.Errorf("failed to load existing alert: %w", err)
	}
	return existing, false, nil
}

// ResolveAlert marks an alert resolved
func (s *SQLiteStore) ResolveAlert(ctx context.Context, id string) (*models.Alert, error) {
	a, err := scanAlert(s.db.QueryRowContext(ctx,
		`UPDATE alerts SET is_resolved = 1 WHERE id = ? RETURNING `+alertColumns, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to resolve alert: %w", err)
	}
	return a, nil
}

// FindAlertDetails lists alerts with their tractor, newest first
func (s *SQLiteStore) FindAlertDetails(ctx context.Context) ([]models.AlertDetail, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT a.id, a.tractor_id, a.operation_id, a.timestamp, a.alert_type, a.message, a.is_resolved,
		       t.manufacturer_name, t.model
		FROM alerts a
		LEFT JOIN tractors t ON a.tractor_id = t.id
		ORDER BY a.timestamp DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list alerts: %w", err)
	}
	defer rows.Close()

	details := []models.AlertDetail{}
	for rows.Next() {
		var (
			d                   models.AlertDetail
			operation           sql.NullString
			ts                  string
			manufacturer, model sql.NullString
		)
		if err := rows.Scan(&d.ID, &d.TractorID, &operation, &ts, &d.AlertType, &d.Message, &d.IsResolved,
			&manufacturer, &model); err != nil {
			return nil, err
		}
		if d.Timestamp, err = parseTime(ts); err != nil {
			return nil, err
		}
		d.OperationID = stringPtr(operation)
		if manufacturer.Valid {
			d.Tractor = &models.TractorRef{ID: d.TractorID, ManufacturerName: manufacturer.String, Model: model.String}
		}
		details = append(details, d)
	}
	return details, rows.Err()
}

// FindAlertsBetween returns alerts timestamped in [start, end], newest first.
func (s *SQLiteStore) FindAlertsBetween(ctx context.Context, start, end time.Time) ([]models.Alert, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+alertColumns+` FROM alerts WHERE timestamp >= ? AND timestamp <= ? ORDER BY timestamp DESC`,
		formatTime(start), formatTime(end))
	if err != nil {
		return nil, fmt.Errorf("failed to query alerts: %w", err)
	}
	defer rows.Close()

	alerts := []models.Alert{}
	for rows.Next() {
		a, err := scanAlert(rows)
		if err != nil {
			return nil, err
		}
		alerts = append(alerts, *a)
	}
	return alerts, rows.Err()
}

// CountUnresolvedAlerts counts alerts not yet resolved
func (s *SQLiteStore) CountUnresolvedAlerts(ctx context.Context) (int, error) {
	return countRows(ctx, s.db, `SELECT COUNT(*) FROM alerts WHERE is_resolved = 0`)
}
