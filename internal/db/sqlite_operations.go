package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Shahid-khan015/FarmTrack/internal/models"
)

const operationColumns = `id, tractor_id, implement_id, operator_id, operation_type, status, start_time, end_time, notes, created_at`

func scanOperation(row scanner) (*models.Operation, error) {
	var (
		op        models.Operation
		start     string
		end       sql.NullString
		createdAt string
	)
	if err := row.Scan(&op.ID, &op.TractorID, &op.ImplementID, &op.OperatorID, &op.OperationType, &op.Status,
		&start, &end, &op.Notes, &createdAt); err != nil {
		return nil, err
	}
	var err error
	if op.StartTime, err = parseTime(start); err != nil {
		return nil, err
	}
	if op.EndTime, err = parseNullTime(end); err != nil {
		return nil, err
	}
	if op.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	return &op, nil
}

// StartOperation records a new active operation and its opening telemetry
// atomically. A second active operation for the same tractor fails with
// ErrActiveOperation whether it is caught by the check or by the partial
// unique index.
func (s *SQLiteStore) StartOperation(ctx context.Context, op models.Operation, opening models.Telemetry) error {
	return s.transaction(ctx, func(tx *sql.Tx) error {
		var existing string
		err := tx.QueryRowContext(ctx,
			`SELECT id FROM operations WHERE tractor_id = ? AND status = 'active'`, op.TractorID,
		).Scan(&existing)
		if err == nil {
			return ErrActiveOperation
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("failed to check active operation: %w", err)
		}

		_, err = tx.ExecContext(ctx,
			`INSERT INTO operations (`+operationColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			op.ID, op.TractorID, op.ImplementID, op.OperatorID, op.OperationType, op.Status,
			formatTime(op.StartTime), nullableTime(op.EndTime), op.Notes, formatTime(op.CreatedAt),
		)
		if err != nil {
			if isUniqueViolation(err) {
				return ErrActiveOperation
			}
			return fmt.Errorf("failed to insert operation: %w", translateWriteError(err))
		}

		if _, _, err := insertTelemetry(ctx, tx, opening); err != nil {
			return err
		}
		return nil
	})
}

// StopOperation completes an active operation and records its closing telemetry.
func (s *SQLiteStore) StopOperation(ctx context.Context, id string, end time.Time, closing models.Telemetry) (*models.Operation, error) {
	var stopped *models.Operation
	err := s.transaction(ctx, func(tx *sql.Tx) error {
		op, err := findOperation(ctx, tx, id)
		if err != nil {
			return err
		}
		if op.Status != models.StatusActive {
			return ErrOperationNotActive
		}

		_, err = tx.ExecContext(ctx,
			`UPDATE operations SET status = ?, end_time = ? WHERE id = ? AND status = 'active'`,
			models.StatusCompleted, formatTime(end), id,
		)
		if err != nil {
			return fmt.Errorf("failed to stop operation: %w", err)
		}

		closing.OperationID = op.ID
		closing.TractorID = op.TractorID
		if _, _, err := insertTelemetry(ctx, tx, closing); err != nil {
			return err
		}

		op.Status = models.StatusCompleted
		op.EndTime = &end
		stopped = op
		return nil
	})
	return stopped, err
}

// FindOperationByID finds an operation by ID
func (s *SQLiteStore) FindOperationByID(ctx context.Context, id string) (*models.Operation, error) {
	return findOperation(ctx, s.db, id)
}

func findOperation(ctx context.Context, q queryer, id string) (*models.Operation, error) {
	op, err := scanOperation(q.QueryRowContext(ctx, `SELECT `+operationColumns+` FROM operations WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find operation: %w", err)
	}
	return op, nil
}

// FindActiveOperation returns the active operation of a tractor, if any.
func (s *SQLiteStore) FindActiveOperation(ctx context.Context, tractorID string) (*models.Operation, error) {
	op, err := scanOperation(s.db.QueryRowContext(ctx,
		`SELECT `+operationColumns+` FROM operations WHERE tractor_id = ? AND status = 'active'`, tractorID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find active operation: %w", err)
	}
	return op, nil
}

const operationDetailQuery = `
SELECT o.id, o.tractor_id, o.implement_id, o.operator_id, o.operation_type, o.status,
       o.start_time, o.end_time, o.notes, o.created_at,
       t.manufacturer_name, t.model, t.registration_number,
       i.name, i.brand_name, i.working_width,
       u.full_name
FROM operations o
LEFT JOIN tractors t ON o.tractor_id = t.id
LEFT JOIN implements i ON o.implement_id = i.id
LEFT JOIN users u ON o.operator_id = u.id`

func scanOperationDetail(row scanner) (*models.OperationDetail, error) {
	var (
		d                        models.OperationDetail
		start                    string
		end                      sql.NullString
		createdAt                string
		manufacturer, model, reg sql.NullString
		implName, brand          sql.NullString
		width                    sql.NullFloat64
		fullName                 sql.NullString
	)
	if err := row.Scan(&d.ID, &d.TractorID, &d.ImplementID, &d.OperatorID, &d.OperationType, &d.Status,
		&start, &end, &d.Notes, &createdAt,
		&manufacturer, &model, &reg,
		&implName, &brand, &width,
		&fullName); err != nil {
		return nil, err
	}
	var err error
	if d.StartTime, err = parseTime(start); err != nil {
		return nil, err
	}
	if d.EndTime, err = parseNullTime(end); err != nil {
		return nil, err
	}
	if d.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if manufacturer.Valid {
		d.Tractor = &models.TractorRef{ID: d.TractorID, ManufacturerName: manufacturer.String, Model: model.String, RegistrationNumber: reg.String}
	}
	if implName.Valid {
		d.Implement = &models.ImplementRef{ID: d.ImplementID, Name: implName.String, BrandName: brand.String, WorkingWidth: width.Float64}
	}
	if fullName.Valid {
		d.Operator = &models.OperatorRef{FullName: fullName.String}
	}
	return &d, nil
}

// FindOperationDetail returns one operation with its joined projections.
func (s *SQLiteStore) FindOperationDetail(ctx context.Context, id string) (*models.OperationDetail, error) {
	d, err := scanOperationDetail(s.db.QueryRowContext(ctx, operationDetailQuery+` WHERE o.id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find operation: %w", err)
	}
	return d, nil
}

// FindOperationDetails lists operations with joined projections, newest start first.
func (s *SQLiteStore) FindOperationDetails(ctx context.Context) ([]models.OperationDetail, error) {
	rows, err := s.db.QueryContext(ctx, operationDetailQuery+` ORDER BY o.start_time DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list operations: %w", err)
	}
	defer rows.Close()

	details := []models.OperationDetail{}
	for rows.Next() {
		d, err := scanOperationDetail(rows)
		if err != nil {
			return nil, err
		}
		details = append(details, *d)
	}
	return details, rows.Err()
}

// FindRecentOperations returns the most recently started operations.
func (s *SQLiteStore) FindRecentOperations(ctx context.Context, limit int) ([]models.RecentOperation, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT o.id, o.operation_type, o.status, o.start_time, t.manufacturer_name, t.model, u.full_name
		FROM operations o
		JOIN tractors t ON o.tractor_id = t.id
		JOIN users u ON o.operator_id = u.id
		ORDER BY o.start_time DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list recent operations: %w", err)
	}
	defer rows.Close()

	recent := []models.RecentOperation{}
	for rows.Next() {
		var (
			r                   models.RecentOperation
			start               string
			manufacturer, model string
		)
		if err := rows.Scan(&r.ID, &r.OperationType, &r.Status, &start, &manufacturer, &model, &r.OperatorName); err != nil {
			return nil, err
		}
		if r.StartTime, err = parseTime(start); err != nil {
			return nil, err
		}
		r.TractorName = manufacturer + " " + model
		recent = append(recent, r)
	}
	return recent, rows.Err()
}

// FindOperationSpans returns operations whose start time lies in [start, end].
func (s *SQLiteStore) FindOperationSpans(ctx context.Context, start, end time.Time) ([]models.OperationSpan, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT o.id, o.operation_type, o.start_time, o.end_time, t.manufacturer_name, t.model, i.working_width, u.full_name
		FROM operations o
		JOIN tractors t ON o.tractor_id = t.id
		JOIN implements i ON o.implement_id = i.id
		JOIN users u ON o.operator_id = u.id
		WHERE o.start_time >= ? AND o.start_time <= ?
		ORDER BY o.start_time DESC`, formatTime(start), formatTime(end))
	if err != nil {
		return nil, fmt.Errorf("failed to query operations: %w", err)
	}
	defer rows.Close()

	spans := []models.OperationSpan{}
	for rows.Next() {
		var (
			sp                  models.OperationSpan
			startText           string
			endText             sql.NullString
			manufacturer, model string
			width               sql.NullFloat64
		)
		if err := rows.Scan(&sp.ID, &sp.OperationType, &startText, &endText, &manufacturer, &model, &width, &sp.OperatorName); err != nil {
			return nil, err
		}
		if sp.StartTime, err = parseTime(startText); err != nil {
			return nil, err
		}
		if sp.EndTime, err = parseNullTime(endText); err != nil {
			return nil, err
		}
		sp.TractorName = manufacturer + " " + model
		sp.WorkingWidth = width.Float64
		spans = append(spans, sp)
	}
	return spans, rows.Err()
}

// CountActiveOperations counts operations in the active state
func (s *SQLiteStore) CountActiveOperations(ctx context.Context) (int, error) {
	return countRows(ctx, s.db, `SELECT COUNT(*) FROM operations WHERE status = 'active'`)
}
