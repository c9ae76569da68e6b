package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Shahid-khan015/FarmTrack/internal/models"
)

const tractorColumns = `id, owner_id, manufacturer_name, model, registration_number, specifications, is_active, created_at`

const implementColumns = `id, owner_id, operation_type, name, brand_name, working_width, specifications, is_active, created_at`

func scanTractor(row scanner) (*models.Tractor, error) {
	var (
		t         models.Tractor
		specs     sql.NullString
		createdAt string
	)
	if err := row.Scan(&t.ID, &t.OwnerID, &t.ManufacturerName, &t.Model, &t.RegistrationNumber, &specs, &t.IsActive, &createdAt); err != nil {
		return nil, err
	}
	var err error
	if t.Specifications, err = decodeJSON(specs); err != nil {
		return nil, err
	}
	if t.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	return &t, nil
}

func scanImplement(row scanner) (*models.Implement, error) {
	var (
		i         models.Implement
		specs     sql.NullString
		createdAt string
	)
	if err := row.Scan(&i.ID, &i.OwnerID, &i.OperationType, &i.Name, &i.BrandName, &i.WorkingWidth, &specs, &i.IsActive, &createdAt); err != nil {
		return nil, err
	}
	var err error
	if i.Specifications, err = decodeJSON(specs); err != nil {
		return nil, err
	}
	if i.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	return &i, nil
}

// InsertTractor inserts a tractor record
func (s *SQLiteStore) InsertTractor(ctx context.Context, tractor models.Tractor) error {
	specs, err := encodeJSON(tractor.Specifications)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO tractors (`+tractorColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		tractor.ID, tractor.OwnerID, tractor.ManufacturerName, tractor.Model, tractor.RegistrationNumber,
		specs, tractor.IsActive, formatTime(tractor.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to insert tractor: %w", translateWriteError(err))
	}
	return nil
}

// FindTractorByID finds a tractor by ID
func (s *SQLiteStore) FindTractorByID(ctx context.Context, id string) (*models.Tractor, error) {
	return findTractor(ctx, s.db, id)
}

func findTractor(ctx context.Context, q queryer, id string) (*models.Tractor, error) {
	t, err := scanTractor(q.QueryRowContext(ctx, `SELECT `+tractorColumns+` FROM tractors WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find tractor: %w", err)
	}
	return t, nil
}

// FindTractors lists tractors, newest first
func (s *SQLiteStore) FindTractors(ctx context.Context) ([]models.Tractor, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+tractorColumns+` FROM tractors ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list tractors: %w", err)
	}
	defer rows.Close()

	tractors := []models.Tractor{}
	for rows.Next() {
		t, err := scanTractor(rows)
		if err != nil {
			return nil, err
		}
		tractors = append(tractors, *t)
	}
	return tractors, rows.Err()
}

// UpdateTractor merges the present patch fields into the stored tractor.
func (s *SQLiteStore) UpdateTractor(ctx context.Context, id string, patch models.TractorPatch) (*models.Tractor, error) {
	var updated *models.Tractor
	err := s.transaction(ctx, func(tx *sql.Tx) error {
		t, err := findTractor(ctx, tx, id)
		if err != nil {
			return err
		}
		if patch.IsEmpty() {
			updated = t
			return nil
		}
		patch.Apply(t)

		specs, err := encodeJSON(t.Specifications)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx,
			`UPDATE tractors SET manufacturer_name = ?, model = ?, registration_number = ?, specifications = ?, is_active = ?
			 WHERE id = ?`,
			t.ManufacturerName, t.Model, t.RegistrationNumber, specs, t.IsActive, id,
		)
		if err != nil {
			return fmt.Errorf("failed to update tractor: %w", translateWriteError(err))
		}
		updated = t
		return nil
	})
	return updated, err
}

// DeleteTractor removes a tractor that nothing references.
func (s *SQLiteStore) DeleteTractor(ctx context.Context, id string) error {
	return s.deleteByID(ctx, "tractors", id)
}

// CountTractors counts registered tractors
func (s *SQLiteStore) CountTractors(ctx context.Context) (int, error) {
	return countRows(ctx, s.db, `SELECT COUNT(*) FROM tractors`)
}

// InsertImplement inserts an implement record
func (s *SQLiteStore) InsertImplement(ctx context.Context, implement models.Implement) error {
	specs, err := encodeJSON(implement.Specifications)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO implements (`+implementColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		implement.ID, implement.OwnerID, implement.OperationType, implement.Name, implement.BrandName,
		implement.WorkingWidth, specs, implement.IsActive, formatTime(implement.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to insert implement: %w", translateWriteError(err))
	}
	return nil
}

// FindImplementByID finds an implement by ID
func (s *SQLiteStore) FindImplementByID(ctx context.Context, id string) (*models.Implement, error) {
	return findImplement(ctx, s.db, `SELECT `+implementColumns+` FROM implements WHERE id = ?`, id)
}

// FindImplementByOwnerAndName finds an implement by its per-owner unique name
func (s *SQLiteStore) FindImplementByOwnerAndName(ctx context.Context, ownerID, name string) (*models.Implement, error) {
	return findImplement(ctx, s.db, `SELECT `+implementColumns+` FROM implements WHERE owner_id = ? AND name = ?`, ownerID, name)
}

func findImplement(ctx context.Context, q queryer, query string, args ...any) (*models.Implement, error) {
	i, err := scanImplement(q.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find implement: %w", err)
	}
	return i, nil
}

// FindImplements lists implements, newest first
func (s *SQLiteStore) FindImplements(ctx context.Context) ([]models.Implement, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+implementColumns+` FROM implements ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list implements: %w", err)
	}
	defer rows.Close()

	implements := []models.Implement{}
	for rows.Next() {
		i, err := scanImplement(rows)
		if err != nil {
			return nil, err
		}
		implements = append(implements, *i)
	}
	return implements, rows.Err()
}

// UpdateImplement merges the present patch fields into the stored implement.
func (s *SQLiteStore) UpdateImplement(ctx context.Context, id string, patch models.ImplementPatch) (*models.Implement, error) {
	var updated *models.Implement
	err := s.transaction(ctx, func(tx *sql.Tx) error {
		i, err := findImplement(ctx, tx, `SELECT `+implementColumns+` FROM implements WHERE id = ?`, id)
		if err != nil {
			return err
		}
		if patch.IsEmpty() {
			updated = i
			return nil
		}
		patch.Apply(i)

		specs, err := encodeJSON(i.Specifications)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx,
			`UPDATE implements SET operation_type = ?, name = ?, brand_name = ?, working_width = ?, specifications = ?, is_active = ?
			 WHERE id = ?`,
			i.OperationType, i.Name, i.BrandName, i.WorkingWidth, specs, i.IsActive, id,
		)
		if err != nil {
			return fmt.Errorf("failed to update implement: %w", translateWriteError(err))
		}
		updated = i
		return nil
	})
	return updated, err
}

// DeleteImplement removes an implement that nothing references.
func (s *SQLiteStore) DeleteImplement(ctx context.Context, id string) error {
	return s.deleteByID(ctx, "implements", id)
}

// CountImplements counts registered implements
func (s *SQLiteStore) CountImplements(ctx context.Context) (int, error) {
	return countRows(ctx, s.db, `SELECT COUNT(*) FROM implements`)
}

// deleteByID deletes one row from a fixed table. Foreign keys are RESTRICT,
// so a referenced row fails with ErrReferenced and nothing is removed.
func (s *SQLiteStore) deleteByID(ctx context.Context, table, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM `+table+` WHERE id = ?`, id)
	if err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("%w: %v", ErrReferenced, err)
		}
		return fmt.Errorf("failed to delete from %s: %w", table, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
