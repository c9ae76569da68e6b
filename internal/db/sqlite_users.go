package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Shahid-khan015/FarmTrack/internal/models"
)

const userColumns = `id, username, password, full_name, role, phone, is_active, created_at`

func scanUser(row scanner) (*models.User, error) {
	var (
		u         models.User
		phone     sql.NullString
		createdAt string
	)
	if err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.FullName, &u.Role, &phone, &u.IsActive, &createdAt); err != nil {
		return nil, err
	}
	u.Phone = stringPtr(phone)
	t, err := parseTime(createdAt)
	if err != nil {
		return nil, err
	}
	u.CreatedAt = t
	return &u, nil
}

// InsertUser inserts a new user into the database
func (s *SQLiteStore) InsertUser(ctx context.Context, user models.User) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (`+userColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		user.ID, user.Username, user.PasswordHash, user.FullName, user.Role,
		nullableString(user.Phone), user.IsActive, formatTime(user.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to insert user: %w", translateWriteError(err))
	}
	return nil
}

// FindUserByID finds a user by their ID
func (s *SQLiteStore) FindUserByID(ctx context.Context, id string) (*models.User, error) {
	return s.findUser(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
}

// FindUserByUsername finds a user by their username
func (s *SQLiteStore) FindUserByUsername(ctx context.Context, username string) (*models.User, error) {
	return s.findUser(ctx, `SELECT `+userColumns+` FROM users WHERE username = ?`, username)
}

func (s *SQLiteStore) findUser(ctx context.Context, query string, arg any) (*models.User, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx, query, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return u, nil
}
