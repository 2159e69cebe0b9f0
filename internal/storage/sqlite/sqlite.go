package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"authd/internal/domain/models"
	"authd/internal/storage"

	"github.com/mattn/go-sqlite3"
	_ "github.com/mattn/go-sqlite3"
)

type Storage struct {
	db *sql.DB
}

// New opens a sqlite database with foreign keys enforced.
func New(storagePath string) (*Storage, error) {
	const op = "storage.sqlite.New"
	db, err := sql.Open("sqlite3", storagePath+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &Storage{db: db}, nil
}

func (s *Storage) Close() error {
	return s.db.Close()
}

func (s *Storage) SaveUser(
	ctx context.Context,
	firstName, middleName, lastName, username, email string,
	passHash []byte,
) (int64, error) {
	const op = "storage.sqlite.SaveUser"

	stmt, err := s.db.Prepare(`
		INSERT INTO users (first_name, middle_name, last_name, username, email, pass_hash)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	defer stmt.Close()

	result, err := stmt.ExecContext(ctx, firstName, nullable(middleName), lastName, username, email, passHash)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
			return 0, fmt.Errorf("%s: %w", op, storage.ErrUserAlreadyExists)
		}
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return result.LastInsertId()
}

func (s *Storage) UserByUsername(ctx context.Context, username string) (*models.User, error) {
	const op = "storage.sqlite.UserByUsername"
	return s.user(ctx, op, "username = ?", username)
}

func (s *Storage) UserByID(ctx context.Context, userID int64) (*models.User, error) {
	const op = "storage.sqlite.UserByID"
	return s.user(ctx, op, "id = ?", userID)
}

func (s *Storage) UserByRefreshFingerprint(ctx context.Context, fingerprint string) (*models.User, error) {
	const op = "storage.sqlite.UserByRefreshFingerprint"
	return s.user(ctx, op, "refresh_fingerprint = ?", fingerprint)
}

func (s *Storage) user(ctx context.Context, op, where string, arg any) (*models.User, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, first_name, middle_name, last_name, username, email, pass_hash, refresh_fingerprint
		FROM users WHERE `+where, arg)

	var (
		user        models.User
		middleName  sql.NullString
		fingerprint sql.NullString
	)
	err := row.Scan(
		&user.ID, &user.FirstName, &middleName, &user.LastName,
		&user.Username, &user.Email, &user.PassHash, &fingerprint,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrUserNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	user.MiddleName = middleName.String
	if fingerprint.Valid {
		user.RefreshFingerprint = &fingerprint.String
	}
	return &user, nil
}

// SetRefreshFingerprint overwrites the stored fingerprint unconditionally.
// Passing nil clears the session.
func (s *Storage) SetRefreshFingerprint(ctx context.Context, userID int64, fingerprint *string) error {
	const op = "storage.sqlite.SetRefreshFingerprint"

	result, err := s.db.ExecContext(ctx,
		"UPDATE users SET refresh_fingerprint = ? WHERE id = ?", fingerprint, userID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrUserNotFound)
	}
	return nil
}

// RotateRefreshFingerprint replaces oldFingerprint with newFingerprint only
// if oldFingerprint is still the stored value. A concurrent rotation that got
// there first makes the update match zero rows.
func (s *Storage) RotateRefreshFingerprint(ctx context.Context, userID int64, oldFingerprint, newFingerprint string) error {
	const op = "storage.sqlite.RotateRefreshFingerprint"

	result, err := s.db.ExecContext(ctx,
		"UPDATE users SET refresh_fingerprint = ? WHERE id = ? AND refresh_fingerprint = ?",
		newFingerprint, userID, oldFingerprint)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrSessionRotated)
	}
	return nil
}

// ClearRefreshFingerprint nulls the fingerprint wherever it matches and
// reports whether any session was actually cleared.
func (s *Storage) ClearRefreshFingerprint(ctx context.Context, fingerprint string) (bool, error) {
	const op = "storage.sqlite.ClearRefreshFingerprint"

	result, err := s.db.ExecContext(ctx,
		"UPDATE users SET refresh_fingerprint = NULL WHERE refresh_fingerprint = ?", fingerprint)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return n > 0, nil
}

func (s *Storage) UpdateProfile(ctx context.Context, userID int64, firstName, middleName, lastName, email string) error {
	const op = "storage.sqlite.UpdateProfile"

	result, err := s.db.ExecContext(ctx,
		"UPDATE users SET first_name = ?, middle_name = ?, last_name = ?, email = ? WHERE id = ?",
		firstName, nullable(middleName), lastName, email, userID)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
			return fmt.Errorf("%s: %w", op, storage.ErrUserAlreadyExists)
		}
		return fmt.Errorf("%s: %w", op, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrUserNotFound)
	}
	return nil
}

// UpdatePassword stores a new password hash and drops the live session in the
// same statement, so a password change always forces a fresh login.
func (s *Storage) UpdatePassword(ctx context.Context, userID int64, passHash []byte) error {
	const op = "storage.sqlite.UpdatePassword"

	result, err := s.db.ExecContext(ctx,
		"UPDATE users SET pass_hash = ?, refresh_fingerprint = NULL WHERE id = ?", passHash, userID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrUserNotFound)
	}
	return nil
}

// DeleteUser removes the user's todos and the user row (fingerprint included)
// in one transaction. Either everything goes or nothing does.
func (s *Storage) DeleteUser(ctx context.Context, userID int64) error {
	const op = "storage.sqlite.DeleteUser"

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM todos WHERE user_id = ?", userID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	result, err := tx.ExecContext(ctx, "DELETE FROM users WHERE id = ?", userID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrUserNotFound)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (s *Storage) Todos(ctx context.Context, userID int64) ([]models.Todo, error) {
	const op = "storage.sqlite.Todos"

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, user_id, task, completed FROM todos WHERE user_id = ? ORDER BY id", userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	todos := []models.Todo{}
	for rows.Next() {
		var t models.Todo
		if err := rows.Scan(&t.ID, &t.UserID, &t.Task, &t.Completed); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		todos = append(todos, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return todos, nil
}

func (s *Storage) SaveTodo(ctx context.Context, userID int64, task string) (int64, error) {
	const op = "storage.sqlite.SaveTodo"

	result, err := s.db.ExecContext(ctx,
		"INSERT INTO todos (user_id, task) VALUES (?, ?)", userID, task)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return result.LastInsertId()
}

func (s *Storage) ToggleTodo(ctx context.Context, userID, todoID int64) (*models.Todo, error) {
	const op = "storage.sqlite.ToggleTodo"

	result, err := s.db.ExecContext(ctx,
		"UPDATE todos SET completed = NOT completed WHERE id = ? AND user_id = ?", todoID, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrTodoNotFound)
	}

	row := s.db.QueryRowContext(ctx,
		"SELECT id, user_id, task, completed FROM todos WHERE id = ?", todoID)
	var t models.Todo
	if err := row.Scan(&t.ID, &t.UserID, &t.Task, &t.Completed); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &t, nil
}

func (s *Storage) DeleteTodo(ctx context.Context, userID, todoID int64) error {
	const op = "storage.sqlite.DeleteTodo"

	result, err := s.db.ExecContext(ctx,
		"DELETE FROM todos WHERE id = ? AND user_id = ?", todoID, userID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrTodoNotFound)
	}
	return nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
