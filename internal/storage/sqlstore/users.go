package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/Vasu1712/lounge-backend/internal/apperr"
	"github.com/Vasu1712/lounge-backend/internal/models"
	"github.com/google/uuid"
)

const userColumns = "id, email, username, password, role, level, banned, created_at"

func scanUser(row interface{ Scan(...any) error }) (*models.User, error) {
	var u models.User
	if err := row.Scan(&u.ID, &u.Email, &u.Username, &u.Password, &u.Role, &u.Level, &u.Banned, &u.CreatedAt); err != nil {
		return nil, err
	}
	return &u, nil
}

// CreateUser inserts a user. Empty ID, role and level are filled in.
func (s *SQLStore) CreateUser(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	if user.Role == "" {
		user.Role = models.RoleUser
	}
	if user.Level == 0 {
		user.Level = 1
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	query := s.rebind("INSERT INTO users (" + userColumns + ") VALUES (?, ?, ?, ?, ?, ?, ?, ?)")
	_, err := s.db.ExecContext(ctx, query,
		user.ID, user.Email, user.Username, user.Password, user.Role, user.Level, user.Banned, user.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return apperr.Conflict("email or username already registered")
		}
		return apperr.Unavailable(err)
	}
	return nil
}

func (s *SQLStore) getUser(ctx context.Context, column, value string) (*models.User, error) {
	query := s.rebind("SELECT " + userColumns + " FROM users WHERE " + column + " = ?")
	u, err := scanUser(s.db.QueryRowContext(ctx, query, value))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("user not found")
	}
	if err != nil {
		return nil, apperr.Unavailable(err)
	}
	return u, nil
}

func (s *SQLStore) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	return s.getUser(ctx, "id", id)
}

func (s *SQLStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.getUser(ctx, "email", email)
}

func (s *SQLStore) EmailExists(ctx context.Context, email string) (bool, error) {
	var exists bool
	query := s.rebind("SELECT EXISTS(SELECT 1 FROM users WHERE email = ?)")
	if err := s.db.QueryRowContext(ctx, query, email).Scan(&exists); err != nil {
		return false, apperr.Unavailable(err)
	}
	return exists, nil
}

func (s *SQLStore) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	query := s.rebind("UPDATE users SET password = ? WHERE id = ?")
	res, err := s.db.ExecContext(ctx, query, passwordHash, id)
	if err != nil {
		return apperr.Unavailable(err)
	}
	return requireRow(res, "user not found")
}

// SearchUsers matches username or email case-insensitively, excluding the
// caller and banned accounts.
func (s *SQLStore) SearchUsers(ctx context.Context, selfID, queryStr string, limit int) ([]models.Profile, error) {
	pattern := "%" + strings.ToLower(queryStr) + "%"
	query := s.rebind(`
		SELECT id, email, username
		FROM users
		WHERE id <> ? AND banned = FALSE
		  AND (LOWER(COALESCE(username, '')) LIKE ? OR LOWER(email) LIKE ?)
		ORDER BY email
		LIMIT ?
	`)
	rows, err := s.db.QueryContext(ctx, query, selfID, pattern, pattern, limit)
	if err != nil {
		return nil, apperr.Unavailable(err)
	}
	defer rows.Close()

	users := []models.Profile{}
	for rows.Next() {
		var p models.Profile
		if err := rows.Scan(&p.ID, &p.Email, &p.Username); err != nil {
			return nil, apperr.Unavailable(err)
		}
		users = append(users, p)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Unavailable(err)
	}
	return users, nil
}

func (s *SQLStore) ListUsers(ctx context.Context) ([]models.User, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+userColumns+" FROM users ORDER BY created_at DESC")
	if err != nil {
		return nil, apperr.Unavailable(err)
	}
	defer rows.Close()

	users := []models.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, apperr.Unavailable(err)
		}
		users = append(users, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Unavailable(err)
	}
	return users, nil
}

// DeleteUser removes the user's tickets and the user. Messages and
// conversations go with it through ON DELETE CASCADE.
func (s *SQLStore) DeleteUser(ctx context.Context, id string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, s.rebind("DELETE FROM tickets WHERE user_id = ?"), id); err != nil {
			return apperr.Unavailable(err)
		}
		res, err := tx.ExecContext(ctx, s.rebind("DELETE FROM users WHERE id = ?"), id)
		if err != nil {
			return apperr.Unavailable(err)
		}
		return requireRow(res, "user not found")
	})
}

// ToggleBan flips the banned flag and returns the new value.
func (s *SQLStore) ToggleBan(ctx context.Context, id string) (bool, error) {
	var banned bool
	query := s.rebind("UPDATE users SET banned = NOT banned WHERE id = ? RETURNING banned")
	err := s.db.QueryRowContext(ctx, query, id).Scan(&banned)
	if errors.Is(err, sql.ErrNoRows) {
		return false, apperr.NotFound("user not found")
	}
	if err != nil {
		return false, apperr.Unavailable(err)
	}
	return banned, nil
}

func requireRow(res sql.Result, notFound string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return apperr.Unavailable(err)
	}
	if n == 0 {
		return apperr.NotFound("%s", notFound)
	}
	return nil
}
