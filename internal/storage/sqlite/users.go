package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/inkops/warelog/internal/types"
)

// CreateUser inserts an actor identity. A duplicate username fails with a
// Conflict.
func (q *queries) CreateUser(ctx context.Context, u *types.User) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	if u.Role == "" {
		u.Role = types.RoleViewer
	}

	_, err := q.db.ExecContext(ctx, `
		INSERT INTO users (id, username, full_name, role, is_active, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, u.ID, u.Username, u.FullName, string(u.Role), boolToInt(u.IsActive), u.CreatedAt)
	if err != nil {
		if isUniqueConstraintError(err) {
			return types.Conflict(types.CodeDuplicateUsername, "user %s already exists", u.Username)
		}
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

// GetUser looks up a user by id.
func (q *queries) GetUser(ctx context.Context, id string) (*types.User, error) {
	row := q.db.QueryRowContext(ctx, `
		SELECT id, username, full_name, role, is_active, created_at FROM users WHERE id = ?
	`, id)
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, types.NotFound("user", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return u, nil
}

// GetUserByUsername looks up a user by username.
func (q *queries) GetUserByUsername(ctx context.Context, username string) (*types.User, error) {
	row := q.db.QueryRowContext(ctx, `
		SELECT id, username, full_name, role, is_active, created_at FROM users WHERE username = ?
	`, username)
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, types.NotFound("user", username)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user by username: %w", err)
	}
	return u, nil
}

// ListUsers returns all users ordered by username.
func (q *queries) ListUsers(ctx context.Context) ([]*types.User, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT id, username, full_name, role, is_active, created_at FROM users ORDER BY username
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var users []*types.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func scanUser(s scanner) (*types.User, error) {
	var u types.User
	var active int
	err := s.Scan(&u.ID, &u.Username, &u.FullName, &u.Role, &active, &u.CreatedAt)
	if err != nil {
		return nil, err
	}
	u.IsActive = active != 0
	return &u, nil
}
