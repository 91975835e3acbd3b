package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/evanrhall/driftnote/internal/domain/model"
	"github.com/evanrhall/driftnote/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.UserStore = (*UserRepo)(nil)

// UserRepo is the SQLite implementation of the UserStore port interface.
// Username uniqueness is case-insensitive via COLLATE NOCASE on the column.
type UserRepo struct {
	db *DB
}

// NewUserRepo creates a new UserRepo backed by the given DB.
func NewUserRepo(db *DB) *UserRepo {
	return &UserRepo{db: db}
}

// Create inserts a user and returns the assigned ID.
// Returns ErrUsernameTaken on a username collision.
func (r *UserRepo) Create(ctx context.Context, username, passwordHash string) (int64, error) {
	const query = `
		INSERT INTO users (username, password_hash, created_at)
		VALUES (?, ?, ?)
	`

	result, err := r.db.Writer.ExecContext(ctx, query,
		username, passwordHash, time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return 0, driven.ErrUsernameTaken
		}
		return 0, fmt.Errorf("insert user %q: %w", username, err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("user last insert id: %w", err)
	}

	return id, nil
}

// GetByUsername retrieves a user case-insensitively.
// Returns nil, nil when unknown.
func (r *UserRepo) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	const query = `
		SELECT id, username, password_hash, created_at
		FROM users
		WHERE username = ?
	`

	user, err := scanUser(r.db.Reader.QueryRowContext(ctx, query, username))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user %q: %w", username, err)
	}

	return user, nil
}

// GetByID retrieves a user. Returns nil, nil when unknown.
func (r *UserRepo) GetByID(ctx context.Context, id int64) (*model.User, error) {
	const query = `
		SELECT id, username, password_hash, created_at
		FROM users
		WHERE id = ?
	`

	user, err := scanUser(r.db.Reader.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user %d: %w", id, err)
	}

	return user, nil
}

func scanUser(s scanner) (*model.User, error) {
	var user model.User
	var createdAt string

	err := s.Scan(&user.ID, &user.Username, &user.PasswordHash, &createdAt)
	if err != nil {
		return nil, err
	}

	user.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}

	return &user, nil
}
