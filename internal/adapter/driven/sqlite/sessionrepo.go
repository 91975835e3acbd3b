package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/evanrhall/driftnote/internal/domain/model"
	"github.com/evanrhall/driftnote/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.SessionStore = (*SessionRepo)(nil)

// SessionRepo is the SQLite implementation of the SessionStore port
// interface. Only token hashes ever touch this table.
type SessionRepo struct {
	db *DB
}

// NewSessionRepo creates a new SessionRepo backed by the given DB.
func NewSessionRepo(db *DB) *SessionRepo {
	return &SessionRepo{db: db}
}

// Create inserts a session row for the given token hash.
func (r *SessionRepo) Create(ctx context.Context, tokenHash string, userID int64) error {
	const query = `
		INSERT INTO sessions (token_hash, user_id, created_at)
		VALUES (?, ?, ?)
	`

	_, err := r.db.Writer.ExecContext(ctx, query,
		tokenHash, userID, time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}

	return nil
}

// UserForToken resolves a token hash to its user.
// Returns nil, nil for unknown or revoked tokens.
func (r *SessionRepo) UserForToken(ctx context.Context, tokenHash string) (*model.User, error) {
	const query = `
		SELECT u.id, u.username, u.password_hash, u.created_at
		FROM sessions s
		JOIN users u ON u.id = s.user_id
		WHERE s.token_hash = ?
	`

	user, err := scanUser(r.db.Reader.QueryRowContext(ctx, query, tokenHash))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("resolve session: %w", err)
	}

	return user, nil
}

// Delete removes a session. Deleting an unknown token is not an error.
func (r *SessionRepo) Delete(ctx context.Context, tokenHash string) error {
	const query = `DELETE FROM sessions WHERE token_hash = ?`

	if _, err := r.db.Writer.ExecContext(ctx, query, tokenHash); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}

	return nil
}
