package driven

import (
	"context"

	"github.com/evanrhall/driftnote/internal/domain/model"
)

// UserStore defines the driven port for account persistence.
type UserStore interface {
	// Create inserts a user and returns the assigned ID.
	// Returns ErrUsernameTaken on a case-insensitive username collision.
	Create(ctx context.Context, username, passwordHash string) (int64, error)

	// GetByUsername retrieves a user case-insensitively.
	// Returns nil, nil when unknown.
	GetByUsername(ctx context.Context, username string) (*model.User, error)

	// GetByID retrieves a user. Returns nil, nil when unknown.
	GetByID(ctx context.Context, id int64) (*model.User, error)
}

// SessionStore defines the driven port for bearer-token sessions. Tokens are
// stored hashed; the driving adapter hashes before lookup.
type SessionStore interface {
	Create(ctx context.Context, tokenHash string, userID int64) error

	// UserForToken resolves a token hash to its user.
	// Returns nil, nil for unknown or revoked tokens.
	UserForToken(ctx context.Context, tokenHash string) (*model.User, error)

	Delete(ctx context.Context, tokenHash string) error
}

// DraftStore defines the driven port for per-user draft persistence.
type DraftStore interface {
	// Get returns the user's draft, or nil, nil when none is saved.
	Get(ctx context.Context, userID int64) (*model.Draft, error)

	// Put inserts or replaces the user's draft.
	Put(ctx context.Context, draft model.Draft) error

	Delete(ctx context.Context, userID int64) error
}
