package driven

import (
	"context"

	"github.com/evanrhall/driftnote/internal/domain/model"
)

// ProfileStore defines the driven port for profile persistence. Credential
// fields cross this boundary as plaintext; the adapter encrypts them at rest.
type ProfileStore interface {
	// Create inserts an empty profile for a newly registered user.
	Create(ctx context.Context, userID int64) error

	// GetByUserID retrieves a profile with decrypted credentials.
	// Returns nil, nil if the user has no profile.
	GetByUserID(ctx context.Context, userID int64) (*model.Profile, error)

	// GetByUsername retrieves a profile by the owning account's username,
	// case-insensitively. Returns nil, nil when unknown.
	GetByUsername(ctx context.Context, username string) (*model.Profile, error)

	// Update replaces the profile's settings and credentials. Returns
	// ErrEncryptionKeyNotSet when a non-empty secret is stored without a key.
	Update(ctx context.Context, p model.Profile) error

	// RecordCrosspostError sets the shared last-error fields. The message is
	// truncated to 500 characters; the timestamp is set to now.
	RecordCrosspostError(ctx context.Context, userID int64, message string) error

	// ClearCrosspostError blanks both diagnostic fields.
	ClearCrosspostError(ctx context.Context, userID int64) error
}
