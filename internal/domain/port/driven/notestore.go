package driven

import (
	"context"
	"time"

	"github.com/evanrhall/driftnote/internal/domain/model"
)

// NoteStore defines the driven port for note persistence.
type NoteStore interface {
	// Create inserts a note and returns its assigned ID.
	Create(ctx context.Context, note model.Note) (int64, error)

	// GetByID retrieves a single note. Returns nil, nil if it does not exist.
	GetByID(ctx context.Context, id int64) (*model.Note, error)

	// ListSince returns notes published at or after cutoff, newest first.
	ListSince(ctx context.Context, cutoff time.Time) ([]model.Note, error)

	// ListByUser returns up to limit notes authored by the given user,
	// newest first, with no window cutoff. Used by the public archive.
	ListByUser(ctx context.Context, userID int64, limit int) ([]model.Note, error)

	// Delete removes a note. Returns ErrNoteNotFound if no row was deleted.
	Delete(ctx context.Context, id int64) error

	// DeleteExpired removes notes published before cutoff whose author has
	// not opted into the public archive (anonymous notes included). Returns
	// the number of notes removed.
	DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error)
}

// EngagementStore defines the driven port for per-device note engagement.
// Both operations are idempotent: the first insert for a (note, device)
// pair reports true and bumps the note's counter; repeats report false.
type EngagementStore interface {
	Witness(ctx context.Context, noteID int64, deviceID string) (bool, error)
	Flag(ctx context.Context, noteID int64, deviceID string) (bool, error)
}
