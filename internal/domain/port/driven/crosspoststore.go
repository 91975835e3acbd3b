package driven

import (
	"context"

	"github.com/evanrhall/driftnote/internal/domain/model"
)

// CrosspostStore defines the driven port for success-record persistence.
// The (note, network) pair is protected by a uniqueness constraint; under
// concurrent creates exactly one insert wins and the loser observes the
// existing row.
type CrosspostStore interface {
	// GetOrCreate returns the record for (noteID, network), inserting an
	// empty one if absent. The second return is true only for the caller
	// that performed the insert.
	GetOrCreate(ctx context.Context, noteID int64, network model.Network) (*model.NoteCrosspost, bool, error)

	// MarkSuccess fills in the remote identifiers on a freshly created
	// record. Existing identifiers are never overwritten by this path
	// because callers only invoke it when GetOrCreate reported creation.
	MarkSuccess(ctx context.Context, id int64, remoteID, remoteURL string) error

	// ListForNotes returns all success records for the given notes, keyed
	// by note ID. Used to decorate feed and archive responses.
	ListForNotes(ctx context.Context, noteIDs []int64) (map[int64][]model.NoteCrosspost, error)
}
