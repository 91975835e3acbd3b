package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/evanrhall/driftnote/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.EngagementStore = (*EngagementRepo)(nil)

// EngagementRepo is the SQLite implementation of the EngagementStore port
// interface. The UNIQUE(note_id, device_id) constraints make both operations
// idempotent; the denormalized counter on the note is only bumped when the
// insert actually lands.
type EngagementRepo struct {
	db *DB
}

// NewEngagementRepo creates a new EngagementRepo backed by the given DB.
func NewEngagementRepo(db *DB) *EngagementRepo {
	return &EngagementRepo{db: db}
}

// Witness records a device's first view of a note. Returns true only when
// this call created the row (and bumped the note's view counter).
func (r *EngagementRepo) Witness(ctx context.Context, noteID int64, deviceID string) (bool, error) {
	return r.record(ctx, "note_witnesses", "views", noteID, deviceID)
}

// Flag records a device flagging a note. Returns true only when this call
// created the row (and bumped the note's flag counter).
func (r *EngagementRepo) Flag(ctx context.Context, noteID int64, deviceID string) (bool, error) {
	return r.record(ctx, "note_flags", "flags", noteID, deviceID)
}

func (r *EngagementRepo) record(ctx context.Context, table, counter string, noteID int64, deviceID string) (bool, error) {
	insert := fmt.Sprintf(
		`INSERT OR IGNORE INTO %s (note_id, device_id, created_at) VALUES (?, ?, ?)`, table,
	)

	result, err := r.db.Writer.ExecContext(ctx, insert,
		noteID, deviceID, time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return false, fmt.Errorf("insert %s: %w", table, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("check rows affected: %w", err)
	}
	if rows == 0 {
		return false, nil
	}

	bump := fmt.Sprintf(`UPDATE notes SET %s = %s + 1 WHERE id = ?`, counter, counter)
	if _, err := r.db.Writer.ExecContext(ctx, bump, noteID); err != nil {
		return false, fmt.Errorf("bump note %s: %w", counter, err)
	}

	return true, nil
}
