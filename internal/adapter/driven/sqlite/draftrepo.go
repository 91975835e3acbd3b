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
var _ driven.DraftStore = (*DraftRepo)(nil)

// DraftRepo is the SQLite implementation of the DraftStore port interface.
// One row per user, replaced wholesale on every save.
type DraftRepo struct {
	db *DB
}

// NewDraftRepo creates a new DraftRepo backed by the given DB.
func NewDraftRepo(db *DB) *DraftRepo {
	return &DraftRepo{db: db}
}

// Get returns the user's draft, or nil, nil when none is saved.
func (r *DraftRepo) Get(ctx context.Context, userID int64) (*model.Draft, error) {
	const query = `
		SELECT user_id, body, face, want_mastodon, want_bluesky, want_status_cafe, updated_at
		FROM drafts
		WHERE user_id = ?
	`

	var draft model.Draft
	var mastodon, bluesky, statusCafe int
	var updatedAt string

	err := r.db.Reader.QueryRowContext(ctx, query, userID).Scan(
		&draft.UserID, &draft.Body, &draft.Face,
		&mastodon, &bluesky, &statusCafe, &updatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get draft for user %d: %w", userID, err)
	}

	draft.Mastodon = mastodon != 0
	draft.Bluesky = bluesky != 0
	draft.StatusCafe = statusCafe != 0

	draft.UpdatedAt, err = parseTime(updatedAt)
	if err != nil {
		return nil, fmt.Errorf("parse updated_at: %w", err)
	}

	return &draft, nil
}

// Put inserts or replaces the user's draft.
func (r *DraftRepo) Put(ctx context.Context, draft model.Draft) error {
	const query = `
		INSERT INTO drafts (user_id, body, face, want_mastodon, want_bluesky, want_status_cafe, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			body = excluded.body,
			face = excluded.face,
			want_mastodon = excluded.want_mastodon,
			want_bluesky = excluded.want_bluesky,
			want_status_cafe = excluded.want_status_cafe,
			updated_at = excluded.updated_at
	`

	_, err := r.db.Writer.ExecContext(ctx, query,
		draft.UserID, draft.Body, draft.Face,
		boolToInt(draft.Mastodon), boolToInt(draft.Bluesky), boolToInt(draft.StatusCafe),
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("put draft for user %d: %w", draft.UserID, err)
	}

	return nil
}

// Delete removes the user's draft. Deleting a missing draft is not an error.
func (r *DraftRepo) Delete(ctx context.Context, userID int64) error {
	const query = `DELETE FROM drafts WHERE user_id = ?`

	if _, err := r.db.Writer.ExecContext(ctx, query, userID); err != nil {
		return fmt.Errorf("delete draft for user %d: %w", userID, err)
	}

	return nil
}
