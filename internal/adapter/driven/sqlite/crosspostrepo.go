package sqlite

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/evanrhall/driftnote/internal/domain/model"
	"github.com/evanrhall/driftnote/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.CrosspostStore = (*CrosspostRepo)(nil)

// CrosspostRepo is the SQLite implementation of the CrosspostStore port
// interface.
type CrosspostRepo struct {
	db *DB
}

// NewCrosspostRepo creates a new CrosspostRepo backed by the given DB.
func NewCrosspostRepo(db *DB) *CrosspostRepo {
	return &CrosspostRepo{db: db}
}

// GetOrCreate returns the record for (noteID, network), inserting an empty
// one if absent. INSERT OR IGNORE against the UNIQUE(note_id, network)
// constraint makes this safe under concurrent callers: exactly one insert
// wins and everyone else reads the winner's row.
func (r *CrosspostRepo) GetOrCreate(ctx context.Context, noteID int64, network model.Network) (*model.NoteCrosspost, bool, error) {
	const insert = `
		INSERT OR IGNORE INTO note_crossposts (note_id, network, created_at)
		VALUES (?, ?, ?)
	`

	result, err := r.db.Writer.ExecContext(ctx, insert,
		noteID, string(network), time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return nil, false, fmt.Errorf("insert crosspost note=%d network=%s: %w", noteID, network, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return nil, false, fmt.Errorf("check rows affected: %w", err)
	}
	created := rows > 0

	const query = `
		SELECT id, note_id, network, remote_id, remote_url, created_at
		FROM note_crossposts
		WHERE note_id = ? AND network = ?
	`

	cp, err := scanCrosspost(r.db.Reader.QueryRowContext(ctx, query, noteID, string(network)))
	if err != nil {
		return nil, false, fmt.Errorf("get crosspost note=%d network=%s: %w", noteID, network, err)
	}

	return cp, created, nil
}

// MarkSuccess fills in the remote identifiers on a freshly created record.
func (r *CrosspostRepo) MarkSuccess(ctx context.Context, id int64, remoteID, remoteURL string) error {
	const query = `UPDATE note_crossposts SET remote_id = ?, remote_url = ? WHERE id = ?`

	if _, err := r.db.Writer.ExecContext(ctx, query, remoteID, remoteURL, id); err != nil {
		return fmt.Errorf("mark crosspost %d succeeded: %w", id, err)
	}

	return nil
}

// ListForNotes returns all success records for the given notes, keyed by
// note ID.
func (r *CrosspostRepo) ListForNotes(ctx context.Context, noteIDs []int64) (map[int64][]model.NoteCrosspost, error) {
	out := make(map[int64][]model.NoteCrosspost, len(noteIDs))
	if len(noteIDs) == 0 {
		return out, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(noteIDs)), ",")
	query := fmt.Sprintf(`
		SELECT id, note_id, network, remote_id, remote_url, created_at
		FROM note_crossposts
		WHERE note_id IN (%s)
		ORDER BY note_id, network
	`, placeholders)

	args := make([]any, len(noteIDs))
	for i, id := range noteIDs {
		args[i] = id
	}

	rows, err := r.db.Reader.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query crossposts: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		cp, err := scanCrosspost(rows)
		if err != nil {
			return nil, fmt.Errorf("scan crosspost: %w", err)
		}
		out[cp.NoteID] = append(out[cp.NoteID], *cp)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate crossposts: %w", err)
	}

	return out, nil
}

func scanCrosspost(s scanner) (*model.NoteCrosspost, error) {
	var cp model.NoteCrosspost
	var network string
	var createdAt string

	err := s.Scan(&cp.ID, &cp.NoteID, &network, &cp.RemoteID, &cp.RemoteURL, &createdAt)
	if err != nil {
		return nil, err
	}

	cp.Network = model.Network(network)

	cp.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}

	return &cp, nil
}
