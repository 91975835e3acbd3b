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
var _ driven.NoteStore = (*NoteRepo)(nil)

// NoteRepo is the SQLite implementation of the NoteStore port interface.
type NoteRepo struct {
	db *DB
}

// NewNoteRepo creates a new NoteRepo backed by the given DB.
func NewNoteRepo(db *DB) *NoteRepo {
	return &NoteRepo{db: db}
}

// Create inserts a note and returns its assigned ID.
func (r *NoteRepo) Create(ctx context.Context, note model.Note) (int64, error) {
	const query = `
		INSERT INTO notes (text, author, user_id, pub_date, views, flags)
		VALUES (?, ?, ?, ?, 0, 0)
	`

	result, err := r.db.Writer.ExecContext(ctx, query,
		note.Text, note.Author, note.UserID, note.PubDate.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return 0, fmt.Errorf("insert note: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("note last insert id: %w", err)
	}

	return id, nil
}

// GetByID retrieves a single note. Returns nil, nil if it does not exist.
func (r *NoteRepo) GetByID(ctx context.Context, id int64) (*model.Note, error) {
	const query = `
		SELECT id, text, author, user_id, pub_date, views, flags
		FROM notes
		WHERE id = ?
	`

	note, err := scanNote(r.db.Reader.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get note %d: %w", id, err)
	}

	return note, nil
}

// ListSince returns notes published at or after cutoff, newest first.
func (r *NoteRepo) ListSince(ctx context.Context, cutoff time.Time) ([]model.Note, error) {
	const query = `
		SELECT id, text, author, user_id, pub_date, views, flags
		FROM notes
		WHERE pub_date >= ?
		ORDER BY pub_date DESC, id DESC
	`

	return r.queryNotes(ctx, query, cutoff.UTC().Format(time.RFC3339))
}

// ListByUser returns up to limit notes authored by the given user, newest
// first, with no window cutoff.
func (r *NoteRepo) ListByUser(ctx context.Context, userID int64, limit int) ([]model.Note, error) {
	const query = `
		SELECT id, text, author, user_id, pub_date, views, flags
		FROM notes
		WHERE user_id = ?
		ORDER BY pub_date DESC, id DESC
		LIMIT ?
	`

	return r.queryNotes(ctx, query, userID, limit)
}

// Delete removes a note. Returns ErrNoteNotFound if no row was deleted.
func (r *NoteRepo) Delete(ctx context.Context, id int64) error {
	const query = `DELETE FROM notes WHERE id = ?`

	result, err := r.db.Writer.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete note %d: %w", id, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check rows affected: %w", err)
	}

	if rows == 0 {
		return driven.ErrNoteNotFound
	}

	return nil
}

// DeleteExpired removes notes published before cutoff whose author has not
// opted into the public archive. Anonymous notes have no archive and are
// always removed once expired.
func (r *NoteRepo) DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	const query = `
		DELETE FROM notes
		WHERE pub_date < ?
		  AND (user_id IS NULL OR user_id NOT IN (
			SELECT user_id FROM profiles WHERE show_archive = 1
		  ))
	`

	result, err := r.db.Writer.ExecContext(ctx, query, cutoff.UTC().Format(time.RFC3339))
	if err != nil {
		return 0, fmt.Errorf("delete expired notes: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("check rows affected: %w", err)
	}

	return rows, nil
}

func (r *NoteRepo) queryNotes(ctx context.Context, query string, args ...any) ([]model.Note, error) {
	rows, err := r.db.Reader.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query notes: %w", err)
	}
	defer rows.Close()

	var notes []model.Note
	for rows.Next() {
		note, err := scanNote(rows)
		if err != nil {
			return nil, fmt.Errorf("scan note: %w", err)
		}
		notes = append(notes, *note)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate notes: %w", err)
	}

	return notes, nil
}

func scanNote(s scanner) (*model.Note, error) {
	var note model.Note
	var userID sql.NullInt64
	var pubDate string

	err := s.Scan(&note.ID, &note.Text, &note.Author, &userID, &pubDate, &note.Views, &note.Flags)
	if err != nil {
		return nil, err
	}

	if userID.Valid {
		note.UserID = &userID.Int64
	}

	note.PubDate, err = parseTime(pubDate)
	if err != nil {
		return nil, fmt.Errorf("parse pub_date: %w", err)
	}

	return &note, nil
}
