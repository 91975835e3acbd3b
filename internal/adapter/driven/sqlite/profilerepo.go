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
var _ driven.ProfileStore = (*ProfileRepo)(nil)

// crosspostErrorMaxLen bounds the stored diagnostic message.
const crosspostErrorMaxLen = 500

// ProfileRepo is the SQLite implementation of the ProfileStore port
// interface. The three credential columns (Mastodon token, Bluesky app
// password, status.cafe password) are encrypted at rest with AES-256-GCM;
// everything else is stored as-is.
type ProfileRepo struct {
	db     *DB
	cipher fieldCipher
}

// NewProfileRepo creates a new ProfileRepo backed by the given DB. A nil
// encryptionKey disables credential encryption; storing non-empty
// credentials then fails with ErrEncryptionKeyNotSet.
func NewProfileRepo(db *DB, encryptionKey []byte) *ProfileRepo {
	return &ProfileRepo{db: db, cipher: fieldCipher{key: encryptionKey}}
}

// Create inserts an empty profile for a newly registered user.
func (r *ProfileRepo) Create(ctx context.Context, userID int64) error {
	const query = `
		INSERT INTO profiles (user_id, created_at, updated_at)
		VALUES (?, ?, ?)
	`

	now := time.Now().UTC().Format(time.RFC3339)
	if _, err := r.db.Writer.ExecContext(ctx, query, userID, now, now); err != nil {
		return fmt.Errorf("insert profile for user %d: %w", userID, err)
	}

	return nil
}

// GetByUserID retrieves a profile with decrypted credentials.
// Returns nil, nil if the user has no profile.
func (r *ProfileRepo) GetByUserID(ctx context.Context, userID int64) (*model.Profile, error) {
	const query = selectProfile + ` WHERE p.user_id = ?`

	profile, err := r.scanProfile(r.db.Reader.QueryRowContext(ctx, query, userID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get profile for user %d: %w", userID, err)
	}

	return profile, nil
}

// GetByUsername retrieves a profile by the owning account's username,
// case-insensitively. Returns nil, nil when unknown.
func (r *ProfileRepo) GetByUsername(ctx context.Context, username string) (*model.Profile, error) {
	const query = selectProfile + ` WHERE u.username = ?`

	profile, err := r.scanProfile(r.db.Reader.QueryRowContext(ctx, query, username))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get profile for %q: %w", username, err)
	}

	return profile, nil
}

// Update replaces the profile's settings and credentials. The diagnostic
// fields are deliberately not touched here; they have their own writers.
func (r *ProfileRepo) Update(ctx context.Context, p model.Profile) error {
	const query = `
		UPDATE profiles SET
			website = ?, bio = ?, show_archive = ?,
			mastodon_instance = ?, mastodon_token = ?, mastodon_char_limit = ?,
			bluesky_handle = ?, bluesky_app_password = ?,
			status_cafe_username = ?, status_cafe_password = ?, status_cafe_face = ?,
			crosspost_mastodon = ?, crosspost_bluesky = ?, crosspost_status_cafe = ?,
			updated_at = ?
		WHERE user_id = ?
	`

	mastodonToken, err := r.cipher.encrypt(p.MastodonToken)
	if err != nil {
		return fmt.Errorf("encrypt mastodon token: %w", err)
	}
	blueskyPassword, err := r.cipher.encrypt(p.BlueskyAppPassword)
	if err != nil {
		return fmt.Errorf("encrypt bluesky app password: %w", err)
	}
	statusCafePassword, err := r.cipher.encrypt(p.StatusCafePassword)
	if err != nil {
		return fmt.Errorf("encrypt status.cafe password: %w", err)
	}

	_, err = r.db.Writer.ExecContext(ctx, query,
		p.Website, p.Bio, boolToInt(p.ShowArchive),
		p.MastodonInstance, mastodonToken, p.MastodonCharLimit,
		p.BlueskyHandle, blueskyPassword,
		p.StatusCafeUsername, statusCafePassword, p.StatusCafeFace,
		boolToInt(p.CrosspostMastodon), boolToInt(p.CrosspostBluesky), boolToInt(p.CrosspostStatusCafe),
		time.Now().UTC().Format(time.RFC3339),
		p.UserID,
	)
	if err != nil {
		return fmt.Errorf("update profile for user %d: %w", p.UserID, err)
	}

	return nil
}

// RecordCrosspostError sets the shared last-error fields, truncating the
// message to 500 characters.
func (r *ProfileRepo) RecordCrosspostError(ctx context.Context, userID int64, message string) error {
	const query = `
		UPDATE profiles
		SET last_crosspost_error = ?, last_crosspost_error_at = ?
		WHERE user_id = ?
	`

	runes := []rune(message)
	if len(runes) > crosspostErrorMaxLen {
		message = string(runes[:crosspostErrorMaxLen])
	}

	_, err := r.db.Writer.ExecContext(ctx, query,
		message, time.Now().UTC().Format(time.RFC3339), userID,
	)
	if err != nil {
		return fmt.Errorf("record crosspost error for user %d: %w", userID, err)
	}

	return nil
}

// ClearCrosspostError blanks both diagnostic fields.
func (r *ProfileRepo) ClearCrosspostError(ctx context.Context, userID int64) error {
	const query = `
		UPDATE profiles
		SET last_crosspost_error = '', last_crosspost_error_at = NULL
		WHERE user_id = ?
	`

	if _, err := r.db.Writer.ExecContext(ctx, query, userID); err != nil {
		return fmt.Errorf("clear crosspost error for user %d: %w", userID, err)
	}

	return nil
}

const selectProfile = `
	SELECT p.user_id, u.username, p.website, p.bio, p.show_archive,
	       p.mastodon_instance, p.mastodon_token, p.mastodon_char_limit,
	       p.bluesky_handle, p.bluesky_app_password,
	       p.status_cafe_username, p.status_cafe_password, p.status_cafe_face,
	       p.crosspost_mastodon, p.crosspost_bluesky, p.crosspost_status_cafe,
	       p.last_crosspost_error, p.last_crosspost_error_at,
	       p.created_at, p.updated_at
	FROM profiles p
	JOIN users u ON u.id = p.user_id
`

func (r *ProfileRepo) scanProfile(s scanner) (*model.Profile, error) {
	var p model.Profile
	var showArchive, mastodon, bluesky, statusCafe int
	var mastodonToken, blueskyPassword, statusCafePassword string
	var lastErrorAt sql.NullString
	var createdAt, updatedAt string

	err := s.Scan(
		&p.UserID, &p.Username, &p.Website, &p.Bio, &showArchive,
		&p.MastodonInstance, &mastodonToken, &p.MastodonCharLimit,
		&p.BlueskyHandle, &blueskyPassword,
		&p.StatusCafeUsername, &statusCafePassword, &p.StatusCafeFace,
		&mastodon, &bluesky, &statusCafe,
		&p.LastCrosspostError, &lastErrorAt,
		&createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	p.ShowArchive = showArchive != 0
	p.CrosspostMastodon = mastodon != 0
	p.CrosspostBluesky = bluesky != 0
	p.CrosspostStatusCafe = statusCafe != 0

	p.MastodonToken, err = r.cipher.decrypt(mastodonToken)
	if err != nil {
		return nil, fmt.Errorf("decrypt mastodon token: %w", err)
	}
	p.BlueskyAppPassword, err = r.cipher.decrypt(blueskyPassword)
	if err != nil {
		return nil, fmt.Errorf("decrypt bluesky app password: %w", err)
	}
	p.StatusCafePassword, err = r.cipher.decrypt(statusCafePassword)
	if err != nil {
		return nil, fmt.Errorf("decrypt status.cafe password: %w", err)
	}

	if lastErrorAt.Valid {
		t, err := parseTime(lastErrorAt.String)
		if err != nil {
			return nil, fmt.Errorf("parse last_crosspost_error_at: %w", err)
		}
		p.LastCrosspostErrorAt = &t
	}

	p.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}

	p.UpdatedAt, err = parseTime(updatedAt)
	if err != nil {
		return nil, fmt.Errorf("parse updated_at: %w", err)
	}

	return &p, nil
}
