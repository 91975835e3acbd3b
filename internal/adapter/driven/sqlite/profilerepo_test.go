package sqlite

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evanrhall/driftnote/internal/domain/port/driven"
)

func TestProfileRepo_CreateAndGet(t *testing.T) {
	db := setupTestDB(t)
	repo := NewProfileRepo(db, DeriveKey("test-secret"))
	ctx := context.Background()

	userID := createTestUser(t, db, "maren")

	p, err := repo.GetByUserID(ctx, userID)
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, "maren", p.Username)
	assert.False(t, p.ShowArchive)
	assert.Equal(t, 2000, p.MastodonCharLimit)
	assert.Empty(t, p.LastCrosspostError)
	assert.Nil(t, p.LastCrosspostErrorAt)
}

func TestProfileRepo_GetByUsernameCaseInsensitive(t *testing.T) {
	db := setupTestDB(t)
	repo := NewProfileRepo(db, nil)
	ctx := context.Background()

	userID := createTestUser(t, db, "Maren")

	p, err := repo.GetByUsername(ctx, "maren")
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, userID, p.UserID)

	p, err = repo.GetByUsername(ctx, "nobody")
	require.NoError(t, err)
	assert.Nil(t, p)
}

func TestProfileRepo_CredentialsEncryptedAtRest(t *testing.T) {
	db := setupTestDB(t)
	repo := NewProfileRepo(db, DeriveKey("test-secret"))
	ctx := context.Background()

	userID := createTestUser(t, db, "maren")

	p, err := repo.GetByUserID(ctx, userID)
	require.NoError(t, err)
	p.MastodonInstance = "https://hachyderm.io"
	p.MastodonToken = "mast-token-plaintext"
	p.BlueskyAppPassword = "bsky-app-password"
	p.StatusCafePassword = "cafe-password"
	require.NoError(t, repo.Update(ctx, *p))

	// The raw columns must never contain the plaintext.
	var token, bskyPw, cafePw string
	err = db.Reader.QueryRowContext(ctx,
		`SELECT mastodon_token, bluesky_app_password, status_cafe_password FROM profiles WHERE user_id = ?`,
		userID,
	).Scan(&token, &bskyPw, &cafePw)
	require.NoError(t, err)
	assert.NotEqual(t, "mast-token-plaintext", token)
	assert.NotContains(t, token, "plaintext")
	assert.NotEqual(t, "bsky-app-password", bskyPw)
	assert.NotEqual(t, "cafe-password", cafePw)

	got, err := repo.GetByUserID(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, "mast-token-plaintext", got.MastodonToken)
	assert.Equal(t, "bsky-app-password", got.BlueskyAppPassword)
	assert.Equal(t, "cafe-password", got.StatusCafePassword)
}

func TestProfileRepo_UpdateWithoutKey(t *testing.T) {
	db := setupTestDB(t)
	repo := NewProfileRepo(db, nil)
	ctx := context.Background()

	userID := createTestUser(t, db, "maren")

	p, err := repo.GetByUserID(ctx, userID)
	require.NoError(t, err)

	// Blank credentials are fine without a key.
	p.Website = "https://maren.example"
	require.NoError(t, repo.Update(ctx, *p))

	p.MastodonToken = "secret"
	err = repo.Update(ctx, *p)
	assert.True(t, errors.Is(err, driven.ErrEncryptionKeyNotSet))
}

func TestProfileRepo_RecordAndClearCrosspostError(t *testing.T) {
	db := setupTestDB(t)
	repo := NewProfileRepo(db, nil)
	ctx := context.Background()

	userID := createTestUser(t, db, "maren")

	require.NoError(t, repo.RecordCrosspostError(ctx, userID, "Bluesky post failed: auth"))

	p, err := repo.GetByUserID(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, "Bluesky post failed: auth", p.LastCrosspostError)
	require.NotNil(t, p.LastCrosspostErrorAt)
	assert.True(t, p.HasCrosspostError())

	require.NoError(t, repo.ClearCrosspostError(ctx, userID))

	p, err = repo.GetByUserID(ctx, userID)
	require.NoError(t, err)
	assert.Empty(t, p.LastCrosspostError)
	assert.Nil(t, p.LastCrosspostErrorAt)
	assert.False(t, p.HasCrosspostError())
}

func TestProfileRepo_CrosspostErrorTruncated(t *testing.T) {
	db := setupTestDB(t)
	repo := NewProfileRepo(db, nil)
	ctx := context.Background()

	userID := createTestUser(t, db, "maren")

	require.NoError(t, repo.RecordCrosspostError(ctx, userID, strings.Repeat("x", 600)))

	p, err := repo.GetByUserID(ctx, userID)
	require.NoError(t, err)
	assert.Len(t, p.LastCrosspostError, 500)
}
