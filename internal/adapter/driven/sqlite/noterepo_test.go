package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evanrhall/driftnote/internal/domain/model"
	"github.com/evanrhall/driftnote/internal/domain/port/driven"
)

func TestNoteRepo_CreateAndGet(t *testing.T) {
	db := setupTestDB(t)
	repo := NewNoteRepo(db)
	ctx := context.Background()

	pubDate := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	id, err := repo.Create(ctx, model.Note{Text: "first note", Author: "anonymous", PubDate: pubDate})
	require.NoError(t, err)
	require.NotZero(t, id)

	note, err := repo.GetByID(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, note)
	assert.Equal(t, "first note", note.Text)
	assert.Equal(t, "anonymous", note.Author)
	assert.Nil(t, note.UserID)
	assert.True(t, pubDate.Equal(note.PubDate))
	assert.Equal(t, 0, note.Views)
	assert.Equal(t, 0, note.Flags)
}

func TestNoteRepo_GetMissing(t *testing.T) {
	db := setupTestDB(t)
	repo := NewNoteRepo(db)

	note, err := repo.GetByID(context.Background(), 999)
	require.NoError(t, err)
	assert.Nil(t, note)
}

func TestNoteRepo_ListSince(t *testing.T) {
	db := setupTestDB(t)
	repo := NewNoteRepo(db)
	ctx := context.Background()

	now := time.Now().UTC()
	oldID := createTestNote(t, db, nil, now.Add(-72*time.Hour))
	recentID := createTestNote(t, db, nil, now.Add(-1*time.Hour))
	newestID := createTestNote(t, db, nil, now)

	notes, err := repo.ListSince(ctx, now.Add(-48*time.Hour))
	require.NoError(t, err)
	require.Len(t, notes, 2)

	// Newest first; the expired note never appears.
	assert.Equal(t, newestID, notes[0].ID)
	assert.Equal(t, recentID, notes[1].ID)
	for _, n := range notes {
		assert.NotEqual(t, oldID, n.ID)
	}
}

func TestNoteRepo_ListByUser(t *testing.T) {
	db := setupTestDB(t)
	repo := NewNoteRepo(db)
	ctx := context.Background()

	userID := createTestUser(t, db, "poet")
	now := time.Now().UTC()
	createTestNote(t, db, nil, now)
	a := createTestNote(t, db, &userID, now.Add(-2*time.Hour))
	b := createTestNote(t, db, &userID, now.Add(-1*time.Hour))

	notes, err := repo.ListByUser(ctx, userID, 10)
	require.NoError(t, err)
	require.Len(t, notes, 2)
	assert.Equal(t, b, notes[0].ID)
	assert.Equal(t, a, notes[1].ID)

	notes, err = repo.ListByUser(ctx, userID, 1)
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Equal(t, b, notes[0].ID)
}

func TestNoteRepo_Delete(t *testing.T) {
	db := setupTestDB(t)
	repo := NewNoteRepo(db)
	ctx := context.Background()

	id := createTestNote(t, db, nil, time.Now().UTC())

	require.NoError(t, repo.Delete(ctx, id))

	note, err := repo.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Nil(t, note)

	err = repo.Delete(ctx, id)
	assert.True(t, errors.Is(err, driven.ErrNoteNotFound))
}

func TestNoteRepo_DeleteExpiredSparesArchivedUsers(t *testing.T) {
	db := setupTestDB(t)
	repo := NewNoteRepo(db)
	ctx := context.Background()

	archivist := createTestUser(t, db, "archivist")
	drifter := createTestUser(t, db, "drifter")

	profiles := NewProfileRepo(db, nil)
	p, err := profiles.GetByUserID(ctx, archivist)
	require.NoError(t, err)
	p.ShowArchive = true
	require.NoError(t, profiles.Update(ctx, *p))

	now := time.Now().UTC()
	old := now.Add(-100 * time.Hour)
	keptID := createTestNote(t, db, &archivist, old)
	expiredUser := createTestNote(t, db, &drifter, old)
	expiredAnon := createTestNote(t, db, nil, old)
	freshID := createTestNote(t, db, nil, now)

	removed, err := repo.DeleteExpired(ctx, now.Add(-48*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(2), removed)

	for id, want := range map[int64]bool{
		keptID: true, expiredUser: false, expiredAnon: false, freshID: true,
	} {
		note, err := repo.GetByID(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, want, note != nil, "note %d", id)
	}
}
