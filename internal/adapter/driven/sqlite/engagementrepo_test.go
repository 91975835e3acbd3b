package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEngagementRepo_WitnessOncePerDevice(t *testing.T) {
	db := setupTestDB(t)
	repo := NewEngagementRepo(db)
	notes := NewNoteRepo(db)
	ctx := context.Background()

	noteID := createTestNote(t, db, nil, time.Now().UTC())

	created, err := repo.Witness(ctx, noteID, "device-a")
	require.NoError(t, err)
	assert.True(t, created)

	// A repeat from the same device is ignored.
	created, err = repo.Witness(ctx, noteID, "device-a")
	require.NoError(t, err)
	assert.False(t, created)

	created, err = repo.Witness(ctx, noteID, "device-b")
	require.NoError(t, err)
	assert.True(t, created)

	note, err := notes.GetByID(ctx, noteID)
	require.NoError(t, err)
	require.NotNil(t, note)
	assert.Equal(t, 2, note.Views)
}

func TestEngagementRepo_FlagOncePerDevice(t *testing.T) {
	db := setupTestDB(t)
	repo := NewEngagementRepo(db)
	notes := NewNoteRepo(db)
	ctx := context.Background()

	noteID := createTestNote(t, db, nil, time.Now().UTC())

	created, err := repo.Flag(ctx, noteID, "device-a")
	require.NoError(t, err)
	assert.True(t, created)

	created, err = repo.Flag(ctx, noteID, "device-a")
	require.NoError(t, err)
	assert.False(t, created)

	note, err := notes.GetByID(ctx, noteID)
	require.NoError(t, err)
	require.NotNil(t, note)
	assert.Equal(t, 1, note.Flags)
	assert.Equal(t, 0, note.Views)
}

func TestEngagementRepo_RowsDropWithNote(t *testing.T) {
	db := setupTestDB(t)
	repo := NewEngagementRepo(db)
	ctx := context.Background()

	noteID := createTestNote(t, db, nil, time.Now().UTC())

	_, err := repo.Witness(ctx, noteID, "device-a")
	require.NoError(t, err)

	require.NoError(t, NewNoteRepo(db).Delete(ctx, noteID))

	var count int
	err = db.Reader.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM note_witnesses WHERE note_id = ?`, noteID,
	).Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}
