package application

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evanrhall/driftnote/internal/domain/model"
	"github.com/evanrhall/driftnote/internal/domain/port/driven"
)

// --- Mock implementations for NoteService tests ---

type mockNoteStore struct {
	mu     sync.Mutex
	notes  map[int64]*model.Note
	nextID int64
}

func newMockNoteStore() *mockNoteStore {
	return &mockNoteStore{notes: make(map[int64]*model.Note)}
}

func (m *mockNoteStore) Create(_ context.Context, note model.Note) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	note.ID = m.nextID
	m.notes[note.ID] = &note
	return note.ID, nil
}

func (m *mockNoteStore) GetByID(_ context.Context, id int64) (*model.Note, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.notes[id], nil
}

func (m *mockNoteStore) ListSince(_ context.Context, cutoff time.Time) ([]model.Note, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Note
	for _, n := range m.notes {
		if !n.PubDate.Before(cutoff) {
			out = append(out, *n)
		}
	}
	return out, nil
}

func (m *mockNoteStore) ListByUser(_ context.Context, userID int64, limit int) ([]model.Note, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Note
	for _, n := range m.notes {
		if n.UserID != nil && *n.UserID == userID && len(out) < limit {
			out = append(out, *n)
		}
	}
	return out, nil
}

func (m *mockNoteStore) Delete(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.notes[id]; !ok {
		return driven.ErrNoteNotFound
	}
	delete(m.notes, id)
	return nil
}

func (m *mockNoteStore) DeleteExpired(_ context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var removed int64
	for id, n := range m.notes {
		if n.PubDate.Before(cutoff) {
			delete(m.notes, id)
			removed++
		}
	}
	return removed, nil
}

func (m *mockNoteStore) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.notes)
}

type mockEngagementStore struct {
	witnessed map[string]bool
	flagged   map[string]bool
}

func newMockEngagementStore() *mockEngagementStore {
	return &mockEngagementStore{witnessed: make(map[string]bool), flagged: make(map[string]bool)}
}

func (m *mockEngagementStore) Witness(_ context.Context, noteID int64, deviceID string) (bool, error) {
	key := deviceID + "/" + string(rune(noteID))
	if m.witnessed[key] {
		return false, nil
	}
	m.witnessed[key] = true
	return true, nil
}

func (m *mockEngagementStore) Flag(_ context.Context, noteID int64, deviceID string) (bool, error) {
	key := deviceID + "/" + string(rune(noteID))
	if m.flagged[key] {
		return false, nil
	}
	m.flagged[key] = true
	return true, nil
}

type enqueuedJob struct {
	profile model.Profile
	text    string
	sel     model.Selections
	noteID  int64
}

type mockEnqueuer struct {
	jobs []enqueuedJob
}

func (m *mockEnqueuer) Enqueue(profile model.Profile, text string, sel model.Selections, noteID int64) bool {
	m.jobs = append(m.jobs, enqueuedJob{profile: profile, text: text, sel: sel, noteID: noteID})
	return true
}

func newNoteService(notes *mockNoteStore, profiles *mockProfileStore, enq *mockEnqueuer) *NoteService {
	return NewNoteService(notes, newMockEngagementStore(), newMockCrosspostStore(), profiles, enq, 48*time.Hour)
}

// --- Tests ---

func TestNoteService_CreateAnonymousNote(t *testing.T) {
	notes := newMockNoteStore()
	enq := &mockEnqueuer{}
	svc := newNoteService(notes, newMockProfileStore(), enq)

	note, err := svc.CreateNote(context.Background(), "hello world", "", nil, model.Selections{})
	require.NoError(t, err)
	assert.Equal(t, "anonymous", note.Author)
	assert.Nil(t, note.UserID)
	assert.NotZero(t, note.ID)
	assert.Empty(t, enq.jobs)
}

func TestNoteService_CreateEmptyNoteRejected(t *testing.T) {
	svc := newNoteService(newMockNoteStore(), newMockProfileStore(), &mockEnqueuer{})

	for _, text := range []string{"", "   ", "\n\t "} {
		_, err := svc.CreateNote(context.Background(), text, "", nil, model.Selections{})
		assert.True(t, errors.Is(err, ErrEmptyNote), "text %q", text)
	}
}

func TestNoteService_CreateRegisteredNoteEnqueuesFanout(t *testing.T) {
	notes := newMockNoteStore()
	profiles := newMockProfileStore()
	profiles.Create(context.Background(), 7)
	enq := &mockEnqueuer{}
	svc := newNoteService(notes, profiles, enq)

	user := &model.User{ID: 7, Username: "maren"}
	sel := model.Selections{Bluesky: true, Face: "☕"}

	note, err := svc.CreateNote(context.Background(), "out it goes", "", user, sel)
	require.NoError(t, err)
	assert.Equal(t, "maren", note.Author)
	require.Len(t, enq.jobs, 1)
	assert.Equal(t, note.ID, enq.jobs[0].noteID)
	assert.Equal(t, "out it goes", enq.jobs[0].text)
	assert.Equal(t, sel, enq.jobs[0].sel)
	assert.Equal(t, int64(7), enq.jobs[0].profile.UserID)
}

func TestNoteService_CreateNoSelectionNoFanout(t *testing.T) {
	profiles := newMockProfileStore()
	profiles.Create(context.Background(), 7)
	enq := &mockEnqueuer{}
	svc := newNoteService(newMockNoteStore(), profiles, enq)

	_, err := svc.CreateNote(context.Background(), "quiet one", "", &model.User{ID: 7, Username: "maren"}, model.Selections{})
	require.NoError(t, err)
	assert.Empty(t, enq.jobs)
}

func TestNoteService_WitnessAndFlag(t *testing.T) {
	notes := newMockNoteStore()
	svc := newNoteService(notes, newMockProfileStore(), &mockEnqueuer{})

	note, err := svc.CreateNote(context.Background(), "watch me", "", nil, model.Selections{})
	require.NoError(t, err)

	created, err := svc.Witness(context.Background(), note.ID, "device-a")
	require.NoError(t, err)
	assert.True(t, created)

	created, err = svc.Witness(context.Background(), note.ID, "device-a")
	require.NoError(t, err)
	assert.False(t, created)

	created, err = svc.Flag(context.Background(), note.ID, "device-a")
	require.NoError(t, err)
	assert.True(t, created)

	_, err = svc.Witness(context.Background(), 999, "device-a")
	assert.True(t, errors.Is(err, driven.ErrNoteNotFound))

	_, err = svc.Flag(context.Background(), 999, "device-a")
	assert.True(t, errors.Is(err, driven.ErrNoteNotFound))
}

func TestNoteService_DeleteAuthorOnly(t *testing.T) {
	notes := newMockNoteStore()
	svc := newNoteService(notes, newMockProfileStore(), &mockEnqueuer{})

	owner := &model.User{ID: 7, Username: "maren"}
	note, err := svc.CreateNote(context.Background(), "mine", "", owner, model.Selections{})
	require.NoError(t, err)

	err = svc.Delete(context.Background(), note.ID, 8)
	assert.True(t, errors.Is(err, driven.ErrNotNoteAuthor))

	require.NoError(t, svc.Delete(context.Background(), note.ID, 7))

	err = svc.Delete(context.Background(), note.ID, 7)
	assert.True(t, errors.Is(err, driven.ErrNoteNotFound))
}

func TestNoteService_DeleteAnonymousNoteRefused(t *testing.T) {
	notes := newMockNoteStore()
	svc := newNoteService(notes, newMockProfileStore(), &mockEnqueuer{})

	note, err := svc.CreateNote(context.Background(), "nobody's", "", nil, model.Selections{})
	require.NoError(t, err)

	err = svc.Delete(context.Background(), note.ID, 7)
	assert.True(t, errors.Is(err, driven.ErrNotNoteAuthor))
}

func TestNoteService_FeedWindow(t *testing.T) {
	notes := newMockNoteStore()
	svc := newNoteService(notes, newMockProfileStore(), &mockEnqueuer{})

	fresh, err := svc.CreateNote(context.Background(), "fresh", "", nil, model.Selections{})
	require.NoError(t, err)

	// Age one note past the window by editing the store directly.
	stale, err := svc.CreateNote(context.Background(), "stale", "", nil, model.Selections{})
	require.NoError(t, err)
	notes.notes[stale.ID].PubDate = time.Now().UTC().Add(-72 * time.Hour)

	feed, err := svc.Feed(context.Background())
	require.NoError(t, err)
	require.Len(t, feed, 1)
	assert.Equal(t, fresh.ID, feed[0].Note.ID)
}

func TestNoteService_ArchiveRequiresOptIn(t *testing.T) {
	notes := newMockNoteStore()
	profiles := newMockProfileStore()
	profiles.Create(context.Background(), 7)
	profiles.profiles[7].Username = "maren"

	svc := newNoteService(notes, profiles, &mockEnqueuer{})

	archive, err := svc.ArchiveFor(context.Background(), "maren")
	require.NoError(t, err)
	assert.Nil(t, archive)

	profiles.profiles[7].ShowArchive = true
	profiles.profiles[7].Bio = "keeper of notes"

	_, err = svc.CreateNote(context.Background(), "kept", "", &model.User{ID: 7, Username: "maren"}, model.Selections{})
	require.NoError(t, err)

	archive, err = svc.ArchiveFor(context.Background(), "maren")
	require.NoError(t, err)
	require.NotNil(t, archive)
	assert.Equal(t, "maren", archive.Username)
	assert.Equal(t, "keeper of notes", archive.Bio)
	require.Len(t, archive.Notes, 1)
	assert.Equal(t, "kept", archive.Notes[0].Note.Text)

	archive, err = svc.ArchiveFor(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Nil(t, archive)
}
