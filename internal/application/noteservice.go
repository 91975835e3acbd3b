package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/evanrhall/driftnote/internal/domain/model"
	"github.com/evanrhall/driftnote/internal/domain/port/driven"
)

// ErrEmptyNote is returned when a note has no visible content.
var ErrEmptyNote = errors.New("note text is empty")

// archiveNoteLimit caps how many notes an archive page returns.
const archiveNoteLimit = 200

// FeedNote is a note decorated with its cross-post references.
type FeedNote struct {
	Note       model.Note
	Crossposts []model.NoteCrosspost
}

// Archive is a user's public archive page: profile metadata plus their
// latest notes regardless of the feed window.
type Archive struct {
	Username string
	Website  string
	Bio      string
	Notes    []FeedNote
}

// Enqueuer hands fan-out jobs to the background dispatcher. Enqueue must
// not block; it reports whether the job was accepted.
type Enqueuer interface {
	Enqueue(profile model.Profile, text string, sel model.Selections, noteID int64) bool
}

// NoteService owns the note lifecycle: creation with fire-and-forget
// cross-posting, the public feed, engagement, deletion, and archives.
type NoteService struct {
	noteStore       driven.NoteStore
	engagementStore driven.EngagementStore
	crosspostStore  driven.CrosspostStore
	profileStore    driven.ProfileStore
	dispatcher      Enqueuer
	feedWindow      time.Duration
}

// NewNoteService creates a NoteService. feedWindow bounds the public feed;
// notes older than it fade out.
func NewNoteService(
	noteStore driven.NoteStore,
	engagementStore driven.EngagementStore,
	crosspostStore driven.CrosspostStore,
	profileStore driven.ProfileStore,
	dispatcher Enqueuer,
	feedWindow time.Duration,
) *NoteService {
	return &NoteService{
		noteStore:       noteStore,
		engagementStore: engagementStore,
		crosspostStore:  crosspostStore,
		profileStore:    profileStore,
		dispatcher:      dispatcher,
		feedWindow:      feedWindow,
	}
}

// CreateNote saves a note and, for registered users with networks selected,
// enqueues the cross-post fan-out. The note is always saved first; nothing
// that happens on the way to external networks can undo it.
func (s *NoteService) CreateNote(ctx context.Context, text, author string, user *model.User, sel model.Selections) (*model.Note, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyNote
	}

	note := model.Note{
		Text:    text,
		Author:  "anonymous",
		PubDate: time.Now().UTC(),
	}
	if user != nil {
		note.Author = user.Username
		note.UserID = &user.ID
	}
	if author != "" {
		note.Author = author
	}

	id, err := s.noteStore.Create(ctx, note)
	if err != nil {
		return nil, fmt.Errorf("create note: %w", err)
	}
	note.ID = id

	if user != nil && sel.Any() {
		profile, err := s.profileStore.GetByUserID(ctx, user.ID)
		if err != nil {
			slog.Error("load profile for crosspost failed", "user_id", user.ID, "error", err)
		} else if profile != nil {
			s.dispatcher.Enqueue(*profile, note.Text, sel, note.ID)
		}
	}

	return &note, nil
}

// Feed returns notes inside the feed window, newest first, each with its
// cross-post badges.
func (s *NoteService) Feed(ctx context.Context) ([]FeedNote, error) {
	cutoff := time.Now().UTC().Add(-s.feedWindow)

	notes, err := s.noteStore.ListSince(ctx, cutoff)
	if err != nil {
		return nil, fmt.Errorf("list feed notes: %w", err)
	}

	return s.decorate(ctx, notes)
}

// Witness records a device's first view of a note. Returns true when this
// view was new.
func (s *NoteService) Witness(ctx context.Context, noteID int64, deviceID string) (bool, error) {
	if err := s.ensureNoteExists(ctx, noteID); err != nil {
		return false, err
	}

	created, err := s.engagementStore.Witness(ctx, noteID, deviceID)
	if err != nil {
		return false, fmt.Errorf("witness note %d: %w", noteID, err)
	}

	return created, nil
}

// Flag records a device flagging a note. Returns true when the flag was new.
func (s *NoteService) Flag(ctx context.Context, noteID int64, deviceID string) (bool, error) {
	if err := s.ensureNoteExists(ctx, noteID); err != nil {
		return false, err
	}

	created, err := s.engagementStore.Flag(ctx, noteID, deviceID)
	if err != nil {
		return false, fmt.Errorf("flag note %d: %w", noteID, err)
	}

	return created, nil
}

// Delete removes a note if and only if the caller authored it.
func (s *NoteService) Delete(ctx context.Context, noteID, userID int64) error {
	note, err := s.noteStore.GetByID(ctx, noteID)
	if err != nil {
		return fmt.Errorf("get note %d: %w", noteID, err)
	}
	if note == nil {
		return driven.ErrNoteNotFound
	}
	if note.UserID == nil || *note.UserID != userID {
		return driven.ErrNotNoteAuthor
	}

	return s.noteStore.Delete(ctx, noteID)
}

// ArchiveFor returns the public archive for a username, or nil when the
// user does not exist or has not opted in.
func (s *NoteService) ArchiveFor(ctx context.Context, username string) (*Archive, error) {
	profile, err := s.profileStore.GetByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("get profile for archive: %w", err)
	}
	if profile == nil || !profile.ShowArchive {
		return nil, nil
	}

	notes, err := s.noteStore.ListByUser(ctx, profile.UserID, archiveNoteLimit)
	if err != nil {
		return nil, fmt.Errorf("list archive notes: %w", err)
	}

	decorated, err := s.decorate(ctx, notes)
	if err != nil {
		return nil, err
	}

	return &Archive{
		Username: profile.Username,
		Website:  profile.Website,
		Bio:      profile.Bio,
		Notes:    decorated,
	}, nil
}

func (s *NoteService) ensureNoteExists(ctx context.Context, noteID int64) error {
	note, err := s.noteStore.GetByID(ctx, noteID)
	if err != nil {
		return fmt.Errorf("get note %d: %w", noteID, err)
	}
	if note == nil {
		return driven.ErrNoteNotFound
	}

	return nil
}

func (s *NoteService) decorate(ctx context.Context, notes []model.Note) ([]FeedNote, error) {
	ids := make([]int64, len(notes))
	for i, n := range notes {
		ids[i] = n.ID
	}

	crossposts, err := s.crosspostStore.ListForNotes(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("list crossposts: %w", err)
	}

	out := make([]FeedNote, len(notes))
	for i, n := range notes {
		out[i] = FeedNote{Note: n, Crossposts: crossposts[n.ID]}
	}

	return out, nil
}
