package model

import "time"

// Note is a short text post. Notes fade from the public feed once they age
// past the feed window; the text itself is never mutated after creation.
// Views and Flags are denormalized counters maintained by the engagement store.
type Note struct {
	ID      int64
	Text    string
	Author  string // Display name; "anonymous" when the poster has no account.
	UserID  *int64 // Owning account; nil for anonymous notes.
	PubDate time.Time
	Views   int
	Flags   int
}

// InWindow reports whether the note is still visible on the public feed.
func (n Note) InWindow(now time.Time, window time.Duration) bool {
	return now.Sub(n.PubDate) < window
}

// NoteWitness records a device's first view of a note. At most one row
// exists per (note, device) pair.
type NoteWitness struct {
	ID        int64
	NoteID    int64
	DeviceID  string
	CreatedAt time.Time
}

// NoteFlag records a device flagging a note for moderator attention.
// Same uniqueness rule as NoteWitness.
type NoteFlag struct {
	ID        int64
	NoteID    int64
	DeviceID  string
	CreatedAt time.Time
}
