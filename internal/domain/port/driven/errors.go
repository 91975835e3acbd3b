package driven

import "errors"

// ErrEncryptionKeyNotSet is returned by credential-bearing profile writes
// when DRIFTNOTE_SECRET_KEY has not been configured.
var ErrEncryptionKeyNotSet = errors.New("encryption key not configured: set DRIFTNOTE_SECRET_KEY")

// ErrUsernameTaken is returned by UserStore.Create when the username is
// already registered (case-insensitive).
var ErrUsernameTaken = errors.New("username already taken")

// ErrNoteNotFound is returned by note operations addressing a note that does
// not exist (or has already been deleted).
var ErrNoteNotFound = errors.New("note not found")

// ErrNotNoteAuthor is returned when a caller tries to delete a note they do
// not own.
var ErrNotNoteAuthor = errors.New("not the note's author")
