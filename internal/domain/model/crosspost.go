package model

import "time"

// NoteCrosspost records a successful delivery of one note to one network.
// At most one row exists per (note, network); failures are never persisted
// here, only on the profile's diagnostic fields.
type NoteCrosspost struct {
	ID        int64
	NoteID    int64
	Network   Network
	RemoteID  string
	RemoteURL string
	CreatedAt time.Time
}

// Selections carries the per-note network choices made when a note is posted.
// A network is only attempted when its selection AND the profile's global
// toggle are both set.
type Selections struct {
	Mastodon   bool
	Bluesky    bool
	StatusCafe bool
	Face       string // status.cafe emoji override for this note.
}

// Wants reports whether the given network was selected for this note.
func (s Selections) Wants(n Network) bool {
	switch n {
	case NetworkMastodon:
		return s.Mastodon
	case NetworkBluesky:
		return s.Bluesky
	case NetworkStatusCafe:
		return s.StatusCafe
	}
	return false
}

// Any reports whether at least one network was selected.
func (s Selections) Any() bool {
	return s.Mastodon || s.Bluesky || s.StatusCafe
}

// Failure describes an attempted delivery that errored. Diagnostic is a
// short non-sensitive string safe to store on the profile; it never carries
// raw error messages or response bodies.
type Failure struct {
	Kind       FailureKind
	HTTPStatus int // Zero when no HTTP status was observed.
	Diagnostic string
}

// DeliveryOutcome is the transient result of one adapter call.
type DeliveryOutcome struct {
	Status    OutcomeStatus
	RemoteID  string
	RemoteURL string
	Failure   *Failure // Set only when Status == OutcomeFailed.
}

// Delivered builds a success outcome carrying the remote identifiers.
func Delivered(remoteID, remoteURL string) DeliveryOutcome {
	return DeliveryOutcome{Status: OutcomeDelivered, RemoteID: remoteID, RemoteURL: remoteURL}
}

// Skipped builds the preconditions-unmet outcome.
func Skipped() DeliveryOutcome {
	return DeliveryOutcome{Status: OutcomeSkipped}
}

// Failed builds a failure outcome with an explicit kind and diagnostic.
func Failed(kind FailureKind, httpStatus int, diagnostic string) DeliveryOutcome {
	return DeliveryOutcome{
		Status:  OutcomeFailed,
		Failure: &Failure{Kind: kind, HTTPStatus: httpStatus, Diagnostic: diagnostic},
	}
}
