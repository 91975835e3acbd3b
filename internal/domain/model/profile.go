package model

import "time"

// MastodonFallbackLimit is the status length used when a profile has no
// configured Mastodon character limit.
const MastodonFallbackLimit = 2000

// Profile holds a registered user's public page settings and per-network
// cross-posting configuration. There is exactly one profile per user,
// created alongside the account. Credential fields are encrypted at rest by
// the storage adapter and are plaintext here.
type Profile struct {
	UserID      int64
	Username    string // Owning account's username; populated on load.
	Website     string
	Bio         string
	ShowArchive bool

	MastodonInstance  string
	MastodonToken     string
	MastodonCharLimit int

	BlueskyHandle      string
	BlueskyAppPassword string

	StatusCafeUsername string
	StatusCafePassword string
	StatusCafeFace     string // Default emoji for status.cafe posts.

	CrosspostMastodon   bool
	CrosspostBluesky    bool
	CrosspostStatusCafe bool

	// Diagnostics shared across all networks: last writer wins.
	LastCrosspostError   string
	LastCrosspostErrorAt *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// EnabledFor reports the profile-level toggle for the given network. It says
// nothing about whether credentials are present; adapters check those.
func (p Profile) EnabledFor(n Network) bool {
	switch n {
	case NetworkMastodon:
		return p.CrosspostMastodon
	case NetworkBluesky:
		return p.CrosspostBluesky
	case NetworkStatusCafe:
		return p.CrosspostStatusCafe
	}
	return false
}

// MastodonLimit returns the configured status length, falling back to
// MastodonFallbackLimit when unset.
func (p Profile) MastodonLimit() int {
	if p.MastodonCharLimit > 0 {
		return p.MastodonCharLimit
	}
	return MastodonFallbackLimit
}

// HasCrosspostError reports whether either diagnostic field is populated.
func (p Profile) HasCrosspostError() bool {
	return p.LastCrosspostError != "" || p.LastCrosspostErrorAt != nil
}
