package model

import "time"

// User is a registered account. Anonymous posting needs no User row.
type User struct {
	ID           int64
	Username     string
	PasswordHash string // bcrypt
	CreatedAt    time.Time
}

// Session is a bearer-token login session. Only the SHA-256 of the token is
// stored; the plaintext token exists solely in the login response.
type Session struct {
	TokenHash string
	UserID    int64
	CreatedAt time.Time
}

// Draft is a registered user's saved composer state: one per user, replaced
// on every save.
type Draft struct {
	UserID     int64
	Body       string
	Face       string
	Mastodon   bool
	Bluesky    bool
	StatusCafe bool
	UpdatedAt  time.Time
}
