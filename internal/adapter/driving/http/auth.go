package httphandler

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

// deviceIDHeader carries the anonymous device identity for engagement
// endpoints. The server mints one when the client has none yet.
const deviceIDHeader = "X-Device-ID"

// newSessionToken mints a random bearer token and its storage hash. Only
// the hash is persisted; the token goes to the client once.
func newSessionToken() (token, tokenHash string, err error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", "", fmt.Errorf("generate session token: %w", err)
	}

	token = hex.EncodeToString(raw)
	return token, hashToken(token), nil
}

// hashToken derives the storage key for a bearer token.
func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// bearerToken extracts the token from an Authorization header.
// Returns "" when the header is absent or malformed.
func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(auth, prefix) {
		return ""
	}

	return strings.TrimSpace(auth[len(prefix):])
}

// deviceID returns the caller's device identity, minting a fresh UUID when
// the header is missing. The ID in use is echoed on the response so clients
// can persist a minted one.
func deviceID(w http.ResponseWriter, r *http.Request) string {
	id := strings.TrimSpace(r.Header.Get(deviceIDHeader))
	if id == "" {
		id = uuid.NewString()
	}

	w.Header().Set(deviceIDHeader, id)
	return id
}
