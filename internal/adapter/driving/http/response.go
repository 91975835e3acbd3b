package httphandler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/evanrhall/driftnote/internal/application"
	"github.com/evanrhall/driftnote/internal/domain/model"
)

// writeJSON marshals v to JSON and writes it to the response with the given
// status code. If marshaling fails, a 500 error is written instead.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"internal server error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

// writeError writes a JSON error response with the given status code and message.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// errorResponse is the standard error response body.
type errorResponse struct {
	Error string `json:"error"`
}

// CreateNoteRequest is the JSON body for the create note endpoint.
type CreateNoteRequest struct {
	Text      string            `json:"text"`
	Author    string            `json:"author,omitempty"`
	Crosspost CrosspostSelector `json:"crosspost"`
}

// CrosspostSelector carries the per-note network choices.
type CrosspostSelector struct {
	Mastodon   bool   `json:"mastodon"`
	Bluesky    bool   `json:"bluesky"`
	StatusCafe bool   `json:"status_cafe"`
	Face       string `json:"face,omitempty"`
}

// NoteResponse is the JSON representation of a note.
type NoteResponse struct {
	ID         int64               `json:"id"`
	Text       string              `json:"text"`
	Author     string              `json:"author"`
	PubDate    string              `json:"pub_date"`
	Views      int                 `json:"views"`
	Flags      int                 `json:"flags"`
	Crossposts []CrosspostResponse `json:"crossposts"`
}

// CrosspostResponse is a cross-post badge on a note.
type CrosspostResponse struct {
	Network   string `json:"network"`
	RemoteURL string `json:"remote_url,omitempty"`
}

// EngagementResponse reports whether a witness or flag was newly recorded.
type EngagementResponse struct {
	Recorded bool   `json:"recorded"`
	DeviceID string `json:"device_id"`
}

// RegisterRequest is the JSON body for registration.
type RegisterRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginRequest is the JSON body for login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// SessionResponse carries the bearer token issued at login.
type SessionResponse struct {
	Token    string `json:"token"`
	Username string `json:"username"`
}

// UserResponse is the JSON representation of an account.
type UserResponse struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
}

// CheckResponse reports username availability.
type CheckResponse struct {
	Available bool `json:"available"`
}

// SettingsResponse is the JSON representation of profile settings. Stored
// secrets are never echoed back; only their presence is.
type SettingsResponse struct {
	Username    string `json:"username"`
	Website     string `json:"website"`
	Bio         string `json:"bio"`
	ShowArchive bool   `json:"show_archive"`

	MastodonInstance  string `json:"mastodon_instance"`
	MastodonTokenSet  bool   `json:"mastodon_token_set"`
	MastodonCharLimit int    `json:"mastodon_char_limit"`

	BlueskyHandle         string `json:"bluesky_handle"`
	BlueskyAppPasswordSet bool   `json:"bluesky_app_password_set"`

	StatusCafeUsername    string `json:"status_cafe_username"`
	StatusCafePasswordSet bool   `json:"status_cafe_password_set"`
	StatusCafeFace        string `json:"status_cafe_face"`

	CrosspostMastodon   bool `json:"crosspost_mastodon"`
	CrosspostBluesky    bool `json:"crosspost_bluesky"`
	CrosspostStatusCafe bool `json:"crosspost_status_cafe"`

	LastCrosspostError   string `json:"last_crosspost_error,omitempty"`
	LastCrosspostErrorAt string `json:"last_crosspost_error_at,omitempty"`
}

// UpdateSettingsRequest is the JSON body for the settings update endpoint.
// Secret fields follow form semantics: a blank value clears the stored secret.
type UpdateSettingsRequest struct {
	Website     string `json:"website"`
	Bio         string `json:"bio"`
	ShowArchive bool   `json:"show_archive"`

	MastodonInstance  string `json:"mastodon_instance"`
	MastodonToken     string `json:"mastodon_token"`
	MastodonCharLimit int    `json:"mastodon_char_limit"`

	BlueskyHandle      string `json:"bluesky_handle"`
	BlueskyAppPassword string `json:"bluesky_app_password"`

	StatusCafeUsername string `json:"status_cafe_username"`
	StatusCafePassword string `json:"status_cafe_password"`
	StatusCafeFace     string `json:"status_cafe_face"`

	CrosspostMastodon   bool `json:"crosspost_mastodon"`
	CrosspostBluesky    bool `json:"crosspost_bluesky"`
	CrosspostStatusCafe bool `json:"crosspost_status_cafe"`
}

// TestResultResponse is the outcome of a live credential check.
type TestResultResponse struct {
	Status     string `json:"status"`
	Diagnostic string `json:"diagnostic,omitempty"`
}

// DraftRequest is the JSON body for draft save.
type DraftRequest struct {
	Body       string `json:"body"`
	Face       string `json:"face"`
	Mastodon   bool   `json:"mastodon"`
	Bluesky    bool   `json:"bluesky"`
	StatusCafe bool   `json:"status_cafe"`
}

// DraftResponse is the JSON representation of a saved draft.
type DraftResponse struct {
	Body       string `json:"body"`
	Face       string `json:"face"`
	Mastodon   bool   `json:"mastodon"`
	Bluesky    bool   `json:"bluesky"`
	StatusCafe bool   `json:"status_cafe"`
	UpdatedAt  string `json:"updated_at"`
}

// ArchiveResponse is a user's public archive page.
type ArchiveResponse struct {
	Username string         `json:"username"`
	Website  string         `json:"website"`
	BioHTML  string         `json:"bio_html"`
	Notes    []NoteResponse `json:"notes"`
}

// HealthResponse is the JSON representation of the health check endpoint.
type HealthResponse struct {
	Status string `json:"status"`
	Time   string `json:"time"`
}

// toNoteResponse converts a decorated note to its JSON representation.
func toNoteResponse(fn application.FeedNote) NoteResponse {
	crossposts := make([]CrosspostResponse, 0, len(fn.Crossposts))
	for _, cp := range fn.Crossposts {
		crossposts = append(crossposts, CrosspostResponse{
			Network:   string(cp.Network),
			RemoteURL: cp.RemoteURL,
		})
	}

	return NoteResponse{
		ID:         fn.Note.ID,
		Text:       fn.Note.Text,
		Author:     fn.Note.Author,
		PubDate:    fn.Note.PubDate.UTC().Format(time.RFC3339),
		Views:      fn.Note.Views,
		Flags:      fn.Note.Flags,
		Crossposts: crossposts,
	}
}

// toSettingsResponse converts a profile to its JSON representation.
func toSettingsResponse(p model.Profile) SettingsResponse {
	resp := SettingsResponse{
		Username:    p.Username,
		Website:     p.Website,
		Bio:         p.Bio,
		ShowArchive: p.ShowArchive,

		MastodonInstance:  p.MastodonInstance,
		MastodonTokenSet:  p.MastodonToken != "",
		MastodonCharLimit: p.MastodonCharLimit,

		BlueskyHandle:         p.BlueskyHandle,
		BlueskyAppPasswordSet: p.BlueskyAppPassword != "",

		StatusCafeUsername:    p.StatusCafeUsername,
		StatusCafePasswordSet: p.StatusCafePassword != "",
		StatusCafeFace:        p.StatusCafeFace,

		CrosspostMastodon:   p.CrosspostMastodon,
		CrosspostBluesky:    p.CrosspostBluesky,
		CrosspostStatusCafe: p.CrosspostStatusCafe,

		LastCrosspostError: p.LastCrosspostError,
	}
	if p.LastCrosspostErrorAt != nil {
		resp.LastCrosspostErrorAt = p.LastCrosspostErrorAt.UTC().Format(time.RFC3339)
	}

	return resp
}

// toDraftResponse converts a draft to its JSON representation.
func toDraftResponse(d model.Draft) DraftResponse {
	return DraftResponse{
		Body:       d.Body,
		Face:       d.Face,
		Mastodon:   d.Mastodon,
		Bluesky:    d.Bluesky,
		StatusCafe: d.StatusCafe,
		UpdatedAt:  d.UpdatedAt.UTC().Format(time.RFC3339),
	}
}
