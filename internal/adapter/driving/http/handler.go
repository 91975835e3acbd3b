// Package httphandler provides the HTTP driving adapter that serves the
// JSON API.
package httphandler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/evanrhall/driftnote/internal/application"
	"github.com/evanrhall/driftnote/internal/domain/model"
	"github.com/evanrhall/driftnote/internal/domain/port/driven"
)

// Rate limits for anonymous-reachable write endpoints, per IP.
const (
	noteRateLimit     = 12
	registerRateLimit = 5
	rateWindow        = time.Minute
)

// Handler is the HTTP driving adapter that serves the REST API.
type Handler struct {
	noteService    *application.NoteService
	accountService *application.AccountService
	profileStore   driven.ProfileStore
	sessionStore   driven.SessionStore
	draftStore     driven.DraftStore
	verifiers      map[model.Network]driven.CredentialVerifier
	logger         *slog.Logger
}

// NewHandler creates a Handler with all required dependencies. verifiers
// maps networks to their live credential checks; networks without one simply
// have no test endpoint.
func NewHandler(
	noteService *application.NoteService,
	accountService *application.AccountService,
	profileStore driven.ProfileStore,
	sessionStore driven.SessionStore,
	draftStore driven.DraftStore,
	verifiers map[model.Network]driven.CredentialVerifier,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		noteService:    noteService,
		accountService: accountService,
		profileStore:   profileStore,
		sessionStore:   sessionStore,
		draftStore:     draftStore,
		verifiers:      verifiers,
		logger:         logger,
	}
}

// NewServeMux creates an http.Handler with all routes registered and wrapped
// with logging and recovery middleware. Note creation and registration get
// per-IP rate limits because anonymous clients can hit them.
func NewServeMux(h *Handler, logger *slog.Logger) http.Handler {
	noteLimiter := newRateLimiter(noteRateLimit, rateWindow)
	registerLimiter := newRateLimiter(registerRateLimit, rateWindow)

	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/v1/notes", noteLimiter.wrap(h.CreateNote))
	mux.HandleFunc("GET /api/v1/notes", h.Feed)
	mux.HandleFunc("POST /api/v1/notes/{id}/witness", h.WitnessNote)
	mux.HandleFunc("POST /api/v1/notes/{id}/flag", h.FlagNote)
	mux.HandleFunc("DELETE /api/v1/notes/{id}", h.DeleteNote)

	mux.HandleFunc("POST /api/v1/users", registerLimiter.wrap(h.Register))
	mux.HandleFunc("GET /api/v1/users/check", h.CheckUsername)
	mux.HandleFunc("POST /api/v1/sessions", h.Login)
	mux.HandleFunc("DELETE /api/v1/sessions", h.Logout)

	mux.HandleFunc("GET /api/v1/settings", h.GetSettings)
	mux.HandleFunc("PUT /api/v1/settings", h.UpdateSettings)
	mux.HandleFunc("POST /api/v1/settings/clear-error", h.ClearCrosspostError)
	mux.HandleFunc("POST /api/v1/settings/test/{network}", h.TestCredentials)

	mux.HandleFunc("GET /api/v1/draft", h.GetDraft)
	mux.HandleFunc("PUT /api/v1/draft", h.PutDraft)
	mux.HandleFunc("DELETE /api/v1/draft", h.DeleteDraft)

	mux.HandleFunc("GET /api/v1/archive/{username}", h.Archive)
	mux.HandleFunc("GET /api/v1/health", h.Health)

	// Recovery innermost so panics are caught before logging.
	wrapped := recoveryMiddleware(logger, mux)
	wrapped = loggingMiddleware(logger, wrapped)

	return wrapped
}

// currentUser resolves the request's bearer token to a user. Returns
// nil, nil when the request carries no valid session.
func (h *Handler) currentUser(r *http.Request) (*model.User, error) {
	token := bearerToken(r)
	if token == "" {
		return nil, nil
	}

	return h.sessionStore.UserForToken(r.Context(), hashToken(token))
}

// requireUser resolves the session or writes a 401. The bool reports
// whether the caller may proceed.
func (h *Handler) requireUser(w http.ResponseWriter, r *http.Request) (*model.User, bool) {
	user, err := h.currentUser(r)
	if err != nil {
		h.logger.Error("failed to resolve session", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return nil, false
	}
	if user == nil {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return nil, false
	}

	return user, true
}

// CreateNote saves a note, anonymously or on behalf of a logged-in user,
// and enqueues any selected cross-posts.
func (h *Handler) CreateNote(w http.ResponseWriter, r *http.Request) {
	var req CreateNoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := h.currentUser(r)
	if err != nil {
		h.logger.Error("failed to resolve session", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	sel := model.Selections{
		Mastodon:   req.Crosspost.Mastodon,
		Bluesky:    req.Crosspost.Bluesky,
		StatusCafe: req.Crosspost.StatusCafe,
		Face:       req.Crosspost.Face,
	}

	note, err := h.noteService.CreateNote(r.Context(), req.Text, strings.TrimSpace(req.Author), user, sel)
	if err != nil {
		if errors.Is(err, application.ErrEmptyNote) {
			writeError(w, http.StatusBadRequest, "note text is empty")
			return
		}
		h.logger.Error("failed to create note", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusCreated, toNoteResponse(application.FeedNote{Note: *note}))
}

// Feed returns the public feed: notes inside the feed window, newest first.
func (h *Handler) Feed(w http.ResponseWriter, r *http.Request) {
	notes, err := h.noteService.Feed(r.Context())
	if err != nil {
		h.logger.Error("failed to list feed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	resp := make([]NoteResponse, 0, len(notes))
	for _, n := range notes {
		resp = append(resp, toNoteResponse(n))
	}

	writeJSON(w, http.StatusOK, resp)
}

// WitnessNote records the calling device's first view of a note.
func (h *Handler) WitnessNote(w http.ResponseWriter, r *http.Request) {
	h.recordEngagement(w, r, h.noteService.Witness)
}

// FlagNote records the calling device flagging a note.
func (h *Handler) FlagNote(w http.ResponseWriter, r *http.Request) {
	h.recordEngagement(w, r, h.noteService.Flag)
}

func (h *Handler) recordEngagement(
	w http.ResponseWriter,
	r *http.Request,
	record func(ctx context.Context, noteID int64, deviceID string) (bool, error),
) {
	noteID, ok := notePathID(w, r)
	if !ok {
		return
	}

	device := deviceID(w, r)

	recorded, err := record(r.Context(), noteID, device)
	if err != nil {
		if errors.Is(err, driven.ErrNoteNotFound) {
			writeError(w, http.StatusNotFound, "note not found")
			return
		}
		h.logger.Error("failed to record engagement", "note_id", noteID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusOK, EngagementResponse{Recorded: recorded, DeviceID: device})
}

// DeleteNote removes a note; only its author may do so.
func (h *Handler) DeleteNote(w http.ResponseWriter, r *http.Request) {
	user, ok := h.requireUser(w, r)
	if !ok {
		return
	}

	noteID, ok := notePathID(w, r)
	if !ok {
		return
	}

	if err := h.noteService.Delete(r.Context(), noteID, user.ID); err != nil {
		switch {
		case errors.Is(err, driven.ErrNoteNotFound):
			writeError(w, http.StatusNotFound, "note not found")
		case errors.Is(err, driven.ErrNotNoteAuthor):
			writeError(w, http.StatusForbidden, "not the note's author")
		default:
			h.logger.Error("failed to delete note", "note_id", noteID, "error", err)
			writeError(w, http.StatusInternalServerError, "internal server error")
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Register creates an account and returns a fresh session token.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := h.accountService.Register(r.Context(), req.Username, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, application.ErrInvalidUsername), errors.Is(err, application.ErrWeakPassword):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, driven.ErrUsernameTaken):
			writeError(w, http.StatusConflict, "username already taken")
		default:
			h.logger.Error("failed to register user", "error", err)
			writeError(w, http.StatusInternalServerError, "internal server error")
		}
		return
	}

	h.issueSession(w, r, user, http.StatusCreated)
}

// Login verifies credentials and returns a fresh session token.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := h.accountService.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, application.ErrInvalidCredentials) {
			writeError(w, http.StatusUnauthorized, "invalid username or password")
			return
		}
		h.logger.Error("failed to log in", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.issueSession(w, r, user, http.StatusOK)
}

func (h *Handler) issueSession(w http.ResponseWriter, r *http.Request, user *model.User, status int) {
	token, tokenHash, err := newSessionToken()
	if err != nil {
		h.logger.Error("failed to mint session token", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	if err := h.sessionStore.Create(r.Context(), tokenHash, user.ID); err != nil {
		h.logger.Error("failed to store session", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, status, SessionResponse{Token: token, Username: user.Username})
}

// Logout revokes the caller's session token. Revoking an already-revoked
// token is fine.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	token := bearerToken(r)
	if token == "" {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	if err := h.sessionStore.Delete(r.Context(), hashToken(token)); err != nil {
		h.logger.Error("failed to delete session", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// CheckUsername reports whether a username is still available.
func (h *Handler) CheckUsername(w http.ResponseWriter, r *http.Request) {
	username := r.URL.Query().Get("u")
	if username == "" {
		writeError(w, http.StatusBadRequest, "missing u parameter")
		return
	}

	available, err := h.accountService.UsernameAvailable(r.Context(), username)
	if err != nil {
		h.logger.Error("failed to check username", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusOK, CheckResponse{Available: available})
}

// GetSettings returns the caller's profile settings. Stored secrets come
// back as presence booleans only.
func (h *Handler) GetSettings(w http.ResponseWriter, r *http.Request) {
	user, ok := h.requireUser(w, r)
	if !ok {
		return
	}

	profile, err := h.profileStore.GetByUserID(r.Context(), user.ID)
	if err != nil {
		h.logger.Error("failed to load profile", "user_id", user.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if profile == nil {
		writeError(w, http.StatusNotFound, "profile not found")
		return
	}

	writeJSON(w, http.StatusOK, toSettingsResponse(*profile))
}

// UpdateSettings replaces the caller's profile settings. A blank secret
// field clears the stored secret.
func (h *Handler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	user, ok := h.requireUser(w, r)
	if !ok {
		return
	}

	var req UpdateSettingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	profile, err := h.profileStore.GetByUserID(r.Context(), user.ID)
	if err != nil {
		h.logger.Error("failed to load profile", "user_id", user.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if profile == nil {
		writeError(w, http.StatusNotFound, "profile not found")
		return
	}

	profile.Website = req.Website
	profile.Bio = req.Bio
	profile.ShowArchive = req.ShowArchive
	profile.MastodonInstance = req.MastodonInstance
	profile.MastodonToken = req.MastodonToken
	profile.MastodonCharLimit = req.MastodonCharLimit
	profile.BlueskyHandle = req.BlueskyHandle
	profile.BlueskyAppPassword = req.BlueskyAppPassword
	profile.StatusCafeUsername = req.StatusCafeUsername
	profile.StatusCafePassword = req.StatusCafePassword
	profile.StatusCafeFace = req.StatusCafeFace
	profile.CrosspostMastodon = req.CrosspostMastodon
	profile.CrosspostBluesky = req.CrosspostBluesky
	profile.CrosspostStatusCafe = req.CrosspostStatusCafe

	if err := h.profileStore.Update(r.Context(), *profile); err != nil {
		if errors.Is(err, driven.ErrEncryptionKeyNotSet) {
			writeError(w, http.StatusServiceUnavailable, "credential storage is not configured")
			return
		}
		h.logger.Error("failed to update profile", "user_id", user.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusOK, toSettingsResponse(*profile))
}

// ClearCrosspostError dismisses the profile's advisory cross-post error.
func (h *Handler) ClearCrosspostError(w http.ResponseWriter, r *http.Request) {
	user, ok := h.requireUser(w, r)
	if !ok {
		return
	}

	if err := h.profileStore.ClearCrosspostError(r.Context(), user.ID); err != nil {
		h.logger.Error("failed to clear crosspost error", "user_id", user.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// TestCredentials runs a live credential check against the named network.
// A passing check clears a stale advisory error; a failing one records the
// check's diagnostic in its place.
func (h *Handler) TestCredentials(w http.ResponseWriter, r *http.Request) {
	user, ok := h.requireUser(w, r)
	if !ok {
		return
	}

	verifier, ok := h.verifiers[model.Network(r.PathValue("network"))]
	if !ok {
		writeError(w, http.StatusNotFound, "unknown network")
		return
	}

	profile, err := h.profileStore.GetByUserID(r.Context(), user.ID)
	if err != nil {
		h.logger.Error("failed to load profile", "user_id", user.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if profile == nil {
		writeError(w, http.StatusNotFound, "profile not found")
		return
	}

	outcome := verifier.Verify(r.Context(), *profile)

	resp := TestResultResponse{Status: string(outcome.Status)}
	switch outcome.Status {
	case model.OutcomeDelivered:
		if profile.HasCrosspostError() {
			if err := h.profileStore.ClearCrosspostError(r.Context(), user.ID); err != nil {
				h.logger.Error("failed to clear crosspost error", "user_id", user.ID, "error", err)
			}
		}
	case model.OutcomeFailed:
		resp.Diagnostic = outcome.Failure.Diagnostic
		if err := h.profileStore.RecordCrosspostError(r.Context(), user.ID, outcome.Failure.Diagnostic); err != nil {
			h.logger.Error("failed to record crosspost error", "user_id", user.ID, "error", err)
		}
	case model.OutcomeSkipped:
		resp.Diagnostic = "credentials not configured"
	}

	writeJSON(w, http.StatusOK, resp)
}

// GetDraft returns the caller's saved draft, if any.
func (h *Handler) GetDraft(w http.ResponseWriter, r *http.Request) {
	user, ok := h.requireUser(w, r)
	if !ok {
		return
	}

	draft, err := h.draftStore.Get(r.Context(), user.ID)
	if err != nil {
		h.logger.Error("failed to load draft", "user_id", user.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if draft == nil {
		writeError(w, http.StatusNotFound, "no draft saved")
		return
	}

	writeJSON(w, http.StatusOK, toDraftResponse(*draft))
}

// PutDraft saves the caller's composer state, replacing any previous draft.
func (h *Handler) PutDraft(w http.ResponseWriter, r *http.Request) {
	user, ok := h.requireUser(w, r)
	if !ok {
		return
	}

	var req DraftRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	draft := model.Draft{
		UserID:     user.ID,
		Body:       req.Body,
		Face:       req.Face,
		Mastodon:   req.Mastodon,
		Bluesky:    req.Bluesky,
		StatusCafe: req.StatusCafe,
		UpdatedAt:  time.Now().UTC(),
	}

	if err := h.draftStore.Put(r.Context(), draft); err != nil {
		h.logger.Error("failed to save draft", "user_id", user.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusOK, toDraftResponse(draft))
}

// DeleteDraft discards the caller's saved draft.
func (h *Handler) DeleteDraft(w http.ResponseWriter, r *http.Request) {
	user, ok := h.requireUser(w, r)
	if !ok {
		return
	}

	if err := h.draftStore.Delete(r.Context(), user.ID); err != nil {
		h.logger.Error("failed to delete draft", "user_id", user.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Archive returns a user's public archive page. 404 covers both unknown
// users and users who have not opted in, so the URL leaks nothing.
func (h *Handler) Archive(w http.ResponseWriter, r *http.Request) {
	username := r.PathValue("username")

	archive, err := h.noteService.ArchiveFor(r.Context(), username)
	if err != nil {
		h.logger.Error("failed to load archive", "username", username, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if archive == nil {
		writeError(w, http.StatusNotFound, "archive not found")
		return
	}

	notes := make([]NoteResponse, 0, len(archive.Notes))
	for _, n := range archive.Notes {
		notes = append(notes, toNoteResponse(n))
	}

	writeJSON(w, http.StatusOK, ArchiveResponse{
		Username: archive.Username,
		Website:  archive.Website,
		BioHTML:  renderBio(archive.Bio),
		Notes:    notes,
	})
}

// Health returns a simple health status.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status: "ok",
		Time:   time.Now().UTC().Format(time.RFC3339),
	})
}

// notePathID parses the {id} path segment, writing a 400 on garbage.
func notePathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid note ID")
		return 0, false
	}

	return id, true
}
