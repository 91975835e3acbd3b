// Package application contains use-case orchestration services.
package application

import (
	"context"
	"log/slog"

	"github.com/evanrhall/driftnote/internal/domain/model"
	"github.com/evanrhall/driftnote/internal/domain/port/driven"
)

// CrosspostService fans one note out to every selected network. Networks are
// attempted in a fixed order, each failure is recorded on the profile, and no
// failure ever propagates to the caller.
type CrosspostService struct {
	networks       []driven.SocialNetwork
	crosspostStore driven.CrosspostStore
	profileStore   driven.ProfileStore
}

// NewCrosspostService creates a CrosspostService. Networks are attempted in
// the order given.
func NewCrosspostService(
	networks []driven.SocialNetwork,
	crosspostStore driven.CrosspostStore,
	profileStore driven.ProfileStore,
) *CrosspostService {
	return &CrosspostService{
		networks:       networks,
		crosspostStore: crosspostStore,
		profileStore:   profileStore,
	}
}

// Dispatch delivers the note text to each network whose per-note selection
// and profile toggle are both set. Successful deliveries are recorded
// against the note; the profile's advisory error field is updated from the
// failures, or cleared when a fully successful run finds a stale one.
func (s *CrosspostService) Dispatch(
	ctx context.Context,
	profile model.Profile,
	text string,
	sel model.Selections,
	noteID int64,
) {
	anyFailed := false

	for _, network := range s.networks {
		n := network.Network()
		if !sel.Wants(n) || !profile.EnabledFor(n) {
			continue
		}

		outcome := network.Post(ctx, profile, driven.PostRequest{Text: text, Face: sel.Face})

		switch outcome.Status {
		case model.OutcomeDelivered:
			s.recordSuccess(ctx, noteID, n, outcome)
		case model.OutcomeFailed:
			anyFailed = true
			slog.Warn("crosspost failed",
				"note_id", noteID,
				"network", n,
				"kind", outcome.Failure.Kind,
				"http_status", outcome.Failure.HTTPStatus,
			)
			if err := s.profileStore.RecordCrosspostError(ctx, profile.UserID, outcome.Failure.Diagnostic); err != nil {
				slog.Error("record crosspost error failed", "user_id", profile.UserID, "error", err)
			}
		case model.OutcomeSkipped:
			// Preconditions unmet; not a failure.
		}
	}

	// A clean run clears a stale advisory error. The check is against the
	// profile snapshot taken before dispatch, so an error recorded by this
	// run is never wiped by its own success path.
	if !anyFailed && profile.HasCrosspostError() {
		if err := s.profileStore.ClearCrosspostError(ctx, profile.UserID); err != nil {
			slog.Error("clear crosspost error failed", "user_id", profile.UserID, "error", err)
		}
	}
}

// recordSuccess stores the remote reference behind the (note, network)
// uniqueness guard. Only the creator of the row writes the identifiers.
func (s *CrosspostService) recordSuccess(ctx context.Context, noteID int64, n model.Network, outcome model.DeliveryOutcome) {
	if noteID == 0 {
		return
	}

	record, created, err := s.crosspostStore.GetOrCreate(ctx, noteID, n)
	if err != nil {
		slog.Error("get or create crosspost record failed", "note_id", noteID, "network", n, "error", err)
		return
	}
	if !created {
		slog.Info("crosspost already recorded", "note_id", noteID, "network", n)
		return
	}

	if err := s.crosspostStore.MarkSuccess(ctx, record.ID, outcome.RemoteID, outcome.RemoteURL); err != nil {
		slog.Error("mark crosspost success failed", "note_id", noteID, "network", n, "error", err)
	}
}
