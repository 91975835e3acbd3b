package driven

import (
	"context"

	"github.com/evanrhall/driftnote/internal/domain/model"
)

// PostRequest carries the note text and per-note options for one delivery
// attempt. Text is the full note body; adapters truncate to their own limit.
type PostRequest struct {
	Text string
	Face string // status.cafe emoji override; other adapters ignore it.
}

// SocialNetwork is the uniform delivery contract implemented by each
// external-network adapter. Post never returns an error: every failure mode
// is collapsed into the outcome so one network's problems cannot leak past
// the adapter boundary. Adapters perform no network I/O when their toggle is
// off or required credentials are missing (OutcomeSkipped).
type SocialNetwork interface {
	Network() model.Network
	Post(ctx context.Context, profile model.Profile, req PostRequest) model.DeliveryOutcome
}

// CredentialVerifier is implemented by adapters that support a live
// credential check from the settings page. Delivered means the credentials
// are valid; Skipped means they are missing.
type CredentialVerifier interface {
	Verify(ctx context.Context, profile model.Profile) model.DeliveryOutcome
}
