// Package mastodon delivers notes to a Mastodon instance over its REST API.
package mastodon

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/evanrhall/driftnote/internal/domain/model"
	"github.com/evanrhall/driftnote/internal/domain/port/driven"
	"github.com/evanrhall/driftnote/internal/textutil"
)

// Compile-time interface satisfaction checks.
var (
	_ driven.SocialNetwork      = (*Client)(nil)
	_ driven.CredentialVerifier = (*Client)(nil)
)

// Client posts statuses on behalf of a profile. The instance URL and access
// token come from the profile on every call, so one Client serves all users.
type Client struct {
	client *resty.Client
	logger *slog.Logger
}

// NewClient creates a Mastodon client with the given per-request timeout.
func NewClient(timeout time.Duration, logger *slog.Logger) *Client {
	if timeout <= 0 {
		timeout = 12 * time.Second
	}

	return &Client{
		client: resty.New().SetTimeout(timeout),
		logger: logger.With("adapter", "mastodon"),
	}
}

// Network identifies this adapter.
func (c *Client) Network() model.Network {
	return model.NetworkMastodon
}

type statusResponse struct {
	ID      string `json:"id"`
	URL     string `json:"url"`
	Account struct {
		Acct string `json:"acct"`
	} `json:"account"`
}

// Post publishes the note text as a new status. Skipped when the toggle is
// off or the instance/token is missing; no partial configuration ever
// reaches the network.
func (c *Client) Post(ctx context.Context, profile model.Profile, req driven.PostRequest) model.DeliveryOutcome {
	if !profile.CrosspostMastodon || profile.MastodonInstance == "" || profile.MastodonToken == "" {
		return model.Skipped()
	}

	instance := strings.TrimRight(profile.MastodonInstance, "/")
	text := textutil.Truncate(req.Text, profile.MastodonLimit())

	var status statusResponse
	resp, err := c.client.R().
		SetContext(ctx).
		SetAuthToken(profile.MastodonToken).
		SetFormData(map[string]string{"status": text}).
		SetResult(&status).
		Post(instance + "/api/v1/statuses")
	if err != nil {
		c.logger.Warn("status post transport error", "instance", instance, "error", err)
		return model.Failed(model.FailureTransport, 0, "Mastodon post failed: transport")
	}

	if resp.StatusCode() == 401 || resp.StatusCode() == 403 {
		return model.Failed(model.FailureAuth, resp.StatusCode(), "Mastodon post failed: auth")
	}
	if resp.IsError() {
		return model.Failed(model.FailureProtocol, resp.StatusCode(),
			fmt.Sprintf("Mastodon post failed: status %d", resp.StatusCode()))
	}

	url := status.URL
	if url == "" && status.ID != "" && status.Account.Acct != "" {
		url = fmt.Sprintf("%s/@%s/%s", instance, status.Account.Acct, status.ID)
	}

	return model.Delivered(status.ID, url)
}

// Verify checks the stored credentials against the instance without posting.
// Backs the settings page's live test.
func (c *Client) Verify(ctx context.Context, profile model.Profile) model.DeliveryOutcome {
	if profile.MastodonInstance == "" || profile.MastodonToken == "" {
		return model.Skipped()
	}

	instance := strings.TrimRight(profile.MastodonInstance, "/")

	resp, err := c.client.R().
		SetContext(ctx).
		SetAuthToken(profile.MastodonToken).
		Get(instance + "/api/v1/accounts/verify_credentials")
	if err != nil {
		c.logger.Warn("verify transport error", "instance", instance, "error", err)
		return model.Failed(model.FailureTransport, 0, "Mastodon test failed: transport")
	}

	if resp.StatusCode() == 401 || resp.StatusCode() == 403 {
		return model.Failed(model.FailureAuth, resp.StatusCode(), "Mastodon test failed: auth")
	}
	if resp.IsError() {
		return model.Failed(model.FailureProtocol, resp.StatusCode(),
			fmt.Sprintf("Mastodon test failed: status %d", resp.StatusCode()))
	}

	return model.Delivered("", "")
}
