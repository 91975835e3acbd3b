// Package bluesky delivers notes to Bluesky via the AT Protocol XRPC API.
package bluesky

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

// Client posts to Bluesky on behalf of a profile. Every Post performs its
// own createSession call; app-password sessions are cheap and keeping them
// out of shared state avoids mixing users' tokens.
type Client struct {
	client *resty.Client
	logger *slog.Logger
}

// NewClient creates a Bluesky client against the given PDS.
// An empty pdsURL falls back to the public https://bsky.social entrypoint.
func NewClient(pdsURL string, timeout time.Duration, logger *slog.Logger) *Client {
	if pdsURL == "" {
		pdsURL = "https://bsky.social"
	}
	if timeout <= 0 {
		timeout = 12 * time.Second
	}

	return &Client{
		client: resty.New().
			SetBaseURL(strings.TrimRight(pdsURL, "/")).
			SetTimeout(timeout),
		logger: logger.With("adapter", "bluesky"),
	}
}

// Network identifies this adapter.
func (c *Client) Network() model.Network {
	return model.NetworkBluesky
}

type session struct {
	AccessJWT string `json:"accessJwt"`
	DID       string `json:"did"`
	Handle    string `json:"handle"`
}

type postRecord struct {
	Type      string  `json:"$type"`
	Text      string  `json:"text"`
	Facets    []Facet `json:"facets,omitempty"`
	CreatedAt string  `json:"createdAt"`
}

type createRecordRequest struct {
	Repo       string     `json:"repo"`
	Collection string     `json:"collection"`
	Record     postRecord `json:"record"`
}

type createRecordResponse struct {
	URI string `json:"uri"`
	CID string `json:"cid"`
}

// Post truncates the text to the 300-character post limit, annotates URLs
// with link facets, and publishes an app.bsky.feed.post record.
func (c *Client) Post(ctx context.Context, profile model.Profile, req driven.PostRequest) model.DeliveryOutcome {
	if !profile.CrosspostBluesky || profile.BlueskyHandle == "" || profile.BlueskyAppPassword == "" {
		return model.Skipped()
	}

	sess, outcome := c.login(ctx, profile, "Bluesky post failed")
	if sess == nil {
		return outcome
	}

	text := textutil.Truncate(req.Text, PostCharLimit)
	facets, _ := BuildFacets(text)

	var created createRecordResponse
	resp, err := c.client.R().
		SetContext(ctx).
		SetAuthToken(sess.AccessJWT).
		SetBody(createRecordRequest{
			Repo:       sess.DID,
			Collection: "app.bsky.feed.post",
			Record: postRecord{
				Type:      "app.bsky.feed.post",
				Text:      text,
				Facets:    facets,
				CreatedAt: time.Now().UTC().Format(time.RFC3339),
			},
		}).
		SetResult(&created).
		Post("/xrpc/com.atproto.repo.createRecord")
	if err != nil {
		c.logger.Warn("createRecord transport error", "error", err)
		return model.Failed(model.FailureTransport, 0, "Bluesky post failed: transport")
	}
	if resp.IsError() {
		return model.Failed(model.FailureProtocol, resp.StatusCode(),
			fmt.Sprintf("Bluesky post failed: status %d", resp.StatusCode()))
	}

	return model.Delivered(created.URI, webURL(sess.Handle, created.URI))
}

// Verify performs a login and discards the session. Backs the settings
// page's live test.
func (c *Client) Verify(ctx context.Context, profile model.Profile) model.DeliveryOutcome {
	if profile.BlueskyHandle == "" || profile.BlueskyAppPassword == "" {
		return model.Skipped()
	}

	sess, outcome := c.login(ctx, profile, "Bluesky test failed")
	if sess == nil {
		return outcome
	}

	return model.Delivered("", "")
}

// login exchanges handle + app password for a session. On failure the
// returned session is nil and the outcome carries the failure.
func (c *Client) login(ctx context.Context, profile model.Profile, diagPrefix string) (*session, model.DeliveryOutcome) {
	var sess session
	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(map[string]string{
			"identifier": profile.BlueskyHandle,
			"password":   profile.BlueskyAppPassword,
		}).
		SetResult(&sess).
		Post("/xrpc/com.atproto.server.createSession")
	if err != nil {
		c.logger.Warn("createSession transport error", "error", err)
		return nil, model.Failed(model.FailureTransport, 0, diagPrefix+": transport")
	}

	if resp.StatusCode() == 400 || resp.StatusCode() == 401 {
		return nil, model.Failed(model.FailureAuth, resp.StatusCode(), diagPrefix+": auth")
	}
	if resp.IsError() {
		return nil, model.Failed(model.FailureProtocol, resp.StatusCode(),
			fmt.Sprintf("%s: status %d", diagPrefix, resp.StatusCode()))
	}

	return &sess, model.DeliveryOutcome{}
}

// webURL derives the public bsky.app permalink from the record's at:// URI.
func webURL(handle, atURI string) string {
	idx := strings.LastIndex(atURI, "/")
	if idx < 0 || idx == len(atURI)-1 {
		return ""
	}
	rkey := atURI[idx+1:]

	return fmt.Sprintf("https://bsky.app/profile/%s/post/%s", handle, rkey)
}
