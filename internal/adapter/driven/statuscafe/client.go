// Package statuscafe delivers notes to status.cafe by driving its HTML
// forms. There is no API; the adapter logs in, scrapes CSRF tokens, and
// submits the post form like a browser would.
package statuscafe

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http/cookiejar"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"

	"github.com/evanrhall/driftnote/internal/domain/model"
	"github.com/evanrhall/driftnote/internal/domain/port/driven"
	"github.com/evanrhall/driftnote/internal/textutil"
)

// Compile-time interface satisfaction check.
var _ driven.SocialNetwork = (*Client)(nil)

const (
	// StatusCharLimit is status.cafe's maximum status length.
	StatusCharLimit = 140
	// FaceRuneLimit bounds the emoji face field.
	FaceRuneLimit = 8
	// defaultFace is used when neither the note nor the profile set one.
	defaultFace = "🙂"
)

// Client posts statuses by form submission. Each Post runs on a fresh
// cookie jar; sharing one would bleed session cookies between users.
type Client struct {
	baseURL string
	timeout time.Duration
	logger  *slog.Logger
}

// NewClient creates a status.cafe client. An empty baseURL targets the
// public site.
func NewClient(baseURL string, timeout time.Duration, logger *slog.Logger) *Client {
	if baseURL == "" {
		baseURL = "https://status.cafe"
	}
	if timeout <= 0 {
		timeout = 12 * time.Second
	}

	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		timeout: timeout,
		logger:  logger.With("adapter", "statuscafe"),
	}
}

// Network identifies this adapter.
func (c *Client) Network() model.Network {
	return model.NetworkStatusCafe
}

// Post logs in and submits the status form. The flow is four sequential
// requests; the first failure aborts the rest.
func (c *Client) Post(ctx context.Context, profile model.Profile, req driven.PostRequest) model.DeliveryOutcome {
	if !profile.CrosspostStatusCafe || profile.StatusCafeUsername == "" || profile.StatusCafePassword == "" {
		return model.Skipped()
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		c.logger.Error("cookie jar init failed", "error", err)
		return model.Failed(model.FailureTransport, 0, "Status.cafe transport")
	}
	client := resty.New().
		SetBaseURL(c.baseURL).
		SetTimeout(c.timeout).
		SetCookieJar(jar)

	// Step 1: fetch the login page for its CSRF token.
	resp, err := client.R().SetContext(ctx).Get("/login")
	if err != nil {
		c.logger.Warn("login page transport error", "error", err)
		return model.Failed(model.FailureTransport, 0, "Status.cafe transport")
	}
	if resp.IsError() {
		return model.Failed(model.FailureProtocol, resp.StatusCode(),
			fmt.Sprintf("Status.cafe login_get %d", resp.StatusCode()))
	}

	token := csrfToken(resp.Body(), "form")
	if token == "" {
		return model.Failed(model.FailureProtocol, resp.StatusCode(), "Status.cafe token_missing")
	}

	// Step 2: submit credentials.
	resp, err = client.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"name":               profile.StatusCafeUsername,
			"password":           profile.StatusCafePassword,
			"gorilla.csrf.Token": token,
		}).
		Post("/check-login")
	if err != nil {
		c.logger.Warn("login transport error", "error", err)
		return model.Failed(model.FailureTransport, 0, "Status.cafe transport")
	}

	// Step 3: a rejected login bounces /settings back to the login page.
	resp, err = client.R().SetContext(ctx).Get("/settings")
	if err != nil {
		c.logger.Warn("settings transport error", "error", err)
		return model.Failed(model.FailureTransport, 0, "Status.cafe transport")
	}
	if finalPath(resp) == "/login" {
		return model.Failed(model.FailureAuth, resp.StatusCode(), "Status.cafe auth_failed")
	}

	// Step 4: scrape the post form's token from the home page and submit.
	resp, err = client.R().SetContext(ctx).Get("/")
	if err != nil {
		c.logger.Warn("home page transport error", "error", err)
		return model.Failed(model.FailureTransport, 0, "Status.cafe transport")
	}
	if resp.IsError() {
		return model.Failed(model.FailureProtocol, resp.StatusCode(),
			fmt.Sprintf("Status.cafe home_get %d", resp.StatusCode()))
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(resp.Body()))
	if err != nil {
		return model.Failed(model.FailureProtocol, resp.StatusCode(), "Status.cafe post_form_missing")
	}
	form := doc.Find(`form[action="/add"]`)
	if form.Length() == 0 {
		return model.Failed(model.FailureProtocol, resp.StatusCode(), "Status.cafe post_form_missing")
	}
	postToken, _ := form.Find(`input[name="gorilla.csrf.Token"]`).Attr("value")
	if postToken == "" {
		return model.Failed(model.FailureProtocol, resp.StatusCode(), "Status.cafe post_token_missing")
	}

	resp, err = client.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"face":               face(req.Face, profile.StatusCafeFace),
			"content":            textutil.Truncate(req.Text, StatusCharLimit),
			"gorilla.csrf.Token": postToken,
		}).
		Post("/add")
	if err != nil {
		c.logger.Warn("post transport error", "error", err)
		return model.Failed(model.FailureTransport, 0, "Status.cafe transport")
	}
	if resp.StatusCode() != 200 && resp.StatusCode() != 302 {
		return model.Failed(model.FailureProtocol, resp.StatusCode(),
			fmt.Sprintf("Status.cafe post_fail %d", resp.StatusCode()))
	}

	// status.cafe exposes no id or permalink for a status.
	return model.Delivered("", "")
}

// csrfToken extracts the gorilla CSRF hidden input scoped to the given
// selector.
func csrfToken(body []byte, scope string) string {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return ""
	}

	token, _ := doc.Find(scope).Find(`input[name="gorilla.csrf.Token"]`).Attr("value")
	return token
}

// finalPath returns the URL path after redirects.
func finalPath(resp *resty.Response) string {
	raw := resp.RawResponse
	if raw == nil || raw.Request == nil || raw.Request.URL == nil {
		return ""
	}
	return raw.Request.URL.Path
}

// face picks the per-note override, then the profile default, then 🙂,
// clamped to the form's length limit.
func face(override, profileDefault string) string {
	f := override
	if f == "" {
		f = profileDefault
	}
	if f == "" {
		f = defaultFace
	}

	runes := []rune(f)
	if len(runes) > FaceRuneLimit {
		f = string(runes[:FaceRuneLimit])
	}

	return f
}
