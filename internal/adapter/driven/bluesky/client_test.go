package bluesky

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evanrhall/driftnote/internal/domain/model"
	"github.com/evanrhall/driftnote/internal/domain/port/driven"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testProfile() model.Profile {
	return model.Profile{
		CrosspostBluesky:   true,
		BlueskyHandle:      "maren.bsky.social",
		BlueskyAppPassword: "app-pass",
	}
}

// fakePDS answers createSession and createRecord and captures the record.
func fakePDS(t *testing.T) (*httptest.Server, *createRecordRequest) {
	t.Helper()
	captured := &createRecordRequest{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/xrpc/com.atproto.server.createSession":
			var body map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			if body["password"] != "app-pass" {
				http.Error(w, `{"error":"AuthenticationRequired"}`, 401)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"accessJwt":"jwt-123","did":"did:plc:abc","handle":"maren.bsky.social"}`))
		case "/xrpc/com.atproto.repo.createRecord":
			require.Equal(t, "Bearer jwt-123", r.Header.Get("Authorization"))
			require.NoError(t, json.NewDecoder(r.Body).Decode(captured))
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"uri":"at://did:plc:abc/app.bsky.feed.post/3abc123","cid":"bafyxyz"}`))
		default:
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
	}))

	return srv, captured
}

func TestClient_PostDelivered(t *testing.T) {
	srv, captured := fakePDS(t)
	defer srv.Close()

	c := NewClient(srv.URL, time.Second, testLogger())
	outcome := c.Post(context.Background(), testProfile(), driven.PostRequest{
		Text: "hello from driftnote https://driftnote.example",
	})

	assert.Equal(t, model.OutcomeDelivered, outcome.Status)
	assert.Equal(t, "at://did:plc:abc/app.bsky.feed.post/3abc123", outcome.RemoteID)
	assert.Equal(t, "https://bsky.app/profile/maren.bsky.social/post/3abc123", outcome.RemoteURL)

	assert.Equal(t, "did:plc:abc", captured.Repo)
	assert.Equal(t, "app.bsky.feed.post", captured.Collection)
	assert.Equal(t, "app.bsky.feed.post", captured.Record.Type)
	assert.Equal(t, "hello from driftnote https://driftnote.example", captured.Record.Text)
	require.Len(t, captured.Record.Facets, 1)
	assert.Equal(t, "https://driftnote.example", captured.Record.Facets[0].Features[0].URI)
}

func TestClient_PostTruncatesTo300(t *testing.T) {
	srv, captured := fakePDS(t)
	defer srv.Close()

	c := NewClient(srv.URL, time.Second, testLogger())
	outcome := c.Post(context.Background(), testProfile(), driven.PostRequest{
		Text: strings.Repeat("b", 310),
	})

	assert.Equal(t, model.OutcomeDelivered, outcome.Status)
	assert.Equal(t, strings.Repeat("b", 299)+"…", captured.Record.Text)
}

func TestClient_PostSkippedWhenUnconfigured(t *testing.T) {
	c := NewClient("https://bsky.invalid", time.Second, testLogger())

	for _, profile := range []model.Profile{
		{CrosspostBluesky: false, BlueskyHandle: "h", BlueskyAppPassword: "p"},
		{CrosspostBluesky: true, BlueskyHandle: "", BlueskyAppPassword: "p"},
		{CrosspostBluesky: true, BlueskyHandle: "h", BlueskyAppPassword: ""},
	} {
		outcome := c.Post(context.Background(), profile, driven.PostRequest{Text: "x"})
		assert.Equal(t, model.OutcomeSkipped, outcome.Status)
	}
}

func TestClient_PostRejectedLogin(t *testing.T) {
	srv, _ := fakePDS(t)
	defer srv.Close()

	profile := testProfile()
	profile.BlueskyAppPassword = "wrong"

	c := NewClient(srv.URL, time.Second, testLogger())
	outcome := c.Post(context.Background(), profile, driven.PostRequest{Text: "x"})

	assert.Equal(t, model.OutcomeFailed, outcome.Status)
	require.NotNil(t, outcome.Failure)
	assert.Equal(t, model.FailureAuth, outcome.Failure.Kind)
	assert.Equal(t, 401, outcome.Failure.HTTPStatus)
	assert.Equal(t, "Bluesky post failed: auth", outcome.Failure.Diagnostic)
}

func TestClient_PostCreateRecordError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/xrpc/com.atproto.server.createSession" {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"accessJwt":"jwt","did":"did:plc:abc","handle":"maren.bsky.social"}`))
			return
		}
		http.Error(w, `{"error":"InternalServerError"}`, 500)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second, testLogger())
	outcome := c.Post(context.Background(), testProfile(), driven.PostRequest{Text: "x"})

	assert.Equal(t, model.OutcomeFailed, outcome.Status)
	require.NotNil(t, outcome.Failure)
	assert.Equal(t, model.FailureProtocol, outcome.Failure.Kind)
	assert.Equal(t, "Bluesky post failed: status 500", outcome.Failure.Diagnostic)
}

func TestClient_PostTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	c := NewClient(srv.URL, time.Second, testLogger())
	outcome := c.Post(context.Background(), testProfile(), driven.PostRequest{Text: "x"})

	assert.Equal(t, model.OutcomeFailed, outcome.Status)
	require.NotNil(t, outcome.Failure)
	assert.Equal(t, model.FailureTransport, outcome.Failure.Kind)
	assert.Equal(t, "Bluesky post failed: transport", outcome.Failure.Diagnostic)
}

func TestClient_Verify(t *testing.T) {
	srv, _ := fakePDS(t)
	defer srv.Close()

	c := NewClient(srv.URL, time.Second, testLogger())

	outcome := c.Verify(context.Background(), testProfile())
	assert.Equal(t, model.OutcomeDelivered, outcome.Status)

	profile := testProfile()
	profile.BlueskyAppPassword = "wrong"
	outcome = c.Verify(context.Background(), profile)
	assert.Equal(t, model.OutcomeFailed, outcome.Status)
	require.NotNil(t, outcome.Failure)
	assert.Equal(t, "Bluesky test failed: auth", outcome.Failure.Diagnostic)

	outcome = c.Verify(context.Background(), model.Profile{})
	assert.Equal(t, model.OutcomeSkipped, outcome.Status)
}

func TestWebURL(t *testing.T) {
	assert.Equal(t,
		"https://bsky.app/profile/maren.bsky.social/post/3abc123",
		webURL("maren.bsky.social", "at://did:plc:abc/app.bsky.feed.post/3abc123"),
	)
	assert.Empty(t, webURL("h", "no-slash"))
	assert.Empty(t, webURL("h", "trailing/"))
}
