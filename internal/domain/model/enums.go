package model

// Network identifies an external social network targeted by cross-posting.
type Network string

const (
	NetworkMastodon   Network = "mastodon"
	NetworkBluesky    Network = "bluesky"
	NetworkStatusCafe Network = "status_cafe"
)

// OutcomeStatus is the three-way result tag of one adapter delivery attempt.
type OutcomeStatus string

const (
	// OutcomeDelivered means the remote network accepted the post.
	OutcomeDelivered OutcomeStatus = "delivered"
	// OutcomeSkipped means preconditions were unmet (toggle off or missing
	// credentials) and no network I/O was attempted.
	OutcomeSkipped OutcomeStatus = "skipped"
	// OutcomeFailed means a delivery was attempted and errored.
	OutcomeFailed OutcomeStatus = "failed"
)

// FailureKind classifies an attempted-and-failed delivery. Kinds are chosen
// deliberately at each failure site, never inferred from error text.
type FailureKind string

const (
	// FailureTransport covers connection-level errors: dial, TLS, timeout.
	FailureTransport FailureKind = "transport"
	// FailureProtocol covers unexpected response shapes, missing form
	// tokens, and non-2xx/3xx statuses.
	FailureProtocol FailureKind = "protocol"
	// FailureAuth covers rejected logins and rejected sessions.
	FailureAuth FailureKind = "auth"
)
