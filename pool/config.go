package pool

import (
	"crypto/tls"
	"time"
)

// RetryPolicy decides whether a request that failed at the transport
// level (not a protocol-level response) may be retried (spec §4.6
// "idempotent requests... may be retried... non-idempotent requests
// fail fast").
type RetryPolicy struct {
	// MaxAttempts is the total number of attempts for an idempotent
	// request, the first one included; 0 uses the default of 2.
	MaxAttempts int
	// IsIdempotent overrides Method.IsIdempotent when non-nil, letting a
	// caller opt additional methods (e.g. PUT) into the retry path.
	IsIdempotent func(method string) bool
}

func (p RetryPolicy) withDefaults() RetryPolicy {
	if p.MaxAttempts == 0 {
		p.MaxAttempts = 2
	}
	return p
}

// Options configures a Registry, mirroring the teacher's ConfigureClient
// functional-option surface generalized into a struct (SPEC_FULL §1: no
// global mutable config).
type Options struct {
	// MaxConnections caps live connections per PoolID.
	MaxConnections int
	// PipeliningLimit bounds concurrent in-flight requests per H1
	// connection; ignored for H2 where SETTINGS_MAX_CONCURRENT_STREAMS
	// governs instead (spec §4.6).
	PipeliningLimit int

	// IdleTimeout tears down a connection with no in-flight requests for
	// this long; a pool with no connections for the same duration is
	// deregistered (spec §4.6).
	IdleTimeout time.Duration
	// KeepAliveSkew is subtracted from the server's advertised idle
	// timeout (if known) so the client closes strictly before the server
	// would, avoiding the "connection closed mid-request" race (spec §4.6
	// "keep-alive-timeout").
	KeepAliveSkew time.Duration

	// ConnectTimeout bounds dialing a new connection.
	ConnectTimeout time.Duration
	// CompletionTimeout bounds how long Shutdown waits for in-flight
	// responses to drain before forcing connections closed.
	CompletionTimeout time.Duration

	Retry RetryPolicy

	TLSConfig *tls.Config

	// SettingsFingerprint distinguishes pools that would otherwise share
	// a PoolID but negotiate HTTP/2 SETTINGS differently.
	SettingsFingerprint string
}

func (o Options) withDefaults() Options {
	if o.MaxConnections <= 0 {
		o.MaxConnections = 6
	}
	if o.PipeliningLimit <= 0 {
		o.PipeliningLimit = 1
	}
	if o.IdleTimeout <= 0 {
		o.IdleTimeout = 60 * time.Second
	}
	if o.KeepAliveSkew <= 0 {
		o.KeepAliveSkew = 2 * time.Second
	}
	if o.ConnectTimeout <= 0 {
		o.ConnectTimeout = 10 * time.Second
	}
	if o.CompletionTimeout <= 0 {
		o.CompletionTimeout = 5 * time.Second
	}
	o.Retry = o.Retry.withDefaults()
	return o
}
