package h2

import "time"

// DefaultPingInterval mirrors the teacher's keep-alive cadence.
const DefaultPingInterval = 10 * time.Second

// ConnOpts configures a client Conn.
type ConnOpts struct {
	// PingInterval is how often the client pings an idle connection.
	// Zero uses DefaultPingInterval.
	PingInterval time.Duration
	// PingTimeout bounds how long a PING may go unacknowledged before the
	// connection is torn down with GOAWAY(PROTOCOL_ERROR) (generalizes the
	// teacher's fixed "3 unacked pings" cutoff into a duration).
	PingTimeout time.Duration
	// DisablePingChecking turns off the keep-alive watchdog entirely.
	DisablePingChecking bool
	// InitialWindowSize is this endpoint's advertised per-stream receive
	// window (SETTINGS_INITIAL_WINDOW_SIZE).
	InitialWindowSize int32
	// MaxConcurrentStreams is this endpoint's advertised
	// SETTINGS_MAX_CONCURRENT_STREAMS.
	MaxConcurrentStreams uint32
	// OnDisconnect fires once, when the connection tears down.
	OnDisconnect func(*Conn)
}

func (o ConnOpts) withDefaults() ConnOpts {
	if o.PingInterval <= 0 {
		o.PingInterval = DefaultPingInterval
	}
	if o.PingTimeout <= 0 {
		o.PingTimeout = 3 * o.PingInterval
	}
	if o.InitialWindowSize <= 0 {
		o.InitialWindowSize = int32(DefaultWindowSize)
	}
	if o.MaxConcurrentStreams <= 0 {
		o.MaxConcurrentStreams = DefaultConcurrentStreams
	}
	return o
}

// ServerOpts configures a server-side Conn (h2/server.go).
type ServerOpts struct {
	PingInterval         time.Duration
	MaxIdleTime          time.Duration
	MaxRequestTime       time.Duration
	InitialWindowSize    int32
	MaxConcurrentStreams uint32
	MaxHeaderListSize    uint32
	// Handler processes one request, writing a Response for the driver to
	// frame back onto the stream.
	Handler func(*Exchange)
}

func (o ServerOpts) withDefaults() ServerOpts {
	if o.PingInterval <= 0 {
		o.PingInterval = DefaultPingInterval
	}
	if o.InitialWindowSize <= 0 {
		o.InitialWindowSize = int32(DefaultWindowSize)
	}
	if o.MaxConcurrentStreams <= 0 {
		o.MaxConcurrentStreams = DefaultConcurrentStreams
	}
	return o
}
