package ws

import "time"

// DefaultCloseTimeout bounds how long a Conn waits for the peer's Close
// echo before forcing the transport shut (spec §4.5, "default around 1
// second").
const DefaultCloseTimeout = time.Second

// KeepAliveMode selects whether the periodic keep-alive frame is a Ping
// or a Pong (spec §6 websocket.periodic-keep-alive-mode).
type KeepAliveMode int

const (
	KeepAliveOff KeepAliveMode = iota
	KeepAlivePing
	KeepAlivePong
)

// Config configures a Conn, mirroring the teacher's Settings/ConnOpts
// pattern (SPEC_FULL §1 ambient stack: no global mutable config).
type Config struct {
	// IsServer selects masking direction: true requires inbound frames to
	// be masked and sends unmasked; false is the client's inverse.
	IsServer bool

	// CloseTimeout overrides DefaultCloseTimeout.
	CloseTimeout time.Duration

	// KeepAliveMode and KeepAliveInterval drive automatic Ping/Pong
	// keep-alive (spec §4.5).
	KeepAliveMode     KeepAliveMode
	KeepAliveInterval time.Duration
	// KeepAliveData produces the payload for each automatic keep-alive
	// frame; nil sends an empty payload.
	KeepAliveData func() []byte

	// MaxMessageSize bounds a fully-aggregated message's size; 0 means
	// unbounded. Exceeding it closes with CloseMessageTooBig.
	MaxMessageSize int64
}

func (c Config) withDefaults() Config {
	if c.CloseTimeout <= 0 {
		c.CloseTimeout = DefaultCloseTimeout
	}
	if c.KeepAliveMode != KeepAliveOff && c.KeepAliveInterval <= 0 {
		c.KeepAliveInterval = 30 * time.Second
	}
	return c
}
