// Package herr defines the typed error model shared by h1, h2, ws and pool.
//
// The source mixed exceptions, future failures and protocol-level status
// codes. This collapses them into one error sum: a Kind classifying the
// failure for propagation-policy decisions (does this tear down a stream,
// a connection, or just this one request?), plus a wrapped cause and an
// optional user-facing summary/detail pair.
package herr

import "fmt"

// Kind classifies an error for propagation-policy purposes.
type Kind int

const (
	// Framing is a malformed HTTP/1 message (bad start line, illegal
	// chunked encoding, oversized field, ...). Fatal to the connection.
	Framing Kind = iota
	// Protocol is an HTTP/2 or WebSocket state-machine violation.
	Protocol
	// FlowControl is an HTTP/2 window violation.
	FlowControl
	// Hpack is an HPACK decoding failure.
	Hpack
	// Transport is a connection-level I/O failure (closed, timed out).
	Transport
	// Application is a handler/consumer error (maps to 500 on servers).
	Application
	// Configuration is a usage error caught before entering the protocol
	// layers (bad URI scheme, non-absolute request URI, ...).
	Configuration
)

func (k Kind) String() string {
	switch k {
	case Framing:
		return "framing"
	case Protocol:
		return "protocol"
	case FlowControl:
		return "flow_control"
	case Hpack:
		return "hpack"
	case Transport:
		return "transport"
	case Application:
		return "application"
	case Configuration:
		return "configuration"
	default:
		return "unknown"
	}
}

// Info is the user-visible {summary, detail} pair rendered into a response
// body when verbose error messages are enabled (spec §7).
type Info struct {
	Summary string
	Detail  string
}

// Error is the shared error type across the stack.
type Error struct {
	Kind Kind
	Info Info
	Err  error
}

func New(kind Kind, summary, detail string, cause error) *Error {
	return &Error{Kind: kind, Info: Info{Summary: summary, Detail: detail}, Err: cause}
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %s", e.Kind, e.Info.Summary, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Info.Summary)
}

func (e *Error) Unwrap() error { return e.Err }

// Is lets errors.Is(err, herr.KindOnly(herr.Framing)) work by comparing
// Kind when target is itself a bare Kind wrapped in an *Error with no cause.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Err == nil && t.Kind == e.Kind
}

// Sentinel, kind-only errors usable with errors.Is(err, herr.KindOnly(herr.Protocol)).
func KindOnly(k Kind) *Error { return &Error{Kind: k} }

func Framingf(format string, args ...interface{}) *Error {
	return New(Framing, fmt.Sprintf(format, args...), "", nil)
}

func Protocolf(format string, args ...interface{}) *Error {
	return New(Protocol, fmt.Sprintf(format, args...), "", nil)
}

func Transportf(format string, args ...interface{}) *Error {
	return New(Transport, fmt.Sprintf(format, args...), "", nil)
}

func Configurationf(format string, args ...interface{}) *Error {
	return New(Configuration, fmt.Sprintf(format, args...), "", nil)
}
