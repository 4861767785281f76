package h2

import "github.com/vaporio/httpstack/herr"

// errMissingBytes is returned by a frame's Deserialize when the payload is
// shorter than the frame type's fixed fields require (spec §4.3 framing
// errors are FRAME_SIZE_ERROR at the connection level).
var errMissingBytes = herr.New(herr.Framing, "frame payload too short", "", nil)

// NewConnError builds a connection-level error carrying an HTTP/2 error
// code, the kind GOAWAY should report it under.
func NewConnError(code ErrorCode, msg string) *herr.Error {
	return herr.New(herr.Protocol, msg, code.String(), nil)
}

// NewStreamError builds a stream-level error; the caller resets the stream
// with RST_STREAM(code) rather than tearing down the connection.
func NewStreamError(code ErrorCode, msg string) *herr.Error {
	return herr.New(herr.Protocol, msg, code.String(), nil)
}
