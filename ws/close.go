package ws

import (
	"encoding/binary"
	"unicode/utf8"

	"github.com/vaporio/httpstack/herr"
)

// Close codes (RFC 6455 §7.4.1) this implementation recognizes as valid
// on the wire (spec §4.5 "Code must be in a permitted set").
const (
	CloseNormal             uint16 = 1000
	CloseGoingAway          uint16 = 1001
	CloseProtocolError      uint16 = 1002
	CloseUnsupportedData    uint16 = 1003
	CloseInconsistentData   uint16 = 1007
	ClosePolicyViolation    uint16 = 1008
	CloseMessageTooBig      uint16 = 1009
	CloseExtensionRequired  uint16 = 1010
	CloseUnexpectedCondition uint16 = 1011
)

// ValidCloseCode reports whether code is in the permitted range: 1000-
// 1011 excluding the reserved 1004/1005/1006 (those are never sent on the
// wire, only used internally by implementations), or the private-use
// range 3000-4999.
func ValidCloseCode(code uint16) bool {
	switch {
	case code == 1004 || code == 1005 || code == 1006:
		return false
	case code >= 1000 && code <= 1011:
		return true
	case code >= 3000 && code <= 4999:
		return true
	default:
		return false
	}
}

// ParseClosePayload decodes a Close frame's payload (spec §4.5): either
// empty, or a 2-byte big-endian code followed by a UTF-8 reason.
func ParseClosePayload(b []byte) (code uint16, reason string, err error) {
	if len(b) == 0 {
		return 0, "", nil
	}
	if len(b) == 1 {
		return 0, "", herr.New(herr.Protocol, "close payload missing second code byte", "", nil)
	}
	code = binary.BigEndian.Uint16(b[:2])
	if !ValidCloseCode(code) {
		return 0, "", herr.New(herr.Protocol, "invalid close code", "", nil)
	}
	if !utf8.Valid(b[2:]) {
		return 0, "", herr.New(herr.Protocol, "close reason not valid UTF-8", "", nil)
	}
	return code, string(b[2:]), nil
}

// EncodeClosePayload renders a Close frame payload for code/reason.
func EncodeClosePayload(code uint16, reason string) []byte {
	if code == 0 {
		return nil
	}
	b := make([]byte, 2+len(reason))
	binary.BigEndian.PutUint16(b[:2], code)
	copy(b[2:], reason)
	return b
}

// CloseState is one side's half of the close handshake FSM (spec §4.5).
type CloseState int8

const (
	Active CloseState = iota
	LocalClosing
	PeerClosing
	FullyClosed
)

func (s CloseState) String() string {
	switch s {
	case Active:
		return "active"
	case LocalClosing:
		return "local-closing"
	case PeerClosing:
		return "peer-closing"
	case FullyClosed:
		return "fully-closed"
	default:
		return "unknown"
	}
}

// closeFSM drives the per-connection close handshake state.
type closeFSM struct {
	state CloseState
}

// LocalClose records that the application completed its outbound stream
// and a Close frame was sent.
func (f *closeFSM) LocalClose() {
	switch f.state {
	case Active:
		f.state = LocalClosing
	case PeerClosing:
		f.state = FullyClosed
	}
}

// PeerClose records that a Close frame was received from the peer.
func (f *closeFSM) PeerClose() {
	switch f.state {
	case Active:
		f.state = PeerClosing
	case LocalClosing:
		f.state = FullyClosed
	}
}

// Forced transitions either pending half-closed state to FullyClosed,
// e.g. on the close-timeout bounding how long to wait for the peer's
// Close echo (spec §4.5).
func (f *closeFSM) Forced() {
	if f.state == LocalClosing || f.state == PeerClosing {
		f.state = FullyClosed
	}
}

func (f *closeFSM) State() CloseState { return f.state }
func (f *closeFSM) Done() bool        { return f.state == FullyClosed }

// FramesIgnored reports whether inbound frames should be dropped: once
// the peer has sent Close, anything further it sends is ignored (spec
// §4.5 "Frames received after the peer's Close are ignored").
func (f *closeFSM) FramesIgnored() bool {
	return f.state == PeerClosing || f.state == FullyClosed
}
