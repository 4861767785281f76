package ws

import (
	"github.com/vaporio/httpstack/herr"
)

// MessageKind distinguishes Text from Binary data messages (spec §3
// "WebSocket message").
type MessageKind int

const (
	Text MessageKind = iota
	Binary
)

// Message is one fully-aggregated incoming WebSocket message: the
// concatenation of a data frame and its Continuation frames up to fin
// (spec §4.5). Message is the "Strict" case; Conn offers no streamed
// consumption of incoming messages, and ReadMessage always aggregates.
type Message struct {
	Kind MessageKind
	Data []byte
}

// aggregator assembles incoming frames into Messages, validating UTF-8
// incrementally for Text messages and rejecting fragmentation that splits
// a code point across frame boundaries only at the message's final byte
// (mid-message splits are expected and handled by utf8Validator's carried
// state, spec §8 scenario 6).
type aggregator struct {
	active bool
	kind   MessageKind
	buf    []byte
	utf8   utf8Validator
}

// Feed folds one data or continuation frame into the in-progress message,
// returning the completed Message once fin is set, or ok=false while the
// message is still being assembled.
func (a *aggregator) Feed(f *Frame) (Message, bool, error) {
	if f.Opcode != OpContinuation {
		if a.active {
			return Message{}, false, herr.New(herr.Protocol, "data frame while message in progress", f.Opcode.String(), nil)
		}
		a.active = true
		a.kind = MessageKind(f.Opcode - OpText)
		a.buf = a.buf[:0]
		a.utf8 = utf8Validator{}
	} else if !a.active {
		return Message{}, false, herr.New(herr.Protocol, "continuation without active message", "", nil)
	}

	if a.kind == Text {
		if err := a.utf8.Write(f.Payload); err != nil {
			return Message{}, false, err
		}
	}
	a.buf = append(a.buf, f.Payload...)

	if !f.Fin {
		return Message{}, false, nil
	}
	if a.kind == Text && !a.utf8.Done() {
		return Message{}, false, errInvalidUTF8
	}
	msg := Message{Kind: a.kind, Data: append([]byte(nil), a.buf...)}
	a.active = false
	a.buf = a.buf[:0]
	return msg, true, nil
}

// textBoundary finds the largest prefix length of b that ends on a
// complete UTF-8 code point (no partial multi-byte sequence at the end),
// so a streamed text message's outgoing frames never split a rune (spec
// §4.5 "Streamed text messages emit frames whose payload ends at a UTF-8
// boundary"). Surrogate pairs are encoded as single 4-byte UTF-8
// sequences by the standard library, so this also never splits one.
func textBoundary(b []byte) int {
	n := len(b)
	if n == 0 {
		return 0
	}
	// Walk back at most 3 bytes looking for the start of a multi-byte
	// sequence that hasn't been fully written yet.
	for i := 1; i <= 3 && i <= n; i++ {
		c := b[n-i]
		if c&0xC0 == 0x80 {
			continue // continuation byte, keep walking back
		}
		want := seqLen(c)
		if want == 0 {
			return n // invalid lead byte; let the caller's own validation catch it
		}
		if want > i {
			return n - i // incomplete sequence trails off the end
		}
		return n
	}
	return n
}

func seqLen(lead byte) int {
	switch {
	case lead&0x80 == 0:
		return 1
	case lead&0xE0 == 0xC0:
		return 2
	case lead&0xF0 == 0xE0:
		return 3
	case lead&0xF8 == 0xF0:
		return 4
	default:
		return 0
	}
}
