package ws

import (
	"encoding/binary"
	"io"
	"math"

	"github.com/valyala/bytebufferpool"
	"github.com/valyala/fastrand"

	"github.com/vaporio/httpstack/herr"
)

// maxControlPayload bounds control-frame payloads per RFC 6455 §5.5: they
// MUST NOT be fragmented and MUST be ≤125 bytes.
const maxControlPayload = 125

// Frame is one wire-level WebSocket frame (spec §3 "WebSocket frame").
// Payload is borrowed from a pooled buffer; callers that need it to
// outlive the next ReadFrame call must copy it.
type Frame struct {
	Fin     bool
	Opcode  Opcode
	Masked  bool
	MaskKey [4]byte
	Payload []byte

	buf *bytebufferpool.ByteBuffer
}

// Release returns the frame's backing buffer to the pool. Safe to call on
// a Frame with no pooled buffer (e.g. one built for writing).
func (f *Frame) Release() {
	if f.buf != nil {
		bytebufferpool.Put(f.buf)
		f.buf = nil
	}
}

// maskUnmask applies the RFC 6455 §5.3 XOR mask in place; the operation
// is its own inverse, so the same function masks and unmasks.
func maskUnmask(key [4]byte, b []byte) {
	for i := range b {
		b[i] ^= key[i%4]
	}
}

// ReadFrame parses one frame header and payload from r (spec §4.5
// incoming framing). requireMasked enforces the server-side rule that
// every client frame MUST be masked; the client side passes false and
// additionally rejects a masked frame from the server.
func ReadFrame(r io.Reader, requireMasked bool) (*Frame, error) {
	var hdr [2]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, err
	}

	fin := hdr[0]&0x80 != 0
	rsv := hdr[0] & 0x70
	opcode := Opcode(hdr[0] & 0x0F)
	if rsv != 0 {
		return nil, herr.New(herr.Protocol, "reserved bits set", "", nil)
	}
	masked := hdr[1]&0x80 != 0
	if requireMasked && !masked {
		return nil, herr.New(herr.Protocol, "client frame not masked", "", nil)
	}
	if !requireMasked && masked {
		return nil, herr.New(herr.Protocol, "server frame masked", "", nil)
	}

	length := uint64(hdr[1] & 0x7F)
	switch length {
	case 126:
		var ext [2]byte
		if _, err := io.ReadFull(r, ext[:]); err != nil {
			return nil, err
		}
		length = uint64(binary.BigEndian.Uint16(ext[:]))
	case 127:
		var ext [8]byte
		if _, err := io.ReadFull(r, ext[:]); err != nil {
			return nil, err
		}
		length = binary.BigEndian.Uint64(ext[:])
		if length>>63 != 0 {
			return nil, herr.New(herr.Protocol, "high bit of 64-bit length set", "", nil)
		}
		if length <= math.MaxUint16 {
			return nil, herr.New(herr.Protocol, "non-minimal length encoding", "", nil)
		}
	}

	if opcode.IsControl() {
		if !fin {
			return nil, herr.New(herr.Protocol, "fragmented control frame", opcode.String(), nil)
		}
		if length > maxControlPayload {
			return nil, herr.New(herr.Protocol, "control frame too large", opcode.String(), nil)
		}
	}

	f := &Frame{Fin: fin, Opcode: opcode, Masked: masked}
	if masked {
		var key [4]byte
		if _, err := io.ReadFull(r, key[:]); err != nil {
			return nil, err
		}
		f.MaskKey = key
	}

	f.buf = bytebufferpool.Get()
	if length > 0 {
		f.buf.Set(make([]byte, length))
		if _, err := io.ReadFull(r, f.buf.B); err != nil {
			f.Release()
			return nil, err
		}
		if masked {
			maskUnmask(f.MaskKey, f.buf.B)
		}
	}
	f.Payload = f.buf.B
	return f, nil
}

// WriteFrame renders one frame to w. maskOutgoing is true on the client
// side (spec §4.5 "Client-side outgoing frames are masked with a fresh
// 32-bit random mask per frame"); the mask key is drawn from fastrand,
// the configurable random source this module hard-wires to
// valyala/fastrand rather than exposing as an interface, since the pack
// carries no other RNG collaborator.
func WriteFrame(w io.Writer, opcode Opcode, fin bool, payload []byte, maskOutgoing bool) error {
	var hdr [14]byte
	n := 2
	if fin {
		hdr[0] = 0x80
	}
	hdr[0] |= byte(opcode)

	length := len(payload)
	switch {
	case length <= 125:
		hdr[1] = byte(length)
	case length <= math.MaxUint16:
		hdr[1] = 126
		binary.BigEndian.PutUint16(hdr[2:4], uint16(length))
		n = 4
	default:
		hdr[1] = 127
		binary.BigEndian.PutUint64(hdr[2:10], uint64(length))
		n = 10
	}

	var key [4]byte
	if maskOutgoing {
		hdr[1] |= 0x80
		binary.LittleEndian.PutUint32(key[:], fastrand.Uint32())
		copy(hdr[n:n+4], key[:])
		n += 4
	}

	if _, err := w.Write(hdr[:n]); err != nil {
		return err
	}
	if len(payload) == 0 {
		return nil
	}
	if !maskOutgoing {
		_, err := w.Write(payload)
		return err
	}

	masked := bytebufferpool.Get()
	defer bytebufferpool.Put(masked)
	masked.Set(payload)
	maskUnmask(key, masked.B)
	_, err := w.Write(masked.B)
	return err
}
