// Package wire holds the byte-twiddling helpers frame codecs need: 24/32-bit
// big-endian integers and RFC 7540 §6.1 padding, factored out of the frame
// types themselves so each frame file stays about the shape of its wire
// format.
package wire

import (
	"crypto/rand"
	"fmt"

	"github.com/valyala/fastrand"
)

func Uint24ToBytes(b []byte, n uint32) {
	_ = b[2]
	b[0] = byte(n >> 16)
	b[1] = byte(n >> 8)
	b[2] = byte(n)
}

func BytesToUint24(b []byte) uint32 {
	_ = b[2]
	return uint32(b[0])<<16 | uint32(b[1])<<8 | uint32(b[2])
}

func Uint32ToBytes(b []byte, n uint32) {
	_ = b[3]
	b[0] = byte(n >> 24)
	b[1] = byte(n >> 16)
	b[2] = byte(n >> 8)
	b[3] = byte(n)
}

func BytesToUint32(b []byte) uint32 {
	_ = b[3]
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
}

func AppendUint32Bytes(dst []byte, n uint32) []byte {
	return append(dst, byte(n>>24), byte(n>>16), byte(n>>8), byte(n))
}

func Resize(b []byte, neededLen int) []byte {
	b = b[:cap(b)]
	if n := neededLen - len(b); n > 0 {
		b = append(b, make([]byte, n)...)
	}
	return b[:neededLen]
}

// CutPadding strips a PADDED frame's 1-byte pad-length prefix and trailing
// padding bytes from payload, given the frame's declared total length.
func CutPadding(payload []byte, length int) ([]byte, error) {
	if len(payload) == 0 {
		return nil, fmt.Errorf("h2/wire: padded frame has empty payload")
	}
	pad := int(payload[0])
	if length-pad-1 < 0 || len(payload) < length-pad-1 {
		return nil, fmt.Errorf("h2/wire: padding %d exceeds frame length %d", pad, length)
	}
	return payload[1 : length-pad], nil
}

// AddPadding prepends a random pad length (9..255) and appends that many
// random bytes, per RFC 7540 §6.1 PADDED framing. fastrand avoids a syscall
// per frame; padding content is never security-sensitive (it's discarded
// by the peer), only its length needs to vary.
func AddPadding(b []byte) []byte {
	n := int(fastrand.Uint32n(256-9)) + 9
	orig := len(b)
	b = Resize(b, orig+n+1)
	copy(b[1:], b[:orig])
	b[0] = byte(n)
	rand.Read(b[orig+1 : orig+1+n])
	return b
}
