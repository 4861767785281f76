package h2

import (
	"bufio"
	"io"
	"sync"

	"github.com/vaporio/httpstack/h2/wire"
	"github.com/vaporio/httpstack/herr"
)

const (
	// DefaultFrameSize is the 9-octet frame header size (spec §4.3).
	DefaultFrameSize = 9
	defaultMaxLen    = 1 << 14
)

// Frame is implemented by each of the ten frame payload types. Deserialize
// reads frh's payload into the receiver; Serialize writes the receiver back
// into frh's payload and flags.
type Frame interface {
	Type() FrameType
	Reset()
	Deserialize(frh *FrameHeader) error
	Serialize(frh *FrameHeader)
}

// FrameWithHeaders is implemented by HEADERS, PUSH_PROMISE, and
// CONTINUATION: the three frame types that carry an HPACK header-block
// fragment (spec §4.3: CONTINUATION must follow one of the first two).
type FrameWithHeaders interface {
	Frame
	Headers() []byte
}

var framePool = sync.Pool{New: func() interface{} { return &FrameHeader{} }}

// FrameHeader is the 9-octet frame header plus its payload and the typed
// Frame it decodes to. Acquire one from the pool with AcquireFrameHeader;
// a FrameHeader is not safe for concurrent use.
type FrameHeader struct {
	length int
	kind   FrameType
	flags  FrameFlags
	stream uint32

	maxLen uint32

	rawHeader [DefaultFrameSize]byte
	payload   []byte

	fr Frame
}

// AcquireFrameHeader gets a reset FrameHeader from the pool.
func AcquireFrameHeader() *FrameHeader {
	frh := framePool.Get().(*FrameHeader)
	frh.Reset()
	return frh
}

// ReleaseFrameHeader returns frh to the pool.
func ReleaseFrameHeader(frh *FrameHeader) {
	framePool.Put(frh)
}

func (frh *FrameHeader) Reset() {
	frh.kind = 0
	frh.flags = 0
	frh.stream = 0
	frh.length = 0
	frh.maxLen = defaultMaxLen
	frh.fr = nil
	frh.payload = frh.payload[:0]
}

func (frh *FrameHeader) Type() FrameType     { return frh.kind }
func (frh *FrameHeader) Flags() FrameFlags   { return frh.flags }
func (frh *FrameHeader) SetFlags(f FrameFlags) { frh.flags = f }
func (frh *FrameHeader) Stream() uint32      { return frh.stream }
func (frh *FrameHeader) SetStream(id uint32) { frh.stream = id }
func (frh *FrameHeader) Len() int            { return frh.length }
func (frh *FrameHeader) MaxLen() uint32      { return frh.maxLen }
func (frh *FrameHeader) Body() Frame         { return frh.fr }

func (frh *FrameHeader) SetBody(fr Frame) {
	if fr == nil {
		panic("h2: frame body cannot be nil")
	}
	frh.kind = fr.Type()
	frh.fr = fr
}

func (frh *FrameHeader) setPayload(payload []byte) {
	frh.payload = append(frh.payload[:0], payload...)
}

func (frh *FrameHeader) parseValues(header []byte) {
	frh.length = int(wire.BytesToUint24(header[:3]))
	frh.kind = FrameType(header[3])
	frh.flags = FrameFlags(header[4])
	frh.stream = wire.BytesToUint32(header[5:]) & (1<<31 - 1)
}

func (frh *FrameHeader) renderValues(header []byte) {
	wire.Uint24ToBytes(header[:3], uint32(frh.length))
	header[3] = byte(frh.kind)
	header[4] = byte(frh.flags)
	wire.Uint32ToBytes(header[5:], frh.stream)
}

// ReadFrameFrom reads one frame header + payload from br, decoding the
// payload into its typed Frame. Control frames (spec §4.3: PING,
// RST_STREAM, SETTINGS, GOAWAY, WINDOW_UPDATE) are bounded to 125 bytes.
func ReadFrameFrom(br *bufio.Reader, maxFrameSize uint32) (*FrameHeader, error) {
	frh := AcquireFrameHeader()
	if maxFrameSize > 0 {
		frh.maxLen = maxFrameSize
	}
	if err := frh.readFrom(br); err != nil {
		ReleaseFrameHeader(frh)
		return nil, err
	}
	return frh, nil
}

func (frh *FrameHeader) readFrom(br *bufio.Reader) error {
	header, err := br.Peek(DefaultFrameSize)
	if err != nil {
		return err
	}
	if _, err := br.Discard(DefaultFrameSize); err != nil {
		return err
	}

	frh.parseValues(header)
	if frh.maxLen != 0 && frh.length > int(frh.maxLen) {
		io.CopyN(io.Discard, br, int64(frh.length))
		return herr.New(herr.FlowControl, "frame exceeds max frame size", "", nil)
	}
	if isControlFrame(frh.kind) && frh.length > 125 {
		io.CopyN(io.Discard, br, int64(frh.length))
		return herr.New(herr.Protocol, "control frame exceeds 125 bytes", frh.kind.String(), nil)
	}

	if frh.kind > FrameContinuation {
		if _, err := br.Discard(frh.length); err != nil {
			return err
		}
		return frh.readFrom(br)
	}

	frh.fr = newFrame(frh.kind)
	if frh.length > 0 {
		frh.payload = wire.Resize(frh.payload, frh.length)
		if _, err := io.ReadFull(br, frh.payload); err != nil {
			return err
		}
	}
	return frh.fr.Deserialize(frh)
}

// WriteTo serializes the body frame into frh and writes the 9-octet
// header plus payload to w.
func (frh *FrameHeader) WriteTo(w *bufio.Writer) (int64, error) {
	frh.fr.Serialize(frh)
	frh.length = len(frh.payload)
	frh.renderValues(frh.rawHeader[:])

	var written int64
	n, err := w.Write(frh.rawHeader[:])
	written += int64(n)
	if err != nil {
		return written, err
	}
	n, err = w.Write(frh.payload)
	written += int64(n)
	return written, err
}

func isControlFrame(t FrameType) bool {
	switch t {
	case FramePing, FrameResetStream, FrameSettings, FrameGoAway, FrameWindowUpdate:
		return true
	default:
		return false
	}
}

func newFrame(t FrameType) Frame {
	switch t {
	case FrameData:
		return &Data{}
	case FrameHeaders:
		return &Headers{}
	case FramePriority:
		return &Priority{}
	case FrameResetStream:
		return &RstStream{}
	case FrameSettings:
		return &Settings{}
	case FramePushPromise:
		return &PushPromise{}
	case FramePing:
		return &Ping{}
	case FrameGoAway:
		return &GoAway{}
	case FrameWindowUpdate:
		return &WindowUpdate{}
	case FrameContinuation:
		return &Continuation{}
	default:
		return nil
	}
}
