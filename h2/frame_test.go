package h2

import (
	"bufio"
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeAndRead(t *testing.T, frh *FrameHeader) *FrameHeader {
	t.Helper()
	var buf bytes.Buffer
	bw := bufio.NewWriter(&buf)
	_, err := frh.WriteTo(bw)
	require.NoError(t, err)
	require.NoError(t, bw.Flush())

	got, err := ReadFrameFrom(bufio.NewReader(&buf), 0)
	require.NoError(t, err)
	return got
}

func TestDataFrameRoundTrip(t *testing.T) {
	d := &Data{}
	d.SetData([]byte("hello world"))
	d.SetEndStream(true)

	frh := AcquireFrameHeader()
	defer ReleaseFrameHeader(frh)
	frh.SetStream(3)
	frh.SetBody(d)

	got := writeAndRead(t, frh)
	defer ReleaseFrameHeader(got)

	assert.Equal(t, FrameData, got.Type())
	assert.Equal(t, uint32(3), got.Stream())
	gd := got.Body().(*Data)
	assert.True(t, gd.EndStream())
	assert.Equal(t, "hello world", string(gd.Bytes()))
}

func TestDataFramePaddingRoundTrip(t *testing.T) {
	// spec §4.3: PADDED framing must be transparent to the payload reader.
	d := &Data{}
	d.SetData([]byte("padded"))
	d.SetPadding(true)

	frh := AcquireFrameHeader()
	defer ReleaseFrameHeader(frh)
	frh.SetStream(1)
	frh.SetBody(d)

	got := writeAndRead(t, frh)
	defer ReleaseFrameHeader(got)

	gd := got.Body().(*Data)
	assert.Equal(t, "padded", string(gd.Bytes()))
}

func TestHeadersFrameWithPriorityRoundTrip(t *testing.T) {
	h := &Headers{}
	h.SetHeaders([]byte("fake-hpack-block"))
	h.SetEndHeaders(true)
	h.SetEndStream(true)
	h.SetWeight(42)

	frh := AcquireFrameHeader()
	defer ReleaseFrameHeader(frh)
	frh.SetStream(5)
	frh.SetBody(h)

	got := writeAndRead(t, frh)
	defer ReleaseFrameHeader(got)

	gh := got.Body().(*Headers)
	assert.True(t, gh.EndHeaders())
	assert.True(t, gh.EndStream())
	assert.Equal(t, byte(42), gh.Weight())
	assert.Equal(t, "fake-hpack-block", string(gh.Headers()))
}

func TestSettingsFrameRoundTripOnlyChangedFields(t *testing.T) {
	s := &Settings{}
	s.SetInitialWindowSize(1 << 20)
	s.SetMaxConcurrentStreams(64)

	frh := AcquireFrameHeader()
	defer ReleaseFrameHeader(frh)
	frh.SetBody(s)

	got := writeAndRead(t, frh)
	defer ReleaseFrameHeader(got)

	gs := got.Body().(*Settings)
	assert.Equal(t, uint32(1<<20), gs.InitialWindowSize)
	assert.Equal(t, uint32(64), gs.MaxConcurrentStreams)
	// fields never Set should decode as zero, not leak a default.
	assert.Equal(t, uint32(0), gs.HeaderTableSize)
}

func TestSettingsAckHasEmptyPayload(t *testing.T) {
	s := &Settings{}
	s.SetAck(true)

	frh := AcquireFrameHeader()
	defer ReleaseFrameHeader(frh)
	frh.SetBody(s)

	got := writeAndRead(t, frh)
	defer ReleaseFrameHeader(got)

	gs := got.Body().(*Settings)
	assert.True(t, gs.Ack())
	assert.Equal(t, 0, got.Len())
}

func TestSettingsApplyOverlaysOnlyChangedFields(t *testing.T) {
	base := NewDefaultSettings()
	delta := &Settings{}
	delta.SetMaxFrameSize(1 << 16)

	base.Apply(delta)

	assert.Equal(t, uint32(1<<16), base.MaxFrameSize)
	// unrelated fields retain their prior value.
	assert.Equal(t, DefaultWindowSize, base.InitialWindowSize)
}

func TestPingFrameRoundTrip(t *testing.T) {
	p := &Ping{}
	p.SetData([]byte("12345678"))

	frh := AcquireFrameHeader()
	defer ReleaseFrameHeader(frh)
	frh.SetBody(p)

	got := writeAndRead(t, frh)
	defer ReleaseFrameHeader(got)

	gp := got.Body().(*Ping)
	assert.False(t, gp.Ack())
	assert.Equal(t, "12345678", string(gp.Data()))
}

func TestGoAwayFrameRoundTrip(t *testing.T) {
	g := &GoAway{}
	g.SetLastStreamID(7)
	g.SetCode(ErrCodeProtocol)
	g.SetDebugData([]byte("bye"))

	frh := AcquireFrameHeader()
	defer ReleaseFrameHeader(frh)
	frh.SetBody(g)

	got := writeAndRead(t, frh)
	defer ReleaseFrameHeader(got)

	gg := got.Body().(*GoAway)
	assert.Equal(t, uint32(7), gg.LastStreamID())
	assert.Equal(t, ErrCodeProtocol, gg.Code())
	assert.Equal(t, "bye", string(gg.DebugData()))
}

func TestWindowUpdateFrameRoundTrip(t *testing.T) {
	w := &WindowUpdate{}
	w.SetIncrement(65535)

	frh := AcquireFrameHeader()
	defer ReleaseFrameHeader(frh)
	frh.SetStream(9)
	frh.SetBody(w)

	got := writeAndRead(t, frh)
	defer ReleaseFrameHeader(got)

	gw := got.Body().(*WindowUpdate)
	assert.Equal(t, uint32(65535), gw.Increment())
}

func TestRstStreamFrameRoundTrip(t *testing.T) {
	r := &RstStream{}
	r.SetCode(ErrCodeCancel)

	frh := AcquireFrameHeader()
	defer ReleaseFrameHeader(frh)
	frh.SetStream(11)
	frh.SetBody(r)

	got := writeAndRead(t, frh)
	defer ReleaseFrameHeader(got)

	gr := got.Body().(*RstStream)
	assert.Equal(t, ErrCodeCancel, gr.Code())
}

func TestReadFrameFromRejectsOversizedControlFrame(t *testing.T) {
	// spec §4.3: control frames (PING, RST_STREAM, SETTINGS, GOAWAY,
	// WINDOW_UPDATE) are bounded to 125 bytes regardless of maxFrameSize.
	// Build a well-formed SETTINGS header (type 0x4) claiming a 200-byte
	// payload, backed by 200 actual bytes so a short read never masks the
	// bounds check under test.
	length := 200
	raw := []byte{
		byte(length >> 16), byte(length >> 8), byte(length),
		byte(FrameSettings), 0, 0, 0, 0, 0,
	}
	raw = append(raw, make([]byte, length)...)

	_, err := ReadFrameFrom(bufio.NewReader(bytes.NewReader(raw)), 0)
	assert.Error(t, err)
}

func TestReadFrameFromDiscardsUnknownFrameType(t *testing.T) {
	// frame type 0x20 is above FrameContinuation and must be silently
	// skipped rather than breaking the connection (spec §4.3).
	raw := []byte{0, 0, 3, 0x20, 0, 0, 0, 0, 0, 'a', 'b', 'c'}
	_, err := ReadFrameFrom(bufio.NewReader(bytes.NewReader(raw)), 0)
	assert.Error(t, err)
}
