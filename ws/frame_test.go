package ws

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrameRoundTripUnmasked(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteFrame(&buf, OpText, true, []byte("yeah"), false))

	f, err := ReadFrame(&buf, false)
	require.NoError(t, err)
	defer f.Release()

	assert.True(t, f.Fin)
	assert.Equal(t, OpText, f.Opcode)
	assert.False(t, f.Masked)
	assert.Equal(t, []byte("yeah"), f.Payload)
}

func TestFrameRoundTripMasked(t *testing.T) {
	var buf bytes.Buffer
	payload := bytes.Repeat([]byte("x"), 200)
	require.NoError(t, WriteFrame(&buf, OpBinary, true, payload, true))

	f, err := ReadFrame(&buf, true)
	require.NoError(t, err)
	defer f.Release()

	assert.Equal(t, payload, f.Payload)
}

func TestReadFrameRejectsReservedBits(t *testing.T) {
	var buf bytes.Buffer
	buf.Write([]byte{0x80 | 0x40 | byte(OpText), 0x00})
	_, err := ReadFrame(&buf, false)
	assert.Error(t, err)
}

func TestReadFrameRequiresMaskFromClient(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteFrame(&buf, OpText, true, []byte("hi"), false))
	_, err := ReadFrame(&buf, true)
	assert.Error(t, err)
}

func TestReadFrameRejectsFragmentedControlFrame(t *testing.T) {
	var buf bytes.Buffer
	buf.Write([]byte{byte(OpPing), 0x00}) // fin not set
	_, err := ReadFrame(&buf, false)
	assert.Error(t, err)
}

func TestReadFrameRejectsOversizedControlFrame(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteFrame(&buf, OpPing, true, bytes.Repeat([]byte("a"), 126), false))
	_, err := ReadFrame(&buf, false)
	assert.Error(t, err)
}
