package ws

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidCloseCode(t *testing.T) {
	assert.True(t, ValidCloseCode(1000))
	assert.True(t, ValidCloseCode(1011))
	assert.True(t, ValidCloseCode(3000))
	assert.True(t, ValidCloseCode(4999))
	assert.False(t, ValidCloseCode(1004))
	assert.False(t, ValidCloseCode(1005))
	assert.False(t, ValidCloseCode(1006))
	assert.False(t, ValidCloseCode(1012))
	assert.False(t, ValidCloseCode(2999))
}

func TestParseClosePayload(t *testing.T) {
	code, reason, err := ParseClosePayload(nil)
	assert.NoError(t, err)
	assert.Equal(t, uint16(0), code)
	assert.Empty(t, reason)

	code, reason, err = ParseClosePayload(EncodeClosePayload(CloseNormal, "bye"))
	assert.NoError(t, err)
	assert.Equal(t, CloseNormal, code)
	assert.Equal(t, "bye", reason)

	_, _, err = ParseClosePayload([]byte{0x03})
	assert.Error(t, err)

	_, _, err = ParseClosePayload([]byte{0x03, 0xEC}) // code 1004, reserved
	assert.Error(t, err)
}

func TestCloseFSMLocalThenPeer(t *testing.T) {
	var f closeFSM
	assert.Equal(t, Active, f.State())
	f.LocalClose()
	assert.Equal(t, LocalClosing, f.State())
	assert.False(t, f.Done())
	f.PeerClose()
	assert.Equal(t, FullyClosed, f.State())
	assert.True(t, f.Done())
}

func TestCloseFSMPeerThenLocal(t *testing.T) {
	var f closeFSM
	f.PeerClose()
	assert.Equal(t, PeerClosing, f.State())
	assert.True(t, f.FramesIgnored())
	f.LocalClose()
	assert.Equal(t, FullyClosed, f.State())
}

func TestCloseFSMForced(t *testing.T) {
	var f closeFSM
	f.LocalClose()
	f.Forced()
	assert.True(t, f.Done())

	var g closeFSM
	g.Forced() // no-op while Active
	assert.Equal(t, Active, g.State())
}
