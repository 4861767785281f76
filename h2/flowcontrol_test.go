package h2

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWindowDebitAndCredit(t *testing.T) {
	w := NewWindow(65535)
	w.Debit(1000)
	assert.Equal(t, int32(64535), w.Current())

	w.Credit(500)
	assert.Equal(t, int32(65035), w.Current())
}

func TestWindowNeedsReplenishBelowHalf(t *testing.T) {
	w := NewWindow(1000)
	w.Debit(600) // current = 400, below max/2 = 500

	inc, ok := w.NeedsReplenish()
	assert.True(t, ok)
	assert.Equal(t, int32(600), inc)
	assert.Equal(t, int32(1000), w.Current())
}

func TestWindowNeedsReplenishAboveHalf(t *testing.T) {
	w := NewWindow(1000)
	w.Debit(200) // current = 800, above max/2 = 500

	_, ok := w.NeedsReplenish()
	assert.False(t, ok)
}

func TestWindowWouldOverflow(t *testing.T) {
	// spec §7 FlowControl: a WINDOW_UPDATE that would push the window past
	// 2^31-1 is a FLOW_CONTROL_ERROR.
	w := NewWindow(MaxWindowSize)
	assert.True(t, w.WouldOverflow(1))
	assert.False(t, w.WouldOverflow(0))

	w2 := NewWindow(100)
	assert.False(t, w2.WouldOverflow(MaxWindowSize-100))
	assert.True(t, w2.WouldOverflow(MaxWindowSize-99))
}

func TestWindowSetMaxAdjustsCurrentBySameDelta(t *testing.T) {
	// spec §4.4: a SETTINGS_INITIAL_WINDOW_SIZE change adjusts every
	// existing stream window by the delta, not a hard reset (RFC 7540
	// §6.9.2).
	w := NewWindow(1000)
	w.Debit(400) // current = 600

	w.SetMax(2000) // +1000 delta
	assert.Equal(t, int32(2000), w.Max())
	assert.Equal(t, int32(1600), w.Current())
}
