package ws

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestUTF8SplitAcrossFrames is spec §8 scenario 6: a 2-byte UTF-8
// character split across two frames must yield one message containing
// it once.
func TestUTF8SplitAcrossFrames(t *testing.T) {
	full := []byte("é") // 2-byte UTF-8 sequence: 0xC3 0xA9
	require.Len(t, full, 2)

	var agg aggregator
	_, ok, err := agg.Feed(&Frame{Opcode: OpText, Fin: false, Payload: full[:1]})
	require.NoError(t, err)
	require.False(t, ok)

	msg, ok, err := agg.Feed(&Frame{Opcode: OpContinuation, Fin: true, Payload: full[1:]})
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, full, msg.Data)
	assert.Equal(t, Text, msg.Kind)
}

// TestUTF8SurrogateHalfRejected is spec §8 scenario 6's negative case:
// bytes 0xED 0xA0 0x80 encode an unpaired surrogate half and must fail.
func TestUTF8SurrogateHalfRejected(t *testing.T) {
	var agg aggregator
	_, _, err := agg.Feed(&Frame{Opcode: OpText, Fin: true, Payload: []byte{0xED, 0xA0, 0x80}})
	assert.Error(t, err)
}

func TestAggregatorRejectsInterleavedDataFrame(t *testing.T) {
	var agg aggregator
	_, ok, err := agg.Feed(&Frame{Opcode: OpText, Fin: false, Payload: []byte("a")})
	require.NoError(t, err)
	require.False(t, ok)

	_, _, err = agg.Feed(&Frame{Opcode: OpText, Fin: true, Payload: []byte("b")})
	assert.Error(t, err)
}

func TestTextBoundaryAvoidsSplittingRune(t *testing.T) {
	b := append([]byte("ab"), "é"...) // "ab" + 2-byte rune = 4 bytes total
	n := textBoundary(b[:3])          // cut mid-way through the 2-byte rune
	assert.Equal(t, 2, n)
	assert.Equal(t, len(b), textBoundary(b))
}
