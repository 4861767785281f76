package h1

import (
	"bufio"
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunkedRoundTrip(t *testing.T) {
	// spec §8 scenario 2.
	var buf bytes.Buffer
	ext := []ChunkExt{{Name: "key", Value: "value"}, {Name: "another", Value: "tl;dr", Quoted: true}}
	RenderChunk(&buf, []byte("body123"), ext)
	RenderLastChunk(&buf, []ChunkExt{{Name: "foo", Value: "bar"}}, Headers{}.Add("Age", "30").Add("Cache-Control", "public"))

	want := "7;key=value;another=\"tl;dr\"\r\nbody123\r\n0;foo=bar\r\nAge: 30\r\nCache-Control: public\r\n\r\n"
	assert.Equal(t, want, buf.String())

	cfg := DefaultConfig()
	dec := newChunkDecoder(bufio.NewReader(strings.NewReader(buf.String())), &cfg)

	part, err := dec.Next()
	require.NoError(t, err)
	assert.Equal(t, "body123", string(part.Data))
	assert.False(t, part.Last)
	assert.Equal(t, "key", part.Ext[0].Name)
	assert.Equal(t, "tl;dr", part.Ext[1].Value)

	last, err := dec.Next()
	require.NoError(t, err)
	assert.True(t, last.Last)
	assert.Equal(t, "bar", last.Ext[0].Value)
	v, _ := last.Trailers.Get("age")
	assert.Equal(t, "30", v)
}

func TestChunkDecoderRejectsOversize(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxChunkSize = 4
	dec := newChunkDecoder(bufio.NewReader(strings.NewReader("10\r\n0123456789abcdef\r\n0\r\n\r\n")), &cfg)
	_, err := dec.Next()
	assert.Error(t, err)
}
