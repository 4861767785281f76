package h2

import (
	"bufio"
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrefaceRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	bw := bufio.NewWriter(&buf)
	require.NoError(t, WritePreface(bw))
	require.NoError(t, bw.Flush())

	assert.NoError(t, ReadPreface(bufio.NewReader(&buf)))
}

func TestReadPrefaceRejectsGarbage(t *testing.T) {
	br := bufio.NewReader(bytes.NewReader([]byte("GET / HTTP/1.1\r\n\r\n")))
	assert.Error(t, ReadPreface(br))
}
