package h1

import (
	"bufio"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSimpleRequest(t *testing.T) {
	cfg := DefaultConfig()
	p := NewParser(&cfg)
	raw := "GET / HTTP/1.1\r\nHost: example.org\r\n\r\n"
	req, err := p.ParseRequest(bufio.NewReader(strings.NewReader(raw)))
	require.NoError(t, err)
	assert.Equal(t, GET, req.Method)
	assert.Equal(t, HTTP11, req.Proto)
	host, ok := req.Headers.Get("Host")
	assert.True(t, ok)
	assert.Equal(t, "example.org", host)
}

func TestParseSimpleResponseRoundtrip(t *testing.T) {
	// spec §8 scenario 1.
	cfg := DefaultConfig()
	p := NewParser(&cfg)
	raw := "HTTP/1.1 200 OK\r\nContent-Length: 4\r\nContent-Type: text/plain; charset=UTF-8\r\n\r\nyeah"
	res, err := p.ParseResponse(bufio.NewReader(strings.NewReader(raw)), GET)
	require.NoError(t, err)
	assert.Equal(t, 200, res.Status)

	entity, ok := res.Entity.(DefaultEntity)
	require.True(t, ok)
	body, err := io.ReadAll(entity.Data)
	require.NoError(t, err)
	assert.Equal(t, "yeah", string(body))

	_, hasConn := res.Headers.Get("connection")
	assert.False(t, hasConn)
}

func TestParseHeadResponseHasNoBody(t *testing.T) {
	cfg := DefaultConfig()
	p := NewParser(&cfg)
	raw := "HTTP/1.1 200 OK\r\nContent-Length: 4\r\n\r\nyeah"
	res, err := p.ParseResponse(bufio.NewReader(strings.NewReader(raw)), HEAD)
	require.NoError(t, err)
	_, isStrict := res.Entity.(StrictEntity)
	assert.True(t, isStrict)
}

func TestParseRejectsConflictingFraming(t *testing.T) {
	cfg := DefaultConfig()
	p := NewParser(&cfg)
	raw := "POST / HTTP/1.1\r\nHost: h\r\nContent-Length: 4\r\nTransfer-Encoding: chunked\r\n\r\nabcd"
	_, err := p.ParseRequest(bufio.NewReader(strings.NewReader(raw)))
	assert.Error(t, err)
}

func TestParseChunkedRequest(t *testing.T) {
	cfg := DefaultConfig()
	p := NewParser(&cfg)
	raw := "POST / HTTP/1.1\r\nHost: h\r\nTransfer-Encoding: chunked\r\n\r\n5\r\nhello\r\n0\r\n\r\n"
	req, err := p.ParseRequest(bufio.NewReader(strings.NewReader(raw)))
	require.NoError(t, err)
	ce, ok := req.Entity.(ChunkedEntity)
	require.True(t, ok)
	part, err := ce.Reader.Next()
	require.NoError(t, err)
	assert.Equal(t, "hello", string(part.Data))
}

func TestResolveContentTypeRejectsByDefault(t *testing.T) {
	cfg := DefaultConfig()
	p := NewParser(&cfg)
	raw := "POST / HTTP/1.1\r\nHost: h\r\nContent-Type: text/plain\r\nContent-Type: application/json\r\nContent-Length: 0\r\n\r\n"
	_, err := p.ParseRequest(bufio.NewReader(strings.NewReader(raw)))
	assert.Error(t, err)
}

func TestResolveContentTypeKeepsFirst(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ConflictingContentType = ContentTypeFirst
	p := NewParser(&cfg)
	raw := "POST / HTTP/1.1\r\nHost: h\r\nContent-Type: text/plain\r\nContent-Type: application/json\r\nContent-Length: 0\r\n\r\n"
	req, err := p.ParseRequest(bufio.NewReader(strings.NewReader(raw)))
	require.NoError(t, err)
	ct, ok := req.Headers.Get("content-type")
	require.True(t, ok)
	assert.Equal(t, "text/plain", ct)
	assert.Len(t, req.Headers.GetAll("content-type"), 1)
}

func TestResolveContentTypeKeepsLast(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ConflictingContentType = ContentTypeLast
	p := NewParser(&cfg)
	raw := "POST / HTTP/1.1\r\nHost: h\r\nContent-Type: text/plain\r\nContent-Type: application/json\r\nContent-Length: 0\r\n\r\n"
	req, err := p.ParseRequest(bufio.NewReader(strings.NewReader(raw)))
	require.NoError(t, err)
	ct, ok := req.Headers.Get("content-type")
	require.True(t, ok)
	assert.Equal(t, "application/json", ct)
}

func TestResolveContentTypeDropsAllWhenNone(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ConflictingContentType = ContentTypeNone
	p := NewParser(&cfg)
	raw := "POST / HTTP/1.1\r\nHost: h\r\nContent-Type: text/plain\r\nContent-Type: application/json\r\nContent-Length: 0\r\n\r\n"
	req, err := p.ParseRequest(bufio.NewReader(strings.NewReader(raw)))
	require.NoError(t, err)
	assert.False(t, req.Headers.Has("content-type"))
}
