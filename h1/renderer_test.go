package h1

import (
	"bufio"
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderSimpleResponse(t *testing.T) {
	res := &Response{
		Proto:  HTTP11,
		Status: 200,
		Reason: "OK",
		Headers: Headers{}.Add("Content-Type", "text/plain; charset=UTF-8").
			Add("Date", "Sun, 06 Nov 1994 08:49:37 GMT"),
		Entity: StrictEntity{Type: "text/plain; charset=UTF-8", Body: []byte("yeah")},
	}

	var out bytes.Buffer
	bw := bufio.NewWriter(&out)
	closeAfter, err := RenderResponse(bw, res, RenderOpts{ReqProto: HTTP11, ReqConnHeader: ConnNone})
	require.NoError(t, err)
	assert.False(t, closeAfter)
	assert.Contains(t, out.String(), "HTTP/1.1 200 OK\r\n")
	assert.Contains(t, out.String(), "Content-Length: 4\r\n")
	assert.True(t, strings.HasSuffix(out.String(), "yeah"))
}

func TestRenderHeadSuppressesBody(t *testing.T) {
	res := &Response{
		Proto:   HTTP11,
		Status:  200,
		Entity:  StrictEntity{Body: []byte("yeah")},
		Headers: Headers{},
	}
	var out bytes.Buffer
	bw := bufio.NewWriter(&out)
	_, err := RenderResponse(bw, res, RenderOpts{ReqProto: HTTP11, HeadRequest: true})
	require.NoError(t, err)
	assert.Contains(t, out.String(), "Content-Length: 4\r\n")
	assert.False(t, strings.HasSuffix(out.String(), "yeah"))
}

func TestRenderCloseDelimitedForcesClose(t *testing.T) {
	res := &Response{
		Proto:   HTTP11,
		Status:  200,
		Headers: Headers{},
		Entity:  CloseDelimitedEntity{Data: strings.NewReader("body")},
	}
	var out bytes.Buffer
	bw := bufio.NewWriter(&out)
	closeAfter, err := RenderResponse(bw, res, RenderOpts{ReqProto: HTTP11, ReqConnHeader: ConnNone})
	require.NoError(t, err)
	assert.True(t, closeAfter)
	assert.Contains(t, out.String(), "Connection: close\r\n")
}

func TestRenderChunkedEntity(t *testing.T) {
	parts := []ChunkPart{
		{Data: []byte("body123"), Ext: []ChunkExt{{Name: "key", Value: "value"}}},
		{Last: true},
	}
	res := &Response{
		Proto:   HTTP11,
		Status:  200,
		Headers: Headers{},
		Entity:  ChunkedEntity{Reader: &fakeChunkReader{parts: parts}},
	}
	var out bytes.Buffer
	bw := bufio.NewWriter(&out)
	_, err := RenderResponse(bw, res, RenderOpts{ReqProto: HTTP11})
	require.NoError(t, err)
	assert.Contains(t, out.String(), "Transfer-Encoding: chunked\r\n")
	assert.Contains(t, out.String(), "7;key=value\r\nbody123\r\n")
	assert.True(t, strings.HasSuffix(out.String(), "0\r\n\r\n"))
}

func TestRenderDefaultEntityRejectsOverflow(t *testing.T) {
	res := &Response{
		Proto:   HTTP11,
		Status:  200,
		Headers: Headers{},
		Entity:  DefaultEntity{Declared: 4, Data: strings.NewReader("yeahbuddy")},
	}
	var out bytes.Buffer
	bw := bufio.NewWriter(&out)
	_, err := RenderResponse(bw, res, RenderOpts{ReqProto: HTTP11})
	assert.Error(t, err)
}

type fakeChunkReader struct {
	parts []ChunkPart
	i     int
}

func (f *fakeChunkReader) Next() (ChunkPart, error) {
	p := f.parts[f.i]
	f.i++
	return p, nil
}
