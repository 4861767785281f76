package h2

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vaporio/httpstack/h1"
)

// newPipePair wires a client Conn and a server ServerConn over an in-memory
// net.Pipe and runs both handshakes, the way a real TLS-ALPN-negotiated h2
// connection would on either side of one socket.
func newPipePair(t *testing.T, handler func(*Exchange)) (*Conn, *ServerConn) {
	t.Helper()
	clientSide, serverSide := net.Pipe()

	sc := NewServerConn(serverSide, ServerOpts{Handler: handler, PingInterval: 0})
	srvDone := make(chan error, 1)
	go func() {
		if err := sc.Handshake(); err != nil {
			srvDone <- err
			return
		}
		srvDone <- sc.Serve()
	}()

	c := NewConn(clientSide, ConnOpts{DisablePingChecking: true})
	require.NoError(t, c.Handshake())

	t.Cleanup(func() {
		_ = c.Close()
		<-srvDone
	})
	return c, sc
}

func TestClientServerRequestResponseRoundTrip(t *testing.T) {
	c, _ := newPipePair(t, func(ex *Exchange) {
		assert.Equal(t, h1.GET, ex.Request.Method)
		assert.Equal(t, "/hello", ex.Request.URI.Path)
		ex.Response = &h1.Response{
			Status:  200,
			Headers: h1.Headers{}.Add("X-Reply", "yes"),
			Entity:  h1.StrictEntity{Type: "text/plain", Body: []byte("hi there")},
		}
	})

	req := &h1.Request{
		Method:  h1.GET,
		URI:     h1.URI{Scheme: "https", Host: "example.test", Path: "/hello"},
		Headers: h1.Headers{}.Add("Host", "example.test"),
		Entity:  h1.StrictEntity{},
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	ex, err := c.Do(ctx, req)
	require.NoError(t, err)
	require.NoError(t, ex.Wait())

	require.NotNil(t, ex.Response)
	assert.Equal(t, 200, ex.Response.Status)
	v, ok := ex.Response.Headers.Get("X-Reply")
	assert.True(t, ok)
	assert.Equal(t, "yes", v)

	se, ok := ex.Response.Entity.(h1.StrictEntity)
	require.True(t, ok)
	assert.Equal(t, "hi there", string(se.Body))
}

func TestClientServerRequestWithBody(t *testing.T) {
	var gotBody []byte
	c, _ := newPipePair(t, func(ex *Exchange) {
		if se, ok := ex.Request.Entity.(h1.StrictEntity); ok {
			gotBody = se.Body
		}
		ex.Response = &h1.Response{Status: 204, Headers: h1.Headers{}, Entity: h1.StrictEntity{}}
	})

	req := &h1.Request{
		Method:  h1.POST,
		URI:     h1.URI{Scheme: "https", Host: "example.test", Path: "/echo"},
		Headers: h1.Headers{}.Add("Host", "example.test"),
		Entity:  h1.StrictEntity{Type: "text/plain", Body: []byte("payload body")},
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	ex, err := c.Do(ctx, req)
	require.NoError(t, err)
	require.NoError(t, ex.Wait())

	assert.Equal(t, 204, ex.Response.Status)
	assert.Equal(t, "payload body", string(gotBody))
}

func TestClientServerConcurrentStreamsGetDistinctIDs(t *testing.T) {
	c, _ := newPipePair(t, func(ex *Exchange) {
		ex.Response = &h1.Response{Status: 200, Headers: h1.Headers{}, Entity: h1.StrictEntity{}}
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	mkReq := func(path string) *h1.Request {
		return &h1.Request{
			Method:  h1.GET,
			URI:     h1.URI{Scheme: "https", Host: "example.test", Path: path},
			Headers: h1.Headers{}.Add("Host", "example.test"),
			Entity:  h1.StrictEntity{},
		}
	}

	ex1, err := c.Do(ctx, mkReq("/a"))
	require.NoError(t, err)
	ex2, err := c.Do(ctx, mkReq("/b"))
	require.NoError(t, err)

	require.NoError(t, ex1.Wait())
	require.NoError(t, ex2.Wait())
	assert.NotEqual(t, ex1.StreamID, ex2.StreamID)
	// client stream ids are always odd (RFC 7540 §5.1.1).
	assert.Equal(t, uint32(1), ex1.StreamID%2)
	assert.Equal(t, uint32(1), ex2.StreamID%2)
}
