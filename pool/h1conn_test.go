package pool

import (
	"bufio"
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vaporio/httpstack/h1"
)

// fakeServer reads one rendered request off conn and writes back a fixed
// response, emulating the remote side of an h1Conn without a real
// listener (grounded on the teacher's server_test.go in-memory net.Pipe
// harness).
func fakeServer(t *testing.T, conn net.Conn, status int, body string) {
	t.Helper()
	br := bufio.NewReader(conn)
	cfg := h1.DefaultConfig()
	p := h1.NewParser(&cfg)
	_, err := p.ParseRequest(br)
	require.NoError(t, err)

	resp := &h1.Response{
		Proto:  h1.HTTP11,
		Status: status,
		Reason: "OK",
		Entity: h1.StrictEntity{Body: []byte(body)},
	}
	bw := bufio.NewWriter(conn)
	_, err = h1.RenderResponse(bw, resp, h1.RenderOpts{ReqProto: h1.HTTP11})
	require.NoError(t, err)
	require.NoError(t, bw.Flush())
}

func TestH1ConnSubmitDeliversResponse(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		fakeServer(t, server, 200, "hi")
	}()

	cfg := h1.DefaultConfig()
	hc := newH1Conn(client, &cfg, 4)
	defer hc.Close()

	req := &h1.Request{
		Method:  h1.GET,
		URI:     h1.URI{Path: "/"},
		Proto:   h1.HTTP11,
		Headers: h1.Headers{}.Add("Host", "example.com"),
		Entity:  h1.StrictEntity{},
	}
	future := newFuture()
	require.NoError(t, hc.submit(req, "ctx-1", future))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	resp, gotCtx, err := future.Wait(ctx)
	require.NoError(t, err)
	assert.Equal(t, 200, resp.Status)
	assert.Equal(t, "ctx-1", gotCtx)

	<-done
}
