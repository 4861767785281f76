package main

import (
	"encoding/binary"
	"log"
	"net"
	"sync"
	"time"

	"github.com/valyala/fasthttp"

	"github.com/vaporio/httpstack/ws"
)

// wsRegistry tracks live connections for the periodic RTT broadcast,
// grounded on the teacher's demo WebSocketService (demo/main.go).
type wsRegistry struct {
	mu    sync.Mutex
	conns map[*ws.Conn]struct{}
	once  sync.Once
}

func newWSRegistry() *wsRegistry {
	return &wsRegistry{conns: make(map[*ws.Conn]struct{})}
}

func (r *wsRegistry) add(c *ws.Conn) {
	r.mu.Lock()
	r.conns[c] = struct{}{}
	r.mu.Unlock()
	r.once.Do(r.startBroadcast)
}

func (r *wsRegistry) remove(c *ws.Conn) {
	r.mu.Lock()
	delete(r.conns, c)
	r.mu.Unlock()
}

func (r *wsRegistry) startBroadcast() {
	go func() {
		for range time.Tick(500 * time.Millisecond) {
			var ts [8]byte
			binary.BigEndian.PutUint64(ts[:], uint64(time.Now().UnixNano()))
			r.mu.Lock()
			for c := range r.conns {
				if err := c.WriteMessage(ws.Binary, ts[:]); err != nil {
					log.Printf("ws broadcast: %s", err)
				}
			}
			r.mu.Unlock()
		}
	}()
}

// wsHandler upgrades eligible requests and echoes every message back,
// tracking connections in registry for the RTT broadcast above.
func wsHandler(registry *wsRegistry) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		req := requestFromCtx(ctx)
		if !ws.IsUpgradeRequest(req) {
			ctx.SetStatusCode(426)
			ctx.SetBodyString("expected a WebSocket upgrade request\n")
			return
		}
		resp, err := ws.Accept(req, "")
		if err != nil {
			ctx.SetStatusCode(400)
			ctx.SetBodyString(err.Error())
			return
		}
		writeResponseToCtx(resp, ctx)

		ctx.Hijack(func(c net.Conn) {
			conn := ws.NewConn(c, ws.Config{IsServer: true, KeepAliveMode: ws.KeepAlivePing})
			registry.add(conn)
			defer registry.remove(conn)
			defer conn.Shutdown()

			for {
				msg, err := conn.ReadMessage()
				if err != nil {
					return
				}
				if err := conn.WriteMessage(msg.Kind, msg.Data); err != nil {
					return
				}
			}
		})
	}
}
