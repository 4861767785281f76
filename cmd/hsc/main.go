// Command hsc is a demo client: it dials the shared connection pool and
// issues one request, or with -ws opens a WebSocket and exchanges a
// handful of echo messages. Grounded on the teacher's client.go Dial/Do
// pair, generalized from a single fixed HTTP/2 connection to a routed
// pool.Registry submission.
package main

import (
	"bufio"
	"context"
	"crypto/tls"
	"flag"
	"fmt"
	"log"
	"net"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/vaporio/httpstack/h1"
	"github.com/vaporio/httpstack/pool"
	"github.com/vaporio/httpstack/ws"
)

var (
	targetURL = flag.String("url", "https://localhost:8443/", "absolute URL to request")
	method    = flag.String("method", "GET", "HTTP method")
	body      = flag.String("body", "", "request body")
	wsMode    = flag.Bool("ws", false, "open a WebSocket connection to -addr instead of an HTTP request")
	addr      = flag.String("addr", "localhost:8443", "host:port for -ws mode")
	count     = flag.Int("count", 3, "number of echo messages to send in -ws mode")
)

func main() {
	flag.Parse()

	if *wsMode {
		if err := runWS(*addr, *count); err != nil {
			log.Fatal(err)
		}
		return
	}
	if err := runRequest(*targetURL, *method, *body); err != nil {
		log.Fatal(err)
	}
}

func runRequest(rawURL, method, body string) error {
	req, err := buildRequest(rawURL, method, body)
	if err != nil {
		return err
	}

	registry := pool.NewRegistry(pool.Options{}, h1.DefaultConfig())
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = registry.Shutdown(ctx)
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	future, err := registry.Submit(ctx, req, nil)
	if err != nil {
		return err
	}
	resp, _, err := future.Wait(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("%d %s\n", resp.Status, resp.Reason)
	resp.Headers.VisitAll(func(k, v string) { fmt.Printf("%s: %s\n", k, v) })
	if se, ok := resp.Entity.(h1.StrictEntity); ok {
		os.Stdout.Write(se.Body)
		fmt.Println()
	}
	return nil
}

func buildRequest(rawURL, method, body string) (*h1.Request, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, err
	}
	host := u.Hostname()
	port := 0
	if p := u.Port(); p != "" {
		port, err = strconv.Atoi(p)
		if err != nil {
			return nil, err
		}
	}
	req := &h1.Request{
		Method:  h1.Method(method),
		URI:     h1.URI{Scheme: u.Scheme, Host: host, Port: port, Path: u.Path, Query: u.RawQuery},
		Proto:   h1.HTTP11,
		Headers: h1.Headers{}.Add("Host", u.Host),
		Entity:  h1.StrictEntity{Body: []byte(body)},
	}
	return req, nil
}

// runWS dials addr directly (bypassing the pool, which only speaks plain
// request/response) and drives the WebSocket handshake and echo loop by
// hand over the raw connection.
func runWS(addr string, count int) error {
	conn, err := tls.Dial("tcp", addr, &tls.Config{NextProtos: []string{"http/1.1"}})
	if err != nil {
		return err
	}
	defer conn.Close()

	key, err := ws.NewClientKey()
	if err != nil {
		return err
	}
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		host = addr
	}
	handshakeReq := ws.UpgradeRequest(host, "/ws", key, nil)

	bw := bufio.NewWriter(conn)
	if err := h1.RenderRequest(bw, handshakeReq); err != nil {
		return err
	}
	if err := bw.Flush(); err != nil {
		return err
	}

	br := bufio.NewReader(conn)
	cfg := h1.DefaultConfig()
	parser := h1.NewParser(&cfg)
	resp, err := parser.ParseResponse(br, handshakeReq.Method)
	if err != nil {
		return err
	}
	if err := ws.ValidateServerResponse(resp, key, nil); err != nil {
		return err
	}

	wc := ws.NewConnFromBufio(conn, br, bw, ws.Config{IsServer: false})
	for i := 0; i < count; i++ {
		msg := fmt.Sprintf("ping %d", i)
		if err := wc.WriteMessage(ws.Text, []byte(msg)); err != nil {
			return err
		}
		reply, err := wc.ReadMessage()
		if err != nil {
			return err
		}
		fmt.Printf("server said: %s\n", reply.Data)
	}
	return wc.Close(ws.CloseNormal, "done")
}
