// Command hsd is a demo server exercising every protocol layer in one
// process: plain HTTP/1.1 (via an embedded fasthttp.Server, exactly the
// teacher's NextProto-hijacking arrangement from
// examples/autocert/main.go and server_fasthttp.go's ConfigureServer),
// HTTP/2 over TLS (via h2.ServerConn hung off fasthttp.Server.NextProto),
// and a WebSocket echo/broadcast endpoint at /ws (via ws.Accept +
// ws.Conn, teacher's demo/main.go WebSocketService generalized).
package main

import (
	"crypto/tls"
	"flag"
	"log"
	"net"

	"github.com/valyala/fasthttp"

	"github.com/vaporio/httpstack/h2"
)

const h2ALPNProto = "h2"

var (
	addr         = flag.String("addr", ":8443", "listen address")
	certFile     = flag.String("cert", "", "TLS certificate file (required unless -autocert-host is set)")
	keyFile      = flag.String("key", "", "TLS key file (required unless -autocert-host is set)")
	autocertHost = flag.String("autocert-host", "", "when set, bootstrap a certificate for this host via ACME instead of -cert/-key")
)

func main() {
	flag.Parse()

	registry := newWSRegistry()

	router := func(ctx *fasthttp.RequestCtx) {
		if string(ctx.Path()) == "/ws" {
			wsHandler(registry)(ctx)
			return
		}
		req := requestFromCtx(ctx)
		resp := handle(req)
		writeResponseToCtx(resp, ctx)
	}

	srv := &fasthttp.Server{
		Handler: router,
		Name:    "httpstack demo",
	}

	srv.NextProto(h2ALPNProto, serveH2)

	var tlsConfig *tls.Config
	var err error
	if *autocertHost != "" {
		tlsConfig, err = autocertConfig(*autocertHost)
	} else {
		tlsConfig, err = loadTLSConfig(*certFile, *keyFile)
	}
	if err != nil {
		log.Fatalf("tls setup: %s", err)
	}
	tlsConfig.NextProtos = append(tlsConfig.NextProtos, h2ALPNProto, "http/1.1")

	ln, err := tls.Listen("tcp", *addr, tlsConfig)
	if err != nil {
		log.Fatalf("listen: %s", err)
	}
	log.Printf("httpstack demo listening on %s", *addr)
	log.Fatal(srv.Serve(ln))
}

func loadTLSConfig(cert, key string) (*tls.Config, error) {
	pair, err := tls.LoadX509KeyPair(cert, key)
	if err != nil {
		return nil, err
	}
	return &tls.Config{Certificates: []tls.Certificate{pair}}, nil
}

// serveH2 drives one ALPN-negotiated HTTP/2 connection, sharing the same
// handle function the HTTP/1 path uses via adaptor.go's h1.Request/
// h1.Response bridge — here no bridge is needed since h2.Exchange already
// carries h1 types natively.
func serveH2(c net.Conn) error {
	sc := h2.NewServerConn(c, h2.ServerOpts{Handler: handleExchange})
	if err := sc.Handshake(); err != nil {
		return err
	}
	return sc.Serve()
}
