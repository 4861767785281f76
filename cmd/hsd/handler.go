package main

import (
	"fmt"
	"log"

	"github.com/vaporio/httpstack/h1"
	"github.com/vaporio/httpstack/h2"
)

// handle is the one application handler shared by the HTTP/1 path
// (driven by fasthttp.Server, see adaptor.go) and the HTTP/2 path
// (driven by h2.ServerConn, see main.go's ServerOpts.Handler), matching
// the teacher's single RequestHandler shared across transports (demo's
// newBTCTiles/WebSocketService.Run pattern generalized away from a fixed
// image-tiling demo).
func handle(req *h1.Request) *h1.Response {
	switch req.URI.Path {
	case "/":
		return textResponse(200, "Welcome to the httpstack demo server.\n")
	case "/echo":
		body := []byte("(empty body)\n")
		if se, ok := req.Entity.(h1.StrictEntity); ok && len(se.Body) > 0 {
			body = se.Body
		}
		return &h1.Response{
			Status: 200,
			Reason: "OK",
			Headers: h1.Headers{}.Add("Content-Type", "text/plain; charset=utf-8"),
			Entity:  h1.StrictEntity{Type: "text/plain; charset=utf-8", Body: body},
		}
	default:
		return textResponse(404, fmt.Sprintf("no such route: %s\n", req.URI.Path))
	}
}

func textResponse(status int, body string) *h1.Response {
	return &h1.Response{
		Status:  status,
		Reason:  h1.ReasonFor(status, nil),
		Headers: h1.Headers{}.Add("Content-Type", "text/plain; charset=utf-8"),
		Entity:  h1.StrictEntity{Type: "text/plain; charset=utf-8", Body: []byte(body)},
	}
}

// handleExchange adapts handle to h2.ServerOpts.Handler, logging any
// exchange with a nil Request (a handshake-only GOAWAY race) instead of
// handing the core a malformed response.
func handleExchange(ex *h2.Exchange) {
	if ex.Request == nil {
		log.Printf("h2 exchange %d dispatched with no request", ex.StreamID)
		ex.Response = textResponse(400, "malformed request\n")
		return
	}
	ex.Response = handle(ex.Request)
}
