package main

import (
	"github.com/valyala/fasthttp"

	"github.com/vaporio/httpstack/h1"
)

// requestFromCtx builds an h1.Request from a fasthttp.RequestCtx, so the
// same handler serves both the fasthttp-driven HTTP/1 path and the
// h2.ServerConn-driven HTTP/2 path uniformly. Adapted from the teacher's
// fasthttpRequestHeaders/translateFromCtx pair in adaptor.go, inverted:
// the teacher copied HPACK fields onto a fasthttp.Request, this copies a
// fasthttp.RequestCtx onto our protocol-neutral h1.Request.
func requestFromCtx(ctx *fasthttp.RequestCtx) *h1.Request {
	req := &h1.Request{
		Method: h1.Method(ctx.Method()),
		URI: h1.URI{
			Scheme: string(ctx.URI().Scheme()),
			Host:   string(ctx.Host()),
			Path:   string(ctx.Path()),
			Query:  string(ctx.QueryArgs().QueryString()),
		},
		Headers: h1.Headers{},
		Entity:  h1.StrictEntity{Type: string(ctx.Request.Header.ContentType()), Body: ctx.PostBody()},
	}
	ctx.Request.Header.VisitAll(func(k, v []byte) {
		req.Headers = req.Headers.Add(string(k), string(v))
	})
	return req
}

// writeResponseToCtx renders an h1.Response produced by the shared
// handler back onto a fasthttp.RequestCtx.
func writeResponseToCtx(resp *h1.Response, ctx *fasthttp.RequestCtx) {
	ctx.SetStatusCode(resp.Status)
	resp.Headers.VisitAll(func(k, v string) {
		ctx.Response.Header.Set(k, v)
	})
	if se, ok := resp.Entity.(h1.StrictEntity); ok {
		if se.Type != "" {
			ctx.SetContentType(se.Type)
		}
		ctx.SetBody(se.Body)
	}
}
