package pool

import (
	"context"

	"github.com/vaporio/httpstack/h1"
)

// Future is the result of one Submit call: a response (or error) paired
// with the caller's opaque userCtx, preserved even when responses arrive
// out of submission order (spec §4.6 "Response correlation").
type Future struct {
	done chan result
}

type result struct {
	Response *h1.Response
	UserCtx  interface{}
	Err      error
}

func newFuture() *Future {
	return &Future{done: make(chan result, 1)}
}

func (f *Future) deliver(resp *h1.Response, userCtx interface{}, err error) {
	f.done <- result{Response: resp, UserCtx: userCtx, Err: err}
}

// Wait blocks for the response, or ctx's cancellation, or the
// connection's failure, returning the response, the userCtx passed to
// Submit unchanged, and any error.
func (f *Future) Wait(ctx context.Context) (*h1.Response, interface{}, error) {
	select {
	case r := <-f.done:
		return r.Response, r.UserCtx, r.Err
	case <-ctx.Done():
		return nil, nil, ctx.Err()
	}
}
