package pool

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/vaporio/httpstack/h1"
)

func TestFutureDeliversUserCtxUnchanged(t *testing.T) {
	f := newFuture()
	type ctxKey struct{ id int }
	want := ctxKey{id: 42}
	resp := &h1.Response{Status: 200}

	go f.deliver(resp, want, nil)

	gotResp, gotCtx, err := f.Wait(context.Background())
	assert.NoError(t, err)
	assert.Same(t, resp, gotResp)
	assert.Equal(t, want, gotCtx)
}

func TestFutureWaitRespectsContextCancellation(t *testing.T) {
	f := newFuture()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, _, err := f.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
