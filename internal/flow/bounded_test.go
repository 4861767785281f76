package flow

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChanSendRecv(t *testing.T) {
	ch := NewChan(1)
	ctx := context.Background()

	require.NoError(t, ch.Send(ctx, Chunk{B: []byte("hello")}))

	got, err := ch.Recv(ctx)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(got.B))
}

func TestChanSendBlocksOnCapacity(t *testing.T) {
	ch := NewChan(1)
	ctx := context.Background()

	require.NoError(t, ch.Send(ctx, Chunk{B: []byte("a")}))

	ctx2, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()

	err := ch.Send(ctx2, Chunk{B: []byte("b")})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestDemandWaitSignal(t *testing.T) {
	d := NewDemand(1)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := d.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	d.Signal()
	require.NoError(t, d.Wait(context.Background()))
}
