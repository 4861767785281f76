package h2

import "sync/atomic"

// Window tracks one side of one flow-control window (spec §4.4: every
// connection has a connection-level window at stream 0 plus one window
// per open stream; DATA debits both, WINDOW_UPDATE credits either).
// Grounded on the teacher's currentWindow/maxWindow fields in conn.go,
// generalized into a reusable type shared by the connection's window-0
// accounting and every Stream's per-stream accounting, and made safe for
// the concurrent readers/writers a multiplexed connection has.
type Window struct {
	max     int32
	current int32
}

func NewWindow(max int32) *Window {
	return &Window{max: max, current: max}
}

func (w *Window) Max() int32 { return atomic.LoadInt32(&w.max) }

func (w *Window) SetMax(max int32) {
	delta := max - atomic.LoadInt32(&w.max)
	atomic.StoreInt32(&w.max, max)
	atomic.AddInt32(&w.current, delta)
}

func (w *Window) Current() int32 { return atomic.LoadInt32(&w.current) }

// Debit consumes n bytes of credit, e.g. as a DATA frame is received or
// about to be sent.
func (w *Window) Debit(n int32) { atomic.AddInt32(&w.current, -n) }

// Credit(n) applies a WINDOW_UPDATE increment of n bytes.
func (w *Window) Credit(n int32) { atomic.AddInt32(&w.current, n) }

// WouldOverflow reports whether crediting n would push the window past
// 2^31-1 (spec §7 FlowControl: a WINDOW_UPDATE increment that overflows the
// window is a FLOW_CONTROL_ERROR, same as an increment of 0).
func (w *Window) WouldOverflow(n int32) bool {
	return int64(atomic.LoadInt32(&w.current))+int64(n) > MaxWindowSize
}

// NeedsReplenish reports whether the receive window has drained past the
// teacher's half-of-max threshold and should be topped back up with a
// WINDOW_UPDATE, returning the increment to send.
func (w *Window) NeedsReplenish() (increment int32, ok bool) {
	max := atomic.LoadInt32(&w.max)
	cur := atomic.LoadInt32(&w.current)
	if cur >= max/2 {
		return 0, false
	}
	increment = max - cur
	atomic.AddInt32(&w.current, increment)
	return increment, true
}
