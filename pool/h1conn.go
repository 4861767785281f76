package pool

import (
	"bufio"
	"io"
	"net"
	"sync/atomic"
	"time"

	"github.com/vaporio/httpstack/h1"
	"github.com/vaporio/httpstack/herr"
)

// h1Conn is one pipelined HTTP/1.1 connection: requests are written as
// they're admitted (up to PipeliningLimit in flight) and responses are
// read back strictly in submission order, since HTTP/1 pipelining never
// reorders (spec §5 "Responses within a single HTTP/1 connection are
// delivered in request order").
//
// Grounded on the teacher's readLoop/writeLoop channel pair (client.go),
// replacing frame-oriented H2 I/O with h1.RenderRequest/h1.Parser and a
// FIFO of pending futures instead of a stream-id-keyed map.
type h1Conn struct {
	c  net.Conn
	br *bufio.Reader
	bw *bufio.Writer

	parser *h1.Parser

	pending chan *h1pending // FIFO, capacity == PipeliningLimit

	inflight int32

	closed int32
	lastErr error
	donec   chan struct{}

	onIdle func(*h1Conn)
}

type h1pending struct {
	req     *h1.Request
	userCtx interface{}
	future  *Future
}

func newH1Conn(c net.Conn, cfg *h1.Config, pipeliningLimit int) *h1Conn {
	hc := &h1Conn{
		c:       c,
		br:      bufio.NewReader(c),
		bw:      bufio.NewWriter(c),
		parser:  h1.NewParser(cfg),
		pending: make(chan *h1pending, pipeliningLimit),
		donec:   make(chan struct{}),
	}
	go hc.readLoop()
	return hc
}

// submit writes req immediately (pipelining admission is enforced by the
// caller via the pending channel's capacity) and enqueues its future for
// in-order correlation.
func (hc *h1Conn) submit(req *h1.Request, userCtx interface{}, future *Future) error {
	if atomic.LoadInt32(&hc.closed) != 0 {
		return herr.New(herr.Transport, "connection closed", "", nil)
	}
	atomic.AddInt32(&hc.inflight, 1)
	p := &h1pending{req: req, userCtx: userCtx, future: future}
	select {
	case hc.pending <- p:
	default:
		atomic.AddInt32(&hc.inflight, -1)
		return herr.New(herr.Transport, "pipelining limit exceeded", "", nil)
	}
	if err := h1.RenderRequest(hc.bw, req); err != nil {
		hc.fail(err)
		return err
	}
	if err := hc.bw.Flush(); err != nil {
		hc.fail(err)
		return err
	}
	return nil
}

func (hc *h1Conn) readLoop() {
	for {
		select {
		case p, ok := <-hc.pending:
			if !ok {
				return
			}
			resp, err := hc.parser.ParseResponse(hc.br, p.req.Method)
			atomic.AddInt32(&hc.inflight, -1)
			if err != nil {
				p.future.deliver(nil, p.userCtx, err)
				hc.fail(err)
				return
			}
			p.future.deliver(resp, p.userCtx, nil)
			if hc.Inflight() == 0 && hc.onIdle != nil {
				hc.onIdle(hc)
			}
		case <-hc.donec:
			return
		}
	}
}

func (hc *h1Conn) fail(err error) {
	if !atomic.CompareAndSwapInt32(&hc.closed, 0, 1) {
		return
	}
	hc.lastErr = err
	close(hc.donec)
	_ = hc.c.Close()
	// Drain and fail any requests still queued behind the failure.
	for {
		select {
		case p := <-hc.pending:
			p.future.deliver(nil, p.userCtx, err)
		default:
			return
		}
	}
}

func (hc *h1Conn) Close() error {
	hc.fail(io.ErrClosedPipe)
	return nil
}

func (hc *h1Conn) Closed() bool        { return atomic.LoadInt32(&hc.closed) != 0 }
func (hc *h1Conn) Inflight() int32     { return atomic.LoadInt32(&hc.inflight) }
func (hc *h1Conn) IdleSince(t time.Time) bool { return hc.Inflight() == 0 }
