package h2

import (
	"bufio"
	"context"
	"net"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/vaporio/httpstack/h1"
	"github.com/vaporio/httpstack/herr"
	"github.com/vaporio/httpstack/internal/flow"
)

// Conn is a client-side HTTP/2 connection: one TCP/TLS socket multiplexing
// many concurrent Exchanges. Adapted from the teacher's Conn, replacing
// its fasthttp.Request/Response plumbing with h1.Request/h1.Response and
// adding a real per-stream FSM, bidirectional flow control, and a FIFO
// admission queue instead of an immediate ErrNotAvailableStreams failure.
type Conn struct {
	c net.Conn

	br *bufio.Reader
	bw *bufio.Writer

	enc *HPACK
	dec *HPACK

	nextID uint32

	streams *Streams

	connSend *Window
	connRecv *Window

	local  Settings
	remote Settings

	admit chan struct{} // one slot per concurrently open stream allowed by remote

	in      chan *Exchange
	out     chan *FrameHeader
	pending chan *Exchange // exchanges waiting for an admit slot

	windowReady *flow.Demand

	opts ConnOpts

	unacked int32

	closed   int32
	lastErr  error
	closeMu  sync.Mutex
	doneOnce sync.Once
	donec    chan struct{}
}

// NewConn wraps c (already dialed, and TLS-negotiated for ALPN "h2" if
// applicable) in a client Conn. Call Handshake before Write.
func NewConn(c net.Conn, opts ConnOpts) *Conn {
	opts = opts.withDefaults()

	local := Settings{}
	local.SetInitialWindowSize(uint32(opts.InitialWindowSize))
	local.SetMaxConcurrentStreams(opts.MaxConcurrentStreams)
	local.SetEnablePush(false)

	return &Conn{
		c:           c,
		br:          bufio.NewReaderSize(c, 4096),
		bw:          bufio.NewWriterSize(c, defaultMaxLen),
		enc:         NewHPACK(),
		dec:         NewHPACK(),
		nextID:      1,
		streams:     NewStreams(),
		connSend:    NewWindow(MaxWindowSize),
		connRecv:    NewWindow(int32(opts.InitialWindowSize)),
		local:       local,
		remote:      *NewDefaultSettings(),
		admit:       make(chan struct{}, DefaultConcurrentStreams),
		in:          make(chan *Exchange, 128),
		out:         make(chan *FrameHeader, 128),
		pending:     make(chan *Exchange, 1024),
		windowReady: flow.NewDemand(8),
		opts:        opts,
		donec:       make(chan struct{}),
	}
}

// Handshake sends the connection preface, SETTINGS, and an initial
// connection-level WINDOW_UPDATE, then waits for the peer's SETTINGS.
func (c *Conn) Handshake() error {
	if err := WritePreface(c.bw); err != nil {
		return err
	}
	frh := AcquireFrameHeader()
	frh.SetBody(&c.local)
	if _, err := frh.WriteTo(c.bw); err != nil {
		ReleaseFrameHeader(frh)
		return err
	}
	ReleaseFrameHeader(frh)

	if extra := MaxWindowSize - int32(DefaultWindowSize); extra > 0 {
		frh = AcquireFrameHeader()
		wu := &WindowUpdate{}
		wu.SetIncrement(uint32(extra))
		frh.SetBody(wu)
		if _, err := frh.WriteTo(c.bw); err != nil {
			ReleaseFrameHeader(frh)
			return err
		}
		ReleaseFrameHeader(frh)
		c.connRecv.SetMax(MaxWindowSize)
	}

	if err := c.bw.Flush(); err != nil {
		return err
	}

	frh, err := ReadFrameFrom(c.br, 0)
	if err != nil {
		return err
	}
	st, ok := frh.Body().(*Settings)
	if !ok {
		ReleaseFrameHeader(frh)
		return herr.New(herr.Protocol, "expected SETTINGS as first frame", frh.Type().String(), nil)
	}
	c.applyRemoteSettings(st)
	ReleaseFrameHeader(frh)

	ack := AcquireFrameHeader()
	ackSt := &Settings{}
	ackSt.SetAck(true)
	ack.SetBody(ackSt)
	if _, err := ack.WriteTo(c.bw); err != nil {
		ReleaseFrameHeader(ack)
		return err
	}
	ReleaseFrameHeader(ack)
	if err := c.bw.Flush(); err != nil {
		return err
	}

	go c.writeLoop()
	go c.readLoop()
	return nil
}

func (c *Conn) applyRemoteSettings(st *Settings) {
	if st.Ack() {
		return
	}
	c.remote.Apply(st)
	if st.changed&chHeaderTableSize != 0 {
		c.enc.SetMaxDynamicTableSize(st.HeaderTableSize)
	}
	if st.changed&chMaxConcurrentStreams != 0 {
		c.resizeAdmit(int(st.MaxConcurrentStreams))
	}
}

func (c *Conn) resizeAdmit(n int) {
	if n <= 0 || n == cap(c.admit) {
		return
	}
	na := make(chan struct{}, n)
	close(c.admit)
	for range c.admit {
		na <- struct{}{}
	}
	c.admit = na
}

// Closed reports whether the connection has torn down.
func (c *Conn) Closed() bool { return atomic.LoadInt32(&c.closed) == 1 }

// Close sends GOAWAY(NO_ERROR) and closes the socket.
func (c *Conn) Close() error {
	return c.abort(ErrCodeNo, "")
}

// abort sends GOAWAY(code) and tears the connection down; used both for a
// graceful Close (ErrCodeNo) and for a connection-level protocol violation
// detected while reading (spec §7 FlowControl: a bad WINDOW_UPDATE).
func (c *Conn) abort(code ErrorCode, msg string) error {
	if !atomic.CompareAndSwapInt32(&c.closed, 0, 1) {
		return nil
	}
	c.closeMu.Lock()
	defer c.closeMu.Unlock()

	frh := AcquireFrameHeader()
	ga := &GoAway{}
	ga.SetCode(code)
	if msg != "" {
		ga.SetDebugData([]byte(msg))
	}
	frh.SetBody(ga)
	_, _ = frh.WriteTo(c.bw)
	_ = c.bw.Flush()
	ReleaseFrameHeader(frh)

	if code != ErrCodeNo {
		c.lastErr = NewConnError(code, msg)
	}

	err := c.c.Close()
	c.doneOnce.Do(func() { close(c.donec) })
	if c.opts.OnDisconnect != nil {
		c.opts.OnDisconnect(c)
	}
	return err
}

// writeReset sends RST_STREAM(code) for one stream, without tearing down
// the rest of the connection (spec §7: a stream-level flow-control
// violation aborts only that stream).
func (c *Conn) writeReset(streamID uint32, code ErrorCode) {
	frh := AcquireFrameHeader()
	frh.SetStream(streamID)
	r := &RstStream{}
	r.SetCode(code)
	frh.SetBody(r)
	c.out <- frh
}

// Do submits req and returns its Exchange without waiting for the
// response; Exchange.Wait blocks until the response arrives or the
// exchange fails. It admits immediately if under
// SETTINGS_MAX_CONCURRENT_STREAMS, otherwise queues FIFO (spec §8
// scenario 5) until a slot frees up, blocking only while that queue is full.
func (c *Conn) Do(ctx context.Context, req *h1.Request) (*Exchange, error) {
	if c.Closed() {
		return nil, herr.New(herr.Transport, "connection closed", "", nil)
	}
	ex := newExchange(0, req)
	select {
	case c.admit <- struct{}{}:
		c.submit(ex)
	default:
		select {
		case c.pending <- ex:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return ex, nil
}

func (c *Conn) submit(ex *Exchange) {
	id := atomic.AddUint32(&c.nextID, 2) - 2
	if id == 0 {
		id = 1
	}
	ex.StreamID = id
	strm := NewStream(id, c.remote.initialWindowOrDefault(int32(DefaultWindowSize)), ex)
	c.streams.Insert(strm)
	c.in <- ex
}

func (s *Settings) initialWindowOrDefault(def int32) int32 {
	if s.InitialWindowSize == 0 {
		return def
	}
	return int32(s.InitialWindowSize)
}

func (c *Conn) writeLoop() {
	defer func() { _ = c.Close() }()

	ticker := time.NewTicker(c.opts.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case ex, ok := <-c.in:
			if !ok {
				return
			}
			if err := c.writeRequest(ex); err != nil {
				c.streams.Del(ex.StreamID)
				ex.finish(err)
				c.admitNext()
				continue
			}
		case frh := <-c.out:
			_, err := frh.WriteTo(c.bw)
			ReleaseFrameHeader(frh)
			if err == nil {
				err = c.bw.Flush()
			}
			if err != nil {
				c.lastErr = err
				return
			}
		case <-ticker.C:
			if c.opts.DisablePingChecking {
				continue
			}
			if atomic.LoadInt32(&c.unacked) > 0 && time.Duration(atomic.LoadInt32(&c.unacked))*c.opts.PingInterval > c.opts.PingTimeout {
				_ = c.abort(ErrCodeProtocol, "ping timeout")
				return
			}
			if err := c.writePing(false, [8]byte{}); err != nil {
				c.lastErr = err
				return
			}
			atomic.AddInt32(&c.unacked, 1)
		case <-c.donec:
			return
		}
	}
}

func (c *Conn) admitNext() {
	select {
	case ex := <-c.pending:
		c.submit(ex)
	default:
		select {
		case <-c.admit:
		default:
		}
	}
}

func (c *Conn) writePing(ack bool, data [8]byte) error {
	frh := AcquireFrameHeader()
	defer ReleaseFrameHeader(frh)
	p := &Ping{}
	p.SetAck(ack)
	p.SetData(data[:])
	frh.SetBody(p)
	if _, err := frh.WriteTo(c.bw); err != nil {
		return err
	}
	return c.bw.Flush()
}

func (c *Conn) writeRequest(ex *Exchange) error {
	req := ex.Request
	hasBody := false
	var body []byte
	if se, ok := req.Entity.(h1.StrictEntity); ok && len(se.Body) > 0 {
		hasBody = true
		body = se.Body
	}

	frh := AcquireFrameHeader()
	frh.SetStream(ex.StreamID)
	h := &Headers{}
	frh.SetBody(h)

	hf := AcquireHeaderField()
	defer ReleaseHeaderField(hf)

	hf.Set(PseudoMethod, string(req.Method))
	h.AppendHeaderField(c.enc, hf, true)
	hf.Set(PseudoScheme, orDefault(req.URI.Scheme, "https"))
	h.AppendHeaderField(c.enc, hf, true)
	hf.Set(PseudoAuthority, req.URI.Host)
	h.AppendHeaderField(c.enc, hf, true)
	hf.Set(PseudoPath, req.URI.String())
	h.AppendHeaderField(c.enc, hf, true)

	req.Headers.VisitAll(func(raw, value string) {
		hf.Set(strings.ToLower(raw), value)
		h.AppendHeaderField(c.enc, hf, false)
	})

	h.SetEndStream(!hasBody)
	h.SetEndHeaders(true)

	strm := c.streams.Get(ex.StreamID)
	if strm != nil {
		_ = strm.SendHeaders()
	}

	if _, err := frh.WriteTo(c.bw); err != nil {
		ReleaseFrameHeader(frh)
		return err
	}
	ReleaseFrameHeader(frh)

	if hasBody {
		if err := c.writeData(ex.StreamID, body); err != nil {
			return err
		}
	} else if strm != nil {
		_ = strm.SendEndStream()
	}
	return c.bw.Flush()
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

// writeData emits body as a sequence of DATA frames bounded by the peer's
// MaxFrameSize and both flow-control windows, blocking on windowReady
// when credit runs out (spec §4.4 flow control; the flow package's Demand
// is the wake-up primitive so this goroutine doesn't busy-poll).
func (c *Conn) writeData(streamID uint32, body []byte) error {
	strm := c.streams.Get(streamID)
	step := int(c.remote.MaxFrameSize)
	if step == 0 {
		step = 1 << 14
	}

	for len(body) > 0 {
		for c.connSend.Current() <= 0 || (strm != nil && strm.SendWindow().Current() <= 0) {
			if err := c.windowReady.Wait(context.Background()); err != nil {
				return err
			}
		}
		n := step
		avail := int(c.connSend.Current())
		if strm != nil {
			if sa := int(strm.SendWindow().Current()); sa < avail {
				avail = sa
			}
		}
		if n > avail {
			n = avail
		}
		if n > len(body) {
			n = len(body)
		}

		frh := AcquireFrameHeader()
		frh.SetStream(streamID)
		d := &Data{}
		d.SetData(body[:n])
		d.SetEndStream(n == len(body))
		frh.SetBody(d)

		if _, err := frh.WriteTo(c.bw); err != nil {
			ReleaseFrameHeader(frh)
			return err
		}
		ReleaseFrameHeader(frh)

		c.connSend.Debit(int32(n))
		if strm != nil {
			strm.SendWindow().Debit(int32(n))
		}
		body = body[n:]
	}
	if strm != nil {
		_ = strm.SendEndStream()
	}
	return nil
}

func (c *Conn) readLoop() {
	defer func() { _ = c.Close() }()

	for {
		frh, err := ReadFrameFrom(c.br, uint32(c.local.MaxFrameSize))
		if err != nil {
			c.lastErr = err
			return
		}
		if frh.Stream() == 0 {
			c.handleConnFrame(frh)
			ReleaseFrameHeader(frh)
			continue
		}
		c.handleStreamFrame(frh)
		ReleaseFrameHeader(frh)
	}
}

func (c *Conn) handleConnFrame(frh *FrameHeader) {
	switch frh.Type() {
	case FrameSettings:
		st := frh.Body().(*Settings)
		if st.Ack() {
			return
		}
		c.applyRemoteSettings(st)
		out := AcquireFrameHeader()
		ack := &Settings{}
		ack.SetAck(true)
		out.SetBody(ack)
		c.out <- out
	case FrameWindowUpdate:
		wu := frh.Body().(*WindowUpdate)
		if wu.Increment() == 0 {
			_ = c.abort(ErrCodeFlowControl, "window increment of 0")
			return
		}
		if c.connSend.WouldOverflow(int32(wu.Increment())) {
			_ = c.abort(ErrCodeFlowControl, "window update overflow")
			return
		}
		c.connSend.Credit(int32(wu.Increment()))
		c.windowReady.Signal()
	case FramePing:
		p := frh.Body().(*Ping)
		if p.Ack() {
			atomic.AddInt32(&c.unacked, -1)
			return
		}
		out := AcquireFrameHeader()
		reply := &Ping{}
		reply.SetAck(true)
		var d [8]byte
		copy(d[:], p.Data())
		reply.SetData(d[:])
		out.SetBody(reply)
		c.out <- out
	case FrameGoAway:
		ga := frh.Body().(*GoAway)
		c.lastErr = NewConnError(ga.Code(), "peer sent GOAWAY")
	}
}

func (c *Conn) handleStreamFrame(frh *FrameHeader) {
	strm := c.streams.Get(frh.Stream())
	if strm == nil {
		return
	}
	ex, _ := strm.Data().(*Exchange)
	if ex == nil {
		return
	}

	switch frh.Type() {
	case FrameHeaders, FrameContinuation:
		fh := frh.Body().(FrameWithHeaders)
		fields, err := c.dec.Decode(fh.Headers())
		if err != nil {
			ex.finish(err)
			return
		}
		c.applyResponseHeaders(ex, fields)
		ReleaseFields(fields)
		if h, ok := frh.Body().(*Headers); ok && h.EndStream() {
			_ = strm.RecvEndStream()
			c.finishExchange(strm, ex, nil)
		}
	case FrameData:
		d := frh.Body().(*Data)
		if d.Len() > 0 {
			if ex.Response != nil {
				if se, ok := ex.Response.Entity.(h1.StrictEntity); ok {
					se.Body = append(se.Body, d.Bytes()...)
					ex.Response.Entity = se
				}
			}
			c.connRecv.Debit(int32(d.Len()))
			strm.RecvWindow().Debit(int32(d.Len()))
			c.replenish(strm)
		}
		if d.EndStream() {
			_ = strm.RecvEndStream()
			c.finishExchange(strm, ex, nil)
		}
	case FrameWindowUpdate:
		wu := frh.Body().(*WindowUpdate)
		if wu.Increment() == 0 || strm.SendWindow().WouldOverflow(int32(wu.Increment())) {
			_ = strm.SendRstStream()
			c.writeReset(strm.ID(), ErrCodeFlowControl)
			c.finishExchange(strm, ex, NewStreamError(ErrCodeFlowControl, "window update overflow"))
			return
		}
		strm.SendWindow().Credit(int32(wu.Increment()))
		c.windowReady.Signal()
	case FrameResetStream:
		r := frh.Body().(*RstStream)
		_ = strm.RecvRstStream()
		c.finishExchange(strm, ex, NewStreamError(r.Code(), "stream reset by peer"))
	}
}

func (c *Conn) replenish(strm *Stream) {
	if inc, ok := strm.RecvWindow().NeedsReplenish(); ok {
		out := AcquireFrameHeader()
		out.SetStream(strm.ID())
		wu := &WindowUpdate{}
		wu.SetIncrement(uint32(inc))
		out.SetBody(wu)
		c.out <- out
	}
	if inc, ok := c.connRecv.NeedsReplenish(); ok {
		out := AcquireFrameHeader()
		wu := &WindowUpdate{}
		wu.SetIncrement(uint32(inc))
		out.SetBody(wu)
		c.out <- out
	}
}

func (c *Conn) applyResponseHeaders(ex *Exchange, fields []*HeaderField) {
	if ex.Response == nil {
		ex.Response = &h1.Response{Headers: h1.Headers{}, Entity: h1.StrictEntity{}}
	}
	seenHeaders := ex.Response.Status != 0
	for _, hf := range fields {
		if hf.IsPseudo() {
			if hf.Key() == PseudoStatus {
				n, err := strconv.Atoi(hf.Value())
				if err == nil {
					ex.Response.Status = n
					ex.Response.Reason = h1.ReasonFor(n, nil)
				}
			}
			continue
		}
		if hf.Key() == "content-type" {
			if se, ok := ex.Response.Entity.(h1.StrictEntity); ok {
				se.Type = hf.Value()
				ex.Response.Entity = se
			}
		}
		if seenHeaders {
			ex.Trailers = ex.Trailers.Add(hf.Key(), hf.Value())
		} else {
			ex.Response.Headers = ex.Response.Headers.Add(hf.Key(), hf.Value())
		}
	}
}

func (c *Conn) finishExchange(strm *Stream, ex *Exchange, err error) {
	c.streams.Del(strm.ID())
	ex.finish(err)
	c.admitNext()
}

// LastErr returns the error that tore the connection down, if any.
func (c *Conn) LastErr() error { return c.lastErr }
