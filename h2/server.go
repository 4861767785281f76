package h2

import (
	"bufio"
	"net"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/vaporio/httpstack/h1"
)

// ServerConn is a server-side HTTP/2 connection: the mirror of Conn,
// driven by an accepted net.Conn instead of a dialed one. Adapted from
// the teacher's serverConn, replacing its fasthttp.RequestCtx/handler
// plumbing with the shared h1.Request/h1.Response Exchange type and the
// typed per-stream FSM from stream.go instead of the teacher's informal
// StreamState ints.
type ServerConn struct {
	c net.Conn

	br *bufio.Reader
	bw *bufio.Writer

	enc *HPACK
	dec *HPACK

	lastID uint32

	streams *Streams

	connSend *Window
	connRecv *Window

	local  Settings
	remote Settings

	opts ServerOpts

	out chan *FrameHeader

	openStreams int32

	// closeRef is the highest stream id that was valid when GOAWAY was
	// sent; the connection stays open until every stream at or below it
	// has closed (spec §4.4 graceful completion).
	closeRef uint32
	closing  int32

	pingTimer    *time.Timer
	idleTimer    *time.Timer
	requestTimer *time.Timer

	closer   chan struct{}
	closeMu  sync.Mutex
	doneOnce sync.Once
}

// NewServerConn wraps an accepted connection. Call Serve to run it.
func NewServerConn(c net.Conn, opts ServerOpts) *ServerConn {
	opts = opts.withDefaults()

	local := Settings{}
	local.SetInitialWindowSize(uint32(opts.InitialWindowSize))
	local.SetMaxConcurrentStreams(opts.MaxConcurrentStreams)
	if opts.MaxHeaderListSize > 0 {
		local.SetMaxHeaderListSize(opts.MaxHeaderListSize)
	}

	return &ServerConn{
		c:        c,
		br:       bufio.NewReaderSize(c, 4096),
		bw:       bufio.NewWriterSize(c, defaultMaxLen),
		enc:      NewHPACK(),
		dec:      NewHPACK(),
		streams:  NewStreams(),
		connSend: NewWindow(MaxWindowSize),
		connRecv: NewWindow(int32(opts.InitialWindowSize)),
		local:    local,
		remote:   *NewDefaultSettings(),
		opts:     opts,
		out:      make(chan *FrameHeader, 128),
		closer:   make(chan struct{}),
	}
}

// Handshake reads the client connection preface and exchanges initial
// SETTINGS (spec §6 "Server preface: an initial SETTINGS frame").
func (sc *ServerConn) Handshake() error {
	if err := ReadPreface(sc.br); err != nil {
		return err
	}
	frh := AcquireFrameHeader()
	frh.SetBody(&sc.local)
	if _, err := frh.WriteTo(sc.bw); err != nil {
		ReleaseFrameHeader(frh)
		return err
	}
	ReleaseFrameHeader(frh)
	return sc.bw.Flush()
}

// Serve runs the connection's read and write loops until the peer
// disconnects or a connection-level error tears it down. Each completed
// request/trailer set is dispatched to opts.Handler synchronously on the
// read loop's goroutine, matching the teacher's single-threaded-per-
// connection scheduling model (spec §5).
func (sc *ServerConn) Serve() error {
	if sc.opts.MaxIdleTime > 0 {
		sc.idleTimer = time.AfterFunc(sc.opts.MaxIdleTime, sc.closeIdle)
	}
	if sc.opts.PingInterval > 0 {
		sc.pingTimer = time.AfterFunc(sc.opts.PingInterval, sc.sendPing)
	}

	go sc.writeLoop()

	err := sc.readLoop()
	sc.teardownTimers()
	sc.doneOnce.Do(func() { close(sc.closer) })
	_ = sc.c.Close()
	return err
}

func (sc *ServerConn) teardownTimers() {
	if sc.pingTimer != nil {
		sc.pingTimer.Stop()
	}
	if sc.idleTimer != nil {
		sc.idleTimer.Stop()
	}
	if sc.requestTimer != nil {
		sc.requestTimer.Stop()
	}
}

func (sc *ServerConn) closeIdle() {
	sc.writeGoAway(ErrCodeNo, "idle timeout")
}

func (sc *ServerConn) sendPing() {
	sc.writePing(false, [8]byte{})
	sc.pingTimer.Reset(sc.opts.PingInterval)
}

func (sc *ServerConn) writeLoop() {
	for {
		select {
		case frh, ok := <-sc.out:
			if !ok {
				return
			}
			_, err := frh.WriteTo(sc.bw)
			ReleaseFrameHeader(frh)
			if err == nil && len(sc.out) == 0 {
				err = sc.bw.Flush()
			}
			if err != nil {
				return
			}
		case <-sc.closer:
			return
		}
	}
}

func (sc *ServerConn) readLoop() error {
	for {
		frh, err := ReadFrameFrom(sc.br, uint32(sc.local.MaxFrameSize))
		if err != nil {
			return err
		}
		if frh.Stream() == 0 {
			sc.handleConnFrame(frh)
			ReleaseFrameHeader(frh)
			continue
		}
		if frh.Stream()&1 == 0 {
			ReleaseFrameHeader(frh)
			sc.writeGoAway(ErrCodeProtocol, "even stream id from client")
			continue
		}
		done, err := sc.handleStreamFrame(frh)
		ReleaseFrameHeader(frh)
		if err != nil {
			return err
		}
		if done {
			return nil
		}
	}
}

func (sc *ServerConn) handleConnFrame(frh *FrameHeader) {
	switch frh.Type() {
	case FrameSettings:
		st := frh.Body().(*Settings)
		if st.Ack() {
			return
		}
		sc.remote.Apply(st)
		if st.changed&chHeaderTableSize != 0 {
			sc.enc.SetMaxDynamicTableSize(st.HeaderTableSize)
		}
		out := AcquireFrameHeader()
		ack := &Settings{}
		ack.SetAck(true)
		out.SetBody(ack)
		sc.out <- out
	case FrameWindowUpdate:
		wu := frh.Body().(*WindowUpdate)
		if wu.Increment() == 0 {
			sc.writeGoAway(ErrCodeProtocol, "window increment of 0")
			return
		}
		sc.connSend.Credit(int32(wu.Increment()))
	case FramePing:
		p := frh.Body().(*Ping)
		if p.Ack() {
			return
		}
		var d [8]byte
		copy(d[:], p.Data())
		sc.writePing(true, d)
	case FrameGoAway:
		// client going away; readLoop will observe EOF shortly.
	}
}

func (sc *ServerConn) writePing(ack bool, data [8]byte) {
	frh := AcquireFrameHeader()
	p := &Ping{}
	p.SetAck(ack)
	p.SetData(data[:])
	frh.SetBody(p)
	sc.out <- frh
}

// handleStreamFrame dispatches one stream-scoped frame, creating the
// stream on its first HEADERS per RFC 7540 §5.1.1, and reports whether
// the connection should stop serving (a GOAWAY-past-closeRef condition
// with no streams left open).
func (sc *ServerConn) handleStreamFrame(frh *FrameHeader) (done bool, err error) {
	strm := sc.streams.Get(frh.Stream())
	if strm == nil {
		if frh.Type() != FrameHeaders {
			if frh.Type() == FramePriority {
				return false, nil
			}
			sc.writeReset(frh.Stream(), ErrCodeStreamClosed)
			return false, nil
		}
		if frh.Stream() < atomic.LoadUint32(&sc.lastID) {
			sc.writeGoAway(ErrCodeProtocol, "stream id lower than latest")
			return false, nil
		}
		if atomic.LoadInt32(&sc.closing) == 1 {
			sc.writeReset(frh.Stream(), ErrCodeRefusedStream)
			return false, nil
		}
		if int(atomic.LoadInt32(&sc.openStreams)) >= int(sc.local.MaxConcurrentStreams) {
			sc.writeReset(frh.Stream(), ErrCodeRefusedStream)
			return false, nil
		}
		atomic.StoreUint32(&sc.lastID, frh.Stream())
		atomic.AddInt32(&sc.openStreams, 1)
		ex := newExchange(frh.Stream(), nil)
		ex.Response = nil
		strm = NewStream(frh.Stream(), sc.remote.initialWindowOrDefault(int32(DefaultWindowSize)), ex)
		sc.streams.Insert(strm)
	}

	ex, _ := strm.Data().(*Exchange)

	switch frh.Type() {
	case FrameHeaders, FrameContinuation:
		if err := strm.RecvHeaders(); err != nil {
			// trailers after data: the stream is already Open, this is
			// legal only with END_STREAM set (spec §4.4 trailing headers).
		}
		fields, derr := sc.dec.Decode(frh.Body().(FrameWithHeaders).Headers())
		if derr != nil {
			sc.writeGoAway(ErrCodeCompression, "hpack decode failed")
			return false, nil
		}
		sc.applyRequestHeaders(ex, fields)
		ReleaseFields(fields)
		if h, ok := frh.Body().(*Headers); ok && h.EndStream() {
			_ = strm.RecvEndStream()
			sc.dispatch(strm, ex)
		}
	case FrameData:
		if d, ok := frh.Body().(*Data); ok {
			if d.Len() > 0 {
				if ex.Request != nil {
					if se, ok := ex.Request.Entity.(h1.StrictEntity); ok {
						se.Body = append(se.Body, d.Bytes()...)
						ex.Request.Entity = se
					}
				}
				sc.connRecv.Debit(int32(d.Len()))
				strm.RecvWindow().Debit(int32(d.Len()))
				sc.replenish(strm)
			}
			if d.EndStream() {
				_ = strm.RecvEndStream()
				sc.dispatch(strm, ex)
			}
		}
	case FrameResetStream:
		_ = strm.RecvRstStream()
		sc.closeStream(strm)
	case FrameWindowUpdate:
		wu := frh.Body().(*WindowUpdate)
		if wu.Increment() == 0 {
			sc.writeReset(strm.ID(), ErrCodeProtocol)
			return false, nil
		}
		strm.SendWindow().Credit(int32(wu.Increment()))
	case FramePriority:
		// accepted and ignored; this implementation does not reprioritize.
	}

	if sc.closing == 1 {
		ref := atomic.LoadUint32(&sc.closeRef)
		if ref != 0 && sc.streams.Len() == 0 {
			return true, nil
		}
	}
	return false, nil
}

func (sc *ServerConn) replenish(strm *Stream) {
	if inc, ok := strm.RecvWindow().NeedsReplenish(); ok {
		out := AcquireFrameHeader()
		out.SetStream(strm.ID())
		wu := &WindowUpdate{}
		wu.SetIncrement(uint32(inc))
		out.SetBody(wu)
		sc.out <- out
	}
	if inc, ok := sc.connRecv.NeedsReplenish(); ok {
		out := AcquireFrameHeader()
		wu := &WindowUpdate{}
		wu.SetIncrement(uint32(inc))
		out.SetBody(wu)
		sc.out <- out
	}
}

func (sc *ServerConn) applyRequestHeaders(ex *Exchange, fields []*HeaderField) {
	if ex.Request == nil {
		ex.Request = &h1.Request{Headers: h1.Headers{}, Entity: h1.StrictEntity{}}
	}
	req := ex.Request
	for _, hf := range fields {
		if hf.IsPseudo() {
			switch hf.Key() {
			case PseudoMethod:
				req.Method = h1.Method(hf.Value())
			case PseudoPath:
				req.URI.Path = hf.Value()
			case PseudoAuthority:
				req.URI.Host = hf.Value()
			case PseudoScheme:
				req.URI.Scheme = hf.Value()
			}
			continue
		}
		if hf.Key() == "content-type" {
			if se, ok := req.Entity.(h1.StrictEntity); ok {
				se.Type = hf.Value()
				req.Entity = se
			}
		}
		req.Headers = req.Headers.Add(hf.Key(), hf.Value())
	}
}

// dispatch runs the handler once a request (headers + any DATA) is
// complete, then frames the response back onto the stream.
func (sc *ServerConn) dispatch(strm *Stream, ex *Exchange) {
	if sc.opts.Handler != nil {
		sc.opts.Handler(ex)
	}
	sc.writeResponse(strm, ex)
	sc.closeStream(strm)
}

func (sc *ServerConn) writeResponse(strm *Stream, ex *Exchange) {
	if ex.Response == nil {
		ex.Response = &h1.Response{Status: 500, Headers: h1.Headers{}, Entity: h1.StrictEntity{}}
	}
	res := ex.Response

	var body []byte
	if se, ok := res.Entity.(h1.StrictEntity); ok {
		body = se.Body
	}
	hasBody := len(body) > 0

	frh := AcquireFrameHeader()
	frh.SetStream(strm.ID())
	h := &Headers{}
	frh.SetBody(h)

	hf := AcquireHeaderField()
	defer ReleaseHeaderField(hf)

	hf.Set(PseudoStatus, strconv.Itoa(res.Status))
	_ = h.AppendHeaderField(sc.enc, hf, true)

	res.Headers.VisitAll(func(raw, value string) {
		hf.Set(raw, value)
		_ = h.AppendHeaderField(sc.enc, hf, false)
	})

	h.SetEndHeaders(true)
	h.SetEndStream(!hasBody)
	_ = strm.SendHeaders()
	if !hasBody {
		_ = strm.SendEndStream()
	}

	sc.out <- frh

	if hasBody {
		sc.writeData(strm, body)
	}
}

func (sc *ServerConn) writeData(strm *Stream, body []byte) {
	step := int(sc.remote.MaxFrameSize)
	if step == 0 {
		step = 1 << 14
	}
	if w := int(strm.SendWindow().Current()); w > 0 && w < step {
		step = w
	}
	for i := 0; i < len(body); i += step {
		end := i+step >= len(body)
		n := step
		if end {
			n = len(body) - i
		}
		frh := AcquireFrameHeader()
		frh.SetStream(strm.ID())
		d := &Data{}
		d.SetData(body[i : i+n])
		d.SetEndStream(end)
		frh.SetBody(d)
		sc.out <- frh
	}
	_ = strm.SendEndStream()
}

func (sc *ServerConn) closeStream(strm *Stream) {
	sc.streams.Del(strm.ID())
	atomic.AddInt32(&sc.openStreams, -1)
}

func (sc *ServerConn) writeReset(streamID uint32, code ErrorCode) {
	frh := AcquireFrameHeader()
	frh.SetStream(streamID)
	r := &RstStream{}
	r.SetCode(code)
	frh.SetBody(r)
	sc.out <- frh
}

// writeGoAway begins graceful shutdown: streams already open (id <=
// lastID) are allowed to finish, but no new ones are accepted (spec §4.4
// GOAWAY).
func (sc *ServerConn) writeGoAway(code ErrorCode, reason string) {
	atomic.StoreInt32(&sc.closing, 1)
	ref := atomic.LoadUint32(&sc.lastID)
	atomic.StoreUint32(&sc.closeRef, ref)
	if ref == 0 {
		ref = 1
	}

	frh := AcquireFrameHeader()
	ga := &GoAway{}
	ga.SetLastStreamID(ref)
	ga.SetCode(code)
	ga.SetDebugData([]byte(reason))
	frh.SetBody(ga)
	sc.out <- frh
}
