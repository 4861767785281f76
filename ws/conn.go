package ws

import (
	"bufio"
	"errors"
	"net"
	"sync"
	"time"

	"github.com/vaporio/httpstack/herr"
)

// Conn is one established WebSocket connection: frame codec, message
// aggregator, and the close handshake FSM layered over a net.Conn (spec
// §4.5). Adapted from the betamos-Go-Websocket Conn's read-loop-plus-
// channel shape, generalized to support both connection roles, control
// frames interleaved with a fragmented data message, and a bounded close
// handshake instead of an unconditional discard loop.
type Conn struct {
	c  net.Conn
	br *bufio.Reader
	bw *bufio.Writer

	cfg Config

	agg   aggregator
	close closeFSM

	writeMu sync.Mutex

	closeOnce   sync.Once
	closeResult error

	lastActivity time.Time
	activityMu   sync.Mutex

	keepAliveTimer *time.Timer
	closeTimer     *time.Timer
}

// NewConn wraps an already-handshaken net.Conn.
func NewConn(c net.Conn, cfg Config) *Conn {
	return NewConnFromBufio(c, bufio.NewReader(c), bufio.NewWriter(c), cfg)
}

// NewConnFromBufio wraps c reusing caller-supplied buffers, for callers
// that already read the HTTP/1 handshake response off their own
// bufio.Reader and must not drop whatever it speculatively buffered past
// the header block (a fresh bufio.Reader over the same net.Conn would
// silently lose those bytes).
func NewConnFromBufio(c net.Conn, br *bufio.Reader, bw *bufio.Writer, cfg Config) *Conn {
	cfg = cfg.withDefaults()
	wc := &Conn{
		c:   c,
		br:  br,
		bw:  bw,
		cfg: cfg,
	}
	wc.touch()
	if cfg.KeepAliveMode != KeepAliveOff {
		wc.keepAliveTimer = time.AfterFunc(cfg.KeepAliveInterval, wc.sendKeepAlive)
	}
	return wc
}

func (c *Conn) touch() {
	c.activityMu.Lock()
	c.lastActivity = time.Now()
	c.activityMu.Unlock()
}

func (c *Conn) sendKeepAlive() {
	c.activityMu.Lock()
	idle := time.Since(c.lastActivity)
	c.activityMu.Unlock()
	if idle >= c.cfg.KeepAliveInterval {
		var payload []byte
		if c.cfg.KeepAliveData != nil {
			payload = c.cfg.KeepAliveData()
		}
		op := OpPing
		if c.cfg.KeepAliveMode == KeepAlivePong {
			op = OpPong
		}
		_ = c.writeFrame(op, true, payload)
	}
	if c.keepAliveTimer != nil {
		c.keepAliveTimer.Reset(c.cfg.KeepAliveInterval)
	}
}

func (c *Conn) writeFrame(op Opcode, fin bool, payload []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := WriteFrame(c.bw, op, fin, payload, !c.cfg.IsServer); err != nil {
		return err
	}
	return c.bw.Flush()
}

// WriteMessage sends a complete Text or Binary message as a single
// unfragmented frame (the Strict outgoing variant, spec §4.5).
func (c *Conn) WriteMessage(kind MessageKind, data []byte) error {
	op := OpBinary
	if kind == Text {
		op = OpText
	}
	return c.writeFrame(op, true, data)
}

// WriteStreamed sends a Text message as a sequence of frames, each ending
// on a UTF-8 code-point boundary (spec §4.5 Streamed outgoing variant).
// Only Text messages need boundary-aware chunking; binary streams can
// split anywhere, so callers of a Streamed binary message should use
// WriteMessage per chunk directly.
func (c *Conn) WriteStreamed(data []byte, frameSize int) error {
	if frameSize <= 0 {
		frameSize = 4096
	}
	first := true
	for len(data) > 0 {
		n := frameSize
		if n > len(data) {
			n = len(data)
		} else {
			n = textBoundary(data[:n])
			if n == 0 {
				n = frameSize // lone oversized sequence; best effort
			}
		}
		op := OpContinuation
		if first {
			op = OpText
		}
		fin := n == len(data)
		if err := c.writeFrame(op, fin, data[:n]); err != nil {
			return err
		}
		data = data[n:]
		first = false
	}
	return nil
}

// ReadMessage blocks for the next fully-aggregated message, transparently
// answering Ping with Pong and dropping Pong frames. Returns
// (nil, err) once the close handshake completes or the connection fails.
func (c *Conn) ReadMessage() (*Message, error) {
	for {
		f, err := ReadFrame(c.br, c.cfg.IsServer)
		if err != nil {
			return nil, err
		}
		c.touch()

		if c.close.FramesIgnored() {
			f.Release()
			continue
		}

		switch {
		case f.Opcode == OpPing:
			payload := append([]byte(nil), f.Payload...)
			f.Release()
			if err := c.writeFrame(OpPong, true, payload); err != nil {
				return nil, err
			}
			continue
		case f.Opcode == OpPong:
			f.Release()
			continue
		case f.Opcode == OpClose:
			code, reason, perr := ParseClosePayload(f.Payload)
			f.Release()
			wasLocalClosing := c.close.State() == LocalClosing
			c.close.PeerClose()
			if perr != nil {
				_ = c.sendClose(CloseProtocolError, "")
				_ = c.Shutdown()
				return nil, perr
			}
			if !wasLocalClosing {
				// peer-initiated close: echo it back (spec §4.5 close
				// handshake) before tearing down the transport.
				_ = c.sendClose(CloseNormal, "")
			}
			_ = c.Shutdown()
			return nil, herr.New(herr.Transport, "peer closed connection",
				reason, nil)
		}

		msg, ok, ferr := c.agg.Feed(f)
		f.Release()
		if ferr != nil {
			// Invalid UTF-8 in a text message is 1007; every other
			// aggregation failure (interleaved data frame, continuation
			// without an active message) is a state-machine violation, 1002.
			if errors.Is(ferr, errInvalidUTF8) {
				_ = c.Close(CloseInconsistentData, "")
			} else {
				_ = c.Close(CloseProtocolError, "")
			}
			return nil, ferr
		}
		if c.cfg.MaxMessageSize > 0 && int64(len(msg.Data)) > c.cfg.MaxMessageSize {
			_ = c.Close(CloseMessageTooBig, "")
			return nil, herr.New(herr.Protocol, "message exceeds max size", "", nil)
		}
		if ok {
			return &msg, nil
		}
	}
}

func (c *Conn) sendClose(code uint16, reason string) error {
	return c.writeFrame(OpClose, true, EncodeClosePayload(code, reason))
}

// Close performs the local half of the close handshake (spec §4.5:
// application completes output → emit Close(code)), then waits up to
// CloseTimeout for the peer's echo before forcing shutdown.
func (c *Conn) Close(code uint16, reason string) error {
	if err := c.sendClose(code, reason); err != nil {
		_ = c.Shutdown()
		return err
	}
	c.close.LocalClose()
	if c.close.State() == FullyClosed {
		return c.Shutdown()
	}
	c.closeTimer = time.AfterFunc(c.cfg.CloseTimeout, func() {
		c.close.Forced()
		_ = c.Shutdown()
	})
	return nil
}

// Shutdown tears down the underlying transport immediately, idempotently.
func (c *Conn) Shutdown() error {
	c.closeOnce.Do(func() {
		if c.keepAliveTimer != nil {
			c.keepAliveTimer.Stop()
		}
		if c.closeTimer != nil {
			c.closeTimer.Stop()
		}
		c.closeResult = c.c.Close()
	})
	return c.closeResult
}
