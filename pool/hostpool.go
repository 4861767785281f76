package pool

import (
	"context"
	"crypto/tls"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/vaporio/httpstack/h1"
	"github.com/vaporio/httpstack/h2"
	"github.com/vaporio/httpstack/herr"
)

// HostPool owns up to Options.MaxConnections connections to one PoolID,
// multiplexing Submit calls across them and queueing beyond capacity
// (spec §4.6 "Per-host admission"). A pool with zero connections for
// IdleTimeout is torn down by the owning Registry and transparently
// recreated on the next Submit.
type HostPool struct {
	id   PoolID
	opts Options
	cfg  h1.Config

	mu      sync.Mutex
	h1conns []*h1Conn
	h2conns []*h2.Conn

	lastActive time.Time
	closed     bool
}

func newHostPool(id PoolID, opts Options, cfg h1.Config) *HostPool {
	return &HostPool{id: id, opts: opts, cfg: cfg, lastActive: time.Now()}
}

// Submit admits req onto a connection in this pool (dialing one if under
// MaxConnections and none has a free slot), and returns a Future
// correlating the eventual response back to userCtx (spec §4.6). When the
// pool is at capacity it re-polls every 5ms until a slot frees up or ctx
// is done; waiting callers are not served in submission order.
func (p *HostPool) Submit(ctx context.Context, req *h1.Request, userCtx interface{}) (*Future, error) {
	future := newFuture()

	attempt := func() (bool, error) {
		p.mu.Lock()
		p.lastActive = time.Now()
		if p.closed {
			p.mu.Unlock()
			return false, herr.New(herr.Transport, "pool shut down", "", nil)
		}

		for _, hc := range p.h2conns {
			if !hc.Closed() {
				p.mu.Unlock()
				return p.submitH2(ctx, hc, req, userCtx, future)
			}
		}
		for _, hc := range p.h1conns {
			if !hc.Closed() && hc.Inflight() < int32(p.opts.PipeliningLimit) {
				p.mu.Unlock()
				if err := hc.submit(req, userCtx, future); err != nil {
					return false, err
				}
				return true, nil
			}
		}
		if len(p.h1conns)+len(p.h2conns) < p.opts.MaxConnections {
			p.mu.Unlock()
			conn, isH2, err := p.dial(ctx)
			if err != nil {
				return false, err
			}
			p.mu.Lock()
			if isH2 {
				p.h2conns = append(p.h2conns, conn.(*h2.Conn))
			} else {
				p.h1conns = append(p.h1conns, conn.(*h1Conn))
			}
			p.mu.Unlock()
			if isH2 {
				return p.submitH2(ctx, conn.(*h2.Conn), req, userCtx, future)
			}
			if err := conn.(*h1Conn).submit(req, userCtx, future); err != nil {
				return false, err
			}
			return true, nil
		}
		p.mu.Unlock()
		return false, nil // queue: at capacity, every connection busy
	}

	for {
		admitted, err := attempt()
		if err != nil {
			return nil, err
		}
		if admitted {
			return future, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(5 * time.Millisecond):
			// Re-poll for a freed slot. A condvar/signal channel would avoid
			// the poll, but connections complete in tens of milliseconds at
			// typical pipelining depths, so this bounds queueing latency
			// cheaply without extra bookkeeping per completed request.
		}
	}
}

func (p *HostPool) submitH2(ctx context.Context, hc *h2.Conn, req *h1.Request, userCtx interface{}, future *Future) (bool, error) {
	ex, err := hc.Do(ctx, req)
	if err != nil {
		return false, err
	}
	go func() {
		err := ex.Wait()
		future.deliver(ex.Response, userCtx, err)
	}()
	return true, nil
}

// dial opens a new transport-level connection for this pool's id,
// negotiating H2 via ALPN when Encrypted, otherwise H1.
func (p *HostPool) dial(ctx context.Context) (interface{}, bool, error) {
	dialer := net.Dialer{Timeout: p.opts.ConnectTimeout}
	addr := net.JoinHostPort(p.id.Host, portString(p.id.Port))

	if !p.id.Encrypted {
		c, err := dialer.DialContext(ctx, "tcp", addr)
		if err != nil {
			return nil, false, err
		}
		hc := newH1Conn(c, &p.cfg, p.opts.PipeliningLimit)
		hc.onIdle = p.onH1Idle
		return hc, false, nil
	}

	tlsCfg := p.opts.TLSConfig
	if tlsCfg == nil {
		tlsCfg = &tls.Config{}
	}
	tlsCfg = tlsCfg.Clone()
	tlsCfg.ServerName = p.id.Host
	tlsCfg.NextProtos = []string{"h2", "http/1.1"}

	rawConn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, false, err
	}
	tlsConn := tls.Client(rawConn, tlsCfg)
	if err := tlsConn.HandshakeContext(ctx); err != nil {
		_ = rawConn.Close()
		return nil, false, err
	}

	if tlsConn.ConnectionState().NegotiatedProtocol == "h2" {
		conn := h2.NewConn(tlsConn, h2.ConnOpts{OnDisconnect: p.onH2Disconnect})
		if err := conn.Handshake(); err != nil {
			_ = tlsConn.Close()
			return nil, false, err
		}
		return conn, true, nil
	}
	hc := newH1Conn(tlsConn, &p.cfg, p.opts.PipeliningLimit)
	hc.onIdle = p.onH1Idle
	return hc, false, nil
}

func (p *HostPool) onH1Idle(hc *h1Conn) {
	// Idle-timeout teardown is driven by the Registry's sweep (registry.go)
	// rather than per-completion, so a burst of back-to-back requests on
	// the same connection doesn't thrash dial/close.
}

func (p *HostPool) onH2Disconnect(c *h2.Conn) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i, hc := range p.h2conns {
		if hc == c {
			p.h2conns = append(p.h2conns[:i], p.h2conns[i+1:]...)
			return
		}
	}
}

// idleFor reports whether no H1 connection in this pool has a request in
// flight and the last Submit was at least d ago; for a pool with no
// connections only the time check applies.
func (p *HostPool) idleFor(d time.Duration) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.h1conns) == 0 && len(p.h2conns) == 0 {
		return time.Since(p.lastActive) >= d
	}
	for _, hc := range p.h1conns {
		if hc.Inflight() > 0 {
			return false
		}
	}
	return time.Since(p.lastActive) >= d
}

func (p *HostPool) empty() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.h1conns) == 0 && len(p.h2conns) == 0
}

// closeIdleConns tears down connections with zero in-flight requests,
// used both by the reaper and by Shutdown.
func (p *HostPool) closeIdleConns() {
	p.mu.Lock()
	defer p.mu.Unlock()
	live := p.h1conns[:0]
	for _, hc := range p.h1conns {
		if hc.Inflight() == 0 {
			_ = hc.Close()
		} else {
			live = append(live, hc)
		}
	}
	p.h1conns = live
}

// shutdown drains in-flight work up to deadline, then force-closes
// everything still open (spec §4.6 "Graceful completion").
func (p *HostPool) shutdown(deadline time.Duration) {
	p.mu.Lock()
	p.closed = true
	h1conns := append([]*h1Conn(nil), p.h1conns...)
	h2conns := append([]*h2.Conn(nil), p.h2conns...)
	p.mu.Unlock()

	deadlineAt := time.Now().Add(deadline)
	for {
		done := true
		for _, hc := range h1conns {
			if hc.Inflight() > 0 {
				done = false
			}
		}
		if done || time.Now().After(deadlineAt) {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	for _, hc := range h1conns {
		_ = hc.Close()
	}
	for _, hc := range h2conns {
		_ = hc.Close()
	}
}

func portString(port int) string {
	return strconv.Itoa(port)
}
