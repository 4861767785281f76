package pool

import (
	"context"
	"errors"
	"net"
	"sync"
	"time"

	"github.com/vaporio/httpstack/h1"
	"github.com/vaporio/httpstack/herr"
)

// Registry is the process-wide table of HostPools, guarded by a single
// lock with lock-free lookups once a pool is warmed (spec §5 "the pool
// registry is process-wide, guarded by a single lock; lookups are
// lock-free once warmed" — approximated here with sync.Map-style
// double-checked lookup over a plain map, matching the teacher's
// sync.Map-of-streams idiom from client.go's strms field).
type Registry struct {
	opts Options
	cfg  h1.Config

	mu    sync.RWMutex
	pools map[PoolID]*HostPool

	reaperStop chan struct{}
	reaperOnce sync.Once
}

// NewRegistry builds a Registry. cfg configures the h1.Parser used for
// any plain-HTTP/1 connections this registry dials.
func NewRegistry(opts Options, cfg h1.Config) *Registry {
	opts = opts.withDefaults()
	r := &Registry{
		opts:       opts,
		cfg:        cfg,
		pools:      make(map[PoolID]*HostPool),
		reaperStop: make(chan struct{}),
	}
	go r.reap()
	return r
}

func (r *Registry) poolFor(id PoolID) *HostPool {
	r.mu.RLock()
	p, ok := r.pools[id]
	r.mu.RUnlock()
	if ok {
		return p
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.pools[id]; ok {
		return p
	}
	p = newHostPool(id, r.opts, r.cfg)
	r.pools[id] = p
	return p
}

// Submit routes req to the pool for its destination, retrying
// transport-level failures for idempotent methods up to
// Options.Retry.MaxAttempts (spec §4.6 "Retry policy"). The
// returned Future delivers userCtx unchanged alongside the eventual
// response or final error.
func (r *Registry) Submit(ctx context.Context, req *h1.Request, userCtx interface{}) (*Future, error) {
	id, err := resolveID(req, r.opts.SettingsFingerprint)
	if err != nil {
		return nil, err
	}
	hp := r.poolFor(id)

	outer := newFuture()
	go r.driveRetries(ctx, hp, req, userCtx, outer)
	return outer, nil
}

func (r *Registry) driveRetries(ctx context.Context, hp *HostPool, req *h1.Request, userCtx interface{}, outer *Future) {
	idempotent := req.Method.IsIdempotent()
	if r.opts.Retry.IsIdempotent != nil {
		idempotent = r.opts.Retry.IsIdempotent(string(req.Method))
	}
	maxAttempts := 1
	if idempotent {
		maxAttempts = r.opts.Retry.MaxAttempts
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		inner, err := hp.Submit(ctx, req, userCtx)
		if err != nil {
			lastErr = err
			if !retryable(err) {
				break
			}
			continue
		}
		resp, gotCtx, err := inner.Wait(ctx)
		if err == nil {
			outer.deliver(resp, gotCtx, nil)
			return
		}
		lastErr = err
		if !retryable(err) {
			break
		}
	}
	outer.deliver(nil, userCtx, lastErr)
}

// retryable reports whether err is a transport-level failure (connection
// reset, dial failure, timeout) rather than a protocol-level response:
// an *herr.Error of kind Transport, or an error from the net package.
func retryable(err error) bool {
	var he *herr.Error
	if errors.As(err, &he) {
		return he.Kind == herr.Transport
	}
	var ne net.Error
	return errors.As(err, &ne)
}

// NewConnection opens a non-pooled, single-use connection transport for
// req's destination (spec §4.6 "newConnection(host, port)").
func (r *Registry) NewConnection(ctx context.Context, req *h1.Request) (*Future, error) {
	id, err := resolveID(req, r.opts.SettingsFingerprint)
	if err != nil {
		return nil, err
	}
	transient := newHostPool(id, Options{MaxConnections: 1, PipeliningLimit: r.opts.PipeliningLimit,
		ConnectTimeout: r.opts.ConnectTimeout, TLSConfig: r.opts.TLSConfig}.withDefaults(), r.cfg)
	return transient.Submit(ctx, req, nil)
}

func (r *Registry) reap() {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			r.sweep()
		case <-r.reaperStop:
			return
		}
	}
}

// sweep tears down idle connections and deregisters pools with none
// left, so a later Submit transparently recreates them (spec §4.6 "Idle
// shutdown").
func (r *Registry) sweep() {
	r.mu.Lock()
	ids := make([]PoolID, 0, len(r.pools))
	for id := range r.pools {
		ids = append(ids, id)
	}
	r.mu.Unlock()

	for _, id := range ids {
		r.mu.RLock()
		hp, ok := r.pools[id]
		r.mu.RUnlock()
		if !ok {
			continue
		}
		if hp.idleFor(r.opts.IdleTimeout) {
			hp.closeIdleConns()
		}
		if hp.empty() && hp.idleFor(r.opts.IdleTimeout) {
			r.mu.Lock()
			delete(r.pools, id)
			r.mu.Unlock()
		}
	}
}

// Shutdown gracefully tears down every pool, draining in-flight
// responses up to Options.CompletionTimeout (spec §4.6 "shutdown()").
// Idempotent: a second call is a no-op.
func (r *Registry) Shutdown(ctx context.Context) error {
	r.reaperOnce.Do(func() { close(r.reaperStop) })

	r.mu.Lock()
	pools := make([]*HostPool, 0, len(r.pools))
	for _, p := range r.pools {
		pools = append(pools, p)
	}
	r.pools = make(map[PoolID]*HostPool)
	r.mu.Unlock()

	deadline := r.opts.CompletionTimeout
	if dl, ok := ctx.Deadline(); ok {
		if d := time.Until(dl); d < deadline {
			deadline = d
		}
	}

	var wg sync.WaitGroup
	for _, p := range pools {
		p := p
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.shutdown(deadline)
		}()
	}
	wg.Wait()
	return nil
}
