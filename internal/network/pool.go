// Package network pools outbound HTTP connections per host, compresses
// request/response bodies, and heartbeats/sweeps WebSocket connections
// (spec §4.7). Grounded on internal/instance/port.go's net/http client
// conventions and internal/mcp/connection_limiter.go's per-key semaphore
// discipline (already adapted once into internal/storage/pool.go; this
// package reapplies the same acquire/release shape to outbound HTTP
// connections instead of storage operations), and on internal/mcp/
// server.go's 15s keepalive ticker for the WS heartbeat sweep.
package network

import (
	"context"
	"net/http"
	"sync"
	"time"
)

// PooledConn tracks one pooled outbound HTTP connection's lifecycle
// (spec §4.7: "creation time, last-used time, use count, and a healthy
// flag").
type PooledConn struct {
	Host      string
	Client    *http.Client
	CreatedAt time.Time
	LastUsed  time.Time
	UseCount  int64
	Healthy   bool
}

// PoolConfig bounds one Pool's behavior.
type PoolConfig struct {
	MaxPerHost  int
	MaxAge      time.Duration
	MaxIdle     time.Duration
	SweepPeriod time.Duration
}

func defaultPoolConfig() PoolConfig {
	return PoolConfig{
		MaxPerHost:  8,
		MaxAge:      10 * time.Minute,
		MaxIdle:     2 * time.Minute,
		SweepPeriod: time.Minute,
	}
}

// Pool hands out pooled *http.Client instances per host, capping
// concurrent outstanding connections per host with a semaphore and
// periodically sweeping stale ones (spec §4.7).
type Pool struct {
	cfg PoolConfig

	mu    sync.Mutex
	conns map[string][]*PooledConn
	sema  map[string]chan struct{}
}

func NewPool(cfg PoolConfig) *Pool {
	if cfg.MaxPerHost <= 0 {
		cfg = defaultPoolConfig()
	}
	return &Pool{
		cfg:   cfg,
		conns: make(map[string][]*PooledConn),
		sema:  make(map[string]chan struct{}),
	}
}

func (p *Pool) semaphoreFor(host string) chan struct{} {
	p.mu.Lock()
	defer p.mu.Unlock()
	s, ok := p.sema[host]
	if !ok {
		s = make(chan struct{}, p.cfg.MaxPerHost)
		p.sema[host] = s
	}
	return s
}

// Acquire blocks until a permit for host is free or ctx is done, then
// returns a PooledConn to use. Release must be called exactly once when
// the caller is done with it.
func (p *Pool) Acquire(ctx context.Context, host string) (*PooledConn, error) {
	sema := p.semaphoreFor(host)
	select {
	case sema <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	for _, c := range p.conns[host] {
		if c.Healthy && time.Since(c.CreatedAt) < p.cfg.MaxAge {
			c.LastUsed = time.Now()
			c.UseCount++
			return c, nil
		}
	}

	conn := &PooledConn{
		Host:      host,
		Client:    &http.Client{Timeout: 30 * time.Second},
		CreatedAt: time.Now(),
		LastUsed:  time.Now(),
		UseCount:  1,
		Healthy:   true,
	}
	p.conns[host] = append(p.conns[host], conn)
	return conn, nil
}

// Release returns a permit for conn's host. A connection is kept in the
// pool only when still healthy and neither too old nor too idle (spec
// §4.7); otherwise it is discarded so the next Acquire spawns fresh.
func (p *Pool) Release(conn *PooledConn) {
	defer func() { <-p.semaphoreFor(conn.Host) }()

	if conn.Healthy && time.Since(conn.CreatedAt) < p.cfg.MaxAge && time.Since(conn.LastUsed) < p.cfg.MaxIdle {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	conns := p.conns[conn.Host]
	for i, c := range conns {
		if c == conn {
			p.conns[conn.Host] = append(conns[:i], conns[i+1:]...)
			break
		}
	}
}

// MarkUnhealthy flags conn so the next Release evicts it rather than
// recycling it into the pool.
func (p *Pool) MarkUnhealthy(conn *PooledConn) {
	p.mu.Lock()
	defer p.mu.Unlock()
	conn.Healthy = false
}

// Sweep removes every connection older than MaxAge or idle longer than
// MaxIdle across all hosts and returns how many were reclaimed (spec
// §4.7: "a background task sweeps expired connections once per minute").
func (p *Pool) Sweep() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	reclaimed := 0
	now := time.Now()
	for host, conns := range p.conns {
		kept := conns[:0]
		for _, c := range conns {
			if c.Healthy && now.Sub(c.CreatedAt) < p.cfg.MaxAge && now.Sub(c.LastUsed) < p.cfg.MaxIdle {
				kept = append(kept, c)
				continue
			}
			reclaimed++
		}
		p.conns[host] = kept
	}
	return reclaimed
}

// RunSweeper blocks, sweeping every SweepPeriod until ctx is done.
func (p *Pool) RunSweeper(ctx context.Context) {
	ticker := time.NewTicker(p.cfg.SweepPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.Sweep()
		}
	}
}
