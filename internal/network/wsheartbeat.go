package network

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// WSConn tracks one heartbeated WebSocket connection's activity counters
// (spec §4.7: "per-connection counters track messages and bytes in each
// direction"). Grounded on internal/mcp/server.go's 15s ping ticker,
// generalized from an inline goroutine per SSE connection into a shared
// registry any transport can register into.
type WSConn struct {
	ID          string
	Conn        *websocket.Conn
	LastActive  time.Time
	MessagesIn  int64
	MessagesOut int64
	BytesIn     int64
	BytesOut    int64
}

// HeartbeatConfig tunes one Heartbeater.
type HeartbeatConfig struct {
	PingInterval time.Duration
	IdleBound    time.Duration
}

func defaultHeartbeatConfig() HeartbeatConfig {
	return HeartbeatConfig{PingInterval: 15 * time.Second, IdleBound: 2 * time.Minute}
}

// Heartbeater pings every registered connection at a configured interval
// and sweeps ones that have gone idle past IdleBound (spec §4.7).
type Heartbeater struct {
	cfg HeartbeatConfig

	mu    sync.Mutex
	conns map[string]*WSConn
}

func NewHeartbeater(cfg HeartbeatConfig) *Heartbeater {
	if cfg.PingInterval <= 0 {
		cfg = defaultHeartbeatConfig()
	}
	return &Heartbeater{cfg: cfg, conns: make(map[string]*WSConn)}
}

func (h *Heartbeater) Register(id string, conn *websocket.Conn) *WSConn {
	h.mu.Lock()
	defer h.mu.Unlock()
	wc := &WSConn{ID: id, Conn: conn, LastActive: time.Now()}
	h.conns[id] = wc
	return wc
}

func (h *Heartbeater) Unregister(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.conns, id)
}

// Touch records activity on id's connection, direction in/out and size
// in bytes, resetting its idle clock.
func (h *Heartbeater) Touch(id string, incoming bool, bytes int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	wc, ok := h.conns[id]
	if !ok {
		return
	}
	wc.LastActive = time.Now()
	if incoming {
		wc.MessagesIn++
		wc.BytesIn += int64(bytes)
	} else {
		wc.MessagesOut++
		wc.BytesOut += int64(bytes)
	}
}

// PingAll sends a ping control frame to every registered connection,
// matching internal/mcp/server.go's keepalive ping. A connection whose
// ping fails is left for the next Sweep to reclaim.
func (h *Heartbeater) PingAll() {
	h.mu.Lock()
	conns := make([]*WSConn, 0, len(h.conns))
	for _, c := range h.conns {
		conns = append(conns, c)
	}
	h.mu.Unlock()

	deadline := time.Now().Add(h.cfg.PingInterval / 2)
	for _, c := range conns {
		_ = c.Conn.WriteControl(websocket.PingMessage, nil, deadline)
	}
}

// Sweep removes and returns every connection whose last activity is
// older than IdleBound (spec §4.7: "a sweep removes connections whose
// last activity is older than the idle bound and returns the reclaimed
// set").
func (h *Heartbeater) Sweep() []*WSConn {
	h.mu.Lock()
	defer h.mu.Unlock()

	var reclaimed []*WSConn
	cutoff := time.Now().Add(-h.cfg.IdleBound)
	for id, c := range h.conns {
		if c.LastActive.Before(cutoff) {
			reclaimed = append(reclaimed, c)
			delete(h.conns, id)
		}
	}
	return reclaimed
}

// Run blocks, pinging every PingInterval until stop is closed.
func (h *Heartbeater) Run(stop <-chan struct{}) {
	ticker := time.NewTicker(h.cfg.PingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			h.PingAll()
		}
	}
}
