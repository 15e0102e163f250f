package chat

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/samber/lo"
)

// Hub tracks every accepted connection and fans envelopes out to them.
// Delivery is best-effort and at-most-once: a failed send is logged and
// dropped, never retried, and never stops delivery to the other connections.
// Dead connections are reaped by their own session teardown, not here.
type Hub struct {
	log      *slog.Logger
	registry *Registry
	now      func() time.Time

	mu    sync.RWMutex
	conns map[Conn]struct{}

	// presenceMu orders presence updates: the last pair every connection
	// receives reflects the latest registry state.
	presenceMu sync.Mutex
}

// Option customizes a Hub.
type Option func(*Hub)

// WithClock overrides the time source used for chat timestamps.
func WithClock(now func() time.Time) Option {
	return func(h *Hub) {
		h.now = now
	}
}

// WithRegistry makes the hub use an existing registry.
func WithRegistry(r *Registry) Option {
	return func(h *Hub) {
		h.registry = r
	}
}

// NewHub creates a hub with an empty registry.
func NewHub(log *slog.Logger, opts ...Option) *Hub {
	h := &Hub{
		log:      log,
		registry: NewRegistry(),
		now:      time.Now,
		conns:    make(map[Conn]struct{}),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Registry returns the hub's name registry.
func (h *Hub) Registry() *Registry {
	return h.registry
}

// Connect adds conn to the broadcast set and returns its session in the
// Unjoined state.
func (h *Hub) Connect(conn Conn) *Session {
	h.mu.Lock()
	h.conns[conn] = struct{}{}
	total := len(h.conns)
	h.mu.Unlock()

	h.log.Info("Connection accepted", "conn", conn.ID(), "connections", total)
	return newSession(h, conn)
}

// Disconnect removes conn from the broadcast set. It reports whether conn
// was present.
func (h *Hub) Disconnect(conn Conn) bool {
	h.mu.Lock()
	_, ok := h.conns[conn]
	delete(h.conns, conn)
	total := len(h.conns)
	h.mu.Unlock()

	if ok {
		h.log.Info("Connection removed", "conn", conn.ID(), "connections", total)
	}
	return ok
}

// ConnectionCount returns the number of accepted connections, joined or not.
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

// SendTo delivers env to conn only. Failures are logged and swallowed.
func (h *Hub) SendTo(conn Conn, env Envelope) bool {
	payload, err := Encode(env)
	if err != nil {
		h.log.Error("Failed to encode envelope", "type", env.Type(), "error", err)
		return false
	}
	return h.deliver(conn, payload)
}

// Broadcast encodes env once and delivers it to every connection in a
// snapshot of the current set. It returns the number of successful sends.
func (h *Hub) Broadcast(env Envelope) int {
	payload, err := Encode(env)
	if err != nil {
		h.log.Error("Failed to encode envelope", "type", env.Type(), "error", err)
		return 0
	}

	targets := h.snapshot()
	delivered := 0
	for _, conn := range targets {
		if h.deliver(conn, payload) {
			delivered++
		}
	}

	h.log.Debug("Broadcast", "type", env.Type(), "targets", len(targets), "delivered", delivered)
	return delivered
}

// BroadcastPresence sends UserCount then UserList, both built from a single
// registry snapshot. Concurrent calls do not interleave, so a snapshot taken
// earlier is never delivered after one taken later.
func (h *Hub) BroadcastPresence() {
	h.presenceMu.Lock()
	defer h.presenceMu.Unlock()

	names := h.registry.Snapshot()
	h.Broadcast(UserCount{Count: len(names)})
	h.Broadcast(UserList{Users: names})
}

func (h *Hub) announce(format string, args ...any) {
	h.Broadcast(ChatMessage{
		User:      SystemUser,
		Message:   fmt.Sprintf(format, args...),
		Timestamp: h.timestamp(),
	})
}

func (h *Hub) timestamp() string {
	return Timestamp(h.now())
}

func (h *Hub) snapshot() []Conn {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return lo.Keys(h.conns)
}

// deliver sends payload to conn, converting both errors and panics from the
// transport into a false return.
func (h *Hub) deliver(conn Conn, payload []byte) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			h.log.Error("Recovered from panic during delivery", "conn", conn.ID(), "panic", r)
			ok = false
		}
	}()

	if err := conn.Send(payload); err != nil {
		h.log.Warn("Delivery failed", "conn", conn.ID(), "error", err)
		return false
	}
	return true
}
