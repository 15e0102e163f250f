// Package server coordinates client registration, pump goroutines, and
// connection cleanup for the WebSocket transport via the Gateway type.
package server

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/Tyrowin/chatrelay/internal/chat"
)

// Gateway owns the live WebSocket clients. Its Run loop admits upgraded
// connections into the chat hub, starts their pumps, and releases them when
// their read pump ends. Chat semantics live in chat.Hub; the gateway only
// manages transport lifecycles.
type Gateway struct {
	cfg        Config
	log        *slog.Logger
	hub        *chat.Hub
	clients    map[*Client]struct{}
	register   chan *Client
	unregister chan *Client
	mutex      sync.RWMutex
	wg         sync.WaitGroup
	ctx        context.Context
	cancel     context.CancelFunc
	done       chan struct{}
}

// NewGateway creates a Gateway that feeds connections into hub.
func NewGateway(cfg Config, log *slog.Logger, hub *chat.Hub) *Gateway {
	ctx, cancel := context.WithCancel(context.Background())
	return &Gateway{
		cfg:        sanitizeConfig(cfg),
		log:        log,
		hub:        hub,
		clients:    make(map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		ctx:        ctx,
		cancel:     cancel,
		done:       make(chan struct{}),
	}
}

// Hub returns the chat hub this gateway feeds.
func (g *Gateway) Hub() *chat.Hub {
	return g.hub
}

// ClientCount returns the number of clients currently owned by the gateway.
func (g *Gateway) ClientCount() int {
	g.mutex.RLock()
	defer g.mutex.RUnlock()
	return len(g.clients)
}

// Run starts the gateway's main event loop. It should be called in a
// separate goroutine and returns once Shutdown is requested.
func (g *Gateway) Run() {
	defer close(g.done)

	for {
		select {
		case <-g.ctx.Done():
			g.shutdownClients()
			return

		case client := <-g.register:
			if client == nil {
				g.log.Warn("Received nil client registration; skipping")
				continue
			}
			g.start(client)

		case client := <-g.unregister:
			g.remove(client)
		}
	}
}

func (g *Gateway) start(client *Client) {
	client.session = g.hub.Connect(client)

	g.mutex.Lock()
	g.clients[client] = struct{}{}
	clientCount := len(g.clients)
	g.mutex.Unlock()
	client.log.Info("Client registered", "clients", clientCount)

	g.wg.Add(2)
	go func() {
		defer g.wg.Done()
		client.writePump()
	}()
	go func() {
		defer g.wg.Done()
		client.readPump()
	}()
}

// admit hands an upgraded client to the Run loop. It returns false once the
// gateway is shutting down.
func (g *Gateway) admit(client *Client) bool {
	select {
	case g.register <- client:
		return true
	case <-g.ctx.Done():
		return false
	}
}

// release hands a finished client back to the Run loop, or removes it
// directly when the loop has already stopped.
func (g *Gateway) release(client *Client) {
	select {
	case g.unregister <- client:
	case <-g.ctx.Done():
		g.remove(client)
	}
}

func (g *Gateway) remove(client *Client) {
	g.mutex.Lock()
	_, ok := g.clients[client]
	delete(g.clients, client)
	clientCount := len(g.clients)
	g.mutex.Unlock()

	// Close the channel after releasing the lock
	client.closeSend()
	if ok {
		client.log.Info("Client unregistered", "clients", clientCount)
	}
}

// shutdownClients closes every client connection; each read pump then
// fails and runs its normal teardown.
func (g *Gateway) shutdownClients() {
	g.log.Info("Shutting down all client connections...")

	g.mutex.RLock()
	clients := make([]*Client, 0, len(g.clients))
	for client := range g.clients {
		clients = append(clients, client)
	}
	g.mutex.RUnlock()

	for _, client := range clients {
		if client.conn != nil {
			if err := client.conn.Close(); err != nil && !isExpectedCloseError(err) {
				client.log.Warn("Error closing client connection", "error", err)
			}
		}
	}

	g.log.Info("Closed client connections", "count", len(clients))
}

// Shutdown initiates graceful shutdown of the gateway and waits for all
// client goroutines to complete, or for the timeout to elapse. Run must be
// running.
func (g *Gateway) Shutdown(timeout time.Duration) error {
	g.log.Info("Initiating gateway shutdown...")

	g.cancel()
	<-g.done

	done := make(chan struct{})
	go func() {
		g.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		g.log.Info("Gateway shutdown completed successfully")
		return nil
	case <-time.After(timeout):
		g.log.Warn("Gateway shutdown timeout reached, some goroutines may still be running")
		return context.DeadlineExceeded
	}
}
