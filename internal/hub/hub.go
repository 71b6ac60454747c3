// Package hub tracks the live set of connected clients and provides
// best-effort fan-out of events to all of them.
//
// Delivery to each client is independent: a failed or saturated client is
// silently dropped from the registry and delivery to the others continues.
// Per-client delivery order matches broadcast call order.
package hub

import (
	"log/slog"
	"sync"
)

// Hub is the connection registry. Safe for concurrent use.
type Hub struct {
	logger *slog.Logger

	mu      sync.Mutex
	clients map[*Client]struct{}
}

// New creates an empty Hub.
func New(logger *slog.Logger) *Hub {
	return &Hub{
		logger:  logger,
		clients: make(map[*Client]struct{}),
	}
}

// Add registers a client for fan-out delivery.
func (h *Hub) Add(c *Client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()

	h.logger.Info("client connected", "id", c.ID(), "addr", c.RemoteAddr(), "clients", n)
}

// Remove unregisters a client and closes its outbound queue. Removing a
// client that is not registered is a no-op.
func (h *Hub) Remove(c *Client) {
	h.mu.Lock()
	_, exists := h.clients[c]
	delete(h.clients, c)
	n := len(h.clients)
	h.mu.Unlock()

	if !exists {
		return
	}

	c.Close()

	h.logger.Info("client disconnected", "id", c.ID(), "addr", c.RemoteAddr(), "clients", n)
}

// Broadcast enqueues msg for every registered client. A client that cannot
// accept the message (closed or saturated queue) is removed; the rest still
// receive it. Broadcasting with zero clients is a no-op. Never returns an
// error to the caller.
func (h *Hub) Broadcast(msg []byte) {
	h.mu.Lock()
	clients := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	for _, c := range clients {
		if !c.Send(msg) {
			h.logger.Warn("dropping unresponsive client", "id", c.ID(), "addr", c.RemoteAddr())
			h.Remove(c)
		}
	}
}

// Len returns the number of registered clients.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()

	return len(h.clients)
}
