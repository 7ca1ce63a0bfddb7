// Package ws carries the live channel: the presence registry mapping users to
// their open connections and the relay that fans out notifications.
package ws

import (
	"sync"
)

// Hub is the presence registry. It maps a user ID to the set of that user's
// currently open connections; a user with several tabs or devices has several
// entries in the set. The entry is removed when the last connection closes.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]map[*Client]bool // user ID -> open connections
}

func NewHub() *Hub {
	return &Hub{
		clients: make(map[string]map[*Client]bool),
	}
}

// Register adds a connection under its user's entry.
func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[client.userID] == nil {
		h.clients[client.userID] = make(map[*Client]bool)
	}
	h.clients[client.userID][client] = true
}

// Unregister removes a connection, dropping the user's entry when it was the
// last one. Safe to call more than once for the same client.
func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	clients, ok := h.clients[client.userID]
	if !ok {
		return
	}
	if _, ok := clients[client]; !ok {
		return
	}
	delete(clients, client)
	close(client.send)
	if len(clients) == 0 {
		delete(h.clients, client.userID)
	}
}

// ConnectionsFor returns a snapshot of the user's open connections, possibly
// empty.
func (h *Hub) ConnectionsFor(userID string) []*Client {
	h.mu.RLock()
	defer h.mu.RUnlock()
	clients := make([]*Client, 0, len(h.clients[userID]))
	for client := range h.clients[userID] {
		clients = append(clients, client)
	}
	return clients
}

// Push queues payload on every open connection of the user. A connection that
// cannot take the payload (closed or backed up) is skipped, not retried.
func (h *Hub) Push(userID string, payload []byte) {
	h.PushExcept(userID, nil, payload)
}

// PushExcept is Push minus one connection, used to spare the originating
// socket when refreshing a sender's other tabs.
func (h *Hub) PushExcept(userID string, except *Client, payload []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.clients[userID] {
		if client == except {
			continue
		}
		select {
		case client.send <- payload:
		default:
		}
	}
}
