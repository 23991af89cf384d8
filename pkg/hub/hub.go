package hub

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/teslashibe/go-groove/internal/log"
)

// Hub maintains the set of active watchers and broadcasts run events to
// them. Publishing never blocks: a full broadcast queue drops the event,
// a full client queue drops the client.
type Hub struct {
	name string

	clients    map[*Client]bool
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client

	mu      sync.RWMutex
	running bool
}

// New creates a hub. Call Run in a goroutine before publishing.
func New(name string) *Hub {
	return &Hub{
		name:       name,
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}
}

// Run is the hub's main loop; it owns the client set.
func (h *Hub) Run() {
	h.mu.Lock()
	h.running = true
	h.mu.Unlock()

	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			count := len(h.clients)
			h.mu.Unlock()
			log.Info("watcher connected", "hub", h.name, "total", count)

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			count := len(h.clients)
			h.mu.Unlock()
			log.Info("watcher disconnected", "hub", h.name, "remaining", count)

		case data := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				select {
				case client.send <- data:
				default:
					// Too slow to keep up with the beat feed.
					close(client.send)
					delete(h.clients, client)
					log.Warn("dropped slow watcher", "hub", h.name)
				}
			}
			h.mu.Unlock()
		}
	}
}

// PublishEvent wraps a payload in an Event envelope and broadcasts it.
// Satisfies the scheduler's event sink.
func (h *Hub) PublishEvent(kind string, payload any) {
	data, err := json.Marshal(Event{Kind: kind, At: time.Now(), Payload: payload})
	if err != nil {
		log.Warn("unencodable event", "hub", h.name, "kind", kind, "error", err)
		return
	}
	select {
	case h.broadcast <- data:
	default:
		log.Warn("feed saturated, dropping event", "hub", h.name, "kind", kind)
	}
}

// ClientCount returns the number of connected watchers.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// IsRunning reports whether Run has started.
func (h *Hub) IsRunning() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.running
}
