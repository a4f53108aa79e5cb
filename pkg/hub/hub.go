package hub

import (
	"sync"

	"github.com/sayantanmandal1/eyesonscreen/internal/log"
)

// Hub maintains the set of active dashboard clients and fans broadcast
// events out to them. Slow clients are evicted rather than allowed to stall
// the pipeline.
type Hub struct {
	name string

	clients    map[*Client]bool
	broadcast  chan Event
	register   chan *Client
	unregister chan *Client
	stop       chan struct{}

	mu       sync.RWMutex
	stopOnce sync.Once
}

// New creates a hub. Run must be started in a goroutine before use.
func New(name string) *Hub {
	return &Hub{
		name:       name,
		clients:    make(map[*Client]bool),
		broadcast:  make(chan Event, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		stop:       make(chan struct{}),
	}
}

// Run is the hub's main loop. It returns after Stop.
func (h *Hub) Run() {
	for {
		select {
		case <-h.stop:
			h.mu.Lock()
			for client := range h.clients {
				close(client.send)
				delete(h.clients, client)
			}
			h.mu.Unlock()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			count := len(h.clients)
			h.mu.Unlock()
			log.Debug("dashboard client connected", "hub", h.name, "clients", count)

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()

		case ev := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				select {
				case client.send <- ev:
				default:
					// The client's buffer is full; drop it rather
					// than let it back-pressure the pipeline.
					close(client.send)
					delete(h.clients, client)
					log.Warn("dropped slow dashboard client", "hub", h.name)
				}
			}
			h.mu.Unlock()
		}
	}
}

// Stop terminates the hub loop and disconnects every client. Idempotent.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.stop) })
}

// Publish encodes v on the given stream and broadcasts it. A full broadcast
// queue drops the event instead of blocking the caller.
func (h *Hub) Publish(stream string, v interface{}) {
	ev, err := NewEvent(stream, v)
	if err != nil {
		log.Warn("hub encode failed", "hub", h.name, "stream", stream, "err", err)
		return
	}
	select {
	case h.broadcast <- ev:
	default:
		log.Warn("hub broadcast queue full, dropping event", "hub", h.name, "stream", stream)
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
