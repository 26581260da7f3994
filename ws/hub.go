package ws

import (
	"context"
	"encoding/json"
	"sync/atomic"

	"dutchAuction/game"

	"go.uber.org/zap"
)

// Envelope is every message on the wire.
type Envelope struct {
	Type string      `json:"type"`
	Data interface{} `json:"data,omitempty"`
}

// Hub fans broadcast messages out to every registered client.
type Hub struct {
	logger *zap.Logger

	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	broadcast  chan []byte
	done       chan struct{}

	count int64
}

func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		logger:     logger,
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan []byte, 100),
		done:       make(chan struct{}),
	}
}

// Run is the central message dispatcher. It returns when ctx is done,
// closing every client's send channel.
func (h *Hub) Run(ctx context.Context) {
	h.logger.Info("🚀 Event hub started")

	for {
		select {
		case <-ctx.Done():
			for c := range h.clients {
				delete(h.clients, c)
				close(c.Send)
			}
			atomic.StoreInt64(&h.count, 0)
			close(h.done)
			h.logger.Info("🛑 Event hub stopped")
			return

		case client := <-h.register:
			h.clients[client] = true
			atomic.StoreInt64(&h.count, int64(len(h.clients)))
			h.logger.Info("✅ Client registered", zap.String("name", client.Name), zap.Int("total", len(h.clients)))

		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.Send)
			}
			atomic.StoreInt64(&h.count, int64(len(h.clients)))
			h.logger.Info("👋 Client unregistered", zap.String("name", client.Name), zap.Int("total", len(h.clients)))

		case message := <-h.broadcast:
			for client := range h.clients {
				select {
				case client.Send <- message:
				default:
					h.logger.Warn("⚠️  Client send buffer full, skipping message", zap.String("name", client.Name))
				}
			}
		}
	}
}

// join registers c. It reports false once the hub has stopped.
func (h *Hub) join(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) leave(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// Publish broadcasts a session snapshot as an event message. It never blocks.
func (h *Hub) Publish(s game.Session) {
	data, err := json.Marshal(Envelope{Type: "event", Data: s})
	if err != nil {
		h.logger.Error("❌ Failed to marshal session", zap.Error(err))
		return
	}

	select {
	case h.broadcast <- data:
	default:
		h.logger.Warn("⚠️  Broadcast channel full, dropping snapshot")
	}
}

// Count returns the number of registered clients.
func (h *Hub) Count() int {
	return int(atomic.LoadInt64(&h.count))
}
