package inspect

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/vango-dev/heart/internal/errors"
	"github.com/vango-dev/heart/pkg/heart"
)

// MessageType is the type of a message pushed to inspector clients.
type MessageType string

const (
	MessageHello MessageType = "hello"
	MessageCycle MessageType = "cycle"
)

// Message is sent to inspector clients over WebSocket.
type Message struct {
	Type  MessageType       `json:"type"`
	ID    string            `json:"id,omitempty"`
	Stats *heart.CycleStats `json:"stats,omitempty"`
}

type client struct {
	id   string
	conn *websocket.Conn
	// mu serializes writes; a connection supports one writer at a time.
	mu sync.Mutex
}

func (c *client) send(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// Hub streams update cycle stats to WebSocket clients. It implements
// heart.Observer.
type Hub struct {
	clients  map[string]*client
	mu       sync.RWMutex
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

// NewHub creates a hub. With allowAllOrigins unset only same-origin
// upgrades are accepted.
func NewHub(allowAllOrigins bool, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Hub{
		clients: make(map[string]*client),
		logger:  logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
	if allowAllOrigins {
		h.upgrader.CheckOrigin = func(r *http.Request) bool { return true }
	}
	return h
}

// HandleWebSocket upgrades the connection and keeps it registered until the
// client disconnects.
func (h *Hub) HandleWebSocket(w http.ResponseWriter, req *http.Request) {
	conn, err := h.upgrader.Upgrade(w, req, nil)
	if err != nil {
		h.logger.Warn("inspector upgrade failed", "error", errors.New("H061").Wrap(err))
		return
	}

	c := &client{id: uuid.NewString(), conn: conn}
	h.mu.Lock()
	h.clients[c.id] = c
	h.mu.Unlock()
	h.logger.Debug("inspector client connected", "client", c.id)

	if data, err := json.Marshal(Message{Type: MessageHello, ID: c.id}); err == nil {
		_ = c.send(data)
	}

	// Keep connection alive until client disconnects
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	h.drop(c)
	h.logger.Debug("inspector client disconnected", "client", c.id)
}

// ObserveCycle implements heart.Observer.
func (h *Hub) ObserveCycle(stats heart.CycleStats) {
	h.broadcast(Message{Type: MessageCycle, Stats: &stats})
}

func (h *Hub) broadcast(msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}

	h.mu.RLock()
	clients := make([]*client, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		if err := c.send(data); err != nil {
			h.drop(c)
		}
	}
}

func (h *Hub) drop(c *client) {
	h.mu.Lock()
	delete(h.clients, c.id)
	h.mu.Unlock()
	c.conn.Close()
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close closes all client connections.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for id, c := range h.clients {
		c.conn.Close()
		delete(h.clients, id)
	}
}

var _ heart.Observer = (*Hub)(nil)
