package api

import (
	"context"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/packlinehq/packline-api/internal/models"
	"github.com/packlinehq/packline-api/pkg/logger"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Hub fans order events out to connected websocket clients. It implements
// outbox.MessageHandler so the processor can push every published event to it.
type Hub struct {
	mu     sync.Mutex
	conns  map[*websocket.Conn]bool
	logger logger.Logger
}

// NewHub creates an empty hub
func NewHub(logger logger.Logger) *Hub {
	return &Hub{
		conns:  make(map[*websocket.Conn]bool),
		logger: logger,
	}
}

// HandleMessage broadcasts the event payload to every connected client. A
// dead connection is dropped rather than failing the outbox message.
func (h *Hub) HandleMessage(ctx context.Context, message *models.OutboxMessage) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	for conn := range h.conns {
		if err := conn.WriteMessage(websocket.TextMessage, message.Payload); err != nil {
			h.logger.Debug("Dropping dead websocket client", "error", err)
			conn.Close()
			delete(h.conns, conn)
		}
	}

	return nil
}

func (h *Hub) add(conn *websocket.Conn) {
	h.mu.Lock()
	h.conns[conn] = true
	h.mu.Unlock()
}

func (h *Hub) remove(conn *websocket.Conn) {
	h.mu.Lock()
	delete(h.conns, conn)
	h.mu.Unlock()
}

// Close disconnects all clients
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for conn := range h.conns {
		conn.Close()
		delete(h.conns, conn)
	}
}

// orderStreamHandler upgrades the connection and keeps it registered until
// the client goes away. Clients only receive; inbound frames are discarded.
func (s *Server) orderStreamHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)

	if err != nil {
		s.logger.Warn("Websocket upgrade failed", "error", err)
		return
	}

	s.hub.add(conn)
	defer func() {
		s.hub.remove(conn)
		conn.Close()
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
