package realtime

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const defaultWriteTimeout = 5 * time.Second

type client struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *client) send(evt Event, timeout time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.conn.SetWriteDeadline(time.Now().Add(timeout)); err != nil {
		return err
	}
	return c.conn.WriteJSON(evt)
}

// Hub indexes one open connection per user. A newer registration replaces the older one.
// Nothing is queued: events for users without a live connection are dropped.
type Hub struct {
	mu           sync.RWMutex
	clients      map[string]*client
	writeTimeout time.Duration
}

func NewHub() *Hub {
	return &Hub{
		clients:      make(map[string]*client),
		writeTimeout: defaultWriteTimeout,
	}
}

func (h *Hub) register(userID string, c *client) {
	h.mu.Lock()
	h.clients[userID] = c
	h.mu.Unlock()
}

// unregister removes the entry only if it still points at c, so a stale socket
// closing cannot evict a newer registration.
func (h *Hub) unregister(userID string, c *client) {
	h.mu.Lock()
	if cur, ok := h.clients[userID]; ok && cur == c {
		delete(h.clients, userID)
	}
	h.mu.Unlock()
}

func (h *Hub) Connected(userID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.clients[userID]
	return ok
}

func (h *Hub) Notify(userID string, evt Event) {
	if userID == "" {
		return
	}
	h.mu.RLock()
	c := h.clients[userID]
	h.mu.RUnlock()
	if c == nil {
		zap.L().Debug("realtime event dropped, user not connected",
			zap.String("user_id", userID),
			zap.String("type", string(evt.Type)))
		return
	}
	if err := c.send(evt, h.writeTimeout); err != nil {
		zap.L().Debug("realtime event dropped, write failed",
			zap.String("user_id", userID),
			zap.String("type", string(evt.Type)),
			zap.Error(err))
		h.unregister(userID, c)
		_ = c.conn.Close()
	}
}
