package notifications

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"authors-haven/internal/logging"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 30 * time.Second
	sendBuffer = 16
)

// Pusher delivers a live notification to a profile's open connections
type Pusher interface {
	Push(profileID uuid.UUID, v any) int
}

// Hub tracks websocket connections per profile
type Hub struct {
	mu      sync.RWMutex
	clients map[uuid.UUID]map[*client]struct{}
}

type client struct {
	profileID uuid.UUID
	conn      *websocket.Conn
	send      chan []byte
}

// NewHub creates an empty Hub
func NewHub() *Hub {
	return &Hub{clients: make(map[uuid.UUID]map[*client]struct{})}
}

// Serve attaches an upgraded connection to profileID and blocks until it closes
func (h *Hub) Serve(ctx context.Context, profileID uuid.UUID, conn *websocket.Conn) {
	c := &client{profileID: profileID, conn: conn, send: make(chan []byte, sendBuffer)}
	h.add(c)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		c.writeLoop(ctx)
	}()

	c.readLoop()
	h.remove(c)
	<-done
}

// Push sends v as JSON to every connection of profileID. Slow connections
// with a full buffer miss the message. Returns the number of connections reached.
func (h *Hub) Push(profileID uuid.UUID, v any) int {
	data, err := json.Marshal(v)
	if err != nil {
		logging.WithComponent("hub").WithError(err).Error("Failed to encode live notification")
		return 0
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	sent := 0
	for c := range h.clients[profileID] {
		select {
		case c.send <- data:
			sent++
		default:
			logging.WithComponent("hub").WithField("profile_id", profileID).Warn("⚠️ Live notification dropped, client too slow")
		}
	}
	return sent
}

// Connected returns the number of open connections for profileID
func (h *Hub) Connected(profileID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[profileID])
}

func (h *Hub) add(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[c.profileID] == nil {
		h.clients[c.profileID] = make(map[*client]struct{})
	}
	h.clients[c.profileID][c] = struct{}{}
	logging.WithComponent("hub").WithFields(logrus.Fields{
		"profile_id":  c.profileID,
		"connections": len(h.clients[c.profileID]),
	}).Debug("🔌 Live connection opened")
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set := h.clients[c.profileID]
	if _, ok := set[c]; !ok {
		return
	}
	delete(set, c)
	if len(set) == 0 {
		delete(h.clients, c.profileID)
	}
	close(c.send)
}

// readLoop discards client frames and returns once the connection fails
func (c *client) readLoop() {
	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *client) writeLoop(ctx context.Context) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	defer c.conn.Close()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-ctx.Done():
			c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
			return
		}
	}
}
