package web

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/actionsum/appwatch/internal/logger"
	"github.com/actionsum/appwatch/internal/models"
	"github.com/actionsum/appwatch/internal/relay"
)

const (
	clientBuffer = 16
	writeWait    = 5 * time.Second
	pongWait     = 60 * time.Second
	pingPeriod   = pongWait * 9 / 10
)

// Message is the frame pushed to stream subscribers.
type Message struct {
	Event string             `json:"event"`
	Data  models.ChangeEvent `json:"data"`
}

// Hub is the relay consumer for WebSocket subscribers. It occupies the
// relay slot only while at least one subscriber is connected.
type Hub struct {
	relay    *relay.Relay
	log      *slog.Logger
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*client]struct{}
	dropped uint64
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

func NewHub(r *relay.Relay, log *slog.Logger) *Hub {
	return &Hub{
		relay: r,
		log:   logger.OrDefault(log).With("component", "hub"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		clients: make(map[*client]struct{}),
	}
}

// OnAppChanged fans the event out without blocking. A subscriber whose
// buffer is full misses the event.
func (h *Hub) OnAppChanged(event models.ChangeEvent) error {
	payload, err := json.Marshal(Message{Event: relay.EventAppChanged, Data: event})
	if err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- payload:
		default:
			h.dropped++
			h.log.Warn("subscriber too slow, dropping change", "app", event.AppID)
		}
	}
	return nil
}

func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Dropped is the number of frames skipped because a subscriber lagged.
func (h *Hub) Dropped() uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.dropped
}

func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", "error", err)
		return
	}

	c := &client{conn: conn, send: make(chan []byte, clientBuffer)}
	h.add(c)
	h.log.Info("subscriber connected", "remote", conn.RemoteAddr().String())

	go h.writeLoop(c)
	h.readLoop(c)
}

// add and remove change the relay slot under mu, so a subscriber joining
// while the last one leaves cannot be left without a consumer. Lock order
// is hub then relay; Relay.Deliver drops its lock before calling back.
func (h *Hub) add(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.clients[c] = struct{}{}
	if len(h.clients) == 1 {
		h.relay.Attach(h)
	}
}

func (h *Hub) remove(c *client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[c]; !ok {
		return false
	}
	delete(h.clients, c)
	close(c.send)
	if len(h.clients) == 0 {
		h.relay.DetachIf(h)
	}
	return true
}

// readLoop discards inbound frames and returns when the peer goes away.
func (h *Hub) readLoop(c *client) {
	defer func() {
		if h.remove(c) {
			h.log.Info("subscriber disconnected", "remote", c.conn.RemoteAddr().String())
		}
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(512)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writeLoop(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Close disconnects every subscriber.
func (h *Hub) Close() {
	h.mu.Lock()
	clients := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	for _, c := range clients {
		h.remove(c)
	}
}
