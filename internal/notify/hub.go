package notify

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/voxkey/voxkey/internal/settings"
)

const (
	// Time allowed to write a snapshot to one peer.
	writeWait = 5 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Subscribed surfaces only ever send small acknowledgements.
	maxMessageSize = 4 * 1024
)

// MessageType tags hub payloads.
type MessageType string

const (
	MessageTypeSettings MessageType = "settings"
	MessageTypeHello    MessageType = "hello"
)

// Envelope is the wire shape delivered to subscribed contexts. A context
// either receives the full snapshot or nothing.
type Envelope struct {
	Type      MessageType    `json:"type"`
	MessageID string         `json:"message_id"`
	Timestamp string         `json:"timestamp"`
	Settings  map[string]any `json:"settings,omitempty"`
}

// Hub tracks subscribed websocket contexts and broadcasts settings
// snapshots to each of them with per-target failure isolation.
type Hub struct {
	logger *slog.Logger

	mu      sync.RWMutex
	clients map[string]*client
}

type client struct {
	id   string
	conn *websocket.Conn

	writeMu sync.Mutex
	closed  bool
}

// NewHub creates an empty hub.
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Hub{
		logger:  logger,
		clients: map[string]*client{},
	}
}

// Attach registers an upgraded connection and starts its keepalive loops.
// The returned id names the context in delivery results.
func (h *Hub) Attach(conn *websocket.Conn) string {
	c := &client{id: uuid.NewString(), conn: conn}

	h.mu.Lock()
	h.clients[c.id] = c
	h.mu.Unlock()

	h.logger.Info("context subscribed", "context", c.id)

	hello := Envelope{
		Type:      MessageTypeHello,
		MessageID: uuid.NewString(),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	_ = c.write(hello)

	go h.readLoop(c)
	go h.pingLoop(c)
	return c.id
}

// Count reports the number of subscribed contexts.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast delivers the snapshot to every subscribed context. A context
// that went away mid-broadcast is dropped and reported, never retried.
func (h *Hub) Broadcast(_ context.Context, s settings.Settings) []settings.DeliveryResult {
	envelope := Envelope{
		Type:      MessageTypeSettings,
		MessageID: uuid.NewString(),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Settings:  s.Record(),
	}

	h.mu.RLock()
	targets := make([]*client, 0, len(h.clients))
	for _, c := range h.clients {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	results := make([]settings.DeliveryResult, 0, len(targets))
	for _, c := range targets {
		if err := c.write(envelope); err != nil {
			results = append(results, settings.DeliveryResult{Target: c.id, OK: false, Err: err})
			h.drop(c)
			continue
		}
		results = append(results, settings.DeliveryResult{Target: c.id, OK: true})
	}
	return results
}

// Send delivers the snapshot to one subscribed context.
func (h *Hub) Send(id string, s settings.Settings) error {
	h.mu.RLock()
	c, ok := h.clients[id]
	h.mu.RUnlock()
	if !ok {
		return errors.New("context is not subscribed")
	}

	envelope := Envelope{
		Type:      MessageTypeSettings,
		MessageID: uuid.NewString(),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Settings:  s.Record(),
	}
	if err := c.write(envelope); err != nil {
		h.drop(c)
		return err
	}
	return nil
}

// Close disconnects every subscribed context.
func (h *Hub) Close() {
	h.mu.Lock()
	clients := h.clients
	h.clients = map[string]*client{}
	h.mu.Unlock()

	for _, c := range clients {
		c.close()
	}
}

// readLoop drains peer messages so pongs and closes are processed.
func (h *Hub) readLoop(c *client) {
	defer h.drop(c)

	c.conn.SetReadLimit(maxMessageSize)
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

// pingLoop keeps the peer's read deadline alive.
func (h *Hub) pingLoop(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for range ticker.C {
		c.writeMu.Lock()
		if c.closed {
			c.writeMu.Unlock()
			return
		}
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		err := c.conn.WriteMessage(websocket.PingMessage, nil)
		c.writeMu.Unlock()
		if err != nil {
			h.drop(c)
			return
		}
	}
}

// drop removes a context; double drops are fine.
func (h *Hub) drop(c *client) {
	h.mu.Lock()
	_, present := h.clients[c.id]
	delete(h.clients, c.id)
	h.mu.Unlock()

	c.close()
	if present {
		h.logger.Debug("context unsubscribed", "context", c.id)
	}
}

func (c *client) write(envelope Envelope) error {
	payload, err := json.Marshal(envelope)
	if err != nil {
		return err
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if c.closed {
		return websocket.ErrCloseSent
	}
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(websocket.TextMessage, payload)
}

func (c *client) close() {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	_ = c.conn.Close()
}
