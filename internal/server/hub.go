package server

import (
	"encoding/json"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/melih-ucgun/calswitch/internal/core"
)

const (
	MessageNotification = "notification"
	MessageState        = "state"
	MessageSystem       = "system"
)

// Message is the envelope written to websocket clients.
type Message struct {
	Type      string    `json:"type"`
	Data      any       `json:"data,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

type command struct {
	Action string `json:"action"`
}

type Client struct {
	hub       *Hub
	conn      *websocket.Conn
	send      chan []byte
	sessionID string

	// mu guards send against a close racing a broadcast.
	mu     sync.Mutex
	closed bool
}

func NewClient(hub *Hub, conn *websocket.Conn, sessionID string, buf int) *Client {
	return &Client{
		hub:       hub,
		conn:      conn,
		send:      make(chan []byte, buf),
		sessionID: sessionID,
	}
}

func (c *Client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
	if c.conn != nil {
		_ = c.conn.Close()
	}
}

func (c *Client) enqueue(msg Message) bool {
	data, err := json.Marshal(msg)
	if err != nil {
		slog.Warn("websocket marshal error", slog.Any("error", err))
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

func (c *Client) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *Client) WritePump() {
	ping := time.NewTicker(30 * time.Second)
	defer ping.Stop()

	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				slog.Debug("websocket write error", slog.String("sessionId", c.sessionID), slog.Any("error", err))
				return
			}
		case <-ping.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second)); err != nil {
				slog.Debug("websocket ping error", slog.String("sessionId", c.sessionID), slog.Any("error", err))
				return
			}
		}
	}
}

func (c *Client) ReadPump() {
	c.conn.SetReadLimit(1 << 16)
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	})
	defer c.hub.Detach(c)
	for {
		var cmd command
		_ = c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		if err := c.conn.ReadJSON(&cmd); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				slog.Debug("websocket read error", slog.String("sessionId", c.sessionID), slog.Any("error", err))
			}
			return
		}
		if strings.EqualFold(cmd.Action, "ping") {
			c.enqueue(Message{Type: MessageSystem, Data: map[string]string{"action": "pong"}, Timestamp: time.Now().UTC()})
		}
	}
}

// Hub fans notifications and state changes out to websocket clients.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client
}

func NewHub() *Hub {
	return &Hub{clients: make(map[string]*Client)}
}

func (h *Hub) Attach(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if existing, ok := h.clients[c.sessionID]; ok && existing != c {
		existing.close()
	}
	h.clients[c.sessionID] = c
}

func (h *Hub) Detach(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if existing, ok := h.clients[c.sessionID]; ok && existing == c {
		delete(h.clients, c.sessionID)
	}
	c.close()
}

// Count returns the number of attached clients.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast sends msg to every client. Slow clients are dropped.
func (h *Hub) Broadcast(msg Message) {
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now().UTC()
	}
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		if !c.enqueue(msg) && !c.isClosed() {
			go h.Detach(c)
		}
	}
}

// Notify implements core.Notifier.
func (h *Hub) Notify(n core.Notification) {
	h.Broadcast(Message{Type: MessageNotification, Data: n})
}

// PublishState is registered with Syncer.OnChange.
func (h *Hub) PublishState(st core.ToggleState) {
	h.Broadcast(Message{Type: MessageState, Data: toggleView(st)})
}
