// Package api implements the push channel and HTTP surface (components
// K/N): a websocket fan-out of session and terminal events, and the REST
// surface for session CRUD, config, and iterative-loop control.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/relayforge/orchestra/internal/events"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512 * 1024
)

// WSMessage is a client-to-server websocket frame: subscribe to a session
// id (or "*" for all sessions), or unsubscribe.
type WSMessage struct {
	Type      string `json:"type"` // subscribe, unsubscribe
	SessionID string `json:"sessionId,omitempty"`
}

// WSHandler upgrades connections and fans published events.Event values out
// to whichever session id(s) each connection has subscribed to.
type WSHandler struct {
	upgrader    websocket.Upgrader
	publisher   events.Publisher
	connections map[*websocket.Conn]*wsConnection
	mu          sync.RWMutex
	logger      *slog.Logger
}

type wsConnection struct {
	conn      *websocket.Conn
	mu        sync.Mutex
	sessionID string
	eventChan <-chan events.Event
	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

// NewWSHandler constructs a WSHandler fed by pub.
func NewWSHandler(pub events.Publisher, logger *slog.Logger) *WSHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &WSHandler{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		publisher:   pub,
		connections: make(map[*websocket.Conn]*wsConnection),
		logger:      logger,
	}
}

// ServeHTTP upgrades the request and starts the connection's read/write
// pumps. The connection starts unsubscribed; the client sends a subscribe
// frame naming the session (or events.GlobalSessionID) it wants.
func (h *WSHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed", "error", err)
		return
	}

	c := &wsConnection{
		conn: conn,
		send: make(chan []byte, 256),
		done: make(chan struct{}),
	}

	h.mu.Lock()
	h.connections[conn] = c
	h.mu.Unlock()

	go h.readPump(c)
	go h.writePump(c)
}

func (h *WSHandler) readPump(c *wsConnection) {
	defer h.closeConnection(c)

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.logger.Debug("websocket read error", "error", err)
			}
			return
		}
		h.handleMessage(c, raw)
	}
}

func (h *WSHandler) handleMessage(c *wsConnection, raw []byte) {
	var msg WSMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return
	}

	switch msg.Type {
	case "subscribe":
		h.subscribe(c, msg.SessionID)
	case "unsubscribe":
		h.unsubscribe(c)
	}
}

func (h *WSHandler) subscribe(c *wsConnection, sessionID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.eventChan != nil {
		h.publisher.Unsubscribe(c.sessionID, c.eventChan)
	}

	ch := h.publisher.Subscribe(sessionID)
	c.sessionID = sessionID
	c.eventChan = ch

	go h.forward(c, ch)
}

func (h *WSHandler) unsubscribe(c *wsConnection) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.eventChan != nil {
		h.publisher.Unsubscribe(c.sessionID, c.eventChan)
		c.eventChan = nil
		c.sessionID = ""
	}
}

// forward relays one subscription's events to the connection's send
// channel, dropping the event rather than blocking if the channel is full.
func (h *WSHandler) forward(c *wsConnection, ch <-chan events.Event) {
	for {
		select {
		case <-c.done:
			return
		case event, ok := <-ch:
			if !ok {
				return
			}
			data, err := json.Marshal(event)
			if err != nil {
				continue
			}
			select {
			case c.send <- data:
			default:
			}
		}
	}
}

func (h *WSHandler) writePump(c *wsConnection) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case <-c.done:
			return
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
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

func (h *WSHandler) closeConnection(c *wsConnection) {
	c.closeOnce.Do(func() {
		close(c.done)
		h.unsubscribe(c)

		h.mu.Lock()
		delete(h.connections, c.conn)
		h.mu.Unlock()
	})
}

// ConnectionCount reports the number of live websocket connections.
func (h *WSHandler) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.connections)
}
