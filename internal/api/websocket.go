package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nerrad567/sdrlink/internal/auth"
	"github.com/nerrad567/sdrlink/internal/fleet"
	"github.com/nerrad567/sdrlink/internal/infrastructure/config"
	"github.com/nerrad567/sdrlink/internal/infrastructure/logging"
)

// WebSocket message types.
const (
	WSTypeSubscribe   = "subscribe"
	WSTypeUnsubscribe = "unsubscribe"
	WSTypePing        = "ping"
	WSTypePong        = "pong"
	WSTypeEvent       = "event"
	WSTypeResponse    = "response"
	WSTypeError       = "error"

	// WSChannelAll subscribes to every event type.
	WSChannelAll = "*"

	// wsRadioSep scopes a channel to one radio, as in "radio.state/rx1".
	wsRadioSep = "/"

	wsSendBufferSize = 256
)

// WSMessage is a frame exchanged with a WebSocket client.
type WSMessage struct {
	Type      string `json:"type"`
	ID        string `json:"id,omitempty"`
	EventType string `json:"event_type,omitempty"`
	Radio     string `json:"radio,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
	Payload   any    `json:"payload,omitempty"`
}

// WSSubscribePayload lists the channels of a subscribe or unsubscribe
// message.
type WSSubscribePayload struct {
	Channels []string `json:"channels"`
}

// Hub fans fleet events out to WebSocket clients. It satisfies
// fleet.Events.
type Hub struct {
	cfg    config.WebSocketConfig
	logger *logging.Logger

	mu      sync.RWMutex
	clients map[*WSClient]struct{}
}

// WSClient is one connected event stream.
type WSClient struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte

	mu       sync.RWMutex
	channels map[string]struct{}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Origins are checked by corsMiddleware.
	CheckOrigin: func(*http.Request) bool { return true },
}

// NewHub returns a hub with no clients.
func NewHub(cfg config.WebSocketConfig, logger *logging.Logger) *Hub {
	return &Hub{cfg: cfg, logger: logger, clients: map[*WSClient]struct{}{}}
}

func newWSClient(h *Hub, conn *websocket.Conn, buffer int) *WSClient {
	return &WSClient{
		hub:      h,
		conn:     conn,
		send:     make(chan []byte, buffer),
		channels: map[string]struct{}{},
	}
}

// Run blocks until ctx is cancelled, then disconnects every client.
func (h *Hub) Run(ctx context.Context) {
	<-ctx.Done()

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
		if c.conn != nil {
			c.conn.Close()
		}
	}
}

// Register adds a client.
func (h *Hub) Register(c *WSClient) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()
	h.logger.Debug("websocket client connected", "clients", n)
}

// Unregister removes a client. Its send channel is closed exactly once,
// by whichever caller removed it.
func (h *Hub) Unregister(c *WSClient) {
	h.mu.Lock()
	_, ok := h.clients[c]
	delete(h.clients, c)
	n := len(h.clients)
	h.mu.Unlock()

	if !ok {
		return
	}
	close(c.send)
	h.logger.Debug("websocket client disconnected", "clients", n)
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast delivers an event to every client whose channels match the
// event type, either plainly or scoped to the radio the event concerns.
func (h *Hub) Broadcast(eventType string, payload any) {
	name := eventRadio(payload)
	data, err := json.Marshal(WSMessage{
		Type:      WSTypeEvent,
		EventType: eventType,
		Radio:     name,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Payload:   payload,
	})
	if err != nil {
		h.logger.Error("encoding websocket event", "event_type", eventType, "error", err)
		return
	}

	h.mu.RLock()
	targets := make([]*WSClient, 0, len(h.clients))
	for c := range h.clients {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	delivered := 0
	for _, c := range targets {
		if c.wants(eventType, name) {
			c.trySend(data)
			delivered++
		}
	}
	if delivered > 0 {
		h.logger.Debug("websocket event sent", "event_type", eventType, "radio", name, "recipients", delivered)
	}
}

// eventRadio extracts the radio name from a fleet event payload.
func eventRadio(payload any) string {
	switch p := payload.(type) {
	case fleet.ComponentState:
		return p.Radio
	case *fleet.ComponentState:
		return p.Radio
	case map[string]string:
		return p["radio"]
	case map[string]any:
		s, _ := p["radio"].(string) //nolint:errcheck // absent means unscoped
		return s
	}
	return ""
}

// handleWebSocket upgrades the connection to an event stream. Browsers
// cannot set headers on the upgrade request, so with auth enabled the
// bearer token travels in the token query parameter.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	if s.cfg.AuthRequired {
		claims, err := auth.ParseToken(r.URL.Query().Get("token"), s.secCfg.JWT.Secret)
		switch {
		case r.URL.Query().Get("token") == "":
			writeUnauthorized(w, "token query parameter is required")
			return
		case err != nil:
			writeUnauthorized(w, "invalid or expired token")
			return
		case !auth.HasPermission(claims.Role, auth.PermRadioRead):
			writeForbidden(w, auth.ErrForbidden.Error())
			return
		}
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed", "error", err)
		return
	}

	c := newWSClient(s.hub, conn, wsSendBufferSize)
	s.hub.Register(c)

	t := newWSTimings(s.wsCfg)
	go c.writeLoop(t)
	go c.readLoop(t, int64(s.wsCfg.MaxMessageSize))
}

// wsTimings are the keepalive intervals derived from config.
type wsTimings struct {
	ping      time.Duration
	writeWait time.Duration
	readWait  time.Duration
}

func newWSTimings(cfg config.WebSocketConfig) wsTimings {
	ping := time.Duration(cfg.PingInterval) * time.Second
	pong := time.Duration(cfg.PongTimeout) * time.Second
	return wsTimings{ping: ping, writeWait: pong, readWait: ping + pong}
}

func (c *WSClient) readLoop(t wsTimings, limit int64) {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	extend := func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(t.readWait))
	}
	c.conn.SetReadLimit(limit)
	extend("") //nolint:errcheck // Initial deadline; read errors surface below
	c.conn.SetPongHandler(extend)

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Warn("websocket read error", "error", err)
			}
			return
		}
		extend("") //nolint:errcheck // Read errors surface on the next read
		c.dispatch(data)
	}
}

func (c *WSClient) writeLoop(t wsTimings) {
	ping := time.NewTicker(t.ping)
	defer func() {
		ping.Stop()
		c.conn.Close()
	}()

	write := func(kind int, data []byte) error {
		//nolint:errcheck // Deadline failures surface as write errors
		c.conn.SetWriteDeadline(time.Now().Add(t.writeWait))
		return c.conn.WriteMessage(kind, data)
	}

	for {
		select {
		case data, open := <-c.send:
			if !open {
				write(websocket.CloseMessage, nil) //nolint:errcheck // Peer may already be gone
				return
			}
			if write(websocket.TextMessage, data) != nil {
				return
			}
		case <-ping.C:
			if write(websocket.PingMessage, nil) != nil {
				return
			}
		}
	}
}

func (c *WSClient) dispatch(data []byte) {
	var msg WSMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		c.reply("", WSTypeError, map[string]string{"message": "invalid JSON message"})
		return
	}

	switch msg.Type {
	case WSTypeSubscribe, WSTypeUnsubscribe:
		c.updateChannels(msg)
	case WSTypePing:
		c.reply(msg.ID, WSTypePong, nil)
	default:
		c.reply(msg.ID, WSTypeError, map[string]string{"message": "unknown message type: " + msg.Type})
	}
}

// updateChannels applies a subscribe or unsubscribe message. Channels are
// an event type, an event type scoped to a radio, or WSChannelAll.
func (c *WSClient) updateChannels(msg WSMessage) {
	var sub WSSubscribePayload
	raw, err := json.Marshal(msg.Payload)
	if err == nil {
		err = json.Unmarshal(raw, &sub)
	}
	if err != nil || len(sub.Channels) == 0 {
		c.reply(msg.ID, WSTypeError, map[string]string{"message": "invalid " + msg.Type + " payload"})
		return
	}

	c.mu.Lock()
	for _, ch := range sub.Channels {
		ch = strings.TrimSpace(ch)
		if msg.Type == WSTypeSubscribe {
			c.channels[ch] = struct{}{}
		} else {
			delete(c.channels, ch)
		}
	}
	c.mu.Unlock()

	c.reply(msg.ID, WSTypeResponse, map[string]any{msg.Type + "d": sub.Channels})
}

func (c *WSClient) wants(eventType, radioName string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, ch := range []string{WSChannelAll, eventType, eventType + wsRadioSep + radioName} {
		if _, ok := c.channels[ch]; ok {
			return true
		}
	}
	return false
}

// trySend queues data without blocking. A full buffer drops the frame;
// a send racing Unregister is absorbed.
func (c *WSClient) trySend(data []byte) {
	defer func() {
		recover() //nolint:errcheck // Send on closed channel after Unregister
	}()

	select {
	case c.send <- data:
	default:
	}
}

func (c *WSClient) reply(id, msgType string, payload any) {
	data, err := json.Marshal(WSMessage{
		Type:      msgType,
		ID:        id,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Payload:   payload,
	})
	if err == nil {
		c.trySend(data)
	}
}
