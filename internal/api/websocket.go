package api

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/FocuswithJustin/colordep/core/diagram"
	"github.com/FocuswithJustin/colordep/internal/logging"
)

const (
	wsWriteWait      = 10 * time.Second
	wsPongWait       = 60 * time.Second
	wsPingPeriod     = 54 * time.Second
	wsMaxMessageSize = 1 << 20
)

// GlobalHub is the shared websocket hub.
var GlobalHub *Hub

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || ServerConfig.originAllowed(origin)
	},
}

// Websocket message types.
const (
	MessageResult   = "result"
	MessageError    = "error"
	MessageRendered = "rendered"
)

// WSRequest is a render request sent over the socket. ID is echoed back.
type WSRequest struct {
	ID string `json:"id,omitempty"`
	RenderRequest
}

// WSMessage is sent to clients. Result and error messages answer one
// request; rendered messages announce diagrams rendered over HTTP.
type WSMessage struct {
	Type      string        `json:"type"`
	RequestID string        `json:"request_id,omitempty"`
	Result    *RenderResult `json:"result,omitempty"`
	Mode      string        `json:"mode,omitempty"`
	ETag      string        `json:"etag,omitempty"`
	Error     *APIError     `json:"error,omitempty"`
	Timestamp string        `json:"timestamp"`
}

// Client represents a websocket client connection.
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
	id   string
}

// Hub maintains active websocket connections and broadcasts messages.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
	mu         sync.RWMutex
}

// NewHub creates a new websocket hub.
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}
}

// Run handles client registration and broadcasting until the process exits.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			n := len(h.clients)
			h.mu.Unlock()
			logging.WebSocketEvent("client_connected", "clients", n, "client_id", client.id)

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			n := len(h.clients)
			h.mu.Unlock()
			logging.WebSocketEvent("client_disconnected", "clients", n, "client_id", client.id)

		case message := <-h.broadcast:
			h.mu.RLock()
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					logging.Warn("websocket client too slow, dropping broadcast", "client_id", client.id)
				}
			}
			h.mu.RUnlock()
		}
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast sends msg to every client.
func (h *Hub) Broadcast(msg WSMessage) {
	data, err := encodeMessage(msg)
	if err != nil {
		logging.Error("failed to marshal websocket message", "error", err)
		return
	}
	select {
	case h.broadcast <- data:
	default:
		logging.Warn("broadcast channel full, dropping message")
	}
}

// BroadcastRendered announces a diagram rendered over HTTP.
func BroadcastRendered(res *diagram.Result, etag string) {
	if GlobalHub == nil {
		return
	}
	GlobalHub.Broadcast(WSMessage{
		Type: MessageRendered,
		Mode: string(res.Mode),
		ETag: etag,
	})
}

func encodeMessage(msg WSMessage) ([]byte, error) {
	if msg.Timestamp == "" {
		msg.Timestamp = time.Now().UTC().Format(time.RFC3339)
	}
	return json.Marshal(msg)
}

// reply queues msg for this client only. Only the read goroutine calls it,
// and send is closed after that goroutine unregisters.
func (c *Client) reply(msg WSMessage) {
	data, err := encodeMessage(msg)
	if err != nil {
		logging.Error("failed to marshal websocket message", "error", err)
		return
	}
	select {
	case c.send <- data:
	default:
		logging.Warn("websocket client too slow, dropping reply", "client_id", c.id)
	}
}

// handle answers one render request.
func (c *Client) handle(ctx context.Context, data []byte) {
	var req WSRequest
	if err := json.Unmarshal(data, &req); err != nil {
		c.reply(WSMessage{Type: MessageError, Error: &APIError{Code: "INVALID_REQUEST", Message: "message must be a JSON render request"}})
		return
	}
	if req.ID == "" {
		req.ID = logging.NewRequestID()
	}
	ctx = logging.WithRequestID(ctx, req.ID)

	res, err := renderRequest(ctx, req.RenderRequest)
	if err != nil {
		c.reply(WSMessage{Type: MessageError, RequestID: req.ID, Error: &APIError{Code: "RENDER_FAILED", Message: err.Error()}})
		return
	}
	result := newRenderResult(res, etagFor(res))
	c.reply(WSMessage{Type: MessageResult, RequestID: req.ID, Result: &result})
}

// readPump reads render requests until the connection closes.
func (c *Client) readPump(ctx context.Context) {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(wsMaxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(wsPongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logging.Error("websocket unexpected close", "error", err, "client_id", c.id)
			}
			return
		}
		c.handle(ctx, data)
	}
}

// writePump writes queued messages and keeps the connection alive.
func (c *Client) writePump() {
	ticker := time.NewTicker(wsPingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleWebSocket upgrades the connection and registers the client.
func handleWebSocket(w http.ResponseWriter, r *http.Request) {
	if GlobalHub == nil {
		respondError(w, http.StatusServiceUnavailable, "HUB_UNAVAILABLE", "WebSocket hub not initialized")
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Warn("websocket upgrade failed", "error", err)
		return
	}

	id := logging.GetRequestID(r.Context())
	if id == "" {
		id = logging.NewRequestID()
	}
	client := &Client{
		hub:  GlobalHub,
		conn: conn,
		send: make(chan []byte, 256),
		id:   id,
	}
	client.hub.register <- client

	// The request context ends when the handler returns; replies outlive it.
	ctx := logging.WithRequestID(context.Background(), id)
	go client.writePump()
	go client.readPump(ctx)
}
