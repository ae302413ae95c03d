// Package gateway exposes peer state to local UI clients: a small HTTP
// API for snapshots and queries, and a WebSocket hub that pushes change
// events as the registry applies them.
package gateway

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const (
	// writeWait bounds a single frame write to a client.
	writeWait = 10 * time.Second

	// pongWait is how long a client may stay silent before its
	// connection is considered dead. Pings go out at pingPeriod, which
	// must be shorter than pongWait.
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10

	maxMessageSize = 512
	sendQueueSize  = 32
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	// The gateway binds to localhost for trusted UI clients; browser
	// origin checks do not apply.
	CheckOrigin: func(*http.Request) bool { return true },
}

// Event is one JSON frame pushed to every subscribed client.
type Event struct {
	Type   string `json:"type"`
	PeerID int64  `json:"peer_id,omitempty"`
	Data   any    `json:"data,omitempty"`
}

type client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
}

// Hub owns the set of connected WebSocket clients and fans events out to
// them. All set mutations happen on the Run loop; producers hand frames
// over through a buffered channel and never block on a slow client.
type Hub struct {
	log *slog.Logger

	register   chan *client
	unregister chan *client
	broadcast  chan []byte

	clients map[*client]struct{}
	done    chan struct{}
}

// NewHub builds a hub. Run must be called for clients to be served.
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		log:        logger.With("component", "gateway_hub"),
		register:   make(chan *client),
		unregister: make(chan *client),
		broadcast:  make(chan []byte, 256),
		clients:    make(map[*client]struct{}),
		done:       make(chan struct{}),
	}
}

// Run executes the hub loop until ctx is canceled, then closes every
// client. It returns the context's error so an errgroup shuts the whole
// application down together.
func (h *Hub) Run(ctx context.Context) error {
	defer close(h.done)
	h.log.Info("gateway hub started")
	for {
		select {
		case <-ctx.Done():
			h.log.Info("gateway hub stopping", "clients", len(h.clients))
			for c := range h.clients {
				close(c.send)
				delete(h.clients, c)
			}
			return ctx.Err()
		case c := <-h.register:
			h.clients[c] = struct{}{}
			h.log.Debug("WebSocket client connected", "clients", len(h.clients))
		case c := <-h.unregister:
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
				h.log.Debug("WebSocket client disconnected", "clients", len(h.clients))
			}
		case data := <-h.broadcast:
			for c := range h.clients {
				select {
				case c.send <- data:
				default:
					// The client's queue is full; drop the client
					// rather than stall everyone behind it.
					delete(h.clients, c)
					close(c.send)
					h.log.Warn("Dropping slow WebSocket client", "clients", len(h.clients))
				}
			}
		}
	}
}

// Broadcast queues an event for every connected client. Events are
// dropped, with a log line, when the hub cannot keep up or has stopped.
func (h *Hub) Broadcast(event Event) {
	data, err := json.Marshal(event)
	if err != nil {
		h.log.Error("Failed to encode gateway event", "error", err, "type", event.Type)
		return
	}
	select {
	case h.broadcast <- data:
	case <-h.done:
	default:
		h.log.Warn("Gateway broadcast queue full, dropping event", "type", event.Type)
	}
}

// ServeWS upgrades the request and serves the connection until the
// client goes away. It blocks for the lifetime of the connection.
func (h *Hub) ServeWS(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn("Failed to upgrade WebSocket connection", "error", err, "remote", c.Request.RemoteAddr)
		return
	}

	cl := &client{hub: h, conn: conn, send: make(chan []byte, sendQueueSize)}
	select {
	case h.register <- cl:
	case <-h.done:
		_ = conn.Close()
		return
	}

	go cl.writePump()
	cl.readPump()
}

// readPump drains the connection so close frames and pongs are
// processed. Subscribers only listen; inbound data frames are ignored.
func (c *client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) {
				c.hub.log.Debug("WebSocket read ended", "error", err)
			}
			return
		}
	}
}

// writePump owns all writes on the connection: queued events, the close
// frame when the hub drops the client, and keepalive pings.
func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
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
