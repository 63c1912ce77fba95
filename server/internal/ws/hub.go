package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/lapboard/lapboard/server/internal/board"
	"github.com/lapboard/lapboard/server/internal/metrics"
)

// EventStateUpdate is the event name of every message sent to clients.
const EventStateUpdate = "state:update"

const (
	// writeTimeout is the deadline for a single write to a client.
	writeTimeout = 10 * time.Second

	// pongWait is how long to wait for a pong response before treating the
	// connection as dead.
	pongWait = 60 * time.Second

	// pingPeriod controls how often the server sends WebSocket ping frames.
	// Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// DefaultSendBuffer is the per-client outgoing message buffer depth.
	DefaultSendBuffer = 16
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Message is the JSON envelope sent to clients.
type Message struct {
	Event string         `json:"event"`
	Data  board.Snapshot `json:"data"`
}

// SnapshotSource provides the snapshot sent on connect. *board.Service
// satisfies it.
type SnapshotSource interface {
	Snapshot() board.Snapshot
}

// Sink receives every encoded broadcast message in addition to the
// WebSocket clients. Publish must not block for long.
type Sink interface {
	Publish(data []byte) error
}

// Hub manages WebSocket client connections and fans snapshots out to them.
type Hub struct {
	src     SnapshotSource
	sendBuf int
	rec     metrics.Recorder
	sinks   []Sink

	mu      sync.RWMutex
	clients map[*client]struct{}
}

// client represents one connected WebSocket client.
type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Option configures a Hub.
type Option func(*Hub)

// WithSendBuffer sets the per-client buffer depth.
func WithSendBuffer(n int) Option {
	return func(h *Hub) {
		if n > 0 {
			h.sendBuf = n
		}
	}
}

// WithRecorder reports broadcasts and observer counts to rec.
func WithRecorder(rec metrics.Recorder) Option {
	return func(h *Hub) { h.rec = rec }
}

// WithSink adds a sink that receives every broadcast message.
func WithSink(s Sink) Option {
	return func(h *Hub) { h.sinks = append(h.sinks, s) }
}

// New creates a Hub that reads on-connect snapshots from src.
func New(src SnapshotSource, opts ...Option) *Hub {
	h := &Hub{
		src:     src,
		sendBuf: DefaultSendBuffer,
		rec:     metrics.NoopRecorder{},
		clients: make(map[*client]struct{}),
	}
	for _, o := range opts {
		o(h)
	}
	return h
}

// Run blocks until ctx is cancelled, then closes all active connections.
func (h *Hub) Run(ctx context.Context) {
	<-ctx.Done()
	h.closeAll()
}

// ServeHTTP upgrades the HTTP connection to WebSocket and serves the client.
// The current snapshot is queued before any broadcast can reach the client.
// Blocks until the connection closes.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// upgrader has already written the error response.
		return
	}

	c := &client{
		conn: conn,
		send: make(chan []byte, h.sendBuf),
	}
	h.register(c)
	defer h.unregister(c)

	go c.writePump()
	c.readPump() // blocks until connection closes
}

// Broadcast sends snap to every connected client and every sink. It never
// blocks on a client.
func (h *Hub) Broadcast(snap board.Snapshot) {
	data, err := encode(snap)
	if err != nil {
		slog.Error("ws: encode snapshot", "err", err)
		return
	}

	var slow []*client
	h.mu.RLock()
	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range slow {
		slog.Warn("ws: client send buffer full, disconnecting", "remote", c.conn.RemoteAddr().String())
		h.rec.IncObserverDropped()
		h.unregister(c)
	}
	h.rec.IncBroadcast()

	for _, s := range h.sinks {
		if err := s.Publish(data); err != nil {
			slog.Warn("ws: sink publish failed", "err", err)
		}
	}
}

// Count returns the number of currently connected clients.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// --- internal ---------------------------------------------------------------

// register adds c and queues the current snapshot for it. Holding the write
// lock keeps broadcasts out until the initial snapshot is queued, so a client
// never sees an older state after a newer one.
func (h *Hub) register(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = struct{}{}
	if data, err := encode(h.src.Snapshot()); err == nil {
		c.send <- data // fresh buffer, cannot block
	} else {
		slog.Error("ws: encode snapshot", "err", err)
	}
	h.rec.SetObservers(len(h.clients))
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
		h.rec.SetObservers(len(h.clients))
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		close(c.send)
		delete(h.clients, c)
	}
	h.rec.SetObservers(0)
}

func encode(snap board.Snapshot) ([]byte, error) {
	return json.Marshal(Message{Event: EventStateUpdate, Data: snap})
}

// writePump drains the client's send channel and forwards messages to the
// WebSocket connection. It also sends periodic ping frames. Runs in its own
// goroutine per client.
func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout)) //nolint:errcheck
			if !ok {
				// Channel was closed (hub is shutting down or client removed).
				c.conn.WriteMessage(websocket.CloseMessage, []byte{}) //nolint:errcheck
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout)) //nolint:errcheck
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump reads frames from the connection to process control messages (pong,
// close) and detect disconnects. Blocks until the connection closes.
func (c *client) readPump() {
	defer c.conn.Close()
	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(pongWait)) //nolint:errcheck
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait)) //nolint:errcheck
		return nil
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			break
		}
	}
}
