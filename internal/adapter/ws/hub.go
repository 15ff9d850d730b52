// Package ws streams globe events to browser clients over websockets and
// feeds their pointer and metric commands back to the globe loop.
package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/couchcryptid/geo-heat-overlay/internal/domain"
	"github.com/couchcryptid/geo-heat-overlay/internal/globe"
	"github.com/couchcryptid/geo-heat-overlay/internal/heatmap"
	"github.com/couchcryptid/geo-heat-overlay/internal/observability"
)

const (
	writeTimeout   = 5 * time.Second
	stateTimeout   = 2 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = pongWait * 9 / 10
	sendQueueSize  = 32
	maxMessageSize = 4 << 10
)

// Target is the globe loop commands are posted to.
type Target interface {
	Post(fn func(*globe.App))
	Do(ctx context.Context, fn func(*globe.App)) error
}

type client struct {
	id   string
	conn *websocket.Conn
	mu   sync.Mutex // serializes writes
	send chan []byte
}

// Hub tracks connected clients and fans events out to them.
type Hub struct {
	target   Target
	upgrader websocket.Upgrader
	logger   *slog.Logger
	metrics  *observability.Metrics

	mu      sync.RWMutex
	clients map[string]*client
}

// NewHub creates a hub posting commands to target.
func NewHub(target Target, logger *slog.Logger, metrics *observability.Metrics) *Hub {
	return &Hub{
		target: target,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		logger:  logger,
		metrics: metrics,
		clients: make(map[string]*client),
	}
}

// Bind routes the app's output hooks to the hub. It must run before the
// loop starts or on the loop goroutine.
func (h *Hub) Bind(app *globe.App) {
	app.OnHover = func(s *domain.Sample) {
		h.Broadcast(Event{Type: EventHover, Sample: s, Tooltip: ptr(app.Tooltip())})
	}
	app.OnSelect = func(s domain.Sample) {
		h.Broadcast(Event{Type: EventSelect, Sample: &s})
	}
	app.OnTextureRebuilt = func(info heatmap.Info) {
		h.Broadcast(Event{Type: EventTextureRebuilt, Texture: &info})
	}
	app.OnError = func(err error) {
		h.Broadcast(Event{Type: EventError, Error: err.Error()})
	}
	prev := app.OnMetricChanged
	app.OnMetricChanged = func(kind domain.MetricKind) {
		if prev != nil {
			prev(kind)
		}
		h.Broadcast(Event{Type: EventMetricChanged, Kind: kind.String()})
	}
}

// Len reports the number of connected clients.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast queues ev for every client. A client whose queue is full misses
// the event rather than stalling the caller, which is usually the render
// loop.
func (h *Hub) Broadcast(ev Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		h.logger.Error("encode websocket event", "type", ev.Type, "error", err)
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.clients {
		select {
		case c.send <- data:
		default:
			h.logger.Warn("websocket client lagging, dropping event", "client", c.id, "type", ev.Type)
		}
	}
}

// ServeHTTP upgrades the request and serves the client until it disconnects.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	conn.SetReadLimit(maxMessageSize)
	// The HTTP server's read deadline still applies to the hijacked conn.
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	c := &client{id: uuid.NewString(), conn: conn, send: make(chan []byte, sendQueueSize)}
	h.register(c)
	defer h.unregister(c)

	done := make(chan struct{})
	defer close(done)
	go h.writeLoop(c, done)

	h.sendState(r.Context(), c)
	h.readLoop(c)
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	h.clients[c.id] = c
	n := len(h.clients)
	h.mu.Unlock()
	h.metrics.WebsocketClients.Set(float64(n))
	h.logger.Info("websocket client connected", "client", c.id, "clients", n)
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	delete(h.clients, c.id)
	n := len(h.clients)
	h.mu.Unlock()
	c.conn.Close()
	h.metrics.WebsocketClients.Set(float64(n))
	h.logger.Info("websocket client disconnected", "client", c.id, "clients", n)
}

func (h *Hub) sendState(ctx context.Context, c *client) {
	ctx, cancel := context.WithTimeout(ctx, stateTimeout)
	defer cancel()

	var st globe.State
	err := h.target.Do(ctx, func(a *globe.App) { st = a.Snapshot() })
	if err != nil {
		h.logger.Warn("initial websocket state unavailable", "client", c.id, "error", err)
		return
	}
	data, err := json.Marshal(Event{Type: EventState, State: &st})
	if err != nil {
		h.logger.Error("encode websocket state", "error", err)
		return
	}
	select {
	case c.send <- data:
	default:
	}
}

func (h *Hub) writeLoop(c *client, done <-chan struct{}) {
	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()
	for {
		select {
		case <-done:
			return
		case <-ping.C:
			if err := c.write(websocket.PingMessage, nil); err != nil {
				c.conn.Close()
				return
			}
		case data := <-c.send:
			if err := c.write(websocket.TextMessage, data); err != nil {
				h.logger.Debug("websocket write failed", "client", c.id, "error", err)
				c.conn.Close()
				return
			}
		}
	}
}

func (c *client) write(messageType int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		return err
	}
	return c.conn.WriteMessage(messageType, data)
}

func (h *Hub) readLoop(c *client) {
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.logger.Debug("websocket read ended", "client", c.id, "error", err)
			}
			return
		}
		var cmd Command
		if err := json.Unmarshal(data, &cmd); err != nil {
			h.reply(c, Event{Type: EventError, Error: "malformed command: " + err.Error()})
			continue
		}
		if err := h.dispatch(cmd); err != nil {
			h.reply(c, Event{Type: EventError, Error: err.Error()})
		}
	}
}

func (h *Hub) reply(c *client, ev Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		return
	}
	select {
	case c.send <- data:
	default:
	}
}

func ptr[T any](v T) *T { return &v }
