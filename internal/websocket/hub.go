package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"optexec/internal/infrastructure"
)

// Event types pushed to clients
const (
	TypeConnection = "connection"
	TypeExecution  = "execution:completed"
	TypeFallback   = "execution:fallback"
	TypeComparison = "execution:compared"
	TypePortfolio  = "portfolio:allocated"
	TypeError      = "error"
)

// broadcastBuffer is how many events may queue before Publish starts dropping
const broadcastBuffer = 256

// Event is the envelope of every message sent to clients
type Event struct {
	Type      string      `json:"type"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	TraceID   string      `json:"trace_id,omitempty"`
}

// HubStats is a snapshot of hub counters
type HubStats struct {
	ActiveClients    int   `json:"active_clients"`
	TotalConnections int64 `json:"total_connections"`
	EventsPublished  int64 `json:"events_published"`
	EventsDropped    int64 `json:"events_dropped"`
}

// Hub fans events out to connected clients. Run owns the client set; other
// goroutines talk to it through channels.
type Hub struct {
	clients    map[*Client]struct{}
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	doneOnce   sync.Once

	mu     sync.RWMutex
	logger *slog.Logger

	metrics *infrastructure.ExecutionMetrics

	totalConnections atomic.Int64
	published        atomic.Int64
	dropped          atomic.Int64
}

var _ Publisher = (*Hub)(nil)

// NewHub creates a hub. metrics may be nil.
func NewHub(logger *slog.Logger, metrics *infrastructure.ExecutionMetrics) *Hub {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}
	return &Hub{
		clients:    make(map[*Client]struct{}),
		broadcast:  make(chan []byte, broadcastBuffer),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		logger:     logger.With(slog.String("component", "websocket.hub")),
		metrics:    metrics,
	}
}

// Run serves registrations and broadcasts until ctx is cancelled, then
// disconnects every client
func (h *Hub) Run(ctx context.Context) error {
	defer h.shutdown(ctx)

	for {
		select {
		case <-ctx.Done():
			return nil

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = struct{}{}
			count := len(h.clients)
			h.mu.Unlock()
			h.totalConnections.Add(1)
			h.metrics.TrackWebSocketClient(ctx, 1)

			h.logger.InfoContext(ctx, "client registered",
				slog.String("client_id", client.id),
				slog.String("remote_addr", client.remoteAddr),
				slog.Int("total_clients", count))

			if msg, err := h.encode(TypeConnection, map[string]string{
				"status":    "connected",
				"client_id": client.id,
			}, client.traceID); err == nil {
				h.deliver(ctx, client, msg)
			}

		case client := <-h.unregister:
			h.remove(ctx, client, "closed")

		case msg := <-h.broadcast:
			h.mu.RLock()
			clients := make([]*Client, 0, len(h.clients))
			for c := range h.clients {
				clients = append(clients, c)
			}
			h.mu.RUnlock()

			for _, c := range clients {
				h.deliver(ctx, c, msg)
			}
		}
	}
}

// deliver queues msg for c, disconnecting clients that cannot keep up
func (h *Hub) deliver(ctx context.Context, c *Client, msg []byte) {
	select {
	case c.send <- msg:
	default:
		h.remove(ctx, c, "send buffer full")
	}
}

func (h *Hub) remove(ctx context.Context, c *Client, reason string) {
	h.mu.Lock()
	if _, ok := h.clients[c]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, c)
	close(c.send)
	count := len(h.clients)
	h.mu.Unlock()
	h.metrics.TrackWebSocketClient(ctx, -1)

	h.logger.InfoContext(ctx, "client unregistered",
		slog.String("client_id", c.id),
		slog.String("reason", reason),
		slog.Duration("connection_duration", time.Since(c.connectedAt)),
		slog.Int("total_clients", count))
}

func (h *Hub) shutdown(ctx context.Context) {
	h.doneOnce.Do(func() { close(h.done) })

	h.mu.Lock()
	n := len(h.clients)
	for c := range h.clients {
		close(c.send)
		delete(h.clients, c)
	}
	h.mu.Unlock()
	h.metrics.TrackWebSocketClient(context.WithoutCancel(ctx), -int64(n))

	h.logger.Info("hub stopped", slog.Int("disconnected_clients", n))
}

// Publish queues an event for every connected client. It never blocks: events are
// dropped when the queue is full or the hub has stopped.
func (h *Hub) Publish(ctx context.Context, eventType string, data interface{}) {
	msg, err := h.encode(eventType, data, infrastructure.GetTraceID(ctx))
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to encode event",
			slog.String("type", eventType),
			slog.String("error", err.Error()))
		return
	}

	select {
	case <-h.done:
		h.dropped.Add(1)
		return
	default:
	}

	select {
	case h.broadcast <- msg:
		h.published.Add(1)
	default:
		h.dropped.Add(1)
		h.logger.WarnContext(ctx, "broadcast queue full, dropping event", slog.String("type", eventType))
	}
}

func (h *Hub) encode(eventType string, data interface{}, traceID string) ([]byte, error) {
	return json.Marshal(Event{
		Type:      eventType,
		Data:      data,
		Timestamp: time.Now().UTC(),
		TraceID:   traceID,
	})
}

// Register hands a client to the hub. It returns false if the hub has stopped.
func (h *Hub) Register(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

// Unregister removes a client. Safe to call after the hub has stopped.
func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// Done is closed once Run has returned
func (h *Hub) Done() <-chan struct{} {
	return h.done
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Stats returns a snapshot of the hub counters
func (h *Hub) Stats() HubStats {
	return HubStats{
		ActiveClients:    h.ClientCount(),
		TotalConnections: h.totalConnections.Load(),
		EventsPublished:  h.published.Load(),
		EventsDropped:    h.dropped.Load(),
	}
}
