package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"hilirisasi/internal/infrastructure"
	"hilirisasi/pkg/contracts"
	"hilirisasi/pkg/contracts/events"
)

// broadcastQueueSize bounds the messages waiting for the run loop.
const broadcastQueueSize = 256

// HubOption configures a Hub.
type HubOption func(*Hub)

// WithMetrics records connection and message counts on m.
func WithMetrics(m *HubMetrics) HubOption {
	return func(h *Hub) { h.metrics = m }
}

// WithDatasetNames sets the source of the dataset list sent in the
// connect message.
func WithDatasetNames(names func() []string) HubOption {
	return func(h *Hub) { h.datasetNames = names }
}

// Hub keeps the set of connected clients and fans out dataset events to
// them. Slow clients whose queue fills up are disconnected.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client

	mu      sync.RWMutex
	running bool
	quit    chan struct{}
	done    chan struct{}

	logger       *slog.Logger
	metrics      *HubMetrics
	datasetNames func() []string

	totalConnections int64
	messagesSent     int64
	messagesDropped  int64
}

// NewHub creates a hub. Call Start before registering clients.
func NewHub(logger *slog.Logger, opts ...HubOption) *Hub {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}
	h := &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte, broadcastQueueSize),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		quit:       make(chan struct{}),
		done:       make(chan struct{}),
		logger:     logger.With(slog.String("component", "websocket.hub")),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Start runs the hub loop in its own goroutine. It is a no-op when the hub
// is already running.
func (h *Hub) Start() {
	h.mu.Lock()
	if h.running {
		h.mu.Unlock()
		return
	}
	h.running = true
	h.mu.Unlock()

	go h.run()
	h.logger.Info("WebSocket hub started")
}

// Stop closes every client and waits for the loop to exit.
func (h *Hub) Stop() {
	h.mu.Lock()
	if !h.running {
		h.mu.Unlock()
		return
	}
	h.running = false
	h.mu.Unlock()

	close(h.quit)
	<-h.done
	h.logger.Info("WebSocket hub stopped",
		slog.Int64("total_connections", h.totalConnections),
		slog.Int64("messages_sent", h.messagesSent))
}

func (h *Hub) run() {
	defer close(h.done)
	ctx := context.Background()

	for {
		select {
		case <-h.quit:
			h.mu.Lock()
			for client := range h.clients {
				close(client.send)
				delete(h.clients, client)
				h.metrics.recordDisconnect(ctx, time.Since(client.connectedAt))
			}
			h.mu.Unlock()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.totalConnections++
			active := len(h.clients)
			h.mu.Unlock()
			h.metrics.recordConnect(ctx)

			client.logger.Info("WebSocket client connected",
				slog.String("remote_addr", client.remoteAddr),
				slog.Int("active_clients", active))

			if msg, err := h.encode(events.MessageTypeConnect, h.connectMessage(client), client.traceID); err == nil {
				select {
				case client.send <- msg:
				default:
				}
			}

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
				h.metrics.recordDisconnect(ctx, time.Since(client.connectedAt))
			}
			active := len(h.clients)
			h.mu.Unlock()

			client.logger.Info("WebSocket client disconnected",
				slog.Duration("connection_duration", time.Since(client.connectedAt)),
				slog.Int("active_clients", active))

		case message := <-h.broadcast:
			h.fanOut(ctx, message)
		}
	}
}

func (h *Hub) fanOut(ctx context.Context, message []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()

	failed := 0
	for client := range h.clients {
		select {
		case client.send <- message:
			h.messagesSent++
		default:
			failed++
			close(client.send)
			delete(h.clients, client)
			h.messagesDropped++
			h.metrics.recordDropped(ctx, "client_queue_full")
			h.metrics.recordDisconnect(ctx, time.Since(client.connectedAt))
			client.logger.Warn("Client send buffer full, disconnecting")
		}
	}

	if failed > 0 {
		h.logger.Warn("Some clients failed to receive broadcast",
			slog.Int("success_count", len(h.clients)),
			slog.Int("fail_count", failed))
	}
}

// Broadcast sends an event to every connected client. The message is
// dropped when the hub queue is full or the hub is not running.
func (h *Hub) Broadcast(messageType string, data interface{}) {
	h.BroadcastContext(context.Background(), messageType, data)
}

// BroadcastContext is Broadcast carrying the trace ID of ctx.
func (h *Hub) BroadcastContext(ctx context.Context, messageType string, data interface{}) {
	msg, err := h.encode(events.MessageType(messageType), data, infrastructure.GetTraceID(ctx))
	if err != nil {
		return
	}

	h.mu.RLock()
	running := h.running
	h.mu.RUnlock()
	if !running {
		h.logger.DebugContext(ctx, "Hub not running, broadcast skipped",
			slog.String("message_type", messageType))
		return
	}

	select {
	case h.broadcast <- msg:
		h.metrics.recordBroadcast(ctx, messageType)
	default:
		h.mu.Lock()
		h.messagesDropped++
		h.mu.Unlock()
		h.metrics.recordDropped(ctx, "hub_queue_full")
		h.logger.WarnContext(ctx, "Broadcast queue full, message dropped",
			slog.String("message_type", messageType))
	}
}

func (h *Hub) encode(messageType events.MessageType, data interface{}, traceID string) ([]byte, error) {
	msg, err := json.Marshal(events.WebSocketMessage{
		ID:        uuid.NewString(),
		Type:      messageType,
		Timestamp: time.Now().UTC(),
		TraceID:   traceID,
		Data:      data,
	})
	if err != nil {
		h.logger.Error("Error marshaling message",
			slog.String("message_type", string(messageType)),
			slog.String("error", err.Error()))
		return nil, err
	}
	return msg, nil
}

func (h *Hub) connectMessage(c *Client) events.ConnectMessage {
	datasets := []string{}
	if h.datasetNames != nil {
		datasets = h.datasetNames()
	}
	return events.ConnectMessage{
		ClientID: c.id,
		Version:  contracts.Version,
		Datasets: datasets,
	}
}

// Register adds a client. It returns false when the hub is stopped.
func (h *Hub) Register(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.quit:
		return false
	}
}

// Unregister removes a client and closes its send queue.
func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.quit:
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Stats is a point-in-time view of the hub counters.
type Stats struct {
	ActiveClients    int   `json:"active_clients"`
	TotalConnections int64 `json:"total_connections"`
	MessagesSent     int64 `json:"messages_sent"`
	MessagesDropped  int64 `json:"messages_dropped"`
	QueueDepth       int   `json:"queue_depth"`
}

// Stats returns the current hub counters.
func (h *Hub) Stats() Stats {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return Stats{
		ActiveClients:    len(h.clients),
		TotalConnections: h.totalConnections,
		MessagesSent:     h.messagesSent,
		MessagesDropped:  h.messagesDropped,
		QueueDepth:       len(h.broadcast),
	}
}
