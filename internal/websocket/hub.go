// Package websocket pushes dataset lifecycle events to connected dashboard
// clients. A single hub goroutine owns the client set; services broadcast
// through buffered channels and never block on slow consumers.
package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"esgboard/internal/infrastructure"
	"esgboard/pkg/contracts/events"
)

// broadcastQueueSize bounds pending events so a broadcast never blocks the
// dataset load path. Clients re-fetch the summary on reconnect, so dropping
// an event under pressure is safe.
const broadcastQueueSize = 16

// Hub maintains the set of active clients and broadcasts messages to the clients
type Hub struct {
	// Registered clients
	clients map[*Client]bool

	// Outbound messages to fan out
	broadcast chan []byte

	// Register requests from the clients
	register chan *Client

	// Unregister requests from clients
	unregister chan *Client

	// Mutex for thread-safe operations
	mu sync.RWMutex

	// Logger instance
	logger *slog.Logger

	// Shared business metrics; nil disables recording
	metrics *infrastructure.BusinessMetrics

	// Counters
	totalConnections int64
	messagesSent     int64
}

// NewHub creates a new Hub instance. metrics may be nil.
func NewHub(logger *slog.Logger, metrics *infrastructure.BusinessMetrics) *Hub {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}
	logger = logger.With(slog.String("component", "websocket.hub"))

	return &Hub{
		broadcast:  make(chan []byte, broadcastQueueSize),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		clients:    make(map[*Client]bool),
		logger:     logger,
		metrics:    metrics,
	}
}

// Run owns the client set until ctx is cancelled. It must be running before
// clients are served or events broadcast.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			h.logger.Info("Hub shutting down",
				slog.Int64("total_connections", h.totalConnections),
				slog.Int64("messages_sent", h.messagesSent))
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			count := len(h.clients)
			h.totalConnections++
			h.mu.Unlock()

			cctx := context.Background()
			if client.traceID != "" {
				cctx = infrastructure.WithTraceID(cctx, client.traceID)
			}

			h.logger.InfoContext(cctx, "Client registered",
				slog.Int("total_clients", count),
				slog.String("client_id", client.id),
				slog.String("remote_addr", client.remoteAddr))

			infrastructure.RecordWebSocketConnection(cctx, h.metrics, 1)

			h.greet(cctx, client)

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
				count := len(h.clients)
				h.mu.Unlock()

				cctx := context.Background()
				if client.traceID != "" {
					cctx = infrastructure.WithTraceID(cctx, client.traceID)
				}

				h.logger.InfoContext(cctx, "Client unregistered",
					slog.Int("total_clients", count),
					slog.String("client_id", client.id),
					slog.Duration("connection_duration", time.Since(client.connectedAt)))

				infrastructure.RecordWebSocketConnection(cctx, h.metrics, -1)
			} else {
				h.mu.Unlock()
			}

		case message := <-h.broadcast:
			h.fanOut(message)
		}
	}
}

// fanOut delivers one message to every client. Clients whose send buffer is
// full are disconnected rather than allowed to stall the hub.
func (h *Hub) fanOut(message []byte) {
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	h.mu.RUnlock()

	h.logger.Debug("Broadcasting message to clients",
		slog.Int("client_count", len(clients)),
		slog.Int("message_size", len(message)))

	successCount := 0
	failCount := 0

	for _, client := range clients {
		select {
		case client.send <- message:
			successCount++
			h.messagesSent++
		default:
			failCount++
			h.mu.Lock()
			close(client.send)
			delete(h.clients, client)
			h.mu.Unlock()

			cctx := context.Background()
			if client.traceID != "" {
				cctx = infrastructure.WithTraceID(cctx, client.traceID)
			}
			h.logger.WarnContext(cctx, "Client send buffer full, disconnecting",
				slog.String("client_id", client.id))
			infrastructure.RecordWebSocketConnection(cctx, h.metrics, -1)
		}
	}

	if failCount > 0 {
		h.logger.Warn("Some clients failed to receive broadcast",
			slog.Int("success_count", successCount),
			slog.Int("fail_count", failCount))
	}

	infrastructure.RecordWebSocketBroadcast(context.Background(), h.metrics,
		messageType(message), int64(successCount), int64(failCount))
}

// messageType peeks at the envelope type for metric attribution.
func messageType(payload []byte) string {
	var envelope struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(payload, &envelope); err != nil {
		return "unknown"
	}
	return envelope.Type
}

// greet sends the connection acknowledgement to a newly registered client
func (h *Hub) greet(ctx context.Context, client *Client) {
	msg := events.WebSocketMessage{
		BaseMessage: events.BaseMessage{
			ID:        uuid.New().String(),
			Type:      events.MessageTypeConnect,
			Timestamp: time.Now().UTC(),
			TraceID:   client.traceID,
		},
		Data: map[string]interface{}{
			"status":    "connected",
			"client_id": client.id,
		},
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		return
	}

	select {
	case client.send <- payload:
		h.logger.DebugContext(ctx, "Sent connection message to client",
			slog.String("client_id", client.id))
	default:
		h.logger.WarnContext(ctx, "Failed to send connection message - client buffer full",
			slog.String("client_id", client.id))
	}
}

// BroadcastDatasetEvent pushes a dataset lifecycle event to every connected
// client. It never blocks the caller: when the queue is full the event is
// dropped with a warning.
func (h *Hub) BroadcastDatasetEvent(msgType events.MessageType, data interface{}) {
	h.broadcastMessage(msgType, data)
}

// BroadcastSystemStatus pushes a periodic health snapshot so dashboards can
// surface server state without polling.
func (h *Hub) BroadcastSystemStatus(status, version string, uptime time.Duration) {
	h.broadcastMessage(events.MessageTypeSystemStatus, events.SystemStatus{
		Status:  status,
		Uptime:  uptime.Round(time.Second).String(),
		Version: version,
	})
}

func (h *Hub) broadcastMessage(msgType events.MessageType, data interface{}) {
	msg := events.WebSocketMessage{
		BaseMessage: events.BaseMessage{
			ID:        uuid.New().String(),
			Type:      msgType,
			Timestamp: time.Now().UTC(),
		},
		Data: data,
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("Error marshaling message",
			slog.String("error", err.Error()),
			slog.String("message_type", string(msgType)))
		return
	}

	select {
	case h.broadcast <- payload:
	default:
		h.logger.Warn("Broadcast queue full, dropping event",
			slog.String("message_type", string(msgType)))
	}
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Register adds a client to the hub
func (h *Hub) Register(client *Client) {
	h.register <- client
}

// closeAll disconnects every client during shutdown
func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.clients {
		close(client.send)
		delete(h.clients, client)
	}
}
