// Package websocket streams job progress to connected clients. The hub
// fans every job state change out to all clients; there is no
// subscription protocol. Slow clients are dropped rather than allowed
// to stall the broadcast loop.
package websocket

import (
	"encoding/json"
	"log/slog"
	"sync"

	"dealpulse/pkg/contracts/domain"
	"dealpulse/pkg/contracts/events"
)

// broadcastBuffer bounds the queue between producers (job workers) and
// the hub loop. Producers never block on a full queue; the message is
// dropped and counted instead.
const broadcastBuffer = 64

// Hub maintains the set of active clients and broadcasts messages to
// them.
type Hub struct {
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	broadcast  chan []byte

	mu      sync.RWMutex
	logger  *slog.Logger
	quit    chan struct{}
	running bool

	totalConnections int64
	messagesSent     int64
	messagesDropped  int64
	clientsDropped   int64
}

// NewHub creates a hub. Call Start before registering clients.
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan []byte, broadcastBuffer),
		logger:     logger.With(slog.String("component", "websocket.hub")),
		quit:       make(chan struct{}),
	}
}

// Start launches the hub loop. Idempotent.
func (h *Hub) Start() {
	h.mu.Lock()
	if h.running {
		h.mu.Unlock()
		return
	}
	h.running = true
	h.mu.Unlock()

	go h.run()
}

// Stop shuts the hub down and disconnects every client. Idempotent.
func (h *Hub) Stop() {
	h.mu.Lock()
	if !h.running {
		h.mu.Unlock()
		return
	}
	h.running = false
	h.mu.Unlock()

	close(h.quit)

	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.clients {
		close(client.send)
		delete(h.clients, client)
	}
	h.logger.Info("websocket hub stopped")
}

// add hands a new client to the hub loop. On a stopped hub the send
// channel is closed instead, so the write pump tears the connection
// down rather than idling forever.
func (h *Hub) add(client *Client) {
	select {
	case h.register <- client:
	case <-h.quit:
		close(client.send)
	}
}

// remove detaches a disconnecting client. Selecting against quit keeps
// the read pump from blocking on a hub whose run loop already exited;
// Stop's sweep has closed the send channel in that case.
func (h *Hub) remove(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.quit:
	}
}

func (h *Hub) run() {
	for {
		select {
		case <-h.quit:
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.totalConnections++
			count := len(h.clients)
			h.mu.Unlock()

			h.logger.Info("client registered",
				slog.String("client_id", client.id),
				slog.String("remote_addr", client.remoteAddr),
				slog.Int("total_clients", count))

			h.sendLocked(client, h.connectedMessage(client))

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			count := len(h.clients)
			h.mu.Unlock()

			h.logger.Info("client unregistered",
				slog.String("client_id", client.id),
				slog.Int("total_clients", count))

		case message := <-h.broadcast:
			h.deliver(message)
		}
	}
}

// deliver sends one message to every client. A client whose send buffer
// is full gets disconnected; the write pump notices the closed channel
// and tears the connection down.
func (h *Hub) deliver(message []byte) {
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	h.mu.RUnlock()

	for _, client := range clients {
		if !h.sendLocked(client, message) {
			h.logger.Warn("client send buffer full, disconnecting",
				slog.String("client_id", client.id))
		}
	}
}

// sendLocked queues a message to one client. Membership is re-checked
// and the send performed under the lock, so Stop cannot close the
// channel between the check and the send. A full buffer drops the
// client; sendLocked reports false only in that case.
func (h *Hub) sendLocked(client *Client, message []byte) bool {
	if message == nil {
		return true
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client]; !ok {
		return true
	}

	select {
	case client.send <- message:
		h.messagesSent++
		return true
	default:
		delete(h.clients, client)
		close(client.send)
		h.clientsDropped++
		return false
	}
}

// NotifyJob implements the job queue's notifier: each job state change
// becomes a job:queued / job:progress / job:complete / job:error event.
func (h *Hub) NotifyJob(job *domain.Job) {
	if job == nil {
		return
	}
	msg := events.NewJobMessage(events.JobMessageType(job.Status), job)
	h.Broadcast(msg)
}

// Broadcast queues an event envelope for delivery to every client. The
// call never blocks: when the hub loop is behind, the message is
// dropped and counted.
func (h *Hub) Broadcast(msg events.WebSocketMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("marshal broadcast message",
			slog.String("type", string(msg.Type)),
			slog.String("error", err.Error()))
		return
	}

	select {
	case h.broadcast <- data:
	default:
		h.mu.Lock()
		h.messagesDropped++
		h.mu.Unlock()
		h.logger.Warn("broadcast queue full, message dropped",
			slog.String("type", string(msg.Type)))
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Stats reports hub counters for the health endpoint.
func (h *Hub) Stats() map[string]int64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return map[string]int64{
		"active_clients":    int64(len(h.clients)),
		"total_connections": h.totalConnections,
		"messages_sent":     h.messagesSent,
		"messages_dropped":  h.messagesDropped,
		"clients_dropped":   h.clientsDropped,
	}
}

func (h *Hub) connectedMessage(client *Client) []byte {
	msg := events.WebSocketMessage{
		BaseMessage: events.BaseMessage{
			Type:      events.MessageTypeConnect,
			Timestamp: nowUTC(),
		},
		Data: map[string]string{
			"status":    "connected",
			"client_id": client.id,
		},
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return nil
	}
	return data
}
