// Servonix - Bus Complaint Management and Real-Time Notifications
// Copyright 2026 Servonix Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later

package websocket

import (
	"context"
	"sort"
	"sync"

	"github.com/servonix/servonix/internal/config"
	"github.com/servonix/servonix/internal/logging"
	"github.com/servonix/servonix/internal/metrics"
)

// ShutdownReason identifies why the hub is shutting down.
type ShutdownReason string

const (
	// ShutdownReasonContextCanceled is the normal graceful shutdown path
	// (e.g. SIGTERM propagated through the supervisor).
	ShutdownReasonContextCanceled ShutdownReason = "context_canceled"

	// ShutdownReasonContextDeadline indicates the shutdown deadline was
	// exceeded, possibly by a hung operation.
	ShutdownReasonContextDeadline ShutdownReason = "context_deadline"
)

// Message types pushed to clients.
const (
	MessageTypeConnected          = "connected"
	MessageTypeRegister           = "register"
	MessageTypeRegistered         = "registered"
	MessageTypeRegistrationFailed = "registration_failed"
	MessageTypePing               = "ping"
	MessageTypePong               = "pong"
	MessageTypeNotification       = "notification"
	MessageTypeComplaintFiled     = "complaint_filed"
	MessageTypeComplaintAssigned  = "complaint_assigned"
	MessageTypeStatusChanged      = "status_changed"
	MessageTypeDirectMessage      = "direct_message"
	MessageTypeUsersUpdated       = "users_updated"
	MessageTypeSystem             = "system"
)

// Message is the envelope for everything sent over a connection.
type Message struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// Hub maintains the set of live connections, the user session registry,
// and dispatches targeted and broadcast events.
//
// Registration flow: the transport layer sends new clients through the
// Register channel (unbound), clients bind themselves on receipt of a
// register message, and the Unregister channel tears connections down.
// Emits never block the calling request handler: delivery to a client
// whose send buffer is full counts as a delivery failure, and the failing
// connection is dropped so future emits do not repeat the failure.
type Hub struct {
	registry   *Registry
	clients    map[*Client]bool
	broadcast  chan Message
	Register   chan *Client
	Unregister chan *Client
	cfg        config.WebSocketConfig
	mu         sync.RWMutex
}

// NewHub creates a new Hub with the given transport configuration.
func NewHub(cfg config.WebSocketConfig) *Hub {
	return &Hub{
		registry:   NewRegistry(),
		clients:    make(map[*Client]bool),
		broadcast:  make(chan Message, cfg.BroadcastBuffer),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		cfg:        cfg,
	}
}

// Registry returns the session registry for direct bind/unbind access.
func (h *Hub) Registry() *Registry {
	return h.registry
}

// RunWithContext runs the hub's dispatch loop until the context is
// canceled, then closes all connections and returns ctx.Err(). Designed
// for suture supervision: a restarted hub starts from a clean registry
// with no orphaned connections.
//
// Channel selection is prioritized so client lifecycle events are always
// applied before queued broadcasts. Go's select picks randomly among ready
// channels; the staged non-blocking checks below make the order
// deterministic: shutdown, then lifecycle, then broadcast.
func (h *Hub) RunWithContext(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			h.shutdown(ctx)
			return ctx.Err()
		default:
		}

		select {
		case client := <-h.Register:
			h.addClient(client)
			continue
		case client := <-h.Unregister:
			h.removeClient(client)
			continue
		default:
		}

		select {
		case <-ctx.Done():
			h.shutdown(ctx)
			return ctx.Err()

		case client := <-h.Register:
			h.addClient(client)

		case client := <-h.Unregister:
			h.removeClient(client)

		case message := <-h.broadcast:
			h.broadcastToClients(message)
		}
	}
}

// Run starts the hub without shutdown support.
//
// Deprecated: Use RunWithContext for supervised operation.
func (h *Hub) Run() {
	_ = h.RunWithContext(context.Background())
}

func (h *Hub) addClient(client *Client) {
	h.mu.Lock()
	h.clients[client] = true
	total := len(h.clients)
	h.mu.Unlock()

	metrics.WSConnectionsActive.Set(float64(total))
	logging.Info().Int("total_clients", total).Msg("websocket client connected")
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		client.closeSend()
	}
	total := len(h.clients)
	h.mu.Unlock()

	h.registry.Unbind(client)
	metrics.WSConnectionsActive.Set(float64(total))
	logging.Info().Int("total_clients", total).Msg("websocket client disconnected")
}

// BindClient resolves nothing; it binds an already-resolved user ID to a
// connection and acknowledges the registration on that connection only.
func (h *Hub) BindClient(userID int64, client *Client) {
	h.registry.Bind(userID, client)
	client.enqueue(Message{
		Type: MessageTypeRegistered,
		Data: map[string]interface{}{"user_id": userID},
	})
	logging.Debug().Int64("user_id", userID).Uint64("client_id", client.id).Msg("websocket session bound")
}

// EmitToUser pushes an event to every live connection bound to userID.
// An offline user is the normal case, not an error: zero deliveries are
// attempted and the call returns immediately. A failed push to one
// connection is logged and drops that connection, but never prevents
// delivery to the user's remaining connections and never propagates to
// the caller.
func (h *Hub) EmitToUser(userID int64, eventName string, data interface{}) {
	conns := h.registry.ConnectionsFor(userID)
	if len(conns) == 0 {
		metrics.RecordEmit("no_session")
		return
	}

	message := Message{Type: eventName, Data: data}
	for _, client := range conns {
		if client.enqueue(message) {
			metrics.RecordEmit("delivered")
			continue
		}
		metrics.RecordEmit("dropped")
		h.dropClient(client, eventName)
	}
}

// EmitToUsers pushes the same event to each user in turn.
func (h *Hub) EmitToUsers(userIDs []int64, eventName string, data interface{}) {
	for _, userID := range userIDs {
		h.EmitToUser(userID, eventName, data)
	}
}

// Broadcast queues an event for every live connection, bound or unbound.
// Unbound connections are included so pre-registration clients still see
// system-wide announcements. The queue is bounded; when it is full the
// message is dropped rather than blocking the caller.
func (h *Hub) Broadcast(eventName string, data interface{}) {
	select {
	case h.broadcast <- Message{Type: eventName, Data: data}:
		metrics.WSBroadcastsTotal.Inc()
	default:
		logging.Warn().Str("message_type", eventName).Msg("broadcast channel full, dropping message")
	}
}

// broadcastToClients fans a message out to all connections in client-ID
// order. Sorting keeps delivery order reproducible; map iteration order
// would make it random per call.
func (h *Hub) broadcastToClients(message Message) {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	sort.Slice(clients, func(i, j int) bool { return clients[i].id < clients[j].id })

	var toRemove []*Client
	for _, client := range clients {
		if !client.enqueue(message) {
			toRemove = append(toRemove, client)
		}
	}

	for _, client := range toRemove {
		metrics.WSDeliveryFailures.Inc()
		client.closeSend()
		delete(h.clients, client)
		h.registry.Unbind(client)
		logging.Warn().Uint64("client_id", client.id).Msg("send buffer full during broadcast, dropping client")
	}
	metrics.WSConnectionsActive.Set(float64(len(h.clients)))
}

// dropClient handles a failed targeted push: the connection is unbound and
// removed so the dead socket is never targeted again. Treated as an
// implicit disconnect.
func (h *Hub) dropClient(client *Client, eventName string) {
	metrics.WSDeliveryFailures.Inc()

	h.registry.Unbind(client)

	h.mu.Lock()
	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		client.closeSend()
	}
	total := len(h.clients)
	h.mu.Unlock()

	metrics.WSConnectionsActive.Set(float64(total))
	logging.Warn().
		Uint64("client_id", client.id).
		Str("message_type", eventName).
		Msg("realtime delivery failed, dropping client")
}

// ClientCount returns the number of live connections.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) shutdown(ctx context.Context) {
	h.mu.Lock()
	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	sort.Slice(clients, func(i, j int) bool { return clients[i].id < clients[j].id })
	for _, client := range clients {
		client.closeSend()
		delete(h.clients, client)
	}
	h.mu.Unlock()

	for _, client := range clients {
		h.registry.Unbind(client)
	}
	metrics.WSConnectionsActive.Set(0)

	reason := ShutdownReasonContextCanceled
	if ctx.Err() == context.DeadlineExceeded {
		reason = ShutdownReasonContextDeadline
	}
	logging.Info().
		Str("component", "websocket-hub").
		Str("reason", string(reason)).
		Int("clients_closed", len(clients)).
		Msg("websocket hub stopped")
}
