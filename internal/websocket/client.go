// Servonix - Bus Complaint Management and Real-Time Notifications
// Copyright 2026 Servonix Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later

package websocket

import (
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/servonix/servonix/internal/logging"
)

// clientIDCounter generates unique, monotonically increasing client IDs.
// IDs give the hub a stable sort key so delivery order is reproducible
// instead of following map iteration order.
var clientIDCounter atomic.Uint64

// Client is a middleman between one WebSocket connection and the hub.
//
// State machine: connected (unbound) -> connected (bound) -> disconnected.
// The transition to bound happens on a successful register message; a
// failed registration leaves the connection alive but untargetable.
type Client struct {
	id       uint64
	hub      *Hub
	conn     *websocket.Conn
	send     chan Message
	resolver IdentityResolver

	// closed guards against sends racing the hub closing the channel.
	closeMu sync.RWMutex
	closed  bool
}

// NewClient creates a Client for an upgraded connection. The resolver may
// be nil, in which case every register message fails and the connection
// stays unbound.
func NewClient(hub *Hub, conn *websocket.Conn, resolver IdentityResolver) *Client {
	return &Client{
		id:       clientIDCounter.Add(1),
		hub:      hub,
		conn:     conn,
		send:     make(chan Message, hub.cfg.SendBuffer),
		resolver: resolver,
	}
}

// ID returns the client's unique identifier.
func (c *Client) ID() uint64 {
	return c.id
}

// enqueue attempts a non-blocking push onto the client's send buffer.
// Returns false when the buffer is full or the channel is already closed,
// which the hub treats as a delivery failure.
func (c *Client) enqueue(message Message) bool {
	c.closeMu.RLock()
	defer c.closeMu.RUnlock()

	if c.closed {
		return false
	}
	select {
	case c.send <- message:
		return true
	default:
		return false
	}
}

// closeSend closes the send channel exactly once. Idempotent so the hub's
// several removal paths cannot double-close.
func (c *Client) closeSend() {
	c.closeMu.Lock()
	defer c.closeMu.Unlock()

	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// Start acknowledges the connection and begins the read and write pumps.
func (c *Client) Start() {
	c.enqueue(Message{Type: MessageTypeConnected, Data: map[string]interface{}{"client_id": c.id}})
	go c.writePump()
	go c.readPump()
}

// readPump pumps inbound messages from the connection to the hub. The
// deferred unregister runs on any exit path, so a transport disconnect
// always unbinds the session even when no register ever completed.
func (c *Client) readPump() {
	defer func() {
		c.hub.Unregister <- c
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(c.hub.cfg.ReadLimit)
	if err := c.conn.SetReadDeadline(time.Now().Add(c.hub.cfg.PongWait)); err != nil {
		logging.Error().Err(err).Msg("failed to set read deadline")
		return
	}
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(c.hub.cfg.PongWait))
	})

	for {
		var msg Message
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logging.Error().Err(err).Uint64("client_id", c.id).Msg("unexpected websocket close error")
			}
			break
		}

		switch msg.Type {
		case MessageTypePing:
			c.enqueue(Message{Type: MessageTypePong})
		case MessageTypeRegister:
			c.handleRegister(msg.Data)
		}
	}
}

// handleRegister resolves the supplied credential and binds the session.
// Repeated register messages re-bind; last write wins on identity. An
// unresolvable credential is answered with a registration_failed event on
// this connection only, and the connection stays open and unbound.
func (c *Client) handleRegister(data interface{}) {
	credential, ok := extractCredential(data)
	if !ok {
		c.registrationFailed("missing credential")
		return
	}
	if c.resolver == nil {
		c.registrationFailed("registration unavailable")
		return
	}

	userID, err := c.resolver.ResolveCredential(credential)
	if err != nil {
		logging.Warn().Err(err).Uint64("client_id", c.id).Msg("websocket registration failed")
		c.registrationFailed("invalid credential")
		return
	}

	c.hub.BindClient(userID, c)
}

func (c *Client) registrationFailed(reason string) {
	c.enqueue(Message{
		Type: MessageTypeRegistrationFailed,
		Data: map[string]interface{}{"reason": reason},
	})
}

// extractCredential pulls the credential out of a register payload.
// Clients send either {"credential": "<token>"} or {"credential": 42};
// numbers are normalized to their decimal string form.
func extractCredential(data interface{}) (string, bool) {
	payload, ok := data.(map[string]interface{})
	if !ok {
		return "", false
	}

	switch v := payload["credential"].(type) {
	case string:
		return v, v != ""
	case float64:
		return strconv.FormatInt(int64(v), 10), true
	case int64:
		return strconv.FormatInt(v, 10), true
	case int:
		return strconv.Itoa(v), true
	default:
		return "", false
	}
}

// writePump pumps messages from the hub to the connection and keeps it
// alive with periodic pings.
func (c *Client) writePump() {
	pingPeriod := c.hub.cfg.PongWait * 9 / 10
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			if err := c.conn.SetWriteDeadline(time.Now().Add(c.hub.cfg.WriteWait)); err != nil {
				logging.Error().Err(err).Msg("failed to set write deadline")
				return
			}
			if !ok {
				// The hub closed the channel.
				if err := c.conn.WriteMessage(websocket.CloseMessage, []byte{}); err != nil {
					logging.Debug().Err(err).Msg("failed to write close message")
				}
				return
			}
			if err := c.conn.WriteJSON(message); err != nil {
				logging.Error().Err(err).Uint64("client_id", c.id).Msg("failed to write message")
				return
			}

		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(c.hub.cfg.WriteWait)); err != nil {
				logging.Error().Err(err).Msg("failed to set write deadline for ping")
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// String implements fmt.Stringer for log-friendly client identification.
func (c *Client) String() string {
	return fmt.Sprintf("client-%d", c.id)
}
