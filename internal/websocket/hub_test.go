// Servonix - Bus Complaint Management and Real-Time Notifications
// Copyright 2026 Servonix Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later

package websocket

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"
)

// setupHub creates a hub and runs its dispatch loop for the duration of
// the test.
func setupHub(t *testing.T) *Hub {
	t.Helper()

	hub := NewHub(testWSConfig())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = hub.RunWithContext(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	time.Sleep(10 * time.Millisecond)
	return hub
}

// registerClient sends a client through the Register channel and waits for
// the hub loop to pick it up.
func registerClient(hub *Hub, client *Client) {
	hub.Register <- client
	time.Sleep(20 * time.Millisecond)
}

// receiveMessage reads the next pushed message off a client's send buffer.
func receiveMessage(t *testing.T, c *Client) Message {
	t.Helper()

	select {
	case msg, ok := <-c.send:
		if !ok {
			t.Fatal("send channel closed while waiting for message")
		}
		return msg
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for message")
	}
	return Message{}
}

// assertNoMessage verifies nothing is pending on a client's send buffer.
func assertNoMessage(t *testing.T, c *Client) {
	t.Helper()

	select {
	case msg := <-c.send:
		t.Fatalf("unexpected message %q on send buffer", msg.Type)
	default:
	}
}

func TestNewHub(t *testing.T) {
	hub := NewHub(testWSConfig())

	checks := []struct {
		name   string
		check  bool
		errMsg string
	}{
		{"registry", hub.registry != nil, "registry not initialized"},
		{"clients map", hub.clients != nil, "clients map not initialized"},
		{"broadcast channel", hub.broadcast != nil, "broadcast channel not initialized"},
		{"Register channel", hub.Register != nil, "Register channel not initialized"},
		{"Unregister channel", hub.Unregister != nil, "Unregister channel not initialized"},
		{"empty clients", hub.ClientCount() == 0, "clients map should be empty"},
	}

	for _, c := range checks {
		if !c.check {
			t.Error(c.errMsg)
		}
	}
}

func TestHub_EmitToUserSingleConnection(t *testing.T) {
	hub := setupHub(t)
	c1 := newUnboundClient(hub)
	registerClient(hub, c1)
	hub.Registry().Bind(42, c1)

	hub.EmitToUser(42, MessageTypePing, map[string]interface{}{})

	msg := receiveMessage(t, c1)
	if msg.Type != MessageTypePing {
		t.Errorf("message type = %q, want %q", msg.Type, MessageTypePing)
	}
	assertNoMessage(t, c1)
}

func TestHub_EmitToUserMultipleTabs(t *testing.T) {
	hub := setupHub(t)
	c1 := newUnboundClient(hub)
	c2 := newUnboundClient(hub)
	registerClient(hub, c1)
	registerClient(hub, c2)
	hub.Registry().Bind(42, c1)
	hub.Registry().Bind(42, c2)

	payload := map[string]interface{}{"v": 1}
	hub.EmitToUser(42, "x", payload)

	for _, c := range []*Client{c1, c2} {
		msg := receiveMessage(t, c)
		if msg.Type != "x" {
			t.Errorf("message type = %q, want %q", msg.Type, "x")
		}
		data, ok := msg.Data.(map[string]interface{})
		if !ok || data["v"] != 1 {
			t.Errorf("payload = %v, want map with v=1", msg.Data)
		}
	}
}

func TestHub_EmitToOfflineUser(t *testing.T) {
	hub := setupHub(t)

	// Zero live connections is the normal case, not an error.
	hub.EmitToUser(999, "y", map[string]interface{}{})
}

func TestHub_EmitAfterDisconnect(t *testing.T) {
	hub := setupHub(t)
	c1 := newUnboundClient(hub)
	registerClient(hub, c1)
	hub.Registry().Bind(7, c1)

	hub.Unregister <- c1
	time.Sleep(20 * time.Millisecond)

	if got := len(hub.Registry().ConnectionsFor(7)); got != 0 {
		t.Fatalf("ConnectionsFor(7) after disconnect = %d connections, want 0", got)
	}
	hub.EmitToUser(7, "y", map[string]interface{}{})
	if hub.ClientCount() != 0 {
		t.Errorf("ClientCount() = %d after disconnect, want 0", hub.ClientCount())
	}
}

func TestHub_EmitToUserOrdering(t *testing.T) {
	hub := setupHub(t)
	c1 := newUnboundClient(hub)
	registerClient(hub, c1)
	hub.Registry().Bind(42, c1)

	for i := 0; i < 5; i++ {
		hub.EmitToUser(42, "seq", map[string]interface{}{"n": i})
	}

	for i := 0; i < 5; i++ {
		msg := receiveMessage(t, c1)
		data := msg.Data.(map[string]interface{})
		if data["n"] != i {
			t.Fatalf("message %d carried n=%v, want %d", i, data["n"], i)
		}
	}
}

func TestHub_EmitFailureIsolation(t *testing.T) {
	hub := setupHub(t)
	healthy := newUnboundClient(hub)
	stuck := newUnboundClient(hub)
	registerClient(hub, healthy)
	registerClient(hub, stuck)
	hub.Registry().Bind(42, healthy)
	hub.Registry().Bind(42, stuck)

	// Jam the stuck client's send buffer so its next push fails.
	for stuck.enqueue(Message{Type: "filler"}) {
	}

	hub.EmitToUser(42, MessageTypeNotification, map[string]interface{}{"id": 1})

	msg := receiveMessage(t, healthy)
	if msg.Type != MessageTypeNotification {
		t.Errorf("healthy connection got %q, want %q", msg.Type, MessageTypeNotification)
	}

	// The failed handle is treated as an implicit disconnect.
	conns := hub.Registry().ConnectionsFor(42)
	if containsClient(conns, stuck) {
		t.Error("failed connection still present in registry")
	}
	if !containsClient(conns, healthy) {
		t.Error("healthy connection dropped alongside the failed one")
	}
	if hub.ClientCount() != 1 {
		t.Errorf("ClientCount() = %d, want 1", hub.ClientCount())
	}
}

func TestHub_EmitToUsers(t *testing.T) {
	hub := setupHub(t)
	c1 := newUnboundClient(hub)
	c2 := newUnboundClient(hub)
	registerClient(hub, c1)
	registerClient(hub, c2)
	hub.Registry().Bind(1, c1)
	hub.Registry().Bind(2, c2)

	hub.EmitToUsers([]int64{1, 2, 3}, MessageTypeStatusChanged, map[string]interface{}{"complaint_id": 9})

	for _, c := range []*Client{c1, c2} {
		msg := receiveMessage(t, c)
		if msg.Type != MessageTypeStatusChanged {
			t.Errorf("message type = %q, want %q", msg.Type, MessageTypeStatusChanged)
		}
	}
}

func TestHub_BroadcastTargetsAllLiveConnections(t *testing.T) {
	// Broadcast deliberately includes unbound connections so that
	// pre-registration clients still see system announcements.
	hub := setupHub(t)
	boundA := newUnboundClient(hub)
	boundB := newUnboundClient(hub)
	unbound := newUnboundClient(hub)
	registerClient(hub, boundA)
	registerClient(hub, boundB)
	registerClient(hub, unbound)
	hub.Registry().Bind(1, boundA)
	hub.Registry().Bind(2, boundB)

	hub.Broadcast(MessageTypeSystem, map[string]interface{}{"msg": "down"})

	for _, c := range []*Client{boundA, boundB, unbound} {
		msg := receiveMessage(t, c)
		if msg.Type != MessageTypeSystem {
			t.Errorf("message type = %q, want %q", msg.Type, MessageTypeSystem)
		}
		data := msg.Data.(map[string]interface{})
		if data["msg"] != "down" {
			t.Errorf("payload = %v, want msg=down", msg.Data)
		}
	}
}

func TestHub_BindClientAcknowledges(t *testing.T) {
	hub := setupHub(t)
	c1 := newUnboundClient(hub)
	registerClient(hub, c1)

	hub.BindClient(42, c1)

	msg := receiveMessage(t, c1)
	if msg.Type != MessageTypeRegistered {
		t.Fatalf("message type = %q, want %q", msg.Type, MessageTypeRegistered)
	}
	data := msg.Data.(map[string]interface{})
	if data["user_id"] != int64(42) {
		t.Errorf("registered ack user_id = %v, want 42", data["user_id"])
	}
	if got := len(hub.Registry().ConnectionsFor(42)); got != 1 {
		t.Errorf("ConnectionsFor(42) = %d connections, want 1", got)
	}
}

func TestClient_HandleRegisterResolvesCredential(t *testing.T) {
	hub := setupHub(t)
	resolver := ResolverFunc(func(credential string) (int64, error) {
		return strconv.ParseInt(credential, 10, 64)
	})
	c1 := NewClient(hub, nil, resolver)
	registerClient(hub, c1)

	c1.handleRegister(map[string]interface{}{"credential": float64(42)})

	msg := receiveMessage(t, c1)
	if msg.Type != MessageTypeRegistered {
		t.Fatalf("message type = %q, want %q", msg.Type, MessageTypeRegistered)
	}
	if got := len(hub.Registry().ConnectionsFor(42)); got != 1 {
		t.Errorf("ConnectionsFor(42) = %d connections, want 1", got)
	}
}

func TestClient_HandleRegisterUnresolvableCredential(t *testing.T) {
	hub := setupHub(t)
	resolver := ResolverFunc(func(credential string) (int64, error) {
		return 0, ErrUnresolvableIdentity
	})
	c1 := NewClient(hub, nil, resolver)
	registerClient(hub, c1)

	c1.handleRegister(map[string]interface{}{"credential": "garbage-token"})

	// The connection stays open and unbound.
	msg := receiveMessage(t, c1)
	if msg.Type != MessageTypeRegistrationFailed {
		t.Fatalf("message type = %q, want %q", msg.Type, MessageTypeRegistrationFailed)
	}
	if hub.Registry().BoundUserCount() != 0 {
		t.Error("unresolvable registration still bound a session")
	}
	if hub.ClientCount() != 1 {
		t.Errorf("ClientCount() = %d, want 1 (connection must stay open)", hub.ClientCount())
	}
}

func TestClient_HandleRegisterRebinds(t *testing.T) {
	hub := setupHub(t)
	resolver := ResolverFunc(func(credential string) (int64, error) {
		return strconv.ParseInt(credential, 10, 64)
	})
	c1 := NewClient(hub, nil, resolver)
	registerClient(hub, c1)

	// Last write wins on identity.
	c1.handleRegister(map[string]interface{}{"credential": "42"})
	c1.handleRegister(map[string]interface{}{"credential": "7"})

	if got := len(hub.Registry().ConnectionsFor(42)); got != 0 {
		t.Errorf("ConnectionsFor(42) = %d connections after re-register, want 0", got)
	}
	if got := len(hub.Registry().ConnectionsFor(7)); got != 1 {
		t.Errorf("ConnectionsFor(7) = %d connections after re-register, want 1", got)
	}
}

func TestExtractCredential(t *testing.T) {
	tests := []struct {
		name   string
		data   interface{}
		want   string
		wantOK bool
	}{
		{"token string", map[string]interface{}{"credential": "abc.def.ghi"}, "abc.def.ghi", true},
		{"numeric id", map[string]interface{}{"credential": float64(42)}, "42", true},
		{"empty string", map[string]interface{}{"credential": ""}, "", false},
		{"missing key", map[string]interface{}{"user": 42}, "", false},
		{"wrong type", map[string]interface{}{"credential": true}, "", false},
		{"not a map", "credential", "", false},
		{"nil payload", nil, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := extractCredential(tt.data)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("extractCredential(%v) = (%q, %v), want (%q, %v)", tt.data, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestHub_RunWithContextShutdown(t *testing.T) {
	hub := NewHub(testWSConfig())
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		errCh <- hub.RunWithContext(ctx)
	}()
	time.Sleep(10 * time.Millisecond)

	c1 := newUnboundClient(hub)
	registerClient(hub, c1)
	hub.Registry().Bind(42, c1)

	cancel()

	select {
	case err := <-errCh:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("RunWithContext returned %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("hub did not stop after context cancellation")
	}

	if _, ok := <-c1.send; ok {
		t.Error("client send channel not closed on shutdown")
	}
	if hub.Registry().BoundUserCount() != 0 {
		t.Errorf("BoundUserCount() = %d after shutdown, want 0", hub.Registry().BoundUserCount())
	}
}
