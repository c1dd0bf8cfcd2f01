// Servonix - Bus Complaint Management and Real-Time Notifications
// Copyright 2026 Servonix Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later

package websocket

import (
	"io"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/servonix/servonix/internal/config"
	"github.com/servonix/servonix/internal/logging"
	"github.com/servonix/servonix/internal/metrics"
)

//nolint:gochecknoinits // init ensures consistent logging for tests
func init() {
	logging.Init(logging.Config{
		Level:  "info",
		Format: "console",
		Output: io.Discard,
	})
}

func testWSConfig() config.WebSocketConfig {
	return config.WebSocketConfig{
		ReadLimit:       64 * 1024,
		WriteWait:       10 * time.Second,
		PongWait:        60 * time.Second,
		SendBuffer:      8,
		BroadcastBuffer: 32,
	}
}

// newUnboundClient creates a client that is not attached to a live
// connection; tests read pushed messages straight off the send channel.
func newUnboundClient(hub *Hub) *Client {
	return NewClient(hub, nil, nil)
}

func containsClient(conns []*Client, c *Client) bool {
	for _, conn := range conns {
		if conn == c {
			return true
		}
	}
	return false
}

func TestRegistryBindAndLookup(t *testing.T) {
	hub := NewHub(testWSConfig())
	r := NewRegistry()
	c1 := newUnboundClient(hub)
	c2 := newUnboundClient(hub)

	r.Bind(42, c1)
	r.Bind(42, c2)
	r.Bind(7, newUnboundClient(hub))

	conns := r.ConnectionsFor(42)
	if len(conns) != 2 {
		t.Fatalf("ConnectionsFor(42) returned %d connections, want 2", len(conns))
	}
	if !containsClient(conns, c1) || !containsClient(conns, c2) {
		t.Error("ConnectionsFor(42) missing a bound connection")
	}
	if r.BoundUserCount() != 2 {
		t.Errorf("BoundUserCount() = %d, want 2", r.BoundUserCount())
	}
}

func TestRegistryBindIdempotent(t *testing.T) {
	hub := NewHub(testWSConfig())
	r := NewRegistry()
	c := newUnboundClient(hub)

	r.Bind(42, c)
	r.Bind(42, c)

	if got := len(r.ConnectionsFor(42)); got != 1 {
		t.Errorf("binding same connection twice yields %d entries, want 1", got)
	}
}

func TestRegistryRebindMovesConnection(t *testing.T) {
	hub := NewHub(testWSConfig())
	r := NewRegistry()
	c := newUnboundClient(hub)

	r.Bind(42, c)
	r.Bind(7, c)

	if got := len(r.ConnectionsFor(42)); got != 0 {
		t.Errorf("ConnectionsFor(42) after re-bind = %d connections, want 0", got)
	}
	if got := len(r.ConnectionsFor(7)); got != 1 {
		t.Errorf("ConnectionsFor(7) after re-bind = %d connections, want 1", got)
	}
	if userID, ok := r.UserFor(c); !ok || userID != 7 {
		t.Errorf("UserFor = (%d, %v), want (7, true)", userID, ok)
	}
}

func TestRegistryRebindKeepsGaugeBalanced(t *testing.T) {
	hub := NewHub(testWSConfig())
	r := NewRegistry()
	c := newUnboundClient(hub)

	before := testutil.ToFloat64(metrics.WSSessionsBound)

	r.Bind(42, c)
	if got := testutil.ToFloat64(metrics.WSSessionsBound); got != before+1 {
		t.Errorf("gauge after bind = %v, want %v", got, before+1)
	}

	// Moving the connection to another identity neither adds nor removes
	// a bound session.
	r.Bind(7, c)
	if got := testutil.ToFloat64(metrics.WSSessionsBound); got != before+1 {
		t.Errorf("gauge after re-bind = %v, want %v", got, before+1)
	}

	r.Unbind(c)
	if got := testutil.ToFloat64(metrics.WSSessionsBound); got != before {
		t.Errorf("gauge after unbind = %v, want %v", got, before)
	}
}

func TestRegistryUnbindUnknownIsNoOp(t *testing.T) {
	hub := NewHub(testWSConfig())
	r := NewRegistry()
	bound := newUnboundClient(hub)
	r.Bind(42, bound)

	r.Unbind(newUnboundClient(hub))

	if got := len(r.ConnectionsFor(42)); got != 1 {
		t.Errorf("registry changed by unbinding an unknown connection: %d entries, want 1", got)
	}
}

func TestRegistryConnectionsForOffline(t *testing.T) {
	r := NewRegistry()

	conns := r.ConnectionsFor(999)
	if conns == nil {
		t.Fatal("ConnectionsFor returned nil, want empty slice")
	}
	if len(conns) != 0 {
		t.Errorf("ConnectionsFor(999) = %d connections, want 0", len(conns))
	}
}

func TestRegistrySetEquality(t *testing.T) {
	// Any sequence of bind/unbind calls must leave ConnectionsFor equal
	// to exactly the currently-bound handle set.
	hub := NewHub(testWSConfig())
	r := NewRegistry()
	c1 := newUnboundClient(hub)
	c2 := newUnboundClient(hub)
	c3 := newUnboundClient(hub)

	r.Bind(1, c1)
	r.Bind(1, c2)
	r.Bind(2, c3)
	r.Unbind(c1)
	r.Bind(1, c1)
	r.Unbind(c2)

	conns := r.ConnectionsFor(1)
	if len(conns) != 1 || !containsClient(conns, c1) {
		t.Errorf("ConnectionsFor(1) = %v, want exactly [c1]", conns)
	}
	if got := len(r.ConnectionsFor(2)); got != 1 {
		t.Errorf("ConnectionsFor(2) = %d connections, want 1", got)
	}

	r.Unbind(c1)
	r.Unbind(c3)
	if r.BoundUserCount() != 0 {
		t.Errorf("BoundUserCount() = %d after unbinding all, want 0", r.BoundUserCount())
	}
}

func TestRegistryConcurrentChurn(t *testing.T) {
	hub := NewHub(testWSConfig())
	r := NewRegistry()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(userID int64) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				c := newUnboundClient(hub)
				r.Bind(userID, c)
				r.ConnectionsFor(userID)
				r.Unbind(c)
			}
		}(int64(i % 4))
	}
	wg.Wait()

	if r.BoundUserCount() != 0 {
		t.Errorf("BoundUserCount() = %d after churn, want 0", r.BoundUserCount())
	}
}
