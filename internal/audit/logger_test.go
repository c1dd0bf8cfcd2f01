// Servonix - Bus Complaint Management and Real-Time Notifications
// Copyright 2026 Servonix Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later

package audit

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/servonix/servonix/internal/logging"
)

func init() {
	logging.SetLogger(logging.NewTestLogger(io.Discard))
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func TestLoggerRecordsAsync(t *testing.T) {
	store := NewMemoryStore(100)
	logger := NewLogger(store, Config{Enabled: true})
	defer logger.Close()

	logger.Record(Event{
		Action:    ActionRoleChanged,
		ActorID:   1,
		ActorRole: "head",
		TargetID:  42,
		Detail:    "user promoted to admin",
	})

	waitFor(t, func() bool { return store.Len() == 1 })

	events, err := logger.List(context.Background(), Query{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("got %d events, want 1", len(events))
	}
	e := events[0]
	if e.ID == "" {
		t.Error("expected generated event ID")
	}
	if e.Timestamp.IsZero() {
		t.Error("expected timestamp to be set")
	}
	if e.Action != ActionRoleChanged || e.ActorID != 1 || e.TargetID != 42 {
		t.Errorf("unexpected event: %+v", e)
	}
}

func TestLoggerDisabledIsNoop(t *testing.T) {
	store := NewMemoryStore(100)
	logger := NewLogger(store, Config{Enabled: false})
	defer logger.Close()

	logger.Record(Event{Action: ActionBroadcastSent, ActorID: 1})
	logger.Close()

	if store.Len() != 0 {
		t.Errorf("disabled logger persisted %d events", store.Len())
	}
}

func TestNilLoggerIsSafe(t *testing.T) {
	var logger *Logger
	logger.Record(Event{Action: ActionBroadcastSent})
	logger.Close()
}

func TestLoggerCloseDrains(t *testing.T) {
	store := NewMemoryStore(100)
	logger := NewLogger(store, Config{Enabled: true, BufferSize: 64})

	for i := 0; i < 20; i++ {
		logger.Record(Event{Action: ActionStatusChanged, ActorID: int64(i + 1)})
	}
	logger.Close()

	if store.Len() != 20 {
		t.Errorf("got %d events after close, want 20", store.Len())
	}
}

func TestLoggerRunPrunes(t *testing.T) {
	store := NewMemoryStore(100)
	old := Event{
		ID:        "old",
		Timestamp: time.Now().Add(-48 * time.Hour),
		Action:    ActionBroadcastSent,
		ActorID:   1,
	}
	if err := store.Save(context.Background(), &old); err != nil {
		t.Fatalf("Save: %v", err)
	}

	logger := NewLogger(store, Config{Enabled: true, Retention: 24 * time.Hour})
	defer logger.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- logger.Run(ctx) }()

	waitFor(t, func() bool { return store.Len() == 0 })
	cancel()

	if err := <-done; err != context.Canceled {
		t.Errorf("Run returned %v, want context.Canceled", err)
	}
}
