// Servonix - Bus Complaint Management and Real-Time Notifications
// Copyright 2026 Servonix Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later

package services

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRunnerServiceDelegates(t *testing.T) {
	want := errors.New("runner stopped")
	svc := NewRunnerService("test-runner", RunnerFunc(func(ctx context.Context) error {
		return want
	}))

	if err := svc.Serve(context.Background()); !errors.Is(err, want) {
		t.Errorf("Serve returned %v, want %v", err, want)
	}
	if svc.String() != "test-runner" {
		t.Errorf("String() = %q", svc.String())
	}
}

func TestRunnerServiceHonorsContext(t *testing.T) {
	svc := NewRunnerService("blocking-runner", RunnerFunc(func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Serve(ctx) }()

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Serve returned %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}
