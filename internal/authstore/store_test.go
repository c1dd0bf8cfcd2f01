// Servonix - Bus Complaint Management and Real-Time Notifications
// Copyright 2026 Servonix Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later

package authstore

import (
	"crypto/sha256"
	"errors"
	"testing"
	"time"

	"github.com/servonix/servonix/internal/config"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(config.AuthStoreConfig{InMemory: true})
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestOTPRoundTrip(t *testing.T) {
	s := newTestStore(t)

	hash := sha256.Sum256([]byte("482913"))
	rec := &OTPRecord{
		CodeHash:  hash[:],
		IssuedAt:  time.Now(),
		ExpiresAt: time.Now().Add(5 * time.Minute),
	}
	if err := s.PutOTP("rider@example.com", rec); err != nil {
		t.Fatalf("PutOTP error: %v", err)
	}

	got, err := s.GetOTP("rider@example.com")
	if err != nil {
		t.Fatalf("GetOTP error: %v", err)
	}
	if string(got.CodeHash) != string(hash[:]) {
		t.Error("code hash mismatch")
	}

	if err := s.DeleteOTP("rider@example.com"); err != nil {
		t.Fatalf("DeleteOTP error: %v", err)
	}
	if _, err := s.GetOTP("rider@example.com"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestOTPExpiry(t *testing.T) {
	s := newTestStore(t)

	rec := &OTPRecord{
		CodeHash:  []byte("h"),
		IssuedAt:  time.Now(),
		ExpiresAt: time.Now().Add(50 * time.Millisecond),
	}
	if err := s.PutOTP("x@example.com", rec); err != nil {
		t.Fatalf("PutOTP error: %v", err)
	}

	time.Sleep(100 * time.Millisecond)
	if _, err := s.GetOTP("x@example.com"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after expiry, got %v", err)
	}
}

func TestPutOTPAlreadyExpired(t *testing.T) {
	s := newTestStore(t)
	rec := &OTPRecord{CodeHash: []byte("h"), ExpiresAt: time.Now().Add(-time.Minute)}
	if err := s.PutOTP("x@example.com", rec); err == nil {
		t.Error("expected error for expired record")
	}
}

func TestIncrementCounter(t *testing.T) {
	s := newTestStore(t)

	for want := int64(1); want <= 3; want++ {
		got, err := s.IncrementOTPSends("rider@example.com", time.Minute)
		if err != nil {
			t.Fatalf("IncrementOTPSends error: %v", err)
		}
		if got != want {
			t.Errorf("count = %d, want %d", got, want)
		}
	}

	// Separate emails have separate windows.
	got, err := s.IncrementOTPSends("other@example.com", time.Minute)
	if err != nil || got != 1 {
		t.Errorf("other count = %d (err %v), want 1", got, err)
	}
}

func TestCounterWindowResets(t *testing.T) {
	s := newTestStore(t)

	if _, err := s.IncrementCounter("w", 50*time.Millisecond); err != nil {
		t.Fatal(err)
	}
	time.Sleep(1100 * time.Millisecond) // badger TTLs have second granularity

	got, err := s.IncrementCounter("w", 50*time.Millisecond)
	if err != nil {
		t.Fatalf("IncrementCounter error: %v", err)
	}
	if got != 1 {
		t.Errorf("count after window = %d, want 1", got)
	}
}

func TestLoginFailureCounter(t *testing.T) {
	s := newTestStore(t)

	got, err := s.LoginFailures("rider@example.com")
	if err != nil || got != 0 {
		t.Fatalf("fresh count = %d (err %v), want 0", got, err)
	}

	for want := int64(1); want <= 2; want++ {
		got, err := s.IncrementLoginFailures("rider@example.com", time.Minute)
		if err != nil {
			t.Fatalf("IncrementLoginFailures error: %v", err)
		}
		if got != want {
			t.Errorf("count = %d, want %d", got, want)
		}
	}

	if got, err := s.LoginFailures("rider@example.com"); err != nil || got != 2 {
		t.Errorf("count = %d (err %v), want 2", got, err)
	}

	if err := s.ClearLoginFailures("rider@example.com"); err != nil {
		t.Fatalf("ClearLoginFailures error: %v", err)
	}
	if got, err := s.LoginFailures("rider@example.com"); err != nil || got != 0 {
		t.Errorf("count after clear = %d (err %v), want 0", got, err)
	}
}

func TestPendingRegistrationRoundTrip(t *testing.T) {
	s := newTestStore(t)

	reg := &PendingRegistration{
		Name:         "Priya",
		Email:        "priya@example.com",
		PasswordHash: "$2a$12$hash",
		CreatedAt:    time.Now(),
	}
	if err := s.PutPending(reg, time.Minute); err != nil {
		t.Fatalf("PutPending error: %v", err)
	}

	got, err := s.GetPending("priya@example.com")
	if err != nil {
		t.Fatalf("GetPending error: %v", err)
	}
	if got.Name != "Priya" || got.PasswordHash != reg.PasswordHash {
		t.Errorf("got %+v", got)
	}

	if err := s.DeletePending("priya@example.com"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.GetPending("priya@example.com"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
