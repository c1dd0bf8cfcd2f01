// Servonix - Bus Complaint Management and Real-Time Notifications
// Copyright 2026 Servonix Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later

package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/servonix/servonix/internal/config"
)

func testSecurityConfig() *config.SecurityConfig {
	return &config.SecurityConfig{
		JWTSecret:  strings.Repeat("k", 32),
		TokenTTL:   time.Hour,
		BcryptCost: 10,
	}
}

func TestJWTRoundTrip(t *testing.T) {
	m, err := NewJWTManager(testSecurityConfig())
	if err != nil {
		t.Fatalf("NewJWTManager error: %v", err)
	}

	token, err := m.GenerateToken(42, "rider@example.com", "user")
	if err != nil {
		t.Fatalf("GenerateToken error: %v", err)
	}

	claims, err := m.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken error: %v", err)
	}
	if claims.Email != "rider@example.com" || claims.Role != "user" {
		t.Errorf("claims = %+v", claims)
	}
	id, err := claims.UserID()
	if err != nil || id != 42 {
		t.Errorf("UserID() = %d, %v; want 42", id, err)
	}
}

func TestJWTRejectsShortSecret(t *testing.T) {
	cfg := testSecurityConfig()
	cfg.JWTSecret = "short"
	if _, err := NewJWTManager(cfg); err == nil {
		t.Error("expected error for short secret")
	}
}

func TestJWTRejectsTampered(t *testing.T) {
	m, _ := NewJWTManager(testSecurityConfig())
	token, _ := m.GenerateToken(1, "a@example.com", "user")

	tampered := token[:len(token)-4] + "xxxx"
	if _, err := m.ValidateToken(tampered); err == nil {
		t.Error("expected error for tampered token")
	}
}

func TestJWTRejectsExpired(t *testing.T) {
	cfg := testSecurityConfig()
	cfg.TokenTTL = -time.Minute
	m, _ := NewJWTManager(cfg)
	token, _ := m.GenerateToken(1, "a@example.com", "user")

	if _, err := m.ValidateToken(token); err == nil {
		t.Error("expected error for expired token")
	}
}

func TestJWTRejectsOtherKey(t *testing.T) {
	m1, _ := NewJWTManager(testSecurityConfig())
	cfg2 := testSecurityConfig()
	cfg2.JWTSecret = strings.Repeat("z", 32)
	m2, _ := NewJWTManager(cfg2)

	token, _ := m1.GenerateToken(1, "a@example.com", "user")
	if _, err := m2.ValidateToken(token); err == nil {
		t.Error("expected error for token signed with different key")
	}
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("s3cret-pass", 10)
	if err != nil {
		t.Fatalf("HashPassword error: %v", err)
	}
	if !CheckPassword(hash, "s3cret-pass") {
		t.Error("correct password rejected")
	}
	if CheckPassword(hash, "wrong") {
		t.Error("wrong password accepted")
	}
}

func TestPasswordLimits(t *testing.T) {
	if _, err := HashPassword("", 10); err == nil {
		t.Error("expected error for empty password")
	}
	if _, err := HashPassword(strings.Repeat("a", 73), 10); err == nil {
		t.Error("expected error for over-length password")
	}
}

func TestGenerateOTPCode(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		code, err := generateOTPCode()
		if err != nil {
			t.Fatalf("generateOTPCode error: %v", err)
		}
		if len(code) != otpDigits {
			t.Fatalf("code %q length = %d, want %d", code, len(code), otpDigits)
		}
		for _, r := range code {
			if r < '0' || r > '9' {
				t.Fatalf("code %q contains non-digit", code)
			}
		}
		seen[code] = true
	}
	if len(seen) < 2 {
		t.Error("50 generated codes were all identical")
	}
}

func TestOTPHashEqual(t *testing.T) {
	h := hashOTPCode("482913")
	if !otpHashEqual(h, "482913") {
		t.Error("matching code rejected")
	}
	if otpHashEqual(h, "482914") {
		t.Error("non-matching code accepted")
	}
}
