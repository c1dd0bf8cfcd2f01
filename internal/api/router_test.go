// Servonix - Bus Complaint Management and Real-Time Notifications
// Copyright 2026 Servonix Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/servonix/servonix/internal/auth"
	"github.com/servonix/servonix/internal/authz"
	"github.com/servonix/servonix/internal/config"
)

// newTestRouter builds a router with no backing services. Only routes
// that fail before touching a dependency are exercised here; full
// handler behavior is covered by the handler tests.
func newTestRouter(t *testing.T) http.Handler {
	t.Helper()

	cfg := &config.Config{}
	cfg.Security = config.SecurityConfig{
		JWTSecret:       testJWTSecret,
		TokenTTL:        time.Hour,
		RateLimitReqs:   1000,
		RateLimitWindow: time.Minute,
	}
	cfg.API = config.APIConfig{DefaultPageSize: 20, MaxPageSize: 100}

	jwtMgr, err := auth.NewJWTManager(&cfg.Security)
	if err != nil {
		t.Fatalf("jwt manager: %v", err)
	}
	enforcer, err := authz.NewEnforcer(cfg.Security.Casbin)
	if err != nil {
		t.Fatalf("enforcer: %v", err)
	}

	handler := NewHandler(nil, nil, nil, nil, nil, nil, nil, nil, cfg)
	mw := NewMiddleware(jwtMgr, enforcer, &cfg.Security)
	return NewRouter(handler, mw).Setup()
}

func TestRouterRejectsUnauthenticated(t *testing.T) {
	router := newTestRouter(t)

	paths := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/api/v1/complaints"},
		{http.MethodGet, "/api/v1/notifications"},
		{http.MethodPost, "/api/v1/broadcast"},
		{http.MethodGet, "/api/v1/auth/me"},
	}

	for _, p := range paths {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(p.method, p.path, nil)
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusUnauthorized {
			t.Errorf("%s %s: status = %d, want 401", p.method, p.path, rec.Code)
		}
	}
}

func TestRouterPublicAuthEndpointValidatesBody(t *testing.T) {
	router := newTestRouter(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login",
		strings.NewReader(`{"email":"not-an-email","password":""}`))
	router.ServeHTTP(rec, req)

	// Validation fails before the auth service is touched.
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestRouterNotFoundEnvelope(t *testing.T) {
	router := newTestRouter(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/nonexistent", nil)
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
	resp := decodeResponse(t, rec)
	if resp.Error == nil || resp.Error.Code != ErrCodeNotFound {
		t.Errorf("error = %+v, want %s", resp.Error, ErrCodeNotFound)
	}
}

func TestRouterMetricsEndpoint(t *testing.T) {
	router := newTestRouter(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "go_") {
		t.Error("expected Go runtime metrics in output")
	}
}

func TestRouterSetsRequestIDHeader(t *testing.T) {
	router := newTestRouter(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	router.ServeHTTP(rec, req)

	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("expected X-Request-ID response header")
	}
}

func TestRouterEchoesClientRequestID(t *testing.T) {
	router := newTestRouter(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	req.Header.Set("X-Request-ID", "client-supplied-id")
	router.ServeHTTP(rec, req)

	if got := rec.Header().Get("X-Request-ID"); got != "client-supplied-id" {
		t.Errorf("X-Request-ID = %q, want client-supplied-id", got)
	}
}
