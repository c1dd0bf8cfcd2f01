// Servonix - Bus Complaint Management and Real-Time Notifications
// Copyright 2026 Servonix Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"

	"github.com/servonix/servonix/internal/auth"
	"github.com/servonix/servonix/internal/authz"
	"github.com/servonix/servonix/internal/config"
	"github.com/servonix/servonix/internal/logging"
	"github.com/servonix/servonix/internal/metrics"
)

type contextKey string

const (
	ctxKeyUserID contextKey = "user_id"
	ctxKeyRole   contextKey = "role"
	ctxKeyEmail  contextKey = "email"
)

// CurrentUser returns the authenticated user ID from the request context.
func CurrentUser(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(ctxKeyUserID).(int64)
	return id, ok
}

// CurrentRole returns the authenticated role, defaulting to empty.
func CurrentRole(ctx context.Context) string {
	role, _ := ctx.Value(ctxKeyRole).(string)
	return role
}

// Middleware bundles the request-processing stack shared by all routes.
type Middleware struct {
	jwt      *auth.JWTManager
	enforcer *authz.Enforcer
	cfg      *config.SecurityConfig
}

// NewMiddleware creates the middleware stack.
func NewMiddleware(jwt *auth.JWTManager, enforcer *authz.Enforcer, cfg *config.SecurityConfig) *Middleware {
	return &Middleware{jwt: jwt, enforcer: enforcer, cfg: cfg}
}

// CORS returns the CORS handler built from configured origins.
func (m *Middleware) CORS() func(http.Handler) http.Handler {
	origins := m.cfg.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	})
}

// RateLimit returns the general per-IP rate limiter.
func (m *Middleware) RateLimit() func(http.Handler) http.Handler {
	return httprate.Limit(
		m.cfg.RateLimitReqs,
		m.cfg.RateLimitWindow,
		httprate.WithKeyFuncs(httprate.KeyByRealIP),
		httprate.WithLimitHandler(rateLimitExceeded),
	)
}

// RateLimitAuth returns the stricter limiter for credential endpoints.
// Brute force on login and OTP verification is the main concern.
func (m *Middleware) RateLimitAuth() func(http.Handler) http.Handler {
	return httprate.Limit(
		10,
		time.Minute,
		httprate.WithKeyFuncs(httprate.KeyByRealIP),
		httprate.WithLimitHandler(rateLimitExceeded),
	)
}

func rateLimitExceeded(w http.ResponseWriter, r *http.Request) {
	NewResponseWriter(w, r).TooManyRequests("rate limit exceeded, slow down")
}

// Authenticate validates the bearer token and hangs the identity on the
// request context. Requests without a valid token are rejected.
func (m *Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rw := NewResponseWriter(w, r)

		token := bearerToken(r)
		if token == "" {
			metrics.RecordAuthAttempt("token", false)
			rw.Unauthorized("missing bearer token")
			return
		}

		claims, err := m.jwt.ValidateToken(token)
		if err != nil {
			metrics.RecordAuthAttempt("token", false)
			rw.Unauthorized("invalid or expired token")
			return
		}
		userID, err := claims.UserID()
		if err != nil {
			metrics.RecordAuthAttempt("token", false)
			rw.Unauthorized("malformed token subject")
			return
		}

		ctx := r.Context()
		ctx = context.WithValue(ctx, ctxKeyUserID, userID)
		ctx = context.WithValue(ctx, ctxKeyRole, claims.Role)
		ctx = context.WithValue(ctx, ctxKeyEmail, claims.Email)
		ctx = logging.WithUserID(ctx, userID)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Authorize enforces role policy against the request path and method.
// Must run after Authenticate.
func (m *Middleware) Authorize(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rw := NewResponseWriter(w, r)

		role := CurrentRole(r.Context())
		if role == "" {
			rw.Unauthorized("no role on request")
			return
		}

		allowed, err := m.enforcer.Enforce(role, r.URL.Path, r.Method)
		if err != nil {
			logging.Ctx(r.Context()).Error().Err(err).Msg("authorization check failed")
			rw.InternalError("authorization check failed")
			return
		}
		if !allowed {
			logging.Ctx(r.Context()).Warn().
				Str("role", role).
				Str("path", r.URL.Path).
				Str("method", r.Method).
				Msg("access denied")
			rw.Forbidden("insufficient permissions")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// bearerToken extracts the token from the Authorization header, with a
// query-parameter fallback for the WebSocket endpoint where browsers
// cannot set headers on the upgrade request.
func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return r.URL.Query().Get("token")
}
