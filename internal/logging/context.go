// Servonix - Bus Complaint Management and Real-Time Notifications
// Copyright 2026 Servonix Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later

package logging

import (
	"context"

	"github.com/rs/zerolog"
)

type contextKey string

const (
	correlationIDKey contextKey = "correlation_id"
	requestIDKey     contextKey = "request_id"
	userIDKey        contextKey = "user_id"
)

// WithCorrelationID returns a context carrying the given correlation ID.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationIDKey, id)
}

// CorrelationID extracts the correlation ID from the context, or "".
func CorrelationID(ctx context.Context) string {
	if id, ok := ctx.Value(correlationIDKey).(string); ok {
		return id
	}
	return ""
}

// WithRequestID returns a context carrying the given HTTP request ID.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestID extracts the request ID from the context, or "".
func RequestID(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey).(string); ok {
		return id
	}
	return ""
}

// WithUserID returns a context carrying the authenticated user's ID.
func WithUserID(ctx context.Context, id int64) context.Context {
	return context.WithValue(ctx, userIDKey, id)
}

// UserID extracts the authenticated user's ID from the context. The second
// return value is false when no user is attached.
func UserID(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(userIDKey).(int64)
	return id, ok
}

// Ctx returns a logger enriched with any correlation ID, request ID, and
// user ID found in the context. Handlers and services should prefer this
// over the bare package-level starters so log lines stay traceable:
//
//	logging.Ctx(ctx).Info().Msg("notification dispatched")
func Ctx(ctx context.Context) *zerolog.Logger {
	builder := Logger().With()
	if id := CorrelationID(ctx); id != "" {
		builder = builder.Str("correlation_id", id)
	}
	if id := RequestID(ctx); id != "" {
		builder = builder.Str("request_id", id)
	}
	if uid, ok := UserID(ctx); ok {
		builder = builder.Int64("user_id", uid)
	}
	l := builder.Logger()
	return &l
}
