// Servonix - Bus Complaint Management and Real-Time Notifications
// Copyright 2026 Servonix Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package middleware provides HTTP middleware shared across the API:
// request IDs and Prometheus instrumentation.
package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/servonix/servonix/internal/logging"
)

// RequestID assigns each request a unique ID, echoed in the X-Request-ID
// response header and attached to the logging context. An ID supplied by an
// upstream proxy is kept.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}

		w.Header().Set("X-Request-ID", requestID)

		ctx := logging.WithRequestID(r.Context(), requestID)
		ctx = logging.WithCorrelationID(ctx, uuid.New().String())

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
