// Servonix - Bus Complaint Management and Real-Time Notifications
// Copyright 2026 Servonix Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"net/http"
	"time"
)

// Health reports overall service health with component detail.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	status := "healthy"
	components := map[string]interface{}{
		"websocket": map[string]interface{}{
			"status":      "healthy",
			"connections": h.hub.ClientCount(),
		},
	}

	ctx, cancel := contextWithTimeout(r, 2*time.Second)
	defer cancel()
	if err := h.db.Ping(ctx); err != nil {
		status = "unhealthy"
		components["database"] = map[string]interface{}{"status": "unhealthy", "error": err.Error()}
	} else {
		components["database"] = map[string]interface{}{"status": "healthy"}
	}

	if h.mailer != nil {
		components["mail"] = map[string]interface{}{
			"enabled": h.cfg.Mail.Enabled,
			"breaker": h.mailer.BreakerState().String(),
		}
	}

	body := map[string]interface{}{
		"status":     status,
		"components": components,
		"timestamp":  time.Now().UTC().Format(time.RFC3339),
	}
	if status != "healthy" {
		rw.writeJSON(http.StatusServiceUnavailable, APIResponse{Success: false, Data: body})
		return
	}
	rw.Success(body)
}

// HealthLive is the liveness probe: the process is up and serving.
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	NewResponseWriter(w, r).Success(map[string]string{"status": "alive"})
}

// HealthReady is the readiness probe: fails while the database is
// unreachable so load balancers stop routing traffic here.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	ctx, cancel := contextWithTimeout(r, 2*time.Second)
	defer cancel()
	if err := h.db.Ping(ctx); err != nil {
		rw.Error(http.StatusServiceUnavailable, ErrCodeServiceUnavailable, "database unavailable")
		return
	}
	rw.Success(map[string]string{"status": "ready"})
}
