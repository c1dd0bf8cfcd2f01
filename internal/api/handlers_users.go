// Servonix - Bus Complaint Management and Real-Time Notifications
// Copyright 2026 Servonix Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"errors"
	"net/http"

	"github.com/servonix/servonix/internal/audit"
	"github.com/servonix/servonix/internal/database"
	"github.com/servonix/servonix/internal/events"
	"github.com/servonix/servonix/internal/logging"
	"github.com/servonix/servonix/internal/models"
	"github.com/servonix/servonix/internal/websocket"
)

// ListUsers returns accounts, optionally filtered by ?role. Head only.
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	role := r.URL.Query().Get("role")
	if role != "" && !models.IsValidRole(role) {
		rw.BadRequest("unknown role filter")
		return
	}

	users, err := h.db.ListUsersByRole(r.Context(), role)
	if err != nil {
		rw.DatabaseError(err)
		return
	}
	rw.Success(users)
}

// UpdateUserRole promotes or demotes an account. Head only. The affected
// user is notified and connected clients refresh their user lists.
func (h *Handler) UpdateUserRole(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	actorID, ok := requireUser(rw, r)
	if !ok {
		return
	}
	targetID, ok := urlParamInt64(r, "id")
	if !ok {
		rw.BadRequest("invalid user id")
		return
	}
	if targetID == actorID {
		rw.BadRequest("cannot change your own role")
		return
	}
	var req UpdateRoleRequest
	if !decodeBody(rw, r, &req) {
		return
	}

	if err := h.db.UpdateUserRole(r.Context(), targetID, req.Role); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			rw.NotFound("user not found")
			return
		}
		rw.DatabaseError(err)
		return
	}

	n := &models.Notification{
		UserID:  targetID,
		Type:    models.NotificationSystem,
		Title:   "Role changed",
		Message: "Your role is now " + req.Role,
	}
	if err := h.notify.Notify(r.Context(), n); err != nil {
		logging.Ctx(r.Context()).Warn().Err(err).Msg("failed to notify role change")
	}
	h.publishUsersUpdated(r)
	h.auditRecord(r, audit.ActionRoleChanged, "user", targetID, "role set to "+req.Role)

	rw.Success(map[string]interface{}{"user_id": targetID, "role": req.Role})
}

// SetUserActive enables or disables an account. Head only. Disabled
// accounts fail login but keep their history.
func (h *Handler) SetUserActive(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	actorID, ok := requireUser(rw, r)
	if !ok {
		return
	}
	targetID, ok := urlParamInt64(r, "id")
	if !ok {
		rw.BadRequest("invalid user id")
		return
	}
	if targetID == actorID {
		rw.BadRequest("cannot deactivate yourself")
		return
	}
	var req UpdateActiveRequest
	if !decodeBody(rw, r, &req) {
		return
	}

	if err := h.db.SetUserActive(r.Context(), targetID, *req.Active); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			rw.NotFound("user not found")
			return
		}
		rw.DatabaseError(err)
		return
	}
	h.publishUsersUpdated(r)

	detail := "account disabled"
	if *req.Active {
		detail = "account enabled"
	}
	h.auditRecord(r, audit.ActionAccountToggled, "user", targetID, detail)

	rw.Success(map[string]interface{}{"user_id": targetID, "active": *req.Active})
}

// publishUsersUpdated tells connected admin dashboards to re-fetch the
// user list. The push is a trigger, not the payload of record.
func (h *Handler) publishUsersUpdated(r *http.Request) {
	h.publishEvent(r, events.TopicSystem, events.NewBroadcastEvent(websocket.MessageTypeUsersUpdated, nil))
}

// publishEvent mirrors a domain event onto the bus. Failures are logged
// and swallowed: the durable write already happened.
func (h *Handler) publishEvent(r *http.Request, topic string, event events.Event) {
	if err := h.bus.Publish(r.Context(), topic, event); err != nil {
		logging.Ctx(r.Context()).Warn().
			Err(err).
			Str("topic", topic).
			Str("event_type", event.Type).
			Msg("failed to publish event")
	}
}

// Broadcast pushes a system announcement to every live connection.
// Head only.
func (h *Handler) Broadcast(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	var req BroadcastRequest
	if !decodeBody(rw, r, &req) {
		return
	}

	h.notify.BroadcastSystem(r.Context(), req.Message)
	h.auditRecord(r, audit.ActionBroadcastSent, "", 0, req.Message)

	rw.Success(map[string]string{"status": "broadcast_sent"})
}
