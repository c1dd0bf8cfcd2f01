// Servonix - Bus Complaint Management and Real-Time Notifications
// Copyright 2026 Servonix Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"errors"
	"net/http"

	"github.com/servonix/servonix/internal/database"
)

// ListNotifications returns the caller's notifications, newest first.
// ?unread=true restricts to unread ones.
func (h *Handler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	userID, ok := requireUser(rw, r)
	if !ok {
		return
	}

	_, pageSize := h.paging(r)
	unreadOnly := r.URL.Query().Get("unread") == "true"

	notifications, err := h.db.ListNotifications(r.Context(), userID, unreadOnly, pageSize)
	if err != nil {
		rw.DatabaseError(err)
		return
	}
	rw.Success(notifications)
}

// UnreadCount returns the badge counter for the caller.
func (h *Handler) UnreadCount(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	userID, ok := requireUser(rw, r)
	if !ok {
		return
	}

	count, err := h.db.CountUnreadNotifications(r.Context(), userID)
	if err != nil {
		rw.DatabaseError(err)
		return
	}
	rw.Success(map[string]int64{"unread": count})
}

// MarkNotificationRead marks one of the caller's notifications as read.
// Marking someone else's notification, or one already read, is a 404.
func (h *Handler) MarkNotificationRead(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	userID, ok := requireUser(rw, r)
	if !ok {
		return
	}
	notificationID, ok := urlParamInt64(r, "id")
	if !ok {
		rw.BadRequest("invalid notification id")
		return
	}

	err := h.db.MarkNotificationRead(r.Context(), userID, notificationID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			rw.NotFound("notification not found or already read")
			return
		}
		rw.DatabaseError(err)
		return
	}
	rw.NoContent()
}

// MarkAllNotificationsRead clears the caller's unread set.
func (h *Handler) MarkAllNotificationsRead(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	userID, ok := requireUser(rw, r)
	if !ok {
		return
	}

	n, err := h.db.MarkAllNotificationsRead(r.Context(), userID)
	if err != nil {
		rw.DatabaseError(err)
		return
	}
	rw.Success(map[string]int64{"marked": n})
}

// DeleteNotification removes one of the caller's notifications.
func (h *Handler) DeleteNotification(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	userID, ok := requireUser(rw, r)
	if !ok {
		return
	}
	notificationID, ok := urlParamInt64(r, "id")
	if !ok {
		rw.BadRequest("invalid notification id")
		return
	}

	err := h.db.DeleteNotification(r.Context(), userID, notificationID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			rw.NotFound("notification not found")
			return
		}
		rw.DatabaseError(err)
		return
	}
	rw.NoContent()
}
