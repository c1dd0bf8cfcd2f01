// Servonix - Bus Complaint Management and Real-Time Notifications
// Copyright 2026 Servonix Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/servonix/servonix/internal/audit"
)

// ListAuditEvents returns the administrative audit trail, newest first.
// Head only. Filters: ?action, ?actor_id, ?target_type, ?since (RFC 3339),
// plus the standard page/page_size pair.
func (h *Handler) ListAuditEvents(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	if h.audit == nil {
		rw.Success([]audit.Event{})
		return
	}

	page, pageSize := h.paging(r)
	q := audit.Query{
		Limit:  pageSize,
		Offset: (page - 1) * pageSize,
	}

	if raw := r.URL.Query().Get("action"); raw != "" {
		q.Actions = []audit.Action{audit.Action(raw)}
	}
	if raw := r.URL.Query().Get("actor_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id < 1 {
			rw.BadRequest("invalid actor_id")
			return
		}
		q.ActorID = id
	}
	q.TargetType = r.URL.Query().Get("target_type")
	if raw := r.URL.Query().Get("since"); raw != "" {
		since, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			rw.BadRequest("since must be RFC 3339")
			return
		}
		q.Since = since
	}

	events, err := h.audit.List(r.Context(), q)
	if err != nil {
		rw.DatabaseError(err)
		return
	}
	if events == nil {
		events = []audit.Event{}
	}
	rw.Success(events)
}
