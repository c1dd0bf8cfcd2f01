// Servonix - Bus Complaint Management and Real-Time Notifications
// Copyright 2026 Servonix Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/servonix/servonix/internal/assignment"
	"github.com/servonix/servonix/internal/audit"
	"github.com/servonix/servonix/internal/auth"
	"github.com/servonix/servonix/internal/config"
	"github.com/servonix/servonix/internal/database"
	"github.com/servonix/servonix/internal/events"
	"github.com/servonix/servonix/internal/mail"
	"github.com/servonix/servonix/internal/notify"
	"github.com/servonix/servonix/internal/websocket"
)

// Handler holds the dependencies for all HTTP handlers.
type Handler struct {
	db       *database.DB
	auth     *auth.Service
	notify   *notify.Service
	assigner *assignment.Service
	hub      *websocket.Hub
	bus      *events.Bus
	mailer   *mail.Mailer
	audit    *audit.Logger
	cfg      *config.Config
}

// NewHandler creates the handler set.
func NewHandler(
	db *database.DB,
	authSvc *auth.Service,
	notifySvc *notify.Service,
	assigner *assignment.Service,
	hub *websocket.Hub,
	bus *events.Bus,
	mailer *mail.Mailer,
	auditLog *audit.Logger,
	cfg *config.Config,
) *Handler {
	return &Handler{
		db:       db,
		auth:     authSvc,
		notify:   notifySvc,
		assigner: assigner,
		hub:      hub,
		bus:      bus,
		mailer:   mailer,
		audit:    auditLog,
		cfg:      cfg,
	}
}

// auditRecord captures a privileged action with the actor and source
// address from the request. Nil-safe when auditing is disabled.
func (h *Handler) auditRecord(r *http.Request, action audit.Action, targetType string, targetID int64, detail string) {
	actorID, _ := CurrentUser(r.Context())
	h.audit.Record(audit.Event{
		Action:     action,
		ActorID:    actorID,
		ActorRole:  CurrentRole(r.Context()),
		TargetType: targetType,
		TargetID:   targetID,
		SourceIP:   r.RemoteAddr,
		Detail:     detail,
	})
}

// urlParamInt64 parses a chi URL parameter as an int64 ID.
func urlParamInt64(r *http.Request, name string) (int64, bool) {
	v, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || v < 1 {
		return 0, false
	}
	return v, true
}

// queryInt reads an integer query parameter with a default.
func queryInt(r *http.Request, name string, def int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return v
}

// paging extracts and clamps page/page_size parameters.
func (h *Handler) paging(r *http.Request) (page, pageSize int) {
	page = queryInt(r, "page", 1)
	if page < 1 {
		page = 1
	}
	pageSize = queryInt(r, "page_size", h.cfg.API.DefaultPageSize)
	if pageSize < 1 {
		pageSize = h.cfg.API.DefaultPageSize
	}
	if pageSize > h.cfg.API.MaxPageSize {
		pageSize = h.cfg.API.MaxPageSize
	}
	return page, pageSize
}

// contextWithTimeout bounds a request-derived context for health probes.
func contextWithTimeout(r *http.Request, d time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), d)
}

// requireUser pulls the authenticated user ID or writes 401.
func requireUser(rw *ResponseWriter, r *http.Request) (int64, bool) {
	userID, ok := CurrentUser(r.Context())
	if !ok {
		rw.Unauthorized("authentication required")
	}
	return userID, ok
}
