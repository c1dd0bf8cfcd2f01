// Servonix - Bus Complaint Management and Real-Time Notifications
// Copyright 2026 Servonix Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"net/http"
	"strconv"

	gorillaws "github.com/gorilla/websocket"

	"github.com/servonix/servonix/internal/logging"
	"github.com/servonix/servonix/internal/websocket"
)

// WebSocket upgrades the connection and hands it to the hub. The
// connection starts unbound; the client binds by sending a register
// message with its credential. An unauthenticated connection can
// therefore hold a socket open, but it is never targeted by user emits
// and only ever sees system broadcasts.
func (h *Handler) WebSocket(w http.ResponseWriter, r *http.Request) {
	upgrader := gorillaws.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin:     h.checkWSOrigin,
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		logging.Ctx(r.Context()).Debug().Err(err).Msg("websocket upgrade failed")
		return
	}

	client := websocket.NewClient(h.hub, conn, h.credentialResolver())
	h.hub.Register <- client
	client.Start()
}

func (h *Handler) checkWSOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true // non-browser client
	}
	for _, allowed := range h.cfg.Security.CORSOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	return false
}

// credentialResolver maps register credentials to user IDs. A signed
// session token is the production path; bare numeric IDs are honored
// only outside production, for local tooling and tests.
func (h *Handler) credentialResolver() websocket.ResolverFunc {
	return func(credential string) (int64, error) {
		if claims, err := h.auth.TokenManager().ValidateToken(credential); err == nil {
			return claims.UserID()
		}
		if !h.cfg.Server.IsProduction() {
			if id, err := strconv.ParseInt(credential, 10, 64); err == nil && id > 0 {
				return id, nil
			}
		}
		return 0, websocket.ErrUnresolvableIdentity
	}
}
