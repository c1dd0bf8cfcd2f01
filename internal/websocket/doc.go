// Servonix - Bus Complaint Management and Real-Time Notifications
// Copyright 2026 Servonix Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package websocket implements the real-time notification dispatcher.
//
// The package maintains a registry of live connections keyed by user ID and
// pushes server-initiated events (new notification, complaint updates,
// direct messages, system announcements) to the right recipients without
// polling. Delivery is best-effort: every pushed event has a durable
// counterpart in the notifications table, so a missed live push is
// recovered the next time the client polls.
//
// Architecture:
//
//	Registry - maps user IDs to their live connections (a user may hold
//	           several, e.g. multiple browser tabs)
//	Hub      - owns the connection set, runs the dispatch loop, and exposes
//	           EmitToUser/Broadcast to request handlers
//	Client   - one WebSocket connection with its read and write pumps
//
// Connections start unbound. A client binds by sending a register message
// carrying a credential (a JWT or a bare user ID); the hub resolves it via
// an injected IdentityResolver. A connection whose credential cannot be
// resolved stays open but is never targeted by EmitToUser.
package websocket
