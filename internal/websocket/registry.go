// Servonix - Bus Complaint Management and Real-Time Notifications
// Copyright 2026 Servonix Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later

package websocket

import (
	"sort"
	"sync"

	"github.com/servonix/servonix/internal/metrics"
)

// Registry maps user IDs to their live connections. It is the only shared
// mutable state of the dispatcher and is safe for concurrent use from
// transport callbacks and request handlers.
//
// Invariant: every client present in the registry corresponds to a
// currently-open connection. Clients are removed synchronously on
// disconnect so emits never target dead sockets.
type Registry struct {
	mu       sync.RWMutex
	byUser   map[int64]map[*Client]struct{}
	byClient map[*Client]int64
}

// NewRegistry creates an empty session registry.
func NewRegistry() *Registry {
	return &Registry{
		byUser:   make(map[int64]map[*Client]struct{}),
		byClient: make(map[*Client]int64),
	}
}

// Bind registers a connection under a user ID. Binding the same connection
// twice is idempotent; binding it to a different user moves it (last write
// wins on identity).
func (r *Registry) Bind(userID int64, c *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()

	prev, tracked := r.byClient[c]
	if tracked {
		if prev == userID {
			return
		}
		// Identity move: the connection stays bound, so the gauge is
		// unchanged.
		r.removeLocked(prev, c)
	}

	conns, ok := r.byUser[userID]
	if !ok {
		conns = make(map[*Client]struct{})
		r.byUser[userID] = conns
	}
	conns[c] = struct{}{}
	r.byClient[c] = userID
	if !tracked {
		metrics.WSSessionsBound.Inc()
	}
}

// Unbind removes a connection from whichever user it was bound to.
// It is a no-op for connections that were never bound, which covers
// disconnects that happen before a register message arrives.
func (r *Registry) Unbind(c *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()

	userID, ok := r.byClient[c]
	if !ok {
		return
	}
	r.removeLocked(userID, c)
	metrics.WSSessionsBound.Dec()
}

// removeLocked detaches c from userID. Caller holds r.mu.
func (r *Registry) removeLocked(userID int64, c *Client) {
	delete(r.byClient, c)
	if conns, ok := r.byUser[userID]; ok {
		delete(conns, c)
		if len(conns) == 0 {
			delete(r.byUser, userID)
		}
	}
}

// ConnectionsFor returns the live connections bound to a user, sorted by
// client ID for deterministic delivery order. The result is a snapshot and
// is never nil: an offline user yields an empty slice.
func (r *Registry) ConnectionsFor(userID int64) []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conns := make([]*Client, 0, len(r.byUser[userID]))
	for c := range r.byUser[userID] {
		conns = append(conns, c)
	}
	sort.Slice(conns, func(i, j int) bool { return conns[i].id < conns[j].id })
	return conns
}

// UserFor returns the user a connection is bound to, if any.
func (r *Registry) UserFor(c *Client) (int64, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	userID, ok := r.byClient[c]
	return userID, ok
}

// BoundUserCount returns the number of distinct users with at least one
// live connection.
func (r *Registry) BoundUserCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byUser)
}
