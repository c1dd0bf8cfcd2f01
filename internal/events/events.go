// Servonix - Bus Complaint Management and Real-Time Notifications
// Copyright 2026 Servonix Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package events provides the in-process event bus that decouples request
// handlers from realtime delivery. Handlers publish domain events after
// their database write commits; the bridge consumes them and mirrors each
// event onto the WebSocket hub. A bus failure never affects the HTTP
// response that triggered the event.
package events

import (
	"time"

	"github.com/google/uuid"
)

// Topics carried by the bus.
const (
	TopicComplaints    = "servonix.complaints"
	TopicNotifications = "servonix.notifications"
	TopicMessages      = "servonix.messages"
	TopicSystem        = "servonix.system"
)

// Event is the canonical envelope published on every topic.
//
// Exactly one of Recipients or Broadcast describes the realtime target:
// Recipients lists the user IDs to push to, Broadcast addresses every live
// connection. Events with neither set are consumed by non-realtime
// handlers only.
type Event struct {
	ID         string                 `json:"id"`
	Type       string                 `json:"type"`
	ActorID    int64                  `json:"actor_id,omitempty"`
	Recipients []int64                `json:"recipients,omitempty"`
	Broadcast  bool                   `json:"broadcast,omitempty"`
	Data       map[string]interface{} `json:"data,omitempty"`
	OccurredAt time.Time              `json:"occurred_at"`
}

// NewEvent creates an event of the given type targeted at recipients.
func NewEvent(eventType string, recipients []int64, data map[string]interface{}) Event {
	return Event{
		ID:         uuid.New().String(),
		Type:       eventType,
		Recipients: recipients,
		Data:       data,
		OccurredAt: time.Now().UTC(),
	}
}

// NewBroadcastEvent creates an event addressed to every live connection.
func NewBroadcastEvent(eventType string, data map[string]interface{}) Event {
	return Event{
		ID:         uuid.New().String(),
		Type:       eventType,
		Broadcast:  true,
		Data:       data,
		OccurredAt: time.Now().UTC(),
	}
}
