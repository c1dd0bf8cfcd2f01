// Servonix - Bus Complaint Management and Real-Time Notifications
// Copyright 2026 Servonix Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package audit records privileged administrative actions for later
// review: role changes, account toggles, complaint reassignments, and
// system broadcasts. Events are written asynchronously so the request
// path never blocks on the audit store.
package audit

import "time"

// Action identifies what a privileged user did.
type Action string

const (
	ActionRoleChanged       Action = "user.role_changed"
	ActionAccountToggled    Action = "user.account_toggled"
	ActionStatusChanged     Action = "complaint.status_changed"
	ActionComplaintAssigned Action = "complaint.assigned"
	ActionAssignmentCreated Action = "assignment.created"
	ActionAssignmentDeleted Action = "assignment.deleted"
	ActionBroadcastSent     Action = "system.broadcast"
)

// Event is one recorded administrative action.
type Event struct {
	ID         string            `json:"id"`
	Timestamp  time.Time         `json:"timestamp"`
	Action     Action            `json:"action"`
	ActorID    int64             `json:"actor_id"`
	ActorRole  string            `json:"actor_role"`
	TargetType string            `json:"target_type,omitempty"`
	TargetID   int64             `json:"target_id,omitempty"`
	SourceIP   string            `json:"source_ip,omitempty"`
	Detail     string            `json:"detail,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// Query narrows an audit listing. Zero values mean "any".
type Query struct {
	Actions    []Action
	ActorID    int64
	TargetType string
	Since      time.Time
	Until      time.Time
	Limit      int
	Offset     int
}
