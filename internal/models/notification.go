// Servonix - Bus Complaint Management and Real-Time Notifications
// Copyright 2026 Servonix Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later

package models

import "time"

// Notification types, used both for persistence and as the realtime event
// discriminator on the wire.
const (
	NotificationComplaintFiled    = "complaint_filed"
	NotificationComplaintAssigned = "complaint_assigned"
	NotificationStatusChanged     = "status_changed"
	NotificationComplaintResolved = "complaint_resolved"
	NotificationFeedbackRequest   = "feedback_request"
	NotificationDirectMessage     = "direct_message"
	NotificationSystem            = "system"
)

// Notification is a persisted message for one user. RelatedID points at the
// entity the notification concerns (complaint, message) when applicable.
type Notification struct {
	ID        int64      `json:"id"`
	UserID    int64      `json:"user_id"`
	Type      string     `json:"type"`
	Title     string     `json:"title"`
	Message   string     `json:"message"`
	RelatedID *int64     `json:"related_id,omitempty"`
	IsRead    bool       `json:"is_read"`
	ReadAt    *time.Time `json:"read_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// Feedback review states.
const (
	FeedbackPending  = "pending"
	FeedbackReviewed = "reviewed"
)

// Feedback is a 1-5 rating left by the complainant after resolution. The
// handling admin may respond, moving it from pending to reviewed.
type Feedback struct {
	ID            int64      `json:"id"`
	ComplaintID   int64      `json:"complaint_id"`
	UserID        int64      `json:"user_id"`
	Rating        int        `json:"rating"`
	Comment       string     `json:"comment,omitempty"`
	Status        string     `json:"status"`
	AdminResponse string     `json:"admin_response,omitempty"`
	RespondedAt   *time.Time `json:"responded_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

// Message is a direct message between two users, typically the complainant
// and the handling admin.
type Message struct {
	ID          int64      `json:"id"`
	SenderID    int64      `json:"sender_id"`
	RecipientID int64      `json:"recipient_id"`
	ComplaintID *int64     `json:"complaint_id,omitempty"`
	Body        string     `json:"body"`
	IsRead      bool       `json:"is_read"`
	ReadAt      *time.Time `json:"read_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`

	SenderName string `json:"sender_name,omitempty"` // populated by joins
}
