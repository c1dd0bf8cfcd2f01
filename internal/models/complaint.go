// Servonix - Bus Complaint Management and Real-Time Notifications
// Copyright 2026 Servonix Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later

package models

import "time"

// Complaint status lifecycle: pending -> in_progress -> resolved, with
// rejected reachable from pending or in_progress.
const (
	ComplaintPending    = "pending"
	ComplaintInProgress = "in_progress"
	ComplaintResolved   = "resolved"
	ComplaintRejected   = "rejected"
)

// ValidComplaintStatuses contains all valid complaint status values.
var ValidComplaintStatuses = []string{
	ComplaintPending, ComplaintInProgress, ComplaintResolved, ComplaintRejected,
}

// IsValidComplaintStatus checks if a status value is valid.
func IsValidComplaintStatus(status string) bool {
	for _, s := range ValidComplaintStatuses {
		if s == status {
			return true
		}
	}
	return false
}

// complaintTransitions defines the allowed status transitions.
var complaintTransitions = map[string][]string{
	ComplaintPending:    {ComplaintInProgress, ComplaintRejected},
	ComplaintInProgress: {ComplaintResolved, ComplaintRejected},
	ComplaintResolved:   {},
	ComplaintRejected:   {},
}

// CanTransitionComplaint reports whether a complaint may move from one
// status to another.
func CanTransitionComplaint(from, to string) bool {
	for _, next := range complaintTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Complaint categories mirror the report form.
const (
	CategoryDelay       = "delay"
	CategoryCleanliness = "cleanliness"
	CategoryBehavior    = "behavior"
	CategoryOvercrowd   = "overcrowding"
	CategorySafety      = "safety"
	CategoryOther       = "other"
)

// ValidComplaintCategories contains all valid complaint categories.
var ValidComplaintCategories = []string{
	CategoryDelay, CategoryCleanliness, CategoryBehavior,
	CategoryOvercrowd, CategorySafety, CategoryOther,
}

// Complaint represents a passenger-filed complaint about a bus journey.
type Complaint struct {
	ID          int64      `json:"id"`
	UserID      int64      `json:"user_id"`
	RouteID     *int64     `json:"route_id,omitempty"`
	BusID       *int64     `json:"bus_id,omitempty"`
	DistrictID  *int64     `json:"district_id,omitempty"`
	Category    string     `json:"category"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Status      string     `json:"status"`
	AssignedTo  *int64     `json:"assigned_to,omitempty"` // admin handling the complaint
	Resolution  string     `json:"resolution,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	ResolvedAt  *time.Time `json:"resolved_at,omitempty"`

	// Denormalized for list views; populated by joins, never written.
	UserName  string `json:"user_name,omitempty"`
	RouteName string `json:"route_name,omitempty"`
	AdminName string `json:"admin_name,omitempty"`
}

// ComplaintFilter narrows complaint list queries.
type ComplaintFilter struct {
	UserID     *int64
	AssignedTo *int64
	DistrictID *int64
	RouteID    *int64
	Status     string
	Category   string
	Page       int
	PageSize   int
}

// ComplaintStatusCount is a per-status aggregate for dashboards.
type ComplaintStatusCount struct {
	Status string `json:"status"`
	Count  int64  `json:"count"`
}
