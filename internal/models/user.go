// Servonix - Bus Complaint Management and Real-Time Notifications
// Copyright 2026 Servonix Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package models defines the domain entities shared between the database,
// API, and realtime layers.
package models

import "time"

// Role constants define the standard roles in the system. These align with
// the Casbin policy definitions in internal/authz.
const (
	// RoleUser is the default role: passengers who file complaints.
	RoleUser = "user"

	// RoleAdmin handles complaints for assigned districts and inherits user
	// permissions.
	RoleAdmin = "admin"

	// RoleHead oversees all districts, manages admins, and inherits admin
	// permissions.
	RoleHead = "head"
)

// ValidRoles contains all valid role names for validation.
var ValidRoles = []string{RoleUser, RoleAdmin, RoleHead}

// IsValidRole checks if a role name is valid.
func IsValidRole(role string) bool {
	for _, r := range ValidRoles {
		if r == role {
			return true
		}
	}
	return false
}

// User represents an account in the system. PasswordHash never serializes
// to JSON.
type User struct {
	ID           int64      `json:"id"`
	Name         string     `json:"name"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"`
	Role         string     `json:"role"`
	Phone        string     `json:"phone,omitempty"`
	DistrictID   *int64     `json:"district_id,omitempty"` // admins: home district; users: optional
	IsActive     bool       `json:"is_active"`
	CreatedAt    time.Time  `json:"created_at"`
	LastLoginAt  *time.Time `json:"last_login_at,omitempty"`
}

// AdminDistrictAssignment maps an admin to a district they service.
// An admin may cover multiple districts; Priority breaks ties when several
// admins cover the same route.
type AdminDistrictAssignment struct {
	ID         int64     `json:"id"`
	AdminID    int64     `json:"admin_id"`
	DistrictID int64     `json:"district_id"`
	Priority   int       `json:"priority"`
	AssignedBy int64     `json:"assigned_by"`
	CreatedAt  time.Time `json:"created_at"`
}
