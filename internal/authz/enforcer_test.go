// Servonix - Bus Complaint Management and Real-Time Notifications
// Copyright 2026 Servonix Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later

package authz

import (
	"testing"

	"github.com/servonix/servonix/internal/config"
)

func newTestEnforcer(t *testing.T) *Enforcer {
	t.Helper()

	e, err := NewEnforcer(config.CasbinConfig{DefaultRole: "user"})
	if err != nil {
		t.Fatalf("NewEnforcer() error = %v", err)
	}
	return e
}

func TestEnforcerEmbeddedPolicy(t *testing.T) {
	e := newTestEnforcer(t)

	tests := []struct {
		name   string
		role   string
		path   string
		method string
		want   bool
	}{
		{"user files complaint", "user", "/api/v1/complaints", "POST", true},
		{"user lists complaints", "user", "/api/v1/complaints", "GET", true},
		{"user reads own complaint", "user", "/api/v1/complaints/17", "GET", true},
		{"user leaves feedback", "user", "/api/v1/complaints/17/feedback", "POST", true},
		{"user reads complaint thread", "user", "/api/v1/complaints/17/messages", "GET", true},
		{"user cannot respond to feedback", "user", "/api/v1/complaints/17/feedback/respond", "POST", false},
		{"admin responds to feedback", "admin", "/api/v1/complaints/17/feedback/respond", "POST", true},
		{"user marks notification read", "user", "/api/v1/notifications/42/read", "POST", true},
		{"user cannot change status", "user", "/api/v1/complaints/17/status", "POST", false},
		{"user cannot assign", "user", "/api/v1/complaints/17/assign", "POST", false},
		{"user cannot list users", "user", "/api/v1/users", "GET", false},
		{"user cannot create district", "user", "/api/v1/districts", "POST", false},
		{"admin changes status", "admin", "/api/v1/complaints/17/status", "POST", true},
		{"admin sees dashboard", "admin", "/api/v1/dashboard/complaints", "GET", true},
		{"admin inherits user routes", "admin", "/api/v1/complaints", "POST", true},
		{"admin cannot manage users", "admin", "/api/v1/users/3/role", "POST", false},
		{"admin cannot create assignments", "admin", "/api/v1/assignments", "POST", false},
		{"head manages roles", "head", "/api/v1/users/3/role", "POST", true},
		{"head deletes assignment", "head", "/api/v1/assignments/3/7", "DELETE", true},
		{"head broadcasts", "head", "/api/v1/broadcast", "POST", true},
		{"head reads audit trail", "head", "/api/v1/audit", "GET", true},
		{"admin cannot read audit trail", "admin", "/api/v1/audit", "GET", false},
		{"user deletes own notification", "user", "/api/v1/notifications/42", "DELETE", true},
		{"head inherits admin routes", "head", "/api/v1/complaints/17/status", "POST", true},
		{"head inherits user routes", "head", "/api/v1/notifications", "GET", true},
		{"unknown role denied", "ghost", "/api/v1/complaints", "GET", false},
		{"unknown route denied", "head", "/api/v1/internal/debug", "GET", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := e.Enforce(tt.role, tt.path, tt.method)
			if err != nil {
				t.Fatalf("Enforce(%s, %s, %s) error = %v", tt.role, tt.path, tt.method, err)
			}
			if got != tt.want {
				t.Errorf("Enforce(%s, %s, %s) = %v, want %v", tt.role, tt.path, tt.method, got, tt.want)
			}
		})
	}
}

func TestEnforcerRolesFor(t *testing.T) {
	e := newTestEnforcer(t)

	roles, err := e.RolesFor("head")
	if err != nil {
		t.Fatalf("RolesFor(head) error = %v", err)
	}

	want := map[string]bool{"head": false, "admin": false, "user": false}
	for _, r := range roles {
		if _, ok := want[r]; ok {
			want[r] = true
		}
	}
	for r, seen := range want {
		if !seen {
			t.Errorf("RolesFor(head) missing role %q, got %v", r, roles)
		}
	}
}
