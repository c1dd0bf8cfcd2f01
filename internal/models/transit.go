// Servonix - Bus Complaint Management and Real-Time Notifications
// Copyright 2026 Servonix Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later

package models

import "time"

// District is an administrative area grouping routes and admins.
type District struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Code      string    `json:"code"` // short unique code, e.g. "N", "SE"
	CreatedAt time.Time `json:"created_at"`
}

// Route is a bus route within a district.
type Route struct {
	ID         int64     `json:"id"`
	DistrictID int64     `json:"district_id"`
	Number     string    `json:"number"` // public route number, e.g. "42A"
	Name       string    `json:"name"`
	Origin     string    `json:"origin"`
	Terminus   string    `json:"terminus"`
	IsActive   bool      `json:"is_active"`
	CreatedAt  time.Time `json:"created_at"`
}

// Bus is a vehicle operating on a route.
type Bus struct {
	ID           int64     `json:"id"`
	RouteID      int64     `json:"route_id"`
	Registration string    `json:"registration"` // plate number, unique
	Capacity     int       `json:"capacity"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
}
