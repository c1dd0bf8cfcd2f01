// Servonix - Bus Complaint Management and Real-Time Notifications
// Copyright 2026 Servonix Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/servonix/servonix/internal/audit"
	"github.com/servonix/servonix/internal/database"
	"github.com/servonix/servonix/internal/models"
)

// ListDistricts returns all districts.
func (h *Handler) ListDistricts(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	districts, err := h.db.ListDistricts(r.Context())
	if err != nil {
		rw.DatabaseError(err)
		return
	}
	rw.Success(districts)
}

// CreateDistrict adds a district. Head only.
func (h *Handler) CreateDistrict(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	var req CreateDistrictRequest
	if !decodeBody(rw, r, &req) {
		return
	}

	d := &models.District{Name: req.Name, Code: req.Code}
	if err := h.db.CreateDistrict(r.Context(), d); err != nil {
		if errors.Is(err, database.ErrDuplicate) {
			rw.Conflict("a district with this code already exists")
			return
		}
		rw.DatabaseError(err)
		return
	}
	rw.Created(d)
}

// ListRoutes returns routes, optionally scoped by ?district_id.
func (h *Handler) ListRoutes(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	var districtID *int64
	if raw := queryInt(r, "district_id", 0); raw > 0 {
		id := int64(raw)
		districtID = &id
	}

	routes, err := h.db.ListRoutes(r.Context(), districtID)
	if err != nil {
		rw.DatabaseError(err)
		return
	}
	rw.Success(routes)
}

// ListDistrictRoutes returns the routes of one district.
func (h *Handler) ListDistrictRoutes(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	districtID, ok := urlParamInt64(r, "id")
	if !ok {
		rw.BadRequest("invalid district id")
		return
	}

	routes, err := h.db.ListRoutes(r.Context(), &districtID)
	if err != nil {
		rw.DatabaseError(err)
		return
	}
	rw.Success(routes)
}

// CreateRoute adds a route to a district. Head only.
func (h *Handler) CreateRoute(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	districtID, ok := urlParamInt64(r, "id")
	if !ok {
		rw.BadRequest("invalid district id")
		return
	}
	var req CreateRouteRequest
	if !decodeBody(rw, r, &req) {
		return
	}

	route := &models.Route{
		DistrictID: districtID,
		Number:     req.Number,
		Name:       req.Name,
		Origin:     req.Origin,
		Terminus:   req.Terminus,
		IsActive:   true,
	}
	if err := h.db.CreateRoute(r.Context(), route); err != nil {
		if errors.Is(err, database.ErrDuplicate) {
			rw.Conflict("this route number already exists in the district")
			return
		}
		rw.DatabaseError(err)
		return
	}
	rw.Created(route)
}

// ListRouteBuses returns the buses serving a route.
func (h *Handler) ListRouteBuses(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	routeID, ok := urlParamInt64(r, "id")
	if !ok {
		rw.BadRequest("invalid route id")
		return
	}

	buses, err := h.db.ListBusesForRoute(r.Context(), routeID)
	if err != nil {
		rw.DatabaseError(err)
		return
	}
	rw.Success(buses)
}

// CreateBus adds a bus to a route. Head only.
func (h *Handler) CreateBus(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	routeID, ok := urlParamInt64(r, "id")
	if !ok {
		rw.BadRequest("invalid route id")
		return
	}
	var req CreateBusRequest
	if !decodeBody(rw, r, &req) {
		return
	}

	bus := &models.Bus{
		RouteID:      routeID,
		Registration: req.Registration,
		Capacity:     req.Capacity,
		IsActive:     true,
	}
	if err := h.db.CreateBus(r.Context(), bus); err != nil {
		if errors.Is(err, database.ErrDuplicate) {
			rw.Conflict("a bus with this registration already exists")
			return
		}
		rw.DatabaseError(err)
		return
	}
	rw.Created(bus)
}

// CreateAssignment maps an admin to a district with a priority. Repeating
// an existing pair updates its priority. Head only.
func (h *Handler) CreateAssignment(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	headID, ok := requireUser(rw, r)
	if !ok {
		return
	}
	var req CreateAssignmentRequest
	if !decodeBody(rw, r, &req) {
		return
	}

	admin, err := h.db.GetUserByID(r.Context(), req.AdminID)
	if err != nil || admin.Role == models.RoleUser {
		rw.BadRequest("target user is not an admin")
		return
	}

	a := &models.AdminDistrictAssignment{
		AdminID:    req.AdminID,
		DistrictID: req.DistrictID,
		Priority:   req.Priority,
		AssignedBy: headID,
	}
	if err := h.db.UpsertDistrictAssignment(r.Context(), a); err != nil {
		rw.DatabaseError(err)
		return
	}
	h.auditRecord(r, audit.ActionAssignmentCreated, "district", req.DistrictID,
		fmt.Sprintf("admin %d assigned with priority %d", req.AdminID, req.Priority))

	rw.Created(a)
}

// DeleteAssignment removes an admin's district assignment. Head only.
func (h *Handler) DeleteAssignment(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	adminID, ok := urlParamInt64(r, "adminID")
	if !ok {
		rw.BadRequest("invalid admin id")
		return
	}
	districtID, ok := urlParamInt64(r, "districtID")
	if !ok {
		rw.BadRequest("invalid district id")
		return
	}

	err := h.db.DeleteDistrictAssignment(r.Context(), adminID, districtID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			rw.NotFound("assignment not found")
			return
		}
		rw.DatabaseError(err)
		return
	}
	h.auditRecord(r, audit.ActionAssignmentDeleted, "district", districtID,
		fmt.Sprintf("admin %d unassigned", adminID))

	rw.NoContent()
}
