// Servonix - Bus Complaint Management and Real-Time Notifications
// Copyright 2026 Servonix Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later

package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/servonix/servonix/internal/models"
)

// CreateDistrict inserts a district.
func (db *DB) CreateDistrict(ctx context.Context, d *models.District) (err error) {
	start := time.Now()
	defer func() { observe("insert", "districts", start, err) }()

	row := db.conn.QueryRowContext(ctx, `
		INSERT INTO districts (name, code) VALUES (?, ?)
		RETURNING id, created_at`, d.Name, d.Code)
	if err = translateError(row.Scan(&d.ID, &d.CreatedAt)); err != nil {
		return fmt.Errorf("create district: %w", err)
	}
	return nil
}

// ListDistricts returns all districts ordered by name.
func (db *DB) ListDistricts(ctx context.Context) (out []*models.District, err error) {
	start := time.Now()
	defer func() { observe("select", "districts", start, err) }()

	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, name, code, created_at FROM districts ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list districts: %w", err)
	}
	defer closeQuietly(rows)

	for rows.Next() {
		d := &models.District{}
		if err = rows.Scan(&d.ID, &d.Name, &d.Code, &d.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// CreateRoute inserts a route.
func (db *DB) CreateRoute(ctx context.Context, r *models.Route) (err error) {
	start := time.Now()
	defer func() { observe("insert", "routes", start, err) }()

	row := db.conn.QueryRowContext(ctx, `
		INSERT INTO routes (district_id, number, name, origin, terminus)
		VALUES (?, ?, ?, ?, ?)
		RETURNING id, created_at`,
		r.DistrictID, r.Number, r.Name, nullStr(r.Origin), nullStr(r.Terminus))
	if err = translateError(row.Scan(&r.ID, &r.CreatedAt)); err != nil {
		return fmt.Errorf("create route: %w", err)
	}
	r.IsActive = true
	return nil
}

// GetRoute returns a route by ID.
func (db *DB) GetRoute(ctx context.Context, id int64) (r *models.Route, err error) {
	start := time.Now()
	defer func() { observe("select", "routes", start, err) }()

	r = &models.Route{}
	var origin, terminus sql.NullString
	row := db.conn.QueryRowContext(ctx, `
		SELECT id, district_id, number, name, origin, terminus, is_active, created_at
		FROM routes WHERE id = ?`, id)
	err = row.Scan(&r.ID, &r.DistrictID, &r.Number, &r.Name, &origin, &terminus,
		&r.IsActive, &r.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("get route: %w", translateError(err))
	}
	r.Origin = origin.String
	r.Terminus = terminus.String
	return r, nil
}

// ListRoutes returns routes, optionally scoped to one district.
func (db *DB) ListRoutes(ctx context.Context, districtID *int64) (out []*models.Route, err error) {
	start := time.Now()
	defer func() { observe("select", "routes", start, err) }()

	query := `SELECT id, district_id, number, name, origin, terminus, is_active, created_at FROM routes`
	var args []interface{}
	if districtID != nil {
		query += ` WHERE district_id = ?`
		args = append(args, *districtID)
	}
	query += ` ORDER BY number`

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list routes: %w", err)
	}
	defer closeQuietly(rows)

	for rows.Next() {
		r := &models.Route{}
		var origin, terminus sql.NullString
		if err = rows.Scan(&r.ID, &r.DistrictID, &r.Number, &r.Name, &origin,
			&terminus, &r.IsActive, &r.CreatedAt); err != nil {
			return nil, err
		}
		r.Origin = origin.String
		r.Terminus = terminus.String
		out = append(out, r)
	}
	return out, rows.Err()
}

// CreateBus inserts a bus.
func (db *DB) CreateBus(ctx context.Context, b *models.Bus) (err error) {
	start := time.Now()
	defer func() { observe("insert", "buses", start, err) }()

	row := db.conn.QueryRowContext(ctx, `
		INSERT INTO buses (route_id, registration, capacity)
		VALUES (?, ?, ?)
		RETURNING id, created_at`, b.RouteID, b.Registration, b.Capacity)
	if err = translateError(row.Scan(&b.ID, &b.CreatedAt)); err != nil {
		return fmt.Errorf("create bus: %w", err)
	}
	b.IsActive = true
	return nil
}

// ListBusesForRoute returns active buses on a route.
func (db *DB) ListBusesForRoute(ctx context.Context, routeID int64) (out []*models.Bus, err error) {
	start := time.Now()
	defer func() { observe("select", "buses", start, err) }()

	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, route_id, registration, capacity, is_active, created_at
		FROM buses WHERE route_id = ? AND is_active ORDER BY registration`, routeID)
	if err != nil {
		return nil, fmt.Errorf("list buses: %w", err)
	}
	defer closeQuietly(rows)

	for rows.Next() {
		b := &models.Bus{}
		if err = rows.Scan(&b.ID, &b.RouteID, &b.Registration, &b.Capacity,
			&b.IsActive, &b.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// UpsertDistrictAssignment creates or re-prioritizes an admin's district
// assignment.
func (db *DB) UpsertDistrictAssignment(ctx context.Context, a *models.AdminDistrictAssignment) (err error) {
	start := time.Now()
	defer func() { observe("insert", "admin_district_assignments", start, err) }()

	row := db.conn.QueryRowContext(ctx, `
		INSERT INTO admin_district_assignments (admin_id, district_id, priority, assigned_by)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (admin_id, district_id) DO UPDATE SET
			priority = EXCLUDED.priority,
			assigned_by = EXCLUDED.assigned_by
		RETURNING id, created_at`,
		a.AdminID, a.DistrictID, a.Priority, a.AssignedBy)
	if err = translateError(row.Scan(&a.ID, &a.CreatedAt)); err != nil {
		return fmt.Errorf("upsert assignment: %w", err)
	}
	return nil
}

// DeleteDistrictAssignment removes an admin from a district.
func (db *DB) DeleteDistrictAssignment(ctx context.Context, adminID, districtID int64) (err error) {
	start := time.Now()
	defer func() { observe("delete", "admin_district_assignments", start, err) }()

	res, err := db.conn.ExecContext(ctx, `
		DELETE FROM admin_district_assignments
		WHERE admin_id = ? AND district_id = ?`, adminID, districtID)
	if err != nil {
		return fmt.Errorf("delete assignment: %w", err)
	}
	return checkAffected(res)
}

// AdminsForDistrict returns active admins assigned to the district, best
// priority first (lower number wins), then by admin ID for determinism.
func (db *DB) AdminsForDistrict(ctx context.Context, districtID int64) (out []*models.AdminDistrictAssignment, err error) {
	start := time.Now()
	defer func() { observe("select", "admin_district_assignments", start, err) }()

	rows, err := db.conn.QueryContext(ctx, `
		SELECT a.id, a.admin_id, a.district_id, a.priority, a.assigned_by, a.created_at
		FROM admin_district_assignments a
		JOIN users u ON u.id = a.admin_id
		WHERE a.district_id = ? AND u.is_active AND u.role IN ('admin', 'head')
		ORDER BY a.priority, a.admin_id`, districtID)
	if err != nil {
		return nil, fmt.Errorf("admins for district: %w", err)
	}
	defer closeQuietly(rows)

	for rows.Next() {
		a := &models.AdminDistrictAssignment{}
		if err = rows.Scan(&a.ID, &a.AdminID, &a.DistrictID, &a.Priority,
			&a.AssignedBy, &a.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
