// Servonix - Bus Complaint Management and Real-Time Notifications
// Copyright 2026 Servonix Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later

package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/servonix/servonix/internal/models"
)

// CreateComplaint inserts a new complaint in pending status and returns it
// with the generated ID and timestamps.
func (db *DB) CreateComplaint(ctx context.Context, c *models.Complaint) (err error) {
	start := time.Now()
	defer func() { observe("insert", "complaints", start, err) }()

	row := db.conn.QueryRowContext(ctx, `
		INSERT INTO complaints (user_id, route_id, bus_id, district_id, category,
		                        title, description, status)
		VALUES (?, ?, ?, ?, ?, ?, ?, 'pending')
		RETURNING id, status, created_at, updated_at`,
		c.UserID, c.RouteID, c.BusID, c.DistrictID, c.Category, c.Title, c.Description)
	if err = translateError(row.Scan(&c.ID, &c.Status, &c.CreatedAt, &c.UpdatedAt)); err != nil {
		return fmt.Errorf("create complaint: %w", err)
	}
	return nil
}

const complaintColumns = `
	c.id, c.user_id, c.route_id, c.bus_id, c.district_id, c.category,
	c.title, c.description, c.status, c.assigned_to, c.resolution,
	c.created_at, c.updated_at, c.resolved_at,
	u.name AS user_name, r.name AS route_name, a.name AS admin_name`

const complaintJoins = `
	FROM complaints c
	JOIN users u ON u.id = c.user_id
	LEFT JOIN routes r ON r.id = c.route_id
	LEFT JOIN users a ON a.id = c.assigned_to`

// GetComplaint returns a single complaint with denormalized names.
func (db *DB) GetComplaint(ctx context.Context, id int64) (c *models.Complaint, err error) {
	start := time.Now()
	defer func() { observe("select", "complaints", start, err) }()

	row := db.conn.QueryRowContext(ctx,
		"SELECT "+complaintColumns+complaintJoins+" WHERE c.id = ?", id)
	c, err = scanComplaint(row)
	if err != nil {
		return nil, fmt.Errorf("get complaint: %w", translateError(err))
	}
	return c, nil
}

// ListComplaints returns complaints matching the filter, newest first.
func (db *DB) ListComplaints(ctx context.Context, f models.ComplaintFilter) (out []*models.Complaint, err error) {
	start := time.Now()
	defer func() { observe("select", "complaints", start, err) }()

	var conds []string
	var args []interface{}
	if f.UserID != nil {
		conds = append(conds, "c.user_id = ?")
		args = append(args, *f.UserID)
	}
	if f.AssignedTo != nil {
		conds = append(conds, "c.assigned_to = ?")
		args = append(args, *f.AssignedTo)
	}
	if f.DistrictID != nil {
		conds = append(conds, "c.district_id = ?")
		args = append(args, *f.DistrictID)
	}
	if f.RouteID != nil {
		conds = append(conds, "c.route_id = ?")
		args = append(args, *f.RouteID)
	}
	if f.Status != "" {
		conds = append(conds, "c.status = ?")
		args = append(args, f.Status)
	}
	if f.Category != "" {
		conds = append(conds, "c.category = ?")
		args = append(args, f.Category)
	}

	query := "SELECT " + complaintColumns + complaintJoins
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY c.created_at DESC, c.id DESC"

	if f.PageSize > 0 {
		page := f.Page
		if page < 1 {
			page = 1
		}
		query += " LIMIT ? OFFSET ?"
		args = append(args, f.PageSize, (page-1)*f.PageSize)
	}

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list complaints: %w", err)
	}
	defer closeQuietly(rows)

	for rows.Next() {
		c, scanErr := scanComplaint(rows)
		if scanErr != nil {
			err = scanErr
			return nil, fmt.Errorf("scan complaint: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// AssignComplaint sets the handling admin and moves the complaint to
// in_progress. Assigning an already-assigned complaint is an update, not an
// error; the assignment service decides policy.
func (db *DB) AssignComplaint(ctx context.Context, complaintID, adminID int64) (err error) {
	start := time.Now()
	defer func() { observe("update", "complaints", start, err) }()

	res, err := db.conn.ExecContext(ctx, `
		UPDATE complaints
		SET assigned_to = ?, status = 'in_progress', updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND status = 'pending'`, adminID, complaintID)
	if err != nil {
		return fmt.Errorf("assign complaint: %w", err)
	}
	if err = checkAffected(res); err != nil {
		// Distinguish missing from already-progressed.
		if _, getErr := db.GetComplaint(ctx, complaintID); getErr == nil {
			return ErrConflict
		}
		return err
	}
	return nil
}

// UpdateComplaintStatus transitions a complaint, enforcing the lifecycle
// in SQL so concurrent writers cannot race past it. Resolution text is
// stored with resolved/rejected transitions.
func (db *DB) UpdateComplaintStatus(ctx context.Context, complaintID int64, from, to, resolution string) (err error) {
	start := time.Now()
	defer func() { observe("update", "complaints", start, err) }()

	if !models.CanTransitionComplaint(from, to) {
		return ErrConflict
	}

	query := `UPDATE complaints SET status = ?, updated_at = CURRENT_TIMESTAMP`
	args := []interface{}{to}
	if to == models.ComplaintResolved || to == models.ComplaintRejected {
		query += `, resolution = ?, resolved_at = CURRENT_TIMESTAMP`
		args = append(args, resolution)
	}
	query += ` WHERE id = ? AND status = ?`
	args = append(args, complaintID, from)

	res, err := db.conn.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update status: %w", err)
	}
	if err = checkAffected(res); err != nil {
		if _, getErr := db.GetComplaint(ctx, complaintID); getErr == nil {
			return ErrConflict
		}
		return err
	}
	return nil
}

// CountComplaintsByStatus returns per-status complaint counts, optionally
// scoped to one district.
func (db *DB) CountComplaintsByStatus(ctx context.Context, districtID *int64) (counts []models.ComplaintStatusCount, err error) {
	start := time.Now()
	defer func() { observe("select", "complaints", start, err) }()

	query := `SELECT status, COUNT(*) FROM complaints`
	var args []interface{}
	if districtID != nil {
		query += ` WHERE district_id = ?`
		args = append(args, *districtID)
	}
	query += ` GROUP BY status ORDER BY status`

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("count complaints: %w", err)
	}
	defer closeQuietly(rows)

	for rows.Next() {
		var c models.ComplaintStatusCount
		if err = rows.Scan(&c.Status, &c.Count); err != nil {
			return nil, err
		}
		counts = append(counts, c)
	}
	return counts, rows.Err()
}

// CountOpenAssignments returns how many in_progress complaints each admin
// currently holds. Used by dashboards, not by assignment (assignment is
// strict route match plus priority).
func (db *DB) CountOpenAssignments(ctx context.Context, adminID int64) (n int64, err error) {
	start := time.Now()
	defer func() { observe("select", "complaints", start, err) }()

	row := db.conn.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM complaints
		WHERE assigned_to = ? AND status = 'in_progress'`, adminID)
	err = row.Scan(&n)
	return n, err
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanComplaint(row rowScanner) (*models.Complaint, error) {
	c := &models.Complaint{}
	var routeID, busID, districtID, assignedTo sql.NullInt64
	var resolution, userName, routeName, adminName sql.NullString
	var resolvedAt sql.NullTime

	err := row.Scan(&c.ID, &c.UserID, &routeID, &busID, &districtID, &c.Category,
		&c.Title, &c.Description, &c.Status, &assignedTo, &resolution,
		&c.CreatedAt, &c.UpdatedAt, &resolvedAt,
		&userName, &routeName, &adminName)
	if err != nil {
		return nil, err
	}
	if routeID.Valid {
		c.RouteID = &routeID.Int64
	}
	if busID.Valid {
		c.BusID = &busID.Int64
	}
	if districtID.Valid {
		c.DistrictID = &districtID.Int64
	}
	if assignedTo.Valid {
		c.AssignedTo = &assignedTo.Int64
	}
	if resolvedAt.Valid {
		c.ResolvedAt = &resolvedAt.Time
	}
	c.Resolution = resolution.String
	c.UserName = userName.String
	c.RouteName = routeName.String
	c.AdminName = adminName.String
	return c, nil
}
