// Servonix - Bus Complaint Management and Real-Time Notifications
// Copyright 2026 Servonix Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
schema.go - Database Schema Management

Tables:
  - users: accounts with role (user/admin/head) and bcrypt password hash
  - districts, routes, buses: transit reference data
  - admin_district_assignments: which admin services which district
  - complaints: passenger complaints with status lifecycle and assignment
  - notifications: per-user notification feed (also mirrored over WebSocket)
  - feedback: post-resolution 1-5 ratings
  - messages: direct messages between complainant and handling admin

All columns are defined in the initial CREATE TABLE statements; primary keys
come from DuckDB sequences so inserts can use RETURNING id.
*/
package database

import (
	"context"
	"fmt"
	"time"
)

// schemaContext returns a context with timeout for schema operations.
func schemaContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 60*time.Second)
}

func (db *DB) createSchema(ctx context.Context) error {
	var queries []string

	for _, seq := range []string{
		"seq_users", "seq_districts", "seq_routes", "seq_buses",
		"seq_assignments", "seq_complaints", "seq_notifications",
		"seq_feedback", "seq_messages",
	} {
		queries = append(queries, fmt.Sprintf("CREATE SEQUENCE IF NOT EXISTS %s START 1;", seq))
	}

	queries = append(queries, `CREATE TABLE IF NOT EXISTS users (
		id BIGINT PRIMARY KEY DEFAULT nextval('seq_users'),
		name TEXT NOT NULL,
		email TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		role TEXT NOT NULL DEFAULT 'user',
		phone TEXT,
		district_id BIGINT,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		last_login_at TIMESTAMP
	);`)

	queries = append(queries, `CREATE TABLE IF NOT EXISTS districts (
		id BIGINT PRIMARY KEY DEFAULT nextval('seq_districts'),
		name TEXT NOT NULL,
		code TEXT NOT NULL UNIQUE,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	);`)

	queries = append(queries, `CREATE TABLE IF NOT EXISTS routes (
		id BIGINT PRIMARY KEY DEFAULT nextval('seq_routes'),
		district_id BIGINT NOT NULL,
		number TEXT NOT NULL,
		name TEXT NOT NULL,
		origin TEXT,
		terminus TEXT,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(district_id, number)
	);`)

	queries = append(queries, `CREATE TABLE IF NOT EXISTS buses (
		id BIGINT PRIMARY KEY DEFAULT nextval('seq_buses'),
		route_id BIGINT NOT NULL,
		registration TEXT NOT NULL UNIQUE,
		capacity INTEGER NOT NULL DEFAULT 0,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	);`)

	queries = append(queries, `CREATE TABLE IF NOT EXISTS admin_district_assignments (
		id BIGINT PRIMARY KEY DEFAULT nextval('seq_assignments'),
		admin_id BIGINT NOT NULL,
		district_id BIGINT NOT NULL,
		priority INTEGER NOT NULL DEFAULT 0,
		assigned_by BIGINT NOT NULL,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(admin_id, district_id)
	);`)

	queries = append(queries, `CREATE TABLE IF NOT EXISTS complaints (
		id BIGINT PRIMARY KEY DEFAULT nextval('seq_complaints'),
		user_id BIGINT NOT NULL,
		route_id BIGINT,
		bus_id BIGINT,
		district_id BIGINT,
		category TEXT NOT NULL,
		title TEXT NOT NULL,
		description TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending',
		assigned_to BIGINT,
		resolution TEXT,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		resolved_at TIMESTAMP
	);`)

	queries = append(queries, `CREATE TABLE IF NOT EXISTS notifications (
		id BIGINT PRIMARY KEY DEFAULT nextval('seq_notifications'),
		user_id BIGINT NOT NULL,
		type TEXT NOT NULL,
		title TEXT NOT NULL,
		message TEXT NOT NULL,
		related_id BIGINT,
		is_read BOOLEAN NOT NULL DEFAULT FALSE,
		read_at TIMESTAMP,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	);`)

	queries = append(queries, `CREATE TABLE IF NOT EXISTS feedback (
		id BIGINT PRIMARY KEY DEFAULT nextval('seq_feedback'),
		complaint_id BIGINT NOT NULL UNIQUE,
		user_id BIGINT NOT NULL,
		rating INTEGER NOT NULL CHECK (rating BETWEEN 1 AND 5),
		comment TEXT,
		status TEXT NOT NULL DEFAULT 'pending',
		admin_response TEXT,
		responded_at TIMESTAMP,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	);`)

	queries = append(queries, `CREATE TABLE IF NOT EXISTS messages (
		id BIGINT PRIMARY KEY DEFAULT nextval('seq_messages'),
		sender_id BIGINT NOT NULL,
		recipient_id BIGINT NOT NULL,
		complaint_id BIGINT,
		body TEXT NOT NULL,
		is_read BOOLEAN NOT NULL DEFAULT FALSE,
		read_at TIMESTAMP,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	);`)

	// Indexes for common filters.
	queries = append(queries,
		"CREATE INDEX IF NOT EXISTS idx_users_email ON users(email);",
		"CREATE INDEX IF NOT EXISTS idx_complaints_user ON complaints(user_id);",
		"CREATE INDEX IF NOT EXISTS idx_complaints_assigned ON complaints(assigned_to, status);",
		"CREATE INDEX IF NOT EXISTS idx_complaints_district ON complaints(district_id, status);",
		"CREATE INDEX IF NOT EXISTS idx_notifications_user ON notifications(user_id, is_read);",
		"CREATE INDEX IF NOT EXISTS idx_messages_recipient ON messages(recipient_id, is_read);",
		"CREATE INDEX IF NOT EXISTS idx_assignments_district ON admin_district_assignments(district_id, priority);",
	)

	for _, q := range queries {
		if _, err := db.conn.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("schema statement failed: %w", err)
		}
	}
	return nil
}
