// Servonix - Bus Complaint Management and Real-Time Notifications
// Copyright 2026 Servonix Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later

package audit

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

// DuckDBStore is the durable Store, sharing the application's DuckDB
// connection. Call CreateTable once at startup.
type DuckDBStore struct {
	db *sql.DB
}

// NewDuckDBStore wraps an open DuckDB connection.
func NewDuckDBStore(db *sql.DB) *DuckDBStore {
	return &DuckDBStore{db: db}
}

// CreateTable creates the audit_events table if it does not exist.
func (s *DuckDBStore) CreateTable(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS audit_events (
			id          TEXT PRIMARY KEY,
			timestamp   TIMESTAMPTZ NOT NULL,
			action      TEXT NOT NULL,
			actor_id    BIGINT NOT NULL,
			actor_role  TEXT NOT NULL,
			target_type TEXT,
			target_id   BIGINT,
			source_ip   TEXT,
			detail      TEXT,
			metadata    JSON
		)`
	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("create audit_events table: %w", err)
	}
	return nil
}

func (s *DuckDBStore) Save(ctx context.Context, event *Event) error {
	var metadata interface{}
	if len(event.Metadata) > 0 {
		raw, err := json.Marshal(event.Metadata)
		if err != nil {
			return fmt.Errorf("marshal audit metadata: %w", err)
		}
		metadata = string(raw)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_events
			(id, timestamp, action, actor_id, actor_role, target_type, target_id, source_ip, detail, metadata)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		event.ID, event.Timestamp, string(event.Action), event.ActorID, event.ActorRole,
		nullString(event.TargetType), nullInt64(event.TargetID),
		nullString(event.SourceIP), nullString(event.Detail), metadata,
	)
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

func (s *DuckDBStore) List(ctx context.Context, q Query) ([]Event, error) {
	var (
		conds []string
		args  []interface{}
	)
	if len(q.Actions) > 0 {
		placeholders := make([]string, len(q.Actions))
		for i, a := range q.Actions {
			placeholders[i] = "?"
			args = append(args, string(a))
		}
		conds = append(conds, fmt.Sprintf("action IN (%s)", strings.Join(placeholders, ",")))
	}
	if q.ActorID != 0 {
		conds = append(conds, "actor_id = ?")
		args = append(args, q.ActorID)
	}
	if q.TargetType != "" {
		conds = append(conds, "target_type = ?")
		args = append(args, q.TargetType)
	}
	if !q.Since.IsZero() {
		conds = append(conds, "timestamp >= ?")
		args = append(args, q.Since)
	}
	if !q.Until.IsZero() {
		conds = append(conds, "timestamp <= ?")
		args = append(args, q.Until)
	}

	query := `SELECT id, timestamp, action, actor_id, actor_role, target_type, target_id, source_ip, detail, metadata
		FROM audit_events`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY timestamp DESC"
	if q.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, q.Limit)
	}
	if q.Offset > 0 {
		query += " OFFSET ?"
		args = append(args, q.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var (
			e          Event
			action     string
			targetType sql.NullString
			targetID   sql.NullInt64
			sourceIP   sql.NullString
			detail     sql.NullString
			metadata   sql.NullString
		)
		if err := rows.Scan(&e.ID, &e.Timestamp, &action, &e.ActorID, &e.ActorRole,
			&targetType, &targetID, &sourceIP, &detail, &metadata); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		e.Action = Action(action)
		e.TargetType = targetType.String
		e.TargetID = targetID.Int64
		e.SourceIP = sourceIP.String
		e.Detail = detail.String
		if metadata.Valid && metadata.String != "" {
			if err := json.Unmarshal([]byte(metadata.String), &e.Metadata); err != nil {
				return nil, fmt.Errorf("unmarshal audit metadata: %w", err)
			}
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit events: %w", err)
	}
	return events, nil
}

func (s *DuckDBStore) Prune(ctx context.Context, olderThan time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM audit_events WHERE timestamp < ?`, olderThan)
	if err != nil {
		return 0, fmt.Errorf("prune audit events: %w", err)
	}
	return res.RowsAffected()
}

func nullString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func nullInt64(n int64) interface{} {
	if n == 0 {
		return nil
	}
	return n
}
