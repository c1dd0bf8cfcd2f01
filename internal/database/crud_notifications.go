// Servonix - Bus Complaint Management and Real-Time Notifications
// Copyright 2026 Servonix Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later

package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/servonix/servonix/internal/metrics"
	"github.com/servonix/servonix/internal/models"
)

// CreateNotification persists a notification and returns it with the
// generated ID.
func (db *DB) CreateNotification(ctx context.Context, n *models.Notification) (err error) {
	start := time.Now()
	defer func() { observe("insert", "notifications", start, err) }()

	row := db.conn.QueryRowContext(ctx, `
		INSERT INTO notifications (user_id, type, title, message, related_id)
		VALUES (?, ?, ?, ?, ?)
		RETURNING id, created_at`,
		n.UserID, n.Type, n.Title, n.Message, n.RelatedID)
	if err = translateError(row.Scan(&n.ID, &n.CreatedAt)); err != nil {
		return fmt.Errorf("create notification: %w", err)
	}
	metrics.NotificationsCreated.WithLabelValues(n.Type).Inc()
	return nil
}

// ListNotifications returns a user's notifications, newest first.
// unreadOnly narrows to unread ones.
func (db *DB) ListNotifications(ctx context.Context, userID int64, unreadOnly bool, limit int) (out []*models.Notification, err error) {
	start := time.Now()
	defer func() { observe("select", "notifications", start, err) }()

	query := `
		SELECT id, user_id, type, title, message, related_id, is_read, read_at, created_at
		FROM notifications WHERE user_id = ?`
	if unreadOnly {
		query += ` AND NOT is_read`
	}
	query += ` ORDER BY created_at DESC, id DESC`
	args := []interface{}{userID}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer closeQuietly(rows)

	for rows.Next() {
		n := &models.Notification{}
		var relatedID sql.NullInt64
		var readAt sql.NullTime
		if err = rows.Scan(&n.ID, &n.UserID, &n.Type, &n.Title, &n.Message,
			&relatedID, &n.IsRead, &readAt, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		if relatedID.Valid {
			n.RelatedID = &relatedID.Int64
		}
		if readAt.Valid {
			n.ReadAt = &readAt.Time
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// CountUnreadNotifications returns the user's unread notification count.
func (db *DB) CountUnreadNotifications(ctx context.Context, userID int64) (n int64, err error) {
	start := time.Now()
	defer func() { observe("select", "notifications", start, err) }()

	row := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM notifications WHERE user_id = ? AND NOT is_read`, userID)
	err = row.Scan(&n)
	return n, err
}

// MarkNotificationRead marks one notification as read. Only the owner's
// rows can be touched.
func (db *DB) MarkNotificationRead(ctx context.Context, userID, notificationID int64) (err error) {
	start := time.Now()
	defer func() { observe("update", "notifications", start, err) }()

	res, err := db.conn.ExecContext(ctx, `
		UPDATE notifications SET is_read = TRUE, read_at = CURRENT_TIMESTAMP
		WHERE id = ? AND user_id = ? AND NOT is_read`,
		notificationID, userID)
	if err != nil {
		return fmt.Errorf("mark read: %w", err)
	}
	return checkAffected(res)
}

// DeleteNotification removes one notification. Only the owner's rows can
// be touched; an unknown or foreign ID returns ErrNotFound.
func (db *DB) DeleteNotification(ctx context.Context, userID, notificationID int64) (err error) {
	start := time.Now()
	defer func() { observe("delete", "notifications", start, err) }()

	res, err := db.conn.ExecContext(ctx,
		`DELETE FROM notifications WHERE id = ? AND user_id = ?`,
		notificationID, userID)
	if err != nil {
		return fmt.Errorf("delete notification: %w", err)
	}
	return checkAffected(res)
}

// PruneNotifications deletes read notifications older than the cutoff.
// Unread rows are kept regardless of age.
func (db *DB) PruneNotifications(ctx context.Context, olderThan time.Duration) (n int64, err error) {
	start := time.Now()
	defer func() { observe("delete", "notifications", start, err) }()

	cutoff := time.Now().Add(-olderThan)
	res, err := db.conn.ExecContext(ctx,
		`DELETE FROM notifications WHERE is_read AND created_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("prune notifications: %w", err)
	}
	return res.RowsAffected()
}

// MarkAllNotificationsRead marks every unread notification for the user.
// Returns the number of rows updated; zero is not an error.
func (db *DB) MarkAllNotificationsRead(ctx context.Context, userID int64) (n int64, err error) {
	start := time.Now()
	defer func() { observe("update", "notifications", start, err) }()

	res, err := db.conn.ExecContext(ctx, `
		UPDATE notifications SET is_read = TRUE, read_at = CURRENT_TIMESTAMP
		WHERE user_id = ? AND NOT is_read`, userID)
	if err != nil {
		return 0, fmt.Errorf("mark all read: %w", err)
	}
	return res.RowsAffected()
}
