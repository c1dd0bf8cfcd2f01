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

// CreateMessage persists a direct message.
func (db *DB) CreateMessage(ctx context.Context, m *models.Message) (err error) {
	start := time.Now()
	defer func() { observe("insert", "messages", start, err) }()

	row := db.conn.QueryRowContext(ctx, `
		INSERT INTO messages (sender_id, recipient_id, complaint_id, body)
		VALUES (?, ?, ?, ?)
		RETURNING id, created_at`,
		m.SenderID, m.RecipientID, m.ComplaintID, m.Body)
	if err = translateError(row.Scan(&m.ID, &m.CreatedAt)); err != nil {
		return fmt.Errorf("create message: %w", err)
	}
	return nil
}

// ListConversation returns messages between two users, oldest first, so the
// client renders them top to bottom.
func (db *DB) ListConversation(ctx context.Context, userA, userB int64, limit int) (out []*models.Message, err error) {
	start := time.Now()
	defer func() { observe("select", "messages", start, err) }()

	query := `
		SELECT m.id, m.sender_id, m.recipient_id, m.complaint_id, m.body,
		       m.is_read, m.read_at, m.created_at, u.name
		FROM messages m JOIN users u ON u.id = m.sender_id
		WHERE (m.sender_id = ? AND m.recipient_id = ?)
		   OR (m.sender_id = ? AND m.recipient_id = ?)
		ORDER BY m.created_at, m.id`
	args := []interface{}{userA, userB, userB, userA}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list conversation: %w", err)
	}
	defer closeQuietly(rows)

	for rows.Next() {
		m := &models.Message{}
		var complaintID sql.NullInt64
		var readAt sql.NullTime
		if err = rows.Scan(&m.ID, &m.SenderID, &m.RecipientID, &complaintID,
			&m.Body, &m.IsRead, &readAt, &m.CreatedAt, &m.SenderName); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		if complaintID.Valid {
			m.ComplaintID = &complaintID.Int64
		}
		if readAt.Valid {
			m.ReadAt = &readAt.Time
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// ListComplaintThread returns the messages attached to one complaint,
// oldest first. Access control is the caller's problem.
func (db *DB) ListComplaintThread(ctx context.Context, complaintID int64) (out []*models.Message, err error) {
	start := time.Now()
	defer func() { observe("select", "messages", start, err) }()

	rows, err := db.conn.QueryContext(ctx, `
		SELECT m.id, m.sender_id, m.recipient_id, m.complaint_id, m.body,
		       m.is_read, m.read_at, m.created_at, u.name
		FROM messages m JOIN users u ON u.id = m.sender_id
		WHERE m.complaint_id = ?
		ORDER BY m.created_at, m.id`, complaintID)
	if err != nil {
		return nil, fmt.Errorf("list complaint thread: %w", err)
	}
	defer closeQuietly(rows)

	for rows.Next() {
		m := &models.Message{}
		var cID sql.NullInt64
		var readAt sql.NullTime
		if err = rows.Scan(&m.ID, &m.SenderID, &m.RecipientID, &cID,
			&m.Body, &m.IsRead, &readAt, &m.CreatedAt, &m.SenderName); err != nil {
			return nil, fmt.Errorf("scan thread message: %w", err)
		}
		if cID.Valid {
			m.ComplaintID = &cID.Int64
		}
		if readAt.Valid {
			m.ReadAt = &readAt.Time
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// CountUnreadMessages returns how many unread messages await the user.
func (db *DB) CountUnreadMessages(ctx context.Context, userID int64) (n int64, err error) {
	start := time.Now()
	defer func() { observe("select", "messages", start, err) }()

	row := db.conn.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM messages WHERE recipient_id = ? AND NOT is_read`, userID)
	if err = row.Scan(&n); err != nil {
		return 0, fmt.Errorf("count unread messages: %w", err)
	}
	return n, nil
}

// MarkConversationRead marks all messages from sender to recipient as read.
func (db *DB) MarkConversationRead(ctx context.Context, recipientID, senderID int64) (n int64, err error) {
	start := time.Now()
	defer func() { observe("update", "messages", start, err) }()

	res, err := db.conn.ExecContext(ctx, `
		UPDATE messages SET is_read = TRUE, read_at = CURRENT_TIMESTAMP
		WHERE recipient_id = ? AND sender_id = ? AND NOT is_read`,
		recipientID, senderID)
	if err != nil {
		return 0, fmt.Errorf("mark conversation read: %w", err)
	}
	return res.RowsAffected()
}

// CreateFeedback stores the post-resolution rating. One feedback per
// complaint; a second insert returns ErrDuplicate.
func (db *DB) CreateFeedback(ctx context.Context, f *models.Feedback) (err error) {
	start := time.Now()
	defer func() { observe("insert", "feedback", start, err) }()

	row := db.conn.QueryRowContext(ctx, `
		INSERT INTO feedback (complaint_id, user_id, rating, comment)
		VALUES (?, ?, ?, ?)
		RETURNING id, created_at`,
		f.ComplaintID, f.UserID, f.Rating, nullStr(f.Comment))
	if err = translateError(row.Scan(&f.ID, &f.CreatedAt)); err != nil {
		return fmt.Errorf("create feedback: %w", err)
	}
	f.Status = models.FeedbackPending
	return nil
}

// GetFeedbackForComplaint returns the feedback left on a complaint.
func (db *DB) GetFeedbackForComplaint(ctx context.Context, complaintID int64) (f *models.Feedback, err error) {
	start := time.Now()
	defer func() { observe("select", "feedback", start, err) }()

	f = &models.Feedback{}
	var comment, response sql.NullString
	var respondedAt sql.NullTime
	row := db.conn.QueryRowContext(ctx, `
		SELECT id, complaint_id, user_id, rating, comment, status, admin_response, responded_at, created_at
		FROM feedback WHERE complaint_id = ?`, complaintID)
	err = row.Scan(&f.ID, &f.ComplaintID, &f.UserID, &f.Rating, &comment,
		&f.Status, &response, &respondedAt, &f.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("get feedback: %w", translateError(err))
	}
	f.Comment = comment.String
	f.AdminResponse = response.String
	if respondedAt.Valid {
		f.RespondedAt = &respondedAt.Time
	}
	return f, nil
}

// RespondFeedback records the admin's response and moves the feedback to
// reviewed. Responding twice overwrites the previous response.
func (db *DB) RespondFeedback(ctx context.Context, complaintID int64, response string) (err error) {
	start := time.Now()
	defer func() { observe("update", "feedback", start, err) }()

	res, err := db.conn.ExecContext(ctx, `
		UPDATE feedback
		SET status = ?, admin_response = ?, responded_at = CURRENT_TIMESTAMP
		WHERE complaint_id = ?`,
		models.FeedbackReviewed, response, complaintID)
	if err != nil {
		return fmt.Errorf("respond feedback: %w", err)
	}
	return checkAffected(res)
}

// AverageFeedbackForAdmin returns the mean rating across feedback on
// complaints the admin resolved, and the sample size.
func (db *DB) AverageFeedbackForAdmin(ctx context.Context, adminID int64) (avg float64, count int64, err error) {
	start := time.Now()
	defer func() { observe("select", "feedback", start, err) }()

	row := db.conn.QueryRowContext(ctx, `
		SELECT COALESCE(AVG(f.rating), 0), COUNT(*)
		FROM feedback f
		JOIN complaints c ON c.id = f.complaint_id
		WHERE c.assigned_to = ?`, adminID)
	err = row.Scan(&avg, &count)
	return avg, count, err
}
