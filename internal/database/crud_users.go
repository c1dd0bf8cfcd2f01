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

// CreateUser inserts a new account and returns it with the generated ID.
func (db *DB) CreateUser(ctx context.Context, u *models.User) (err error) {
	start := time.Now()
	defer func() { observe("insert", "users", start, err) }()

	row := db.conn.QueryRowContext(ctx, `
		INSERT INTO users (name, email, password_hash, role, phone, district_id)
		VALUES (?, ?, ?, ?, ?, ?)
		RETURNING id, created_at`,
		u.Name, u.Email, u.PasswordHash, u.Role, nullStr(u.Phone), u.DistrictID)
	if err = translateError(row.Scan(&u.ID, &u.CreatedAt)); err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	u.IsActive = true
	return nil
}

// GetUserByID returns the user with the given ID.
func (db *DB) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	return db.getUser(ctx, "id = ?", id)
}

// GetUserByEmail returns the user with the given email.
func (db *DB) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return db.getUser(ctx, "email = ?", email)
}

func (db *DB) getUser(ctx context.Context, where string, arg interface{}) (u *models.User, err error) {
	start := time.Now()
	defer func() { observe("select", "users", start, err) }()

	u = &models.User{}
	var phone, role sql.NullString
	var districtID sql.NullInt64
	var lastLogin sql.NullTime

	row := db.conn.QueryRowContext(ctx, `
		SELECT id, name, email, password_hash, role, phone, district_id,
		       is_active, created_at, last_login_at
		FROM users WHERE `+where, arg)
	err = row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &role, &phone,
		&districtID, &u.IsActive, &u.CreatedAt, &lastLogin)
	if err != nil {
		err = translateError(err)
		return nil, fmt.Errorf("get user: %w", err)
	}
	u.Role = role.String
	u.Phone = phone.String
	if districtID.Valid {
		u.DistrictID = &districtID.Int64
	}
	if lastLogin.Valid {
		u.LastLoginAt = &lastLogin.Time
	}
	return u, nil
}

// TouchLastLogin stamps the user's last successful login.
func (db *DB) TouchLastLogin(ctx context.Context, userID int64) (err error) {
	start := time.Now()
	defer func() { observe("update", "users", start, err) }()

	_, err = db.conn.ExecContext(ctx,
		`UPDATE users SET last_login_at = CURRENT_TIMESTAMP WHERE id = ?`, userID)
	return err
}

// UpdateUserRole changes a user's role. Only the head role may call this;
// authorization happens in the API layer.
func (db *DB) UpdateUserRole(ctx context.Context, userID int64, role string) (err error) {
	start := time.Now()
	defer func() { observe("update", "users", start, err) }()

	res, err := db.conn.ExecContext(ctx,
		`UPDATE users SET role = ? WHERE id = ?`, role, userID)
	if err != nil {
		return fmt.Errorf("update role: %w", err)
	}
	return checkAffected(res)
}

// UpdateUserPassword replaces the stored bcrypt hash.
func (db *DB) UpdateUserPassword(ctx context.Context, userID int64, passwordHash string) (err error) {
	start := time.Now()
	defer func() { observe("update", "users", start, err) }()

	res, err := db.conn.ExecContext(ctx,
		`UPDATE users SET password_hash = ? WHERE id = ?`, passwordHash, userID)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return checkAffected(res)
}

// SetUserActive enables or disables an account.
func (db *DB) SetUserActive(ctx context.Context, userID int64, active bool) (err error) {
	start := time.Now()
	defer func() { observe("update", "users", start, err) }()

	res, err := db.conn.ExecContext(ctx,
		`UPDATE users SET is_active = ? WHERE id = ?`, active, userID)
	if err != nil {
		return fmt.Errorf("set active: %w", err)
	}
	return checkAffected(res)
}

// ListUsersByRole returns all active users holding the given role.
func (db *DB) ListUsersByRole(ctx context.Context, role string) (users []*models.User, err error) {
	start := time.Now()
	defer func() { observe("select", "users", start, err) }()

	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, name, email, role, district_id, is_active, created_at
		FROM users WHERE role = ? AND is_active ORDER BY id`, role)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer closeQuietly(rows)

	for rows.Next() {
		u := &models.User{}
		var districtID sql.NullInt64
		if err = rows.Scan(&u.ID, &u.Name, &u.Email, &u.Role, &districtID,
			&u.IsActive, &u.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		if districtID.Valid {
			u.DistrictID = &districtID.Int64
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func nullStr(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func checkAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
