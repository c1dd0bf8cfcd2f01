// Servonix - Bus Complaint Management and Real-Time Notifications
// Copyright 2026 Servonix Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later

package database

import (
	"database/sql"
	"errors"
	"strings"
)

// Sentinel errors returned by data access methods. Callers branch on these
// with errors.Is to map storage failures to API error codes.
var (
	// ErrNotFound indicates the requested row does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrDuplicate indicates a unique constraint was violated.
	ErrDuplicate = errors.New("record already exists")

	// ErrConflict indicates the requested change violates current state,
	// e.g. an invalid complaint status transition.
	ErrConflict = errors.New("conflicting state")
)

// translateError maps driver errors to the package sentinels.
func translateError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	msg := err.Error()
	if strings.Contains(msg, "Duplicate key") || strings.Contains(msg, "UNIQUE constraint") ||
		strings.Contains(msg, "unique constraint") {
		return ErrDuplicate
	}
	return err
}
