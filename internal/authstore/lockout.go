// Servonix - Bus Complaint Management and Real-Time Notifications
// Copyright 2026 Servonix Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later

package authstore

import (
	"errors"
	"time"
)

// IncrementLoginFailures bumps the per-email failed login counter and
// returns how many failures have happened in the current window.
func (s *Store) IncrementLoginFailures(email string, window time.Duration) (int64, error) {
	return s.IncrementCounter("login_fail:"+email, window)
}

// LoginFailures reports the current failed login count for an email.
// A missing or expired counter reads as zero.
func (s *Store) LoginFailures(email string) (int64, error) {
	val, err := s.get(counterKeyPrefix + "login_fail:" + email)
	if errors.Is(err, ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return decodeInt64(val), nil
}

// ClearLoginFailures resets the counter after a successful login.
func (s *Store) ClearLoginFailures(email string) error {
	return s.delete(counterKeyPrefix + "login_fail:" + email)
}
