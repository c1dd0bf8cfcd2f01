// Servonix - Bus Complaint Management and Real-Time Notifications
// Copyright 2026 Servonix Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later

package authstore

import (
	"fmt"
	"time"

	"github.com/goccy/go-json"
)

// PendingRegistration holds a signup awaiting email verification. The
// account row is only created once the OTP is verified, so abandoned
// signups expire here instead of littering the users table.
type PendingRegistration struct {
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"password_hash"`
	Phone        string    `json:"phone,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// PutPending stores a pending registration keyed by email.
func (s *Store) PutPending(reg *PendingRegistration, ttl time.Duration) error {
	data, err := json.Marshal(reg)
	if err != nil {
		return fmt.Errorf("marshal pending registration: %w", err)
	}
	return s.setWithTTL(pendingKeyPrefix+reg.Email, data, ttl)
}

// GetPending returns the pending registration for an email, or ErrNotFound.
func (s *Store) GetPending(email string) (*PendingRegistration, error) {
	data, err := s.get(pendingKeyPrefix + email)
	if err != nil {
		return nil, err
	}
	reg := &PendingRegistration{}
	if err := json.Unmarshal(data, reg); err != nil {
		return nil, fmt.Errorf("unmarshal pending registration: %w", err)
	}
	return reg, nil
}

// DeletePending removes a pending registration once the account is created.
func (s *Store) DeletePending(email string) error {
	return s.delete(pendingKeyPrefix + email)
}
