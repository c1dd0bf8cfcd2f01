// Servonix - Bus Complaint Management and Real-Time Notifications
// Copyright 2026 Servonix Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later

package authstore

import (
	"fmt"
	"time"

	"github.com/goccy/go-json"
)

// OTPRecord is a stored one-time passcode challenge. Only the SHA-256 hash
// of the code is kept; the plaintext goes out by email and is never stored.
type OTPRecord struct {
	CodeHash  []byte    `json:"code_hash"`
	Purpose   string    `json:"purpose"`  // what the code unlocks: registration or password reset
	Attempts  int       `json:"attempts"` // failed verification attempts so far
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// PutOTP stores (or replaces) the active OTP challenge for an email.
func (s *Store) PutOTP(email string, rec *OTPRecord) error {
	ttl := time.Until(rec.ExpiresAt)
	if ttl <= 0 {
		return fmt.Errorf("otp record already expired")
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal otp record: %w", err)
	}
	return s.setWithTTL(otpKeyPrefix+email, data, ttl)
}

// GetOTP returns the active OTP challenge for an email, or ErrNotFound.
func (s *Store) GetOTP(email string) (*OTPRecord, error) {
	data, err := s.get(otpKeyPrefix + email)
	if err != nil {
		return nil, err
	}
	rec := &OTPRecord{}
	if err := json.Unmarshal(data, rec); err != nil {
		return nil, fmt.Errorf("unmarshal otp record: %w", err)
	}
	return rec, nil
}

// DeleteOTP burns the challenge, after successful verification or when the
// attempt limit is hit.
func (s *Store) DeleteOTP(email string) error {
	return s.delete(otpKeyPrefix + email)
}

// IncrementOTPSends bumps the per-email send counter for rate limiting and
// returns how many sends have happened in the current window.
func (s *Store) IncrementOTPSends(email string, window time.Duration) (int64, error) {
	return s.IncrementCounter("otp_send:"+email, window)
}
