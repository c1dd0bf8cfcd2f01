// Servonix - Bus Complaint Management and Real-Time Notifications
// Copyright 2026 Servonix Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later

package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"fmt"
	"math/big"
)

// otpDigits is the length of generated one-time passcodes.
const otpDigits = 6

// generateOTPCode returns a uniformly random 6-digit code, zero-padded.
func generateOTPCode() (string, error) {
	max := big.NewInt(1000000)
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", fmt.Errorf("generate otp: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

// hashOTPCode returns the SHA-256 digest of a code. Codes are short-lived
// and high-entropy enough within their TTL that a keyed hash is not needed.
func hashOTPCode(code string) []byte {
	sum := sha256.Sum256([]byte(code))
	return sum[:]
}

// otpHashEqual compares a stored hash with the hash of a submitted code in
// constant time.
func otpHashEqual(storedHash []byte, code string) bool {
	submitted := hashOTPCode(code)
	return subtle.ConstantTimeCompare(storedHash, submitted) == 1
}
