// Servonix - Bus Complaint Management and Real-Time Notifications
// Copyright 2026 Servonix Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"errors"
	"net/http"

	"github.com/servonix/servonix/internal/auth"
	"github.com/servonix/servonix/internal/database"
)

// Register starts OTP-verified registration. The account is not created
// until the emailed code is verified; abandoned signups never touch the
// users table.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	var req RegisterRequest
	if !decodeBody(rw, r, &req) {
		return
	}

	err := h.auth.Register(r.Context(), req.Name, req.Email, req.Password, req.Phone)
	switch {
	case errors.Is(err, auth.ErrEmailTaken):
		rw.Conflict("an account with this email already exists")
	case errors.Is(err, auth.ErrTooManyRequests):
		rw.TooManyRequests("too many verification codes requested, try again later")
	case err != nil:
		rw.InternalError("registration failed")
	default:
		rw.Success(map[string]string{"status": "verification_sent"})
	}
}

// VerifyRegistration completes registration with the emailed code and
// returns the first session token.
func (h *Handler) VerifyRegistration(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	var req VerifyRequest
	if !decodeBody(rw, r, &req) {
		return
	}

	user, token, err := h.auth.VerifyRegistration(r.Context(), req.Email, req.Code)
	switch {
	case errors.Is(err, auth.ErrOTPExpired):
		rw.Error(http.StatusGone, ErrCodeNotFound, "verification code expired, request a new one")
	case errors.Is(err, auth.ErrOTPInvalid):
		rw.Unauthorized("incorrect verification code")
	case err != nil:
		rw.InternalError("verification failed")
	default:
		rw.Created(map[string]interface{}{"user": user, "token": token})
	}
}

// ResendCode issues a fresh OTP for a pending registration.
func (h *Handler) ResendCode(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	var req ResendCodeRequest
	if !decodeBody(rw, r, &req) {
		return
	}

	err := h.auth.ResendCode(r.Context(), req.Email)
	switch {
	case errors.Is(err, auth.ErrTooManyRequests):
		rw.TooManyRequests("too many verification codes requested, try again later")
	case err != nil:
		// A non-existent pending registration gets the same answer as a
		// successful resend so the endpoint cannot be used to probe emails.
		rw.Success(map[string]string{"status": "verification_sent"})
	default:
		rw.Success(map[string]string{"status": "verification_sent"})
	}
}

// ForgotPassword issues a password reset code. Unknown and disabled
// accounts get the same answer as a successful send so the endpoint
// cannot probe registered emails.
func (h *Handler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	var req ForgotPasswordRequest
	if !decodeBody(rw, r, &req) {
		return
	}

	if err := h.auth.RequestPasswordReset(r.Context(), req.Email); err != nil {
		if errors.Is(err, auth.ErrTooManyRequests) {
			rw.TooManyRequests("too many reset codes requested, try again later")
			return
		}
	}
	rw.Success(map[string]string{"status": "reset_sent"})
}

// ResetPassword spends the reset code and sets the new password.
func (h *Handler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	var req ResetPasswordRequest
	if !decodeBody(rw, r, &req) {
		return
	}

	err := h.auth.ResetPassword(r.Context(), req.Email, req.Code, req.Password)
	switch {
	case errors.Is(err, auth.ErrOTPExpired):
		rw.Error(http.StatusGone, ErrCodeNotFound, "reset code expired, request a new one")
	case errors.Is(err, auth.ErrOTPInvalid):
		rw.Unauthorized("incorrect reset code")
	case err != nil:
		rw.InternalError("password reset failed")
	default:
		rw.Success(map[string]string{"status": "password_reset"})
	}
}

// Login authenticates and returns a session token.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	var req LoginRequest
	if !decodeBody(rw, r, &req) {
		return
	}

	user, token, err := h.auth.Login(r.Context(), req.Email, req.Password)
	switch {
	case errors.Is(err, auth.ErrInvalidCredentials):
		rw.Unauthorized("invalid email or password")
	case errors.Is(err, auth.ErrAccountDisabled):
		rw.Forbidden("account is disabled")
	case errors.Is(err, auth.ErrLockedOut):
		rw.TooManyRequests("too many failed logins, try again later")
	case err != nil:
		rw.InternalError("login failed")
	default:
		rw.Success(map[string]interface{}{"user": user, "token": token})
	}
}

// Me returns the authenticated user's profile.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	userID, ok := requireUser(rw, r)
	if !ok {
		return
	}

	user, err := h.db.GetUserByID(r.Context(), userID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			rw.NotFound("user not found")
			return
		}
		rw.DatabaseError(err)
		return
	}
	rw.Success(user)
}
