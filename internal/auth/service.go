// Servonix - Bus Complaint Management and Real-Time Notifications
// Copyright 2026 Servonix Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later

package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/servonix/servonix/internal/authstore"
	"github.com/servonix/servonix/internal/config"
	"github.com/servonix/servonix/internal/database"
	"github.com/servonix/servonix/internal/logging"
	"github.com/servonix/servonix/internal/metrics"
	"github.com/servonix/servonix/internal/models"
)

// Errors returned by the authentication service.
var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrAccountDisabled    = errors.New("account is disabled")
	ErrEmailTaken         = errors.New("email already registered")
	ErrOTPInvalid         = errors.New("invalid verification code")
	ErrOTPExpired         = errors.New("verification code expired or not requested")
	ErrTooManyRequests    = errors.New("too many verification codes requested")
	ErrLockedOut          = errors.New("too many failed logins, try again later")
)

// OTP purposes. A code issued for one purpose cannot be spent on another.
const (
	otpPurposeRegister = "register"
	otpPurposeReset    = "password_reset"
)

// UserStore is the slice of the database layer the service needs.
type UserStore interface {
	CreateUser(ctx context.Context, u *models.User) error
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	TouchLastLogin(ctx context.Context, userID int64) error
	UpdateUserPassword(ctx context.Context, userID int64, passwordHash string) error
}

// OTPMailer delivers verification codes. The mail package implements it;
// tests substitute a recorder.
type OTPMailer interface {
	SendOTP(ctx context.Context, email, code string) error
}

// Service orchestrates registration, email verification, and login.
type Service struct {
	users UserStore
	store *authstore.Store
	mail  OTPMailer
	jwt   *JWTManager
	cfg   config.SecurityConfig
}

// NewService creates the authentication service.
func NewService(users UserStore, store *authstore.Store, mail OTPMailer, jwt *JWTManager, cfg config.SecurityConfig) *Service {
	return &Service{users: users, store: store, mail: mail, jwt: jwt, cfg: cfg}
}

// Register starts a signup. The account is not created yet: the registration
// parks in the auth store and a verification code goes out by email.
// Registering an email that already has an account fails with ErrEmailTaken.
func (s *Service) Register(ctx context.Context, name, email, password, phone string) error {
	email = normalizeEmail(email)

	if _, err := s.users.GetUserByEmail(ctx, email); err == nil {
		return ErrEmailTaken
	} else if !errors.Is(err, database.ErrNotFound) {
		return fmt.Errorf("lookup email: %w", err)
	}

	hash, err := HashPassword(password, s.cfg.BcryptCost)
	if err != nil {
		return err
	}

	reg := &authstore.PendingRegistration{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Phone:        phone,
		CreatedAt:    time.Now(),
	}
	// Pending registrations outlive a single code so the user can request
	// a resend without re-entering the form.
	if err := s.store.PutPending(reg, s.cfg.OTP.RateWindow); err != nil {
		return fmt.Errorf("store pending registration: %w", err)
	}

	return s.issueOTP(ctx, email, otpPurposeRegister)
}

// ResendCode issues a fresh verification code for a pending registration.
func (s *Service) ResendCode(ctx context.Context, email string) error {
	email = normalizeEmail(email)
	if _, err := s.store.GetPending(email); err != nil {
		if errors.Is(err, authstore.ErrNotFound) {
			return ErrOTPExpired
		}
		return err
	}
	return s.issueOTP(ctx, email, otpPurposeRegister)
}

// issueOTP generates, stores, and emails a verification code, enforcing the
// per-email send limit.
func (s *Service) issueOTP(ctx context.Context, email, purpose string) error {
	sends, err := s.store.IncrementOTPSends(email, s.cfg.OTP.RateWindow)
	if err != nil {
		return fmt.Errorf("otp rate counter: %w", err)
	}
	if sends > int64(s.cfg.OTP.MaxPerEmail) {
		metrics.RecordAuthAttempt("otp", false)
		return ErrTooManyRequests
	}

	code, err := generateOTPCode()
	if err != nil {
		return err
	}

	now := time.Now()
	rec := &authstore.OTPRecord{
		CodeHash:  hashOTPCode(code),
		Purpose:   purpose,
		IssuedAt:  now,
		ExpiresAt: now.Add(s.cfg.OTP.TTL),
	}
	if err := s.store.PutOTP(email, rec); err != nil {
		return fmt.Errorf("store otp: %w", err)
	}

	if err := s.mail.SendOTP(ctx, email, code); err != nil {
		// The code stays valid; the user can ask for a resend.
		logging.Ctx(ctx).Error().Err(err).Msg("otp delivery failed")
		return fmt.Errorf("send verification code: %w", err)
	}

	logging.Ctx(ctx).Info().Str("email", email).Msg("verification code issued")
	return nil
}

// checkOTP verifies a submitted code against the active challenge for an
// email, counting failed attempts and burning the code at the limit.
func (s *Service) checkOTP(email, code, purpose string) error {
	rec, err := s.store.GetOTP(email)
	if err != nil {
		if errors.Is(err, authstore.ErrNotFound) {
			metrics.RecordAuthAttempt("otp", false)
			return ErrOTPExpired
		}
		return err
	}
	if rec.Purpose != purpose {
		metrics.RecordAuthAttempt("otp", false)
		return ErrOTPExpired
	}

	if !otpHashEqual(rec.CodeHash, code) {
		rec.Attempts++
		if rec.Attempts >= s.cfg.OTP.MaxVerify {
			// Burn the code after too many wrong guesses.
			_ = s.store.DeleteOTP(email)
		} else {
			_ = s.store.PutOTP(email, rec)
		}
		metrics.RecordAuthAttempt("otp", false)
		return ErrOTPInvalid
	}
	return nil
}

// VerifyRegistration checks the submitted code and, on success, creates the
// account and returns the user with a session token.
func (s *Service) VerifyRegistration(ctx context.Context, email, code string) (*models.User, string, error) {
	email = normalizeEmail(email)

	if err := s.checkOTP(email, code, otpPurposeRegister); err != nil {
		return nil, "", err
	}

	reg, err := s.store.GetPending(email)
	if err != nil {
		if errors.Is(err, authstore.ErrNotFound) {
			return nil, "", ErrOTPExpired
		}
		return nil, "", err
	}

	user := &models.User{
		Name:         reg.Name,
		Email:        reg.Email,
		PasswordHash: reg.PasswordHash,
		Phone:        reg.Phone,
		Role:         s.cfg.Casbin.DefaultRole,
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, database.ErrDuplicate) {
			return nil, "", ErrEmailTaken
		}
		return nil, "", fmt.Errorf("create account: %w", err)
	}

	_ = s.store.DeleteOTP(email)
	_ = s.store.DeletePending(email)

	token, err := s.jwt.GenerateToken(user.ID, user.Email, user.Role)
	if err != nil {
		return nil, "", err
	}

	metrics.RecordAuthAttempt("otp", true)
	logging.Ctx(ctx).Info().Int64("user_id", user.ID).Msg("account verified and created")
	return user, token, nil
}

// RequestPasswordReset issues a reset code for an existing account. An
// unknown email fails with database.ErrNotFound; the HTTP layer masks
// that so the endpoint cannot be used to probe registered addresses.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) error {
	email = normalizeEmail(email)

	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("lookup email: %w", err)
	}
	if !user.IsActive {
		return ErrAccountDisabled
	}

	return s.issueOTP(ctx, email, otpPurposeReset)
}

// ResetPassword spends a reset code and replaces the account password.
// Existing sessions stay valid until their tokens expire.
func (s *Service) ResetPassword(ctx context.Context, email, code, newPassword string) error {
	email = normalizeEmail(email)

	if err := s.checkOTP(email, code, otpPurposeReset); err != nil {
		return err
	}

	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("lookup email: %w", err)
	}

	hash, err := HashPassword(newPassword, s.cfg.BcryptCost)
	if err != nil {
		return err
	}
	if err := s.users.UpdateUserPassword(ctx, user.ID, hash); err != nil {
		return fmt.Errorf("update password: %w", err)
	}

	_ = s.store.DeleteOTP(email)
	metrics.RecordAuthAttempt("otp", true)
	logging.Ctx(ctx).Info().Int64("user_id", user.ID).Msg("password reset completed")
	return nil
}

// Login authenticates with email and password and returns the user with a
// session token. Disabled accounts cannot log in.
func (s *Service) Login(ctx context.Context, email, password string) (*models.User, string, error) {
	email = normalizeEmail(email)

	if err := s.checkLockout(email); err != nil {
		metrics.RecordAuthAttempt("password", false)
		return nil, "", err
	}

	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			// Equalize timing between unknown email and wrong password.
			CheckPassword("$2a$12$AAAAAAAAAAAAAAAAAAAAAOpILJh3Bs9zeqqGbanwyAaFgT7fYOv1y", password)
			metrics.RecordAuthAttempt("password", false)
			return nil, "", s.recordLoginFailure(ctx, email)
		}
		return nil, "", err
	}

	if !CheckPassword(user.PasswordHash, password) {
		metrics.RecordAuthAttempt("password", false)
		return nil, "", s.recordLoginFailure(ctx, email)
	}
	if !user.IsActive {
		metrics.RecordAuthAttempt("password", false)
		return nil, "", ErrAccountDisabled
	}

	if err := s.store.ClearLoginFailures(email); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Msg("failed to clear login failure counter")
	}
	if err := s.users.TouchLastLogin(ctx, user.ID); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Msg("failed to stamp last login")
	}

	token, err := s.jwt.GenerateToken(user.ID, user.Email, user.Role)
	if err != nil {
		return nil, "", err
	}

	metrics.RecordAuthAttempt("password", true)
	return user, token, nil
}

// checkLockout rejects logins for an email that has exhausted its failure
// budget. A zero MaxFailures disables the lockout entirely.
func (s *Service) checkLockout(email string) error {
	if s.cfg.Lockout.MaxFailures <= 0 {
		return nil
	}
	count, err := s.store.LoginFailures(email)
	if err != nil {
		return err
	}
	if count >= int64(s.cfg.Lockout.MaxFailures) {
		return ErrLockedOut
	}
	return nil
}

// recordLoginFailure bumps the per-email counter and picks the error the
// caller should surface: ErrLockedOut once the budget is spent, plain
// ErrInvalidCredentials before that. Unknown emails count too, so the
// lockout response does not reveal which addresses are registered.
func (s *Service) recordLoginFailure(ctx context.Context, email string) error {
	if s.cfg.Lockout.MaxFailures <= 0 {
		return ErrInvalidCredentials
	}
	count, err := s.store.IncrementLoginFailures(email, s.cfg.Lockout.Window)
	if err != nil {
		logging.Ctx(ctx).Warn().Err(err).Msg("failed to record login failure")
		return ErrInvalidCredentials
	}
	if count >= int64(s.cfg.Lockout.MaxFailures) {
		return ErrLockedOut
	}
	return ErrInvalidCredentials
}

// TokenManager exposes the JWT manager for middleware and the realtime
// registration flow.
func (s *Service) TokenManager() *JWTManager {
	return s.jwt
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
