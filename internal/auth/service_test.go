// Servonix - Bus Complaint Management and Real-Time Notifications
// Copyright 2026 Servonix Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later

package auth

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/servonix/servonix/internal/authstore"
	"github.com/servonix/servonix/internal/config"
	"github.com/servonix/servonix/internal/database"
	"github.com/servonix/servonix/internal/models"
)

// fakeUserStore is an in-memory UserStore.
type fakeUserStore struct {
	mu     sync.Mutex
	nextID int64
	users  map[string]*models.User
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{users: make(map[string]*models.User)}
}

func (f *fakeUserStore) CreateUser(_ context.Context, u *models.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.users[u.Email]; ok {
		return database.ErrDuplicate
	}
	f.nextID++
	u.ID = f.nextID
	u.IsActive = true
	u.CreatedAt = time.Now()
	cp := *u
	f.users[u.Email] = &cp
	return nil
}

func (f *fakeUserStore) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[email]
	if !ok {
		return nil, database.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUserStore) TouchLastLogin(_ context.Context, _ int64) error { return nil }

func (f *fakeUserStore) UpdateUserPassword(_ context.Context, userID int64, passwordHash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.ID == userID {
			u.PasswordHash = passwordHash
			return nil
		}
	}
	return database.ErrNotFound
}

// recordingMailer captures the last code sent per email.
type recordingMailer struct {
	mu    sync.Mutex
	codes map[string]string
	fail  bool
}

func newRecordingMailer() *recordingMailer {
	return &recordingMailer{codes: make(map[string]string)}
}

func (m *recordingMailer) SendOTP(_ context.Context, email, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return errors.New("smtp down")
	}
	m.codes[email] = code
	return nil
}

func (m *recordingMailer) lastCode(email string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.codes[email]
}

func newTestService(t *testing.T) (*Service, *fakeUserStore, *recordingMailer) {
	t.Helper()
	store, err := authstore.Open(config.AuthStoreConfig{InMemory: true})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = store.Close() })

	cfg := config.SecurityConfig{
		JWTSecret:  strings.Repeat("k", 32),
		TokenTTL:   time.Hour,
		BcryptCost: 10,
		Casbin:     config.CasbinConfig{DefaultRole: models.RoleUser},
		OTP: config.OTPConfig{
			TTL:         5 * time.Minute,
			MaxPerEmail: 3,
			RateWindow:  10 * time.Minute,
			MaxVerify:   3,
		},
		Lockout: config.LockoutConfig{
			MaxFailures: 3,
			Window:      time.Minute,
		},
	}
	jwt, err := NewJWTManager(&cfg)
	if err != nil {
		t.Fatal(err)
	}

	users := newFakeUserStore()
	mail := newRecordingMailer()
	return NewService(users, store, mail, jwt, cfg), users, mail
}

func TestRegisterAndVerify(t *testing.T) {
	svc, users, mail := newTestService(t)
	ctx := context.Background()

	if err := svc.Register(ctx, "Priya", "Priya@Example.com", "hunter2-long", ""); err != nil {
		t.Fatalf("Register error: %v", err)
	}

	code := mail.lastCode("priya@example.com")
	if len(code) != 6 {
		t.Fatalf("expected 6-digit code, got %q", code)
	}

	user, token, err := svc.VerifyRegistration(ctx, "priya@example.com", code)
	if err != nil {
		t.Fatalf("VerifyRegistration error: %v", err)
	}
	if user.Role != models.RoleUser || user.ID == 0 {
		t.Errorf("user = %+v", user)
	}
	if token == "" {
		t.Error("expected session token")
	}

	// Account exists with the normalized email.
	if _, err := users.GetUserByEmail(ctx, "priya@example.com"); err != nil {
		t.Errorf("account not created: %v", err)
	}

	// The code is burned after use.
	if _, _, err := svc.VerifyRegistration(ctx, "priya@example.com", code); !errors.Is(err, ErrOTPExpired) {
		t.Errorf("expected ErrOTPExpired on reuse, got %v", err)
	}
}

func TestRegisterExistingEmail(t *testing.T) {
	svc, users, _ := newTestService(t)
	ctx := context.Background()

	_ = users.CreateUser(ctx, &models.User{Name: "X", Email: "taken@example.com", PasswordHash: "h", Role: models.RoleUser})

	if err := svc.Register(ctx, "Y", "taken@example.com", "some-password", ""); !errors.Is(err, ErrEmailTaken) {
		t.Errorf("expected ErrEmailTaken, got %v", err)
	}
}

func TestVerifyWrongCode(t *testing.T) {
	svc, _, mail := newTestService(t)
	ctx := context.Background()

	if err := svc.Register(ctx, "A", "a@example.com", "some-password", ""); err != nil {
		t.Fatal(err)
	}

	if _, _, err := svc.VerifyRegistration(ctx, "a@example.com", "000000"); !errors.Is(err, ErrOTPInvalid) {
		t.Fatalf("expected ErrOTPInvalid, got %v", err)
	}

	// The right code still works inside the attempt limit.
	code := mail.lastCode("a@example.com")
	if _, _, err := svc.VerifyRegistration(ctx, "a@example.com", code); err != nil {
		t.Errorf("valid code after one miss: %v", err)
	}
}

func TestVerifyAttemptLimitBurnsCode(t *testing.T) {
	svc, _, mail := newTestService(t)
	ctx := context.Background()

	if err := svc.Register(ctx, "A", "burn@example.com", "some-password", ""); err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 3; i++ {
		_, _, err := svc.VerifyRegistration(ctx, "burn@example.com", "999999")
		if !errors.Is(err, ErrOTPInvalid) {
			t.Fatalf("attempt %d: expected ErrOTPInvalid, got %v", i, err)
		}
	}

	// Code is burned; even the correct one fails now.
	code := mail.lastCode("burn@example.com")
	if _, _, err := svc.VerifyRegistration(ctx, "burn@example.com", code); !errors.Is(err, ErrOTPExpired) {
		t.Errorf("expected ErrOTPExpired after burn, got %v", err)
	}
}

func TestResendRateLimit(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	// Register consumes send 1; two resends reach the limit of 3.
	if err := svc.Register(ctx, "A", "rl@example.com", "some-password", ""); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 2; i++ {
		if err := svc.ResendCode(ctx, "rl@example.com"); err != nil {
			t.Fatalf("resend %d error: %v", i, err)
		}
	}

	if err := svc.ResendCode(ctx, "rl@example.com"); !errors.Is(err, ErrTooManyRequests) {
		t.Errorf("expected ErrTooManyRequests, got %v", err)
	}
}

func TestPasswordReset(t *testing.T) {
	svc, _, mail := newTestService(t)
	ctx := context.Background()

	if err := svc.Register(ctx, "A", "reset@example.com", "original-pass", ""); err != nil {
		t.Fatal(err)
	}
	if _, _, err := svc.VerifyRegistration(ctx, "reset@example.com", mail.lastCode("reset@example.com")); err != nil {
		t.Fatal(err)
	}

	if err := svc.RequestPasswordReset(ctx, "Reset@Example.com"); err != nil {
		t.Fatalf("RequestPasswordReset error: %v", err)
	}
	code := mail.lastCode("reset@example.com")

	if err := svc.ResetPassword(ctx, "reset@example.com", code, "brand-new-pass"); err != nil {
		t.Fatalf("ResetPassword error: %v", err)
	}

	if _, _, err := svc.Login(ctx, "reset@example.com", "original-pass"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("old password still works: %v", err)
	}
	if _, _, err := svc.Login(ctx, "reset@example.com", "brand-new-pass"); err != nil {
		t.Errorf("new password rejected: %v", err)
	}

	// The code is single use.
	if err := svc.ResetPassword(ctx, "reset@example.com", code, "another-pass"); !errors.Is(err, ErrOTPExpired) {
		t.Errorf("expected ErrOTPExpired on reuse, got %v", err)
	}
}

func TestPasswordResetUnknownEmail(t *testing.T) {
	svc, _, _ := newTestService(t)

	err := svc.RequestPasswordReset(context.Background(), "ghost@example.com")
	if !errors.Is(err, database.ErrNotFound) {
		t.Errorf("expected wrapped ErrNotFound, got %v", err)
	}
}

func TestRegistrationCodeCannotResetPassword(t *testing.T) {
	svc, users, mail := newTestService(t)
	ctx := context.Background()

	_ = users.CreateUser(ctx, &models.User{Name: "B", Email: "mix@example.com", PasswordHash: "h", Role: models.RoleUser})

	// Issue a registration code for a different address, then try to spend
	// a registration-purpose code as a reset code for the existing account.
	if err := svc.RequestPasswordReset(ctx, "mix@example.com"); err != nil {
		t.Fatal(err)
	}
	if err := svc.Register(ctx, "C", "mix2@example.com", "some-password", ""); err != nil {
		t.Fatal(err)
	}
	regCode := mail.lastCode("mix2@example.com")

	if err := svc.ResetPassword(ctx, "mix2@example.com", regCode, "new-pass"); !errors.Is(err, ErrOTPExpired) {
		t.Errorf("registration code accepted for reset: %v", err)
	}
}

func TestLogin(t *testing.T) {
	svc, _, mail := newTestService(t)
	ctx := context.Background()

	if err := svc.Register(ctx, "A", "login@example.com", "correct-horse", ""); err != nil {
		t.Fatal(err)
	}
	if _, _, err := svc.VerifyRegistration(ctx, "login@example.com", mail.lastCode("login@example.com")); err != nil {
		t.Fatal(err)
	}

	user, token, err := svc.Login(ctx, "login@example.com", "correct-horse")
	if err != nil {
		t.Fatalf("Login error: %v", err)
	}
	if user.Email != "login@example.com" || token == "" {
		t.Errorf("user=%+v token=%q", user, token)
	}

	if _, _, err := svc.Login(ctx, "login@example.com", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, _, err := svc.Login(ctx, "ghost@example.com", "whatever"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("unknown email: expected ErrInvalidCredentials, got %v", err)
	}
}

func TestLoginLockout(t *testing.T) {
	svc, _, mail := newTestService(t)
	ctx := context.Background()

	if err := svc.Register(ctx, "B", "locked@example.com", "correct-horse", ""); err != nil {
		t.Fatal(err)
	}
	if _, _, err := svc.VerifyRegistration(ctx, "locked@example.com", mail.lastCode("locked@example.com")); err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 2; i++ {
		if _, _, err := svc.Login(ctx, "locked@example.com", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("failure %d: expected ErrInvalidCredentials, got %v", i+1, err)
		}
	}

	// A successful login resets the counter.
	if _, _, err := svc.Login(ctx, "locked@example.com", "correct-horse"); err != nil {
		t.Fatalf("login after reset: %v", err)
	}

	// Three fresh failures exhaust the budget; even the right password
	// is rejected until the window lapses.
	for i := 0; i < 2; i++ {
		if _, _, err := svc.Login(ctx, "locked@example.com", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("failure %d: expected ErrInvalidCredentials, got %v", i+1, err)
		}
	}
	if _, _, err := svc.Login(ctx, "locked@example.com", "wrong"); !errors.Is(err, ErrLockedOut) {
		t.Fatalf("expected ErrLockedOut on final failure, got %v", err)
	}
	if _, _, err := svc.Login(ctx, "locked@example.com", "correct-horse"); !errors.Is(err, ErrLockedOut) {
		t.Errorf("expected ErrLockedOut with correct password, got %v", err)
	}
}

func TestLoginLockoutCountsUnknownEmails(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, _, err := svc.Login(ctx, "nobody@example.com", "x"); !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("failure %d: expected ErrInvalidCredentials, got %v", i+1, err)
		}
	}
	if _, _, err := svc.Login(ctx, "nobody@example.com", "x"); !errors.Is(err, ErrLockedOut) {
		t.Errorf("expected ErrLockedOut, got %v", err)
	}
}
