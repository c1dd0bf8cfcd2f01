// Servonix - Bus Complaint Management and Real-Time Notifications
// Copyright 2026 Servonix Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package mail delivers transactional email over SMTP. Sends are rate
// limited and guarded by a circuit breaker so a misbehaving relay cannot
// drag down registration.
package mail

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/smtp"
	"strings"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/servonix/servonix/internal/config"
	"github.com/servonix/servonix/internal/logging"
	"github.com/servonix/servonix/internal/metrics"
)

// Send kinds for metrics.
const (
	KindOTP          = "otp"
	KindNotification = "notification"
)

var (
	// ErrRateLimited indicates the outbound send rate cap was hit.
	ErrRateLimited = errors.New("mail: send rate limit exceeded")

	// ErrBreakerOpen indicates the SMTP breaker rejected the send.
	ErrBreakerOpen = errors.New("mail: circuit breaker open")
)

// Mailer sends email through a single SMTP relay.
type Mailer struct {
	cfg     config.MailConfig
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker[struct{}]
}

// NewMailer creates a mailer from configuration. When mail is disabled the
// mailer logs instead of sending, which keeps local development free of an
// SMTP dependency.
func NewMailer(cfg config.MailConfig) *Mailer {
	perMin := cfg.RatePerMin
	if perMin <= 0 {
		perMin = 60
	}

	settings := gobreaker.Settings{
		Name:    "smtp",
		Timeout: cfg.CoolDown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= uint32(cfg.MaxFailures)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			if to == gobreaker.StateOpen {
				metrics.MailBreakerState.Set(1)
			} else {
				metrics.MailBreakerState.Set(0)
			}
			logging.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("smtp circuit breaker state changed")
		},
	}

	return &Mailer{
		cfg:     cfg,
		limiter: rate.NewLimiter(rate.Limit(float64(perMin)/60.0), perMin),
		breaker: gobreaker.NewCircuitBreaker[struct{}](settings),
	}
}

// SendOTP delivers a registration verification code. Implements the auth
// service's mailer contract.
func (m *Mailer) SendOTP(ctx context.Context, email, code string) error {
	subject := "Your Servonix verification code"
	body := fmt.Sprintf(
		"Your verification code is %s.\r\n\r\nIt expires in a few minutes. If you did not request it, ignore this email.\r\n",
		code)
	return m.send(ctx, KindOTP, email, subject, body)
}

// Send delivers a plain-text notification email.
func (m *Mailer) Send(ctx context.Context, to, subject, body string) error {
	return m.send(ctx, KindNotification, to, subject, body)
}

func (m *Mailer) send(ctx context.Context, kind, to, subject, body string) error {
	if !m.cfg.Enabled {
		// Development mode: the code ends up in the logs instead.
		logging.Ctx(ctx).Info().
			Str("to", to).
			Str("subject", subject).
			Msg("mail disabled, skipping send")
		metrics.MailSendsTotal.WithLabelValues(kind, "sent").Inc()
		return nil
	}

	if !m.limiter.Allow() {
		metrics.MailSendsTotal.WithLabelValues(kind, "rejected").Inc()
		return ErrRateLimited
	}

	sendCtx, cancel := m.sendDeadline(ctx)
	defer cancel()

	msg := m.buildMessage(to, subject, body)
	_, err := m.breaker.Execute(func() (struct{}, error) {
		return struct{}{}, m.sendSMTP(sendCtx, to, msg)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			metrics.MailSendsTotal.WithLabelValues(kind, "rejected").Inc()
			return fmt.Errorf("%w: %v", ErrBreakerOpen, err)
		}
		metrics.MailSendsTotal.WithLabelValues(kind, "failed").Inc()
		return err
	}

	metrics.MailSendsTotal.WithLabelValues(kind, "sent").Inc()
	return nil
}

func (m *Mailer) buildMessage(to, subject, body string) string {
	var msg strings.Builder
	msg.WriteString(fmt.Sprintf("From: Servonix <%s>\r\n", m.cfg.From))
	msg.WriteString(fmt.Sprintf("To: %s\r\n", to))
	msg.WriteString(fmt.Sprintf("Subject: %s\r\n", subject))
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	msg.WriteString("\r\n")
	msg.WriteString(body)
	return msg.String()
}

func (m *Mailer) sendSMTP(ctx context.Context, to, msg string) error {
	addr := net.JoinHostPort(m.cfg.Host, fmt.Sprintf("%d", m.cfg.Port))

	dialer := &net.Dialer{Timeout: m.cfg.Timeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("connect to smtp server: %w", err)
	}
	defer func() { _ = conn.Close() }()

	client, err := smtp.NewClient(conn, m.cfg.Host)
	if err != nil {
		return fmt.Errorf("create smtp client: %w", err)
	}
	defer func() { _ = client.Close() }()

	if m.cfg.STARTTLS {
		tlsConfig := &tls.Config{
			ServerName: m.cfg.Host,
			MinVersion: tls.VersionTLS12,
		}
		if err := client.StartTLS(tlsConfig); err != nil {
			return fmt.Errorf("start tls: %w", err)
		}
	}

	if m.cfg.Username != "" && m.cfg.Password != "" {
		auth := smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("smtp authentication failed: %w", err)
		}
	}

	if err := client.Mail(m.cfg.From); err != nil {
		return fmt.Errorf("set sender: %w", err)
	}
	if err := client.Rcpt(to); err != nil {
		return fmt.Errorf("set recipient: %w", err)
	}

	writer, err := client.Data()
	if err != nil {
		return fmt.Errorf("start message body: %w", err)
	}
	if _, err := writer.Write([]byte(msg)); err != nil {
		return fmt.Errorf("write message body: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("close message body: %w", err)
	}

	// QUIT failures after DATA are harmless; the message is already
	// accepted by the relay.
	if err := client.Quit(); err != nil {
		logging.Debug().Err(err).Msg("smtp quit failed after successful send")
	}
	return nil
}

// BreakerState exposes the breaker state for health checks.
func (m *Mailer) BreakerState() gobreaker.State {
	return m.breaker.State()
}

// sendDeadline bounds a send attempt when the caller passed no deadline.
func (m *Mailer) sendDeadline(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	timeout := m.cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return context.WithTimeout(ctx, timeout)
}
