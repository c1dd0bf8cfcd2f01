// Servonix - Bus Complaint Management and Real-Time Notifications
// Copyright 2026 Servonix Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config loads and validates Servonix configuration from layered
// sources: built-in defaults, an optional YAML file, and environment
// variables, with environment variables taking precedence.
package config

import (
	"net"
	"strconv"
	"time"
)

// Config is the root configuration structure.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Database  DatabaseConfig  `koanf:"database"`
	Security  SecurityConfig  `koanf:"security"`
	AuthStore AuthStoreConfig `koanf:"auth_store"`
	Mail      MailConfig      `koanf:"mail"`
	Events    EventsConfig    `koanf:"events"`
	WebSocket WebSocketConfig `koanf:"websocket"`
	API       APIConfig       `koanf:"api"`
	Audit     AuditConfig     `koanf:"audit"`
	Logging   LoggingConfig   `koanf:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host        string        `koanf:"host"`
	Port        int           `koanf:"port"`
	Timeout     time.Duration `koanf:"timeout"`     // read/write timeout for HTTP requests
	Environment string        `koanf:"environment"` // development or production
}

// DatabaseConfig holds DuckDB settings.
type DatabaseConfig struct {
	Path      string `koanf:"path"`       // database file path
	MaxMemory string `koanf:"max_memory"` // DuckDB memory limit, e.g. "1GB"
	Threads   int    `koanf:"threads"`    // 0 = runtime.NumCPU()
	SeedDemo  bool   `koanf:"seed_demo"`  // seed demo districts/routes/buses on first run
}

// SecurityConfig holds authentication and authorization settings.
type SecurityConfig struct {
	JWTSecret       string        `koanf:"jwt_secret"`
	TokenTTL        time.Duration `koanf:"token_ttl"`
	BcryptCost      int           `koanf:"bcrypt_cost"`
	RateLimitReqs   int           `koanf:"rate_limit_reqs"`
	RateLimitWindow time.Duration `koanf:"rate_limit_window"`
	CORSOrigins     []string      `koanf:"cors_origins"`
	TrustedProxies  []string      `koanf:"trusted_proxies"`
	Casbin          CasbinConfig  `koanf:"casbin"`
	OTP             OTPConfig     `koanf:"otp"`
	Lockout         LockoutConfig `koanf:"lockout"`
}

// CasbinConfig holds RBAC enforcement settings.
type CasbinConfig struct {
	ModelPath   string `koanf:"model_path"`   // optional external model file; embedded model if empty
	PolicyPath  string `koanf:"policy_path"`  // optional external policy file; embedded policy if empty
	DefaultRole string `koanf:"default_role"` // role assigned to new registrations
}

// OTPConfig holds one-time passcode settings for email verification.
type OTPConfig struct {
	TTL         time.Duration `koanf:"ttl"`           // how long a code stays valid
	MaxPerEmail int           `koanf:"max_per_email"` // send attempts allowed per window
	RateWindow  time.Duration `koanf:"rate_window"`
	MaxVerify   int           `koanf:"max_verify"` // wrong-code attempts before the code burns
}

// LockoutConfig holds per-email login failure limits. Counters live in the
// Badger auth store and reset when the window lapses or a login succeeds.
type LockoutConfig struct {
	MaxFailures int           `koanf:"max_failures"`
	Window      time.Duration `koanf:"window"`
}

// AuthStoreConfig holds Badger settings for ephemeral auth state
// (pending registrations, OTP hashes, lockout counters).
type AuthStoreConfig struct {
	Path     string `koanf:"path"`
	InMemory bool   `koanf:"in_memory"` // run Badger fully in-memory (tests, ephemeral deployments)
}

// MailConfig holds outbound SMTP settings for OTP and notification email.
type MailConfig struct {
	Enabled     bool          `koanf:"enabled"`
	Host        string        `koanf:"host"`
	Port        int           `koanf:"port"`
	Username    string        `koanf:"username"`
	Password    string        `koanf:"password"`
	From        string        `koanf:"from"`
	STARTTLS    bool          `koanf:"starttls"`
	Timeout     time.Duration `koanf:"timeout"`
	RatePerMin  int           `koanf:"rate_per_min"` // outbound send rate cap
	MaxFailures int           `koanf:"max_failures"` // consecutive failures before the breaker opens
	CoolDown    time.Duration `koanf:"cool_down"`    // breaker open duration
}

// EventsConfig holds in-process event bus settings.
type EventsConfig struct {
	BufferSize       int           `koanf:"buffer_size"`       // per-subscriber channel buffer
	PersistentBuffer bool          `koanf:"persistent_buffer"` // block publisher when subscribers lag
	CloseTimeout     time.Duration `koanf:"close_timeout"`
}

// WebSocketConfig holds realtime connection settings.
type WebSocketConfig struct {
	ReadLimit       int64         `koanf:"read_limit"`       // max inbound message bytes
	WriteWait       time.Duration `koanf:"write_wait"`       // per-write deadline
	PongWait        time.Duration `koanf:"pong_wait"`        // max silence before a connection is dead
	SendBuffer      int           `koanf:"send_buffer"`      // per-client outbound queue
	BroadcastBuffer int           `koanf:"broadcast_buffer"` // hub broadcast queue
}

// APIConfig holds REST API behavior settings.
type APIConfig struct {
	DefaultPageSize int `koanf:"default_page_size"`
	MaxPageSize     int `koanf:"max_page_size"`

	// NotificationRetention is how long read notifications are kept before
	// the janitor prunes them. Zero disables pruning.
	NotificationRetention time.Duration `koanf:"notification_retention"`
}

// AuditConfig controls the administrative audit trail.
type AuditConfig struct {
	Enabled    bool          `koanf:"enabled"`
	BufferSize int           `koanf:"buffer_size"`
	Retention  time.Duration `koanf:"retention"` // zero disables pruning
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// Addr returns the host:port the HTTP server binds to.
func (c ServerConfig) Addr() string {
	return joinHostPort(c.Host, c.Port)
}

// IsProduction reports whether the server runs in production mode.
func (c ServerConfig) IsProduction() bool {
	return c.Environment == "production"
}

func joinHostPort(host string, port int) string {
	return net.JoinHostPort(host, strconv.Itoa(port))
}
