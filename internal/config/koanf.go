// Servonix - Bus Complaint Management and Real-Time Notifications
// Copyright 2026 Servonix Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists where config files are searched, in order.
// The first file found wins.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/servonix/config.yaml",
	"/etc/servonix/config.yml",
}

// ConfigPathEnvVar overrides the config file path when set.
const ConfigPathEnvVar = "SERVONIX_CONFIG"

// defaultConfig returns a Config with all defaults applied. Defaults load
// first, then the config file, then environment variables.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:        "0.0.0.0",
			Port:        5488,
			Timeout:     30 * time.Second,
			Environment: "development",
		},
		Database: DatabaseConfig{
			Path:      "/data/servonix.duckdb",
			MaxMemory: "1GB",
			Threads:   0, // 0 = runtime.NumCPU()
			SeedDemo:  false,
		},
		Security: SecurityConfig{
			JWTSecret:       "",
			TokenTTL:        24 * time.Hour,
			BcryptCost:      12,
			RateLimitReqs:   100,
			RateLimitWindow: time.Minute,
			CORSOrigins:     []string{"*"},
			TrustedProxies:  []string{},
			Casbin: CasbinConfig{
				ModelPath:   "",
				PolicyPath:  "",
				DefaultRole: "user",
			},
			OTP: OTPConfig{
				TTL:         5 * time.Minute,
				MaxPerEmail: 3,
				RateWindow:  10 * time.Minute,
				MaxVerify:   5,
			},
			Lockout: LockoutConfig{
				MaxFailures: 5,
				Window:      15 * time.Minute,
			},
		},
		AuthStore: AuthStoreConfig{
			Path:     "/data/authstore",
			InMemory: false,
		},
		Mail: MailConfig{
			Enabled:     false,
			Host:        "",
			Port:        587,
			Username:    "",
			Password:    "",
			From:        "",
			STARTTLS:    true,
			Timeout:     15 * time.Second,
			RatePerMin:  30,
			MaxFailures: 5,
			CoolDown:    2 * time.Minute,
		},
		Events: EventsConfig{
			BufferSize:       256,
			PersistentBuffer: false,
			CloseTimeout:     10 * time.Second,
		},
		WebSocket: WebSocketConfig{
			ReadLimit:       4096,
			WriteWait:       10 * time.Second,
			PongWait:        60 * time.Second,
			SendBuffer:      64,
			BroadcastBuffer: 256,
		},
		API: APIConfig{
			DefaultPageSize:       20,
			MaxPageSize:           100,
			NotificationRetention: 90 * 24 * time.Hour,
		},
		Audit: AuditConfig{
			Enabled:    true,
			BufferSize: 1000,
			Retention:  180 * 24 * time.Hour,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}

// Load builds configuration from layered sources using Koanf v2:
//  1. Built-in defaults
//  2. Optional YAML config file
//  3. Environment variables (highest priority)
func Load() (*Config, error) {
	k := koanf.New(".")

	defaults := defaultConfig()
	if err := k.Load(structs.Provider(defaults, "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	configPath := findConfigFile()
	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// SERVONIX_JWT_SECRET -> security.jwt_secret, HTTP_PORT -> server.port
	envProvider := env.Provider("", ".", envTransformFunc)
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// findConfigFile returns the first existing config file path, or "".
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// sliceConfigPaths lists config paths parsed as comma-separated slices when
// they arrive as strings from the environment.
var sliceConfigPaths = []string{
	"security.cors_origins",
	"security.trusted_proxies",
}

func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		val := k.Get(path)
		if val == nil {
			continue
		}
		if _, ok := val.([]interface{}); ok {
			continue
		}
		if _, ok := val.([]string); ok {
			continue
		}
		strVal, ok := val.(string)
		if !ok || strVal == "" {
			continue
		}
		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if len(trimmed) > 0 {
			if err := k.Set(path, trimmed); err != nil {
				return fmt.Errorf("failed to set %s: %w", path, err)
			}
		}
	}
	return nil
}

// envTransformFunc maps environment variable names to koanf config paths.
// Unmapped variables are skipped so arbitrary environment noise never
// pollutes the config.
func envTransformFunc(key string) string {
	key = strings.ToLower(key)

	envMappings := map[string]string{
		// Server
		"http_host":    "server.host",
		"http_port":    "server.port",
		"http_timeout": "server.timeout",
		"environment":  "server.environment",

		// Database
		"duckdb_path":       "database.path",
		"duckdb_max_memory": "database.max_memory",
		"duckdb_threads":    "database.threads",
		"seed_demo_data":    "database.seed_demo",

		// Security
		"servonix_jwt_secret": "security.jwt_secret",
		"jwt_secret":          "security.jwt_secret",
		"token_ttl":           "security.token_ttl",
		"bcrypt_cost":         "security.bcrypt_cost",
		"rate_limit_requests": "security.rate_limit_reqs",
		"rate_limit_window":   "security.rate_limit_window",
		"cors_origins":        "security.cors_origins",
		"trusted_proxies":     "security.trusted_proxies",

		// Casbin
		"casbin_model_path":   "security.casbin.model_path",
		"casbin_policy_path":  "security.casbin.policy_path",
		"casbin_default_role": "security.casbin.default_role",

		// OTP
		"otp_ttl":           "security.otp.ttl",
		"otp_max_per_email": "security.otp.max_per_email",
		"otp_rate_window":   "security.otp.rate_window",
		"otp_max_verify":    "security.otp.max_verify",

		// Auth store
		"auth_store_path":      "auth_store.path",
		"auth_store_in_memory": "auth_store.in_memory",

		// Mail
		"smtp_enabled":       "mail.enabled",
		"smtp_host":          "mail.host",
		"smtp_port":          "mail.port",
		"smtp_username":      "mail.username",
		"smtp_password":      "mail.password",
		"smtp_from":          "mail.from",
		"smtp_starttls":      "mail.starttls",
		"smtp_timeout":       "mail.timeout",
		"smtp_rate_per_min":  "mail.rate_per_min",
		"smtp_max_failures":  "mail.max_failures",
		"smtp_cool_down":     "mail.cool_down",

		// Events
		"events_buffer_size":       "events.buffer_size",
		"events_persistent_buffer": "events.persistent_buffer",
		"events_close_timeout":     "events.close_timeout",

		// WebSocket
		"ws_read_limit":       "websocket.read_limit",
		"ws_write_wait":       "websocket.write_wait",
		"ws_pong_wait":        "websocket.pong_wait",
		"ws_send_buffer":      "websocket.send_buffer",
		"ws_broadcast_buffer": "websocket.broadcast_buffer",

		// API
		"api_default_page_size": "api.default_page_size",
		"api_max_page_size":     "api.max_page_size",

		// Logging
		"log_level":  "logging.level",
		"log_format": "logging.format",
		"log_caller": "logging.caller",
	}

	if mapped, ok := envMappings[key]; ok {
		return mapped
	}
	return ""
}
