// Servonix - Bus Complaint Management and Real-Time Notifications
// Copyright 2026 Servonix Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"errors"
	"fmt"
)

// Validate checks configuration invariants that would otherwise surface as
// confusing runtime failures. Called by Load after all layers are merged.
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port must be 1-65535, got %d", c.Server.Port))
	}
	if c.Server.Environment != "development" && c.Server.Environment != "production" {
		errs = append(errs, fmt.Errorf("server.environment must be development or production, got %q", c.Server.Environment))
	}
	if c.Server.Timeout <= 0 {
		errs = append(errs, errors.New("server.timeout must be positive"))
	}

	if c.Database.Path == "" {
		errs = append(errs, errors.New("database.path is required"))
	}
	if c.Database.Threads < 0 {
		errs = append(errs, fmt.Errorf("database.threads must be >= 0, got %d", c.Database.Threads))
	}

	if c.Server.IsProduction() && c.Security.JWTSecret == "" {
		errs = append(errs, errors.New("security.jwt_secret is required in production (set SERVONIX_JWT_SECRET)"))
	}
	if c.Security.JWTSecret != "" && len(c.Security.JWTSecret) < 32 {
		errs = append(errs, fmt.Errorf("security.jwt_secret must be at least 32 bytes, got %d", len(c.Security.JWTSecret)))
	}
	if c.Security.TokenTTL <= 0 {
		errs = append(errs, errors.New("security.token_ttl must be positive"))
	}
	if c.Security.BcryptCost < 10 || c.Security.BcryptCost > 15 {
		errs = append(errs, fmt.Errorf("security.bcrypt_cost must be 10-15, got %d", c.Security.BcryptCost))
	}
	if c.Security.OTP.TTL <= 0 {
		errs = append(errs, errors.New("security.otp.ttl must be positive"))
	}
	if c.Security.OTP.MaxPerEmail < 1 {
		errs = append(errs, errors.New("security.otp.max_per_email must be at least 1"))
	}
	if c.Security.OTP.MaxVerify < 1 {
		errs = append(errs, errors.New("security.otp.max_verify must be at least 1"))
	}

	if !c.AuthStore.InMemory && c.AuthStore.Path == "" {
		errs = append(errs, errors.New("auth_store.path is required unless auth_store.in_memory is set"))
	}

	if c.Mail.Enabled {
		if c.Mail.Host == "" {
			errs = append(errs, errors.New("mail.host is required when mail.enabled is set"))
		}
		if c.Mail.Port < 1 || c.Mail.Port > 65535 {
			errs = append(errs, fmt.Errorf("mail.port must be 1-65535, got %d", c.Mail.Port))
		}
		if c.Mail.From == "" {
			errs = append(errs, errors.New("mail.from is required when mail.enabled is set"))
		}
	}

	if c.Events.BufferSize < 1 {
		errs = append(errs, errors.New("events.buffer_size must be at least 1"))
	}

	if c.WebSocket.SendBuffer < 1 {
		errs = append(errs, errors.New("websocket.send_buffer must be at least 1"))
	}
	if c.WebSocket.BroadcastBuffer < 1 {
		errs = append(errs, errors.New("websocket.broadcast_buffer must be at least 1"))
	}
	if c.WebSocket.PongWait <= 0 || c.WebSocket.WriteWait <= 0 {
		errs = append(errs, errors.New("websocket.pong_wait and websocket.write_wait must be positive"))
	}

	if c.API.DefaultPageSize < 1 {
		errs = append(errs, errors.New("api.default_page_size must be at least 1"))
	}
	if c.API.MaxPageSize < c.API.DefaultPageSize {
		errs = append(errs, errors.New("api.max_page_size must be >= api.default_page_size"))
	}

	return errors.Join(errs...)
}
