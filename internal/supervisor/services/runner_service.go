// Servonix - Bus Complaint Management and Real-Time Notifications
// Copyright 2026 Servonix Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later

package services

import (
	"context"
)

// Runner matches components whose lifetime is a single blocking call
// that honors context cancellation. Satisfied by the WebSocket hub's
// RunWithContext and the event bridge's Run.
type Runner interface {
	Run(ctx context.Context) error
}

// RunnerFunc adapts a bare function to Runner.
type RunnerFunc func(ctx context.Context) error

// Run calls fn.
func (fn RunnerFunc) Run(ctx context.Context) error {
	return fn(ctx)
}

// RunnerService wraps a Runner as a supervised service.
type RunnerService struct {
	runner Runner
	name   string
}

// NewRunnerService wraps a runner under the given service name.
func NewRunnerService(name string, runner Runner) *RunnerService {
	return &RunnerService{runner: runner, name: name}
}

// Serve implements suture.Service.
func (s *RunnerService) Serve(ctx context.Context) error {
	return s.runner.Run(ctx)
}

// String implements fmt.Stringer for suture's logs.
func (s *RunnerService) String() string {
	return s.name
}
