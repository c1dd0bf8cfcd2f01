// Servonix - Bus Complaint Management and Real-Time Notifications
// Copyright 2026 Servonix Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later

package notify

import (
	"context"
	"time"

	"github.com/servonix/servonix/internal/logging"
)

// Pruner is the retention slice of the database layer.
type Pruner interface {
	PruneNotifications(ctx context.Context, olderThan time.Duration) (int64, error)
}

const janitorInterval = 6 * time.Hour

// Janitor periodically deletes read notifications past their retention.
// Runs as a supervised service.
type Janitor struct {
	store     Pruner
	retention time.Duration
	interval  time.Duration
}

// NewJanitor creates a janitor. A zero or negative retention disables
// pruning; the janitor then just idles until shutdown.
func NewJanitor(store Pruner, retention time.Duration) *Janitor {
	return &Janitor{store: store, retention: retention, interval: janitorInterval}
}

// Run prunes on startup and then on every interval tick until the
// context is canceled.
func (j *Janitor) Run(ctx context.Context) error {
	if j.retention <= 0 {
		logging.Ctx(ctx).Info().Msg("notification pruning disabled")
		<-ctx.Done()
		return ctx.Err()
	}

	j.prune(ctx)

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			j.prune(ctx)
		}
	}
}

func (j *Janitor) prune(ctx context.Context) {
	n, err := j.store.PruneNotifications(ctx, j.retention)
	if err != nil {
		logging.Ctx(ctx).Error().Err(err).Msg("notification prune failed")
		return
	}
	if n > 0 {
		logging.Ctx(ctx).Info().Int64("pruned", n).Msg("old notifications pruned")
	}
}
