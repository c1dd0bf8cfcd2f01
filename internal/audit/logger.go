// Servonix - Bus Complaint Management and Real-Time Notifications
// Copyright 2026 Servonix Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later

package audit

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/servonix/servonix/internal/logging"
)

// pruneInterval is how often the retention sweep runs.
const pruneInterval = 24 * time.Hour

// Config controls the audit logger.
type Config struct {
	// Enabled turns audit recording on. When false Record is a no-op.
	Enabled bool `koanf:"enabled"`

	// BufferSize is the async write buffer. When full, events are
	// dropped with a warning rather than blocking the request path.
	BufferSize int `koanf:"buffer_size"`

	// Retention is how long events are kept. Zero disables pruning.
	Retention time.Duration `koanf:"retention"`
}

// Logger records audit events asynchronously.
type Logger struct {
	config Config
	store  Store

	eventCh chan *Event
	stopCh  chan struct{}
	wg      sync.WaitGroup
	once    sync.Once
}

// NewLogger starts the async writer. Call Close to drain and stop it.
func NewLogger(store Store, config Config) *Logger {
	if config.BufferSize <= 0 {
		config.BufferSize = 1000
	}

	l := &Logger{
		config:  config,
		store:   store,
		eventCh: make(chan *Event, config.BufferSize),
		stopCh:  make(chan struct{}),
	}

	l.wg.Add(1)
	go l.writeLoop()

	return l
}

// Record queues an event for persistence. It never blocks: when the
// buffer is full the event is dropped and counted in the log. Safe to
// call on a nil Logger.
func (l *Logger) Record(event Event) {
	if l == nil || !l.config.Enabled {
		return
	}

	event.ID = uuid.New().String()
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	select {
	case l.eventCh <- &event:
	default:
		logging.Warn().
			Str("action", string(event.Action)).
			Int64("actor_id", event.ActorID).
			Msg("audit buffer full, event dropped")
	}
}

func (l *Logger) writeLoop() {
	defer l.wg.Done()

	for {
		select {
		case event := <-l.eventCh:
			l.write(event)
		case <-l.stopCh:
			// Drain whatever queued before shutdown.
			for {
				select {
				case event := <-l.eventCh:
					l.write(event)
				default:
					return
				}
			}
		}
	}
}

func (l *Logger) write(event *Event) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := l.store.Save(ctx, event); err != nil {
		logging.Error().
			Err(err).
			Str("action", string(event.Action)).
			Int64("actor_id", event.ActorID).
			Msg("failed to persist audit event")
	}
}

// List returns recorded events matching the query, newest first.
func (l *Logger) List(ctx context.Context, q Query) ([]Event, error) {
	return l.store.List(ctx, q)
}

// Run prunes expired events until the context is cancelled. It satisfies
// the supervised runner contract; with zero retention it just waits.
func (l *Logger) Run(ctx context.Context) error {
	if !l.config.Enabled || l.config.Retention <= 0 {
		<-ctx.Done()
		return ctx.Err()
	}

	l.prune(ctx)

	ticker := time.NewTicker(pruneInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			l.prune(ctx)
		}
	}
}

func (l *Logger) prune(ctx context.Context) {
	cutoff := time.Now().Add(-l.config.Retention)
	n, err := l.store.Prune(ctx, cutoff)
	if err != nil {
		logging.Ctx(ctx).Error().Err(err).Msg("audit prune failed")
		return
	}
	if n > 0 {
		logging.Ctx(ctx).Info().Int64("pruned", n).Msg("expired audit events pruned")
	}
}

// Close drains queued events and stops the writer.
func (l *Logger) Close() {
	if l == nil {
		return
	}
	l.once.Do(func() {
		close(l.stopCh)
	})
	l.wg.Wait()
}
