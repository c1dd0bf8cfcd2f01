// Servonix - Bus Complaint Management and Real-Time Notifications
// Copyright 2026 Servonix Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later

package events

import (
	"context"
	"fmt"
	"sync"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/goccy/go-json"

	"github.com/servonix/servonix/internal/config"
	"github.com/servonix/servonix/internal/logging"
	"github.com/servonix/servonix/internal/metrics"
)

// metadataCorrelationID carries the request correlation ID through the bus.
const metadataCorrelationID = "correlation_id"

// Bus is the in-process pub/sub fabric, a Watermill GoChannel under the
// hood. Publishing is fire-and-forget from the caller's perspective:
// errors are logged and counted but deliberately not returned as failures
// of the triggering operation.
type Bus struct {
	pubSub *gochannel.GoChannel
	mu     sync.RWMutex
	closed bool
}

// NewBus creates the event bus.
func NewBus(cfg config.EventsConfig) *Bus {
	// Each Publish hands the message to subscribers in a fresh goroutine,
	// so without blocking until the ack two back-to-back publishes can
	// arrive swapped. The bridge acks right after its non-blocking hub
	// enqueue, so publishers are held only for that handoff and events
	// for one user arrive in publish order.
	pubSub := gochannel.NewGoChannel(gochannel.Config{
		OutputChannelBuffer:            int64(cfg.BufferSize),
		Persistent:                     cfg.PersistentBuffer,
		BlockPublishUntilSubscriberAck: true,
	}, NewLoggerAdapter())

	return &Bus{pubSub: pubSub}
}

// Publish serializes an event onto a topic. The correlation ID from ctx,
// when present, travels in message metadata so consumers log under the
// same request identity.
func (b *Bus) Publish(ctx context.Context, topic string, event Event) error {
	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return fmt.Errorf("event bus is closed")
	}
	b.mu.RUnlock()

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event %s: %w", event.Type, err)
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	if cid := logging.CorrelationID(ctx); cid != "" {
		msg.Metadata.Set(metadataCorrelationID, cid)
	}

	if err := b.pubSub.Publish(topic, msg); err != nil {
		return fmt.Errorf("publish to %s: %w", topic, err)
	}

	metrics.EventsPublished.WithLabelValues(topic).Inc()
	logging.Ctx(ctx).Debug().
		Str("topic", topic).
		Str("event_type", event.Type).
		Str("event_id", event.ID).
		Msg("event published")
	return nil
}

// Subscribe returns a channel of raw messages for a topic. The channel
// closes when ctx is canceled or the bus shuts down.
func (b *Bus) Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error) {
	return b.pubSub.Subscribe(ctx, topic)
}

// Close shuts the bus down. Pending messages on subscriber channels are
// dropped; realtime delivery is best-effort so nothing is lost durably.
func (b *Bus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true
	return b.pubSub.Close()
}

// DecodeEvent unmarshals a bus message payload back into an Event.
func DecodeEvent(msg *message.Message) (Event, error) {
	var event Event
	if err := json.Unmarshal(msg.Payload, &event); err != nil {
		return Event{}, fmt.Errorf("decode event from message %s: %w", msg.UUID, err)
	}
	return event, nil
}
