// Servonix - Bus Complaint Management and Real-Time Notifications
// Copyright 2026 Servonix Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later

package events

import (
	"context"

	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/servonix/servonix/internal/logging"
	"github.com/servonix/servonix/internal/metrics"
)

// Emitter is the realtime delivery surface the bridge forwards to. The
// WebSocket hub satisfies it.
type Emitter interface {
	EmitToUser(userID int64, eventName string, data interface{})
	Broadcast(eventName string, data interface{})
}

// Bridge consumes domain events from the bus and mirrors them onto live
// WebSocket connections. It is the single dispatch point between the
// durable write path and realtime delivery, which keeps per-user event
// ordering stable: events for one user arrive in publish order.
type Bridge struct {
	bus     *Bus
	emitter Emitter
	topics  []string
}

// NewBridge creates a bridge consuming the standard realtime topics.
func NewBridge(bus *Bus, emitter Emitter) *Bridge {
	return &Bridge{
		bus:     bus,
		emitter: emitter,
		topics:  []string{TopicComplaints, TopicNotifications, TopicMessages, TopicSystem},
	}
}

// Run subscribes to all topics and forwards events until ctx is canceled.
// Designed for suture supervision; returns ctx.Err() on shutdown.
func (b *Bridge) Run(ctx context.Context) error {
	for _, topic := range b.topics {
		messages, err := b.bus.Subscribe(ctx, topic)
		if err != nil {
			return err
		}
		go b.consume(ctx, topic, messages)
	}

	logging.Info().
		Str("component", "event-bridge").
		Int("topics", len(b.topics)).
		Msg("event bridge started")

	<-ctx.Done()
	logging.Info().Str("component", "event-bridge").Msg("event bridge stopped")
	return ctx.Err()
}

func (b *Bridge) consume(ctx context.Context, topic string, messages <-chan *message.Message) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-messages:
			if !ok {
				return
			}
			b.forward(topic, msg)
			msg.Ack()
		}
	}
}

// forward pushes one event to its realtime targets. Decode failures are
// logged and dropped; the durable notification record remains the source
// of truth, so a missed mirror costs nothing but immediacy.
func (b *Bridge) forward(topic string, msg *message.Message) {
	event, err := DecodeEvent(msg)
	if err != nil {
		logging.Warn().Err(err).Str("topic", topic).Msg("dropping undecodable event")
		return
	}

	metrics.EventsConsumed.WithLabelValues(topic, "realtime_bridge").Inc()

	if event.Broadcast {
		b.emitter.Broadcast(event.Type, event.Data)
		return
	}
	for _, userID := range event.Recipients {
		b.emitter.EmitToUser(userID, event.Type, event.Data)
	}
}
