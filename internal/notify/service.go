// Servonix - Bus Complaint Management and Real-Time Notifications
// Copyright 2026 Servonix Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package notify couples durable notification records with their realtime
// mirror. The database row is the source of truth for "did this
// notification happen"; the bus event is only "can we tell the user right
// now". The two paths are deliberately decoupled: a bus failure never
// rolls back or fails the durable write.
package notify

import (
	"context"

	"github.com/servonix/servonix/internal/events"
	"github.com/servonix/servonix/internal/logging"
	"github.com/servonix/servonix/internal/models"
)

// Store is the persistence surface the service needs.
type Store interface {
	CreateNotification(ctx context.Context, n *models.Notification) error
	ListUsersByRole(ctx context.Context, role string) ([]*models.User, error)
	AdminsForDistrict(ctx context.Context, districtID int64) ([]*models.AdminDistrictAssignment, error)
}

// Publisher is the realtime side, satisfied by *events.Bus.
type Publisher interface {
	Publish(ctx context.Context, topic string, event events.Event) error
}

// Service persists notifications and mirrors them to live connections.
type Service struct {
	store Store
	bus   Publisher
}

// NewService creates a notification service.
func NewService(store Store, bus Publisher) *Service {
	return &Service{store: store, bus: bus}
}

// Notify writes a durable notification for one user and pushes a realtime
// mirror. The returned error reflects the durable write only.
func (s *Service) Notify(ctx context.Context, n *models.Notification) error {
	if err := s.store.CreateNotification(ctx, n); err != nil {
		return err
	}
	s.mirror(ctx, n)
	return nil
}

// NotifyMany writes one notification per recipient. The first persistence
// failure aborts; recipients already written keep their notifications.
func (s *Service) NotifyMany(ctx context.Context, recipients []int64, template models.Notification) error {
	for _, userID := range recipients {
		n := template
		n.UserID = userID
		if err := s.Notify(ctx, &n); err != nil {
			return err
		}
	}
	return nil
}

// NotifyRole fans a notification out to every active holder of a role,
// optionally excluding one user (typically the actor).
func (s *Service) NotifyRole(ctx context.Context, role string, exclude int64, template models.Notification) error {
	users, err := s.store.ListUsersByRole(ctx, role)
	if err != nil {
		return err
	}
	recipients := make([]int64, 0, len(users))
	for _, u := range users {
		if u.ID == exclude {
			continue
		}
		recipients = append(recipients, u.ID)
	}
	return s.NotifyMany(ctx, recipients, template)
}

// NotifyDistrictAdmins targets every admin assigned to a district.
func (s *Service) NotifyDistrictAdmins(ctx context.Context, districtID int64, template models.Notification) error {
	assignments, err := s.store.AdminsForDistrict(ctx, districtID)
	if err != nil {
		return err
	}
	recipients := make([]int64, 0, len(assignments))
	for _, a := range assignments {
		recipients = append(recipients, a.AdminID)
	}
	return s.NotifyMany(ctx, recipients, template)
}

// BroadcastSystem pushes a system announcement to every live connection.
// System broadcasts are transient and have no durable record.
func (s *Service) BroadcastSystem(ctx context.Context, message string) {
	event := events.NewBroadcastEvent(models.NotificationSystem, map[string]interface{}{
		"message": message,
	})
	if err := s.bus.Publish(ctx, events.TopicSystem, event); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Msg("failed to publish system broadcast")
	}
}

// mirror publishes the realtime counterpart of a persisted notification.
// Failures are logged and swallowed; the client recovers the record on its
// next poll.
func (s *Service) mirror(ctx context.Context, n *models.Notification) {
	data := map[string]interface{}{
		"notification_id": n.ID,
		"title":           n.Title,
		"message":         n.Message,
	}
	if n.RelatedID != nil {
		data["related_id"] = *n.RelatedID
	}

	event := events.NewEvent(n.Type, []int64{n.UserID}, data)
	if err := s.bus.Publish(ctx, events.TopicNotifications, event); err != nil {
		logging.Ctx(ctx).Warn().
			Err(err).
			Int64("user_id", n.UserID).
			Str("type", n.Type).
			Msg("failed to publish notification mirror")
	}
}
