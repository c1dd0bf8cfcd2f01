// Servonix - Bus Complaint Management and Real-Time Notifications
// Copyright 2026 Servonix Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package assignment routes newly filed complaints to a district admin.
//
// Routing is strict: a complaint is only auto-assigned when its route
// resolves to a district with at least one active admin assignment. The
// best-priority admin wins (lower number beats higher); ties break on the
// lower admin ID so repeated runs over the same data pick the same admin.
// Complaints without a route, or in districts with no admins, stay pending
// for manual triage by the head of operations.
package assignment

import (
	"context"
	"errors"

	"github.com/servonix/servonix/internal/database"
	"github.com/servonix/servonix/internal/logging"
	"github.com/servonix/servonix/internal/metrics"
	"github.com/servonix/servonix/internal/models"
)

// ErrNoAdminAvailable indicates no active admin covers the district.
var ErrNoAdminAvailable = errors.New("assignment: no admin available for district")

// Store is the persistence surface the assigner needs.
type Store interface {
	GetRoute(ctx context.Context, id int64) (*models.Route, error)
	AdminsForDistrict(ctx context.Context, districtID int64) ([]*models.AdminDistrictAssignment, error)
	AssignComplaint(ctx context.Context, complaintID, adminID int64) error
}

// Notifier informs the chosen admin of their new assignment.
type Notifier interface {
	Notify(ctx context.Context, n *models.Notification) error
}

// Service assigns complaints to admins.
type Service struct {
	store    Store
	notifier Notifier
}

// NewService creates an assignment service.
func NewService(store Store, notifier Notifier) *Service {
	return &Service{store: store, notifier: notifier}
}

// AutoAssign picks an admin for a freshly filed complaint, moves it to
// in_progress under that admin, and notifies them. Returns the chosen
// admin ID, or ErrNoAdminAvailable when the complaint must stay pending.
func (s *Service) AutoAssign(ctx context.Context, complaint *models.Complaint) (int64, error) {
	adminID, err := s.pickAdmin(ctx, complaint)
	if err != nil {
		metrics.ComplaintAssignments.WithLabelValues("unassigned").Inc()
		return 0, err
	}

	if err := s.store.AssignComplaint(ctx, complaint.ID, adminID); err != nil {
		metrics.ComplaintAssignments.WithLabelValues("unassigned").Inc()
		return 0, err
	}
	metrics.ComplaintAssignments.WithLabelValues("assigned").Inc()

	n := &models.Notification{
		UserID:    adminID,
		Type:      models.NotificationComplaintAssigned,
		Title:     "Complaint assigned",
		Message:   "A new complaint in your district was assigned to you: " + complaint.Title,
		RelatedID: &complaint.ID,
	}
	if err := s.notifier.Notify(ctx, n); err != nil {
		// Assignment already committed; the admin finds it on their
		// dashboard even without the notification.
		logging.Ctx(ctx).Warn().
			Err(err).
			Int64("admin_id", adminID).
			Int64("complaint_id", complaint.ID).
			Msg("failed to notify admin of assignment")
	}

	logging.Ctx(ctx).Info().
		Int64("complaint_id", complaint.ID).
		Int64("admin_id", adminID).
		Msg("complaint auto-assigned")
	return adminID, nil
}

// pickAdmin resolves the complaint's district and selects the
// best-priority active admin.
func (s *Service) pickAdmin(ctx context.Context, complaint *models.Complaint) (int64, error) {
	districtID, err := s.districtFor(ctx, complaint)
	if err != nil {
		return 0, err
	}

	admins, err := s.store.AdminsForDistrict(ctx, districtID)
	if err != nil {
		return 0, err
	}
	if len(admins) == 0 {
		return 0, ErrNoAdminAvailable
	}

	// AdminsForDistrict orders by priority then admin ID; the head of
	// the list is the deterministic winner.
	return admins[0].AdminID, nil
}

func (s *Service) districtFor(ctx context.Context, complaint *models.Complaint) (int64, error) {
	if complaint.DistrictID != nil {
		return *complaint.DistrictID, nil
	}
	if complaint.RouteID == nil {
		return 0, ErrNoAdminAvailable
	}

	route, err := s.store.GetRoute(ctx, *complaint.RouteID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return 0, ErrNoAdminAvailable
		}
		return 0, err
	}
	return route.DistrictID, nil
}
