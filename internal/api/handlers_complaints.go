// Servonix - Bus Complaint Management and Real-Time Notifications
// Copyright 2026 Servonix Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/servonix/servonix/internal/assignment"
	"github.com/servonix/servonix/internal/audit"
	"github.com/servonix/servonix/internal/database"
	"github.com/servonix/servonix/internal/events"
	"github.com/servonix/servonix/internal/logging"
	"github.com/servonix/servonix/internal/metrics"
	"github.com/servonix/servonix/internal/models"
	"github.com/servonix/servonix/internal/websocket"
)

// CreateComplaint files a new complaint and attempts auto-assignment to a
// district admin. The complaint is durably created even when no admin is
// available; it then stays pending for manual triage.
func (h *Handler) CreateComplaint(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	userID, ok := requireUser(rw, r)
	if !ok {
		return
	}
	var req CreateComplaintRequest
	if !decodeBody(rw, r, &req) {
		return
	}

	complaint := &models.Complaint{
		UserID:      userID,
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		Status:      models.ComplaintPending,
		RouteID:     req.RouteID,
		BusID:       req.BusID,
		DistrictID:  req.DistrictID,
	}
	if err := h.db.CreateComplaint(r.Context(), complaint); err != nil {
		rw.DatabaseError(err)
		return
	}
	metrics.ComplaintsByStatus.WithLabelValues(models.ComplaintPending).Inc()

	if adminID, err := h.assigner.AutoAssign(r.Context(), complaint); err == nil {
		complaint.Status = models.ComplaintInProgress
		complaint.AssignedTo = &adminID
		h.publishEvent(r, events.TopicComplaints, events.NewEvent(websocket.MessageTypeComplaintFiled,
			[]int64{adminID}, map[string]interface{}{"complaint_id": complaint.ID}))
	} else if errors.Is(err, assignment.ErrNoAdminAvailable) {
		// Nobody to hand it to; flag it for the heads so it does not
		// languish in the pending queue unseen.
		h.notifyUnassigned(r.Context(), complaint, userID)
	} else {
		logging.Ctx(r.Context()).Warn().
			Err(err).
			Int64("complaint_id", complaint.ID).
			Msg("auto-assignment failed, complaint stays pending")
	}

	rw.Created(complaint)
}

func (h *Handler) notifyUnassigned(ctx context.Context, complaint *models.Complaint, actorID int64) {
	template := models.Notification{
		Type:      models.NotificationComplaintFiled,
		Title:     "Unassigned complaint",
		Message:   fmt.Sprintf("Complaint %q has no district admin and needs manual triage", complaint.Title),
		RelatedID: &complaint.ID,
	}
	if err := h.notify.NotifyRole(ctx, models.RoleHead, actorID, template); err != nil {
		logging.Ctx(ctx).Warn().
			Err(err).
			Int64("complaint_id", complaint.ID).
			Msg("failed to notify heads about unassigned complaint")
	}
}

// ListComplaints returns complaints scoped by role: users see their own,
// admins see their assigned workload, heads see everything. Optional
// status, category, and district_id filters narrow the result.
func (h *Handler) ListComplaints(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	userID, ok := requireUser(rw, r)
	if !ok {
		return
	}

	page, pageSize := h.paging(r)
	filter := models.ComplaintFilter{
		Status:   r.URL.Query().Get("status"),
		Category: r.URL.Query().Get("category"),
		Page:     page,
		PageSize: pageSize,
	}
	if raw := queryInt(r, "district_id", 0); raw > 0 {
		id := int64(raw)
		filter.DistrictID = &id
	}

	switch CurrentRole(r.Context()) {
	case models.RoleUser:
		filter.UserID = &userID
	case models.RoleAdmin:
		if filter.DistrictID == nil {
			filter.AssignedTo = &userID
		}
	case models.RoleHead:
		// Unscoped.
	default:
		rw.Forbidden("unknown role")
		return
	}

	complaints, err := h.db.ListComplaints(r.Context(), filter)
	if err != nil {
		rw.DatabaseError(err)
		return
	}

	rw.SuccessWithPagination(complaints, &PaginationMeta{
		Count:   len(complaints),
		Offset:  (page - 1) * pageSize,
		Limit:   pageSize,
		HasMore: len(complaints) == pageSize,
	})
}

// GetComplaint returns one complaint. Users may only read their own;
// admins may read complaints assigned to them; heads read anything.
func (h *Handler) GetComplaint(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	userID, ok := requireUser(rw, r)
	if !ok {
		return
	}
	complaintID, ok := urlParamInt64(r, "id")
	if !ok {
		rw.BadRequest("invalid complaint id")
		return
	}

	complaint, err := h.db.GetComplaint(r.Context(), complaintID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			rw.NotFound("complaint not found")
			return
		}
		rw.DatabaseError(err)
		return
	}
	if !h.canViewComplaint(r, complaint, userID) {
		rw.Forbidden("you may not view this complaint")
		return
	}

	rw.Success(complaint)
}

func (h *Handler) canViewComplaint(r *http.Request, c *models.Complaint, userID int64) bool {
	switch CurrentRole(r.Context()) {
	case models.RoleHead:
		return true
	case models.RoleAdmin:
		return (c.AssignedTo != nil && *c.AssignedTo == userID) || c.UserID == userID
	default:
		return c.UserID == userID
	}
}

// UpdateComplaintStatus transitions a complaint's lifecycle and notifies
// the complainant. Resolution text is required context for resolved and
// rejected, and the complainant gets a feedback request on resolution.
func (h *Handler) UpdateComplaintStatus(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	adminID, ok := requireUser(rw, r)
	if !ok {
		return
	}
	complaintID, ok := urlParamInt64(r, "id")
	if !ok {
		rw.BadRequest("invalid complaint id")
		return
	}
	var req UpdateStatusRequest
	if !decodeBody(rw, r, &req) {
		return
	}

	complaint, err := h.db.GetComplaint(r.Context(), complaintID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			rw.NotFound("complaint not found")
			return
		}
		rw.DatabaseError(err)
		return
	}
	if CurrentRole(r.Context()) == models.RoleAdmin &&
		(complaint.AssignedTo == nil || *complaint.AssignedTo != adminID) {
		rw.Forbidden("complaint is not assigned to you")
		return
	}

	err = h.db.UpdateComplaintStatus(r.Context(), complaintID, complaint.Status, req.Status, req.Resolution)
	switch {
	case errors.Is(err, database.ErrConflict):
		rw.Conflict(fmt.Sprintf("cannot transition complaint from %s to %s", complaint.Status, req.Status))
		return
	case err != nil:
		rw.DatabaseError(err)
		return
	}
	metrics.ComplaintsByStatus.WithLabelValues(req.Status).Inc()
	h.auditRecord(r, audit.ActionStatusChanged, "complaint", complaintID,
		fmt.Sprintf("%s -> %s", complaint.Status, req.Status))

	recipients := []int64{complaint.UserID}
	if complaint.AssignedTo != nil && *complaint.AssignedTo != adminID {
		recipients = append(recipients, *complaint.AssignedTo)
	}
	h.publishEvent(r, events.TopicComplaints, events.NewEvent(websocket.MessageTypeStatusChanged, recipients,
		map[string]interface{}{"complaint_id": complaintID, "status": req.Status}))

	h.notifyStatusChange(r, complaint, req.Status)

	updated, err := h.db.GetComplaint(r.Context(), complaintID)
	if err != nil {
		rw.DatabaseError(err)
		return
	}
	rw.Success(updated)
}

// notifyStatusChange writes the durable notification(s) for a transition
// and mirrors them live. Notification failures are logged, never surfaced:
// the transition has already committed.
func (h *Handler) notifyStatusChange(r *http.Request, complaint *models.Complaint, newStatus string) {
	ctx := r.Context()

	n := &models.Notification{
		UserID:    complaint.UserID,
		Type:      models.NotificationStatusChanged,
		Title:     "Complaint updated",
		Message:   fmt.Sprintf("Your complaint %q is now %s", complaint.Title, newStatus),
		RelatedID: &complaint.ID,
	}
	if newStatus == models.ComplaintResolved {
		n.Type = models.NotificationComplaintResolved
		n.Title = "Complaint resolved"
		n.Message = fmt.Sprintf("Your complaint %q was resolved", complaint.Title)
	}
	if err := h.notify.Notify(ctx, n); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Int64("complaint_id", complaint.ID).Msg("failed to notify status change")
	}

	if newStatus == models.ComplaintResolved {
		fb := &models.Notification{
			UserID:    complaint.UserID,
			Type:      models.NotificationFeedbackRequest,
			Title:     "How did we do?",
			Message:   "Rate the handling of your complaint",
			RelatedID: &complaint.ID,
		}
		if err := h.notify.Notify(ctx, fb); err != nil {
			logging.Ctx(ctx).Warn().Err(err).Int64("complaint_id", complaint.ID).Msg("failed to send feedback request")
		}
	}
}

// AssignComplaint manually hands a pending complaint to an admin. Used by
// heads for districts with no auto-assignment coverage, and by admins to
// claim pending complaints.
func (h *Handler) AssignComplaint(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	if _, ok := requireUser(rw, r); !ok {
		return
	}
	complaintID, ok := urlParamInt64(r, "id")
	if !ok {
		rw.BadRequest("invalid complaint id")
		return
	}
	var req AssignComplaintRequest
	if !decodeBody(rw, r, &req) {
		return
	}

	admin, err := h.db.GetUserByID(r.Context(), req.AdminID)
	if err != nil || admin.Role == models.RoleUser || !admin.IsActive {
		rw.BadRequest("target is not an active admin")
		return
	}

	err = h.db.AssignComplaint(r.Context(), complaintID, req.AdminID)
	switch {
	case errors.Is(err, database.ErrConflict):
		rw.Conflict("complaint is no longer pending")
		return
	case errors.Is(err, database.ErrNotFound):
		rw.NotFound("complaint not found")
		return
	case err != nil:
		rw.DatabaseError(err)
		return
	}

	n := &models.Notification{
		UserID:    req.AdminID,
		Type:      models.NotificationComplaintAssigned,
		Title:     "Complaint assigned",
		Message:   "A complaint was assigned to you",
		RelatedID: &complaintID,
	}
	if err := h.notify.Notify(r.Context(), n); err != nil {
		logging.Ctx(r.Context()).Warn().Err(err).Msg("failed to notify manual assignment")
	}
	h.auditRecord(r, audit.ActionComplaintAssigned, "complaint", complaintID,
		fmt.Sprintf("assigned to admin %d", req.AdminID))
	h.publishEvent(r, events.TopicComplaints, events.NewEvent(websocket.MessageTypeComplaintAssigned,
		[]int64{req.AdminID}, map[string]interface{}{"complaint_id": complaintID}))

	rw.Success(map[string]interface{}{"complaint_id": complaintID, "admin_id": req.AdminID})
}

// DashboardComplaints returns per-status complaint counts, optionally
// scoped to one district.
func (h *Handler) DashboardComplaints(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	var districtID *int64
	if raw := queryInt(r, "district_id", 0); raw > 0 {
		id := int64(raw)
		districtID = &id
	}

	counts, err := h.db.CountComplaintsByStatus(r.Context(), districtID)
	if err != nil {
		rw.DatabaseError(err)
		return
	}
	rw.Success(counts)
}

// DashboardFeedback returns the calling admin's feedback aggregate and
// open workload.
func (h *Handler) DashboardFeedback(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	adminID, ok := requireUser(rw, r)
	if !ok {
		return
	}

	avg, count, err := h.db.AverageFeedbackForAdmin(r.Context(), adminID)
	if err != nil {
		rw.DatabaseError(err)
		return
	}
	open, err := h.db.CountOpenAssignments(r.Context(), adminID)
	if err != nil {
		rw.DatabaseError(err)
		return
	}

	rw.Success(map[string]interface{}{
		"average_rating":   avg,
		"feedback_count":   count,
		"open_assignments": open,
	})
}
