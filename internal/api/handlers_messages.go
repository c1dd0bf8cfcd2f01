// Servonix - Bus Complaint Management and Real-Time Notifications
// Copyright 2026 Servonix Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"errors"
	"net/http"

	"github.com/servonix/servonix/internal/database"
	"github.com/servonix/servonix/internal/events"
	"github.com/servonix/servonix/internal/logging"
	"github.com/servonix/servonix/internal/models"
	"github.com/servonix/servonix/internal/websocket"
)

// SendMessage delivers a direct message and notifies the recipient.
func (h *Handler) SendMessage(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	senderID, ok := requireUser(rw, r)
	if !ok {
		return
	}
	var req SendMessageRequest
	if !decodeBody(rw, r, &req) {
		return
	}
	if req.RecipientID == senderID {
		rw.BadRequest("cannot message yourself")
		return
	}
	if _, err := h.db.GetUserByID(r.Context(), req.RecipientID); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			rw.NotFound("recipient not found")
			return
		}
		rw.DatabaseError(err)
		return
	}

	if req.ComplaintID != nil {
		complaint, err := h.db.GetComplaint(r.Context(), *req.ComplaintID)
		if err != nil {
			if errors.Is(err, database.ErrNotFound) {
				rw.NotFound("complaint not found")
				return
			}
			rw.DatabaseError(err)
			return
		}
		if !h.canViewComplaint(r, complaint, senderID) {
			rw.Forbidden("you may not post to this complaint's thread")
			return
		}
	}

	msg := &models.Message{
		SenderID:    senderID,
		RecipientID: req.RecipientID,
		ComplaintID: req.ComplaintID,
		Body:        req.Body,
	}
	if err := h.db.CreateMessage(r.Context(), msg); err != nil {
		rw.DatabaseError(err)
		return
	}

	n := &models.Notification{
		UserID:    req.RecipientID,
		Type:      models.NotificationDirectMessage,
		Title:     "New message",
		Message:   req.Body,
		RelatedID: &msg.ID,
	}
	if err := h.notify.Notify(r.Context(), n); err != nil {
		logging.Ctx(r.Context()).Warn().Err(err).Msg("failed to notify direct message")
	}
	h.publishEvent(r, events.TopicMessages, events.NewEvent(websocket.MessageTypeDirectMessage,
		[]int64{req.RecipientID}, map[string]interface{}{"message_id": msg.ID, "sender_id": senderID}))

	rw.Created(msg)
}

// GetConversation returns the two-way message history between the caller
// and another user, oldest first.
func (h *Handler) GetConversation(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	userID, ok := requireUser(rw, r)
	if !ok {
		return
	}
	otherID, ok := urlParamInt64(r, "userID")
	if !ok {
		rw.BadRequest("invalid user id")
		return
	}

	_, pageSize := h.paging(r)
	messages, err := h.db.ListConversation(r.Context(), userID, otherID, pageSize)
	if err != nil {
		rw.DatabaseError(err)
		return
	}
	rw.Success(messages)
}

// MarkConversationRead marks all messages from the other user as read.
func (h *Handler) MarkConversationRead(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	userID, ok := requireUser(rw, r)
	if !ok {
		return
	}
	otherID, ok := urlParamInt64(r, "userID")
	if !ok {
		rw.BadRequest("invalid user id")
		return
	}

	n, err := h.db.MarkConversationRead(r.Context(), userID, otherID)
	if err != nil {
		rw.DatabaseError(err)
		return
	}
	rw.Success(map[string]int64{"marked": n})
}

// SubmitFeedback rates a resolved complaint. One rating per complaint,
// only by the complainant, only after resolution.
func (h *Handler) SubmitFeedback(w http.ResponseWriter, r *http.Request) {
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
	var req FeedbackRequest
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
	if complaint.UserID != userID {
		rw.Forbidden("only the complainant may leave feedback")
		return
	}
	if complaint.Status != models.ComplaintResolved {
		rw.Conflict("feedback is only accepted on resolved complaints")
		return
	}

	fb := &models.Feedback{
		ComplaintID: complaintID,
		UserID:      userID,
		Rating:      req.Rating,
		Comment:     req.Comment,
	}
	if err := h.db.CreateFeedback(r.Context(), fb); err != nil {
		if errors.Is(err, database.ErrDuplicate) {
			rw.Conflict("feedback already submitted for this complaint")
			return
		}
		rw.DatabaseError(err)
		return
	}

	// Tell the handling admin their work was rated.
	if complaint.AssignedTo != nil {
		n := &models.Notification{
			UserID:    *complaint.AssignedTo,
			Type:      models.NotificationSystem,
			Title:     "Feedback received",
			Message:   "A complaint you handled was rated",
			RelatedID: &complaintID,
		}
		if err := h.notify.Notify(r.Context(), n); err != nil {
			logging.Ctx(r.Context()).Warn().Err(err).Msg("failed to notify feedback")
		}
	}

	rw.Created(fb)
}

// GetFeedback returns the rating left on a complaint, if any.
func (h *Handler) GetFeedback(w http.ResponseWriter, r *http.Request) {
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

	fb, err := h.db.GetFeedbackForComplaint(r.Context(), complaintID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			rw.NotFound("no feedback for this complaint")
			return
		}
		rw.DatabaseError(err)
		return
	}
	rw.Success(fb)
}

// UnreadMessageCount returns how many unread direct messages await the
// caller, for the navigation badge.
func (h *Handler) UnreadMessageCount(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	userID, ok := requireUser(rw, r)
	if !ok {
		return
	}

	n, err := h.db.CountUnreadMessages(r.Context(), userID)
	if err != nil {
		rw.DatabaseError(err)
		return
	}
	rw.Success(map[string]int64{"unread": n})
}

// ComplaintThread returns the message thread attached to a complaint:
// the back-and-forth between the complainant and the handling admin.
func (h *Handler) ComplaintThread(w http.ResponseWriter, r *http.Request) {
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

	thread, err := h.db.ListComplaintThread(r.Context(), complaintID)
	if err != nil {
		rw.DatabaseError(err)
		return
	}
	if thread == nil {
		thread = []*models.Message{}
	}
	rw.Success(thread)
}

// RespondFeedback lets the handling admin reply to a rating, moving it to
// reviewed. The complainant is notified.
func (h *Handler) RespondFeedback(w http.ResponseWriter, r *http.Request) {
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
	var req RespondFeedbackRequest
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

	fb, err := h.db.GetFeedbackForComplaint(r.Context(), complaintID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			rw.NotFound("no feedback for this complaint")
			return
		}
		rw.DatabaseError(err)
		return
	}

	if err := h.db.RespondFeedback(r.Context(), complaintID, req.Response); err != nil {
		rw.DatabaseError(err)
		return
	}

	n := &models.Notification{
		UserID:    fb.UserID,
		Type:      models.NotificationSystem,
		Title:     "Feedback response",
		Message:   "An admin responded to your feedback",
		RelatedID: &complaintID,
	}
	if err := h.notify.Notify(r.Context(), n); err != nil {
		logging.Ctx(r.Context()).Warn().Err(err).Msg("failed to notify feedback response")
	}

	updated, err := h.db.GetFeedbackForComplaint(r.Context(), complaintID)
	if err != nil {
		rw.DatabaseError(err)
		return
	}
	rw.Success(updated)
}
