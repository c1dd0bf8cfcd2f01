// Servonix - Bus Complaint Management and Real-Time Notifications
// Copyright 2026 Servonix Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later

// Request validation structs with go-playground/validator tags. Bodies are
// decoded, validated, and only then handed to the domain layer.
package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// getValidator returns the process-wide validator instance. validator.v10
// caches struct metadata, so sharing one instance is the cheap path.
func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// FieldError describes a single failed validation constraint.
type FieldError struct {
	Field      string `json:"field"`
	Constraint string `json:"constraint"`
	Param      string `json:"param,omitempty"`
}

// validateRequest runs validator tags and flattens failures into
// client-friendly field errors.
func validateRequest(req interface{}) []FieldError {
	err := getValidator().Struct(req)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []FieldError{{Field: "_", Constraint: "invalid"}}
	}

	out := make([]FieldError, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, FieldError{
			Field:      strings.ToLower(fe.Field()),
			Constraint: fe.Tag(),
			Param:      fe.Param(),
		})
	}
	return out
}

// decodeBody unmarshals and validates a JSON request body. A nil return
// with ok=false means the response has already been written.
func decodeBody(rw *ResponseWriter, r *http.Request, req interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		rw.BadRequest(fmt.Sprintf("invalid request body: %v", err))
		return false
	}
	if fieldErrs := validateRequest(req); fieldErrs != nil {
		rw.ValidationError("request validation failed", fieldErrs)
		return false
	}
	return true
}

// RegisterRequest starts OTP-verified registration.
type RegisterRequest struct {
	Name     string `json:"name" validate:"required,min=2,max=120"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=72"`
	Phone    string `json:"phone" validate:"omitempty,min=7,max=20"`
}

// VerifyRequest completes registration with the emailed code.
type VerifyRequest struct {
	Email string `json:"email" validate:"required,email"`
	Code  string `json:"code" validate:"required,len=6,numeric"`
}

// ResendCodeRequest requests a fresh OTP for a pending registration.
type ResendCodeRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// ForgotPasswordRequest starts the OTP-based password reset flow.
type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// ResetPasswordRequest completes a password reset with the emailed code.
type ResetPasswordRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Code     string `json:"code" validate:"required,len=6,numeric"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

// LoginRequest authenticates an existing account.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=1"`
}

// CreateComplaintRequest files a new complaint.
type CreateComplaintRequest struct {
	Title       string `json:"title" validate:"required,min=3,max=200"`
	Description string `json:"description" validate:"required,min=10,max=4000"`
	Category    string `json:"category" validate:"required,oneof=delay cleanliness behavior overcrowding safety other"`
	RouteID     *int64 `json:"route_id" validate:"omitempty,min=1"`
	BusID       *int64 `json:"bus_id" validate:"omitempty,min=1"`
	DistrictID  *int64 `json:"district_id" validate:"omitempty,min=1"`
}

// UpdateStatusRequest transitions a complaint's lifecycle. Resolution text
// is mandatory for the terminal states, optional while work is ongoing.
type UpdateStatusRequest struct {
	Status     string `json:"status" validate:"required,oneof=in_progress resolved rejected"`
	Resolution string `json:"resolution" validate:"required_unless=Status in_progress,max=4000"`
}

// AssignComplaintRequest hands a complaint to a specific admin.
type AssignComplaintRequest struct {
	AdminID int64 `json:"admin_id" validate:"required,min=1"`
}

// FeedbackRequest rates a resolved complaint.
type FeedbackRequest struct {
	Rating  int    `json:"rating" validate:"required,min=1,max=5"`
	Comment string `json:"comment" validate:"omitempty,max=2000"`
}

// RespondFeedbackRequest is the admin's reply to a rating.
type RespondFeedbackRequest struct {
	Response string `json:"response" validate:"required,max=2000"`
}

// SendMessageRequest sends a direct message, optionally attached to a
// complaint's thread.
type SendMessageRequest struct {
	RecipientID int64  `json:"recipient_id" validate:"required,min=1"`
	ComplaintID *int64 `json:"complaint_id" validate:"omitempty,min=1"`
	Body        string `json:"body" validate:"required,min=1,max=4000"`
}

// CreateDistrictRequest adds a district.
type CreateDistrictRequest struct {
	Name string `json:"name" validate:"required,min=2,max=120"`
	Code string `json:"code" validate:"required,min=2,max=16,alphanum"`
}

// CreateRouteRequest adds a route to a district.
type CreateRouteRequest struct {
	Number   string `json:"number" validate:"required,min=1,max=16"`
	Name     string `json:"name" validate:"required,min=2,max=200"`
	Origin   string `json:"origin" validate:"omitempty,max=200"`
	Terminus string `json:"terminus" validate:"omitempty,max=200"`
}

// CreateBusRequest adds a bus to a route.
type CreateBusRequest struct {
	Registration string `json:"registration" validate:"required,min=4,max=20"`
	Capacity     int    `json:"capacity" validate:"omitempty,min=1,max=300"`
}

// CreateAssignmentRequest maps an admin to a district with a priority.
type CreateAssignmentRequest struct {
	AdminID    int64 `json:"admin_id" validate:"required,min=1"`
	DistrictID int64 `json:"district_id" validate:"required,min=1"`
	Priority   int   `json:"priority" validate:"min=0,max=100"`
}

// UpdateRoleRequest changes a user's role.
type UpdateRoleRequest struct {
	Role string `json:"role" validate:"required,oneof=user admin head"`
}

// UpdateActiveRequest enables or disables an account.
type UpdateActiveRequest struct {
	Active *bool `json:"active" validate:"required"`
}

// BroadcastRequest pushes a system announcement to all live connections.
type BroadcastRequest struct {
	Message string `json:"message" validate:"required,min=1,max=500"`
}
