// Servonix - Bus Complaint Management and Real-Time Notifications
// Copyright 2026 Servonix Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/servonix/servonix/internal/middleware"
)

// Router assembles the HTTP surface: handlers plus the middleware stack.
type Router struct {
	handler    *Handler
	middleware *Middleware
}

// NewRouter creates a router from the handler set and middleware stack.
func NewRouter(handler *Handler, mw *Middleware) *Router {
	return &Router{handler: handler, middleware: mw}
}

// Setup wires every route and returns the root handler.
func (router *Router) Setup() http.Handler {
	r := chi.NewRouter()

	// Global stack, applied to all routes in order.
	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(router.middleware.CORS()) // global so OPTIONS preflight works everywhere

	// Health endpoints stay public for load balancers and probes.
	r.Route("/health", func(r chi.Router) {
		r.Get("/", router.handler.Health)
		r.Get("/live", router.handler.HealthLive)
		r.Get("/ready", router.handler.HealthReady)
	})

	r.Handle("/metrics", promhttp.Handler())

	// Credential endpoints: public, strictly rate limited.
	r.Route("/api/v1/auth", func(r chi.Router) {
		r.Use(router.middleware.RateLimitAuth())
		r.Use(middleware.Prometheus)

		r.Post("/register", router.handler.Register)
		r.Post("/verify", router.handler.VerifyRegistration)
		r.Post("/resend-code", router.handler.ResendCode)
		r.Post("/forgot-password", router.handler.ForgotPassword)
		r.Post("/reset-password", router.handler.ResetPassword)
		r.Post("/login", router.handler.Login)

		// The only authenticated route under /auth.
		r.With(router.middleware.Authenticate, router.middleware.Authorize).
			Get("/me", router.handler.Me)
	})

	// WebSocket endpoint: the upgrade itself is public; a connection
	// stays unbound until it registers with a valid credential.
	r.Get("/api/v1/ws", router.handler.WebSocket)

	// Everything else requires a valid token and passes role policy.
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(router.middleware.RateLimit())
		r.Use(middleware.Prometheus)
		r.Use(router.middleware.Authenticate)
		r.Use(router.middleware.Authorize)

		r.Route("/complaints", func(r chi.Router) {
			r.Get("/", router.handler.ListComplaints)
			r.Post("/", router.handler.CreateComplaint)
			r.Get("/{id}", router.handler.GetComplaint)
			r.Post("/{id}/status", router.handler.UpdateComplaintStatus)
			r.Post("/{id}/assign", router.handler.AssignComplaint)
			r.Get("/{id}/messages", router.handler.ComplaintThread)
			r.Get("/{id}/feedback", router.handler.GetFeedback)
			r.Post("/{id}/feedback", router.handler.SubmitFeedback)
			r.Post("/{id}/feedback/respond", router.handler.RespondFeedback)
		})

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", router.handler.ListNotifications)
			r.Get("/unread-count", router.handler.UnreadCount)
			r.Post("/{id}/read", router.handler.MarkNotificationRead)
			r.Post("/read-all", router.handler.MarkAllNotificationsRead)
			r.Delete("/{id}", router.handler.DeleteNotification)
		})

		r.Route("/messages", func(r chi.Router) {
			r.Post("/", router.handler.SendMessage)
			r.Get("/unread-count", router.handler.UnreadMessageCount)
			r.Get("/{userID}", router.handler.GetConversation)
			r.Post("/{userID}/read", router.handler.MarkConversationRead)
		})

		r.Route("/districts", func(r chi.Router) {
			r.Get("/", router.handler.ListDistricts)
			r.Post("/", router.handler.CreateDistrict)
			r.Get("/{id}/routes", router.handler.ListDistrictRoutes)
			r.Post("/{id}/routes", router.handler.CreateRoute)
		})

		r.Route("/routes", func(r chi.Router) {
			r.Get("/", router.handler.ListRoutes)
			r.Get("/{id}/buses", router.handler.ListRouteBuses)
			r.Post("/{id}/buses", router.handler.CreateBus)
		})

		r.Route("/users", func(r chi.Router) {
			r.Get("/", router.handler.ListUsers)
			r.Post("/{id}/role", router.handler.UpdateUserRole)
			r.Post("/{id}/active", router.handler.SetUserActive)
		})

		r.Route("/assignments", func(r chi.Router) {
			r.Post("/", router.handler.CreateAssignment)
			r.Delete("/{adminID}/{districtID}", router.handler.DeleteAssignment)
		})

		r.Post("/broadcast", router.handler.Broadcast)
		r.Get("/audit", router.handler.ListAuditEvents)

		r.Route("/dashboard", func(r chi.Router) {
			r.Get("/complaints", router.handler.DashboardComplaints)
			r.Get("/feedback", router.handler.DashboardFeedback)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		NewResponseWriter(w, r).NotFound("endpoint not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		NewResponseWriter(w, r).Error(http.StatusMethodNotAllowed, ErrCodeMethodNotAllowed, "method not allowed")
	})

	return r
}
