// Servonix - Bus Complaint Management and Real-Time Notifications
// Copyright 2026 Servonix Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package metrics exposes Prometheus instrumentation for Servonix:
// HTTP latency and throughput, database query performance, realtime
// connection and dispatch counters, event bus activity, and outbound mail.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "servonix_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint", "status"},
	)

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "servonix_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	HTTPActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "servonix_http_active_requests",
			Help: "Number of HTTP requests currently in flight",
		},
	)

	// Database metrics

	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "servonix_db_query_duration_seconds",
			Help:    "Duration of database queries in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation", "table"},
	)

	DBQueryErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "servonix_db_query_errors_total",
			Help: "Total number of database query errors",
		},
		[]string{"operation", "table"},
	)

	// Realtime dispatch metrics

	WSConnectionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "servonix_ws_connections_active",
			Help: "Number of live WebSocket connections",
		},
	)

	WSSessionsBound = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "servonix_ws_sessions_bound",
			Help: "Number of WebSocket connections bound to a user",
		},
	)

	WSEmitsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "servonix_ws_emits_total",
			Help: "Total targeted emit attempts, labeled by outcome",
		},
		[]string{"outcome"}, // delivered, no_session, dropped
	)

	WSBroadcastsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "servonix_ws_broadcasts_total",
			Help: "Total broadcast messages fanned out to all connections",
		},
	)

	WSDeliveryFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "servonix_ws_delivery_failures_total",
			Help: "Total messages dropped because a client send queue was full or closed",
		},
	)

	// Event bus metrics

	EventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "servonix_events_published_total",
			Help: "Total events published to the in-process bus",
		},
		[]string{"topic"},
	)

	EventsConsumed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "servonix_events_consumed_total",
			Help: "Total events consumed from the in-process bus",
		},
		[]string{"topic", "handler"},
	)

	// Notification metrics

	NotificationsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "servonix_notifications_created_total",
			Help: "Total notifications persisted, labeled by type",
		},
		[]string{"type"},
	)

	// Complaint metrics

	ComplaintsByStatus = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "servonix_complaints_by_status",
			Help: "Current complaint counts by status",
		},
		[]string{"status"},
	)

	ComplaintAssignments = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "servonix_complaint_assignments_total",
			Help: "Total automatic complaint assignments, labeled by outcome",
		},
		[]string{"outcome"}, // assigned, unassigned
	)

	// Mail metrics

	MailSendsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "servonix_mail_sends_total",
			Help: "Total outbound email attempts, labeled by outcome",
		},
		[]string{"kind", "outcome"}, // kind: otp, notification; outcome: sent, failed, rejected
	)

	MailBreakerState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "servonix_mail_breaker_open",
			Help: "1 when the SMTP circuit breaker is open, 0 otherwise",
		},
	)

	// Auth metrics

	AuthAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "servonix_auth_attempts_total",
			Help: "Total authentication attempts, labeled by method and outcome",
		},
		[]string{"method", "outcome"}, // method: password, otp, token
	)
)

// RecordHTTPRequest records latency and count for a completed HTTP request.
func RecordHTTPRequest(method, endpoint string, status int, duration time.Duration) {
	code := strconv.Itoa(status)
	HTTPRequestDuration.WithLabelValues(method, endpoint, code).Observe(duration.Seconds())
	HTTPRequestsTotal.WithLabelValues(method, endpoint, code).Inc()
}

// RecordDBQuery records a database query result.
func RecordDBQuery(operation, table string, duration time.Duration, err error) {
	DBQueryDuration.WithLabelValues(operation, table).Observe(duration.Seconds())
	if err != nil {
		DBQueryErrors.WithLabelValues(operation, table).Inc()
	}
}

// RecordEmit records the outcome of a targeted realtime emit.
func RecordEmit(outcome string) {
	WSEmitsTotal.WithLabelValues(outcome).Inc()
}

// RecordAuthAttempt records an authentication attempt.
func RecordAuthAttempt(method string, success bool) {
	outcome := "failure"
	if success {
		outcome = "success"
	}
	AuthAttempts.WithLabelValues(method, outcome).Inc()
}
