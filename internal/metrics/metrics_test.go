// Servonix - Bus Complaint Management and Real-Time Notifications
// Copyright 2026 Servonix Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later

package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordHTTPRequest(t *testing.T) {
	before := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("GET", "/api/v1/complaints", "200"))
	RecordHTTPRequest("GET", "/api/v1/complaints", 200, 25*time.Millisecond)
	after := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("GET", "/api/v1/complaints", "200"))
	if after != before+1 {
		t.Errorf("counter = %v, want %v", after, before+1)
	}
}

func TestRecordDBQueryError(t *testing.T) {
	before := testutil.ToFloat64(DBQueryErrors.WithLabelValues("insert", "complaints"))
	RecordDBQuery("insert", "complaints", time.Millisecond, errors.New("constraint"))
	after := testutil.ToFloat64(DBQueryErrors.WithLabelValues("insert", "complaints"))
	if after != before+1 {
		t.Errorf("error counter = %v, want %v", after, before+1)
	}
}

func TestRecordDBQuerySuccessNoError(t *testing.T) {
	before := testutil.ToFloat64(DBQueryErrors.WithLabelValues("select", "users"))
	RecordDBQuery("select", "users", time.Millisecond, nil)
	after := testutil.ToFloat64(DBQueryErrors.WithLabelValues("select", "users"))
	if after != before {
		t.Errorf("error counter moved on success: %v -> %v", before, after)
	}
}

func TestRecordEmitOutcomes(t *testing.T) {
	for _, outcome := range []string{"delivered", "no_session", "dropped"} {
		before := testutil.ToFloat64(WSEmitsTotal.WithLabelValues(outcome))
		RecordEmit(outcome)
		after := testutil.ToFloat64(WSEmitsTotal.WithLabelValues(outcome))
		if after != before+1 {
			t.Errorf("emit %s counter = %v, want %v", outcome, after, before+1)
		}
	}
}

func TestRecordAuthAttempt(t *testing.T) {
	before := testutil.ToFloat64(AuthAttempts.WithLabelValues("otp", "failure"))
	RecordAuthAttempt("otp", false)
	after := testutil.ToFloat64(AuthAttempts.WithLabelValues("otp", "failure"))
	if after != before+1 {
		t.Errorf("auth counter = %v, want %v", after, before+1)
	}
}
