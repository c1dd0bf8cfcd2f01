// Servonix - Bus Complaint Management and Real-Time Notifications
// Copyright 2026 Servonix Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	json "github.com/goccy/go-json"

	"github.com/servonix/servonix/internal/logging"
)

func init() {
	logging.SetLogger(logging.NewTestLogger(io.Discard))
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) APIResponse {
	t.Helper()
	var resp APIResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp
}

func TestSuccessResponse(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/test", nil)

	NewResponseWriter(rec, req).Success(map[string]string{"hello": "world"})

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("content type = %q, want application/json", ct)
	}
	resp := decodeResponse(t, rec)
	if !resp.Success {
		t.Error("expected success=true")
	}
	data, ok := resp.Data.(map[string]interface{})
	if !ok {
		t.Fatalf("data type = %T, want map", resp.Data)
	}
	if data["hello"] != "world" {
		t.Errorf("data.hello = %v, want world", data["hello"])
	}
}

func TestCreatedResponse(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/test", nil)

	NewResponseWriter(rec, req).Created(map[string]int{"id": 1})

	if rec.Code != http.StatusCreated {
		t.Errorf("status = %d, want 201", rec.Code)
	}
	if resp := decodeResponse(t, rec); !resp.Success {
		t.Error("expected success=true")
	}
}

func TestNoContentResponse(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodDelete, "/test", nil)

	NewResponseWriter(rec, req).NoContent()

	if rec.Code != http.StatusNoContent {
		t.Errorf("status = %d, want 204", rec.Code)
	}
	if rec.Body.Len() != 0 {
		t.Errorf("body = %q, want empty", rec.Body.String())
	}
}

func TestErrorResponses(t *testing.T) {
	tests := []struct {
		name       string
		write      func(rw *ResponseWriter)
		wantStatus int
		wantCode   string
	}{
		{"bad request", func(rw *ResponseWriter) { rw.BadRequest("nope") }, http.StatusBadRequest, ErrCodeBadRequest},
		{"unauthorized", func(rw *ResponseWriter) { rw.Unauthorized("nope") }, http.StatusUnauthorized, ErrCodeUnauthorized},
		{"forbidden", func(rw *ResponseWriter) { rw.Forbidden("nope") }, http.StatusForbidden, ErrCodeForbidden},
		{"not found", func(rw *ResponseWriter) { rw.NotFound("nope") }, http.StatusNotFound, ErrCodeNotFound},
		{"conflict", func(rw *ResponseWriter) { rw.Conflict("nope") }, http.StatusConflict, ErrCodeConflict},
		{"too many requests", func(rw *ResponseWriter) { rw.TooManyRequests("nope") }, http.StatusTooManyRequests, ErrCodeTooManyRequests},
		{"internal", func(rw *ResponseWriter) { rw.InternalError("nope") }, http.StatusInternalServerError, ErrCodeInternalError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/test", nil)

			tt.write(NewResponseWriter(rec, req))

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			resp := decodeResponse(t, rec)
			if resp.Success {
				t.Error("expected success=false")
			}
			if resp.Error == nil {
				t.Fatal("expected error payload")
			}
			if resp.Error.Code != tt.wantCode {
				t.Errorf("code = %q, want %q", resp.Error.Code, tt.wantCode)
			}
			if resp.Error.Message != "nope" {
				t.Errorf("message = %q, want nope", resp.Error.Message)
			}
		})
	}
}

func TestSuccessWithPagination(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/test", nil)

	NewResponseWriter(rec, req).SuccessWithPagination([]int{1, 2, 3}, &PaginationMeta{
		Count:   3,
		Limit:   20,
		HasMore: false,
	})

	resp := decodeResponse(t, rec)
	if resp.Meta == nil || resp.Meta.Pagination == nil {
		t.Fatal("expected pagination meta")
	}
	if resp.Meta.Pagination.Count != 3 {
		t.Errorf("count = %d, want 3", resp.Meta.Pagination.Count)
	}
}

func TestResponseEchoesRequestID(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req = req.WithContext(logging.WithRequestID(req.Context(), "req-abc-123"))

	NewResponseWriter(rec, req).Success(nil)

	resp := decodeResponse(t, rec)
	if resp.Meta == nil || resp.Meta.RequestID != "req-abc-123" {
		t.Errorf("meta request id = %+v, want req-abc-123", resp.Meta)
	}
}
