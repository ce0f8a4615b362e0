package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/evently/evently-web/internal/core/domain"
)

func handle(t *testing.T, method, path string, err error) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(method, path, nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	NewHTTPErrorHandler(zerolog.Nop())(err, c)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) errorResponse {
	t.Helper()
	var resp errorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json %q: %v", rec.Body.String(), err)
	}
	return resp
}

func TestHTTPErrorHandler_Redirects(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		target string
	}{
		{"unauthorized", fmt.Errorf("load dashboard: %w", domain.ErrUnauthorized), "/auth/login?redirect=%2Fdashboard%2Fcustomer"},
		{"forbidden", domain.ErrForbidden, "/unauthorized"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := handle(t, http.MethodGet, "/dashboard/customer", tt.err)
			if rec.Code != http.StatusSeeOther {
				t.Fatalf("expected 303, got %d", rec.Code)
			}
			if loc := rec.Header().Get(echo.HeaderLocation); loc != tt.target {
				t.Fatalf("expected %q, got %q", tt.target, loc)
			}
		})
	}
}

func TestHTTPErrorHandler_StatusMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
		msg  string
	}{
		{"echo error", echo.NewHTTPError(http.StatusBadRequest, "invalid payload"), http.StatusBadRequest, "invalid payload"},
		{"not found", fmt.Errorf("get event 9: %w", domain.ErrNotFound), http.StatusNotFound, "not found"},
		{"duplicate", domain.ErrDuplicateSubmission, http.StatusConflict, "this form was already submitted"},
		{"invalid role", domain.ErrInvalidRole, http.StatusBadGateway, "backend returned an invalid account"},
		{"timeout", fmt.Errorf("search: %w", context.DeadlineExceeded), http.StatusGatewayTimeout, "backend timed out"},
		{"backend 4xx passes through", &domain.APIError{Status: http.StatusBadRequest, Message: "not enough seats"}, http.StatusBadRequest, "not enough seats"},
		{"backend 4xx without message", &domain.APIError{Status: http.StatusConflict}, http.StatusConflict, "Conflict"},
		{"backend 5xx", &domain.APIError{Status: http.StatusInternalServerError, Message: "stack trace"}, http.StatusBadGateway, "backend unavailable, please try again"},
		{"backend throttled", &domain.APIError{Status: http.StatusTooManyRequests}, http.StatusBadGateway, "backend unavailable, please try again"},
		{"transport", &domain.APIError{Err: errors.New("dial tcp: refused")}, http.StatusBadGateway, "backend unavailable, please try again"},
		{"unexpected", errors.New("boom"), http.StatusInternalServerError, "internal server error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := handle(t, http.MethodGet, "/events", tt.err)
			if rec.Code != tt.code {
				t.Fatalf("expected %d, got %d", tt.code, rec.Code)
			}
			if resp := decode(t, rec); resp.Error != tt.msg {
				t.Fatalf("expected %q, got %q", tt.msg, resp.Error)
			}
		})
	}
}

func TestHTTPErrorHandler_Validation(t *testing.T) {
	err := &domain.ValidationError{Fields: map[string]string{"email": "email is required"}}
	rec := handle(t, http.MethodPost, "/auth/login", err)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rec.Code)
	}
	resp := decode(t, rec)
	if resp.Fields["email"] != "email is required" {
		t.Fatalf("expected field messages, got %+v", resp)
	}
}

func TestHTTPErrorHandler_Head(t *testing.T) {
	rec := handle(t, http.MethodHead, "/events/1", domain.ErrNotFound)
	if rec.Code != http.StatusNotFound || rec.Body.Len() != 0 {
		t.Fatalf("expected bodiless 404, got %d %q", rec.Code, rec.Body.String())
	}
}
