package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"testing"

	"github.com/evently/evently-web/internal/core/domain"
	"github.com/evently/evently-web/internal/infrastructure/tokenstore"
)

func TestAuthHandler_LoginPage_Anonymous(t *testing.T) {
	f := newFakeBackend()
	h := NewAuthHandler(newScopes(f))

	c, rec := newContext(request{
		method: http.MethodGet,
		target: "/auth/login?redirect=%2Fprofile",
		flash:  url.QueryEscape("warning|Please log in to continue."),
	})
	if err := h.LoginPage(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var page loginPage
	if err := json.Unmarshal(rec.Body.Bytes(), &page); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if page.Redirect != "/profile" {
		t.Fatalf("expected redirect echoed, got %q", page.Redirect)
	}
	if page.Notice == nil || page.Notice.Message != "Please log in to continue." {
		t.Fatalf("expected flash notice, got %+v", page.Notice)
	}
	if ck := cookie(rec, FlashCookie); ck == nil || ck.MaxAge >= 0 {
		t.Fatalf("flash cookie must be cleared once shown")
	}
	if f.called("me") {
		t.Fatalf("anonymous visitor must not trigger a profile fetch")
	}
}

func TestAuthHandler_LoginPage_AlreadyLoggedIn(t *testing.T) {
	f := newFakeBackend()
	seedUsers(f)
	h := NewAuthHandler(newScopes(f))

	c, rec := newContext(request{method: http.MethodGet, target: "/auth/login", token: organizerToken})
	if err := h.LoginPage(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	expectRedirect(t, rec, "/dashboard/organizer")
}

func TestAuthHandler_Login_Success(t *testing.T) {
	tests := []struct {
		name     string
		redirect string
		want     string
	}{
		{"requested page", "/events/3", "/events/3"},
		{"role home", "", "/dashboard/customer"},
		{"external target ignored", "https://evil.example/steal", "/dashboard/customer"},
		{"protocol relative ignored", "//evil.example", "/dashboard/customer"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFakeBackend()
			f.loginFn = func(ctx context.Context, creds domain.Credentials) (*domain.AuthResult, error) {
				if creds.Email != "ana@example.com" || creds.Password != "secret1" {
					t.Fatalf("unexpected credentials: %+v", creds)
				}
				return &domain.AuthResult{
					User:  &domain.User{ID: 1, Email: creds.Email, Role: domain.RoleCustomer},
					Token: "fresh-token",
				}, nil
			}
			h := NewAuthHandler(newScopes(f))

			c, rec := newContext(request{
				method: http.MethodPost,
				target: "/auth/login",
				form:   url.Values{"email": {" ana@example.com "}, "password": {"secret1"}, "redirect": {tt.redirect}},
			})
			if err := h.Login(c); err != nil {
				t.Fatalf("handler error: %v", err)
			}
			expectRedirect(t, rec, tt.want)

			ck := cookie(rec, tokenstore.CookieName)
			if ck == nil || ck.Value != "fresh-token" || !ck.HttpOnly {
				t.Fatalf("expected access token cookie, got %+v", ck)
			}
		})
	}
}

func TestAuthHandler_Login_Rejected(t *testing.T) {
	f := newFakeBackend()
	f.loginFn = func(context.Context, domain.Credentials) (*domain.AuthResult, error) {
		return nil, domain.ErrUnauthorized
	}
	h := NewAuthHandler(newScopes(f))

	c, rec := newContext(request{
		method: http.MethodPost,
		target: "/auth/login",
		json:   `{"email":"ana@example.com","password":"wrong-password"}`,
	})
	if err := h.Login(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if cookie(rec, tokenstore.CookieName) != nil {
		t.Fatalf("rejected login must not set a cookie")
	}
}

func TestAuthHandler_Login_ValidationSkipsBackend(t *testing.T) {
	f := newFakeBackend()
	h := NewAuthHandler(newScopes(f))

	c, _ := newContext(request{
		method: http.MethodPost,
		target: "/auth/login",
		form:   url.Values{"email": {"not-an-email"}, "password": {"x"}},
	})
	err := h.Login(c)

	var ve *domain.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if ve.Fields["email"] == "" || ve.Fields["password"] == "" {
		t.Fatalf("expected email and password messages, got %+v", ve.Fields)
	}
	if f.called("login") {
		t.Fatalf("invalid form must not reach the backend")
	}
}

func TestAuthHandler_Login_InvalidPayload(t *testing.T) {
	h := NewAuthHandler(newScopes(newFakeBackend()))

	c, rec := newContext(request{method: http.MethodPost, target: "/auth/login", json: "{"})
	_ = h.Login(c)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestAuthHandler_Register_NewOrganizer(t *testing.T) {
	f := newFakeBackend()
	f.registerFn = func(ctx context.Context, r domain.Registration) (*domain.AuthResult, error) {
		if r.Role != domain.RoleOrganizer {
			t.Fatalf("expected normalized role, got %q", r.Role)
		}
		return &domain.AuthResult{User: &domain.User{ID: 9, Email: r.Email, Role: r.Role}, Token: "org-token"}, nil
	}
	h := NewAuthHandler(newScopes(f))

	c, rec := newContext(request{
		method: http.MethodPost,
		target: "/auth/register",
		json:   `{"first_name":"Citra","last_name":"Dewi","email":"citra@example.com","password":"secret1","role":"organizer"}`,
	})
	if err := h.Register(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	expectRedirect(t, rec, "/dashboard/organizer")
	if ck := cookie(rec, FlashCookie); ck == nil {
		t.Fatalf("unverified sign-up should leave a verification notice")
	}
}

func TestAuthHandler_Logout(t *testing.T) {
	f := newFakeBackend()
	h := NewAuthHandler(newScopes(f))

	c, rec := newContext(request{method: http.MethodPost, target: "/auth/logout", token: customerToken})
	if err := h.Logout(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	expectRedirect(t, rec, "/")
	if ck := cookie(rec, tokenstore.CookieName); ck == nil || ck.MaxAge >= 0 {
		t.Fatalf("expected access token cookie to be expired, got %+v", ck)
	}
	if len(f.calls) != 0 {
		t.Fatalf("logout must not call the backend, got %v", f.calls)
	}
}

func TestAuthHandler_VerifyEmail(t *testing.T) {
	f := newFakeBackend()
	seedUsers(f)
	f.verifyFn = func(ctx context.Context, email string) error {
		if email != "budi+events@example.com" {
			t.Fatalf("expected unescaped email, got %q", email)
		}
		return nil
	}
	h := NewAuthHandler(newScopes(f))

	c, rec := newContext(request{
		method: http.MethodGet,
		target: "/verify-email/budi%2Bevents%40example.com",
		token:  unverifiedToken,
		params: map[string]string{"email": "budi%2Bevents%40example.com"},
	})
	if err := h.VerifyEmail(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	expectRedirect(t, rec, "/profile")
	if !f.called("me") {
		t.Fatalf("verification should refresh the profile")
	}
}

func TestAuthHandler_VerifyEmail_Failure(t *testing.T) {
	f := newFakeBackend()
	f.verifyFn = func(context.Context, string) error {
		return &domain.APIError{Status: http.StatusBadRequest, Message: "invalid link"}
	}
	h := NewAuthHandler(newScopes(f))

	c, rec := newContext(request{
		method: http.MethodGet,
		target: "/verify-email/x",
		params: map[string]string{"email": "x"},
	})
	if err := h.VerifyEmail(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	expectRedirect(t, rec, "/verify-notice")
}

func TestAuthHandler_ResendVerification_RequiresLogin(t *testing.T) {
	f := newFakeBackend()
	h := NewAuthHandler(newScopes(f))

	c, rec := newContext(request{method: http.MethodPost, target: "/users/resend-verification"})
	if err := h.ResendVerification(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	expectRedirect(t, rec, "/auth/login?redirect=%2Fverify-notice")
	if f.called("resend") {
		t.Fatalf("anonymous caller must not reach the backend")
	}
}
