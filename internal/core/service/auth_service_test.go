package service

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"github.com/evently/evently-web/internal/core/domain"
	"github.com/evently/evently-web/internal/core/session"
)

func newAuthSvc(b *stubBackend, tokens *memTokens) (*AuthService, *session.Store) {
	store := session.NewStore(b, tokens, zerolog.Nop())
	return NewAuthService(b, b, store, zerolog.Nop()), store
}

func TestAuthService_Login_Success(t *testing.T) {
	b := &stubBackend{loginFn: func(_ context.Context, c domain.Credentials) (*domain.AuthResult, error) {
		if c.Email != "carol@example.com" {
			t.Fatalf("email not trimmed: %q", c.Email)
		}
		return &domain.AuthResult{User: &domain.User{ID: 7, Role: domain.RoleOrganizer}, Token: "tkn"}, nil
	}}
	tokens := &memTokens{}
	svc, store := newAuthSvc(b, tokens)

	user, err := svc.Login(context.Background(), domain.Credentials{Email: " carol@example.com ", Password: "s3cret"})
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if user.ID != 7 {
		t.Fatalf("unexpected user: %+v", user)
	}
	if tok, _ := tokens.Token(); tok != "tkn" {
		t.Fatalf("expected token persisted, got %q", tok)
	}
	snap := store.Get()
	if !snap.Hydrated || snap.User == nil || snap.User.Role != domain.RoleOrganizer {
		t.Fatalf("session not established: %+v", snap)
	}
}

func TestAuthService_Login_ValidationSkipsBackend(t *testing.T) {
	b := &stubBackend{}
	svc, _ := newAuthSvc(b, &memTokens{})

	_, err := svc.Login(context.Background(), domain.Credentials{Email: "not-an-email", Password: "123"})
	var verr *domain.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if verr.Fields["email"] == "" || verr.Fields["password"] == "" {
		t.Fatalf("expected email and password messages, got %v", verr.Fields)
	}
	if len(b.Calls()) != 0 {
		t.Fatalf("invalid form must not reach the backend: %v", b.Calls())
	}
}

func TestAuthService_Login_Unauthorized(t *testing.T) {
	b := &stubBackend{loginFn: func(context.Context, domain.Credentials) (*domain.AuthResult, error) {
		return nil, domain.ErrUnauthorized
	}}
	svc, store := newAuthSvc(b, &memTokens{})

	_, err := svc.Login(context.Background(), domain.Credentials{Email: "dave@example.com", Password: "badpass"})
	if !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if store.Get().User != nil {
		t.Fatalf("failed login must not set a user")
	}
}

func TestAuthService_Login_IncompleteResponse(t *testing.T) {
	b := &stubBackend{loginFn: func(context.Context, domain.Credentials) (*domain.AuthResult, error) {
		return &domain.AuthResult{User: &domain.User{ID: 1, Role: domain.RoleCustomer}}, nil
	}}
	svc, _ := newAuthSvc(b, &memTokens{})

	_, err := svc.Login(context.Background(), domain.Credentials{Email: "a@example.com", Password: "secret1"})
	var apiErr *domain.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError for missing token, got %v", err)
	}
}

func TestAuthService_Register_NormalizesRole(t *testing.T) {
	var sent domain.Registration
	b := &stubBackend{registerFn: func(_ context.Context, r domain.Registration) (*domain.AuthResult, error) {
		sent = r
		return &domain.AuthResult{User: &domain.User{ID: 2, Role: r.Role}, Token: "t2"}, nil
	}}
	svc, store := newAuthSvc(b, &memTokens{})

	_, err := svc.Register(context.Background(), domain.Registration{
		FirstName: "Ana", LastName: "Putri", Email: "ana@example.com", Password: "secret1", Role: "customer",
	})
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if sent.Role != domain.RoleCustomer {
		t.Fatalf("expected normalized role, got %q", sent.Role)
	}
	if store.Get().User == nil {
		t.Fatalf("registration must log the user in")
	}
}

func TestAuthService_Register_Validation(t *testing.T) {
	b := &stubBackend{}
	svc, _ := newAuthSvc(b, &memTokens{})

	_, err := svc.Register(context.Background(), domain.Registration{
		FirstName: "Ana", LastName: "Putri", Email: "ana@example.com", Password: "secret1", Role: "ADMIN",
	})
	var verr *domain.ValidationError
	if !errors.As(err, &verr) || verr.Fields["role"] == "" {
		t.Fatalf("expected role validation error, got %v", err)
	}
}

func TestAuthService_Logout(t *testing.T) {
	tokens := &memTokens{token: "tkn"}
	b := &stubBackend{}
	svc, store := newAuthSvc(b, tokens)
	_ = store.Login(&domain.User{ID: 1, Role: domain.RoleCustomer}, "tkn")

	svc.Logout()

	if _, ok := tokens.Token(); ok {
		t.Fatalf("token must be cleared")
	}
	if snap := store.Get(); snap.User != nil || !snap.Hydrated {
		t.Fatalf("unexpected snapshot after logout: %+v", snap)
	}
	if calls := b.Calls(); len(calls) != 0 {
		t.Fatalf("logout must not call the backend, got %v", calls)
	}
}

func TestAuthService_VerifyEmail_RefreshesProfile(t *testing.T) {
	verified := false
	b := &stubBackend{
		verifyFn: func(context.Context, string) error { verified = true; return nil },
		meFn: func(context.Context) (*domain.User, error) {
			return &domain.User{ID: 1, Role: domain.RoleCustomer, IsVerified: verified}, nil
		},
	}
	tokens := &memTokens{}
	svc, store := newAuthSvc(b, tokens)
	_ = store.Login(&domain.User{ID: 1, Role: domain.RoleCustomer}, "tkn")

	if err := svc.VerifyEmail(context.Background(), "ana@example.com"); err != nil {
		t.Fatalf("verify failed: %v", err)
	}
	if u := store.Get().User; u == nil || !u.IsVerified {
		t.Fatalf("expected refreshed verified user, got %+v", u)
	}
}

func TestAuthService_VerifyEmail_Empty(t *testing.T) {
	svc, _ := newAuthSvc(&stubBackend{}, &memTokens{})
	var verr *domain.ValidationError
	if err := svc.VerifyEmail(context.Background(), "  "); !errors.As(err, &verr) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
