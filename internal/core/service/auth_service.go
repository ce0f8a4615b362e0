package service

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/evently/evently-web/internal/core/domain"
	"github.com/evently/evently-web/internal/core/ports"
	"github.com/evently/evently-web/internal/core/session"
)

// AuthService implements login, registration, logout and email
// verification on top of the backend and one session store.
type AuthService struct {
	auth  ports.AuthAPI
	users ports.UserAPI
	store *session.Store
	log   zerolog.Logger
}

func NewAuthService(auth ports.AuthAPI, users ports.UserAPI, store *session.Store, log zerolog.Logger) *AuthService {
	return &AuthService{auth: auth, users: users, store: store, log: log}
}

// Login validates the form, authenticates against the backend and replaces
// the session identity with the result.
func (s *AuthService) Login(ctx context.Context, creds domain.Credentials) (*domain.User, error) {
	creds.Email = strings.TrimSpace(creds.Email)
	if err := domain.Validate(creds); err != nil {
		return nil, err
	}

	res, err := s.auth.Login(ctx, creds)
	if err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	if err := s.establish(res); err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}

	s.log.Info().Int("user_id", res.User.ID).Str("role", string(res.User.Role)).Msg("user logged in")
	return res.User, nil
}

// Register validates the sign-up form, creates the account and logs the
// new user in.
func (s *AuthService) Register(ctx context.Context, reg domain.Registration) (*domain.User, error) {
	reg.Email = strings.TrimSpace(reg.Email)
	reg.ReferralCode = strings.TrimSpace(reg.ReferralCode)
	if role, err := domain.ParseRole(string(reg.Role)); err == nil {
		reg.Role = role
	}
	if err := domain.Validate(reg); err != nil {
		return nil, err
	}

	res, err := s.auth.Register(ctx, reg)
	if err != nil {
		return nil, fmt.Errorf("register: %w", err)
	}
	if err := s.establish(res); err != nil {
		return nil, fmt.Errorf("register: %w", err)
	}

	s.log.Info().Int("user_id", res.User.ID).Str("role", string(res.User.Role)).Msg("user registered")
	return res.User, nil
}

// Logout forgets the session locally. The backend keeps no session state,
// so there is nothing to call.
func (s *AuthService) Logout() {
	s.store.Logout()
}

// ResendVerification asks the backend to send a new verification email.
func (s *AuthService) ResendVerification(ctx context.Context) error {
	if err := s.users.ResendVerification(ctx); err != nil {
		return fmt.Errorf("resend verification: %w", err)
	}
	return nil
}

// VerifyEmail confirms email and, when a session exists, refreshes the
// profile so IsVerified flips without a new login.
func (s *AuthService) VerifyEmail(ctx context.Context, email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return &domain.ValidationError{Fields: map[string]string{"email": "email is required"}}
	}
	if err := s.users.VerifyEmail(ctx, email); err != nil {
		return fmt.Errorf("verify email: %w", err)
	}
	if s.store.Get().Token != "" {
		if err := s.store.RefreshProfile(ctx); err != nil {
			s.log.Warn().Err(err).Msg("profile refresh after verification failed")
		}
	}
	return nil
}

func (s *AuthService) establish(res *domain.AuthResult) error {
	if res == nil || res.User == nil || res.Token == "" {
		return &domain.APIError{Status: http.StatusBadGateway, Message: "auth response missing user or token"}
	}
	if !res.User.Role.Valid() {
		return fmt.Errorf("%w: %q", domain.ErrInvalidRole, res.User.Role)
	}
	return s.store.Login(res.User, res.Token)
}
