// Package tokenstore persists the backend access token for a front end.
package tokenstore

import (
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
)

// CookieName is the cookie that carries the access token.
const CookieName = "access_token"

// CookieOptions configure the access-token cookie.
type CookieOptions struct {
	Name   string
	Path   string
	Secure bool
	MaxAge time.Duration
}

func (o CookieOptions) withDefaults() CookieOptions {
	if o.Name == "" {
		o.Name = CookieName
	}
	if o.Path == "" {
		o.Path = "/"
	}
	if o.MaxAge <= 0 {
		o.MaxAge = 24 * time.Hour
	}
	return o
}

// Cookie is a token store scoped to one HTTP request. Reads see the request
// cookie until the handler writes; afterwards they see what was written.
type Cookie struct {
	c    echo.Context
	opts CookieOptions

	mu      sync.Mutex
	written bool
	token   string
}

// NewCookie binds a store to the request behind c.
func NewCookie(c echo.Context, opts CookieOptions) *Cookie {
	return &Cookie{c: c, opts: opts.withDefaults()}
}

func (s *Cookie) Token() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.written {
		return s.token, s.token != ""
	}
	ck, err := s.c.Cookie(s.opts.Name)
	if err != nil || ck.Value == "" {
		return "", false
	}
	return ck.Value, true
}

func (s *Cookie) SetToken(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.c.SetCookie(&http.Cookie{
		Name:     s.opts.Name,
		Value:    token,
		Path:     s.opts.Path,
		MaxAge:   int(s.opts.MaxAge / time.Second),
		HttpOnly: true,
		Secure:   s.opts.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	s.written, s.token = true, token
	return nil
}

func (s *Cookie) ClearToken() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.c.SetCookie(&http.Cookie{
		Name:     s.opts.Name,
		Value:    "",
		Path:     s.opts.Path,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.opts.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	s.written, s.token = true, ""
	return nil
}
