// Package middleware holds the edge layer of the front end: it turns requests
// away before a page handler runs, using only the access-token cookie.
package middleware

import (
	"errors"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"

	"github.com/evently/evently-web/internal/api/metrics"
	"github.com/evently/evently-web/internal/core/access"
	"github.com/evently/evently-web/internal/core/domain"
	"github.com/evently/evently-web/internal/core/guard"
	"github.com/evently/evently-web/internal/infrastructure/tokenstore"
)

// RoleKey is the echo context key the edge layer stores the decoded role under.
const RoleKey = "role"

var (
	errMissingToken = errors.New("missing access token")
	errInvalidToken = errors.New("invalid access token")
)

// accessClaims is the part of the backend's access token the edge reads.
type accessClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// EdgeConfig configures token decoding at the edge.
type EdgeConfig struct {
	// Secret verifies the HS256 signature. When empty the token is decoded
	// without verification and only its role and expiry are read; the
	// backend remains the authority on every API call.
	Secret string
	// CookieName defaults to tokenstore.CookieName.
	CookieName string
	// Now defaults to time.Now.
	Now func() time.Time
}

func (cfg EdgeConfig) withDefaults() EdgeConfig {
	if cfg.CookieName == "" {
		cfg.CookieName = tokenstore.CookieName
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return cfg
}

// tokenRole decodes the role claim of the request's access-token cookie.
func (cfg EdgeConfig) tokenRole(c echo.Context) (domain.Role, error) {
	ck, err := c.Cookie(cfg.CookieName)
	if err != nil || ck.Value == "" {
		return "", errMissingToken
	}

	claims := &accessClaims{}
	if cfg.Secret != "" {
		parser := jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithTimeFunc(cfg.Now),
		)
		tkn, err := parser.ParseWithClaims(ck.Value, claims, func(*jwt.Token) (interface{}, error) {
			return []byte(cfg.Secret), nil
		})
		if err != nil || !tkn.Valid {
			return "", errInvalidToken
		}
	} else {
		if _, _, err := jwt.NewParser().ParseUnverified(ck.Value, claims); err != nil {
			return "", errInvalidToken
		}
		if claims.ExpiresAt != nil && !cfg.Now().Before(claims.ExpiresAt.Time) {
			return "", errInvalidToken
		}
	}

	role, err := domain.ParseRole(claims.Role)
	if err != nil {
		return "", errInvalidToken
	}
	return role, nil
}

// RouteGuard enforces the access table before any page handler runs. Paths
// the table does not cover pass through untouched. A missing or undecodable
// token redirects to the login page; a role outside the rule's set
// redirects to the unauthorized page. On success the role is stored under
// RoleKey.
func RouteGuard(table *access.Table, cfg EdgeConfig) echo.MiddlewareFunc {
	cfg = cfg.withDefaults()

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			path := c.Request().URL.Path
			rule, ok := table.Lookup(path)
			if !ok {
				return next(c)
			}

			role, err := cfg.tokenRole(c)
			if err != nil {
				return redirect(c, reasonFor(err), guard.LoginTarget(path))
			}
			if !rule.Allows(role) {
				return redirect(c, "no_permission", guard.UnauthorizedPath)
			}

			c.Set(RoleKey, role)
			return next(c)
		}
	}
}

func reasonFor(err error) string {
	if errors.Is(err, errMissingToken) {
		return "missing_token"
	}
	return "invalid_token"
}

func redirect(c echo.Context, reason, target string) error {
	metrics.EdgeRedirectsTotal.WithLabelValues(reason).Inc()
	return c.Redirect(http.StatusSeeOther, target)
}
