package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/evently/evently-web/internal/core/domain"
	"github.com/evently/evently-web/internal/core/guard"
)

// RequireRoles restricts a route outside the access table to allowedRoles.
// It reuses a role already decoded by RouteGuard and otherwise decodes the
// cookie itself.
func RequireRoles(cfg EdgeConfig, allowedRoles ...domain.Role) echo.MiddlewareFunc {
	cfg = cfg.withDefaults()
	allowed := make(map[domain.Role]struct{}, len(allowedRoles))
	for _, r := range allowedRoles {
		allowed[r] = struct{}{}
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			role, ok := c.Get(RoleKey).(domain.Role)
			if !ok {
				var err error
				if role, err = cfg.tokenRole(c); err != nil {
					return redirect(c, reasonFor(err), guard.LoginTarget(c.Request().URL.Path))
				}
				c.Set(RoleKey, role)
			}
			if _, ok := allowed[role]; !ok {
				return redirect(c, "no_permission", guard.UnauthorizedPath)
			}
			return next(c)
		}
	}
}
