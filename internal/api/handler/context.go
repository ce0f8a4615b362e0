package handler

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/evently/evently-web/internal/core/domain"
)

// requestID returns the id assigned by echo's RequestID middleware, if any.
func requestID(c echo.Context) string {
	if id := c.Response().Header().Get(echo.HeaderXRequestID); id != "" {
		return id
	}
	return c.Request().Header.Get(echo.HeaderXRequestID)
}

// pathID parses a positive integer path parameter. Anything else is a 404
// so probing ids looks the same as a missing record.
func pathID(c echo.Context, name string) (int, error) {
	id, err := strconv.Atoi(c.Param(name))
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%s %q: %w", name, c.Param(name), domain.ErrNotFound)
	}
	return id, nil
}

// localRedirect returns target when it is a path on this site and fallback
// otherwise. It rejects absolute and protocol-relative URLs so the login
// redirect parameter cannot send users elsewhere.
func localRedirect(target, fallback string) string {
	if target == "" || !strings.HasPrefix(target, "/") || strings.HasPrefix(target, "//") || strings.HasPrefix(target, "/\\") {
		return fallback
	}
	u, err := url.Parse(target)
	if err != nil || u.Scheme != "" || u.Host != "" {
		return fallback
	}
	return target
}
