package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/evently/evently-web/internal/core/domain"
	"github.com/evently/evently-web/internal/core/guard"
)

// errorResponse is the canonical error envelope for all API errors.
type errorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

// NewHTTPErrorHandler returns an echo.HTTPErrorHandler that:
//   - Redirects authorization failures instead of rendering an error page.
//   - Maps known domain errors to their appropriate HTTP status codes.
//   - Logs unexpected errors internally without leaking details to the client.
//   - Renders a consistent JSON envelope: {"error": "<message>"}.
func NewHTTPErrorHandler(log zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		switch {
		case errors.Is(err, domain.ErrUnauthorized):
			_ = c.Redirect(http.StatusSeeOther, guard.LoginTarget(c.Request().URL.Path))
			return
		case errors.Is(err, domain.ErrForbidden):
			_ = c.Redirect(http.StatusSeeOther, guard.UnauthorizedPath)
			return
		}

		code, resp := resolveError(err, log, c)
		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(code)
			return
		}
		_ = c.JSON(code, resp)
	}
}

func resolveError(err error, log zerolog.Logger, c echo.Context) (int, errorResponse) {
	// Echo's own errors (bind failures, 404 from router, etc.)
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code, errorResponse{Error: fmt.Sprintf("%v", he.Message)}
	}

	var ve *domain.ValidationError
	if errors.As(err, &ve) {
		return http.StatusUnprocessableEntity, errorResponse{Error: ve.Error(), Fields: ve.Fields}
	}

	// Known domain errors → deterministic HTTP codes.
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, errorResponse{Error: "not found"}
	case errors.Is(err, domain.ErrDuplicateSubmission):
		return http.StatusConflict, errorResponse{Error: "this form was already submitted"}
	case errors.Is(err, domain.ErrInvalidRole):
		log.Warn().Err(err).Str("path", c.Path()).Msg("backend returned an unknown role")
		return http.StatusBadGateway, errorResponse{Error: "backend returned an invalid account"}
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, errorResponse{Error: "backend timed out"}
	}

	var ae *domain.APIError
	if errors.As(err, &ae) {
		if ae.Status >= 400 && ae.Status < 500 && ae.Status != http.StatusTooManyRequests {
			msg := ae.Message
			if msg == "" {
				msg = http.StatusText(ae.Status)
			}
			return ae.Status, errorResponse{Error: msg}
		}
		log.Warn().Err(err).Str("method", c.Request().Method).Str("path", c.Path()).Msg("backend unavailable")
		return http.StatusBadGateway, errorResponse{Error: "backend unavailable, please try again"}
	}

	// Unexpected error: log the real cause, return a generic message.
	log.Error().
		Err(err).
		Str("method", c.Request().Method).
		Str("path", c.Path()).
		Msg("unhandled error")

	return http.StatusInternalServerError, errorResponse{Error: "internal server error"}
}
