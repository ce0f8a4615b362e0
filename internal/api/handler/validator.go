package handler

import (
	"github.com/evently/evently-web/internal/core/domain"
)

// echoValidator lets Echo call c.Validate(req) with the same rules and
// field messages the services and the backend client apply.
type echoValidator struct {
	validate func(any) error
}

// NewValidator returns an echoValidator ready to be assigned to echo.Echo.Validator.
func NewValidator() *echoValidator {
	return &echoValidator{validate: domain.Validate}
}

// Validate satisfies the echo.Validator interface. Failures are
// *domain.ValidationError so the error handler renders them as 422.
func (ev *echoValidator) Validate(i any) error {
	return ev.validate(i)
}
