package handler

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/labstack/echo/v4"

	"github.com/evently/evently-web/internal/api/metrics"
	"github.com/evently/evently-web/internal/core/domain"
	"github.com/evently/evently-web/internal/core/guard"
	"github.com/evently/evently-web/internal/core/ports"
)

type AuthHandler struct {
	scopes *Scopes
}

func NewAuthHandler(scopes *Scopes) *AuthHandler {
	return &AuthHandler{scopes: scopes}
}

type loginRequest struct {
	Email    string `json:"email"    form:"email"`
	Password string `json:"password" form:"password"`
	Redirect string `json:"redirect" form:"redirect" query:"redirect"`
}

type registerRequest struct {
	FirstName    string `json:"first_name"   form:"first_name"`
	LastName     string `json:"last_name"    form:"last_name"`
	Email        string `json:"email"        form:"email"`
	Password     string `json:"password"     form:"password"`
	Role         string `json:"role"         form:"role"`
	ReferralCode string `json:"referralCode" form:"referralCode"`
}

type loginPage struct {
	Redirect string  `json:"redirect,omitempty"`
	Notice   *Notice `json:"notice,omitempty"`
}

type noticePage struct {
	Message string       `json:"message"`
	Notice  *Notice      `json:"notice,omitempty"`
	User    *domain.User `json:"user,omitempty"`
}

// LoginPage renders the login form model. A caller who is already logged in
// is sent on to where they were going.
func (h *AuthHandler) LoginPage(c echo.Context) error {
	sc := h.scopes.For(c)
	redirect := c.QueryParam("redirect")

	if snap := sc.store.Hydrate(sc.ctx()); snap.User != nil {
		return c.Redirect(http.StatusSeeOther, localRedirect(redirect, snap.User.Role.HomePath()))
	}
	return c.JSON(http.StatusOK, loginPage{
		Redirect: localRedirect(redirect, ""),
		Notice:   takeFlash(c),
	})
}

// Login authenticates against the backend, sets the access-token cookie
// and redirects to the requested page or the role's home.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid payload"})
	}

	sc := h.scopes.For(c)
	user, err := sc.auth.Login(sc.ctx(), domain.Credentials{Email: req.Email, Password: req.Password})
	if err != nil {
		return authFailure(c, "login", err)
	}

	metrics.LoginAttemptsTotal.WithLabelValues("login", "ok").Inc()
	return c.Redirect(http.StatusSeeOther, localRedirect(req.Redirect, user.Role.HomePath()))
}

// Register creates the account, logs the new user in and redirects to the
// role's home.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid payload"})
	}

	sc := h.scopes.For(c)
	user, err := sc.auth.Register(sc.ctx(), domain.Registration{
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Email:        req.Email,
		Password:     req.Password,
		Role:         domain.Role(req.Role),
		ReferralCode: req.ReferralCode,
	})
	if err != nil {
		return authFailure(c, "register", err)
	}

	metrics.LoginAttemptsTotal.WithLabelValues("register", "ok").Inc()
	if !user.IsVerified {
		sc.flash.Notify(ports.NoticeInfo, "Welcome! Check your inbox to verify your email address.")
	}
	return c.Redirect(http.StatusSeeOther, user.Role.HomePath())
}

// authFailure renders a rejected login or registration. A 401 here means
// bad credentials, not an expired session, so it is answered directly
// instead of redirecting.
func authFailure(c echo.Context, action string, err error) error {
	var ve *domain.ValidationError
	switch {
	case errors.As(err, &ve):
		metrics.LoginAttemptsTotal.WithLabelValues(action, "invalid").Inc()
		return err
	case errors.Is(err, domain.ErrUnauthorized):
		metrics.LoginAttemptsTotal.WithLabelValues(action, "rejected").Inc()
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "invalid email or password"})
	}
	metrics.LoginAttemptsTotal.WithLabelValues(action, "error").Inc()
	return err
}

// Logout clears the session and returns to the home page.
func (h *AuthHandler) Logout(c echo.Context) error {
	sc := h.scopes.For(c)
	sc.auth.Logout()
	sc.flash.Notify(ports.NoticeInfo, "You have been logged out.")
	return c.Redirect(http.StatusSeeOther, "/")
}

// Unauthorized is where role mismatches land.
func (h *AuthHandler) Unauthorized(c echo.Context) error {
	return c.JSON(http.StatusOK, noticePage{
		Message: "You do not have permission to view that page.",
		Notice:  takeFlash(c),
	})
}

// VerifyNotice asks the user to verify their email address.
func (h *AuthHandler) VerifyNotice(c echo.Context) error {
	sc := h.scopes.For(c)
	snap := sc.store.Hydrate(sc.ctx())
	return c.JSON(http.StatusOK, noticePage{
		Message: "Please verify your email address to continue.",
		Notice:  takeFlash(c),
		User:    snap.User,
	})
}

// ResendVerification asks the backend to send another verification email.
func (h *AuthHandler) ResendVerification(c echo.Context) error {
	sc := h.scopes.For(c)
	if _, ok, err := sc.gate(guard.Requirement{Path: guard.VerifyNoticePath}); !ok {
		return err
	}
	if err := sc.auth.ResendVerification(sc.ctx()); err != nil {
		return err
	}
	return c.JSON(http.StatusAccepted, map[string]string{"status": "sent"})
}

// VerifyEmail follows the link from the verification email.
func (h *AuthHandler) VerifyEmail(c echo.Context) error {
	email, err := url.PathUnescape(c.Param("email"))
	if err != nil {
		email = c.Param("email")
	}

	sc := h.scopes.For(c)
	if err := sc.auth.VerifyEmail(sc.ctx(), email); err != nil {
		sc.log.Warn().Err(err).Msg("email verification failed")
		sc.flash.Notify(ports.NoticeError, "That verification link is invalid or has expired.")
		return c.Redirect(http.StatusSeeOther, guard.VerifyNoticePath)
	}
	sc.flash.Notify(ports.NoticeInfo, "Your email address is verified.")
	return c.Redirect(http.StatusSeeOther, "/profile")
}
