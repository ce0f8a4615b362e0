package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/evently/evently-web/internal/core/domain"
)

type ProfileHandler struct {
	scopes *Scopes
}

func NewProfileHandler(scopes *Scopes) *ProfileHandler {
	return &ProfileHandler{scopes: scopes}
}

type profilePage struct {
	User         *domain.User `json:"user"`
	FullName     string       `json:"full_name"`
	ReferralCode string       `json:"referral_code,omitempty"`
	Points       int          `json:"points"`
	Notice       *Notice      `json:"notice,omitempty"`
}

// Show handles GET /profile.
func (h *ProfileHandler) Show(c echo.Context) error {
	sc := h.scopes.For(c)
	snap, ok, err := sc.gatePath()
	if !ok {
		return err
	}

	u := snap.User
	page := profilePage{User: u, FullName: u.FullName(), Points: u.UserPoints, Notice: takeFlash(c)}
	if u.ReferralCode != nil {
		page.ReferralCode = *u.ReferralCode
	}
	return c.JSON(http.StatusOK, page)
}
