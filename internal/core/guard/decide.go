// Package guard decides whether a page may render for the current session.
//
// The decision itself (Decide) is a pure function of a session snapshot and
// a page requirement. Guard wraps it with the side effects a mounted page
// needs: hydrating the session, re-evaluating on session changes, and
// performing the redirect exactly once.
package guard

import (
	"net/url"

	"github.com/evently/evently-web/internal/core/access"
	"github.com/evently/evently-web/internal/core/domain"
	"github.com/evently/evently-web/internal/core/ports"
	"github.com/evently/evently-web/internal/core/session"
)

const (
	LoginPath        = "/auth/login"
	UnauthorizedPath = "/unauthorized"
	VerifyNoticePath = "/verify-notice"
)

// State is where a page instance sits in the guard state machine.
type State int

const (
	// StateInitializing: the session has not finished its first profile
	// resolution. Render the loading fallback or nothing.
	StateInitializing State = iota
	// StateEvaluating is the synchronous Decide call itself; a Guard never
	// rests in it.
	StateEvaluating
	// StateRedirecting: navigate away and render nothing more.
	StateRedirecting
	// StateAuthorized: render the page.
	StateAuthorized
)

func (s State) String() string {
	switch s {
	case StateInitializing:
		return "initializing"
	case StateEvaluating:
		return "evaluating"
	case StateRedirecting:
		return "redirecting"
	case StateAuthorized:
		return "authorized"
	}
	return "unknown"
}

// Reason explains a redirect.
type Reason string

const (
	ReasonNone          Reason = ""
	ReasonLoginRequired Reason = "login_required"
	ReasonNoPermission  Reason = "no_permission"
	ReasonUnverified    Reason = "unverified"
)

// Requirement is what a page demands of the session.
type Requirement struct {
	// Path is the page's own path; it becomes the login redirect target.
	Path string
	// AllowedRoles restricts the page to these roles. Empty means any
	// authenticated user.
	AllowedRoles []domain.Role
	// RequireVerified demands a verified email address.
	RequireVerified bool
}

// Equal reports whether two requirements gate identically.
func (r Requirement) Equal(o Requirement) bool {
	if r.Path != o.Path || r.RequireVerified != o.RequireVerified || len(r.AllowedRoles) != len(o.AllowedRoles) {
		return false
	}
	for i := range r.AllowedRoles {
		if r.AllowedRoles[i] != o.AllowedRoles[i] {
			return false
		}
	}
	return true
}

// RequirementFor builds the requirement the access table imposes on path.
// Paths the table does not cover still require a logged-in user.
func RequirementFor(table *access.Table, path string) Requirement {
	req := Requirement{Path: path}
	if rule, ok := table.Lookup(path); ok {
		req.AllowedRoles = append([]domain.Role(nil), rule.Roles...)
		req.RequireVerified = rule.RequireVerified
	}
	return req
}

// Decision is the outcome of one evaluation.
type Decision struct {
	State  State
	Target string
	Reason Reason
}

// Renders reports whether the page's children should be rendered.
func (d Decision) Renders() bool { return d.State == StateAuthorized }

// Notice is the user-facing message that accompanies a redirect.
func (d Decision) Notice() (ports.NoticeLevel, string, bool) {
	switch d.Reason {
	case ReasonLoginRequired:
		return ports.NoticeWarning, "Please log in to continue.", true
	case ReasonNoPermission:
		return ports.NoticeError, "You do not have permission to view that page.", true
	case ReasonUnverified:
		return ports.NoticeWarning, "Please verify your email address first.", true
	}
	return "", "", false
}

// LoginTarget is the login page URL that returns to path afterwards.
func LoginTarget(path string) string {
	return LoginPath + "?redirect=" + url.QueryEscape(path)
}

// Decide maps a session snapshot and a requirement to a decision. It has no
// side effects.
func Decide(snap session.Snapshot, req Requirement) Decision {
	if !snap.Hydrated {
		return Decision{State: StateInitializing}
	}
	user := snap.User
	if user == nil {
		return Decision{State: StateRedirecting, Target: LoginTarget(req.Path), Reason: ReasonLoginRequired}
	}
	if len(req.AllowedRoles) > 0 && !user.HasRole(req.AllowedRoles...) {
		return Decision{State: StateRedirecting, Target: UnauthorizedPath, Reason: ReasonNoPermission}
	}
	if req.RequireVerified && !user.IsVerified {
		return Decision{State: StateRedirecting, Target: VerifyNoticePath, Reason: ReasonUnverified}
	}
	return Decision{State: StateAuthorized}
}
