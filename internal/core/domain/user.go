package domain

import (
	"fmt"
	"strings"
)

// Role is the closed set of account roles the backend issues.
type Role string

const (
	RoleCustomer  Role = "CUSTOMER"
	RoleOrganizer Role = "ORGANIZER"
)

// Roles lists every valid role.
var Roles = []Role{RoleCustomer, RoleOrganizer}

// ParseRole converts a raw role claim into a Role. Matching is
// case-insensitive; anything outside the enum is rejected.
func ParseRole(s string) (Role, error) {
	switch Role(strings.ToUpper(strings.TrimSpace(s))) {
	case RoleCustomer:
		return RoleCustomer, nil
	case RoleOrganizer:
		return RoleOrganizer, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidRole, s)
}

// Valid reports whether r is a member of the enum.
func (r Role) Valid() bool {
	return r == RoleCustomer || r == RoleOrganizer
}

// HomePath is where a freshly logged-in user of this role lands.
func (r Role) HomePath() string {
	switch r {
	case RoleOrganizer:
		return "/dashboard/organizer"
	case RoleCustomer:
		return "/dashboard/customer"
	}
	return "/"
}

// User is the profile returned by GET /users/me and the auth endpoints.
type User struct {
	ID           int     `json:"id"`
	FirstName    string  `json:"first_name"`
	LastName     string  `json:"last_name"`
	Email        string  `json:"email"`
	Role         Role    `json:"role"`
	IsVerified   bool    `json:"isVerified"`
	ReferralCode *string `json:"referralCode,omitempty"`
	UserPoints   int     `json:"userPoints"`
}

// FullName joins first and last name, skipping empty parts.
func (u *User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// HasRole reports whether the user's role is one of roles.
func (u *User) HasRole(roles ...Role) bool {
	for _, r := range roles {
		if u.Role == r {
			return true
		}
	}
	return false
}
