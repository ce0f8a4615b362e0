package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Coupon is a referral reward. Tier thresholds and expiry rules belong to
// the backend; the client only renders what it receives.
type Coupon struct {
	ID        int             `json:"id"`
	Code      string          `json:"code"`
	Discount  decimal.Decimal `json:"discount"`
	ExpiresAt time.Time       `json:"expiresAt"`
}

// CouponSet groups coupons by state.
type CouponSet struct {
	Active  []Coupon `json:"active"`
	Used    []Coupon `json:"used"`
	Expired []Coupon `json:"expired"`
}

// Rewards is the body of GET /users/rewards.
type Rewards struct {
	Coupons CouponSet `json:"coupons"`
}

// Credentials is the login form.
type Credentials struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

// Registration is the sign-up form.
type Registration struct {
	FirstName    string `json:"first_name"             validate:"required"`
	LastName     string `json:"last_name"              validate:"required"`
	Email        string `json:"email"                  validate:"required,email"`
	Password     string `json:"password"               validate:"required,min=6"`
	Role         Role   `json:"role"                   validate:"required,oneof=CUSTOMER ORGANIZER"`
	ReferralCode string `json:"referralCode,omitempty" validate:"omitempty,alphanum"`
}

// AuthResult is the body of POST /auth/login and POST /auth/register.
type AuthResult struct {
	User  *User  `json:"user"`
	Token string `json:"token"`
}
