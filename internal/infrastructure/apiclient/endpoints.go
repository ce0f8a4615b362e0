package apiclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/evently/evently-web/internal/core/domain"
	"github.com/evently/evently-web/internal/core/search"
)

// Login calls POST /auth/login.
func (c *Client) Login(ctx context.Context, creds domain.Credentials) (*domain.AuthResult, error) {
	if err := domain.Validate(creds); err != nil {
		return nil, err
	}
	var out domain.AuthResult
	err := c.do(ctx, call{method: http.MethodPost, route: "/auth/login", path: "/auth/login", body: creds, out: &out})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Register calls POST /auth/register.
func (c *Client) Register(ctx context.Context, reg domain.Registration) (*domain.AuthResult, error) {
	if err := domain.Validate(reg); err != nil {
		return nil, err
	}
	var out domain.AuthResult
	err := c.do(ctx, call{method: http.MethodPost, route: "/auth/register", path: "/auth/register", body: reg, out: &out})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Me calls GET /users/me.
func (c *Client) Me(ctx context.Context) (*domain.User, error) {
	var out domain.User
	if err := c.do(ctx, call{method: http.MethodGet, route: "/users/me", path: "/users/me", out: &out}); err != nil {
		return nil, err
	}
	return &out, nil
}

// ResendVerification calls POST /users/resend-verification.
func (c *Client) ResendVerification(ctx context.Context) error {
	return c.do(ctx, call{method: http.MethodPost, route: "/users/resend-verification", path: "/users/resend-verification"})
}

// VerifyEmail calls GET /users/verify-email/:email.
func (c *Client) VerifyEmail(ctx context.Context, email string) error {
	return c.do(ctx, call{
		method: http.MethodGet,
		route:  "/users/verify-email/:email",
		path:   "/users/verify-email/" + url.PathEscape(email),
	})
}

// Rewards calls GET /users/rewards.
func (c *Client) Rewards(ctx context.Context) (*domain.Rewards, error) {
	var out domain.Rewards
	if err := c.do(ctx, call{method: http.MethodGet, route: "/users/rewards", path: "/users/rewards", out: &out}); err != nil {
		return nil, err
	}
	return &out, nil
}

// SearchEvents calls GET /events, adding ?search= for a non-blank query.
func (c *Client) SearchEvents(ctx context.Context, query string) ([]domain.Event, error) {
	var out []domain.Event
	if err := c.do(ctx, call{method: http.MethodGet, route: "/events", path: search.QueryPath(query), out: &out}); err != nil {
		return nil, err
	}
	if out == nil {
		out = []domain.Event{}
	}
	return out, nil
}

// GetEvent calls GET /events/:id.
func (c *Client) GetEvent(ctx context.Context, id int) (*domain.Event, error) {
	var out domain.Event
	if err := c.do(ctx, call{method: http.MethodGet, route: "/events/:id", path: fmt.Sprintf("/events/%d", id), out: &out}); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateEvent calls POST /events.
func (c *Client) CreateEvent(ctx context.Context, in domain.EventInput) (*domain.Event, error) {
	if err := domain.Validate(in); err != nil {
		return nil, err
	}
	var out domain.Event
	if err := c.do(ctx, call{method: http.MethodPost, route: "/events", path: "/events", body: in, out: &out}); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateEvent calls PUT /events/:id.
func (c *Client) UpdateEvent(ctx context.Context, id int, in domain.EventInput) (*domain.Event, error) {
	if err := domain.Validate(in); err != nil {
		return nil, err
	}
	var out domain.Event
	err := c.do(ctx, call{method: http.MethodPut, route: "/events/:id", path: fmt.Sprintf("/events/%d", id), body: in, out: &out})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Attendees calls GET /events/:id/attendees.
func (c *Client) Attendees(ctx context.Context, eventID int) ([]domain.Attendee, error) {
	var out []domain.Attendee
	err := c.do(ctx, call{
		method: http.MethodGet,
		route:  "/events/:id/attendees",
		path:   fmt.Sprintf("/events/%d/attendees", eventID),
		out:    &out,
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// CreateTransaction calls POST /events/:id/transactions. The form's
// idempotency key travels in the Idempotency-Key header.
func (c *Client) CreateTransaction(ctx context.Context, in domain.PurchaseInput) (*domain.Transaction, error) {
	if err := domain.Validate(in); err != nil {
		return nil, err
	}
	var out domain.Transaction
	err := c.do(ctx, call{
		method:  http.MethodPost,
		route:   "/events/:id/transactions",
		path:    fmt.Sprintf("/events/%d/transactions", in.EventID),
		body:    in,
		out:     &out,
		headers: map[string]string{HeaderIdempotencyKey: in.IdempotencyKey},
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// MyTransactions calls GET /transactions/me.
func (c *Client) MyTransactions(ctx context.Context) ([]domain.Transaction, error) {
	var out []domain.Transaction
	if err := c.do(ctx, call{method: http.MethodGet, route: "/transactions/me", path: "/transactions/me", out: &out}); err != nil {
		return nil, err
	}
	return out, nil
}

// GetTransaction calls GET /transactions/:id.
func (c *Client) GetTransaction(ctx context.Context, id int) (*domain.Transaction, error) {
	var out domain.Transaction
	err := c.do(ctx, call{method: http.MethodGet, route: "/transactions/:id", path: fmt.Sprintf("/transactions/%d", id), out: &out})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Ping checks that the backend answers. Client errors such as 401 count as
// alive; transport failures and 5xx do not.
func (c *Client) Ping(ctx context.Context) error {
	err := c.do(ctx, call{method: http.MethodGet, route: "/events", path: "/events"})
	if err == nil {
		return nil
	}
	var apiErr *domain.APIError
	if errors.As(err, &apiErr) {
		if apiErr.Status == 0 || apiErr.Status >= http.StatusInternalServerError {
			return err
		}
		return nil
	}
	if ctx.Err() != nil {
		return err
	}
	return nil
}
