package ports

import (
	"context"

	"github.com/evently/evently-web/internal/core/domain"
)

// AuthAPI covers the backend's unauthenticated auth endpoints.
type AuthAPI interface {
	Login(ctx context.Context, creds domain.Credentials) (*domain.AuthResult, error)
	Register(ctx context.Context, reg domain.Registration) (*domain.AuthResult, error)
}

// ProfileFetcher resolves the caller's identity (GET /users/me). It returns
// domain.ErrUnauthorized for a 401 and any other error for everything else;
// callers that only care about "is there a user" treat both the same.
type ProfileFetcher interface {
	Me(ctx context.Context) (*domain.User, error)
}

// UserAPI covers the authenticated /users endpoints.
type UserAPI interface {
	ProfileFetcher
	ResendVerification(ctx context.Context) error
	VerifyEmail(ctx context.Context, email string) error
	Rewards(ctx context.Context) (*domain.Rewards, error)
}

// EventSearcher runs one remote event query. An empty query lists everything.
type EventSearcher interface {
	SearchEvents(ctx context.Context, query string) ([]domain.Event, error)
}

// EventAPI covers the /events endpoints.
type EventAPI interface {
	EventSearcher
	GetEvent(ctx context.Context, id int) (*domain.Event, error)
	CreateEvent(ctx context.Context, in domain.EventInput) (*domain.Event, error)
	UpdateEvent(ctx context.Context, id int, in domain.EventInput) (*domain.Event, error)
	Attendees(ctx context.Context, eventID int) ([]domain.Attendee, error)
}

// TransactionAPI covers ticket purchases and purchase history.
type TransactionAPI interface {
	CreateTransaction(ctx context.Context, in domain.PurchaseInput) (*domain.Transaction, error)
	MyTransactions(ctx context.Context) ([]domain.Transaction, error)
	GetTransaction(ctx context.Context, id int) (*domain.Transaction, error)
}

// Backend is everything the front ends consume from the REST API.
type Backend interface {
	AuthAPI
	UserAPI
	EventAPI
	TransactionAPI
}
