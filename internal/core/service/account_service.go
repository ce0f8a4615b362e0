package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/evently/evently-web/internal/core/domain"
	"github.com/evently/evently-web/internal/core/ports"
	"github.com/evently/evently-web/internal/core/session"
)

// CustomerDashboard is the data behind the customer home page.
type CustomerDashboard struct {
	User         *domain.User
	Transactions []domain.Transaction
	Rewards      *domain.Rewards
	// Errors holds per-section failures; the page renders what it has.
	Errors map[string]string
}

// AccountService reads the signed-in user's own data.
type AccountService struct {
	users ports.UserAPI
	txs   ports.TransactionAPI
	store *session.Store
	log   zerolog.Logger
}

func NewAccountService(users ports.UserAPI, txs ports.TransactionAPI, store *session.Store, log zerolog.Logger) *AccountService {
	return &AccountService{users: users, txs: txs, store: store, log: log}
}

// Profile returns the session's user, hydrating it if needed.
func (s *AccountService) Profile(ctx context.Context) (*domain.User, error) {
	snap := s.store.Hydrate(ctx)
	if snap.User == nil {
		return nil, domain.ErrUnauthorized
	}
	return snap.User, nil
}

// Transactions returns the caller's purchase history.
func (s *AccountService) Transactions(ctx context.Context) ([]domain.Transaction, error) {
	out, err := s.txs.MyTransactions(ctx)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return out, nil
}

// Transaction returns one of the caller's purchases.
func (s *AccountService) Transaction(ctx context.Context, id int) (*domain.Transaction, error) {
	if id <= 0 {
		return nil, fmt.Errorf("get transaction %d: %w", id, domain.ErrNotFound)
	}
	tx, err := s.txs.GetTransaction(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get transaction %d: %w", id, err)
	}
	return tx, nil
}

// Rewards returns the caller's coupons grouped by state.
func (s *AccountService) Rewards(ctx context.Context) (*domain.Rewards, error) {
	r, err := s.users.Rewards(ctx)
	if err != nil {
		return nil, fmt.Errorf("get rewards: %w", err)
	}
	return r, nil
}

// CustomerDashboard gathers the customer home page. A failing section is
// reported in Errors instead of failing the page; authorization failures
// are returned so the caller can redirect.
func (s *AccountService) CustomerDashboard(ctx context.Context) (*CustomerDashboard, error) {
	user, err := s.Profile(ctx)
	if err != nil {
		return nil, err
	}
	d := &CustomerDashboard{User: user, Errors: map[string]string{}}

	txs, err := s.Transactions(ctx)
	switch {
	case err == nil:
		d.Transactions = txs
	case isAuthFailure(err):
		return nil, err
	default:
		s.log.Warn().Err(err).Int("user_id", user.ID).Msg("dashboard transactions unavailable")
		d.Errors["transactions"] = "Transactions are unavailable right now."
	}

	rewards, err := s.Rewards(ctx)
	switch {
	case err == nil:
		d.Rewards = rewards
	case isAuthFailure(err):
		return nil, err
	default:
		s.log.Warn().Err(err).Int("user_id", user.ID).Msg("dashboard rewards unavailable")
		d.Errors["rewards"] = "Rewards are unavailable right now."
	}
	return d, nil
}

// isAuthFailure reports errors that mean the session, not the backend, is
// the problem.
func isAuthFailure(err error) bool {
	return errors.Is(err, domain.ErrUnauthorized) || errors.Is(err, domain.ErrForbidden)
}
