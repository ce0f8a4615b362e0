package service

import (
	"context"
	"sync"

	"github.com/evently/evently-web/internal/core/domain"
)

// ---------------------------------------------------------------------------
// Backend stub: every method delegates to an optional fn field.
// ---------------------------------------------------------------------------

type stubBackend struct {
	mu    sync.Mutex
	calls []string

	loginFn       func(ctx context.Context, c domain.Credentials) (*domain.AuthResult, error)
	registerFn    func(ctx context.Context, r domain.Registration) (*domain.AuthResult, error)
	meFn          func(ctx context.Context) (*domain.User, error)
	resendFn      func(ctx context.Context) error
	verifyFn      func(ctx context.Context, email string) error
	rewardsFn     func(ctx context.Context) (*domain.Rewards, error)
	searchFn      func(ctx context.Context, q string) ([]domain.Event, error)
	getEventFn    func(ctx context.Context, id int) (*domain.Event, error)
	createEventFn func(ctx context.Context, in domain.EventInput) (*domain.Event, error)
	updateEventFn func(ctx context.Context, id int, in domain.EventInput) (*domain.Event, error)
	attendeesFn   func(ctx context.Context, id int) ([]domain.Attendee, error)
	createTxFn    func(ctx context.Context, in domain.PurchaseInput) (*domain.Transaction, error)
	myTxFn        func(ctx context.Context) ([]domain.Transaction, error)
	getTxFn       func(ctx context.Context, id int) (*domain.Transaction, error)
}

func (b *stubBackend) record(name string) {
	b.mu.Lock()
	b.calls = append(b.calls, name)
	b.mu.Unlock()
}

func (b *stubBackend) Calls() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.calls...)
}

func (b *stubBackend) Login(ctx context.Context, c domain.Credentials) (*domain.AuthResult, error) {
	b.record("login")
	return b.loginFn(ctx, c)
}

func (b *stubBackend) Register(ctx context.Context, r domain.Registration) (*domain.AuthResult, error) {
	b.record("register")
	return b.registerFn(ctx, r)
}

func (b *stubBackend) Me(ctx context.Context) (*domain.User, error) {
	b.record("me")
	if b.meFn == nil {
		return nil, domain.ErrUnauthorized
	}
	return b.meFn(ctx)
}

func (b *stubBackend) ResendVerification(ctx context.Context) error {
	b.record("resend")
	return b.resendFn(ctx)
}

func (b *stubBackend) VerifyEmail(ctx context.Context, email string) error {
	b.record("verify")
	return b.verifyFn(ctx, email)
}

func (b *stubBackend) Rewards(ctx context.Context) (*domain.Rewards, error) {
	b.record("rewards")
	return b.rewardsFn(ctx)
}

func (b *stubBackend) SearchEvents(ctx context.Context, q string) ([]domain.Event, error) {
	b.record("search:" + q)
	return b.searchFn(ctx, q)
}

func (b *stubBackend) GetEvent(ctx context.Context, id int) (*domain.Event, error) {
	b.record("get_event")
	return b.getEventFn(ctx, id)
}

func (b *stubBackend) CreateEvent(ctx context.Context, in domain.EventInput) (*domain.Event, error) {
	b.record("create_event")
	return b.createEventFn(ctx, in)
}

func (b *stubBackend) UpdateEvent(ctx context.Context, id int, in domain.EventInput) (*domain.Event, error) {
	b.record("update_event")
	return b.updateEventFn(ctx, id, in)
}

func (b *stubBackend) Attendees(ctx context.Context, id int) ([]domain.Attendee, error) {
	b.record("attendees")
	return b.attendeesFn(ctx, id)
}

func (b *stubBackend) CreateTransaction(ctx context.Context, in domain.PurchaseInput) (*domain.Transaction, error) {
	b.record("create_tx")
	return b.createTxFn(ctx, in)
}

func (b *stubBackend) MyTransactions(ctx context.Context) ([]domain.Transaction, error) {
	b.record("my_tx")
	return b.myTxFn(ctx)
}

func (b *stubBackend) GetTransaction(ctx context.Context, id int) (*domain.Transaction, error) {
	b.record("get_tx")
	return b.getTxFn(ctx, id)
}

// ---------------------------------------------------------------------------
// Token store, cache, audit and dedup stubs
// ---------------------------------------------------------------------------

type memTokens struct {
	mu    sync.Mutex
	token string
}

func (m *memTokens) Token() (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token, m.token != ""
}
func (m *memTokens) SetToken(t string) error { m.mu.Lock(); m.token = t; m.mu.Unlock(); return nil }
func (m *memTokens) ClearToken() error      { m.mu.Lock(); m.token = ""; m.mu.Unlock(); return nil }

type stubCache struct {
	entries map[string][]domain.Event
	getErr  error
	setErr  error
}

func newStubCache() *stubCache { return &stubCache{entries: map[string][]domain.Event{}} }

func (c *stubCache) Get(_ context.Context, q string) ([]domain.Event, bool, error) {
	if c.getErr != nil {
		return nil, false, c.getErr
	}
	e, ok := c.entries[q]
	return e, ok, nil
}

func (c *stubCache) Set(_ context.Context, q string, events []domain.Event) error {
	if c.setErr != nil {
		return c.setErr
	}
	c.entries[q] = events
	return nil
}

type stubAudit struct {
	mu      sync.Mutex
	records []domain.SearchRecord
	err     error
}

func (a *stubAudit) Record(_ context.Context, rec domain.SearchRecord) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.records = append(a.records, rec)
	return a.err
}

type stubDedup struct {
	seen     map[string]bool
	err      error
	released []string
}

func (d *stubDedup) Claim(_ context.Context, key string) (bool, error) {
	if d.err != nil {
		return false, d.err
	}
	if d.seen == nil {
		d.seen = map[string]bool{}
	}
	if d.seen[key] {
		return false, nil
	}
	d.seen[key] = true
	return true, nil
}

func (d *stubDedup) Release(_ context.Context, key string) error {
	delete(d.seen, key)
	d.released = append(d.released, key)
	return nil
}
