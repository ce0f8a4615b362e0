package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/evently/evently-web/internal/core/access"
	"github.com/evently/evently-web/internal/core/domain"
	"github.com/evently/evently-web/internal/core/ports"
	"github.com/evently/evently-web/internal/infrastructure/tokenstore"
)

// ---------------------------------------------------------------------------
// Fake backend: users are looked up by the bearer token of the request.
// ---------------------------------------------------------------------------

type fakeBackend struct {
	mu    sync.Mutex
	calls []string
	users map[string]*domain.User

	loginFn       func(ctx context.Context, c domain.Credentials) (*domain.AuthResult, error)
	registerFn    func(ctx context.Context, r domain.Registration) (*domain.AuthResult, error)
	verifyFn      func(ctx context.Context, email string) error
	rewardsFn     func(ctx context.Context) (*domain.Rewards, error)
	searchFn      func(ctx context.Context, q string) ([]domain.Event, error)
	getEventFn    func(ctx context.Context, id int) (*domain.Event, error)
	createEventFn func(ctx context.Context, in domain.EventInput) (*domain.Event, error)
	createTxFn    func(ctx context.Context, in domain.PurchaseInput) (*domain.Transaction, error)
	myTxFn        func(ctx context.Context) ([]domain.Transaction, error)
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{users: map[string]*domain.User{}}
}

func (f *fakeBackend) record(name string) {
	f.mu.Lock()
	f.calls = append(f.calls, name)
	f.mu.Unlock()
}

func (f *fakeBackend) called(name string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.calls {
		if c == name {
			return true
		}
	}
	return false
}

func (f *fakeBackend) factory() BackendFactory {
	return func(tokens ports.TokenStore) ports.Backend {
		return &boundBackend{f: f, tokens: tokens}
	}
}

type boundBackend struct {
	f      *fakeBackend
	tokens ports.TokenStore
}

func (b *boundBackend) Login(ctx context.Context, c domain.Credentials) (*domain.AuthResult, error) {
	b.f.record("login")
	return b.f.loginFn(ctx, c)
}

func (b *boundBackend) Register(ctx context.Context, r domain.Registration) (*domain.AuthResult, error) {
	b.f.record("register")
	return b.f.registerFn(ctx, r)
}

func (b *boundBackend) Me(context.Context) (*domain.User, error) {
	b.f.record("me")
	tok, _ := b.tokens.Token()
	if u, ok := b.f.users[tok]; ok {
		return u, nil
	}
	return nil, domain.ErrUnauthorized
}

func (b *boundBackend) ResendVerification(context.Context) error {
	b.f.record("resend")
	return nil
}

func (b *boundBackend) VerifyEmail(ctx context.Context, email string) error {
	b.f.record("verify")
	return b.f.verifyFn(ctx, email)
}

func (b *boundBackend) Rewards(ctx context.Context) (*domain.Rewards, error) {
	b.f.record("rewards")
	return b.f.rewardsFn(ctx)
}

func (b *boundBackend) SearchEvents(ctx context.Context, q string) ([]domain.Event, error) {
	b.f.record("search:" + q)
	return b.f.searchFn(ctx, q)
}

func (b *boundBackend) GetEvent(ctx context.Context, id int) (*domain.Event, error) {
	b.f.record("get_event")
	return b.f.getEventFn(ctx, id)
}

func (b *boundBackend) CreateEvent(ctx context.Context, in domain.EventInput) (*domain.Event, error) {
	b.f.record("create_event")
	return b.f.createEventFn(ctx, in)
}

func (b *boundBackend) UpdateEvent(_ context.Context, id int, in domain.EventInput) (*domain.Event, error) {
	b.f.record("update_event")
	return &domain.Event{ID: id, Title: in.Title}, nil
}

func (b *boundBackend) Attendees(context.Context, int) ([]domain.Attendee, error) {
	b.f.record("attendees")
	return nil, nil
}

func (b *boundBackend) CreateTransaction(ctx context.Context, in domain.PurchaseInput) (*domain.Transaction, error) {
	b.f.record("create_tx")
	return b.f.createTxFn(ctx, in)
}

func (b *boundBackend) MyTransactions(ctx context.Context) ([]domain.Transaction, error) {
	b.f.record("my_tx")
	return b.f.myTxFn(ctx)
}

func (b *boundBackend) GetTransaction(_ context.Context, id int) (*domain.Transaction, error) {
	b.f.record("get_tx")
	return &domain.Transaction{ID: id, Status: domain.TxWaitingPayment}, nil
}

// ---------------------------------------------------------------------------
// Fixtures
// ---------------------------------------------------------------------------

const (
	customerToken   = "customer-token"
	unverifiedToken = "unverified-token"
	organizerToken  = "organizer-token"
)

func seedUsers(f *fakeBackend) {
	code := "REF123"
	f.users[customerToken] = &domain.User{ID: 1, FirstName: "Ana", Email: "ana@example.com", Role: domain.RoleCustomer, IsVerified: true, UserPoints: 20000}
	f.users[unverifiedToken] = &domain.User{ID: 2, FirstName: "Budi", Email: "budi@example.com", Role: domain.RoleCustomer}
	f.users[organizerToken] = &domain.User{ID: 3, FirstName: "Citra", LastName: "Dewi", Email: "citra@example.com", Role: domain.RoleOrganizer, IsVerified: true, ReferralCode: &code}
}

func newScopes(f *fakeBackend, mutate ...func(*Deps)) *Scopes {
	deps := Deps{
		Backend: f.factory(),
		Access:  access.Default(),
		Log:     zerolog.Nop(),
	}
	for _, m := range mutate {
		m(&deps)
	}
	return NewScopes(deps)
}

type request struct {
	method string
	target string
	token  string
	form   url.Values
	json   string
	params map[string]string
	header http.Header
	flash  string
}

func newContext(r request) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	e.Validator = NewValidator()

	var req *http.Request
	switch {
	case r.form != nil:
		req = httptest.NewRequest(r.method, r.target, strings.NewReader(r.form.Encode()))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	case r.json != "":
		req = httptest.NewRequest(r.method, r.target, strings.NewReader(r.json))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	default:
		req = httptest.NewRequest(r.method, r.target, nil)
	}
	for k, vs := range r.header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if r.token != "" {
		req.AddCookie(&http.Cookie{Name: tokenstore.CookieName, Value: r.token})
	}
	if r.flash != "" {
		req.AddCookie(&http.Cookie{Name: FlashCookie, Value: r.flash})
	}

	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if len(r.params) > 0 {
		names := make([]string, 0, len(r.params))
		values := make([]string, 0, len(r.params))
		for k, v := range r.params {
			names = append(names, k)
			values = append(values, v)
		}
		c.SetParamNames(names...)
		c.SetParamValues(values...)
	}
	return c, rec
}

func cookie(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, ck := range rec.Result().Cookies() {
		if ck.Name == name {
			return ck
		}
	}
	return nil
}

func expectRedirect(t *testing.T, rec *httptest.ResponseRecorder, target string) {
	t.Helper()
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("expected 303, got %d (%s)", rec.Code, rec.Body.String())
	}
	if loc := rec.Header().Get(echo.HeaderLocation); loc != target {
		t.Fatalf("expected redirect to %q, got %q", target, loc)
	}
}
