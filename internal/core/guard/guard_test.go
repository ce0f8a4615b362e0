package guard

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/evently/evently-web/internal/core/access"
	"github.com/evently/evently-web/internal/core/domain"
	"github.com/evently/evently-web/internal/core/ports"
	"github.com/evently/evently-web/internal/core/session"
)

// ---------------------------------------------------------------------------
// Stubs
// ---------------------------------------------------------------------------

type stubProfiles struct {
	meFn func(ctx context.Context) (*domain.User, error)
}

func (p *stubProfiles) Me(ctx context.Context) (*domain.User, error) { return p.meFn(ctx) }

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

type recordingNav struct {
	mu      sync.Mutex
	targets []string
}

func (n *recordingNav) Navigate(target string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.targets = append(n.targets, target)
}

func (n *recordingNav) Targets() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.targets...)
}

type recordingNotifier struct {
	mu       sync.Mutex
	messages []string
}

func (n *recordingNotifier) Notify(_ ports.NoticeLevel, msg string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, msg)
}

func storeWith(user *domain.User) *session.Store {
	profiles := &stubProfiles{meFn: func(context.Context) (*domain.User, error) {
		if user == nil {
			return nil, domain.ErrUnauthorized
		}
		return user, nil
	}}
	return session.NewStore(profiles, &memTokens{token: "tkn"}, zerolog.Nop())
}

var organizerOnly = Requirement{Path: "/dashboard/organizer", AllowedRoles: []domain.Role{domain.RoleOrganizer}}

// ---------------------------------------------------------------------------
// Decide
// ---------------------------------------------------------------------------

func TestDecide(t *testing.T) {
	org := &domain.User{Role: domain.RoleOrganizer, IsVerified: true}
	cust := &domain.User{Role: domain.RoleCustomer, IsVerified: true}
	unverified := &domain.User{Role: domain.RoleCustomer}

	cases := []struct {
		name   string
		snap   session.Snapshot
		req    Requirement
		state  State
		target string
	}{
		{"not hydrated", session.Snapshot{User: org}, organizerOnly, StateInitializing, ""},
		{"anonymous", session.Snapshot{Hydrated: true}, organizerOnly, StateRedirecting, "/auth/login?redirect=%2Fdashboard%2Forganizer"},
		{"wrong role", session.Snapshot{Hydrated: true, User: cust}, organizerOnly, StateRedirecting, UnauthorizedPath},
		{"right role", session.Snapshot{Hydrated: true, User: org}, organizerOnly, StateAuthorized, ""},
		{"any role", session.Snapshot{Hydrated: true, User: cust}, Requirement{Path: "/profile"}, StateAuthorized, ""},
		{"unverified", session.Snapshot{Hydrated: true, User: unverified}, Requirement{Path: "/x", RequireVerified: true}, StateRedirecting, VerifyNoticePath},
		{"role checked before verification", session.Snapshot{Hydrated: true, User: unverified}, Requirement{Path: "/x", AllowedRoles: []domain.Role{domain.RoleOrganizer}, RequireVerified: true}, StateRedirecting, UnauthorizedPath},
	}

	for _, tc := range cases {
		d := Decide(tc.snap, tc.req)
		if d.State != tc.state {
			t.Errorf("%s: expected state %s, got %s", tc.name, tc.state, d.State)
		}
		if d.Target != tc.target {
			t.Errorf("%s: expected target %q, got %q", tc.name, tc.target, d.Target)
		}
		if d.Renders() != (tc.state == StateAuthorized) {
			t.Errorf("%s: Renders mismatch", tc.name)
		}
	}
}

func TestRequirementFor(t *testing.T) {
	req := RequirementFor(access.Default(), "/dashboard/customer/rewards")
	if len(req.AllowedRoles) != 1 || req.AllowedRoles[0] != domain.RoleCustomer {
		t.Fatalf("unexpected roles: %v", req.AllowedRoles)
	}
	if req.Path != "/dashboard/customer/rewards" {
		t.Fatalf("unexpected path: %s", req.Path)
	}

	open := RequirementFor(access.Default(), "/events/1/transactions")
	if len(open.AllowedRoles) != 0 {
		t.Fatalf("uncovered path must not restrict roles: %v", open.AllowedRoles)
	}
}

// ---------------------------------------------------------------------------
// Guard
// ---------------------------------------------------------------------------

func TestGuard_OrganizerRenders(t *testing.T) {
	nav := &recordingNav{}
	g := New(storeWith(&domain.User{Role: domain.RoleOrganizer}), organizerOnly, nav, nil, zerolog.Nop())

	d := g.Mount(context.Background())
	defer g.Unmount()

	if !d.Renders() {
		t.Fatalf("expected authorized, got %s", d.State)
	}
	if len(nav.Targets()) != 0 {
		t.Fatalf("unexpected navigation: %v", nav.Targets())
	}
}

func TestGuard_CustomerRedirectedToUnauthorized(t *testing.T) {
	nav := &recordingNav{}
	notes := &recordingNotifier{}
	g := New(storeWith(&domain.User{Role: domain.RoleCustomer}), organizerOnly, nav, notes, zerolog.Nop())

	d := g.Mount(context.Background())
	defer g.Unmount()

	if d.State != StateRedirecting || d.Target != UnauthorizedPath {
		t.Fatalf("expected redirect to /unauthorized, got %+v", d)
	}
	if got := nav.Targets(); len(got) != 1 || got[0] != UnauthorizedPath {
		t.Fatalf("expected exactly one navigation, got %v", got)
	}
	if len(notes.messages) != 1 {
		t.Fatalf("expected one notice, got %v", notes.messages)
	}
}

func TestGuard_AnonymousRedirectedToLogin(t *testing.T) {
	nav := &recordingNav{}
	g := New(storeWith(nil), organizerOnly, nav, nil, zerolog.Nop())

	d := g.Mount(context.Background())
	defer g.Unmount()

	if d.State != StateRedirecting || d.Reason != ReasonLoginRequired {
		t.Fatalf("expected login redirect, got %+v", d)
	}
	if got := nav.Targets(); len(got) != 1 || got[0] != LoginTarget("/dashboard/organizer") {
		t.Fatalf("unexpected navigation: %v", got)
	}
}

func TestGuard_StaysInitializingWhileFetchPending(t *testing.T) {
	release := make(chan struct{})
	profiles := &stubProfiles{meFn: func(context.Context) (*domain.User, error) {
		<-release
		return &domain.User{Role: domain.RoleOrganizer}, nil
	}}
	store := session.NewStore(profiles, &memTokens{token: "tkn"}, zerolog.Nop())

	changes := make(chan Decision, 4)
	nav := &recordingNav{}
	g := New(store, organizerOnly, nav, nil, zerolog.Nop(), WithOnChange(func(d Decision) { changes <- d }))
	defer g.Unmount()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if d := g.Mount(ctx); d.State != StateInitializing || d.Renders() {
		t.Fatalf("expected initializing while fetch pending, got %s", d.State)
	}

	close(release)
	deadline := time.After(time.Second)
	for {
		select {
		case d := <-changes:
			if d.Renders() {
				if len(nav.Targets()) != 0 {
					t.Fatalf("unexpected navigation: %v", nav.Targets())
				}
				return
			}
		case <-deadline:
			t.Fatalf("guard never became authorized after hydration")
		}
	}
}

func TestGuard_LogoutWhileMountedRedirects(t *testing.T) {
	store := storeWith(&domain.User{Role: domain.RoleOrganizer})
	nav := &recordingNav{}
	g := New(store, organizerOnly, nav, nil, zerolog.Nop())
	defer g.Unmount()

	if d := g.Mount(context.Background()); !d.Renders() {
		t.Fatalf("expected authorized, got %s", d.State)
	}

	store.Logout()

	d := g.Current()
	if d.State != StateRedirecting || d.Reason != ReasonLoginRequired {
		t.Fatalf("expected redirect after logout, got %+v", d)
	}
	if got := nav.Targets(); len(got) != 1 {
		t.Fatalf("expected one navigation, got %v", got)
	}
}

func TestGuard_RedirectFiresOnce(t *testing.T) {
	store := storeWith(&domain.User{Role: domain.RoleOrganizer})
	nav := &recordingNav{}
	g := New(store, organizerOnly, nav, nil, zerolog.Nop())
	defer g.Unmount()
	g.Mount(context.Background())

	store.Logout()
	store.Logout()
	_ = store.Login(&domain.User{Role: domain.RoleCustomer}, "other")

	if got := nav.Targets(); len(got) != 1 {
		t.Fatalf("expected a single navigation, got %v", got)
	}
	if g.Current().State != StateRedirecting {
		t.Fatalf("a redirected guard must stay redirecting")
	}
}

func TestGuard_SetRequirementReevaluates(t *testing.T) {
	store := storeWith(&domain.User{Role: domain.RoleCustomer})
	nav := &recordingNav{}
	g := New(store, Requirement{Path: "/profile"}, nav, nil, zerolog.Nop())
	defer g.Unmount()

	if d := g.Mount(context.Background()); !d.Renders() {
		t.Fatalf("expected authorized, got %s", d.State)
	}

	// Same requirement: no change.
	if d := g.SetRequirement(Requirement{Path: "/profile"}); !d.Renders() {
		t.Fatalf("unchanged requirement must keep decision")
	}

	d := g.SetRequirement(organizerOnly)
	if d.State != StateRedirecting || d.Target != UnauthorizedPath {
		t.Fatalf("expected redirect after tightening roles, got %+v", d)
	}
}

func TestGuard_UnmountedIgnoresSessionChanges(t *testing.T) {
	store := storeWith(&domain.User{Role: domain.RoleOrganizer})
	nav := &recordingNav{}
	g := New(store, organizerOnly, nav, nil, zerolog.Nop())
	g.Mount(context.Background())
	g.Unmount()

	store.Logout()
	if got := nav.Targets(); len(got) != 0 {
		t.Fatalf("unmounted guard navigated: %v", got)
	}
}

func TestGuard_StaleSnapshotDoesNotOverrideNewerSession(t *testing.T) {
	store := storeWith(nil)
	nav := &recordingNav{}
	g := New(store, organizerOnly, nav, nil, zerolog.Nop())
	defer g.Unmount()

	// Hydration resolved anonymous, then a login landed before the
	// evaluation ran.
	stale := store.Hydrate(context.Background())
	if stale.Authenticated() {
		t.Fatalf("expected an anonymous hydration")
	}
	g.mu.Lock()
	g.mounted = true
	g.mu.Unlock()
	if err := store.Login(&domain.User{Role: domain.RoleOrganizer}, "fresh"); err != nil {
		t.Fatalf("login: %v", err)
	}

	g.onSession(stale)

	if d := g.Current(); !d.Renders() {
		t.Fatalf("expected authorized from the newer session, got %+v", d)
	}
	if got := nav.Targets(); len(got) != 0 {
		t.Fatalf("stale snapshot triggered navigation: %v", got)
	}
}
