package guard

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/evently/evently-web/internal/core/ports"
	"github.com/evently/evently-web/internal/core/session"
)

// Guard is the per-page-mount half of the state machine.
type Guard struct {
	store    *session.Store
	nav      ports.Navigator
	notifier ports.Notifier
	log      zerolog.Logger
	onChange func(Decision)

	mu          sync.Mutex
	req         Requirement
	decision    Decision
	mounted     bool
	redirected  bool
	unsubscribe func()
}

// Option customizes a Guard.
type Option func(*Guard)

// WithOnChange registers a callback invoked after every evaluation, e.g. to
// trigger a re-render.
func WithOnChange(fn func(Decision)) Option {
	return func(g *Guard) { g.onChange = fn }
}

// New returns an unmounted guard. notifier may be nil.
func New(store *session.Store, req Requirement, nav ports.Navigator, notifier ports.Notifier, log zerolog.Logger, opts ...Option) *Guard {
	g := &Guard{
		store:    store,
		nav:      nav,
		notifier: notifier,
		log:      log,
		req:      req,
		decision: Decision{State: StateInitializing},
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Mount subscribes to the session, waits for hydration (bounded by ctx) and
// evaluates. While hydration is pending the decision stays Initializing.
func (g *Guard) Mount(ctx context.Context) Decision {
	g.mu.Lock()
	if g.mounted {
		d := g.decision
		g.mu.Unlock()
		return d
	}
	g.mounted = true
	g.mu.Unlock()

	unsubscribe := g.store.Subscribe(g.onSession)
	g.mu.Lock()
	g.unsubscribe = unsubscribe
	g.mu.Unlock()

	g.store.Hydrate(ctx)
	return g.evaluate()
}

// Unmount stops reacting to session changes.
func (g *Guard) Unmount() {
	g.mu.Lock()
	g.mounted = false
	unsubscribe := g.unsubscribe
	g.unsubscribe = nil
	g.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
}

// SetRequirement swaps the page requirement and re-evaluates when it
// actually changed.
func (g *Guard) SetRequirement(req Requirement) Decision {
	g.mu.Lock()
	if g.req.Equal(req) {
		d := g.decision
		g.mu.Unlock()
		return d
	}
	g.req = req
	g.mu.Unlock()

	return g.evaluate()
}

// Current returns the latest decision.
func (g *Guard) Current() Decision {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.decision
}

func (g *Guard) onSession(snap session.Snapshot) {
	if !snap.Hydrated {
		return
	}
	g.evaluate()
}

// evaluate runs Decide against the store's current snapshot and applies side
// effects outside the lock. The snapshot is read under g.mu, so evaluations
// are ordered and a decision never regresses to an older session state. A
// guard that already redirected stays in Redirecting; the navigation and its
// notice happen once per instance.
func (g *Guard) evaluate() Decision {
	g.mu.Lock()
	if !g.mounted || g.redirected {
		d := g.decision
		g.mu.Unlock()
		return d
	}

	prev := g.decision
	d := Decide(g.store.Get(), g.req)
	g.decision = d
	fire := d.State == StateRedirecting
	if fire {
		g.redirected = true
	}
	path := g.req.Path
	g.mu.Unlock()

	if prev.State != d.State {
		g.log.Debug().
			Str("path", path).
			Str("from", prev.State.String()).
			Str("to", d.State.String()).
			Str("reason", string(d.Reason)).
			Msg("guard transition")
	}

	if fire {
		if g.notifier != nil {
			if level, msg, ok := d.Notice(); ok {
				g.notifier.Notify(level, msg)
			}
		}
		g.nav.Navigate(d.Target)
	}
	if g.onChange != nil {
		g.onChange(d)
	}
	return d
}
