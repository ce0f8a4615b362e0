// Package session holds the caller's identity for one front-end session and
// keeps it in sync with the backend's view of that identity.
//
// A Store is an explicit container: anything that needs session data takes a
// *Store (or subscribes to one) instead of reading ambient state. Writes are
// whole-object replacements and the last write wins.
package session

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"

	"github.com/evently/evently-web/internal/core/domain"
	"github.com/evently/evently-web/internal/core/ports"
)

// Snapshot is an immutable view of the session at one point in time.
type Snapshot struct {
	User  *domain.User
	Token string
	// Hydrated is false until the first profile resolution settles. No
	// access decision may be taken while it is false.
	Hydrated bool
}

// Authenticated reports whether a user is known.
func (s Snapshot) Authenticated() bool { return s.User != nil }

// flight is one in-progress profile fetch shared by every caller waiting on it.
type flight struct {
	done chan struct{}
	err  error
}

// Store is the session state container.
type Store struct {
	profiles ports.ProfileFetcher
	tokens   ports.TokenStore
	log      zerolog.Logger

	mu       sync.Mutex
	user     *domain.User
	hydrated bool
	// gen is bumped by Login and Logout so a profile fetch that started
	// before them cannot resurrect a stale identity.
	gen     uint64
	flight  *flight
	nextSub int
	subs    map[int]func(Snapshot)
}

// NewStore returns an empty, unhydrated store.
func NewStore(profiles ports.ProfileFetcher, tokens ports.TokenStore, log zerolog.Logger) *Store {
	return &Store{
		profiles: profiles,
		tokens:   tokens,
		log:      log,
		subs:     make(map[int]func(Snapshot)),
	}
}

// Get returns the current snapshot without triggering a fetch.
func (s *Store) Get() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Hydrate resolves the session the first time it is called. Later calls
// return immediately. Concurrent callers share a single profile fetch. If ctx
// ends before the fetch settles the returned snapshot is still unhydrated.
func (s *Store) Hydrate(ctx context.Context) Snapshot {
	s.mu.Lock()
	if s.hydrated {
		snap := s.snapshotLocked()
		s.mu.Unlock()
		return snap
	}
	f := s.flight
	if f == nil {
		f = s.startLocked(ctx)
	}
	s.mu.Unlock()

	select {
	case <-f.done:
	case <-ctx.Done():
	}
	return s.Get()
}

// RefreshProfile refetches the profile and overwrites the stored user. On
// failure the user is cleared; the error is returned for callers that want
// to surface it.
func (s *Store) RefreshProfile(ctx context.Context) error {
	s.mu.Lock()
	f := s.flight
	if f == nil {
		f = s.startLocked(ctx)
	}
	s.mu.Unlock()

	select {
	case <-f.done:
		return f.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Login stores a freshly authenticated user and token.
func (s *Store) Login(user *domain.User, token string) error {
	if user == nil || token == "" {
		return domain.ErrUnauthorized
	}
	if err := s.tokens.SetToken(token); err != nil {
		return err
	}

	clone := *user
	s.mu.Lock()
	s.user = &clone
	s.hydrated = true
	s.gen++
	snap, subs := s.snapshotLocked(), s.subscribersLocked()
	s.mu.Unlock()

	s.log.Debug().Int("user_id", user.ID).Str("role", string(user.Role)).Msg("session login")
	notify(subs, snap)
	return nil
}

// Logout clears the user and token synchronously. No backend call is made.
func (s *Store) Logout() {
	if err := s.tokens.ClearToken(); err != nil {
		s.log.Warn().Err(err).Msg("failed to clear stored token")
	}

	s.mu.Lock()
	s.user = nil
	s.hydrated = true
	s.gen++
	snap, subs := s.snapshotLocked(), s.subscribersLocked()
	s.mu.Unlock()

	s.log.Debug().Msg("session logout")
	notify(subs, snap)
}

// Subscribe registers fn to be called after every write. The returned
// function removes the subscription and is safe to call more than once.
func (s *Store) Subscribe(fn func(Snapshot)) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, id)
			s.mu.Unlock()
		})
	}
}

// startLocked launches a profile fetch. The fetch outlives the caller's
// cancellation so other waiters still get a result; the backend client's own
// timeout bounds it. Caller must hold s.mu.
func (s *Store) startLocked(ctx context.Context) *flight {
	f := &flight{done: make(chan struct{})}
	s.flight = f
	gen := s.gen
	go s.resolve(context.WithoutCancel(ctx), f, gen)
	return f
}

func (s *Store) resolve(ctx context.Context, f *flight, gen uint64) {
	user, err := s.fetch(ctx)

	s.mu.Lock()
	if s.gen == gen {
		s.user = user
	}
	s.hydrated = true
	s.flight = nil
	f.err = err
	snap, subs := s.snapshotLocked(), s.subscribersLocked()
	s.mu.Unlock()

	close(f.done)
	notify(subs, snap)
}

// fetch asks the backend who the caller is. Every failure is reported as
// "no user"; a missing token skips the network entirely.
func (s *Store) fetch(ctx context.Context) (*domain.User, error) {
	if _, ok := s.tokens.Token(); !ok {
		return nil, nil
	}

	user, err := s.profiles.Me(ctx)
	if err != nil {
		if errors.Is(err, domain.ErrUnauthorized) {
			s.log.Debug().Msg("profile fetch unauthorized, treating caller as anonymous")
		} else {
			s.log.Warn().Err(err).Msg("profile fetch failed, treating caller as anonymous")
		}
		return nil, err
	}
	if user == nil {
		return nil, domain.ErrUnauthorized
	}
	clone := *user
	return &clone, nil
}

func (s *Store) snapshotLocked() Snapshot {
	snap := Snapshot{Hydrated: s.hydrated}
	if s.user != nil {
		clone := *s.user
		snap.User = &clone
	}
	if token, ok := s.tokens.Token(); ok {
		snap.Token = token
	}
	return snap
}

func (s *Store) subscribersLocked() []func(Snapshot) {
	out := make([]func(Snapshot), 0, len(s.subs))
	for _, fn := range s.subs {
		out = append(out, fn)
	}
	return out
}

func notify(subs []func(Snapshot), snap Snapshot) {
	for _, fn := range subs {
		fn(snap)
	}
}
