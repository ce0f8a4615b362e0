package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/evently/evently-web/internal/api/metrics"
	"github.com/evently/evently-web/internal/core/access"
	"github.com/evently/evently-web/internal/core/guard"
	"github.com/evently/evently-web/internal/core/ports"
	"github.com/evently/evently-web/internal/core/service"
	"github.com/evently/evently-web/internal/core/session"
	"github.com/evently/evently-web/internal/infrastructure/apiclient"
	"github.com/evently/evently-web/internal/infrastructure/tokenstore"
)

// BackendFactory binds the backend client to one request's token store.
type BackendFactory func(tokens ports.TokenStore) ports.Backend

// Deps is everything the page handlers share across requests. Cache, Audit,
// Dedup and Trends are optional.
type Deps struct {
	Backend BackendFactory
	Access  *access.Table
	Cookie  tokenstore.CookieOptions
	Cache   ports.EventCache
	Audit   ports.SearchAudit
	Dedup   ports.SubmissionGuard
	Trends  ports.SearchTrends
	Log     zerolog.Logger
}

// Scopes builds the per-request session scope. Every request gets its own
// session store bound to its own cookie; nothing about a caller's identity
// outlives the request.
type Scopes struct {
	deps Deps
}

func NewScopes(deps Deps) *Scopes {
	return &Scopes{deps: deps}
}

// scope is one request's session, services and side-effect sinks.
type scope struct {
	c       echo.Context
	table   *access.Table
	store   *session.Store
	nav     *redirectNavigator
	flash   *flashNotifier
	auth    *service.AuthService
	events  *service.EventService
	account *service.AccountService
	log     zerolog.Logger
}

func (s *Scopes) For(c echo.Context) *scope {
	log := s.deps.Log.With().Str("request_id", requestID(c)).Logger()
	tokens := tokenstore.NewCookie(c, s.deps.Cookie)
	backend := s.deps.Backend(tokens)
	store := session.NewStore(backend, tokens, log)

	return &scope{
		c:       c,
		table:   s.deps.Access,
		store:   store,
		nav:     &redirectNavigator{},
		flash:   newFlashNotifier(c, s.deps.Cookie.Secure),
		auth:    service.NewAuthService(backend, backend, store, log),
		events:  service.NewEventService(backend, backend, s.deps.Cache, s.deps.Audit, s.deps.Dedup, "web", log),
		account: service.NewAccountService(backend, backend, store, log),
		log:     log,
	}
}

// ctx is the request context carrying the request id to the backend.
func (sc *scope) ctx() context.Context {
	return apiclient.ContextWithRequestID(sc.c.Request().Context(), requestID(sc.c))
}

// gate mounts a guard for req and settles it. When the page may not render
// the response has already been written and proceed is false.
func (sc *scope) gate(req guard.Requirement) (snap session.Snapshot, proceed bool, err error) {
	g := guard.New(sc.store, req, sc.nav, sc.flash, sc.log)
	defer g.Unmount()

	d := g.Mount(sc.ctx())
	metrics.GuardDecisionsTotal.WithLabelValues(d.State.String(), string(d.Reason)).Inc()

	switch d.State {
	case guard.StateAuthorized:
		return sc.store.Get(), true, nil
	case guard.StateRedirecting:
		return session.Snapshot{}, false, sc.c.Redirect(http.StatusSeeOther, sc.nav.Target())
	default:
		return session.Snapshot{}, false, sc.c.JSON(http.StatusServiceUnavailable, map[string]string{
			"state": d.State.String(),
			"error": "session is still loading, please retry",
		})
	}
}

// gatePath gates the current request by the access table entry for its path.
func (sc *scope) gatePath() (session.Snapshot, bool, error) {
	return sc.gate(guard.RequirementFor(sc.table, sc.c.Request().URL.Path))
}
