package api

import (
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/evently/evently-web/internal/api/handler"
	"github.com/evently/evently-web/internal/api/middleware"
	"github.com/evently/evently-web/internal/core/domain"
	"github.com/evently/evently-web/internal/infrastructure/http/handlers"
)

// RouterConfig wires the BFF's routes.
type RouterConfig struct {
	Handlers handler.Deps
	Edge     middleware.EdgeConfig
	// LoginRate and LoginBurst limit login and registration per client IP.
	LoginRate  float64
	LoginBurst int
	Readiness  []handlers.Dependency
	Log        zerolog.Logger
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(cfg RouterConfig) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(cfg.Log)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(requestLogger(cfg.Log))
	e.Use(echoprometheus.NewMiddleware("evently"))
	e.Use(middleware.RouteGuard(cfg.Handlers.Access, cfg.Edge))

	// --- Dependencies ---
	scopes := handler.NewScopes(cfg.Handlers)
	authHandler := handler.NewAuthHandler(scopes)
	eventHandler := handler.NewEventHandler(scopes)
	dashboardHandler := handler.NewDashboardHandler(scopes)
	profileHandler := handler.NewProfileHandler(scopes)
	limited := middleware.RateLimit(cfg.LoginRate, cfg.LoginBurst)

	// --- Health probes and metrics (no auth required) ---
	healthHandler := handlers.NewHealthHandler()
	healthDepsHandler := handlers.NewHealthDependenciesHandler(cfg.Readiness...)

	e.GET("/health", healthHandler.Liveness)            // liveness
	e.GET("/health/ready", healthDepsHandler.Readiness) // readiness
	e.GET("/metrics", echoprometheus.NewHandler())

	// --- Auth routes ---
	e.GET("/auth/login", authHandler.LoginPage)
	e.POST("/auth/login", authHandler.Login, limited)
	e.POST("/auth/register", authHandler.Register, limited)
	e.POST("/auth/logout", authHandler.Logout)
	e.GET("/unauthorized", authHandler.Unauthorized)
	e.GET("/verify-notice", authHandler.VerifyNotice)
	e.POST("/users/resend-verification", authHandler.ResendVerification)
	e.GET("/verify-email/:email", authHandler.VerifyEmail)

	// --- Events ---
	e.GET("/events", eventHandler.List)
	e.GET("/events/:id", eventHandler.Detail)
	e.POST("/events/:id/transactions", eventHandler.Purchase, middleware.RequireRoles(cfg.Edge, domain.RoleCustomer))

	// --- Dashboards (edge-gated by the access table) ---
	customer := e.Group("/dashboard/customer")
	customer.GET("", dashboardHandler.Customer)
	customer.GET("/transactions/:id", dashboardHandler.Transaction)
	customer.GET("/rewards", dashboardHandler.Rewards)

	organizer := e.Group("/dashboard/organizer")
	organizer.GET("", dashboardHandler.Organizer)
	organizer.POST("/events", dashboardHandler.CreateEvent)
	organizer.PUT("/events/:id", dashboardHandler.UpdateEvent)
	organizer.GET("/events/:id/attendees", dashboardHandler.Attendees)

	e.GET("/profile", profileHandler.Show)

	return e
}

// requestLogger logs one line per request through zerolog.
func requestLogger(log zerolog.Logger) echo.MiddlewareFunc {
	return echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v echomiddleware.RequestLoggerValues) error {
			ev := log.Info()
			if v.Error != nil || v.Status >= 500 {
				ev = log.Error().Err(v.Error)
			}
			ev.Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("request_id", v.RequestID).
				Msg("request")
			return nil
		},
	})
}
