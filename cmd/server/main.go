package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/evently/evently-web/internal/api"
	"github.com/evently/evently-web/internal/api/handler"
	"github.com/evently/evently-web/internal/api/metrics"
	"github.com/evently/evently-web/internal/api/middleware"
	"github.com/evently/evently-web/internal/core/access"
	"github.com/evently/evently-web/internal/core/ports"
	"github.com/evently/evently-web/internal/infrastructure/apiclient"
	"github.com/evently/evently-web/internal/infrastructure/config"
	"github.com/evently/evently-web/internal/infrastructure/db/mongo"
	"github.com/evently/evently-web/internal/infrastructure/db/redis"
	"github.com/evently/evently-web/internal/infrastructure/http/handlers"
	"github.com/evently/evently-web/internal/infrastructure/queue"
	"github.com/evently/evently-web/internal/infrastructure/tokenstore"
	"github.com/evently/evently-web/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

func main() {
	envErr := godotenv.Load()

	ctx := context.Background()
	cfg, err := config.Load(ctx)
	if err != nil {
		bootLog := logger.Init(logger.Options{App: "evently-web"})
		bootLog.Fatal().Err(err).Msg("invalid configuration")
	}

	log := logger.Init(logger.Options{
		Level:  cfg.LogLevel,
		Pretty: !cfg.IsProduction(),
		App:    "evently-web",
	})
	if envErr != nil {
		log.Debug().Msg("no .env file found, using environment variables")
	}

	table := access.Default()
	if cfg.Access.TableFile != "" {
		table, err = access.LoadFile(cfg.Access.TableFile)
		if err != nil {
			log.Fatal().Err(err).Str("file", cfg.Access.TableFile).Msg("failed to load route access table")
		}
	}

	client, err := apiclient.New(
		apiclient.Config{BaseURL: cfg.API.BaseURL, Timeout: cfg.API.Timeout},
		nil,
		logger.Component("apiclient"),
		apiclient.WithObserver(func(method, route string, status int, elapsed time.Duration) {
			metrics.BackendRequestDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(elapsed.Seconds())
		}),
	)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build backend client")
	}

	deps := handler.Deps{
		Backend: func(tokens ports.TokenStore) ports.Backend { return client.WithTokens(tokens) },
		Access:  table,
		Cookie:  tokenstore.CookieOptions{Secure: cfg.Cookie.Secure, MaxAge: cfg.Cookie.MaxAge},
		Log:     logger.Component("handler"),
	}
	readiness := []handlers.Dependency{handlers.BackendDependency(client)}

	// Redis and MongoDB only add caching, dedup and the audit trail; the
	// front end runs without them.
	if cfg.Redis.Addr != "" {
		rdb, err := redis.Connect(ctx, redis.Config{
			Addr:        cfg.Redis.Addr,
			Password:    cfg.Redis.Password,
			DB:          cfg.Redis.DB,
			PoolSize:    cfg.Redis.PoolSize,
			DialTimeout: cfg.Redis.DialTimeout,
		})
		if err != nil {
			log.Warn().Err(err).Str("addr", cfg.Redis.Addr).Msg("redis unavailable, search cache and purchase dedup disabled")
		} else {
			defer rdb.Close()
			deps.Cache = redis.NewEventCache(rdb, cfg.Search.CacheTTL)
			deps.Dedup = redis.NewSubmissionGuard(rdb, 0)
			readiness = append(readiness, handlers.RedisDependency(redis.NewPinger(rdb)))
			log.Info().Str("addr", cfg.Redis.Addr).Msg("redis connected")
		}
	}

	if cfg.Mongo.URI != "" {
		mc, db, err := mongo.Connect(ctx, mongo.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database})
		if err != nil {
			log.Warn().Err(err).Msg("mongodb unavailable, search audit disabled")
		} else {
			defer func() {
				dctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
				defer cancel()
				if err := mongo.Disconnect(dctx, mc); err != nil {
					log.Warn().Err(err).Msg("mongodb disconnect failed")
				}
			}()
			audit := mongo.NewSearchAuditRepository(db, 0)
			if err := audit.EnsureIndexes(ctx); err != nil {
				log.Warn().Err(err).Msg("failed to ensure search audit indexes")
			}
			writer := queue.NewAuditDispatcher(0, audit, logger.Component("audit"))
			writer.Start()
			defer writer.Stop()
			deps.Audit = writer
			deps.Trends = audit
			readiness = append(readiness, handlers.MongoDependency(db))
			log.Info().Str("database", cfg.Mongo.Database).Msg("mongodb connected")
		}
	}

	if cfg.JWTSecret == "" {
		log.Warn().Msg("JWT_SECRET not set, edge role checks decode tokens without verifying signatures")
	}

	e := api.NewRouter(api.RouterConfig{
		Handlers:   deps,
		Edge:       middleware.EdgeConfig{Secret: cfg.JWTSecret},
		LoginRate:  cfg.Limiter.Rate,
		LoginBurst: cfg.Limiter.Burst,
		Readiness:  readiness,
		Log:        logger.Component("http"),
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           e,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.Port).Str("env", cfg.Env).Str("backend", cfg.API.BaseURL).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	shutdown(srv, log)
}

// shutdown blocks until SIGINT or SIGTERM, then drains in-flight requests.
func shutdown(srv *http.Server, log zerolog.Logger) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("server forced shutdown")
		return
	}
	log.Info().Msg("server stopped")
}
