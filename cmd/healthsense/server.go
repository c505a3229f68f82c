package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/Fleur41/HealthSense/internal/config"
	"github.com/Fleur41/HealthSense/internal/domain/patient"
	"github.com/Fleur41/HealthSense/internal/domain/roster"
	"github.com/Fleur41/HealthSense/internal/domain/visit"
	"github.com/Fleur41/HealthSense/internal/platform/auth"
	"github.com/Fleur41/HealthSense/internal/platform/db"
	"github.com/Fleur41/HealthSense/internal/platform/middleware"
	"github.com/Fleur41/HealthSense/internal/platform/outbox"
	"github.com/Fleur41/HealthSense/internal/platform/remote"
)

const apiPrefix = "/api/v1"

func newLogger(cfg *config.Config) zerolog.Logger {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if cfg.IsDev() {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}
	return logger.Level(parseLevel(cfg.LogLevel))
}

func parseLevel(s string) zerolog.Level {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(s)))
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return lvl
}

// authMiddleware verifies bearer tokens, except in development without any
// verifier configured where every request runs as an admin.
func authMiddleware(cfg *config.Config) echo.MiddlewareFunc {
	if cfg.IsDev() && cfg.AuthSigningKey == "" && cfg.AuthJWKSURL == "" {
		return auth.DevAuthMiddleware()
	}
	jwtCfg := auth.JWTConfig{
		Issuer:   cfg.AuthIssuer,
		Audience: cfg.AuthAudience,
		JWKSURL:  cfg.AuthJWKSURL,
	}
	if cfg.AuthSigningKey != "" {
		jwtCfg.SigningKey = []byte(cfg.AuthSigningKey)
	}
	return auth.JWTMiddleware(jwtCfg)
}

type routes struct {
	patients *patient.Handler
	visits   *visit.Handler
	roster   *roster.Handler
	auth     *auth.Handler
	dbHealth echo.HandlerFunc
}

func newEcho(cfg *config.Config, logger zerolog.Logger, r routes) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.SecurityHeaders())
	e.Use(echomw.BodyLimit("1M"))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost},
		AllowHeaders: []string{"Authorization", "Content-Type", middleware.RequestIDHeader},
	}))

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	if r.dbHealth != nil {
		e.GET("/health/db", r.dbHealth)
	}

	public := e.Group(apiPrefix)
	r.auth.RegisterRoutes(public)

	api := e.Group(apiPrefix, authMiddleware(cfg), middleware.Audit(logger, apiPrefix+"/"))
	r.patients.RegisterRoutes(api)
	r.visits.RegisterRoutes(api)
	r.roster.RegisterRoutes(api)

	return e
}

func newRedisClient(ctx context.Context, cfg *config.Config) (*redis.Client, error) {
	return outbox.NewRedisClient(ctx, cfg.RedisURL)
}

func newSyncWorker(cfg *config.Config, client *redis.Client, logger zerolog.Logger) *outbox.Consumer {
	provider := auth.NewProviderClient(auth.ProviderConfig{
		BaseURL: cfg.AuthProviderURL,
		APIKey:  cfg.AuthProviderAPIKey,
		Timeout: cfg.AuthProviderTimeout,
	})
	tokens := auth.NewTokenSource(provider, cfg.SyncEmail, cfg.SyncPassword)
	rc := remote.NewClient(remote.Config{BaseURL: cfg.SyncBaseURL, Timeout: cfg.SyncTimeout, RetryCount: 2}, tokens, logger)

	name, err := os.Hostname()
	if err != nil || name == "" {
		name = "worker-1"
	}
	return outbox.NewConsumer(client, remote.NewSyncer(rc, logger), outbox.ConsumerConfig{
		Consumer:    name,
		MaxAttempts: cfg.SyncMaxAttempts,
	}, logger)
}

func runServer(ctx context.Context, cfg *config.Config) error {
	logger := newLogger(cfg)

	pool, err := db.NewPool(ctx, cfg.DatabaseURL, poolOptions(cfg))
	if err != nil {
		return err
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	var pub outbox.Publisher = outbox.Nop{}
	if cfg.SyncEnabled() {
		client, err := newRedisClient(ctx, cfg)
		if err != nil {
			return err
		}
		defer client.Close()
		pub = outbox.NewRedisPublisher(client, outbox.DefaultStream)
		logger.Info().Str("stream", outbox.DefaultStream).Msg("outbox enabled")

		if cfg.SyncWorkerEnabled {
			worker := newSyncWorker(cfg, client, logger)
			go func() {
				if err := worker.Run(ctx); err != nil {
					logger.Error().Err(err).Msg("sync worker exited")
				}
			}()
		}
	}
	notify := outbox.NewNotifier(pub, cfg.SyncEnqueueTimeout, logger)

	patientSvc := patient.NewService(patient.NewRepo(pool), notify)
	visitSvc := visit.NewService(visit.NewRepo(pool), db.NewTxManager(pool), notify)
	rosterSvc := roster.NewService(patientSvc, visitSvc, cfg.StatusFanoutLimit)
	provider := auth.NewProviderClient(auth.ProviderConfig{
		BaseURL: cfg.AuthProviderURL,
		APIKey:  cfg.AuthProviderAPIKey,
		Timeout: cfg.AuthProviderTimeout,
	})

	e := newEcho(cfg, logger, routes{
		patients: patient.NewHandler(patientSvc),
		visits:   visit.NewHandler(visitSvc),
		roster:   roster.NewHandler(rosterSvc),
		auth:     auth.NewHandler(provider),
		dbHealth: db.HealthHandler(pool),
	})

	errCh := make(chan error, 1)
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Msg("starting server")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		return err
	}
	logger.Info().Msg("server stopped")
	return nil
}
