package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	httpAdapter "github.com/lorrc/cas-server/internal/adapters/primary/http"
	mw "github.com/lorrc/cas-server/internal/adapters/primary/http/middleware"
	"github.com/lorrc/cas-server/internal/adapters/secondary/postgres"
	"github.com/lorrc/cas-server/internal/auth"
	"github.com/lorrc/cas-server/internal/config"
	"github.com/lorrc/cas-server/internal/core/services"
	"github.com/lorrc/cas-server/internal/infrastructure/logging"
)

func main() {
	if err := run(); err != nil {
		slog.Error("application startup failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := logging.NewLogger(logging.Config{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		Output:      os.Stdout,
		ServiceName: cfg.App.Name,
		Environment: cfg.App.Environment,
	})

	logger.Info("starting service", "version", cfg.App.Version)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	poolConfig, err := pgxpool.ParseConfig(cfg.Database.URL)
	if err != nil {
		return fmt.Errorf("failed to parse DB URL: %w", err)
	}
	poolConfig.MaxConns = int32(cfg.Database.MaxOpenConns)
	poolConfig.MinConns = int32(cfg.Database.MaxIdleConns)
	poolConfig.MaxConnLifetime = cfg.Database.ConnMaxLifetime
	poolConfig.MaxConnIdleTime = cfg.Database.ConnMaxIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return fmt.Errorf("failed to connect to DB: %w", err)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	logger.Info("database connection established")

	// Dependency wiring: secondary adapters -> services -> primary handlers.
	ticketStore := postgres.NewTicketStore(pool)
	principalRepo := postgres.NewPrincipalRepository(pool)

	lifetimes := services.TicketLifetimes{
		ServiceTicket:        cfg.Ticket.ServiceTicketTTL,
		ProxyTicket:          cfg.Ticket.ProxyTicketTTL,
		ProxyGrantingTicket:  cfg.Ticket.ProxyGrantingTicketTTL,
		TicketGrantingTicket: cfg.Ticket.TicketGrantingTicketTTL,
	}
	factory := services.NewTicketFactory(ticketStore, lifetimes)
	proxyCallbackClient := services.NewHTTPProxyCallbackClient(cfg.Proxy.CallbackTimeout)
	validator := services.NewValidator(ticketStore, factory, proxyCallbackClient)
	proxyIssuer := services.NewProxyIssuer(ticketStore, factory)
	authenticator := services.NewAuthenticator(principalRepo, factory)
	sso := services.NewSSOSessionService(ticketStore, factory)

	tokenManager := auth.NewTokenManager(cfg.Session.CookieSecret, cfg.Session.TokenTTL)

	var generalRateLimiter, authRateLimiter *mw.RateLimiter
	if cfg.RateLimit.Enabled {
		generalRateLimiter = mw.NewRateLimiter(mw.RateLimiterConfig{
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
			BurstSize:         cfg.RateLimit.BurstSize,
			CleanupInterval:   time.Minute,
			TTL:               3 * time.Minute,
		})
		authRateLimiter = mw.NewRateLimiter(mw.RateLimiterConfig{
			RequestsPerSecond: cfg.RateLimit.AuthRPS,
			BurstSize:         cfg.RateLimit.AuthBurst,
			CleanupInterval:   time.Minute,
			TTL:               5 * time.Minute,
		})
	}

	healthHandler := httpAdapter.NewHealthHandler(pool, cfg.App.Version)
	sessionHandler := httpAdapter.NewSessionHandler(authenticator, sso, tokenManager, cfg.Session.CookieName, cfg.Session.Secure, logger)
	validateHandler := httpAdapter.NewValidateHandler(validator, logger)
	proxyHandler := httpAdapter.NewProxyHandler(proxyIssuer, logger)

	r := chi.NewRouter()

	r.Use(chimw.RealIP)
	r.Use(mw.RequestID)
	r.Use(mw.RequestLogger(logger))
	r.Use(mw.RecoveryLogger(logger))
	r.Use(mw.SessionMiddleware(tokenManager, cfg.Session.CookieName))

	// The validation endpoints are consumed directly by services, not
	// browsers, so CORS must allow cross-origin GETs without credentials.
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	if generalRateLimiter != nil {
		r.Use(generalRateLimiter.Middleware)
	}

	r.Get("/health", healthHandler.HandleHealth)
	r.Get("/health/live", healthHandler.HandleLiveness)
	r.Get("/health/ready", healthHandler.HandleReadiness)
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		if authRateLimiter != nil {
			r.Use(authRateLimiter.Middleware)
		}
		sessionHandler.RegisterRoutes(r)
	})

	validateHandler.RegisterRoutes(r)
	proxyHandler.RegisterRoutes(r)

	srv := &http.Server{
		Addr:              cfg.Server.Port,
		Handler:           r,
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}

	go func() {
		logger.Info("server starting", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	logger.Info("shutdown signal received", "signal", sig.String())

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	logger.Info("server shutdown complete")
	return nil
}
