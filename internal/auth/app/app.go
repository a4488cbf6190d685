package app

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

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/srcvote/evote/internal/auth/domain"
	httpapi "github.com/srcvote/evote/internal/auth/http"
	"github.com/srcvote/evote/internal/auth/metrics"
	"github.com/srcvote/evote/internal/auth/notify"
	"github.com/srcvote/evote/internal/auth/service"
	"github.com/srcvote/evote/internal/auth/store"
	"github.com/srcvote/evote/internal/auth/store/drivers/sqlite"
	"github.com/srcvote/evote/pkg/clock"
	"github.com/srcvote/evote/pkg/cryptox"
	"github.com/srcvote/evote/pkg/jwtx"
	"github.com/srcvote/evote/pkg/slogx"
	"github.com/srcvote/evote/pkg/validatorx"
)

const (
	// BuildVersion should be set at build time via ldflags.
	BuildVersion = "v0.1.0"
)

// Application encapsulates the auth service application with all its dependencies
type Application struct {
	cfg    Config
	logger *slog.Logger
	clock  clock.Clocker

	// Core dependencies
	db         store.Store
	keyManager *jwtx.KeyManager
	notifier   notify.Notifier
	registry   *prometheus.Registry
	metrics    *metrics.Metrics
	validator  *validatorx.Validator

	// Services
	accountService      *service.AccountService
	loginService        *service.LoginService
	bootstrapService    *service.BootstrapService
	housekeepingService *service.HousekeepingService

	// HTTP server
	server *http.Server
	router *httpapi.Router
}

// New creates a new Application instance with all dependencies initialized
func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "evote-auth",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
		clock: clock.New(),
	}

	// Set pepper path for password hashing
	cryptox.SetPepperPath(app.cfg.PepperFile)
	if err := cryptox.LoadPepper(); err != nil {
		return nil, fmt.Errorf("failed to load pepper: %w", err)
	}

	if err := app.initDatabase(); err != nil {
		return nil, err
	}

	keyManager, err := InitAuthKeys(app.cfg, app.logger)
	if err != nil {
		_ = app.db.Close()
		return nil, fmt.Errorf("failed to initialize JWT keys: %w", err)
	}
	app.keyManager = keyManager

	notifier, err := InitNotifier(app.cfg, app.logger)
	if err != nil {
		_ = app.db.Close()
		return nil, fmt.Errorf("failed to initialize notifier: %w", err)
	}
	app.notifier = notifier

	if err := app.initServices(); err != nil {
		_ = app.db.Close()
		return nil, err
	}
	app.initHTTP()

	return app, nil
}

// Run starts the application and blocks until shutdown is requested
func (app *Application) Run() error {
	if err := app.bootstrap(context.Background()); err != nil {
		return err
	}

	app.housekeepingService.Start()

	app.logger.Info("auth service starting", "port", app.cfg.Port, "version", BuildVersion)

	// Start server in a goroutine
	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	// Setup signal handling for graceful shutdown
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	// Block until we receive a shutdown signal or server error
	select {
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
	case sig := <-shutdown:
		app.logger.Info("shutdown signal received", "signal", sig)

		if err := app.Shutdown(); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// Shutdown gracefully shuts down the application
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down auth service...")

	// Give outstanding requests a deadline for completion
	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	app.housekeepingService.Stop()

	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		return err
	}

	app.logger.Info("auth service stopped")
	return nil
}

// initDatabase initializes the database and applies migrations
func (app *Application) initDatabase() error {
	host := fmt.Sprintf("file:%s", app.cfg.DatabaseFile)
	db, err := sqlite.NewStore(host)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	app.db = db

	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to apply database migrations: %w", err)
	}

	app.logger.Info("database migrations applied successfully")
	return nil
}

// initServices initializes all business logic services
func (app *Application) initServices() error {
	validator, err := validatorx.New()
	if err != nil {
		return fmt.Errorf("failed to initialize validator: %w", err)
	}
	app.validator = validator

	app.registry = prometheus.NewRegistry()
	app.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	app.metrics = metrics.New(app.registry)

	app.accountService = &service.AccountService{
		Store:     app.db,
		Clock:     app.clock,
		Validator: app.validator,
	}

	app.loginService = &service.LoginService{
		Store: app.db,
		Authenticator: &service.AuthenticatorChannel{
			Store:  app.db,
			Issuer: app.cfg.TOTPIssuer,
		},
		Email: &service.EmailChannel{
			Store:    app.db,
			Notifier: app.notifier,
			Clock:    app.clock,
			TTL:      app.cfg.EmailOTPTTL,
		},
		Sessions: &service.SessionIssuer{
			Signer:     app.keyManager.Signer(),
			Verifier:   app.keyManager.Verifier(),
			Store:      app.db,
			Clock:      app.clock,
			Issuer:     app.cfg.Issuer,
			AccessTTL:  app.cfg.AccessTTL,
			RefreshTTL: app.cfg.RefreshTTL,
		},
		Limiter:           service.NewAttemptLimiter(app.cfg.OTPMaxAttempts, app.cfg.OTPAttemptWindow),
		ChallengeTTL:      app.cfg.LoginTTL,
		ChallengeAttempts: app.cfg.LoginAttempts,
		Notifier:          app.notifier,
		Clock:             app.clock,
		Metrics:           app.metrics,
		Validator:         app.validator,
	}

	app.bootstrapService = &service.BootstrapService{
		Store:    app.db,
		Accounts: app.accountService,
	}

	app.housekeepingService = service.NewHousekeepingService(
		app.db,
		app.logger,
		app.clock,
		app.cfg.HousekeepingInterval,
	)
	return nil
}

// bootstrap creates the configured super admin when none exists yet.
func (app *Application) bootstrap(ctx context.Context) error {
	if app.cfg.BootstrapEmail == "" && app.cfg.BootstrapPassword == "" {
		app.logger.Debug("no bootstrap super admin configured")
		return nil
	}

	ctx = slogx.WithContext(ctx, app.logger)
	created, err := app.bootstrapService.EnsureSuperAdmin(ctx, domain.BootstrapData{
		Email:    app.cfg.BootstrapEmail,
		Password: app.cfg.BootstrapPassword,
	})
	if err != nil {
		return fmt.Errorf("bootstrap super admin: %w", err)
	}
	if created {
		app.logger.Info("bootstrap super admin created", "email", app.cfg.BootstrapEmail)
	}
	return nil
}

// initHTTP initializes the HTTP router and server
func (app *Application) initHTTP() {
	router := httpapi.NewRouter(app.keyManager, BuildVersion, app.db, app.logger)

	router.LoginService = app.loginService
	router.Metrics = app.metrics
	router.Gatherer = app.registry
	router.Clock = app.clock
	router.ApplyRoutes()

	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}
