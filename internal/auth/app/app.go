package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpapi "github.com/risinghq/bmsauth/internal/auth/http"
	"github.com/risinghq/bmsauth/internal/auth/obs"
	"github.com/risinghq/bmsauth/internal/auth/service"
	"github.com/risinghq/bmsauth/internal/auth/store"
	"github.com/risinghq/bmsauth/internal/auth/store/drivers/postgres"
	"github.com/risinghq/bmsauth/internal/auth/store/drivers/sqlite"
	"github.com/risinghq/bmsauth/pkg/jwtx"
	"github.com/risinghq/bmsauth/pkg/slogx"
)

const (
	// BuildVersion should be set at build time via ldflags.
	BuildVersion = "v0.1.0"
)

// Application encapsulates the auth service with all its dependencies.
type Application struct {
	cfg    Config
	logger *slog.Logger

	db       store.Store
	signer   jwtx.Signer
	verifier jwtx.Verifier

	authService         *service.AuthService
	resolver            *service.Resolver
	bootstrapService    *service.BootstrapService
	housekeepingService *service.HousekeepingService

	server *http.Server
	router *httpapi.Router
}

// New creates an Application with all dependencies initialized.
func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "bmsauth",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	obs.Init()

	if err := app.initDatabase(); err != nil {
		return nil, err
	}

	signer, verifier, err := initSigning(cfg)
	if err != nil {
		_ = app.db.Close()
		return nil, err
	}
	app.signer = signer
	app.verifier = verifier

	app.initServices()

	if err := app.bootstrap(); err != nil {
		_ = app.db.Close()
		return nil, err
	}

	app.initHTTP()

	return app, nil
}

// Run starts the application and blocks until shutdown is requested.
func (app *Application) Run() error {
	app.housekeepingService.Start()

	app.logger.Info("auth service starting", "port", app.cfg.Port, "version", BuildVersion)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil && err != http.ErrServerClosed {
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

// Shutdown gracefully shuts down the application.
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down auth service...")

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

// initDatabase opens the configured driver and applies migrations.
func (app *Application) initDatabase() error {
	var (
		db  store.Store
		err error
	)
	switch app.cfg.DBDriver {
	case "postgres":
		if app.cfg.DBDSN == "" {
			return fmt.Errorf("DB_DSN is required for postgres")
		}
		db, err = postgres.NewStore(app.cfg.DBDSN)
	case "sqlite", "":
		dsn := app.cfg.DBDSN
		if dsn == "" {
			dsn = "file:auth.db?_busy_timeout=5000&_journal_mode=WAL"
		}
		db, err = sqlite.NewStore(dsn)
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", app.cfg.DBDriver)
	}
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	app.db = db

	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to apply database migrations: %w", err)
	}

	app.logger.Info("database migrations applied successfully", "driver", app.cfg.DBDriver)
	return nil
}

// initServices initializes the ledgers, resolver, and orchestrator.
func (app *Application) initServices() {
	app.resolver = &service.Resolver{Store: app.db}

	app.authService = &service.AuthService{
		Store:  app.db,
		Signer: app.signer,
		Refresh: &service.RefreshLedger{
			Store:          app.db,
			TTL:            app.cfg.RefreshTTL,
			ReuseDetection: app.cfg.ReuseDetection,
		},
		Resets: &service.ResetLedger{
			Store: app.db,
			TTL:   app.cfg.ResetTTL,
		},
		Resolver:         app.resolver,
		Mailer:           &service.LogMailer{Log: app.logger},
		Issuer:           app.cfg.Issuer,
		AccessTTL:        app.cfg.AccessTTL,
		RotateOnRefresh:  app.cfg.RotateOnRefresh,
		LogoutAllDevices: app.cfg.LogoutAllDevices,
	}

	app.bootstrapService = &service.BootstrapService{
		Store:         app.db,
		AdminEmail:    app.cfg.AdminEmail,
		AdminPassword: app.cfg.AdminPassword,
	}

	app.housekeepingService = service.NewHousekeepingService(
		app.db,
		app.logger,
		app.cfg.HousekeepingInterval,
		app.cfg.TokenRetention,
	)
}

// bootstrap seeds roles and the initial admin on an empty database.
func (app *Application) bootstrap() error {
	ctx := slogx.WithContext(context.Background(), app.logger)

	bootstrapped, err := app.bootstrapService.IsBootstrapped(ctx)
	if err != nil {
		return fmt.Errorf("bootstrap check failed: %w", err)
	}
	if bootstrapped {
		return nil
	}

	if _, err := app.bootstrapService.Bootstrap(ctx); err != nil {
		return fmt.Errorf("bootstrap failed: %w", err)
	}
	return nil
}

// initHTTP initializes the HTTP router and server.
func (app *Application) initHTTP() {
	router := httpapi.NewRouter(
		app.verifier,
		BuildVersion,
		app.db,
		app.logger,
	)

	router.AuthService = app.authService
	router.Resolver = app.resolver
	router.ApplyRoutes()

	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}
