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

	"github.com/aussiebroadwan/gatehouse/internal/auth/audit"
	httpapi "github.com/aussiebroadwan/gatehouse/internal/auth/http"
	"github.com/aussiebroadwan/gatehouse/internal/auth/secrets"
	"github.com/aussiebroadwan/gatehouse/internal/auth/service"
	"github.com/aussiebroadwan/gatehouse/internal/auth/sso"
	"github.com/aussiebroadwan/gatehouse/internal/auth/store"
	"github.com/aussiebroadwan/gatehouse/internal/auth/store/drivers/sqlite"
	"github.com/aussiebroadwan/gatehouse/pkg/cryptox"
	"github.com/aussiebroadwan/gatehouse/pkg/jwtx"
	"github.com/aussiebroadwan/gatehouse/pkg/slogx"
)

// BuildVersion is overridden at build time with -ldflags "-X ...".
var BuildVersion = "v0.1.0"

// Application encapsulates the auth service and its dependencies.
type Application struct {
	cfg    Config
	logger *slog.Logger

	// Core dependencies
	db         store.Store
	secrets    *secrets.Redis
	keyManager *jwtx.KeyManager
	hasher     *cryptox.Hasher
	sealer     *cryptox.Sealer
	audit      audit.Sink

	// Services
	credentials         *service.CredentialVerifier
	mfaService          *service.MFAController
	tokenService        *service.TokenService
	loginService        *service.LoginService
	userService         *service.UserService
	federationService   *service.FederationService
	bootstrapService    *service.BootstrapService
	housekeepingService *service.HousekeepingService

	// HTTP server
	server *http.Server
	router *httpapi.Router
}

// New creates an Application with all dependencies initialized. The
// bootstrap account and federation settings from the config file are applied
// before it returns.
func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "gatehouse",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
		audit: audit.LogSink{},
	}
	ctx := slogx.WithContext(context.Background(), app.logger)

	if err := app.initDatabase(); err != nil {
		return nil, err
	}
	if err := app.initSecrets(ctx); err != nil {
		_ = app.db.Close()
		return nil, err
	}
	if err := app.initCrypto(); err != nil {
		app.closeStores()
		return nil, err
	}

	keyManager, err := InitAuthKeys(app.cfg, app.logger)
	if err != nil {
		app.closeStores()
		return nil, fmt.Errorf("failed to initialize JWT keys: %w", err)
	}
	app.keyManager = keyManager

	app.initServices()
	if err := app.applyBootstrap(ctx); err != nil {
		app.closeStores()
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
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			app.housekeepingService.Stop()
			app.closeStores()
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

// Shutdown drains in-flight requests, then stops background work and closes
// both stores.
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

	if err := app.secrets.Close(); err != nil {
		app.logger.Error("error closing secret store", "error", err)
	}
	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		return err
	}

	app.logger.Info("auth service stopped")
	return nil
}

// initDatabase opens the identity store and applies migrations.
func (app *Application) initDatabase() error {
	host := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", app.cfg.DatabaseFile)
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

// initSecrets connects to redis. Without it no MFA challenge, enrollment or
// refresh rotation can work, so an unreachable server fails startup.
func (app *Application) initSecrets(ctx context.Context) error {
	sec, err := secrets.NewRedisFromURL(app.cfg.RedisURL, app.cfg.RedisPrefix)
	if err != nil {
		return fmt.Errorf("failed to configure secret store: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := sec.Ping(pingCtx); err != nil {
		_ = sec.Close()
		return fmt.Errorf("failed to reach secret store: %w", err)
	}

	app.secrets = sec
	app.logger.Info("secret store connected", "prefix", app.cfg.RedisPrefix)
	return nil
}

// initCrypto loads the password pepper and the key sealing TOTP secrets,
// creating both on first start.
func (app *Application) initCrypto() error {
	pepper, err := cryptox.LoadOrCreatePepper(app.cfg.PepperFile)
	if err != nil {
		return fmt.Errorf("failed to load pepper: %w", err)
	}
	app.hasher = cryptox.NewHasher(pepper)

	sealer, err := cryptox.LoadOrCreateSealer(app.cfg.MasterKeyPath)
	if err != nil {
		return fmt.Errorf("failed to load master key: %w", err)
	}
	app.sealer = sealer
	return nil
}

// initServices wires the authentication core.
func (app *Application) initServices() {
	app.credentials = &service.CredentialVerifier{
		Store:  app.db,
		Hasher: app.hasher,
		Audit:  app.audit,
	}

	app.mfaService = &service.MFAController{
		Store:        app.db,
		Secrets:      app.secrets,
		Sealer:       app.sealer,
		Credentials:  app.credentials,
		Audit:        app.audit,
		Issuer:       app.cfg.MFAIssuer,
		EnrollTTL:    app.cfg.MFAEnrollTTL,
		ChallengeTTL: app.cfg.MFAChallengeTTL,
		MaxAttempts:  app.cfg.MFAMaxAttempts,
	}

	app.tokenService = &service.TokenService{
		KeyManager: app.keyManager,
		Store:      app.db,
		Secrets:    app.secrets,
		Audit:      app.audit,
		Issuer:     app.cfg.Issuer,
		Audience:   app.cfg.Audience,
		AccessTTL:  app.cfg.AccessTTL,
		RefreshTTL: app.cfg.RefreshTTL,
	}

	app.loginService = &service.LoginService{
		Store:       app.db,
		Credentials: app.credentials,
		MFA:         app.mfaService,
		Tokens:      app.tokenService,
		Audit:       app.audit,
	}

	app.userService = &service.UserService{Store: app.db, MFA: app.mfaService}

	app.federationService = &service.FederationService{
		Store: app.db,
		SAML:  &sso.SAMLProvider{Secrets: app.secrets},
		OIDC: &sso.OIDCProvider{
			Secrets:    app.secrets,
			HTTPClient: &http.Client{Timeout: app.cfg.SSOTimeout},
			Timeout:    app.cfg.SSOTimeout,
		},
		Login: app.loginService,
	}

	app.bootstrapService = &service.BootstrapService{Store: app.db, Hasher: app.hasher}

	app.housekeepingService = service.NewHousekeepingService(
		app.db,
		app.logger,
		app.cfg.HousekeepingInterval,
	)
}

// applyBootstrap seeds the first account and syncs federation settings from
// the config file. A store that already has accounts keeps them.
func (app *Application) applyBootstrap(ctx context.Context) error {
	if acct := app.cfg.Bootstrap; acct != nil {
		id, err := app.bootstrapService.SeedAccount(ctx, *acct)
		switch {
		case errors.Is(err, service.ErrBootstrapAlready):
			app.logger.Info("identity store already bootstrapped, skipping seed account")
		case err != nil:
			return fmt.Errorf("failed to seed bootstrap account: %w", err)
		default:
			app.logger.Info("bootstrap account created", "user_id", id, "tenant_id", acct.TenantID)
		}
	}

	if len(app.cfg.Federation) > 0 {
		if err := app.bootstrapService.SyncFederation(ctx, app.cfg.Federation); err != nil {
			return fmt.Errorf("failed to sync federation configs: %w", err)
		}
		app.logger.Info("federation configs synced", "count", len(app.cfg.Federation))
	}
	return nil
}

// initHTTP initializes the HTTP router and server.
func (app *Application) initHTTP() {
	router := httpapi.NewRouter(
		app.keyManager,
		BuildVersion,
		app.db,
		app.secrets,
		app.logger,
	)

	router.LoginService = app.loginService
	router.TokenService = app.tokenService
	router.MFAService = app.mfaService
	router.UserService = app.userService
	router.FederationService = app.federationService
	router.ApplyRoutes()

	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}

func (app *Application) closeStores() {
	if app.secrets != nil {
		_ = app.secrets.Close()
	}
	if app.db != nil {
		_ = app.db.Close()
	}
}
