package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/aussiebroadwan/squeezy/internal/squeezy/broadcast"
	httpapi "github.com/aussiebroadwan/squeezy/internal/squeezy/http"
	"github.com/aussiebroadwan/squeezy/internal/squeezy/mail"
	"github.com/aussiebroadwan/squeezy/internal/squeezy/service"
	"github.com/aussiebroadwan/squeezy/internal/squeezy/store"
	"github.com/aussiebroadwan/squeezy/internal/squeezy/store/drivers/sqlite"
	"github.com/aussiebroadwan/squeezy/pkg/cryptox"
	"github.com/aussiebroadwan/squeezy/pkg/jwtx"
	"github.com/aussiebroadwan/squeezy/pkg/slogx"
	"github.com/redis/go-redis/v9"
)

const (
	// BuildVersion should be set at build time via ldflags. Later problem
	BuildVersion = "v0.1.0"
)

// Application encapsulates the squeezy server with all its dependencies
type Application struct {
	cfg    Config
	logger *slog.Logger

	// Core dependencies
	db     store.Store
	tokens *jwtx.Codec
	mailer mail.Sender
	hub    *broadcast.Hub

	// Cross-instance fan-out, nil without REDIS_ADDR
	redis       *redis.Client
	relay       *broadcast.RedisRelay
	relayCancel context.CancelFunc
	relayDone   chan struct{}

	// Services
	sessionService      *service.SessionService
	authService         *service.AuthService
	mfaService          *service.MFAService
	auctionService      *service.AuctionService
	housekeepingService *service.HousekeepingService
	auctionSweeper      *service.AuctionSweeper

	// HTTP server
	server *http.Server
	router *httpapi.Router
}

// New creates a new Application instance with all dependencies initialized
func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "squeezy",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	cryptox.SetPepperPath(app.cfg.PepperFile)
	if err := cryptox.LoadPepper(); err != nil {
		return nil, fmt.Errorf("load pepper: %w", err)
	}

	if err := app.initDatabase(); err != nil {
		return nil, err
	}
	if err := app.initTokens(); err != nil {
		_ = app.db.Close()
		return nil, err
	}

	app.initMailer()
	app.initBroadcast()
	app.initServices()
	app.initHTTP()

	return app, nil
}

// Run starts the application and blocks until shutdown is requested
func (app *Application) Run() error {
	app.startRelay()
	app.housekeepingService.Start()
	app.auctionSweeper.Start()

	app.logger.Info("squeezy starting", "port", app.cfg.Port, "version", BuildVersion)

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
	app.logger.Info("shutting down squeezy...")

	// Give outstanding requests a deadline for completion
	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	// Hijacked websocket connections are not tracked by the server
	app.hub.Close()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	app.auctionSweeper.Stop()
	app.housekeepingService.Stop()
	app.stopRelay()

	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		return err
	}

	app.logger.Info("squeezy stopped")
	return nil
}

// initDatabase initializes the database and applies migrations
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

	version, dirty, err := db.SchemaVersion()
	if err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to read schema version: %w", err)
	}
	app.logger.Info("database ready", "file", app.cfg.DatabaseFile, "schema_version", version, "dirty", dirty)
	return nil
}

func (app *Application) initTokens() error {
	access, refresh, generated, err := app.cfg.tokenSecrets()
	if err != nil {
		return err
	}
	if generated {
		app.logger.Warn("JWT secrets not configured, using random secrets for this run")
	}

	codec, err := jwtx.NewCodec(jwtx.CodecOptions{
		AccessSecret:  access,
		RefreshSecret: refresh,
		AccessTTL:     app.cfg.AccessTTL,
		RefreshTTL:    app.cfg.RefreshTTL,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize token codec: %w", err)
	}
	app.tokens = codec
	return nil
}

func (app *Application) initMailer() {
	if app.cfg.MailgunDomain == "" || app.cfg.MailgunAPIKey == "" {
		app.logger.Info("mailgun not configured, outgoing mail is logged only")
		app.mailer = &mail.LogSender{Logger: app.logger}
		return
	}

	mg := mail.NewMailgun(app.cfg.MailgunDomain, app.cfg.MailgunAPIKey, app.cfg.MailerSender)
	if app.cfg.MailgunAPIBase != "" {
		mg.SetAPIBase(app.cfg.MailgunAPIBase)
	}
	app.mailer = mg
}

// initBroadcast builds the websocket hub. With Redis configured every
// emit goes through the relay so all instances deliver it.
func (app *Application) initBroadcast() {
	app.hub = broadcast.NewHub(app.logger, allowedOrigins(app.cfg.AppOrigin)...)
	if app.cfg.RedisAddr == "" {
		return
	}

	app.redis = redis.NewClient(&redis.Options{
		Addr:     app.cfg.RedisAddr,
		Password: app.cfg.RedisPassword,
		DB:       app.cfg.RedisDB,
	})
	app.relay = broadcast.NewRedisRelay(app.redis, broadcast.DefaultChannel, app.hub, app.logger)
	app.hub.Chat = app.relay
	app.logger.Info("redis broadcast relay enabled", "addr", app.cfg.RedisAddr)
}

func (app *Application) broadcaster() broadcast.Broadcaster {
	if app.relay != nil {
		return app.relay
	}
	return app.hub
}

func (app *Application) startRelay() {
	if app.relay == nil {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	app.relayCancel = cancel
	app.relayDone = make(chan struct{})
	go func() {
		defer close(app.relayDone)
		if err := app.relay.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			app.logger.Error("redis relay stopped", "error", err)
		}
	}()
}

func (app *Application) stopRelay() {
	if app.relay == nil {
		return
	}
	if app.relayCancel != nil {
		app.relayCancel()
		<-app.relayDone
	}
	if err := app.redis.Close(); err != nil {
		app.logger.Error("error closing redis client", "error", err)
	}
}

// initServices initializes all business logic services
func (app *Application) initServices() {
	app.sessionService = service.NewSessionService(app.db)
	app.authService = &service.AuthService{
		Store:     app.db,
		Sessions:  app.sessionService,
		Tokens:    app.tokens,
		Mailer:    app.mailer,
		AppOrigin: app.cfg.AppOrigin,
	}
	app.mfaService = &service.MFAService{
		Store:  app.db,
		Auth:   app.authService,
		Issuer: app.cfg.MFAIssuer,
	}
	app.auctionService = &service.AuctionService{
		Store:       app.db,
		Broadcaster: app.broadcaster(),
	}

	app.housekeepingService = service.NewHousekeepingService(
		app.db,
		app.logger,
		app.cfg.HousekeepingInterval,
	)
	app.auctionSweeper = service.NewAuctionSweeper(
		app.auctionService,
		app.logger,
		app.cfg.AuctionSweepInterval,
	)
}

// initHTTP initializes the HTTP router and server
func (app *Application) initHTTP() {
	router := httpapi.NewRouter(BuildVersion, app.db, app.logger)
	router.Cookies = httpapi.CookieConfig{Secure: app.cfg.IsProd()}

	router.SessionService = app.sessionService
	router.AuthService = app.authService
	router.MFAService = app.mfaService
	router.AuctionService = app.auctionService
	router.Hub = app.hub
	if app.redis != nil {
		router.ReadyChecks = append(router.ReadyChecks, httpapi.ReadyCheck{
			Name:  "redis",
			Check: func(ctx context.Context) error { return app.redis.Ping(ctx).Err() },
		})
	}
	router.ApplyRoutes()

	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}

func allowedOrigins(origin string) []string {
	origin = strings.TrimRight(origin, "/")
	if origin == "" {
		return nil
	}
	return []string{origin}
}
