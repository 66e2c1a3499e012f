package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	sentryfiber "github.com/getsentry/sentry-go/fiber"

	"github.com/ahmetcoskunkizilkaya/wedding-invite/internal/admin"
	"github.com/ahmetcoskunkizilkaya/wedding-invite/internal/app"
	"github.com/ahmetcoskunkizilkaya/wedding-invite/internal/config"
	"github.com/ahmetcoskunkizilkaya/wedding-invite/internal/database"
	"github.com/ahmetcoskunkizilkaya/wedding-invite/internal/gifts"
	"github.com/ahmetcoskunkizilkaya/wedding-invite/internal/handlers"
	"github.com/ahmetcoskunkizilkaya/wedding-invite/internal/identity"
	"github.com/ahmetcoskunkizilkaya/wedding-invite/internal/logging"
	"github.com/ahmetcoskunkizilkaya/wedding-invite/internal/middleware"
	"github.com/ahmetcoskunkizilkaya/wedding-invite/internal/realtime"
	"github.com/ahmetcoskunkizilkaya/wedding-invite/internal/rls"
	"github.com/ahmetcoskunkizilkaya/wedding-invite/internal/routes"
	"github.com/ahmetcoskunkizilkaya/wedding-invite/internal/rsvp"
	"github.com/ahmetcoskunkizilkaya/wedding-invite/internal/session"
	"github.com/ahmetcoskunkizilkaya/wedding-invite/internal/settings"
	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
)

func main() {
	cfg := config.Load()

	// Structured logging (JSON to stdout, optional rotating file)
	baseHandler := logging.Setup(cfg.LogFile)

	if err := cfg.Validate(); err != nil {
		slog.Error("configuration error", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Settings defaults (compiled in, optional YAML overlay)
	defaults, err := settings.LoadDefaults(cfg.SettingsDefaultsPath)
	if err != nil {
		slog.Error("failed to load settings defaults, using built-in values", "path", cfg.SettingsDefaultsPath, "error", err)
		defaults = settings.DefaultSettings()
	}

	// Database
	if err := database.Connect(cfg); err != nil {
		slog.Error("database connection failed", "error", err)
		os.Exit(1)
	}
	if err := database.Migrate(ctx); err != nil {
		slog.Error("migration failed", "error", err)
		os.Exit(1)
	}

	// PostgreSQL log handler (ERROR+ async batch)
	pgLogHandler := logging.NewPGHandler(database.DB)
	slog.SetDefault(slog.New(logging.NewMultiHandler(baseHandler, pgLogHandler)))

	// Log cleanup (LOG_RETENTION, default 30 days)
	logging.StartCleanup(ctx, database.DB, cfg.LogRetention, cfg.LogCleanupInterval)

	// Identity provider and the verifier for the tokens it mints
	var (
		provider identity.Provider
		verifier identity.TokenVerifier
	)
	sessionStore := identity.NewFileSessionStore(cfg.IdentitySessionPath)
	if cfg.UsesFirebase() {
		provider = identity.NewFirebaseProvider(identity.FirebaseConfig{
			APIKey: cfg.FirebaseAPIKey,
			Store:  sessionStore,
		})
		verifier = identity.NewFirebaseVerifier(cfg.FirebaseProjectID)
		slog.Info("identity provider configured", "provider", "firebase", "project", cfg.FirebaseProjectID)
	} else {
		provider = identity.NewLocalProvider(identity.LocalConfig{
			Email:        cfg.LocalAdminEmail,
			PasswordHash: cfg.LocalAdminPasswordHash,
			Secret:       []byte(cfg.LocalTokenSecret),
			TokenTTL:     time.Hour,
			Store:        sessionStore,
		})
		verifier = identity.NewLocalVerifier([]byte(cfg.LocalTokenSecret))
		slog.Info("identity provider configured", "provider", "local")
	}

	// Data client and the bridge that installs the admin session into it
	dataClient := rls.New(database.DB, verifier, cfg.RLSEnabled)
	bridge := session.NewBridge(provider, dataClient, &session.MemoryMarker{}, cfg.IdleTimeout)

	// Realtime change notifications
	listener := realtime.NewListener(cfg.DSN())
	go func() {
		if err := listener.Run(ctx); err != nil {
			slog.Error("realtime listener stopped", "error", err)
		}
	}()

	// Services
	store := settings.NewStore(settings.NewGormBackend(database.DB), defaults)
	rsvpService := rsvp.NewService(database.DB, dataClient)
	giftService := gifts.NewService(gifts.NewGormRepository(database.DB, dataClient))

	shell := app.NewShell(store, cfg.SettingsRetryAttempts, cfg.SettingsRetryDelay)
	panel := admin.NewPanel(store, rsvpService, giftService, listener, bridge, shell.OnSettingsUpdate)
	bridge.OnSignOut(panel.Close)

	// Resolve any persisted identity before serving admin requests.
	if err := bridge.Start(ctx); err != nil {
		slog.Error("session bridge failed to start", "error", err)
		os.Exit(1)
	}
	go shell.Start(ctx)

	// Handlers
	healthHandler := handlers.NewHealthHandler(database.Ping, shell.Live, func() string { return bridge.State().String() })
	inviteHandler := handlers.NewInviteHandler(shell, rsvpService, giftService)
	adminHandler := handlers.NewAdminHandler(provider, bridge, panel, cfg.AdminAllowed)

	// Sentry error tracking
	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.SentryDSN,
			EnableTracing:    true,
			TracesSampleRate: 0.2,
			Environment:      cfg.AppEnv,
		}); err != nil {
			slog.Error("sentry init failed", "error", err)
		} else {
			defer sentry.Flush(2 * time.Second)
		}
	}

	// Fiber app
	server := fiber.New(fiber.Config{
		BodyLimit:    1 * 1024 * 1024,
		ErrorHandler: customErrorHandler,
	})

	// Sentry middleware
	server.Use(sentryfiber.New(sentryfiber.Options{
		Repanic:         true,
		WaitForDelivery: false,
	}))

	// Global middleware
	server.Use(recover.New())
	server.Use(requestid.New())
	server.Use(fiberlogger.New(fiberlogger.Config{
		Format: "${time} | ${status} | ${latency} | ${ip} | ${method} | ${path}\n",
	}))
	server.Use(middleware.CORS(cfg))
	server.Use(func(c *fiber.Ctx) error {
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("X-Frame-Options", "DENY")
		c.Set("X-XSS-Protection", "1; mode=block")
		return c.Next()
	})

	// Routes
	routes.Setup(server, cfg, verifier, bridge, healthHandler, inviteHandler, adminHandler)

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("server starting", "port", cfg.Port)
		if err := server.Listen(":" + cfg.Port); err != nil {
			slog.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	<-quit
	slog.Info("shutting down server...")

	// A restart must not resume the admin session from persisted identity.
	bridge.BeforeUnload()
	bridge.Close()
	panel.Close()

	if err := server.Shutdown(); err != nil {
		slog.Error("server shutdown error", "error", err)
	}
	cancel()

	pgLogHandler.Stop()
	sentry.Flush(2 * time.Second)

	// Close database connections
	if sqlDB, err := database.DB.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			slog.Error("database close error", "error", err)
		}
	}

	slog.Info("server stopped")
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal server error"
	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	// Only expose error details for client errors (4xx), not server errors (5xx)
	if code >= 500 {
		slog.Error("unhandled server error", "method", c.Method(), "path", c.Path(), "request_id", c.GetRespHeader(fiber.HeaderXRequestID), "error", err.Error())
		message = "Internal server error"
	}

	return c.Status(code).JSON(fiber.Map{
		"error":   true,
		"message": message,
	})
}
