package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	sentryfiber "github.com/getsentry/sentry-go/fiber"

	"github.com/ahmetcoskunkizilkaya/marketplace-onboarding/internal/config"
	"github.com/ahmetcoskunkizilkaya/marketplace-onboarding/internal/database"
	"github.com/ahmetcoskunkizilkaya/marketplace-onboarding/internal/dto"
	"github.com/ahmetcoskunkizilkaya/marketplace-onboarding/internal/email"
	"github.com/ahmetcoskunkizilkaya/marketplace-onboarding/internal/guard"
	"github.com/ahmetcoskunkizilkaya/marketplace-onboarding/internal/handlers"
	"github.com/ahmetcoskunkizilkaya/marketplace-onboarding/internal/logging"
	"github.com/ahmetcoskunkizilkaya/marketplace-onboarding/internal/middleware"
	"github.com/ahmetcoskunkizilkaya/marketplace-onboarding/internal/repository"
	"github.com/ahmetcoskunkizilkaya/marketplace-onboarding/internal/repository/memory"
	"github.com/ahmetcoskunkizilkaya/marketplace-onboarding/internal/routes"
	"github.com/ahmetcoskunkizilkaya/marketplace-onboarding/internal/services"
	"github.com/ahmetcoskunkizilkaya/marketplace-onboarding/internal/storage"
	"github.com/ahmetcoskunkizilkaya/marketplace-onboarding/internal/workflow"
	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
)

func main() {
	// Structured logging (JSON to stdout)
	stdout := logging.Setup()

	cfg := config.Load()

	if cfg.JWTSecret == "" {
		slog.Error("JWT_SECRET environment variable is required")
		os.Exit(1)
	}

	// Store
	var store *repository.Store
	switch cfg.StorageMode {
	case config.StorageModeMemory:
		store, _ = memory.NewStore()
		slog.Warn("using in-memory store; data is lost on restart")
	case config.StorageModePostgres:
		if cfg.DBPassword == "" {
			slog.Error("DB_PASSWORD environment variable is required")
			os.Exit(1)
		}
		if err := database.Connect(cfg); err != nil {
			slog.Error("database connection failed", "error", err)
			os.Exit(1)
		}
		if err := database.Migrate(); err != nil {
			slog.Error("migration failed", "error", err)
			os.Exit(1)
		}
		store = repository.NewGormStore(database.DB)
	default:
		slog.Error("unknown STORAGE_MODE", "mode", cfg.StorageMode)
		os.Exit(1)
	}

	// Workflow definitions (roles that already have a stored graph are left alone)
	workflows := workflow.NewStore(store.Workflows, store.Stages)
	if file, err := workflow.LoadFromFile(cfg.WorkflowsPath); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			slog.Error("failed to load workflows", "path", cfg.WorkflowsPath, "error", err)
			os.Exit(1)
		}
		slog.Warn("workflow file not found, skipping seed", "path", cfg.WorkflowsPath)
	} else {
		result, err := workflows.Seed(context.Background(), file, false)
		if err != nil {
			slog.Error("workflow seed failed", "error", err)
			os.Exit(1)
		}
		slog.Info("workflows seeded", "workflows", result.Workflows, "stages", result.Stages, "skipped", result.Skipped)
	}

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
			slog.SetDefault(slog.New(logging.NewMultiHandler(
				stdout,
				logging.NewSentryHandler(sentry.CurrentHub()),
			)))
		}
	}

	// Contract storage
	var bucket storage.Bucket
	if cfg.UsesRemoteStorage() {
		bucket = storage.NewHTTPBucket(cfg.StorageURL, cfg.StorageBucket, cfg.StorageServiceKey)
	} else {
		bucket = storage.NewDirBucket(cfg.ContractsDir)
	}

	// Email
	var sender email.Sender = email.LogSender{}
	if cfg.ResendAPIKey != "" {
		sender = email.NewResendClient(cfg.ResendAPIKey, cfg.EmailFrom)
	} else {
		slog.Warn("RESEND_API_KEY not set, emails are logged instead of sent")
	}

	// Services
	recorder := services.NewAnalyticsRecorder(store.Events, cfg.AnalyticsBuffer, cfg.AnalyticsFlushInterval)
	emailService := services.NewEmailService(sender)
	authService := services.NewAuthService(store, cfg, emailService, recorder)
	progressService := services.NewProgressService(store, workflows, recorder)
	adminService := services.NewAdminService(store, progressService, workflows, recorder)
	analyticsService := services.NewAnalyticsService(store)
	flowService := services.NewFlowService(store.Flows)
	contractService := services.NewContractService(bucket)
	marketplaceService := services.NewMarketplaceService(store.Profiles, cfg.MarketplaceStatuses)

	// Refresh token cleanup (daily)
	cleanupDone := make(chan struct{})
	logging.StartCleanup(authService, cleanupDone)

	// Fiber app
	app := fiber.New(fiber.Config{
		BodyLimit:    4 * 1024 * 1024,
		ErrorHandler: customErrorHandler,
	})

	// Sentry middleware
	app.Use(sentryfiber.New(sentryfiber.Options{
		Repanic:         true,
		WaitForDelivery: false,
	}))

	// Global middleware
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(fiberlogger.New(fiberlogger.Config{
		Format: "${time} | ${status} | ${latency} | ${ip} | ${method} | ${path}\n",
	}))
	app.Use(middleware.CORS(cfg))
	app.Use(func(c *fiber.Ctx) error {
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("X-Frame-Options", "DENY")
		c.Set("X-XSS-Protection", "1; mode=block")
		return c.Next()
	})

	// Routes
	routes.Setup(app, cfg, store.Profiles, routes.Handlers{
		Auth:        handlers.NewAuthHandler(authService, cfg),
		Health:      handlers.NewHealthHandler(cfg.StorageMode),
		Onboarding:  handlers.NewOnboardingHandler(progressService),
		Admin:       handlers.NewAdminHandler(adminService, progressService, analyticsService),
		Flows:       handlers.NewFlowHandler(flowService),
		Contracts:   handlers.NewContractHandler(contractService),
		Email:       handlers.NewEmailHandler(emailService),
		Marketplace: handlers.NewMarketplaceHandler(marketplaceService),
		Pages:       handlers.NewPageHandler(),
	}, guard.New(cfg.JWTSecret, store.Profiles, progressService))

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("server starting", "port", cfg.Port, "storage", cfg.StorageMode)
		if err := app.Listen(":" + cfg.Port); err != nil {
			slog.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	<-quit
	slog.Info("shutting down server...")

	close(cleanupDone)
	if err := app.Shutdown(); err != nil {
		slog.Error("server shutdown error", "error", err)
	}
	recorder.Stop()
	sentry.Flush(2 * time.Second)
	database.Close()

	slog.Info("server stopped")
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal server error"
	var e *fiber.Error
	if errors.As(err, &e) {
		code = e.Code
		message = e.Message
	}

	// Only expose error details for client errors (4xx), not server errors (5xx)
	if code >= 500 {
		slog.Error("unhandled server error", "method", c.Method(), "path", c.Path(), "error", err)
		message = "Internal server error"
	}

	return c.Status(code).JSON(dto.ErrorResponse{Error: message})
}
