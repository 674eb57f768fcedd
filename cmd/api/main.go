package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/support-desk/internal/api/http"
	"github.com/spec-kit/support-desk/internal/api/http/handlers"
	"github.com/spec-kit/support-desk/internal/app"
	"github.com/spec-kit/support-desk/internal/auth"
	"github.com/spec-kit/support-desk/internal/blob"
	"github.com/spec-kit/support-desk/internal/config"
	"github.com/spec-kit/support-desk/internal/observability"
	"github.com/spec-kit/support-desk/internal/service"
	"github.com/spec-kit/support-desk/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger, cfg.App)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	infra, err := app.Open(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("failed to open backends", zap.Error(err))
	}
	defer infra.Close()

	blobs, err := blob.NewFileStore(cfg.Blob.Dir, cfg.App.PublicBaseURL+cfg.Blob.URLPrefix)
	if err != nil {
		logger.Fatal("failed to prepare attachment store", zap.Error(err))
	}

	verifier, err := auth.NewVerifier(cfg.Auth)
	if err != nil {
		logger.Fatal("failed to init credential verifier", zap.Error(err))
	}
	if cfg.Auth.VerifyMode == config.VerifyModeNone {
		logger.Warn("bearer token signatures are not verified; run behind a verifying gateway")
	}
	authMiddleware := auth.NewAuthMiddleware(auth.NewResolver(verifier, cfg.Auth.GroupsClaim, cfg.Auth.AdminGroup))

	ticketService := service.NewTicketService(service.TicketDependencies{
		TicketRepo:      infra.Tickets,
		Blobs:           blobs,
		Publisher:       infra.Queue,
		IdempotencyRepo: infra.Idempotency,
		Logger:          logger,
		ContentType:     cfg.Blob.ContentType,
		IdempotencyTTL:  cfg.Idempotency.TTL(),
	})
	queryService := service.NewQueryService(infra.Tickets)

	jobs := infra.LocalJobs()
	notifier := service.NewNotificationService(infra.Tickets, infra.Mail, logger, cfg.Notification, nil)
	if jobs.Consume {
		consumer := worker.NewNotificationWorker(infra.Queue, notifier, logger, cfg.Queue.BatchSize)
		go func() {
			_ = consumer.Run(ctx)
		}()
		logger.Info("running notification consumer in process")
	}
	if jobs.Remind {
		hour, minute, err := cfg.Reminder.Clock()
		if err != nil {
			logger.Fatal("invalid reminder time", zap.Error(err))
		}
		scheduler := worker.NewReminderScheduler(notifier, logger, hour, minute)
		go func() {
			_ = scheduler.Run(ctx)
		}()
		logger.Info("running daily reminder in process", zap.String("at", cfg.Reminder.At))
	}

	metrics := observability.NewMetrics()
	fiberApp := fiber.New(fiber.Config{
		AppName:               cfg.App.Name,
		DisableStartupMessage: true,
		BodyLimit:             10 * 1024 * 1024,
	})
	httptransport.RegisterMiddlewares(fiberApp, logger, metrics, cfg.App.RequestTimeout())

	healthHandler := handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, map[string]handlers.Pinger{
		"postgres": infra.Postgres,
		"redis":    infra.Redis,
	})
	httptransport.RegisterRoutes(fiberApp, httptransport.RouteConfig{
		Health:            healthHandler,
		Tickets:           handlers.NewTicketsHandler(ticketService, queryService),
		AuthMiddleware:    authMiddleware,
		AttachmentsDir:    blobs.Dir(),
		AttachmentsPrefix: cfg.Blob.URLPrefix,
	})

	go func() {
		logger.Info("http server listening", zap.String("addr", cfg.App.Addr()))
		if err := fiberApp.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	cancel()
	_ = fiberApp.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
