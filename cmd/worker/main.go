package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"

	flag "github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/spec-kit/support-desk/internal/app"
	"github.com/spec-kit/support-desk/internal/config"
	"github.com/spec-kit/support-desk/internal/observability"
	"github.com/spec-kit/support-desk/internal/service"
	"github.com/spec-kit/support-desk/internal/worker"
)

func main() {
	var (
		consume     bool
		schedule    bool
		runReminder bool
	)
	flag.BoolVar(&consume, "consume", true, "consume ticket creation events and email the administrator")
	flag.BoolVar(&schedule, "schedule", false, "send the stale ticket digest every day at REMINDER_TIME")
	flag.BoolVar(&runReminder, "run-reminder", false, "send the stale ticket digest once and exit")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	cfg.App.Name += "-worker"

	logger, err := observability.NewLogger(cfg.Logger, cfg.App)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	infra, err := app.Open(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("failed to open backends", zap.Error(err))
	}
	defer infra.Close()

	notifier := service.NewNotificationService(infra.Tickets, infra.Mail, logger, cfg.Notification, nil)

	if (runReminder || schedule) && infra.InProcessStore() {
		logger.Warn("POSTGRES_DSN not set; the daily reminder runs inside the API process")
		if runReminder {
			return
		}
		schedule = false
	}

	if runReminder {
		result := notifier.DailyReminder(ctx)
		logger.Info("daily reminder finished",
			zap.Time("cutoff", result.Cutoff),
			zap.Int("stale", result.Stale),
			zap.Bool("sent", result.Sent))
		return
	}

	if consume && infra.InProcessQueue() {
		logger.Warn("REDIS_ADDR not set; the worker has no events to consume")
		consume = false
	}
	if !consume && !schedule {
		logger.Error("nothing to do: enable --consume or --schedule")
		return
	}

	var wg sync.WaitGroup
	if consume {
		w := worker.NewNotificationWorker(infra.Queue, notifier, logger, cfg.Queue.BatchSize)
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = w.Run(ctx)
		}()
	}
	if schedule {
		hour, minute, err := cfg.Reminder.Clock()
		if err != nil {
			logger.Fatal("invalid reminder time", zap.Error(err))
		}
		s := worker.NewReminderScheduler(notifier, logger, hour, minute)
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.Run(ctx)
		}()
	}

	wg.Wait()
	logger.Info("worker stopped")
}
