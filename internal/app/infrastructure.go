// Package app assembles the storage, queue and mail backends shared by the API and worker binaries.
package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/spec-kit/support-desk/internal/config"
	"github.com/spec-kit/support-desk/internal/events"
	"github.com/spec-kit/support-desk/internal/mail"
	"github.com/spec-kit/support-desk/internal/persistence"
	"github.com/spec-kit/support-desk/internal/repository"
)

// Queue both publishes and consumes creation events.
type Queue interface {
	events.Publisher
	events.Consumer
}

// Infrastructure holds the backends selected from configuration. Missing Postgres or Redis
// settings fall back to in-process implementations.
type Infrastructure struct {
	Postgres    *persistence.Postgres
	Redis       *persistence.Redis
	Tickets     repository.TicketRepository
	Idempotency repository.IdempotencyRepository
	Queue       Queue
	Mail        mail.Sender
}

// Open connects to the configured backends and runs migrations when enabled.
func Open(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Infrastructure, error) {
	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	infra := &Infrastructure{Postgres: pg}

	if pg.Enabled() {
		if cfg.Postgres.RunMigrations {
			if err := persistence.RunMigrations(ctx, pg.PoolHandle(), cfg.Postgres.MigrationsDir, logger); err != nil {
				pg.Close()
				return nil, fmt.Errorf("run migrations: %w", err)
			}
		}
		infra.Tickets = repository.NewTicketRepository(pg.PoolHandle())
	} else {
		infra.Tickets = repository.NewMemoryTicketRepository()
	}

	infra.Redis = persistence.NewRedis(ctx, cfg.Redis, logger)
	if infra.Redis.Enabled() {
		stream := events.NewRedisStream(infra.Redis.Client, events.RedisStreamConfig{
			Stream:   cfg.Queue.Stream,
			Group:    cfg.Queue.Group,
			Consumer: cfg.Queue.Consumer,
			Block:    cfg.Queue.Block(),
		})
		if err := stream.EnsureGroup(ctx); err != nil {
			logger.Warn("consumer group not ready", zap.String("stream", cfg.Queue.Stream), zap.Error(err))
		}
		infra.Queue = stream
		infra.Idempotency = repository.NewRedisIdempotencyRepository(infra.Redis.Client)
	} else {
		infra.Queue = events.NewMemoryQueue(0)
		infra.Idempotency = repository.NewMemoryIdempotencyRepository()
	}

	if addr := cfg.Notification.SMTPAddr(); addr != "" {
		infra.Mail = mail.NewSMTPSender(addr, cfg.Notification.SMTPUser, cfg.Notification.SMTPPassword)
		logger.Info("mail relay configured", zap.String("addr", addr))
	} else {
		logger.Warn("SMTP_HOST not provided; notification emails are logged only")
		infra.Mail = mail.NewLogSender(logger)
	}
	return infra, nil
}

// InProcessQueue reports whether events stay inside this process. The API then has to run
// the notification consumer itself.
func (i *Infrastructure) InProcessQueue() bool {
	_, ok := i.Queue.(*events.MemoryQueue)
	return ok
}

// InProcessStore reports whether tickets live only in this process's memory. The daily
// reminder then has to run in the API, the only process that sees them.
func (i *Infrastructure) InProcessStore() bool {
	_, ok := i.Tickets.(*repository.MemoryTicketRepository)
	return ok
}

// LocalJobs lists the notification jobs the API process must run itself.
type LocalJobs struct {
	Consume bool
	Remind  bool
}

// LocalJobs derives the in-process jobs from the selected backends.
func (i *Infrastructure) LocalJobs() LocalJobs {
	return LocalJobs{Consume: i.InProcessQueue(), Remind: i.InProcessStore()}
}

// Close releases connections.
func (i *Infrastructure) Close() {
	i.Redis.Close()
	i.Postgres.Close()
}
