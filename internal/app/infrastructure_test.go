package app

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/support-desk/internal/config"
	"github.com/spec-kit/support-desk/internal/domain"
	"github.com/spec-kit/support-desk/internal/events"
	"github.com/spec-kit/support-desk/internal/mail"
	"github.com/spec-kit/support-desk/internal/repository"
	"github.com/spec-kit/support-desk/internal/service"
)

func TestOpenFallsBackToInProcessBackends(t *testing.T) {
	cfg := &config.Config{
		Queue:        config.QueueConfig{Stream: "s", Group: "g", Consumer: "c"},
		Notification: config.NotificationConfig{AdminEmail: "admin@example.com", EmailFrom: "admin@example.com"},
	}

	infra, err := Open(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	defer infra.Close()

	assert.False(t, infra.Postgres.Enabled())
	assert.False(t, infra.Redis.Enabled())
	assert.IsType(t, &repository.MemoryTicketRepository{}, infra.Tickets)
	assert.IsType(t, &repository.MemoryIdempotencyRepository{}, infra.Idempotency)
	assert.IsType(t, &events.MemoryQueue{}, infra.Queue)
	assert.IsType(t, &mail.LogSender{}, infra.Mail)
	assert.True(t, infra.InProcessQueue())
	assert.True(t, infra.InProcessStore())
	assert.Equal(t, LocalJobs{Consume: true, Remind: true}, infra.LocalJobs())
}

func TestInMemoryTicketsAreNotShared(t *testing.T) {
	ctx := context.Background()
	cfg := &config.Config{
		Notification: config.NotificationConfig{AdminEmail: "admin@example.com", EmailFrom: "admin@example.com"},
	}
	now := time.Date(2026, 10, 18, 8, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	api, err := Open(ctx, cfg, zap.NewNop())
	require.NoError(t, err)
	defer api.Close()
	other, err := Open(ctx, cfg, zap.NewNop())
	require.NoError(t, err)
	defer other.Close()

	require.NoError(t, api.Tickets.Create(ctx, &domain.Ticket{
		ID: "stale", UserSub: "u1", CreatedAt: now.Add(-72 * time.Hour),
		Title: "Printer", Description: "d", Status: domain.TicketStatusNew,
	}))

	// a second process cannot see the tickets, so the reminder belongs to the API
	elsewhere := service.NewNotificationService(other.Tickets, mail.NewMemorySender(), zap.NewNop(), cfg.Notification, clock)
	assert.Zero(t, elsewhere.DailyReminder(ctx).Stale)
	require.True(t, api.LocalJobs().Remind)

	sender := mail.NewMemorySender()
	local := service.NewNotificationService(api.Tickets, sender, zap.NewNop(), cfg.Notification, clock)
	result := local.DailyReminder(ctx)
	assert.Equal(t, 1, result.Stale)
	assert.True(t, result.Sent)
	require.Len(t, sender.Sent(), 1)
	assert.Contains(t, sender.Sent()[0].Body, "ID: stale - Printer")
}

func TestOpenUsesSMTPWhenConfigured(t *testing.T) {
	cfg := &config.Config{
		Notification: config.NotificationConfig{SMTPHost: "smtp.example.com", SMTPPort: 25},
	}

	infra, err := Open(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	defer infra.Close()

	assert.IsType(t, &mail.SMTPSender{}, infra.Mail)
}
