package service

import (
	"context"
	"errors"
	"strings"
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
)

var notifyCfg = config.NotificationConfig{AdminEmail: "admin@example.com", EmailFrom: "desk@example.com"}

func TestProcessCreationEventsSendsOnePerEvent(t *testing.T) {
	sender := mail.NewMemorySender()
	n := NewNotificationService(repository.NewMemoryTicketRepository(), sender, zap.NewNop(), notifyCfg, nil)

	sent := n.ProcessCreationEvents(context.Background(), []events.TicketCreated{
		{TicketID: "t1", Title: "Printer down", Description: "3rd floor"},
		{TicketID: "t2", Title: "VPN", Description: "timeouts"},
	})
	assert.Equal(t, 2, sent)

	msgs := sender.Sent()
	require.Len(t, msgs, 2)
	assert.Equal(t, []string{"admin@example.com"}, msgs[0].To)
	assert.Equal(t, "desk@example.com", msgs[0].From)
	assert.Equal(t, createdSubject, msgs[0].Subject)
	assert.Equal(t, "New ticket added to your system\n ID: t1\n Title: Printer down\n 3rd floor", msgs[0].Body)
	assert.Contains(t, msgs[1].Body, "ID: t2")
}

func TestProcessCreationEventsIsolatesFailures(t *testing.T) {
	sender := mail.NewMemorySender()
	sender.FailWhen(func(m mail.Message) error {
		if strings.Contains(m.Body, "ID: t2") {
			return errors.New("mailbox unavailable")
		}
		return nil
	})
	n := NewNotificationService(repository.NewMemoryTicketRepository(), sender, zap.NewNop(), notifyCfg, nil)

	sent := n.ProcessCreationEvents(context.Background(), []events.TicketCreated{
		{TicketID: "t1", Title: "a", Description: "a"},
		{TicketID: "t2", Title: "b", Description: "b"},
		{TicketID: "t3", Title: "c", Description: "c"},
	})
	assert.Equal(t, 2, sent)
	msgs := sender.Sent()
	require.Len(t, msgs, 2)
	assert.Contains(t, msgs[0].Body, "ID: t1")
	assert.Contains(t, msgs[1].Body, "ID: t3")
}

func TestStaleCutoff(t *testing.T) {
	loc := time.FixedZone("CET", 3600)
	now := time.Date(2026, 3, 1, 0, 30, 0, 0, loc)
	assert.Equal(t, time.Date(2026, 2, 28, 0, 0, 0, 0, loc), StaleCutoff(now))

	now = time.Date(2026, 10, 18, 23, 59, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 10, 17, 0, 0, 0, 0, time.UTC), StaleCutoff(now))
}

func seedAt(t *testing.T, repo repository.TicketRepository, id, title string, status domain.TicketStatus, at time.Time) {
	t.Helper()
	require.NoError(t, repo.Create(context.Background(), &domain.Ticket{
		ID: id, UserSub: "u1", CreatedAt: at, Title: title, Description: "d", Status: status,
	}))
}

func TestDailyReminderListsOnlyStaleNewTickets(t *testing.T) {
	now := time.Date(2026, 10, 18, 8, 0, 0, 0, time.UTC)
	repo := repository.NewMemoryTicketRepository()
	seedAt(t, repo, "old", "Printer down", domain.TicketStatusNew, now.Add(-48*time.Hour))
	seedAt(t, repo, "recent", "VPN", domain.TicketStatusNew, now.Add(-time.Hour))
	seedAt(t, repo, "old-open", "Keyboard", domain.TicketStatusOpen, now.Add(-72*time.Hour))
	sender := mail.NewMemorySender()
	n := NewNotificationService(repo, sender, zap.NewNop(), notifyCfg, func() time.Time { return now })

	result := n.DailyReminder(context.Background())

	assert.True(t, result.Sent)
	assert.Equal(t, 1, result.Stale)
	msgs := sender.Sent()
	require.Len(t, msgs, 1)
	assert.Equal(t, digestSubject, msgs[0].Subject)
	assert.Equal(t, []string{"admin@example.com"}, msgs[0].To)
	assert.Equal(t, "Tickets that have not been opened:\nID: old - Printer down", msgs[0].Body)
}

func TestDailyReminderDigestJoinsLines(t *testing.T) {
	now := time.Date(2026, 10, 18, 8, 0, 0, 0, time.UTC)
	repo := repository.NewMemoryTicketRepository()
	seedAt(t, repo, "a", "First", domain.TicketStatusNew, now.Add(-96*time.Hour))
	seedAt(t, repo, "b", "Second", domain.TicketStatusNew, now.Add(-50*time.Hour))
	sender := mail.NewMemorySender()
	n := NewNotificationService(repo, sender, zap.NewNop(), notifyCfg, func() time.Time { return now })

	n.DailyReminder(context.Background())
	require.Len(t, sender.Sent(), 1)
	assert.Equal(t, "Tickets that have not been opened:\nID: a - First\nID: b - Second", sender.Sent()[0].Body)
}

func TestDailyReminderYesterdayIsNotStale(t *testing.T) {
	now := time.Date(2026, 10, 18, 8, 0, 0, 0, time.UTC)
	repo := repository.NewMemoryTicketRepository()
	seedAt(t, repo, "y", "yesterday", domain.TicketStatusNew, time.Date(2026, 10, 17, 0, 0, 0, 0, time.UTC))
	seedAt(t, repo, "d", "day before", domain.TicketStatusNew, time.Date(2026, 10, 16, 23, 59, 59, 0, time.UTC))
	sender := mail.NewMemorySender()
	n := NewNotificationService(repo, sender, zap.NewNop(), notifyCfg, func() time.Time { return now })

	result := n.DailyReminder(context.Background())
	assert.Equal(t, 1, result.Stale)
	assert.NotContains(t, sender.Sent()[0].Body, "yesterday")
}

func TestDailyReminderSendsNothingWhenNoneStale(t *testing.T) {
	now := time.Now()
	repo := repository.NewMemoryTicketRepository()
	seedAt(t, repo, "recent", "VPN", domain.TicketStatusNew, now.Add(-time.Minute))
	sender := mail.NewMemorySender()
	n := NewNotificationService(repo, sender, zap.NewNop(), notifyCfg, nil)

	result := n.DailyReminder(context.Background())
	assert.False(t, result.Sent)
	assert.Zero(t, result.Stale)
	assert.Empty(t, sender.Sent())
}

func TestDailyReminderSwallowsFailures(t *testing.T) {
	now := time.Date(2026, 10, 18, 8, 0, 0, 0, time.UTC)
	repo := repository.NewMemoryTicketRepository()
	seedAt(t, repo, "old", "Printer", domain.TicketStatusNew, now.Add(-48*time.Hour))

	sender := mail.NewMemorySender()
	sender.FailWhen(func(mail.Message) error { return errors.New("smtp down") })
	n := NewNotificationService(repo, sender, zap.NewNop(), notifyCfg, func() time.Time { return now })
	result := n.DailyReminder(context.Background())
	assert.False(t, result.Sent)
	assert.Equal(t, 1, result.Stale)

	broken := NewNotificationService(&failingRepo{TicketRepository: repo, failList: true}, mail.NewMemorySender(), zap.NewNop(), notifyCfg, func() time.Time { return now })
	result = broken.DailyReminder(context.Background())
	assert.False(t, result.Sent)
}
