package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/support-desk/internal/config"
	"github.com/spec-kit/support-desk/internal/domain"
	"github.com/spec-kit/support-desk/internal/events"
	"github.com/spec-kit/support-desk/internal/mail"
	"github.com/spec-kit/support-desk/internal/repository"
)

const (
	createdSubject = "New ticket in your system"
	digestSubject  = "Unopened tickets from previous days"
)

// NotificationService emails the administrator about new and stale tickets. None of its
// operations return errors: failures are logged and dropped.
type NotificationService struct {
	tickets repository.TicketRepository
	sender  mail.Sender
	logger  *zap.Logger
	cfg     config.NotificationConfig
	now     func() time.Time
}

// NewNotificationService creates the service. now defaults to time.Now.
func NewNotificationService(tickets repository.TicketRepository, sender mail.Sender, logger *zap.Logger, cfg config.NotificationConfig, now func() time.Time) *NotificationService {
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{tickets: tickets, sender: sender, logger: logger, cfg: cfg, now: now}
}

// ProcessCreationEvents sends one email per event. A failed send is logged and does not
// stop the rest of the batch. It returns how many emails were accepted.
func (n *NotificationService) ProcessCreationEvents(ctx context.Context, batch []events.TicketCreated) int {
	sent := 0
	for _, event := range batch {
		msg := mail.Message{
			From:    n.cfg.EmailFrom,
			To:      []string{n.cfg.AdminEmail},
			Subject: createdSubject,
			Body:    CreationEmailBody(event),
		}
		if err := n.sender.Send(ctx, msg); err != nil {
			n.logger.Error("creation email failed", zap.String("ticket_id", event.TicketID), zap.Error(err))
			continue
		}
		sent++
		n.logger.Info("creation email sent", zap.String("ticket_id", event.TicketID))
	}
	return sent
}

// ReminderResult summarizes one DailyReminder run.
type ReminderResult struct {
	Cutoff time.Time
	Stale  int
	Sent   bool
}

// DailyReminder emails a digest of NEW tickets created before the start of the previous
// calendar day. Nothing is sent when there are none.
func (n *NotificationService) DailyReminder(ctx context.Context) ReminderResult {
	result := ReminderResult{Cutoff: StaleCutoff(n.now())}

	stale, err := n.tickets.ListByStatusCreatedBefore(ctx, domain.TicketStatusNew, result.Cutoff)
	if err != nil {
		n.logger.Error("daily reminder query failed", zap.Error(err))
		return result
	}
	result.Stale = len(stale)
	if len(stale) == 0 {
		n.logger.Info("daily reminder: no stale tickets", zap.Time("cutoff", result.Cutoff))
		return result
	}

	msg := mail.Message{
		From:    n.cfg.EmailFrom,
		To:      []string{n.cfg.AdminEmail},
		Subject: digestSubject,
		Body:    DigestEmailBody(stale),
	}
	if err := n.sender.Send(ctx, msg); err != nil {
		n.logger.Error("daily reminder email failed", zap.Int("stale", len(stale)), zap.Error(err))
		return result
	}
	result.Sent = true
	n.logger.Info("daily reminder sent", zap.Int("stale", len(stale)))
	return result
}

// StaleCutoff returns midnight at the start of the calendar day before now, in now's location.
func StaleCutoff(now time.Time) time.Time {
	y, m, d := now.AddDate(0, 0, -1).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, now.Location())
}

// CreationEmailBody renders the per-ticket notification.
func CreationEmailBody(event events.TicketCreated) string {
	return fmt.Sprintf("New ticket added to your system\n ID: %s\n Title: %s\n %s",
		event.TicketID, event.Title, event.Description)
}

// DigestEmailBody lists stale tickets one per line.
func DigestEmailBody(tickets []domain.Ticket) string {
	lines := make([]string, 0, len(tickets))
	for _, t := range tickets {
		lines = append(lines, fmt.Sprintf("ID: %s - %s", t.ID, t.Title))
	}
	return "Tickets that have not been opened:\n" + strings.Join(lines, "\n")
}
