package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/support-desk/internal/service"
)

// ReminderScheduler fires the daily stale ticket digest at a fixed local time of day.
type ReminderScheduler struct {
	notifier *service.NotificationService
	logger   *zap.Logger
	hour     int
	minute   int
	now      func() time.Time
	after    func(time.Duration) <-chan time.Time
}

// NewReminderScheduler creates a scheduler firing at hour:minute each day.
func NewReminderScheduler(notifier *service.NotificationService, logger *zap.Logger, hour, minute int) *ReminderScheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReminderScheduler{
		notifier: notifier,
		logger:   logger,
		hour:     hour,
		minute:   minute,
		now:      time.Now,
		after:    time.After,
	}
}

// NextRun returns the first hour:minute strictly after now, in now's location.
func NextRun(now time.Time, hour, minute int) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
	if !next.After(now) {
		next = time.Date(now.Year(), now.Month(), now.Day()+1, hour, minute, 0, 0, now.Location())
	}
	return next
}

// Run blocks until ctx is cancelled, triggering the reminder once per day.
func (s *ReminderScheduler) Run(ctx context.Context) error {
	for {
		next := NextRun(s.now(), s.hour, s.minute)
		s.logger.Info("daily reminder scheduled", zap.Time("at", next))
		select {
		case <-ctx.Done():
			return nil
		case <-s.after(next.Sub(s.now())):
		}
		result := s.notifier.DailyReminder(ctx)
		s.logger.Info("daily reminder run",
			zap.Time("cutoff", result.Cutoff),
			zap.Int("stale", result.Stale),
			zap.Bool("sent", result.Sent))
	}
}
