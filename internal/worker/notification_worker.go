package worker

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/support-desk/internal/events"
	"github.com/spec-kit/support-desk/internal/service"
)

// NotificationWorker drains creation events and hands them to the notification service.
type NotificationWorker struct {
	consumer  events.Consumer
	notifier  *service.NotificationService
	logger    *zap.Logger
	batchSize int
	retry     time.Duration
}

// NewNotificationWorker wires a worker reading up to batchSize events per round.
func NewNotificationWorker(consumer events.Consumer, notifier *service.NotificationService, logger *zap.Logger, batchSize int) *NotificationWorker {
	if logger == nil {
		logger = zap.NewNop()
	}
	if batchSize <= 0 {
		batchSize = 10
	}
	return &NotificationWorker{
		consumer:  consumer,
		notifier:  notifier,
		logger:    logger,
		batchSize: batchSize,
		retry:     time.Second,
	}
}

// Run consumes until ctx is cancelled. Transport errors are logged and retried.
func (w *NotificationWorker) Run(ctx context.Context) error {
	w.logger.Info("notification worker started", zap.Int("batch_size", w.batchSize))
	for {
		if _, err := w.ProcessOnce(ctx); err != nil {
			if ctx.Err() != nil {
				w.logger.Info("notification worker stopped")
				return nil
			}
			w.logger.Error("receive creation events", zap.Error(err))
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(w.retry):
			}
		}
	}
}

// ProcessOnce handles a single batch and returns how many messages it acknowledged.
// Bodies that cannot be decoded are acknowledged and dropped; they would never succeed.
func (w *NotificationWorker) ProcessOnce(ctx context.Context) (int, error) {
	batch, err := w.consumer.Receive(ctx, w.batchSize)
	if err != nil {
		return 0, err
	}
	if len(batch) == 0 {
		return 0, nil
	}

	decoded := make([]events.TicketCreated, 0, len(batch))
	ids := make([]string, 0, len(batch))
	for _, msg := range batch {
		ids = append(ids, msg.ID)
		event, err := events.DecodeTicketCreated(msg.Body)
		if err != nil {
			if errors.Is(err, events.ErrMalformedEvent) {
				w.logger.Warn("dropping malformed creation event", zap.String("message_id", msg.ID), zap.Error(err))
				continue
			}
			return 0, err
		}
		decoded = append(decoded, event)
	}

	sent := w.notifier.ProcessCreationEvents(ctx, decoded)
	w.logger.Debug("creation batch processed", zap.Int("received", len(batch)), zap.Int("sent", sent))

	if err := w.consumer.Ack(ctx, ids...); err != nil {
		// unacked entries are redelivered, so the admin may get a duplicate email
		w.logger.Error("ack creation events", zap.Strings("ids", ids), zap.Error(err))
		return 0, nil
	}
	return len(ids), nil
}
