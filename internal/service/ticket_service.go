package service

import (
	"context"
	"encoding/base64"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/support-desk/internal/blob"
	"github.com/spec-kit/support-desk/internal/domain"
	"github.com/spec-kit/support-desk/internal/events"
	"github.com/spec-kit/support-desk/internal/repository"
	apperrors "github.com/spec-kit/support-desk/pkg/util/errorutil"
)

// TicketService applies ticket lifecycle operations: creation and status transitions.
type TicketService struct {
	tickets        repository.TicketRepository
	blobs          blob.Store
	publisher      events.Publisher
	idempotency    repository.IdempotencyRepository
	logger         *zap.Logger
	now            func() time.Time
	newID          func() string
	contentType    string
	idempotencyTTL time.Duration
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	TicketRepo      repository.TicketRepository
	Blobs           blob.Store
	Publisher       events.Publisher
	IdempotencyRepo repository.IdempotencyRepository
	Logger          *zap.Logger
	// Now and NewID default to time.Now and uuid v4.
	Now            func() time.Time
	NewID          func() string
	ContentType    string
	IdempotencyTTL time.Duration
}

// TicketCreateInput describes ticket creation payload.
type TicketCreateInput struct {
	Title       string
	Description string
	// Attachment is base64 encoded file content; empty means no attachment.
	Attachment     string
	IdempotencyKey string
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	s := &TicketService{
		tickets:        deps.TicketRepo,
		blobs:          deps.Blobs,
		publisher:      deps.Publisher,
		idempotency:    deps.IdempotencyRepo,
		logger:         deps.Logger,
		now:            deps.Now,
		newID:          deps.NewID,
		contentType:    deps.ContentType,
		idempotencyTTL: deps.IdempotencyTTL,
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.newID == nil {
		s.newID = uuid.NewString
	}
	if s.contentType == "" {
		s.contentType = "image/jpeg"
	}
	if s.idempotencyTTL <= 0 {
		s.idempotencyTTL = 24 * time.Hour
	}
	return s
}

// CreateTicket persists a NEW ticket owned by the caller and queues a creation event.
// A queue failure after the record is stored is reported as an upstream error; the
// ticket still exists.
func (s *TicketService) CreateTicket(ctx context.Context, caller domain.Caller, input TicketCreateInput) (*domain.Ticket, error) {
	// text is stored as sent; whitespace only counts as empty
	blankTitle := strings.TrimSpace(input.Title) == ""
	blankDescription := strings.TrimSpace(input.Description) == ""
	if blankTitle || blankDescription {
		return nil, apperrors.NewValidationError("title and description required", fieldErrors(map[string]bool{
			"title":       blankTitle,
			"description": blankDescription,
		}))
	}

	var attachment []byte
	if input.Attachment != "" {
		decoded, err := decodeAttachment(input.Attachment)
		if err != nil {
			return nil, apperrors.NewValidationError("attachment must be base64 encoded", map[string]any{"attachment": err.Error()})
		}
		attachment = decoded
	}

	ticket := &domain.Ticket{
		ID:          s.newID(),
		UserSub:     caller.Subject,
		CreatedAt:   s.now(),
		Title:       input.Title,
		Description: input.Description,
		Status:      domain.TicketStatusNew,
	}

	idemKey := ""
	if input.IdempotencyKey != "" && s.idempotency != nil {
		idemKey = caller.Subject + ":" + input.IdempotencyKey
		existingID, claimed, err := s.idempotency.Claim(ctx, idemKey, ticket.ID, s.idempotencyTTL)
		if err != nil {
			return nil, apperrors.NewUpstreamError("failed to create ticket", err)
		}
		if !claimed {
			return s.replayCreate(ctx, caller, existingID)
		}
	}

	if attachment != nil {
		url, err := s.blobs.Store(ctx, attachment, s.contentType)
		if err != nil {
			s.releaseKey(ctx, idemKey)
			return nil, apperrors.NewUpstreamError("failed to store attachment", err)
		}
		ticket.Attachment = &url
	}

	if err := s.tickets.Create(ctx, ticket); err != nil {
		s.releaseKey(ctx, idemKey)
		return nil, apperrors.NewUpstreamError("failed to create ticket", err)
	}

	event := events.TicketCreated{TicketID: ticket.ID, Title: ticket.Title, Description: ticket.Description}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Error("ticket persisted but creation event not queued",
			zap.String("ticket_id", ticket.ID), zap.Error(err))
		de := apperrors.ToDomainError(apperrors.NewUpstreamError("failed to create ticket", err))
		de.Details["ticketId"] = ticket.ID
		return nil, de
	}

	s.logger.Info("ticket created", zap.String("ticket_id", ticket.ID), zap.String("user_sub", ticket.UserSub))
	return ticket, nil
}

// replayCreate answers a repeated create carrying an already used idempotency key.
func (s *TicketService) replayCreate(ctx context.Context, caller domain.Caller, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if errors.Is(err, repository.ErrTicketNotFound) {
		return nil, apperrors.NewConflict("a request with this idempotency key is still in progress", nil)
	}
	if err != nil {
		return nil, apperrors.NewUpstreamError("failed to create ticket", err)
	}
	if ticket.UserSub != caller.Subject {
		return nil, apperrors.NewConflict("idempotency key already used", nil)
	}
	s.logger.Info("ticket create replayed", zap.String("ticket_id", ticket.ID))
	return ticket, nil
}

func (s *TicketService) releaseKey(ctx context.Context, key string) {
	if key == "" {
		return
	}
	if err := s.idempotency.Release(ctx, key); err != nil {
		s.logger.Warn("failed to release idempotency key", zap.String("key", key), zap.Error(err))
	}
}

// UpdateStatus moves a ticket to OPEN or CLOSED. Only admins may call it. The current
// status is not consulted: any ticket can be moved to either target, and repeating a
// transition is a no-op. Updating an unknown ticket is a not-found error.
func (s *TicketService) UpdateStatus(ctx context.Context, caller domain.Caller, ticketID string, status domain.TicketStatus) (domain.TicketStatus, error) {
	if !caller.IsAdmin() {
		return "", apperrors.NewForbidden("admin role required")
	}
	ticketID = strings.TrimSpace(ticketID)
	if ticketID == "" {
		return "", apperrors.NewValidationError("ticketId required", map[string]any{"ticketId": "required"})
	}
	if !status.IsTransitionTarget() {
		return "", apperrors.NewValidationError("status must be OPEN or CLOSED", map[string]any{"status": string(status)})
	}

	if err := s.tickets.UpdateStatus(ctx, ticketID, status); err != nil {
		if errors.Is(err, repository.ErrTicketNotFound) {
			return "", apperrors.NewNotFound("ticket", map[string]any{"ticketId": ticketID})
		}
		return "", apperrors.NewUpstreamError("failed to change status", err)
	}

	s.logger.Info("ticket status changed",
		zap.String("ticket_id", ticketID),
		zap.String("status", string(status)),
		zap.String("by", caller.Subject))
	return status, nil
}

func decodeAttachment(raw string) ([]byte, error) {
	raw = strings.TrimSpace(raw)
	// data URLs are accepted as sent by browsers
	if strings.HasPrefix(raw, "data:") {
		if i := strings.Index(raw, ","); i >= 0 {
			raw = raw[i+1:]
		}
	}
	if data, err := base64.StdEncoding.DecodeString(raw); err == nil {
		return data, nil
	}
	return base64.RawStdEncoding.DecodeString(strings.TrimRight(raw, "="))
}

func fieldErrors(missing map[string]bool) map[string]any {
	details := map[string]any{}
	for field, isMissing := range missing {
		if isMissing {
			details[field] = "required"
		}
	}
	return details
}
