package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/support-desk/internal/api/dto"
	"github.com/spec-kit/support-desk/internal/auth"
	"github.com/spec-kit/support-desk/internal/domain"
	"github.com/spec-kit/support-desk/internal/service"
	apperrors "github.com/spec-kit/support-desk/pkg/util/errorutil"
)

// HeaderIdempotencyKey lets clients retry ticket creation safely.
const HeaderIdempotencyKey = "Idempotency-Key"

// TicketsHandler manages ticket endpoints.
type TicketsHandler struct {
	tickets *service.TicketService
	queries *service.QueryService
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(ticketService *service.TicketService, queryService *service.QueryService) *TicketsHandler {
	return &TicketsHandler{tickets: ticketService, queries: queryService}
}

// CreateTicket POST /tickets/create.
func (h *TicketsHandler) CreateTicket(c *fiber.Ctx) error {
	caller, ok := auth.CallerFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required", auth.ErrDecode)
	}
	var req dto.CreateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	ticket, err := h.tickets.CreateTicket(c.UserContext(), caller, service.TicketCreateInput{
		Title:          req.Title,
		Description:    req.Description,
		Attachment:     req.Attachment,
		IdempotencyKey: strings.TrimSpace(c.Get(HeaderIdempotencyKey)),
	})
	if err != nil {
		return err
	}
	return c.JSON(dto.NewTicketResponse(ticket))
}

// ListTickets GET /tickets/all. Admins get the open and new partitions; users get their own tickets.
func (h *TicketsHandler) ListTickets(c *fiber.Ctx) error {
	caller, ok := auth.CallerFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required", auth.ErrDecode)
	}
	listing, err := h.queries.ListTickets(c.UserContext(), caller)
	if err != nil {
		return err
	}
	if listing.Role == domain.RoleAdmin {
		return c.JSON(dto.AdminTicketListResponse{
			TicketsOpen: dto.NewTicketPartition(listing.Open.Tickets),
			TicketsNew:  dto.NewTicketPartition(listing.New.Tickets),
		})
	}
	return c.JSON(dto.NewTicketPartition(listing.Owned.Tickets))
}

// UpdateStatus POST /tickets/updateStatus.
func (h *TicketsHandler) UpdateStatus(c *fiber.Ctx) error {
	caller, ok := auth.CallerFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required", auth.ErrDecode)
	}
	var req dto.UpdateStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	status, err := h.tickets.UpdateStatus(c.UserContext(), caller, req.TicketID, domain.TicketStatus(strings.TrimSpace(req.Status)))
	if err != nil {
		return err
	}
	return c.JSON(dto.UpdateStatusResponse{Status: status})
}
