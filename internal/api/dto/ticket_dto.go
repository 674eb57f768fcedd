package dto

import (
	"github.com/spec-kit/support-desk/internal/domain"
)

// CreateTicketRequest payload. Attachment is base64 encoded.
type CreateTicketRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Attachment  string `json:"attachment,omitempty"`
}

// UpdateStatusRequest payload.
type UpdateStatusRequest struct {
	TicketID string `json:"ticketId"`
	Status   string `json:"status"`
}

// UpdateStatusResponse echoes the applied status.
type UpdateStatusResponse struct {
	Status domain.TicketStatus `json:"status"`
}

// TicketResponse is the wire form of a ticket. CreatedAt is epoch milliseconds.
type TicketResponse struct {
	TicketID    string              `json:"ticketId"`
	UserSub     string              `json:"userSub"`
	CreatedAt   int64               `json:"createdAt"`
	Title       string              `json:"title"`
	Description string              `json:"description"`
	Attachment  *string             `json:"attachment,omitempty"`
	Status      domain.TicketStatus `json:"status"`
}

// TicketPartition is a counted list of tickets.
type TicketPartition struct {
	Count   int              `json:"count"`
	Tickets []TicketResponse `json:"tickets"`
}

// AdminTicketListResponse splits the admin view by status.
type AdminTicketListResponse struct {
	TicketsOpen TicketPartition `json:"ticketsOpen"`
	TicketsNew  TicketPartition `json:"ticketsNew"`
}

// NewTicketResponse maps a domain ticket.
func NewTicketResponse(t *domain.Ticket) TicketResponse {
	return TicketResponse{
		TicketID:    t.ID,
		UserSub:     t.UserSub,
		CreatedAt:   t.CreatedAtMillis(),
		Title:       t.Title,
		Description: t.Description,
		Attachment:  t.Attachment,
		Status:      t.Status,
	}
}

// NewTicketPartition maps a slice of tickets, never producing a null list.
func NewTicketPartition(tickets []domain.Ticket) TicketPartition {
	items := make([]TicketResponse, 0, len(tickets))
	for i := range tickets {
		items = append(items, NewTicketResponse(&tickets[i]))
	}
	return TicketPartition{Count: len(items), Tickets: items}
}
