package service

import (
	"context"

	"github.com/spec-kit/support-desk/internal/domain"
	"github.com/spec-kit/support-desk/internal/repository"
	apperrors "github.com/spec-kit/support-desk/pkg/util/errorutil"
)

// TicketPartition is one ordered slice of tickets with its size.
type TicketPartition struct {
	Count   int
	Tickets []domain.Ticket
}

// TicketListing is the role-dependent answer to ListTickets. Admins get Open and New;
// users get Owned.
type TicketListing struct {
	Role  domain.Role
	Open  TicketPartition
	New   TicketPartition
	Owned TicketPartition
}

// QueryService retrieves tickets partitioned by the caller's role.
type QueryService struct {
	tickets repository.TicketRepository
}

// NewQueryService constructs the service.
func NewQueryService(tickets repository.TicketRepository) *QueryService {
	return &QueryService{tickets: tickets}
}

// ListTickets returns the OPEN and NEW queues for admins and the caller's own tickets
// otherwise. CLOSED tickets never reach admins through this path.
func (s *QueryService) ListTickets(ctx context.Context, caller domain.Caller) (*TicketListing, error) {
	if caller.IsAdmin() {
		open, err := s.tickets.ListByStatus(ctx, domain.TicketStatusOpen)
		if err != nil {
			return nil, apperrors.NewUpstreamError("failed to list tickets", err)
		}
		fresh, err := s.tickets.ListByStatus(ctx, domain.TicketStatusNew)
		if err != nil {
			return nil, apperrors.NewUpstreamError("failed to list tickets", err)
		}
		return &TicketListing{
			Role: domain.RoleAdmin,
			Open: partition(open, func(t *domain.Ticket) bool { return t.Status == domain.TicketStatusOpen }),
			New:  partition(fresh, func(t *domain.Ticket) bool { return t.Status == domain.TicketStatusNew }),
		}, nil
	}

	owned, err := s.tickets.ListByOwner(ctx, caller.Subject)
	if err != nil {
		return nil, apperrors.NewUpstreamError("failed to list tickets", err)
	}
	return &TicketListing{
		Role:  domain.RoleUser,
		Owned: partition(owned, func(t *domain.Ticket) bool { return t.UserSub == caller.Subject }),
	}, nil
}

// partition keeps only tickets agreeing with the access path they were fetched by.
func partition(tickets []domain.Ticket, keep func(*domain.Ticket) bool) TicketPartition {
	out := make([]domain.Ticket, 0, len(tickets))
	for i := range tickets {
		if keep(&tickets[i]) {
			out = append(out, tickets[i])
		}
	}
	return TicketPartition{Count: len(out), Tickets: out}
}
