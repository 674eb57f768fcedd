package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/spec-kit/support-desk/internal/domain"
)

// MemoryTicketRepository keeps tickets in process memory. It backs the service when no
// Postgres DSN is configured and doubles as the store in tests.
type MemoryTicketRepository struct {
	mu      sync.RWMutex
	tickets []domain.Ticket
	index   map[string]int
}

// NewMemoryTicketRepository constructs an empty store.
func NewMemoryTicketRepository() *MemoryTicketRepository {
	return &MemoryTicketRepository{index: make(map[string]int)}
}

func (r *MemoryTicketRepository) Create(_ context.Context, ticket *domain.Ticket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.index[ticket.ID]; exists {
		return fmt.Errorf("ticket %s already exists", ticket.ID)
	}
	r.index[ticket.ID] = len(r.tickets)
	r.tickets = append(r.tickets, cloneTicket(*ticket))
	return nil
}

func (r *MemoryTicketRepository) UpdateStatus(_ context.Context, id string, status domain.TicketStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	i, ok := r.index[id]
	if !ok {
		return ErrTicketNotFound
	}
	r.tickets[i].Status = status
	return nil
}

func (r *MemoryTicketRepository) GetByID(_ context.Context, id string) (*domain.Ticket, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	i, ok := r.index[id]
	if !ok {
		return nil, ErrTicketNotFound
	}
	ticket := cloneTicket(r.tickets[i])
	return &ticket, nil
}

func (r *MemoryTicketRepository) ListByStatus(_ context.Context, status domain.TicketStatus) ([]domain.Ticket, error) {
	return r.filter(func(t *domain.Ticket) bool { return t.Status == status }), nil
}

func (r *MemoryTicketRepository) ListByOwner(_ context.Context, userSub string) ([]domain.Ticket, error) {
	return r.filter(func(t *domain.Ticket) bool { return t.UserSub == userSub }), nil
}

func (r *MemoryTicketRepository) ListByStatusCreatedBefore(_ context.Context, status domain.TicketStatus, before time.Time) ([]domain.Ticket, error) {
	cutoff := before.UnixMilli()
	return r.filter(func(t *domain.Ticket) bool {
		return t.Status == status && t.CreatedAtMillis() < cutoff
	}), nil
}

// Len reports how many tickets are stored.
func (r *MemoryTicketRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tickets)
}

func (r *MemoryTicketRepository) filter(match func(*domain.Ticket) bool) []domain.Ticket {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := []domain.Ticket{}
	for i := range r.tickets {
		if match(&r.tickets[i]) {
			result = append(result, cloneTicket(r.tickets[i]))
		}
	}
	return result
}

func cloneTicket(t domain.Ticket) domain.Ticket {
	if t.Attachment != nil {
		url := *t.Attachment
		t.Attachment = &url
	}
	return t
}
