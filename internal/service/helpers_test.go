package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/spec-kit/support-desk/internal/blob"
	"github.com/spec-kit/support-desk/internal/domain"
	"github.com/spec-kit/support-desk/internal/events"
	"github.com/spec-kit/support-desk/internal/repository"
)

var (
	admin = domain.Caller{Subject: "admin-1", Role: domain.RoleAdmin}
	user1 = domain.Caller{Subject: "u1", Role: domain.RoleUser}
	user2 = domain.Caller{Subject: "u2", Role: domain.RoleUser}
)

type fixture struct {
	repo  *repository.MemoryTicketRepository
	queue *events.MemoryQueue
	blobs *blob.MemoryStore
	idem  *repository.MemoryIdempotencyRepository
	svc   *TicketService
	query *QueryService
	now   time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		repo:  repository.NewMemoryTicketRepository(),
		queue: events.NewMemoryQueue(64),
		blobs: blob.NewMemoryStore("http://localhost:8080/attachments"),
		idem:  repository.NewMemoryIdempotencyRepository(),
		now:   time.Date(2026, 10, 18, 10, 0, 0, 0, time.UTC),
	}
	seq := 0
	f.svc = NewTicketService(TicketDependencies{
		TicketRepo:      f.repo,
		Blobs:           f.blobs,
		Publisher:       f.queue,
		IdempotencyRepo: f.idem,
		Now:             func() time.Time { return f.now },
		NewID: func() string {
			seq++
			return fmt.Sprintf("ticket-%03d", seq)
		},
	})
	f.query = NewQueryService(f.repo)
	return f
}

func (f *fixture) create(t *testing.T, caller domain.Caller, title string) *domain.Ticket {
	t.Helper()
	ticket, err := f.svc.CreateTicket(context.Background(), caller, TicketCreateInput{Title: title, Description: "details"})
	require.NoError(t, err)
	return ticket
}

func (f *fixture) queued(t *testing.T) []events.TicketCreated {
	t.Helper()
	var out []events.TicketCreated
	for f.queue.Pending() > 0 {
		batch, err := f.queue.Receive(context.Background(), 100)
		require.NoError(t, err)
		for _, msg := range batch {
			event, err := events.DecodeTicketCreated(msg.Body)
			require.NoError(t, err)
			out = append(out, event)
		}
	}
	return out
}

// snapshot captures every ticket's status keyed by id.
func snapshot(t *testing.T, repo repository.TicketRepository) map[string]domain.TicketStatus {
	t.Helper()
	out := map[string]domain.TicketStatus{}
	for _, status := range []domain.TicketStatus{domain.TicketStatusNew, domain.TicketStatusOpen, domain.TicketStatusClosed} {
		tickets, err := repo.ListByStatus(context.Background(), status)
		require.NoError(t, err)
		for _, ticket := range tickets {
			out[ticket.ID] = ticket.Status
		}
	}
	return out
}

var errStoreDown = errors.New("store unavailable")

// failingRepo wraps a repository and fails selected operations.
type failingRepo struct {
	repository.TicketRepository
	failCreate bool
	failUpdate bool
	failList   bool
}

func (r *failingRepo) Create(ctx context.Context, t *domain.Ticket) error {
	if r.failCreate {
		return errStoreDown
	}
	return r.TicketRepository.Create(ctx, t)
}

func (r *failingRepo) UpdateStatus(ctx context.Context, id string, s domain.TicketStatus) error {
	if r.failUpdate {
		return errStoreDown
	}
	return r.TicketRepository.UpdateStatus(ctx, id, s)
}

func (r *failingRepo) ListByStatus(ctx context.Context, s domain.TicketStatus) ([]domain.Ticket, error) {
	if r.failList {
		return nil, errStoreDown
	}
	return r.TicketRepository.ListByStatus(ctx, s)
}

func (r *failingRepo) ListByOwner(ctx context.Context, sub string) ([]domain.Ticket, error) {
	if r.failList {
		return nil, errStoreDown
	}
	return r.TicketRepository.ListByOwner(ctx, sub)
}

func (r *failingRepo) ListByStatusCreatedBefore(ctx context.Context, s domain.TicketStatus, before time.Time) ([]domain.Ticket, error) {
	if r.failList {
		return nil, errStoreDown
	}
	return r.TicketRepository.ListByStatusCreatedBefore(ctx, s, before)
}
