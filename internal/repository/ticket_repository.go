package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/support-desk/internal/domain"
)

// ErrTicketNotFound is returned when no ticket matches the key.
var ErrTicketNotFound = errors.New("ticket not found")

// TicketRepository encapsulates ticket persistence. Both secondary access paths (status and
// owner) return tickets in insertion order.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	UpdateStatus(ctx context.Context, id string, status domain.TicketStatus) error
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	ListByStatus(ctx context.Context, status domain.TicketStatus) ([]domain.Ticket, error)
	ListByOwner(ctx context.Context, userSub string) ([]domain.Ticket, error)
	ListByStatusCreatedBefore(ctx context.Context, status domain.TicketStatus, before time.Time) ([]domain.Ticket, error)
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

const ticketColumns = `ticket_id, user_sub, created_at, title, description, attachment, status`

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (ticket_id, user_sub, created_at, title, description, attachment, status)
        VALUES ($1,$2,$3,$4,$5,$6,$7)`
	_, err := r.pool.Exec(ctx, query,
		ticket.ID,
		ticket.UserSub,
		ticket.CreatedAtMillis(),
		ticket.Title,
		ticket.Description,
		ticket.Attachment,
		string(ticket.Status),
	)
	return err
}

func (r *ticketRepository) UpdateStatus(ctx context.Context, id string, status domain.TicketStatus) error {
	const query = `UPDATE tickets SET status=$1 WHERE ticket_id=$2`
	cmd, err := r.pool.Exec(ctx, query, string(status), id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrTicketNotFound
	}
	return nil
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	const query = `SELECT ` + ticketColumns + ` FROM tickets WHERE ticket_id=$1`
	ticket, err := scanTicket(r.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrTicketNotFound
	}
	if err != nil {
		return nil, err
	}
	return ticket, nil
}

func (r *ticketRepository) ListByStatus(ctx context.Context, status domain.TicketStatus) ([]domain.Ticket, error) {
	const query = `SELECT ` + ticketColumns + ` FROM tickets WHERE status=$1 ORDER BY seq`
	return r.list(ctx, query, string(status))
}

func (r *ticketRepository) ListByOwner(ctx context.Context, userSub string) ([]domain.Ticket, error) {
	const query = `SELECT ` + ticketColumns + ` FROM tickets WHERE user_sub=$1 ORDER BY seq`
	return r.list(ctx, query, userSub)
}

func (r *ticketRepository) ListByStatusCreatedBefore(ctx context.Context, status domain.TicketStatus, before time.Time) ([]domain.Ticket, error) {
	const query = `SELECT ` + ticketColumns + ` FROM tickets WHERE status=$1 AND created_at < $2 ORDER BY seq`
	return r.list(ctx, query, string(status), before.UnixMilli())
}

func (r *ticketRepository) list(ctx context.Context, query string, args ...any) ([]domain.Ticket, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []domain.Ticket{}
	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *ticket)
	}
	return result, rows.Err()
}

func scanTicket(row pgx.Row) (*domain.Ticket, error) {
	var (
		ticket    domain.Ticket
		createdAt int64
		status    string
	)
	if err := row.Scan(
		&ticket.ID,
		&ticket.UserSub,
		&createdAt,
		&ticket.Title,
		&ticket.Description,
		&ticket.Attachment,
		&status,
	); err != nil {
		return nil, err
	}
	ticket.CreatedAt = time.UnixMilli(createdAt)
	ticket.Status = domain.TicketStatus(status)
	return &ticket, nil
}
