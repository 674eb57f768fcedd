package domain

import "time"

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusNew    TicketStatus = "NEW"
	TicketStatusOpen   TicketStatus = "OPEN"
	TicketStatusClosed TicketStatus = "CLOSED"
)

// IsTransitionTarget reports whether status may be requested through UpdateStatus.
// NEW is only ever an initial value.
func (s TicketStatus) IsTransitionTarget() bool {
	return s == TicketStatusOpen || s == TicketStatusClosed
}

// Ticket is the aggregate for support requests.
type Ticket struct {
	ID          string
	UserSub     string
	CreatedAt   time.Time
	Title       string
	Description string
	Attachment  *string
	Status      TicketStatus
}

// CreatedAtMillis returns the creation time as epoch milliseconds.
func (t *Ticket) CreatedAtMillis() int64 {
	return t.CreatedAt.UnixMilli()
}
