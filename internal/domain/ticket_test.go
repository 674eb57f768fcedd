package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTransitionTargets(t *testing.T) {
	assert.True(t, TicketStatusOpen.IsTransitionTarget())
	assert.True(t, TicketStatusClosed.IsTransitionTarget())
	assert.False(t, TicketStatusNew.IsTransitionTarget())
	assert.False(t, TicketStatus("RESOLVED").IsTransitionTarget())
	assert.False(t, TicketStatus("open").IsTransitionTarget())
}

func TestCreatedAtMillis(t *testing.T) {
	ticket := &Ticket{CreatedAt: time.UnixMilli(1700000000123)}
	assert.Equal(t, int64(1700000000123), ticket.CreatedAtMillis())
}
