package events

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrMalformedEvent marks a queued body that can never be decoded.
var ErrMalformedEvent = errors.New("malformed event")

// TicketCreated is published after a ticket has been persisted.
type TicketCreated struct {
	TicketID    string `json:"ticketId"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

// Encode serializes the event for transport.
func (e TicketCreated) Encode() ([]byte, error) {
	return json.Marshal(e)
}

// DecodeTicketCreated parses a queued body.
func DecodeTicketCreated(body []byte) (TicketCreated, error) {
	var event TicketCreated
	if err := json.Unmarshal(body, &event); err != nil {
		return TicketCreated{}, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	if event.TicketID == "" {
		return TicketCreated{}, fmt.Errorf("%w: missing ticketId", ErrMalformedEvent)
	}
	return event, nil
}

// Message is one delivery from the queue. ID is transport specific and used to acknowledge.
type Message struct {
	ID   string
	Body []byte
}
