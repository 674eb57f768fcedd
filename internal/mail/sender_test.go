package mail

import (
	"context"
	"errors"
	"net/smtp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestRender(t *testing.T) {
	date := time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)
	raw := string(Render(Message{
		From:    "desk@example.com",
		To:      []string{"admin@example.com"},
		Subject: "New ticket",
		Body:    "line one\nline two",
	}, date))

	assert.True(t, strings.HasPrefix(raw, "From: desk@example.com\r\nTo: admin@example.com\r\nSubject: New ticket\r\n"))
	assert.Contains(t, raw, "Content-Type: text/plain; charset=UTF-8\r\n\r\nline one\r\nline two\r\n")
	assert.Contains(t, raw, "Date: Sun, 18 Oct 2026 09:00:00 +0000")
}

func TestSMTPSenderSend(t *testing.T) {
	s := NewSMTPSender("smtp.example.com:587", "user", "pass")
	var gotAddr, gotFrom string
	var gotTo []string
	s.send = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotFrom, gotTo = addr, from, to
		assert.NotNil(t, a)
		return nil
	}

	err := s.Send(context.Background(), Message{From: "a@example.com", To: []string{"b@example.com"}, Subject: "s", Body: "b"})
	require.NoError(t, err)
	assert.Equal(t, "smtp.example.com:587", gotAddr)
	assert.Equal(t, "a@example.com", gotFrom)
	assert.Equal(t, []string{"b@example.com"}, gotTo)
}

func TestSMTPSenderErrors(t *testing.T) {
	s := NewSMTPSender("localhost:25", "", "")
	s.send = func(string, smtp.Auth, string, []string, []byte) error { return errors.New("554 rejected") }

	err := s.Send(context.Background(), Message{To: []string{"b@example.com"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "554 rejected")

	err = s.Send(context.Background(), Message{})
	assert.Error(t, err)
}

func TestLogSenderNeverFails(t *testing.T) {
	assert.NoError(t, NewLogSender(zap.NewNop()).Send(context.Background(), Message{Subject: "x"}))
}

func TestMemorySenderFailures(t *testing.T) {
	s := NewMemorySender()
	s.FailWhen(func(m Message) error {
		if m.Subject == "bad" {
			return errors.New("refused")
		}
		return nil
	})

	assert.Error(t, s.Send(context.Background(), Message{Subject: "bad"}))
	assert.NoError(t, s.Send(context.Background(), Message{Subject: "good"}))
	require.Len(t, s.Sent(), 1)
	assert.Equal(t, "good", s.Sent()[0].Subject)
}
