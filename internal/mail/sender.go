// Package mail delivers plain-text notification emails.
package mail

import (
	"context"
	"errors"
	"fmt"
	"net/smtp"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Message is a plain-text email.
type Message struct {
	From    string
	To      []string
	Subject string
	Body    string
}

// Sender delivers messages. Delivery is send-and-forget: a nil error means the relay
// accepted the message, nothing more.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// SMTPSender relays messages through an SMTP server.
type SMTPSender struct {
	addr string
	auth smtp.Auth
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
	now  func() time.Time
}

// NewSMTPSender builds a sender for addr (host:port). Credentials are optional.
func NewSMTPSender(addr, user, password string) *SMTPSender {
	var auth smtp.Auth
	if user != "" {
		host := addr
		if i := strings.LastIndex(addr, ":"); i >= 0 {
			host = addr[:i]
		}
		auth = smtp.PlainAuth("", user, password, host)
	}
	return &SMTPSender{addr: addr, auth: auth, send: smtp.SendMail, now: time.Now}
}

// Send writes the message to the relay.
func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(msg.To) == 0 {
		return errors.New("mail: no recipients")
	}
	if err := s.send(s.addr, s.auth, msg.From, msg.To, Render(msg, s.now())); err != nil {
		return fmt.Errorf("mail: send to %s: %w", strings.Join(msg.To, ","), err)
	}
	return nil
}

// Render formats msg as an RFC 5322 text/plain message.
func Render(msg Message, date time.Time) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", msg.From)
	fmt.Fprintf(&b, "To: %s\r\n", strings.Join(msg.To, ", "))
	fmt.Fprintf(&b, "Subject: %s\r\n", msg.Subject)
	fmt.Fprintf(&b, "Date: %s\r\n", date.Format(time.RFC1123Z))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(strings.ReplaceAll(msg.Body, "\n", "\r\n"))
	b.WriteString("\r\n")
	return []byte(b.String())
}

// LogSender writes messages to the log instead of delivering them.
type LogSender struct {
	logger *zap.Logger
}

// NewLogSender builds a sender for environments without an SMTP relay.
func NewLogSender(logger *zap.Logger) *LogSender {
	return &LogSender{logger: logger}
}

func (s *LogSender) Send(_ context.Context, msg Message) error {
	s.logger.Info("email",
		zap.String("from", msg.From),
		zap.Strings("to", msg.To),
		zap.String("subject", msg.Subject),
		zap.String("body", msg.Body))
	return nil
}

// MemorySender records messages; it can be told to fail selected sends.
type MemorySender struct {
	mu     sync.Mutex
	sent   []Message
	failOn func(Message) error
}

// NewMemorySender constructs a recording sender.
func NewMemorySender() *MemorySender {
	return &MemorySender{}
}

// FailWhen installs a hook returning the error for a given message, or nil to accept it.
func (s *MemorySender) FailWhen(hook func(Message) error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failOn = hook
}

func (s *MemorySender) Send(_ context.Context, msg Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failOn != nil {
		if err := s.failOn(msg); err != nil {
			return err
		}
	}
	s.sent = append(s.sent, msg)
	return nil
}

// Sent returns the accepted messages in order.
func (s *MemorySender) Sent() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Message(nil), s.sent...)
}
