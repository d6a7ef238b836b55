// Package email delivers exported reports to the team inbox.
package email

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/resend/resend-go/v2"
	"go.uber.org/zap"
)

// ErrNoRecipients is returned when a message has nobody to go to.
var ErrNoRecipients = errors.New("email has no recipients")

// Message is one outgoing e-mail.
type Message struct {
	To      []string
	Subject string
	HTML    string
	Text    string
}

// Result identifies a sent message.
type Result struct {
	MessageID string
	SentAt    time.Time
}

// Sender delivers messages.
type Sender interface {
	Send(ctx context.Context, msg Message) (Result, error)
}

// ResendSender sends through the Resend API.
type ResendSender struct {
	client *resend.Client
	from   string
	log    *zap.Logger
}

// NewResendSender returns a sender using apiKey and the default from address.
func NewResendSender(apiKey, from string, log *zap.Logger) *ResendSender {
	if log == nil {
		log = zap.NewNop()
	}
	return &ResendSender{client: resend.NewClient(apiKey), from: from, log: log}
}

// Send sends msg.
func (s *ResendSender) Send(ctx context.Context, msg Message) (Result, error) {
	if len(msg.To) == 0 {
		return Result{}, ErrNoRecipients
	}
	sent, err := s.client.Emails.SendWithContext(ctx, &resend.SendEmailRequest{
		From:    s.from,
		To:      msg.To,
		Subject: msg.Subject,
		Html:    msg.HTML,
		Text:    msg.Text,
	})
	if err != nil {
		s.log.Error("resend send failed", zap.Strings("to", msg.To), zap.Error(err))
		return Result{}, fmt.Errorf("resend send: %w", err)
	}
	s.log.Info("report mailed", zap.String("message_id", sent.Id), zap.Strings("to", msg.To))
	return Result{MessageID: sent.Id, SentAt: time.Now()}, nil
}

// LogSender logs messages instead of sending them. It is used when no Resend
// key is configured.
type LogSender struct {
	Log *zap.Logger
}

// Send logs msg.
func (s LogSender) Send(_ context.Context, msg Message) (Result, error) {
	if len(msg.To) == 0 {
		return Result{}, ErrNoRecipients
	}
	log := s.Log
	if log == nil {
		log = zap.NewNop()
	}
	log.Info("email delivery disabled, message dropped",
		zap.Strings("to", msg.To), zap.String("subject", msg.Subject), zap.Int("html_bytes", len(msg.HTML)))
	return Result{MessageID: "", SentAt: time.Now()}, nil
}
