package mail

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
)

// ErrSendGridAPIKeyRequired is returned when no API key is configured.
var ErrSendGridAPIKeyRequired = errors.New("sendgrid api key is required")

// SendGridConfig configures the SendGrid implementation.
type SendGridConfig struct {
	APIKey   string
	From     string
	FromName string
}

// SendGrid is a Mail implementation backed by the SendGrid v3 HTTP API.
type SendGrid struct {
	client   *sendgrid.Client
	from     string
	fromName string
}

// NewSendGrid constructs a SendGrid mail sender.
func NewSendGrid(cfg SendGridConfig) (*SendGrid, error) {
	if cfg.APIKey == "" {
		return nil, ErrSendGridAPIKeyRequired
	}

	return &SendGrid{
		client:   sendgrid.NewSendClient(cfg.APIKey),
		from:     cfg.From,
		fromName: cfg.FromName,
	}, nil
}

// Send delivers a message through the SendGrid API.
func (s *SendGrid) Send(ctx context.Context, msg Message) error {
	m, err := s.build(msg)
	if err != nil {
		return err
	}

	resp, err := s.client.SendWithContext(ctx, m)
	if err != nil {
		return err
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("sendgrid: unexpected status %d", resp.StatusCode)
	}

	return nil
}

func (s *SendGrid) build(msg Message) (*sgmail.SGMailV3, error) {
	if len(msg.Recipients()) == 0 {
		return nil, ErrNoRecipients
	}

	from := msg.From
	if from == "" {
		from = s.from
	}
	if from == "" {
		return nil, ErrNoSender
	}

	p := sgmail.NewPersonalization()
	for _, to := range msg.To {
		p.AddTos(sgmail.NewEmail("", to))
	}
	for _, cc := range msg.Cc {
		p.AddCCs(sgmail.NewEmail("", cc))
	}
	for _, bcc := range msg.Bcc {
		p.AddBCCs(sgmail.NewEmail("", bcc))
	}

	m := sgmail.NewV3Mail()
	m.SetFrom(sgmail.NewEmail(s.fromName, from))
	m.Subject = msg.Subject
	m.AddPersonalizations(p)
	if msg.TextBody != "" {
		m.AddContent(sgmail.NewContent("text/plain", msg.TextBody))
	}
	if msg.HTMLBody != "" {
		m.AddContent(sgmail.NewContent("text/html", msg.HTMLBody))
	}

	return m, nil
}

// Close implements io.Closer for interface compatibility.
func (s *SendGrid) Close() error {
	return nil
}
