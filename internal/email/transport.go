package email

import (
	"context"
	"fmt"

	"leadflow_backend/platform/config"
)

// Attachment represents a file attachment for an email.
type Attachment struct {
	Content  []byte // raw file bytes (base64-encoded for Brevo)
	FileName string // e.g. "leads-2026-03-01.csv"
	MIMEType string // e.g. "text/csv"
}

// Message is one outbound email.
type Message struct {
	To          string
	ToName      string
	Subject     string
	HTML        string
	Attachments []Attachment
}

// Transport delivers messages. Implementations return an apperr Transport error
// on delivery failure.
type Transport interface {
	Send(ctx context.Context, msg Message) error
}

// NoopTransport drops every message. Used when email is disabled.
type NoopTransport struct{}

func (NoopTransport) Send(context.Context, Message) error { return nil }

// NewTransport selects the configured provider.
func NewTransport(cfg config.EmailConfig, smtp config.SMTPConfig) (Transport, error) {
	if !cfg.GetEmailEnabled() {
		return NoopTransport{}, nil
	}

	switch cfg.GetEmailProvider() {
	case "brevo":
		return NewBrevoTransport(cfg.GetBrevoAPIKey(), cfg.GetEmailFromName(), cfg.GetEmailFromAddress()), nil
	case "smtp":
		return NewSMTPTransport(
			smtp.GetSMTPHost(), smtp.GetSMTPPort(),
			smtp.GetSMTPUsername(), smtp.GetSMTPPassword(),
			cfg.GetEmailFromAddress(), cfg.GetEmailFromName(),
		), nil
	default:
		return nil, fmt.Errorf("unknown email provider %q", cfg.GetEmailProvider())
	}
}
