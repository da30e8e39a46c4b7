package email

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"time"

	"leadflow_backend/platform/apperr"

	gomail "github.com/wneessen/go-mail"
)

// SMTPTransport delivers over a direct SMTP connection via go-mail.
type SMTPTransport struct {
	host      string
	port      int
	username  string
	password  string
	fromName  string
	fromEmail string
}

// NewSMTPTransport creates a new SMTPTransport with the given SMTP credentials.
func NewSMTPTransport(host string, port int, username, password, fromEmail, fromName string) *SMTPTransport {
	return &SMTPTransport{
		host:      host,
		port:      port,
		username:  username,
		password:  password,
		fromName:  fromName,
		fromEmail: fromEmail,
	}
}

func (s *SMTPTransport) buildMsg(msg Message) (*gomail.Msg, error) {
	m := gomail.NewMsg()
	if err := m.FromFormat(s.fromName, s.fromEmail); err != nil {
		return nil, fmt.Errorf("smtp from: %w", err)
	}
	if msg.ToName != "" {
		if err := m.AddToFormat(msg.ToName, msg.To); err != nil {
			return nil, fmt.Errorf("smtp to: %w", err)
		}
	} else if err := m.To(msg.To); err != nil {
		return nil, fmt.Errorf("smtp to: %w", err)
	}
	m.Subject(msg.Subject)
	m.SetBodyString(gomail.TypeTextHTML, msg.HTML)

	for _, att := range msg.Attachments {
		if err := m.AttachReader(att.FileName, bytes.NewReader(att.Content)); err != nil {
			return nil, fmt.Errorf("smtp attach %s: %w", att.FileName, err)
		}
	}
	return m, nil
}

func (s *SMTPTransport) Send(ctx context.Context, msg Message) error {
	m, err := s.buildMsg(msg)
	if err != nil {
		return apperr.Transport("smtp message", err)
	}

	opts := []gomail.Option{
		gomail.WithPort(s.port),
		gomail.WithTLSPortPolicy(gomail.TLSOpportunistic),
		gomail.WithTimeout(15 * time.Second),
		gomail.WithDialContextFunc(func(dctx context.Context, _ string, addr string) (net.Conn, error) {
			return (&net.Dialer{}).DialContext(dctx, "tcp", addr)
		}),
	}
	if s.username != "" {
		opts = append(opts,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(s.username),
			gomail.WithPassword(s.password),
		)
	}

	client, err := gomail.NewClient(s.host, opts...)
	if err != nil {
		return apperr.Transport("smtp client", err)
	}

	if err := client.DialAndSendWithContext(ctx, m); err != nil {
		return apperr.Transport("smtp send", err)
	}

	return nil
}
