package email

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"leadflow_backend/platform/apperr"
)

const brevoEndpoint = "https://api.brevo.com/v3/smtp/email"

// BrevoTransport sends through the Brevo transactional email API.
type BrevoTransport struct {
	apiKey    string
	fromName  string
	fromEmail string
	endpoint  string
	client    *http.Client
}

type brevoAttachment struct {
	Content string `json:"content"` // base64-encoded file content
	Name    string `json:"name"`
}

type brevoContact struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type brevoEmailRequest struct {
	Sender      brevoContact      `json:"sender"`
	To          []brevoContact    `json:"to"`
	Subject     string            `json:"subject"`
	HTMLContent string            `json:"htmlContent"`
	Attachment  []brevoAttachment `json:"attachment,omitempty"`
}

// NewBrevoTransport creates a Brevo transport.
func NewBrevoTransport(apiKey, fromName, fromEmail string) *BrevoTransport {
	return &BrevoTransport{
		apiKey:    apiKey,
		fromName:  fromName,
		fromEmail: fromEmail,
		endpoint:  brevoEndpoint,
		client:    &http.Client{Timeout: 10 * time.Second},
	}
}

func (b *BrevoTransport) Send(ctx context.Context, msg Message) error {
	payload := brevoEmailRequest{
		Sender:      brevoContact{Name: b.fromName, Email: b.fromEmail},
		To:          []brevoContact{{Email: msg.To, Name: msg.ToName}},
		Subject:     msg.Subject,
		HTMLContent: msg.HTML,
	}
	for _, att := range msg.Attachments {
		payload.Attachment = append(payload.Attachment, brevoAttachment{
			Content: base64.StdEncoding.EncodeToString(att.Content),
			Name:    att.FileName,
		})
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return apperr.Transport("encode brevo request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.endpoint, bytes.NewReader(body))
	if err != nil {
		return apperr.Transport("build brevo request", err)
	}
	req.Header.Set("api-key", b.apiKey)
	req.Header.Set("content-type", "application/json")
	req.Header.Set("accept", "application/json")

	resp, err := b.client.Do(req)
	if err != nil {
		return apperr.Transport("brevo send", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return apperr.Transport("brevo send", fmt.Errorf("status %d: %s", resp.StatusCode, string(data)))
	}

	return nil
}
