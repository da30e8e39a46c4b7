package email

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"leadflow_backend/platform/apperr"
)

func newTestBrevo(url string) *BrevoTransport {
	b := NewBrevoTransport("test-key", "Forward Horizon", "intake@example.com")
	b.endpoint = url
	return b
}

func TestBrevoTransportSendsPayload(t *testing.T) {
	var got brevoEmailRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("api-key") != "test-key" {
			t.Errorf("missing api key header")
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	err := newTestBrevo(srv.URL).Send(context.Background(), Message{
		To:          "ana@example.com",
		ToName:      "Ana",
		Subject:     "Hello",
		HTML:        "<p>Hi</p>",
		Attachments: []Attachment{{Content: []byte("a,b"), FileName: "x.csv", MIMEType: "text/csv"}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got.To) != 1 || got.To[0].Email != "ana@example.com" || got.Subject != "Hello" {
		t.Fatalf("unexpected payload %+v", got)
	}
	if len(got.Attachment) != 1 || got.Attachment[0].Content != "YSxi" {
		t.Fatalf("expected base64 attachment, got %+v", got.Attachment)
	}
}

func TestBrevoTransportFailureIsTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	err := newTestBrevo(srv.URL).Send(context.Background(), Message{To: "ana@example.com"})
	if !apperr.Is(err, apperr.KindTransport) {
		t.Fatalf("expected transport error, got %v", err)
	}
	var appErr *apperr.Error
	if !errors.As(err, &appErr) || !appErr.Retryable() {
		t.Fatalf("expected retryable error")
	}
}

type fakeEmailConfig struct {
	enabled  bool
	provider string
}

func (f fakeEmailConfig) GetEmailEnabled() bool       { return f.enabled }
func (f fakeEmailConfig) GetEmailProvider() string    { return f.provider }
func (f fakeEmailConfig) GetBrevoAPIKey() string      { return "key" }
func (f fakeEmailConfig) GetEmailFromName() string    { return "Forward Horizon" }
func (f fakeEmailConfig) GetEmailFromAddress() string { return "intake@example.com" }

type fakeSMTPConfig struct{}

func (fakeSMTPConfig) GetSMTPHost() string     { return "smtp.example.com" }
func (fakeSMTPConfig) GetSMTPPort() int        { return 587 }
func (fakeSMTPConfig) GetSMTPUsername() string { return "" }
func (fakeSMTPConfig) GetSMTPPassword() string { return "" }

func TestNewTransportSelectsProvider(t *testing.T) {
	cases := []struct {
		cfg  fakeEmailConfig
		want string
	}{
		{fakeEmailConfig{enabled: false, provider: "brevo"}, "noop"},
		{fakeEmailConfig{enabled: true, provider: "brevo"}, "brevo"},
		{fakeEmailConfig{enabled: true, provider: "smtp"}, "smtp"},
	}
	for _, tc := range cases {
		tr, err := NewTransport(tc.cfg, fakeSMTPConfig{})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		var got string
		switch tr.(type) {
		case NoopTransport:
			got = "noop"
		case *BrevoTransport:
			got = "brevo"
		case *SMTPTransport:
			got = "smtp"
		}
		if got != tc.want {
			t.Fatalf("expected %s transport, got %s", tc.want, got)
		}
	}

	if _, err := NewTransport(fakeEmailConfig{enabled: true, provider: "fax"}, fakeSMTPConfig{}); err == nil {
		t.Fatalf("expected error for unknown provider")
	}
}

func TestSMTPBuildMsgRejectsBadRecipient(t *testing.T) {
	s := NewSMTPTransport("localhost", 25, "", "", "intake@example.com", "Forward Horizon")
	if _, err := s.buildMsg(Message{To: "not an address"}); err == nil {
		t.Fatalf("expected invalid recipient error")
	}
	if _, err := s.buildMsg(Message{To: "ana@example.com", ToName: "Ana", Subject: "Hi", HTML: "<p>x</p>"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestStaffAlertRendersRows(t *testing.T) {
	msg, err := StaffAlert("staff@example.com", []OverdueLeadRow{
		{Name: "Ana <Lopez>", Program: "Veterans Housing", Tier: "High", Score: 65, OverdueBy: "1h0m0s"},
	}, "https://example.com/leads")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if msg.Subject != "SLA breach: 1 lead(s) awaiting first contact" {
		t.Fatalf("unexpected subject %q", msg.Subject)
	}
	if !strings.Contains(msg.HTML, "Ana &lt;Lopez&gt;") {
		t.Fatalf("expected escaped lead name in body")
	}
	if !strings.Contains(msg.HTML, "https://example.com/leads") {
		t.Fatalf("expected dashboard link in body")
	}
}

func TestActionRequiredRenders(t *testing.T) {
	msg, err := ActionRequired("staff@example.com", ActionRequiredData{
		ActionLabel: "Call reminder",
		Instruction: "Call the lead today.",
		LeadName:    "Marcus Reed",
		Program:     "Recovery Housing",
		Email:       "marcus@example.com",
		Step:        2,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if msg.Subject != "Action required: Call reminder for Marcus Reed" {
		t.Fatalf("unexpected subject %q", msg.Subject)
	}
	if !strings.Contains(msg.HTML, "Call the lead today.") {
		t.Fatalf("expected instruction in body")
	}
}
