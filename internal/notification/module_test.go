package notification

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"leadflow_backend/internal/email"
	"leadflow_backend/internal/events"
	"leadflow_backend/internal/leads/domain"
	"leadflow_backend/internal/leads/sequence"
	"leadflow_backend/platform/logger"

	"github.com/google/uuid"
)

var t0 = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

type testNotificationConfig struct {
	staff string
}

func (c testNotificationConfig) GetStaffAlertEmail() string { return c.staff }

func (testNotificationConfig) GetAppBaseURL() string { return "https://app.example.com/" }

type testTransport struct {
	sent []email.Message
	err  error
}

func (s *testTransport) Send(_ context.Context, msg email.Message) error {
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, msg)
	return nil
}

func overdueLead(name string, overdueBy time.Duration) domain.Lead {
	return domain.Lead{
		ID:          uuid.New(),
		FirstName:   name,
		LastName:    "Rivera",
		Phone:       "+15551234567",
		Program:     domain.ProgramRecovery,
		RiskScore:   82,
		RiskTier:    domain.TierForScore(82),
		Status:      domain.StatusNew,
		SLADeadline: t0.Add(-overdueBy),
	}
}

func TestNotifyBreachesSendsOneDigest(t *testing.T) {
	transport := &testTransport{}
	m := New(transport, testNotificationConfig{staff: "intake@example.org"}, logger.Discard())

	leads := []domain.Lead{overdueLead("Jo", 90*time.Second), overdueLead("Sam", 3*time.Hour)}
	if err := m.NotifyBreaches(context.Background(), t0, leads); err != nil {
		t.Fatalf("notify: %v", err)
	}

	if len(transport.sent) != 1 {
		t.Fatalf("expected one digest, got %d", len(transport.sent))
	}
	msg := transport.sent[0]
	if msg.To != "intake@example.org" {
		t.Fatalf("unexpected recipient %q", msg.To)
	}
	if !strings.Contains(msg.Subject, "2 lead(s)") {
		t.Fatalf("unexpected subject %q", msg.Subject)
	}
	for _, want := range []string{"Jo Rivera", "Sam Rivera", "3h 00m", "https://app.example.com/leads/overdue"} {
		if !strings.Contains(msg.HTML, want) {
			t.Fatalf("digest is missing %q", want)
		}
	}
}

func TestNotifyBreachesWithoutStaffAddressIsNoop(t *testing.T) {
	transport := &testTransport{}
	m := New(transport, testNotificationConfig{}, logger.Discard())

	if err := m.NotifyBreaches(context.Background(), t0, []domain.Lead{overdueLead("Jo", time.Minute)}); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if len(transport.sent) != 0 {
		t.Fatalf("expected no email, got %d", len(transport.sent))
	}
}

func TestNotifyBreachesReturnsTransportError(t *testing.T) {
	boom := errors.New("relay down")
	m := New(&testTransport{err: boom}, testNotificationConfig{staff: "intake@example.org"}, logger.Discard())

	err := m.NotifyBreaches(context.Background(), t0, []domain.Lead{overdueLead("Jo", time.Minute)})
	if !errors.Is(err, boom) {
		t.Fatalf("expected transport error, got %v", err)
	}
}

func TestActionRequiredEventEmailsStaff(t *testing.T) {
	transport := &testTransport{}
	m := New(transport, testNotificationConfig{staff: "intake@example.org"}, logger.Discard())

	err := m.Handle(context.Background(), events.SequenceActionRequired{
		BaseEvent: events.NewBaseEventAt(t0),
		LeadID:    uuid.New(),
		Program:   string(domain.ProgramVeterans),
		Step:      1,
		Action:    string(sequence.ActionDocumentRequest),
		LeadName:  "Jo Rivera",
		LeadEmail: "jo@example.com",
	})
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(transport.sent) != 1 {
		t.Fatalf("expected one email, got %d", len(transport.sent))
	}
	if got := transport.sent[0].Subject; got != "Action required: Document request for Jo Rivera" {
		t.Fatalf("unexpected subject %q", got)
	}
}

func TestRegisterHandlersRoutesThroughBus(t *testing.T) {
	transport := &testTransport{}
	m := New(transport, testNotificationConfig{staff: "intake@example.org"}, logger.Discard())
	bus := events.NewInMemoryBus(logger.Discard())
	m.RegisterHandlers(bus)

	err := bus.PublishSync(context.Background(), events.SequenceActionRequired{
		BaseEvent: events.NewBaseEventAt(t0),
		LeadID:    uuid.New(),
		Program:   string(domain.ProgramRecovery),
		Step:      2,
		Action:    string(sequence.ActionCallReminder),
		LeadName:  "Sam Lee",
	})
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if len(transport.sent) != 1 {
		t.Fatalf("expected one email, got %d", len(transport.sent))
	}

	// Informational events never send mail.
	if err := bus.PublishSync(context.Background(), events.SequenceStepFailed{LeadID: uuid.New(), Step: 1, Reason: "timeout"}); err != nil {
		t.Fatalf("publish failed event: %v", err)
	}
	if len(transport.sent) != 1 {
		t.Fatalf("expected no extra email, got %d", len(transport.sent))
	}
}

func TestFormatOverdue(t *testing.T) {
	cases := []struct {
		in   time.Duration
		want string
	}{
		{-time.Minute, "0m"},
		{90 * time.Second, "2m"},
		{2*time.Hour + 5*time.Minute, "2h 05m"},
		{50 * time.Hour, "2d 2h"},
	}
	for _, tc := range cases {
		if got := formatOverdue(tc.in); got != tc.want {
			t.Fatalf("formatOverdue(%s) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
