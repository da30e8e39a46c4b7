package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"leadflow_backend/internal/email"
	"leadflow_backend/internal/events"
	"leadflow_backend/internal/leads"
	"leadflow_backend/internal/leads/domain"
	"leadflow_backend/internal/leads/export"
	"leadflow_backend/internal/leads/repository"
	"leadflow_backend/platform/config"
	"leadflow_backend/platform/logger"
	"leadflow_backend/platform/validator"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

type recordingNotifier struct {
	leads []domain.Lead
}

func (r *recordingNotifier) NotifyBreaches(_ context.Context, _ time.Time, leads []domain.Lead) error {
	r.leads = append(r.leads, leads...)
	return nil
}

type recordingSnapshots struct {
	records []export.LeadRecord
}

func (r *recordingSnapshots) StoreSnapshot(_ context.Context, _ time.Time, records []export.LeadRecord) (string, error) {
	r.records = records
	return "memory://snapshot.csv", nil
}

type countingSender struct {
	mu   sync.Mutex
	sent []email.Message
}

func (c *countingSender) Send(_ context.Context, msg email.Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, msg)
	return nil
}

type jobsFixture struct {
	store     *repository.MemoryStore
	bus       *events.InMemoryBus
	sender    *countingSender
	alerts    *recordingNotifier
	snapshots *recordingSnapshots
	jobs      *LeadJobs
}

func newJobsFixture(t *testing.T) *jobsFixture {
	t.Helper()
	f := &jobsFixture{
		store:     repository.NewMemoryStore(),
		bus:       events.NewInMemoryBus(logger.Discard()),
		sender:    &countingSender{},
		alerts:    &recordingNotifier{},
		snapshots: &recordingSnapshots{},
	}
	cfg := &config.Config{StoreTimeout: time.Second, SendTimeout: time.Second, SequenceConcurrency: 2}
	module, err := leads.NewModule(f.store, f.sender, f.bus, validator.New(), cfg, logger.Discard())
	if err != nil {
		t.Fatalf("new module: %v", err)
	}
	f.jobs = NewLeadJobs(module, f.alerts, f.snapshots, f.bus, logger.Discard())
	return f
}

func (f *jobsFixture) insert(t *testing.T, program domain.Program, score int, created, deadline time.Time) domain.Lead {
	t.Helper()
	lead, err := f.store.Insert(context.Background(), domain.Lead{
		ID:          uuid.New(),
		FirstName:   "Jo",
		LastName:    "Rivera",
		Email:       "jo@example.com",
		Program:     program,
		RiskScore:   score,
		RiskTier:    domain.TierForScore(score),
		Status:      domain.StatusNew,
		SLADeadline: deadline,
		CreatedAt:   created,
		UpdatedAt:   created,
	})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	return lead
}

func TestScanEscalationsAlertsOnlyNewBreaches(t *testing.T) {
	f := newJobsFixture(t)
	now := tick0

	fresh := f.insert(t, domain.ProgramVeterans, 80, now.Add(-time.Hour), now.Add(-30*time.Second))
	f.insert(t, domain.ProgramRecovery, 90, now.Add(-5*time.Hour), now.Add(-2*time.Hour))
	f.insert(t, domain.ProgramReentry, 40, now, now.Add(time.Hour))

	var (
		mu        sync.Mutex
		escalated []uuid.UUID
	)
	f.bus.Subscribe(events.LeadEscalated{}.EventName(), events.HandlerFunc(func(_ context.Context, e events.Event) error {
		mu.Lock()
		defer mu.Unlock()
		escalated = append(escalated, e.(events.LeadEscalated).LeadID)
		return nil
	}))

	if err := f.jobs.ScanEscalations(context.Background(), now, time.Minute); err != nil {
		t.Fatalf("scan: %v", err)
	}
	f.bus.Wait()

	if got := testutil.ToFloat64(overdueLeads); got != 2 {
		t.Fatalf("expected overdue gauge 2, got %v", got)
	}
	if len(f.alerts.leads) != 1 || f.alerts.leads[0].ID != fresh.ID {
		t.Fatalf("expected alert for the fresh breach only, got %+v", f.alerts.leads)
	}
	mu.Lock()
	defer mu.Unlock()
	if len(escalated) != 1 || escalated[0] != fresh.ID {
		t.Fatalf("expected one escalation event, got %v", escalated)
	}
}

func TestScanEscalationsWithoutBreachesSkipsAlerts(t *testing.T) {
	f := newJobsFixture(t)
	f.insert(t, domain.ProgramReentry, 40, tick0, tick0.Add(time.Hour))

	if err := f.jobs.ScanEscalations(context.Background(), tick0, time.Minute); err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(f.alerts.leads) != 0 {
		t.Fatalf("expected no alerts, got %d", len(f.alerts.leads))
	}
}

func TestEvaluateSequencesCountsSentSteps(t *testing.T) {
	f := newJobsFixture(t)
	f.insert(t, domain.ProgramVeterans, 50, tick0.Add(-48*time.Hour), tick0.Add(-24*time.Hour))

	counter := sequenceStepsTotal.WithLabelValues(string(domain.ProgramVeterans), "sent")
	before := testutil.ToFloat64(counter)

	if err := f.jobs.EvaluateSequences(context.Background(), tick0); err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if len(f.sender.sent) != 1 {
		t.Fatalf("expected one sequence email, got %d", len(f.sender.sent))
	}
	if got := testutil.ToFloat64(counter) - before; got != 1 {
		t.Fatalf("expected sent counter to grow by 1, got %v", got)
	}
}

func TestSnapshotExportsWritesEveryLead(t *testing.T) {
	f := newJobsFixture(t)
	f.insert(t, domain.ProgramVeterans, 50, tick0, tick0.Add(time.Hour))
	f.insert(t, domain.ProgramRecovery, 70, tick0, tick0.Add(2*time.Hour))

	if err := f.jobs.SnapshotExports(context.Background(), tick0); err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if len(f.snapshots.records) != 2 {
		t.Fatalf("expected 2 exported records, got %d", len(f.snapshots.records))
	}
}

func TestSnapshotExportsWithoutStoreIsNoop(t *testing.T) {
	f := newJobsFixture(t)
	f.jobs.snapshots = nil

	if err := f.jobs.SnapshotExports(context.Background(), tick0); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
}
