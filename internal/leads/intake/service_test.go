package intake

import (
	"context"
	"errors"
	"testing"
	"time"

	"leadflow_backend/internal/events"
	"leadflow_backend/internal/leads/domain"
	"leadflow_backend/internal/leads/repository"
	"leadflow_backend/internal/leads/scoring"
	"leadflow_backend/platform/apperr"
	"leadflow_backend/platform/logger"
	"leadflow_backend/platform/validator"

	"github.com/google/uuid"
)

var t0 = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

type fixedStrategy struct{ score int }

func (f fixedStrategy) Score(scoring.Attributes) (scoring.Result, error) {
	return scoring.Result{Score: f.score}, nil
}

func newService(t *testing.T, store repository.Store, strategy scoring.Strategy) *Service {
	t.Helper()
	svc, err := New(store, scoring.NewClassifier(strategy), validator.New(), events.NewInMemoryBus(logger.Discard()), logger.Discard(), time.Second)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func validRequest() Request {
	return Request{
		FirstName: "  Dana ",
		LastName:  "Brooks",
		Email:     "Dana@Example.com ",
		Phone:     "(201) 555-0123",
		Program:   "veterans-housing",
		Message:   "<b>Need housing</b> this week",
	}
}

func TestIntakeCriticalVeteranLead(t *testing.T) {
	store := repository.NewMemoryStore()
	svc := newService(t, store, fixedStrategy{score: 85})

	lead, err := svc.Intake(context.Background(), validRequest(), t0)
	if err != nil {
		t.Fatalf("intake: %v", err)
	}
	if lead.RiskTier != domain.TierCritical || !lead.SLADeadline.Equal(t0.Add(15*time.Minute)) {
		t.Fatalf("expected critical lead due at T0+15m, got %s %s", lead.RiskTier, lead.SLADeadline)
	}
	if lead.Program != domain.ProgramVeterans || lead.Status != domain.StatusNew || lead.SequenceStep != 0 {
		t.Fatalf("unexpected lead %+v", lead)
	}
	if lead.FirstName != "Dana" || lead.Email != "dana@example.com" || lead.Phone != "+12015550123" || lead.Message != "Need housing this week" {
		t.Fatalf("expected normalized fields, got %+v", lead)
	}

	tasks, _ := store.ListTasks(context.Background(), lead.ID)
	byKind := map[domain.TaskKind]domain.Task{}
	for _, task := range tasks {
		byKind[task.Kind] = task
	}
	if call := byKind[domain.TaskKindInitialCall]; !call.ScheduledFor.Equal(t0.Add(15 * time.Minute)) {
		t.Fatalf("expected call at T0+15m, got %s", call.ScheduledFor)
	}
	if ack := byKind[domain.TaskKindAcknowledgmentEmail]; !ack.ScheduledFor.Equal(t0.Add(5*time.Minute)) || ack.Priority != domain.TierHigh {
		t.Fatalf("expected high-priority ack at T0+5m, got %+v", ack)
	}
	if len(tasks) != 4 {
		t.Fatalf("expected 4 tasks, got %d", len(tasks))
	}
}

func TestIntakeValidationPersistsNothing(t *testing.T) {
	store := repository.NewMemoryStore()
	svc := newService(t, store, nil)

	cases := map[string]func(r *Request){
		"unknown program": func(r *Request) { r.Program = "general" },
		"missing email":   func(r *Request) { r.Email = "" },
		"bad email":       func(r *Request) { r.Email = "not-an-email" },
		"missing name":    func(r *Request) { r.FirstName = "<i></i>" },
		"bad housing":     func(r *Request) { r.Housing = "castle" },
	}
	for name, mutate := range cases {
		req := validRequest()
		mutate(&req)
		if _, err := svc.Intake(context.Background(), req, t0); !apperr.Is(err, apperr.KindValidation) {
			t.Errorf("%s: expected validation error, got %v", name, err)
		}
	}
	all, _ := store.ListByStatus(context.Background())
	if len(all) != 0 {
		t.Fatalf("expected nothing persisted, got %d leads", len(all))
	}
}

func TestIntakeStrategyOutOfRangeIsValidation(t *testing.T) {
	store := repository.NewMemoryStore()
	svc := newService(t, store, fixedStrategy{score: 140})
	if _, err := svc.Intake(context.Background(), validRequest(), t0); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestIntakeDuplicateSubmissionKeyReturnsExisting(t *testing.T) {
	store := repository.NewMemoryStore()
	svc := newService(t, store, nil)
	req := validRequest()
	req.SubmissionKey = "form-42"

	first, err := svc.Intake(context.Background(), req, t0)
	if err != nil {
		t.Fatalf("first intake: %v", err)
	}
	second, err := svc.Intake(context.Background(), req, t0.Add(time.Minute))
	if !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	if second.ID != first.ID {
		t.Fatalf("expected the existing lead back, got %s", second.ID)
	}
	all, _ := store.ListByStatus(context.Background())
	if len(all) != 1 {
		t.Fatalf("expected one lead, got %d", len(all))
	}
}

type failingTasksStore struct {
	*repository.MemoryStore
}

func (s failingTasksStore) InTx(ctx context.Context, fn func(tx repository.Store) error) error {
	return s.MemoryStore.InTx(ctx, func(tx repository.Store) error {
		return fn(failingTx{tx})
	})
}

type failingTx struct {
	repository.Store
}

func (failingTx) AppendTasks(context.Context, uuid.UUID, []domain.Task) error {
	return errors.New("disk full")
}

func TestIntakeTaskFailureRollsBackLead(t *testing.T) {
	mem := repository.NewMemoryStore()
	svc := newService(t, failingTasksStore{mem}, nil)

	_, err := svc.Intake(context.Background(), validRequest(), t0)
	if !apperr.Is(err, apperr.KindUnavailable) {
		t.Fatalf("expected unavailable error, got %v", err)
	}
	all, _ := mem.ListByStatus(context.Background())
	if len(all) != 0 {
		t.Fatalf("expected rollback, found %d leads", len(all))
	}
}
