package nurture

import (
	"context"
	"testing"
	"time"

	"leadflow_backend/internal/leads/domain"
	"leadflow_backend/internal/leads/repository"
	"leadflow_backend/platform/apperr"

	"github.com/google/uuid"
)

var t0 = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func leadWithScore(score int) domain.Lead {
	return domain.Lead{
		ID:        uuid.New(),
		FirstName: "Marcus",
		LastName:  "Reed",
		Email:     "marcus@example.com",
		Program:   domain.ProgramVeterans,
		RiskScore: score,
		RiskTier:  domain.TierForScore(score),
		Status:    domain.StatusNew,
		CreatedAt: t0,
	}
}

func TestBuildCriticalLead(t *testing.T) {
	tasks := Build(leadWithScore(85))
	if len(tasks) != 4 {
		t.Fatalf("expected 4 tasks, got %d", len(tasks))
	}

	call := tasks[0]
	if call.Kind != domain.TaskKindInitialCall || call.Type != domain.TaskTypeCall {
		t.Fatalf("expected initial call first, got %+v", call)
	}
	if !call.ScheduledFor.Equal(t0.Add(15 * time.Minute)) {
		t.Fatalf("expected call at T0+15m, got %s", call.ScheduledFor)
	}
	if call.Priority != domain.TierCritical {
		t.Fatalf("expected call priority critical, got %s", call.Priority)
	}

	ack := tasks[1]
	if ack.Type != domain.TaskTypeEmail || !ack.ScheduledFor.Equal(t0.Add(5*time.Minute)) {
		t.Fatalf("expected email at T0+5m, got %+v", ack)
	}
}

func TestBuildSchedulesByTier(t *testing.T) {
	cases := []struct {
		score int
		call  time.Duration
	}{
		{85, 15 * time.Minute},
		{65, 2 * time.Hour},
		{45, 4 * time.Hour},
		{10, 8 * time.Hour},
	}
	for _, tc := range cases {
		lead := leadWithScore(tc.score)
		tasks := Build(lead)
		if got := tasks[0].ScheduledFor.Sub(t0); got != tc.call {
			t.Errorf("score %d: call delay %s, want %s", tc.score, got, tc.call)
		}
		if tasks[0].Priority != lead.RiskTier {
			t.Errorf("score %d: call priority %s, want %s", tc.score, tasks[0].Priority, lead.RiskTier)
		}
		// The acknowledgment is always high priority regardless of tier.
		if tasks[1].Priority != domain.TierHigh {
			t.Errorf("score %d: ack priority %s, want high", tc.score, tasks[1].Priority)
		}
		if got := tasks[2].ScheduledFor.Sub(t0); got != 24*time.Hour {
			t.Errorf("score %d: 24h follow-up at %s", tc.score, got)
		}
		if got := tasks[3].ScheduledFor.Sub(t0); got != 72*time.Hour {
			t.Errorf("score %d: 72h follow-up at %s", tc.score, got)
		}
		for _, task := range tasks {
			if task.Status != domain.TaskPending || task.LeadID != lead.ID || !task.CreatedAt.Equal(t0) {
				t.Errorf("score %d: unexpected task %+v", tc.score, task)
			}
		}
	}
}

func TestBuildIsPure(t *testing.T) {
	lead := leadWithScore(50)
	a, b := Build(lead), Build(lead)
	for i := range a {
		if a[i].ID != b[i].ID || a[i].Title != b[i].Title || !a[i].ScheduledFor.Equal(b[i].ScheduledFor) {
			t.Fatalf("task %d differs between builds", i)
		}
	}
}

func TestGenerateTwiceIsConflict(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStore()
	lead, _ := store.Insert(ctx, leadWithScore(70))
	gen := NewGenerator()

	if _, err := gen.Generate(ctx, store, lead); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := gen.Generate(ctx, store, lead); !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	tasks, _ := store.ListTasks(ctx, lead.ID)
	if len(tasks) != 4 {
		t.Fatalf("expected 4 stored tasks, got %d", len(tasks))
	}
}
