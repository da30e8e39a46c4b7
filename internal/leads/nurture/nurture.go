// Package nurture builds the initial follow-up task batch for a lead.
package nurture

import (
	"context"
	"errors"
	"fmt"
	"time"

	"leadflow_backend/internal/leads/domain"
	"leadflow_backend/internal/leads/repository"
	"leadflow_backend/platform/apperr"

	"github.com/google/uuid"
)

const (
	acknowledgmentDelay = 5 * time.Minute
	followup24hDelay    = 24 * time.Hour
	followup72hDelay    = 72 * time.Hour
)

var callDelays = map[domain.Tier]time.Duration{
	domain.TierCritical: 15 * time.Minute,
	domain.TierHigh:     2 * time.Hour,
	domain.TierModerate: 4 * time.Hour,
	domain.TierEarly:    8 * time.Hour,
}

// CallDelay returns how long after creation the first call is scheduled.
func CallDelay(tier domain.Tier) time.Duration {
	if d, ok := callDelays[tier]; ok {
		return d
	}
	return callDelays[domain.TierEarly]
}

// TaskID derives a stable task id from the lead id and kind, so rebuilding a
// batch for the same lead yields the same ids.
func TaskID(leadID uuid.UUID, kind domain.TaskKind) uuid.UUID {
	return uuid.NewSHA1(leadID, []byte(kind))
}

// Build returns the ordered task batch for lead. Times are relative to the
// lead's creation time.
func Build(lead domain.Lead) []domain.Task {
	tier := lead.Tier()
	program := lead.Program.Label()
	name := lead.FullName()
	created := lead.CreatedAt

	callTitle := fmt.Sprintf("Call %s", name)
	if tier == domain.TierCritical {
		callTitle = "URGENT: " + callTitle
	}

	newTask := func(kind domain.TaskKind, typ domain.TaskType, prio domain.Tier, delay time.Duration, title, desc string) domain.Task {
		return domain.Task{
			ID:           TaskID(lead.ID, kind),
			LeadID:       lead.ID,
			Kind:         kind,
			Type:         typ,
			Priority:     prio,
			Status:       domain.TaskPending,
			Title:        title,
			Description:  desc,
			ScheduledFor: created.Add(delay),
			CreatedAt:    created,
		}
	}

	return []domain.Task{
		newTask(domain.TaskKindInitialCall, domain.TaskTypeCall, tier, CallDelay(tier),
			callTitle,
			fmt.Sprintf("Initial outreach call for %s inquiry. Risk score: %d", program, lead.RiskScore)),
		newTask(domain.TaskKindAcknowledgmentEmail, domain.TaskTypeEmail, domain.TierHigh, acknowledgmentDelay,
			fmt.Sprintf("Send acknowledgment email to %s", lead.FirstName),
			fmt.Sprintf("Send personalized acknowledgment for the %s program", program)),
		newTask(domain.TaskKindFollowup24hEmail, domain.TaskTypeEmail, domain.TierModerate, followup24hDelay,
			fmt.Sprintf("24h follow-up email to %s", lead.FirstName),
			fmt.Sprintf("Send 24-hour follow-up email for the %s program", program)),
		newTask(domain.TaskKindFollowup72hEmail, domain.TaskTypeEmail, domain.TierEarly, followup72hDelay,
			fmt.Sprintf("72h follow-up email to %s", lead.FirstName),
			fmt.Sprintf("Send final follow-up email for the %s program", program)),
	}
}

// Appender is the slice of the lead store the generator writes to.
type Appender interface {
	AppendTasks(ctx context.Context, leadID uuid.UUID, tasks []domain.Task) error
}

// Generator persists task batches.
type Generator struct{}

// NewGenerator creates a task generator.
func NewGenerator() *Generator {
	return &Generator{}
}

// Generate builds the batch for lead and appends it. A second call for the same
// lead is rejected by the store and reported as a conflict.
func (g *Generator) Generate(ctx context.Context, appender Appender, lead domain.Lead) ([]domain.Task, error) {
	tasks := Build(lead)
	if err := appender.AppendTasks(ctx, lead.ID, tasks); err != nil {
		switch {
		case errors.Is(err, repository.ErrDuplicate):
			return nil, apperr.Conflict("task batch already generated").WithOp("nurture.Generate")
		case errors.Is(err, repository.ErrNotFound):
			return nil, apperr.NotFound("lead not found").WithOp("nurture.Generate")
		default:
			return nil, apperr.Unavailable("append tasks", err).WithOp("nurture.Generate")
		}
	}
	return tasks, nil
}
