package scheduler

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
)

const TaskSequenceEvaluate = "leads.sequence.evaluate"

const TaskEscalationScan = "leads.escalation.scan"

const TaskExportSnapshot = "leads.export.snapshot"

// TickPayload carries the bucketed time a periodic job runs for. Handlers use
// Tick as their explicit now so a retried task evaluates the same instant.
type TickPayload struct {
	Tick          time.Time `json:"tick"`
	WindowSeconds int64     `json:"windowSeconds"`
}

// Window returns the scan window the tick covers.
func (p TickPayload) Window() time.Duration {
	return time.Duration(p.WindowSeconds) * time.Second
}

func NewTickTask(kind string, payload TickPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(kind, data), nil
}

func ParseTickPayload(task *asynq.Task) (TickPayload, error) {
	var payload TickPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return TickPayload{}, err
	}
	if payload.Tick.IsZero() {
		return TickPayload{}, fmt.Errorf("%s: missing tick", task.Type())
	}
	return payload, nil
}

// TickTaskID names the task for one kind and tick, so every instance that
// observes the same tick enqueues the same task.
func TickTaskID(kind string, tick time.Time) string {
	return fmt.Sprintf("%s:%d", kind, tick.UTC().Unix())
}
