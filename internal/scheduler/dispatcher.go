package scheduler

import (
	"context"
	"time"

	"leadflow_backend/platform/logger"
)

// TickEnqueuer is the slice of Client the dispatcher uses.
type TickEnqueuer interface {
	EnqueueTick(ctx context.Context, kind string, tick time.Time, window time.Duration) error
}

// Dispatcher enqueues one task per schedule tick. Every instance may run a
// dispatcher; the per-tick task id keeps a tick from being enqueued twice.
type Dispatcher struct {
	client    TickEnqueuer
	schedules []Schedule
	log       *logger.Logger
	now       func() time.Time
}

func NewDispatcher(client TickEnqueuer, schedules []Schedule, log *logger.Logger) *Dispatcher {
	return &Dispatcher{client: client, schedules: schedules, log: log, now: time.Now}
}

func (d *Dispatcher) Run(ctx context.Context) {
	if d == nil || d.client == nil {
		return
	}
	runSchedules(ctx, d.schedules, d.now, d.fire)
}

func (d *Dispatcher) fire(ctx context.Context, s Schedule, tick time.Time) {
	if err := d.client.EnqueueTick(ctx, s.Kind, tick, s.Interval); err != nil {
		d.log.Warn("scheduler enqueue failed", "task", s.Kind, "tick", tick, "error", err)
	}
}
