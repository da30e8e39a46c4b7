package scheduler

import (
	"context"
	"time"

	"leadflow_backend/platform/logger"
)

// LocalRunner drives the jobs in-process on tickers. It is used when no Redis
// is configured, so it provides no cross-instance deduplication; conditional
// store updates keep overlapping runs safe.
type LocalRunner struct {
	jobs      Jobs
	schedules []Schedule
	log       *logger.Logger
	now       func() time.Time
}

func NewLocalRunner(jobs Jobs, schedules []Schedule, log *logger.Logger) *LocalRunner {
	return &LocalRunner{jobs: jobs, schedules: schedules, log: log, now: time.Now}
}

func (r *LocalRunner) Run(ctx context.Context) {
	if r == nil || r.jobs == nil {
		return
	}
	runSchedules(ctx, r.schedules, r.now, r.fire)
}

func (r *LocalRunner) fire(ctx context.Context, s Schedule, tick time.Time) {
	if err := runJob(ctx, r.jobs, s, tick); err != nil {
		r.log.Warn("scheduled job failed", "task", s.Kind, "tick", tick, "error", err)
	}
}

func runJob(ctx context.Context, jobs Jobs, s Schedule, tick time.Time) error {
	switch s.Kind {
	case TaskSequenceEvaluate:
		return jobs.EvaluateSequences(ctx, tick)
	case TaskEscalationScan:
		return jobs.ScanEscalations(ctx, tick, s.Interval)
	case TaskExportSnapshot:
		return jobs.SnapshotExports(ctx, tick)
	default:
		return nil
	}
}
