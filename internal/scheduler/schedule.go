package scheduler

import (
	"context"
	"time"

	"leadflow_backend/platform/config"

	"golang.org/x/sync/errgroup"
)

// Schedule pairs a job kind with the interval it runs at.
type Schedule struct {
	Kind     string
	Interval time.Duration
}

// Schedules returns the configured periodic jobs.
func Schedules(cfg config.SchedulerConfig) []Schedule {
	return []Schedule{
		{Kind: TaskSequenceEvaluate, Interval: cfg.GetSequenceInterval()},
		{Kind: TaskEscalationScan, Interval: cfg.GetEscalationInterval()},
		{Kind: TaskExportSnapshot, Interval: cfg.GetExportInterval()},
	}
}

// Bucket truncates now to the start of its interval. Instances with roughly
// synchronized clocks agree on the bucket.
func Bucket(now time.Time, interval time.Duration) time.Time {
	return now.UTC().Truncate(interval)
}

// runSchedules calls fire for every schedule once at start and then on each
// tick, until ctx is done.
func runSchedules(ctx context.Context, schedules []Schedule, clock func() time.Time, fire func(ctx context.Context, s Schedule, tick time.Time)) {
	g, ctx := errgroup.WithContext(ctx)
	for _, s := range schedules {
		if s.Interval <= 0 {
			continue
		}
		s := s
		g.Go(func() error {
			fire(ctx, s, Bucket(clock(), s.Interval))

			ticker := time.NewTicker(s.Interval)
			defer ticker.Stop()

			for {
				select {
				case <-ctx.Done():
					return nil
				case <-ticker.C:
					fire(ctx, s, Bucket(clock(), s.Interval))
				}
			}
		})
	}
	_ = g.Wait()
}
