package scheduler

import (
	"context"
	"time"

	"leadflow_backend/internal/events"
	"leadflow_backend/internal/leads"
	"leadflow_backend/internal/leads/domain"
	"leadflow_backend/internal/leads/escalation"
	"leadflow_backend/internal/leads/export"
	"leadflow_backend/platform/logger"
)

// Jobs is the periodic work the worker and the local runner execute.
type Jobs interface {
	EvaluateSequences(ctx context.Context, now time.Time) error
	ScanEscalations(ctx context.Context, now time.Time, window time.Duration) error
	SnapshotExports(ctx context.Context, now time.Time) error
}

// BreachNotifier alerts staff about leads that just passed their deadline.
type BreachNotifier interface {
	NotifyBreaches(ctx context.Context, now time.Time, leads []domain.Lead) error
}

// SnapshotStore persists an export snapshot and returns where it was written.
type SnapshotStore interface {
	StoreSnapshot(ctx context.Context, now time.Time, records []export.LeadRecord) (string, error)
}

// LeadJobs runs the periodic lead work against the leads module.
type LeadJobs struct {
	leads     *leads.Module
	alerts    BreachNotifier
	snapshots SnapshotStore
	bus       events.Bus
	log       *logger.Logger
}

// NewLeadJobs creates the job set. alerts and snapshots may be nil.
func NewLeadJobs(module *leads.Module, alerts BreachNotifier, snapshots SnapshotStore, bus events.Bus, log *logger.Logger) *LeadJobs {
	return &LeadJobs{leads: module, alerts: alerts, snapshots: snapshots, bus: bus, log: log}
}

// EvaluateSequences runs one sequence pass. Per-lead failures are retried by
// the next pass, so only a failed pass is returned as an error.
func (j *LeadJobs) EvaluateSequences(ctx context.Context, now time.Time) (err error) {
	defer observe("sequence_evaluate", time.Now(), &err)

	report, err := j.leads.EvaluateSequences(ctx, now)
	if err != nil {
		return err
	}
	for _, d := range report.Dispatched {
		sequenceStepsTotal.WithLabelValues(string(d.Program), "sent").Inc()
	}
	for _, f := range report.Failures {
		sequenceStepsTotal.WithLabelValues(string(f.Program), "failed").Inc()
		j.log.WithLeadID(f.LeadID.String()).Warn("sequence step deferred", "step", f.Step, "error", f.Err)
	}
	j.log.Info("sequence evaluation finished",
		"evaluated_at", now,
		"considered", report.Considered,
		"dispatched", len(report.Dispatched),
		"failed", len(report.Failures),
	)
	return nil
}

// ScanEscalations updates the overdue gauge and alerts staff about leads whose
// deadline passed within the last window.
func (j *LeadJobs) ScanEscalations(ctx context.Context, now time.Time, window time.Duration) (err error) {
	defer observe("escalation_scan", time.Now(), &err)

	overdue := j.leads.GetOverdue(ctx, now)
	overdueLeads.Set(float64(len(overdue)))
	if j.leads.Degraded() {
		storeDegraded.Set(1)
	} else {
		storeDegraded.Set(0)
	}

	breached := escalation.WithinWindow(overdue, now, window)
	if len(breached) == 0 {
		return nil
	}
	for _, l := range breached {
		j.bus.Publish(ctx, events.LeadEscalated{
			BaseEvent:   events.NewBaseEventAt(now),
			LeadID:      l.ID,
			Name:        l.FullName(),
			Program:     string(l.Program),
			RiskScore:   l.RiskScore,
			RiskTier:    string(l.Tier()),
			Phone:       l.Phone,
			SLADeadline: l.SLADeadline,
			OverdueBy:   now.Sub(l.SLADeadline),
		})
	}
	if j.alerts == nil {
		return nil
	}
	return j.alerts.NotifyBreaches(ctx, now, breached)
}

// SnapshotExports writes the full export to the snapshot store.
func (j *LeadJobs) SnapshotExports(ctx context.Context, now time.Time) (err error) {
	defer observe("export_snapshot", time.Now(), &err)

	if j.snapshots == nil {
		return nil
	}
	records, err := j.leads.ExportAll(ctx, now)
	if err != nil {
		return err
	}
	location, err := j.snapshots.StoreSnapshot(ctx, now, records)
	if err != nil {
		return err
	}
	j.log.Info("lead export snapshot stored", "location", location, "records", len(records))
	return nil
}

func observe(job string, start time.Time, err *error) {
	jobDuration.WithLabelValues(job).Observe(time.Since(start).Seconds())
	jobRunsTotal.WithLabelValues(job, resultLabel(*err)).Inc()
}
