// Package leads provides the lead intake and follow-up bounded context.
// This file defines the module that wires the leads services and exposes
// their operations to drivers.
package leads

import (
	"context"
	"errors"
	"time"

	"leadflow_backend/internal/email"
	"leadflow_backend/internal/events"
	"leadflow_backend/internal/leads/domain"
	"leadflow_backend/internal/leads/escalation"
	"leadflow_backend/internal/leads/export"
	"leadflow_backend/internal/leads/intake"
	"leadflow_backend/internal/leads/repository"
	"leadflow_backend/internal/leads/scoring"
	"leadflow_backend/internal/leads/sequence"
	"leadflow_backend/internal/leads/stats"
	"leadflow_backend/platform/apperr"
	"leadflow_backend/platform/config"
	"leadflow_backend/platform/logger"
	"leadflow_backend/platform/validator"

	"github.com/google/uuid"
)

// Module is the leads bounded context module.
type Module struct {
	store        repository.Store
	intake       *intake.Service
	engine       *sequence.Engine
	scanner      *escalation.Scanner
	stats        *stats.Aggregator
	bus          events.Bus
	log          *logger.Logger
	storeTimeout time.Duration
	degraded     bool
	now          func() time.Time
}

// NewModule creates and initializes the leads module with all its dependencies.
func NewModule(store repository.Store, transport email.Transport, eventBus events.Bus, val *validator.Validator, cfg config.LeadsConfig, log *logger.Logger) (*Module, error) {
	catalog, err := sequence.DefaultCatalog()
	if err != nil {
		return nil, err
	}

	intakeSvc, err := intake.New(store, scoring.NewClassifier(nil), val, eventBus, log, cfg.GetStoreTimeout())
	if err != nil {
		return nil, err
	}

	engine := sequence.NewEngine(store, catalog, transport, eventBus, log, sequence.Options{
		Concurrency:   cfg.GetSequenceConcurrency(),
		RatePerSecond: cfg.GetSendRatePerSecond(),
		StoreTimeout:  cfg.GetStoreTimeout(),
		SendTimeout:   cfg.GetSendTimeout(),
	})

	return &Module{
		store:        store,
		intake:       intakeSvc,
		engine:       engine,
		scanner:      escalation.NewScanner(store, log, cfg.GetStoreTimeout()),
		stats:        stats.NewAggregator(store, log, cfg.GetStoreTimeout()),
		bus:          eventBus,
		log:          log,
		storeTimeout: cfg.GetStoreTimeout(),
		now:          time.Now,
	}, nil
}

// Name returns the module identifier.
func (m *Module) Name() string { return "leads" }

// SetDegraded marks the module as running against the in-memory fallback store.
func (m *Module) SetDegraded(degraded bool) { m.degraded = degraded }

// Degraded reports whether the module runs against the in-memory fallback store.
func (m *Module) Degraded() bool { return m.degraded }

// SetClock replaces the wall clock used to stamp intake and manual updates.
func (m *Module) SetClock(now func() time.Time) { m.now = now }

// Intake scores and persists a new lead with its nurture tasks.
func (m *Module) Intake(ctx context.Context, req intake.Request) (domain.Lead, error) {
	return m.intake.Intake(ctx, req, m.now())
}

// EvaluateSequences is the periodic driver's entry point.
func (m *Module) EvaluateSequences(ctx context.Context, now time.Time) (sequence.Report, error) {
	return m.engine.Evaluate(ctx, now)
}

// GetOverdue returns open leads past their SLA deadline, most urgent first.
func (m *Module) GetOverdue(ctx context.Context, now time.Time) []domain.Lead {
	return m.scanner.Overdue(ctx, now)
}

// NewlyBreached returns overdue leads whose deadline passed within window.
func (m *Module) NewlyBreached(ctx context.Context, now time.Time, window time.Duration) []domain.Lead {
	return m.scanner.NewlyBreached(ctx, now, window)
}

// GetStats returns lead counts by tier and status.
func (m *Module) GetStats(ctx context.Context, now time.Time) stats.Snapshot {
	snap := m.stats.Snapshot(ctx, now)
	snap.Degraded = m.degraded
	return snap
}

// ExportAll flattens every lead into a report record relative to now.
func (m *Module) ExportAll(ctx context.Context, now time.Time) ([]export.LeadRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, m.storeTimeout)
	defer cancel()

	leads, err := m.store.ListByStatus(ctx)
	if err != nil {
		m.log.DatabaseError("leads.export_all", err)
		return nil, apperr.Unavailable("list leads", err).WithOp("leads.ExportAll")
	}
	return export.Records(leads, now), nil
}

// Get returns a single lead.
func (m *Module) Get(ctx context.Context, id uuid.UUID) (domain.Lead, error) {
	ctx, cancel := context.WithTimeout(ctx, m.storeTimeout)
	defer cancel()

	lead, err := m.store.Get(ctx, id)
	if err != nil {
		return domain.Lead{}, mapStoreError("leads.Get", "lead", err)
	}
	return lead, nil
}

// UpdateStatus moves a lead forward in its lifecycle. The update only applies
// if the status read here is still current when written.
func (m *Module) UpdateStatus(ctx context.Context, id uuid.UUID, next domain.Status, notes string) (domain.Lead, error) {
	ctx, cancel := context.WithTimeout(ctx, m.storeTimeout)
	defer cancel()

	current, err := m.store.Get(ctx, id)
	if err != nil {
		return domain.Lead{}, mapStoreError("leads.UpdateStatus", "lead", err)
	}
	if !domain.CanTransition(current.Status, next) {
		return domain.Lead{}, apperr.Validation("invalid status transition " + string(current.Status) + " -> " + string(next)).
			WithOp("leads.UpdateStatus")
	}

	updated, err := m.store.UpdateStatus(ctx, id, current.Status, next, notes, m.now())
	if err != nil {
		return domain.Lead{}, mapStoreError("leads.UpdateStatus", "lead", err)
	}

	m.bus.Publish(ctx, events.LeadStatusChanged{
		BaseEvent: events.NewBaseEventAt(updated.UpdatedAt),
		LeadID:    id,
		OldStatus: string(current.Status),
		NewStatus: string(updated.Status),
		Notes:     notes,
	})
	return updated, nil
}

// ListTasks returns a lead's nurture tasks ordered by schedule.
func (m *Module) ListTasks(ctx context.Context, leadID uuid.UUID) ([]domain.Task, error) {
	ctx, cancel := context.WithTimeout(ctx, m.storeTimeout)
	defer cancel()

	tasks, err := m.store.ListTasks(ctx, leadID)
	if err != nil {
		return nil, mapStoreError("leads.ListTasks", "lead", err)
	}
	return tasks, nil
}

// CompleteTask marks a pending task completed.
func (m *Module) CompleteTask(ctx context.Context, taskID uuid.UUID) (domain.Task, error) {
	return m.finishTask(ctx, taskID, domain.TaskCompleted, "leads.CompleteTask")
}

// SkipTask marks a pending task skipped.
func (m *Module) SkipTask(ctx context.Context, taskID uuid.UUID) (domain.Task, error) {
	return m.finishTask(ctx, taskID, domain.TaskSkipped, "leads.SkipTask")
}

func (m *Module) finishTask(ctx context.Context, taskID uuid.UUID, next domain.TaskStatus, op string) (domain.Task, error) {
	ctx, cancel := context.WithTimeout(ctx, m.storeTimeout)
	defer cancel()

	task, err := m.store.UpdateTaskStatus(ctx, taskID, domain.TaskPending, next, m.now())
	if err != nil {
		return domain.Task{}, mapStoreError(op, "task", err)
	}
	return task, nil
}

func mapStoreError(op, entity string, err error) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return apperr.NotFound(entity + " not found").WithOp(op)
	case errors.Is(err, repository.ErrConflict):
		return apperr.Conflict(entity + " was modified concurrently").WithOp(op)
	case errors.Is(err, repository.ErrDuplicate):
		return apperr.Conflict(entity + " already exists").WithOp(op)
	default:
		return apperr.Unavailable(entity+" store", err).WithOp(op)
	}
}
