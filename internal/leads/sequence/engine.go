package sequence

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"leadflow_backend/internal/email"
	"leadflow_backend/internal/events"
	"leadflow_backend/internal/leads/domain"
	"leadflow_backend/internal/leads/repository"
	"leadflow_backend/platform/apperr"
	"leadflow_backend/platform/logger"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

const (
	defaultConcurrency  = 4
	defaultStoreTimeout = 5 * time.Second
	defaultSendTimeout  = 15 * time.Second
)

// Options tunes an Engine. Zero values select defaults; RatePerSecond <= 0
// disables send throttling.
type Options struct {
	Concurrency   int
	RatePerSecond float64
	StoreTimeout  time.Duration
	SendTimeout   time.Duration
}

// DispatchedStep records one step that was sent and committed.
type DispatchedStep struct {
	LeadID    uuid.UUID
	Program   domain.Program
	Step      int
	DayOffset int
	Subject   string
	Action    Action
	SentAt    time.Time
}

// LeadFailure records why a lead stopped short of its due steps.
type LeadFailure struct {
	LeadID  uuid.UUID
	Program domain.Program
	Step    int
	Err     error
}

// Report is the outcome of one evaluation pass.
type Report struct {
	EvaluatedAt time.Time
	Considered  int
	Dispatched  []DispatchedStep
	Failures    []LeadFailure
}

// Engine advances leads through their program's sequence. It owns no timer;
// callers invoke Evaluate with an explicit now.
type Engine struct {
	store     repository.Store
	catalog   *Catalog
	transport email.Transport
	bus       events.Bus
	log       *logger.Logger
	opts      Options
	limiter   *rate.Limiter
}

// NewEngine creates a sequence engine.
func NewEngine(store repository.Store, catalog *Catalog, transport email.Transport, bus events.Bus, log *logger.Logger, opts Options) *Engine {
	if opts.Concurrency <= 0 {
		opts.Concurrency = defaultConcurrency
	}
	if opts.StoreTimeout <= 0 {
		opts.StoreTimeout = defaultStoreTimeout
	}
	if opts.SendTimeout <= 0 {
		opts.SendTimeout = defaultSendTimeout
	}
	limit := rate.Inf
	if opts.RatePerSecond > 0 {
		limit = rate.Limit(opts.RatePerSecond)
	}
	return &Engine{
		store:     store,
		catalog:   catalog,
		transport: transport,
		bus:       bus,
		log:       log,
		opts:      opts,
		limiter:   rate.NewLimiter(limit, 1),
	}
}

type leadOutcome struct {
	dispatched []DispatchedStep
	failure    *LeadFailure
}

// Evaluate fires every due step for every open lead. A lead behind by several
// steps catches up in order within the pass and stops at its first failure.
// Failures are scoped to their lead; only a failed listing aborts the pass.
func (e *Engine) Evaluate(ctx context.Context, now time.Time) (Report, error) {
	report := Report{EvaluatedAt: now}

	listCtx, cancel := context.WithTimeout(ctx, e.opts.StoreTimeout)
	leads, err := e.store.ListByStatus(listCtx, domain.OpenStatuses()...)
	cancel()
	if err != nil {
		e.log.DatabaseError("sequence.list_open_leads", err)
		return report, apperr.Unavailable("list open leads", err).WithOp("sequence.Evaluate")
	}
	report.Considered = len(leads)

	outcomes := make([]leadOutcome, len(leads))
	var g errgroup.Group
	g.SetLimit(e.opts.Concurrency)
	for i, lead := range leads {
		if !e.due(lead, now) {
			continue
		}
		i, lead := i, lead
		g.Go(func() error {
			outcomes[i] = e.advanceLead(ctx, lead, now)
			return nil
		})
	}
	_ = g.Wait()

	for _, o := range outcomes {
		report.Dispatched = append(report.Dispatched, o.dispatched...)
		if o.failure != nil {
			report.Failures = append(report.Failures, *o.failure)
		}
	}
	return report, nil
}

// due reports whether the lead's current step may fire at now.
func (e *Engine) due(lead domain.Lead, now time.Time) bool {
	if lead.Status.Terminal() {
		return false
	}
	steps, ok := e.catalog.Steps(lead.Program)
	if !ok {
		return true // surfaces as a failure in advanceLead
	}
	if lead.SequenceStep < 0 || lead.SequenceStep >= len(steps) {
		return false
	}
	return lead.ElapsedDays(now) >= steps[lead.SequenceStep].DayOffset
}

func (e *Engine) advanceLead(ctx context.Context, lead domain.Lead, now time.Time) leadOutcome {
	var out leadOutcome
	log := e.log.WithLeadID(lead.ID.String())

	steps, ok := e.catalog.Steps(lead.Program)
	if !ok {
		out.failure = &LeadFailure{
			LeadID:  lead.ID,
			Program: lead.Program,
			Step:    lead.SequenceStep,
			Err:     apperr.Validation("no sequence for program " + string(lead.Program)).WithOp("sequence.Evaluate"),
		}
		return out
	}

	data := DataFor(lead)
	for i := lead.SequenceStep; i < len(steps); i++ {
		step := steps[i]
		if lead.ElapsedDays(now) < step.DayOffset {
			break
		}

		subject, body, err := step.Render(data)
		if err != nil {
			out.failure = &LeadFailure{LeadID: lead.ID, Program: lead.Program, Step: i, Err: apperr.Wrap(apperr.KindInternal, "render step", err)}
			return out
		}

		if err := e.send(ctx, lead, subject, body); err != nil {
			log.SequenceDispatch(lead.ID.String(), string(lead.Program), i, err)
			e.bus.Publish(ctx, events.SequenceStepFailed{
				BaseEvent: events.NewBaseEventAt(now),
				LeadID:    lead.ID,
				Program:   string(lead.Program),
				Step:      i,
				Reason:    err.Error(),
			})
			out.failure = &LeadFailure{LeadID: lead.ID, Program: lead.Program, Step: i, Err: err}
			return out
		}

		storeCtx, cancel := context.WithTimeout(ctx, e.opts.StoreTimeout)
		err = e.store.AdvanceSequence(storeCtx, lead.ID, i, i+1, now)
		cancel()
		switch {
		case errors.Is(err, repository.ErrConflict):
			// Another evaluator already advanced this lead.
			log.Debug("sequence advance lost race", slog.Int("step", i))
			return out
		case errors.Is(err, repository.ErrNotFound):
			out.failure = &LeadFailure{LeadID: lead.ID, Program: lead.Program, Step: i, Err: apperr.NotFound("lead not found").WithOp("sequence.Evaluate")}
			return out
		case err != nil:
			log.DatabaseError("sequence.advance", err)
			out.failure = &LeadFailure{LeadID: lead.ID, Program: lead.Program, Step: i, Err: apperr.Unavailable("advance sequence", err).WithOp("sequence.Evaluate")}
			return out
		}

		log.SequenceDispatch(lead.ID.String(), string(lead.Program), i, nil)
		out.dispatched = append(out.dispatched, DispatchedStep{
			LeadID:    lead.ID,
			Program:   lead.Program,
			Step:      i,
			DayOffset: step.DayOffset,
			Subject:   subject,
			Action:    step.Action,
			SentAt:    now,
		})
		e.publishDispatched(ctx, lead, i, subject, step.Action, now)
	}
	return out
}

func (e *Engine) send(ctx context.Context, lead domain.Lead, subject, body string) error {
	if err := e.limiter.Wait(ctx); err != nil {
		return apperr.Transport("send throttled", err)
	}
	sendCtx, cancel := context.WithTimeout(ctx, e.opts.SendTimeout)
	defer cancel()

	err := e.transport.Send(sendCtx, email.Message{
		To:      lead.Email,
		ToName:  lead.FullName(),
		Subject: subject,
		HTML:    body,
	})
	if err == nil {
		return nil
	}
	if apperr.GetKind(err) == apperr.KindUnknown {
		return apperr.Transport("send sequence email", err)
	}
	return err
}

func (e *Engine) publishDispatched(ctx context.Context, lead domain.Lead, step int, subject string, action Action, now time.Time) {
	e.bus.Publish(ctx, events.SequenceStepDispatched{
		BaseEvent: events.NewBaseEventAt(now),
		LeadID:    lead.ID,
		Program:   string(lead.Program),
		Step:      step,
		Subject:   subject,
	})
	if action == ActionNone {
		return
	}
	e.bus.Publish(ctx, events.SequenceActionRequired{
		BaseEvent: events.NewBaseEventAt(now),
		LeadID:    lead.ID,
		Program:   string(lead.Program),
		Step:      step,
		Action:    string(action),
		LeadName:  lead.FullName(),
		LeadEmail: lead.Email,
		LeadPhone: lead.Phone,
		Message:   lead.Message,
	})
}
