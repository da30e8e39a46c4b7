// Package intake turns a raw form submission into a scored, persisted lead
// with its nurture tasks.
package intake

import (
	"context"
	"errors"
	"strings"
	"time"

	"leadflow_backend/internal/events"
	"leadflow_backend/internal/leads/domain"
	"leadflow_backend/internal/leads/nurture"
	"leadflow_backend/internal/leads/repository"
	"leadflow_backend/internal/leads/scoring"
	"leadflow_backend/internal/leads/sla"
	"leadflow_backend/platform/apperr"
	"leadflow_backend/platform/logger"
	"leadflow_backend/platform/phone"
	"leadflow_backend/platform/sanitize"
	"leadflow_backend/platform/validator"

	playground "github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

const defaultTimeout = 5 * time.Second

// Service runs intake as one all-or-nothing unit.
type Service struct {
	store      repository.Store
	classifier *scoring.Classifier
	tasks      *nurture.Generator
	val        *validator.Validator
	bus        events.Bus
	log        *logger.Logger
	timeout    time.Duration
}

// New creates an intake service and registers the "program" validation tag on val.
func New(store repository.Store, classifier *scoring.Classifier, val *validator.Validator, bus events.Bus, log *logger.Logger, timeout time.Duration) (*Service, error) {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if err := val.RegisterValidation("program", validateProgram); err != nil {
		return nil, err
	}
	return &Service{
		store:      store,
		classifier: classifier,
		tasks:      nurture.NewGenerator(),
		val:        val,
		bus:        bus,
		log:        log,
		timeout:    timeout,
	}, nil
}

func validateProgram(fl playground.FieldLevel) bool {
	_, ok := domain.ParseProgram(fl.Field().String())
	return ok
}

// Intake validates, scores and persists a lead created at now. A repeated
// submission key returns the stored lead together with a conflict error.
func (s *Service) Intake(ctx context.Context, req Request, now time.Time) (domain.Lead, error) {
	req = normalize(req)
	if err := s.val.Struct(req); err != nil {
		return domain.Lead{}, apperr.Validation(validator.Summary(err)).
			WithOp("intake.Intake").
			WithDetails(validator.FieldErrors(err))
	}
	program, _ := domain.ParseProgram(req.Program)

	result, err := s.classifier.Classify(scoring.Attributes{
		Program:       program,
		Message:       req.Message,
		IsVeteran:     req.IsVeteran,
		Housing:       scoring.Housing(req.Housing),
		Timeline:      req.Timeline,
		HasChildren:   req.HasChildren,
		MonthlyIncome: req.MonthlyIncome,
		Source:        req.Source,
	})
	if err != nil {
		return domain.Lead{}, err
	}
	deadline, err := sla.Deadline(result.Score, now)
	if err != nil {
		return domain.Lead{}, err
	}

	lead := domain.Lead{
		ID:            uuid.New(),
		SubmissionKey: req.SubmissionKey,
		FirstName:     req.FirstName,
		LastName:      req.LastName,
		Email:         req.Email,
		Phone:         req.Phone,
		Program:       program,
		Message:       req.Message,
		Source:        req.Source,
		IsVeteran:     req.IsVeteran,
		RiskScore:     result.Score,
		RiskTier:      result.Tier,
		Status:        domain.StatusNew,
		SLADeadline:   deadline,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var created domain.Lead
	err = s.store.InTx(ctx, func(tx repository.Store) error {
		var err error
		created, err = tx.Insert(ctx, lead)
		if err != nil {
			return err
		}
		_, err = s.tasks.Generate(ctx, tx, created)
		return err
	})
	if err != nil {
		return s.intakeFailed(ctx, lead, err)
	}

	s.log.WithLeadID(created.ID.String()).Info("lead intaken",
		"program", string(created.Program),
		"risk_score", created.RiskScore,
		"risk_tier", string(created.RiskTier),
		"sla_deadline", created.SLADeadline,
	)
	s.bus.Publish(ctx, events.LeadIntaken{
		BaseEvent:   events.NewBaseEventAt(now),
		LeadID:      created.ID,
		Program:     string(created.Program),
		RiskScore:   created.RiskScore,
		RiskTier:    string(created.RiskTier),
		SLADeadline: created.SLADeadline,
		Email:       created.Email,
		FirstName:   created.FirstName,
	})
	return created, nil
}

func (s *Service) intakeFailed(ctx context.Context, lead domain.Lead, err error) (domain.Lead, error) {
	if errors.Is(err, repository.ErrDuplicate) && lead.SubmissionKey != "" {
		existing, getErr := s.store.GetBySubmissionKey(ctx, lead.SubmissionKey)
		if getErr == nil {
			return existing, apperr.Conflict("lead already submitted").
				WithOp("intake.Intake").
				WithDetails(map[string]string{"leadId": existing.ID.String()})
		}
	}
	if apperr.GetKind(err) != apperr.KindUnknown {
		return domain.Lead{}, err
	}
	if errors.Is(err, repository.ErrDuplicate) {
		return domain.Lead{}, apperr.Conflict("lead already exists").WithOp("intake.Intake")
	}
	s.log.DatabaseError("intake.persist", err)
	return domain.Lead{}, apperr.Unavailable("persist lead", err).WithOp("intake.Intake")
}

func normalize(req Request) Request {
	req.SubmissionKey = strings.TrimSpace(req.SubmissionKey)
	req.FirstName = sanitize.Name(req.FirstName)
	req.LastName = sanitize.Name(req.LastName)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Phone = phone.NormalizeE164(req.Phone)
	req.Message = sanitize.Text(req.Message)
	req.Source = strings.ToLower(strings.TrimSpace(req.Source))
	req.Housing = strings.ToLower(strings.TrimSpace(req.Housing))
	req.Timeline = strings.TrimSpace(req.Timeline)
	return req
}
