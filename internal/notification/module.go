// Package notification sends staff-facing emails in response to domain events
// and scheduler findings. Domain modules publish events and never talk to the
// email transport for staff alerts themselves.
package notification

import (
	"context"
	"fmt"
	"strings"
	"time"

	"leadflow_backend/internal/email"
	"leadflow_backend/internal/events"
	"leadflow_backend/internal/leads/domain"
	"leadflow_backend/internal/leads/sequence"
	"leadflow_backend/platform/config"
	"leadflow_backend/platform/logger"
)

const dashboardPath = "/leads/overdue"

// Module handles notification-related event subscriptions.
type Module struct {
	transport email.Transport
	cfg       config.NotificationConfig
	log       *logger.Logger
}

// New creates the notification module.
func New(transport email.Transport, cfg config.NotificationConfig, log *logger.Logger) *Module {
	return &Module{
		transport: transport,
		cfg:       cfg,
		log:       log,
	}
}

func (m *Module) Name() string { return "notification" }

// RegisterHandlers subscribes to the events that need staff attention.
func (m *Module) RegisterHandlers(bus events.Bus) {
	bus.Subscribe(events.LeadIntaken{}.EventName(), m)
	bus.Subscribe(events.LeadEscalated{}.EventName(), m)
	bus.Subscribe(events.SequenceStepFailed{}.EventName(), m)
	bus.Subscribe(events.SequenceActionRequired{}.EventName(), m)
	bus.Subscribe(events.LeadExportSnapshotStored{}.EventName(), m)

	m.log.Info("notification module registered event handlers")
}

// Handle routes events to the appropriate handler method.
func (m *Module) Handle(ctx context.Context, event events.Event) error {
	switch e := event.(type) {
	case events.LeadIntaken:
		m.log.Info("lead intaken",
			"leadId", e.LeadID,
			"program", e.Program,
			"riskScore", e.RiskScore,
			"riskTier", e.RiskTier,
			"slaDeadline", e.SLADeadline,
		)
		return nil
	case events.LeadEscalated:
		m.log.Warn("lead breached first-contact deadline",
			"leadId", e.LeadID,
			"program", e.Program,
			"riskTier", e.RiskTier,
			"overdueBy", formatOverdue(e.OverdueBy),
		)
		return nil
	case events.SequenceStepFailed:
		m.log.Warn("sequence step failed",
			"leadId", e.LeadID,
			"program", e.Program,
			"step", e.Step,
			"reason", e.Reason,
		)
		return nil
	case events.SequenceActionRequired:
		return m.handleActionRequired(ctx, e)
	case events.LeadExportSnapshotStored:
		m.log.Info("lead export snapshot available", "bucket", e.Bucket, "object", e.Object, "records", e.Records)
		return nil
	default:
		m.log.Warn("unhandled event type", "event", event.EventName())
		return nil
	}
}

// NotifyBreaches mails the staff inbox one digest listing the given leads. It is
// a no-op when no staff address is configured or there is nothing to report.
func (m *Module) NotifyBreaches(ctx context.Context, now time.Time, leads []domain.Lead) error {
	to := strings.TrimSpace(m.cfg.GetStaffAlertEmail())
	if len(leads) == 0 {
		return nil
	}
	if to == "" {
		m.log.Warn("staff alert email not configured, skipping breach digest", "leads", len(leads))
		return nil
	}

	rows := make([]email.OverdueLeadRow, 0, len(leads))
	for _, l := range leads {
		rows = append(rows, email.OverdueLeadRow{
			Name:      l.FullName(),
			Program:   l.Program.Label(),
			Tier:      string(l.Tier()),
			Score:     l.RiskScore,
			OverdueBy: formatOverdue(now.Sub(l.SLADeadline)),
			Phone:     l.Phone,
		})
	}

	msg, err := email.StaffAlert(to, rows, m.buildURL(dashboardPath))
	if err != nil {
		return err
	}
	if err := m.transport.Send(ctx, msg); err != nil {
		m.log.Error("failed to send breach digest", "error", err, "leads", len(leads))
		return err
	}
	m.log.Info("breach digest sent", "leads", len(leads))
	return nil
}

func (m *Module) handleActionRequired(ctx context.Context, e events.SequenceActionRequired) error {
	to := strings.TrimSpace(m.cfg.GetStaffAlertEmail())
	if to == "" {
		m.log.Info("staff alert email not configured, logging action instead",
			"leadId", e.LeadID,
			"action", e.Action,
			"step", e.Step,
		)
		return nil
	}

	action := sequence.Action(e.Action)
	program := domain.Program(e.Program)
	msg, err := email.ActionRequired(to, email.ActionRequiredData{
		ActionLabel: action.Label(),
		Instruction: action.Instruction(),
		LeadName:    e.LeadName,
		Program:     program.Label(),
		Email:       e.LeadEmail,
		Phone:       e.LeadPhone,
		Message:     e.Message,
		Step:        e.Step,
	})
	if err != nil {
		return err
	}
	if err := m.transport.Send(ctx, msg); err != nil {
		m.log.Error("failed to send action-required email", "error", err, "leadId", e.LeadID, "action", e.Action)
		return err
	}
	return nil
}

func (m *Module) buildURL(path string) string {
	base := strings.TrimRight(m.cfg.GetAppBaseURL(), "/")
	if base == "" {
		return ""
	}
	return base + path
}

// formatOverdue renders a duration as "3d 4h", "2h 05m" or "12m".
func formatOverdue(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	d = d.Round(time.Minute)
	days := int(d / (24 * time.Hour))
	hours := int(d % (24 * time.Hour) / time.Hour)
	minutes := int(d % time.Hour / time.Minute)

	switch {
	case days > 0:
		return fmt.Sprintf("%dd %dh", days, hours)
	case hours > 0:
		return fmt.Sprintf("%dh %02dm", hours, minutes)
	default:
		return fmt.Sprintf("%dm", minutes)
	}
}
