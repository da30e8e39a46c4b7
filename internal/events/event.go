// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"time"

	"leadflow_backend/platform/events"

	"github.com/google/uuid"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
)

// Re-export platform functions
var (
	NewBaseEvent   = events.NewBaseEvent
	NewBaseEventAt = events.NewBaseEventAt
)

// =============================================================================
// Leads Domain Events
// =============================================================================

// LeadIntaken is published after a lead and its nurture tasks are persisted.
type LeadIntaken struct {
	BaseEvent
	LeadID      uuid.UUID `json:"leadId"`
	Program     string    `json:"program"`
	RiskScore   int       `json:"riskScore"`
	RiskTier    string    `json:"riskTier"`
	SLADeadline time.Time `json:"slaDeadline"`
	Email       string    `json:"email"`
	FirstName   string    `json:"firstName"`
}

func (e LeadIntaken) EventName() string { return "leads.lead.intaken" }

// LeadStatusChanged is published when a status update is applied.
type LeadStatusChanged struct {
	BaseEvent
	LeadID    uuid.UUID `json:"leadId"`
	OldStatus string    `json:"oldStatus"`
	NewStatus string    `json:"newStatus"`
	Notes     string    `json:"notes,omitempty"`
}

func (e LeadStatusChanged) EventName() string { return "leads.lead.status_changed" }

// LeadEscalated is published for each lead whose SLA deadline passed within
// the most recent escalation scan window.
type LeadEscalated struct {
	BaseEvent
	LeadID      uuid.UUID     `json:"leadId"`
	Name        string        `json:"name"`
	Program     string        `json:"program"`
	RiskScore   int           `json:"riskScore"`
	RiskTier    string        `json:"riskTier"`
	Phone       string        `json:"phone,omitempty"`
	SLADeadline time.Time     `json:"slaDeadline"`
	OverdueBy   time.Duration `json:"overdueBy"`
}

func (e LeadEscalated) EventName() string { return "leads.lead.escalated" }

// =============================================================================
// Sequence Domain Events
// =============================================================================

// SequenceStepDispatched is published after a step was sent and the pointer advanced.
type SequenceStepDispatched struct {
	BaseEvent
	LeadID  uuid.UUID `json:"leadId"`
	Program string    `json:"program"`
	Step    int       `json:"step"`
	Subject string    `json:"subject"`
}

func (e SequenceStepDispatched) EventName() string { return "sequence.step.dispatched" }

// SequenceStepFailed is published when a step could not be sent. The pointer
// is unchanged and the step is retried on the next pass.
type SequenceStepFailed struct {
	BaseEvent
	LeadID  uuid.UUID `json:"leadId"`
	Program string    `json:"program"`
	Step    int       `json:"step"`
	Reason  string    `json:"reason"`
}

func (e SequenceStepFailed) EventName() string { return "sequence.step.failed" }

// SequenceActionRequired is published when a dispatched step carries an action
// tag that needs manual staff follow-up.
type SequenceActionRequired struct {
	BaseEvent
	LeadID    uuid.UUID `json:"leadId"`
	Program   string    `json:"program"`
	Step      int       `json:"step"`
	Action    string    `json:"action"`
	LeadName  string    `json:"leadName"`
	LeadEmail string    `json:"leadEmail"`
	LeadPhone string    `json:"leadPhone,omitempty"`
	Message   string    `json:"message,omitempty"`
}

func (e SequenceActionRequired) EventName() string { return "sequence.action.required" }

// LeadExportSnapshotStored is published after an export snapshot is uploaded.
type LeadExportSnapshotStored struct {
	BaseEvent
	Bucket  string `json:"bucket"`
	Object  string `json:"object"`
	Records int    `json:"records"`
}

func (e LeadExportSnapshotStored) EventName() string { return "exports.snapshot.stored" }
