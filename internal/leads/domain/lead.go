// Package domain provides core business rules for the leads bounded context.
package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Program is the housing program a lead inquired about.
type Program string

const (
	ProgramVeterans Program = "veterans"
	ProgramRecovery Program = "recovery"
	ProgramReentry  Program = "reentry"
)

var programLabels = map[Program]string{
	ProgramVeterans: "Veterans Housing",
	ProgramRecovery: "Recovery Housing",
	ProgramReentry:  "Re-entry Support",
}

// Form slugs used by the public landing pages.
var programAliases = map[string]Program{
	"veterans":         ProgramVeterans,
	"veteran":          ProgramVeterans,
	"veterans-housing": ProgramVeterans,
	"veteran-housing":  ProgramVeterans,
	"recovery":         ProgramRecovery,
	"recovery-housing": ProgramRecovery,
	"sober-living":     ProgramRecovery,
	"reentry":          ProgramReentry,
	"re-entry":         ProgramReentry,
	"reentry-support":  ProgramReentry,
}

// Programs returns every program in a fixed order.
func Programs() []Program {
	return []Program{ProgramVeterans, ProgramRecovery, ProgramReentry}
}

// ParseProgram maps a form value or slug to a Program.
func ParseProgram(raw string) (Program, bool) {
	p, ok := programAliases[strings.ToLower(strings.TrimSpace(raw))]
	return p, ok
}

// Valid reports whether p is one of the known programs.
func (p Program) Valid() bool {
	_, ok := programLabels[p]
	return ok
}

// Label returns the human-readable program name used in emails and exports.
func (p Program) Label() string {
	if label, ok := programLabels[p]; ok {
		return label
	}
	return string(p)
}

// Lead is an inbound inquiry for a housing program.
type Lead struct {
	ID              uuid.UUID
	SubmissionKey   string
	FirstName       string
	LastName        string
	Email           string
	Phone           string
	Program         Program
	Message         string
	Source          string
	IsVeteran       *bool
	RiskScore       int
	RiskTier        Tier
	Status          Status
	StatusNotes     string
	SLADeadline     time.Time
	SequenceStep    int
	LastContactedAt *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// FullName joins first and last name.
func (l Lead) FullName() string {
	return strings.TrimSpace(l.FirstName + " " + l.LastName)
}

// Tier returns the stored tier, or derives it from the score when the stored
// value is missing or unknown.
func (l Lead) Tier() Tier {
	if l.RiskTier.Valid() {
		return l.RiskTier
	}
	return TierForScore(l.RiskScore)
}

// Overdue reports whether the lead is still open and its SLA deadline is
// strictly before now.
func (l Lead) Overdue(now time.Time) bool {
	return l.Status.Open() && l.SLADeadline.Before(now)
}

// ElapsedDays returns whole days since creation, or -1 when now precedes creation.
func (l Lead) ElapsedDays(now time.Time) int {
	if now.Before(l.CreatedAt) {
		return -1
	}
	return int(now.Sub(l.CreatedAt) / (24 * time.Hour))
}
