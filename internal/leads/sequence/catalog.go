// Package sequence drives the per-program follow-up email campaign.
package sequence

import (
	"bytes"
	_ "embed"
	"fmt"
	htmltemplate "html/template"
	"strings"
	texttemplate "text/template"

	"leadflow_backend/internal/leads/domain"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultCatalogYAML []byte

// Action tags a step that needs manual staff follow-up after it is sent.
type Action string

const (
	ActionNone               Action = ""
	ActionCallReminder       Action = "call_reminder"
	ActionDocumentRequest    Action = "document_request"
	ActionAppointmentBooking Action = "appointment_booking"
)

var actionLabels = map[Action]string{
	ActionCallReminder:       "Call reminder",
	ActionDocumentRequest:    "Document request",
	ActionAppointmentBooking: "Appointment booking",
}

var actionInstructions = map[Action]string{
	ActionCallReminder:       "Call the lead and log the outcome.",
	ActionDocumentRequest:    "Follow up on the documents the lead still needs to provide.",
	ActionAppointmentBooking: "Schedule an intake appointment or facility tour.",
}

// Valid reports whether a is empty or a known action.
func (a Action) Valid() bool {
	if a == ActionNone {
		return true
	}
	_, ok := actionLabels[a]
	return ok
}

// Label returns a short human-readable name.
func (a Action) Label() string {
	if l, ok := actionLabels[a]; ok {
		return l
	}
	return string(a)
}

// Instruction tells staff what to do for this action.
func (a Action) Instruction() string {
	return actionInstructions[a]
}

// TemplateData holds the personalization fields available to step templates.
type TemplateData struct {
	FirstName    string
	LastName     string
	FullName     string
	ProgramLabel string
	Phone        string
}

// DataFor extracts template fields from a lead.
func DataFor(lead domain.Lead) TemplateData {
	return TemplateData{
		FirstName:    lead.FirstName,
		LastName:     lead.LastName,
		FullName:     lead.FullName(),
		ProgramLabel: lead.Program.Label(),
		Phone:        lead.Phone,
	}
}

// Step is one compiled sequence step.
type Step struct {
	DayOffset int
	Action    Action
	subject   *texttemplate.Template
	body      *htmltemplate.Template
}

// Render personalizes the step's subject and HTML body.
func (s Step) Render(data TemplateData) (subject, body string, err error) {
	var sb, bb bytes.Buffer
	if err := s.subject.Execute(&sb, data); err != nil {
		return "", "", fmt.Errorf("render subject: %w", err)
	}
	if err := s.body.Execute(&bb, data); err != nil {
		return "", "", fmt.Errorf("render body: %w", err)
	}
	return strings.TrimSpace(sb.String()), bb.String(), nil
}

// Catalog maps every program to its ordered steps. It is immutable once loaded.
type Catalog struct {
	programs map[domain.Program][]Step
}

// Steps returns the program's steps in order.
func (c *Catalog) Steps(p domain.Program) ([]Step, bool) {
	steps, ok := c.programs[p]
	return steps, ok
}

// Len returns the number of steps for p, zero for an unknown program.
func (c *Catalog) Len(p domain.Program) int {
	return len(c.programs[p])
}

type catalogFile struct {
	Programs map[string]programFile `yaml:"programs"`
}

type programFile struct {
	Steps []stepFile `yaml:"steps"`
}

type stepFile struct {
	Day     int    `yaml:"day"`
	Action  string `yaml:"action"`
	Subject string `yaml:"subject"`
	Body    string `yaml:"body"`
}

var sampleData = TemplateData{
	FirstName:    "Sample",
	LastName:     "Lead",
	FullName:     "Sample Lead",
	ProgramLabel: "Sample Program",
	Phone:        "+12015550123",
}

// LoadCatalog parses and validates a YAML catalog. Every program must have at
// least one step, offsets must be non-negative and non-decreasing, and every
// template must parse and render against sample data.
func LoadCatalog(data []byte) (*Catalog, error) {
	var file catalogFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		return nil, fmt.Errorf("decode sequence catalog: %w", err)
	}

	cat := &Catalog{programs: make(map[domain.Program][]Step, len(file.Programs))}
	for name, pf := range file.Programs {
		program := domain.Program(name)
		if !program.Valid() {
			return nil, fmt.Errorf("sequence catalog: unknown program %q", name)
		}
		steps, err := compileSteps(program, pf.Steps)
		if err != nil {
			return nil, err
		}
		cat.programs[program] = steps
	}
	for _, p := range domain.Programs() {
		if _, ok := cat.programs[p]; !ok {
			return nil, fmt.Errorf("sequence catalog: missing program %q", p)
		}
	}
	return cat, nil
}

func compileSteps(program domain.Program, raw []stepFile) ([]Step, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("sequence catalog: program %q has no steps", program)
	}
	steps := make([]Step, 0, len(raw))
	prevDay := 0
	for i, sf := range raw {
		where := fmt.Sprintf("sequence catalog: %s step %d", program, i)
		if sf.Day < 0 {
			return nil, fmt.Errorf("%s: negative day offset %d", where, sf.Day)
		}
		if sf.Day < prevDay {
			return nil, fmt.Errorf("%s: day offset %d precedes previous step (%d)", where, sf.Day, prevDay)
		}
		prevDay = sf.Day
		if strings.TrimSpace(sf.Subject) == "" || strings.TrimSpace(sf.Body) == "" {
			return nil, fmt.Errorf("%s: subject and body are required", where)
		}
		action := Action(sf.Action)
		if !action.Valid() {
			return nil, fmt.Errorf("%s: unknown action %q", where, sf.Action)
		}

		name := fmt.Sprintf("%s_%d", program, i)
		subject, err := texttemplate.New(name + "_subject").Option("missingkey=error").Parse(sf.Subject)
		if err != nil {
			return nil, fmt.Errorf("%s: parse subject: %w", where, err)
		}
		body, err := htmltemplate.New(name + "_body").Option("missingkey=error").Parse(sf.Body)
		if err != nil {
			return nil, fmt.Errorf("%s: parse body: %w", where, err)
		}

		step := Step{DayOffset: sf.Day, Action: action, subject: subject, body: body}
		if _, _, err := step.Render(sampleData); err != nil {
			return nil, fmt.Errorf("%s: %w", where, err)
		}
		steps = append(steps, step)
	}
	return steps, nil
}

// DefaultCatalog loads the embedded catalog.
func DefaultCatalog() (*Catalog, error) {
	return LoadCatalog(defaultCatalogYAML)
}
