package email

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
)

//go:embed templates/*.html
var templateFS embed.FS

const (
	subjectStaffAlertFmt     = "SLA breach: %d lead(s) awaiting first contact"
	subjectActionRequiredFmt = "Action required: %s for %s"
)

type baseEmailData struct {
	Title      string
	Heading    string
	Subheading string
	CTALabel   string
	CTAURL     string
}

// OverdueLeadRow is one line of the staff SLA alert.
type OverdueLeadRow struct {
	Name      string
	Program   string
	Tier      string
	Score     int
	OverdueBy string
	Phone     string
}

type staffAlertEmailData struct {
	baseEmailData
	Leads []OverdueLeadRow
}

// ActionRequiredData describes a manual follow-up raised by a sequence step.
type ActionRequiredData struct {
	ActionLabel string
	Instruction string
	LeadName    string
	Program     string
	Email       string
	Phone       string
	Message     string
	Step        int
}

type actionRequiredEmailData struct {
	baseEmailData
	ActionRequiredData
}

// StaffAlert renders the SLA breach digest sent to staff.
func StaffAlert(to string, rows []OverdueLeadRow, dashboardURL string) (Message, error) {
	html, err := renderEmailTemplate("staff_alert.html", staffAlertEmailData{
		baseEmailData: baseEmailData{
			Title:    "SLA breach",
			Heading:  "Leads past their response deadline",
			CTALabel: "Open lead dashboard",
			CTAURL:   dashboardURL,
		},
		Leads: rows,
	})
	if err != nil {
		return Message{}, err
	}
	return Message{To: to, Subject: fmt.Sprintf(subjectStaffAlertFmt, len(rows)), HTML: html}, nil
}

// ActionRequired renders the manual follow-up notice sent to staff.
func ActionRequired(to string, data ActionRequiredData) (Message, error) {
	html, err := renderEmailTemplate("action_required.html", actionRequiredEmailData{
		baseEmailData: baseEmailData{
			Title:   "Action required",
			Heading: data.ActionLabel,
		},
		ActionRequiredData: data,
	})
	if err != nil {
		return Message{}, err
	}
	return Message{To: to, Subject: fmt.Sprintf(subjectActionRequiredFmt, data.ActionLabel, data.LeadName), HTML: html}, nil
}

func renderEmailTemplate(name string, data any) (string, error) {
	templates := []string{"templates/base.html", "templates/" + name}
	tmpl, err := template.New("base.html").ParseFS(templateFS, templates...)
	if err != nil {
		return "", fmt.Errorf("parse email template %s: %w", name, err)
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "email", data); err != nil {
		return "", fmt.Errorf("execute email template %s: %w", name, err)
	}
	return buf.String(), nil
}
