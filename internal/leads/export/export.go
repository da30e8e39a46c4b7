// Package export flattens leads into report-ready records.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strconv"
	"time"

	"leadflow_backend/internal/leads/domain"
)

// LeadRecord is one flat export row.
type LeadRecord struct {
	ID                   string     `json:"id"`
	Name                 string     `json:"name"`
	Email                string     `json:"email"`
	Phone                string     `json:"phone"`
	Program              string     `json:"program"`
	RiskScore            int        `json:"riskScore"`
	RiskLevel            string     `json:"riskLevel"`
	Status               string     `json:"status"`
	Source               string     `json:"source"`
	SequenceStep         int        `json:"sequenceStep"`
	CreatedAt            time.Time  `json:"createdAt"`
	SLADeadline          time.Time  `json:"slaDeadline"`
	LastContactedAt      *time.Time `json:"lastContactedAt,omitempty"`
	MinutesUntilDeadline int        `json:"minutesUntilDeadline"`
}

// MinutesUntil returns the whole minutes from now until deadline, rounded half
// up. Negative values mean the deadline has passed.
func MinutesUntil(deadline, now time.Time) int {
	return int(math.Floor(deadline.Sub(now).Minutes() + 0.5))
}

// Record flattens a single lead relative to now.
func Record(l domain.Lead, now time.Time) LeadRecord {
	return LeadRecord{
		ID:                   l.ID.String(),
		Name:                 l.FullName(),
		Email:                l.Email,
		Phone:                l.Phone,
		Program:              string(l.Program),
		RiskScore:            l.RiskScore,
		RiskLevel:            string(l.Tier()),
		Status:               string(l.Status),
		Source:               l.Source,
		SequenceStep:         l.SequenceStep,
		CreatedAt:            l.CreatedAt,
		SLADeadline:          l.SLADeadline,
		LastContactedAt:      l.LastContactedAt,
		MinutesUntilDeadline: MinutesUntil(l.SLADeadline, now),
	}
}

// Records flattens leads in order.
func Records(leads []domain.Lead, now time.Time) []LeadRecord {
	out := make([]LeadRecord, 0, len(leads))
	for _, l := range leads {
		out = append(out, Record(l, now))
	}
	return out
}

var csvHeader = []string{
	"id", "name", "email", "phone", "program", "risk_score", "risk_level", "status",
	"source", "sequence_step", "created_at", "sla_deadline", "last_contacted_at",
	"minutes_until_deadline",
}

// WriteCSV writes records with a header row. Timestamps are RFC 3339 in UTC.
func WriteCSV(w io.Writer, records []LeadRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, r := range records {
		lastContacted := ""
		if r.LastContactedAt != nil {
			lastContacted = r.LastContactedAt.UTC().Format(time.RFC3339)
		}
		row := []string{
			r.ID, r.Name, r.Email, r.Phone, r.Program,
			strconv.Itoa(r.RiskScore), r.RiskLevel, r.Status, r.Source,
			strconv.Itoa(r.SequenceStep),
			r.CreatedAt.UTC().Format(time.RFC3339),
			r.SLADeadline.UTC().Format(time.RFC3339),
			lastContacted,
			strconv.Itoa(r.MinutesUntilDeadline),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write csv row %s: %w", r.ID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
