package export

import (
	"bytes"
	"encoding/csv"
	"testing"
	"time"

	"leadflow_backend/internal/leads/domain"

	"github.com/google/uuid"
)

var t0 = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func TestMinutesUntil(t *testing.T) {
	cases := []struct {
		offset time.Duration
		want   int
	}{
		{15 * time.Minute, 15},
		{90 * time.Second, 2},
		{29 * time.Second, 0},
		{-90 * time.Second, -1},
		{-3 * time.Hour, -180},
	}
	for _, tc := range cases {
		if got := MinutesUntil(t0.Add(tc.offset), t0); got != tc.want {
			t.Errorf("MinutesUntil(%s) = %d, want %d", tc.offset, got, tc.want)
		}
	}
}

func TestRecordFlattensLead(t *testing.T) {
	id := uuid.New()
	lead := domain.Lead{
		ID:          id,
		FirstName:   "Ana",
		LastName:    "Lopez",
		Email:       "ana@example.com",
		Program:     domain.ProgramReentry,
		RiskScore:   72,
		Status:      domain.StatusContacted,
		Source:      "website",
		SLADeadline: t0.Add(2 * time.Hour),
		CreatedAt:   t0,
	}
	r := Record(lead, t0.Add(30*time.Minute))
	if r.ID != id.String() || r.Name != "Ana Lopez" || r.RiskLevel != "high" || r.Program != "reentry" {
		t.Fatalf("unexpected record %+v", r)
	}
	if r.MinutesUntilDeadline != 90 {
		t.Fatalf("expected 90 minutes, got %d", r.MinutesUntilDeadline)
	}
}

func TestWriteCSV(t *testing.T) {
	contacted := t0.Add(time.Hour)
	records := []LeadRecord{
		{ID: "a", Name: "Ana, Jr.", RiskScore: 85, RiskLevel: "critical", CreatedAt: t0, SLADeadline: t0, LastContactedAt: &contacted, MinutesUntilDeadline: -60},
		{ID: "b", Name: "Ben", CreatedAt: t0, SLADeadline: t0},
	}
	var buf bytes.Buffer
	if err := WriteCSV(&buf, records); err != nil {
		t.Fatalf("write: %v", err)
	}

	rows, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if len(rows) != 3 || len(rows[0]) != len(csvHeader) {
		t.Fatalf("unexpected shape %d rows", len(rows))
	}
	if rows[1][1] != "Ana, Jr." || rows[1][12] != "2026-03-01T10:00:00Z" || rows[1][13] != "-60" {
		t.Fatalf("unexpected first row %v", rows[1])
	}
	if rows[2][12] != "" {
		t.Fatalf("expected empty last-contacted, got %q", rows[2][12])
	}
}
