// Package escalation finds leads that are past their SLA deadline.
package escalation

import (
	"context"
	"sort"
	"time"

	"leadflow_backend/internal/leads/domain"
	"leadflow_backend/platform/logger"
)

const defaultTimeout = 5 * time.Second

// Lister is the read-only slice of the lead store the scanner needs.
type Lister interface {
	ListByStatus(ctx context.Context, statuses ...domain.Status) ([]domain.Lead, error)
}

// Scanner ranks overdue leads. It never mutates state and never returns an
// error: a failed read is logged and yields no leads.
type Scanner struct {
	leads   Lister
	log     *logger.Logger
	timeout time.Duration
}

// NewScanner creates a scanner. A non-positive timeout selects the default.
func NewScanner(leads Lister, log *logger.Logger, timeout time.Duration) *Scanner {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Scanner{leads: leads, log: log, timeout: timeout}
}

// Overdue returns open leads whose deadline is strictly before now, most
// urgent first.
func (s *Scanner) Overdue(ctx context.Context, now time.Time) []domain.Lead {
	return Rank(s.open(ctx), now)
}

// NewlyBreached returns the overdue leads whose deadline fell within
// [now-window, now), in the same order as Overdue. Consecutive scans spaced by
// window report each breach once.
func (s *Scanner) NewlyBreached(ctx context.Context, now time.Time, window time.Duration) []domain.Lead {
	return WithinWindow(s.Overdue(ctx, now), now, window)
}

// WithinWindow keeps the leads whose deadline is not before now-window,
// preserving order.
func WithinWindow(leads []domain.Lead, now time.Time, window time.Duration) []domain.Lead {
	since := now.Add(-window)
	out := make([]domain.Lead, 0, len(leads))
	for _, l := range leads {
		if !l.SLADeadline.Before(since) {
			out = append(out, l)
		}
	}
	return out
}

func (s *Scanner) open(ctx context.Context) []domain.Lead {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	leads, err := s.leads.ListByStatus(ctx, domain.OpenStatuses()...)
	if err != nil {
		s.log.DatabaseError("escalation.list_open_leads", err)
		return nil
	}
	return leads
}

// Rank filters leads down to the overdue ones and orders them by risk score
// descending, then deadline ascending, then id.
func Rank(leads []domain.Lead, now time.Time) []domain.Lead {
	out := make([]domain.Lead, 0, len(leads))
	for _, l := range leads {
		if l.Overdue(now) {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.RiskScore != b.RiskScore {
			return a.RiskScore > b.RiskScore
		}
		if !a.SLADeadline.Equal(b.SLADeadline) {
			return a.SLADeadline.Before(b.SLADeadline)
		}
		return a.ID.String() < b.ID.String()
	})
	return out
}
