// Package stats rolls up lead counts for dashboards.
package stats

import (
	"context"
	"time"

	"leadflow_backend/internal/leads/domain"
	"leadflow_backend/platform/logger"
)

const defaultTimeout = 5 * time.Second

// Snapshot is a point-in-time rollup over every lead. Critical, High, Moderate
// and Early always sum to Total.
type Snapshot struct {
	Total    int                   `json:"total"`
	Overdue  int                   `json:"overdue"`
	OnTime   int                   `json:"onTime"`
	Critical int                   `json:"critical"`
	High     int                   `json:"high"`
	Moderate int                   `json:"moderate"`
	Early    int                   `json:"early"`
	ByStatus map[domain.Status]int `json:"byStatus"`

	// Partial is set when the store could not be read and the counts are zero.
	Partial bool `json:"partial"`

	// Degraded is set when the module runs against the in-memory fallback store.
	Degraded bool `json:"degraded"`

	ComputedAt time.Time `json:"computedAt"`
}

// ByTier returns the tier counts keyed by tier.
func (s Snapshot) ByTier() map[domain.Tier]int {
	return map[domain.Tier]int{
		domain.TierCritical: s.Critical,
		domain.TierHigh:     s.High,
		domain.TierModerate: s.Moderate,
		domain.TierEarly:    s.Early,
	}
}

func emptySnapshot(now time.Time) Snapshot {
	byStatus := make(map[domain.Status]int, len(domain.Statuses()))
	for _, st := range domain.Statuses() {
		byStatus[st] = 0
	}
	return Snapshot{ByStatus: byStatus, ComputedAt: now}
}

// Aggregate computes a snapshot from leads. It is pure.
func Aggregate(leads []domain.Lead, now time.Time) Snapshot {
	snap := emptySnapshot(now)
	for _, l := range leads {
		snap.Total++
		snap.ByStatus[l.Status]++
		switch l.Tier() {
		case domain.TierCritical:
			snap.Critical++
		case domain.TierHigh:
			snap.High++
		case domain.TierModerate:
			snap.Moderate++
		default:
			snap.Early++
		}
		if l.Overdue(now) {
			snap.Overdue++
		} else if l.Status.Open() {
			snap.OnTime++
		}
	}
	return snap
}

// Lister is the read-only slice of the lead store the aggregator needs.
type Lister interface {
	ListByStatus(ctx context.Context, statuses ...domain.Status) ([]domain.Lead, error)
}

// Aggregator computes snapshots on demand. It holds no cached state.
type Aggregator struct {
	leads   Lister
	log     *logger.Logger
	timeout time.Duration
}

// NewAggregator creates an aggregator. A non-positive timeout selects the default.
func NewAggregator(leads Lister, log *logger.Logger, timeout time.Duration) *Aggregator {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Aggregator{leads: leads, log: log, timeout: timeout}
}

// Snapshot reads every lead and aggregates. It never fails: a read error
// yields a zero snapshot flagged Partial.
func (a *Aggregator) Snapshot(ctx context.Context, now time.Time) Snapshot {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	leads, err := a.leads.ListByStatus(ctx)
	if err != nil {
		a.log.DatabaseError("stats.list_leads", err)
		snap := emptySnapshot(now)
		snap.Partial = true
		return snap
	}
	return Aggregate(leads, now)
}
