// Package sla computes first-contact deadlines from risk scores.
package sla

import (
	"fmt"
	"time"

	"leadflow_backend/internal/leads/domain"
	"leadflow_backend/platform/apperr"
)

var offsets = map[domain.Tier]time.Duration{
	domain.TierCritical: 15 * time.Minute,
	domain.TierHigh:     2 * time.Hour,
	domain.TierModerate: 24 * time.Hour,
	domain.TierEarly:    72 * time.Hour,
}

// Offset returns the response window for a tier. Unknown tiers get the early window.
func Offset(tier domain.Tier) time.Duration {
	if d, ok := offsets[tier]; ok {
		return d
	}
	return offsets[domain.TierEarly]
}

// Deadline returns reference plus the tier offset for score.
func Deadline(score int, reference time.Time) (time.Time, error) {
	if !domain.ValidScore(score) {
		return time.Time{}, apperr.Validation(fmt.Sprintf("risk score %d outside [0,100]", score)).WithOp("sla.Deadline")
	}
	return reference.Add(Offset(domain.TierForScore(score))), nil
}
