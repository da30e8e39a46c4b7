package domain

// Tier is the urgency bucket derived from a risk score.
type Tier string

const (
	TierCritical Tier = "critical"
	TierHigh     Tier = "high"
	TierModerate Tier = "moderate"
	TierEarly    Tier = "early"
)

const (
	MinScore = 0
	MaxScore = 100

	criticalThreshold = 80
	highThreshold     = 60
	moderateThreshold = 30
)

// Tiers returns every tier from most to least urgent.
func Tiers() []Tier {
	return []Tier{TierCritical, TierHigh, TierModerate, TierEarly}
}

// TierForScore maps a score to its tier. Scores outside [0,100] are clamped.
func TierForScore(score int) Tier {
	switch {
	case score >= criticalThreshold:
		return TierCritical
	case score >= highThreshold:
		return TierHigh
	case score >= moderateThreshold:
		return TierModerate
	default:
		return TierEarly
	}
}

// ValidScore reports whether score lies in [0,100].
func ValidScore(score int) bool {
	return score >= MinScore && score <= MaxScore
}

// Valid reports whether t is a known tier.
func (t Tier) Valid() bool {
	switch t {
	case TierCritical, TierHigh, TierModerate, TierEarly:
		return true
	}
	return false
}

// Rank orders tiers by urgency: critical is 3, early is 0.
func (t Tier) Rank() int {
	switch t {
	case TierCritical:
		return 3
	case TierHigh:
		return 2
	case TierModerate:
		return 1
	default:
		return 0
	}
}

// Label returns the capitalized tier name used in exports.
func (t Tier) Label() string {
	switch t {
	case TierCritical:
		return "Critical"
	case TierHigh:
		return "High"
	case TierModerate:
		return "Moderate"
	case TierEarly:
		return "Early"
	}
	return string(t)
}
