// Package scoring turns raw intake attributes into a risk score and tier.
package scoring

import (
	"fmt"

	"leadflow_backend/internal/leads/domain"
	"leadflow_backend/platform/apperr"
)

// Housing is the applicant's current housing situation.
type Housing string

const (
	HousingUnknown   Housing = ""
	HousingHomeless  Housing = "homeless"
	HousingTemporary Housing = "temporary"
	HousingUnstable  Housing = "unstable"
	HousingStable    Housing = "stable"
)

// Attributes are the inputs a strategy may use. Optional signals are nil or zero
// when the form did not collect them.
type Attributes struct {
	Program       domain.Program
	Message       string
	IsVeteran     *bool
	Housing       Housing
	Timeline      string
	HasChildren   bool
	MonthlyIncome *float64
	Source        string
}

// Result holds scoring output and factor details.
type Result struct {
	Score   int
	Tier    domain.Tier
	Factors map[string]float64
	Version string
}

// Strategy computes a raw score. Implementations must be pure: the same
// attributes always produce the same score.
type Strategy interface {
	Score(attrs Attributes) (Result, error)
}

// Classifier validates attributes and derives the tier from a strategy's score.
type Classifier struct {
	strategy Strategy
}

// NewClassifier creates a classifier. A nil strategy selects WeightedStrategy.
func NewClassifier(strategy Strategy) *Classifier {
	if strategy == nil {
		strategy = NewWeightedStrategy()
	}
	return &Classifier{strategy: strategy}
}

// Classify scores attrs. An unknown program is a validation error.
func (c *Classifier) Classify(attrs Attributes) (Result, error) {
	if !attrs.Program.Valid() {
		return Result{}, apperr.Validation(fmt.Sprintf("unknown program %q", attrs.Program)).WithOp("scoring.Classify")
	}
	res, err := c.strategy.Score(attrs)
	if err != nil {
		return Result{}, apperr.Wrap(apperr.KindValidation, "scoring failed", err).WithOp("scoring.Classify")
	}
	if !domain.ValidScore(res.Score) {
		return Result{}, apperr.Validation(fmt.Sprintf("strategy produced score %d outside [0,100]", res.Score)).WithOp("scoring.Classify")
	}
	res.Tier = domain.TierForScore(res.Score)
	return res, nil
}
