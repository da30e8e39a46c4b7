package scoring

import (
	"testing"

	"leadflow_backend/internal/leads/domain"
	"leadflow_backend/platform/apperr"
)

func boolPtr(b bool) *bool { return &b }

func floatPtr(f float64) *float64 { return &f }

func TestClassifyEmptyMessageYieldsProgramFloor(t *testing.T) {
	c := NewClassifier(nil)
	for _, p := range domain.Programs() {
		res, err := c.Classify(Attributes{Program: p})
		if err != nil {
			t.Fatalf("program %s: unexpected error: %v", p, err)
		}
		floor := weightsByProgram[p].floor
		if res.Score < int(floor) {
			t.Fatalf("program %s: score %d below floor %v", p, res.Score, floor)
		}
		if res.Tier != domain.TierForScore(res.Score) {
			t.Fatalf("program %s: tier %s does not match score %d", p, res.Tier, res.Score)
		}
	}
}

func TestClassifyUnknownProgramIsValidationError(t *testing.T) {
	c := NewClassifier(nil)
	_, err := c.Classify(Attributes{Program: "general"})
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestClassifyIsDeterministic(t *testing.T) {
	c := NewClassifier(nil)
	attrs := Attributes{
		Program:       domain.ProgramRecovery,
		Message:       "I was evicted last week and need help urgently",
		Housing:       HousingTemporary,
		Timeline:      "this week",
		HasChildren:   true,
		MonthlyIncome: floatPtr(900),
		Source:        "referral",
	}
	first, _ := c.Classify(attrs)
	for i := 0; i < 10; i++ {
		again, _ := c.Classify(attrs)
		if again.Score != first.Score || again.Tier != first.Tier {
			t.Fatalf("run %d: got %d/%s, want %d/%s", i, again.Score, again.Tier, first.Score, first.Tier)
		}
	}
}

func TestClassifyHomelessVeteranInCrisisIsCritical(t *testing.T) {
	c := NewClassifier(nil)
	res, err := c.Classify(Attributes{
		Program:   domain.ProgramVeterans,
		Message:   "This is urgent, I need help finding a place",
		IsVeteran: boolPtr(true),
		Housing:   HousingHomeless,
		Timeline:  "immediately",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Tier != domain.TierCritical {
		t.Fatalf("expected critical, got %s (score %d, factors %v)", res.Tier, res.Score, res.Factors)
	}
	if res.Factors["veteran"] == 0 || res.Factors["housing"] == 0 {
		t.Fatalf("expected veteran and housing factors, got %v", res.Factors)
	}
}

func TestKeywordContributionIsCapped(t *testing.T) {
	msg := "urgent emergency desperate immediate asap help crisis evicted shelter"
	if got := scoreKeywords(msg); got != maxKeywordContribution {
		t.Fatalf("expected cap %v, got %v", maxKeywordContribution, got)
	}
}

func TestScoresStayInRange(t *testing.T) {
	c := NewClassifier(nil)
	housings := []Housing{HousingUnknown, HousingHomeless, HousingTemporary, HousingUnstable, HousingStable}
	for _, p := range domain.Programs() {
		for _, h := range housings {
			for _, vet := range []bool{false, true} {
				res, err := c.Classify(Attributes{
					Program:       p,
					Message:       "urgent emergency desperate crisis help shelter",
					IsVeteran:     boolPtr(vet),
					Housing:       h,
					Timeline:      "asap",
					HasChildren:   true,
					MonthlyIncome: floatPtr(0),
					Source:        "referral",
				})
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if !domain.ValidScore(res.Score) {
					t.Fatalf("score %d out of range", res.Score)
				}
			}
		}
	}
}

type fixedStrategy struct{ score int }

func (f fixedStrategy) Score(Attributes) (Result, error) {
	return Result{Score: f.score}, nil
}

func TestClassifierDerivesTierFromPluggableStrategy(t *testing.T) {
	res, err := NewClassifier(fixedStrategy{score: 85}).Classify(Attributes{Program: domain.ProgramReentry})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Tier != domain.TierCritical {
		t.Fatalf("expected critical, got %s", res.Tier)
	}

	_, err = NewClassifier(fixedStrategy{score: 140}).Classify(Attributes{Program: domain.ProgramReentry})
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error for out-of-range strategy score, got %v", err)
	}
}
