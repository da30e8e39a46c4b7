package scoring

import (
	"fmt"
	"math"
	"strings"

	"leadflow_backend/internal/leads/domain"
)

// scoreVersion tracks the scoring model. Bump it when weights or factors change.
const scoreVersion = "2026-v1"

const (
	maxKeywordContribution = 20.0
	keywordPoints          = 5.0
	veteranPoints          = 15.0
	childrenPoints         = 10.0
	incomeHardshipPoints   = 10.0
	incomeHardshipCeiling  = 2000.0
)

// programWeights are multipliers applied to each factor for one program.
type programWeights struct {
	floor    float64 // Score for an empty submission
	housing  float64
	keywords float64
	timeline float64
	veteran  float64
	children float64
	income   float64
	source   float64
}

var weightsByProgram = map[domain.Program]programWeights{
	// Veteran status is the strongest program-fit signal here.
	domain.ProgramVeterans: {
		floor:    25,
		housing:  0.6,
		keywords: 1.0,
		timeline: 0.5,
		veteran:  1.0,
		children: 0.5,
		income:   0.8,
		source:   1.0,
	},
	domain.ProgramRecovery: {
		floor:    20,
		housing:  0.6,
		keywords: 1.1,
		timeline: 0.5,
		veteran:  0.3,
		children: 0.8,
		income:   0.8,
		source:   1.0,
	},
	domain.ProgramReentry: {
		floor:    20,
		housing:  0.7,
		keywords: 1.0,
		timeline: 0.5,
		veteran:  0.3,
		children: 0.8,
		income:   1.0,
		source:   1.0,
	},
}

var housingPoints = map[Housing]float64{
	HousingHomeless:  40,
	HousingTemporary: 30,
	HousingUnstable:  20,
	HousingStable:    5,
}

var crisisKeywords = []string{
	"urgent", "emergency", "desperate", "immediate", "asap", "help", "crisis",
	"evicted", "eviction", "shelter", "tonight", "street",
}

var sourcePoints = map[string]float64{
	"referral":     8,
	"google_ads":   6,
	"website":      5,
	"social_media": 4,
	"walk_in":      3,
}

const unknownSourcePoints = 2.0

// WeightedStrategy is the default program-weighted factor model.
type WeightedStrategy struct{}

// NewWeightedStrategy returns the default strategy.
func NewWeightedStrategy() WeightedStrategy {
	return WeightedStrategy{}
}

// Score sums weighted factors on top of the program floor.
func (WeightedStrategy) Score(attrs Attributes) (Result, error) {
	weights, ok := weightsByProgram[attrs.Program]
	if !ok {
		return Result{}, fmt.Errorf("no weights for program %q", attrs.Program)
	}
	factors := map[string]float64{}
	score := weights.floor
	factors["program_floor"] = weights.floor

	score += addFactor(factors, "housing", housingPoints[attrs.Housing]*weights.housing)
	score += addFactor(factors, "crisis_keywords", scoreKeywords(attrs.Message)*weights.keywords)
	score += addFactor(factors, "timeline", scoreTimeline(attrs.Timeline)*weights.timeline)
	if attrs.IsVeteran != nil && *attrs.IsVeteran {
		score += addFactor(factors, "veteran", veteranPoints*weights.veteran)
	}
	if attrs.HasChildren {
		score += addFactor(factors, "children", childrenPoints*weights.children)
	}
	if attrs.MonthlyIncome != nil && *attrs.MonthlyIncome < incomeHardshipCeiling {
		score += addFactor(factors, "income_hardship", incomeHardshipPoints*weights.income)
	}
	score += addFactor(factors, "source", scoreSource(attrs.Source)*weights.source)

	final := clampScore(score)
	return Result{
		Score:   final,
		Tier:    domain.TierForScore(final),
		Factors: factors,
		Version: scoreVersion,
	}, nil
}

func addFactor(factors map[string]float64, key string, value float64) float64 {
	if math.Abs(value) < 0.01 {
		return 0
	}
	factors[key] = math.Round(value*10) / 10
	return value
}

// scoreKeywords awards points per distinct crisis keyword, capped.
func scoreKeywords(message string) float64 {
	text := strings.ToLower(message)
	if strings.TrimSpace(text) == "" {
		return 0
	}
	points := 0.0
	for _, kw := range crisisKeywords {
		if strings.Contains(text, kw) {
			points += keywordPoints
		}
	}
	return math.Min(points, maxKeywordContribution)
}

// scoreTimeline takes the most urgent phrase in the free-text move-in timeline.
func scoreTimeline(timeline string) float64 {
	t := strings.ToLower(timeline)
	switch {
	case containsAny(t, []string{"immediate", "asap", "today", "right now"}):
		return 25
	case strings.Contains(t, "week"):
		return 20
	case strings.Contains(t, "month"):
		return 10
	}
	return 0
}

func scoreSource(source string) float64 {
	if p, ok := sourcePoints[strings.ToLower(strings.TrimSpace(source))]; ok {
		return p
	}
	return unknownSourcePoints
}

// containsAny checks if s contains any of the keywords.
func containsAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}

func clampScore(value float64) int {
	rounded := int(math.Round(value))
	if rounded < domain.MinScore {
		return domain.MinScore
	}
	if rounded > domain.MaxScore {
		return domain.MaxScore
	}
	return rounded
}
