package risk

import (
	"math"
	"testing"

	"github.com/ArcadeBob/clean-glass-proposal-app-sub001/internal/domain"
)

func categoricalFactor() *domain.RiskFactor {
	return &domain.RiskFactor{
		Name:        "client_history",
		Category:    "client",
		Weight:      55,
		ScoringType: domain.ScoringCategorical,
		DataType:    domain.DataCategorical,
		Options: []domain.FactorOption{
			{Label: "excellent", Score: 5},
			{Label: "good", Score: 25},
			{Label: "poor", Score: 85},
		},
	}
}

func TestScoreCategoricalMatch(t *testing.T) {
	scorer, err := NewScorer()
	if err != nil {
		t.Fatalf("failed to create scorer: %v", err)
	}

	tests := []struct {
		name  string
		value any
		want  float64
	}{
		{"exact label", "good", 25},
		{"case insensitive", "EXCELLENT", 5},
		{"index based", 2, 85},
		{"float index", 0.0, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			score, warnings, err := scorer.Score(categoricalFactor(), domain.FactorInput{Value: tt.value})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(warnings) != 0 {
				t.Errorf("unexpected warnings: %v", warnings)
			}
			if score != tt.want {
				t.Errorf("score = %v, want %v", score, tt.want)
			}
		})
	}
}

func TestScoreCategoricalFallback(t *testing.T) {
	scorer, _ := NewScorer()

	tests := []struct {
		name  string
		value any
	}{
		{"unmatched label", "nonexistent"},
		{"missing value", nil},
		{"out of range index", 99},
		{"fractional index", 1.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			score, warnings, err := scorer.Score(categoricalFactor(), domain.FactorInput{Value: tt.value})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if score != neutralScore {
				t.Errorf("score = %v, want neutral %v", score, neutralScore)
			}
			if len(warnings) == 0 {
				t.Error("expected a warning for fallback scoring")
			}
		})
	}
}

func TestScoreLinearFormula(t *testing.T) {
	scorer, _ := NewScorer()

	factor := &domain.RiskFactor{
		Name:        "payment_terms",
		ScoringType: domain.ScoringLinear,
		DataType:    domain.DataNumeric,
		MinValue:    0,
		MaxValue:    120,
		Formula:     "(value - min) / (max - min) * 100.0",
	}

	score, _, err := scorer.Score(factor, domain.FactorInput{Value: 60.0})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if score != 50 {
		t.Errorf("score = %v, want 50", score)
	}
}

func TestScoreExponentialFormula(t *testing.T) {
	scorer, _ := NewScorer()

	factor := &domain.RiskFactor{
		Name:        "building_height",
		ScoringType: domain.ScoringExponential,
		DataType:    domain.DataNumeric,
		MinValue:    0,
		MaxValue:    400,
		Formula:     "pow((value - min) / (max - min), 1.8) * 100.0",
	}

	score, _, err := scorer.Score(factor, domain.FactorInput{Value: 200.0})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := math.Pow(0.5, 1.8) * 100
	if math.Abs(score-want) > 1e-9 {
		t.Errorf("score = %v, want %v", score, want)
	}
}

func TestScoreClampsToRange(t *testing.T) {
	scorer, _ := NewScorer()

	factor := &domain.RiskFactor{
		Name:        "overrange",
		ScoringType: domain.ScoringLinear,
		DataType:    domain.DataNumeric,
		MinValue:    0,
		MaxValue:    100,
		Formula:     "(value - min) / (max - min) * 100.0",
	}

	score, _, err := scorer.Score(factor, domain.FactorInput{Value: 250.0})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if score != 100 {
		t.Errorf("score = %v, want clamp to 100", score)
	}

	score, _, _ = scorer.Score(factor, domain.FactorInput{Value: -40.0})
	if score != 0 {
		t.Errorf("score = %v, want clamp to 0", score)
	}
}

func TestScoreNumericNonNumericValue(t *testing.T) {
	scorer, _ := NewScorer()

	factor := &domain.RiskFactor{
		Name:         "timeline_pressure",
		ScoringType:  domain.ScoringLinear,
		DataType:     domain.DataPercentage,
		MinValue:     0,
		MaxValue:     100,
		DefaultValue: 20,
		Formula:      "(value - min) / (max - min) * 100.0",
	}

	score, warnings, err := scorer.Score(factor, domain.FactorInput{Value: "not a number"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if score != 20 {
		t.Errorf("score = %v, want default-driven 20", score)
	}
	if len(warnings) == 0 {
		t.Error("expected warning for non-numeric value")
	}
}

func TestScoreInvalidFormula(t *testing.T) {
	scorer, _ := NewScorer()

	factor := &domain.RiskFactor{
		Name:        "broken",
		ScoringType: domain.ScoringLinear,
		DataType:    domain.DataNumeric,
		Formula:     "this is not valid CEL !!!",
	}

	_, _, err := scorer.Score(factor, domain.FactorInput{Value: 1.0})
	if err == nil {
		t.Error("expected error for invalid formula")
	}
}

func TestScoreStringNumericValue(t *testing.T) {
	scorer, _ := NewScorer()

	factor := &domain.RiskFactor{
		Name:        "payment_terms",
		ScoringType: domain.ScoringLinear,
		DataType:    domain.DataNumeric,
		MinValue:    0,
		MaxValue:    100,
		Formula:     "(value - min) / (max - min) * 100.0",
	}

	score, warnings, err := scorer.Score(factor, domain.FactorInput{Value: "30"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(warnings) != 0 {
		t.Errorf("unexpected warnings: %v", warnings)
	}
	if score != 30 {
		t.Errorf("score = %v, want 30", score)
	}
}
