package risk

import (
	"context"
	"math"
	"strings"
	"testing"

	"github.com/ArcadeBob/clean-glass-proposal-app-sub001/internal/domain"
)

func testCatalog() *StaticCatalog {
	return NewStaticCatalog([]*domain.RiskCategory{
		{
			Name:      "technical",
			Weight:    60,
			SortOrder: 1,
			Factors: []domain.RiskFactor{
				{
					Name:        "complexity",
					Weight:      50,
					ScoringType: domain.ScoringCategorical,
					DataType:    domain.DataCategorical,
					Options: []domain.FactorOption{
						{Label: "low", Score: 20},
						{Label: "high", Score: 80},
					},
				},
				{
					Name:        "height",
					Weight:      50,
					ScoringType: domain.ScoringLinear,
					DataType:    domain.DataNumeric,
					MinValue:    0,
					MaxValue:    100,
					Formula:     "(value - min) / (max - min) * 100.0",
				},
			},
		},
		{
			Name:      "client",
			Weight:    40,
			SortOrder: 2,
			Factors: []domain.RiskFactor{
				{
					Name:        "history",
					Weight:      100,
					ScoringType: domain.ScoringCategorical,
					DataType:    domain.DataCategorical,
					Options: []domain.FactorOption{
						{Label: "good", Score: 10},
						{Label: "bad", Score: 90},
					},
				},
			},
		},
	})
}

func TestAssessWeightedAggregation(t *testing.T) {
	engine, err := NewAssessmentEngine(testCatalog())
	if err != nil {
		t.Fatalf("failed to create engine: %v", err)
	}

	result := engine.Assess(context.Background(), map[string]domain.FactorInput{
		"complexity": {Value: "high"},   // 80, weight 50
		"height":     {Value: 40.0},     // 40, weight 50
		"history":    {Value: "bad"},    // 90, weight 100
	})
	if result == nil {
		t.Fatal("expected non-nil result")
	}

	// technical: (80*0.5 + 40*0.5) / (0.5+0.5) = 60; client: 90
	// total: (60*60 + 90*40) / 100 = 72
	if math.Abs(result.TotalRiskScore-72) > 1e-9 {
		t.Errorf("total risk score = %v, want 72", result.TotalRiskScore)
	}
	if result.RiskLevel != domain.RiskHigh {
		t.Errorf("risk level = %v, want HIGH", result.RiskLevel)
	}
	if result.ContingencyRate != 0.15 {
		t.Errorf("contingency rate = %v, want 0.15", result.ContingencyRate)
	}
	if result.FactorsProcessed != 3 {
		t.Errorf("factors processed = %d, want 3", result.FactorsProcessed)
	}
	if result.Confidence != 1.0 {
		t.Errorf("confidence = %v, want 1.0", result.Confidence)
	}
}

func TestAssessExcludesFactorsWithoutInput(t *testing.T) {
	engine, _ := NewAssessmentEngine(testCatalog())

	result := engine.Assess(context.Background(), map[string]domain.FactorInput{
		"complexity": {Value: "low"}, // only one of two technical factors
	})
	if result == nil {
		t.Fatal("expected non-nil result")
	}

	// Category score must be the average over supplied factors only,
	// and the missing client category must not drag the total down.
	if len(result.CategoryScores) != 1 {
		t.Fatalf("category scores = %d, want 1", len(result.CategoryScores))
	}
	if result.CategoryScores[0].Score != 20 {
		t.Errorf("technical score = %v, want 20", result.CategoryScores[0].Score)
	}
	if result.TotalRiskScore != 20 {
		t.Errorf("total risk score = %v, want 20", result.TotalRiskScore)
	}

	wantConfidence := 1.0 / 3.0
	if math.Abs(result.Confidence-wantConfidence) > 1e-9 {
		t.Errorf("confidence = %v, want %v", result.Confidence, wantConfidence)
	}
}

func TestAssessUnknownFactorWarns(t *testing.T) {
	engine, _ := NewAssessmentEngine(testCatalog())

	result := engine.Assess(context.Background(), map[string]domain.FactorInput{
		"complexity":  {Value: "low"},
		"nonexistent": {Value: 42},
	})
	if result == nil {
		t.Fatal("expected non-nil result")
	}

	found := false
	for _, w := range result.Warnings {
		if strings.Contains(w, "nonexistent") {
			found = true
		}
	}
	if !found {
		t.Errorf("expected warning naming unknown factor, got %v", result.Warnings)
	}
	if result.FactorsProcessed != 1 {
		t.Errorf("factors processed = %d, want 1", result.FactorsProcessed)
	}
}

func TestAssessNilCatalogReturnsNil(t *testing.T) {
	engine, _ := NewAssessmentEngine(nil)

	result := engine.Assess(context.Background(), map[string]domain.FactorInput{
		"complexity": {Value: "low"},
	})
	if result != nil {
		t.Error("expected nil result when catalog is unavailable")
	}
}

func TestLevelForScoreBands(t *testing.T) {
	tests := []struct {
		score float64
		want  domain.RiskLevel
	}{
		{0, domain.RiskLow},
		{24.99, domain.RiskLow},
		{25, domain.RiskMedium},
		{49.99, domain.RiskMedium},
		{50, domain.RiskHigh},
		{74.99, domain.RiskHigh},
		{75, domain.RiskCritical},
		{100, domain.RiskCritical},
	}

	for _, tt := range tests {
		if got := LevelForScore(tt.score); got != tt.want {
			t.Errorf("LevelForScore(%v) = %v, want %v", tt.score, got, tt.want)
		}
	}
}

func TestLevelForScoreMonotonic(t *testing.T) {
	order := map[domain.RiskLevel]int{
		domain.RiskLow: 0, domain.RiskMedium: 1, domain.RiskHigh: 2, domain.RiskCritical: 3,
	}
	prev := 0
	for score := 0.0; score <= 100; score += 0.5 {
		cur := order[LevelForScore(score)]
		if cur < prev {
			t.Fatalf("risk level decreased at score %v", score)
		}
		prev = cur
	}
}

func TestDefaultCatalogLookup(t *testing.T) {
	catalog := DefaultCatalog()

	factor, err := catalog.GetFactor(context.Background(), "Technical_Complexity")
	if err != nil {
		t.Fatalf("lookup failed: %v", err)
	}
	if factor.Category != "technical" {
		t.Errorf("category = %q, want technical", factor.Category)
	}

	if _, err := catalog.GetFactor(context.Background(), "no-such-factor"); err == nil {
		t.Error("expected error for unknown factor")
	}

	categories, err := catalog.ListCategories(context.Background())
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(categories) != 4 {
		t.Errorf("categories = %d, want 4", len(categories))
	}
}
