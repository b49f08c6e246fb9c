package contingency

import (
	"math"
	"reflect"
	"testing"

	"github.com/ArcadeBob/clean-glass-proposal-app-sub001/internal/domain"
)

func assessment(level domain.RiskLevel, rate float64) *domain.RiskScoringResult {
	return &domain.RiskScoringResult{RiskLevel: level, ContingencyRate: rate}
}

func TestRecommendBaselineOnly(t *testing.T) {
	rec := Recommend(assessment(domain.RiskLow, 0.05), MarketSignals{})

	if rec.Rate != 0.05 {
		t.Errorf("rate = %v, want baseline 0.05", rec.Rate)
	}
	if rec.BaselineRate != 0.05 {
		t.Errorf("baseline = %v, want 0.05", rec.BaselineRate)
	}
	if len(rec.Recommendations) == 0 {
		t.Error("expected at least one recommendation")
	}
	if rec.Explanation == "" {
		t.Error("expected explanation string")
	}
}

func TestRecommendMarketAdjustments(t *testing.T) {
	rec := Recommend(assessment(domain.RiskMedium, 0.10), MarketSignals{
		CostTrendPct:           12, // +0.03
		LaborAvailabilityScore: 80, // +0.01
		MarketConditionScore:   85, // +0.01
	})

	if math.Abs(rec.Rate-0.15) > 1e-9 {
		t.Errorf("rate = %v, want 0.15", rec.Rate)
	}
}

func TestRecommendRegionalMultiplier(t *testing.T) {
	rec := Recommend(assessment(domain.RiskMedium, 0.10), MarketSignals{
		RegionalAdjustment: 1.5,
	})

	if math.Abs(rec.Rate-0.15) > 1e-9 {
		t.Errorf("rate = %v, want 0.15", rec.Rate)
	}
}

func TestRecommendClampsToBounds(t *testing.T) {
	high := Recommend(assessment(domain.RiskCritical, 0.20), MarketSignals{
		CostTrendPct:           20,
		LaborAvailabilityScore: 90,
		MarketConditionScore:   90,
		RegionalAdjustment:     2.0,
	})
	if high.Rate != maxRate {
		t.Errorf("rate = %v, want cap %v", high.Rate, maxRate)
	}

	low := Recommend(assessment(domain.RiskLow, 0.05), MarketSignals{
		RegionalAdjustment: 0.1,
	})
	if low.Rate != minRate {
		t.Errorf("rate = %v, want floor %v", low.Rate, minRate)
	}
}

func TestRecommendNilAssessmentUsesDefaultBaseline(t *testing.T) {
	rec := Recommend(nil, MarketSignals{})

	if rec.BaselineRate != 0.10 {
		t.Errorf("baseline = %v, want medium default 0.10", rec.BaselineRate)
	}
}

func TestRecommendIsPure(t *testing.T) {
	a := assessment(domain.RiskHigh, 0.15)
	signals := MarketSignals{CostTrendPct: 8}

	first := Recommend(a, signals)
	second := Recommend(a, signals)

	if !reflect.DeepEqual(first, second) {
		t.Error("Recommend must be deterministic for identical inputs")
	}
	if a.ContingencyRate != 0.15 {
		t.Error("Recommend must not mutate the assessment")
	}
}
