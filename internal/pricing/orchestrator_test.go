package pricing

import (
	"context"
	"math"
	"strings"
	"testing"

	"github.com/ArcadeBob/clean-glass-proposal-app-sub001/internal/domain"
	"github.com/ArcadeBob/clean-glass-proposal-app-sub001/internal/margin"
	"github.com/ArcadeBob/clean-glass-proposal-app-sub001/internal/market"
	"github.com/ArcadeBob/clean-glass-proposal-app-sub001/internal/overhead"
	"github.com/ArcadeBob/clean-glass-proposal-app-sub001/internal/risk"
)

func newTestOrchestrator(t *testing.T) *Orchestrator {
	t.Helper()
	engine, err := risk.NewAssessmentEngine(risk.DefaultCatalog())
	if err != nil {
		t.Fatalf("NewAssessmentEngine: %v", err)
	}
	return NewOrchestrator(
		engine,
		overhead.NewCalculator(overhead.DefaultTiers(), 0.15),
		margin.Config{MinMargin: 8, MaxMargin: 35},
		market.NewEngine(nil, nil),
		nil,
		NewAuditLog(100),
		nil,
	)
}

func floatPtr(v float64) *float64 { return &v }

func TestCalculateLegacyWorkedExample(t *testing.T) {
	o := newTestOrchestrator(t)

	result, err := o.Calculate(context.Background(), domain.CalculationInput{
		BaseCost:           1000,
		OverheadPercentage: 15,
		ProfitMargin:       20,
		RiskScore:          floatPtr(5),
	})
	if err != nil {
		t.Fatalf("Calculate: %v", err)
	}

	if result.CalculationMethod != domain.MethodLegacy {
		t.Errorf("method = %s, want legacy", result.CalculationMethod)
	}
	if result.OverheadAmount != 150 {
		t.Errorf("overhead = %v, want 150", result.OverheadAmount)
	}
	if result.ProfitAmount != 230 {
		t.Errorf("profit = %v, want 230", result.ProfitAmount)
	}
	if result.ContingencyAmount != 138 {
		t.Errorf("risk adjustment = %v, want 138", result.ContingencyAmount)
	}
	if result.TotalCost != 1518 {
		t.Errorf("total = %v, want 1518", result.TotalCost)
	}
	if result.WinProbability != 60 {
		t.Errorf("win probability = %v, want 60", result.WinProbability)
	}
	if result.RiskAssessment != nil {
		t.Errorf("legacy result should carry no risk assessment")
	}
	if result.IsSizeBasedOverhead || result.IsRiskAdjustedProfitMargin || result.IsConfidenceScored {
		t.Errorf("legacy result should have all enhancement flags off")
	}
}

func TestCalculateLegacyWinProbabilityFloor(t *testing.T) {
	o := newTestOrchestrator(t)

	result, err := o.Calculate(context.Background(), domain.CalculationInput{
		BaseCost:  1000,
		RiskScore: floatPtr(10),
	})
	if err != nil {
		t.Fatalf("Calculate: %v", err)
	}
	if result.WinProbability != 20 {
		t.Errorf("win probability = %v, want 20", result.WinProbability)
	}
}

func TestCalculateRejectsNegativeBaseCost(t *testing.T) {
	o := newTestOrchestrator(t)

	_, err := o.Calculate(context.Background(), domain.CalculationInput{BaseCost: -1})
	if err == nil {
		t.Fatal("expected error for negative base cost")
	}

	// The failed invocation still leaves an audit trail.
	entries := o.AuditLogs(domain.AuditLogFilter{IncludeErrors: true})
	if len(entries) != 1 || !entries[0].ErrorOccurred {
		t.Errorf("expected one error audit entry, got %+v", entries)
	}
	if got := o.AuditLogs(domain.AuditLogFilter{}); len(got) != 0 {
		t.Errorf("error entry leaked into default query: %+v", got)
	}
}

func enhancedInput() domain.CalculationInput {
	return domain.CalculationInput{
		BaseCost:             50000,
		OverheadPercentage:   15,
		ProfitMargin:         20,
		UseSizeBasedOverhead: true,
		SquareFootage:        12000,
		ProjectType:          "commercial",
		RiskFactorInputs: map[string]domain.FactorInput{
			"technical_complexity": {Value: "structural glazing"},
			"timeline_pressure":    {Value: 65.0},
			"client_history":       {Value: "unknown"},
		},
		ConfidenceFactors: domain.ConfidenceFactors{
			domain.ConfidenceDataCompleteness:  80,
			domain.ConfidenceMarketDataQuality: 60,
		},
	}
}

func TestCalculateEnhancedMode(t *testing.T) {
	o := newTestOrchestrator(t)

	result, err := o.Calculate(context.Background(), enhancedInput())
	if err != nil {
		t.Fatalf("Calculate: %v", err)
	}

	if result.CalculationMethod != domain.MethodEnhanced {
		t.Errorf("method = %s, want enhanced", result.CalculationMethod)
	}
	if result.RiskAssessment == nil {
		t.Fatal("enhanced result missing risk assessment")
	}
	if result.RiskAssessment.TotalRiskScore < 0 || result.RiskAssessment.TotalRiskScore > 100 {
		t.Errorf("total risk score %v out of [0,100]", result.RiskAssessment.TotalRiskScore)
	}
	if !result.IsSizeBasedOverhead {
		t.Error("size-based overhead flag not set")
	}
	if result.OverheadCalculationMethod != domain.OverheadMethodTiered {
		t.Errorf("overhead method = %s, want tiered", result.OverheadCalculationMethod)
	}
	if !result.IsRiskAdjustedProfitMargin {
		t.Error("risk-adjusted margin flag not set")
	}
	if !result.IsConfidenceScored || result.ConfidenceAssessment == nil || result.UncertaintyRange == nil {
		t.Error("confidence scoring incomplete")
	}
	if result.AppliedProfitMargin < 8 || result.AppliedProfitMargin > 35 {
		t.Errorf("applied margin %v out of configured bounds", result.AppliedProfitMargin)
	}
	if result.ContingencyRate < 0.02 || result.ContingencyRate > 0.30 {
		t.Errorf("contingency rate %v out of [0.02,0.30]", result.ContingencyRate)
	}
	if result.WinProbability < 5 || result.WinProbability > 95 {
		t.Errorf("win probability %v out of [5,95]", result.WinProbability)
	}

	// Component sum identity.
	sum := result.BaseCost + result.OverheadAmount + result.ProfitAmount + result.ContingencyAmount
	if math.Abs(result.TotalCost-sum) > 0.011 {
		t.Errorf("total %v does not equal component sum %v", result.TotalCost, sum)
	}
	if result.CostPerSquareFoot <= 0 {
		t.Errorf("cost per square foot = %v, want positive", result.CostPerSquareFoot)
	}
	if result.ExecutionMs <= 0 {
		t.Errorf("execution time = %v, want strictly positive", result.ExecutionMs)
	}
	if result.CalculationID == "" {
		t.Error("missing calculation id")
	}
}

func TestCalculateSequenceOrder(t *testing.T) {
	o := newTestOrchestrator(t)

	result, err := o.Calculate(context.Background(), enhancedInput())
	if err != nil {
		t.Fatalf("Calculate: %v", err)
	}

	want := []string{
		domain.StageValidation,
		domain.StageRiskAssess,
		domain.StageOverhead,
		domain.StageProfitMargin,
		domain.StageMarket,
		domain.StageContingency,
		domain.StageConfidence,
	}
	if len(result.CalculationSequence) != len(want) {
		t.Fatalf("sequence has %d stages, want %d", len(result.CalculationSequence), len(want))
	}
	for i, stage := range result.CalculationSequence {
		if stage.Stage != want[i] {
			t.Errorf("stage[%d] = %s, want %s", i, stage.Stage, want[i])
		}
		if stage.Timestamp.IsZero() {
			t.Errorf("stage[%d] has zero timestamp", i)
		}
	}
}

func TestCalculateLegacySequence(t *testing.T) {
	o := newTestOrchestrator(t)

	result, err := o.Calculate(context.Background(), domain.CalculationInput{BaseCost: 100})
	if err != nil {
		t.Fatalf("Calculate: %v", err)
	}
	if len(result.CalculationSequence) != 2 ||
		result.CalculationSequence[0].Stage != domain.StageValidation ||
		result.CalculationSequence[1].Stage != domain.StageLegacyPricing {
		t.Errorf("legacy sequence = %+v", result.CalculationSequence)
	}
}

func TestCalculateCatalogUnavailableFallback(t *testing.T) {
	// No assessment engine at all: risk-dependent stages fall back to the
	// legacy scalar while the calculation stays enhanced.
	o := NewOrchestrator(
		nil,
		overhead.NewCalculator(overhead.DefaultTiers(), 0.15),
		margin.Config{MinMargin: 8, MaxMargin: 35},
		market.NewEngine(nil, nil),
		nil,
		NewAuditLog(100),
		nil,
	)

	input := enhancedInput()
	input.RiskScore = floatPtr(5)
	result, err := o.Calculate(context.Background(), input)
	if err != nil {
		t.Fatalf("Calculate: %v", err)
	}

	if result.CalculationMethod != domain.MethodEnhanced {
		t.Errorf("method = %s, want enhanced despite fallback", result.CalculationMethod)
	}
	if result.RiskAssessment != nil {
		t.Error("fallback result should carry no risk assessment")
	}
	if result.IsRiskAdjustedProfitMargin {
		t.Error("margin should not be flagged risk-adjusted under fallback")
	}
	if math.Abs(result.ContingencyRate-0.10) > 1e-9 {
		t.Errorf("fallback contingency rate = %v, want 5*0.02", result.ContingencyRate)
	}

	found := false
	for _, w := range result.Warnings {
		if strings.Contains(w, "risk assessment unavailable") {
			found = true
		}
	}
	if !found {
		t.Errorf("missing fallback warning, got %v", result.Warnings)
	}

	entries := o.AuditLogs(domain.AuditLogFilter{})
	if len(entries) != 1 || !entries[0].FallbackUsed || entries[0].RiskAssessmentUsed {
		t.Errorf("audit entry should record fallback: %+v", entries)
	}
}

func TestCalculateClampsPercentages(t *testing.T) {
	o := newTestOrchestrator(t)

	result, err := o.Calculate(context.Background(), domain.CalculationInput{
		BaseCost:           1000,
		OverheadPercentage: 150,
		ProfitMargin:       -5,
	})
	if err != nil {
		t.Fatalf("Calculate: %v", err)
	}
	if result.OverheadAmount != 1000 {
		t.Errorf("overhead = %v, want clamp to 100%%", result.OverheadAmount)
	}
	if result.ProfitAmount != 0 {
		t.Errorf("profit = %v, want clamp to 0%%", result.ProfitAmount)
	}
	if len(result.Warnings) < 2 {
		t.Errorf("expected clamp warnings, got %v", result.Warnings)
	}
}

func TestCalculateAuditEntryPerInvocation(t *testing.T) {
	o := newTestOrchestrator(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := o.Calculate(ctx, domain.CalculationInput{BaseCost: 100}); err != nil {
			t.Fatalf("Calculate: %v", err)
		}
	}
	if _, err := o.Calculate(ctx, enhancedInput()); err != nil {
		t.Fatalf("Calculate: %v", err)
	}

	stats := o.Statistics()
	if stats.TotalCalculations != 4 {
		t.Errorf("total calculations = %d, want 4", stats.TotalCalculations)
	}
	if math.Abs(stats.RiskAssessmentUsageRate-0.25) > 1e-9 {
		t.Errorf("risk usage rate = %v, want 0.25", stats.RiskAssessmentUsageRate)
	}
	if stats.AverageExecutionMs <= 0 {
		t.Errorf("average execution = %v, want positive", stats.AverageExecutionMs)
	}

	o.ClearAuditLogs()
	if o.Statistics().TotalCalculations != 0 {
		t.Error("statistics not reset after clear")
	}
}

func TestCalculateResultIDMatchesAuditEntry(t *testing.T) {
	o := newTestOrchestrator(t)

	result, err := o.Calculate(context.Background(), domain.CalculationInput{BaseCost: 100})
	if err != nil {
		t.Fatalf("Calculate: %v", err)
	}
	entries := o.AuditLogs(domain.AuditLogFilter{})
	if len(entries) != 1 {
		t.Fatalf("got %d audit entries, want 1", len(entries))
	}
	if entries[0].CalculationID != result.CalculationID {
		t.Errorf("audit id %s != result id %s", entries[0].CalculationID, result.CalculationID)
	}
	if entries[0].ExecutionMs != result.ExecutionMs {
		t.Errorf("audit execution %v != result execution %v", entries[0].ExecutionMs, result.ExecutionMs)
	}
}
