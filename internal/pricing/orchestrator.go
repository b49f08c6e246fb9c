// Package pricing sequences the enhanced proposal pricing pipeline:
// risk assessment, size-based overhead, risk-adjusted margin, market
// analysis, contingency recommendation, and confidence scoring, with
// per-stage degradation and an audit trail.
package pricing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/ArcadeBob/clean-glass-proposal-app-sub001/internal/confidence"
	"github.com/ArcadeBob/clean-glass-proposal-app-sub001/internal/contingency"
	"github.com/ArcadeBob/clean-glass-proposal-app-sub001/internal/domain"
	"github.com/ArcadeBob/clean-glass-proposal-app-sub001/internal/margin"
	"github.com/ArcadeBob/clean-glass-proposal-app-sub001/internal/market"
	"github.com/ArcadeBob/clean-glass-proposal-app-sub001/internal/overhead"
	"github.com/ArcadeBob/clean-glass-proposal-app-sub001/internal/risk"
)

var tracer = otel.Tracer("glasspricer-pricing")

// ErrInvalidBaseCost is the only failure allowed to cross the orchestrator
// boundary; everything else degrades to warnings.
var ErrInvalidBaseCost = errors.New("baseCost must be present and non-negative")

// legacyRiskPointRate is the per-point rate the legacy path applies to the
// post-overhead/profit cost.
const legacyRiskPointRate = 0.02

// Orchestrator composes the pricing sub-engines. Failures inside any
// sub-engine are isolated to that stage: the result is always complete,
// with warnings and defaulted sub-results where stages degraded.
type Orchestrator struct {
	assess     *risk.AssessmentEngine
	overhead   *overhead.Calculator
	marginCfg  margin.Config
	market     *market.Engine
	confidence *confidence.Scorer
	auditLog   *AuditLog
	bus        domain.EventBus
}

// NewOrchestrator wires the pipeline. A nil audit log falls back to the
// shared DefaultAuditLog; the bus is optional.
func NewOrchestrator(
	assess *risk.AssessmentEngine,
	overheadCalc *overhead.Calculator,
	marginCfg margin.Config,
	marketEngine *market.Engine,
	confidenceScorer *confidence.Scorer,
	auditLog *AuditLog,
	bus domain.EventBus,
) *Orchestrator {
	if auditLog == nil {
		auditLog = DefaultAuditLog
	}
	if confidenceScorer == nil {
		confidenceScorer = confidence.NewScorer()
	}
	return &Orchestrator{
		assess:     assess,
		overhead:   overheadCalc,
		marginCfg:  marginCfg,
		market:     marketEngine,
		confidence: confidenceScorer,
		auditLog:   auditLog,
		bus:        bus,
	}
}

// Calculate prices one proposal. Enhanced mode applies whenever any risk
// factor inputs are supplied; legacy mode applies only when none are.
// Exactly one audit entry is appended per invocation, error or not.
func (o *Orchestrator) Calculate(ctx context.Context, input domain.CalculationInput) (*domain.EnhancedCalculationResult, error) {
	start := time.Now()

	ctx, span := tracer.Start(ctx, "pricing.calculate")
	defer span.End()

	result := &domain.EnhancedCalculationResult{
		CalculationID: uuid.New().String(),
		BaseCost:      input.BaseCost,
		Timestamp:     start.UTC(),
	}
	span.SetAttributes(attribute.String("calculation.id", result.CalculationID))

	stage := func(name string) {
		result.CalculationSequence = append(result.CalculationSequence, domain.CalculationStage{
			Stage:     name,
			Timestamp: time.Now().UTC(),
		})
	}
	warn := func(format string, args ...any) {
		result.Warnings = append(result.Warnings, fmt.Sprintf(format, args...))
	}

	// The calculation sequence always begins with validation.
	stage(domain.StageValidation)
	if input.BaseCost < 0 {
		result.ExecutionMs = executionMs(start)
		o.finish(ctx, &input, result, false, false, true)
		return nil, fmt.Errorf("%w: got %v", ErrInvalidBaseCost, input.BaseCost)
	}
	if input.OverheadPercentage < 0 || input.OverheadPercentage > 100 {
		warn("overheadPercentage %.2f out of [0,100], clamped", input.OverheadPercentage)
		input.OverheadPercentage = clamp(input.OverheadPercentage, 0, 100)
	}
	if input.ProfitMargin < 0 || input.ProfitMargin > 100 {
		warn("profitMargin %.2f out of [0,100], clamped", input.ProfitMargin)
		input.ProfitMargin = clamp(input.ProfitMargin, 0, 100)
	}

	if len(input.RiskFactorInputs) == 0 {
		o.calculateLegacy(&input, result, stage, warn)
		result.ExecutionMs = executionMs(start)
		o.finish(ctx, &input, result, false, false, false)
		return result, nil
	}

	fallbackUsed := o.calculateEnhanced(ctx, &input, result, stage, warn)
	result.ExecutionMs = executionMs(start)
	o.finish(ctx, &input, result, result.RiskAssessment != nil, fallbackUsed, false)
	return result, nil
}

// calculateEnhanced runs the full pipeline. Returns whether the legacy
// fallback was applied for the risk-dependent stages.
func (o *Orchestrator) calculateEnhanced(ctx context.Context, input *domain.CalculationInput, result *domain.EnhancedCalculationResult, stage func(string), warn func(string, ...any)) bool {
	result.CalculationMethod = domain.MethodEnhanced
	fallbackUsed := false

	// Risk assessment. A nil result means the catalog collaborator was
	// unavailable; the risk-dependent stages then use the legacy scalar.
	stage(domain.StageRiskAssess)
	var assessment *domain.RiskScoringResult
	if o.assess != nil {
		assessment = o.assess.Assess(ctx, input.RiskFactorInputs)
	}
	if assessment != nil {
		result.RiskAssessment = assessment
		result.Warnings = append(result.Warnings, assessment.Warnings...)
	} else {
		fallbackUsed = true
		warn("risk assessment unavailable, falling back to legacy risk scoring")
	}

	// Overhead.
	stage(domain.StageOverhead)
	if input.UseSizeBasedOverhead && o.overhead != nil {
		rate := o.overhead.Rate(input.SquareFootage, input.UseSmoothScaling)
		result.OverheadAmount = roundCents(input.BaseCost * rate.Rate)
		result.IsSizeBasedOverhead = true
		result.OverheadCalculationMethod = rate.Method
	} else {
		if input.UseSizeBasedOverhead {
			warn("size-based overhead requested but no tier configuration is available")
		}
		result.OverheadAmount = roundCents(input.BaseCost * input.OverheadPercentage / 100)
		result.OverheadCalculationMethod = domain.OverheadMethodPercentage
	}
	costWithOverhead := input.BaseCost + result.OverheadAmount

	// Profit margin.
	stage(domain.StageProfitMargin)
	marginCfg := o.marginCfg
	marginCfg.BaseMargin = input.ProfitMargin
	marginResult := margin.Calculate(marginCfg, assessment)
	result.Warnings = append(result.Warnings, marginResult.Warnings...)
	result.AppliedProfitMargin = marginResult.AdjustedMargin
	result.IsRiskAdjustedProfitMargin = assessment != nil
	result.ProfitAmount = roundCents(costWithOverhead * marginResult.AdjustedMargin / 100)
	costWithProfit := costWithOverhead + result.ProfitAmount

	// Market analysis.
	stage(domain.StageMarket)
	riskScore := o.effectiveRiskScore(assessment, input)
	var benchmark *domain.MarketBenchmark
	if o.market != nil && input.Region != "" {
		costPerUnit := 0.0
		if input.SquareFootage > 0 {
			costPerUnit = costWithProfit / input.SquareFootage
		}
		b, err := o.market.Benchmark(ctx, costPerUnit, domain.MarketDataFilter{
			Region:      input.Region,
			ProjectType: input.ProjectType,
		})
		if err != nil {
			warn("market benchmark unavailable: %v", err)
		} else {
			benchmark = b
			result.MarketBenchmark = b
		}
	}
	if o.market != nil {
		winProb, warnings := o.market.WinProbability(benchmark, riskScore)
		result.Warnings = append(result.Warnings, warnings...)
		result.WinProbability = winProb
	} else {
		result.WinProbability = 50
		warn("market engine not configured, using default win probability")
	}

	// Contingency recommendation.
	stage(domain.StageContingency)
	if assessment == nil && input.RiskScore != nil {
		// Legacy scalar fallback for the risk-dependent contingency.
		rs := clamp(*input.RiskScore, 0, 10)
		result.ContingencyRate = rs * legacyRiskPointRate
		result.ContingencyAmount = roundCents(costWithProfit * result.ContingencyRate)
	} else {
		rec := contingency.Recommend(assessment, o.marketSignals(assessment, benchmark))
		result.ContingencyRate = rec.Rate
		result.ContingencyAmount = roundCents(costWithProfit * rec.Rate)
	}

	result.TotalCost = roundCents(costWithProfit + result.ContingencyAmount)
	if input.SquareFootage > 0 {
		result.CostPerSquareFoot = roundCents(result.TotalCost / input.SquareFootage)
	}

	// Confidence scoring.
	stage(domain.StageConfidence)
	if len(input.ConfidenceFactors) > 0 {
		assessmentC := o.confidence.Score(input.ConfidenceFactors)
		result.Warnings = append(result.Warnings, assessmentC.Warnings...)
		result.IsConfidenceScored = true
		result.ConfidenceAssessment = &assessmentC
		r := o.confidence.Range(result.TotalCost, assessmentC)
		result.UncertaintyRange = &r
	}

	return fallbackUsed
}

// calculateLegacy applies the single-scalar risk path: size-based overhead,
// margin blending, and confidence scoring are skipped entirely.
func (o *Orchestrator) calculateLegacy(input *domain.CalculationInput, result *domain.EnhancedCalculationResult, stage func(string), warn func(string, ...any)) {
	result.CalculationMethod = domain.MethodLegacy

	stage(domain.StageLegacyPricing)

	riskScore := 0.0
	if input.RiskScore != nil {
		riskScore = *input.RiskScore
		if riskScore < 0 || riskScore > 10 {
			warn("legacy riskScore %.2f out of [0,10], clamped", riskScore)
			riskScore = clamp(riskScore, 0, 10)
		}
	}

	result.OverheadAmount = roundCents(input.BaseCost * input.OverheadPercentage / 100)
	result.OverheadCalculationMethod = domain.OverheadMethodPercentage
	costWithOverhead := input.BaseCost + result.OverheadAmount

	result.AppliedProfitMargin = input.ProfitMargin
	result.ProfitAmount = roundCents(costWithOverhead * input.ProfitMargin / 100)
	costWithProfit := costWithOverhead + result.ProfitAmount

	result.ContingencyRate = riskScore * legacyRiskPointRate
	result.ContingencyAmount = roundCents(costWithProfit * result.ContingencyRate)
	result.TotalCost = roundCents(costWithProfit + result.ContingencyAmount)

	result.WinProbability = math.Max(10, 100-riskScore*8)
	if input.SquareFootage > 0 {
		result.CostPerSquareFoot = roundCents(result.TotalCost / input.SquareFootage)
	}
}

// effectiveRiskScore maps whatever risk signal exists onto the 0-100 scale.
func (o *Orchestrator) effectiveRiskScore(assessment *domain.RiskScoringResult, input *domain.CalculationInput) float64 {
	if assessment != nil {
		return assessment.TotalRiskScore
	}
	if input.RiskScore != nil {
		return clamp(*input.RiskScore, 0, 10) * 10
	}
	return 50
}

// marketSignals derives contingency inputs from the assessment and benchmark.
func (o *Orchestrator) marketSignals(assessment *domain.RiskScoringResult, benchmark *domain.MarketBenchmark) contingency.MarketSignals {
	signals := contingency.MarketSignals{RegionalAdjustment: 1}
	if assessment != nil {
		for _, fs := range assessment.FactorScores {
			switch fs.FactorName {
			case "market_conditions":
				signals.MarketConditionScore = fs.CalculatedScore
			case "labor_availability":
				signals.LaborAvailabilityScore = fs.CalculatedScore
			}
		}
	}
	if benchmark != nil && benchmark.SampleSize > 0 {
		signals.CostTrendPct = benchmark.VarianceFromAverage / 2
	}
	return signals
}

// finish stamps the audit entry and publishes the completion event.
func (o *Orchestrator) finish(ctx context.Context, input *domain.CalculationInput, result *domain.EnhancedCalculationResult, riskUsed, fallbackUsed, errored bool) {
	o.auditLog.Append(domain.CalculationAuditLogEntry{
		CalculationID:      result.CalculationID,
		RiskAssessmentUsed: riskUsed,
		FallbackUsed:       fallbackUsed,
		ExecutionMs:        result.ExecutionMs,
		Timestamp:          time.Now().UTC(),
		ErrorOccurred:      errored,
	})

	if errored || o.bus == nil {
		return
	}

	record := domain.CalculationRecord{
		ID:                result.CalculationID,
		ProjectType:       input.ProjectType,
		Region:            input.Region,
		BaseCost:          result.BaseCost,
		TotalCost:         result.TotalCost,
		Method:            result.CalculationMethod,
		WinProbability:    result.WinProbability,
		CostPerSquareFoot: result.CostPerSquareFoot,
		Status:            domain.ProposalPending,
		CreatedAt:         result.Timestamp,
	}
	if result.RiskAssessment != nil {
		record.RiskLevel = result.RiskAssessment.RiskLevel
	}

	payload, err := json.Marshal(record)
	if err != nil {
		slog.Debug("failed to marshal calculation record", "error", err)
		return
	}
	if err := o.bus.Publish(ctx, domain.TopicCalculationCompleted, payload); err != nil {
		slog.Debug("failed to publish calculation completed event",
			"calculation_id", result.CalculationID,
			"error", err,
		)
	}
}

// AuditLogs returns audit entries, newest first.
func (o *Orchestrator) AuditLogs(filter domain.AuditLogFilter) []domain.CalculationAuditLogEntry {
	return o.auditLog.Query(filter)
}

// Statistics aggregates the audit log since the last clear.
func (o *Orchestrator) Statistics() domain.CalculationStatistics {
	return o.auditLog.Stats()
}

// ClearAuditLogs drops all audit entries and counters.
func (o *Orchestrator) ClearAuditLogs() {
	o.auditLog.Clear()
}

// executionMs measures elapsed wall clock with microsecond resolution,
// strictly positive even for degenerate timer reads.
func executionMs(start time.Time) float64 {
	ms := float64(time.Since(start).Nanoseconds()) / 1e6
	if ms <= 0 {
		ms = 0.001
	}
	return ms
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}
