package risk

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/ArcadeBob/clean-glass-proposal-app-sub001/internal/domain"
)

// Risk level thresholds over the total risk score. Bands are monotonic:
// scores below each threshold take the corresponding level, everything
// at or above the last threshold is CRITICAL.
const (
	thresholdMedium   = 25.0
	thresholdHigh     = 50.0
	thresholdCritical = 75.0
)

// baselineContingency maps a risk level to its baseline contingency rate.
var baselineContingency = map[domain.RiskLevel]float64{
	domain.RiskLow:      0.05,
	domain.RiskMedium:   0.10,
	domain.RiskHigh:     0.15,
	domain.RiskCritical: 0.20,
}

// AssessmentEngine aggregates factor scores into category and overall
// risk scores. Factors without input are excluded from their category
// average, not zero-filled.
type AssessmentEngine struct {
	catalog domain.RiskFactorCatalog
	scorer  *Scorer
}

// NewAssessmentEngine creates an assessment engine backed by a factor catalog.
func NewAssessmentEngine(catalog domain.RiskFactorCatalog) (*AssessmentEngine, error) {
	scorer, err := NewScorer()
	if err != nil {
		return nil, err
	}
	return &AssessmentEngine{catalog: catalog, scorer: scorer}, nil
}

// Assess scores the supplied factor inputs against the catalog.
// If the catalog collaborator is entirely unavailable it returns nil with
// no error so the orchestrator can fall back; individual factor problems
// become warnings on the result, never failures.
func (e *AssessmentEngine) Assess(ctx context.Context, inputs map[string]domain.FactorInput) *domain.RiskScoringResult {
	if e.catalog == nil {
		return nil
	}

	categories, err := e.catalog.ListCategories(ctx)
	if err != nil || len(categories) == 0 {
		slog.Warn("risk factor catalog unavailable", "error", err)
		return nil
	}

	result := &domain.RiskScoringResult{
		Timestamp: time.Now().UTC(),
	}

	// Score every supplied input against its catalog definition.
	scoresByCategory := make(map[string][]domain.FactorScore)
	for _, name := range sortedKeys(inputs) {
		input := inputs[name]

		factor, err := e.catalog.GetFactor(ctx, name)
		if err != nil || factor == nil {
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("unknown risk factor %q, skipped", name))
			continue
		}

		score, warnings, err := e.scorer.Score(factor, input)
		if err != nil {
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("factor %q could not be scored: %v", name, err))
			continue
		}
		result.Warnings = append(result.Warnings, warnings...)

		fs := domain.FactorScore{
			FactorName:      factor.Name,
			CategoryName:    factor.Category,
			Weight:          factor.Weight,
			InputValue:      input.Value,
			CalculatedScore: score,
			WeightedScore:   score * factor.Weight / 100,
			ScoringType:     factor.ScoringType,
			DataType:        factor.DataType,
		}
		result.FactorScores = append(result.FactorScores, fs)
		scoresByCategory[factor.Category] = append(scoresByCategory[factor.Category], fs)
		result.FactorsProcessed++
	}

	// Aggregate category scores, then the weighted total over categories
	// that actually produced a score.
	var totalWeighted, totalWeight float64
	var catalogFactorCount int
	for _, category := range categories {
		catalogFactorCount += len(category.Factors)

		scores := scoresByCategory[category.Name]
		if len(scores) == 0 {
			continue
		}

		var weighted, weight float64
		for _, fs := range scores {
			weighted += fs.WeightedScore
			weight += fs.Weight / 100
		}
		if weight == 0 {
			continue
		}
		catScore := weighted / weight

		result.CategoryScores = append(result.CategoryScores, domain.CategoryScore{
			CategoryName:  category.Name,
			Weight:        category.Weight,
			Score:         catScore,
			FactorsScored: len(scores),
		})

		totalWeighted += catScore * category.Weight
		totalWeight += category.Weight
	}

	if totalWeight > 0 {
		result.TotalRiskScore = totalWeighted / totalWeight
	}

	result.RiskLevel = LevelForScore(result.TotalRiskScore)
	result.ContingencyRate = baselineContingency[result.RiskLevel]

	if catalogFactorCount > 0 {
		result.Confidence = float64(result.FactorsProcessed) / float64(catalogFactorCount)
		if result.Confidence > 1 {
			result.Confidence = 1
		}
	}

	result.Recommendations = e.recommendations(result)

	return result
}

// LevelForScore maps a 0-100 total risk score to its level band.
func LevelForScore(score float64) domain.RiskLevel {
	switch {
	case score < thresholdMedium:
		return domain.RiskLow
	case score < thresholdHigh:
		return domain.RiskMedium
	case score < thresholdCritical:
		return domain.RiskHigh
	default:
		return domain.RiskCritical
	}
}

func (e *AssessmentEngine) recommendations(result *domain.RiskScoringResult) []string {
	var recs []string

	switch result.RiskLevel {
	case domain.RiskLow:
		recs = append(recs, "Risk profile is low; standard terms apply.")
	case domain.RiskMedium:
		recs = append(recs, "Moderate risk; review contract terms before submission.")
	case domain.RiskHigh:
		recs = append(recs, "High risk; require milestone payments and schedule buffers.")
	case domain.RiskCritical:
		recs = append(recs, "Critical risk; escalate for management review before bidding.")
	}

	for _, fs := range result.FactorScores {
		if fs.CalculatedScore > 70 {
			recs = append(recs,
				fmt.Sprintf("Mitigate %s (score %.0f) before committing to price.", fs.FactorName, fs.CalculatedScore))
		}
	}

	return recs
}

func sortedKeys(m map[string]domain.FactorInput) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
