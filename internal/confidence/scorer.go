// Package confidence aggregates confidence inputs into a score and a
// price uncertainty band.
package confidence

import (
	"fmt"
	"math"
	"sort"

	"github.com/ArcadeBob/clean-glass-proposal-app-sub001/internal/domain"
)

// Uncertainty band bounds. Full confidence narrows the ± band to minPct,
// no usable confidence widens it to maxPct.
const (
	minUncertaintyPct = 5.0
	maxUncertaintyPct = 30.0
)

// Scorer aggregates sparse confidence factor inputs.
type Scorer struct{}

// NewScorer creates a confidence scorer.
func NewScorer() *Scorer {
	return &Scorer{}
}

// Score averages the supplied factors only; missing factors are excluded,
// not defaulted to zero. Out-of-range inputs clamp with a warning rather
// than reject. With no usable inputs the assessment carries the maximal
// uncertainty default so the band is always defined.
func (s *Scorer) Score(factors domain.ConfidenceFactors) domain.ConfidenceAssessment {
	assessment := domain.ConfidenceAssessment{
		UncertaintyPct: maxUncertaintyPct,
	}

	if len(factors) == 0 {
		return assessment
	}

	names := make([]string, 0, len(factors))
	for name := range factors {
		names = append(names, name)
	}
	sort.Strings(names)

	var sum float64
	for _, name := range names {
		value := factors[name]
		if value < 0 {
			assessment.Warnings = append(assessment.Warnings,
				fmt.Sprintf("confidence factor %q value %.2f clamped to 0", name, value))
			value = 0
		}
		if value > 100 {
			assessment.Warnings = append(assessment.Warnings,
				fmt.Sprintf("confidence factor %q value %.2f clamped to 100", name, value))
			value = 100
		}
		sum += value
		assessment.FactorsUsed++
	}

	assessment.Score = sum / float64(assessment.FactorsUsed)
	assessment.UncertaintyPct = uncertaintyFor(assessment.Score)

	return assessment
}

// Range builds the ± band around a total price. Lower confidence means a
// wider band; the range is always defined.
func (s *Scorer) Range(totalCost float64, assessment domain.ConfidenceAssessment) domain.UncertaintyRange {
	pct := assessment.UncertaintyPct
	if pct <= 0 {
		pct = maxUncertaintyPct
	}
	delta := totalCost * pct / 100
	return domain.UncertaintyRange{
		Low:  roundCents(totalCost - delta),
		High: roundCents(totalCost + delta),
		Pct:  pct,
	}
}

// uncertaintyFor maps a 0-100 confidence score to the band half-width.
func uncertaintyFor(score float64) float64 {
	return maxUncertaintyPct - score/100*(maxUncertaintyPct-minUncertaintyPct)
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}
