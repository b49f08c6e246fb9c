// Package contingency merges the risk assessment's baseline contingency
// rate with market signals into one recommended rate. Pure functions only:
// no external state, no side effects.
package contingency

import (
	"fmt"
	"strings"

	"github.com/ArcadeBob/clean-glass-proposal-app-sub001/internal/domain"
)

// Recommended rate bounds.
const (
	minRate = 0.02
	maxRate = 0.30
)

// MarketSignals carries the market-side inputs to the recommendation.
type MarketSignals struct {
	// CostTrendPct is the recent cost/unit trend, percent per year.
	CostTrendPct float64

	// LaborAvailabilityScore: 0 = plentiful, 100 = none available.
	LaborAvailabilityScore float64

	// RegionalAdjustment scales the rate for regional volatility; 1.0 = none.
	RegionalAdjustment float64

	// MarketConditionScore: 0 = cold market, 100 = overheated.
	MarketConditionScore float64
}

// Recommend combines the risk baseline with market signals.
// The baseline rate comes from the assessment when present, otherwise a
// medium-risk default is assumed.
func Recommend(assessment *domain.RiskScoringResult, signals MarketSignals) domain.ContingencyRecommendation {
	baseline := 0.10
	if assessment != nil {
		baseline = assessment.ContingencyRate
	}

	rate := baseline
	var reasons []string
	var recs []string

	if signals.CostTrendPct > 10 {
		rate += 0.03
		reasons = append(reasons, fmt.Sprintf("steep cost trend (%.1f%%/yr) adds 3 points", signals.CostTrendPct))
		recs = append(recs, "Lock in material pricing early; costs are rising fast.")
	} else if signals.CostTrendPct > 5 {
		rate += 0.02
		reasons = append(reasons, fmt.Sprintf("rising costs (%.1f%%/yr) add 2 points", signals.CostTrendPct))
		recs = append(recs, "Consider escalation clauses for long lead times.")
	}

	if signals.LaborAvailabilityScore > 60 {
		rate += 0.01
		reasons = append(reasons, "tight glazier labor market adds 1 point")
		recs = append(recs, "Confirm crew availability before committing to the schedule.")
	}

	if signals.MarketConditionScore > 70 {
		// Overheated market: subcontractor quotes expire quickly.
		rate += 0.01
		reasons = append(reasons, "overheated market adds 1 point")
	}

	if signals.RegionalAdjustment > 0 && signals.RegionalAdjustment != 1 {
		rate *= signals.RegionalAdjustment
		reasons = append(reasons, fmt.Sprintf("regional volatility factor %.2f applied", signals.RegionalAdjustment))
	}

	clamped := rate
	if clamped < minRate {
		clamped = minRate
	}
	if clamped > maxRate {
		clamped = maxRate
	}

	if assessment != nil && assessment.RiskLevel == domain.RiskCritical {
		recs = append(recs, "Critical risk profile: hold the full contingency in reserve.")
	}
	if len(recs) == 0 {
		recs = append(recs, "Standard contingency reserve is adequate for this proposal.")
	}

	explanation := fmt.Sprintf("baseline %.0f%% from risk level", baseline*100)
	if len(reasons) > 0 {
		explanation += "; " + strings.Join(reasons, "; ")
	}
	if clamped != rate {
		explanation += fmt.Sprintf("; clamped to %.0f%%", clamped*100)
	}

	return domain.ContingencyRecommendation{
		Rate:            clamped,
		BaselineRate:    baseline,
		Recommendations: recs,
		Explanation:     explanation,
	}
}
