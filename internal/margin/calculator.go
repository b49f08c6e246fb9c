// Package margin blends a base profit margin with the risk assessment
// outcome: a risk-level multiplier plus additive secondary adjustments
// keyed to individual factor scores.
package margin

import (
	"fmt"

	"github.com/ArcadeBob/clean-glass-proposal-app-sub001/internal/domain"
)

// Config holds the margin calculation parameters. All values are percent.
type Config struct {
	BaseMargin float64 `json:"baseMargin"`
	MinMargin  float64 `json:"minMargin"`
	MaxMargin  float64 `json:"maxMargin"`

	// Multipliers override the default risk-level multipliers when non-nil.
	Multipliers map[domain.RiskLevel]float64 `json:"multipliers,omitempty"`
}

// defaultMultipliers scale the base margin by risk level.
var defaultMultipliers = map[domain.RiskLevel]float64{
	domain.RiskLow:      0.8,
	domain.RiskMedium:   1.0,
	domain.RiskHigh:     1.3,
	domain.RiskCritical: 1.6,
}

// secondaryTrigger adds a fraction of the base margin when a named factor
// scores above its threshold. Triggers are additive and order-independent.
type secondaryTrigger struct {
	factor    string
	threshold float64
	fraction  float64 // of base margin
}

var secondaryTriggers = []secondaryTrigger{
	{"technical_complexity", 70, 0.15},
	{"timeline_pressure", 60, 0.20},
	{"client_history", 50, 0.10},
	{"market_conditions", 65, 0.05},
}

// Adjustment records one applied secondary trigger.
type Adjustment struct {
	Factor      string  `json:"factor"`
	FactorScore float64 `json:"factorScore"`
	Amount      float64 `json:"amount"` // percentage points added
}

// Result is the outcome of a margin calculation.
type Result struct {
	AdjustedMargin float64      `json:"adjustedMargin"` // percent, within [min,max]
	BaseMargin     float64      `json:"baseMargin"`
	Multiplier     float64      `json:"multiplier"`
	Adjustments    []Adjustment `json:"adjustments,omitempty"`
	Clamped        bool         `json:"clamped"`
	Warnings       []string     `json:"warnings,omitempty"`
}

// Calculate blends the base margin with the risk assessment. A nil
// assessment applies no risk adjustment but still clamps to the bounds.
// Clamping always emits a warning naming the bound that was hit.
func Calculate(cfg Config, assessment *domain.RiskScoringResult) Result {
	result := Result{
		BaseMargin: cfg.BaseMargin,
		Multiplier: 1.0,
	}

	adjusted := cfg.BaseMargin

	if assessment != nil {
		result.Multiplier = multiplierFor(cfg, assessment.RiskLevel)
		adjusted = cfg.BaseMargin * result.Multiplier

		for _, trigger := range secondaryTriggers {
			score, ok := factorScore(assessment, trigger.factor)
			if !ok || score <= trigger.threshold {
				continue
			}
			amount := cfg.BaseMargin * trigger.fraction
			adjusted += amount
			result.Adjustments = append(result.Adjustments, Adjustment{
				Factor:      trigger.factor,
				FactorScore: score,
				Amount:      amount,
			})
		}
	}

	if adjusted < cfg.MinMargin {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("adjusted margin %.2f%% clamped to minimum %.2f%%", adjusted, cfg.MinMargin))
		adjusted = cfg.MinMargin
		result.Clamped = true
	}
	if adjusted > cfg.MaxMargin {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("adjusted margin %.2f%% clamped to maximum %.2f%%", adjusted, cfg.MaxMargin))
		adjusted = cfg.MaxMargin
		result.Clamped = true
	}

	result.AdjustedMargin = adjusted
	return result
}

// Validate checks a margin configuration and returns structured errors
// rather than failing; an empty slice means the configuration is valid.
func Validate(cfg Config) []string {
	var errs []string

	if cfg.BaseMargin < 0 || cfg.BaseMargin > 100 {
		errs = append(errs, fmt.Sprintf("baseMargin %.2f must be within [0,100]", cfg.BaseMargin))
	}
	if cfg.MinMargin >= cfg.MaxMargin {
		errs = append(errs, fmt.Sprintf("minMargin %.2f must be less than maxMargin %.2f", cfg.MinMargin, cfg.MaxMargin))
	}
	if cfg.BaseMargin < cfg.MinMargin || cfg.BaseMargin > cfg.MaxMargin {
		errs = append(errs, fmt.Sprintf("baseMargin %.2f must lie within [%.2f,%.2f]", cfg.BaseMargin, cfg.MinMargin, cfg.MaxMargin))
	}
	for level, m := range cfg.Multipliers {
		if m <= 0 {
			errs = append(errs, fmt.Sprintf("multiplier for %s must be positive, got %.2f", level, m))
		}
	}

	return errs
}

func multiplierFor(cfg Config, level domain.RiskLevel) float64 {
	if cfg.Multipliers != nil {
		if m, ok := cfg.Multipliers[level]; ok {
			return m
		}
	}
	if m, ok := defaultMultipliers[level]; ok {
		return m
	}
	return 1.0
}

func factorScore(assessment *domain.RiskScoringResult, name string) (float64, bool) {
	for _, fs := range assessment.FactorScores {
		if fs.FactorName == name {
			return fs.CalculatedScore, true
		}
	}
	return 0, false
}
