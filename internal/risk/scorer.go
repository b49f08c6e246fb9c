// Package risk provides the CEL-Go based risk factor scoring engine
// and the weighted risk assessment built on top of it.
package risk

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"

	"github.com/ArcadeBob/clean-glass-proposal-app-sub001/internal/domain"
)

// neutralScore is used when a categorical value cannot be matched.
const neutralScore = 50.0

// Scorer converts one raw factor input into a normalized 0-100 score.
// Declarative formulas are compiled once into a restricted CEL environment
// (value/min/max/default plus a pow function) and cached by factor name.
type Scorer struct {
	mu       sync.RWMutex
	env      *cel.Env
	programs map[string]cel.Program
}

// NewScorer creates a new factor scorer.
func NewScorer() (*Scorer, error) {
	env, err := cel.NewEnv(
		cel.Variable("value", cel.DoubleType),
		cel.Variable("min", cel.DoubleType),
		cel.Variable("max", cel.DoubleType),
		cel.Variable("default", cel.DoubleType),
		cel.Function("pow",
			cel.Overload("pow_double_double",
				[]*cel.Type{cel.DoubleType, cel.DoubleType}, cel.DoubleType,
				cel.BinaryBinding(func(lhs, rhs ref.Val) ref.Val {
					x, ok := lhs.(types.Double)
					if !ok {
						return types.NewErr("pow: base must be double")
					}
					y, ok := rhs.(types.Double)
					if !ok {
						return types.NewErr("pow: exponent must be double")
					}
					return types.Double(math.Pow(float64(x), float64(y)))
				}),
			),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}

	return &Scorer{
		env:      env,
		programs: make(map[string]cel.Program),
	}, nil
}

// Score computes the 0-100 score for one factor input. Unmatched or missing
// values degrade to a fallback score with a warning; the only hard error is
// a formula that fails to compile, which is a configuration defect.
func (s *Scorer) Score(factor *domain.RiskFactor, input domain.FactorInput) (float64, []string, error) {
	switch factor.ScoringType {
	case domain.ScoringCategorical:
		score, warnings := s.scoreCategorical(factor, input)
		return score, warnings, nil
	case domain.ScoringLinear, domain.ScoringExponential:
		return s.scoreNumeric(factor, input)
	default:
		return neutralScore, []string{
			fmt.Sprintf("factor %q: unknown scoring type %q, using neutral score", factor.Name, factor.ScoringType),
		}, nil
	}
}

// scoreCategorical matches the raw value against the factor's option labels.
// String values match case-insensitively; numeric values index into the
// ordered option list.
func (s *Scorer) scoreCategorical(factor *domain.RiskFactor, input domain.FactorInput) (float64, []string) {
	if len(factor.Options) == 0 {
		return neutralScore, []string{
			fmt.Sprintf("factor %q has no options configured, using neutral score", factor.Name),
		}
	}

	switch v := input.Value.(type) {
	case string:
		for _, opt := range factor.Options {
			if strings.EqualFold(opt.Label, v) {
				return clampScore(opt.Score), nil
			}
		}
		return neutralScore, []string{
			fmt.Sprintf("factor %q: value %q does not match any option, using neutral score", factor.Name, v),
		}
	case nil:
		return neutralScore, []string{
			fmt.Sprintf("factor %q: no value supplied, using neutral score", factor.Name),
		}
	default:
		idx, ok := toIndex(input.Value)
		if ok && idx >= 0 && idx < len(factor.Options) {
			return clampScore(factor.Options[idx].Score), nil
		}
		return neutralScore, []string{
			fmt.Sprintf("factor %q: value %v is not a valid option index, using neutral score", factor.Name, input.Value),
		}
	}
}

// scoreNumeric evaluates the factor's declarative formula against the bound
// numeric value and clamps the result into [0,100].
func (s *Scorer) scoreNumeric(factor *domain.RiskFactor, input domain.FactorInput) (float64, []string, error) {
	var warnings []string

	value, ok := toFloat(input.Value)
	if !ok {
		value = factor.DefaultValue
		warnings = append(warnings,
			fmt.Sprintf("factor %q: value %v is not numeric, using default %v", factor.Name, input.Value, factor.DefaultValue))
	}

	if factor.Formula == "" {
		return clampScore(linearRamp(value, factor.MinValue, factor.MaxValue)), warnings, nil
	}

	program, err := s.program(factor)
	if err != nil {
		return 0, warnings, err
	}

	out, _, err := program.Eval(map[string]any{
		"value":   value,
		"min":     factor.MinValue,
		"max":     factor.MaxValue,
		"default": factor.DefaultValue,
	})
	if err != nil {
		// Runtime failures (e.g. division by zero) degrade, not abort.
		warnings = append(warnings,
			fmt.Sprintf("factor %q: formula evaluation failed (%v), using default scale", factor.Name, err))
		return clampScore(linearRamp(value, factor.MinValue, factor.MaxValue)), warnings, nil
	}

	return clampScore(toScore(out)), warnings, nil
}

// program returns the compiled CEL program for a factor, compiling on first use.
func (s *Scorer) program(factor *domain.RiskFactor) (cel.Program, error) {
	s.mu.RLock()
	program, ok := s.programs[factor.Name]
	s.mu.RUnlock()
	if ok {
		return program, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if program, ok := s.programs[factor.Name]; ok {
		return program, nil
	}

	ast, issues := s.env.Compile(factor.Formula)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("failed to compile formula for factor %q: %w", factor.Name, issues.Err())
	}

	outputType := ast.OutputType()
	if outputType != cel.DoubleType && outputType != cel.IntType {
		return nil, fmt.Errorf("factor %q: formula must return a number, got %s", factor.Name, outputType)
	}

	program, err := s.env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("failed to create program for factor %q: %w", factor.Name, err)
	}

	s.programs[factor.Name] = program
	return program, nil
}

// linearRamp is the built-in scale for factors without a formula.
func linearRamp(value, min, max float64) float64 {
	if max <= min {
		return neutralScore
	}
	return (value - min) / (max - min) * 100
}

// toScore converts a CEL value to a numeric score.
func toScore(val ref.Val) float64 {
	switch v := val.(type) {
	case types.Double:
		return float64(v)
	case types.Int:
		return float64(v)
	default:
		return 0.0
	}
}

func clampScore(score float64) float64 {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func toIndex(v any) (int, bool) {
	f, ok := toFloat(v)
	if !ok || f != math.Trunc(f) {
		return 0, false
	}
	return int(f), true
}
