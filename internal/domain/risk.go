// Package domain defines the core interfaces and types for the pricing engine.
package domain

import (
	"context"
	"errors"
	"time"
)

// ErrFactorNotFound is returned by catalog lookups for unknown factor names.
var ErrFactorNotFound = errors.New("risk factor not found")

// ScoringType selects how a raw factor value is converted to a 0-100 score.
type ScoringType string

const (
	ScoringCategorical ScoringType = "CATEGORICAL"
	ScoringLinear      ScoringType = "LINEAR"
	ScoringExponential ScoringType = "EXPONENTIAL"
)

// FactorDataType is the shape of the raw input a factor expects.
type FactorDataType string

const (
	DataCategorical FactorDataType = "CATEGORICAL"
	DataNumeric     FactorDataType = "NUMERIC"
	DataPercentage  FactorDataType = "PERCENTAGE"
)

// RiskLevel is the qualitative band assigned to a total risk score.
type RiskLevel string

const (
	RiskLow      RiskLevel = "LOW"
	RiskMedium   RiskLevel = "MEDIUM"
	RiskHigh     RiskLevel = "HIGH"
	RiskCritical RiskLevel = "CRITICAL"
)

// FactorOption maps a categorical label to its score.
type FactorOption struct {
	Label string  `json:"label"`
	Score float64 `json:"score"` // 0-100
}

// RiskFactor defines one measurable project attribute.
type RiskFactor struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Category    string         `json:"category"`
	Weight      float64        `json:"weight"` // weight within category, 0-100
	ScoringType ScoringType    `json:"scoringType"`
	DataType    FactorDataType `json:"dataType"`

	// Categorical factors: ordered option list
	Options []FactorOption `json:"options,omitempty"`

	// Numeric/percentage factors: value bounds and declarative formula.
	// The formula is a CEL expression over value/min/max/default that
	// must produce a double; the result is clamped into [0,100].
	MinValue     float64 `json:"minValue,omitempty"`
	MaxValue     float64 `json:"maxValue,omitempty"`
	DefaultValue float64 `json:"defaultValue,omitempty"`
	Formula      string  `json:"formula,omitempty"`
}

// RiskCategory is a weighted grouping of related risk factors.
type RiskCategory struct {
	Name        string       `json:"name"`
	Description string       `json:"description"`
	Weight      float64      `json:"weight"` // relative contribution, 0-100
	SortOrder   int          `json:"sortOrder"`
	Factors     []RiskFactor `json:"factors"`
}

// FactorInput carries the raw value supplied for a factor.
type FactorInput struct {
	Value any    `json:"value"`
	Notes string `json:"notes,omitempty"`
}

// FactorScore is the immutable computed record for one scored factor.
type FactorScore struct {
	FactorName      string         `json:"factorName"`
	CategoryName    string         `json:"categoryName"`
	Weight          float64        `json:"weight"`
	InputValue      any            `json:"inputValue"`
	CalculatedScore float64        `json:"calculatedScore"` // 0-100 after clamping
	WeightedScore   float64        `json:"weightedScore"`   // calculatedScore * weight/100
	ScoringType     ScoringType    `json:"scoringType"`
	DataType        FactorDataType `json:"dataType"`
}

// CategoryScore aggregates the factor scores of one category.
type CategoryScore struct {
	CategoryName  string  `json:"categoryName"`
	Weight        float64 `json:"weight"`
	Score         float64 `json:"score"` // 0-100
	FactorsScored int     `json:"factorsScored"`
}

// RiskScoringResult is the full output of a risk assessment.
type RiskScoringResult struct {
	TotalRiskScore   float64         `json:"totalRiskScore"` // 0-100
	RiskLevel        RiskLevel       `json:"riskLevel"`
	Confidence       float64         `json:"confidence"` // 0-1
	CategoryScores   []CategoryScore `json:"categoryScores"`
	FactorScores     []FactorScore   `json:"factorScores"`
	Recommendations  []string        `json:"recommendations"`
	ContingencyRate  float64         `json:"contingencyRate"` // 0-1
	Timestamp        time.Time       `json:"timestamp"`
	FactorsProcessed int             `json:"factorsProcessed"`
	Warnings         []string        `json:"warnings,omitempty"`
}

// RiskFactorCatalog is the read-only lookup collaborator for factor definitions.
type RiskFactorCatalog interface {
	// GetFactor returns the factor definition by name, or ErrFactorNotFound.
	GetFactor(ctx context.Context, name string) (*RiskFactor, error)

	// ListCategories returns all categories with their factors,
	// ordered by sort order.
	ListCategories(ctx context.Context) ([]*RiskCategory, error)
}
