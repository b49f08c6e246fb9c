package domain

import (
	"time"
)

// Calculation method names.
const (
	MethodEnhanced = "enhanced"
	MethodLegacy   = "legacy"
)

// CalculationInput is the request for one proposal pricing calculation.
type CalculationInput struct {
	// Required
	BaseCost           float64 `json:"baseCost"`           // >= 0
	OverheadPercentage float64 `json:"overheadPercentage"` // 0-100
	ProfitMargin       float64 `json:"profitMargin"`       // 0-100

	// Optional enhancement inputs
	UseSizeBasedOverhead bool    `json:"useSizeBasedOverhead,omitempty"`
	UseSmoothScaling     bool    `json:"useSmoothScaling,omitempty"`
	ProjectType          string  `json:"projectType,omitempty"`
	SquareFootage        float64 `json:"squareFootage,omitempty"`
	BuildingHeight       float64 `json:"buildingHeight,omitempty"`
	Region               string  `json:"region,omitempty"`
	MaterialType         string  `json:"materialType,omitempty"`

	// Risk factor inputs keyed by factor name. Non-empty selects enhanced mode.
	RiskFactorInputs map[string]FactorInput `json:"riskFactorInputs,omitempty"`

	// Confidence inputs, all independently optional.
	ConfidenceFactors ConfidenceFactors `json:"confidenceFactors,omitempty"`

	// Legacy scalar risk score (0-10), used only when RiskFactorInputs is empty.
	RiskScore *float64 `json:"riskScore,omitempty"`
}

// CalculationStage is one entry in the ordered execution trace.
type CalculationStage struct {
	Stage     string    `json:"stage"`
	Timestamp time.Time `json:"timestamp"`
}

// Stage names, in enhanced-mode pipeline order.
const (
	StageValidation    = "validation"
	StageRiskAssess    = "risk_assessment"
	StageOverhead      = "overhead_calculation"
	StageProfitMargin  = "profit_margin_calculation"
	StageMarket        = "market_analysis"
	StageContingency   = "contingency_recommendation"
	StageConfidence    = "confidence_scoring"
	StageLegacyPricing = "legacy_calculation"
)

// EnhancedCalculationResult is the complete output of one calculation.
type EnhancedCalculationResult struct {
	CalculationID string  `json:"calculationId"`
	BaseCost      float64 `json:"baseCost"`
	TotalCost     float64 `json:"totalCost"`

	CalculationMethod string `json:"calculationMethod"` // "enhanced" or "legacy"

	RiskAssessment *RiskScoringResult `json:"riskAssessment,omitempty"`

	OverheadAmount            float64 `json:"overheadAmount"`
	IsSizeBasedOverhead       bool    `json:"isSizeBasedOverhead"`
	OverheadCalculationMethod string  `json:"overheadCalculationMethod"`

	ProfitAmount              float64 `json:"profitAmount"`
	AppliedProfitMargin       float64 `json:"appliedProfitMargin"` // percent
	IsRiskAdjustedProfitMargin bool   `json:"isRiskAdjustedProfitMargin"`

	ContingencyAmount float64 `json:"contingencyAmount"`
	ContingencyRate   float64 `json:"contingencyRate"`

	IsConfidenceScored   bool                  `json:"isConfidenceScored"`
	ConfidenceAssessment *ConfidenceAssessment `json:"confidenceAssessment,omitempty"`
	UncertaintyRange     *UncertaintyRange     `json:"uncertaintyRange,omitempty"`

	MarketBenchmark   *MarketBenchmark `json:"marketBenchmark,omitempty"`
	WinProbability    float64          `json:"winProbability"`
	CostPerSquareFoot float64          `json:"costPerSquareFoot,omitempty"`

	ExecutionMs         float64            `json:"executionMs"`
	CalculationSequence []CalculationStage `json:"calculationSequence"`
	Warnings            []string           `json:"warnings,omitempty"`
	Timestamp           time.Time          `json:"timestamp"`
}

// CalculationAuditLogEntry correlates one calculation with its execution record.
type CalculationAuditLogEntry struct {
	CalculationID      string    `json:"calculationId"`
	RiskAssessmentUsed bool      `json:"riskAssessmentUsed"`
	FallbackUsed       bool      `json:"fallbackUsed"`
	ExecutionMs        float64   `json:"executionMs"`
	Timestamp          time.Time `json:"timestamp"`
	ErrorOccurred      bool      `json:"errorOccurred"`
}

// AuditLogFilter narrows audit log queries.
type AuditLogFilter struct {
	// IncludeErrors keeps entries whose calculation recorded an error.
	IncludeErrors bool
	// Limit caps the number of returned entries, newest first. 0 = no cap.
	Limit int
}

// CalculationStatistics aggregates the audit log since the last clear.
type CalculationStatistics struct {
	TotalCalculations       int64   `json:"totalCalculations"`
	AverageExecutionMs      float64 `json:"averageExecutionTime"`
	RiskAssessmentUsageRate float64 `json:"riskAssessmentUsageRate"` // 0-1
	FallbackUsageRate       float64 `json:"fallbackUsageRate"`       // 0-1
}

// CalculationRecord is the persisted summary row for a completed calculation.
// Completed calculations flow over the event bus to the history worker, which
// stores them so future market benchmarks can learn from them.
type CalculationRecord struct {
	ID                string    `json:"id"`
	ProjectType       string    `json:"projectType"`
	Region            string    `json:"region"`
	BaseCost          float64   `json:"baseCost"`
	TotalCost         float64   `json:"totalCost"`
	Method            string    `json:"method"`
	RiskLevel         RiskLevel `json:"riskLevel,omitempty"`
	WinProbability    float64   `json:"winProbability"`
	CostPerSquareFoot float64   `json:"costPerSquareFoot,omitempty"`
	Status            string    `json:"status"`
	CreatedAt         time.Time `json:"createdAt"`
}
