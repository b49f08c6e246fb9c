package domain

// ConfidenceFactors is a sparse set of named 0-100 confidence inputs.
// Every factor is independently optional; absent factors are excluded
// from aggregation rather than defaulted to zero.
type ConfidenceFactors map[string]float64

// Well-known confidence factor names.
const (
	ConfidenceDataCompleteness  = "data_completeness"
	ConfidenceMarketDataQuality = "market_data_quality"
	ConfidenceEstimateAccuracy  = "estimate_accuracy"
	ConfidenceScopeClarity      = "scope_clarity"
)

// ConfidenceAssessment is the aggregate confidence output.
type ConfidenceAssessment struct {
	Score          float64  `json:"score"` // 0-100, average of supplied factors
	FactorsUsed    int      `json:"factorsUsed"`
	UncertaintyPct float64  `json:"uncertaintyPct"` // half-width of the price band, percent
	Warnings       []string `json:"warnings,omitempty"`
}

// UncertaintyRange is the ± band around a final price.
type UncertaintyRange struct {
	Low  float64 `json:"low"`
	High float64 `json:"high"`
	Pct  float64 `json:"pct"`
}

// ContingencyRecommendation merges risk and market signals into one rate.
type ContingencyRecommendation struct {
	Rate            float64  `json:"rate"`         // 0-1
	BaselineRate    float64  `json:"baselineRate"` // from risk level
	Recommendations []string `json:"recommendations"`
	Explanation     string   `json:"explanation"`
}
