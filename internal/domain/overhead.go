package domain

// OverheadTier maps a project size ceiling to an overhead rate.
// A tier with Unbounded set has no upper size limit and must be last
// after sorting. Tier lists are immutable once handed to a calculator.
type OverheadTier struct {
	MaxSize     float64 `json:"maxSize"` // square feet, exclusive upper bound
	Rate        float64 `json:"rate"`    // 0-1
	Description string  `json:"description,omitempty"`
	Unbounded   bool    `json:"unbounded,omitempty"`
}

// Overhead calculation method names.
const (
	OverheadMethodFixed      = "fixed"
	OverheadMethodTiered     = "tiered"
	OverheadMethodSmooth     = "smooth"
	OverheadMethodPercentage = "percentage"
)

// OverheadRate is the resolved rate for a project size.
type OverheadRate struct {
	Rate   float64 `json:"rate"` // 0-1
	Method string  `json:"method"`
	Tier   string  `json:"tier,omitempty"` // description of the tier applied
}

// OverheadBreakdown decomposes an overhead amount into fixed-percentage
// buckets. The buckets always sum exactly to Total.
type OverheadBreakdown struct {
	Administrative float64 `json:"administrative"`
	Equipment      float64 `json:"equipment"`
	Insurance      float64 `json:"insurance"`
	Other          float64 `json:"other"`
	Total          float64 `json:"total"`
}
