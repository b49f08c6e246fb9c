package domain

import (
	"context"
	"time"
)

// MarketDataRecord is one append-only historical reference point.
type MarketDataRecord struct {
	ID            string    `json:"id"`
	Region        string    `json:"region"`
	Value         float64   `json:"value"` // cost per unit
	Unit          string    `json:"unit"`  // e.g. "sqft"
	ProjectType   string    `json:"projectType,omitempty"`
	Source        string    `json:"source"`
	EffectiveDate time.Time `json:"effectiveDate"`
	Notes         string    `json:"notes,omitempty"`
}

// MarketDataFilter narrows historical record lookups.
type MarketDataFilter struct {
	Region      string
	ProjectType string
	Since       time.Time
}

// HistoricalMarketDataSource returns immutable snapshots of historical
// market records. Implementations must not retain or mutate returned slices.
type HistoricalMarketDataSource interface {
	GetRecords(ctx context.Context, filter MarketDataFilter) ([]MarketDataRecord, error)
}

// MarketBenchmark compares a candidate cost/unit against historical data.
type MarketBenchmark struct {
	CostPerUnit         float64  `json:"costPerUnit"`
	Average             float64  `json:"average"`
	Median              float64  `json:"median"`
	StdDev              float64  `json:"stdDev"` // population standard deviation
	PercentileRank      float64  `json:"percentileRank"`      // 0-100
	VarianceFromAverage float64  `json:"varianceFromAverage"` // percent
	Category            string   `json:"category"`
	SampleSize          int      `json:"sampleSize"`
	Confidence          float64  `json:"confidence"` // 0-1, scales with sample size
	Notes               []string `json:"notes,omitempty"`
}

// PricingPackage is one priced proposal variant.
type PricingPackage struct {
	Name           string  `json:"name"`
	Price          float64 `json:"price"`
	Margin         float64 `json:"margin"` // percent
	WinProbability float64 `json:"winProbability"`
	Notes          string  `json:"notes,omitempty"`
}

// ProposalRecord is a flat historical proposal row used for trend summaries.
type ProposalRecord struct {
	ID          string    `json:"id"`
	Status      string    `json:"status"` // "won", "lost", "pending"
	Region      string    `json:"region"`
	ProjectType string    `json:"projectType"`
	TotalCost   float64   `json:"totalCost"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Proposal status values used in trend summaries.
const (
	ProposalWon     = "won"
	ProposalLost    = "lost"
	ProposalPending = "pending"
)

// ProposalStats is a pure summarization of historical proposal records.
type ProposalStats struct {
	Total       int                `json:"total"`
	ByStatus    map[string]int     `json:"byStatus"`
	ByRegion    map[string]int     `json:"byRegion"`
	ByType      map[string]int     `json:"byType"`
	AverageCost float64            `json:"averageCost"`
	AvgByRegion map[string]float64 `json:"avgByRegion"`
	WinRate     float64            `json:"winRate"` // won / (won + lost)
}
