// Package market benchmarks proposal costs against historical regional data,
// estimates win probability, and recommends pricing packages.
package market

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"time"

	"github.com/ArcadeBob/clean-glass-proposal-app-sub001/internal/domain"
)

// benchmarkCacheTTL bounds how stale a cached regional benchmark may be.
const benchmarkCacheTTL = 10 * time.Minute

// defaultWinProbability is used when no historical data matches.
const defaultWinProbability = 50.0

// Engine computes market benchmarks from a historical data source.
// A cache, when configured, short-circuits repeated regional lookups.
type Engine struct {
	source domain.HistoricalMarketDataSource
	cache  domain.Cache
}

// NewEngine creates a market analysis engine. The cache may be nil.
func NewEngine(source domain.HistoricalMarketDataSource, cache domain.Cache) *Engine {
	return &Engine{source: source, cache: cache}
}

// Benchmark compares a candidate cost/unit against historical records for
// the filter. Missing data degrades to a zero-confidence benchmark with an
// explanatory note; only the data source I/O error is returned.
func (e *Engine) Benchmark(ctx context.Context, costPerUnit float64, filter domain.MarketDataFilter) (*domain.MarketBenchmark, error) {
	if e.source == nil {
		return emptyBenchmark(costPerUnit, "no historical market data source configured"), nil
	}

	records, err := e.getRecords(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch market records: %w", err)
	}
	if len(records) == 0 {
		return emptyBenchmark(costPerUnit,
			fmt.Sprintf("no historical data for region %q", filter.Region)), nil
	}

	values := make([]float64, len(records))
	for i, rec := range records {
		values[i] = rec.Value
	}
	sort.Float64s(values)

	avg := mean(values)
	med := median(values)
	std := populationStdDev(values, avg)

	variance := 0.0
	if avg != 0 {
		variance = (costPerUnit - avg) / avg * 100
	}

	b := &domain.MarketBenchmark{
		CostPerUnit:         costPerUnit,
		Average:             avg,
		Median:              med,
		StdDev:              std,
		PercentileRank:      percentileRank(values, costPerUnit),
		VarianceFromAverage: variance,
		Category:            categoryFor(variance),
		SampleSize:          len(values),
		Confidence:          math.Min(1, float64(len(values))/20),
	}
	b.Notes = append(b.Notes,
		fmt.Sprintf("benchmarked against %d records for region %q", len(values), filter.Region))
	if b.Confidence < 0.5 {
		b.Notes = append(b.Notes, "small sample size, benchmark confidence is limited")
	}

	return b, nil
}

// WinProbability estimates the chance of winning at a price point. The
// estimate is bounded to [5,95], monotonically decreasing in both the
// price percentile and the risk score, and degrades to a usable default
// with a warning when no benchmark data exists.
func (e *Engine) WinProbability(benchmark *domain.MarketBenchmark, riskScore float64) (float64, []string) {
	if benchmark == nil || benchmark.SampleSize == 0 {
		return defaultWinProbability, []string{
			"no market data for win probability, using default estimate",
		}
	}

	p := 95 - benchmark.PercentileRank*0.7 - riskScore*0.15
	return clamp(p, 5, 95), nil
}

// RecommendPackages produces priced proposal variants within the margin
// bounds. Margins step from near the minimum (competitive) to near the
// maximum (premium); win probability estimates shift accordingly.
func (e *Engine) RecommendPackages(baseCost float64, benchmark *domain.MarketBenchmark, winProbability, minMargin, maxMargin float64) []domain.PricingPackage {
	if minMargin > maxMargin {
		minMargin, maxMargin = maxMargin, minMargin
	}
	span := maxMargin - minMargin

	variants := []struct {
		name     string
		position float64 // within the margin span
		winShift float64
		notes    string
	}{
		{"competitive", 0.2, +12, "priced to win; thin margin"},
		{"standard", 0.5, 0, "balanced margin and win probability"},
		{"premium", 0.8, -15, "margin-first; suited to low-competition bids"},
	}

	packages := make([]domain.PricingPackage, 0, len(variants))
	for _, v := range variants {
		m := minMargin + span*v.position
		pkg := domain.PricingPackage{
			Name:           v.name,
			Margin:         m,
			Price:          roundCents(baseCost * (1 + m/100)),
			WinProbability: clamp(winProbability+v.winShift, 5, 95),
			Notes:          v.notes,
		}
		if benchmark != nil && benchmark.Average > 0 {
			pkg.Notes = fmt.Sprintf("%s; market average %.2f/unit", pkg.Notes, benchmark.Average)
		}
		packages = append(packages, pkg)
	}

	return packages
}

func (e *Engine) getRecords(ctx context.Context, filter domain.MarketDataFilter) ([]domain.MarketDataRecord, error) {
	// Cached regional snapshots avoid re-querying the repository on every
	// calculation; benchmarks tolerate up to benchmarkCacheTTL staleness.
	key := cacheKey(filter)
	if e.cache != nil {
		if cached, err := e.cache.Get(ctx, key); err == nil && cached != nil {
			var records []domain.MarketDataRecord
			if err := unmarshalRecords(cached, &records); err == nil {
				return records, nil
			}
		}
	}

	records, err := e.source.GetRecords(ctx, filter)
	if err != nil {
		return nil, err
	}

	if e.cache != nil {
		if raw, err := marshalRecords(records); err == nil {
			if err := e.cache.Set(ctx, key, raw, benchmarkCacheTTL); err != nil {
				slog.Debug("failed to cache market records", "key", key, "error", err)
			}
		}
	}

	return records, nil
}

func emptyBenchmark(costPerUnit float64, note string) *domain.MarketBenchmark {
	return &domain.MarketBenchmark{
		CostPerUnit: costPerUnit,
		Category:    "unknown",
		Notes:       []string{note},
	}
}

// categoryFor maps percent variance from the average to a qualitative band.
func categoryFor(variancePct float64) string {
	switch {
	case variancePct <= -15:
		return "well below market"
	case variancePct <= -5:
		return "below market"
	case variancePct <= 5:
		return "at market"
	case variancePct <= 15:
		return "above market"
	default:
		return "well above market"
	}
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// median expects values sorted ascending.
func median(values []float64) float64 {
	n := len(values)
	if n == 0 {
		return 0
	}
	if n%2 == 1 {
		return values[n/2]
	}
	return (values[n/2-1] + values[n/2]) / 2
}

func populationStdDev(values []float64, avg float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		d := v - avg
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(values)))
}

// percentileRank expects values sorted ascending; returns the percent of
// values strictly below the candidate, with half-weight for ties.
func percentileRank(values []float64, candidate float64) float64 {
	if len(values) == 0 {
		return 0
	}
	below, equal := 0, 0
	for _, v := range values {
		switch {
		case v < candidate:
			below++
		case v == candidate:
			equal++
		}
	}
	return (float64(below) + float64(equal)/2) / float64(len(values)) * 100
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}

func cacheKey(filter domain.MarketDataFilter) string {
	return "market:" + filter.Region + ":" + filter.ProjectType
}

func marshalRecords(records []domain.MarketDataRecord) ([]byte, error) {
	return json.Marshal(records)
}

func unmarshalRecords(raw []byte, records *[]domain.MarketDataRecord) error {
	return json.Unmarshal(raw, records)
}
