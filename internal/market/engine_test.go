package market

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/ArcadeBob/clean-glass-proposal-app-sub001/internal/domain"
)

// staticSource is a fixed in-memory HistoricalMarketDataSource.
type staticSource struct {
	records []domain.MarketDataRecord
	err     error
	calls   int
}

func (s *staticSource) GetRecords(_ context.Context, filter domain.MarketDataFilter) ([]domain.MarketDataRecord, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	var out []domain.MarketDataRecord
	for _, r := range s.records {
		if filter.Region != "" && r.Region != filter.Region {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

func sourceWithValues(region string, values ...float64) *staticSource {
	s := &staticSource{}
	for _, v := range values {
		s.records = append(s.records, domain.MarketDataRecord{Region: region, Value: v, Unit: "sqft"})
	}
	return s
}

func TestBenchmarkStatistics(t *testing.T) {
	source := sourceWithValues("northeast", 80, 90, 100, 110, 120)
	engine := NewEngine(source, nil)

	b, err := engine.Benchmark(context.Background(), 110, domain.MarketDataFilter{Region: "northeast"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if b.Average != 100 {
		t.Errorf("average = %v, want 100", b.Average)
	}
	if b.Median != 100 {
		t.Errorf("median = %v, want 100", b.Median)
	}
	wantStd := math.Sqrt((400 + 100 + 0 + 100 + 400) / 5.0)
	if math.Abs(b.StdDev-wantStd) > 1e-9 {
		t.Errorf("stddev = %v, want %v", b.StdDev, wantStd)
	}
	// 3 below, 1 equal: (3 + 0.5) / 5 * 100
	if b.PercentileRank != 70 {
		t.Errorf("percentile rank = %v, want 70", b.PercentileRank)
	}
	if b.VarianceFromAverage != 10 {
		t.Errorf("variance = %v, want 10", b.VarianceFromAverage)
	}
	if b.Category != "above market" {
		t.Errorf("category = %q, want above market", b.Category)
	}
	if b.SampleSize != 5 {
		t.Errorf("sample size = %d, want 5", b.SampleSize)
	}
	if b.Confidence != 0.25 {
		t.Errorf("confidence = %v, want 0.25", b.Confidence)
	}
}

func TestBenchmarkCategories(t *testing.T) {
	tests := []struct {
		variance float64
		want     string
	}{
		{-20, "well below market"},
		{-10, "below market"},
		{0, "at market"},
		{10, "above market"},
		{25, "well above market"},
	}

	for _, tt := range tests {
		if got := categoryFor(tt.variance); got != tt.want {
			t.Errorf("categoryFor(%v) = %q, want %q", tt.variance, got, tt.want)
		}
	}
}

func TestBenchmarkNoData(t *testing.T) {
	engine := NewEngine(sourceWithValues("northeast", 100), nil)

	b, err := engine.Benchmark(context.Background(), 95, domain.MarketDataFilter{Region: "southwest"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if b.SampleSize != 0 {
		t.Errorf("sample size = %d, want 0", b.SampleSize)
	}
	if b.Confidence != 0 {
		t.Errorf("confidence = %v, want 0", b.Confidence)
	}
	if len(b.Notes) == 0 {
		t.Error("expected explanatory note for missing data")
	}
}

func TestBenchmarkSourceError(t *testing.T) {
	engine := NewEngine(&staticSource{err: errors.New("db down")}, nil)

	_, err := engine.Benchmark(context.Background(), 95, domain.MarketDataFilter{Region: "northeast"})
	if err == nil {
		t.Error("expected error from failing source")
	}
}

func TestWinProbabilityMonotonicity(t *testing.T) {
	engine := NewEngine(nil, nil)
	benchmark := func(rank float64) *domain.MarketBenchmark {
		return &domain.MarketBenchmark{SampleSize: 10, PercentileRank: rank}
	}

	// Decreasing in price percentile.
	prev := 101.0
	for rank := 0.0; rank <= 100; rank += 10 {
		p, _ := engine.WinProbability(benchmark(rank), 30)
		if p > prev {
			t.Fatalf("win probability increased with price at rank %v", rank)
		}
		prev = p
	}

	// Decreasing in risk.
	prev = 101.0
	for risk := 0.0; risk <= 100; risk += 10 {
		p, _ := engine.WinProbability(benchmark(50), risk)
		if p > prev {
			t.Fatalf("win probability increased with risk %v", risk)
		}
		prev = p
	}
}

func TestWinProbabilityBounds(t *testing.T) {
	engine := NewEngine(nil, nil)

	p, _ := engine.WinProbability(&domain.MarketBenchmark{SampleSize: 10, PercentileRank: 100}, 100)
	if p != 5 {
		t.Errorf("win probability = %v, want floor 5", p)
	}

	p, _ = engine.WinProbability(&domain.MarketBenchmark{SampleSize: 10, PercentileRank: 0}, 0)
	if p != 95 {
		t.Errorf("win probability = %v, want ceiling 95", p)
	}
}

func TestWinProbabilityDefaultWithoutData(t *testing.T) {
	engine := NewEngine(nil, nil)

	p, warnings := engine.WinProbability(nil, 50)
	if p != defaultWinProbability {
		t.Errorf("win probability = %v, want default %v", p, defaultWinProbability)
	}
	if len(warnings) == 0 {
		t.Error("expected warning when no market data exists")
	}
}

func TestRecommendPackages(t *testing.T) {
	engine := NewEngine(nil, nil)

	packages := engine.RecommendPackages(10000, nil, 60, 10, 30)
	if len(packages) != 3 {
		t.Fatalf("packages = %d, want 3", len(packages))
	}

	for _, pkg := range packages {
		if pkg.Margin < 10 || pkg.Margin > 30 {
			t.Errorf("package %s margin %v outside [10,30]", pkg.Name, pkg.Margin)
		}
		want := math.Round(10000*(1+pkg.Margin/100)*100) / 100
		if pkg.Price != want {
			t.Errorf("package %s price = %v, want %v", pkg.Name, pkg.Price, want)
		}
		if pkg.WinProbability < 5 || pkg.WinProbability > 95 {
			t.Errorf("package %s win probability %v out of bounds", pkg.Name, pkg.WinProbability)
		}
	}

	if packages[0].Price >= packages[2].Price {
		t.Error("competitive package should be cheaper than premium")
	}
	if packages[0].WinProbability <= packages[2].WinProbability {
		t.Error("competitive package should have higher win probability")
	}
}

func TestBenchmarkUsesCache(t *testing.T) {
	source := sourceWithValues("northeast", 90, 100, 110)
	cache := newMemCache()
	engine := NewEngine(source, cache)

	filter := domain.MarketDataFilter{Region: "northeast"}
	if _, err := engine.Benchmark(context.Background(), 100, filter); err != nil {
		t.Fatalf("first benchmark: %v", err)
	}
	if _, err := engine.Benchmark(context.Background(), 105, filter); err != nil {
		t.Fatalf("second benchmark: %v", err)
	}

	if source.calls != 1 {
		t.Errorf("source calls = %d, want 1 (second served from cache)", source.calls)
	}
}

// memCache is a minimal domain.Cache for tests.
type memCache struct {
	data map[string][]byte
}

func newMemCache() *memCache { return &memCache{data: make(map[string][]byte)} }

func (c *memCache) Get(_ context.Context, key string) ([]byte, error) { return c.data[key], nil }
func (c *memCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	c.data[key] = value
	return nil
}
func (c *memCache) Delete(_ context.Context, key string) error { delete(c.data, key); return nil }
func (c *memCache) GetBenchmark(context.Context, string) (*domain.MarketBenchmark, error) {
	return nil, nil
}
func (c *memCache) SetBenchmark(context.Context, string, *domain.MarketBenchmark, time.Duration) error {
	return nil
}
func (c *memCache) Ping(context.Context) error { return nil }
func (c *memCache) Close() error               { return nil }
