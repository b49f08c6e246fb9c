// Backtest tool for replaying historical proposals through glasspricer.
//
// Usage:
//   go run cmd/benchmark/main.go -csv /path/to/proposals.csv -url http://localhost:8080
//
// This tool:
//   1. Reads historical proposal data (with won/lost outcomes)
//   2. Sends each proposal to glasspricer for pricing
//   3. Compares predicted win probability with the actual outcome
//   4. Reports calibration buckets, pricing deltas, and latency
//
// Expected CSV columns (header row required, case-insensitive):
//   basecost, squarefootage, region, projecttype, overheadpct,
//   profitmargin, complexity, finalprice, won
package main

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// HistoricalProposal represents one row from the backtest dataset.
type HistoricalProposal struct {
	BaseCost      float64
	SquareFootage float64
	Region        string
	ProjectType   string
	OverheadPct   float64
	ProfitMargin  float64
	Complexity    string // technical_complexity option, may be empty
	FinalPrice    float64
	Won           bool
}

// CalculateRequest mirrors the POST /calculate request body.
type CalculateRequest struct {
	BaseCost             float64                 `json:"baseCost"`
	OverheadPercentage   float64                 `json:"overheadPercentage"`
	ProfitMargin         float64                 `json:"profitMargin"`
	UseSizeBasedOverhead bool                    `json:"useSizeBasedOverhead,omitempty"`
	SquareFootage        float64                 `json:"squareFootage,omitempty"`
	Region               string                  `json:"region,omitempty"`
	ProjectType          string                  `json:"projectType,omitempty"`
	RiskFactorInputs     map[string]FactorInput  `json:"riskFactorInputs,omitempty"`
}

type FactorInput struct {
	Value any `json:"value"`
}

// CalculateResponse is the subset of the API response the backtest needs.
type CalculateResponse struct {
	Result struct {
		CalculationID  string  `json:"calculationId"`
		TotalCost      float64 `json:"totalCost"`
		WinProbability float64 `json:"winProbability"`
		Method         string  `json:"calculationMethod"`
	} `json:"result"`
}

// Metrics tracks backtest results.
type Metrics struct {
	TotalProcessed int64
	TotalWon       int64
	TotalLost      int64
	TotalErrors    int64

	// Win-probability calibration: bucket i covers [i*10, i*10+10).
	BucketCount [10]int64
	BucketWins  [10]int64

	// Pricing delta vs the historical final price, in basis points
	// (predicted/actual - 1) * 10000, summed for averaging.
	DeltaBpsSum   int64
	DeltaBpsCount int64

	ProcessingTimeMs int64
}

func main() {
	csvPath := flag.String("csv", "", "Path to historical proposal CSV file")
	baseURL := flag.String("url", "http://localhost:8080", "glasspricer base URL")
	limit := flag.Int("limit", 10000, "Maximum proposals to process (0 = all)")
	workers := flag.Int("workers", 10, "Number of concurrent workers")
	verbose := flag.Bool("verbose", false, "Print each proposal result")
	flag.Parse()

	if *csvPath == "" {
		fmt.Println("Usage: benchmark -csv /path/to/proposals.csv [-url http://localhost:8080]")
		fmt.Println("\nFlags:")
		flag.PrintDefaults()
		os.Exit(1)
	}

	fmt.Println("glasspricer backtest")
	fmt.Printf("\nCSV File:  %s\n", *csvPath)
	fmt.Printf("URL:       %s\n", *baseURL)
	fmt.Printf("Workers:   %d\n", *workers)
	fmt.Printf("Limit:     %d\n", *limit)
	fmt.Println()

	if err := checkHealth(*baseURL); err != nil {
		fmt.Printf("ERROR: glasspricer not reachable at %s: %v\n", *baseURL, err)
		fmt.Println("\nMake sure the server is running:")
		fmt.Println("  go run cmd/glasspricer/main.go")
		os.Exit(1)
	}
	fmt.Println("server is healthy")

	fmt.Printf("\nReading proposal data from %s...\n", *csvPath)
	proposals, err := readProposalCSV(*csvPath, *limit)
	if err != nil {
		fmt.Printf("ERROR: Failed to read CSV: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("loaded %d proposals\n", len(proposals))

	wonCount := 0
	for _, p := range proposals {
		if p.Won {
			wonCount++
		}
	}
	fmt.Printf("  - Won:  %d (%.2f%%)\n", wonCount, 100*float64(wonCount)/float64(len(proposals)))
	fmt.Printf("  - Lost: %d (%.2f%%)\n", len(proposals)-wonCount, 100*float64(len(proposals)-wonCount)/float64(len(proposals)))

	fmt.Printf("\nRunning backtest with %d workers...\n", *workers)
	startTime := time.Now()
	metrics := runBacktest(proposals, *baseURL, *workers, *verbose)
	duration := time.Since(startTime)

	printResults(metrics, duration)
}

func checkHealth(baseURL string) error {
	resp, err := http.Get(baseURL + "/health")
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unhealthy: status %d", resp.StatusCode)
	}
	return nil
}

func readProposalCSV(path string, limit int) ([]HistoricalProposal, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	reader := csv.NewReader(file)

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	colIndex := make(map[string]int)
	for i, col := range header {
		colIndex[strings.ToLower(strings.TrimSpace(col))] = i
	}

	field := func(record []string, name string) string {
		i, ok := colIndex[name]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	var proposals []HistoricalProposal

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			continue // Skip malformed rows
		}

		baseCost, _ := strconv.ParseFloat(field(record, "basecost"), 64)
		if baseCost <= 0 {
			continue
		}
		sqft, _ := strconv.ParseFloat(field(record, "squarefootage"), 64)
		overheadPct, _ := strconv.ParseFloat(field(record, "overheadpct"), 64)
		profitMargin, _ := strconv.ParseFloat(field(record, "profitmargin"), 64)
		finalPrice, _ := strconv.ParseFloat(field(record, "finalprice"), 64)
		won := field(record, "won") == "1" || strings.EqualFold(field(record, "won"), "true")

		proposals = append(proposals, HistoricalProposal{
			BaseCost:      baseCost,
			SquareFootage: sqft,
			Region:        field(record, "region"),
			ProjectType:   field(record, "projecttype"),
			OverheadPct:   overheadPct,
			ProfitMargin:  profitMargin,
			Complexity:    field(record, "complexity"),
			FinalPrice:    finalPrice,
			Won:           won,
		})

		if limit > 0 && len(proposals) >= limit {
			break
		}
	}

	return proposals, nil
}

func runBacktest(proposals []HistoricalProposal, baseURL string, numWorkers int, verbose bool) *Metrics {
	metrics := &Metrics{}

	work := make(chan HistoricalProposal, 100)
	var wg sync.WaitGroup

	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			client := &http.Client{Timeout: 10 * time.Second}

			for p := range work {
				start := time.Now()
				result, err := priceProposal(client, baseURL, p)
				elapsed := time.Since(start).Milliseconds()

				atomic.AddInt64(&metrics.ProcessingTimeMs, elapsed)
				atomic.AddInt64(&metrics.TotalProcessed, 1)

				if err != nil {
					atomic.AddInt64(&metrics.TotalErrors, 1)
					if verbose {
						fmt.Printf("ERROR: base %.2f -> %v\n", p.BaseCost, err)
					}
					continue
				}

				if p.Won {
					atomic.AddInt64(&metrics.TotalWon, 1)
				} else {
					atomic.AddInt64(&metrics.TotalLost, 1)
				}

				bucket := int(result.Result.WinProbability / 10)
				if bucket > 9 {
					bucket = 9
				}
				if bucket < 0 {
					bucket = 0
				}
				atomic.AddInt64(&metrics.BucketCount[bucket], 1)
				if p.Won {
					atomic.AddInt64(&metrics.BucketWins[bucket], 1)
				}

				if p.FinalPrice > 0 {
					deltaBps := int64((result.Result.TotalCost/p.FinalPrice - 1) * 10000)
					atomic.AddInt64(&metrics.DeltaBpsSum, deltaBps)
					atomic.AddInt64(&metrics.DeltaBpsCount, 1)
				}

				if verbose {
					fmt.Printf("%-10s | Base: $%12.2f | Priced: $%12.2f | WinProb: %5.1f%% | Won: %v\n",
						p.Region, p.BaseCost, result.Result.TotalCost,
						result.Result.WinProbability, p.Won)
				}
			}
		}()
	}

	for _, p := range proposals {
		work <- p
	}
	close(work)

	wg.Wait()

	return metrics
}

func priceProposal(client *http.Client, baseURL string, p HistoricalProposal) (*CalculateResponse, error) {
	req := CalculateRequest{
		BaseCost:           p.BaseCost,
		OverheadPercentage: p.OverheadPct,
		ProfitMargin:       p.ProfitMargin,
		SquareFootage:      p.SquareFootage,
		Region:             p.Region,
		ProjectType:        p.ProjectType,
	}
	if p.SquareFootage > 0 {
		req.UseSizeBasedOverhead = true
	}
	if p.Complexity != "" {
		req.RiskFactorInputs = map[string]FactorInput{
			"technical_complexity": {Value: p.Complexity},
		}
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequest(http.MethodPost, baseURL+"/calculate", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}

	var result CalculateResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, err
	}

	return &result, nil
}

func printResults(m *Metrics, duration time.Duration) {
	fmt.Println("\nBACKTEST RESULTS")

	fmt.Printf("\nDATASET\n")
	fmt.Printf("   Total Processed:  %d\n", m.TotalProcessed)
	fmt.Printf("   Won:              %d\n", m.TotalWon)
	fmt.Printf("   Lost:             %d\n", m.TotalLost)
	fmt.Printf("   Errors:           %d\n", m.TotalErrors)

	fmt.Printf("\nWIN PROBABILITY CALIBRATION\n")
	fmt.Println("   Predicted     Proposals   Actual Win Rate")
	for i := 0; i < 10; i++ {
		count := m.BucketCount[i]
		if count == 0 {
			continue
		}
		actual := 100 * float64(m.BucketWins[i]) / float64(count)
		fmt.Printf("   %3d-%3d%%   %10d   %13.1f%%\n", i*10, i*10+10, count, actual)
	}

	if m.DeltaBpsCount > 0 {
		avgBps := float64(m.DeltaBpsSum) / float64(m.DeltaBpsCount)
		fmt.Printf("\nPRICING DELTA vs HISTORICAL FINAL PRICE\n")
		fmt.Printf("   Average: %+.2f%% (%+.0f bps)\n", avgBps/100, avgBps)
	}

	fmt.Printf("\nPERFORMANCE\n")
	fmt.Printf("   Total Duration:   %v\n", duration.Round(time.Millisecond))
	if m.TotalProcessed > 0 {
		avgMs := float64(m.ProcessingTimeMs) / float64(m.TotalProcessed)
		rps := float64(m.TotalProcessed) / duration.Seconds()
		fmt.Printf("   Avg Latency:      %.2f ms\n", avgMs)
		fmt.Printf("   Throughput:       %.2f req/sec\n", rps)
	}

	fmt.Println()
}
