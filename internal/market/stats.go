package market

import (
	"github.com/ArcadeBob/clean-glass-proposal-app-sub001/internal/domain"
)

// Summarize aggregates a flat collection of historical proposal records.
// Pure and side-effect free: counts, averages by status/region/type, and
// the overall win rate among decided proposals.
func Summarize(records []domain.ProposalRecord) domain.ProposalStats {
	stats := domain.ProposalStats{
		ByStatus:    make(map[string]int),
		ByRegion:    make(map[string]int),
		ByType:      make(map[string]int),
		AvgByRegion: make(map[string]float64),
	}

	if len(records) == 0 {
		return stats
	}

	regionSums := make(map[string]float64)
	var totalCost float64

	for _, rec := range records {
		stats.Total++
		stats.ByStatus[rec.Status]++
		stats.ByRegion[rec.Region]++
		stats.ByType[rec.ProjectType]++
		totalCost += rec.TotalCost
		regionSums[rec.Region] += rec.TotalCost
	}

	stats.AverageCost = totalCost / float64(stats.Total)

	for region, sum := range regionSums {
		stats.AvgByRegion[region] = sum / float64(stats.ByRegion[region])
	}

	decided := stats.ByStatus[domain.ProposalWon] + stats.ByStatus[domain.ProposalLost]
	if decided > 0 {
		stats.WinRate = float64(stats.ByStatus[domain.ProposalWon]) / float64(decided)
	}

	return stats
}
