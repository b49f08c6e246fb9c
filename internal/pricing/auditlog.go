package pricing

import (
	"sync"

	"github.com/ArcadeBob/clean-glass-proposal-app-sub001/internal/domain"
)

// AuditLog is a bounded, concurrency-safe in-memory log of calculation
// audit entries. Append order reflects completion time; the oldest entries
// are evicted on overflow. Aggregate counters survive eviction so
// statistics always cover every calculation since the last clear.
//
// The log is an injectable component; DefaultAuditLog exists for
// convenience call sites that do not compose their own.
type AuditLog struct {
	mu         sync.Mutex
	entries    []domain.CalculationAuditLogEntry
	maxEntries int

	total         int64
	sumExecMs     float64
	riskUsedCount int64
	fallbackCount int64
}

// DefaultAuditLog is the shared process-wide instance.
var DefaultAuditLog = NewAuditLog(1000)

// NewAuditLog creates a bounded audit log.
func NewAuditLog(maxEntries int) *AuditLog {
	if maxEntries <= 0 {
		maxEntries = 1000
	}
	return &AuditLog{maxEntries: maxEntries}
}

// Append records one entry, evicting the oldest on overflow.
func (l *AuditLog) Append(entry domain.CalculationAuditLogEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.entries = append(l.entries, entry)
	if len(l.entries) > l.maxEntries {
		l.entries = l.entries[len(l.entries)-l.maxEntries:]
	}

	l.total++
	l.sumExecMs += entry.ExecutionMs
	if entry.RiskAssessmentUsed {
		l.riskUsedCount++
	}
	if entry.FallbackUsed {
		l.fallbackCount++
	}
}

// Query returns entries newest first, honoring the filter.
func (l *AuditLog) Query(filter domain.AuditLogFilter) []domain.CalculationAuditLogEntry {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]domain.CalculationAuditLogEntry, 0, len(l.entries))
	for i := len(l.entries) - 1; i >= 0; i-- {
		entry := l.entries[i]
		if entry.ErrorOccurred && !filter.IncludeErrors {
			continue
		}
		out = append(out, entry)
		if filter.Limit > 0 && len(out) >= filter.Limit {
			break
		}
	}
	return out
}

// Stats aggregates every calculation since the last clear, including
// entries already evicted from the bounded window.
func (l *AuditLog) Stats() domain.CalculationStatistics {
	l.mu.Lock()
	defer l.mu.Unlock()

	stats := domain.CalculationStatistics{
		TotalCalculations: l.total,
	}
	if l.total > 0 {
		stats.AverageExecutionMs = l.sumExecMs / float64(l.total)
		stats.RiskAssessmentUsageRate = float64(l.riskUsedCount) / float64(l.total)
		stats.FallbackUsageRate = float64(l.fallbackCount) / float64(l.total)
	}
	return stats
}

// Clear drops all entries and resets the aggregate counters.
func (l *AuditLog) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.entries = nil
	l.total = 0
	l.sumExecMs = 0
	l.riskUsedCount = 0
	l.fallbackCount = 0
}

// Len returns the number of retained entries.
func (l *AuditLog) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
