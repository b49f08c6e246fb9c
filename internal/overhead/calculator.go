// Package overhead maps project size to an overhead rate via tiered lookup
// or smooth eased interpolation.
package overhead

import (
	"math"
	"sort"

	"github.com/ArcadeBob/clean-glass-proposal-app-sub001/internal/domain"
)

// Breakdown bucket percentages. The remainder after cent rounding is folded
// into the "other" bucket so the buckets always sum exactly to the input.
const (
	bucketAdministrative = 0.40
	bucketEquipment      = 0.25
	bucketInsurance      = 0.20
)

// Calculator resolves overhead rates from an ordered tier list.
// The tier configuration is immutable once constructed.
type Calculator struct {
	tiers       []domain.OverheadTier
	defaultRate float64
}

// NewCalculator copies and sorts the tier list ascending by max size.
// Unbounded tiers sort last.
func NewCalculator(tiers []domain.OverheadTier, defaultRate float64) *Calculator {
	sorted := make([]domain.OverheadTier, len(tiers))
	copy(sorted, tiers)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Unbounded != sorted[j].Unbounded {
			return sorted[j].Unbounded
		}
		return sorted[i].MaxSize < sorted[j].MaxSize
	})

	return &Calculator{tiers: sorted, defaultRate: defaultRate}
}

// DefaultTiers returns the standard glazing overhead tier configuration.
// Rates decrease with size: larger projects amortize fixed costs better.
func DefaultTiers() []domain.OverheadTier {
	return []domain.OverheadTier{
		{MaxSize: 5000, Rate: 0.18, Description: "small (<5k sqft)"},
		{MaxSize: 20000, Rate: 0.15, Description: "medium (5k-20k sqft)"},
		{MaxSize: 50000, Rate: 0.12, Description: "large (20k-50k sqft)"},
		{Unbounded: true, Rate: 0.10, Description: "major (50k+ sqft)"},
	}
}

// Rate resolves the overhead rate for a project size.
// Zero or negative size falls back to the smallest tier's rate with
// method "fixed"; smooth mode interpolates with an eased curve but
// returns discrete tier rates at exact boundaries.
func (c *Calculator) Rate(size float64, smooth bool) domain.OverheadRate {
	if len(c.tiers) == 0 {
		return domain.OverheadRate{Rate: c.defaultRate, Method: domain.OverheadMethodFixed}
	}

	if size <= 0 {
		first := c.tiers[0]
		return domain.OverheadRate{
			Rate:   first.Rate,
			Method: domain.OverheadMethodFixed,
			Tier:   first.Description,
		}
	}

	if len(c.tiers) == 1 {
		only := c.tiers[0]
		return domain.OverheadRate{
			Rate:   only.Rate,
			Method: domain.OverheadMethodTiered,
			Tier:   only.Description,
		}
	}

	if !smooth {
		tier := c.tierFor(size)
		return domain.OverheadRate{
			Rate:   tier.Rate,
			Method: domain.OverheadMethodTiered,
			Tier:   tier.Description,
		}
	}

	return c.smoothRate(size)
}

// tierFor returns the first tier whose max size strictly exceeds the given
// size; a size equal to a boundary resolves to the next tier.
func (c *Calculator) tierFor(size float64) domain.OverheadTier {
	for _, tier := range c.tiers {
		if tier.Unbounded || tier.MaxSize > size {
			return tier
		}
	}
	return c.tiers[len(c.tiers)-1]
}

// smoothRate interpolates between the discrete rates of adjacent tiers with
// an ease-out cubic curve. Exact tier boundaries resolve to the discrete rate
// so the curve is continuous with the step function at every boundary.
func (c *Calculator) smoothRate(size float64) domain.OverheadRate {
	// Segment start, start rate, and the tier supplying the end rate.
	lo := 0.0
	for i, tier := range c.tiers {
		if tier.Unbounded {
			return domain.OverheadRate{
				Rate:   tier.Rate,
				Method: domain.OverheadMethodSmooth,
				Tier:   tier.Description,
			}
		}

		if size == tier.MaxSize {
			// Boundary: discrete rate of the next tier, matching tiered mode.
			next := c.tiers[min(i+1, len(c.tiers)-1)]
			return domain.OverheadRate{
				Rate:   next.Rate,
				Method: domain.OverheadMethodSmooth,
				Tier:   next.Description,
			}
		}

		if size < tier.MaxSize {
			next := c.tiers[min(i+1, len(c.tiers)-1)]
			t := (size - lo) / (tier.MaxSize - lo)
			eased := easeOutCubic(t)
			rate := tier.Rate + (next.Rate-tier.Rate)*eased
			return domain.OverheadRate{
				Rate:   rate,
				Method: domain.OverheadMethodSmooth,
				Tier:   tier.Description,
			}
		}

		lo = tier.MaxSize
	}

	last := c.tiers[len(c.tiers)-1]
	return domain.OverheadRate{
		Rate:   last.Rate,
		Method: domain.OverheadMethodSmooth,
		Tier:   last.Description,
	}
}

// easeOutCubic is deliberately not linear: it front-loads the rate
// transition so mid-segment sizes already benefit from the next tier.
func easeOutCubic(t float64) float64 {
	u := 1 - t
	return 1 - u*u*u
}

// Breakdown decomposes an overhead amount into fixed-percentage buckets.
// Cent-rounded; the rounding remainder lands in the "other" bucket so the
// buckets sum exactly to the input amount.
func Breakdown(amount float64) domain.OverheadBreakdown {
	admin := roundCents(amount * bucketAdministrative)
	equipment := roundCents(amount * bucketEquipment)
	insurance := roundCents(amount * bucketInsurance)
	other := roundCents(amount - admin - equipment - insurance)

	return domain.OverheadBreakdown{
		Administrative: admin,
		Equipment:      equipment,
		Insurance:      insurance,
		Other:          other,
		Total:          roundCents(amount),
	}
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}
