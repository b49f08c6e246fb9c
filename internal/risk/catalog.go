package risk

import (
	"context"
	"sort"
	"strings"

	"github.com/ArcadeBob/clean-glass-proposal-app-sub001/internal/domain"
)

// StaticCatalog is an in-memory RiskFactorCatalog. It serves as the default
// catalog when no repository-backed catalog is configured, and as a fixture
// in tests.
type StaticCatalog struct {
	categories []*domain.RiskCategory
	factors    map[string]*domain.RiskFactor
}

// NewStaticCatalog builds a catalog from category definitions.
func NewStaticCatalog(categories []*domain.RiskCategory) *StaticCatalog {
	sorted := make([]*domain.RiskCategory, len(categories))
	copy(sorted, categories)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].SortOrder < sorted[j].SortOrder
	})

	factors := make(map[string]*domain.RiskFactor)
	for _, cat := range sorted {
		for i := range cat.Factors {
			cat.Factors[i].Category = cat.Name
			factors[strings.ToLower(cat.Factors[i].Name)] = &cat.Factors[i]
		}
	}

	return &StaticCatalog{categories: sorted, factors: factors}
}

// GetFactor returns the factor definition by name (case-insensitive).
func (c *StaticCatalog) GetFactor(_ context.Context, name string) (*domain.RiskFactor, error) {
	if f, ok := c.factors[strings.ToLower(name)]; ok {
		return f, nil
	}
	return nil, domain.ErrFactorNotFound
}

// ListCategories returns all categories ordered by sort order.
func (c *StaticCatalog) ListCategories(_ context.Context) ([]*domain.RiskCategory, error) {
	return c.categories, nil
}

// DefaultCatalog returns the built-in glazing risk factor catalog.
// Repository-backed deployments seed this catalog on first start and
// may extend it afterwards.
func DefaultCatalog() *StaticCatalog {
	return NewStaticCatalog([]*domain.RiskCategory{
		{
			Name:        "technical",
			Description: "Engineering and installation difficulty",
			Weight:      30,
			SortOrder:   1,
			Factors: []domain.RiskFactor{
				{
					Name:        "technical_complexity",
					Description: "Overall engineering complexity of the glazing system",
					Weight:      40,
					ScoringType: domain.ScoringCategorical,
					DataType:    domain.DataCategorical,
					Options: []domain.FactorOption{
						{Label: "standard storefront", Score: 15},
						{Label: "curtain wall", Score: 45},
						{Label: "structural glazing", Score: 70},
						{Label: "custom engineered", Score: 90},
					},
				},
				{
					Name:         "building_height",
					Description:  "Height of the installation in feet",
					Weight:       35,
					ScoringType:  domain.ScoringExponential,
					DataType:     domain.DataNumeric,
					MinValue:     0,
					MaxValue:     400,
					DefaultValue: 30,
					Formula:      "pow((value - min) / (max - min), 1.8) * 100.0",
				},
				{
					Name:        "material_type",
					Description: "Procurement difficulty of the specified glass",
					Weight:      25,
					ScoringType: domain.ScoringCategorical,
					DataType:    domain.DataCategorical,
					Options: []domain.FactorOption{
						{Label: "float glass", Score: 10},
						{Label: "tempered", Score: 25},
						{Label: "laminated", Score: 40},
						{Label: "insulated units", Score: 55},
						{Label: "specialty coated", Score: 80},
					},
				},
			},
		},
		{
			Name:        "schedule",
			Description: "Timeline and permitting pressure",
			Weight:      25,
			SortOrder:   2,
			Factors: []domain.RiskFactor{
				{
					Name:         "timeline_pressure",
					Description:  "Schedule compression as percent of nominal duration",
					Weight:       60,
					ScoringType:  domain.ScoringLinear,
					DataType:     domain.DataPercentage,
					MinValue:     0,
					MaxValue:     100,
					DefaultValue: 20,
					Formula:      "(value - min) / (max - min) * 100.0",
				},
				{
					Name:        "permit_complexity",
					Description: "Permitting and inspection burden",
					Weight:      40,
					ScoringType: domain.ScoringCategorical,
					DataType:    domain.DataCategorical,
					Options: []domain.FactorOption{
						{Label: "none required", Score: 5},
						{Label: "standard", Score: 30},
						{Label: "historic district", Score: 65},
						{Label: "high-rise variance", Score: 85},
					},
				},
			},
		},
		{
			Name:        "client",
			Description: "Counterparty and payment risk",
			Weight:      20,
			SortOrder:   3,
			Factors: []domain.RiskFactor{
				{
					Name:        "client_history",
					Description: "Payment and change-order history with this client",
					Weight:      55,
					ScoringType: domain.ScoringCategorical,
					DataType:    domain.DataCategorical,
					Options: []domain.FactorOption{
						{Label: "excellent", Score: 5},
						{Label: "good", Score: 25},
						{Label: "mixed", Score: 55},
						{Label: "poor", Score: 85},
						{Label: "unknown", Score: 60},
					},
				},
				{
					Name:         "payment_terms",
					Description:  "Net payment terms in days",
					Weight:       45,
					ScoringType:  domain.ScoringLinear,
					DataType:     domain.DataNumeric,
					MinValue:     0,
					MaxValue:     120,
					DefaultValue: 30,
					Formula:      "(value - min) / (max - min) * 100.0",
				},
			},
		},
		{
			Name:        "market",
			Description: "Labor and market conditions",
			Weight:      25,
			SortOrder:   4,
			Factors: []domain.RiskFactor{
				{
					Name:        "market_conditions",
					Description: "Competitive pressure in the bidding market",
					Weight:      50,
					ScoringType: domain.ScoringCategorical,
					DataType:    domain.DataCategorical,
					Options: []domain.FactorOption{
						{Label: "favorable", Score: 15},
						{Label: "neutral", Score: 40},
						{Label: "competitive", Score: 65},
						{Label: "saturated", Score: 85},
					},
				},
				{
					Name:         "labor_availability",
					Description:  "Certified glazier availability, 0 = plentiful, 100 = none",
					Weight:       50,
					ScoringType:  domain.ScoringLinear,
					DataType:     domain.DataPercentage,
					MinValue:     0,
					MaxValue:     100,
					DefaultValue: 40,
					Formula:      "(value - min) / (max - min) * 100.0",
				},
			},
		},
	})
}
