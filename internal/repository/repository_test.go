package repository

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/ArcadeBob/clean-glass-proposal-app-sub001/internal/domain"
)

func TestSQLiteRepository(t *testing.T) {
	// Create temp database file
	tmpFile, err := os.CreateTemp("", "glasspricer-test-*.db")
	if err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}
	tmpPath := tmpFile.Name()
	tmpFile.Close()
	defer os.Remove(tmpPath)

	cfg := domain.RepositoryConfig{
		Driver:     "sqlite",
		SQLitePath: tmpPath,
	}

	repo, err := New(cfg)
	if err != nil {
		t.Fatalf("failed to create repository: %v", err)
	}
	defer repo.Close()

	ctx := context.Background()

	t.Run("Ping", func(t *testing.T) {
		if err := repo.Ping(ctx); err != nil {
			t.Errorf("Ping failed: %v", err)
		}
	})

	t.Run("SaveAndGetMarketRecords", func(t *testing.T) {
		rec := &domain.MarketDataRecord{
			ID:            "mkt-001",
			Region:        "northeast",
			Value:         48.50,
			Unit:          "sqft",
			ProjectType:   "commercial",
			Source:        "vendor-survey",
			EffectiveDate: time.Now().UTC(),
		}

		if err := repo.SaveMarketRecord(ctx, rec); err != nil {
			t.Fatalf("SaveMarketRecord failed: %v", err)
		}

		records, err := repo.GetMarketRecords(ctx, domain.MarketDataFilter{Region: "northeast"})
		if err != nil {
			t.Fatalf("GetMarketRecords failed: %v", err)
		}
		if len(records) != 1 {
			t.Fatalf("expected 1 record, got %d", len(records))
		}
		if records[0].Value != rec.Value {
			t.Errorf("expected Value %.2f, got %.2f", rec.Value, records[0].Value)
		}
		if records[0].ProjectType != rec.ProjectType {
			t.Errorf("expected ProjectType %s, got %s", rec.ProjectType, records[0].ProjectType)
		}
	})

	t.Run("MarketRecordFiltering", func(t *testing.T) {
		other := &domain.MarketDataRecord{
			ID:            "mkt-002",
			Region:        "southwest",
			Value:         39.00,
			Unit:          "sqft",
			ProjectType:   "residential",
			Source:        "vendor-survey",
			EffectiveDate: time.Now().UTC(),
		}
		if err := repo.SaveMarketRecord(ctx, other); err != nil {
			t.Fatalf("SaveMarketRecord failed: %v", err)
		}

		records, err := repo.GetMarketRecords(ctx, domain.MarketDataFilter{
			Region:      "northeast",
			ProjectType: "residential",
		})
		if err != nil {
			t.Fatalf("GetMarketRecords failed: %v", err)
		}
		if len(records) != 0 {
			t.Errorf("cross-region filter leaked %d records", len(records))
		}

		records, err = repo.GetRecords(ctx, domain.MarketDataFilter{Region: "southwest"})
		if err != nil {
			t.Fatalf("GetRecords failed: %v", err)
		}
		if len(records) != 1 || records[0].ID != "mkt-002" {
			t.Errorf("expected mkt-002, got %+v", records)
		}
	})

	t.Run("RequiresMarketRecordFields", func(t *testing.T) {
		err := repo.SaveMarketRecord(ctx, &domain.MarketDataRecord{Region: "northeast"})
		if !errors.Is(err, ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput for missing id, got: %v", err)
		}
		err = repo.SaveMarketRecord(ctx, &domain.MarketDataRecord{ID: "mkt-x"})
		if !errors.Is(err, ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput for missing region, got: %v", err)
		}
	})

	t.Run("SaveAndListCategories", func(t *testing.T) {
		cat := &domain.RiskCategory{
			Name:        "technical",
			Description: "Engineering difficulty",
			Weight:      30,
			SortOrder:   1,
			Factors: []domain.RiskFactor{
				{
					Name:        "technical_complexity",
					Weight:      40,
					ScoringType: domain.ScoringCategorical,
					DataType:    domain.DataCategorical,
					Options: []domain.FactorOption{
						{Label: "standard storefront", Score: 15},
						{Label: "curtain wall", Score: 45},
					},
				},
				{
					Name:         "building_height",
					Weight:       35,
					ScoringType:  domain.ScoringExponential,
					DataType:     domain.DataNumeric,
					MinValue:     0,
					MaxValue:     400,
					DefaultValue: 30,
					Formula:      "pow((value - min) / (max - min), 1.8) * 100.0",
				},
			},
		}

		if err := repo.SaveCategory(ctx, cat); err != nil {
			t.Fatalf("SaveCategory failed: %v", err)
		}

		categories, err := repo.ListCategories(ctx)
		if err != nil {
			t.Fatalf("ListCategories failed: %v", err)
		}
		if len(categories) != 1 {
			t.Fatalf("expected 1 category, got %d", len(categories))
		}
		if len(categories[0].Factors) != 2 {
			t.Errorf("expected 2 factors, got %d", len(categories[0].Factors))
		}
		if categories[0].Factors[0].Category != "technical" {
			t.Errorf("factor category not populated: %q", categories[0].Factors[0].Category)
		}
	})

	t.Run("SaveCategoryUpsert", func(t *testing.T) {
		cat := &domain.RiskCategory{
			Name:      "technical",
			Weight:    35,
			SortOrder: 1,
			Factors: []domain.RiskFactor{
				{Name: "technical_complexity", Weight: 100,
					ScoringType: domain.ScoringCategorical, DataType: domain.DataCategorical},
			},
		}
		if err := repo.SaveCategory(ctx, cat); err != nil {
			t.Fatalf("SaveCategory upsert failed: %v", err)
		}

		categories, err := repo.ListCategories(ctx)
		if err != nil {
			t.Fatalf("ListCategories failed: %v", err)
		}
		if len(categories) != 1 {
			t.Fatalf("upsert created a duplicate: %d categories", len(categories))
		}
		if categories[0].Weight != 35 {
			t.Errorf("expected updated weight 35, got %v", categories[0].Weight)
		}
		if len(categories[0].Factors) != 1 {
			t.Errorf("expected factors replaced wholesale, got %d", len(categories[0].Factors))
		}
	})

	t.Run("GetFactor", func(t *testing.T) {
		factor, err := repo.GetFactor(ctx, "Technical_Complexity")
		if err != nil {
			t.Fatalf("GetFactor failed: %v", err)
		}
		if factor.Name != "technical_complexity" {
			t.Errorf("expected technical_complexity, got %s", factor.Name)
		}

		_, err = repo.GetFactor(ctx, "nonexistent")
		if !errors.Is(err, domain.ErrFactorNotFound) {
			t.Errorf("expected ErrFactorNotFound, got: %v", err)
		}
	})

	t.Run("SaveAndListCalculations", func(t *testing.T) {
		rec := &domain.CalculationRecord{
			ID:                "calc-001",
			ProjectType:       "commercial",
			Region:            "northeast",
			BaseCost:          50000,
			TotalCost:         71500,
			Method:            domain.MethodEnhanced,
			RiskLevel:         domain.RiskMedium,
			WinProbability:    62,
			CostPerSquareFoot: 5.96,
			Status:            domain.ProposalPending,
			CreatedAt:         time.Now().UTC(),
		}

		if err := repo.SaveCalculation(ctx, rec); err != nil {
			t.Fatalf("SaveCalculation failed: %v", err)
		}

		since := time.Now().Add(-1 * time.Hour)
		records, err := repo.ListCalculations(ctx, "northeast", since)
		if err != nil {
			t.Fatalf("ListCalculations failed: %v", err)
		}
		if len(records) != 1 {
			t.Fatalf("expected 1 calculation, got %d", len(records))
		}
		if records[0].RiskLevel != domain.RiskMedium {
			t.Errorf("expected risk level MEDIUM, got %s", records[0].RiskLevel)
		}
		if records[0].TotalCost != rec.TotalCost {
			t.Errorf("expected TotalCost %.2f, got %.2f", rec.TotalCost, records[0].TotalCost)
		}

		// Empty region matches everything.
		all, err := repo.ListCalculations(ctx, "", since)
		if err != nil {
			t.Fatalf("ListCalculations failed: %v", err)
		}
		if len(all) != 1 {
			t.Errorf("expected 1 calculation for all regions, got %d", len(all))
		}

		none, err := repo.ListCalculations(ctx, "southwest", since)
		if err != nil {
			t.Fatalf("ListCalculations failed: %v", err)
		}
		if len(none) != 0 {
			t.Errorf("region filter leaked %d calculations", len(none))
		}
	})
}

func TestUnsupportedDriver(t *testing.T) {
	cfg := domain.RepositoryConfig{
		Driver: "mysql",
	}

	_, err := New(cfg)
	if err == nil {
		t.Error("expected error for unsupported driver")
	}
}

func TestRebind(t *testing.T) {
	repo := &SQLRepository{driver: "postgres"}

	tests := []struct {
		input    string
		expected string
	}{
		{"SELECT * FROM t WHERE id = ?", "SELECT * FROM t WHERE id = $1"},
		{"INSERT INTO t (a, b) VALUES (?, ?)", "INSERT INTO t (a, b) VALUES ($1, $2)"},
		{"SELECT * FROM t", "SELECT * FROM t"},
	}

	for _, tt := range tests {
		result := repo.rebind(tt.input)
		if result != tt.expected {
			t.Errorf("rebind(%q) = %q, want %q", tt.input, result, tt.expected)
		}
	}
}
