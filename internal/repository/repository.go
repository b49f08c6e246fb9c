// Package repository provides data persistence implementations.
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ArcadeBob/clean-glass-proposal-app-sub001/internal/domain"
)

var (
	ErrNotFound     = errors.New("record not found")
	ErrInvalidInput = errors.New("invalid input")
)

// SQLRepository implements domain.Repository using database/sql.
// Works with both SQLite and PostgreSQL drivers. It also satisfies
// domain.RiskFactorCatalog and domain.HistoricalMarketDataSource, so the
// pricing pipeline can read its catalog and market history straight from
// the database.
type SQLRepository struct {
	db     *sql.DB
	driver string
}

// New creates a new repository based on configuration.
func New(cfg domain.RepositoryConfig) (*SQLRepository, error) {
	var db *sql.DB
	var err error

	switch cfg.Driver {
	case "sqlite":
		db, err = openSQLite(cfg)
	case "postgres":
		db, err = openPostgres(cfg)
	default:
		return nil, fmt.Errorf("unsupported driver: %s", cfg.Driver)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	repo := &SQLRepository{
		db:     db,
		driver: cfg.Driver,
	}

	// Run migrations
	if err := repo.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return repo, nil
}

func (r *SQLRepository) migrate() error {
	for _, schema := range AllSchemas() {
		if _, err := r.db.Exec(schema); err != nil {
			return err
		}
	}
	return nil
}

// SaveMarketRecord stores one historical market reference point.
func (r *SQLRepository) SaveMarketRecord(ctx context.Context, rec *domain.MarketDataRecord) error {
	if rec.ID == "" {
		return fmt.Errorf("%w: record id is required", ErrInvalidInput)
	}
	if rec.Region == "" {
		return fmt.Errorf("%w: region is required", ErrInvalidInput)
	}

	query := `
		INSERT INTO market_records (
			id, region, value, unit, project_type, source, effective_date, notes
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, r.rebind(query),
		rec.ID, rec.Region, rec.Value, rec.Unit,
		rec.ProjectType, rec.Source, rec.EffectiveDate, rec.Notes,
	)
	return err
}

// GetMarketRecords retrieves historical records matching the filter,
// newest first.
func (r *SQLRepository) GetMarketRecords(ctx context.Context, filter domain.MarketDataFilter) ([]domain.MarketDataRecord, error) {
	query := `
		SELECT id, region, value, unit, project_type, source, effective_date, notes
		FROM market_records
		WHERE 1 = 1
	`
	var args []any

	if filter.Region != "" {
		query += " AND region = ?"
		args = append(args, filter.Region)
	}
	if filter.ProjectType != "" {
		query += " AND project_type = ?"
		args = append(args, filter.ProjectType)
	}
	if !filter.Since.IsZero() {
		query += " AND effective_date >= ?"
		args = append(args, filter.Since)
	}
	query += " ORDER BY effective_date DESC"

	rows, err := r.db.QueryContext(ctx, r.rebind(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []domain.MarketDataRecord
	for rows.Next() {
		var rec domain.MarketDataRecord
		var projectType, notes sql.NullString

		if err := rows.Scan(
			&rec.ID, &rec.Region, &rec.Value, &rec.Unit,
			&projectType, &rec.Source, &rec.EffectiveDate, &notes,
		); err != nil {
			return nil, err
		}

		rec.ProjectType = projectType.String
		rec.Notes = notes.String
		records = append(records, rec)
	}

	return records, rows.Err()
}

// GetRecords satisfies domain.HistoricalMarketDataSource.
func (r *SQLRepository) GetRecords(ctx context.Context, filter domain.MarketDataFilter) ([]domain.MarketDataRecord, error) {
	return r.GetMarketRecords(ctx, filter)
}

// SaveCategory stores a risk category with its factor definitions.
// Saving an existing category replaces it wholesale.
func (r *SQLRepository) SaveCategory(ctx context.Context, category *domain.RiskCategory) error {
	if category.Name == "" {
		return fmt.Errorf("%w: category name is required", ErrInvalidInput)
	}

	factors, _ := json.Marshal(category.Factors)
	now := time.Now().UTC()

	query := `
		INSERT INTO risk_categories (
			name, description, weight, sort_order, factors, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			description = excluded.description,
			weight = excluded.weight,
			sort_order = excluded.sort_order,
			factors = excluded.factors,
			updated_at = excluded.updated_at
	`

	_, err := r.db.ExecContext(ctx, r.rebind(query),
		category.Name, category.Description, category.Weight,
		category.SortOrder, string(factors), now, now,
	)
	return err
}

// ListCategories retrieves all risk categories with their factors,
// ordered by sort order. Satisfies domain.RiskFactorCatalog.
func (r *SQLRepository) ListCategories(ctx context.Context) ([]*domain.RiskCategory, error) {
	query := `
		SELECT name, description, weight, sort_order, factors
		FROM risk_categories
		ORDER BY sort_order, name
	`

	rows, err := r.db.QueryContext(ctx, r.rebind(query))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var categories []*domain.RiskCategory
	for rows.Next() {
		var cat domain.RiskCategory
		var description sql.NullString
		var factors string

		if err := rows.Scan(
			&cat.Name, &description, &cat.Weight, &cat.SortOrder, &factors,
		); err != nil {
			return nil, err
		}

		cat.Description = description.String
		if err := json.Unmarshal([]byte(factors), &cat.Factors); err != nil {
			return nil, fmt.Errorf("failed to parse factors for category %s: %w", cat.Name, err)
		}
		for i := range cat.Factors {
			cat.Factors[i].Category = cat.Name
		}
		categories = append(categories, &cat)
	}

	return categories, rows.Err()
}

// GetFactor retrieves one factor definition by name (case-insensitive).
// Satisfies domain.RiskFactorCatalog.
func (r *SQLRepository) GetFactor(ctx context.Context, name string) (*domain.RiskFactor, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: factor name is required", ErrInvalidInput)
	}

	// The catalog is a handful of categories; scanning it beats a
	// factor-level table that would complicate every catalog write.
	categories, err := r.ListCategories(ctx)
	if err != nil {
		return nil, err
	}

	for _, cat := range categories {
		for i := range cat.Factors {
			if strings.EqualFold(cat.Factors[i].Name, name) {
				return &cat.Factors[i], nil
			}
		}
	}
	return nil, domain.ErrFactorNotFound
}

// SaveCalculation stores a completed calculation summary row.
func (r *SQLRepository) SaveCalculation(ctx context.Context, rec *domain.CalculationRecord) error {
	if rec.ID == "" {
		return fmt.Errorf("%w: calculation id is required", ErrInvalidInput)
	}

	query := `
		INSERT INTO calculations (
			id, project_type, region, base_cost, total_cost, method,
			risk_level, win_probability, cost_per_square_foot, status, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, r.rebind(query),
		rec.ID, rec.ProjectType, rec.Region,
		rec.BaseCost, rec.TotalCost, rec.Method,
		string(rec.RiskLevel), rec.WinProbability, rec.CostPerSquareFoot,
		rec.Status, rec.CreatedAt,
	)
	return err
}

// ListCalculations retrieves calculation history for a region since the
// given time, newest first. Empty region matches all regions.
func (r *SQLRepository) ListCalculations(ctx context.Context, region string, since time.Time) ([]*domain.CalculationRecord, error) {
	query := `
		SELECT id, project_type, region, base_cost, total_cost, method,
			   risk_level, win_probability, cost_per_square_foot, status, created_at
		FROM calculations
		WHERE created_at >= ?
	`
	args := []any{since}

	if region != "" {
		query += " AND region = ?"
		args = append(args, region)
	}
	query += " ORDER BY created_at DESC"

	rows, err := r.db.QueryContext(ctx, r.rebind(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*domain.CalculationRecord
	for rows.Next() {
		var rec domain.CalculationRecord
		var projectType, regionCol, riskLevel sql.NullString
		var costPerSqFt sql.NullFloat64

		if err := rows.Scan(
			&rec.ID, &projectType, &regionCol,
			&rec.BaseCost, &rec.TotalCost, &rec.Method,
			&riskLevel, &rec.WinProbability, &costPerSqFt,
			&rec.Status, &rec.CreatedAt,
		); err != nil {
			return nil, err
		}

		rec.ProjectType = projectType.String
		rec.Region = regionCol.String
		rec.RiskLevel = domain.RiskLevel(riskLevel.String)
		rec.CostPerSquareFoot = costPerSqFt.Float64
		records = append(records, &rec)
	}

	return records, rows.Err()
}

// Ping checks database connectivity.
func (r *SQLRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Close closes the database connection.
func (r *SQLRepository) Close() error {
	return r.db.Close()
}

// rebind converts ? placeholders to $1, $2, etc. for PostgreSQL.
func (r *SQLRepository) rebind(query string) string {
	if r.driver != "postgres" {
		return query
	}

	// Convert ? to $1, $2, etc.
	var result []byte
	n := 1
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			result = append(result, '$')
			result = append(result, fmt.Sprintf("%d", n)...)
			n++
		} else {
			result = append(result, query[i])
		}
	}
	return string(result)
}
