package domain

import (
	"context"
	"time"
)

// Repository defines the interface for data persistence. It backs the two
// read-only collaborators the pricing pipeline consumes (the risk factor
// catalog and the historical market data source) plus calculation history.
type Repository interface {
	// Market data operations
	SaveMarketRecord(ctx context.Context, rec *MarketDataRecord) error
	GetMarketRecords(ctx context.Context, filter MarketDataFilter) ([]MarketDataRecord, error)

	// Risk factor catalog operations
	SaveCategory(ctx context.Context, category *RiskCategory) error
	GetFactor(ctx context.Context, name string) (*RiskFactor, error)
	ListCategories(ctx context.Context) ([]*RiskCategory, error)

	// Calculation history operations
	SaveCalculation(ctx context.Context, rec *CalculationRecord) error
	ListCalculations(ctx context.Context, region string, since time.Time) ([]*CalculationRecord, error)

	// Health check
	Ping(ctx context.Context) error

	// Lifecycle
	Close() error
}

// RepositoryConfig holds configuration for repository initialization.
type RepositoryConfig struct {
	// Driver is the database driver: "sqlite" or "postgres"
	Driver string

	// SQLite specific
	SQLitePath string

	// PostgreSQL specific
	PostgresHost     string
	PostgresPort     int
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	// Connection pool settings
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}
