package repository

// Schema definitions for the pricing database.
// Compatible with both SQLite and PostgreSQL.

const schemaMarketRecords = `
CREATE TABLE IF NOT EXISTS market_records (
    id TEXT PRIMARY KEY,
    region TEXT NOT NULL,
    value REAL NOT NULL,
    unit TEXT NOT NULL,
    project_type TEXT,
    source TEXT NOT NULL,
    effective_date TIMESTAMP NOT NULL,
    notes TEXT
);

CREATE INDEX IF NOT EXISTS idx_market_records_region ON market_records(region);
CREATE INDEX IF NOT EXISTS idx_market_records_type ON market_records(region, project_type);
CREATE INDEX IF NOT EXISTS idx_market_records_date ON market_records(region, effective_date);
`

// Factors are stored as a JSON document per category; the catalog is small
// and always read whole, so per-factor rows buy nothing.
const schemaRiskCategories = `
CREATE TABLE IF NOT EXISTS risk_categories (
    name TEXT PRIMARY KEY,
    description TEXT,
    weight REAL NOT NULL,
    sort_order INTEGER NOT NULL DEFAULT 0,
    factors TEXT NOT NULL,
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_risk_categories_order ON risk_categories(sort_order);
`

const schemaCalculations = `
CREATE TABLE IF NOT EXISTS calculations (
    id TEXT PRIMARY KEY,
    project_type TEXT,
    region TEXT,
    base_cost REAL NOT NULL,
    total_cost REAL NOT NULL,
    method TEXT NOT NULL,
    risk_level TEXT,
    win_probability REAL NOT NULL,
    cost_per_square_foot REAL,
    status TEXT NOT NULL,
    created_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_calculations_region ON calculations(region);
CREATE INDEX IF NOT EXISTS idx_calculations_created ON calculations(region, created_at);
CREATE INDEX IF NOT EXISTS idx_calculations_status ON calculations(status);
`

// AllSchemas returns all schema statements in order.
func AllSchemas() []string {
	return []string{
		schemaMarketRecords,
		schemaRiskCategories,
		schemaCalculations,
	}
}
