package domain

import "time"

// Config holds the complete pricing service configuration.
type Config struct {
	// Server settings
	Server ServerConfig `json:"server"`

	// Profile determines the deployment shape
	Profile Profile `json:"profile"`

	// Component configurations
	Repository RepositoryConfig `json:"repository"`
	Cache      CacheConfig      `json:"cache"`
	EventBus   EventBusConfig   `json:"eventBus"`

	// Pricing settings
	Pricing PricingConfig `json:"pricing"`

	// Observability
	Logging LoggingConfig `json:"logging"`
	Tracing TracingConfig `json:"tracing"`
}

// PricingConfig holds the tunable parts of the calculation pipeline.
type PricingConfig struct {
	// DefaultOverheadRate is used when no overhead tiers are configured.
	DefaultOverheadRate float64 `json:"defaultOverheadRate"`

	// MinMargin/MaxMargin bound the risk-adjusted profit margin (percent).
	MinMargin float64 `json:"minMargin"`
	MaxMargin float64 `json:"maxMargin"`

	// AuditLogMaxEntries bounds the in-memory calculation audit log.
	AuditLogMaxEntries int `json:"auditLogMaxEntries"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host         string `json:"host"`
	Port         int    `json:"port"`
	ReadTimeout  int    `json:"readTimeout"`  // seconds
	WriteTimeout int    `json:"writeTimeout"` // seconds
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `json:"level"`  // debug, info, warn, error
	Format string `json:"format"` // json, text
}

// TracingConfig holds OpenTelemetry settings.
type TracingConfig struct {
	Enabled      bool   `json:"enabled"`
	ServiceName  string `json:"serviceName"`
	ExporterType string `json:"exporterType"` // stdout, otlp
	Endpoint     string `json:"endpoint"`
}

// Profile represents the deployment profile.
type Profile string

const (
	// ProfileStandalone runs on SQLite + in-process channels + LRU cache.
	ProfileStandalone Profile = "standalone"

	// ProfileDistributed runs on PostgreSQL + NATS + Redis.
	ProfileDistributed Profile = "distributed"
)

// DefaultConfig returns the standalone profile configuration.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			ReadTimeout:  30,
			WriteTimeout: 30,
		},
		Profile: ProfileStandalone,
		Repository: RepositoryConfig{
			Driver:     "sqlite",
			SQLitePath: "./glasspricer.db",
		},
		Cache: CacheConfig{
			Type:         "memory",
			LocalMaxSize: 10000,
			LocalTTL:     5 * time.Minute,
		},
		EventBus: EventBusConfig{
			Type:              "channel",
			ChannelBufferSize: 1000,
		},
		Pricing: PricingConfig{
			DefaultOverheadRate: 0.15,
			MinMargin:           8,
			MaxMargin:           35,
			AuditLogMaxEntries:  1000,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Tracing: TracingConfig{
			Enabled:     false,
			ServiceName: "glasspricer",
		},
	}
}

// DistributedConfig returns a configuration for multi-node deployments.
func DistributedConfig() *Config {
	cfg := DefaultConfig()
	cfg.Profile = ProfileDistributed
	cfg.Repository = RepositoryConfig{
		Driver:       "postgres",
		PostgresHost: "localhost",
		PostgresPort: 5432,
		PostgresDB:   "glasspricer",
	}
	cfg.Cache = CacheConfig{
		Type:           "redis",
		RedisAddr:      "localhost:6379",
		EnableTwoPhase: true,
		LocalMaxSize:   1000,
	}
	cfg.EventBus = EventBusConfig{
		Type:              "nats",
		NATSUrl:           "nats://localhost:4222",
		NATSMaxReconnects: 10,
		NATSReconnectWait: 5,
	}
	cfg.Tracing.Enabled = true
	return cfg
}
