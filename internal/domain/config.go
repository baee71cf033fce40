package domain

import "time"

// Config represents the main application configuration
type Config struct {
	Engine  EngineConfig  `mapstructure:"engine"`
	Cache   CacheConfig   `mapstructure:"cache"`
	Audit   AuditConfig   `mapstructure:"audit"`
	Logging LoggingConfig `mapstructure:"logging"`
	MCP     MCPConfig     `mapstructure:"mcp"`
}

// EngineConfig controls evaluation and rule table loading
type EngineConfig struct {
	MaxWorkers      int    `mapstructure:"max_workers"`
	RuleTablesPath  string `mapstructure:"rule_tables_path"`
	WatchRuleTables bool   `mapstructure:"watch_rule_tables"`
}

// CacheConfig represents assessment cache configuration
type CacheConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	MaxItems     int           `mapstructure:"max_items"`
	TTL          time.Duration `mapstructure:"ttl"`
	RedisURL     string        `mapstructure:"redis_url"`
	RedisTimeout time.Duration `mapstructure:"redis_timeout"`
}

// AuditConfig controls the assessment audit trail
type AuditConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	DBPath  string `mapstructure:"db_path"`
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// MCPConfig represents MCP server configuration
type MCPConfig struct {
	ServerName        string  `mapstructure:"server_name"`
	ServerVersion     string  `mapstructure:"server_version"`
	Transport         string  `mapstructure:"transport"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`
}
