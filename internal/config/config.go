// Package config loads server configuration from a YAML file, MEDSAFE_
// environment variables and a .env file, in rising order of precedence for
// the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/medsafe-mcp-server/internal/domain"
)

// EnvPrefix prefixes every environment override, e.g. MEDSAFE_CACHE_REDIS_URL.
const EnvPrefix = "MEDSAFE"

// Manager implements the ConfigManager interface using Viper
type Manager struct {
	v          *viper.Viper
	configFile string
	envFile    string
	config     *domain.Config
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithConfigFile reads an explicit file instead of searching for config.yaml.
func WithConfigFile(path string) ManagerOption {
	return func(m *Manager) {
		m.configFile = path
	}
}

// WithEnvFile loads variables from a dotenv file before reading the
// environment. A missing file is ignored.
func WithEnvFile(path string) ManagerOption {
	return func(m *Manager) {
		m.envFile = path
	}
}

// NewManager creates a new configuration manager
func NewManager(opts ...ManagerOption) (*Manager, error) {
	m := &Manager{envFile: ".env"}
	for _, opt := range opts {
		opt(m)
	}
	if err := m.loadConfig(); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return m, nil
}

func (m *Manager) loadConfig() error {
	if m.envFile != "" {
		if err := godotenv.Load(m.envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("error reading env file: %w", err)
		}
	}

	v := viper.New()
	if m.configFile != "" {
		v.SetConfigFile(m.configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/medsafe/")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	config := &domain.Config{}
	if err := v.Unmarshal(config); err != nil {
		return fmt.Errorf("error unmarshaling config: %w", err)
	}

	m.v = v
	m.config = config
	return nil
}

// setDefaults registers every key so AutomaticEnv can override it.
func setDefaults(v *viper.Viper) {
	d := Defaults()

	v.SetDefault("engine.max_workers", d.Engine.MaxWorkers)
	v.SetDefault("engine.rule_tables_path", d.Engine.RuleTablesPath)
	v.SetDefault("engine.watch_rule_tables", d.Engine.WatchRuleTables)

	v.SetDefault("cache.enabled", d.Cache.Enabled)
	v.SetDefault("cache.max_items", d.Cache.MaxItems)
	v.SetDefault("cache.ttl", d.Cache.TTL)
	v.SetDefault("cache.redis_url", d.Cache.RedisURL)
	v.SetDefault("cache.redis_timeout", d.Cache.RedisTimeout)

	v.SetDefault("audit.enabled", d.Audit.Enabled)
	v.SetDefault("audit.db_path", d.Audit.DBPath)

	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)

	v.SetDefault("mcp.server_name", d.MCP.ServerName)
	v.SetDefault("mcp.server_version", d.MCP.ServerVersion)
	v.SetDefault("mcp.transport", d.MCP.Transport)
	v.SetDefault("mcp.requests_per_second", d.MCP.RequestsPerSecond)
	v.SetDefault("mcp.burst", d.MCP.Burst)
}

// GetConfig returns the complete configuration
func (m *Manager) GetConfig() *domain.Config {
	return m.config
}

// GetEngineConfig returns engine configuration
func (m *Manager) GetEngineConfig() *domain.EngineConfig {
	return &m.config.Engine
}

// GetCacheConfig returns cache configuration
func (m *Manager) GetCacheConfig() *domain.CacheConfig {
	return &m.config.Cache
}

// ConfigFileUsed reports the file that was read, or "" when running on
// defaults and environment only.
func (m *Manager) ConfigFileUsed() string {
	return m.v.ConfigFileUsed()
}

// Reload reloads the configuration
func (m *Manager) Reload() error {
	return m.loadConfig()
}

// Validate validates the configuration
func (m *Manager) Validate() error {
	return Validate(m.config)
}

// Validate checks ranges and enumerations.
func Validate(config *domain.Config) error {
	if config.Engine.MaxWorkers <= 0 {
		return fmt.Errorf("invalid engine max_workers: %d", config.Engine.MaxWorkers)
	}
	if config.Engine.WatchRuleTables && config.Engine.RuleTablesPath == "" {
		return fmt.Errorf("engine.watch_rule_tables requires engine.rule_tables_path")
	}

	if config.Cache.Enabled {
		if config.Cache.MaxItems <= 0 {
			return fmt.Errorf("invalid cache max_items: %d", config.Cache.MaxItems)
		}
		if config.Cache.TTL <= 0 {
			return fmt.Errorf("invalid cache ttl: %s", config.Cache.TTL)
		}
		if config.Cache.RedisURL != "" && config.Cache.RedisTimeout <= 0 {
			return fmt.Errorf("invalid cache redis_timeout: %s", config.Cache.RedisTimeout)
		}
	}

	if config.Audit.Enabled && config.Audit.DBPath == "" {
		return fmt.Errorf("audit db_path is required when audit is enabled")
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true, "fatal": true, "panic": true,
	}
	if !validLogLevels[strings.ToLower(config.Logging.Level)] {
		return fmt.Errorf("invalid log level: %s", config.Logging.Level)
	}
	switch strings.ToLower(config.Logging.Format) {
	case "json", "text":
	default:
		return fmt.Errorf("invalid log format: %s", config.Logging.Format)
	}

	if config.MCP.ServerName == "" {
		return fmt.Errorf("mcp server_name is required")
	}
	if config.MCP.Transport != "stdio" {
		return fmt.Errorf("unsupported mcp transport: %s", config.MCP.Transport)
	}
	if config.MCP.RequestsPerSecond <= 0 {
		return fmt.Errorf("invalid mcp requests_per_second: %v", config.MCP.RequestsPerSecond)
	}
	if config.MCP.Burst <= 0 {
		return fmt.Errorf("invalid mcp burst: %d", config.MCP.Burst)
	}

	return nil
}
