package config

import (
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/medsafe-mcp-server/internal/domain"
)

// DefaultDataDir is where the audit database lives unless configured.
func DefaultDataDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil || homeDir == "" {
		return ".medsafe"
	}
	return filepath.Join(homeDir, ".medsafe")
}

// Defaults returns a configuration that needs no external services: memory
// cache only, audit trail off, stdio transport.
func Defaults() *domain.Config {
	return &domain.Config{
		Engine: domain.EngineConfig{
			MaxWorkers: runtime.NumCPU(),
		},
		Cache: domain.CacheConfig{
			Enabled:      true,
			MaxItems:     1000,
			TTL:          15 * time.Minute,
			RedisTimeout: 200 * time.Millisecond,
		},
		Audit: domain.AuditConfig{
			DBPath: filepath.Join(DefaultDataDir(), "audit.db"),
		},
		Logging: domain.LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		MCP: domain.MCPConfig{
			ServerName:        "medsafe-mcp-server",
			ServerVersion:     "1.0.0",
			Transport:         "stdio",
			RequestsPerSecond: 20,
			Burst:             40,
		},
	}
}
