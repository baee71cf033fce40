package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/medsafe-mcp-server/internal/audit"
	"github.com/medsafe-mcp-server/internal/cache"
	"github.com/medsafe-mcp-server/internal/config"
	"github.com/medsafe-mcp-server/internal/domain"
	"github.com/medsafe-mcp-server/internal/knowledge"
	"github.com/medsafe-mcp-server/internal/service"
)

// app holds the wired components shared by every command.
type app struct {
	cfg      *domain.Config
	logger   *logrus.Logger
	registry *knowledge.Registry
	engine   *service.Engine
	assessor domain.Assessor
	audit    audit.Store
	closers  []io.Closer
}

type appOptions struct {
	configFile string
	envFile    string
	logOutput  io.Writer
}

func newApp(opts appOptions) (*app, error) {
	managerOpts := []config.ManagerOption{config.WithEnvFile(opts.envFile)}
	if opts.configFile != "" {
		managerOpts = append(managerOpts, config.WithConfigFile(opts.configFile))
	}
	manager, err := config.NewManager(managerOpts...)
	if err != nil {
		return nil, err
	}
	if err := manager.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	cfg := manager.GetConfig()

	logger, err := config.NewLogger(cfg.Logging, opts.logOutput)
	if err != nil {
		return nil, err
	}
	if used := manager.ConfigFileUsed(); used != "" {
		logger.WithField("config_file", used).Debug("Configuration loaded")
	}

	a := &app{cfg: cfg, logger: logger}

	tables := knowledge.Builtin()
	if path := cfg.Engine.RuleTablesPath; path != "" {
		tables, err = knowledge.LoadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load rule tables: %w", err)
		}
	}
	a.registry = knowledge.NewRegistry(tables, logger)
	logger.WithField("version", tables.Version).Info("Rule tables loaded")

	a.engine, err = service.NewEngine(a.registry, logger, service.WithMaxWorkers(cfg.Engine.MaxWorkers))
	if err != nil {
		return nil, fmt.Errorf("failed to create engine: %w", err)
	}
	a.assessor = a.engine

	if cfg.Cache.Enabled {
		if err := a.setupCache(); err != nil {
			a.Close()
			return nil, err
		}
	}

	if cfg.Audit.Enabled {
		store, err := audit.NewSQLiteStore(cfg.Audit.DBPath)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to open audit store: %w", err)
		}
		a.audit = store
		a.closers = append(a.closers, store)
		logger.WithField("db_path", cfg.Audit.DBPath).Info("Audit trail enabled")
	}

	return a, nil
}

func (a *app) setupCache() error {
	cfg := a.cfg.Cache
	memory, err := cache.NewMemoryCache(cfg.MaxItems, cfg.TTL)
	if err != nil {
		return fmt.Errorf("failed to create memory cache: %w", err)
	}

	var remote cache.Store
	if cfg.RedisURL != "" {
		rc, err := cache.NewRedisCache(cache.RedisConfig{
			URL:     cfg.RedisURL,
			TTL:     cfg.TTL,
			Timeout: cfg.RedisTimeout,
		}, a.logger)
		if err != nil {
			return err
		}
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		if err := rc.Ping(ctx); err != nil {
			a.logger.WithError(err).Warn("Redis unavailable at startup, continuing with the breaker guarding calls")
		}
		cancel()
		remote = rc
		a.closers = append(a.closers, rc)
	}

	tiered := cache.NewTieredCache(memory, remote, a.logger)
	a.assessor = service.NewCachingAssessor(a.engine, tiered, func() string {
		return a.registry.Current().Revision()
	}, a.logger)

	a.logger.WithFields(logrus.Fields{
		"max_items": cfg.MaxItems,
		"ttl":       cfg.TTL,
		"redis":     remote != nil,
	}).Info("Assessment cache enabled")
	return nil
}

// Close releases the cache and audit connections.
func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
