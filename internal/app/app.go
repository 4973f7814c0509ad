// Package app assembles the engine from configuration.
package app

import (
	"fmt"

	"go.uber.org/zap"

	"taskflow/internal/config"
	"taskflow/internal/db"
	"taskflow/internal/engine"
	"taskflow/internal/migrate"
	"taskflow/internal/repo"
)

// OpenStore opens the configured backend. SQL backends are migrated before use.
func OpenStore(cfg *config.Config, logger *zap.Logger) (repo.Repository, error) {
	switch cfg.Store.Driver {
	case config.DriverFile:
		r, err := repo.NewFile(cfg.Store.DataDir)
		if err != nil {
			return nil, err
		}
		logger.Info("store opened", zap.String("driver", cfg.Store.Driver), zap.String("dir", cfg.Store.DataDir))
		return r, nil
	case config.DriverSQLite, config.DriverPostgres:
		dialect := db.SQLite
		if cfg.Store.Driver == config.DriverPostgres {
			dialect = db.Postgres
		}
		conn, err := db.Open(db.Config{Dialect: dialect, DataDir: cfg.Store.DataDir, DSN: cfg.Store.DSN})
		if err != nil {
			return nil, err
		}
		if err := migrate.Migrate(conn); err != nil {
			conn.Close()
			return nil, fmt.Errorf("migrate: %w", err)
		}
		v, _ := migrate.Version(conn)
		logger.Info("store opened", zap.String("driver", cfg.Store.Driver), zap.Int("schema_version", v))
		return repo.NewSQL(conn), nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}

// ActivityLimit is the activity cap applied for the configured driver. SQL
// stores keep the whole log.
func ActivityLimit(cfg *config.Config) int {
	if cfg.Store.Driver == config.DriverFile {
		return cfg.Activity.MaxEntries
	}
	return 0
}

// NewEngine opens the store and wires an engine over it. Close the returned
// engine's Repo when done.
func NewEngine(cfg *config.Config, logger *zap.Logger) (engine.Engine, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	r, err := OpenStore(cfg, logger)
	if err != nil {
		return engine.Engine{}, err
	}
	return engine.New(r, cfg.History.Capacity, ActivityLimit(cfg), logger), nil
}
