package repository

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"writeflow/internal/config"
	"writeflow/internal/domain/repositories"
	"writeflow/internal/repository/file"
	"writeflow/internal/repository/memory"
	"writeflow/internal/repository/postgres"
	"writeflow/internal/repository/sqlite"
)

// Open returns the durable store selected by cfg.StorageDriver
func Open(ctx context.Context, cfg *config.Config, logger *slog.Logger) (repositories.KVStore, error) {
	switch cfg.StorageDriver {
	case config.DriverFile:
		return file.NewKVStore(cfg.DataFile("workspace.json"), logger)

	case config.DriverSQLite:
		if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
			return nil, fmt.Errorf("create data directory: %w", err)
		}
		return sqlite.NewKVStore(cfg.DataFile("writeflow.db"), logger)

	case config.DriverPostgres:
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required for the postgres driver")
		}
		pool, err := postgres.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		store, err := postgres.NewKVStore(ctx, &postgres.StoreConfig{
			Pool:   pool,
			Tables: postgres.NewTableNames(cfg.TablePrefix),
			Logger: logger,
		})
		if err != nil {
			pool.Close()
			return nil, err
		}
		return store, nil

	case config.DriverMemory:
		logger.Warn("using in-memory storage; nothing will be saved")
		return memory.NewKVStore(), nil

	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
	}
}
