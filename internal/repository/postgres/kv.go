package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"writeflow/internal/domain"
	"writeflow/internal/domain/repositories"
)

// KVStore keeps values as JSONB rows in a prefixed table
type KVStore struct {
	pool      *pgxpool.Pool
	tables    *TableNames
	tx        *txRunner
	logger    *slog.Logger
}

// NewKVStore creates the store and its table if missing
func NewKVStore(ctx context.Context, config *StoreConfig) (*KVStore, error) {
	s := &KVStore{
		pool:      config.Pool,
		tables:    config.Tables,
		tx:        &txRunner{pool: config.Pool, logger: config.Logger},
		logger:    config.Logger,
	}
	if err := s.ensureSchema(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

var _ repositories.KVStore = (*KVStore)(nil)

func (s *KVStore) ensureSchema(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			key TEXT PRIMARY KEY,
			value JSONB NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)
	`, s.tables.KV)

	if _, err := s.pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("create %s: %w", s.tables.KV, err)
	}
	return nil
}

func (s *KVStore) Get(ctx context.Context, key string) ([]byte, error) {
	query := fmt.Sprintf(`SELECT value FROM %s WHERE key = $1`, s.tables.KV)

	var value []byte
	err := executorFor(ctx, s.pool).QueryRow(ctx, query, key).Scan(&value)
	if err != nil {
		if missingRow(err) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get %s: %w", key, err)
	}
	return value, nil
}

func (s *KVStore) Put(ctx context.Context, key string, value []byte) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (key, value, updated_at)
		VALUES ($1, $2::jsonb, $3)
		ON CONFLICT (key) DO UPDATE SET
			value = EXCLUDED.value,
			updated_at = EXCLUDED.updated_at
	`, s.tables.KV)

	// JSONB takes text; pass a string so pgx doesn't send bytea
	if _, err := executorFor(ctx, s.pool).Exec(ctx, query, key, string(value), time.Now()); err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}
	return nil
}

func (s *KVStore) PutMany(ctx context.Context, entries map[string][]byte) error {
	return s.tx.run(ctx, func(txCtx context.Context) error {
		for key, value := range entries {
			if err := s.Put(txCtx, key, value); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *KVStore) Delete(ctx context.Context, key string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE key = $1`, s.tables.KV)
	if _, err := executorFor(ctx, s.pool).Exec(ctx, query, key); err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

func (s *KVStore) Clear(ctx context.Context) error {
	query := fmt.Sprintf(`DELETE FROM %s`, s.tables.KV)
	tag, err := executorFor(ctx, s.pool).Exec(ctx, query)
	if err != nil {
		return fmt.Errorf("clear: %w", err)
	}
	s.logger.Info("postgres store cleared", "table", s.tables.KV, "rows", tag.RowsAffected())
	return nil
}

// Close releases the pool
func (s *KVStore) Close() error {
	s.pool.Close()
	return nil
}
