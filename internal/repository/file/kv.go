package file

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"writeflow/internal/domain"
	"writeflow/internal/domain/repositories"

	"github.com/gofrs/flock"
)

const lockTimeout = 3 * time.Second

// KVStore keeps every key in one JSON document on disk. Each write takes an
// exclusive file lock so the CLI and the server can share a data directory,
// and lands through a temp file rename so readers never see half a document.
// Values must themselves be JSON.
type KVStore struct {
	filePath string
	fileLock *flock.Flock
	mu       sync.Mutex
	logger   *slog.Logger
}

// NewKVStore creates a store at filePath, creating its directory
func NewKVStore(filePath string, logger *slog.Logger) (*KVStore, error) {
	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}

	return &KVStore{
		filePath: filePath,
		fileLock: flock.New(filePath + ".lock"),
		logger:   logger,
	}, nil
}

var _ repositories.KVStore = (*KVStore)(nil)

func (s *KVStore) Get(ctx context.Context, key string) ([]byte, error) {
	// The file lock is per process, so in-process callers serialize here
	s.mu.Lock()
	defer s.mu.Unlock()

	var value []byte
	err := s.withLock(ctx, func() error {
		doc, err := s.read()
		if err != nil {
			return err
		}
		v, ok := doc[key]
		if !ok {
			return domain.ErrNotFound
		}
		value = v
		return nil
	})
	return value, err
}

func (s *KVStore) Put(ctx context.Context, key string, value []byte) error {
	return s.PutMany(ctx, map[string][]byte{key: value})
}

func (s *KVStore) PutMany(ctx context.Context, entries map[string][]byte) error {
	for key, value := range entries {
		if !json.Valid(value) {
			return fmt.Errorf("value for %q is not valid JSON", key)
		}
	}

	return s.update(ctx, func(doc map[string]json.RawMessage) {
		for key, value := range entries {
			doc[key] = append(json.RawMessage(nil), value...)
		}
	})
}

func (s *KVStore) Delete(ctx context.Context, key string) error {
	return s.update(ctx, func(doc map[string]json.RawMessage) {
		delete(doc, key)
	})
}

// Clear removes the data file
func (s *KVStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.withLock(ctx, func() error {
		if err := os.Remove(s.filePath); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("remove data file: %w", err)
		}
		s.logger.Info("file store cleared", "path", s.filePath)
		return nil
	})
}

func (s *KVStore) Close() error {
	return s.fileLock.Close()
}

func (s *KVStore) update(ctx context.Context, fn func(doc map[string]json.RawMessage)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.withLock(ctx, func() error {
		doc, err := s.read()
		if err != nil {
			return err
		}
		fn(doc)
		return s.write(doc)
	})
}

func (s *KVStore) withLock(ctx context.Context, fn func() error) error {
	ctx, cancel := context.WithTimeout(ctx, lockTimeout)
	defer cancel()

	locked, err := s.fileLock.TryLockContext(ctx, 100*time.Millisecond)
	if err != nil {
		return fmt.Errorf("failed to acquire lock: %w", err)
	}
	if !locked {
		return fmt.Errorf("could not acquire file lock")
	}
	defer func() { _ = s.fileLock.Unlock() }()

	return fn()
}

// read loads the document; a missing or empty file is an empty document
func (s *KVStore) read() (map[string]json.RawMessage, error) {
	doc := make(map[string]json.RawMessage)

	data, err := os.ReadFile(s.filePath)
	if os.IsNotExist(err) {
		return doc, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	if len(data) == 0 {
		return doc, nil
	}

	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", s.filePath, err)
	}
	return doc, nil
}

func (s *KVStore) write(doc map[string]json.RawMessage) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	tmpFile := s.filePath + ".tmp"
	if err := os.WriteFile(tmpFile, data, 0644); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := os.Rename(tmpFile, s.filePath); err != nil {
		_ = os.Remove(tmpFile)
		return fmt.Errorf("failed to rename file: %w", err)
	}
	return nil
}
