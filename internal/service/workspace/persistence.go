package workspace

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"writeflow/internal/config"
	"writeflow/internal/domain"
	models "writeflow/internal/domain/models/workspace"
	"writeflow/internal/domain/repositories"
)

// SettingsStore is the settings half of a backup
type SettingsStore interface {
	Export() models.BackupSettings
	ValidateImport(models.BackupSettings) error
	Import(ctx context.Context, s models.BackupSettings) error
	Reset(ctx context.Context) error
}

// Confirmer asks the user to approve a destructive action
type Confirmer interface {
	Confirm(ctx context.Context, title, message string) (bool, error)
}

// Persistence connects the NodeStore to the durable key-value store: startup
// load, autosave after every mutation, backup export and import, and reset.
type Persistence struct {
	store    *NodeStore
	settings SettingsStore
	kv       repositories.KVStore
	timeout  time.Duration
	logger   *slog.Logger

	saveMu      sync.Mutex
	saved       uint64 // last revision written
	unsubscribe func()
}

// NewPersistence wires store and settings to kv
func NewPersistence(store *NodeStore, settings SettingsStore, kv repositories.KVStore, logger *slog.Logger) *Persistence {
	return &Persistence{
		store:    store,
		settings: settings,
		kv:       kv,
		timeout:  5 * time.Second,
		logger:   logger,
	}
}

// Load restores the stored snapshot. A missing key leaves the workspace
// empty; a corrupt one is an error so autosave never overwrites it.
func (p *Persistence) Load(ctx context.Context) error {
	data, err := p.kv.Get(ctx, config.WorkspaceKey)
	if errors.Is(err, domain.ErrNotFound) {
		p.logger.Info("no saved workspace, starting empty")
		return nil
	}
	if err != nil {
		return fmt.Errorf("load workspace: %w", err)
	}

	var snap models.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return fmt.Errorf("load workspace: %w: %v", domain.ErrInvalidBackupFormat, err)
	}
	if snap.Files == nil {
		snap.Files = map[string]*models.FileNode{}
	}

	if err := p.store.Replace(snap); err != nil {
		return fmt.Errorf("load workspace: %w", err)
	}

	// What was just loaded is already on disk
	p.saveMu.Lock()
	p.saved = p.store.Revision()
	p.saveMu.Unlock()

	p.logger.Info("workspace loaded", "nodes", len(snap.Files))
	return nil
}

// StartAutosave subscribes to the store. Each change writes the full
// snapshot; write failures are logged and never reach the mutation.
func (p *Persistence) StartAutosave() {
	p.saveMu.Lock()
	if p.unsubscribe != nil {
		p.saveMu.Unlock()
		return
	}
	p.saved = p.store.Revision()
	p.saveMu.Unlock()

	unsubscribe := p.store.Subscribe(func(ev ChangeEvent) {
		ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
		defer cancel()

		if err := p.Save(ctx); err != nil {
			p.logger.Warn("autosave failed",
				"op", ev.Op,
				"revision", ev.Revision,
				"error", err,
			)
		}
	})

	p.saveMu.Lock()
	p.unsubscribe = unsubscribe
	p.saveMu.Unlock()
}

// StopAutosave unsubscribes from the store
func (p *Persistence) StopAutosave() {
	p.saveMu.Lock()
	defer p.saveMu.Unlock()
	if p.unsubscribe != nil {
		p.unsubscribe()
		p.unsubscribe = nil
	}
}

// Save writes the current snapshot unless a newer or equal revision is
// already stored. Writes are serialized, so the last write wins.
func (p *Persistence) Save(ctx context.Context) error {
	p.saveMu.Lock()
	defer p.saveMu.Unlock()

	snap := p.store.Snapshot()
	if snap.Revision <= p.saved {
		return nil
	}

	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode workspace: %w", err)
	}
	if err := p.kv.Put(ctx, config.WorkspaceKey, data); err != nil {
		return fmt.Errorf("save workspace: %w", err)
	}

	p.saved = snap.Revision
	p.logger.Debug("workspace saved", "revision", snap.Revision, "bytes", len(data))
	return nil
}
