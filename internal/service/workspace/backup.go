package workspace

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"writeflow/internal/domain"
	models "writeflow/internal/domain/models/workspace"
)

// BackupFilename is the download name for a backup taken at t
func BackupFilename(t models.Timestamp) string {
	return fmt.Sprintf("writeflow-backup-%s.json", t.Format("2006-01-02"))
}

// ExportBackup serializes nodes and settings as an indented JSON document.
func (p *Persistence) ExportBackup(ctx context.Context) ([]byte, models.Timestamp, error) {
	snap := p.store.Snapshot()
	now := p.store.timestamp()

	backup := models.Backup{
		Version:   models.BackupVersion,
		Timestamp: now,
		Files:     snap.Files,
		Settings:  p.settings.Export(),
	}

	data, err := json.MarshalIndent(backup, "", "  ")
	if err != nil {
		return nil, models.Timestamp{}, fmt.Errorf("encode backup: %w", err)
	}

	p.logger.Info("backup exported", "nodes", len(snap.Files), "bytes", len(data))
	return data, now, nil
}

// ParseBackup decodes and structurally checks a backup document. Both the
// files and settings fields must be present and non-null.
func ParseBackup(data []byte) (*models.Backup, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: not a JSON object: %v", domain.ErrInvalidBackupFormat, err)
	}

	for _, field := range []string{"files", "settings"} {
		v, ok := raw[field]
		if !ok || isJSONNull(v) {
			return nil, fmt.Errorf("%w: missing %q field", domain.ErrInvalidBackupFormat, field)
		}
	}

	backup := &models.Backup{Version: models.BackupVersion}
	if v, ok := raw["version"]; ok && !isJSONNull(v) {
		if err := json.Unmarshal(v, &backup.Version); err != nil {
			return nil, fmt.Errorf("%w: version: %v", domain.ErrInvalidBackupFormat, err)
		}
		if backup.Version != models.BackupVersion {
			return nil, fmt.Errorf("%w: unsupported version %d", domain.ErrInvalidBackupFormat, backup.Version)
		}
	}
	if v, ok := raw["timestamp"]; ok {
		if err := json.Unmarshal(v, &backup.Timestamp); err != nil {
			return nil, fmt.Errorf("%w: timestamp: %v", domain.ErrInvalidBackupFormat, err)
		}
	}
	if err := json.Unmarshal(raw["files"], &backup.Files); err != nil {
		return nil, fmt.Errorf("%w: files: %v", domain.ErrInvalidBackupFormat, err)
	}
	if err := json.Unmarshal(raw["settings"], &backup.Settings); err != nil {
		return nil, fmt.Errorf("%w: settings: %v", domain.ErrInvalidBackupFormat, err)
	}

	return backup, nil
}

func isJSONNull(v json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(v), []byte("null"))
}

// ImportBackup replaces nodes and settings with the document's contents.
// Everything is validated before confirm is asked, and nothing changes if
// validation fails or the user declines.
func (p *Persistence) ImportBackup(ctx context.Context, data []byte, confirm Confirmer) error {
	backup, err := ParseBackup(data)
	if err != nil {
		return err
	}

	snap, err := ValidateSnapshot(models.Snapshot{
		Files:        backup.Files,
		ActiveFileID: p.store.ActiveFileID(),
	})
	if err != nil {
		return err
	}
	if err := p.settings.ValidateImport(backup.Settings); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidBackupFormat, err)
	}

	ok, err := confirm.Confirm(ctx,
		"Restore backup",
		fmt.Sprintf("Replace the current workspace with %d items from the backup? This cannot be undone.", len(snap.Files)),
	)
	if err != nil {
		return err
	}
	if !ok {
		p.logger.Info("backup import cancelled")
		return fmt.Errorf("import backup: %w", domain.ErrCancelled)
	}

	if err := p.store.Replace(snap); err != nil {
		return err
	}
	if err := p.settings.Import(ctx, backup.Settings); err != nil {
		return err
	}

	p.logger.Info("backup imported", "nodes", len(snap.Files))
	return nil
}

// Reset wipes the workspace and settings, then clears durable storage.
func (p *Persistence) Reset(ctx context.Context, confirm Confirmer) error {
	ok, err := confirm.Confirm(ctx,
		"Reset workspace",
		"Delete every file, folder and setting? This cannot be undone.",
	)
	if err != nil {
		return err
	}
	if !ok {
		p.logger.Info("reset cancelled")
		return fmt.Errorf("reset: %w", domain.ErrCancelled)
	}

	if err := p.store.Reset(); err != nil {
		return err
	}
	if err := p.settings.Reset(ctx); err != nil {
		return err
	}

	// Autosave has already written the empty snapshot; drop it too
	if err := p.kv.Clear(ctx); err != nil {
		return fmt.Errorf("clear storage: %w", err)
	}

	p.logger.Warn("workspace reset")
	return nil
}
