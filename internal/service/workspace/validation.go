package workspace

import (
	"fmt"
	"strings"

	"writeflow/internal/config"
	"writeflow/internal/domain"
	models "writeflow/internal/domain/models/workspace"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"golang.org/x/text/unicode/norm"
)

// NormalizeName trims surrounding whitespace and composes the name to NFC so
// visually identical names compare equal.
func NormalizeName(name string) (string, error) {
	name = norm.NFC.String(strings.TrimSpace(name))

	err := validation.Validate(name,
		validation.Required.Error("name cannot be empty"),
		validation.RuneLength(1, config.MaxNodeNameLength),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrInvalidName, err)
	}
	return name, nil
}

// validateMetadataPatch checks value ranges. Absent and null fields pass.
func validateMetadataPatch(p models.MetadataPatch) error {
	err := validation.Errors{
		"wordCount": validation.Validate(p.WordCount.Value, validation.Min(0)),
		"status": validation.Validate(p.Status.Value,
			validation.When(p.Status.Value != nil, validation.Required),
			validation.In(models.StatusBrainstorming, models.StatusWriting, models.StatusCompleted),
		),
		"targetWordCount": validation.Validate(p.TargetWordCount.Value,
			validation.NilOrNotEmpty.Error("must be at least 1"),
			validation.Min(1),
		),
	}.Filter()
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}
	return nil
}

// validateMetadata applies the patch rules to stored metadata
func validateMetadata(m models.Metadata) error {
	return validation.Errors{
		"wordCount": validation.Validate(m.WordCount, validation.Min(0)),
		"status": validation.Validate(m.Status,
			validation.Required,
			validation.In(models.StatusBrainstorming, models.StatusWriting, models.StatusCompleted),
		),
		"targetWordCount": validation.Validate(m.TargetWordCount,
			validation.NilOrNotEmpty.Error("must be at least 1"),
			validation.Min(1),
		),
	}.Filter()
}

// ValidateSnapshot checks a whole mapping before it replaces the live one.
// Returns a normalized deep copy: keys and ids agree, every parent is an
// existing folder, and the parent relation is acyclic. A dangling active file
// is cleared rather than rejected.
func ValidateSnapshot(snap models.Snapshot) (models.Snapshot, error) {
	files := make(map[string]*models.FileNode, len(snap.Files))

	for key, node := range snap.Files {
		if node == nil {
			return models.Snapshot{}, fmt.Errorf("%w: node %q is null", domain.ErrInvalidBackupFormat, key)
		}
		if node.ID == "" {
			return models.Snapshot{}, fmt.Errorf("%w: node %q has no id", domain.ErrInvalidBackupFormat, key)
		}
		if node.ID != key {
			return models.Snapshot{}, fmt.Errorf("%w: node stored under %q has id %q", domain.ErrInvalidBackupFormat, key, node.ID)
		}
		if node.Body == nil {
			return models.Snapshot{}, fmt.Errorf("%w: node %q has no type", domain.ErrInvalidBackupFormat, key)
		}
		name, err := NormalizeName(node.Name)
		if err != nil {
			return models.Snapshot{}, fmt.Errorf("%w: node %q: %v", domain.ErrInvalidBackupFormat, key, err)
		}
		if f, ok := node.File(); ok {
			if err := validateMetadata(f.Metadata); err != nil {
				return models.Snapshot{}, fmt.Errorf("%w: node %q: %v", domain.ErrInvalidBackupFormat, key, err)
			}
		}
		clone := node.Clone()
		clone.Name = name
		files[key] = clone
	}

	for id, node := range files {
		if node.ParentID == nil {
			continue
		}
		parent, ok := files[*node.ParentID]
		if !ok {
			return models.Snapshot{}, fmt.Errorf("%w: node %q references missing parent %q", domain.ErrInvalidBackupFormat, id, *node.ParentID)
		}
		if !parent.IsFolder() {
			return models.Snapshot{}, fmt.Errorf("%w: node %q has file %q as parent", domain.ErrInvalidBackupFormat, id, parent.ID)
		}
	}

	for id := range files {
		if hasCycle(files, id) {
			return models.Snapshot{}, fmt.Errorf("%w: node %q is its own ancestor", domain.ErrInvalidBackupFormat, id)
		}
	}

	var active *string
	if snap.ActiveFileID != nil {
		if n, ok := files[*snap.ActiveFileID]; ok && n.IsFile() {
			v := *snap.ActiveFileID
			active = &v
		}
	}

	return models.Snapshot{Files: files, ActiveFileID: active, Revision: snap.Revision}, nil
}
