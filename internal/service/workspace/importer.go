package workspace

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"path/filepath"
	"strings"

	"writeflow/internal/config"
	"writeflow/internal/domain"
	models "writeflow/internal/domain/models/workspace"
	"writeflow/internal/service/workspace/convert"
)

// ImportAction is what happened to one imported file
type ImportAction string

const (
	ImportCreated ImportAction = "created"
	ImportUpdated ImportAction = "updated"
	ImportSkipped ImportAction = "skipped"
)

// UploadedFile is one file handed to the importer. Zip archives are
// expanded; anything else is converted by extension.
type UploadedFile struct {
	Filename string
	Content  io.Reader
}

// ImportOptions controls where files land and how name clashes resolve
type ImportOptions struct {
	ParentID  *string // target folder, nil = root
	Overwrite bool    // replace content of same-named files instead of skipping
}

type ImportSummary struct {
	Created    int `json:"created"`
	Updated    int `json:"updated"`
	Skipped    int `json:"skipped"`
	Failed     int `json:"failed"`
	TotalFiles int `json:"totalFiles"`
}

type ImportError struct {
	File  string `json:"file"`
	Error string `json:"error"`
}

type ImportedFile struct {
	ID     string       `json:"id"`
	Path   string       `json:"path"`
	Name   string       `json:"name"`
	Action ImportAction `json:"action"`
}

// ImportResult reports per-file outcomes. One bad file never aborts the rest.
type ImportResult struct {
	Summary ImportSummary  `json:"summary"`
	Errors  []ImportError  `json:"errors"`
	Files   []ImportedFile `json:"files"`
}

func (r *ImportResult) fail(file string, err error) {
	r.Summary.Failed++
	r.Errors = append(r.Errors, ImportError{File: file, Error: err.Error()})
}

// Importer turns markdown, text and HTML files (loose or zipped) into nodes.
// Zip directories become folders, reusing existing folders by name.
type Importer struct {
	store      *NodeStore
	tracker    *Tracker
	query      *TreeQuery
	converters *convert.Registry
	logger     *slog.Logger
}

// NewImporter creates an importer writing through tracker so imported files
// get word counts.
func NewImporter(tracker *Tracker, converters *convert.Registry, logger *slog.Logger) *Importer {
	return &Importer{
		store:      tracker.store,
		tracker:    tracker,
		query:      NewTreeQuery(tracker.store),
		converters: converters,
		logger:     logger,
	}
}

// Import processes files in order. The error return is reserved for a bad
// target folder or a cancelled context; per-file problems land in the result.
func (im *Importer) Import(ctx context.Context, files []UploadedFile, opts ImportOptions) (*ImportResult, error) {
	if opts.ParentID != nil {
		parent, err := im.store.Read(*opts.ParentID)
		if err != nil || !parent.IsFolder() {
			return nil, domain.NewNodeError("import", *opts.ParentID, domain.ErrInvalidParent)
		}
	}

	result := &ImportResult{Errors: []ImportError{}, Files: []ImportedFile{}}
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		name := path.Base(filepath.ToSlash(f.Filename))
		if strings.EqualFold(path.Ext(name), ".zip") {
			im.importZip(ctx, result, name, f.Content, opts)
			continue
		}
		im.importFile(ctx, result, nil, name, f.Content, opts)
	}

	im.logger.Info("import complete",
		"parent", describeParent(opts.ParentID),
		"created", result.Summary.Created,
		"updated", result.Summary.Updated,
		"skipped", result.Summary.Skipped,
		"failed", result.Summary.Failed,
		"total_files", result.Summary.TotalFiles,
	)
	return result, ctx.Err()
}

func (im *Importer) importZip(ctx context.Context, result *ImportResult, name string, r io.Reader, opts ImportOptions) {
	data, err := readLimited(r)
	if err != nil {
		result.Summary.TotalFiles++
		result.fail(name, err)
		return
	}
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil && !errors.Is(err, zip.ErrInsecurePath) {
		result.Summary.TotalFiles++
		result.fail(name, fmt.Errorf("%w: not a zip archive", domain.ErrValidation))
		return
	}

	for _, entry := range zr.File {
		if ctx.Err() != nil {
			return
		}
		if entry.FileInfo().IsDir() {
			continue
		}

		// Cleaning against a rooted path drops any ".." that would escape the archive
		clean := strings.TrimPrefix(path.Clean("/"+filepath.ToSlash(entry.Name)), "/")
		segments := strings.Split(clean, "/")
		if hiddenEntry(segments) {
			im.logger.Debug("skipping hidden zip entry", "entry", entry.Name)
			continue
		}

		rc, err := entry.Open()
		if err != nil {
			result.Summary.TotalFiles++
			result.fail(clean, err)
			continue
		}
		im.importFile(ctx, result, segments[:len(segments)-1], segments[len(segments)-1], rc, opts)
		_ = rc.Close()
	}
}

// importFile converts one file and creates or updates its node under dirs
func (im *Importer) importFile(ctx context.Context, result *ImportResult, dirs []string, filename string, r io.Reader, opts ImportOptions) {
	result.Summary.TotalFiles++
	display := path.Join(append(append([]string{}, dirs...), filename)...)

	ext := path.Ext(filename)
	conv := im.converters.Lookup(ext)
	if conv == nil {
		im.logger.Debug("skipping unsupported file type", "file", display, "ext", ext)
		result.Summary.Skipped++
		return
	}

	data, err := readLimited(r)
	if err != nil {
		result.fail(display, err)
		return
	}
	content, err := conv.Convert(ctx, data)
	if err != nil {
		result.fail(display, err)
		return
	}

	name, err := NormalizeName(strings.TrimSuffix(filename, ext))
	if err != nil {
		result.fail(display, err)
		return
	}

	parentID, err := im.ensureFolders(opts.ParentID, dirs)
	if err != nil {
		result.fail(display, err)
		return
	}

	action := ImportCreated
	id := im.findChild(parentID, name, models.NodeTypeFile)
	switch {
	case id != "" && !opts.Overwrite:
		result.Summary.Skipped++
		result.Files = append(result.Files, im.imported(id, name, ImportSkipped))
		return
	case id != "":
		action = ImportUpdated
	default:
		if id, err = im.store.Create(parentID, name, models.NodeTypeFile); err != nil {
			result.fail(display, err)
			return
		}
	}

	if _, err := im.tracker.ApplyContent(id, content); err != nil {
		result.fail(display, err)
		return
	}

	if action == ImportCreated {
		result.Summary.Created++
	} else {
		result.Summary.Updated++
	}
	result.Files = append(result.Files, im.imported(id, name, action))
}

// ensureFolders walks dirs below parentID, creating missing folders
func (im *Importer) ensureFolders(parentID *string, dirs []string) (*string, error) {
	current := parentID
	for _, dir := range dirs {
		name, err := NormalizeName(dir)
		if err != nil {
			return nil, err
		}

		id := im.findChild(current, name, models.NodeTypeFolder)
		if id == "" {
			if id, err = im.store.Create(current, name, models.NodeTypeFolder); err != nil {
				return nil, err
			}
		}
		current = &id
	}
	return current, nil
}

// findChild returns the first child of parentID with name and type, or ""
func (im *Importer) findChild(parentID *string, name string, nodeType models.NodeType) string {
	for _, id := range im.query.ChildrenOf(parentID) {
		node, err := im.store.Read(id)
		if err == nil && node.Name == name && node.Type() == nodeType {
			return id
		}
	}
	return ""
}

func (im *Importer) imported(id, name string, action ImportAction) ImportedFile {
	display, err := im.query.DisplayPath(id)
	if err != nil {
		display = name
	}
	return ImportedFile{ID: id, Path: display, Name: name, Action: action}
}

func readLimited(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, config.MaxImportBytes+1))
	if err != nil {
		return nil, err
	}
	if len(data) > config.MaxImportBytes {
		return nil, fmt.Errorf("%w: file exceeds %d bytes", domain.ErrValidation, config.MaxImportBytes)
	}
	return data, nil
}

// hiddenEntry matches macOS resource forks and dotfiles
func hiddenEntry(segments []string) bool {
	for _, s := range segments {
		if s == "__MACOSX" || strings.HasPrefix(s, ".") {
			return true
		}
	}
	return false
}
