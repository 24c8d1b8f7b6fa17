package workspace

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"writeflow/internal/domain"
	models "writeflow/internal/domain/models/workspace"

	"gopkg.in/yaml.v3"
)

// ExportOptions tunes archive contents
type ExportOptions struct {
	// Frontmatter prefixes every file with a YAML block of its metadata
	Frontmatter bool
}

// Exporter writes a subtree as a zip of markdown files
type Exporter struct {
	store  *NodeStore
	logger *slog.Logger
}

// NewExporter creates an exporter over store
func NewExporter(store *NodeStore, logger *slog.Logger) *Exporter {
	return &Exporter{store: store, logger: logger}
}

// SanitizeName makes a node name safe as a single archive path segment
func SanitizeName(name string) string {
	name = strings.NewReplacer("/", "-", "\\", "-").Replace(strings.TrimSpace(name))
	switch name {
	case "":
		return "untitled"
	case ".", "..":
		return strings.Repeat("_", len(name))
	}
	return name
}

// ArchiveName is the download name for exporting node
func ArchiveName(node *models.FileNode) string {
	return SanitizeName(node.Name) + ".zip"
}

type archiveEntry struct {
	path     string
	dir      bool
	content  []byte
	modified time.Time
}

// archivePlan keeps entries by path. A later entry with the same path
// replaces the earlier one but keeps its position.
type archivePlan struct {
	order   []string
	entries map[string]*archiveEntry
}

func (p *archivePlan) add(e *archiveEntry) {
	if _, exists := p.entries[e.path]; !exists {
		p.order = append(p.order, e.path)
	}
	p.entries[e.path] = e
}

// Export writes the subtree rooted at id to w and returns the archive name.
// The plan is built under the read lock; the zip is written without it.
func (e *Exporter) Export(ctx context.Context, id string, w io.Writer, opts ExportOptions) (string, error) {
	plan, name, err := e.plan(id, opts)
	if err != nil {
		return "", err
	}

	zw := zip.NewWriter(w)
	for _, path := range plan.order {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		entry := plan.entries[path]
		header := &zip.FileHeader{
			Name:     entry.path,
			Method:   zip.Deflate,
			Modified: entry.modified,
		}
		if entry.dir {
			header.Method = zip.Store
		}

		fw, err := zw.CreateHeader(header)
		if err != nil {
			return "", fmt.Errorf("create archive entry %s: %w", entry.path, err)
		}
		if !entry.dir {
			if _, err := fw.Write(entry.content); err != nil {
				return "", fmt.Errorf("write archive entry %s: %w", entry.path, err)
			}
		}
	}
	if err := zw.Close(); err != nil {
		return "", fmt.Errorf("finalize archive: %w", err)
	}

	e.logger.Info("subtree exported", "id", id, "entries", len(plan.order), "archive", name)
	return name, nil
}

func (e *Exporter) plan(id string, opts ExportOptions) (*archivePlan, string, error) {
	e.store.mu.RLock()
	defer e.store.mu.RUnlock()

	root, ok := e.store.nodes[id]
	if !ok {
		return nil, "", domain.NewNodeError("export", id, domain.ErrNotFound)
	}

	plan := &archivePlan{entries: make(map[string]*archiveEntry)}

	var walk func(n *models.FileNode, prefix string) error
	walk = func(n *models.FileNode, prefix string) error {
		segment := SanitizeName(n.Name)

		if f, ok := n.File(); ok {
			content, err := renderFile(f, opts)
			if err != nil {
				return fmt.Errorf("render %s: %w", n.ID, err)
			}
			plan.add(&archiveEntry{
				path:     prefix + segment + ".md",
				content:  content,
				modified: n.UpdatedAt.Time,
			})
			return nil
		}

		dir := prefix + segment + "/"
		plan.add(&archiveEntry{path: dir, dir: true, modified: n.UpdatedAt.Time})
		for _, childID := range childrenOf(e.store.nodes, e.store.seq, &n.ID) {
			if err := walk(e.store.nodes[childID], dir); err != nil {
				return err
			}
		}
		return nil
	}

	if err := walk(root, ""); err != nil {
		return nil, "", err
	}
	return plan, ArchiveName(root), nil
}

// renderFile returns the bytes stored for a file entry
func renderFile(f *models.FileBody, opts ExportOptions) ([]byte, error) {
	if !opts.Frontmatter {
		return []byte(f.Content), nil
	}

	meta, err := yaml.Marshal(f.Metadata)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	buf.WriteString("---\n")
	buf.Write(meta)
	buf.WriteString("---\n")
	buf.WriteString(f.Content)
	return buf.Bytes(), nil
}
