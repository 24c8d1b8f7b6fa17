// Package convert turns imported file bytes into markdown content.
package convert

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// Converter transforms one family of file formats into markdown.
type Converter interface {
	Convert(ctx context.Context, input []byte) (string, error)
	Extensions() []string
	Name() string
}

// Registry routes files to converters by extension.
//
// Safe for concurrent use.
type Registry struct {
	mu         sync.RWMutex
	converters map[string]Converter // key: lowercase extension with dot
}

// NewRegistry creates a registry with the markdown, text and HTML
// converters registered.
func NewRegistry() *Registry {
	r := &Registry{converters: make(map[string]Converter)}
	r.Register(NewMarkdownConverter())
	r.Register(NewTextConverter())
	r.Register(NewHTMLConverter())
	return r
}

// Register associates c with each of its extensions. A later converter
// replaces an earlier one for the same extension.
func (r *Registry) Register(c Converter) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, ext := range c.Extensions() {
		r.converters[normalizeExt(ext)] = c
	}
}

// Lookup returns the converter for ext, or nil.
func (r *Registry) Lookup(ext string) Converter {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.converters[normalizeExt(ext)]
}

// Supports reports whether filename has a registered extension.
func (r *Registry) Supports(filename string) bool {
	return r.Lookup(filepath.Ext(filename)) != nil
}

// Convert picks a converter from filename's extension and runs it.
func (r *Registry) Convert(ctx context.Context, filename string, content []byte) (string, error) {
	ext := filepath.Ext(filename)
	c := r.Lookup(ext)
	if c == nil {
		return "", fmt.Errorf("unsupported file type: %q", ext)
	}
	return c.Convert(ctx, content)
}

// Extensions lists registered extensions in sorted order.
func (r *Registry) Extensions() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	exts := make([]string, 0, len(r.converters))
	for ext := range r.converters {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

func normalizeExt(ext string) string {
	ext = strings.ToLower(ext)
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}
