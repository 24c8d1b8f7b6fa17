// Package cli implements the writeflow command-line interface
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"writeflow/internal/config"
	"writeflow/internal/dialog"
	"writeflow/internal/domain"
	"writeflow/internal/domain/repositories"
	"writeflow/internal/repository"
	"writeflow/internal/service/assistant"
	"writeflow/internal/service/settings"
	"writeflow/internal/service/workspace"
	"writeflow/internal/service/workspace/convert"
)

// App holds the services one CLI invocation works with
type App struct {
	Config  *config.Config
	Logger  *slog.Logger
	Dialogs dialog.Dialogs
	In      io.Reader
	Out     io.Writer

	kv          repositories.KVStore
	store       *workspace.NodeStore
	tracker     *workspace.Tracker
	query       *workspace.TreeQuery
	settings    *settings.Service
	persistence *workspace.Persistence
	exporter    *workspace.Exporter
	importer    *workspace.Importer
	assistant   *assistant.Service
}

// NewApp creates an unopened app
func NewApp(cfg *config.Config, logger *slog.Logger, dialogs dialog.Dialogs, in io.Reader, out io.Writer) *App {
	return &App{
		Config:  cfg,
		Logger:  logger,
		Dialogs: dialogs,
		In:      in,
		Out:     out,
	}
}

// Open connects the configured storage driver and loads the workspace
func (a *App) Open(ctx context.Context) error {
	kv, err := repository.Open(ctx, a.Config, a.Logger)
	if err != nil {
		return err
	}
	if err := a.OpenWith(ctx, kv); err != nil {
		kv.Close()
		return err
	}
	return nil
}

// OpenWith loads the workspace and settings from kv and starts autosave
func (a *App) OpenWith(ctx context.Context, kv repositories.KVStore) error {
	a.kv = kv
	a.store = workspace.NewNodeStore(a.Logger)
	a.tracker = workspace.NewTracker(a.store, a.Logger)
	a.query = workspace.NewTreeQuery(a.store)
	a.settings = settings.NewService(kv, a.Logger)
	a.persistence = workspace.NewPersistence(a.store, a.settings, kv, a.Logger)
	a.exporter = workspace.NewExporter(a.store, a.Logger)
	a.importer = workspace.NewImporter(a.tracker, convert.NewRegistry(), a.Logger)
	a.assistant = assistant.NewService(a.settings, a.Config.AssistantTimeout, a.Logger,
		assistant.NewLoremProvider(0),
		assistant.NewOpenAIProvider(&http.Client{}, a.Logger),
	)

	if err := a.settings.Load(ctx); err != nil {
		return err
	}
	if err := a.persistence.Load(ctx); err != nil {
		return err
	}
	a.persistence.StartAutosave()
	return nil
}

func (a *App) opened() bool { return a.store != nil }

// Close stops autosave and releases storage
func (a *App) Close() error {
	if !a.opened() {
		return nil
	}
	a.persistence.StopAutosave()
	return a.kv.Close()
}

// resolve accepts a node id or a display path such as "My Novel/Chapter 1"
func (a *App) resolve(ref string) (string, error) {
	if _, err := a.store.Read(ref); err == nil {
		return ref, nil
	}

	target := strings.Trim(ref, "/")
	var matches []string
	for _, n := range a.store.List() {
		path, err := a.query.DisplayPath(n.ID)
		if err == nil && path == target {
			matches = append(matches, n.ID)
		}
	}

	switch len(matches) {
	case 0:
		return "", domain.NewNodeError("resolve", ref, domain.ErrNotFound)
	case 1:
		return matches[0], nil
	default:
		return "", fmt.Errorf("%w: %q matches %d nodes, use an id", domain.ErrValidation, ref, len(matches))
	}
}

// resolveParent maps "", "/" and "root" to the workspace root
func (a *App) resolveParent(ref string) (*string, error) {
	switch ref {
	case "", "/", "root":
		return nil, nil
	}
	id, err := a.resolve(ref)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

// cancelled reports whether err is a user cancellation, which the CLI
// reports without failing.
func cancelled(err error) bool {
	return errors.Is(err, domain.ErrCancelled)
}
