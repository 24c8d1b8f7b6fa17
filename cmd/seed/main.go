package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"log"
	"os"

	"writeflow/internal/config"
	"writeflow/internal/domain"
	"writeflow/internal/repository"
	"writeflow/internal/service/settings"
	"writeflow/internal/service/workspace"

	"github.com/joho/godotenv"
)

func main() {
	clearData := flag.Bool("clear-data", false, "Clear all stored data before seeding")
	force := flag.Bool("force", false, "Overwrite an existing workspace")
	flag.Parse()

	_ = godotenv.Load()
	cfg := config.Load()

	// SAFETY: Prevent destructive operations in production
	if cfg.Environment == "prod" && (*clearData || *force) {
		log.Fatalf("BLOCKED: cannot run destructive operations (--clear-data or --force) in production")
	}

	logger, logCloser, err := config.NewLogger(cfg, os.Stdout)
	if err != nil {
		log.Fatalf("Failed to set up logging: %v", err)
	}
	defer logCloser.Close()

	ctx := context.Background()
	kv, err := repository.Open(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("Failed to open storage: %v", err)
	}
	defer kv.Close()

	if *clearData {
		if err := kv.Clear(ctx); err != nil {
			log.Fatalf("Failed to clear data: %v", err)
		}
		logger.Info("storage cleared", "driver", cfg.StorageDriver)
	}

	_, err = kv.Get(ctx, config.WorkspaceKey)
	switch {
	case err == nil && !*force:
		log.Fatalf("A workspace already exists; use --force to overwrite it or --clear-data to start fresh")
	case err != nil && !errors.Is(err, domain.ErrNotFound):
		log.Fatalf("Failed to read storage: %v", err)
	}

	// Build the sample in memory, then write workspace and settings together
	store := workspace.NewNodeStore(logger)
	tracker := workspace.NewTracker(store, logger)
	_, chapterID, err := workspace.SampleWorkspace(tracker)
	if err != nil {
		log.Fatalf("Failed to build sample workspace: %v", err)
	}
	if err := store.Open(&chapterID); err != nil {
		log.Fatalf("Failed to open sample chapter: %v", err)
	}

	snapshot, err := json.Marshal(store.Snapshot())
	if err != nil {
		log.Fatalf("Failed to encode workspace: %v", err)
	}
	settingsData, err := settings.NewService(kv, logger).Encode()
	if err != nil {
		log.Fatalf("Failed to encode settings: %v", err)
	}

	if err := kv.PutMany(ctx, map[string][]byte{
		config.WorkspaceKey: snapshot,
		config.SettingsKey:  settingsData,
	}); err != nil {
		log.Fatalf("Failed to write seed data: %v", err)
	}

	logger.Info("seed complete",
		"driver", cfg.StorageDriver,
		"nodes", store.Len(),
		"active_file", chapterID,
	)
}
