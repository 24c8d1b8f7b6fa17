package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"writeflow/internal/auth"
	"writeflow/internal/config"
	"writeflow/internal/handler"
	"writeflow/internal/handler/sse"
	"writeflow/internal/httputil"
	"writeflow/internal/middleware"
	"writeflow/internal/repository"
	"writeflow/internal/service/assistant"
	"writeflow/internal/service/settings"
	"writeflow/internal/service/workspace"
	"writeflow/internal/service/workspace/convert"

	"github.com/joho/godotenv"
	"github.com/rs/cors"
)

func main() {
	// Load .env file (silently ignore if it doesn't exist)
	_ = godotenv.Load()

	cfg := config.Load()

	logger, logCloser, err := config.NewLogger(cfg, os.Stdout)
	if err != nil {
		log.Fatalf("Failed to set up logging: %v", err)
	}
	defer logCloser.Close()
	slog.SetDefault(logger)

	logger.Info("server starting",
		"environment", cfg.Environment,
		"addr", cfg.Addr(),
		"storage", cfg.StorageDriver,
		"auth", cfg.AuthEnabled(),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Optional JWT auth
	verifier, err := auth.NewFromConfig(cfg, logger)
	if err != nil {
		log.Fatalf("Failed to create JWT verifier: %v", err)
	}
	if verifier != nil {
		defer verifier.Close()
	} else if !isLoopback(cfg.Host) {
		logger.Warn("auth is disabled on a non-loopback address", "host", cfg.Host)
	}

	// Durable storage
	kv, err := repository.Open(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("Failed to open storage: %v", err)
	}
	defer kv.Close()

	// Services
	store := workspace.NewNodeStore(logger)
	tracker := workspace.NewTracker(store, logger)
	query := workspace.NewTreeQuery(store)
	exporter := workspace.NewExporter(store, logger)
	importer := workspace.NewImporter(tracker, convert.NewRegistry(), logger)
	settingsService := settings.NewService(kv, logger)
	persistence := workspace.NewPersistence(store, settingsService, kv, logger)
	assistantService := assistant.NewService(settingsService, cfg.AssistantTimeout, logger,
		assistant.NewLoremProvider(0),
		assistant.NewOpenAIProvider(&http.Client{}, logger),
	)

	if err := settingsService.Load(ctx); err != nil {
		log.Fatalf("Failed to load settings: %v", err)
	}
	if err := persistence.Load(ctx); err != nil {
		log.Fatalf("Failed to load workspace: %v", err)
	}
	persistence.StartAutosave()
	defer persistence.StopAutosave()

	logger.Info("services initialized", "nodes", store.Len())

	handlers := &handler.Handlers{
		Nodes:     handler.NewNodeHandler(store, tracker, query, logger),
		Tree:      handler.NewTreeHandler(query, logger),
		Backup:    handler.NewBackupHandler(persistence, store, logger),
		Export:    handler.NewExportHandler(exporter, logger),
		Import:    handler.NewImportHandler(importer, logger),
		Settings:  handler.NewSettingsHandler(settingsService, assistantService, logger),
		Assistant: handler.NewAssistantHandler(assistantService, sse.DefaultConfig(), logger),
	}

	// Create HTTP router (Go 1.22+ enhanced patterns)
	mux := http.NewServeMux()
	handlers.Register(mux)

	// Debug routes (only with DEBUG=true)
	if cfg.Debug {
		mux.HandleFunc("GET /debug/snapshot", func(w http.ResponseWriter, r *http.Request) {
			snap := store.Snapshot()
			httputil.RespondJSON(w, http.StatusOK, map[string]interface{}{
				"revision":     snap.Revision,
				"files":        snap.Files,
				"activeFileId": snap.ActiveFileID,
			})
		})
		logger.Warn("debug route registered: GET /debug/snapshot")
	}

	// Build middleware chain
	var h http.Handler = mux

	// Apply middleware in reverse order (they wrap each other)
	// Order: CORS → Recovery → Auth → Routes
	h = middleware.Auth(verifier, logger)(h)
	h = middleware.Recovery(logger)(h)

	// CORS must run before auth so pre-flight requests pass
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   strings.Split(cfg.CORSOrigins, ","),
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: true,
	})
	h = corsHandler.Handler(h)

	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      h,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0, // Disabled to allow long-lived SSE streams
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown failed", "error", err)
		}
	}()

	logger.Info("server listening", "addr", cfg.Addr())
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("Failed to start server: %v", err)
	}

	// Final flush in case an autosave failed earlier
	flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := persistence.Save(flushCtx); err != nil {
		logger.Error("final save failed", "error", err)
	}
}

func isLoopback(host string) bool {
	return host == "localhost" || host == "127.0.0.1" || host == "::1"
}
