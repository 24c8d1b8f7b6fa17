package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"writeflow/internal/cli"
	"writeflow/internal/config"
	"writeflow/internal/dialog"

	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	// Keep the terminal quiet unless asked otherwise
	if os.Getenv("LOG_LEVEL") == "" {
		cfg.LogLevel = "warn"
	}
	if os.Getenv("LOG_FORMAT") == "" {
		cfg.LogFormat = "text"
	}

	logger, logCloser, err := config.NewLogger(cfg, os.Stderr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error setting up logging: %v\n", err)
		os.Exit(1)
	}

	dialogs := dialog.NewTerminal(dialog.WithAccessible(os.Getenv("ACCESSIBLE") != ""))
	app := cli.NewApp(cfg, logger, dialogs, os.Stdin, os.Stdout)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := cli.Execute(ctx, app, os.Args[1:])
	stop()

	if err := app.Close(); err != nil {
		logger.Error("close storage", "error", err)
	}
	logCloser.Close()
	os.Exit(code)
}
