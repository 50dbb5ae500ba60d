package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/chzyer/readline"
	"github.com/joho/godotenv"

	"dealsmap/config"
	"dealsmap/console"
	"dealsmap/dealstore"
	"dealsmap/mapsync"
)

// main starts the interactive deals explorer against the deals API.
func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM)
	defer stop()

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "deals> ",
		HistoryFile:     cfg.ExplorerHistoryFile,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		slog.Error("Failed to initialize readline", "error", err)
		os.Exit(1)
	}
	defer rl.Close()

	slog.SetDefault(slog.New(slog.NewTextHandler(rl.Stderr(), &slog.HandlerOptions{Level: slog.LevelWarn})))

	client := dealstore.NewClient(cfg.DealsAPIURL)
	surface := console.NewSurface(rl.Stdout())
	sync := mapsync.New(surface, client, console.StaticLocator{Position: cfg.ExplorerLocation}, mapsync.DefaultOptions())
	explorer := console.NewExplorer(dealstore.New(client), client, sync, surface, rl.Stdout())

	if err := explorer.Start(ctx); err != nil {
		slog.Error("Failed to start explorer", "error", err)
		os.Exit(1)
	}
	defer sync.Dispose()

	if err := explorer.Run(ctx, rl); err != nil {
		slog.Error("Explorer stopped", "error", err)
	}
}
