// Command hamurabi-server lets players govern Sumeria over a websocket and
// keeps a chronicle of every term.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/talgya/hamurabi/internal/api"
	"github.com/talgya/hamurabi/internal/config"
	"github.com/talgya/hamurabi/internal/entropy"
	"github.com/talgya/hamurabi/internal/llm"
	"github.com/talgya/hamurabi/internal/persistence"
)

func main() {
	configPath := flag.String("config", "", "YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(2)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.Level(),
	}))
	slog.SetDefault(logger)

	slog.Info("Hamurabi server starting", "port", cfg.Port, "sessions_per_hour", cfg.SessionsPerHour)

	// ── Chronicle ─────────────────────────────────────────────────────
	db, err := persistence.Open(cfg.ChroniclePath)
	if err != nil {
		slog.Error("failed to open chronicle", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	if cfg.ChroniclePath == "" {
		slog.Info("chronicle kept in memory")
	} else {
		slog.Info("chronicle opened", "path", cfg.ChroniclePath)
	}

	// ── Collaborators ─────────────────────────────────────────────────
	llmClient := llm.NewClient(cfg.AnthropicKey)
	if llmClient == nil {
		slog.Warn("ANTHROPIC_API_KEY not set, scribe disabled")
	}
	randomOrg := entropy.NewClient(cfg.RandomOrgKey)
	if !randomOrg.Enabled() {
		slog.Info("RANDOM_ORG_API_KEY not set, drawing from crypto/rand")
	}

	srv := &api.Server{
		DB:              db,
		LLM:             llmClient,
		Entropy:         entropy.FromClient(randomOrg),
		ArchiveDir:      cfg.ArchiveDir,
		Port:            cfg.Port,
		SessionsPerHour: cfg.SessionsPerHour,
		AnswerTimeout:   cfg.AnswerTimeout,
		TrustedProxies:  cfg.TrustedProxies,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	fmt.Printf("API: http://localhost:%d/api/v1/status\n", cfg.Port)
	fmt.Printf("Play: ws://localhost:%d/api/v1/play\n", cfg.Port)

	if err := srv.Run(ctx); err != nil {
		slog.Error("HTTP server error", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}
