// Command hamurabi plays one ten-year term of governing ancient Sumeria at
// the console.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mattn/go-isatty"

	"github.com/talgya/hamurabi/internal/advisor"
	"github.com/talgya/hamurabi/internal/config"
	"github.com/talgya/hamurabi/internal/display"
	"github.com/talgya/hamurabi/internal/engine"
	"github.com/talgya/hamurabi/internal/entropy"
	"github.com/talgya/hamurabi/internal/llm"
	"github.com/talgya/hamurabi/internal/persistence"
	"github.com/talgya/hamurabi/internal/prompt"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "", "YAML config file")
	seed := flag.Int64("seed", 0, "seed for a reproducible term (0 = true randomness)")
	scriptPath := flag.String("script", "", "YAML file of decisions to play instead of reading stdin")
	auto := flag.Bool("auto", false, "let the steward answer every question")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		return 2
	}
	if *seed != 0 {
		cfg.Seed = *seed
	}

	// The game owns stdout; logs go to stderr.
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.Level(),
	}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Input ─────────────────────────────────────────────────────────
	var in engine.Input
	switch {
	case *auto:
		in = advisor.Steward{}
	case *scriptPath != "":
		script, err := prompt.LoadScript(*scriptPath)
		if err != nil {
			slog.Error("failed to load script", "path", *scriptPath, "error", err)
			return 2
		}
		in = script
	default:
		console := prompt.NewConsole(os.Stdin, os.Stdout)
		console.Echo = !isatty.IsTerminal(os.Stdin.Fd()) && !isatty.IsCygwinTerminal(os.Stdin.Fd())
		in = console
	}
	in = prompt.Timeout{In: in, After: cfg.AnswerTimeout}

	// ── Display ───────────────────────────────────────────────────────
	out := display.NewText(os.Stdout)
	out.ShowStatus = cfg.ShowStatus
	llmClient := llm.NewClient(cfg.AnthropicKey)
	if llmClient != nil {
		slog.Info("scribe enabled")
		out.Scribe = llm.Scribe(llmClient, 20*time.Second)
	}

	// ── Chronicle ─────────────────────────────────────────────────────
	db, err := persistence.Open(cfg.ChroniclePath)
	if err != nil {
		slog.Error("failed to open chronicle", "error", err)
		return 1
	}
	defer db.Close()

	term := engine.NewTerm(source(cfg), in, out)
	closeChronicle := persistence.Attach(term, db, cfg.ArchiveDir, cfg.Seed)
	defer closeChronicle()

	out.Intro()
	_, err = term.Run(ctx)
	switch {
	case err == nil:
	case errors.Is(err, io.EOF), errors.Is(err, context.Canceled):
		fmt.Fprintln(os.Stdout, "\nSO LONG FOR NOW.")
		return 0
	default:
		slog.Error("term ended early", "error", err)
		return 1
	}

	if hardest, err := db.HardestYear(term.ID); err == nil && hardest.Deaths > 0 {
		slog.Info("hardest year", "term", term.ID, "year", hardest.Year, "starved", hardest.Deaths)
	}
	return 0
}

// source picks the term's randomness: a fixed seed replays exactly,
// otherwise random.org when a key is set, else crypto/rand.
func source(cfg config.Config) entropy.Source {
	if cfg.Seed != 0 {
		slog.Info("seeded term", "seed", cfg.Seed)
		return entropy.NewSeeded(cfg.Seed)
	}
	client := entropy.NewClient(cfg.RandomOrgKey)
	if client.Enabled() {
		slog.Info("drawing from random.org")
	}
	return entropy.FromClient(client)
}
