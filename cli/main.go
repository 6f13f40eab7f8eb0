// Command cli plays Wood Empire in a terminal, either as a tview dashboard or as a plain line-mode
// prompt. Saves live in a local bbolt file.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"wood-empire/session"
	"wood-empire/storage"
)

func main() {
	seedFlag := flag.Int64("seed", 0, "seed for rng")
	dbFlag := flag.String("db", filepath.Join("tmp", "wood_empire_cli.db"), "bbolt save file")
	slotFlag := flag.String("slot", "local", "save slot name")
	plainFlag := flag.Bool("plain", false, "line mode instead of the full-screen dashboard")
	flag.Parse()

	if err := run(*seedFlag, *dbFlag, *slotFlag, *plainFlag); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(seed int64, dbPath, slot string, plain bool) error {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	// The dashboard owns the terminal, so it logs nowhere.
	var logOut io.Writer = io.Discard
	if plain {
		logOut = os.Stderr
	}
	logger := slog.New(slog.NewTextHandler(logOut, &slog.HandlerOptions{Level: slog.LevelWarn}))

	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return fmt.Errorf("creating save directory: %w", err)
	}
	repo, err := storage.OpenBolt(dbPath)
	if err != nil {
		return err
	}
	defer repo.Close()

	saves := storage.NewSaves(repo, logger)
	opts := []session.Option{
		session.WithRoller(rand.New(rand.NewSource(seed))),
		session.WithLogger(logger),
	}

	ctx := context.Background()
	if plain {
		sess := session.Start(slot, saves, opts...)
		defer sess.Close()
		return newREPL(sess, os.Stdout).run(ctx, os.Stdin)
	}
	return runDashboard(ctx, slot, saves, opts...)
}
