package storage

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pixil98/go-testutil"

	"wood-empire/game"
)

// brokenRepository fails every operation.
type brokenRepository struct{}

var errBroken = errors.New("disk on fire")

func (brokenRepository) Get(context.Context, string) ([]byte, error) { return nil, errBroken }
func (brokenRepository) Put(context.Context, string, []byte) error   { return errBroken }
func (brokenRepository) Delete(context.Context, string) error        { return errBroken }
func (brokenRepository) Close() error                                { return nil }

func newTestLogger() (*slog.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return slog.New(slog.NewTextHandler(&buf, nil)), &buf
}

func TestSavesLoadMissingReturnsDefault(t *testing.T) {
	logger, buf := newTestLogger()
	saves := NewSaves(NewMemoryRepository(), logger)

	testutil.AssertEqual(t, "state", saves.Load(context.Background(), "p1"), game.Default())
	testutil.AssertEqual(t, "logged", buf.Len(), 0)
}

func TestSavesRoundTrip(t *testing.T) {
	repo := NewMemoryRepository()
	saves := NewSaves(repo, nil)
	ctx := context.Background()
	want := game.State{Wood: 14, WoodHit: 3, Planks: 2, Sticks: 4, Coins: 5, EquippedTool: game.ToolWoodenAxe}

	saves.Save(ctx, "p1", want)
	testutil.AssertEqual(t, "state", saves.Load(ctx, "p1"), want)
	testutil.AssertEqual(t, "other slot", saves.Load(ctx, "p2"), game.Default())

	raw, err := repo.Get(ctx, "wotrmcGameState:p1")
	if err != nil {
		t.Fatalf("expected entry under prefixed key: %v", err)
	}
	testutil.AssertEqual(t, "layout", string(raw), `{"wood":14,"woodHit":3,"planks":2,"sticks":4,"coins":5,"equippedTool":"wooden_axe"}`)
}

func TestSavesLoadCorruptedFallsBackToDefault(t *testing.T) {
	for name, payload := range map[string]string{
		"truncated":    `{"wood":3,`,
		"negative":     `{"wood":-3,"equippedTool":"hands"}`,
		"unknown tool": `{"wood":3,"equippedTool":"golden_axe"}`,
	} {
		t.Run(name, func(t *testing.T) {
			repo := NewMemoryRepository()
			logger, buf := newTestLogger()
			if err := repo.Put(context.Background(), SaveKey("p1"), []byte(payload)); err != nil {
				t.Fatalf("seed: %v", err)
			}

			got := NewSaves(repo, logger).Load(context.Background(), "p1")
			testutil.AssertEqual(t, "state", got, game.Default())
			if !strings.Contains(buf.String(), "error loading game state") {
				t.Fatalf("expected load error to be logged, got %q", buf.String())
			}
		})
	}
}

func TestSavesSwallowRepositoryFailures(t *testing.T) {
	logger, buf := newTestLogger()
	saves := NewSaves(brokenRepository{}, logger)
	ctx := context.Background()

	testutil.AssertEqual(t, "load", saves.Load(ctx, "p1"), game.Default())
	saves.Save(ctx, "p1", game.State{Wood: 1, EquippedTool: game.ToolHands})
	testutil.AssertEqual(t, "reset", saves.Reset(ctx, "p1"), game.Default())

	out := buf.String()
	for _, want := range []string{"error loading game state", "error saving game state", "error clearing game state", "disk on fire"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected log to contain %q, got %q", want, out)
		}
	}
}

func TestSavesResetClearsEveryRepository(t *testing.T) {
	sqlRepo, err := OpenSQL(context.Background(), DialectSQLite, filepath.Join(t.TempDir(), "reset.sqlite"), nil)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	defer sqlRepo.Close()
	boltRepo, err := OpenBolt(filepath.Join(t.TempDir(), "reset.db"))
	if err != nil {
		t.Fatalf("open bolt: %v", err)
	}
	defer boltRepo.Close()

	for name, repo := range map[string]Repository{
		"memory": NewMemoryRepository(),
		"sqlite": sqlRepo,
		"bolt":   boltRepo,
	} {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			saves := NewSaves(repo, nil)
			saves.Save(ctx, "p1", game.State{Coins: 40, EquippedTool: game.ToolWoodenAxe})

			testutil.AssertEqual(t, "reset state", saves.Reset(ctx, "p1"), game.Default())
			if _, err := repo.Get(ctx, SaveKey("p1")); !errors.Is(err, ErrNotFound) {
				t.Fatalf("expected entry removed, got %v", err)
			}
			testutil.AssertEqual(t, "reload", saves.Load(ctx, "p1"), game.Default())
		})
	}
}
