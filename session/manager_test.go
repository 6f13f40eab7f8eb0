package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pixil98/go-testutil"

	"wood-empire/game"
)

func TestManagerReusesSessionPerSlot(t *testing.T) {
	saves, _ := seededSaves(t, "", game.State{})
	m := NewManager(ManagerConfig{Saves: saves, SessionOptions: []Option{WithRoller(noBonus)}})
	defer m.Close()

	a, err := m.Get("p1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	b, err := m.Get("p1")
	if err != nil {
		t.Fatalf("get again: %v", err)
	}
	if a != b {
		t.Fatalf("expected one session per slot")
	}
	c, err := m.Get("p2")
	if err != nil {
		t.Fatalf("get p2: %v", err)
	}
	if a == c {
		t.Fatalf("expected separate sessions per slot")
	}
}

func TestManagerSlotsAreIndependent(t *testing.T) {
	saves, _ := seededSaves(t, "", game.State{})
	m := NewManager(ManagerConfig{Saves: saves, SessionOptions: []Option{WithRoller(noBonus)}})
	defer m.Close()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := m.Do(ctx, "p1", game.ActionHit, ""); err != nil {
			t.Fatalf("hit: %v", err)
		}
	}
	res, err := m.Snapshot(ctx, "p2")
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	testutil.AssertEqual(t, "p2", res.State, game.Default())

	infos := m.Sessions(ctx)
	testutil.AssertEqual(t, "sessions", len(infos), 2)
	testutil.AssertEqual(t, "first slot", infos[0].Slot, "p1")
	testutil.AssertEqual(t, "p1 hits", infos[0].State.WoodHit, 3)
}

func TestManagerSweepClosesIdleSessions(t *testing.T) {
	saves, _ := seededSaves(t, "", game.State{})
	m := NewManager(ManagerConfig{Saves: saves, IdleTTL: time.Minute, SessionOptions: []Option{WithRoller(noBonus)}})
	defer m.Close()
	ctx := context.Background()

	if _, err := m.Do(ctx, "p1", game.ActionHit, ""); err != nil {
		t.Fatalf("hit: %v", err)
	}
	old, _ := m.Get("p1")

	testutil.AssertEqual(t, "fresh session kept", m.Sweep(time.Now()), 0)
	testutil.AssertEqual(t, "idle session closed", m.Sweep(time.Now().Add(2*time.Minute)), 1)

	if _, err := old.Snapshot(ctx); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected swept session to be closed, got %v", err)
	}

	res, err := m.Snapshot(ctx, "p1")
	if err != nil {
		t.Fatalf("snapshot after sweep: %v", err)
	}
	testutil.AssertEqual(t, "reloaded from save", res.State.WoodHit, 1)
}

func TestManagerListingDoesNotKeepSessionsAlive(t *testing.T) {
	saves, _ := seededSaves(t, "", game.State{})
	m := NewManager(ManagerConfig{Saves: saves, IdleTTL: 50 * time.Millisecond, SessionOptions: []Option{WithRoller(noBonus)}})
	defer m.Close()
	ctx := context.Background()

	if _, err := m.Do(ctx, "p1", game.ActionHit, ""); err != nil {
		t.Fatalf("hit: %v", err)
	}
	time.Sleep(80 * time.Millisecond)

	infos := m.Sessions(ctx)
	testutil.AssertEqual(t, "listed", len(infos), 1)
	testutil.AssertEqual(t, "idle session closed", m.Sweep(time.Now()), 1)
}

func TestManagerRunClosesSessionsOnShutdown(t *testing.T) {
	saves, _ := seededSaves(t, "", game.State{})
	m := NewManager(ManagerConfig{Saves: saves, SweepInterval: 10 * time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Run(ctx) }()

	s, err := m.Get("p1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("run did not stop")
	}

	if _, err := s.Snapshot(context.Background()); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected closed session, got %v", err)
	}
	if _, err := m.Get("p1"); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected closed manager, got %v", err)
	}
}
