package session

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"
	"time"

	"wood-empire/game"
	"wood-empire/storage"
)

const (
	DefaultIdleTTL       = 30 * time.Minute
	defaultSweepInterval = time.Minute
)

// Info is a point-in-time view of a live session.
type Info struct {
	Slot     string     `json:"slot"`
	LastUsed time.Time  `json:"lastUsed"`
	State    game.State `json:"state"`
}

type ManagerConfig struct {
	Saves         *storage.Saves
	Scheduler     *Scheduler
	Listeners     []Listener
	IdleTTL       time.Duration
	SweepInterval time.Duration
	Logger        *slog.Logger
	// SessionOptions are applied to every session after the manager's own options.
	SessionOptions []Option
}

// Manager starts one session per slot on first use and closes sessions that sit idle.
type Manager struct {
	cfg ManagerConfig

	mu       sync.Mutex
	sessions map[string]*Session
	closed   bool
}

func NewManager(cfg ManagerConfig) *Manager {
	if cfg.IdleTTL <= 0 {
		cfg.IdleTTL = DefaultIdleTTL
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = defaultSweepInterval
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Manager{cfg: cfg, sessions: map[string]*Session{}}
}

// Get returns the live session for slot, starting it if needed.
func (m *Manager) Get(slot string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, ErrClosed
	}
	if s, ok := m.sessions[slot]; ok {
		return s, nil
	}

	opts := []Option{
		WithScheduler(m.cfg.Scheduler),
		WithListeners(m.cfg.Listeners...),
		WithLogger(m.cfg.Logger),
	}
	opts = append(opts, m.cfg.SessionOptions...)
	s := Start(slot, m.cfg.Saves, opts...)
	m.sessions[slot] = s
	m.cfg.Logger.Debug("session started", "slot", slot)
	return s, nil
}

// Do applies action on slot's session. A session swept between lookup and call is replaced once.
func (m *Manager) Do(ctx context.Context, slot string, action game.Action, upgrade game.UpgradeID) (Result, error) {
	return m.withSession(slot, func(s *Session) (Result, error) {
		return s.Do(ctx, action, upgrade)
	})
}

func (m *Manager) Snapshot(ctx context.Context, slot string) (Result, error) {
	return m.withSession(slot, func(s *Session) (Result, error) {
		return s.Snapshot(ctx)
	})
}

func (m *Manager) Restart(ctx context.Context, slot string) (Result, error) {
	return m.withSession(slot, func(s *Session) (Result, error) {
		return s.Restart(ctx)
	})
}

func (m *Manager) withSession(slot string, fn func(*Session) (Result, error)) (Result, error) {
	for attempt := 0; ; attempt++ {
		s, err := m.Get(slot)
		if err != nil {
			return Result{}, err
		}
		res, err := fn(s)
		if errors.Is(err, ErrClosed) && attempt == 0 {
			m.forget(s)
			continue
		}
		return res, err
	}
}

func (m *Manager) forget(s *Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sessions[s.Slot()] == s {
		delete(m.sessions, s.Slot())
	}
}

// Sessions lists live sessions ordered by slot.
func (m *Manager) Sessions(ctx context.Context) []Info {
	m.mu.Lock()
	live := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		live = append(live, s)
	}
	m.mu.Unlock()

	infos := make([]Info, 0, len(live))
	for _, s := range live {
		res, err := s.peek(ctx)
		if err != nil {
			continue
		}
		infos = append(infos, Info{Slot: s.Slot(), LastUsed: s.LastUsed(), State: res.State})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Slot < infos[j].Slot })
	return infos
}

// Sweep closes sessions unused since now minus the idle TTL and returns how many it closed.
func (m *Manager) Sweep(now time.Time) int {
	cutoff := now.Add(-m.cfg.IdleTTL)

	m.mu.Lock()
	var idle []*Session
	for slot, s := range m.sessions {
		if s.LastUsed().Before(cutoff) {
			idle = append(idle, s)
			delete(m.sessions, slot)
		}
	}
	m.mu.Unlock()

	for _, s := range idle {
		s.Close()
		m.cfg.Logger.Info("idle session closed", "slot", s.Slot())
	}
	return len(idle)
}

// Run sweeps idle sessions until ctx is done, then closes every session.
func (m *Manager) Run(ctx context.Context) error {
	ticker := time.NewTicker(m.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.Close()
			return nil
		case now := <-ticker.C:
			m.Sweep(now)
		}
	}
}

// Close stops every session. Later calls to Get fail with ErrClosed.
func (m *Manager) Close() {
	m.mu.Lock()
	m.closed = true
	live := m.sessions
	m.sessions = map[string]*Session{}
	m.mu.Unlock()

	for _, s := range live {
		s.Close()
	}
}
