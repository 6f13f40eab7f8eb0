package storage

import (
	"context"
	"errors"
	"log/slog"

	"wood-empire/game"
)

const saveKeyPrefix = "wotrmcGameState"

// SaveKey is the repository key holding slot's game state.
func SaveKey(slot string) string {
	return saveKeyPrefix + ":" + slot
}

// Saves loads and stores game states. It never surfaces storage or decoding failures to callers:
// broken saves fall back to the default state and failed writes are logged and dropped.
type Saves struct {
	repo   Repository
	logger *slog.Logger
}

func NewSaves(repo Repository, logger *slog.Logger) *Saves {
	if logger == nil {
		logger = slog.Default()
	}
	return &Saves{repo: repo, logger: logger}
}

// Load returns the state stored for slot, or the default state when there is none or it is unusable.
func (s *Saves) Load(ctx context.Context, slot string) game.State {
	key := SaveKey(slot)
	raw, err := s.repo.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return game.Default()
	}
	if err != nil {
		s.logger.ErrorContext(ctx, "error loading game state", "key", key, "error", err)
		return game.Default()
	}

	st, err := game.Decode(raw)
	if err != nil {
		s.logger.ErrorContext(ctx, "error loading game state", "key", key, "error", err)
		return game.Default()
	}
	return st
}

// Save overwrites the state stored for slot.
func (s *Saves) Save(ctx context.Context, slot string, st game.State) {
	key := SaveKey(slot)
	raw, err := game.Encode(st)
	if err != nil {
		s.logger.ErrorContext(ctx, "error saving game state", "key", key, "error", err)
		return
	}
	if err := s.repo.Put(ctx, key, raw); err != nil {
		s.logger.ErrorContext(ctx, "error saving game state", "key", key, "error", err)
	}
}

// Reset removes the stored state for slot and returns the default state.
func (s *Saves) Reset(ctx context.Context, slot string) game.State {
	key := SaveKey(slot)
	if err := s.repo.Delete(ctx, key); err != nil {
		s.logger.ErrorContext(ctx, "error clearing game state", "key", key, "error", err)
	}
	return game.Default()
}
