package session

import (
	"sync"
	"time"

	"wood-empire/game"
)

// Sink receives feedback items when their delay elapses. Deliveries happen on timer
// goroutines and must not block.
type Sink interface {
	DeliverFeedback(slot string, fb game.Feedback)
}

// Scheduler fires feedback items after their delays. Its timers are owned per slot and can be
// cancelled as a group; they never touch game state.
type Scheduler struct {
	mu      sync.Mutex
	sinks   []Sink
	pending map[string]map[*time.Timer]struct{}
}

func NewScheduler(sinks ...Sink) *Scheduler {
	return &Scheduler{
		sinks:   sinks,
		pending: map[string]map[*time.Timer]struct{}{},
	}
}

func (s *Scheduler) Schedule(slot string, items []game.Feedback) {
	if s == nil || len(s.sinks) == 0 || len(items) == 0 {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	timers := s.pending[slot]
	if timers == nil {
		timers = map[*time.Timer]struct{}{}
		s.pending[slot] = timers
	}

	for _, fb := range items {
		var t *time.Timer
		t = time.AfterFunc(fb.Delay, func() {
			// Holding the lock here also waits out the assignment of t above.
			s.mu.Lock()
			_, live := s.pending[slot][t]
			if live {
				s.forgetLocked(slot, t)
			}
			s.mu.Unlock()

			if !live {
				return
			}
			for _, sink := range s.sinks {
				sink.DeliverFeedback(slot, fb)
			}
		})
		timers[t] = struct{}{}
	}
}

// Cancel stops every pending timer for slot and reports how many were stopped before firing.
func (s *Scheduler) Cancel(slot string) int {
	if s == nil {
		return 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for t := range s.pending[slot] {
		if t.Stop() {
			n++
		}
	}
	delete(s.pending, slot)
	return n
}

// Pending reports how many feedback items for slot have not fired yet.
func (s *Scheduler) Pending(slot string) int {
	if s == nil {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending[slot])
}

func (s *Scheduler) forgetLocked(slot string, t *time.Timer) {
	timers := s.pending[slot]
	delete(timers, t)
	if len(timers) == 0 {
		delete(s.pending, slot)
	}
}
