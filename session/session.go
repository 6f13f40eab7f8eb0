// Package session owns live game states. Each save slot is served by one goroutine that applies
// transitions in order, persists them and hands their feedback to the scheduler.
package session

import (
	"context"
	"errors"
	"log/slog"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"wood-empire/game"
	"wood-empire/storage"
)

// DefaultSettleDelay is how long hits stay blocked after a hit that fells a wood.
const DefaultSettleDelay = 100 * time.Millisecond

var ErrClosed = errors.New("session closed")

var tracer = otel.Tracer("wood-empire/session")

// Event describes a transition that changed a slot's state, or the end of a hit settling window.
type Event struct {
	Slot      string       `json:"slot"`
	Action    game.Action  `json:"action"`
	Applied   bool         `json:"applied"`
	Restarted bool         `json:"restarted,omitempty"`
	Settled   bool         `json:"settled,omitempty"`
	State     game.State   `json:"state"`
	Outcome   game.Outcome `json:"-"`
	At        time.Time    `json:"at"`
}

// Listener observes applied transitions, restarts and the end of each settling window. It is called
// from the session goroutine and must not block or call back into the session.
type Listener interface {
	Transitioned(ctx context.Context, ev Event)
}

// Result is what a caller gets back from a request.
type Result struct {
	State    game.State   `json:"state"`
	Outcome  game.Outcome `json:"outcome"`
	Settling bool         `json:"settling"`
}

type requestKind int

const (
	requestAction requestKind = iota
	requestSnapshot
	requestRestart
	requestSettle
)

type request struct {
	ctx     context.Context
	kind    requestKind
	action  game.Action
	upgrade game.UpgradeID
	gen     uint64
	reply   chan Result
}

type Option func(*Session)

// WithRoller replaces the session's random source, e.g. with a seeded one.
func WithRoller(r game.Roller) Option {
	return func(s *Session) { s.roller = r }
}

func WithSettleDelay(d time.Duration) Option {
	return func(s *Session) { s.settleDelay = d }
}

func WithScheduler(sched *Scheduler) Option {
	return func(s *Session) { s.sched = sched }
}

func WithListeners(ls ...Listener) Option {
	return func(s *Session) { s.listeners = append(s.listeners, ls...) }
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Session) { s.logger = logger }
}

// Session serializes every transition of one save slot through its request channel.
type Session struct {
	slot        string
	saves       *storage.Saves
	roller      game.Roller
	settleDelay time.Duration
	sched       *Scheduler
	listeners   []Listener
	logger      *slog.Logger

	reqs      chan request
	done      chan struct{}
	stopped   chan struct{}
	closeOnce sync.Once
	lastUsed  atomic.Int64

	// Owned by the run goroutine.
	state       game.State
	settling    bool
	gen         uint64
	settleTimer *time.Timer
}

// Start loads the slot's saved state and starts serving requests for it.
func Start(slot string, saves *storage.Saves, opts ...Option) *Session {
	s := &Session{
		slot:        slot,
		saves:       saves,
		settleDelay: DefaultSettleDelay,
		logger:      slog.Default(),
		reqs:        make(chan request),
		done:        make(chan struct{}),
		stopped:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.roller == nil {
		s.roller = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	s.touch()

	go s.run()
	return s
}

func (s *Session) Slot() string {
	return s.slot
}

// LastUsed is the time of the most recent caller request.
func (s *Session) LastUsed() time.Time {
	return time.Unix(0, s.lastUsed.Load())
}

// Do applies action to the slot's state. Unavailable actions and hits while settling come back
// with Applied false and leave the state untouched.
func (s *Session) Do(ctx context.Context, action game.Action, upgrade game.UpgradeID) (Result, error) {
	s.touch()
	return s.call(ctx, request{kind: requestAction, action: action, upgrade: upgrade})
}

// Snapshot returns the current state without changing it.
func (s *Session) Snapshot(ctx context.Context) (Result, error) {
	s.touch()
	return s.call(ctx, request{kind: requestSnapshot})
}

// peek is Snapshot without counting as use, for observers such as the admin listing.
func (s *Session) peek(ctx context.Context) (Result, error) {
	return s.call(ctx, request{kind: requestSnapshot})
}

// Restart deletes the slot's save, cancels its pending feedback and returns to the default state.
func (s *Session) Restart(ctx context.Context) (Result, error) {
	s.touch()
	return s.call(ctx, request{kind: requestRestart})
}

// Close stops the session goroutine and its timers. It is safe to call more than once.
func (s *Session) Close() {
	s.closeOnce.Do(func() { close(s.done) })
	<-s.stopped
}

func (s *Session) call(ctx context.Context, req request) (Result, error) {
	req.ctx = ctx
	req.reply = make(chan Result, 1)

	select {
	case s.reqs <- req:
	case <-s.done:
		return Result{}, ErrClosed
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}

	select {
	case res := <-req.reply:
		return res, nil
	case <-s.stopped:
		return Result{}, ErrClosed
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}

func (s *Session) touch() {
	s.lastUsed.Store(time.Now().UnixNano())
}

// post delivers an internal message unless the session has been closed.
func (s *Session) post(req request) {
	select {
	case s.reqs <- req:
	case <-s.done:
	}
}

func (s *Session) run() {
	defer close(s.stopped)
	defer s.stopTimers()

	s.state = s.saves.Load(context.Background(), s.slot)

	for {
		select {
		case <-s.done:
			return
		case req := <-s.reqs:
			s.handle(req)
		}
	}
}

func (s *Session) handle(req request) {
	switch req.kind {
	case requestSettle:
		if req.gen == s.gen && s.settling {
			s.settling = false
			s.settleTimer = nil
			s.notify(context.Background(), Event{Slot: s.slot, Settled: true, State: s.state})
		}
	case requestSnapshot:
		req.reply <- s.result(game.Outcome{})
	case requestRestart:
		req.reply <- s.restart(req.ctx)
	case requestAction:
		req.reply <- s.apply(req.ctx, req.action, req.upgrade)
	}
}

func (s *Session) apply(ctx context.Context, action game.Action, upgrade game.UpgradeID) Result {
	ctx, span := tracer.Start(ctx, "session.apply", trace.WithAttributes(
		attribute.String("game.slot", s.slot),
		attribute.String("game.action", string(action)),
	))
	defer span.End()

	if action == game.ActionHit && s.settling {
		span.SetAttributes(attribute.Bool("game.blocked", true))
		return s.result(game.Outcome{Action: action, Blocked: true})
	}

	next, out := game.Apply(s.state, action, s.roller, upgrade)
	span.SetAttributes(attribute.Bool("game.applied", out.Applied))
	if !out.Applied {
		return s.result(out)
	}

	s.state = next
	s.saves.Save(ctx, s.slot, s.state)

	if out.Felled {
		s.startSettling()
	}
	s.sched.Schedule(s.slot, out.Feedback)
	s.notify(ctx, Event{Slot: s.slot, Action: action, Applied: true, State: s.state, Outcome: out})

	return s.result(out)
}

func (s *Session) restart(ctx context.Context) Result {
	ctx, span := tracer.Start(ctx, "session.restart", trace.WithAttributes(
		attribute.String("game.slot", s.slot),
	))
	defer span.End()

	s.stopTimers()
	s.gen++
	s.state = s.saves.Reset(ctx, s.slot)
	s.logger.InfoContext(ctx, "game restarted", "slot", s.slot)

	s.notify(ctx, Event{Slot: s.slot, Restarted: true, State: s.state})
	return s.result(game.Outcome{})
}

func (s *Session) startSettling() {
	if s.settleTimer != nil {
		s.settleTimer.Stop()
	}
	s.gen++
	s.settling = true

	gen := s.gen
	s.settleTimer = time.AfterFunc(s.settleDelay, func() {
		s.post(request{kind: requestSettle, gen: gen})
	})
}

// stopTimers drops the settle guard and any feedback still queued for the slot.
func (s *Session) stopTimers() {
	if s.settleTimer != nil {
		s.settleTimer.Stop()
		s.settleTimer = nil
	}
	s.settling = false
	if n := s.sched.Cancel(s.slot); n > 0 {
		s.logger.Debug("cancelled pending feedback", "slot", s.slot, "count", n)
	}
}

func (s *Session) notify(ctx context.Context, ev Event) {
	ev.At = time.Now().UTC()
	for _, l := range s.listeners {
		l.Transitioned(ctx, ev)
	}
}

func (s *Session) result(out game.Outcome) Result {
	return Result{State: s.state, Outcome: out, Settling: s.settling}
}
