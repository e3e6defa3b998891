// Package autosave periodically persists a report draft while it is being
// edited. At most one save is in flight at a time; a tick that arrives while
// a save is running is dropped, not queued.
package autosave

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// DefaultInterval is the time between automatic saves.
const DefaultInterval = 30 * time.Second

// State is the scheduler's save state.
type State int

const (
	Idle State = iota
	Saving
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Saving:
		return "saving"
	default:
		return "unknown"
	}
}

// Scheduler runs Save on every tick unless a save is already in flight.
// The caller owns the timer and calls Tick when it fires. Automatic save
// failures are logged and swallowed; the next tick retries.
type Scheduler struct {
	// Save persists the current draft.
	Save func(ctx context.Context) error
	// Logger receives failed saves. If nil, slog.Default() is used.
	Logger *slog.Logger

	mu      sync.Mutex
	state   State
	stopped bool
	dropped int
}

// New returns a Scheduler that calls save on each tick.
func New(save func(ctx context.Context) error, logger *slog.Logger) *Scheduler {
	return &Scheduler{Save: save, Logger: logger}
}

// TryBegin moves Idle to Saving. It returns false, and counts the tick as
// dropped, when a save is already in flight or the scheduler is stopped.
func (s *Scheduler) TryBegin() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped || s.state == Saving {
		s.dropped++
		return false
	}
	s.state = Saving
	return true
}

// End returns the scheduler to Idle after a save begun with TryBegin.
func (s *Scheduler) End(err error) {
	s.mu.Lock()
	s.state = Idle
	s.mu.Unlock()
	if err != nil {
		s.logger().Warn("autosave failed", "error", err)
	}
}

// Tick performs one automatic save if none is in flight. It reports whether
// a save ran, and the save's error so the caller can tell an expired
// credential from a transient failure. The error is already logged.
func (s *Scheduler) Tick(ctx context.Context) (bool, error) {
	if !s.TryBegin() {
		s.logger().Debug("autosave skipped", "state", s.State())
		return false, nil
	}
	err := s.Save(ctx)
	s.End(err)
	return true, err
}

// Stop drops every later tick. A save already in flight is allowed to
// finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
}

// State returns the current save state.
func (s *Scheduler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Stopped reports whether Stop has been called.
func (s *Scheduler) Stopped() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopped
}

// Dropped returns how many ticks were skipped.
func (s *Scheduler) Dropped() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dropped
}

func (s *Scheduler) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}
