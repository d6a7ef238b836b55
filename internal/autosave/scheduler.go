// Package autosave debounces edit notifications into a single persist call.
//
// A Scheduler is always in one of four states: Idle, PendingTimer, Saving or
// PendingTimerAndSaving. MarkDirty (re)arms the idle timer, the timer firing
// or SaveNow starts a write, and a write settling returns the scheduler to
// whichever state the remaining timer implies. A save requested while a write
// is in flight is not issued concurrently; it is remembered as one follow-up
// write that starts as soon as the current one settles.
package autosave

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

// DefaultDelay is the quiet period after the last edit before an automatic
// save fires.
const DefaultDelay = 2 * time.Second

// ErrClosed is returned by SaveNow after Close.
var ErrClosed = errors.New("autosave: scheduler closed")

// State is the scheduler's position in its state machine.
type State int

const (
	Idle State = iota
	PendingTimer
	Saving
	PendingTimerAndSaving
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case PendingTimer:
		return "pending"
	case Saving:
		return "saving"
	case PendingTimerAndSaving:
		return "pending+saving"
	}
	return "unknown"
}

// PersistFunc writes the current form state. It builds its snapshot when it
// is called, not when the save was requested.
type PersistFunc func(ctx context.Context) error

// Timer is the part of *time.Timer the scheduler needs.
type Timer interface {
	Stop() bool
}

// AfterFunc schedules f after d. time.AfterFunc satisfies it through
// RealAfterFunc; tests substitute a manual clock.
type AfterFunc func(d time.Duration, f func()) Timer

// RealAfterFunc wraps time.AfterFunc.
func RealAfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// Options configures a Scheduler. Zero values fall back to defaults.
type Options struct {
	Delay     time.Duration
	AfterFunc AfterFunc
	Now       func() time.Time
	Logger    *zap.Logger
	// OnSaved runs after every successful write, outside the scheduler lock.
	OnSaved func(at time.Time)
	// OnError runs after every failed write, outside the scheduler lock.
	OnError func(err error)
}

// Status is a point-in-time view of the scheduler.
type Status struct {
	State       State     `json:"-"`
	StateName   string    `json:"state"`
	Dirty       bool      `json:"dirty"`
	Saving      bool      `json:"saving"`
	FollowUp    bool      `json:"followUpQueued"`
	LastSavedAt time.Time `json:"lastSavedAt,omitempty"`
}

// Scheduler coalesces MarkDirty calls into persist calls.
type Scheduler struct {
	persist PersistFunc
	opts    Options
	log     *zap.Logger

	mu          sync.Mutex
	dirty       bool
	saving      bool
	followUp    bool
	closed      bool
	timer       Timer
	generation  uint64
	lastSavedAt time.Time

	inflight sync.WaitGroup
}

// New constructs a Scheduler around persist.
func New(persist PersistFunc, opts Options) *Scheduler {
	if opts.Delay <= 0 {
		opts.Delay = DefaultDelay
	}
	if opts.AfterFunc == nil {
		opts.AfterFunc = RealAfterFunc
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Scheduler{persist: persist, opts: opts, log: opts.Logger}
}

// MarkDirty records an edit and restarts the idle timer.
func (s *Scheduler) MarkDirty() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.dirty = true
	s.stopTimerLocked()
	gen := s.generation
	s.timer = s.opts.AfterFunc(s.opts.Delay, func() { s.fire(gen) })
}

// SaveNow cancels any pending timer and writes immediately, returning the
// write's error. When a write is already in flight the request becomes the
// queued follow-up instead: SaveNow then reports queued and does not wait.
func (s *Scheduler) SaveNow(ctx context.Context) (queued bool, err error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return false, ErrClosed
	}
	s.stopTimerLocked()
	s.dirty = false
	if s.saving {
		s.followUp = true
		s.mu.Unlock()
		s.log.Debug("save queued behind in-flight write")
		return true, nil
	}
	s.saving = true
	s.inflight.Add(1)
	s.mu.Unlock()
	// An in-flight write is never cancelled, even if the caller goes away.
	return false, s.run(context.WithoutCancel(ctx))
}

// Close cancels the pending timer and drops a queued follow-up. A write that
// is already in flight completes in the background.
func (s *Scheduler) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.followUp = false
	s.stopTimerLocked()
}

// Wait blocks until no write is in flight.
func (s *Scheduler) Wait() {
	s.inflight.Wait()
}

// State returns the current state.
func (s *Scheduler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stateLocked()
}

// Status returns a snapshot of the scheduler flags.
func (s *Scheduler) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.stateLocked()
	return Status{
		State:       st,
		StateName:   st.String(),
		Dirty:       s.dirty,
		Saving:      s.saving,
		FollowUp:    s.followUp,
		LastSavedAt: s.lastSavedAt,
	}
}

func (s *Scheduler) stateLocked() State {
	switch {
	case s.saving && s.timer != nil:
		return PendingTimerAndSaving
	case s.saving:
		return Saving
	case s.timer != nil:
		return PendingTimer
	}
	return Idle
}

// stopTimerLocked cancels the pending timer. Bumping the generation makes a
// callback that already started observe that it is stale.
func (s *Scheduler) stopTimerLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.generation++
}

func (s *Scheduler) fire(gen uint64) {
	s.mu.Lock()
	if s.closed || gen != s.generation {
		s.mu.Unlock()
		return
	}
	s.timer = nil
	if !s.dirty {
		s.mu.Unlock()
		return
	}
	s.dirty = false
	if s.saving {
		s.followUp = true
		s.mu.Unlock()
		s.log.Debug("autosave deferred behind in-flight write")
		return
	}
	s.saving = true
	s.inflight.Add(1)
	s.mu.Unlock()
	_ = s.run(context.Background())
}

// run performs one write. The caller has already set saving and added to the
// in-flight group. The scheduler leaves Saving even when persist panics.
func (s *Scheduler) run(ctx context.Context) (err error) {
	completed := false
	defer func() { s.settle(err, completed) }()
	err = s.persist(ctx)
	completed = true
	return err
}

// settle records the outcome of a write and starts the queued follow-up. A
// write that never completed keeps the state dirty and drops the follow-up.
func (s *Scheduler) settle(err error, completed bool) {
	s.mu.Lock()
	s.saving = false
	var savedAt time.Time
	if err != nil || !completed {
		// Re-arm so the next edit or manual save retries.
		s.dirty = true
	} else {
		savedAt = s.opts.Now()
		s.lastSavedAt = savedAt
	}
	next := completed && s.followUp && !s.closed
	s.followUp = false
	if next {
		s.stopTimerLocked()
		s.dirty = false
		s.saving = true
		s.inflight.Add(1)
	}
	s.mu.Unlock()
	s.inflight.Done()

	switch {
	case !completed:
		s.log.Error("autosave write aborted")
		return
	case err != nil:
		s.log.Warn("autosave write failed", zap.Error(err))
		if s.opts.OnError != nil {
			s.opts.OnError(err)
		}
	default:
		s.log.Debug("autosave write settled", zap.Time("saved_at", savedAt))
		if s.opts.OnSaved != nil {
			s.opts.OnSaved(savedAt)
		}
	}
	if next {
		go func() { _ = s.run(context.Background()) }()
	}
}
