// Package session keeps one report Store per signed-in identity and closes
// the ones nobody has touched for a while.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/dharsanguruparan/AgentDesk/internal/notify"
	"github.com/dharsanguruparan/AgentDesk/internal/report"
)

// DefaultIdle is how long an untouched session survives.
const DefaultIdle = 30 * time.Minute

// ErrNoSession is returned when the identity has no open session.
var ErrNoSession = errors.New("no open report session")

// Session is one open report.
type Session struct {
	Store *report.Store
	Inbox *notify.Inbox

	// hydrated is closed once the first Hydrate has settled; restored is
	// only read after that.
	hydrated chan struct{}
	restored bool

	mu       sync.Mutex
	lastSeen time.Time
}

// Restored reports whether the session started from a saved report. It
// blocks until the session's first load has settled or ctx is done.
func (s *Session) Restored(ctx context.Context) bool {
	select {
	case <-s.hydrated:
		return s.restored
	case <-ctx.Done():
		return false
	}
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

func (s *Session) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

// Factory builds the Store for an identity, reporting into inbox.
type Factory func(identity, email string, inbox *notify.Inbox) *report.Store

// Registry holds the open sessions.
type Registry struct {
	factory Factory
	idle    time.Duration
	log     *zap.Logger
	now     func() time.Time

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewRegistry returns an empty Registry.
func NewRegistry(factory Factory, idle time.Duration, log *zap.Logger) *Registry {
	if idle <= 0 {
		idle = DefaultIdle
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Registry{
		factory:  factory,
		idle:     idle,
		log:      log,
		now:      time.Now,
		sessions: make(map[string]*Session),
	}
}

// Open returns the identity's session, creating and hydrating it on first
// use. The bool reports whether the session started from a saved report;
// reopening an existing session reports what its first load found.
func (r *Registry) Open(ctx context.Context, identity, email string) (*Session, bool) {
	r.mu.Lock()
	if s, ok := r.sessions[identity]; ok {
		r.mu.Unlock()
		s.touch(r.now())
		return s, s.Restored(ctx)
	}
	inbox := notify.NewInbox(notify.DefaultInboxSize, r.log)
	s := &Session{
		Store:    r.factory(identity, email, inbox),
		Inbox:    inbox,
		hydrated: make(chan struct{}),
		lastSeen: r.now(),
	}
	r.sessions[identity] = s
	r.mu.Unlock()

	s.restored = s.Store.Hydrate(ctx)
	close(s.hydrated)
	r.log.Info("session opened", zap.String("identity", identity), zap.Bool("restored", s.restored))
	return s, s.restored
}

// Get returns an open session and marks it active.
func (r *Registry) Get(identity string) (*Session, error) {
	r.mu.Lock()
	s, ok := r.sessions[identity]
	r.mu.Unlock()
	if !ok {
		return nil, ErrNoSession
	}
	s.touch(r.now())
	return s, nil
}

// Close ends a session. The pending autosave is cancelled; an in-flight write
// finishes on its own.
func (r *Registry) Close(identity string) error {
	r.mu.Lock()
	s, ok := r.sessions[identity]
	delete(r.sessions, identity)
	r.mu.Unlock()
	if !ok {
		return ErrNoSession
	}
	s.Store.Close()
	r.log.Info("session closed", zap.String("identity", identity))
	return nil
}

// Len is the number of open sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Sweep closes every session idle for longer than the idle timeout and
// returns how many it closed.
func (r *Registry) Sweep() int {
	cutoff := r.now().Add(-r.idle)
	r.mu.Lock()
	var stale []*Session
	for id, s := range r.sessions {
		if s.idleSince().Before(cutoff) {
			stale = append(stale, s)
			delete(r.sessions, id)
			r.log.Info("session expired", zap.String("identity", id))
		}
	}
	r.mu.Unlock()
	for _, s := range stale {
		s.Store.Close()
	}
	return len(stale)
}

// Run sweeps periodically until ctx is done, then closes every session and
// waits for in-flight writes.
func (r *Registry) Run(ctx context.Context) error {
	interval := r.idle / 4
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			r.Shutdown()
			return nil
		case <-ticker.C:
			r.Sweep()
		}
	}
}

// Shutdown closes all sessions and waits for their in-flight writes.
func (r *Registry) Shutdown() {
	r.mu.Lock()
	all := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		all = append(all, s)
	}
	r.sessions = make(map[string]*Session)
	r.mu.Unlock()
	for _, s := range all {
		s.Store.Close()
	}
	for _, s := range all {
		s.Store.Wait()
	}
}
