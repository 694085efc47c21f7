package planner

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/greenroute/greenroute/internal/routing"
)

// Session is one planner instance: a form plus the bookkeeping that keeps
// concurrent searches from overwriting each other.
type Session struct {
	ID        string
	CreatedAt time.Time

	mu         sync.Mutex
	form       *Form
	lastAccess time.Time
	// seq is the number of the latest search started. Outcomes carrying an
	// older number are dropped.
	seq uint64
	// inFlight holds the cancel function of every search not yet completed.
	inFlight map[uint64]context.CancelFunc
}

// NewSession creates a session with a fresh form.
func NewSession(now time.Time) *Session {
	return &Session{
		ID:         "ses_" + uuid.New().String()[:22],
		CreatedAt:  now,
		form:       NewForm(),
		lastAccess: now,
		inFlight:   make(map[uint64]context.CancelFunc),
	}
}

// With runs fn with exclusive access to the form.
func (s *Session) With(fn func(f *Form) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.form)
}

// touch records activity for idle expiry.
func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastAccess = now
	s.mu.Unlock()
}

// IdleSince returns the time of the last access.
func (s *Session) IdleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastAccess
}

// Begin starts a search: the form enters the loading state and the returned
// sequence number identifies this search. When cancelPrevious is set, the
// context of the search it supersedes is cancelled. The returned context must
// be released with Complete.
func (s *Session) Begin(ctx context.Context, cancelPrevious bool) (uint64, routing.Query, context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if cancelPrevious {
		s.cancelInFlight()
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.seq++
	s.inFlight[s.seq] = cancel
	s.form.begin()
	return s.seq, s.form.Query(), runCtx
}

// Complete applies the outcome of search seq and releases its context. It
// reports false, leaving the form untouched, when a newer search has started
// since.
func (s *Session) Complete(seq uint64, routes []routing.Candidate, err error) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if cancel, ok := s.inFlight[seq]; ok {
		cancel()
		delete(s.inFlight, seq)
	}

	if seq != s.seq {
		return false
	}
	s.form.complete(routes, err)
	return true
}

// Close cancels every search still in flight.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelInFlight()
}

func (s *Session) cancelInFlight() {
	for seq, cancel := range s.inFlight {
		cancel()
		delete(s.inFlight, seq)
	}
}
