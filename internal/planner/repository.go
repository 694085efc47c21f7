package planner

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrSessionNotFound is returned for unknown or expired session ids.
var ErrSessionNotFound = errors.New("session not found")

// Repository stores live sessions.
type Repository interface {
	// Save stores a new session.
	Save(ctx context.Context, s *Session) error

	// Get returns the session with the given id or ErrSessionNotFound.
	Get(ctx context.Context, id string) (*Session, error)

	// Delete removes a session. Deleting an unknown id returns ErrSessionNotFound.
	Delete(ctx context.Context, id string) error

	// DeleteIdle removes sessions not accessed since cutoff and returns them.
	DeleteIdle(ctx context.Context, cutoff time.Time) ([]*Session, error)
}

// InMemoryRepository keeps sessions in process memory.
type InMemoryRepository struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewInMemoryRepository creates an empty session repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		sessions: make(map[string]*Session),
	}
}

// Save stores a session.
func (r *InMemoryRepository) Save(_ context.Context, s *Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.sessions[s.ID] = s
	return nil
}

// Get retrieves a session by id.
func (r *InMemoryRepository) Get(_ context.Context, id string) (*Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// Delete removes a session by id.
func (r *InMemoryRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sessions[id]; !ok {
		return ErrSessionNotFound
	}
	delete(r.sessions, id)
	return nil
}

// DeleteIdle removes sessions idle since before cutoff.
func (r *InMemoryRepository) DeleteIdle(_ context.Context, cutoff time.Time) ([]*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var removed []*Session
	for id, s := range r.sessions {
		if s.IdleSince().Before(cutoff) {
			removed = append(removed, s)
			delete(r.sessions, id)
		}
	}
	return removed, nil
}

// Len returns the number of stored sessions.
func (r *InMemoryRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

var _ Repository = (*InMemoryRepository)(nil)
