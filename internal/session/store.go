// Package session keeps per-browser application state server side, keyed by a
// signed cookie.
package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

const DefaultTTL = 12 * time.Hour

type entry struct {
	state    *State
	lastSeen time.Time
}

// Store holds sessions in memory with an idle timeout.
type Store struct {
	ttl      time.Duration
	newState func(id string) *State
	now      func() time.Time

	mu       sync.Mutex
	sessions map[string]*entry
}

func NewStore(ttl time.Duration, newState func(id string) *State) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{
		ttl:      ttl,
		newState: newState,
		now:      time.Now,
		sessions: make(map[string]*entry),
	}
}

// Create starts a new session with a random id.
func (s *Store) Create() *State {
	id := uuid.NewString()
	st := s.newState(id)
	s.mu.Lock()
	s.sessions[id] = &entry{state: st, lastSeen: s.now()}
	s.mu.Unlock()
	return st
}

// Get returns a live session and refreshes its idle timer.
func (s *Store) Get(id string) (*State, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.sessions[id]
	if !ok {
		return nil, false
	}
	now := s.now()
	if now.Sub(e.lastSeen) > s.ttl {
		delete(s.sessions, id)
		return nil, false
	}
	e.lastSeen = now
	return e.state, true
}

func (s *Store) Delete(id string) {
	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Sweep drops expired sessions and returns how many went.
func (s *Store) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	n := 0
	for id, e := range s.sessions {
		if now.Sub(e.lastSeen) > s.ttl {
			delete(s.sessions, id)
			n++
		}
	}
	return n
}

// RunSweeper sweeps every interval until ctx is done.
func (s *Store) RunSweeper(ctx context.Context, every time.Duration, logger *slog.Logger) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if n := s.Sweep(); n > 0 {
				logger.Info("sessions_swept", slog.Int("expired", n), slog.Int("live", s.Len()))
			}
		}
	}
}
