// ABOUTME: In-memory session store with TTL cleanup and capacity limits.
// ABOUTME: Evicted or expired sessions are closed so their background work stops.
package session

import (
	"sync"
	"time"

	"github.com/2389-research/neurogems/gateway"
)

type Store struct {
	mu          sync.RWMutex
	sessions    map[string]*Session
	maxSessions int
	ttl         time.Duration
	deps        Deps
}

// NewStore creates a session store backed by deps.
func NewStore(deps Deps, maxSessions int, ttl time.Duration) *Store {
	return &Store{
		sessions:    make(map[string]*Session),
		maxSessions: maxSessions,
		ttl:         ttl,
		deps:        deps,
	}
}

// Create opens a new session.
func (s *Store) Create() *Session {
	return s.add(New(s.deps))
}

// CreateEdit opens a session seeded from a saved strategy.
func (s *Store) CreateEdit(saved gateway.SavedStrategy) *Session {
	return s.add(Edit(s.deps, saved))
}

func (s *Store) add(sess *Session) *Session {
	var evicted *Session

	s.mu.Lock()
	if s.maxSessions > 0 && len(s.sessions) >= s.maxSessions {
		var oldestID string
		var oldestTime time.Time
		for id, cur := range s.sessions {
			if oldestTime.IsZero() || cur.LastAccess.Before(oldestTime) {
				oldestID = id
				oldestTime = cur.LastAccess
			}
		}
		evicted = s.sessions[oldestID]
		delete(s.sessions, oldestID)
	}
	s.sessions[sess.ID] = sess
	s.mu.Unlock()

	if evicted != nil {
		evicted.Close()
	}
	return sess
}

// Get retrieves a session by ID and updates its LastAccess time.
func (s *Store) Get(id string) (*Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return nil, false
	}
	sess.LastAccess = time.Now()
	return sess, true
}

// Remove closes and forgets a session.
func (s *Store) Remove(id string) bool {
	s.mu.Lock()
	sess, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()
	if ok {
		sess.Close()
	}
	return ok
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Cleanup removes sessions idle for longer than the TTL.
func (s *Store) Cleanup() {
	var expired []*Session

	s.mu.Lock()
	cutoff := time.Now().Add(-s.ttl)
	for id, sess := range s.sessions {
		if sess.LastAccess.Before(cutoff) {
			expired = append(expired, sess)
			delete(s.sessions, id)
		}
	}
	s.mu.Unlock()

	for _, sess := range expired {
		sess.Close()
	}
}

// CloseAll closes every session.
func (s *Store) CloseAll() {
	s.mu.Lock()
	all := s.sessions
	s.sessions = make(map[string]*Session)
	s.mu.Unlock()
	for _, sess := range all {
		sess.Close()
	}
}

// StartCleanup starts a background cleanup goroutine and returns a stop function.
func (s *Store) StartCleanup(interval time.Duration) func() {
	ticker := time.NewTicker(interval)
	done := make(chan struct{})

	go func() {
		for {
			select {
			case <-ticker.C:
				s.Cleanup()
			case <-done:
				ticker.Stop()
				return
			}
		}
	}()

	return func() {
		close(done)
	}
}
