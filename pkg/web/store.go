package web

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"biochat/pkg/conversation"
)

// Entry is one visitor's conversation plus the page state around it.
// Handlers hold the entry's turn lock for the whole request so that one
// visitor's turns run strictly in order.
type Entry struct {
	turn sync.Mutex

	session  *conversation.Session
	settings Settings
	flash    string
	lastSeen time.Time
}

// Session returns the conversation held by the entry.
func (e *Entry) Session() *conversation.Session { return e.session }

// Store keeps sessions in memory, keyed by session id.
type Store struct {
	mu       sync.Mutex
	entries  map[string]*Entry
	create   func() *conversation.Session
	defaults Settings
	idleTTL  time.Duration
	now      func() time.Time
}

// NewStore creates a store. create builds a fresh seeded session; idleTTL
// of zero disables eviction.
func NewStore(create func() *conversation.Session, defaults Settings, idleTTL time.Duration) *Store {
	return &Store{
		entries:  make(map[string]*Entry),
		create:   create,
		defaults: defaults,
		idleTTL:  idleTTL,
		now:      time.Now,
	}
}

// Len returns the number of stored sessions.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Get returns the entry for id, if any.
func (s *Store) Get(id string) (*Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[id]
	if ok {
		e.lastSeen = s.now()
	}
	return e, ok
}

// Resolve returns the entry for id, creating a new session when id is
// unknown. The bool reports whether a session was created.
func (s *Store) Resolve(id string) (*Entry, bool) {
	if e, ok := s.Get(id); ok {
		return e, false
	}

	session := s.create()
	e := &Entry{
		session:  session,
		settings: s.defaults,
		lastSeen: s.now(),
	}

	s.mu.Lock()
	s.entries[session.ID()] = e
	s.mu.Unlock()

	slog.Debug("web_session_created", "session_id", session.ID())
	return e, true
}

// Reset clears the entry's conversation and re-keys it under the new session
// id, which is returned. The caller must hold the entry's turn lock.
func (s *Store) Reset(e *Entry) (string, error) {
	oldID := e.session.ID()
	if err := e.session.Reset(); err != nil {
		return "", err
	}
	newID := e.session.ID()

	s.mu.Lock()
	delete(s.entries, oldID)
	s.entries[newID] = e
	e.lastSeen = s.now()
	s.mu.Unlock()
	return newID, nil
}

// Evict removes sessions idle for longer than the TTL and returns how many
// were dropped. Entries in the middle of a request are skipped.
func (s *Store) Evict() int {
	if s.idleTTL <= 0 {
		return 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-s.idleTTL)
	evicted := 0
	for id, e := range s.entries {
		if e.lastSeen.After(cutoff) {
			continue
		}
		if !e.turn.TryLock() {
			continue
		}
		delete(s.entries, id)
		e.session.Close()
		e.turn.Unlock()
		evicted++
	}
	if evicted > 0 {
		slog.Info("web_sessions_evicted", "count", evicted, "remaining", len(s.entries))
	}
	return evicted
}

// RunEvictor calls Evict every interval until ctx is done. onEvict, when
// set, receives the count of each non-empty sweep.
func (s *Store) RunEvictor(ctx context.Context, interval time.Duration, onEvict func(int)) {
	if s.idleTTL <= 0 || interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.Evict(); n > 0 && onEvict != nil {
				onEvict(n)
			}
		}
	}
}
