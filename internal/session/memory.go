package session

import (
	"errors"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrNotFound is returned when a session id is unknown or expired.
	ErrNotFound = errors.New("session not found")
)

type entry struct {
	mu       sync.Mutex
	session  *Session
	lastSeen atomic.Int64 // unix nanoseconds
}

func newEntry(sess *Session, now time.Time) *entry {
	e := &entry{session: sess}
	e.touch(now)
	return e
}

func (e *entry) touch(now time.Time) { e.lastSeen.Store(now.UnixNano()) }

func (e *entry) seen() time.Time { return time.Unix(0, e.lastSeen.Load()) }

// MemoryStore is a concurrency-safe in-memory session store. Steps of one
// session are serialised; different sessions proceed independently.
type MemoryStore struct {
	mu sync.RWMutex

	// key: session id
	data map[string]*entry

	// retention configuration
	maxSessions int           // max number of live sessions (0 = unlimited)
	maxIdle     time.Duration // idle time after which a session is swept (0 = never)

	now func() time.Time
}

// NewMemoryStore creates a new MemoryStore with optional limits.
func NewMemoryStore(maxSessions int, maxIdle time.Duration) *MemoryStore {
	return &MemoryStore{
		data:        make(map[string]*entry),
		maxSessions: maxSessions,
		maxIdle:     maxIdle,
		now:         time.Now,
	}
}

// Create registers a new empty session and returns its id. When the store
// is full, the least recently used session is evicted.
func (s *MemoryStore) Create() string {
	now := s.now()
	id := uuid.NewString()

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.maxSessions > 0 && len(s.data) >= s.maxSessions {
		s.evictOldestLocked(len(s.data) - s.maxSessions + 1)
	}
	s.data[id] = newEntry(New(id, now), now)
	return id
}

// Update runs fn with exclusive access to the session.
func (s *MemoryStore) Update(id string, fn func(*Session) error) error {
	s.mu.RLock()
	e, ok := s.data[id]
	s.mu.RUnlock()
	if !ok {
		return ErrNotFound
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	// Sweep may have dropped the entry while we waited for its lock.
	s.mu.RLock()
	current := s.data[id]
	s.mu.RUnlock()
	if current != e {
		return ErrNotFound
	}

	e.touch(s.now())
	return fn(e.session)
}

// Len returns the number of live sessions.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

// Sweep removes sessions idle for longer than the configured limit and
// returns how many were removed.
func (s *MemoryStore) Sweep() int {
	if s.maxIdle <= 0 {
		return 0
	}
	cutoff := s.now().Add(-s.maxIdle)

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, e := range s.data {
		if !e.mu.TryLock() {
			// In use right now, so not idle.
			continue
		}
		idle := e.seen().Before(cutoff)
		e.mu.Unlock()
		if idle {
			delete(s.data, id)
			removed++
		}
	}
	return removed
}

func (s *MemoryStore) evictOldestLocked(n int) {
	type aged struct {
		id       string
		lastSeen time.Time
	}
	all := make([]aged, 0, len(s.data))
	for id, e := range s.data {
		all = append(all, aged{id: id, lastSeen: e.seen()})
	}
	sort.Slice(all, func(i, j int) bool { return all[i].lastSeen.Before(all[j].lastSeen) })
	for i := 0; i < n && i < len(all); i++ {
		delete(s.data, all[i].id)
	}
}
