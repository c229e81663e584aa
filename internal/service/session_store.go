package service

import (
	"sync"
	"time"

	"github.com/caiomachado-24/ReservAI/internal/entities"
)

// SessionStore holds per-conversation state between turns. Lock serializes all
// read-modify-write turns for one conversation key; cross-conversation turns
// run concurrently.
type SessionStore interface {
	Get(conversationID string) *entities.Session
	Put(sess *entities.Session)
	Delete(conversationID string)
	Lock(conversationID string) func()
	EvictIdle(ttl time.Duration) int
}

type sessionEntry struct {
	mu   sync.Mutex
	sess *entities.Session
}

// MemorySessionStore is the single-instance store: a concurrent map with one
// mutex per conversation key. A multi-instance deployment would swap this for
// an external low-latency store behind the same interface.
type MemorySessionStore struct {
	mu      sync.Mutex
	entries map[string]*sessionEntry
}

func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{entries: make(map[string]*sessionEntry)}
}

func (s *MemorySessionStore) entry(conversationID string) *sessionEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[conversationID]
	if !ok {
		e = &sessionEntry{}
		s.entries[conversationID] = e
	}
	return e
}

// Lock acquires the per-conversation mutex and returns the unlock function.
// Callers must hold it for the whole turn. EvictIdle may remove an entry
// between the map read and the mutex acquisition, so the acquired entry is
// re-checked against the map and the acquisition retried if it lost the race;
// otherwise two turns for the same conversation could hold different mutexes.
func (s *MemorySessionStore) Lock(conversationID string) func() {
	for {
		e := s.entry(conversationID)
		e.mu.Lock()
		s.mu.Lock()
		live := s.entries[conversationID] == e
		s.mu.Unlock()
		if live {
			return e.mu.Unlock
		}
		e.mu.Unlock()
	}
}

func (s *MemorySessionStore) Get(conversationID string) *entities.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entries[conversationID]; ok {
		return e.sess
	}
	return nil
}

func (s *MemorySessionStore) Put(sess *entities.Session) {
	sess.UpdatedAt = time.Now()
	e := s.entry(sess.ConversationID)
	s.mu.Lock()
	defer s.mu.Unlock()
	e.sess = sess
}

func (s *MemorySessionStore) Delete(conversationID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entries[conversationID]; ok {
		e.sess = nil
	}
}

// EvictIdle drops sessions untouched for longer than ttl, skipping any
// conversation currently mid-turn. Returns the number of sessions evicted.
func (s *MemorySessionStore) EvictIdle(ttl time.Duration) int {
	cutoff := time.Now().Add(-ttl)
	s.mu.Lock()
	defer s.mu.Unlock()

	evicted := 0
	for id, e := range s.entries {
		if !e.mu.TryLock() {
			continue
		}
		if e.sess == nil {
			delete(s.entries, id)
		} else if e.sess.UpdatedAt.Before(cutoff) {
			delete(s.entries, id)
			evicted++
		}
		e.mu.Unlock()
	}
	return evicted
}
