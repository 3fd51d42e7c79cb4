package kinematics

import (
	"log/slog"

	"github.com/google/uuid"
	"github.com/sasha-s/go-deadlock"
)

type entry struct {
	mu    deadlock.Mutex
	state *State
}

// Store owns the State of every tracked entity. Access to one entity's State is serialised, while
// different entities never contend on the same lock.
type Store struct {
	mu      deadlock.RWMutex
	entries map[uuid.UUID]*entry

	log *slog.Logger
}

func NewStore(log *slog.Logger) *Store {
	if log == nil {
		log = slog.Default()
	}
	return &Store{entries: make(map[uuid.UUID]*entry), log: log}
}

// Update calls f with the State of the entity, creating it if the entity was not seen before. The State
// must not be retained after f returns.
func (s *Store) Update(id uuid.UUID, f func(*State)) {
	e := s.entry(id)

	e.mu.Lock()
	defer e.mu.Unlock()
	f(e.state)
}

// Lookup returns a copy of the State of the entity.
func (s *Store) Lookup(id uuid.UUID) (State, bool) {
	s.mu.RLock()
	e, ok := s.entries[id]
	s.mu.RUnlock()
	if !ok {
		return State{}, false
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.Clone(), true
}

// Evict removes the State of the entity, returning false if it was not tracked.
func (s *Store) Evict(id uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.entries[id]; !ok {
		return false
	}
	delete(s.entries, id)
	s.log.Debug("evicted kinematic state", "entity", id)
	return true
}

// Len returns the amount of tracked entities.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

func (s *Store) entry(id uuid.UUID) *entry {
	s.mu.RLock()
	e, ok := s.entries[id]
	s.mu.RUnlock()
	if ok {
		return e
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok = s.entries[id]; ok {
		return e
	}
	e = &entry{state: NewState()}
	s.entries[id] = e
	s.log.Debug("tracking kinematic state", "entity", id)
	return e
}
