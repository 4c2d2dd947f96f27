// internal/store/memory.go
//
// In-memory implementation of SessionStore and Settings.
// This is a lightweight persistence layer used when durability is not
// required: development, tests, and degraded play when the database is
// unavailable.
//
// Characteristics:
//   - Stores a deep copy of the session so later mutations by the caller
//     do not leak into the "persisted" state.
//   - Concurrency-safe via RWMutex (concurrent reads allowed, writes exclusive).
//   - State is lost when the process restarts.

package store

import (
	"context"
	"sync"

	"github.com/zdig1/vache-taureau/internal/game"
)

// Memory is a map-backed SessionStore + Settings implementation.
type Memory struct {
	mu       sync.RWMutex
	session  *game.Session
	settings map[string]string
}

// NewMemory constructs an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{settings: make(map[string]string)}
}

// Save keeps a copy of the session as the single persisted slot.
func (m *Memory) Save(ctx context.Context, s *game.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.session = copySession(s)
	return nil
}

// Load returns a copy of the saved session, or ErrNoSession.
func (m *Memory) Load(ctx context.Context) (*game.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.session == nil || !m.session.Consistent() {
		return nil, ErrNoSession
	}
	return copySession(m.session), nil
}

// Clear drops the saved session.
func (m *Memory) Clear(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.session = nil
	return nil
}

// Get returns a settings value, "" when unset.
func (m *Memory) Get(ctx context.Context, key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.settings[key], nil
}

// Set stores a settings value.
func (m *Memory) Set(ctx context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.settings[key] = value
	return nil
}

func copySession(s *game.Session) *game.Session {
	if s == nil {
		return nil
	}
	c := *s
	c.History = append([]game.Attempt(nil), s.History...)
	return &c
}
