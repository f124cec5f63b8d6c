// Package sessionstore persists provider-issued sessions per browser client.
// Only identity providers read or write it.
package sessionstore

import (
	"context"
	"sync"
	"time"

	"planner/internal/core"
)

// Store keeps at most one session per client id. Load returns
// core.ErrSessionNotFound when nothing live is stored.
type Store interface {
	Load(ctx context.Context, clientID string) (core.Session, error)
	Save(ctx context.Context, clientID string, s core.Session) error
	Delete(ctx context.Context, clientID string) error
	Close() error
}

type memoryEntry struct {
	session   core.Session
	expiresAt time.Time
}

// MemoryStore is a process-local Store.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	ttl     time.Duration
	now     func() time.Time
}

// NewMemoryStore creates a store whose entries live for ttl after each Save.
// A non-positive ttl keeps entries until deleted.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]memoryEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

func (m *MemoryStore) Load(_ context.Context, clientID string) (core.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[clientID]
	if !ok {
		return core.Session{}, core.ErrSessionNotFound
	}
	if !e.expiresAt.IsZero() && !m.now().Before(e.expiresAt) {
		delete(m.entries, clientID)
		return core.Session{}, core.ErrSessionNotFound
	}
	return e.session, nil
}

func (m *MemoryStore) Save(_ context.Context, clientID string, s core.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	e := memoryEntry{session: s}
	if m.ttl > 0 {
		e.expiresAt = m.now().Add(m.ttl)
	}
	m.entries[clientID] = e
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, clientID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, clientID)
	return nil
}

// CleanExpired drops expired entries and returns how many went.
func (m *MemoryStore) CleanExpired() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	removed := 0
	for id, e := range m.entries {
		if !e.expiresAt.IsZero() && !now.Before(e.expiresAt) {
			delete(m.entries, id)
			removed++
		}
	}
	return removed
}

func (m *MemoryStore) Close() error { return nil }
