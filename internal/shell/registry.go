package shell

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"planner/internal/cache"
	"planner/internal/identity"
)

// Registry keeps one started Shell per client id. Idle or surplus shells are
// evicted and closed.
type Registry struct {
	mu      sync.Mutex
	shells  *cache.LRUCache[*Shell]
	factory identity.Factory
	logger  *slog.Logger
}

func NewRegistry(factory identity.Factory, maxShells int, ttl time.Duration, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Registry{factory: factory, logger: logger}
	r.shells = cache.NewLRUCache[*Shell](maxShells, ttl).OnEvict(func(clientID string, s *Shell) {
		s.Close()
		logger.Debug("Shell evicted", "component", "shell", "client_id", clientID)
	})
	return r
}

// Get returns the client's shell, creating and starting it on first use.
func (r *Registry) Get(ctx context.Context, clientID string) *Shell {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.shells.Get(clientID); ok {
		return s
	}
	s := New(clientID, r.factory.ForClient(clientID), r.logger)
	s.Start(ctx)
	r.shells.Set(clientID, s)
	return s
}

// Len returns the number of live shells.
func (r *Registry) Len() int {
	return r.shells.Size()
}

// Cache exposes the shell cache for the janitor.
func (r *Registry) Cache() *cache.LRUCache[*Shell] {
	return r.shells
}

// Close closes every shell.
func (r *Registry) Close() {
	r.shells.Purge()
}
