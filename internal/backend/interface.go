package backend

import (
	"context"
	"time"

	"planner/internal/events"
	"planner/internal/identity"
	"planner/internal/sessionstore"
)

// Pinger is a dependency the readiness probe can check.
type Pinger interface {
	Ping(ctx context.Context) error
}

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// BackendResult contains the wired identity stack and its cleanup function.
type BackendResult struct {
	Identity identity.Factory
	Broker   *events.Broker
	Store    sessionstore.Store

	// Checks are the remote dependencies worth probing, keyed by name.
	Checks  map[string]Pinger
	Cleanup CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	// CreateBackend creates a backend instance based on the provided config
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	Auth    AuthType
	Session StoreType

	// Supabase specific
	SupabaseURL string
	SupabaseKey string

	// Session store specific
	SQLiteDBPath  string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	SessionTTL    time.Duration

	// Memory identity bcrypt cost; zero means bcrypt.DefaultCost
	BcryptCost int

	// Optional session event sink
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string
}

// AuthType selects the session provider.
type AuthType string

const (
	MemoryAuth   AuthType = "memory"
	SupabaseAuth AuthType = "supabase"
)

// String implements fmt.Stringer
func (t AuthType) String() string {
	return string(t)
}

// IsValid returns true if the auth type is known
func (t AuthType) IsValid() bool {
	switch t {
	case MemoryAuth, SupabaseAuth:
		return true
	default:
		return false
	}
}

// StoreType selects where providers keep sessions.
type StoreType string

const (
	MemoryStore StoreType = "memory"
	SQLiteStore StoreType = "sqlite"
	RedisStore  StoreType = "redis"
)

// String implements fmt.Stringer
func (t StoreType) String() string {
	return string(t)
}

// IsValid returns true if the store type is known
func (t StoreType) IsValid() bool {
	switch t {
	case MemoryStore, SQLiteStore, RedisStore:
		return true
	default:
		return false
	}
}
