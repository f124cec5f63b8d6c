package backend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"planner/internal/amqp"
	"planner/internal/cache"
	"planner/internal/events"
	"planner/internal/identity"
	"planner/internal/identity/memory"
	"planner/internal/identity/supabase"
	"planner/internal/log"
	"planner/internal/sessionstore"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *slog.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{
		logger: logger,
	}
}

// CreateBackend wires the session store, the event broker with its optional
// AMQP sink, and the session provider.
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	store, err := f.createStore(ctx, config)
	if err != nil {
		return nil, err
	}

	result := &BackendResult{
		Store:  store,
		Checks: make(map[string]Pinger),
	}
	closers := []func() error{store.Close}
	if p, ok := store.(Pinger); ok {
		result.Checks["session_store"] = p
	}

	var sink events.Sink
	if config.AMQPURL != "" {
		client, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
		if err != nil {
			f.logger.Warn("Failed to initialize AMQP client, continuing without session event sink", "error", err)
		} else {
			f.logger.Info("Initialized AMQP client",
				"exchange", config.AMQPExchange,
				"queue", config.AMQPQueue)
			sink = client
			closers = append(closers, client.Close)
		}
	}

	result.Broker = events.NewBroker(sink, f.logger.With(log.FieldComponent, log.ComponentEvents))
	// runs before the AMQP client closes
	closers = append(closers, result.Broker.Close)
	sessions := identity.Sessions{Store: store, Broker: result.Broker}

	switch config.Auth {
	case SupabaseAuth:
		factory, err := supabase.NewFactory(config.SupabaseURL, config.SupabaseKey, sessions, f.logger.With(log.FieldComponent, log.ComponentIdentity))
		if err != nil {
			closeAll(closers)
			return nil, fmt.Errorf("failed to initialize Supabase provider: %w", err)
		}
		result.Identity = factory
		f.logger.Info("Initialized Supabase session provider", "url", config.SupabaseURL)
	default:
		result.Identity = memory.NewFactory(memory.NewDirectory(config.BcryptCost), sessions, f.logger.With(log.FieldComponent, log.ComponentIdentity))
		f.logger.Info("Initialized in-memory session provider")
	}

	result.Cleanup = func() error { return closeAll(closers) }
	return result, nil
}

func (f *DefaultFactory) createStore(ctx context.Context, config Config) (sessionstore.Store, error) {
	switch config.Session {
	case SQLiteStore:
		store, err := sessionstore.NewSQLiteStore(config.SQLiteDBPath, config.SessionTTL)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite session store: %w", err)
		}
		f.logger.Info("Initialized SQLite session store", "db_path", config.SQLiteDBPath)
		return store, nil
	case RedisStore:
		store, err := sessionstore.NewRedisStore(ctx, sessionstore.RedisConfig{
			Addr:     config.RedisAddr,
			Password: config.RedisPassword,
			DB:       config.RedisDB,
		}, config.SessionTTL)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Redis session store: %w", err)
		}
		f.logger.Info("Initialized Redis session store", "addr", config.RedisAddr, "db", config.RedisDB)
		return store, nil
	default:
		f.logger.Info("Initialized in-memory session store")
		return sessionstore.NewMemoryStore(config.SessionTTL), nil
	}
}

// Cleaners returns the parts of the result the cache janitor should sweep.
func (r *BackendResult) Cleaners() map[string]cache.Cleaner {
	out := make(map[string]cache.Cleaner)
	if c, ok := r.Store.(cache.Cleaner); ok {
		out["session_store"] = c
	}
	return out
}

func closeAll(closers []func() error) error {
	var errs []error
	for i := len(closers) - 1; i >= 0; i-- {
		if err := closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
