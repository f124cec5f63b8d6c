package backend

import (
	"errors"
	"fmt"

	"planner/internal/config"
)

// FromAppConfig converts the application config to backend config
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}

	cfg := Config{
		Auth:    AuthType(appConfig.AuthBackend),
		Session: StoreType(appConfig.SessionBackend),

		SupabaseURL: appConfig.SupabaseURL,
		SupabaseKey: appConfig.SupabaseKey,

		SQLiteDBPath:  appConfig.SQLiteDBPath,
		RedisAddr:     appConfig.RedisAddr,
		RedisPassword: appConfig.RedisPassword,
		RedisDB:       appConfig.RedisDB,
		SessionTTL:    appConfig.SessionTTL,

		AMQPURL:      appConfig.AMQPURL,
		AMQPExchange: appConfig.AMQPExchange,
		AMQPQueue:    appConfig.AMQPQueue,
	}
	return cfg, cfg.Validate()
}

// Validate validates the backend configuration
func (c Config) Validate() error {
	var errs []error

	switch c.Auth {
	case SupabaseAuth:
		if c.SupabaseURL == "" || c.SupabaseKey == "" {
			errs = append(errs, fmt.Errorf("supabase URL and key are required for supabase auth"))
		}
	case MemoryAuth:
		// Nothing to check
	default:
		errs = append(errs, fmt.Errorf("invalid auth type: %s", c.Auth))
	}

	switch c.Session {
	case SQLiteStore:
		if c.SQLiteDBPath == "" {
			errs = append(errs, fmt.Errorf("SQLite database path is required for sqlite session store"))
		}
	case RedisStore:
		if c.RedisAddr == "" {
			errs = append(errs, fmt.Errorf("redis address is required for redis session store"))
		}
	case MemoryStore:
		// Nothing to check
	default:
		errs = append(errs, fmt.Errorf("invalid session store type: %s", c.Session))
	}

	// AMQP is optional, but a URL needs somewhere to publish
	if c.AMQPURL != "" && c.AMQPExchange == "" {
		errs = append(errs, fmt.Errorf("AMQP exchange is required when AMQP URL is set"))
	}

	return errors.Join(errs...)
}
