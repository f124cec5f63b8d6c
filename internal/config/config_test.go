package config

import (
	"log/slog"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func validConfig() Config {
	return Config{
		Port:           "8081",
		LogLevel:       "info",
		AuthBackend:    AuthMemory,
		SessionBackend: SessionMemory,
		SessionTTL:     time.Hour,
		CookieName:     "planner_client",
		ShellTTL:       30 * time.Minute,
		MaxShells:      100,
		AuthRateLimit:  10,
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(*Config)
		wantErr     bool
		errorString string
	}{
		{
			name:    "valid memory config",
			mutate:  func(*Config) {},
			wantErr: false,
		},
		{
			name: "valid supabase and redis config",
			mutate: func(c *Config) {
				c.AuthBackend = AuthSupabase
				c.SupabaseURL = "https://project.supabase.co"
				c.SupabaseKey = "anon-key"
				c.SessionBackend = SessionRedis
				c.RedisAddr = "localhost:6379"
			},
			wantErr: false,
		},
		{
			name:        "invalid port - non-numeric",
			mutate:      func(c *Config) { c.Port = "abc" },
			wantErr:     true,
			errorString: "invalid port 'abc': must be a number",
		},
		{
			name:        "invalid port - out of range high",
			mutate:      func(c *Config) { c.Port = "70000" },
			wantErr:     true,
			errorString: "invalid port 70000: must be between 1 and 65535",
		},
		{
			name:        "invalid log level",
			mutate:      func(c *Config) { c.LogLevel = "verbose" },
			wantErr:     true,
			errorString: "invalid log level 'verbose'",
		},
		{
			name:        "invalid auth backend",
			mutate:      func(c *Config) { c.AuthBackend = "ldap" },
			wantErr:     true,
			errorString: "invalid auth backend 'ldap': must be one of [memory supabase]",
		},
		{
			name:        "supabase without url",
			mutate:      func(c *Config) { c.AuthBackend = AuthSupabase; c.SupabaseKey = "k" },
			wantErr:     true,
			errorString: "SUPABASE_URL is required when using supabase auth backend",
		},
		{
			name: "supabase with non-http url",
			mutate: func(c *Config) {
				c.AuthBackend = AuthSupabase
				c.SupabaseURL = "ftp://example.com"
				c.SupabaseKey = "k"
			},
			wantErr:     true,
			errorString: "invalid SUPABASE_URL 'ftp://example.com'",
		},
		{
			name: "supabase without key",
			mutate: func(c *Config) {
				c.AuthBackend = AuthSupabase
				c.SupabaseURL = "https://project.supabase.co"
			},
			wantErr:     true,
			errorString: "SUPABASE_KEY is required when using supabase auth backend",
		},
		{
			name:        "invalid session backend",
			mutate:      func(c *Config) { c.SessionBackend = "postgres" },
			wantErr:     true,
			errorString: "invalid session backend 'postgres': must be one of [memory sqlite redis]",
		},
		{
			name:        "sqlite backend missing database path",
			mutate:      func(c *Config) { c.SessionBackend = SessionSQLite; c.SQLiteDBPath = "" },
			wantErr:     true,
			errorString: "SQLite database path cannot be empty when using sqlite session backend",
		},
		{
			name:        "redis backend missing address",
			mutate:      func(c *Config) { c.SessionBackend = SessionRedis; c.RedisAddr = "" },
			wantErr:     true,
			errorString: "REDIS_ADDR cannot be empty when using redis session backend",
		},
		{
			name:        "session ttl too short",
			mutate:      func(c *Config) { c.SessionTTL = time.Second },
			wantErr:     true,
			errorString: "invalid session ttl 1s: must be at least 1 minute",
		},
		{
			name:        "empty cookie name",
			mutate:      func(c *Config) { c.CookieName = "" },
			wantErr:     true,
			errorString: "cookie name cannot be empty",
		},
		{
			name:        "max shells zero",
			mutate:      func(c *Config) { c.MaxShells = 0 },
			wantErr:     true,
			errorString: "invalid max shells 0: must be at least 1",
		},
		{
			name:        "auth rate limit zero",
			mutate:      func(c *Config) { c.AuthRateLimit = 0 },
			wantErr:     true,
			errorString: "invalid auth rate limit 0: must be at least 1 per minute",
		},
		{
			name:        "invalid AMQP URL scheme",
			mutate:      func(c *Config) { c.AMQPURL = "http://localhost:5672/"; c.AMQPExchange = "x"; c.AMQPQueue = "q" },
			wantErr:     true,
			errorString: "invalid AMQP URL scheme 'http': must be 'amqp' or 'amqps'",
		},
		{
			name:        "AMQP URL without exchange",
			mutate:      func(c *Config) { c.AMQPURL = "amqp://localhost:5672/"; c.AMQPQueue = "q" },
			wantErr:     true,
			errorString: "AMQP exchange name cannot be empty when AMQP URL is provided",
		},
		{
			name:        "AMQP URL without queue",
			mutate:      func(c *Config) { c.AMQPURL = "amqp://localhost:5672/"; c.AMQPExchange = "x" },
			wantErr:     true,
			errorString: "AMQP queue name cannot be empty when AMQP URL is provided",
		},
		{
			name:    "valid trusted proxies",
			mutate:  func(c *Config) { c.TrustedProxies = []string{"10.1.0.0/16", "2001:db8::/32"} },
			wantErr: false,
		},
		{
			name:        "trusted proxy not a CIDR",
			mutate:      func(c *Config) { c.TrustedProxies = []string{"10.1.0.1"} },
			wantErr:     true,
			errorString: "invalid trusted proxy '10.1.0.1': must be a CIDR",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr {
				if err == nil {
					t.Errorf("Config.Validate() error = nil, wantErr %v", tt.wantErr)
					return
				}
				if tt.errorString != "" && !strings.Contains(err.Error(), tt.errorString) {
					t.Errorf("Config.Validate() error = %v, want error containing %v", err.Error(), tt.errorString)
				}
			} else if err != nil {
				t.Errorf("Config.Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfig_ValidateAggregatesErrors(t *testing.T) {
	cfg := validConfig()
	cfg.Port = "abc"
	cfg.CookieName = ""

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error")
	}
	msg := err.Error()
	if !strings.HasPrefix(msg, "configuration validation failed:") {
		t.Errorf("unexpected prefix: %q", msg)
	}
	if strings.Count(msg, "\n- ") != 2 {
		t.Errorf("expected two aggregated problems, got %q", msg)
	}
}

func TestConfig_ValidateCreatesSQLiteDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "data")
	cfg := validConfig()
	cfg.SessionBackend = SessionSQLite
	cfg.SQLiteDBPath = filepath.Join(dir, "sessions.db")

	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"":        slog.LevelInfo,
		"INFO":    slog.LevelInfo,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
	}
	for in, want := range tests {
		got, err := ParseLevel(in)
		if err != nil || got != want {
			t.Errorf("ParseLevel(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
}

func TestLoad(t *testing.T) {
	t.Run("default values", func(t *testing.T) {
		for _, key := range []string{"PORT", "AUTH_BACKEND", "SESSION_BACKEND", "SESSION_TTL", "COOKIE_SECURE", "AMQP_URL", "MAX_SHELLS"} {
			t.Setenv(key, "")
		}
		cfg := Load()

		if cfg.Port != "8081" {
			t.Errorf("Load() Port = %v, want 8081", cfg.Port)
		}
		if cfg.AuthBackend != AuthMemory {
			t.Errorf("Load() AuthBackend = %v, want memory", cfg.AuthBackend)
		}
		if cfg.SessionBackend != SessionMemory {
			t.Errorf("Load() SessionBackend = %v, want memory", cfg.SessionBackend)
		}
		if cfg.SessionTTL != 7*24*time.Hour {
			t.Errorf("Load() SessionTTL = %v, want 168h", cfg.SessionTTL)
		}
		if cfg.CookieSecure {
			t.Error("Load() CookieSecure should default to false")
		}
		if cfg.AMQPURL != "" {
			t.Errorf("Load() AMQPURL = %v, want empty", cfg.AMQPURL)
		}
		if cfg.MaxShells != 1000 {
			t.Errorf("Load() MaxShells = %v, want 1000", cfg.MaxShells)
		}
	})

	t.Run("trusted proxies list", func(t *testing.T) {
		t.Setenv("TRUSTED_PROXIES", " 10.0.0.0/8, ,192.168.1.0/24 ")
		cfg := Load()
		if len(cfg.TrustedProxies) != 2 || cfg.TrustedProxies[0] != "10.0.0.0/8" || cfg.TrustedProxies[1] != "192.168.1.0/24" {
			t.Errorf("Load() TrustedProxies = %q", cfg.TrustedProxies)
		}
	})

	t.Run("environment variables", func(t *testing.T) {
		t.Setenv("PORT", "9090")
		t.Setenv("AUTH_BACKEND", "supabase")
		t.Setenv("SESSION_BACKEND", "redis")
		t.Setenv("REDIS_DB", "3")
		t.Setenv("SESSION_TTL", "2h")
		t.Setenv("COOKIE_SECURE", "true")
		t.Setenv("AUTH_RATE_LIMIT", "25")

		cfg := Load()

		if cfg.Port != "9090" {
			t.Errorf("Load() Port = %v, want 9090", cfg.Port)
		}
		if cfg.AuthBackend != AuthSupabase {
			t.Errorf("Load() AuthBackend = %v, want supabase", cfg.AuthBackend)
		}
		if cfg.SessionBackend != SessionRedis || cfg.RedisDB != 3 {
			t.Errorf("Load() redis settings = %v/%d", cfg.SessionBackend, cfg.RedisDB)
		}
		if cfg.SessionTTL != 2*time.Hour {
			t.Errorf("Load() SessionTTL = %v, want 2h", cfg.SessionTTL)
		}
		if !cfg.CookieSecure {
			t.Error("Load() CookieSecure = false, want true")
		}
		if cfg.AuthRateLimit != 25 {
			t.Errorf("Load() AuthRateLimit = %v, want 25", cfg.AuthRateLimit)
		}
	})

	t.Run("invalid numbers fall back to defaults", func(t *testing.T) {
		t.Setenv("MAX_SHELLS", "many")
		t.Setenv("SHELL_TTL", "soon")

		cfg := Load()
		if cfg.MaxShells != 1000 {
			t.Errorf("Load() MaxShells = %v, want 1000", cfg.MaxShells)
		}
		if cfg.ShellTTL != 30*time.Minute {
			t.Errorf("Load() ShellTTL = %v, want 30m", cfg.ShellTTL)
		}
	})
}
