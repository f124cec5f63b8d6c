package sessionstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"planner/internal/core"

	_ "modernc.org/sqlite"
)

// SQLiteStore keeps sessions in a local SQLite database.
type SQLiteStore struct {
	db  *sql.DB
	ttl time.Duration
	now func() time.Time
}

func NewSQLiteStore(dbPath string, ttl time.Duration) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteStore{db: db, ttl: ttl, now: time.Now}, nil
}

func (s *SQLiteStore) Load(ctx context.Context, clientID string) (core.Session, error) {
	var (
		sess           core.Session
		tokenExpiresAt int64
		expiresAt      int64
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT access_token, refresh_token, token_expires_at, user_id, user_email, expires_at
		FROM sessions WHERE client_id = ?`, clientID).
		Scan(&sess.AccessToken, &sess.RefreshToken, &tokenExpiresAt, &sess.User.ID, &sess.User.Email, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Session{}, core.ErrSessionNotFound
	}
	if err != nil {
		return core.Session{}, fmt.Errorf("load session: %w", err)
	}

	if expiresAt > 0 && s.now().Unix() >= expiresAt {
		if err := s.Delete(ctx, clientID); err != nil {
			return core.Session{}, err
		}
		return core.Session{}, core.ErrSessionNotFound
	}
	if tokenExpiresAt > 0 {
		sess.ExpiresAt = time.Unix(tokenExpiresAt, 0)
	}
	return sess, nil
}

func (s *SQLiteStore) Save(ctx context.Context, clientID string, sess core.Session) error {
	now := s.now()
	var tokenExpiresAt, expiresAt int64
	if !sess.ExpiresAt.IsZero() {
		tokenExpiresAt = sess.ExpiresAt.Unix()
	}
	if s.ttl > 0 {
		expiresAt = now.Add(s.ttl).Unix()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions (client_id, access_token, refresh_token, token_expires_at, user_id, user_email, expires_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(client_id) DO UPDATE SET
			access_token = excluded.access_token,
			refresh_token = excluded.refresh_token,
			token_expires_at = excluded.token_expires_at,
			user_id = excluded.user_id,
			user_email = excluded.user_email,
			expires_at = excluded.expires_at,
			updated_at = excluded.updated_at`,
		clientID, sess.AccessToken, sess.RefreshToken, tokenExpiresAt,
		sess.User.ID, sess.User.Email, expiresAt, now.Unix())
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Delete(ctx context.Context, clientID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE client_id = ?`, clientID); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// PurgeExpired removes rows past their store expiry and returns how many went.
func (s *SQLiteStore) PurgeExpired(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at > 0 AND expires_at <= ?`, s.now().Unix())
	if err != nil {
		return 0, fmt.Errorf("purge sessions: %w", err)
	}
	return res.RowsAffected()
}

// CleanExpired purges expired rows for the cache janitor. Errors count as
// nothing removed.
func (s *SQLiteStore) CleanExpired() int {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	n, err := s.PurgeExpired(ctx)
	if err != nil {
		return 0
	}
	return int(n)
}

// Ping reports whether the database is reachable.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
