// Package memory is an in-process session provider for local development
// and tests. Passwords are kept as bcrypt hashes.
package memory

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"planner/internal/core"
	"planner/internal/identity"
)

const (
	minPasswordLen = 6
	tokenLifetime  = time.Hour
)

// Messages mirror what the hosted provider answers.
const (
	msgWeakPassword       = "Password should be at least 6 characters"
	msgUserExists         = "User already registered"
	msgInvalidCredentials = "Invalid login credentials"
	msgInvalidEmail       = "Unable to validate email address: invalid format"
)

type account struct {
	id   string
	hash []byte
}

// Directory holds registered users. It is shared by every client's provider.
type Directory struct {
	mu       sync.RWMutex
	accounts map[string]account
	cost     int
}

// NewDirectory creates an empty directory hashing with the given bcrypt cost.
// A cost of zero uses bcrypt.DefaultCost.
func NewDirectory(cost int) *Directory {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	return &Directory{accounts: make(map[string]account), cost: cost}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (d *Directory) register(creds core.Credentials) (core.User, error) {
	email := normalizeEmail(creds.Email)
	if !strings.Contains(email, "@") {
		return core.User{}, core.NewAuthError(core.ErrKindProvider, msgInvalidEmail)
	}
	if len(creds.Password) < minPasswordLen {
		return core.User{}, core.NewAuthError(core.ErrKindWeakPassword, msgWeakPassword)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(creds.Password), d.cost)
	if err != nil {
		return core.User{}, &core.AuthError{Kind: core.ErrKindProvider, Err: err}
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if _, exists := d.accounts[email]; exists {
		return core.User{}, core.NewAuthError(core.ErrKindUserExists, msgUserExists)
	}
	acct := account{id: uuid.NewString(), hash: hash}
	d.accounts[email] = acct
	return core.User{ID: acct.id, Email: email}, nil
}

func (d *Directory) authenticate(creds core.Credentials) (core.User, error) {
	email := normalizeEmail(creds.Email)
	d.mu.RLock()
	acct, ok := d.accounts[email]
	d.mu.RUnlock()
	if !ok {
		return core.User{}, core.NewAuthError(core.ErrKindInvalidCredentials, msgInvalidCredentials)
	}
	if err := bcrypt.CompareHashAndPassword(acct.hash, []byte(creds.Password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return core.User{}, core.NewAuthError(core.ErrKindInvalidCredentials, msgInvalidCredentials)
		}
		return core.User{}, &core.AuthError{Kind: core.ErrKindProvider, Err: err}
	}
	return core.User{ID: acct.id, Email: email}, nil
}

// Users returns the number of registered accounts.
func (d *Directory) Users() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.accounts)
}

// Factory hands out per-client providers backed by one directory.
type Factory struct {
	dir      *Directory
	sessions identity.Sessions
	logger   *slog.Logger
	now      func() time.Time
}

func NewFactory(dir *Directory, sessions identity.Sessions, logger *slog.Logger) *Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &Factory{dir: dir, sessions: sessions, logger: logger, now: time.Now}
}

func (f *Factory) ForClient(clientID string) identity.Provider {
	return &Provider{factory: f, clientID: clientID}
}

// Provider is the memory session provider for one client.
type Provider struct {
	factory  *Factory
	clientID string
}

func (p *Provider) issue(user core.User) core.Session {
	return core.Session{
		AccessToken:  uuid.NewString(),
		RefreshToken: uuid.NewString(),
		ExpiresAt:    p.factory.now().Add(tokenLifetime),
		User:         user,
	}
}

func (p *Provider) CurrentSession(ctx context.Context) (*core.Session, error) {
	sess, err := p.factory.sessions.Load(ctx, p.clientID)
	if err != nil || sess == nil {
		return nil, err
	}
	if !sess.Expired(p.factory.now()) {
		return sess, nil
	}

	refreshed := p.issue(sess.User)
	if err := p.factory.sessions.Establish(ctx, p.clientID, refreshed, core.EventTokenRefreshed); err != nil {
		return nil, err
	}
	p.factory.logger.DebugContext(ctx, "Session refreshed", "client_id", p.clientID, "user_id", sess.User.ID)
	return &refreshed, nil
}

// SignUp registers the user and signs them straight in; there is no email
// confirmation step in memory.
func (p *Provider) SignUp(ctx context.Context, creds core.Credentials) error {
	user, err := p.factory.dir.register(creds)
	if err != nil {
		return err
	}
	return p.factory.sessions.Establish(ctx, p.clientID, p.issue(user), core.EventSignedIn)
}

func (p *Provider) SignIn(ctx context.Context, creds core.Credentials) error {
	user, err := p.factory.dir.authenticate(creds)
	if err != nil {
		return err
	}
	return p.factory.sessions.Establish(ctx, p.clientID, p.issue(user), core.EventSignedIn)
}

func (p *Provider) SignOut(ctx context.Context) error {
	return p.factory.sessions.End(ctx, p.clientID)
}

func (p *Provider) OnSessionChange(fn func(core.SessionEvent)) func() {
	return p.factory.sessions.Subscribe(p.clientID, fn)
}
