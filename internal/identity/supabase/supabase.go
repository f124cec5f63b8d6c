// Package supabase implements the session provider on Supabase Auth (GoTrue).
package supabase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	gotrue "github.com/supabase-community/gotrue-go"
	"github.com/supabase-community/gotrue-go/types"
	supa "github.com/supabase-community/supabase-go"
	"golang.org/x/sync/singleflight"

	"planner/internal/core"
	"planner/internal/identity"
)

// authAPI is the part of GoTrue the provider uses.
type authAPI interface {
	Signup(req types.SignupRequest) (*types.SignupResponse, error)
	SignInWithEmailPassword(email, password string) (*types.TokenResponse, error)
	RefreshToken(refreshToken string) (*types.TokenResponse, error)
	Logout(accessToken string) error
}

type gotrueAPI struct {
	client gotrue.Client
}

func (g gotrueAPI) Signup(req types.SignupRequest) (*types.SignupResponse, error) {
	return g.client.Signup(req)
}

func (g gotrueAPI) SignInWithEmailPassword(email, password string) (*types.TokenResponse, error) {
	return g.client.SignInWithEmailPassword(email, password)
}

func (g gotrueAPI) RefreshToken(refreshToken string) (*types.TokenResponse, error) {
	return g.client.RefreshToken(refreshToken)
}

func (g gotrueAPI) Logout(accessToken string) error {
	return g.client.WithToken(accessToken).Logout()
}

// Factory hands out per-client providers sharing one Supabase client.
type Factory struct {
	api      authAPI
	sessions identity.Sessions
	refresh  singleflight.Group
	logger   *slog.Logger
	now      func() time.Time
}

// NewFactory connects to the Supabase project at url with the anon key.
func NewFactory(url, key string, sessions identity.Sessions, logger *slog.Logger) (*Factory, error) {
	client, err := supa.NewClient(url, key, &supa.ClientOptions{})
	if err != nil {
		return nil, fmt.Errorf("create supabase client: %w", err)
	}
	return newFactory(gotrueAPI{client: client.Auth}, sessions, logger), nil
}

func newFactory(api authAPI, sessions identity.Sessions, logger *slog.Logger) *Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &Factory{api: api, sessions: sessions, logger: logger, now: time.Now}
}

func (f *Factory) ForClient(clientID string) identity.Provider {
	return &Provider{factory: f, clientID: clientID}
}

// Provider is the Supabase session provider for one client.
type Provider struct {
	factory  *Factory
	clientID string
}

func (f *Factory) toSession(s types.Session) core.Session {
	sess := core.Session{
		AccessToken:  s.AccessToken,
		RefreshToken: s.RefreshToken,
		User: core.User{
			ID:    s.User.ID.String(),
			Email: s.User.Email,
		},
	}
	switch {
	case s.ExpiresAt > 0:
		sess.ExpiresAt = time.Unix(s.ExpiresAt, 0)
	case s.ExpiresIn > 0:
		sess.ExpiresAt = f.now().Add(time.Duration(s.ExpiresIn) * time.Second)
	}
	return sess
}

// CurrentSession returns the stored session, refreshing it first when the
// access token has expired. A failed refresh ends the session.
func (p *Provider) CurrentSession(ctx context.Context) (*core.Session, error) {
	sess, err := p.factory.sessions.Load(ctx, p.clientID)
	if err != nil || sess == nil {
		return nil, err
	}
	if !sess.Expired(p.factory.now()) {
		return sess, nil
	}

	v, err, _ := p.factory.refresh.Do(p.clientID, func() (any, error) {
		return p.refresh(ctx, *sess)
	})
	if err != nil {
		return nil, err
	}
	return v.(*core.Session), nil
}

func (p *Provider) refresh(ctx context.Context, stale core.Session) (*core.Session, error) {
	tr, err := p.factory.api.RefreshToken(stale.RefreshToken)
	if err != nil {
		p.factory.logger.WarnContext(ctx, "Token refresh failed, ending session",
			"client_id", p.clientID,
			"user_id", stale.User.ID,
			"error", err)
		if endErr := p.factory.sessions.End(ctx, p.clientID); endErr != nil {
			return nil, endErr
		}
		return nil, nil
	}

	fresh := p.factory.toSession(tr.Session)
	if err := p.factory.sessions.Establish(ctx, p.clientID, fresh, core.EventTokenRefreshed); err != nil {
		return nil, err
	}
	return &fresh, nil
}

// SignUp registers the user. When the project requires email confirmation
// GoTrue returns no session, so nothing is stored and no event fires.
func (p *Provider) SignUp(ctx context.Context, creds core.Credentials) error {
	resp, err := p.factory.api.Signup(types.SignupRequest{
		Email:    creds.Email,
		Password: creds.Password,
	})
	if err != nil {
		return translateError(err)
	}
	if resp.Session.AccessToken == "" {
		p.factory.logger.InfoContext(ctx, "Sign-up awaiting email confirmation", "client_id", p.clientID)
		return nil
	}
	return p.factory.sessions.Establish(ctx, p.clientID, p.factory.toSession(resp.Session), core.EventSignedIn)
}

func (p *Provider) SignIn(ctx context.Context, creds core.Credentials) error {
	tr, err := p.factory.api.SignInWithEmailPassword(creds.Email, creds.Password)
	if err != nil {
		return translateError(err)
	}
	return p.factory.sessions.Establish(ctx, p.clientID, p.factory.toSession(tr.Session), core.EventSignedIn)
}

// SignOut revokes the session at GoTrue, then forgets it locally. An expired
// access token is not sent, and a revoke GoTrue rejects as unauthorized or
// unknown counts as already revoked. Any other revoke failure leaves the local
// session untouched.
func (p *Provider) SignOut(ctx context.Context) error {
	sess, err := p.factory.sessions.Load(ctx, p.clientID)
	if err != nil {
		return err
	}
	if sess != nil && !sess.Expired(p.factory.now()) {
		if err := p.factory.api.Logout(sess.AccessToken); err != nil {
			if !alreadyRevoked(err) {
				return translateError(err)
			}
			p.factory.logger.InfoContext(ctx, "Session already revoked upstream",
				"client_id", p.clientID,
				"error", err)
		}
	}
	return p.factory.sessions.End(ctx, p.clientID)
}

func (p *Provider) OnSessionChange(fn func(core.SessionEvent)) func() {
	return p.factory.sessions.Subscribe(p.clientID, fn)
}
