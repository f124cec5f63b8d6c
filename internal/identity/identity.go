// Package identity defines the session provider port and the session
// bookkeeping shared by its implementations.
package identity

import (
	"context"
	"errors"
	"fmt"

	"planner/internal/core"
	"planner/internal/events"
	"planner/internal/sessionstore"
)

// Provider is the session provider as seen by one browser client.
// Every failure it returns is a *core.AuthError.
type Provider interface {
	// CurrentSession returns the live session, or nil when there is none.
	CurrentSession(ctx context.Context) (*core.Session, error)
	SignUp(ctx context.Context, creds core.Credentials) error
	SignIn(ctx context.Context, creds core.Credentials) error
	SignOut(ctx context.Context) error
	// OnSessionChange registers fn and returns its unsubscribe handle.
	OnSessionChange(fn func(core.SessionEvent)) (unsubscribe func())
}

// Factory binds a provider to a client id.
type Factory interface {
	ForClient(clientID string) Provider
}

// Sessions persists sessions per client and announces every change.
type Sessions struct {
	Store  sessionstore.Store
	Broker *events.Broker
}

// Load returns the stored session for clientID, or nil when there is none.
func (s Sessions) Load(ctx context.Context, clientID string) (*core.Session, error) {
	sess, err := s.Store.Load(ctx, clientID)
	if errors.Is(err, core.ErrSessionNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, &core.AuthError{Kind: core.ErrKindUnavailable, Err: fmt.Errorf("load session: %w", err)}
	}
	return &sess, nil
}

// Establish stores sess and publishes kind for clientID.
func (s Sessions) Establish(ctx context.Context, clientID string, sess core.Session, kind core.EventKind) error {
	if err := s.Store.Save(ctx, clientID, sess); err != nil {
		return &core.AuthError{Kind: core.ErrKindUnavailable, Err: fmt.Errorf("save session: %w", err)}
	}
	s.Broker.Publish(ctx, core.NewSessionEvent(kind, clientID, &sess))
	return nil
}

// End forgets the client's session and publishes EventSignedOut.
func (s Sessions) End(ctx context.Context, clientID string) error {
	if err := s.Store.Delete(ctx, clientID); err != nil {
		return &core.AuthError{Kind: core.ErrKindUnavailable, Err: fmt.Errorf("delete session: %w", err)}
	}
	s.Broker.Publish(ctx, core.NewSessionEvent(core.EventSignedOut, clientID, nil))
	return nil
}

// Subscribe registers fn for clientID's session events.
func (s Sessions) Subscribe(clientID string, fn func(core.SessionEvent)) func() {
	return s.Broker.Subscribe(clientID, fn)
}
