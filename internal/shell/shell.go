// Package shell is the per-browser root state holder: it knows whether the
// client is still loading, signed out or signed in, and owns the state of the
// view that goes with it.
package shell

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"planner/internal/authview"
	"planner/internal/core"
	"planner/internal/dashboard"
	"planner/internal/identity"
)

// State selects which screen the client sees.
type State int

const (
	Loading State = iota
	SignedOut
	SignedIn
)

func (s State) String() string {
	switch s {
	case Loading:
		return "loading"
	case SignedOut:
		return "signed_out"
	case SignedIn:
		return "signed_in"
	}
	return "unknown"
}

// ViewState is a snapshot of the shell. User is set only when SignedIn.
type ViewState struct {
	State State
	User  *core.User
}

const defaultFetchTimeout = 10 * time.Second

// Shell holds one client's state. Create it with New and call Start once.
type Shell struct {
	clientID     string
	provider     identity.Provider
	logger       *slog.Logger
	fetchTimeout time.Duration

	mu        sync.Mutex
	resolved  bool
	eventSeen bool
	user      *core.User
	dash      *dashboard.View
	auth      *authview.Form

	// serializes form submissions and mode switches
	authMu sync.Mutex

	startOnce   sync.Once
	closeOnce   sync.Once
	unsubscribe func()
	ready       chan struct{}
}

func New(clientID string, provider identity.Provider, logger *slog.Logger) *Shell {
	if logger == nil {
		logger = slog.Default()
	}
	return &Shell{
		clientID:     clientID,
		provider:     provider,
		logger:       logger.With("component", "shell", "client_id", clientID),
		fetchTimeout: defaultFetchTimeout,
		ready:        make(chan struct{}),
	}
}

// Start subscribes to session changes and fetches the current session in the
// background. Only the first call has any effect.
func (s *Shell) Start(ctx context.Context) {
	s.startOnce.Do(func() {
		unsub := s.provider.OnSessionChange(s.onSessionChange)
		s.mu.Lock()
		s.unsubscribe = unsub
		s.mu.Unlock()

		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.fetchTimeout)
		go func() {
			defer cancel()
			sess, err := s.provider.CurrentSession(fetchCtx)
			if err != nil {
				s.logger.ErrorContext(fetchCtx, "Initial session fetch failed, treating client as signed out", "error", err)
				sess = nil
			}
			s.resolve(sess)
		}()
	})
}

func (s *Shell) resolve(sess *core.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.resolved {
		return
	}
	// an event that arrived while fetching is newer than the fetch result
	if !s.eventSeen {
		var u *core.User
		if sess != nil {
			user := sess.User
			u = &user
		}
		s.setUserLocked(u)
	}
	s.resolved = true
	close(s.ready)
}

func (s *Shell) onSessionChange(e core.SessionEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.eventSeen = true
	s.setUserLocked(e.User())
	s.logger.Debug("Session changed", "event_kind", string(e.Kind), "signed_in", s.user != nil)
}

// setUserLocked mounts the view that matches u. Entering SignedIn mounts a
// fresh dashboard; leaving it drops the dashboard and mounts a fresh form.
func (s *Shell) setUserLocked(u *core.User) {
	wasSignedIn := s.user != nil
	s.user = u
	switch {
	case u != nil && !wasSignedIn:
		s.dash = dashboard.NewView()
		s.auth = nil
	case u == nil && (wasSignedIn || s.auth == nil):
		s.dash = nil
		s.auth = authview.New()
	}
}

// Ready is closed once the initial fetch has resolved.
func (s *Shell) Ready() <-chan struct{} {
	return s.ready
}

// View reports what the client should see. Loading is returned until the
// initial fetch resolves, whatever events arrived meanwhile.
func (s *Shell) View() ViewState {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.resolved {
		return ViewState{State: Loading}
	}
	if s.user == nil {
		return ViewState{State: SignedOut}
	}
	u := *s.user
	return ViewState{State: SignedIn, User: &u}
}

// Dashboard returns the mounted dashboard, or nil when not signed in.
func (s *Shell) Dashboard() *dashboard.View {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.resolved || s.user == nil {
		return nil
	}
	return s.dash
}

func (s *Shell) authForm() *authview.Form {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.resolved || s.user != nil {
		return nil
	}
	return s.auth
}

// AuthForm returns a copy of the mounted form, or false when the client is
// not on the auth screen. The copy never carries the password.
func (s *Shell) AuthForm() (authview.Form, bool) {
	s.authMu.Lock()
	defer s.authMu.Unlock()
	f := s.authForm()
	if f == nil {
		return authview.Form{}, false
	}
	snap := *f
	snap.Password = ""
	return snap, true
}

// SetAuthMode switches the mounted form's intent.
func (s *Shell) SetAuthMode(m authview.Mode) (authview.Form, bool) {
	s.authMu.Lock()
	f := s.authForm()
	if f != nil {
		f.SetMode(m)
	}
	s.authMu.Unlock()
	return s.AuthForm()
}

// SubmitAuth fills the mounted form and submits it. It returns the form as it
// stands afterwards; on success the shell has usually moved to SignedIn
// through the provider's notification.
func (s *Shell) SubmitAuth(ctx context.Context, mode authview.Mode, email, password string) (authview.Form, error) {
	s.authMu.Lock()
	f := s.authForm()
	if f == nil {
		s.authMu.Unlock()
		return authview.Form{}, nil
	}
	f.SetMode(mode)
	f.Email = email
	f.Password = password
	err := f.Submit(ctx, s.provider)
	f.Password = ""
	snap := *f
	s.authMu.Unlock()
	return snap, err
}

// SignOut asks the provider to end the session. The shell changes only when
// the resulting notification arrives.
func (s *Shell) SignOut(ctx context.Context) error {
	return s.provider.SignOut(ctx)
}

// Close releases the session subscription. It is safe to call many times.
func (s *Shell) Close() {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		unsub := s.unsubscribe
		s.mu.Unlock()
		if unsub != nil {
			unsub()
		}
	})
}
