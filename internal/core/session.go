package core

import (
	"strings"
	"time"
)

const (
	EventSignedIn       EventKind = "SIGNED_IN"
	EventSignedOut      EventKind = "SIGNED_OUT"
	EventTokenRefreshed EventKind = "TOKEN_REFRESHED"
)

type (
	EventKind string

	// User is the identity the provider attaches to a session.
	User struct {
		ID    string `json:"id"`
		Email string `json:"email"`
	}

	// Session is issued and owned by the session provider. The application only
	// ever holds the User part of it.
	Session struct {
		AccessToken  string    `json:"access_token"`
		RefreshToken string    `json:"refresh_token"`
		ExpiresAt    time.Time `json:"expires_at"`
		User         User      `json:"user"`
	}

	// Credentials are exactly what the auth form collected.
	Credentials struct {
		Email    string
		Password string
	}

	// SessionEvent is a session-change notification for one client.
	SessionEvent struct {
		Kind      EventKind
		ClientID  string
		Session   *Session // nil for EventSignedOut
		Timestamp time.Time
	}
)

// Valid reports whether k is one of the known event kinds.
func (k EventKind) Valid() bool {
	switch k {
	case EventSignedIn, EventSignedOut, EventTokenRefreshed:
		return true
	}
	return false
}

// Expired reports whether the access token is past its expiry at now.
// A zero ExpiresAt never expires.
func (s Session) Expired(now time.Time) bool {
	if s.ExpiresAt.IsZero() {
		return false
	}
	return !now.Before(s.ExpiresAt)
}

// Valid reports whether the session carries an access token and a user.
func (s Session) Valid() bool {
	return strings.TrimSpace(s.AccessToken) != "" && s.User.ID != ""
}

// NewSessionEvent stamps an event with the current time.
func NewSessionEvent(kind EventKind, clientID string, s *Session) SessionEvent {
	return SessionEvent{
		Kind:      kind,
		ClientID:  clientID,
		Session:   s,
		Timestamp: time.Now(),
	}
}

// User returns the user carried by the event, or nil when the event ends the session.
func (e SessionEvent) User() *User {
	if e.Kind == EventSignedOut || e.Session == nil {
		return nil
	}
	u := e.Session.User
	return &u
}
