package core

import (
	"errors"
	"fmt"
)

// GenericAuthMessage is shown when a failure carries no provider message.
const GenericAuthMessage = "An error occurred"

const (
	ErrKindInvalidCredentials ErrorKind = "invalid_credentials"
	ErrKindUserExists         ErrorKind = "user_exists"
	ErrKindWeakPassword       ErrorKind = "weak_password"
	ErrKindProvider           ErrorKind = "provider"
	ErrKindUnavailable        ErrorKind = "unavailable"
)

type ErrorKind string

// AuthError is the typed failure returned by every session provider operation.
type AuthError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *AuthError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = GenericAuthMessage
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, msg)
}

func (e *AuthError) Unwrap() error { return e.Err }

// NewAuthError builds an AuthError without an underlying cause.
func NewAuthError(kind ErrorKind, message string) *AuthError {
	return &AuthError{Kind: kind, Message: message}
}

var (
	ErrNoSession       = errors.New("no session")
	ErrSessionNotFound = errors.New("session not found")
)

// UserMessage returns the human-readable text for a failed auth operation:
// the provider's message when the error is an AuthError carrying one, else
// GenericAuthMessage. A nil error yields "".
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var ae *AuthError
	if errors.As(err, &ae) && ae.Message != "" {
		return ae.Message
	}
	return GenericAuthMessage
}
