// Package authview is the sign-up / sign-in form model.
package authview

import (
	"context"

	"planner/internal/core"
	"planner/internal/identity"
)

// Mode is the form's intent.
type Mode string

const (
	ModeSignUp Mode = "signup"
	ModeSignIn Mode = "signin"
)

// ParseMode maps a request value to a Mode; anything unknown is sign-up,
// the form's default.
func ParseMode(s string) Mode {
	if Mode(s) == ModeSignIn {
		return ModeSignIn
	}
	return ModeSignUp
}

// Form holds the form's ephemeral state.
type Form struct {
	Email    string
	Password string
	Mode     Mode
	Busy     bool
	Error    string
}

// New returns an empty form in sign-up mode.
func New() *Form {
	return &Form{Mode: ModeSignUp}
}

// SetMode switches intent. Entered text and any error stay as they are.
func (f *Form) SetMode(m Mode) {
	f.Mode = m
}

// SubmitLabel is the primary button text.
func (f *Form) SubmitLabel() string {
	switch {
	case f.Busy:
		return "Processing..."
	case f.Mode == ModeSignIn:
		return "Sign In"
	default:
		return "Create Account"
	}
}

// Submit sends exactly the entered credentials to the provider operation the
// mode selects. Busy is set for the duration of the call and always cleared;
// a failure leaves its user-facing message in Error.
func (f *Form) Submit(ctx context.Context, p identity.Provider) error {
	f.Error = ""
	f.Busy = true
	defer func() { f.Busy = false }()

	creds := core.Credentials{Email: f.Email, Password: f.Password}
	var err error
	if f.Mode == ModeSignIn {
		err = p.SignIn(ctx, creds)
	} else {
		err = p.SignUp(ctx, creds)
	}
	if err != nil {
		f.Error = core.UserMessage(err)
	}
	return err
}
