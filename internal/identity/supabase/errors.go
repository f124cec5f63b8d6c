package supabase

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"

	"planner/internal/core"
)

// translateError turns a GoTrue client failure into a *core.AuthError.
// GoTrue embeds the JSON response body in the error text, for example
// `response status code 400: {"code":400,"msg":"Invalid login credentials"}`.
func translateError(err error) error {
	if err == nil {
		return nil
	}
	var ae *core.AuthError
	if errors.As(err, &ae) {
		return err
	}

	body := errorBody(err.Error())
	if body == "" {
		return &core.AuthError{Kind: core.ErrKindUnavailable, Err: err}
	}

	res := gjson.Parse(body)
	message := firstString(res, "msg", "error_description", "message")
	code := firstString(res, "error_code", "error")

	return &core.AuthError{Kind: classify(code, message), Message: message, Err: err}
}

func errorBody(text string) string {
	i := strings.Index(text, "{")
	if i < 0 {
		return ""
	}
	body := text[i:]
	if !gjson.Valid(body) {
		return ""
	}
	return body
}

func firstString(res gjson.Result, paths ...string) string {
	for _, p := range paths {
		if v := res.Get(p); v.Type == gjson.String && v.String() != "" {
			return v.String()
		}
	}
	return ""
}

func classify(code, message string) core.ErrorKind {
	switch code {
	case "invalid_credentials", "invalid_grant":
		return core.ErrKindInvalidCredentials
	case "user_already_exists", "email_exists":
		return core.ErrKindUserExists
	case "weak_password":
		return core.ErrKindWeakPassword
	}

	m := strings.ToLower(message)
	switch {
	case strings.Contains(m, "invalid login credentials"):
		return core.ErrKindInvalidCredentials
	case strings.Contains(m, "already registered"):
		return core.ErrKindUserExists
	case strings.Contains(m, "password should be"):
		return core.ErrKindWeakPassword
	}
	return core.ErrKindProvider
}

// alreadyRevoked reports whether a logout failure means GoTrue no longer
// knows the token: 401, 403, 404 or an invalid-credentials body.
func alreadyRevoked(err error) bool {
	switch statusCode(err.Error()) {
	case http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound:
		return true
	}
	var ae *core.AuthError
	return errors.As(translateError(err), &ae) && ae.Kind == core.ErrKindInvalidCredentials
}

// statusCode reads the HTTP status from GoTrue's error text, falling back to
// the "code" field of the body. It returns 0 when neither is present.
func statusCode(text string) int {
	const marker = "status code "
	if i := strings.Index(text, marker); i >= 0 {
		rest := text[i+len(marker):]
		end := 0
		for end < len(rest) && rest[end] >= '0' && rest[end] <= '9' {
			end++
		}
		if n, err := strconv.Atoi(rest[:end]); err == nil {
			return n
		}
	}
	if body := errorBody(text); body != "" {
		if v := gjson.Get(body, "code"); v.Type == gjson.Number {
			return int(v.Int())
		}
	}
	return 0
}
