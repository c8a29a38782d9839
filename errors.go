package auth

import (
	"strings"

	"github.com/goliatone/go-errors"
)

// Text codes surfaced in the error envelope's `code` field.
const (
	textCodeUserNotFound    = "USER_NOT_FOUND"
	textCodeUserExists      = "USER_ALREADY_EXISTS"
	textCodeAlreadyVerified = "USER_ALREADY_VERIFIED"
	textCodePasswordMatch   = "USER_PASSWORD_MATCH"
	textCodePasswordMissed  = "USER_PASSWORD_MISMATCH"
	textCodeInvalidPassword = "INVALID_PASSWORD"
	textCodeBadCredentials  = "BAD_CREDENTIALS"
	textCodeBadToken        = "BAD_TOKEN"
	textCodeTokenExpired    = "TOKEN_EXPIRED"
	textCodeInvalidToken    = "INVALID_TOKEN"
	textCodeNotVerified     = "USER_NOT_VERIFIED"
	textCodeMailSend        = "MAIL_SEND_ERROR"
)

// ErrIdentityNotFound is returned when no account matches the lookup.
var ErrIdentityNotFound = errors.New("identity not found", errors.CategoryNotFound).
	WithTextCode(textCodeUserNotFound).
	WithCode(errors.CodeNotFound)

// ErrIdentityExists is returned when a unique account field collides.
var ErrIdentityExists = errors.New("identity already exists", errors.CategoryConflict).
	WithTextCode(textCodeUserExists).
	WithCode(errors.CodeConflict)

// ErrAlreadyVerified guards repeated verification requests.
var ErrAlreadyVerified = errors.New("identity is already verified", errors.CategoryConflict).
	WithTextCode(textCodeAlreadyVerified).
	WithCode(errors.CodeConflict)

// ErrPasswordMatchesOld rejects password changes that reuse the old secret.
var ErrPasswordMatchesOld = errors.New("new password matches the old one", errors.CategoryConflict).
	WithTextCode(textCodePasswordMatch).
	WithCode(errors.CodeConflict)

// ErrPasswordMismatch rejects password changes with a wrong current secret.
var ErrPasswordMismatch = errors.New("old password does not match", errors.CategoryConflict).
	WithTextCode(textCodePasswordMissed).
	WithCode(errors.CodeConflict)

// ErrInvalidPassword is returned when a candidate secret fails validation.
var ErrInvalidPassword = errors.New("password failed validation", errors.CategoryValidation).
	WithTextCode(textCodeInvalidPassword).
	WithCode(errors.CodeBadRequest)

// ErrEmptyPassword is the hasher's rejection of empty secrets.
var ErrEmptyPassword = errors.New("password must not be empty", errors.CategoryValidation).
	WithTextCode(textCodeInvalidPassword).
	WithCode(errors.CodeBadRequest)

// ErrBadCredentials is the generic login failure. Wrong password and
// unknown email map here on purpose so callers cannot enumerate users.
var ErrBadCredentials = errors.New("invalid email or password", errors.CategoryAuth).
	WithTextCode(textCodeBadCredentials).
	WithCode(errors.CodeBadRequest)

// ErrBadToken is returned when presented token material fails to decode.
var ErrBadToken = errors.New("invalid or expired token", errors.CategoryAuth).
	WithTextCode(textCodeBadToken).
	WithCode(errors.CodeUnauthorized)

// ErrTokenExpired is the structured variant for expired JWTs.
var ErrTokenExpired = errors.New("token is expired", errors.CategoryAuth).
	WithTextCode(textCodeTokenExpired).
	WithCode(errors.CodeUnauthorized)

// ErrInvalidToken covers every opaque token failure: wrong shape, failed
// decryption, tag mismatch, and elapsed TTL all collapse here so the
// error is never an oracle for why the token was rejected.
var ErrInvalidToken = errors.New("invalid token", errors.CategoryAuth).
	WithTextCode(textCodeInvalidToken).
	WithCode(errors.CodeConflict)

// ErrNotVerified is the forbidden (not unauthorized) gate for endpoints
// that require a confirmed email.
var ErrNotVerified = errors.New("identity is not verified", errors.CategoryAuthz).
	WithTextCode(textCodeNotVerified).
	WithCode(errors.CodeForbidden)

// ErrMailDispatch signals the mail collaborator rejected the enqueue.
// Distinct from client errors, it maps to a gateway failure upstream.
var ErrMailDispatch = errors.New("unable to dispatch email", errors.CategoryOperation).
	WithTextCode(textCodeMailSend).
	WithCode(502)

// WithErrorFields clones a rich error and attaches the offending field
// names so the HTTP layer can surface them in `error_fields`. The clone
// keeps the original as its source so errors.Is still matches.
func WithErrorFields(err *errors.Error, fields ...string) *errors.Error {
	if err == nil || len(fields) == 0 {
		return err
	}
	clone := err.Clone()
	clone.Source = err
	return clone.WithMetadata(map[string]any{"error_fields": fields})
}

// ErrorFields extracts the field names attached by WithErrorFields.
func ErrorFields(err error) []string {
	var richErr *errors.Error
	if !errors.As(err, &richErr) || richErr.Metadata == nil {
		return nil
	}

	switch fields := richErr.Metadata["error_fields"].(type) {
	case []string:
		return fields
	case []any:
		out := make([]string, 0, len(fields))
		for _, f := range fields {
			if s, ok := f.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// IsNotFound reports whether err is a missing-identity error.
func IsNotFound(err error) bool {
	return errors.IsNotFound(err)
}

// IsTokenExpiredError will check for expired tokens
func IsTokenExpiredError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrTokenExpired) {
		return true
	}
	return strings.Contains(err.Error(), "token is expired")
}

// IsMalformedError will check for error message
func IsMalformedError(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "token is malformed") ||
		strings.Contains(err.Error(), "missing or malformed JWT")
}
