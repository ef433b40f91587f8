package authclient

import (
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

const (
	TextCodeTokenMalformed       = "TOKEN_MALFORMED"
	TextCodeMissingRequiredClaim = "MISSING_REQUIRED_CLAIM"
	TextCodeTokenExpired         = "TOKEN_EXPIRED"
	TextCodeRoleLookupFailed     = "ROLE_LOOKUP_FAILED"
	TextCodeUnauthorizedRoute    = "UNAUTHORIZED_ROUTE"
	TextCodeSessionNotFound      = "SESSION_NOT_FOUND"
	TextCodeStorageFailure       = "STORAGE_FAILURE"
)

// ErrTokenMalformed is returned when a bearer token cannot be decoded
var ErrTokenMalformed = goerrors.New("token is malformed", goerrors.CategoryAuth).
	WithTextCode(TextCodeTokenMalformed).
	WithCode(goerrors.CodeUnauthorized)

// ErrMissingRequiredClaim is returned when a decodable token lacks the
// subject, role or expiry claim.
var ErrMissingRequiredClaim = goerrors.New("token is missing a required claim", goerrors.CategoryAuth).
	WithTextCode(TextCodeMissingRequiredClaim).
	WithCode(goerrors.CodeUnauthorized)

// ErrTokenExpired is returned when the token expiry is in the past
var ErrTokenExpired = goerrors.New("token is expired", goerrors.CategoryAuth).
	WithTextCode(TextCodeTokenExpired).
	WithCode(goerrors.CodeUnauthorized)

// ErrRoleLookupFailed is returned when the login-time role lookup fails.
var ErrRoleLookupFailed = goerrors.New("unable to resolve role during login", goerrors.CategoryOperation).
	WithTextCode(TextCodeRoleLookupFailed).
	WithCode(goerrors.CodeUnauthorized)

// ErrUnauthorizedRoute is the error form of a RedirectUnauthorized decision.
var ErrUnauthorizedRoute = goerrors.New("principal is not allowed on this route", goerrors.CategoryAuthz).
	WithTextCode(TextCodeUnauthorizedRoute).
	WithCode(goerrors.CodeForbidden)

// ErrSessionNotFound is the error form of a RedirectLogin decision.
var ErrSessionNotFound = goerrors.New("no active session", goerrors.CategoryAuth).
	WithTextCode(TextCodeSessionNotFound).
	WithCode(goerrors.CodeUnauthorized)

// ErrStorageFailure wraps durable storage errors.
var ErrStorageFailure = goerrors.New("session storage failure", goerrors.CategoryInternal).
	WithTextCode(TextCodeStorageFailure).
	WithCode(goerrors.CodeInternal)

// ErrorTextCode returns the text code of a rich error, or "" for plain errors.
func ErrorTextCode(err error) string {
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) && richErr != nil {
		return richErr.TextCode
	}
	return ""
}

// IsTokenMalformedError reports decode failures, including missing claims.
func IsTokenMalformedError(err error) bool {
	if err == nil {
		return false
	}
	switch ErrorTextCode(err) {
	case TextCodeTokenMalformed, TextCodeMissingRequiredClaim:
		return true
	}
	return strings.Contains(err.Error(), "token is malformed")
}

// IsMissingClaimError reports tokens that decoded but lack required claims.
func IsMissingClaimError(err error) bool {
	return err != nil && ErrorTextCode(err) == TextCodeMissingRequiredClaim
}

// IsTokenExpiredError will check for expired tokens
func IsTokenExpiredError(err error) bool {
	if err == nil {
		return false
	}
	if ErrorTextCode(err) == TextCodeTokenExpired {
		return true
	}
	return strings.Contains(err.Error(), "token is expired")
}

// IsRoleLookupError reports login-time role lookup failures.
func IsRoleLookupError(err error) bool {
	return err != nil && ErrorTextCode(err) == TextCodeRoleLookupFailed
}

// IsStorageError reports durable storage failures.
func IsStorageError(err error) bool {
	return err != nil && ErrorTextCode(err) == TextCodeStorageFailure
}

func wrapAs(sentinel *goerrors.Error, err error, metadata map[string]any) error {
	wrapped := goerrors.Wrap(err, sentinel.Category, sentinel.Message).
		WithTextCode(sentinel.TextCode).
		WithCode(sentinel.Code)
	if len(metadata) > 0 {
		wrapped = wrapped.WithMetadata(metadata)
	}
	return wrapped
}

func withMetadata(sentinel *goerrors.Error, metadata map[string]any) error {
	clone := sentinel.Clone()
	if clone == nil {
		return sentinel
	}
	if len(metadata) > 0 {
		return clone.WithMetadata(metadata)
	}
	return clone
}
