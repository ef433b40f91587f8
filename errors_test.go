package authclient_test

import (
	"errors"
	"fmt"
	"testing"

	authclient "github.com/goliatone/go-auth-client"
	goerrors "github.com/goliatone/go-errors"
	"github.com/stretchr/testify/assert"
)

func TestErrorPredicates(t *testing.T) {
	wrappedExpired := goerrors.Wrap(errors.New("exp in past"), goerrors.CategoryAuth, "token is expired").
		WithTextCode(authclient.TextCodeTokenExpired)

	tests := []struct {
		name      string
		err       error
		malformed bool
		missing   bool
		expired   bool
		lookup    bool
		storage   bool
	}{
		{name: "nil"},
		{name: "malformed sentinel", err: authclient.ErrTokenMalformed, malformed: true},
		{name: "missing claim", err: authclient.ErrMissingRequiredClaim, malformed: true, missing: true},
		{name: "expired sentinel", err: authclient.ErrTokenExpired, expired: true},
		{name: "wrapped expired", err: wrappedExpired, expired: true},
		{name: "legacy expired string", err: errors.New("some wrapper: token is expired"), expired: true},
		{name: "legacy malformed string", err: fmt.Errorf("decode: token is malformed"), malformed: true},
		{name: "role lookup", err: authclient.ErrRoleLookupFailed, lookup: true},
		{name: "storage", err: authclient.ErrStorageFailure, storage: true},
		{name: "plain error", err: errors.New("invalid token")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.malformed, authclient.IsTokenMalformedError(tt.err))
			assert.Equal(t, tt.missing, authclient.IsMissingClaimError(tt.err))
			assert.Equal(t, tt.expired, authclient.IsTokenExpiredError(tt.err))
			assert.Equal(t, tt.lookup, authclient.IsRoleLookupError(tt.err))
			assert.Equal(t, tt.storage, authclient.IsStorageError(tt.err))
		})
	}
}

func TestStructuredErrorProperties(t *testing.T) {
	tests := []struct {
		err      *goerrors.Error
		category goerrors.Category
		textCode string
		code     int
	}{
		{authclient.ErrTokenMalformed, goerrors.CategoryAuth, authclient.TextCodeTokenMalformed, goerrors.CodeUnauthorized},
		{authclient.ErrMissingRequiredClaim, goerrors.CategoryAuth, authclient.TextCodeMissingRequiredClaim, goerrors.CodeUnauthorized},
		{authclient.ErrTokenExpired, goerrors.CategoryAuth, authclient.TextCodeTokenExpired, goerrors.CodeUnauthorized},
		{authclient.ErrRoleLookupFailed, goerrors.CategoryOperation, authclient.TextCodeRoleLookupFailed, goerrors.CodeUnauthorized},
		{authclient.ErrUnauthorizedRoute, goerrors.CategoryAuthz, authclient.TextCodeUnauthorizedRoute, goerrors.CodeForbidden},
		{authclient.ErrSessionNotFound, goerrors.CategoryAuth, authclient.TextCodeSessionNotFound, goerrors.CodeUnauthorized},
		{authclient.ErrStorageFailure, goerrors.CategoryInternal, authclient.TextCodeStorageFailure, goerrors.CodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.textCode, func(t *testing.T) {
			assert.Equal(t, tt.category, tt.err.Category)
			assert.Equal(t, tt.textCode, tt.err.TextCode)
			assert.Equal(t, tt.code, tt.err.Code)
			assert.Equal(t, tt.textCode, authclient.ErrorTextCode(tt.err))
		})
	}

	assert.Empty(t, authclient.ErrorTextCode(errors.New("plain")))
}
