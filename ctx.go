package authclient

import (
	"context"

	"github.com/goliatone/go-router"
)

var sessionCtxKey = &contextKey{"session"}

type contextKey struct {
	name string
}

// SessionLocalsKey is the router locals key the guard middleware uses
const SessionLocalsKey = "session"

// WithSessionContext sets the Session in the given context
func WithSessionContext(ctx context.Context, session Session) context.Context {
	return context.WithValue(ctx, sessionCtxKey, session)
}

// SessionFromContext finds the session from the context.
func SessionFromContext(ctx context.Context) (Session, bool) {
	if ctx == nil {
		return EmptySession(), false
	}
	raw, ok := ctx.Value(sessionCtxKey).(Session)
	if !ok {
		return EmptySession(), false
	}
	return raw, true
}

// GetRouterSession extracts the Session from the router context
func GetRouterSession(ctx router.Context, key string) (Session, bool) {
	if key == "" {
		key = SessionLocalsKey
	}
	switch raw := ctx.Locals(key).(type) {
	case Session:
		return raw, true
	case *Session:
		if raw != nil {
			return *raw, true
		}
	}
	return EmptySession(), false
}

// HasRoleFromContext reports whether the session in ctx holds one of roles.
func HasRoleFromContext(ctx context.Context, roles ...Role) bool {
	session, ok := SessionFromContext(ctx)
	if !ok {
		return false
	}
	return session.HasRole(roles...)
}
