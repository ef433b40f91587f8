package authclient

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Logger is the structured logger used across the package. Arguments after
// the message are key/value pairs.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// LoggerProvider hands out named loggers
type LoggerProvider interface {
	GetLogger(name string) Logger
}

// LoggerProviderFunc adapts a function into a LoggerProvider.
type LoggerProviderFunc func(name string) Logger

// GetLogger satisfies LoggerProvider.
func (f LoggerProviderFunc) GetLogger(name string) Logger {
	if f == nil {
		return nil
	}
	return f(name)
}

// ResolveLogger returns a provider and a logger for name. An explicit logger
// wins over the one produced by the provider, and a nil result from either
// falls back to the default logger.
func ResolveLogger(name string, provider LoggerProvider, logger Logger) (LoggerProvider, Logger) {
	if logger == nil && provider != nil {
		logger = provider.GetLogger(name)
	}

	if logger == nil {
		logger = defLogger{}
	}

	if provider == nil {
		fallback := logger
		provider = LoggerProviderFunc(func(string) Logger { return fallback })
	}

	return provider, logger
}

// Storage is the durable client storage the session store mirrors its state
// into. Keys are a compatibility surface (see StorageKeys).
type Storage interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, keys ...string) error
}

// RoleLookup resolves the role of a freshly decoded principal against a
// remote source of truth. It is awaited before a session is committed.
type RoleLookup interface {
	LookupRole(ctx context.Context, claims *Claims) (Role, error)
}

// RoleLookupFunc adapts a function into a RoleLookup.
type RoleLookupFunc func(ctx context.Context, claims *Claims) (Role, error)

// LookupRole satisfies RoleLookup.
func (f RoleLookupFunc) LookupRole(ctx context.Context, claims *Claims) (Role, error) {
	if f == nil {
		return RoleGuest, ErrRoleLookupFailed
	}
	return f(ctx, claims)
}

// CredentialExchanger is the external authentication API: it trades
// credentials for a bearer token.
type CredentialExchanger interface {
	Exchange(ctx context.Context, identifier, password string) (string, error)
}

// Config holds client session options
type Config interface {
	GetLoginPath() string
	GetUnauthorizedPath() string
	GetRegistrationPath() string
	GetRoleClaimKey() string
	GetNamespacedRoleClaimKey() string
	GetValidationInterval() time.Duration
	GetStorageKeys() StorageKeys
}

// StorageKeys names the durable storage entries owned by the session.
type StorageKeys struct {
	Token  string `json:"token" yaml:"token"`
	User   string `json:"user" yaml:"user"`
	RoleID string `json:"role_id" yaml:"role_id"`
}

// DefaultStorageKeys are the keys other tabs and legacy consumers read.
func DefaultStorageKeys() StorageKeys {
	return StorageKeys{
		Token:  "token",
		User:   "user",
		RoleID: "roleId",
	}
}

func (k StorageKeys) withDefaults() StorageKeys {
	def := DefaultStorageKeys()
	if k.Token == "" {
		k.Token = def.Token
	}
	if k.User == "" {
		k.User = def.User
	}
	if k.RoleID == "" {
		k.RoleID = def.RoleID
	}
	return k
}

// All returns every session key, in write order.
func (k StorageKeys) All() []string {
	return []string{k.Token, k.User, k.RoleID}
}

type defLogger struct{}

func (d defLogger) Debug(msg string, args ...any) { d.log("DBG", msg, args...) }
func (d defLogger) Info(msg string, args ...any)  { d.log("INF", msg, args...) }
func (d defLogger) Warn(msg string, args ...any)  { d.log("WRN", msg, args...) }
func (d defLogger) Error(msg string, args ...any) { d.log("ERR", msg, args...) }

func (d defLogger) log(level, msg string, args ...any) {
	var b strings.Builder
	b.WriteString("[" + level + "] AUTHCLIENT " + msg)
	for i := 0; i < len(args); i += 2 {
		if i+1 < len(args) {
			fmt.Fprintf(&b, " %v=%v", args[i], args[i+1])
			continue
		}
		fmt.Fprintf(&b, " %v", args[i])
	}
	fmt.Println(b.String())
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// NopLogger discards everything, handy in tests.
func NopLogger() Logger { return noopLogger{} }
