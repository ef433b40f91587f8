package authclient_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	authclient "github.com/goliatone/go-auth-client"
	"github.com/goliatone/go-auth-client/storage"
	"github.com/stretchr/testify/require"
)

type logCall struct {
	level   string
	message string
	args    []any
}

type captureLogger struct {
	mu    sync.Mutex
	calls []logCall
}

func (l *captureLogger) record(level, message string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, logCall{level: level, message: message, args: args})
}

func (l *captureLogger) Debug(message string, args ...any) { l.record("debug", message, args...) }
func (l *captureLogger) Info(message string, args ...any)  { l.record("info", message, args...) }
func (l *captureLogger) Warn(message string, args ...any)  { l.record("warn", message, args...) }
func (l *captureLogger) Error(message string, args ...any) { l.record("error", message, args...) }

func (l *captureLogger) levels(level string) []logCall {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []logCall
	for _, c := range l.calls {
		if c.level == level {
			out = append(out, c)
		}
	}
	return out
}

type loggerProviderSpy struct {
	logger authclient.Logger
	byName map[string]authclient.Logger
	names  []string
}

func (p *loggerProviderSpy) GetLogger(name string) authclient.Logger {
	p.names = append(p.names, name)
	if p.byName != nil {
		if logger, ok := p.byName[name]; ok {
			return logger
		}
	}
	return p.logger
}

func TestResolveLogger(t *testing.T) {
	provider, logger := authclient.ResolveLogger("authclient.test", nil, nil)
	require.NotNil(t, provider)
	require.NotNil(t, logger)
	require.NotNil(t, provider.GetLogger("authclient.other"))

	fallback := &captureLogger{}
	providerWithNilLogger := &loggerProviderSpy{byName: map[string]authclient.Logger{"authclient.test": nil}}
	_, resolved := authclient.ResolveLogger("authclient.test", providerWithNilLogger, fallback)
	require.Same(t, fallback, resolved)

	scoped := &captureLogger{}
	spy := &loggerProviderSpy{logger: scoped}
	gotProvider, gotLogger := authclient.ResolveLogger("authclient.test", spy, nil)
	require.Same(t, scoped, gotLogger)
	require.Same(t, spy, gotProvider)
	require.Contains(t, spy.names, "authclient.test")
}

func TestGlogProvider(t *testing.T) {
	require.Nil(t, authclient.GlogProvider(nil))

	provider := authclient.GlogProvider(authclient.NewDefaultLogger(false))
	require.NotNil(t, provider)

	logger := provider.GetLogger("authclient.store")
	require.NotNil(t, logger)
	logger.Debug("resolved", "name", "authclient.store")
}

func TestSessionStoreLoggerProviderResolvesScopedLoggers(t *testing.T) {
	resolved := &captureLogger{}
	provider := &loggerProviderSpy{logger: resolved}

	store := authclient.NewSessionStore(storage.NewMemory(), authclient.WithStoreLoggerProvider(provider))
	authclient.NewSessionValidator(store)
	authclient.NewRouteGuard(store, nil)
	authclient.NewLoginHandler(&MockExchanger{}, store)

	require.Contains(t, provider.names, "authclient.store")
	require.Contains(t, provider.names, "authclient.roles")
	require.Contains(t, provider.names, "authclient.validator")
	require.Contains(t, provider.names, "authclient.guard")
	require.Contains(t, provider.names, "authclient.login")
}

func TestActivitySinkErrorIsLoggedNotReturned(t *testing.T) {
	expectedErr := errors.New("sink unavailable")
	logger := &captureLogger{}
	clock := &fixedClock{now: testNow}

	store := authclient.NewSessionStore(storage.NewMemory(),
		authclient.WithStoreLogger(logger),
		authclient.WithStoreClock(clock.Now),
		authclient.WithStoreActivitySink(authclient.ActivitySinkFunc(func(context.Context, authclient.ActivityEvent) error {
			return expectedErr
		})),
	)

	_, err := store.Login(context.Background(), roleToken(t, "Staff", testNow.Add(time.Hour)))
	require.NoError(t, err)

	warns := logger.levels("warn")
	require.Len(t, warns, 1)
	require.Contains(t, warns[0].args, expectedErr)
}
