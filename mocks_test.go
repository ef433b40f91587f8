package authclient_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	authclient "github.com/goliatone/go-auth-client"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const (
	testSigningKey    = "test-signing-key"
	testSubject       = "9d2a3f1c-7f5b-4d0e-9a43-1c2b3d4e5f60"
	testEmail         = "ada@example.com"
	testUsername      = "ada"
	namespacedRoleKey = authclient.DefaultNamespacedRoleClaimKey
)

// mintToken signs claims with a throwaway key. The decoder never checks
// signatures, so any key works.
func mintToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(testSigningKey))
	require.NoError(t, err)
	return signed
}

func baseClaims(role any, exp time.Time) jwt.MapClaims {
	claims := jwt.MapClaims{
		"sub":         testSubject,
		"email":       testEmail,
		"unique_name": testUsername,
		"iat":         exp.Add(-time.Hour).Unix(),
		"exp":         exp.Unix(),
	}
	if role != nil {
		claims["role"] = role
	}
	return claims
}

func roleToken(t *testing.T, role any, exp time.Time) string {
	t.Helper()
	return mintToken(t, baseClaims(role, exp))
}

// fixedClock is a mutable test clock
type fixedClock struct {
	mu  sync.Mutex
	now time.Time
}

func newClock(now time.Time) *fixedClock {
	return &fixedClock{now: now}
}

func (c *fixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fixedClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// MockStorage implements authclient.Storage
type MockStorage struct {
	mock.Mock
}

func (m *MockStorage) Get(ctx context.Context, key string) (string, bool, error) {
	args := m.Called(ctx, key)
	return args.String(0), args.Bool(1), args.Error(2)
}

func (m *MockStorage) Set(ctx context.Context, key, value string) error {
	args := m.Called(ctx, key, value)
	return args.Error(0)
}

func (m *MockStorage) Delete(ctx context.Context, keys ...string) error {
	args := m.Called(ctx, keys)
	return args.Error(0)
}

// MockRoleLookup implements authclient.RoleLookup
type MockRoleLookup struct {
	mock.Mock
}

func (m *MockRoleLookup) LookupRole(ctx context.Context, claims *authclient.Claims) (authclient.Role, error) {
	args := m.Called(ctx, claims)
	return args.Get(0).(authclient.Role), args.Error(1)
}

// MockExchanger implements authclient.CredentialExchanger
type MockExchanger struct {
	mock.Mock
}

func (m *MockExchanger) Exchange(ctx context.Context, identifier, password string) (string, error) {
	args := m.Called(ctx, identifier, password)
	return args.String(0), args.Error(1)
}

// recordingSink collects activity events
type recordingSink struct {
	mu     sync.Mutex
	events []authclient.ActivityEvent
}

func (s *recordingSink) Record(_ context.Context, event authclient.ActivityEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

func (s *recordingSink) Types() []authclient.ActivityEventType {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]authclient.ActivityEventType, 0, len(s.events))
	for _, event := range s.events {
		out = append(out, event.EventType)
	}
	return out
}
