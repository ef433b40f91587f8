package authclient_test

import (
	"context"
	"errors"
	"net/url"
	"sync"
	"testing"
	"time"

	authclient "github.com/goliatone/go-auth-client"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newGuardFixture(t *testing.T, opts ...authclient.GuardOption) (storeFixture, *authclient.RouteGuard) {
	t.Helper()
	fx := newStoreFixture(t)
	base := []authclient.GuardOption{
		authclient.WithGuardLogger(authclient.NopLogger()),
		authclient.WithGuardActivitySink(fx.sink),
	}
	guard := authclient.NewRouteGuard(fx.store, nil, append(base, opts...)...)
	return fx, guard
}

func loginAs(t *testing.T, fx storeFixture, role any) authclient.Session {
	t.Helper()
	session, err := fx.store.Login(context.Background(), roleToken(t, role, testNow.Add(time.Hour)))
	require.NoError(t, err)
	return session
}

func TestPolicy_Allows(t *testing.T) {
	tests := []struct {
		name     string
		policy   authclient.Policy
		role     authclient.Role
		expected bool
	}{
		{"any authenticated admits student", authclient.AnyAuthenticated(), authclient.RoleStudent, true},
		{"any authenticated admits unknown", authclient.AnyAuthenticated(), authclient.RoleUnknown, true},
		{"any authenticated rejects guest", authclient.AnyAuthenticated(), authclient.RoleGuest, false},
		{"admin only admits admin", authclient.RequireRoles(authclient.RoleAdmin), authclient.RoleAdmin, true},
		{"admin only rejects student", authclient.RequireRoles(authclient.RoleAdmin), authclient.RoleStudent, false},
		{"role list rejects unknown", authclient.RequireRoles(authclient.RoleStudent, authclient.RoleSponsor), authclient.RoleUnknown, false},
		{"guest listed is still rejected", authclient.RequireRoles(authclient.RoleGuest), authclient.RoleGuest, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.policy.Allows(tt.role))
		})
	}

	assert.Equal(t, "roles:Admin,Staff", authclient.RequireRoles(authclient.RoleAdmin, authclient.RoleStaff).Name)
}

func TestRouteGuard_AdminRouteRejectsStudent(t *testing.T) {
	ctx := context.Background()
	fx, guard := newGuardFixture(t)
	loginAs(t, fx, "Student")

	built := false
	content, decision, err := authclient.Guarded(ctx, guard, "/admin/accounts", authclient.RequireRoles(authclient.RoleAdmin),
		func(context.Context, authclient.Session) (string, error) {
			built = true
			return "privileged", nil
		})
	require.NoError(t, err)

	assert.Equal(t, authclient.GuardRedirectUnauthorized, decision.State)
	assert.Equal(t, "/unauthorized", decision.RedirectTo)
	assert.Equal(t, authclient.RoleStudent, decision.Role)
	assert.False(t, built)
	assert.Empty(t, content)
	assert.Equal(t, authclient.TextCodeUnauthorizedRoute, authclient.ErrorTextCode(decision.Err()))
	assert.Contains(t, fx.sink.Types(), authclient.ActivityEventRouteDenied)
}

func TestRouteGuard_NoTokenRedirectsToLoginWithReturnPath(t *testing.T) {
	ctx := context.Background()
	fx, guard := newGuardFixture(t)
	_, err := fx.store.Restore(ctx)
	require.NoError(t, err)

	decision := guard.Check(ctx, "/student/requests?page=2", authclient.AnyAuthenticated())

	assert.Equal(t, authclient.GuardRedirectLogin, decision.State)
	assert.Equal(t, "/student/requests?page=2", decision.ReturnTo)

	u, err := url.Parse(decision.RedirectTo)
	require.NoError(t, err)
	assert.Equal(t, "/login", u.Path)
	assert.Equal(t, "/student/requests?page=2", u.Query().Get("redirect"))
	assert.Equal(t, authclient.TextCodeSessionNotFound, authclient.ErrorTextCode(decision.Err()))
}

func TestRouteGuard_SponsorRegistration(t *testing.T) {
	ctx := context.Background()
	policy := authclient.SponsorRegistrationPolicy("/register")

	t.Run("student is allowed", func(t *testing.T) {
		fx, guard := newGuardFixture(t)
		loginAs(t, fx, "Student")

		decision := guard.Check(ctx, "/sponsor/register", policy)
		assert.Equal(t, authclient.GuardAllowed, decision.State)
		assert.Empty(t, decision.RedirectTo)
		assert.NoError(t, decision.Err())
	})

	t.Run("sponsor is unauthorized", func(t *testing.T) {
		fx, guard := newGuardFixture(t)
		loginAs(t, fx, "Sponsor")

		decision := guard.Check(ctx, "/sponsor/register", policy)
		assert.Equal(t, authclient.GuardRedirectUnauthorized, decision.State)
	})

	t.Run("anonymous goes to registration", func(t *testing.T) {
		fx, guard := newGuardFixture(t)
		_, err := fx.store.Restore(ctx)
		require.NoError(t, err)

		decision := guard.Check(ctx, "/sponsor/register", policy)
		assert.Equal(t, authclient.GuardRedirectLogin, decision.State)

		u, err := url.Parse(decision.RedirectTo)
		require.NoError(t, err)
		assert.Equal(t, "/register", u.Path)
		assert.Equal(t, "/sponsor/register", u.Query().Get("redirect"))
	})
}

func TestRouteGuard_ExpiredSessionRedirectsToLogin(t *testing.T) {
	ctx := context.Background()
	fx, guard := newGuardFixture(t)
	loginAs(t, fx, "Admin")

	var logouts int
	fx.store.OnLogout(func(context.Context, authclient.LogoutEvent) { logouts++ })

	fx.clock.Advance(2 * time.Hour)

	decision := guard.Check(ctx, "/admin/dashboard", authclient.RequireRoles(authclient.RoleAdmin))
	assert.Equal(t, authclient.GuardRedirectLogin, decision.State)
	assert.Equal(t, 1, logouts)
	assert.False(t, fx.store.Current().IsAuthenticated())

	decision = guard.Check(ctx, "/admin/dashboard", authclient.RequireRoles(authclient.RoleAdmin))
	assert.Equal(t, authclient.GuardRedirectLogin, decision.State)
	assert.Equal(t, 1, logouts)
}

func TestRouteGuard_WaitsForRestore(t *testing.T) {
	ctx := context.Background()
	fx, guard := newGuardFixture(t)

	// a session persisted by a previous process
	previous := authclient.NewSessionStore(fx.backend,
		authclient.WithStoreClock(fx.clock.Now),
		authclient.WithStoreLogger(authclient.NopLogger()),
	)
	_, err := previous.Login(ctx, roleToken(t, "Manager", testNow.Add(time.Hour)))
	require.NoError(t, err)

	result := make(chan authclient.Decision, 1)
	go func() {
		result <- guard.Check(ctx, "/manager/approvals", authclient.RequireRoles(authclient.RoleManager))
	}()

	select {
	case d := <-result:
		t.Fatalf("guard decided before restore: %s", d.State)
	case <-time.After(20 * time.Millisecond):
	}

	_, err = fx.store.Restore(ctx)
	require.NoError(t, err)

	decision := <-result
	assert.Equal(t, authclient.GuardAllowed, decision.State)
	assert.Equal(t, authclient.RoleManager, decision.Role)
}

func TestRouteGuard_CancelledRestoreFailsClosed(t *testing.T) {
	_, guard := newGuardFixture(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	decision := guard.Check(ctx, "/admin/dashboard", authclient.AnyAuthenticated())
	assert.Equal(t, authclient.GuardRedirectLogin, decision.State)
	assert.Equal(t, "/admin/dashboard", decision.ReturnTo)
}

func TestRouteGuard_Transitions(t *testing.T) {
	ctx := context.Background()

	var mu sync.Mutex
	var seen []authclient.GuardTransition
	hook := func(_ context.Context, tr authclient.GuardTransition) {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, tr)
	}

	fx, guard := newGuardFixture(t, authclient.WithGuardHook(hook))
	loginAs(t, fx, "Shop")

	decision := guard.Check(ctx, "/shop/orders", authclient.RequireRoles(authclient.RoleShop))
	require.True(t, decision.Allowed())

	require.Len(t, seen, 2)
	assert.Equal(t, authclient.GuardUnchecked, seen[0].From)
	assert.Equal(t, authclient.GuardChecking, seen[0].To)
	assert.Equal(t, authclient.GuardChecking, seen[1].From)
	assert.Equal(t, authclient.GuardAllowed, seen[1].To)
	assert.True(t, seen[1].To.IsTerminal())
	assert.False(t, seen[0].To.IsTerminal())
	assert.Equal(t, "/shop/orders", seen[1].Path)
}

func TestRouteGuard_ConfiguredPaths(t *testing.T) {
	cfg := authclient.DefaultConfig()
	cfg.LoginPath = "/auth/sign-in"
	cfg.UnauthorizedPath = "/403"

	fx, guard := newGuardFixture(t, authclient.WithGuardConfig(cfg))
	assert.Equal(t, "/auth/sign-in", guard.LoginPath())
	assert.Equal(t, "/403", guard.UnauthorizedPath())

	loginAs(t, fx, "Student")
	decision := guard.Check(context.Background(), "/admin", authclient.RequireRoles(authclient.RoleAdmin))
	assert.Equal(t, "/403", decision.RedirectTo)

	custom := authclient.RequireRoles(authclient.RoleAdmin)
	custom.UnauthorizedRedirect = "/student/profile"
	decision = guard.Check(context.Background(), "/admin", custom)
	assert.Equal(t, "/student/profile", decision.RedirectTo)
}

func TestGuarded_AllowedBuildsWithSessionContext(t *testing.T) {
	fx, guard := newGuardFixture(t)
	loginAs(t, fx, "Sponsor")

	content, decision, err := authclient.Guarded(context.Background(), guard, "/sponsor/donations", authclient.AnyAuthenticated(),
		func(ctx context.Context, s authclient.Session) (string, error) {
			fromCtx, ok := authclient.SessionFromContext(ctx)
			require.True(t, ok)
			assert.Equal(t, s, fromCtx)
			return "donations for " + s.Role.String(), nil
		})

	require.NoError(t, err)
	assert.True(t, decision.Allowed())
	assert.Equal(t, "donations for Sponsor", content)

	_, _, err = authclient.Guarded(context.Background(), guard, "/sponsor/donations", authclient.AnyAuthenticated(),
		func(context.Context, authclient.Session) (int, error) {
			return 0, errors.New("render failed")
		})
	assert.EqualError(t, err, "render failed")
}

func TestSafeReturnPath(t *testing.T) {
	tests := map[string]string{
		"/student/requests":        "/student/requests",
		"/a?b=1":                   "/a?b=1",
		"  /trimmed ":              "/trimmed",
		"":                         "",
		"relative/path":            "",
		"//evil.example.com/x":     "",
		"https://evil.example.com": "",
		`/\evil.example.com`:       "",
	}

	for input, expected := range tests {
		t.Run(input, func(t *testing.T) {
			assert.Equal(t, expected, authclient.SafeReturnPath(input))
		})
	}
}

func TestLoginURL(t *testing.T) {
	assert.Equal(t, "/login", authclient.LoginURL("/login", ""))
	assert.Equal(t, "/login?redirect=%2Fadmin%3Fx%3D1", authclient.LoginURL("/login", "/admin?x=1"))
	assert.Equal(t, "/login?lang=en&redirect=%2Fa", authclient.LoginURL("/login?lang=en", "/a"))
}
