package authclient_test

import (
	"testing"

	authclient "github.com/goliatone/go-auth-client"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func paths(entries []authclient.MenuEntry) []string {
	out := make([]string, 0, len(entries))
	for _, entry := range entries {
		out = append(out, entry.Path)
	}
	return out
}

func TestMenuFor_Guest(t *testing.T) {
	menu := authclient.MenuFor(authclient.RoleGuest, false)
	assert.Equal(t, []string{"/login", "/register"}, paths(menu))

	// unauthenticated callers never see a role menu
	assert.Equal(t, menu, authclient.MenuFor(authclient.RoleAdmin, false))
}

func TestMenuFor_LogoutIsAlwaysLast(t *testing.T) {
	roles := append(authclient.GetAllRoles()[1:], authclient.RoleUnknown, authclient.Role(99))

	for _, role := range roles {
		t.Run(role.String(), func(t *testing.T) {
			menu := authclient.MenuFor(role, true)
			require.NotEmpty(t, menu)

			last := menu[len(menu)-1]
			assert.Equal(t, "/logout", last.Path)

			logouts := 0
			for _, entry := range menu {
				if entry.Path == "/logout" {
					logouts++
				}
			}
			assert.Equal(t, 1, logouts)
		})
	}
}

func TestMenuFor_RoleEntries(t *testing.T) {
	tests := []struct {
		role     authclient.Role
		contains []string
		excludes []string
	}{
		{authclient.RoleAdmin, []string{"/admin/dashboard", "/admin/accounts"}, []string{"/student/requests"}},
		{authclient.RoleStudent, []string{"/student/profile", "/student/requests"}, []string{"/admin/accounts"}},
		{authclient.RoleSponsor, []string{"/sponsor/donations"}, []string{"/admin/dashboard"}},
		{authclient.RoleStaff, []string{"/staff/requests", "/staff/inventory"}, []string{"/admin/accounts"}},
		{authclient.RoleManager, []string{"/manager/approvals", "/manager/reports"}, []string{"/admin/accounts"}},
		{authclient.RoleShop, []string{"/shop/orders", "/shop/products"}, []string{"/admin/accounts"}},
	}

	for _, tt := range tests {
		t.Run(tt.role.String(), func(t *testing.T) {
			got := paths(authclient.MenuFor(tt.role, true))
			for _, path := range tt.contains {
				assert.Contains(t, got, path)
			}
			for _, path := range tt.excludes {
				assert.NotContains(t, got, path)
			}
		})
	}
}

func TestMenuFor_UnknownRoleGetsStudentMenu(t *testing.T) {
	student := authclient.MenuFor(authclient.RoleStudent, true)
	assert.Equal(t, student, authclient.MenuFor(authclient.RoleUnknown, true))
	assert.Equal(t, student, authclient.MenuFor(authclient.Role(-7), true))
}

func TestMenuFor_ReturnsCopies(t *testing.T) {
	menu := authclient.MenuFor(authclient.RoleAdmin, true)
	menu[0].Label = "mutated"
	assert.NotEqual(t, "mutated", authclient.MenuFor(authclient.RoleAdmin, true)[0].Label)

	guest := authclient.MenuFor(authclient.RoleGuest, false)
	guest[0].Path = "/mutated"
	assert.Equal(t, "/login", authclient.MenuFor(authclient.RoleGuest, false)[0].Path)
}

func TestShowSponsorBanner(t *testing.T) {
	for _, role := range append(authclient.GetAllRoles(), authclient.RoleUnknown) {
		t.Run(role.String(), func(t *testing.T) {
			assert.Equal(t, role != authclient.RoleSponsor, authclient.ShowSponsorBanner(role))

			bar := authclient.TopBar(role, true)
			if role == authclient.RoleSponsor {
				assert.Empty(t, bar)
				return
			}
			require.Len(t, bar, 1)
			assert.Equal(t, "Become a sponsor", bar[0].Label)
		})
	}

	assert.Len(t, authclient.TopBar(authclient.RoleSponsor, false), 1)
}

func TestNavigationFor(t *testing.T) {
	nav := authclient.NavigationFor(authclient.EmptySession())
	assert.False(t, nav.Authenticated)
	assert.Equal(t, authclient.RoleGuest, nav.Role)
	assert.Equal(t, "/", nav.Landing)
	assert.Equal(t, authclient.MenuFor(authclient.RoleGuest, false), nav.Menu)

	// a role without a token is still a guest
	nav = authclient.NavigationFor(authclient.Session{Role: authclient.RoleAdmin})
	assert.False(t, nav.Authenticated)
	assert.Equal(t, authclient.RoleGuest, nav.Role)
}
